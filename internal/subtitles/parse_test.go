package subtitles

import (
	"strings"
	"testing"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    Format
	}{
		{"vtt header", "WEBVTT\n\n00:00:01.000 --> 00:00:02.000\nHi\n", FormatWebVTT},
		{"srt numeric", "1\n00:00:01,000 --> 00:00:02,000\nHi\n", FormatSubRip},
		{"no header", "00:00:01.000 --> 00:00:02.000\nHi\n", FormatSubRip},
		{"numeric first even with token", "\n\n1\nWEBVTT mention\n", FormatSubRip},
		{"bom vtt", "\ufeffWEBVTT\n", FormatWebVTT},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectFormat(tt.content); got != tt.want {
				t.Fatalf("DetectFormat = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseVTT(t *testing.T) {
	content := strings.Join([]string{
		"WEBVTT",
		"Language: en",
		"Kind: captions",
		"",
		"NOTE this is a comment",
		"spanning two lines",
		"",
		"STYLE",
		"::cue { color: yellow }",
		"",
		"intro",
		"00:00:01.000 --> 00:00:03.500 align:start position:10%",
		"<v Roger>Hello   <b>there</b></v>",
		"general Kenobi !",
		"",
		"01:02.250 --> 01:04.000",
		"Tom &amp; Jerry",
		"",
	}, "\n")

	cues := Parse(content)
	if len(cues) != 2 {
		t.Fatalf("expected 2 cues, got %d: %+v", len(cues), cues)
	}
	first := cues[0]
	if first.Start != 1 || first.End != 3.5 {
		t.Fatalf("unexpected timing: %+v", first)
	}
	if first.Text != "Hello there general Kenobi!" {
		t.Fatalf("unexpected text %q", first.Text)
	}
	if first.Identifier != "intro" {
		t.Fatalf("unexpected identifier %q", first.Identifier)
	}
	if first.Styles != "align:start position:10%" {
		t.Fatalf("unexpected styles %q", first.Styles)
	}
	if cues[1].Start != 62.25 || cues[1].Text != "Tom & Jerry" {
		t.Fatalf("unexpected second cue: %+v", cues[1])
	}
}

func TestParseVTTWithoutBlankSeparators(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name:    "single line cues",
			content: "WEBVTT\n\n00:00:01.000 --> 00:00:02.000\nHello\n00:00:02.000 --> 00:00:03.000\nWorld\n",
			want:    []string{"Hello", "World"},
		},
		{
			name:    "multi line cue",
			content: "WEBVTT\n\n00:00:01.000 --> 00:00:02.000\nline one\nline two\n00:00:02.000 --> 00:00:03.000\nnext\n",
			want:    []string{"line one line two", "next"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cues := Parse(tt.content)
			if len(cues) != len(tt.want) {
				t.Fatalf("expected %d cues, got %+v", len(tt.want), cues)
			}
			for i, want := range tt.want {
				if cues[i].Text != want || cues[i].Identifier != "" {
					t.Fatalf("cue %d = %+v, want text %q and no identifier", i, cues[i], want)
				}
			}
		})
	}
}

func TestParseVTTHeaderAboveFirstCue(t *testing.T) {
	cues := Parse("WEBVTT\nLanguage: en\nKind: captions\n00:00:01.000 --> 00:00:02.000\nHello\n")
	if len(cues) != 1 {
		t.Fatalf("expected 1 cue, got %+v", cues)
	}
	if cues[0].Identifier != "" || cues[0].Text != "Hello" {
		t.Fatalf("header line leaked into cue: %+v", cues[0])
	}
}

func TestParseSRTWithCRLF(t *testing.T) {
	content := "1\r\n00:00:01,000 --> 00:00:02,500\r\nHola\r\nmundo\r\n\r\n" +
		"2\r\nnot a timing line\r\ndropped\r\n\r\n" +
		"3\r\n00:00:04.000 --> 00:00:05,000\r\n<i>Adiós</i>\r\n"
	cues := Parse(content)
	if len(cues) != 2 {
		t.Fatalf("expected 2 cues, got %+v", cues)
	}
	if cues[0].Text != "Hola mundo" || cues[0].End != 2.5 || cues[0].Identifier != "1" {
		t.Fatalf("unexpected first cue: %+v", cues[0])
	}
	if cues[1].Text != "Adiós" || cues[1].Start != 4 {
		t.Fatalf("unexpected second cue: %+v", cues[1])
	}
}

func TestParseSRTMode(t *testing.T) {
	cues := Parse("1\n00:00:01,000 --> 00:00:02,000\nHello\n")
	if len(cues) != 1 || cues[0].Start != 1 || cues[0].End != 2 || cues[0].Text != "Hello" {
		t.Fatalf("unexpected cues: %+v", cues)
	}
}

func TestPunctuationMerge(t *testing.T) {
	content := "WEBVTT\n\n00:00:00.000 --> 00:00:01.000\nHello\n\n00:00:01.050 --> 00:00:01.060\n.\n"
	cues := Parse(content)
	if len(cues) != 1 {
		t.Fatalf("expected merged cue, got %+v", cues)
	}
	if cues[0].Start != 0 || cues[0].End != 1.06 || cues[0].Text != "Hello." {
		t.Fatalf("unexpected merged cue: %+v", cues[0])
	}
}

func TestPunctuationOutsideWindowStaysSeparate(t *testing.T) {
	content := "WEBVTT\n\n00:00:00.000 --> 00:00:01.000\nHello\n\n00:00:01.500 --> 00:00:02.000\n?!\n"
	cues := Parse(content)
	if len(cues) != 2 || cues[1].Text != "?!" {
		t.Fatalf("expected separate punctuation cue, got %+v", cues)
	}
}

func TestParseDropsEmptyAndMalformed(t *testing.T) {
	tests := []string{
		"",
		"WEBVTT\n",
		"WEBVTT\n\n00:00:01.000 --> 00:00:02.000\n<b></b>\n",
		"WEBVTT\n\n00:00:xx.000 --> 00:00:02.000\nbroken\n",
		"garbage without structure",
		"1\n2\n3\n",
	}
	for _, content := range tests {
		if cues := Parse(content); len(cues) != 0 {
			t.Fatalf("expected no cues for %q, got %+v", content, cues)
		}
	}
}

func TestParseClampsInvertedTiming(t *testing.T) {
	cues := Parse("WEBVTT\n\n00:00:05.000 --> 00:00:04.000\nBackwards\n")
	if len(cues) != 1 || cues[0].End != cues[0].Start {
		t.Fatalf("expected clamped cue, got %+v", cues)
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"00:00:01.000", 1, true},
		{"01:00:00,500", 3600.5, true},
		{"02:03.4", 123.4, true},
		{"100:00:00.000", 360000, true},
		{"00:60:00.000", 0, false},
		{"00:00:01", 0, false},
		{"1:2:3.000", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, err := ParseTimestamp(tt.in)
		if (err == nil) != tt.ok {
			t.Fatalf("ParseTimestamp(%q) err=%v, want ok=%v", tt.in, err, tt.ok)
		}
		if tt.ok && got != tt.want {
			t.Fatalf("ParseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFormatTimestamp(t *testing.T) {
	if got := FormatTimestamp(3723.0456); got != "01:02:03.046" {
		t.Fatalf("unexpected VTT timestamp %q", got)
	}
	if got := formatSRTTimestamp(-1); got != "00:00:00,000" {
		t.Fatalf("unexpected SRT timestamp %q", got)
	}
}

func TestVTTRoundTrip(t *testing.T) {
	in := []Cue{
		{Start: 0.5, End: 1.75, Text: "First line"},
		{Start: 2, End: 4.125, Text: "Fish & chips <tasty>"},
		{Start: 61.001, End: 3725.999, Text: "Long one"},
	}
	out := Parse(FormatVTT(in, "en"))
	if len(out) != len(in) {
		t.Fatalf("round trip changed length: %+v", out)
	}
	for i := range in {
		if !in[i].Same(out[i]) {
			t.Fatalf("cue %d mismatch: in=%+v out=%+v", i, in[i], out[i])
		}
	}
}

func TestSRTRoundTrip(t *testing.T) {
	in := []Cue{{Start: 1, End: 2, Text: "Uno"}, {Start: 3, End: 4.5, Text: "Dos"}}
	out := Parse(FormatSRT(in))
	if len(out) != 2 || !out[0].Same(in[0]) || !out[1].Same(in[1]) {
		t.Fatalf("unexpected SRT round trip: %+v", out)
	}
}

func TestFormatVTTHeader(t *testing.T) {
	if got := FormatVTT(nil, ""); got != "WEBVTT\n\n" {
		t.Fatalf("unexpected empty document %q", got)
	}
	got := FormatVTT([]Cue{{Start: 1, End: 2, Text: "Hi", Identifier: "1"}}, "es")
	want := "WEBVTT\nLanguage: es\n\n1\n00:00:01.000 --> 00:00:02.000\nHi\n"
	if got != want {
		t.Fatalf("FormatVTT = %q, want %q", got, want)
	}
}

func TestSortedAndBounds(t *testing.T) {
	cues := []Cue{{Start: 5, End: 6, Text: "b"}, {Start: 1, End: 9, Text: "a"}, {Start: 5, End: 5.5, Text: "c"}}
	sorted := Sorted(cues)
	if sorted[0].Text != "a" || sorted[1].Text != "c" || sorted[2].Text != "b" {
		t.Fatalf("unexpected order: %+v", sorted)
	}
	if cues[0].Text != "b" {
		t.Fatal("Sorted must not mutate input")
	}
	first, last := Bounds(cues)
	if first != 1 || last != 9 {
		t.Fatalf("Bounds = %v,%v", first, last)
	}
}

func TestValidateContent(t *testing.T) {
	if issues := ValidateContent(nil, 0); len(issues) != 1 || issues[0] != "empty_subtitle_file" {
		t.Fatalf("unexpected issues: %v", issues)
	}
	cues := []Cue{{Start: 0, End: 2}, {Start: 1, End: 3}, {Start: 0.5, End: 0.5}, {Start: 4, End: 120}}
	issues := strings.Join(ValidateContent(cues, 60), ";")
	for _, want := range []string{"unordered_cues", "overlapping_cues", "zero_length_cues", "duration_mismatch"} {
		if !strings.Contains(issues, want) {
			t.Fatalf("expected %s in %q", want, issues)
		}
	}
	if issues := ValidateContent([]Cue{{Start: 1, End: 2}}, 60); len(issues) != 0 {
		t.Fatalf("expected clean track, got %v", issues)
	}
}

func TestTracksLanguagesAndClone(t *testing.T) {
	tracks := Tracks{"es": {{Start: 1, End: 2, Text: "Hola"}}, "en": {{Start: 1, End: 2, Text: "Hi"}}, "pt": nil}
	if got := strings.Join(tracks.Languages(), ","); got != "en,es" {
		t.Fatalf("unexpected languages %q", got)
	}
	clone := tracks.Clone()
	clone["en"][0].Text = "changed"
	if tracks["en"][0].Text != "Hi" {
		t.Fatal("Clone must deep copy cue slices")
	}
}

func TestFileNamesOrder(t *testing.T) {
	got := FileNames(" Es ")
	want := []string{"ES.vtt", "es.vtt", "ES.srt", "es.srt"}
	if len(got) != len(want) {
		t.Fatalf("expected %d names, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("name %d: got %q want %q", i, got[i], want[i])
		}
	}
	if FileName("pt") != "PT.vtt" {
		t.Fatalf("unexpected publish name %q", FileName("pt"))
	}
}
