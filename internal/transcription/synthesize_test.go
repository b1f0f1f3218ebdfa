package transcription

import (
	"math"
	"strings"
	"testing"

	"captionsync/internal/subtitles"
)

func evenlySpaced(n int, step float64) []WordTimestamp {
	words := make([]WordTimestamp, n)
	for i := range words {
		start := float64(i) * step
		words[i] = WordTimestamp{Word: "w" + string(rune('a'+i%26)), Start: start, End: start + step*0.8}
	}
	return words
}

func TestSegmentSplitsOnWordCount(t *testing.T) {
	cues := Segment(evenlySpaced(20, 0.3))
	if len(cues) != 2 {
		t.Fatalf("expected 2 cues, got %d", len(cues))
	}
	if n := len(strings.Fields(cues[0].Text)); n != MaxSegmentWords {
		t.Fatalf("first cue should hold %d words, got %d", MaxSegmentWords, n)
	}
	if n := len(strings.Fields(cues[1].Text)); n != 5 {
		t.Fatalf("second cue should hold 5 words, got %d", n)
	}
	if cues[0].Identifier != "1" || cues[1].Identifier != "2" {
		t.Fatalf("unexpected identifiers %q %q", cues[0].Identifier, cues[1].Identifier)
	}
	if math.Abs(cues[1].Start-4.5) > 1e-9 {
		t.Fatalf("second cue should start at the 16th word, got %v", cues[1].Start)
	}
}

func TestSegmentSplitsOnSpan(t *testing.T) {
	words := []WordTimestamp{
		{Word: "slow", Start: 0, End: 2},
		{Word: "spoken", Start: 3, End: 5},
		{Word: "words", Start: 6, End: 7.2},
		{Word: "continue", Start: 8, End: 9},
	}
	cues := Segment(words)
	if len(cues) != 2 {
		t.Fatalf("expected 2 cues, got %d: %+v", len(cues), cues)
	}
	if cues[0].Text != "slow spoken words" || cues[0].End != 7.2 {
		t.Fatalf("unexpected first cue %+v", cues[0])
	}
	if cues[1].Text != "continue" || cues[1].Start != 8 {
		t.Fatalf("unexpected second cue %+v", cues[1])
	}
}

func TestSegmentSkipsBlankWords(t *testing.T) {
	cues := Segment([]WordTimestamp{{Word: " ", Start: 0, End: 1}, {Word: "hi", Start: 1, End: 2}})
	if len(cues) != 1 || cues[0].Text != "hi" || cues[0].Start != 1 {
		t.Fatalf("unexpected cues %+v", cues)
	}
}

func TestSynthesizeEmpty(t *testing.T) {
	if got := Synthesize(nil, "en"); got != "WEBVTT\n\n" {
		t.Fatalf("unexpected empty document %q", got)
	}
}

func TestSynthesizeProducesParseableVTT(t *testing.T) {
	doc := Synthesize(evenlySpaced(20, 0.3), "pt")
	if !strings.HasPrefix(doc, "WEBVTT\nLanguage: pt\n\n1\n") {
		t.Fatalf("unexpected header %q", doc[:min(len(doc), 40)])
	}
	cues := subtitles.Parse(doc)
	if len(cues) != 2 {
		t.Fatalf("expected 2 parsed cues, got %d", len(cues))
	}
	if cues[0].Identifier != "1" {
		t.Fatalf("identifier lost: %+v", cues[0])
	}
}
