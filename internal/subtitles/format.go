package subtitles

import (
	"strconv"
	"strings"
)

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// FormatVTT serializes cues as WebVTT. A non-empty language adds a
// "Language: xx" header line. Cue identifiers and settings are written when
// present.
func FormatVTT(cues []Cue, language string) string {
	var b strings.Builder
	b.WriteString("WEBVTT\n")
	if language = strings.TrimSpace(language); language != "" {
		b.WriteString("Language: ")
		b.WriteString(language)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	for i, c := range cues {
		if i > 0 {
			b.WriteByte('\n')
		}
		if c.Identifier != "" {
			b.WriteString(c.Identifier)
			b.WriteByte('\n')
		}
		b.WriteString(FormatTimestamp(c.Start))
		b.WriteString(" --> ")
		b.WriteString(FormatTimestamp(c.End))
		if c.Styles != "" {
			b.WriteByte(' ')
			b.WriteString(c.Styles)
		}
		b.WriteByte('\n')
		b.WriteString(textEscaper.Replace(c.Text))
		b.WriteByte('\n')
	}
	return b.String()
}

// FormatSRT serializes cues as SubRip, numbering blocks from 1.
func FormatSRT(cues []Cue) string {
	var b strings.Builder
	for i, c := range cues {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteByte('\n')
		b.WriteString(formatSRTTimestamp(c.Start))
		b.WriteString(" --> ")
		b.WriteString(formatSRTTimestamp(c.End))
		b.WriteByte('\n')
		b.WriteString(c.Text)
		b.WriteByte('\n')
	}
	return b.String()
}
