package subtitles

import (
	"html"
	"math"
	"regexp"
	"strings"
	"unicode"
)

var (
	tagPattern           = regexp.MustCompile(`<[^>]*>`)
	spaceBeforePunctPatt = regexp.MustCompile(`\s+([.,!?;:…%)\]}»”])`)
)

// mergeWindow is how close a punctuation-only cue must start to the previous
// cue's end to be folded into it.
const mergeWindow = 0.1

// cleanText strips inline markup, decodes entities, collapses whitespace and
// removes whitespace before punctuation.
func cleanText(s string) string {
	s = tagPattern.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = strings.Join(strings.Fields(s), " ")
	s = spaceBeforePunctPatt.ReplaceAllString(s, "$1")
	return strings.TrimSpace(s)
}

func isPunctuationOnly(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsPunct(r) {
			return false
		}
	}
	return true
}

// appendCue cleans c and adds it to out, folding punctuation-only cues into
// the preceding accepted cue when they start within mergeWindow of its end.
func appendCue(out []Cue, c Cue) []Cue {
	c.Text = cleanText(c.Text)
	if c.Text == "" {
		return out
	}
	if n := len(out); n > 0 && isPunctuationOnly(c.Text) {
		prev := &out[n-1]
		if math.Abs(c.Start-prev.End) <= mergeWindow+1e-9 {
			prev.Text += c.Text
			prev.End = math.Max(prev.End, c.End)
			return out
		}
	}
	return append(out, c)
}
