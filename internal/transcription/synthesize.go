package transcription

import (
	"strconv"
	"strings"

	"captionsync/internal/subtitles"
)

const (
	// MaxSegmentSeconds closes a segment once its span reaches this length.
	MaxSegmentSeconds = 7.0
	// MaxSegmentWords closes a segment once it holds this many words.
	MaxSegmentWords = 15
)

// WordTimestamp is one recognized word with its timing in seconds.
type WordTimestamp struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Segment groups words into numbered cues. A segment closes when its span
// reaches MaxSegmentSeconds, when it holds MaxSegmentWords words, or at the
// final word. Blank words are skipped.
func Segment(words []WordTimestamp) []subtitles.Cue {
	var (
		cues    []subtitles.Cue
		current []WordTimestamp
	)
	flush := func() {
		if len(current) == 0 {
			return
		}
		texts := make([]string, len(current))
		for i, w := range current {
			texts[i] = w.Word
		}
		cues = append(cues, subtitles.Cue{
			Identifier: strconv.Itoa(len(cues) + 1),
			Start:      current[0].Start,
			End:        max(current[len(current)-1].End, current[0].Start),
			Text:       strings.Join(texts, " "),
		})
		current = current[:0]
	}

	kept := make([]WordTimestamp, 0, len(words))
	for _, w := range words {
		w.Word = strings.TrimSpace(w.Word)
		if w.Word != "" {
			kept = append(kept, w)
		}
	}
	for i, w := range kept {
		current = append(current, w)
		span := w.End - current[0].Start
		if span >= MaxSegmentSeconds || len(current) >= MaxSegmentWords || i == len(kept)-1 {
			flush()
		}
	}
	return cues
}

// Synthesize renders words as a WebVTT document tagged with language. Empty
// input yields the header-only document "WEBVTT\n\n".
func Synthesize(words []WordTimestamp, language string) string {
	cues := Segment(words)
	if len(cues) == 0 {
		return "WEBVTT\n\n"
	}
	return subtitles.FormatVTT(cues, language)
}
