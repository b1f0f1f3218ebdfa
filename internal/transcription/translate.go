package transcription

import (
	"context"
	"strings"
)

// TranslateFunc translates one line of cue text from source to target.
type TranslateFunc func(ctx context.Context, text, target, source string) (string, error)

// Stats counts how TranslateDocument treated cue text lines.
type Stats struct {
	Translated int `json:"translated"`
	Kept       int `json:"kept"`
}

// TranslateDocument translates a WebVTT document into target. When source
// equals target only the Language header is rewritten. Otherwise the
// header block, blank lines, cue numbers and timing lines pass through and
// every other line is translated on its own; a failed or empty translation
// keeps the original line.
func TranslateDocument(ctx context.Context, vtt, target, source string, fn TranslateFunc) string {
	out, _ := TranslateDocumentStats(ctx, vtt, target, source, fn)
	return out
}

// TranslateDocumentStats is TranslateDocument that also reports per-line
// outcomes.
func TranslateDocumentStats(ctx context.Context, vtt, target, source string, fn TranslateFunc) (string, Stats) {
	var stats Stats
	lines := strings.Split(vtt, "\n")
	same := strings.EqualFold(strings.TrimSpace(source), strings.TrimSpace(target))
	inHeader := strings.HasPrefix(strings.TrimSpace(strings.TrimPrefix(vtt, "\ufeff")), "WEBVTT")
	for i, raw := range lines {
		line, cr := strings.CutSuffix(raw, "\r")
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			inHeader = false
			continue
		case inHeader:
			if strings.HasPrefix(trimmed, "Language:") {
				lines[i] = "Language: " + target + crSuffix(cr)
			}
			continue
		case same, isCueNumber(trimmed), strings.Contains(trimmed, "-->"):
			continue
		}
		if fn == nil {
			stats.Kept++
			continue
		}
		translated, err := fn(ctx, trimmed, target, source)
		translated = strings.TrimSpace(translated)
		if err != nil || translated == "" {
			stats.Kept++
			continue
		}
		stats.Translated++
		lines[i] = translated + crSuffix(cr)
	}
	return strings.Join(lines, "\n"), stats
}

func isCueNumber(line string) bool {
	for _, r := range line {
		if r < '0' || r > '9' {
			return false
		}
	}
	return line != ""
}

func crSuffix(had bool) string {
	if had {
		return "\r"
	}
	return ""
}
