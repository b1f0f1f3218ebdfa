package subtitles

import (
	"strings"
)

// Format identifies a caption document syntax.
type Format string

const (
	FormatWebVTT Format = "vtt"
	FormatSubRip Format = "srt"
)

// DetectFormat picks SRT when the first non-blank line is purely numeric or
// the document lacks a WEBVTT token, and WebVTT otherwise.
func DetectFormat(content string) Format {
	for _, line := range splitLines(content) {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if isDigits(trimmed) {
			return FormatSubRip
		}
		break
	}
	if !strings.Contains(content, "WEBVTT") {
		return FormatSubRip
	}
	return FormatWebVTT
}

// Parse converts a WebVTT or SRT document into cues in document order.
func Parse(content string) []Cue {
	if DetectFormat(content) == FormatSubRip {
		return ParseSRT(content)
	}
	return ParseVTT(content)
}

// ParseVTT parses WebVTT. The header block, NOTE, STYLE and REGION blocks are
// skipped. Outside a cue, a line directly followed by a timing line is the
// next cue's identifier; inside a cue every non-timing line is text and a
// timing line starts the next cue even without a blank separator.
func ParseVTT(content string) []Cue {
	lines := splitLines(content)
	var (
		out     []Cue
		current *Cue
		text    []string
		pending string
		skip    bool
	)
	flush := func() {
		if current != nil {
			current.Text = strings.Join(text, " ")
			out = appendCue(out, *current)
		}
		current, text = nil, nil
	}

	start := 0
	for start < len(lines) && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	if start < len(lines) && strings.HasPrefix(strings.TrimSpace(lines[start]), "WEBVTT") {
		start++
		// Header metadata runs to the first blank line or the first timing line.
		for start < len(lines) {
			line := strings.TrimSpace(lines[start])
			if line == "" || isTimingLine(line) {
				break
			}
			start++
		}
	}

	for i := start; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			flush()
			skip = false
			continue
		}
		if skip {
			continue
		}
		if s, e, settings, ok := parseTimingLine(line); ok {
			flush()
			current = &Cue{Start: s, End: e, Identifier: pending, Styles: settings}
			pending = ""
			continue
		}
		if current == nil {
			if isBlockKeyword(line) {
				skip = true
				continue
			}
			if i+1 < len(lines) && isTimingLine(strings.TrimSpace(lines[i+1])) {
				pending = line
			}
			// Anything else outside a cue is ignored.
			continue
		}
		text = append(text, line)
	}
	flush()
	return out
}

// ParseSRT parses SubRip. A purely numeric line opens a block whose next line
// must be a timing line; otherwise the block is skipped. Blocks that start
// directly with a timing line are accepted too.
func ParseSRT(content string) []Cue {
	lines := splitLines(content)
	var out []Cue
	i := 0
	skipBlock := func() {
		for i < len(lines) && strings.TrimSpace(lines[i]) != "" {
			i++
		}
	}
	for i < len(lines) {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			i++
			continue
		}
		var identifier string
		if isDigits(line) {
			identifier = line
			i++
			if i >= len(lines) {
				break
			}
			line = strings.TrimSpace(lines[i])
		}
		s, e, _, ok := parseTimingLine(line)
		if !ok {
			skipBlock()
			continue
		}
		i++
		var text []string
		for i < len(lines) {
			t := strings.TrimSpace(lines[i])
			if t == "" {
				break
			}
			text = append(text, t)
			i++
		}
		out = appendCue(out, Cue{Start: s, End: e, Text: strings.Join(text, " "), Identifier: identifier})
	}
	return out
}

func isBlockKeyword(line string) bool {
	for _, kw := range []string{"NOTE", "STYLE", "REGION"} {
		if line == kw || strings.HasPrefix(line, kw+" ") || strings.HasPrefix(line, kw+"\t") {
			return true
		}
	}
	return false
}

func splitLines(content string) []string {
	content = strings.TrimPrefix(content, "\ufeff")
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	return strings.Split(content, "\n")
}
