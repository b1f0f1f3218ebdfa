package captions

import (
	"regexp"
	"strings"
)

var (
	timestampPattern = regexp.MustCompile(`\d{1,2}:\d{2}(?::\d{2})?[.,]\d{1,3}\s*-->`)
	// A 404 banner only counts at the start of a line (optionally behind
	// markup or a status line) so cue timings like 00:04:04.404 never match.
	notFoundPattern = regexp.MustCompile(`(?im)^\s*(?:<[^>]*>\s*)*(?:HTTP/\d(?:\.\d)?\s+)?404\b[^\n]*not\s*found`)
)

// LooksLikeCaptions reports whether body is plausibly a WebVTT or SRT
// document rather than an error page served with a 2xx status.
func LooksLikeCaptions(body string) bool {
	trimmed := strings.TrimSpace(strings.TrimPrefix(body, "\ufeff"))
	if trimmed == "" {
		return false
	}
	lower := strings.ToLower(trimmed)
	if strings.Contains(lower, "<html") || strings.Contains(lower, "<!doctype") {
		return false
	}
	if notFoundPattern.MatchString(trimmed) {
		return false
	}
	if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{") {
		return false
	}
	if strings.Contains(trimmed, "File Not Found") || strings.Contains(trimmed, "ObjectNotFound") {
		return false
	}
	return strings.Contains(trimmed, "WEBVTT") || timestampPattern.MatchString(trimmed)
}
