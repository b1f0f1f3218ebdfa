package subtitles

import "strings"

// FileNames lists the storage file names tried for lang, in probe order.
func FileNames(lang string) []string {
	lower := strings.ToLower(strings.TrimSpace(lang))
	upper := strings.ToUpper(lower)
	return []string{
		upper + ".vtt",
		lower + ".vtt",
		upper + ".srt",
		lower + ".srt",
	}
}

// FileName is the canonical name used when publishing a WebVTT document.
func FileName(lang string) string {
	return strings.ToUpper(strings.TrimSpace(lang)) + ".vtt"
}
