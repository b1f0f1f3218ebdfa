// Package logging assembles structured slog loggers and formatting helpers used
// across captionsync.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so resolver, transcription, and
// playback code can tag log lines with video IDs, languages, and correlation
// IDs. The package also provides a no-op logger for tests and wiring code that
// cannot fail.
package logging
