// Package subtitles parses and serializes the caption documents captionsync
// moves around: WebVTT from vendors and the synthesizer, and SRT from hand
// uploads in object storage.
//
// Parse auto-detects the format and never fails; malformed blocks are
// dropped and an empty document yields an empty cue list. Cue text is
// normalized to plain text (tags stripped, whitespace collapsed) and
// degenerate punctuation-only cues are folded into their predecessor.
package subtitles
