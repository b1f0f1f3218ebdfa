// Package transcription turns word-level timestamps into WebVTT documents
// and translates those documents line by line.
//
// Synthesize segments words greedily into cues. TranslateDocument keeps the
// timing skeleton intact and only sends cue text to the translator; a line
// that fails to translate keeps its original text. Pipeline chains the
// transcriber, synthesizer, translator and an optional storage publisher, and
// Watcher runs the synthesizer over transcription responses dropped into a
// directory.
package transcription
