// Package captions discovers caption tracks for a video and turns them into
// parsed cue lists.
//
// Resolution runs in two passes. The metadata pass reads caption entries from
// the Stream API and parses inline text or the listed URL. Languages still
// unresolved fall through to the storage pass, which probes the raw caption
// folder with a fixed list of file names and accepts the first body that
// looks like a caption document. Each requested language resolves in its own
// goroutine with its own timeouts, so a slow or failing language never holds
// up the others.
//
// Session layers cancellation and snapshot publication on top of Resolver for
// one player: loading a new video cancels the previous resolution and stale
// results are dropped.
package captions
