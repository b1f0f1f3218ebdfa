package player

import "errors"

var (
	// ErrFatal marks a playback failure the engine cannot recover from.
	ErrFatal = errors.New("playback failed")
	// ErrControlUnavailable means the iframe player never exposed its
	// control API. Playback may still work through the vendor UI.
	ErrControlUnavailable = errors.New("player control unavailable")
	// ErrNotReady is returned for commands issued before the engine is ready.
	ErrNotReady = errors.New("player not ready")
	// ErrClosed is returned for commands issued after Close.
	ErrClosed = errors.New("player closed")
)
