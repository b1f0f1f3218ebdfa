// Package player adapts two playback back ends to one Engine interface.
//
// NativeEngine drives an HLS media pipeline directly and derives caption
// state from the active-cue tracker. IframeEngine controls a vendor player
// embedded in an iframe through an asynchronous RPC bridge and only knows
// coarse caption state. The asymmetry in CaptionStatus is deliberate.
//
// Engines publish the events ready, play, pause, ended, error, timeupdate and
// durationchange. Only unrecoverable failures produce an error event; network
// and media hiccups are retried under a bounded retry.Policy and logged.
package player
