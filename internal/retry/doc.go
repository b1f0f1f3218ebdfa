// Package retry provides the bounded retry policy shared by caption probes,
// vendor REST clients, and the playback adapters.
//
// Policies are plain values. Do runs an operation under a policy through
// cenkalti/backoff so attempt accounting, jitter, and context cancellation
// behave the same everywhere.
package retry
