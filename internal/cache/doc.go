// Package cache persists small documents with timestamps in SQLite.
//
// The resolver keeps fetched caption documents here so repeated requests for
// the same video skip vendor round trips, and the refresh job records when
// each signed HLS URL was last minted. Expiry is decided by the caller's
// maxAge against an injected clock, never by a background sweeper.
package cache
