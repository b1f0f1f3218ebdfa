// Package tracker computes which caption cue is active for a playback time
// and signals subscribers when that cue changes.
package tracker

import (
	"math"
	"slices"
	"sync"

	"captionsync/internal/language"
	"captionsync/internal/subtitles"
)

// DefaultTolerance absorbs jitter at cue boundaries, in seconds.
const DefaultTolerance = 0.1

// Match returns the cue active at t. A cue matches when
// start-tol <= t <= end+tol; among several matches the one whose midpoint
// is closest to t wins, earlier cues winning exact ties. Input order is not
// assumed.
func Match(cues []subtitles.Cue, t, tolerance float64) (subtitles.Cue, bool) {
	var (
		best     subtitles.Cue
		found    bool
		bestDist float64
	)
	for _, c := range cues {
		if t < c.Start-tolerance || t > c.End+tolerance {
			continue
		}
		dist := math.Abs(c.Midpoint() - t)
		if !found || dist < bestDist {
			best, bestDist, found = c, dist, true
		}
	}
	return best, found
}

// Change is delivered to subscribers when the active cue changes. Active is
// false when the overlay should be hidden. Seq increases with every change
// a Tracker computes.
type Change struct {
	Seq      uint64        `json:"seq"`
	Language string        `json:"language"`
	Cue      subtitles.Cue `json:"cue"`
	Active   bool          `json:"active"`
	Time     float64       `json:"time"`
}

// Tracker holds the current tracks, the selected language and the most
// recent time sample. It is safe for concurrent use. Subscribers see changes
// in Seq order; a change overtaken by a newer one before delivery is dropped.
// Subscribers must not call back into the Tracker.
type Tracker struct {
	mu        sync.Mutex
	tolerance float64
	tracks    subtitles.Tracks
	lang      string
	now       float64
	seq       uint64
	active    subtitles.Cue
	hasActive bool
	changes   uint64

	// deliverMu orders delivery; delivered is the last Seq handed out.
	deliverMu sync.Mutex
	delivered uint64

	subsMu sync.Mutex
	subs   map[uint64]func(Change)
	nextID uint64
}

// New returns a Tracker. A non-positive tolerance selects DefaultTolerance.
func New(tolerance float64) *Tracker {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Tracker{tolerance: tolerance, subs: make(map[uint64]func(Change))}
}

// SetTracks swaps the track map wholesale and re-evaluates the active cue.
// The map must not be mutated afterwards.
func (t *Tracker) SetTracks(tracks subtitles.Tracks) bool {
	t.mu.Lock()
	t.tracks = tracks
	change, changed := t.evaluateLocked()
	t.mu.Unlock()
	return t.emit(change, changed)
}

// SetLanguage selects the track to match against and re-runs matching with
// the last sampled time.
func (t *Tracker) SetLanguage(lang string) bool {
	t.mu.Lock()
	t.lang = language.Normalize(lang)
	change, changed := t.evaluateLocked()
	t.mu.Unlock()
	return t.emit(change, changed)
}

// Update records a new time sample taken after every previous one.
func (t *Tracker) Update(seconds float64) bool {
	t.mu.Lock()
	t.seq++
	t.now = seconds
	change, changed := t.evaluateLocked()
	t.mu.Unlock()
	return t.emit(change, changed)
}

// UpdateAt records the sample numbered seq. Samples not newer than the last
// accepted one are ignored so a slow path never overwrites a later time.
func (t *Tracker) UpdateAt(seq uint64, seconds float64) bool {
	t.mu.Lock()
	if seq <= t.seq {
		t.mu.Unlock()
		return false
	}
	t.seq = seq
	t.now = seconds
	change, changed := t.evaluateLocked()
	t.mu.Unlock()
	return t.emit(change, changed)
}

// Active returns the active cue, if any.
func (t *Tracker) Active() (subtitles.Cue, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active, t.hasActive
}

// Language returns the selected language.
func (t *Tracker) Language() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lang
}

// Time returns the last accepted sample.
func (t *Tracker) Time() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.now
}

// Languages lists languages that currently have cues.
func (t *Tracker) Languages() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tracks.Languages()
}

// Subscribe registers fn for active-cue changes and returns its disposer.
func (t *Tracker) Subscribe(fn func(Change)) func() {
	t.subsMu.Lock()
	id := t.nextID
	t.nextID++
	t.subs[id] = fn
	t.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.subsMu.Lock()
			delete(t.subs, id)
			t.subsMu.Unlock()
		})
	}
}

func (t *Tracker) evaluateLocked() (Change, bool) {
	cue, ok := Match(t.tracks[t.lang], t.now, t.tolerance)
	if ok == t.hasActive && (!ok || cue.Same(t.active)) {
		return Change{}, false
	}
	t.active, t.hasActive = cue, ok
	t.changes++
	return Change{Seq: t.changes, Language: t.lang, Cue: cue, Active: ok, Time: t.now}, true
}

func (t *Tracker) emit(change Change, changed bool) bool {
	if !changed {
		return false
	}
	t.deliverMu.Lock()
	defer t.deliverMu.Unlock()
	if change.Seq <= t.delivered {
		return true
	}
	t.delivered = change.Seq

	t.subsMu.Lock()
	ids := make([]uint64, 0, len(t.subs))
	for id := range t.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(Change), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, t.subs[id])
	}
	t.subsMu.Unlock()
	for _, fn := range fns {
		fn(change)
	}
	return true
}
