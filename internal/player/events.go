package player

import (
	"slices"
	"sync"
)

// EventType names an engine event.
type EventType string

const (
	EventReady          EventType = "ready"
	EventPlay           EventType = "play"
	EventPause          EventType = "pause"
	EventEnded          EventType = "ended"
	EventError          EventType = "error"
	EventTimeUpdate     EventType = "timeupdate"
	EventDurationChange EventType = "durationchange"
)

// Event carries the payload for one engine event. Time is set for
// timeupdate, Duration for durationchange and Err for error.
type Event struct {
	Type     EventType
	Time     float64
	Duration float64
	Err      error
}

// Handler receives engine events.
type Handler func(Event)

type subscription struct {
	id uint64
	fn Handler
}

// bus fans events out to typed subscribers. Handlers run on the emitting
// goroutine in subscription order.
type bus struct {
	mu     sync.Mutex
	subs   map[EventType][]subscription
	nextID uint64
	closed bool
}

func newBus() *bus {
	return &bus{subs: make(map[EventType][]subscription)}
}

func (b *bus) subscribe(event EventType, fn Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || fn == nil {
		return func() {}
	}
	b.nextID++
	id := b.nextID
	b.subs[event] = append(b.subs[event], subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			b.subs[event] = slices.DeleteFunc(b.subs[event], func(s subscription) bool { return s.id == id })
		})
	}
}

func (b *bus) emit(ev Event) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	subs := slices.Clone(b.subs[ev.Type])
	b.mu.Unlock()
	for _, s := range subs {
		s.fn(ev)
	}
}

func (b *bus) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, subs := range b.subs {
		n += len(subs)
	}
	return n
}

func (b *bus) close() {
	b.mu.Lock()
	b.closed = true
	b.subs = make(map[EventType][]subscription)
	b.mu.Unlock()
}
