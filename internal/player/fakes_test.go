package player

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

type fakeMedia struct {
	mu      sync.Mutex
	time    float64
	dur     float64
	paused  bool
	seeks   []float64
	plays   int
	volume  float64
	muted   bool
	playErr error
}

func (m *fakeMedia) Play(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plays++
	m.paused = false
	return m.playErr
}

func (m *fakeMedia) Pause(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = true
	return nil
}

func (m *fakeMedia) Seek(_ context.Context, s float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seeks = append(m.seeks, s)
	m.time = s
	return nil
}

func (m *fakeMedia) SetVolume(_ context.Context, v float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volume = v
	return nil
}

func (m *fakeMedia) SetMuted(_ context.Context, muted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.muted = muted
	return nil
}

func (m *fakeMedia) CurrentTime() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.time
}

func (m *fakeMedia) Duration() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dur
}

func (m *fakeMedia) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

type fakePipeline struct {
	media      *fakeMedia
	tracks     []AudioTrack
	attachErr  error
	loadErr    error
	handler    func(PipelineEvent)
	loadedURL  string
	selected   atomic.Int32
	startLoads chan struct{}
	recovers   chan struct{}
	destroyed  atomic.Int32
}

func newFakePipeline() *fakePipeline {
	return &fakePipeline{
		media:      &fakeMedia{dur: 120, paused: true},
		startLoads: make(chan struct{}, 16),
		recovers:   make(chan struct{}, 16),
	}
}

func (p *fakePipeline) Attach(fn func(PipelineEvent)) error {
	p.handler = fn
	return p.attachErr
}

func (p *fakePipeline) LoadSource(_ context.Context, url string) error {
	p.loadedURL = url
	return p.loadErr
}

func (p *fakePipeline) StartLoad(context.Context) error {
	p.startLoads <- struct{}{}
	return nil
}

func (p *fakePipeline) RecoverMediaError(context.Context) error {
	p.recovers <- struct{}{}
	return nil
}

func (p *fakePipeline) AudioTracks() []AudioTrack { return p.tracks }

func (p *fakePipeline) SetAudioTrack(id int) error {
	p.selected.Store(int32(id))
	return nil
}

func (p *fakePipeline) Media() MediaElement { return p.media }

func (p *fakePipeline) Destroy() { p.destroyed.Add(1) }

func (p *fakePipeline) emit(ev PipelineEvent) { p.handler(ev) }

type fakeControl struct {
	mu       sync.Mutex
	handlers map[string]func(VendorEvent)
	plays    int
	tracks   []string
	disabled int
}

func newFakeControl() *fakeControl {
	return &fakeControl{handlers: map[string]func(VendorEvent){}}
}

func (c *fakeControl) Play(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.plays++
	return nil
}

func (c *fakeControl) Pause(context.Context) error                   { return nil }
func (c *fakeControl) SetCurrentTime(context.Context, float64) error { return nil }
func (c *fakeControl) SetVolume(context.Context, float64) error      { return nil }
func (c *fakeControl) Mute(context.Context) error                    { return nil }
func (c *fakeControl) Unmute(context.Context) error                  { return nil }

func (c *fakeControl) EnableTextTrack(_ context.Context, lang string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracks = append(c.tracks, lang)
	return nil
}

func (c *fakeControl) DisableTextTrack(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disabled++
	return nil
}

func (c *fakeControl) On(event string, fn func(VendorEvent)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[event] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.handlers, event)
	}
}

func (c *fakeControl) fire(ev VendorEvent) {
	c.mu.Lock()
	fn := c.handlers[ev.Name]
	c.mu.Unlock()
	if fn != nil {
		fn(ev)
	}
}

func (c *fakeControl) handlerCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.handlers)
}

func (c *fakeControl) playCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.plays
}

type fakeRPC struct {
	frameErr error
	libErr   error
	// failures is the number of attach attempts that fail before success.
	failures int32
	attempts atomic.Int32
	control  *fakeControl
}

func (r *fakeRPC) LoadFrame(context.Context, string) error { return r.frameErr }

func (r *fakeRPC) LoadLibrary(context.Context) error { return r.libErr }

func (r *fakeRPC) Attach(context.Context) (PlayerControl, error) {
	n := r.attempts.Add(1)
	if n <= r.failures {
		return nil, errors.New("player.js: iframe not ready")
	}
	return r.control, nil
}

// recorder collects engine events.
type recorder struct {
	mu     sync.Mutex
	events []Event
	ch     chan Event
}

func record(e Engine, types ...EventType) *recorder {
	r := &recorder{ch: make(chan Event, 64)}
	for _, typ := range types {
		e.Subscribe(typ, func(ev Event) {
			r.mu.Lock()
			r.events = append(r.events, ev)
			r.mu.Unlock()
			r.ch <- ev
		})
	}
	return r
}

func (r *recorder) count(typ EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}
