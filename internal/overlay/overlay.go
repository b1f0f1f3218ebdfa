// Package overlay keeps the active caption cue in step with playback.
//
// An Overlay feeds engine time into a tracker on every timeupdate event and,
// while playing, on a frame ticker so captions do not lag between the
// engine's coarse time updates. Resolved caption snapshots replace the
// tracker's tracks wholesale.
package overlay

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"captionsync/internal/captions"
	"captionsync/internal/logging"
	"captionsync/internal/player"
	"captionsync/internal/tracker"
)

// DefaultFrameInterval approximates a 60Hz render loop.
const DefaultFrameInterval = 16 * time.Millisecond

// Options configures an Overlay.
type Options struct {
	FrameInterval time.Duration
	Logger        *slog.Logger
}

// Overlay binds an engine, a caption session and a tracker.
type Overlay struct {
	engine   player.Engine
	session  *captions.Session
	tracker  *tracker.Tracker
	interval time.Duration
	logger   *slog.Logger

	mu         sync.Mutex
	disposers  []func()
	stopFrames context.CancelFunc
	frames     sync.WaitGroup
	started    bool
	closed     bool
}

// New creates an Overlay. tr should be the tracker the engine was built
// with so caption selection and status agree with what is rendered.
func New(engine player.Engine, session *captions.Session, tr *tracker.Tracker, opts Options) *Overlay {
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = DefaultFrameInterval
	}
	return &Overlay{
		engine:   engine,
		session:  session,
		tracker:  tr,
		interval: opts.FrameInterval,
		logger:   logging.NewComponentLogger(opts.Logger, "overlay"),
	}
}

// Start wires the subscriptions and applies the current caption snapshot.
func (o *Overlay) Start() {
	o.mu.Lock()
	if o.started || o.closed {
		o.mu.Unlock()
		return
	}
	o.started = true
	o.disposers = append(o.disposers,
		o.engine.Subscribe(player.EventTimeUpdate, func(ev player.Event) { o.tracker.Update(ev.Time) }),
		o.engine.Subscribe(player.EventPlay, func(player.Event) { o.startFrames() }),
		o.engine.Subscribe(player.EventPause, func(player.Event) { o.stopFrameLoop() }),
		o.engine.Subscribe(player.EventEnded, func(player.Event) { o.stopFrameLoop() }),
		o.engine.Subscribe(player.EventError, func(player.Event) { o.stopFrameLoop() }),
		o.session.Subscribe(o.apply),
	)
	o.mu.Unlock()

	o.apply(o.session.Current())
	if !o.engine.Paused() {
		o.startFrames()
	}
}

// Load resolves captions for videoID through the session. The published
// snapshot reaches the tracker through the session subscription.
func (o *Overlay) Load(ctx context.Context, videoID string) (captions.Snapshot, error) {
	return o.session.Load(ctx, videoID)
}

// Subscribe forwards active-cue changes to fn until the disposer is called.
func (o *Overlay) Subscribe(fn func(tracker.Change)) func() {
	return o.tracker.Subscribe(fn)
}

// Languages lists the caption languages currently available.
func (o *Overlay) Languages() []string {
	return o.tracker.Languages()
}

func (o *Overlay) apply(snap captions.Snapshot) {
	o.tracker.SetTracks(snap.Result.Tracks)
	o.logger.Debug("caption tracks applied",
		logging.VideoID(snap.VideoID),
		logging.Int("languages", len(snap.Result.Languages())),
	)
}

func (o *Overlay) startFrames() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed || o.stopFrames != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	o.stopFrames = cancel
	o.frames.Add(1)
	go o.frameLoop(ctx)
}

func (o *Overlay) frameLoop(ctx context.Context) {
	defer o.frames.Done()
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.tracker.Update(o.engine.CurrentTime())
		}
	}
}

func (o *Overlay) stopFrameLoop() {
	o.mu.Lock()
	cancel := o.stopFrames
	o.stopFrames = nil
	o.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Running reports whether the frame loop is active.
func (o *Overlay) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stopFrames != nil
}

// Close stops the frame loop, releases subscriptions and tears down the
// engine and caption session handed to New.
func (o *Overlay) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	disposers := o.disposers
	o.disposers = nil
	cancel := o.stopFrames
	o.stopFrames = nil
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	for _, dispose := range disposers {
		dispose()
	}
	o.frames.Wait()
	o.engine.Close()
	o.session.Close()
}
