package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"captionsync/internal/language"
	"captionsync/internal/logging"
	"captionsync/internal/metrics"
	"captionsync/internal/retry"
)

// VendorEvent is an event reported by the embedded player.
type VendorEvent struct {
	Name     string
	Seconds  float64
	Duration float64
	// Fatal is set on error events the vendor cannot recover from.
	Fatal   bool
	Message string
}

// PlayerControl is the command surface exposed once the RPC bridge attaches.
type PlayerControl interface {
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	SetCurrentTime(ctx context.Context, seconds float64) error
	SetVolume(ctx context.Context, volume float64) error
	Mute(ctx context.Context) error
	Unmute(ctx context.Context) error
	EnableTextTrack(ctx context.Context, language string) error
	DisableTextTrack(ctx context.Context) error
	On(event string, fn func(VendorEvent)) (off func())
}

// EmbedRPC loads the vendor iframe and its control bridge.
type EmbedRPC interface {
	LoadFrame(ctx context.Context, embedURL string) error
	LoadLibrary(ctx context.Context) error
	// Attach may fail while the iframe content is still loading.
	Attach(ctx context.Context) (PlayerControl, error)
}

// IframeOptions configures an IframeEngine.
type IframeOptions struct {
	EmbedURL string
	// Languages are the caption languages the vendor player offers.
	Languages []string
	// Attach bounds attach attempts. Defaults to 5 attempts.
	Attach retry.Policy
	// PlayWait bounds how long Play waits for the bridge. Defaults to 5s.
	PlayWait time.Duration
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
}

type iframeState int

const (
	iframeIdle iframeState = iota
	iframeAttaching
	iframeAttached
	iframeUnavailable
	iframeFailed
	iframeClosed
)

// IframeEngine controls a vendor player embedded in an iframe.
type IframeEngine struct {
	rpc     EmbedRPC
	opts    IframeOptions
	logger  *slog.Logger
	metrics *metrics.Metrics
	events  *bus

	ctx    context.Context
	cancel context.CancelFunc

	settled     chan struct{}
	settledOnce sync.Once

	mu         sync.Mutex
	state      iframeState
	control    PlayerControl
	offs       []func()
	session    Session
	captionsOn bool
	// languages grows when a caption language outside opts.Languages is
	// selected, so each language keeps its row in CaptionStatus.
	languages []string
}

// NewIframe creates an engine for the vendor embed. Call Start to load it.
func NewIframe(rpc EmbedRPC, opts IframeOptions) *IframeEngine {
	if opts.Attach.Attempts <= 0 {
		opts.Attach = retry.Exponential(5, 200*time.Millisecond, time.Second)
	}
	if opts.PlayWait <= 0 {
		opts.PlayWait = 5 * time.Second
	}
	opts.Languages = language.NormalizeList(opts.Languages)
	session := newSession()
	ctx, cancel := context.WithCancel(context.Background())
	return &IframeEngine{
		rpc:  rpc,
		opts: opts,
		logger: logging.NewComponentLogger(opts.Logger, "player-iframe").With(
			logging.SessionID(session.ID),
		),
		metrics: opts.Metrics,
		events:  newBus(),
		ctx:     ctx,
		cancel:  cancel,
		settled:   make(chan struct{}),
		session:   session,
		languages: slices.Clone(opts.Languages),
	}
}

// Start loads the iframe and attaches the control bridge in the background.
// Only an iframe load failure is returned; a bridge that never attaches
// leaves the engine usable through the vendor UI.
func (e *IframeEngine) Start(ctx context.Context) error {
	e.mu.Lock()
	switch e.state {
	case iframeClosed:
		e.mu.Unlock()
		return ErrClosed
	case iframeIdle:
	default:
		e.mu.Unlock()
		return errors.New("iframe engine already started")
	}
	e.state = iframeAttaching
	e.mu.Unlock()

	if err := e.rpc.LoadFrame(ctx, e.opts.EmbedURL); err != nil {
		e.fail(fmt.Errorf("load iframe: %w", err))
		return fmt.Errorf("%w: load iframe: %w", ErrFatal, err)
	}
	go e.attach()
	return nil
}

func (e *IframeEngine) attach() {
	if err := e.rpc.LoadLibrary(e.ctx); err != nil {
		e.giveUp(fmt.Errorf("load control library: %w", err))
		return
	}
	control, err := retry.Do(e.ctx, e.opts.Attach, func(ctx context.Context) (PlayerControl, error) {
		return e.rpc.Attach(ctx)
	}, func(attempt int, err error, next time.Duration) {
		e.logger.Debug("player attach retry", logging.Int("attempt", attempt), logging.Duration("next", next), logging.Error(err))
	})
	if err != nil {
		e.giveUp(err)
		return
	}
	e.bind(control)
}

func (e *IframeEngine) bind(control PlayerControl) {
	e.mu.Lock()
	if e.state != iframeAttaching {
		e.mu.Unlock()
		return
	}
	e.control = control
	e.state = iframeAttached
	e.session.Ready = true
	pending, on := e.session.ActiveCaptionLanguage, e.captionsOn
	e.offs = append(e.offs,
		control.On("play", e.vendorEvent),
		control.On("pause", e.vendorEvent),
		control.On("ended", e.vendorEvent),
		control.On("timeupdate", e.vendorEvent),
		control.On("error", e.vendorEvent),
	)
	e.mu.Unlock()
	e.settle()

	if on && pending != "" {
		if err := control.EnableTextTrack(e.ctx, pending); err != nil {
			e.logger.Warn("apply caption selection failed", logging.Language(pending), logging.Error(err))
		}
	}
	e.logger.Info("player control attached")
	e.events.emit(Event{Type: EventReady})
}

func (e *IframeEngine) giveUp(err error) {
	e.mu.Lock()
	if e.state != iframeAttaching {
		e.mu.Unlock()
		e.settle()
		return
	}
	e.state = iframeUnavailable
	e.mu.Unlock()
	e.settle()

	e.metrics.PlayerError("iframe", "control_unavailable")
	logging.WarnWithContext(e.logger, "player control unavailable", "player_control_unavailable",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "the embed may block the control bridge"),
		logging.String(logging.FieldImpact, "playback continues through the vendor controls only"),
	)
}

func (e *IframeEngine) vendorEvent(ev VendorEvent) {
	switch ev.Name {
	case "play":
		e.update(func(s *Session) { s.Paused = false })
		e.events.emit(Event{Type: EventPlay})
	case "pause":
		e.update(func(s *Session) { s.Paused = true })
		e.events.emit(Event{Type: EventPause})
	case "ended":
		e.update(func(s *Session) { s.Paused = true })
		e.events.emit(Event{Type: EventEnded})
	case "timeupdate":
		var durationChanged bool
		e.update(func(s *Session) {
			s.CurrentTime = ev.Seconds
			if ev.Duration > 0 && ev.Duration != s.Duration {
				s.Duration = ev.Duration
				durationChanged = true
			}
		})
		if durationChanged {
			e.events.emit(Event{Type: EventDurationChange, Duration: ev.Duration})
		}
		e.events.emit(Event{Type: EventTimeUpdate, Time: ev.Seconds})
	case "error":
		if ev.Fatal {
			e.fail(errors.New(ev.Message))
			return
		}
		e.metrics.PlayerError("iframe", "transient")
		e.logger.Info("player reported a recoverable error", logging.String("detail", ev.Message))
	}
}

func (e *IframeEngine) fail(cause error) {
	e.mu.Lock()
	if e.state == iframeFailed || e.state == iframeClosed {
		e.mu.Unlock()
		return
	}
	e.state = iframeFailed
	e.session.Ready = false
	offs := e.offs
	e.offs = nil
	e.mu.Unlock()

	e.cancel()
	for _, off := range offs {
		off()
	}
	e.settle()
	e.metrics.PlayerError("iframe", "fatal")
	logging.ErrorWithContext(e.logger, "playback failed", "player_fatal",
		logging.Error(cause),
		logging.String(logging.FieldErrorHint, "check the embed url and library id"),
	)
	e.events.emit(Event{Type: EventError, Err: fmt.Errorf("%w: %w", ErrFatal, cause)})
}

func (e *IframeEngine) settle() {
	e.settledOnce.Do(func() { close(e.settled) })
}

func (e *IframeEngine) update(fn func(*Session)) {
	e.mu.Lock()
	fn(&e.session)
	e.mu.Unlock()
}

// controlNow returns the attached control without waiting.
func (e *IframeEngine) controlNow() (PlayerControl, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.state {
	case iframeAttached:
		return e.control, nil
	case iframeUnavailable:
		return nil, ErrControlUnavailable
	case iframeFailed:
		return nil, ErrFatal
	case iframeClosed:
		return nil, ErrClosed
	default:
		return nil, ErrNotReady
	}
}

// Play waits up to PlayWait for the control bridge before issuing play.
func (e *IframeEngine) Play(ctx context.Context) error {
	if _, err := e.controlNow(); !errors.Is(err, ErrNotReady) {
		return e.withControl(func(c PlayerControl) error { return c.Play(ctx) })
	}
	timer := time.NewTimer(e.opts.PlayWait)
	defer timer.Stop()
	select {
	case <-e.settled:
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("%w: control bridge did not attach within %s", ErrNotReady, e.opts.PlayWait)
	}
	return e.withControl(func(c PlayerControl) error { return c.Play(ctx) })
}

func (e *IframeEngine) withControl(fn func(PlayerControl) error) error {
	c, err := e.controlNow()
	if err != nil {
		return err
	}
	return fn(c)
}

func (e *IframeEngine) Pause(ctx context.Context) error {
	return e.withControl(func(c PlayerControl) error { return c.Pause(ctx) })
}

func (e *IframeEngine) Seek(ctx context.Context, seconds float64) error {
	seconds = max(seconds, 0)
	return e.withControl(func(c PlayerControl) error {
		if err := c.SetCurrentTime(ctx, seconds); err != nil {
			return err
		}
		e.update(func(s *Session) { s.CurrentTime = seconds })
		return nil
	})
}

func (e *IframeEngine) SetVolume(ctx context.Context, volume float64) error {
	return e.withControl(func(c PlayerControl) error { return c.SetVolume(ctx, clampVolume(volume)) })
}

func (e *IframeEngine) Mute(ctx context.Context) error {
	return e.withControl(func(c PlayerControl) error { return c.Mute(ctx) })
}

func (e *IframeEngine) Unmute(ctx context.Context) error {
	return e.withControl(func(c PlayerControl) error { return c.Unmute(ctx) })
}

// SetAudioTrack is a no-op: the embed bridge has no audio track commands.
func (e *IframeEngine) SetAudioTrack(_ context.Context, name string) error {
	e.logger.Debug("audio track selection unsupported by embed", logging.String("track", name))
	return nil
}

// SetCaptionTrack asks the vendor player to show lang. A selection made
// before the bridge attaches is applied once it does.
func (e *IframeEngine) SetCaptionTrack(ctx context.Context, lang string) error {
	lang = strings.ToLower(strings.TrimSpace(lang))
	off := captionsOff(lang)
	code := ""
	if !off {
		if code = language.Normalize(lang); code == "" {
			return fmt.Errorf("unknown caption language %q", lang)
		}
	}

	e.mu.Lock()
	if e.state == iframeIdle || e.state == iframeAttaching {
		e.selectCaptionLocked(code, off)
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	c, err := e.controlNow()
	switch {
	case err != nil:
		return err
	case off:
		err = c.DisableTextTrack(ctx)
	default:
		err = c.EnableTextTrack(ctx, code)
	}
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.selectCaptionLocked(code, off)
	e.mu.Unlock()
	return nil
}

func (e *IframeEngine) selectCaptionLocked(code string, off bool) {
	e.captionsOn = !off
	e.session.ActiveCaptionLanguage = code
	if code != "" && !slices.Contains(e.languages, code) {
		e.languages = append(e.languages, code)
	}
}

func (e *IframeEngine) CurrentTime() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.CurrentTime
}

func (e *IframeEngine) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Duration
}

func (e *IframeEngine) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Paused
}

// AudioTracks is always empty for embedded players.
func (e *IframeEngine) AudioTracks() []AudioTrack { return nil }

// CaptionStatus reports enabled state and selection only. Rendered cues are
// invisible to the bridge, so Cue is always CueUnknown.
func (e *IframeEngine) CaptionStatus() []CaptionTrackStatus {
	e.mu.Lock()
	on, selected := e.captionsOn, e.session.ActiveCaptionLanguage
	langs := slices.Clone(e.languages)
	e.mu.Unlock()

	out := make([]CaptionTrackStatus, 0, len(langs))
	for _, lang := range langs {
		mode := ModeDisabled
		if on && lang == selected {
			mode = ModeShowing
		}
		out = append(out, CaptionTrackStatus{Language: lang, Mode: mode, Cue: CueUnknown})
	}
	return out
}

// CurrentCaptionText is always empty; the vendor renders captions itself.
func (e *IframeEngine) CurrentCaptionText() string { return "" }

func (e *IframeEngine) Session() Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session
}

func (e *IframeEngine) Subscribe(event EventType, fn Handler) func() {
	return e.events.subscribe(event, fn)
}

// Close stops attach retries, releases vendor and engine subscriptions and
// wakes any Play waiting for the bridge.
func (e *IframeEngine) Close() {
	e.mu.Lock()
	if e.state == iframeClosed {
		e.mu.Unlock()
		return
	}
	e.state = iframeClosed
	e.session.Ready = false
	offs := e.offs
	e.offs = nil
	e.mu.Unlock()

	e.cancel()
	for _, off := range offs {
		off()
	}
	e.settle()
	e.events.close()
}
