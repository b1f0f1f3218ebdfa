package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"captionsync/internal/language"
	"captionsync/internal/logging"
	"captionsync/internal/metrics"
	"captionsync/internal/retry"
	"captionsync/internal/tracker"
)

type nativeState int

const (
	nativeIdle nativeState = iota
	nativeLoading
	nativeManifestParsed
	nativeReady
	nativeFailed
	nativeClosed
)

// NativeOptions configures a NativeEngine.
type NativeOptions struct {
	ManifestURL string
	// StartPosition is seeked to once the manifest is parsed.
	StartPosition float64
	// Tracker supplies caption state. A private tracker is created when nil.
	Tracker *tracker.Tracker
	// NetworkRetry bounds manifest reloads; Attempts counts the first load.
	NetworkRetry retry.Policy
	// MediaRecovery bounds decoder recoveries; Attempts counts the first run.
	MediaRecovery retry.Policy
	Logger        *slog.Logger
	Metrics       *metrics.Metrics
}

// NativeEngine plays an HLS stream through an HLSPipeline.
type NativeEngine struct {
	pipeline HLSPipeline
	opts     NativeOptions
	tracker  *tracker.Tracker
	logger   *slog.Logger
	metrics  *metrics.Metrics
	events   *bus

	ctx    context.Context
	cancel context.CancelFunc

	mu              sync.Mutex
	state           nativeState
	session         Session
	captionsOn      bool
	networkRetries  int
	mediaRecoveries int
}

// NewNative creates an engine for pipeline. Call Start to begin loading.
func NewNative(pipeline HLSPipeline, opts NativeOptions) *NativeEngine {
	if opts.Tracker == nil {
		opts.Tracker = tracker.New(0)
	}
	if opts.NetworkRetry.Attempts <= 0 {
		opts.NetworkRetry = retry.Exponential(4, 500*time.Millisecond, 4*time.Second)
	}
	if opts.MediaRecovery.Attempts <= 0 {
		opts.MediaRecovery = retry.Constant(3, 250*time.Millisecond)
	}
	session := newSession()
	ctx, cancel := context.WithCancel(context.Background())
	return &NativeEngine{
		pipeline: pipeline,
		opts:     opts,
		tracker:  opts.Tracker,
		logger: logging.NewComponentLogger(opts.Logger, "player-native").With(
			logging.SessionID(session.ID),
		),
		metrics: opts.Metrics,
		events:  newBus(),
		ctx:     ctx,
		cancel:  cancel,
		session: session,
	}
}

// Start attaches the pipeline and begins loading the manifest. The engine
// emits ready once the manifest is parsed and the start position applied.
func (e *NativeEngine) Start(ctx context.Context) error {
	e.mu.Lock()
	switch e.state {
	case nativeClosed:
		e.mu.Unlock()
		return ErrClosed
	case nativeIdle:
	default:
		e.mu.Unlock()
		return errors.New("native engine already started")
	}
	e.state = nativeLoading
	e.mu.Unlock()

	if strings.TrimSpace(e.opts.ManifestURL) == "" {
		err := errors.New("manifest url is required")
		e.fail(err)
		return fmt.Errorf("%w: %w", ErrFatal, err)
	}
	if err := e.pipeline.Attach(e.handle); err != nil {
		e.fail(fmt.Errorf("attach pipeline: %w", err))
		return fmt.Errorf("%w: attach pipeline: %w", ErrFatal, err)
	}
	e.logger.Info("loading manifest")
	if err := e.pipeline.LoadSource(ctx, e.opts.ManifestURL); err != nil {
		e.fail(fmt.Errorf("load manifest: %w", err))
		return fmt.Errorf("%w: load manifest: %w", ErrFatal, err)
	}
	return nil
}

func (e *NativeEngine) handle(ev PipelineEvent) {
	switch ev.Kind {
	case PipelineManifestParsed:
		e.manifestParsed()
	case PipelineFailed:
		if ev.Err != nil {
			e.handleError(ev.Err)
		}
	case PipelinePlaying:
		e.update(func(s *Session) { s.Paused = false })
		e.events.emit(Event{Type: EventPlay})
	case PipelinePaused:
		e.update(func(s *Session) { s.Paused = true })
		e.events.emit(Event{Type: EventPause})
	case PipelineEnded:
		e.update(func(s *Session) { s.Paused = true })
		e.events.emit(Event{Type: EventEnded})
	case PipelineTimeUpdate:
		e.update(func(s *Session) { s.CurrentTime = ev.Time })
		e.events.emit(Event{Type: EventTimeUpdate, Time: ev.Time})
	case PipelineDurationChange:
		e.update(func(s *Session) { s.Duration = ev.Duration })
		e.events.emit(Event{Type: EventDurationChange, Duration: ev.Duration})
	}
}

func (e *NativeEngine) manifestParsed() {
	e.mu.Lock()
	e.networkRetries = 0
	if e.state != nativeLoading {
		// A reload after a network error re-parses the manifest.
		e.mu.Unlock()
		return
	}
	e.state = nativeManifestParsed
	e.mu.Unlock()

	media := e.pipeline.Media()
	if start := e.opts.StartPosition; start > 0 {
		if err := media.Seek(e.ctx, start); err != nil {
			logging.WarnWithContext(e.logger, "restore position failed", "player_seek_failed",
				logging.Float64("position", start),
				logging.Error(err),
				logging.String(logging.FieldImpact, "playback starts from the beginning"),
			)
		}
	}

	e.mu.Lock()
	if e.state != nativeManifestParsed {
		e.mu.Unlock()
		return
	}
	e.state = nativeReady
	e.session.Ready = true
	e.session.CurrentTime = media.CurrentTime()
	e.session.Duration = media.Duration()
	duration := e.session.Duration
	e.mu.Unlock()

	e.logger.Info("player ready", logging.Float64("duration", duration))
	e.events.emit(Event{Type: EventReady})
	if duration > 0 {
		e.events.emit(Event{Type: EventDurationChange, Duration: duration})
	}
}

func (e *NativeEngine) handleError(perr *PipelineError) {
	if !perr.Fatal {
		e.metrics.PlayerError("native", "transient")
		e.logger.Debug("transient playback error", logging.String("tier", perr.Kind.String()), logging.String("detail", perr.Detail))
		return
	}
	switch perr.Kind {
	case ErrorNetwork:
		e.recover(perr, &e.networkRetries, e.opts.NetworkRetry, "reloading manifest", e.pipeline.StartLoad)
	case ErrorMedia:
		e.recover(perr, &e.mediaRecoveries, e.opts.MediaRecovery, "recovering media pipeline", e.pipeline.RecoverMediaError)
	default:
		e.fail(perr)
	}
}

func (e *NativeEngine) recover(perr *PipelineError, counter *int, policy retry.Policy, action string, run func(context.Context) error) {
	e.mu.Lock()
	if e.state == nativeFailed || e.state == nativeClosed {
		e.mu.Unlock()
		return
	}
	*counter++
	attempt := *counter
	e.mu.Unlock()

	if !policy.Allows(attempt) {
		e.fail(fmt.Errorf("%w after %d attempts", perr, attempt))
		return
	}
	tier := perr.Kind.String()
	delay := policy.Delay(attempt)
	e.metrics.PlayerError("native", tier)
	e.logger.Warn(action,
		logging.String("tier", tier),
		logging.Int("attempt", attempt),
		logging.Duration("delay", delay),
		logging.String("detail", perr.Detail),
	)
	go func() {
		if err := retry.SleepWithContext(e.ctx, delay); err != nil {
			return
		}
		if e.ctx.Err() != nil {
			return
		}
		if err := run(e.ctx); err != nil && e.ctx.Err() == nil {
			e.fail(fmt.Errorf("%s: %w", action, err))
		}
	}()
}

func (e *NativeEngine) fail(cause error) {
	e.mu.Lock()
	if e.state == nativeFailed || e.state == nativeClosed {
		e.mu.Unlock()
		return
	}
	e.state = nativeFailed
	e.session.Ready = false
	e.mu.Unlock()

	e.cancel()
	e.pipeline.Destroy()
	e.metrics.PlayerError("native", "fatal")
	logging.ErrorWithContext(e.logger, "playback failed", "player_fatal",
		logging.Error(cause),
		logging.String(logging.FieldErrorHint, "check the playlist url and CDN token"),
	)
	e.events.emit(Event{Type: EventError, Err: fmt.Errorf("%w: %w", ErrFatal, cause)})
}

func (e *NativeEngine) update(fn func(*Session)) {
	e.mu.Lock()
	fn(&e.session)
	e.mu.Unlock()
}

func (e *NativeEngine) media() (MediaElement, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch e.state {
	case nativeClosed:
		return nil, ErrClosed
	case nativeFailed:
		return nil, ErrFatal
	case nativeReady:
		return e.pipeline.Media(), nil
	default:
		return nil, ErrNotReady
	}
}

func (e *NativeEngine) Play(ctx context.Context) error {
	m, err := e.media()
	if err != nil {
		return err
	}
	return m.Play(ctx)
}

func (e *NativeEngine) Pause(ctx context.Context) error {
	m, err := e.media()
	if err != nil {
		return err
	}
	return m.Pause(ctx)
}

func (e *NativeEngine) Seek(ctx context.Context, seconds float64) error {
	m, err := e.media()
	if err != nil {
		return err
	}
	seconds = max(seconds, 0)
	if err := m.Seek(ctx, seconds); err != nil {
		return err
	}
	e.update(func(s *Session) { s.CurrentTime = seconds })
	return nil
}

func (e *NativeEngine) SetVolume(ctx context.Context, volume float64) error {
	m, err := e.media()
	if err != nil {
		return err
	}
	return m.SetVolume(ctx, clampVolume(volume))
}

func (e *NativeEngine) Mute(ctx context.Context) error {
	m, err := e.media()
	if err != nil {
		return err
	}
	return m.SetMuted(ctx, true)
}

func (e *NativeEngine) Unmute(ctx context.Context) error {
	m, err := e.media()
	if err != nil {
		return err
	}
	return m.SetMuted(ctx, false)
}

// SetAudioTrack selects the first track whose language or name matches.
// No match leaves the current track in place.
func (e *NativeEngine) SetAudioTrack(_ context.Context, name string) error {
	if _, err := e.media(); err != nil {
		return err
	}
	want := strings.TrimSpace(name)
	code := language.Normalize(want)
	for _, track := range e.pipeline.AudioTracks() {
		if (code != "" && language.Normalize(track.Language) == code) || strings.EqualFold(track.Name, want) {
			if err := e.pipeline.SetAudioTrack(track.ID); err != nil {
				return err
			}
			e.update(func(s *Session) { s.ActiveAudioTrack = track.Name })
			return nil
		}
	}
	e.logger.Debug("audio track not found", logging.String("track", want))
	return nil
}

// SetCaptionTrack selects the caption language. "", "off" and "none"
// disable captions. Audio selection is unaffected.
func (e *NativeEngine) SetCaptionTrack(_ context.Context, lang string) error {
	e.mu.Lock()
	if e.state == nativeClosed {
		e.mu.Unlock()
		return ErrClosed
	}
	lang = strings.ToLower(strings.TrimSpace(lang))
	if captionsOff(lang) {
		e.captionsOn = false
		e.session.ActiveCaptionLanguage = ""
		e.mu.Unlock()
		return nil
	}
	code := language.Normalize(lang)
	if code == "" {
		e.mu.Unlock()
		return fmt.Errorf("unknown caption language %q", lang)
	}
	e.captionsOn = true
	e.session.ActiveCaptionLanguage = code
	e.mu.Unlock()

	e.tracker.SetLanguage(code)
	return nil
}

func (e *NativeEngine) CurrentTime() float64 {
	if m, err := e.media(); err == nil {
		return m.CurrentTime()
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.CurrentTime
}

func (e *NativeEngine) Duration() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Duration
}

func (e *NativeEngine) Paused() bool {
	if m, err := e.media(); err == nil {
		return m.Paused()
	}
	return true
}

func (e *NativeEngine) AudioTracks() []AudioTrack {
	if _, err := e.media(); err != nil {
		return nil
	}
	return e.pipeline.AudioTracks()
}

// CaptionStatus lists every language with cues. Only the selected language
// is showing, and only it can have an active cue.
func (e *NativeEngine) CaptionStatus() []CaptionTrackStatus {
	e.mu.Lock()
	on, selected := e.captionsOn, e.session.ActiveCaptionLanguage
	e.mu.Unlock()

	_, active := e.tracker.Active()
	langs := e.tracker.Languages()
	out := make([]CaptionTrackStatus, 0, len(langs))
	for _, lang := range langs {
		status := CaptionTrackStatus{Language: lang, Mode: ModeDisabled, Cue: CueInactive}
		if lang == selected {
			status.Mode = ModeHidden
			if on {
				status.Mode = ModeShowing
				if active {
					status.Cue = CueActive
				}
			}
		}
		out = append(out, status)
	}
	return out
}

func (e *NativeEngine) CurrentCaptionText() string {
	e.mu.Lock()
	on := e.captionsOn
	e.mu.Unlock()
	if !on {
		return ""
	}
	if cue, ok := e.tracker.Active(); ok {
		return cue.Text
	}
	return ""
}

func (e *NativeEngine) Session() Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session
}

func (e *NativeEngine) Subscribe(event EventType, fn Handler) func() {
	return e.events.subscribe(event, fn)
}

// Close cancels pending recoveries, destroys the pipeline and drops all
// subscriptions. It is safe to call more than once.
func (e *NativeEngine) Close() {
	e.mu.Lock()
	prev := e.state
	if prev == nativeClosed {
		e.mu.Unlock()
		return
	}
	e.state = nativeClosed
	e.session.Ready = false
	e.mu.Unlock()

	e.cancel()
	if prev != nativeFailed {
		e.pipeline.Destroy()
	}
	e.events.close()
}
