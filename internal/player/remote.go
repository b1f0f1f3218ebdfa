package player

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"captionsync/internal/clock"
)

// Command is an instruction for a remote media element.
type Command struct {
	Name    string  `json:"name"`
	URL     string  `json:"url,omitempty"`
	Value   float64 `json:"value,omitempty"`
	TrackID int     `json:"track_id,omitempty"`
	Muted   bool    `json:"muted,omitempty"`
}

// Report is a state update from a remote media element.
type Report struct {
	Event    string       `json:"event"`
	Time     float64      `json:"time"`
	Duration float64      `json:"duration,omitempty"`
	Tracks   []AudioTrack `json:"tracks,omitempty"`
	// Kind is "network", "media" or anything else for error reports.
	Kind   string `json:"kind,omitempty"`
	Fatal  bool   `json:"fatal,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// RemotePipeline is an HLSPipeline whose media element lives in a remote
// client. Commands are forwarded through send and the client reports state
// back through Report. Between reports the playback position is
// extrapolated from the clock while playing.
type RemotePipeline struct {
	clock clock.Clock
	send  func(Command) error

	mu        sync.Mutex
	handler   func(PipelineEvent)
	tracks    []AudioTrack
	position  float64
	sampledAt time.Time
	duration  float64
	paused    bool
	destroyed bool
}

// NewRemotePipeline returns a pipeline that forwards commands to send.
func NewRemotePipeline(clk clock.Clock, send func(Command) error) *RemotePipeline {
	if clk == nil {
		clk = clock.System{}
	}
	if send == nil {
		send = func(Command) error { return nil }
	}
	return &RemotePipeline{clock: clk, send: send, paused: true}
}

func (p *RemotePipeline) Attach(fn func(PipelineEvent)) error {
	p.mu.Lock()
	p.handler = fn
	p.mu.Unlock()
	return nil
}

func (p *RemotePipeline) LoadSource(_ context.Context, manifestURL string) error {
	return p.send(Command{Name: "load", URL: manifestURL})
}

func (p *RemotePipeline) StartLoad(context.Context) error {
	return p.send(Command{Name: "reload"})
}

func (p *RemotePipeline) RecoverMediaError(context.Context) error {
	return p.send(Command{Name: "recover"})
}

func (p *RemotePipeline) AudioTracks() []AudioTrack {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.tracks)
}

func (p *RemotePipeline) SetAudioTrack(id int) error {
	return p.send(Command{Name: "audio_track", TrackID: id})
}

func (p *RemotePipeline) Media() MediaElement { return p }

func (p *RemotePipeline) Destroy() {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return
	}
	p.destroyed = true
	p.handler = nil
	p.mu.Unlock()
	_ = p.send(Command{Name: "destroy"})
}

func (p *RemotePipeline) Play(context.Context) error {
	return p.send(Command{Name: "play"})
}

func (p *RemotePipeline) Pause(context.Context) error {
	return p.send(Command{Name: "pause"})
}

func (p *RemotePipeline) Seek(_ context.Context, seconds float64) error {
	if err := p.send(Command{Name: "seek", Value: seconds}); err != nil {
		return err
	}
	p.mu.Lock()
	p.position = seconds
	p.sampledAt = p.clock.Now()
	p.mu.Unlock()
	return nil
}

func (p *RemotePipeline) SetVolume(_ context.Context, volume float64) error {
	return p.send(Command{Name: "volume", Value: volume})
}

func (p *RemotePipeline) SetMuted(_ context.Context, muted bool) error {
	return p.send(Command{Name: "mute", Muted: muted})
}

// CurrentTime returns the last reported position, advanced by wall time
// while playing and capped at the duration.
func (p *RemotePipeline) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.paused || p.sampledAt.IsZero() {
		return p.position
	}
	t := p.position + p.clock.Now().Sub(p.sampledAt).Seconds()
	if p.duration > 0 {
		t = min(t, p.duration)
	}
	return t
}

func (p *RemotePipeline) Duration() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duration
}

func (p *RemotePipeline) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// Report applies a client report and notifies the attached engine.
// Unknown events are ignored.
func (p *RemotePipeline) Report(r Report) {
	p.mu.Lock()
	if p.destroyed {
		p.mu.Unlock()
		return
	}
	now := p.clock.Now()
	var ev PipelineEvent
	switch strings.ToLower(strings.TrimSpace(r.Event)) {
	case "manifest":
		p.tracks = slices.Clone(r.Tracks)
		if r.Duration > 0 {
			p.duration = r.Duration
		}
		ev = PipelineEvent{Kind: PipelineManifestParsed}
	case "", "timeupdate":
		p.position, p.sampledAt = r.Time, now
		ev = PipelineEvent{Kind: PipelineTimeUpdate, Time: r.Time}
	case "play", "playing":
		p.position, p.sampledAt, p.paused = r.Time, now, false
		ev = PipelineEvent{Kind: PipelinePlaying}
	case "pause":
		p.position, p.sampledAt, p.paused = r.Time, now, true
		ev = PipelineEvent{Kind: PipelinePaused}
	case "ended":
		p.position, p.sampledAt, p.paused = r.Time, now, true
		ev = PipelineEvent{Kind: PipelineEnded}
	case "durationchange":
		p.duration = r.Duration
		ev = PipelineEvent{Kind: PipelineDurationChange, Duration: r.Duration}
	case "error":
		kind := ErrorOther
		switch strings.ToLower(r.Kind) {
		case "network":
			kind = ErrorNetwork
		case "media":
			kind = ErrorMedia
		}
		ev = PipelineEvent{Kind: PipelineFailed, Err: &PipelineError{Kind: kind, Fatal: r.Fatal, Detail: r.Detail}}
	default:
		p.mu.Unlock()
		return
	}
	handler := p.handler
	p.mu.Unlock()
	if handler != nil {
		handler(ev)
	}
}
