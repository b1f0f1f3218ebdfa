package player

import (
	"context"
	"fmt"
)

// ErrorKind classifies a pipeline error into a recovery tier.
type ErrorKind int

const (
	// ErrorOther covers anything that is neither network nor media.
	ErrorOther ErrorKind = iota
	ErrorNetwork
	ErrorMedia
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorNetwork:
		return "network"
	case ErrorMedia:
		return "media"
	default:
		return "other"
	}
}

// PipelineError is an error reported by an HLS pipeline. Non-fatal errors
// are hiccups the pipeline handles itself.
type PipelineError struct {
	Kind   ErrorKind
	Fatal  bool
	Detail string
}

func (e *PipelineError) Error() string {
	if e.Fatal {
		return fmt.Sprintf("fatal %s error: %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Detail)
}

// PipelineEventKind names a notification from an HLS pipeline.
type PipelineEventKind int

const (
	PipelineManifestParsed PipelineEventKind = iota + 1
	PipelineFailed
	PipelinePlaying
	PipelinePaused
	PipelineEnded
	PipelineTimeUpdate
	PipelineDurationChange
)

// PipelineEvent is delivered to the callback passed to HLSPipeline.Attach.
type PipelineEvent struct {
	Kind     PipelineEventKind
	Time     float64
	Duration float64
	Err      *PipelineError
}

// MediaElement is the media surface the pipeline renders into.
type MediaElement interface {
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Seek(ctx context.Context, seconds float64) error
	SetVolume(ctx context.Context, volume float64) error
	SetMuted(ctx context.Context, muted bool) error
	CurrentTime() float64
	Duration() float64
	Paused() bool
}

// HLSPipeline is an adaptive streaming pipeline bound to a media element.
type HLSPipeline interface {
	// Attach binds the pipeline to its media element and registers the
	// event callback. It is called once before LoadSource.
	Attach(fn func(PipelineEvent)) error
	// LoadSource starts loading the manifest. Completion is reported with
	// PipelineManifestParsed or a PipelineFailed event.
	LoadSource(ctx context.Context, manifestURL string) error
	// StartLoad restarts manifest and fragment loading after a network error.
	StartLoad(ctx context.Context) error
	// RecoverMediaError resets the decoder after a media error.
	RecoverMediaError(ctx context.Context) error
	AudioTracks() []AudioTrack
	SetAudioTrack(id int) error
	Media() MediaElement
	Destroy()
}
