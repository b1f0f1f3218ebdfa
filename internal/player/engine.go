package player

import (
	"context"

	"github.com/google/uuid"
)

// Session is the playback state owned by one engine.
type Session struct {
	ID                    string  `json:"id"`
	CurrentTime           float64 `json:"current_time"`
	Duration              float64 `json:"duration"`
	Paused                bool    `json:"paused"`
	ActiveAudioTrack      string  `json:"active_audio_track,omitempty"`
	ActiveCaptionLanguage string  `json:"active_caption_language,omitempty"`
	Ready                 bool    `json:"ready"`
}

func newSession() Session {
	return Session{ID: uuid.NewString(), Paused: true}
}

// AudioTrack is one selectable audio rendition.
type AudioTrack struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Language string `json:"language"`
}

// TrackMode is the display state of a caption track.
type TrackMode string

const (
	ModeShowing  TrackMode = "showing"
	ModeHidden   TrackMode = "hidden"
	ModeDisabled TrackMode = "disabled"
)

// CueState reports whether a caption cue is currently on screen.
type CueState string

const (
	CueActive   CueState = "active"
	CueInactive CueState = "inactive"
	// CueUnknown is reported by engines that cannot observe rendered cues.
	CueUnknown CueState = "unknown"
)

// CaptionTrackStatus describes one caption language as an engine sees it.
type CaptionTrackStatus struct {
	Language string    `json:"language"`
	Mode     TrackMode `json:"mode"`
	Cue      CueState  `json:"cue"`
}

// Engine is the playback surface shared by the native and iframe adapters.
// Getters return the engine's cached session state and never block.
type Engine interface {
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Seek(ctx context.Context, seconds float64) error
	SetVolume(ctx context.Context, volume float64) error
	Mute(ctx context.Context) error
	Unmute(ctx context.Context) error
	SetAudioTrack(ctx context.Context, name string) error
	SetCaptionTrack(ctx context.Context, language string) error

	CurrentTime() float64
	Duration() float64
	Paused() bool
	AudioTracks() []AudioTrack
	CaptionStatus() []CaptionTrackStatus
	CurrentCaptionText() string
	Session() Session

	Subscribe(event EventType, fn Handler) (dispose func())
	Close()
}

func clampVolume(v float64) float64 {
	return min(max(v, 0), 1)
}

func captionsOff(lang string) bool {
	switch lang {
	case "", "off", "none":
		return true
	}
	return false
}
