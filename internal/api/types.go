package api

import (
	"captionsync/internal/captions"
	"captionsync/internal/player"
	"captionsync/internal/subtitles"
	"captionsync/internal/tracker"
	"captionsync/internal/transcription"
)

type errorResponse struct {
	Error string `json:"error"`
}

// CaptionsResponse is returned by GET /videos/{id}/captions.
type CaptionsResponse struct {
	VideoID   string                     `json:"video_id"`
	Requested []string                   `json:"requested"`
	Languages []string                   `json:"languages"`
	Tracks    subtitles.Tracks           `json:"tracks"`
	Sources   map[string]captions.Source `json:"sources"`
	Missing   []string                   `json:"missing,omitempty"`
	// Unavailable is set when the vendor could not be reached and nothing
	// resolved; the player shows no captions rather than an error.
	Unavailable bool   `json:"unavailable,omitempty"`
	Message     string `json:"message,omitempty"`
}

func newCaptionsResponse(videoID string, result captions.Result, requested []string, err error) CaptionsResponse {
	resp := CaptionsResponse{
		VideoID:   videoID,
		Requested: requested,
		Languages: result.Languages(),
		Tracks:    result.Tracks,
		Sources:   result.Sources,
		Missing:   result.Missing,
	}
	if resp.Languages == nil {
		resp.Languages = []string{}
	}
	if resp.Tracks == nil {
		resp.Tracks = subtitles.Tracks{}
	}
	if resp.Sources == nil {
		resp.Sources = map[string]captions.Source{}
	}
	if err != nil {
		resp.Unavailable = true
		resp.Message = err.Error()
		if len(resp.Missing) == 0 {
			resp.Missing = requested
		}
	}
	return resp
}

type playlistResponse struct {
	VideoID string `json:"video_id"`
	URL     string `json:"url"`
}

type transcriptionRequest struct {
	VideoID  string                        `json:"video_id"`
	AudioURL string                        `json:"audio_url"`
	Words    []transcription.WordTimestamp `json:"words"`
	Language string                        `json:"language"`
	Targets  []string                      `json:"targets"`
	Publish  bool                          `json:"publish"`
}

// Overlay stream messages.
const (
	MessageCue     = "cue"
	MessageTracks  = "tracks"
	MessageCommand = "command"
	MessageError   = "error"
)

// OverlaySample is what an overlay client sends: a playback time sample,
// a caption language switch, or a full media element report.
type OverlaySample struct {
	Event    string              `json:"event,omitempty"`
	Time     *float64            `json:"time,omitempty"`
	Duration float64             `json:"duration,omitempty"`
	Language string              `json:"language,omitempty"`
	Tracks   []player.AudioTrack `json:"tracks,omitempty"`
	Kind     string              `json:"kind,omitempty"`
	Fatal    bool                `json:"fatal,omitempty"`
	Detail   string              `json:"detail,omitempty"`
}

// OverlayMessage is what the server pushes to an overlay client.
type OverlayMessage struct {
	Type      string          `json:"type"`
	Change    *tracker.Change `json:"change,omitempty"`
	Command   *player.Command `json:"command,omitempty"`
	Languages []string        `json:"languages,omitempty"`
	Missing   []string        `json:"missing,omitempty"`
	Error     string          `json:"error,omitempty"`
}
