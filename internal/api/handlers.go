package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"captionsync/internal/captions"
	"captionsync/internal/language"
	"captionsync/internal/logging"
	"captionsync/internal/services"
	"captionsync/internal/subtitles"
	"captionsync/internal/transcription"
)

const maxRequestBody = 8 << 20

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCaptions(w http.ResponseWriter, r *http.Request) {
	videoID := strings.TrimSpace(chi.URLParam(r, "id"))
	langs := s.languages(r.URL.Query().Get("lang"))
	if len(langs) == 0 {
		s.writeError(w, http.StatusBadRequest, "no caption languages requested")
		return
	}
	ctx := services.WithVideoID(r.Context(), videoID)
	result, err := s.opts.Resolver.Resolve(ctx, videoID, langs)
	if errors.Is(err, captions.ErrCaptionsUnavailable) {
		s.writeJSON(w, http.StatusOK, newCaptionsResponse(videoID, result, langs, err))
		return
	}
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newCaptionsResponse(videoID, result, langs, nil))
}

func (s *Server) handleCaptionFile(w http.ResponseWriter, r *http.Request) {
	videoID := strings.TrimSpace(chi.URLParam(r, "id"))
	file := chi.URLParam(r, "file")
	ext := strings.ToLower(path.Ext(file))
	if ext != ".vtt" && ext != ".srt" {
		s.writeError(w, http.StatusNotFound, "unsupported caption format")
		return
	}
	lang := language.Normalize(strings.TrimSuffix(file, path.Ext(file)))
	if lang == "" {
		s.writeError(w, http.StatusBadRequest, "invalid caption language")
		return
	}
	ctx := services.WithLanguage(services.WithVideoID(r.Context(), videoID), lang)
	result, err := s.opts.Resolver.Resolve(ctx, videoID, []string{lang})
	if err != nil && !errors.Is(err, captions.ErrCaptionsUnavailable) {
		s.writeServiceError(w, err)
		return
	}
	cues, ok := result.Tracks[lang]
	if !ok {
		s.writeError(w, http.StatusNotFound, "no captions for "+lang)
		return
	}

	var body, contentType string
	if ext == ".srt" {
		body, contentType = subtitles.FormatSRT(cues), "application/x-subrip; charset=utf-8"
	} else {
		body, contentType = subtitles.FormatVTT(cues, lang), "text/vtt; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func (s *Server) handlePlaylist(w http.ResponseWriter, r *http.Request) {
	if s.opts.Playlists == nil {
		s.writeError(w, http.StatusServiceUnavailable, "playlist signing is not configured")
		return
	}
	videoID := strings.TrimSpace(chi.URLParam(r, "id"))
	url, err := s.opts.Playlists.PlaylistURL(services.WithVideoID(r.Context(), videoID), videoID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, playlistResponse{VideoID: videoID, URL: url})
}

func (s *Server) handleTranscription(w http.ResponseWriter, r *http.Request) {
	if s.opts.Generator == nil {
		s.writeError(w, http.StatusServiceUnavailable, "caption generation is not configured")
		return
	}
	var req transcriptionRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	targets := req.Targets
	if len(targets) == 0 {
		targets = s.opts.Languages
	}
	ctx := services.WithVideoID(r.Context(), req.VideoID)
	result, err := s.opts.Generator.Generate(ctx, transcription.GenerateRequest{
		VideoID:  strings.TrimSpace(req.VideoID),
		AudioURL: strings.TrimSpace(req.AudioURL),
		Words:    req.Words,
		Language: req.Language,
		Targets:  targets,
		Publish:  req.Publish,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

// languages parses a lang query value, falling back to the configured set.
func (s *Server) languages(query string) []string {
	if langs := language.SplitList(query); len(langs) > 0 {
		return langs
	}
	return s.opts.Languages
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, errorResponse{Error: message})
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logging.WarnWithContext(s.logger, "request failed", "api_request_failed",
			logging.Error(err),
			logging.Int("status", status),
			logging.String(logging.FieldImpact, "client received an error response"),
		)
	}
	s.writeError(w, status, err.Error())
}

// statusFor maps error markers onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrConfiguration):
		return http.StatusServiceUnavailable
	case errors.Is(err, services.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
