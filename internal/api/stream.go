package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"captionsync/internal/captions"
	"captionsync/internal/language"
	"captionsync/internal/logging"
	"captionsync/internal/overlay"
	"captionsync/internal/player"
	"captionsync/internal/services"
	"captionsync/internal/tracker"
)

const (
	streamWriteWait = 5 * time.Second
	streamIdle      = 90 * time.Second
	streamReadLimit = 64 << 10
)

// streamConn serializes writes to a websocket; gorilla allows one writer.
type streamConn struct {
	conn *websocket.Conn

	mu     sync.Mutex
	closed bool
}

func (c *streamConn) send(msg OverlayMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return websocket.ErrCloseSent
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	return c.conn.WriteJSON(msg)
}

func (c *streamConn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	deadline := time.Now().Add(streamWriteWait)
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	_ = c.conn.Close()
}

// handleOverlay runs one caption overlay over a websocket. The client's
// media element is driven through a RemotePipeline: the server sends
// commands, the client reports playback samples, and the server pushes a
// cue message only when the active cue changes.
func (s *Server) handleOverlay(w http.ResponseWriter, r *http.Request) {
	if s.opts.Playlists == nil {
		s.writeError(w, http.StatusServiceUnavailable, "playlist signing is not configured")
		return
	}
	videoID := strings.TrimSpace(chi.URLParam(r, "id"))
	ctx := services.WithVideoID(r.Context(), videoID)
	manifest, err := s.opts.Playlists.PlaylistURL(ctx, videoID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	selected := language.Normalize(r.URL.Query().Get("lang"))
	langs := s.opts.Languages
	if selected != "" {
		langs = language.NormalizeList(append([]string{selected}, langs...))
	} else if len(langs) > 0 {
		selected = langs[0]
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the client.
		s.logger.Debug("overlay upgrade failed", logging.Error(err))
		return
	}
	conn.SetReadLimit(streamReadLimit)
	out := &streamConn{conn: conn}
	defer out.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		out.close()
	}()

	sessionID := uuid.NewString()
	logger := s.logger.With(
		logging.VideoID(videoID),
		logging.SessionID(sessionID),
	)
	s.opts.Metrics.OverlayConnected(1)
	defer s.opts.Metrics.OverlayConnected(-1)
	logger.Info("overlay client connected", logging.Language(selected))

	tr := tracker.New(s.opts.Tolerance)
	pipeline := player.NewRemotePipeline(s.opts.Clock, func(cmd player.Command) error {
		return out.send(OverlayMessage{Type: MessageCommand, Command: &cmd})
	})
	engine := player.NewNative(pipeline, player.NativeOptionsFromConfig(s.opts.Player, manifest, tr, s.opts.Metrics, logger))
	session := captions.NewSession(s.opts.Resolver, langs, logger)
	ov := overlay.New(engine, session, tr, overlay.Options{
		FrameInterval: time.Duration(s.opts.Player.FrameIntervalMilli) * time.Millisecond,
		Logger:        logger,
	})
	defer ov.Close()

	ov.Subscribe(func(change tracker.Change) {
		_ = out.send(OverlayMessage{Type: MessageCue, Change: &change})
	})
	engine.Subscribe(player.EventError, func(ev player.Event) {
		message := "playback failed"
		if ev.Err != nil {
			message = ev.Err.Error()
		}
		_ = out.send(OverlayMessage{Type: MessageError, Error: message})
	})
	if selected != "" {
		_ = engine.SetCaptionTrack(ctx, selected)
	}
	ov.Start()
	if err := engine.Start(ctx); err != nil {
		_ = out.send(OverlayMessage{Type: MessageError, Error: err.Error()})
		return
	}
	go s.loadTracks(ctx, ov, out, videoID, logger)

	for {
		_ = conn.SetReadDeadline(time.Now().Add(streamIdle))
		var sample OverlaySample
		if err := conn.ReadJSON(&sample); err != nil {
			if ctx.Err() == nil && websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("overlay read failed", logging.Error(err))
			}
			logger.Info("overlay client disconnected")
			return
		}
		if err := applySample(ctx, engine, pipeline, sample); err != nil {
			_ = out.send(OverlayMessage{Type: MessageError, Error: err.Error()})
		}
	}
}

func (s *Server) loadTracks(ctx context.Context, ov *overlay.Overlay, out *streamConn, videoID string, logger *slog.Logger) {
	snap, err := ov.Load(ctx, videoID)
	if errors.Is(err, captions.ErrStale) || ctx.Err() != nil {
		return
	}
	msg := OverlayMessage{
		Type:      MessageTracks,
		Languages: snap.Result.Languages(),
		Missing:   snap.Result.Missing,
	}
	if err != nil {
		logger.Debug("overlay caption load failed", logging.Error(err))
		msg.Error = err.Error()
	}
	_ = out.send(msg)
}

// applySample feeds one client message into the engine. Language switches
// are applied before the time sample so the new track is matched at the
// reported position.
func applySample(ctx context.Context, engine *player.NativeEngine, pipeline *player.RemotePipeline, sample OverlaySample) error {
	if sample.Language != "" {
		if err := engine.SetCaptionTrack(ctx, sample.Language); err != nil {
			return err
		}
	}
	if sample.Event == "" && sample.Time == nil {
		return nil
	}
	at := pipeline.CurrentTime()
	if sample.Time != nil {
		at = *sample.Time
	}
	pipeline.Report(player.Report{
		Event:    sample.Event,
		Time:     at,
		Duration: sample.Duration,
		Tracks:   sample.Tracks,
		Kind:     sample.Kind,
		Fatal:    sample.Fatal,
		Detail:   sample.Detail,
	})
	return nil
}
