package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"captionsync/internal/captions"
	"captionsync/internal/clock"
	"captionsync/internal/config"
	"captionsync/internal/language"
	"captionsync/internal/logging"
	"captionsync/internal/metrics"
	"captionsync/internal/tracker"
	"captionsync/internal/transcription"
)

// Generator produces caption documents from a transcript.
type Generator interface {
	Generate(ctx context.Context, req transcription.GenerateRequest) (transcription.GenerateResult, error)
}

// PlaylistSource returns a playable HLS manifest URL for a video.
type PlaylistSource interface {
	PlaylistURL(ctx context.Context, videoID string) (string, error)
}

// Options wires the server to the rest of the system. Resolver is required;
// the transcription and overlay routes answer 503 when their dependency is
// missing.
type Options struct {
	Bind      string
	Languages []string
	Tolerance float64
	Player    config.Player
	Resolver  captions.TrackResolver
	Generator Generator
	Playlists PlaylistSource
	Metrics   *metrics.Metrics
	Clock     clock.Clock
	Logger    *slog.Logger
}

// Server exposes caption resolution, generation and the overlay stream
// over HTTP.
type Server struct {
	opts     Options
	logger   *slog.Logger
	router   chi.Router
	upgrader websocket.Upgrader

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

// New builds a Server and its routes.
func New(opts Options) (*Server, error) {
	if opts.Resolver == nil {
		return nil, errors.New("api: caption resolver is required")
	}
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	if opts.Tolerance <= 0 {
		opts.Tolerance = tracker.DefaultTolerance
	}
	opts.Languages = language.NormalizeList(opts.Languages)
	s := &Server{
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "api-server"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	s.router = s.routes()
	return s, nil
}

// FromConfig builds a Server using the configured bind address, caption
// languages, tolerance and player budgets.
func FromConfig(cfg *config.Config, resolver captions.TrackResolver, gen Generator, playlists PlaylistSource, m *metrics.Metrics, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("api: config is required")
	}
	return New(Options{
		Bind:      cfg.Server.Bind,
		Languages: cfg.Captions.Languages,
		Tolerance: cfg.Captions.Tolerance,
		Player:    cfg.Player,
		Resolver:  resolver,
		Generator: gen,
		Playlists: playlists,
		Metrics:   m,
		Logger:    logger,
	})
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.opts.Metrics.Handler())
	r.Post("/transcriptions", s.handleTranscription)
	r.Route("/videos/{id}", func(r chi.Router) {
		r.Get("/captions", s.handleCaptions)
		r.Get("/captions/{file}", s.handleCaptionFile)
		r.Get("/playlist", s.handlePlaylist)
		r.Get("/overlay", s.handleOverlay)
	})
	return r
}

// Handler returns the router, for embedding or tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured address and serves until Stop is called
// or ctx ends.
func (s *Server) Start(ctx context.Context) error {
	bind := strings.TrimSpace(s.opts.Bind)
	if bind == "" {
		return errors.New("api: bind address is required")
	}
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	server := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.mu.Lock()
	s.listener = listener
	s.server = server
	s.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr reports the bound address once started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down, waiting up to five seconds for in-flight
// requests.
func (s *Server) Stop() {
	s.mu.Lock()
	server := s.server
	s.server = nil
	s.listener = nil
	s.mu.Unlock()
	if server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}
