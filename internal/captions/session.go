package captions

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"captionsync/internal/logging"
	"captionsync/internal/subtitles"
)

// ErrStale is returned by Session.Load when a newer Load superseded it.
var ErrStale = errors.New("caption load superseded by a newer video")

// TrackResolver is the part of Resolver a Session needs.
type TrackResolver interface {
	Resolve(ctx context.Context, videoID string, languages []string) (Result, error)
}

// Snapshot is an immutable view of the tracks published for one video.
type Snapshot struct {
	Generation uint64
	VideoID    string
	Result     Result
	Err        error
}

// Session owns caption loading for one player. Only the most recent Load
// may publish; earlier loads are cancelled and their results dropped.
type Session struct {
	resolver  TrackResolver
	languages []string
	logger    *slog.Logger

	mu      sync.Mutex
	gen     uint64
	cancel  context.CancelFunc
	subs    map[uint64]func(Snapshot)
	nextSub uint64
	closed  bool

	current atomic.Pointer[Snapshot]
}

// NewSession creates a Session that resolves the given languages.
func NewSession(resolver TrackResolver, languages []string, logger *slog.Logger) *Session {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Session{
		resolver:  resolver,
		languages: append([]string(nil), languages...),
		logger:    logging.NewComponentLogger(logger, "caption-session"),
		subs:      map[uint64]func(Snapshot){},
	}
	s.current.Store(&Snapshot{Result: newResult("")})
	return s
}

// Load resolves videoID and publishes the result unless a newer Load started
// meanwhile, in which case ErrStale is returned and nothing is published.
// Tracks already published for the same video are kept as-is.
func (s *Session) Load(ctx context.Context, videoID string) (Snapshot, error) {
	videoID = strings.TrimSpace(videoID)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Snapshot{}, context.Canceled
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	result, err := s.resolver.Resolve(ctx, videoID, s.languages)

	s.mu.Lock()
	if gen != s.gen || s.closed {
		s.mu.Unlock()
		s.logger.Debug("discarding stale caption result", logging.VideoID(videoID))
		return Snapshot{}, ErrStale
	}
	prev := s.current.Load()
	if prev.VideoID == videoID {
		result = keepPublished(prev.Result, result)
	}
	snap := &Snapshot{Generation: gen, VideoID: videoID, Result: result, Err: err}
	s.current.Store(snap)
	s.cancel = nil
	subs := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(*snap)
	}
	return *snap, err
}

// Current returns the latest published snapshot.
func (s *Session) Current() Snapshot {
	return *s.current.Load()
}

// Subscribe registers fn for future publications and returns a disposer.
func (s *Session) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Close cancels any in-flight load and drops subscribers.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.closed = true
	s.subs = map[uint64]func(Snapshot){}
}

// keepPublished returns next with every non-empty track from prev retained
// unchanged, so a reload never replaces a track that is already in use.
func keepPublished(prev, next Result) Result {
	merged := Result{
		VideoID: next.VideoID,
		Tracks:  next.Tracks.Clone(),
		Sources: map[string]Source{},
	}
	if merged.Tracks == nil {
		merged.Tracks = subtitles.Tracks{}
	}
	for lang, src := range next.Sources {
		merged.Sources[lang] = src
	}
	for lang, cues := range prev.Tracks {
		if len(cues) == 0 {
			continue
		}
		merged.Tracks[lang] = cues
		if src, ok := prev.Sources[lang]; ok {
			merged.Sources[lang] = src
		}
	}
	for _, lang := range next.Missing {
		if _, ok := merged.Tracks[lang]; !ok {
			merged.Missing = append(merged.Missing, lang)
		}
	}
	return merged
}
