// Package refresh keeps token-signed HLS playlist URLs current.
//
// A Refresher stores one signed URL per video in the cache and re-signs it
// once the stored copy is older than the configured TTL. Runs are guarded by
// a file lock so overlapping cron invocations and the server loop never
// sign concurrently.
package refresh

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"captionsync/internal/bunny"
	"captionsync/internal/cache"
	"captionsync/internal/clock"
	"captionsync/internal/config"
	"captionsync/internal/logging"
)

// Namespace is the cache namespace for signed playlist URLs.
const Namespace = "hls"

// ErrLocked is returned when another refresher holds the lock.
var ErrLocked = errors.New("another refresh is already running")

// Signer signs rawURL so it stays valid until expires.
type Signer func(rawURL string, expires time.Time) (string, error)

// Outcome describes what a run did for one video.
type Outcome string

const (
	OutcomeRefreshed Outcome = "refreshed"
	OutcomeFresh     Outcome = "fresh"
	OutcomeFailed    Outcome = "failed"
)

// Entry is the cached signed URL for one video.
type Entry struct {
	VideoID  string    `json:"video_id"`
	URL      string    `json:"url"`
	Expires  time.Time `json:"expires"`
	SignedAt time.Time `json:"signed_at"`
}

// Result reports the outcome for one video.
type Result struct {
	VideoID string
	Entry   Entry
	Outcome Outcome
	Err     error
}

// Options configures a Refresher.
type Options struct {
	// TTL is how long a signed URL is reused before re-signing.
	TTL time.Duration
	// Lifetime is how long each signed URL stays valid at the CDN.
	Lifetime time.Duration
	LockPath string
	Playlist func(videoID string) string
	Sign     Signer
	Clock    clock.Clock
	Logger   *slog.Logger
}

// Refresher re-signs playlist URLs whose cached copy has gone stale.
type Refresher struct {
	store *cache.Store
	opts  Options
	lock  *flock.Flock
	clock clock.Clock
	log   *slog.Logger
}

// New validates opts and returns a Refresher backed by store.
func New(store *cache.Store, opts Options) (*Refresher, error) {
	if store == nil {
		return nil, errors.New("refresh requires a cache store")
	}
	if opts.Playlist == nil || opts.Sign == nil {
		return nil, errors.New("refresh requires playlist and signer functions")
	}
	if opts.TTL <= 0 {
		return nil, errors.New("refresh ttl must be positive")
	}
	if opts.Lifetime < opts.TTL {
		return nil, fmt.Errorf("signed url lifetime %s is shorter than refresh ttl %s", opts.Lifetime, opts.TTL)
	}
	if strings.TrimSpace(opts.LockPath) == "" {
		return nil, errors.New("refresh lock path is required")
	}
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	return &Refresher{
		store: store,
		opts:  opts,
		lock:  flock.New(opts.LockPath),
		clock: opts.Clock,
		log:   logging.NewComponentLogger(opts.Logger, "refresh"),
	}, nil
}

// FromConfig builds a Refresher that signs Bunny CDN playlist URLs.
func FromConfig(cfg *config.Config, store *cache.Store, clk clock.Clock, logger *slog.Logger) (*Refresher, error) {
	if err := cfg.RequireSigning(); err != nil {
		return nil, err
	}
	host, key := cfg.Bunny.CDNHostname, cfg.Bunny.TokenSecurityKey
	return New(store, Options{
		TTL:      time.Duration(cfg.Refresh.TTLMinutes) * time.Minute,
		Lifetime: time.Duration(cfg.Refresh.URLLifetimeHrs) * time.Hour,
		LockPath: cfg.Paths.LockPath,
		Playlist: func(videoID string) string { return bunny.PlaylistURL(host, videoID) },
		Sign: func(rawURL string, expires time.Time) (string, error) {
			return bunny.SignURL(key, rawURL, expires)
		},
		Clock:  clk,
		Logger: logger,
	})
}

// Run refreshes every video whose cached URL is missing or older than the
// TTL. Per-video failures are reported in the results; only lock and
// context errors fail the run.
func (r *Refresher) Run(ctx context.Context, videoIDs []string) ([]Result, error) {
	if err := os.MkdirAll(filepath.Dir(r.opts.LockPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure lock dir: %w", err)
	}
	ok, err := r.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}
	defer func() {
		if err := r.lock.Unlock(); err != nil {
			r.log.Warn("failed to release refresh lock", logging.Error(err))
		}
	}()

	results := make([]Result, 0, len(videoIDs))
	for _, id := range videoIDs {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		results = append(results, r.refreshOne(ctx, id))
	}
	return results, nil
}

func (r *Refresher) refreshOne(ctx context.Context, videoID string) Result {
	logger := r.log.With(logging.VideoID(videoID))
	if entry, fresh, err := r.Current(ctx, videoID); err != nil {
		logger.Warn("read cached playlist url failed", logging.Error(err))
	} else if fresh {
		return Result{VideoID: videoID, Entry: entry, Outcome: OutcomeFresh}
	}

	now := r.clock.Now()
	expires := now.Add(r.opts.Lifetime)
	signed, err := r.opts.Sign(r.opts.Playlist(videoID), expires)
	if err != nil {
		logging.WarnWithContext(logger, "sign playlist url failed", "hls_sign_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check bunny.token_security_key"),
			logging.String(logging.FieldImpact, "players keep the previous playlist url until it expires"),
		)
		return Result{VideoID: videoID, Outcome: OutcomeFailed, Err: err}
	}
	entry := Entry{VideoID: videoID, URL: signed, Expires: expires.UTC(), SignedAt: now.UTC()}
	payload, err := json.Marshal(entry)
	if err != nil {
		return Result{VideoID: videoID, Outcome: OutcomeFailed, Err: err}
	}
	if err := r.store.Put(ctx, Namespace, videoID, payload); err != nil {
		logger.Warn("store playlist url failed", logging.Error(err))
		return Result{VideoID: videoID, Entry: entry, Outcome: OutcomeFailed, Err: err}
	}
	logger.Info("playlist url refreshed", logging.String("expires", entry.Expires.Format(time.RFC3339)))
	return Result{VideoID: videoID, Entry: entry, Outcome: OutcomeRefreshed}
}

// Current returns the cached entry for videoID and whether it is younger
// than the TTL.
func (r *Refresher) Current(ctx context.Context, videoID string) (Entry, bool, error) {
	cached, fresh, err := r.store.Get(ctx, Namespace, videoID, r.opts.TTL)
	if err != nil {
		return Entry{}, false, err
	}
	if cached.Value == nil {
		return Entry{}, false, nil
	}
	var entry Entry
	if err := json.Unmarshal(cached.Value, &entry); err != nil {
		return Entry{}, false, fmt.Errorf("decode cached playlist url: %w", err)
	}
	return entry, fresh, nil
}

// PlaylistURL returns a valid signed URL for videoID, refreshing it when
// the cached copy is stale. It does not take the run lock.
func (r *Refresher) PlaylistURL(ctx context.Context, videoID string) (string, error) {
	res := r.refreshOne(ctx, videoID)
	if res.Err != nil {
		return "", res.Err
	}
	return res.Entry.URL, nil
}

// Loop runs a refresh immediately and then every interval until ctx ends.
// A run skipped because another process holds the lock is not an error.
func (r *Refresher) Loop(ctx context.Context, videoIDs []string, interval time.Duration) error {
	if interval <= 0 {
		return errors.New("refresh interval must be positive")
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		results, err := r.Run(ctx, videoIDs)
		switch {
		case errors.Is(err, ErrLocked):
			r.log.Info("refresh skipped, lock held elsewhere")
		case err != nil && ctx.Err() != nil:
			return nil
		case err != nil:
			return err
		default:
			r.log.Debug("refresh pass complete", logging.Int("videos", len(results)))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
