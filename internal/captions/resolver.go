package captions

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"captionsync/internal/bunny"
	"captionsync/internal/language"
	"captionsync/internal/logging"
	"captionsync/internal/metrics"
	"captionsync/internal/retry"
	"captionsync/internal/services"
	"captionsync/internal/subtitles"
)

const (
	defaultFetchTimeout = 30 * time.Second
	defaultProbeTimeout = 10 * time.Second
)

// MetadataSource reads video metadata and fetches the caption URLs it lists.
type MetadataSource interface {
	Video(ctx context.Context, videoID string) services.Result[bunny.Video]
	Fetch(ctx context.Context, rawURL string) services.Result[string]
}

// Prober lists and fetches raw storage candidates for one language.
type Prober interface {
	Name() string
	Candidates(videoID, lang string) []string
	Fetch(ctx context.Context, location string) services.Result[string]
}

// Options tunes a Resolver. Zero values fall back to defaults.
type Options struct {
	FetchTimeout time.Duration
	ProbeTimeout time.Duration
	// ProbePolicy retries a single candidate on transient vendor errors.
	ProbePolicy retry.Policy
	Cache       *Cache
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
}

// Resolver discovers caption tracks through the metadata API and storage.
type Resolver struct {
	meta         MetadataSource
	prober       Prober
	fetchTimeout time.Duration
	probeTimeout time.Duration
	probePolicy  retry.Policy
	cache        *Cache
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

// NewResolver builds a Resolver. Either source may be nil, which skips the
// corresponding pass.
func NewResolver(meta MetadataSource, prober Prober, opts Options) *Resolver {
	r := &Resolver{
		meta:         meta,
		prober:       prober,
		fetchTimeout: opts.FetchTimeout,
		probeTimeout: opts.ProbeTimeout,
		probePolicy:  opts.ProbePolicy,
		cache:        opts.Cache,
		metrics:      opts.Metrics,
		logger:       opts.Logger,
	}
	if r.fetchTimeout <= 0 {
		r.fetchTimeout = defaultFetchTimeout
	}
	if r.probeTimeout <= 0 {
		r.probeTimeout = defaultProbeTimeout
	}
	if r.probePolicy.Attempts <= 0 {
		r.probePolicy = retry.Once()
	}
	if r.logger == nil {
		r.logger = logging.NewNop()
	}
	r.logger = logging.NewComponentLogger(r.logger, "captions")
	return r
}

type resolved struct {
	lang   string
	cues   []subtitles.Cue
	source Source
	body   string
	ok     bool
}

// Resolve discovers tracks for the requested languages. Per-language
// failures only shrink the result; ErrCaptionsUnavailable is returned when
// the metadata call failed and nothing resolved.
func (r *Resolver) Resolve(ctx context.Context, videoID string, languages []string) (Result, error) {
	videoID = strings.TrimSpace(videoID)
	result := newResult(videoID)
	if videoID == "" {
		return result, services.Wrap(services.ErrValidation, "captions", "resolve", "video id is required", nil)
	}
	wanted := language.NormalizeList(languages)
	if len(wanted) == 0 {
		return result, nil
	}
	ctx = services.WithVideoID(ctx, videoID)
	logger := logging.WithContext(ctx, r.logger)
	started := time.Now()
	defer func() { r.metrics.ResolveTook(time.Since(started)) }()

	outcomes := make([]resolved, len(wanted))
	pending := make([]int, 0, len(wanted))
	for i, lang := range wanted {
		outcomes[i].lang = lang
		if source, body, ok := r.cache.Load(ctx, videoID, lang); ok {
			if cues := subtitles.Parse(body); len(cues) > 0 {
				outcomes[i] = resolved{lang: lang, cues: cues, source: source, ok: true}
				continue
			}
		}
		pending = append(pending, i)
	}

	metaOutcome := services.OutcomeNotFound
	var metaErr error
	if len(pending) > 0 {
		entries := map[string]bunny.CaptionEntry{}
		if r.meta != nil {
			mctx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
			res := r.meta.Video(mctx, videoID)
			cancel()
			metaOutcome = res.Outcome
			switch res.Outcome {
			case services.OutcomeSuccess:
				for _, entry := range res.Value.Captions {
					code := entry.Code()
					if code == "" {
						continue
					}
					if _, seen := entries[code]; !seen {
						entries[code] = entry
					}
				}
				logger.Debug("video metadata loaded", logging.Int("caption_entries", len(res.Value.Captions)))
			case services.OutcomeNotFound:
				logger.Info("video metadata not found", logging.Int("status", res.Status))
			default:
				metaErr = res.AsError()
				logging.WarnWithContext(logger, "video metadata unavailable", "metadata_unavailable",
					logging.Error(metaErr),
					logging.Int("status", res.Status),
					logging.String(logging.FieldErrorHint, "check bunny.api_key and bunny.library_id"),
					logging.String(logging.FieldImpact, "falling back to direct storage probes"),
				)
			}
		}

		// Every pending language probes at once; none waits on another.
		var g errgroup.Group
		for _, i := range pending {
			lang := outcomes[i].lang
			entry, hasEntry := entries[lang]
			g.Go(func() error {
				outcomes[i] = r.resolveLanguage(ctx, videoID, lang, entry, hasEntry)
				return nil
			})
		}
		_ = g.Wait()
	}

	for _, out := range outcomes {
		if !out.ok {
			result.Missing = append(result.Missing, out.lang)
			r.metrics.Missing(out.lang)
			continue
		}
		result.Tracks[out.lang] = out.cues
		result.Sources[out.lang] = out.source
		r.metrics.Resolved(string(out.source.Method), out.lang)
		if out.body != "" {
			if err := r.cache.Save(ctx, videoID, out.source, out.body); err != nil {
				logger.Debug("caption cache write failed", logging.Language(out.lang), logging.Error(err))
			}
		}
	}
	result.Missing = sortedCopy(result.Missing)

	if err := ctx.Err(); err != nil {
		return result, err
	}
	if result.Empty() && metaOutcome == services.OutcomeVendorError {
		return result, fmt.Errorf("%w: %w", ErrCaptionsUnavailable, metaErr)
	}
	attrs := []logging.Attr{
		logging.Any("languages", result.Languages()),
		logging.Duration("elapsed", time.Since(started)),
	}
	if len(result.Missing) > 0 {
		attrs = append(attrs, logging.Any("missing", result.Missing))
	}
	logger.Info("captions resolved", logging.Args(attrs...)...)
	return result, nil
}

func (r *Resolver) resolveLanguage(ctx context.Context, videoID, lang string, entry bunny.CaptionEntry, hasEntry bool) resolved {
	ctx = services.WithLanguage(ctx, lang)
	logger := logging.WithContext(ctx, r.logger)

	if hasEntry {
		if out, ok := r.fromMetadata(ctx, logger, lang, entry); ok {
			return out
		}
	}
	if r.prober == nil {
		return resolved{lang: lang}
	}
	for _, location := range r.prober.Candidates(videoID, lang) {
		if ctx.Err() != nil {
			break
		}
		res := r.probe(ctx, location)
		display := bunny.Redact(location)
		switch {
		case res.Outcome == services.OutcomeNotFound:
			r.metrics.Probe(r.prober.Name(), "not_found")
			logger.Debug("storage candidate missing", logging.String("candidate", display))
			continue
		case !res.OK():
			r.metrics.Probe(r.prober.Name(), "error")
			logger.Debug("storage candidate failed", logging.String("candidate", display), logging.Error(res.AsError()))
			continue
		case !LooksLikeCaptions(res.Value):
			r.metrics.Probe(r.prober.Name(), "rejected")
			logger.Debug("storage candidate is not a caption document", logging.String("candidate", display))
			continue
		}
		cues := subtitles.Parse(res.Value)
		if len(cues) == 0 {
			r.metrics.Probe(r.prober.Name(), "empty")
			continue
		}
		r.metrics.Probe(r.prober.Name(), "hit")
		logger.Debug("storage candidate accepted",
			logging.String("candidate", display),
			logging.Int("cues", len(cues)),
			logging.Method(string(MethodStorageDirect)),
		)
		return resolved{
			lang: lang,
			cues: cues,
			body: res.Value,
			source: Source{
				Language: lang,
				URL:      display,
				Method:   MethodStorageDirect,
				Backend:  r.prober.Name(),
			},
			ok: true,
		}
	}
	return resolved{lang: lang}
}

func (r *Resolver) fromMetadata(ctx context.Context, logger *slog.Logger, lang string, entry bunny.CaptionEntry) (resolved, bool) {
	source := Source{Language: lang, Method: MethodVendorMetadata}
	body := entry.Text
	if strings.TrimSpace(body) != "" {
		source.Inline = true
	} else if entry.URL != "" {
		fctx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
		res := r.meta.Fetch(fctx, entry.URL)
		cancel()
		if !res.OK() {
			logger.Debug("metadata caption fetch failed",
				logging.String("url", bunny.Redact(entry.URL)),
				logging.String("outcome", res.Outcome.String()),
				logging.Error(res.AsError()),
			)
			return resolved{}, false
		}
		body = res.Value
		source.URL = bunny.Redact(entry.URL)
	} else {
		return resolved{}, false
	}
	cues := subtitles.Parse(body)
	if len(cues) == 0 {
		logger.Debug("metadata caption document has no cues", logging.Bool("inline", source.Inline))
		return resolved{}, false
	}
	return resolved{lang: lang, cues: cues, source: source, body: body, ok: true}, true
}

// probe fetches one candidate, retrying transport failures and retriable
// statuses under the probe policy.
func (r *Resolver) probe(ctx context.Context, location string) services.Result[string] {
	var (
		last   services.Result[string]
		called bool
	)
	_, err := retry.Do(ctx, r.probePolicy, func(ctx context.Context) (struct{}, error) {
		pctx, cancel := context.WithTimeout(ctx, r.probeTimeout)
		defer cancel()
		last = r.prober.Fetch(pctx, location)
		called = true
		if last.Outcome == services.OutcomeVendorError && (last.Status == 0 || retry.IsRetriableStatus(last.Status)) {
			return struct{}{}, last.AsError()
		}
		return struct{}{}, nil
	}, nil)
	if !called {
		if err == nil {
			err = ctx.Err()
		}
		return services.VendorError[string](err, 0)
	}
	return last
}
