// Package translate is a Google Cloud Translation (v2 REST) client guarded
// by a rate limiter and a circuit breaker. Once the vendor trips the breaker
// every call fails fast, so document translation degrades to original text
// instead of waiting on timeouts line after line.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"captionsync/internal/logging"
	"captionsync/internal/metrics"
	"captionsync/internal/services"
)

const (
	defaultBaseURL         = "https://translation.googleapis.com/language/translate/v2"
	defaultTimeout         = 30 * time.Second
	defaultRequestsPerSec  = 10
	defaultBreakerFailures = 5
	defaultOpenTimeout     = 30 * time.Second
)

// ErrUnavailable reports the breaker is open and calls are short-circuited.
var ErrUnavailable = errors.New("translation vendor unavailable")

// Config describes the translation client.
type Config struct {
	APIKey            string
	BaseURL           string
	RequestsPerSecond float64
	BreakerFailures   int
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
	HTTPClient  *http.Client
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
}

// Google translates text through the v2 REST API.
type Google struct {
	apiKey  string
	baseURL *url.URL
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[string]
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a Google client from the supplied configuration.
func New(cfg Config) (*Google, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("translate: api key is required")
	}
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = defaultBaseURL
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("translate: parse base url: %w", err)
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRequestsPerSec
	}
	failures := cfg.BreakerFailures
	if failures <= 0 {
		failures = defaultBreakerFailures
	}
	openTimeout := cfg.OpenTimeout
	if openTimeout <= 0 {
		openTimeout = defaultOpenTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "translate")

	g := &Google{
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    client,
		limiter: rate.NewLimiter(rate.Limit(rps), max(1, int(rps))),
		metrics: cfg.Metrics,
		logger:  logger,
	}
	g.breaker = gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:    "google-translate",
		Timeout: openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(failures)
		},
		IsExcluded: func(err error) bool {
			return errors.Is(err, context.Canceled) || errors.Is(err, services.ErrValidation)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				logging.WarnWithContext(logger, "translation circuit opened", "translate_breaker_open",
					logging.String("breaker", name),
					logging.String(logging.FieldErrorHint, "check translate.api_key and vendor status"),
					logging.String(logging.FieldImpact, "cue text falls back to the source language"),
				)
				return
			}
			logger.Info("translation circuit state changed", logging.String("from", from.String()), logging.String("to", to.String()))
		},
	})
	return g, nil
}

// Translate translates text into target. An empty source lets the vendor
// detect the language.
func (g *Google) Translate(ctx context.Context, text, target, source string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}
	out, err := g.breaker.Execute(func() (string, error) {
		return g.call(ctx, text, target, source)
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		g.metrics.TranslatedLine(target, "short_circuit")
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	case err != nil:
		g.metrics.TranslatedLine(target, "error")
		return "", err
	}
	g.metrics.TranslatedLine(target, "translated")
	return out, nil
}

// State reports the breaker state for diagnostics.
func (g *Google) State() string {
	return g.breaker.State().String()
}

type translateRequest struct {
	Q      []string `json:"q"`
	Target string   `json:"target"`
	Source string   `json:"source,omitempty"`
	Format string   `json:"format"`
}

type translateResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText string `json:"translatedText"`
		} `json:"translations"`
	} `json:"data"`
}

func (g *Google) call(ctx context.Context, text, target, source string) (string, error) {
	payload, err := json.Marshal(translateRequest{Q: []string{text}, Target: target, Source: source, Format: "text"})
	if err != nil {
		return "", fmt.Errorf("translate: encode request: %w", err)
	}
	endpoint := *g.baseURL
	q := endpoint.Query()
	q.Set("key", g.apiKey)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("translate: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := g.http.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "translate", "request", "", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		marker := services.ErrVendor
		if resp.StatusCode == http.StatusBadRequest {
			marker = services.ErrValidation
		}
		return "", services.Wrap(marker, "translate", "request", fmt.Sprintf("status %s", resp.Status), errors.New(strings.TrimSpace(string(body))))
	}
	var decoded translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("translate: decode response: %w", err)
	}
	if len(decoded.Data.Translations) == 0 {
		return "", services.Wrap(services.ErrVendor, "translate", "request", "empty translations", nil)
	}
	return html.UnescapeString(decoded.Data.Translations[0].TranslatedText), nil
}
