package translate

import (
	"log/slog"
	"net/http"
	"time"

	"captionsync/internal/config"
	"captionsync/internal/metrics"
)

// FromConfig builds a Google client from the translate section.
func FromConfig(cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) (*Google, error) {
	if err := cfg.RequireTranslate(); err != nil {
		return nil, err
	}
	t := cfg.Translate
	return New(Config{
		APIKey:            t.APIKey,
		BaseURL:           t.BaseURL,
		RequestsPerSecond: t.RequestsPerSecond,
		BreakerFailures:   t.BreakerFailures,
		HTTPClient:        &http.Client{Timeout: time.Duration(t.TimeoutSeconds) * time.Second},
		Metrics:           m,
		Logger:            logger,
	})
}
