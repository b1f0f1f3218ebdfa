package deepgram

import (
	"net/http"
	"time"

	"captionsync/internal/config"
	"captionsync/internal/retry"
)

// FromConfig builds a Client from the deepgram section. Transport failures
// and retriable statuses are retried three times.
func FromConfig(cfg *config.Config) (*Client, error) {
	if err := cfg.RequireDeepgram(); err != nil {
		return nil, err
	}
	d := cfg.Deepgram
	return New(Config{
		APIKey:     d.APIKey,
		BaseURL:    d.BaseURL,
		Model:      d.Model,
		HTTPClient: &http.Client{Timeout: time.Duration(d.TimeoutSeconds) * time.Second},
		Retry:      retry.Exponential(3, time.Second, 8*time.Second),
	})
}
