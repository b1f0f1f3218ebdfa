package player

import (
	"log/slog"
	"time"

	"captionsync/internal/config"
	"captionsync/internal/metrics"
	"captionsync/internal/retry"
	"captionsync/internal/tracker"
)

// NativeOptionsFromConfig maps the player section onto NativeOptions.
func NativeOptionsFromConfig(cfg config.Player, manifestURL string, tr *tracker.Tracker, m *metrics.Metrics, logger *slog.Logger) NativeOptions {
	delay := time.Duration(cfg.RetryDelayMillis) * time.Millisecond
	return NativeOptions{
		ManifestURL:   manifestURL,
		Tracker:       tr,
		NetworkRetry:  retry.Exponential(cfg.NetworkRetries+1, delay, 8*delay),
		MediaRecovery: retry.Constant(cfg.MediaRecoveries+1, delay),
		Logger:        logger,
		Metrics:       m,
	}
}

// IframeOptionsFromConfig maps the player section onto IframeOptions.
func IframeOptionsFromConfig(cfg config.Player, embedURL string, languages []string, m *metrics.Metrics, logger *slog.Logger) IframeOptions {
	delay := time.Duration(cfg.AttachDelayMillis) * time.Millisecond
	return IframeOptions{
		EmbedURL:  embedURL,
		Languages: languages,
		Attach:    retry.Exponential(cfg.AttachAttempts, delay, 5*delay),
		PlayWait:  time.Duration(cfg.PlayWaitSeconds) * time.Second,
		Logger:    logger,
		Metrics:   m,
	}
}
