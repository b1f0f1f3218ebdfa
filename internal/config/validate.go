package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable. Vendor credentials are
// checked separately by the Require* helpers so offline commands work
// without them.
func (c *Config) Validate() error {
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateCaptions(); err != nil {
		return err
	}
	if err := c.validateTranslate(); err != nil {
		return err
	}
	if err := ensurePositiveMap(map[string]int{
		"captions.fetch_timeout_seconds": c.Captions.FetchTimeoutSeconds,
		"captions.probe_timeout_seconds": c.Captions.ProbeTimeoutSeconds,
		"captions.probe_attempts":        c.Captions.ProbeAttempts,
		"deepgram.timeout_seconds":       c.Deepgram.TimeoutSeconds,
		"player.attach_attempts":         c.Player.AttachAttempts,
		"player.play_wait_seconds":       c.Player.PlayWaitSeconds,
		"player.frame_interval_millis":   c.Player.FrameIntervalMilli,
		"refresh.ttl_minutes":            c.Refresh.TTLMinutes,
		"refresh.interval_minutes":       c.Refresh.IntervalMinutes,
		"refresh.url_lifetime_hours":     c.Refresh.URLLifetimeHrs,
	}); err != nil {
		return err
	}
	if c.Player.NetworkRetries < 0 || c.Player.MediaRecoveries < 0 {
		return errors.New("player.network_retries and player.media_recoveries must be >= 0")
	}
	if c.Captions.CacheTTLMinutes < 0 {
		return errors.New("captions.cache_ttl_minutes must be >= 0")
	}
	return c.validateLogging()
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case "bunny":
		return nil
	case "s3":
		if c.Storage.S3Endpoint == "" {
			return errors.New("storage.s3_endpoint must be set when storage.backend is s3")
		}
		if c.Storage.S3Bucket == "" {
			return errors.New("storage.s3_bucket must be set when storage.backend is s3")
		}
		return nil
	default:
		return fmt.Errorf("storage.backend %q is not supported (use bunny or s3)", c.Storage.Backend)
	}
}

func (c *Config) validateCaptions() error {
	if c.Captions.Tolerance < 0 || c.Captions.Tolerance > 5 {
		return errors.New("captions.tolerance must be between 0 and 5 seconds")
	}
	return nil
}

func (c *Config) validateTranslate() error {
	if c.Translate.RequestsPerSecond <= 0 {
		return errors.New("translate.requests_per_second must be positive")
	}
	if c.Translate.TimeoutSeconds <= 0 {
		return errors.New("translate.timeout_seconds must be positive")
	}
	if c.Translate.BreakerFailures <= 0 {
		return errors.New("translate.breaker_failures must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q is not supported (use console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not supported", c.Logging.Level)
	}
	return nil
}

// RequireBunny reports whether the Stream API credentials are present.
func (c *Config) RequireBunny() error {
	if strings.TrimSpace(c.Bunny.APIKey) == "" {
		return missingCredential("bunny.api_key", "BUNNY_API_KEY")
	}
	if strings.TrimSpace(c.Bunny.LibraryID) == "" {
		return missingCredential("bunny.library_id", "BUNNY_LIBRARY_ID")
	}
	return nil
}

// RequireStorage reports whether the configured storage backend can be reached.
func (c *Config) RequireStorage() error {
	if c.Storage.Backend == "s3" {
		if c.Storage.S3AccessKey == "" || c.Storage.S3SecretKey == "" {
			return missingCredential("storage.s3_access_key/storage.s3_secret_key", "S3_ACCESS_KEY/S3_SECRET_KEY")
		}
		return nil
	}
	if strings.TrimSpace(c.Storage.Zone) == "" {
		return missingCredential("storage.zone", "BUNNY_STORAGE_ZONE")
	}
	if strings.TrimSpace(c.Storage.AccessKey) == "" {
		return missingCredential("storage.access_key", "BUNNY_STORAGE_KEY")
	}
	return nil
}

// RequireDeepgram reports whether transcription credentials are present.
func (c *Config) RequireDeepgram() error {
	if strings.TrimSpace(c.Deepgram.APIKey) == "" {
		return missingCredential("deepgram.api_key", "DEEPGRAM_API_KEY")
	}
	return nil
}

// RequireTranslate reports whether translation credentials are present.
func (c *Config) RequireTranslate() error {
	if strings.TrimSpace(c.Translate.APIKey) == "" {
		return missingCredential("translate.api_key", "GOOGLE_TRANSLATE_API_KEY")
	}
	return nil
}

// RequireSigning reports whether signed playlist URLs can be generated.
func (c *Config) RequireSigning() error {
	if strings.TrimSpace(c.Bunny.CDNHostname) == "" {
		return missingCredential("bunny.cdn_hostname", "BUNNY_CDN_HOSTNAME")
	}
	if strings.TrimSpace(c.Bunny.TokenSecurityKey) == "" {
		return missingCredential("bunny.token_security_key", "BUNNY_TOKEN_SECURITY_KEY")
	}
	return nil
}

func missingCredential(key, env string) error {
	defaultPath, err := DefaultConfigPath()
	if err != nil {
		defaultPath = "~/.config/captionsync/config.toml"
	}
	return fmt.Errorf("%s is required. Set %s env var or edit %s (create with 'captionsync config init')", key, env, defaultPath)
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
