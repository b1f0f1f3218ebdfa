package config

import (
	"fmt"
	"os"
	"strings"

	"captionsync/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeBunny()
	c.normalizeStorage()
	c.normalizeCaptions()
	c.normalizeDeepgram()
	c.normalizeTranslate()
	c.normalizeServer()
	c.normalizeRefresh()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = ExpandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir
	}
	if c.Paths.CacheDir, err = ExpandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LockPath) == "" {
		c.Paths.LockPath = defaultLockPath
	}
	if c.Paths.LockPath, err = ExpandPath(c.Paths.LockPath); err != nil {
		return fmt.Errorf("paths.lock_path: %w", err)
	}
	return nil
}

func envFallback(current string, keys ...string) string {
	current = strings.TrimSpace(current)
	if current != "" {
		return current
	}
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func (c *Config) normalizeBunny() {
	c.Bunny.APIKey = envFallback(c.Bunny.APIKey, "BUNNY_API_KEY")
	c.Bunny.LibraryID = envFallback(c.Bunny.LibraryID, "BUNNY_LIBRARY_ID")
	c.Bunny.CDNHostname = envFallback(c.Bunny.CDNHostname, "BUNNY_CDN_HOSTNAME")
	c.Bunny.TokenSecurityKey = envFallback(c.Bunny.TokenSecurityKey, "BUNNY_TOKEN_SECURITY_KEY")
	c.Bunny.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.Bunny.APIBaseURL), "/")
	if c.Bunny.APIBaseURL == "" {
		c.Bunny.APIBaseURL = defaultBunnyAPIBaseURL
	}
	c.Bunny.CDNHostname = strings.TrimSuffix(strings.TrimPrefix(c.Bunny.CDNHostname, "https://"), "/")
}

func (c *Config) normalizeStorage() {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = defaultStorageBackend
	}
	c.Storage.BaseURL = strings.TrimRight(strings.TrimSpace(c.Storage.BaseURL), "/")
	if c.Storage.BaseURL == "" {
		c.Storage.BaseURL = defaultStorageBaseURL
	}
	c.Storage.Zone = envFallback(c.Storage.Zone, "BUNNY_STORAGE_ZONE")
	c.Storage.AccessKey = envFallback(c.Storage.AccessKey, "BUNNY_STORAGE_KEY")
	c.Storage.S3Endpoint = envFallback(c.Storage.S3Endpoint, "S3_ENDPOINT")
	c.Storage.S3Bucket = envFallback(c.Storage.S3Bucket, "S3_BUCKET")
	c.Storage.S3AccessKey = envFallback(c.Storage.S3AccessKey, "S3_ACCESS_KEY", "AWS_ACCESS_KEY_ID")
	c.Storage.S3SecretKey = envFallback(c.Storage.S3SecretKey, "S3_SECRET_KEY", "AWS_SECRET_ACCESS_KEY")
	c.Storage.S3Prefix = strings.Trim(strings.TrimSpace(c.Storage.S3Prefix), "/")
	if strings.TrimSpace(c.Storage.S3Region) == "" {
		c.Storage.S3Region = defaultS3Region
	}
}

func (c *Config) normalizeCaptions() {
	c.Captions.Languages = language.NormalizeList(c.Captions.Languages)
	if len(c.Captions.Languages) == 0 {
		c.Captions.Languages = append([]string(nil), defaultLanguages...)
	}
	if c.Captions.Tolerance == 0 {
		c.Captions.Tolerance = defaultTolerance
	}
	if c.Captions.ProbeAttempts == 0 {
		c.Captions.ProbeAttempts = defaultProbeAttempts
	}
}

func (c *Config) normalizeDeepgram() {
	c.Deepgram.APIKey = envFallback(c.Deepgram.APIKey, "DEEPGRAM_API_KEY")
	c.Deepgram.BaseURL = strings.TrimRight(strings.TrimSpace(c.Deepgram.BaseURL), "/")
	if c.Deepgram.BaseURL == "" {
		c.Deepgram.BaseURL = defaultDeepgramBaseURL
	}
	c.Deepgram.Model = strings.TrimSpace(c.Deepgram.Model)
	if c.Deepgram.Model == "" {
		c.Deepgram.Model = defaultDeepgramModel
	}
}

func (c *Config) normalizeTranslate() {
	c.Translate.APIKey = envFallback(c.Translate.APIKey, "GOOGLE_TRANSLATE_API_KEY", "GOOGLE_API_KEY")
	c.Translate.BaseURL = strings.TrimRight(strings.TrimSpace(c.Translate.BaseURL), "/")
	if c.Translate.BaseURL == "" {
		c.Translate.BaseURL = defaultTranslateBaseURL
	}
	c.Translate.Targets = language.NormalizeList(c.Translate.Targets)
}

func (c *Config) normalizeServer() {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultServerBind
	}
}

func (c *Config) normalizeRefresh() {
	ids := make([]string, 0, len(c.Refresh.VideoIDs))
	seen := make(map[string]struct{}, len(c.Refresh.VideoIDs))
	for _, id := range c.Refresh.VideoIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	c.Refresh.VideoIDs = ids
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
