package testsupport

import (
	"path/filepath"
	"testing"

	"captionsync/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Vendor credentials are filled with placeholders so Require* checks pass.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.CacheDir = filepath.Join(base, "cache")
	cfgVal.Paths.LockPath = filepath.Join(base, "refresh.lock")
	cfgVal.Bunny.APIKey = "test-api-key"
	cfgVal.Bunny.LibraryID = "1234"
	cfgVal.Bunny.CDNHostname = "vz-test.b-cdn.net"
	cfgVal.Bunny.TokenSecurityKey = "test-security-key"
	cfgVal.Storage.Zone = "test-zone"
	cfgVal.Storage.AccessKey = "test-storage-key"
	cfgVal.Deepgram.APIKey = "test-deepgram-key"
	cfgVal.Translate.APIKey = "test-translate-key"
	cfgVal.Server.Bind = "127.0.0.1:0"

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithVendorServer points every vendor base URL at a single test server.
func WithVendorServer(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Bunny.APIBaseURL = url
		b.cfg.Storage.BaseURL = url
		b.cfg.Deepgram.BaseURL = url
		b.cfg.Translate.BaseURL = url
	}
}

// WithLanguages overrides the requested caption languages.
func WithLanguages(langs ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Captions.Languages = append([]string(nil), langs...)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.LogDir)
}
