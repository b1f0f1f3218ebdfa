package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and file locations.
type Paths struct {
	LogDir   string `toml:"log_dir"`
	CacheDir string `toml:"cache_dir"`
	LockPath string `toml:"lock_path"`
}

// Bunny contains Bunny.net Stream API configuration.
type Bunny struct {
	APIKey           string `toml:"api_key"`
	LibraryID        string `toml:"library_id"`
	APIBaseURL       string `toml:"api_base_url"`
	CDNHostname      string `toml:"cdn_hostname"`
	TokenSecurityKey string `toml:"token_security_key"`
}

// Storage selects and configures the raw caption object store.
type Storage struct {
	// Backend is "bunny" (Bunny storage zone over HTTP) or "s3".
	Backend   string `toml:"backend"`
	BaseURL   string `toml:"base_url"`
	Zone      string `toml:"zone"`
	AccessKey string `toml:"access_key"`

	S3Endpoint  string `toml:"s3_endpoint"`
	S3Bucket    string `toml:"s3_bucket"`
	S3Prefix    string `toml:"s3_prefix"`
	S3AccessKey string `toml:"s3_access_key"`
	S3SecretKey string `toml:"s3_secret_key"`
	S3Region    string `toml:"s3_region"`
	S3UseSSL    bool   `toml:"s3_use_ssl"`
}

// Captions contains caption discovery settings.
type Captions struct {
	Languages           []string `toml:"languages"`
	FetchTimeoutSeconds int      `toml:"fetch_timeout_seconds"`
	ProbeTimeoutSeconds int      `toml:"probe_timeout_seconds"`
	ProbeAttempts       int      `toml:"probe_attempts"`
	CacheTTLMinutes     int      `toml:"cache_ttl_minutes"`
	Tolerance           float64  `toml:"tolerance"`
}

// Deepgram contains speech-to-text configuration.
type Deepgram struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Translate contains machine translation configuration.
type Translate struct {
	APIKey            string   `toml:"api_key"`
	BaseURL           string   `toml:"base_url"`
	Targets           []string `toml:"targets"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
	TimeoutSeconds    int      `toml:"timeout_seconds"`
	BreakerFailures   int      `toml:"breaker_failures"`
}

// Player contains playback adapter tuning.
type Player struct {
	AttachAttempts     int `toml:"attach_attempts"`
	AttachDelayMillis  int `toml:"attach_delay_millis"`
	PlayWaitSeconds    int `toml:"play_wait_seconds"`
	NetworkRetries     int `toml:"network_retries"`
	MediaRecoveries    int `toml:"media_recoveries"`
	RetryDelayMillis   int `toml:"retry_delay_millis"`
	FrameIntervalMilli int `toml:"frame_interval_millis"`
}

// Server contains HTTP API settings.
type Server struct {
	Bind string `toml:"bind"`
}

// Refresh contains the signed HLS URL refresher settings.
type Refresh struct {
	VideoIDs        []string `toml:"video_ids"`
	TTLMinutes      int      `toml:"ttl_minutes"`
	IntervalMinutes int      `toml:"interval_minutes"`
	URLLifetimeHrs  int      `toml:"url_lifetime_hours"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for captionsync.
//
// Configuration sections by subsystem:
//   - Paths: log, cache, and lock locations
//   - Bunny: Stream API credentials and CDN hostname
//   - Storage: raw caption object store (Bunny storage zone or S3)
//   - Captions: requested languages, fetch budgets, cue tolerance
//   - Deepgram: word-level transcription
//   - Translate: Google Translate REST settings
//   - Player: playback adapter retry and polling budgets
//   - Server: HTTP API bind address
//   - Refresh: signed HLS URL refresher
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	Bunny     Bunny     `toml:"bunny"`
	Storage   Storage   `toml:"storage"`
	Captions  Captions  `toml:"captions"`
	Deepgram  Deepgram  `toml:"deepgram"`
	Translate Translate `toml:"translate"`
	Player    Player    `toml:"player"`
	Server    Server    `toml:"server"`
	Refresh   Refresh   `toml:"refresh"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return ExpandPath("~/.config/captionsync/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if err := loadDotEnv(filepath.Dir(resolvedPath)); err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := ExpandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("captionsync.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// loadDotEnv loads KEY=value pairs from a .env file beside the config and in
// the working directory. Variables already present in the environment win.
func loadDotEnv(configDir string) error {
	candidates := []string{filepath.Join(configDir, ".env"), ".env"}
	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}
		info, err := os.Stat(abs)
		if err != nil || info.IsDir() {
			continue
		}
		if err := godotenv.Load(abs); err != nil {
			return fmt.Errorf("load env file %s: %w", abs, err)
		}
	}
	return nil
}

// EnsureDirectories creates required directories for CLI and server operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LogDir, c.Paths.CacheDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if dir := filepath.Dir(c.Paths.LockPath); strings.TrimSpace(c.Paths.LockPath) != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create lock directory %q: %w", dir, err)
		}
	}
	return nil
}

// CachePath returns the SQLite cache database location.
func (c *Config) CachePath() string {
	return filepath.Join(c.Paths.CacheDir, "captionsync.db")
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// ExpandPath expands a leading tilde and returns an absolute, cleaned path.
func ExpandPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", path, err)
	}
	return filepath.Clean(abs), nil
}
