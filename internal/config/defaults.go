package config

const (
	defaultLogDir              = "~/.local/share/captionsync/logs"
	defaultCacheDir            = "~/.local/share/captionsync/cache"
	defaultLockPath            = "~/.local/share/captionsync/refresh.lock"
	defaultBunnyAPIBaseURL     = "https://video.bunnycdn.com"
	defaultStorageBackend      = "bunny"
	defaultStorageBaseURL      = "https://storage.bunnycdn.com"
	defaultS3Region            = "us-east-1"
	defaultFetchTimeoutSeconds = 30
	defaultProbeTimeoutSeconds = 10
	defaultProbeAttempts       = 1
	defaultCacheTTLMinutes     = 15
	defaultTolerance           = 0.1
	defaultDeepgramBaseURL     = "https://api.deepgram.com"
	defaultDeepgramModel       = "nova-2"
	defaultDeepgramTimeout     = 300
	defaultTranslateBaseURL    = "https://translation.googleapis.com/language/translate/v2"
	defaultTranslateRPS        = 10
	defaultTranslateTimeout    = 30
	defaultBreakerFailures     = 5
	defaultAttachAttempts      = 5
	defaultAttachDelayMillis   = 200
	defaultPlayWaitSeconds     = 5
	defaultNetworkRetries      = 3
	defaultMediaRecoveries     = 2
	defaultRetryDelayMillis    = 1000
	defaultFrameIntervalMillis = 16
	defaultServerBind          = "127.0.0.1:7497"
	defaultRefreshTTLMinutes   = 60
	defaultRefreshInterval     = 10
	defaultURLLifetimeHours    = 6
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

var defaultLanguages = []string{"en", "es", "pt"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:   defaultLogDir,
			CacheDir: defaultCacheDir,
			LockPath: defaultLockPath,
		},
		Bunny: Bunny{
			APIBaseURL: defaultBunnyAPIBaseURL,
		},
		Storage: Storage{
			Backend:  defaultStorageBackend,
			BaseURL:  defaultStorageBaseURL,
			S3Region: defaultS3Region,
			S3UseSSL: true,
		},
		Captions: Captions{
			Languages:           append([]string(nil), defaultLanguages...),
			FetchTimeoutSeconds: defaultFetchTimeoutSeconds,
			ProbeTimeoutSeconds: defaultProbeTimeoutSeconds,
			ProbeAttempts:       defaultProbeAttempts,
			CacheTTLMinutes:     defaultCacheTTLMinutes,
			Tolerance:           defaultTolerance,
		},
		Deepgram: Deepgram{
			BaseURL:        defaultDeepgramBaseURL,
			Model:          defaultDeepgramModel,
			TimeoutSeconds: defaultDeepgramTimeout,
		},
		Translate: Translate{
			BaseURL:           defaultTranslateBaseURL,
			Targets:           []string{"es", "pt"},
			RequestsPerSecond: defaultTranslateRPS,
			TimeoutSeconds:    defaultTranslateTimeout,
			BreakerFailures:   defaultBreakerFailures,
		},
		Player: Player{
			AttachAttempts:     defaultAttachAttempts,
			AttachDelayMillis:  defaultAttachDelayMillis,
			PlayWaitSeconds:    defaultPlayWaitSeconds,
			NetworkRetries:     defaultNetworkRetries,
			MediaRecoveries:    defaultMediaRecoveries,
			RetryDelayMillis:   defaultRetryDelayMillis,
			FrameIntervalMilli: defaultFrameIntervalMillis,
		},
		Server: Server{
			Bind: defaultServerBind,
		},
		Refresh: Refresh{
			TTLMinutes:      defaultRefreshTTLMinutes,
			IntervalMinutes: defaultRefreshInterval,
			URLLifetimeHrs:  defaultURLLifetimeHours,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
