package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"captionsync/internal/cache"
	"captionsync/internal/captions"
	"captionsync/internal/clock"
	"captionsync/internal/config"
	"captionsync/internal/logging"
	"captionsync/internal/metrics"
	"captionsync/internal/transcription"
	"captionsync/internal/transcription/deepgram"
	"captionsync/internal/translate"
)

type commandContext struct {
	configFlag *string
	levelFlag  *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error

	metrics *metrics.Metrics

	storeMu sync.Mutex
	store   *cache.Store
}

func newCommandContext(configFlag, levelFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		levelFlag:  levelFlag,
		metrics:    metrics.New(),
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.levelFlag != nil && strings.TrimSpace(*c.levelFlag) != "" {
			cfg.Logging.Level = strings.TrimSpace(*c.levelFlag)
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

// loggerFor returns the process logger, writing console output to the
// command's stderr so stdout stays clean for tables and JSON.
func (c *commandContext) loggerFor(cmd *cobra.Command) (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		opts := logging.Options{
			Level:  cfg.Logging.Level,
			Format: cfg.Logging.Format,
			Output: cmd.ErrOrStderr(),
		}
		if cfg.Paths.LogDir != "" {
			opts.LogFilePath = filepath.Join(cfg.Paths.LogDir, logging.LogFileName)
		}
		c.logger, c.loggerErr = logging.New(opts)
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) cacheStore() (*cache.Store, error) {
	c.storeMu.Lock()
	defer c.storeMu.Unlock()
	if c.store != nil {
		return c.store, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := cache.Open(cfg, clock.System{})
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	c.store = store
	return store, nil
}

func (c *commandContext) resolver(cmd *cobra.Command) (*captions.Resolver, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.loggerFor(cmd)
	if err != nil {
		return nil, err
	}
	store, err := c.cacheStore()
	if err != nil {
		return nil, err
	}
	return captions.FromConfig(cfg, store, c.metrics, logger)
}

// translator returns the Google client as a TranslateFunc, or nil when no
// translation key is configured.
func (c *commandContext) translator(cmd *cobra.Command) (transcription.TranslateFunc, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if cfg.RequireTranslate() != nil {
		return nil, nil
	}
	logger, err := c.loggerFor(cmd)
	if err != nil {
		return nil, err
	}
	client, err := translate.FromConfig(cfg, c.metrics, logger)
	if err != nil {
		return nil, err
	}
	return client.Translate, nil
}

// pipeline wires whichever of transcription, translation and publishing
// are configured. Missing pieces surface as configuration errors only when
// a request needs them.
func (c *commandContext) pipeline(cmd *cobra.Command) (*transcription.Pipeline, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.loggerFor(cmd)
	if err != nil {
		return nil, err
	}
	var transcriber transcription.Transcriber
	if cfg.RequireDeepgram() == nil {
		client, err := deepgram.FromConfig(cfg)
		if err != nil {
			return nil, err
		}
		transcriber = client
	}
	translateFn, err := c.translator(cmd)
	if err != nil {
		return nil, err
	}
	var publisher transcription.Publisher
	if cfg.RequireStorage() == nil {
		backend, err := captions.NewBackend(cfg)
		if err != nil {
			return nil, err
		}
		publisher = backend
	}
	return transcription.NewPipeline(transcriber, translateFn, publisher, logger), nil
}

func (c *commandContext) close() {
	c.storeMu.Lock()
	defer c.storeMu.Unlock()
	if c.store != nil {
		_ = c.store.Close()
		c.store = nil
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
