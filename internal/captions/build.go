package captions

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"captionsync/internal/bunny"
	"captionsync/internal/cache"
	"captionsync/internal/config"
	"captionsync/internal/metrics"
	"captionsync/internal/objectstore"
	"captionsync/internal/retry"
)

// Backend is a storage backend that can be probed and written to.
type Backend interface {
	Prober
	Put(ctx context.Context, videoID, file string, body []byte) error
}

// NewBackend constructs the storage backend selected by storage.backend.
func NewBackend(cfg *config.Config) (Backend, error) {
	if err := cfg.RequireStorage(); err != nil {
		return nil, err
	}
	switch cfg.Storage.Backend {
	case "s3":
		store, err := objectstore.New(objectstore.Config{
			Endpoint:  cfg.Storage.S3Endpoint,
			Bucket:    cfg.Storage.S3Bucket,
			Prefix:    cfg.Storage.S3Prefix,
			AccessKey: cfg.Storage.S3AccessKey,
			SecretKey: cfg.Storage.S3SecretKey,
			Region:    cfg.Storage.S3Region,
			UseSSL:    cfg.Storage.S3UseSSL,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	case "", "bunny":
		storage, err := bunny.NewStorage(bunny.StorageConfig{
			BaseURL:   cfg.Storage.BaseURL,
			Zone:      cfg.Storage.Zone,
			AccessKey: cfg.Storage.AccessKey,
		})
		if err != nil {
			return nil, err
		}
		return storage, nil
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
	}
}

// NewBunnyClient builds the Stream API client from configuration.
func NewBunnyClient(cfg *config.Config) (*bunny.Client, error) {
	if err := cfg.RequireBunny(); err != nil {
		return nil, err
	}
	return bunny.New(bunny.Config{
		APIKey:           cfg.Bunny.APIKey,
		LibraryID:        cfg.Bunny.LibraryID,
		BaseURL:          cfg.Bunny.APIBaseURL,
		CDNHostname:      cfg.Bunny.CDNHostname,
		TokenSecurityKey: cfg.Bunny.TokenSecurityKey,
	})
}

// FromConfig wires a Resolver with the configured Stream client, storage
// backend and optional cache.
func FromConfig(cfg *config.Config, store *cache.Store, m *metrics.Metrics, logger *slog.Logger) (*Resolver, error) {
	client, err := NewBunnyClient(cfg)
	if err != nil {
		return nil, err
	}
	backend, err := NewBackend(cfg)
	if err != nil {
		return nil, err
	}
	c := cfg.Captions
	return NewResolver(client, backend, Options{
		FetchTimeout: time.Duration(c.FetchTimeoutSeconds) * time.Second,
		ProbeTimeout: time.Duration(c.ProbeTimeoutSeconds) * time.Second,
		ProbePolicy:  retry.Exponential(c.ProbeAttempts, 250*time.Millisecond, 2*time.Second),
		Cache:        NewCache(store, time.Duration(c.CacheTTLMinutes)*time.Minute, m),
		Metrics:      m,
		Logger:       logger,
	}), nil
}
