package captions

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"captionsync/internal/cache"
	"captionsync/internal/metrics"
)

// CacheNamespace holds fetched caption documents in the shared store.
const CacheNamespace = "captions"

type cachedDocument struct {
	Source Source `json:"source"`
	Body   string `json:"body"`
}

// Cache keeps fetched caption documents in the SQLite store so repeat
// resolutions within the TTL skip the network. Bodies are stored raw and
// re-parsed on load.
type Cache struct {
	store   *cache.Store
	ttl     time.Duration
	metrics *metrics.Metrics
}

// NewCache wraps store with the given TTL. A nil store yields a nil Cache,
// which never hits.
func NewCache(store *cache.Store, ttl time.Duration, m *metrics.Metrics) *Cache {
	if store == nil || ttl <= 0 {
		return nil
	}
	return &Cache{store: store, ttl: ttl, metrics: m}
}

func cacheKey(videoID, lang string) string {
	return videoID + "/" + lang
}

// Load returns a fresh cached document for videoID and lang.
func (c *Cache) Load(ctx context.Context, videoID, lang string) (Source, string, bool) {
	if c == nil {
		return Source{}, "", false
	}
	entry, fresh, err := c.store.Get(ctx, CacheNamespace, cacheKey(videoID, lang), c.ttl)
	if err != nil || !fresh {
		c.metrics.CacheLookup(CacheNamespace, false)
		return Source{}, "", false
	}
	var doc cachedDocument
	if err := json.Unmarshal(entry.Value, &doc); err != nil {
		c.metrics.CacheLookup(CacheNamespace, false)
		return Source{}, "", false
	}
	c.metrics.CacheLookup(CacheNamespace, true)
	doc.Source.Cached = true
	return doc.Source, doc.Body, true
}

// Save stores a resolved document.
func (c *Cache) Save(ctx context.Context, videoID string, source Source, body string) error {
	if c == nil {
		return nil
	}
	source.Cached = false
	payload, err := json.Marshal(cachedDocument{Source: source, Body: body})
	if err != nil {
		return fmt.Errorf("encode cached captions: %w", err)
	}
	return c.store.Put(ctx, CacheNamespace, cacheKey(videoID, source.Language), payload)
}

// Forget drops cached documents for the listed languages of videoID.
func (c *Cache) Forget(ctx context.Context, videoID string, languages []string) error {
	if c == nil {
		return nil
	}
	for _, lang := range languages {
		if err := c.store.Delete(ctx, CacheNamespace, cacheKey(videoID, lang)); err != nil {
			return err
		}
	}
	return nil
}
