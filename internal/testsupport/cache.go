package testsupport

import (
	"path/filepath"
	"testing"

	"captionsync/internal/cache"
	"captionsync/internal/clock"
)

// MustOpenCache opens a cache.Store in a temp directory and registers cleanup.
func MustOpenCache(t testing.TB, clk clock.Clock) *cache.Store {
	t.Helper()

	store, err := cache.OpenPath(filepath.Join(t.TempDir(), "cache.db"), clk)
	if err != nil {
		t.Fatalf("cache.OpenPath: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
