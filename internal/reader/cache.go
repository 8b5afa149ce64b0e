package reader

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/woozymasta/geoview/internal/geo"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Cache memoizes feature collections by source location.
// Collections are immutable, so cached values are shared between callers.
// Failed reads are not cached.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*geo.FeatureCollection
	hits    int
	misses  int
}

// CacheStats reports cache usage.
type CacheStats struct {
	Entries int
	Hits    int
	Misses  int
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*geo.FeatureCollection)}
}

// Read returns the cached collection for src or reads and stores it.
func (c *Cache) Read(ctx context.Context, src Source) (*geo.FeatureCollection, error) {
	key := src.Location()

	c.mu.Lock()
	if fc, ok := c.entries[key]; ok {
		c.hits++
		c.mu.Unlock()
		log.Trace().Str("source", key).Msg("Collection cache hit")
		return fc, nil
	}
	c.misses++
	c.mu.Unlock()

	fc, err := src.Read(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = fc
	c.mu.Unlock()

	return fc, nil
}

// Invalidate drops the entry for location.
func (c *Cache) Invalidate(location string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, location)
}

// Stats returns a snapshot of cache counters.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Entries: len(c.entries), Hits: c.hits, Misses: c.misses}
}

// DiskCache stores fetched remote documents on disk so repeated runs do not
// hit the remote server again. Local paths pass straight through.
type DiskCache struct {
	Dir   string
	Next  Fetcher
	Force bool // refetch even when a cached copy exists
}

// NewDiskCache wraps next with an on-disk cache rooted at dir.
func NewDiskCache(dir string, next Fetcher, force bool) *DiskCache {
	return &DiskCache{Dir: dir, Next: next, Force: force}
}

// Path returns the cache file used for location.
func (c *DiskCache) Path(location string) string {
	key := uuid.NewSHA1(uuid.NameSpaceURL, []byte(location))
	return filepath.Join(c.Dir, key.String()+".json")
}

// Fetch implements Fetcher.
func (c *DiskCache) Fetch(ctx context.Context, location string) ([]byte, error) {
	if !IsRemote(location) {
		return c.Next.Fetch(ctx, location)
	}

	path := c.Path(location)
	if !c.Force {
		if data, err := os.ReadFile(path); err == nil {
			log.Debug().Str("source", location).Str("path", path).Msg("Using cached copy")
			return data, nil
		}
	}

	data, err := c.Next.Fetch(ctx, location)
	if err != nil {
		return nil, err
	}

	if err := c.store(path, data); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to write cache file")
	}

	return data, nil
}

// store writes through a uniquely named temporary file and renames it into place.
func (c *DiskCache) store(path string, data []byte) error {
	if err := os.MkdirAll(c.Dir, 0755); err != nil {
		return err
	}

	tmp := path + "." + uuid.NewString() + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	return nil
}
