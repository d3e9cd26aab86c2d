// cache.go — short-TTL single-frame cache that suppresses redundant full
// captures when several callers request the same (source, region, format)
// within a ~100ms window (spec §4.1). Bypassed entirely by live streams,
// which always want a fresh frame.
package capture

import (
	"fmt"
	"sync"
	"time"
)

// DefaultTTL matches the spec's "≈100 ms" cache window.
const DefaultTTL = 100 * time.Millisecond

type syncCacheEntry struct {
	frame    RawFrame
	insertedAt time.Time
}

// SyncCache is a tiny TTL cache keyed by capture parameters, not content —
// distinct from rcache.ResourceCache, which is the long-lived, content-
// addressed store that backs resources/read.
type SyncCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]syncCacheEntry
	now     func() time.Time
}

// NewSyncCache constructs a SyncCache with the given TTL (DefaultTTL if <= 0).
func NewSyncCache(ttl time.Duration) *SyncCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &SyncCache{ttl: ttl, entries: make(map[string]syncCacheEntry), now: time.Now}
}

// Key derives the cache key from (source, region, format) per spec §4.1.
func Key(source string, region *Region, format Format) string {
	if region == nil {
		return fmt.Sprintf("%s|full|%s", source, format)
	}
	return fmt.Sprintf("%s|%d,%d,%d,%d|%s", source, region.X, region.Y, region.Width, region.Height, format)
}

// Get returns the cached RawFrame for key if it was inserted within the TTL.
func (c *SyncCache) Get(key string) (RawFrame, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return RawFrame{}, false
	}
	if c.now().Sub(e.insertedAt) > c.ttl {
		delete(c.entries, key)
		return RawFrame{}, false
	}
	return e.frame, true
}

// Put stores frame under key, timestamped now.
func (c *SyncCache) Put(key string, frame RawFrame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = syncCacheEntry{frame: frame, insertedAt: c.now()}
}
