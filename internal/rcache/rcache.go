// rcache.go — bounded, content-addressed cache of encoded frames. The sole
// handoff point between frame producers and frame readers (spec §4.2).
package rcache

import (
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCapacity is the minimum capacity spec §4.2 requires: enough to hold
// a few seconds of frames from the highest-configured-fps stream.
const DefaultCapacity = 120

// EncodedFrame is the immutable payload a CacheEntry wraps.
type EncodedFrame struct {
	Bytes    []byte
	Mime     string // "image/png" or "image/jpeg"
	Metadata map[string]any
}

// CacheEntry is what a URI resolves to.
type CacheEntry struct {
	URI   string
	Frame EncodedFrame
}

// ResourceCache is a strict-LRU, content-addressed store of EncodedFrames.
// Reads never block writers and vice versa beyond the underlying lru.Cache's
// own internal locking; a concurrent reader always observes either the full
// entry or a clean miss, never a torn value, because entries are immutable
// once inserted.
type ResourceCache struct {
	cache *lru.Cache[string, CacheEntry]
	seq   uint64 // monotonic counter, disambiguates same-nanosecond inserts
}

// New constructs a ResourceCache with the given capacity (entries).
func New(capacity int) (*ResourceCache, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c, err := lru.New[string, CacheEntry](capacity)
	if err != nil {
		return nil, fmt.Errorf("rcache: %w", err)
	}
	return &ResourceCache{cache: c}, nil
}

// Insert stores frame under a freshly derived URI and returns it. The URI is
// opaque and matches ^screen://capture/[a-f0-9]{12}$ (spec §8, scenario 1):
// it is a SHA-1 digest of (monotonic timestamp, source id, dimensions,
// insertion sequence), truncated to 12 hex characters. Collisions under
// normal capture rates are negligible; the sequence counter makes same-
// nanosecond collisions from a fast producer loop impossible.
func (r *ResourceCache) Insert(sourceID string, capturedAtNS int64, width, height int, frame EncodedFrame) string {
	seq := atomic.AddUint64(&r.seq, 1)

	h := sha1.New()
	var tsBuf [8]byte
	binary.BigEndian.PutUint64(tsBuf[:], uint64(capturedAtNS))
	h.Write(tsBuf[:])
	h.Write([]byte(sourceID))
	fmt.Fprintf(h, "%dx%d", width, height)
	binary.BigEndian.PutUint64(tsBuf[:], seq)
	h.Write(tsBuf[:])

	uri := "screen://capture/" + hex.EncodeToString(h.Sum(nil))[:12]

	r.cache.Add(uri, CacheEntry{URI: uri, Frame: frame})
	return uri
}

// Get retrieves an entry by URI. ok is false on a miss or eviction.
func (r *ResourceCache) Get(uri string) (CacheEntry, bool) {
	return r.cache.Get(uri)
}

// Len reports the current number of live entries.
func (r *ResourceCache) Len() int {
	return r.cache.Len()
}

// List returns every live entry, for resources/list. Uses Peek so iterating
// the list doesn't itself perturb LRU recency.
func (r *ResourceCache) List() []CacheEntry {
	keys := r.cache.Keys()
	entries := make([]CacheEntry, 0, len(keys))
	for _, k := range keys {
		if e, ok := r.cache.Peek(k); ok {
			entries = append(entries, e)
		}
	}
	return entries
}

// NowNS is a small helper so producers share one clock for the URI
// derivation above. ResourceCache does not expose its capacity; the
// argument passed to New is the only record of it.
func NowNS() int64 {
	return time.Now().UnixNano()
}
