package usage

import (
	"sync"
	"time"
)

// DefaultSnapshotTTL bounds how stale a cached snapshot may be before the
// ledger is re-queried.
const DefaultSnapshotTTL = 5 * time.Minute

// MemoryCache is the in-process SnapshotCache. Entries expire after the TTL
// or when the tenant's usage changes, whichever comes first.
type MemoryCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[CacheKey]cachedSnapshot
}

type cachedSnapshot struct {
	snap     Snapshot
	storedAt time.Time
}

// NewMemoryCache creates a snapshot cache. Non-positive ttl falls back to
// DefaultSnapshotTTL.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	return &MemoryCache{
		ttl:     ttl,
		entries: make(map[CacheKey]cachedSnapshot),
	}
}

// Get returns a fresh snapshot for the key, if one is cached.
func (c *MemoryCache) Get(key CacheKey) (Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || time.Since(entry.storedAt) >= c.ttl {
		return Snapshot{}, false
	}
	return entry.snap, true
}

// Put stores a snapshot, replacing any existing entry for the key.
func (c *MemoryCache) Put(key CacheKey, snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cachedSnapshot{snap: snap, storedAt: time.Now()}
}

// InvalidateClient drops all entries for a tenant, across every day and
// month key.
func (c *MemoryCache) InvalidateClient(clientID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if key.ClientID == clientID {
			delete(c.entries, key)
		}
	}
}
