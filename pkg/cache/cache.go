// Package cache holds table metadata lookups so that repeated ACID checks
// against the same table do not round-trip to the engine.
package cache

import (
	"strings"
	"sync"
	"time"
)

// Cache defines the interface for caching table property maps
type Cache interface {
	// Get returns the cached properties for key and whether they were found
	Get(key string) (map[string]string, bool)
	// Put stores properties for key
	Put(key string, props map[string]string)
	// Delete removes key
	Delete(key string)
	// DeletePrefix removes every key starting with prefix and returns how
	// many were removed
	DeletePrefix(prefix string) int
	// Clear removes all entries
	Clear()
	// Stats returns a snapshot of cache statistics
	Stats() Stats
}

// entry is a single cached property map with its bookkeeping times.
type entry struct {
	props     map[string]string
	expiresAt time.Time
	lastUsed  time.Time
}

// PropertyCache is an in-memory TTL cache with least-recently-used eviction.
type PropertyCache struct {
	mu         sync.Mutex
	entries    map[string]*entry
	maxEntries int
	ttl        time.Duration
	stats      *StatsCollector
	now        func() time.Time
}

// NewPropertyCache creates a cache from cfg. A nil cfg uses DefaultConfig.
func NewPropertyCache(cfg *Config) *PropertyCache {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := &PropertyCache{
		entries:    make(map[string]*entry),
		maxEntries: cfg.MaxEntries,
		ttl:        cfg.TTL,
		now:        time.Now,
	}
	if cfg.EnableStats {
		c.stats = NewStatsCollector()
	}
	return c
}

// Get returns a copy of the cached properties. Expired entries count as misses.
func (c *PropertyCache) Get(key string) (map[string]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if ok && c.ttl > 0 && !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		c.recordSize()
		ok = false
	}
	if !ok {
		if c.stats != nil {
			c.stats.RecordMiss()
		}
		return nil, false
	}

	e.lastUsed = c.now()
	if c.stats != nil {
		c.stats.RecordHit()
	}
	return copyProps(e.props), true
}

// Put stores a copy of props under key, evicting the least recently used
// entry when the cache is full.
func (c *PropertyCache) Put(key string, props map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.evictOldest()
	}

	now := c.now()
	c.entries[key] = &entry{
		props:     copyProps(props),
		expiresAt: now.Add(c.ttl),
		lastUsed:  now,
	}
	c.recordSize()
}

// Delete removes key from the cache
func (c *PropertyCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
	c.recordSize()
}

// DeletePrefix removes every key that starts with prefix.
func (c *PropertyCache) DeletePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			n++
		}
	}
	c.recordSize()
	return n
}

// Clear removes all entries from the cache
func (c *PropertyCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*entry)
	c.recordSize()
}

// Len returns the number of entries, expired ones included.
func (c *PropertyCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns cache statistics. It is zero when stats are disabled.
func (c *PropertyCache) Stats() Stats {
	if c.stats == nil {
		return Stats{}
	}
	return c.stats.GetStats()
}

// evictOldest removes the least recently used entry. Callers hold mu.
func (c *PropertyCache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, e := range c.entries {
		if oldestKey == "" || e.lastUsed.Before(oldestTime) {
			oldestKey = key
			oldestTime = e.lastUsed
		}
	}

	if oldestKey != "" {
		delete(c.entries, oldestKey)
		if c.stats != nil {
			c.stats.RecordEviction()
		}
	}
}

func (c *PropertyCache) recordSize() {
	if c.stats != nil {
		c.stats.UpdateSize(int64(len(c.entries)))
	}
}

func copyProps(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
