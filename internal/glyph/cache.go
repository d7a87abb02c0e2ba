package glyph

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Cache defaults.
const (
	DefaultCacheSize  = 1024
	DefaultEvictBatch = 64
)

// CacheConfig configures a Cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of runes cached, hits and misses alike.
	MaxEntries int

	// EvictionBatchSize is the number of entries to evict at once.
	EvictionBatchSize int
}

// DefaultCacheConfig returns the default cache configuration.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		MaxEntries:        DefaultCacheSize,
		EvictionBatchSize: DefaultEvictBatch,
	}
}

type cacheEntry struct {
	glyph   Glyph
	ok      bool
	lastUse uint64
}

// Cache memoizes a Service, including misses. It is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	src     Service
	config  CacheConfig
	entries map[rune]*cacheEntry
	tick    uint64

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// NewCache wraps src with a bounded cache.
func NewCache(src Service, config CacheConfig) *Cache {
	if config.MaxEntries <= 0 {
		config.MaxEntries = DefaultCacheSize
	}
	if config.EvictionBatchSize <= 0 {
		config.EvictionBatchSize = DefaultEvictBatch
	}
	return &Cache{
		src:     src,
		config:  config,
		entries: make(map[rune]*cacheEntry),
	}
}

// BitmapFor implements Service.
func (c *Cache) BitmapFor(r rune) (Glyph, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tick++
	if e, ok := c.entries[r]; ok {
		e.lastUse = c.tick
		c.hits.Add(1)
		return e.glyph, e.ok
	}

	c.misses.Add(1)
	g, ok := c.src.BitmapFor(r)
	c.entries[r] = &cacheEntry{glyph: g, ok: ok, lastUse: c.tick}
	c.evictIfNeeded()
	return g, ok
}

// Invalidate drops every cached entry.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

// evictIfNeeded drops the least recently used entries (must hold lock).
func (c *Cache) evictIfNeeded() {
	if len(c.entries) <= c.config.MaxEntries {
		return
	}

	type entryInfo struct {
		r       rune
		lastUse uint64
	}
	infos := make([]entryInfo, 0, len(c.entries))
	for r, e := range c.entries {
		infos = append(infos, entryInfo{r, e.lastUse})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].lastUse < infos[j].lastUse
	})

	toEvict := min(len(c.entries)-c.config.MaxEntries+c.config.EvictionBatchSize, len(infos))
	for i := 0; i < toEvict; i++ {
		delete(c.entries, infos[i].r)
	}
	c.evictions.Add(uint64(toEvict))
}

// Stats returns cache statistics.
func (c *Cache) Stats() CacheStats {
	hits := c.hits.Load()
	misses := c.misses.Load()

	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return CacheStats{
		Size:      len(c.entries),
		MaxSize:   c.config.MaxEntries,
		Hits:      hits,
		Misses:    misses,
		Evictions: c.evictions.Load(),
		HitRate:   hitRate,
	}
}

// CacheStats holds cache statistics.
type CacheStats struct {
	Size      int
	MaxSize   int
	Hits      uint64
	Misses    uint64
	Evictions uint64
	HitRate   float64
}
