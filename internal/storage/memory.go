package storage

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/hailam/reversi/internal/eval"
)

// DefaultMemorySize is the entry limit used when none is given.
const DefaultMemorySize = 1 << 20

// MemoryCache is a bounded in-process evaluation cache.
// When full, half of the entries are evicted.
type MemoryCache struct {
	mu      sync.RWMutex
	cache   map[eval.Key]eval.Result
	maxSize int
	hits    atomic.Uint64
	misses  atomic.Uint64
}

// NewMemoryCache creates a cache holding at most size entries.
func NewMemoryCache(size int) *MemoryCache {
	if size <= 0 {
		size = DefaultMemorySize
	}
	return &MemoryCache{
		cache:   make(map[eval.Key]eval.Result),
		maxSize: size,
	}
}

// Get looks up a cached evaluation.
func (c *MemoryCache) Get(_ context.Context, key eval.Key) (eval.Result, bool, error) {
	c.mu.RLock()
	res, ok := c.cache[key]
	c.mu.RUnlock()

	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}

	return res, ok, nil
}

// Put stores an evaluation.
func (c *MemoryCache) Put(_ context.Context, key eval.Key, res eval.Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.cache[key]; !ok && len(c.cache) >= c.maxSize {
		// Simple eviction: clear half the cache
		n := c.maxSize / 2
		if n == 0 {
			n = 1
		}
		i := 0
		for k := range c.cache {
			if i >= n {
				break
			}
			delete(c.cache, k)
			i++
		}
	}
	c.cache[key] = res
	return nil
}

// HitRate returns the cache hit rate as a percentage.
func (c *MemoryCache) HitRate() float64 {
	hits := c.hits.Load()
	total := hits + c.misses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}

// Len returns the current number of cached entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// Clear empties the cache and resets the counters.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[eval.Key]eval.Result)
	c.hits.Store(0)
	c.misses.Store(0)
}

// Close releases nothing; it satisfies CloseCache.
func (c *MemoryCache) Close() error { return nil }
