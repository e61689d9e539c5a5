package search

import (
	"sync"

	"github.com/poiesic/facetflow/core"
)

// resultCache holds responses keyed by parameter fingerprint.
// The oldest entry is evicted once the cache is full.
type resultCache struct {
	mu      sync.Mutex
	max     int
	entries map[string]*core.SearchResults
	order   []string
}

func newResultCache(max int) *resultCache {
	return &resultCache{
		max:     max,
		entries: make(map[string]*core.SearchResults),
	}
}

func (c *resultCache) get(key string) (*core.SearchResults, bool) {
	if c.max <= 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.entries[key]
	return r, ok
}

func (c *resultCache) put(key string, r *core.SearchResults) {
	if c.max <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.entries[key] = r
		return
	}
	for len(c.order) >= c.max {
		delete(c.entries, c.order[0])
		c.order = c.order[1:]
	}
	c.entries[key] = r
	c.order = append(c.order, key)
}

func (c *resultCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*core.SearchResults)
	c.order = nil
}

func (c *resultCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
