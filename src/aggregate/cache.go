package aggregate

import (
	"sync"
	"time"

	"volume-tracker/src/models"
)

// -----------------------------------------------------------------------------
// RunCache is a bounded recency cache of computed minutes keyed by
// (symbol, minute). It is owned by one orchestrator run; a fresh run starts
// with a fresh cache. Eviction is insertion-order over a fixed ring.
// -----------------------------------------------------------------------------

type cacheKey struct {
	symbol string
	minute int64
}

type RunCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[cacheKey]models.MMinute
	ring     []cacheKey
	head     int
	size     int
}

// -----------------------------------------------------------------------------

func NewRunCache(capacity int) *RunCache {
	if capacity <= 0 {
		capacity = 1
	}
	return &RunCache{
		capacity: capacity,
		entries:  make(map[cacheKey]models.MMinute, capacity),
		ring:     make([]cacheKey, capacity),
	}
}

// -----------------------------------------------------------------------------

func (c *RunCache) Get(symbol string, minute time.Time) (models.MMinute, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.entries[cacheKey{symbol: symbol, minute: minute.Unix()}]
	return m, ok
}

// -----------------------------------------------------------------------------

func (c *RunCache) Put(m models.MMinute) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey{symbol: m.Symbol, minute: m.Time.Unix()}
	if _, exists := c.entries[key]; exists {
		c.entries[key] = m
		return
	}

	if c.size == c.capacity {
		delete(c.entries, c.ring[c.head])
	} else {
		c.size++
	}
	c.ring[c.head] = key
	c.head = (c.head + 1) % c.capacity

	c.entries[key] = m
}

// -----------------------------------------------------------------------------

func (c *RunCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}
