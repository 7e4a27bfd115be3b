package cache

import (
	"sync"
	"sync/atomic"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/rs/zerolog"

	"wasmcache/internal/fingerprint"
)

// LRUCache is a fixed-capacity, least-recently-used ModuleCache safe for
// concurrent use. All bookkeeping happens under one mutex; callers compile
// and deserialize outside of it.
type LRUCache struct {
	lru       *simplelru.LRU[fingerprint.Fingerprint, Outcome]
	evictions atomic.Uint64
	logger    zerolog.Logger
	mu        sync.Mutex
}

// NewLRUCache creates an LRU cache holding up to size outcomes
func NewLRUCache(size int, logger zerolog.Logger) (*LRUCache, error) {
	c := &LRUCache{
		logger: logger.With().Str("component", "module-cache").Logger(),
	}

	l, err := simplelru.NewLRU[fingerprint.Fingerprint, Outcome](size, c.onEvict)
	if err != nil {
		return nil, err
	}
	c.lru = l

	return c, nil
}

// Get retrieves an outcome and marks it as recently used
func (c *LRUCache) Get(fp fingerprint.Fingerprint) (Outcome, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Get(fp)
}

// Add stores an outcome
func (c *LRUCache) Add(fp fingerprint.Fingerprint, outcome Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(fp, outcome)
}

// Contains reports whether fp is cached without updating its recency
func (c *LRUCache) Contains(fp fingerprint.Fingerprint) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Contains(fp)
}

// Len returns the number of cached outcomes
func (c *LRUCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Purge removes every entry
func (c *LRUCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}

// Evictions returns how many entries were evicted, including by Purge
func (c *LRUCache) Evictions() uint64 {
	return c.evictions.Load()
}

// onEvict runs under c.mu
func (c *LRUCache) onEvict(fp fingerprint.Fingerprint, _ Outcome) {
	c.evictions.Add(1)
	c.logger.Debug().Str("fingerprint", fp.String()).Msg("evicted resolved contract")
}

// NoopCache is a ModuleCache that stores nothing (used when the in-memory
// cache is disabled)
type NoopCache struct{}

// NewNoopCache creates a new no-op cache
func NewNoopCache() *NoopCache {
	return &NoopCache{}
}

// Get always returns not found
func (nc *NoopCache) Get(fp fingerprint.Fingerprint) (Outcome, bool) {
	return Outcome{}, false
}

// Add does nothing
func (nc *NoopCache) Add(fp fingerprint.Fingerprint, outcome Outcome) {}

// Len always returns zero
func (nc *NoopCache) Len() int {
	return 0
}

// Purge does nothing
func (nc *NoopCache) Purge() {}
