package currency

import (
	"sync"
	"time"
)

// cacheEntry is a fetched exchange rate.
type cacheEntry struct {
	fetched time.Time
	rate    float64
}

// rateCache holds exchange rates by currency pair. Expired entries are kept
// so a stale rate can stand in when the source is unreachable.
type rateCache struct {
	entries map[string]cacheEntry
	now     func() time.Time
	ttl     time.Duration
	mu      sync.RWMutex
}

func newRateCache(ttl time.Duration) *rateCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &rateCache{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
		ttl:     ttl,
	}
}

func pairKey(from, to string) string {
	return from + "/" + to
}

// get returns a rate fetched within the TTL.
func (c *rateCache) get(from, to string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[pairKey(from, to)]
	if !ok || c.now().Sub(entry.fetched) > c.ttl {
		return 0, false
	}
	return entry.rate, true
}

// getStale returns the last fetched rate regardless of age.
func (c *rateCache) getStale(from, to string) (float64, time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[pairKey(from, to)]
	return entry.rate, entry.fetched, ok
}

func (c *rateCache) set(from, to string, rate float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[pairKey(from, to)] = cacheEntry{rate: rate, fetched: c.now()}
}

func (c *rateCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
