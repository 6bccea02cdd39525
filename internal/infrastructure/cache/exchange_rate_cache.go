package cache

import (
	"sync"

	"github.com/damon-houk/georgia-tax-declaration/internal/domain/entity"
)

// CacheEntry is a cached lookup outcome: a rate, or a remembered miss
type CacheEntry struct {
	Rate *entity.ExchangeRate
	Miss bool
}

// ExchangeRateCache memoizes rate lookups for a single submission.
// It is created per run and dropped with it; nothing is shared between users.
type ExchangeRateCache struct {
	cache  map[entity.RateQuery]CacheEntry
	hits   int
	misses int
	mutex  sync.RWMutex
}

// NewExchangeRateCache creates a new exchange rate cache
func NewExchangeRateCache() *ExchangeRateCache {
	return &ExchangeRateCache{
		cache: make(map[entity.RateQuery]CacheEntry),
	}
}

// Get returns the cached outcome for query and whether there was one
func (c *ExchangeRateCache) Get(query entity.RateQuery) (CacheEntry, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.cache[query]
	if exists {
		c.hits++
	} else {
		c.misses++
	}
	return entry, exists
}

// Put stores a rate found for query
func (c *ExchangeRateCache) Put(query entity.RateQuery, rate *entity.ExchangeRate) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.cache[query] = CacheEntry{Rate: rate}
}

// PutMiss remembers that no rate is published for query
func (c *ExchangeRateCache) PutMiss(query entity.RateQuery) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.cache[query] = CacheEntry{Miss: true}
}

// Size returns the number of items in the cache
func (c *ExchangeRateCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.cache)
}

// Stats returns the number of lookups answered and not answered by the cache
func (c *ExchangeRateCache) Stats() (hits, misses int) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.hits, c.misses
}
