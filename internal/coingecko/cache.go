package coingecko

import (
	"maps"
	"sync"
	"time"

	"github.com/Tonic56/cryptofolio/internal/models"
)

type cacheEntry struct {
	quotes     map[string]models.Quote
	capturedAt time.Time
}

// priceCache keeps one entry per normalized id set. Entries are only expired on read.
type priceCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry
}

func newPriceCache(ttl time.Duration) *priceCache {
	return &priceCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

func (c *priceCache) get(key string) (map[string]models.Quote, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok || c.now().Sub(entry.capturedAt) >= c.ttl {
		return nil, false
	}
	return maps.Clone(entry.quotes), true
}

func (c *priceCache) set(key string, quotes map[string]models.Quote) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		quotes:     maps.Clone(quotes),
		capturedAt: c.now(),
	}
}
