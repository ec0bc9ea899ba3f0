package cache

import (
	"context"
	"sync"
	"time"

	"github.com/openmarkets/market-hub/internal/domain"
)

// MemoryPriceCache is an in-process price cache for deployments without
// Redis. Expired entries are dropped lazily on read.
type MemoryPriceCache struct {
	mu  sync.RWMutex
	ttl time.Duration

	entries map[domain.Ticker]memoryEntry
}

type memoryEntry struct {
	price     domain.AssetPrice
	expiresAt time.Time
}

// NewMemoryPriceCache creates an empty in-memory cache. ttl bounds quote
// staleness; values at or below zero disable expiry.
func NewMemoryPriceCache(ttl time.Duration) *MemoryPriceCache {
	return &MemoryPriceCache{
		ttl:     ttl,
		entries: make(map[domain.Ticker]memoryEntry),
	}
}

// Get returns the cached price for a ticker, or nil on a miss.
func (c *MemoryPriceCache) Get(ctx context.Context, ticker domain.Ticker) (*domain.AssetPrice, error) {
	c.mu.RLock()
	entry, ok := c.entries[ticker]
	c.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, ticker)
		c.mu.Unlock()
		return nil, nil
	}

	price := entry.price
	return &price, nil
}

// Set stores a price under the ticker's key with the cache TTL.
func (c *MemoryPriceCache) Set(ctx context.Context, price *domain.AssetPrice) error {
	entry := memoryEntry{price: *price}
	if c.ttl > 0 {
		entry.expiresAt = time.Now().Add(c.ttl)
	}

	c.mu.Lock()
	c.entries[price.Ticker] = entry
	c.mu.Unlock()
	return nil
}
