package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/openmarkets/market-hub/internal/domain"
)

const priceKeyPrefix = "price:"

// RedisPriceCache stores recent quotes in Redis so hot tickers skip the
// provider round trip. A missing key is a miss, never an error.
type RedisPriceCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisPriceCache creates a cache on an existing Redis client. ttl bounds
// quote staleness; values at or below zero disable expiry.
func NewRedisPriceCache(client *redis.Client, ttl time.Duration) *RedisPriceCache {
	return &RedisPriceCache{client: client, ttl: ttl}
}

// Get returns the cached price for a ticker, or nil on a miss.
func (c *RedisPriceCache) Get(ctx context.Context, ticker domain.Ticker) (*domain.AssetPrice, error) {
	data, err := c.client.Get(ctx, priceKey(ticker)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached price: %w", err)
	}

	var price domain.AssetPrice
	if err := json.Unmarshal(data, &price); err != nil {
		return nil, fmt.Errorf("failed to decode cached price: %w", err)
	}
	return &price, nil
}

// Set stores a price under the ticker's key with the cache TTL.
func (c *RedisPriceCache) Set(ctx context.Context, price *domain.AssetPrice) error {
	data, err := json.Marshal(price)
	if err != nil {
		return fmt.Errorf("failed to encode price: %w", err)
	}
	if err := c.client.Set(ctx, priceKey(price.Ticker), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cached price: %w", err)
	}
	return nil
}

// Ping verifies the Redis connection, for startup and health checks.
func (c *RedisPriceCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func priceKey(ticker domain.Ticker) string {
	return priceKeyPrefix + string(ticker)
}
