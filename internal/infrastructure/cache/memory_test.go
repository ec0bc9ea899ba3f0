package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openmarkets/market-hub/internal/domain"
)

func testPrice(t *testing.T, ticker domain.Ticker, value string) *domain.AssetPrice {
	t.Helper()
	d, err := domain.NewDecimalFromString(value)
	require.NoError(t, err)
	return &domain.AssetPrice{
		Ticker:    ticker,
		Price:     d,
		Currency:  "USD",
		Timestamp: time.Now().UTC(),
		Source:    domain.SourceFinnhub,
	}
}

func TestMemoryPriceCache_SetAndGet(t *testing.T) {
	c := NewMemoryPriceCache(time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, testPrice(t, "NASDAQ:AAPL", "180.25")))

	got, err := c.Get(ctx, "NASDAQ:AAPL")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "180.25", got.Price.String())
}

func TestMemoryPriceCache_MissReturnsNil(t *testing.T) {
	c := NewMemoryPriceCache(time.Minute)

	got, err := c.Get(context.Background(), "NASDAQ:MSFT")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryPriceCache_Expiry(t *testing.T) {
	c := NewMemoryPriceCache(10 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, testPrice(t, "NASDAQ:AAPL", "180.25")))
	time.Sleep(25 * time.Millisecond)

	got, err := c.Get(ctx, "NASDAQ:AAPL")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryPriceCache_ZeroTTLNeverExpires(t *testing.T) {
	c := NewMemoryPriceCache(0)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, testPrice(t, "NASDAQ:AAPL", "180.25")))
	time.Sleep(5 * time.Millisecond)

	got, err := c.Get(ctx, "NASDAQ:AAPL")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestMemoryPriceCache_GetReturnsCopy(t *testing.T) {
	c := NewMemoryPriceCache(time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, testPrice(t, "NASDAQ:AAPL", "180.25")))

	first, err := c.Get(ctx, "NASDAQ:AAPL")
	require.NoError(t, err)
	first.Currency = "EUR"

	second, err := c.Get(ctx, "NASDAQ:AAPL")
	require.NoError(t, err)
	assert.Equal(t, "USD", second.Currency)
}
