package marketdata

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openmarkets/market-hub/internal/domain"
)

func TestMultiplePrices_EveryInputTickerIsAKey(t *testing.T) {
	nasdaq := newFakeProvider("finnhub", domain.ExchangeNASDAQ)
	nasdaq.priceFunc = func(_ context.Context, tk domain.Ticker) (*domain.AssetPrice, error) {
		return priceOf(t, tk, "100", "finnhub"), nil
	}

	m := NewManager(0)
	m.Register(nasdaq)

	tickers := []domain.Ticker{
		"NASDAQ:AAPL",
		"BADX:ZZZ",     // no provider covers the exchange
		"NASDAQ:AAPL",  // duplicate of the first entry
		"not-a-ticker", // malformed
	}

	results := m.MultiplePrices(context.Background(), tickers)

	require.Len(t, results, 3)
	require.Contains(t, results, domain.Ticker("NASDAQ:AAPL"))
	require.Contains(t, results, domain.Ticker("BADX:ZZZ"))
	require.Contains(t, results, domain.Ticker("not-a-ticker"))

	assert.NotNil(t, results["NASDAQ:AAPL"])
	assert.Equal(t, "100", results["NASDAQ:AAPL"].Price.String())
	assert.Nil(t, results["BADX:ZZZ"])
	assert.Nil(t, results["not-a-ticker"])
}

func TestMultiplePrices_GroupsByResolvedProvider(t *testing.T) {
	var usBatches, hkBatches [][]domain.Ticker

	us := newFakeProvider("us-source", domain.ExchangeNASDAQ, domain.ExchangeNYSE)
	us.multiFunc = func(_ context.Context, tickers []domain.Ticker) (map[domain.Ticker]*domain.AssetPrice, error) {
		usBatches = append(usBatches, tickers)
		out := make(map[domain.Ticker]*domain.AssetPrice, len(tickers))
		for _, tk := range tickers {
			out[tk] = priceOf(t, tk, "10", "us-source")
		}
		return out, nil
	}
	hk := newFakeProvider("hk-source", domain.ExchangeHKEX)
	hk.multiFunc = func(_ context.Context, tickers []domain.Ticker) (map[domain.Ticker]*domain.AssetPrice, error) {
		hkBatches = append(hkBatches, tickers)
		out := make(map[domain.Ticker]*domain.AssetPrice, len(tickers))
		for _, tk := range tickers {
			out[tk] = priceOf(t, tk, "20", "hk-source")
		}
		return out, nil
	}

	m := NewManager(0)
	m.Register(us)
	m.Register(hk)

	results := m.MultiplePrices(context.Background(),
		[]domain.Ticker{"NASDAQ:AAPL", "HKEX:0700", "NYSE:GE"})

	require.Len(t, results, 3)
	for tk, price := range results {
		require.NotNil(t, price, "missing price for %s", tk)
	}

	// One batch call per source, each carrying only its own tickers.
	require.Len(t, usBatches, 1)
	assert.ElementsMatch(t, []domain.Ticker{"NASDAQ:AAPL", "NYSE:GE"}, usBatches[0])
	require.Len(t, hkBatches, 1)
	assert.ElementsMatch(t, []domain.Ticker{"HKEX:0700"}, hkBatches[0])
}

func TestMultiplePrices_MissingEntriesRetriedViaFailover(t *testing.T) {
	flaky := newFakeProvider("flaky", domain.ExchangeNASDAQ)
	flaky.multiFunc = func(_ context.Context, tickers []domain.Ticker) (map[domain.Ticker]*domain.AssetPrice, error) {
		out := make(map[domain.Ticker]*domain.AssetPrice, len(tickers))
		for _, tk := range tickers {
			if tk == "NASDAQ:MSFT" {
				out[tk] = nil // no data from this source
				continue
			}
			out[tk] = priceOf(t, tk, "180.25", "flaky")
		}
		return out, nil
	}
	flaky.priceFunc = func(context.Context, domain.Ticker) (*domain.AssetPrice, error) {
		return nil, errors.New("still no data")
	}

	backup := newFakeProvider("backup", domain.ExchangeNASDAQ)
	backup.priceFunc = func(_ context.Context, tk domain.Ticker) (*domain.AssetPrice, error) {
		return priceOf(t, tk, "410.10", "backup"), nil
	}

	m := NewManager(0)
	m.Register(flaky)
	m.Register(backup)

	results := m.MultiplePrices(context.Background(),
		[]domain.Ticker{"NASDAQ:AAPL", "NASDAQ:MSFT"})

	require.Len(t, results, 2)
	require.NotNil(t, results["NASDAQ:AAPL"])
	assert.Equal(t, domain.DataSource("flaky"), results["NASDAQ:AAPL"].Source)
	require.NotNil(t, results["NASDAQ:MSFT"])
	assert.Equal(t, domain.DataSource("backup"), results["NASDAQ:MSFT"].Source)

	// Only the missing ticker went through the retry pass.
	assert.Equal(t, 1, backup.callCount("price"))
}

func TestMultiplePrices_BatchErrorFailsGroupThenRetries(t *testing.T) {
	// Batch endpoint is down but the single-quote endpoint works; the retry
	// pass recovers every ticker from the same source.
	p := newFakeProvider("half-up", domain.ExchangeNASDAQ)
	p.multiFunc = func(context.Context, []domain.Ticker) (map[domain.Ticker]*domain.AssetPrice, error) {
		return nil, errors.New("batch endpoint 503")
	}
	p.priceFunc = func(_ context.Context, tk domain.Ticker) (*domain.AssetPrice, error) {
		return priceOf(t, tk, "55", "half-up"), nil
	}

	m := NewManager(0)
	m.Register(p)

	results := m.MultiplePrices(context.Background(),
		[]domain.Ticker{"NASDAQ:AAPL", "NASDAQ:MSFT", "NASDAQ:NVDA"})

	require.Len(t, results, 3)
	for tk, price := range results {
		require.NotNil(t, price, "missing price for %s", tk)
		assert.Equal(t, "55", price.Price.String())
	}
	assert.Equal(t, 3, p.callCount("price"))
}

func TestMultiplePrices_TotalFailureYieldsNilEntries(t *testing.T) {
	down := newFakeProvider("down", domain.ExchangeNASDAQ)
	down.multiFunc = func(context.Context, []domain.Ticker) (map[domain.Ticker]*domain.AssetPrice, error) {
		return nil, errors.New("unreachable")
	}
	down.priceFunc = func(context.Context, domain.Ticker) (*domain.AssetPrice, error) {
		return nil, errors.New("unreachable")
	}

	m := NewManager(0)
	m.Register(down)

	results := m.MultiplePrices(context.Background(),
		[]domain.Ticker{"NASDAQ:AAPL", "NASDAQ:MSFT"})

	require.Len(t, results, 2)
	assert.Nil(t, results["NASDAQ:AAPL"])
	assert.Nil(t, results["NASDAQ:MSFT"])
}

func TestMultiplePrices_EmptyInput(t *testing.T) {
	m := NewManager(0)
	m.Register(newFakeProvider("any", domain.ExchangeNASDAQ))

	results := m.MultiplePrices(context.Background(), nil)
	assert.Empty(t, results)
}
