package marketdata

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openmarkets/market-hub/internal/domain"
)

func searchResult(ticker domain.Ticker, exchange domain.Exchange, country string, score float64) domain.AssetSearchResult {
	return domain.AssetSearchResult{
		Ticker:         ticker,
		AssetType:      domain.AssetTypeStock,
		Name:           string(ticker),
		Exchange:       exchange,
		Country:        country,
		Currency:       "USD",
		RelevanceScore: score,
	}
}

func searchingProvider(source domain.DataSource, results ...domain.AssetSearchResult) *fakeProvider {
	p := newFakeProvider(source, domain.ExchangeNASDAQ)
	p.searchFunc = func(context.Context, domain.AssetSearchQuery) ([]domain.AssetSearchResult, error) {
		return results, nil
	}
	return p
}

func TestSearchAssets_CrossExchangeDedup(t *testing.T) {
	// The same company listed on AMEX and NASDAQ: the higher-priority
	// exchange wins even when another source found it first.
	amex := searchingProvider("amex-source",
		searchResult("AMEX:GORO", domain.ExchangeAMEX, "US", 0.6))
	nasdaq := searchingProvider("nasdaq-source",
		searchResult("NASDAQ:GORO", domain.ExchangeNASDAQ, "US", 0.9))

	m := NewManager(0)
	m.Register(amex)
	m.Register(nasdaq)

	results, err := m.SearchAssets(context.Background(), domain.AssetSearchQuery{Query: "GORO"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, domain.Ticker("NASDAQ:GORO"), results[0].Ticker)
}

func TestSearchAssets_ExchangePriorityBeatsRelevance(t *testing.T) {
	// Priority is decided by exchange rank first; relevance only breaks ties
	// within the same rank.
	m := NewManager(0)
	m.Register(searchingProvider("s1",
		searchResult("AMEX:DUAL", domain.ExchangeAMEX, "US", 0.95),
		searchResult("NASDAQ:DUAL", domain.ExchangeNASDAQ, "US", 0.40)))

	results, err := m.SearchAssets(context.Background(), domain.AssetSearchQuery{Query: "DUAL"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, domain.ExchangeNASDAQ, results[0].Exchange)
}

func TestSearchAssets_DifferentCountriesNotDeduped(t *testing.T) {
	// Same symbol in different markets is two distinct assets.
	m := NewManager(0)
	m.Register(searchingProvider("s1",
		searchResult("NASDAQ:ACME", domain.ExchangeNASDAQ, "US", 0.8),
		searchResult("HKEX:ACME", domain.ExchangeHKEX, "HK", 0.7)))

	results, err := m.SearchAssets(context.Background(), domain.AssetSearchQuery{Query: "ACME"})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearchAssets_ProviderFailureTolerated(t *testing.T) {
	broken := newFakeProvider("broken", domain.ExchangeNASDAQ)
	broken.searchFunc = func(context.Context, domain.AssetSearchQuery) ([]domain.AssetSearchResult, error) {
		return nil, errors.New("search endpoint down")
	}
	working := searchingProvider("working",
		searchResult("NASDAQ:AAPL", domain.ExchangeNASDAQ, "US", 1.0))

	m := NewManager(0)
	m.Register(broken)
	m.Register(working)

	results, err := m.SearchAssets(context.Background(), domain.AssetSearchQuery{Query: "apple"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, domain.Ticker("NASDAQ:AAPL"), results[0].Ticker)
}

func TestSearchAssets_SortedAndTruncated(t *testing.T) {
	m := NewManager(0)
	m.Register(searchingProvider("s1",
		searchResult("NASDAQ:AAA", domain.ExchangeNASDAQ, "US", 0.2),
		searchResult("NASDAQ:BBB", domain.ExchangeNASDAQ, "US", 0.9),
		searchResult("NASDAQ:CCC", domain.ExchangeNASDAQ, "US", 0.5)))

	results, err := m.SearchAssets(context.Background(), domain.AssetSearchQuery{Query: "a", Limit: 2})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, domain.Ticker("NASDAQ:BBB"), results[0].Ticker)
	assert.Equal(t, domain.Ticker("NASDAQ:CCC"), results[1].Ticker)
}

func TestSearchAssets_InvalidQuery(t *testing.T) {
	m := NewManager(0)
	m.Register(newFakeProvider("any", domain.ExchangeNASDAQ))

	_, err := m.SearchAssets(context.Background(), domain.AssetSearchQuery{Query: "   "})
	assert.Error(t, err)

	_, err = m.SearchAssets(context.Background(), domain.AssetSearchQuery{Query: "ok", Limit: 5000})
	assert.Error(t, err)
}

func TestSearchAssets_NoProviders(t *testing.T) {
	m := NewManager(0)

	results, err := m.SearchAssets(context.Background(), domain.AssetSearchQuery{Query: "anything"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestDedupeSearchResults_ExactTickerDuplicateDropped(t *testing.T) {
	in := []domain.AssetSearchResult{
		searchResult("NASDAQ:AAPL", domain.ExchangeNASDAQ, "US", 0.9),
		searchResult("NASDAQ:AAPL", domain.ExchangeNASDAQ, "US", 0.5),
	}

	out := dedupeSearchResults(in)
	require.Len(t, out, 1)
	assert.Equal(t, 0.9, out[0].RelevanceScore)
}

func TestDedupeSearchResults_Idempotent(t *testing.T) {
	in := []domain.AssetSearchResult{
		searchResult("AMEX:GORO", domain.ExchangeAMEX, "US", 0.6),
		searchResult("NASDAQ:GORO", domain.ExchangeNASDAQ, "US", 0.9),
		searchResult("NASDAQ:AAPL", domain.ExchangeNASDAQ, "US", 1.0),
		searchResult("HKEX:0700", domain.ExchangeHKEX, "HK", 0.8),
	}

	once := dedupeSearchResults(in)
	twice := dedupeSearchResults(once)
	assert.Equal(t, once, twice)
}

func TestDedupeSearchResults_MalformedTickerDropped(t *testing.T) {
	in := []domain.AssetSearchResult{
		searchResult("garbage", domain.ExchangeNASDAQ, "US", 1.0),
		searchResult("NASDAQ:OK", domain.ExchangeNASDAQ, "US", 0.5),
	}

	out := dedupeSearchResults(in)
	require.Len(t, out, 1)
	assert.Equal(t, domain.Ticker("NASDAQ:OK"), out[0].Ticker)
}
