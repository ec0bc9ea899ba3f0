package marketdata

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/openmarkets/market-hub/internal/domain"
)

// exchangePriority ranks listing venues for cross-listed securities. When the
// same symbol+country appears on two exchanges, the higher-ranked exchange is
// kept as the primary listing. Domain knowledge, fixed at compile time.
var exchangePriority = map[domain.Exchange]int{
	domain.ExchangeNASDAQ: 3,
	domain.ExchangeNYSE:   2,
	domain.ExchangeAMEX:   1,
	domain.ExchangeHKEX:   3,
	domain.ExchangeSSE:    2,
	domain.ExchangeSZSE:   2,
	domain.ExchangeBSE:    1,
}

// SearchAssets fans the query out to every registered provider concurrently,
// tolerates individual provider failures, and returns one deduplicated list
// ranked by relevance and truncated to the query limit.
func (m *Manager) SearchAssets(ctx context.Context, query domain.AssetSearchQuery) ([]domain.AssetSearchResult, error) {
	query = query.Normalize()
	if err := query.Validate(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	providers := append([]Provider{}, m.table.order...)
	m.mu.RUnlock()

	if len(providers) == 0 {
		return []domain.AssetSearchResult{}, nil
	}

	type searchOutcome struct {
		source  domain.DataSource
		results []domain.AssetSearchResult
		err     error
	}

	outcomes := make(chan searchOutcome, len(providers))
	var wg sync.WaitGroup

	for _, p := range providers {
		wg.Add(1)
		go func(p Provider) {
			defer wg.Done()
			results, err := p.SearchAssets(ctx, query)
			outcomes <- searchOutcome{source: p.Source(), results: results, err: err}
		}(p)
	}

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	var all []domain.AssetSearchResult
	for outcome := range outcomes {
		if outcome.err != nil {
			// A failing provider contributes zero results; search is never
			// fatal because of one source.
			slog.Warn("Provider search failed",
				"source", outcome.source, "query", query.Query, "error", outcome.err)
			continue
		}
		all = append(all, outcome.results...)
	}

	unique := dedupeSearchResults(all)
	slog.Info("Search aggregated", "query", query.Query,
		"raw", len(all), "unique", len(unique))

	if len(unique) > query.Limit {
		unique = unique[:query.Limit]
	}
	return unique, nil
}

// dedupeSearchResults collapses duplicate assets in one pass. Exact ticker
// duplicates are dropped outright. Cross-exchange listings of the same asset
// are detected by (uppercased symbol, country); the exchange-priority table
// breaks the tie, then relevance. The surviving set is sorted by relevance
// descending. Idempotent: running it on its own output changes nothing.
func dedupeSearchResults(results []domain.AssetSearchResult) []domain.AssetSearchResult {
	type dedupKey struct {
		symbol  string
		country string
	}

	seenTickers := make(map[domain.Ticker]struct{}, len(results))
	best := make(map[dedupKey]domain.AssetSearchResult)
	var keyOrder []dedupKey

	for _, result := range results {
		if _, dup := seenTickers[result.Ticker]; dup {
			continue
		}
		if result.Ticker.Validate() != nil {
			slog.Warn("Dropping search result with malformed ticker", "ticker", result.Ticker)
			continue
		}
		seenTickers[result.Ticker] = struct{}{}

		key := dedupKey{
			symbol:  strings.ToUpper(result.Ticker.Symbol()),
			country: result.Country,
		}

		existing, ok := best[key]
		if !ok {
			best[key] = result
			keyOrder = append(keyOrder, key)
			continue
		}

		currentPriority := exchangePriority[result.Ticker.Exchange()]
		existingPriority := exchangePriority[existing.Ticker.Exchange()]

		switch {
		case currentPriority > existingPriority:
			best[key] = result
		case currentPriority == existingPriority && result.RelevanceScore > existing.RelevanceScore:
			best[key] = result
		}
	}

	unique := make([]domain.AssetSearchResult, 0, len(best))
	for _, key := range keyOrder {
		unique = append(unique, best[key])
	}

	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].RelevanceScore > unique[j].RelevanceScore
	})
	return unique
}
