package marketdata

import (
	"context"
	"log/slog"
	"sync"

	"github.com/openmarkets/market-hub/internal/domain"
)

// MultiplePrices fetches real-time prices for many tickers in two phases:
// one parallel batch call per resolved provider group, then a full
// single-ticker failover retry for everything the batch phase missed. The
// cheap batched fast path keeps the common case fast; the retry pass keeps
// the fallback guarantee for the unhappy path.
//
// The result map's key set always equals the input ticker set (duplicates
// collapse), with nil values where no provider produced a price. Callers can
// render partial results without special-casing total failure.
func (m *Manager) MultiplePrices(ctx context.Context, tickers []domain.Ticker) map[domain.Ticker]*domain.AssetPrice {
	results := make(map[domain.Ticker]*domain.AssetPrice, len(tickers))

	// Group unique tickers by resolved provider. Unresolvable tickers go
	// straight to the retry pass, which re-checks routing anyway.
	type group struct {
		provider Provider
		tickers  []domain.Ticker
	}
	groups := make(map[domain.DataSource]*group)
	var failed []domain.Ticker
	seen := make(map[domain.Ticker]struct{}, len(tickers))

	for _, ticker := range tickers {
		if _, dup := seen[ticker]; dup {
			continue
		}
		seen[ticker] = struct{}{}

		p := m.resolve(ticker)
		if p == nil {
			failed = append(failed, ticker)
			continue
		}
		g, ok := groups[p.Source()]
		if !ok {
			g = &group{provider: p}
			groups[p.Source()] = g
		}
		g.tickers = append(g.tickers, ticker)
	}

	// Phase 1: one concurrent batch call per provider group.
	type groupResult struct {
		group  *group
		prices map[domain.Ticker]*domain.AssetPrice
		err    error
	}

	resultChan := make(chan groupResult, len(groups))
	var wg sync.WaitGroup

	for _, g := range groups {
		wg.Add(1)
		go func(g *group) {
			defer wg.Done()
			prices, err := g.provider.MultiplePrices(ctx, g.tickers)
			resultChan <- groupResult{group: g, prices: prices, err: err}
		}(g)
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	for r := range resultChan {
		if r.err != nil {
			slog.Warn("Batch price fetch failed",
				"source", r.group.provider.Source(), "tickers", len(r.group.tickers), "error", r.err)
			failed = append(failed, r.group.tickers...)
			continue
		}
		for _, ticker := range r.group.tickers {
			if price := r.prices[ticker]; price != nil {
				results[ticker] = price
			} else {
				failed = append(failed, ticker)
			}
		}
	}

	// Phase 2: each failed ticker gets a full independent failover run, not
	// just the next provider in its old group; it may succeed on a provider
	// that never held its batch. Concurrency is capped so a partial outage
	// does not multiply into a call storm.
	if len(failed) > 0 {
		slog.Info("Retrying failed tickers individually", "count", len(failed))

		var mu sync.Mutex
		sem := make(chan struct{}, m.batchRetryLimit)
		var retryWg sync.WaitGroup

		for _, ticker := range failed {
			retryWg.Add(1)
			go func(ticker domain.Ticker) {
				defer retryWg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()

				price, err := m.RealTimePrice(ctx, ticker)
				if err != nil {
					slog.Warn("Retry failed", "ticker", ticker, "error", err)
				}
				mu.Lock()
				results[ticker] = price
				mu.Unlock()
			}(ticker)
		}
		retryWg.Wait()
	}

	// Every requested ticker is a key in the output, even on total failure.
	for _, ticker := range tickers {
		if _, ok := results[ticker]; !ok {
			results[ticker] = nil
		}
	}

	return results
}
