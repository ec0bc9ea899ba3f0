package marketdata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/openmarkets/market-hub/internal/domain"
)

const defaultBatchRetryLimit = 4

// Manager coordinates all registered providers behind one ticker-addressable
// API: capability routing, per-ticker resolution caching, failover across
// providers of the same exchange, parallel batch fetching and search
// aggregation.
//
// All routing and cache state lives behind mu. The lock is never held across
// a provider call: lookups snapshot what they need, release, then do I/O. One
// hanging provider must never block an unrelated request's routing lookup.
type Manager struct {
	mu       sync.RWMutex
	table    *routingTable
	resolved map[domain.Ticker]Provider

	batchRetryLimit int
}

// NewManager creates an empty manager. batchRetryLimit caps how many failed
// batch tickers run their individual failover retries concurrently; values
// below 1 select the default.
func NewManager(batchRetryLimit int) *Manager {
	if batchRetryLimit < 1 {
		batchRetryLimit = defaultBatchRetryLimit
	}
	return &Manager{
		table:           buildRoutingTable(nil),
		resolved:        make(map[domain.Ticker]Provider),
		batchRetryLimit: batchRetryLimit,
	}
}

// Register appends a provider and rebuilds the routing table. Registration
// order is failover priority: for an exchange served by several providers the
// first-registered one is tried first. Any rebuild drops the resolution
// cache, since cached bindings may no longer reflect priority order.
func (m *Manager) Register(p Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order := append(append([]Provider{}, m.table.order...), p)
	m.table = buildRoutingTable(order)
	m.resolved = make(map[domain.Ticker]Provider)

	slog.Info("Registered market data provider",
		"source", p.Source(), "exchanges", len(m.table.byExchange))
}

// Sources lists registered providers in registration order.
func (m *Manager) Sources() []domain.DataSource {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.table.sources()
}

// ProvidersFor returns the ordered providers able to serve an exchange.
func (m *Manager) ProvidersFor(exchange domain.Exchange) []Provider {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Provider{}, m.table.providersFor(exchange)...)
}

// resolve returns the provider bound to a ticker: the cached binding if
// present, otherwise the first provider in the exchange's priority list whose
// ValidateTicker accepts it. A successful scan is cached; "no provider" is
// not, so later registrations can pick the ticker up.
//
// The binding is advisory. Failover repoints it when a fallback succeeds, so
// it is a performance hint, never a correctness dependency.
func (m *Manager) resolve(ticker domain.Ticker) Provider {
	m.mu.RLock()
	if p, ok := m.resolved[ticker]; ok {
		m.mu.RUnlock()
		return p
	}
	candidates := m.table.providersFor(ticker.Exchange())
	m.mu.RUnlock()

	for _, p := range candidates {
		if !p.ValidateTicker(ticker) {
			continue
		}
		m.mu.Lock()
		m.resolved[ticker] = p
		m.mu.Unlock()
		slog.Debug("Resolved ticker to provider", "ticker", ticker, "source", p.Source())
		return p
	}
	return nil
}

// rebind repoints the resolution cache after a successful failover so
// subsequent calls skip the now-unreliable previous primary.
func (m *Manager) rebind(ticker domain.Ticker, p Provider) {
	m.mu.Lock()
	m.resolved[ticker] = p
	m.mu.Unlock()
	slog.Info("Resolution cache updated after failover", "ticker", ticker, "source", p.Source())
}

// fallbacks snapshots the exchange's provider list minus the primary.
func (m *Manager) fallbacks(exchange domain.Exchange, primary Provider) []Provider {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.table.fallbacksFor(exchange, primary)
}

// runFailover is the shared state machine behind every single-ticker
// operation: try the resolved primary, then walk the exchange's remaining
// providers in priority order. A fetch error and an empty payload are the
// same "try next" signal. The first fallback success repoints the resolution
// cache. Exhaustion returns *domain.AllProvidersError carrying every
// provider's reason; the caller decides whether that is soft or hard.
func runFailover[T any](
	ctx context.Context,
	m *Manager,
	op string,
	ticker domain.Ticker,
	isEmpty func(T) bool,
	fetch func(context.Context, Provider) (T, error),
) (T, error) {
	var zero T

	if err := ticker.Validate(); err != nil {
		return zero, err
	}

	primary := m.resolve(ticker)
	if primary == nil {
		return zero, fmt.Errorf("%w: %s", domain.ErrNoProviderForExchange, ticker.Exchange())
	}

	var failures []domain.ProviderFailure

	attempt := func(p Provider) (T, bool) {
		result, err := fetch(ctx, p)
		if err != nil {
			slog.Warn("Provider call failed",
				"op", op, "ticker", ticker, "source", p.Source(), "error", err)
			failures = append(failures, domain.ProviderFailure{Source: p.Source(), Err: err})
			return zero, false
		}
		if isEmpty(result) {
			slog.Warn("Provider returned empty result",
				"op", op, "ticker", ticker, "source", p.Source())
			failures = append(failures, domain.ProviderFailure{Source: p.Source(), Err: domain.ErrNoData})
			return zero, false
		}
		return result, true
	}

	if result, ok := attempt(primary); ok {
		return result, nil
	}

	for _, fallback := range m.fallbacks(ticker.Exchange(), primary) {
		if ctx.Err() != nil {
			failures = append(failures, domain.ProviderFailure{Source: fallback.Source(), Err: ctx.Err()})
			break
		}
		if !fallback.ValidateTicker(ticker) {
			continue
		}
		if result, ok := attempt(fallback); ok {
			m.rebind(ticker, fallback)
			return result, nil
		}
	}

	return zero, &domain.AllProvidersError{Op: op, Ticker: ticker, Failures: failures}
}

// softFail maps failover exhaustion and missing routing to "unknown" for
// operations whose callers treat absence as retriable, not as an error.
func softFail(op string, ticker domain.Ticker, err error) error {
	var all *domain.AllProvidersError
	if errors.As(err, &all) || errors.Is(err, domain.ErrNoProviderForExchange) {
		slog.Error("No provider could serve request", "op", op, "ticker", ticker, "error", err)
		return nil
	}
	return err
}

// AssetInfo fetches detailed asset information with automatic failover.
// Returns (nil, nil) when no provider can serve the ticker.
func (m *Manager) AssetInfo(ctx context.Context, ticker domain.Ticker) (*domain.Asset, error) {
	asset, err := runFailover(ctx, m, "asset info", ticker,
		func(a *domain.Asset) bool { return a == nil },
		func(ctx context.Context, p Provider) (*domain.Asset, error) {
			return p.AssetInfo(ctx, ticker)
		})
	if err != nil {
		return nil, softFail("asset info", ticker, err)
	}
	return asset, nil
}

// RealTimePrice fetches the current price with automatic failover.
// Returns (nil, nil) when no provider can serve the ticker.
func (m *Manager) RealTimePrice(ctx context.Context, ticker domain.Ticker) (*domain.AssetPrice, error) {
	price, err := runFailover(ctx, m, "real-time price", ticker,
		func(p *domain.AssetPrice) bool { return p == nil },
		func(ctx context.Context, p Provider) (*domain.AssetPrice, error) {
			return p.RealTimePrice(ctx, ticker)
		})
	if err != nil {
		return nil, softFail("real-time price", ticker, err)
	}
	return price, nil
}

// HistoricalPrices fetches a price series with automatic failover.
// Returns an empty series when no provider can serve the ticker.
func (m *Manager) HistoricalPrices(ctx context.Context, ticker domain.Ticker, start, end time.Time, interval domain.Interval) ([]domain.AssetPrice, error) {
	prices, err := runFailover(ctx, m, "historical prices", ticker,
		func(ps []domain.AssetPrice) bool { return len(ps) == 0 },
		func(ctx context.Context, p Provider) ([]domain.AssetPrice, error) {
			return p.HistoricalPrices(ctx, ticker, start, end, interval)
		})
	if err != nil {
		return nil, softFail("historical prices", ticker, err)
	}
	return prices, nil
}

// Financials fetches the financial document for a ticker. Unlike the price
// operations this is a hard failure when every provider fails: a silent empty
// document is indistinguishable from "no data available" and would corrupt
// downstream scoring. The returned error carries each provider's reason.
func (m *Manager) Financials(ctx context.Context, ticker domain.Ticker) (*domain.Financials, error) {
	return runFailover(ctx, m, "financials", ticker,
		func(*domain.Financials) bool { return false },
		func(ctx context.Context, p Provider) (*domain.Financials, error) {
			return p.Financials(ctx, ticker)
		})
}

// Filings fetches regulatory filings. Hard failure semantics, like Financials.
func (m *Manager) Filings(ctx context.Context, ticker domain.Ticker, query domain.FilingQuery) ([]domain.Filing, error) {
	return runFailover(ctx, m, "filings", ticker,
		func([]domain.Filing) bool { return false },
		func(ctx context.Context, p Provider) ([]domain.Filing, error) {
			return p.Filings(ctx, ticker, query)
		})
}
