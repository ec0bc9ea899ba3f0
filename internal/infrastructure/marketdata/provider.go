package marketdata

import (
	"context"
	"log/slog"
	"time"

	"github.com/openmarkets/market-hub/internal/domain"
)

// Provider is the contract every data source implements. Implementations are
// network clients; every fetch method is a blocking I/O boundary and must
// honor ctx cancellation. Operations a source cannot serve return
// domain.ErrUnsupported rather than being absent from the method set.
type Provider interface {
	// Source is the stable identity used for routing, logging and cache keys.
	Source() domain.DataSource

	// Capabilities declares which asset types this source serves on which
	// exchanges. Static; read once per routing-table rebuild.
	Capabilities() []domain.AdapterCapability

	// ValidateTicker reports whether this source can address the ticker. It
	// must be cheap and side-effect free: the router calls it during
	// resolution and failover candidate filtering.
	ValidateTicker(ticker domain.Ticker) bool

	// ToSourceTicker converts the canonical ticker to this source's native syntax.
	ToSourceTicker(ticker domain.Ticker) string

	// ToInternalTicker converts a native ticker back to canonical form,
	// assuming defaultExchange when the native form does not carry one.
	ToInternalTicker(sourceTicker string, defaultExchange domain.Exchange) domain.Ticker

	AssetInfo(ctx context.Context, ticker domain.Ticker) (*domain.Asset, error)
	RealTimePrice(ctx context.Context, ticker domain.Ticker) (*domain.AssetPrice, error)

	// MultiplePrices fetches a batch. Sources without a native batch endpoint
	// delegate to SequentialPrices. Partial results are expected: a missing
	// or nil entry means "no data for that ticker", not a batch failure.
	MultiplePrices(ctx context.Context, tickers []domain.Ticker) (map[domain.Ticker]*domain.AssetPrice, error)

	HistoricalPrices(ctx context.Context, ticker domain.Ticker, start, end time.Time, interval domain.Interval) ([]domain.AssetPrice, error)
	SearchAssets(ctx context.Context, query domain.AssetSearchQuery) ([]domain.AssetSearchResult, error)
	Financials(ctx context.Context, ticker domain.Ticker) (*domain.Financials, error)
	Filings(ctx context.Context, ticker domain.Ticker, query domain.FilingQuery) ([]domain.Filing, error)
}

// SupportsExchange is the default ValidateTicker body: well-formed ticker plus
// capability coverage of its exchange. Sources with stricter symbol rules
// layer them on top.
func SupportsExchange(capabilities []domain.AdapterCapability, ticker domain.Ticker) bool {
	if ticker.Validate() != nil {
		return false
	}
	exchange := ticker.Exchange()
	for _, c := range capabilities {
		if c.SupportsExchange(exchange) {
			return true
		}
	}
	return false
}

// SequentialPrices implements MultiplePrices for providers without a native
// batch call: one RealTimePrice per ticker, failures recorded as nil entries.
func SequentialPrices(ctx context.Context, p Provider, tickers []domain.Ticker) (map[domain.Ticker]*domain.AssetPrice, error) {
	results := make(map[domain.Ticker]*domain.AssetPrice, len(tickers))
	for _, ticker := range tickers {
		price, err := p.RealTimePrice(ctx, ticker)
		if err != nil {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			slog.Warn("Single price fetch failed", "source", p.Source(), "ticker", ticker, "error", err)
			results[ticker] = nil
			continue
		}
		results[ticker] = price
	}
	return results, nil
}
