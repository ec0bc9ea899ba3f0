package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openmarkets/market-hub/internal/domain"
)

// MarketDataManager is the coordination surface the service consumes: one
// ticker-addressable API over every registered data source.
type MarketDataManager interface {
	Sources() []domain.DataSource
	AssetInfo(ctx context.Context, ticker domain.Ticker) (*domain.Asset, error)
	RealTimePrice(ctx context.Context, ticker domain.Ticker) (*domain.AssetPrice, error)
	MultiplePrices(ctx context.Context, tickers []domain.Ticker) map[domain.Ticker]*domain.AssetPrice
	HistoricalPrices(ctx context.Context, ticker domain.Ticker, start, end time.Time, interval domain.Interval) ([]domain.AssetPrice, error)
	SearchAssets(ctx context.Context, query domain.AssetSearchQuery) ([]domain.AssetSearchResult, error)
	Financials(ctx context.Context, ticker domain.Ticker) (*domain.Financials, error)
	Filings(ctx context.Context, ticker domain.Ticker, query domain.FilingQuery) ([]domain.Filing, error)
}

// PriceCache fronts providers for hot quotes. A nil price with nil error is a
// miss.
type PriceCache interface {
	Get(ctx context.Context, ticker domain.Ticker) (*domain.AssetPrice, error)
	Set(ctx context.Context, price *domain.AssetPrice) error
}

// AssetService ties the provider coordination layer to the asset catalog and
// the quote cache.
type AssetService struct {
	repo   domain.AssetRepository
	market MarketDataManager
	cache  PriceCache
}

func NewAssetService(repo domain.AssetRepository, market MarketDataManager, cache PriceCache) *AssetService {
	return &AssetService{
		repo:   repo,
		market: market,
		cache:  cache,
	}
}

// Sources lists the registered data sources in priority order.
func (s *AssetService) Sources() []domain.DataSource {
	return s.market.Sources()
}

// GetAssetInfo fetches descriptive data for a ticker and upserts it into the
// catalog. When no provider can serve the ticker, the catalog copy is
// returned if one exists; a nil asset means the ticker is unknown everywhere.
func (s *AssetService) GetAssetInfo(ctx context.Context, ticker domain.Ticker) (*domain.Asset, error) {
	asset, err := s.market.AssetInfo(ctx, ticker)
	if err != nil {
		return nil, err
	}

	if asset == nil {
		cached, err := s.repo.FindByTicker(ctx, ticker)
		if errors.Is(err, domain.ErrAssetNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read asset catalog: %w", err)
		}
		return cached, nil
	}

	// Catalog persistence is best effort: a storage hiccup must not fail a
	// read that already has its answer.
	if err := s.repo.Save(ctx, asset); err != nil {
		slog.Warn("Failed to upsert asset into catalog", "ticker", ticker, "error", err)
	}
	return asset, nil
}

// GetRealTimePrice returns the current price for a ticker, reading through
// the quote cache.
func (s *AssetService) GetRealTimePrice(ctx context.Context, ticker domain.Ticker) (*domain.AssetPrice, error) {
	if err := ticker.Validate(); err != nil {
		return nil, err
	}

	cached, err := s.cache.Get(ctx, ticker)
	if err != nil {
		slog.Warn("Price cache read failed", "ticker", ticker, "error", err)
	}
	if cached != nil {
		return cached, nil
	}

	price, err := s.market.RealTimePrice(ctx, ticker)
	if err != nil || price == nil {
		return price, err
	}

	if err := s.cache.Set(ctx, price); err != nil {
		slog.Warn("Price cache write failed", "ticker", ticker, "error", err)
	}
	return price, nil
}

// GetMultiplePrices returns prices for a set of tickers. Cached quotes are
// served directly; the rest go through the batch fetch. Every requested
// ticker is a key in the result, nil where no source had data.
func (s *AssetService) GetMultiplePrices(ctx context.Context, tickers []domain.Ticker) map[domain.Ticker]*domain.AssetPrice {
	results := make(map[domain.Ticker]*domain.AssetPrice, len(tickers))
	var missing []domain.Ticker

	for _, ticker := range tickers {
		if _, seen := results[ticker]; seen {
			continue
		}
		cached, err := s.cache.Get(ctx, ticker)
		if err != nil {
			slog.Warn("Price cache read failed", "ticker", ticker, "error", err)
		}
		if cached != nil {
			results[ticker] = cached
			continue
		}
		results[ticker] = nil
		missing = append(missing, ticker)
	}

	if len(missing) == 0 {
		return results
	}

	for ticker, price := range s.market.MultiplePrices(ctx, missing) {
		results[ticker] = price
		if price == nil {
			continue
		}
		if err := s.cache.Set(ctx, price); err != nil {
			slog.Warn("Price cache write failed", "ticker", ticker, "error", err)
		}
	}
	return results
}

// GetHistoricalPrices returns the price series for a ticker.
func (s *AssetService) GetHistoricalPrices(ctx context.Context, ticker domain.Ticker, start, end time.Time, interval domain.Interval) ([]domain.AssetPrice, error) {
	return s.market.HistoricalPrices(ctx, ticker, start, end, interval)
}

// SearchAssets runs the aggregated cross-provider search.
func (s *AssetService) SearchAssets(ctx context.Context, query domain.AssetSearchQuery) ([]domain.AssetSearchResult, error) {
	return s.market.SearchAssets(ctx, query)
}

// GetFinancials returns fundamental data for a ticker.
func (s *AssetService) GetFinancials(ctx context.Context, ticker domain.Ticker) (*domain.Financials, error) {
	return s.market.Financials(ctx, ticker)
}

// GetFilings returns regulatory filings for a ticker.
func (s *AssetService) GetFilings(ctx context.Context, ticker domain.Ticker, query domain.FilingQuery) ([]domain.Filing, error) {
	return s.market.Filings(ctx, ticker, query)
}

// RefreshPrices re-fetches quotes for every active catalog asset and warms
// the cache. Driven periodically by the price updater.
func (s *AssetService) RefreshPrices(ctx context.Context) error {
	assets, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list catalog assets: %w", err)
	}

	tickers := make([]domain.Ticker, 0, len(assets))
	for _, asset := range assets {
		if asset.IsActive {
			tickers = append(tickers, asset.Ticker)
		}
	}
	if len(tickers) == 0 {
		return nil
	}

	refreshed := 0
	for ticker, price := range s.market.MultiplePrices(ctx, tickers) {
		if price == nil {
			continue
		}
		if err := s.cache.Set(ctx, price); err != nil {
			slog.Warn("Price cache write failed", "ticker", ticker, "error", err)
			continue
		}
		refreshed++
	}

	slog.Info("Refreshed catalog prices", "tracked", len(tickers), "refreshed", refreshed)
	return nil
}
