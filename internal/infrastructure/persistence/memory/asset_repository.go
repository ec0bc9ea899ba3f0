package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/openmarkets/market-hub/internal/domain"
)

// AssetRepository keeps the asset catalog in process memory, for deployments
// without a database.
type AssetRepository struct {
	mu     sync.RWMutex
	assets map[domain.Ticker]*domain.Asset
}

var _ domain.AssetRepository = (*AssetRepository)(nil)

func NewAssetRepository() *AssetRepository {
	return &AssetRepository{
		assets: make(map[domain.Ticker]*domain.Asset),
	}
}

func (r *AssetRepository) Save(ctx context.Context, asset *domain.Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *asset
	r.assets[asset.Ticker] = &stored
	return nil
}

func (r *AssetRepository) FindByTicker(ctx context.Context, ticker domain.Ticker) (*domain.Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	asset, exists := r.assets[ticker]
	if !exists {
		return nil, domain.ErrAssetNotFound
	}

	found := *asset
	return &found, nil
}

func (r *AssetRepository) List(ctx context.Context) ([]domain.Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	assets := make([]domain.Asset, 0, len(r.assets))
	for _, asset := range r.assets {
		assets = append(assets, *asset)
	}
	sort.Slice(assets, func(i, j int) bool {
		return assets[i].Ticker < assets[j].Ticker
	})

	return assets, nil
}
