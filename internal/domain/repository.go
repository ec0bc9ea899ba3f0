package domain

import (
	"context"
	"errors"
)

// ErrAssetNotFound is returned by repositories for unknown tickers.
var ErrAssetNotFound = errors.New("asset not found")

// AssetRepository is the persistence boundary for the asset catalog. The
// coordination core never requires persistence; the catalog records assets a
// provider has successfully resolved so their prices can be kept warm.
type AssetRepository interface {
	Save(ctx context.Context, asset *Asset) error
	FindByTicker(ctx context.Context, ticker Ticker) (*Asset, error)
	List(ctx context.Context) ([]Asset, error)
}
