package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openmarkets/market-hub/internal/domain"
)

// Repository implements domain.AssetRepository over a relational backend.
type Repository struct {
	db *CatalogDB
}

var _ domain.AssetRepository = (*Repository)(nil)

func NewRepository(db *CatalogDB) *Repository {
	return &Repository{db: db}
}

// AutoMigrate applies the schema through the dialect's migration strategy.
func (r *Repository) AutoMigrate() error {
	return r.db.Dialect.Migrate(context.Background(), r.db.DB)
}

func (r *Repository) Save(ctx context.Context, asset *domain.Asset) error {
	rec, err := toRecord(asset)
	if err != nil {
		return err
	}

	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		if err := r.db.Dialect.UpsertAsset(ctx, tx, rec); err != nil {
			slog.Error("Failed to save asset", "ticker", asset.Ticker, "error", err)
			return fmt.Errorf("upsert asset: %w", err)
		}
		return nil
	})
}

func (r *Repository) FindByTicker(ctx context.Context, ticker domain.Ticker) (*domain.Asset, error) {
	query := r.rebind(`
        SELECT ticker, asset_type, name, exchange, country, currency, timezone,
               source_mappings, properties, is_active, created_at, updated_at
        FROM assets
        WHERE ticker = $1
    `)

	asset, err := scanAsset(r.db.QueryRowContext(ctx, query, string(ticker)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAssetNotFound
	}
	if err != nil {
		slog.Error("Failed to find asset", "ticker", ticker, "error", err)
		return nil, fmt.Errorf("querying asset: %w", err)
	}
	return asset, nil
}

func (r *Repository) List(ctx context.Context) ([]domain.Asset, error) {
	query := `
        SELECT ticker, asset_type, name, exchange, country, currency, timezone,
               source_mappings, properties, is_active, created_at, updated_at
        FROM assets
        ORDER BY ticker
    `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		slog.Error("Failed to list assets", "error", err)
		return nil, fmt.Errorf("querying assets: %w", err)
	}
	defer func(rows *sql.Rows) {
		if err := rows.Close(); err != nil {
			slog.Error("Failed to close rows", "error", err)
		}
	}(rows)

	var assets []domain.Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning asset row: %w", err)
		}
		assets = append(assets, *asset)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return assets, nil
}

// rebind rewrites $n placeholders to :n for Oracle.
func (r *Repository) rebind(query string) string {
	if r.db.Dialect.Name() == "oracle" {
		for i := 1; i <= 10; i++ {
			query = strings.ReplaceAll(query, fmt.Sprintf("$%d", i), fmt.Sprintf(":%d", i))
		}
	}
	return query
}

func toRecord(asset *domain.Asset) (*assetRecord, error) {
	mappings, err := json.Marshal(asset.SourceMappings)
	if err != nil {
		return nil, fmt.Errorf("encoding source mappings: %w", err)
	}
	properties, err := json.Marshal(asset.Properties)
	if err != nil {
		return nil, fmt.Errorf("encoding properties: %w", err)
	}

	return &assetRecord{
		Ticker:         string(asset.Ticker),
		AssetType:      string(asset.AssetType),
		Name:           asset.Name,
		Exchange:       string(asset.MarketInfo.Exchange),
		Country:        asset.MarketInfo.Country,
		Currency:       asset.MarketInfo.Currency,
		Timezone:       asset.MarketInfo.Timezone,
		SourceMappings: string(mappings),
		Properties:     string(properties),
		IsActive:       asset.IsActive,
		CreatedAt:      asset.CreatedAt,
		UpdatedAt:      asset.UpdatedAt,
	}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(row rowScanner) (*domain.Asset, error) {
	var (
		asset      domain.Asset
		ticker     string
		assetType  string
		exchange   string
		country    sql.NullString
		currency   sql.NullString
		timezone   sql.NullString
		mappings   []byte
		properties []byte
	)

	err := row.Scan(
		&ticker, &assetType, &asset.Name, &exchange, &country, &currency, &timezone,
		&mappings, &properties, &asset.IsActive, &asset.CreatedAt, &asset.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	asset.Ticker = domain.Ticker(ticker)
	asset.AssetType = domain.AssetType(assetType)
	asset.MarketInfo = domain.MarketInfo{
		Exchange: domain.Exchange(exchange),
		Country:  country.String,
		Currency: currency.String,
		Timezone: timezone.String,
	}

	if len(mappings) > 0 {
		if err := json.Unmarshal(mappings, &asset.SourceMappings); err != nil {
			return nil, fmt.Errorf("decoding source mappings: %w", err)
		}
	}
	if len(properties) > 0 {
		if err := json.Unmarshal(properties, &asset.Properties); err != nil {
			return nil, fmt.Errorf("decoding properties: %w", err)
		}
	}
	return &asset, nil
}
