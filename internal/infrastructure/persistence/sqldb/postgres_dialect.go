package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/openmarkets/market-hub/internal/infrastructure/persistence/sqldb/migrations"
)

type PostgresDialect struct{}

func (d *PostgresDialect) Name() string { return "postgres" }

func (d *PostgresDialect) Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.PostgresFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("setting dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "postgres"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}

func (d *PostgresDialect) UpsertAsset(ctx context.Context, tx *sql.Tx, rec *assetRecord) error {
	query := `
		INSERT INTO assets (ticker, asset_type, name, exchange, country, currency, timezone,
			source_mappings, properties, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (ticker) DO UPDATE SET
			asset_type = EXCLUDED.asset_type,
			name = EXCLUDED.name,
			exchange = EXCLUDED.exchange,
			country = EXCLUDED.country,
			currency = EXCLUDED.currency,
			timezone = EXCLUDED.timezone,
			source_mappings = EXCLUDED.source_mappings,
			properties = EXCLUDED.properties,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
	`
	_, err := tx.ExecContext(ctx, query,
		rec.Ticker, rec.AssetType, rec.Name, rec.Exchange, rec.Country, rec.Currency,
		rec.Timezone, rec.SourceMappings, rec.Properties, rec.IsActive,
		rec.CreatedAt, rec.UpdatedAt)
	return err
}
