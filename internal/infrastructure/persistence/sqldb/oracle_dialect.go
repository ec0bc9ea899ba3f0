package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/openmarkets/market-hub/internal/infrastructure/persistence/sqldb/migrations"
)

type OracleDialect struct{}

func (d *OracleDialect) Name() string { return "oracle" }

func (d *OracleDialect) Migrate(ctx context.Context, db *sql.DB) error {
	// Goose does not support Oracle in a way that cross-compiles cleanly with
	// go-ora, so the migration script is executed statement by statement.
	content, err := migrations.OracleFS.ReadFile("oracle/20240101000000_init.sql")
	if err != nil {
		return fmt.Errorf("reading migration file: %w", err)
	}

	// Statements are separated by '/' as in standard Oracle scripts.
	statements := strings.Split(string(content), "/")

	for _, stmt := range statements {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}

		if _, err := db.ExecContext(ctx, stmt); err != nil {
			// ORA-00955: name is already used by an existing object
			if !strings.Contains(err.Error(), "ORA-00955") {
				return fmt.Errorf("migrating: %s: %w", stmt, err)
			}
		}
	}
	return nil
}

func (d *OracleDialect) UpsertAsset(ctx context.Context, tx *sql.Tx, rec *assetRecord) error {
	query := `MERGE INTO assets a
             USING (SELECT :1 as ticker_val FROM dual) s
             ON (a.ticker = s.ticker_val)
             WHEN MATCHED THEN
               UPDATE SET
                 asset_type = :2,
                 name = :3,
                 exchange = :4,
                 country = :5,
                 currency = :6,
                 timezone = :7,
                 source_mappings = :8,
                 properties = :9,
                 is_active = :10,
                 updated_at = :11
             WHEN NOT MATCHED THEN
               INSERT (ticker, asset_type, name, exchange, country, currency, timezone,
                       source_mappings, properties, is_active, created_at, updated_at)
               VALUES (:12, :13, :14, :15, :16, :17, :18, :19, :20, :21, :22, :23)`

	isActive := 0
	if rec.IsActive {
		isActive = 1
	}

	_, err := tx.ExecContext(ctx, query,
		rec.Ticker,         // 1 (s.ticker_val)
		rec.AssetType,      // 2 (UPDATE)
		rec.Name,           // 3
		rec.Exchange,       // 4
		rec.Country,        // 5
		rec.Currency,       // 6
		rec.Timezone,       // 7
		rec.SourceMappings, // 8
		rec.Properties,     // 9
		isActive,           // 10
		rec.UpdatedAt,      // 11
		rec.Ticker,         // 12 (INSERT)
		rec.AssetType,      // 13
		rec.Name,           // 14
		rec.Exchange,       // 15
		rec.Country,        // 16
		rec.Currency,       // 17
		rec.Timezone,       // 18
		rec.SourceMappings, // 19
		rec.Properties,     // 20
		isActive,           // 21
		rec.CreatedAt,      // 22
		rec.UpdatedAt,      // 23
	)
	return err
}
