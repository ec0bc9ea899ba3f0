package sqldb

import (
	"context"
	"database/sql"
	"fmt"
)

// CatalogDB pairs the asset catalog's sql.DB with the dialect that knows its
// SQL flavor. Every catalog statement goes through one of the two.
type CatalogDB struct {
	*sql.DB
	Dialect Dialect
}

func New(db *sql.DB, dialect Dialect) *CatalogDB {
	return &CatalogDB{
		DB:      db,
		Dialect: dialect,
	}
}

// WithTx runs fn inside a catalog transaction, rolling back on error or panic.
func (db *CatalogDB) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin catalog transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit catalog transaction: %w", err)
	}

	return nil
}
