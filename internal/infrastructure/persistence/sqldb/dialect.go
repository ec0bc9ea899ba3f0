package sqldb

import (
	"context"
	"database/sql"
	"time"
)

// assetRecord is the flattened row shape both dialects write: nested maps are
// pre-encoded as JSON so each dialect only deals in scalars.
type assetRecord struct {
	Ticker         string
	AssetType      string
	Name           string
	Exchange       string
	Country        string
	Currency       string
	Timezone       string
	SourceMappings string
	Properties     string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Dialect abstracts the SQL flavor differences between backends: migration
// strategy and upsert syntax.
type Dialect interface {
	Name() string
	Migrate(ctx context.Context, db *sql.DB) error
	UpsertAsset(ctx context.Context, tx *sql.Tx, rec *assetRecord) error
}
