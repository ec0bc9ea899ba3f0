package domain

import (
	"fmt"
	"strings"
)

const (
	defaultSearchLimit = 10
	maxSearchLimit     = 1000
)

// AssetSearchQuery is a free-text search across all registered providers.
type AssetSearchQuery struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

// Normalize trims the query and applies the default limit.
func (q AssetSearchQuery) Normalize() AssetSearchQuery {
	q.Query = strings.TrimSpace(q.Query)
	if q.Limit == 0 {
		q.Limit = defaultSearchLimit
	}
	return q
}

// Validate checks the query text and limit bounds.
func (q AssetSearchQuery) Validate() error {
	if strings.TrimSpace(q.Query) == "" {
		return fmt.Errorf("search query must not be empty")
	}
	if q.Limit < 1 || q.Limit > maxSearchLimit {
		return fmt.Errorf("search limit must be between 1 and %d, got %d", maxSearchLimit, q.Limit)
	}
	return nil
}

// AssetSearchResult is one provider hit. RelevanceScore is in [0,1] and is
// used only for ranking and dedup tie-breaks, never for correctness.
type AssetSearchResult struct {
	Ticker         Ticker    `json:"ticker"`
	AssetType      AssetType `json:"asset_type"`
	Name           string    `json:"name"`
	Exchange       Exchange  `json:"exchange"`
	Country        string    `json:"country"`
	Currency       string    `json:"currency,omitempty"`
	RelevanceScore float64   `json:"relevance_score"`
}
