package domain

import (
	"time"
)

// Financials is the structured financial document a provider returns for a
// ticker. The item set is provider-shaped; the coordination layer only routes
// it, downstream scoring interprets it.
type Financials struct {
	Ticker    Ticker         `json:"ticker"`
	Source    DataSource     `json:"source"`
	Currency  string         `json:"currency,omitempty"`
	Items     map[string]any `json:"items"`
	FetchedAt time.Time      `json:"fetched_at"`
}

// Filing is a single regulatory filing or announcement record.
type Filing struct {
	Ticker  Ticker     `json:"ticker"`
	Type    string     `json:"type"`
	Title   string     `json:"title"`
	FiledAt time.Time  `json:"filed_at"`
	URL     string     `json:"url,omitempty"`
	Source  DataSource `json:"source"`
}

// FilingQuery bounds a filings lookup.
type FilingQuery struct {
	Start *time.Time
	End   *time.Time
	Limit int
	Types []string
}

// WantsType reports whether the query accepts a filing type. An empty type
// filter accepts everything.
func (q FilingQuery) WantsType(filingType string) bool {
	if len(q.Types) == 0 {
		return true
	}
	for _, t := range q.Types {
		if t == filingType {
			return true
		}
	}
	return false
}
