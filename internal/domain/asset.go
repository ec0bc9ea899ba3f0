package domain

import (
	"time"
)

// AssetType is the kind of financial instrument.
type AssetType string

const (
	AssetTypeStock  AssetType = "stock"
	AssetTypeETF    AssetType = "etf"
	AssetTypeIndex  AssetType = "index"
	AssetTypeFund   AssetType = "fund"
	AssetTypeCrypto AssetType = "crypto"
)

// Exchange is a market identifier. The set is closed: tickers referencing an
// unknown exchange parse fine but no provider will ever claim them.
type Exchange string

const (
	ExchangeNASDAQ Exchange = "NASDAQ"
	ExchangeNYSE   Exchange = "NYSE"
	ExchangeAMEX   Exchange = "AMEX"
	ExchangeSSE    Exchange = "SSE"  // Shanghai
	ExchangeSZSE   Exchange = "SZSE" // Shenzhen
	ExchangeBSE    Exchange = "BSE"  // Beijing
	ExchangeHKEX   Exchange = "HKEX" // Hong Kong
	ExchangeCrypto Exchange = "CRYPTO"
)

// MarketStatus is the current trading state of a market.
type MarketStatus string

const (
	MarketOpen       MarketStatus = "open"
	MarketClosed     MarketStatus = "closed"
	MarketPreMarket  MarketStatus = "pre_market"
	MarketAfterHours MarketStatus = "after_hours"
	MarketHalted     MarketStatus = "halted"
	MarketUnknown    MarketStatus = "unknown"
)

// DataSource identifies a provider. Used as map key and for cache-key namespacing.
type DataSource string

const (
	SourceFinnhub  DataSource = "finnhub"
	SourceYFinance DataSource = "yfinance"
)

// AdapterCapability is a provider's static claim to serve one asset type on a
// set of exchanges. A provider may declare several.
type AdapterCapability struct {
	AssetType AssetType
	Exchanges []Exchange
}

// SupportsExchange reports whether the capability covers the given exchange.
func (c AdapterCapability) SupportsExchange(exchange Exchange) bool {
	for _, e := range c.Exchanges {
		if e == exchange {
			return true
		}
	}
	return false
}

// MarketInfo carries the market-level attributes of an asset.
type MarketInfo struct {
	Exchange Exchange     `json:"exchange"`
	Country  string       `json:"country"`
	Currency string       `json:"currency"`
	Timezone string       `json:"timezone"`
	Status   MarketStatus `json:"market_status"`
}

// Asset is the normalized description of a tradable instrument as resolved by
// some provider. The coordination layer creates these; persistence is optional.
type Asset struct {
	Ticker         Ticker                `json:"ticker"`
	AssetType      AssetType             `json:"asset_type"`
	Name           string                `json:"name"`
	MarketInfo     MarketInfo            `json:"market_info"`
	SourceMappings map[DataSource]string `json:"source_mappings,omitempty"`
	Properties     map[string]string     `json:"properties,omitempty"`
	IsActive       bool                  `json:"is_active"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

// NewAsset constructs an asset with timestamps set.
func NewAsset(ticker Ticker, assetType AssetType, name string, market MarketInfo) *Asset {
	now := time.Now().UTC()
	return &Asset{
		Ticker:         ticker,
		AssetType:      assetType,
		Name:           name,
		MarketInfo:     market,
		SourceMappings: make(map[DataSource]string),
		Properties:     make(map[string]string),
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// SourceTicker returns the native ticker string a given source uses for this asset.
func (a *Asset) SourceTicker(source DataSource) (string, bool) {
	t, ok := a.SourceMappings[source]
	return t, ok
}

// SetSourceTicker records a source's native ticker for this asset.
func (a *Asset) SetSourceTicker(source DataSource, ticker string) {
	if a.SourceMappings == nil {
		a.SourceMappings = make(map[DataSource]string)
	}
	a.SourceMappings[source] = ticker
	a.UpdatedAt = time.Now().UTC()
}
