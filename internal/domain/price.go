package domain

import (
	"time"
)

// Interval is the sampling interval for historical prices.
type Interval string

const (
	IntervalHour  Interval = "1h"
	IntervalDay   Interval = "1d"
	IntervalWeek  Interval = "1wk"
	IntervalMonth Interval = "1mo"
)

// AssetPrice is a real-time or historical price point. All monetary fields use
// fixed-point decimals because values are compared and summed across provider
// boundaries.
type AssetPrice struct {
	Ticker        Ticker     `json:"ticker"`
	Price         Decimal    `json:"price"`
	Currency      string     `json:"currency"`
	Timestamp     time.Time  `json:"timestamp"`
	Volume        *Decimal   `json:"volume,omitempty"`
	Open          *Decimal   `json:"open_price,omitempty"`
	High          *Decimal   `json:"high_price,omitempty"`
	Low           *Decimal   `json:"low_price,omitempty"`
	Close         *Decimal   `json:"close_price,omitempty"`
	Change        *Decimal   `json:"change,omitempty"`
	ChangePercent *Decimal   `json:"change_percent,omitempty"`
	MarketCap     *Decimal   `json:"market_cap,omitempty"`
	Source        DataSource `json:"source,omitempty"`
}
