package domain

import (
	"fmt"
	"strings"
)

// Ticker is the canonical asset identifier in EXCHANGE:SYMBOL form,
// e.g. "NASDAQ:AAPL". Both parts are upper-cased on ingestion.
type Ticker string

// ParseTicker validates and normalizes a raw ticker string.
func ParseTicker(raw string) (Ticker, error) {
	s := strings.TrimSpace(raw)
	exchange, symbol, ok := strings.Cut(s, ":")
	if !ok {
		return "", fmt.Errorf("%w: %q has no ':' separator", ErrMalformedTicker, raw)
	}
	exchange = strings.TrimSpace(exchange)
	symbol = strings.TrimSpace(symbol)
	if exchange == "" || symbol == "" || strings.Contains(symbol, ":") {
		return "", fmt.Errorf("%w: %q is not EXCHANGE:SYMBOL", ErrMalformedTicker, raw)
	}
	return Ticker(strings.ToUpper(exchange) + ":" + strings.ToUpper(symbol)), nil
}

// NewTicker builds a ticker from its parts without re-parsing.
func NewTicker(exchange Exchange, symbol string) Ticker {
	return Ticker(string(exchange) + ":" + strings.ToUpper(strings.TrimSpace(symbol)))
}

// Validate reports whether the ticker still satisfies the EXCHANGE:SYMBOL invariant.
func (t Ticker) Validate() error {
	_, err := ParseTicker(string(t))
	return err
}

// Exchange returns the exchange part. Empty if the ticker is malformed.
func (t Ticker) Exchange() Exchange {
	exchange, _, ok := strings.Cut(string(t), ":")
	if !ok {
		return ""
	}
	return Exchange(exchange)
}

// Symbol returns the symbol part. Empty if the ticker is malformed.
func (t Ticker) Symbol() string {
	_, symbol, ok := strings.Cut(string(t), ":")
	if !ok {
		return ""
	}
	return symbol
}

func (t Ticker) String() string {
	return string(t)
}
