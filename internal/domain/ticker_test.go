package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTicker_Valid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Ticker
	}{
		{"simple", "NASDAQ:AAPL", "NASDAQ:AAPL"},
		{"lowercase is normalized", "nasdaq:aapl", "NASDAQ:AAPL"},
		{"surrounding whitespace", "  NYSE:BRK.B ", "NYSE:BRK.B"},
		{"numeric symbol", "HKEX:0700", "HKEX:0700"},
		{"crypto pair", "CRYPTO:BTC-USD", "CRYPTO:BTC-USD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTicker(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTicker_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no separator", "AAPL"},
		{"empty", ""},
		{"empty exchange", ":AAPL"},
		{"empty symbol", "NASDAQ:"},
		{"whitespace symbol", "NASDAQ:   "},
		{"double separator", "NASDAQ:AAPL:X"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTicker(tt.raw)
			assert.True(t, errors.Is(err, ErrMalformedTicker), "expected ErrMalformedTicker, got %v", err)
		})
	}
}

func TestTicker_Parts(t *testing.T) {
	ticker, err := ParseTicker("SSE:600519")
	require.NoError(t, err)

	assert.Equal(t, ExchangeSSE, ticker.Exchange())
	assert.Equal(t, "600519", ticker.Symbol())
	assert.NoError(t, ticker.Validate())
}

func TestNewTicker(t *testing.T) {
	ticker := NewTicker(ExchangeNASDAQ, " aapl ")
	assert.Equal(t, Ticker("NASDAQ:AAPL"), ticker)
}

func TestAdapterCapability_SupportsExchange(t *testing.T) {
	capability := AdapterCapability{
		AssetType: AssetTypeStock,
		Exchanges: []Exchange{ExchangeNASDAQ, ExchangeNYSE},
	}

	assert.True(t, capability.SupportsExchange(ExchangeNASDAQ))
	assert.False(t, capability.SupportsExchange(ExchangeHKEX))
}

func TestAssetSearchQuery_Validate(t *testing.T) {
	assert.NoError(t, AssetSearchQuery{Query: "apple", Limit: 10}.Validate())
	assert.NoError(t, AssetSearchQuery{Query: "apple"}.Normalize().Validate())
	assert.Error(t, AssetSearchQuery{Query: "", Limit: 10}.Validate())
	assert.Error(t, AssetSearchQuery{Query: "apple", Limit: 0}.Validate())
	assert.Error(t, AssetSearchQuery{Query: "apple", Limit: 1001}.Validate())
}
