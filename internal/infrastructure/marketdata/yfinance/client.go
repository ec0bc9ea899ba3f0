package yfinance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/openmarkets/market-hub/internal/domain"
	"github.com/openmarkets/market-hub/internal/infrastructure/marketdata"
)

const (
	defaultBaseURL = "http://localhost:8000"
	quotePath      = "/api/v1/quote"
	quoteBatchPath = "/api/v1/quote/batch"
	infoPath       = "/api/v1/info"
	historyPath    = "/api/v1/history"
	searchPath     = "/api/v1/search"
	financialsPath = "/api/v1/financials"
)

// hkSuffix and cryptoSuffix are Yahoo Finance's native ticker markers for the
// listings this client maps back and forth.
const (
	hkSuffix     = ".HK"
	cryptoSuffix = "-USD"
)

var capabilities = []domain.AdapterCapability{
	{
		AssetType: domain.AssetTypeStock,
		Exchanges: []domain.Exchange{
			domain.ExchangeNASDAQ,
			domain.ExchangeNYSE,
			domain.ExchangeAMEX,
			domain.ExchangeHKEX,
		},
	},
	{
		AssetType: domain.AssetTypeETF,
		Exchanges: []domain.Exchange{
			domain.ExchangeNASDAQ,
			domain.ExchangeNYSE,
			domain.ExchangeAMEX,
		},
	},
	{
		AssetType: domain.AssetTypeCrypto,
		Exchanges: []domain.Exchange{domain.ExchangeCrypto},
	},
}

// Client implements the marketdata.Provider interface against the
// yfinance-based Market Data Service, a lightweight Python microservice that
// fronts Yahoo Finance via REST.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

var _ marketdata.Provider = (*Client)(nil)

// NewClient creates a new yfinance Market Data Service client with default settings.
func NewClient() *Client {
	return &Client{
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// NewClientWithBaseURL creates a new client with a custom base URL (useful for K8s deployments).
func NewClientWithBaseURL(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// NewClientWithHTTPClient creates a new client with a custom HTTP client (for testing).
func NewClientWithHTTPClient(httpClient *http.Client) *Client {
	return &Client{
		baseURL:    defaultBaseURL,
		httpClient: httpClient,
	}
}

// SetBaseURL sets the base URL for the API (useful for testing).
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

func (c *Client) Source() domain.DataSource {
	return domain.SourceYFinance
}

func (c *Client) Capabilities() []domain.AdapterCapability {
	return capabilities
}

func (c *Client) ValidateTicker(ticker domain.Ticker) bool {
	return marketdata.SupportsExchange(capabilities, ticker)
}

// ToSourceTicker converts a canonical ticker to Yahoo Finance syntax:
// HKEX:0700 becomes 0700.HK, CRYPTO:BTC becomes BTC-USD, US listings stay bare.
func (c *Client) ToSourceTicker(ticker domain.Ticker) string {
	symbol := ticker.Symbol()
	switch ticker.Exchange() {
	case domain.ExchangeHKEX:
		return symbol + hkSuffix
	case domain.ExchangeCrypto:
		return symbol + cryptoSuffix
	default:
		return symbol
	}
}

// ToInternalTicker reverses ToSourceTicker, recognizing Yahoo's suffix
// conventions before falling back to the given exchange.
func (c *Client) ToInternalTicker(sourceTicker string, defaultExchange domain.Exchange) domain.Ticker {
	if symbol, ok := strings.CutSuffix(sourceTicker, hkSuffix); ok {
		return domain.NewTicker(domain.ExchangeHKEX, symbol)
	}
	if symbol, ok := strings.CutSuffix(sourceTicker, cryptoSuffix); ok {
		return domain.NewTicker(domain.ExchangeCrypto, symbol)
	}
	return domain.NewTicker(defaultExchange, sourceTicker)
}

// quoteResponse represents one quote from the service. Prices are decimal
// strings so the service never forces a float round trip.
type quoteResponse struct {
	Symbol        string `json:"symbol"`
	Price         string `json:"price"`
	Currency      string `json:"currency"`
	Time          string `json:"time"`
	Open          string `json:"open,omitempty"`
	High          string `json:"high,omitempty"`
	Low           string `json:"low,omitempty"`
	PreviousClose string `json:"previous_close,omitempty"`
	Volume        string `json:"volume,omitempty"`
	Change        string `json:"change,omitempty"`
	ChangePercent string `json:"change_percent,omitempty"`
	MarketCap     string `json:"market_cap,omitempty"`
}

// infoResponse represents the asset info endpoint response.
type infoResponse struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Currency string `json:"currency"`
	Exchange string `json:"exchange"`
	Country  string `json:"country"`
	Timezone string `json:"timezone"`
	Sector   string `json:"sector,omitempty"`
	Industry string `json:"industry,omitempty"`
	Website  string `json:"website,omitempty"`
}

// historyResponse represents the history endpoint response.
type historyResponse struct {
	Symbol   string `json:"symbol"`
	Currency string `json:"currency"`
	Prices   []struct {
		Time   string `json:"time"`
		Open   string `json:"open"`
		High   string `json:"high"`
		Low    string `json:"low"`
		Close  string `json:"close"`
		Volume string `json:"volume"`
	} `json:"prices"`
}

// searchResponse represents the search endpoint response.
type searchResponse struct {
	Results []struct {
		Symbol   string  `json:"symbol"`
		Name     string  `json:"name"`
		Type     string  `json:"type"`
		Exchange string  `json:"exchange"`
		Country  string  `json:"country"`
		Currency string  `json:"currency"`
		Score    float64 `json:"score"`
	} `json:"results"`
}

// financialsResponse represents the financials endpoint response.
type financialsResponse struct {
	Symbol   string         `json:"symbol"`
	Currency string         `json:"currency"`
	Items    map[string]any `json:"items"`
}

// quoteBatchRequest is the request body for the batch quote endpoint.
type quoteBatchRequest struct {
	Symbols []string `json:"symbols"`
}

// quoteBatchResponse is the response from the batch quote endpoint. Errors
// are per-symbol; the request as a whole still succeeds.
type quoteBatchResponse struct {
	Results []quoteResponse `json:"results"`
	Errors  []struct {
		Symbol string `json:"symbol"`
		Error  string `json:"error"`
	} `json:"errors"`
}

// errorResponse represents an error response from the API.
type errorResponse struct {
	Detail string `json:"detail"`
}

// getJSON executes a GET and decodes the body. A 404 maps to domain.ErrNoData
// so failover treats it as "this source has nothing", not an outage.
func (c *Client) getJSON(ctx context.Context, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}

	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Warn("failed to close response body", "error", closeErr, "url", reqURL)
		}
	}()

	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrNoData
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		var errResp errorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Detail != "" {
			return fmt.Errorf("API error: %s", errResp.Detail)
		}
		return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// AssetInfo fetches descriptive data for a ticker.
func (c *Client) AssetInfo(ctx context.Context, ticker domain.Ticker) (*domain.Asset, error) {
	symbol := c.ToSourceTicker(ticker)
	reqURL := fmt.Sprintf("%s%s/%s", c.baseURL, infoPath, url.PathEscape(symbol))

	var info infoResponse
	if err := c.getJSON(ctx, reqURL, &info); err != nil {
		return nil, err
	}

	asset := domain.NewAsset(ticker, mapAssetType(info.Type), info.Name, domain.MarketInfo{
		Exchange: ticker.Exchange(),
		Country:  info.Country,
		Currency: info.Currency,
		Timezone: info.Timezone,
	})
	asset.SetSourceTicker(domain.SourceYFinance, symbol)
	if info.Sector != "" {
		asset.Properties["sector"] = info.Sector
	}
	if info.Industry != "" {
		asset.Properties["industry"] = info.Industry
	}
	if info.Website != "" {
		asset.Properties["website"] = info.Website
	}
	return asset, nil
}

// RealTimePrice fetches the latest quote for a ticker.
func (c *Client) RealTimePrice(ctx context.Context, ticker domain.Ticker) (*domain.AssetPrice, error) {
	symbol := c.ToSourceTicker(ticker)
	reqURL := fmt.Sprintf("%s%s/%s", c.baseURL, quotePath, url.PathEscape(symbol))

	var quote quoteResponse
	if err := c.getJSON(ctx, reqURL, &quote); err != nil {
		return nil, err
	}
	return c.toAssetPrice(ticker, quote)
}

// MultiplePrices fetches a batch of quotes through the service's native batch
// endpoint. Per-symbol failures come back as nil entries; only a transport or
// whole-request failure is an error.
func (c *Client) MultiplePrices(ctx context.Context, tickers []domain.Ticker) (map[domain.Ticker]*domain.AssetPrice, error) {
	results := make(map[domain.Ticker]*domain.AssetPrice, len(tickers))
	if len(tickers) == 0 {
		return results, nil
	}

	symbols := make([]string, 0, len(tickers))
	bySymbol := make(map[string]domain.Ticker, len(tickers))
	for _, ticker := range tickers {
		symbol := c.ToSourceTicker(ticker)
		symbols = append(symbols, symbol)
		bySymbol[symbol] = ticker
	}

	jsonBody, err := json.Marshal(quoteBatchRequest{Symbols: symbols})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	reqURL := c.baseURL + quoteBatchPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}

	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Warn("failed to close response body", "error", closeErr, "url", reqURL)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var batchResp quoteBatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&batchResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	for _, quote := range batchResp.Results {
		ticker, ok := bySymbol[quote.Symbol]
		if !ok {
			slog.Warn("Batch quote for unrequested symbol", "symbol", quote.Symbol)
			continue
		}
		price, err := c.toAssetPrice(ticker, quote)
		if err != nil {
			slog.Warn("Skipping unparseable batch quote",
				"symbol", quote.Symbol, "error", err)
			results[ticker] = nil
			continue
		}
		results[ticker] = price
	}
	for _, e := range batchResp.Errors {
		if ticker, ok := bySymbol[e.Symbol]; ok {
			slog.Warn("Batch quote failed for symbol",
				"symbol", e.Symbol, "error", e.Error)
			results[ticker] = nil
		}
	}
	return results, nil
}

// HistoricalPrices fetches the OHLCV series for the given range and interval.
func (c *Client) HistoricalPrices(ctx context.Context, ticker domain.Ticker, start, end time.Time, interval domain.Interval) ([]domain.AssetPrice, error) {
	if interval == "" {
		interval = domain.IntervalDay
	}

	symbol := c.ToSourceTicker(ticker)
	params := url.Values{}
	params.Set("start", start.UTC().Format(time.RFC3339))
	params.Set("end", end.UTC().Format(time.RFC3339))
	params.Set("interval", string(interval))
	reqURL := fmt.Sprintf("%s%s/%s?%s", c.baseURL, historyPath, url.PathEscape(symbol), params.Encode())

	var history historyResponse
	if err := c.getJSON(ctx, reqURL, &history); err != nil {
		return nil, err
	}

	series := make([]domain.AssetPrice, 0, len(history.Prices))
	for _, bar := range history.Prices {
		closePrice, err := domain.NewDecimalFromString(bar.Close)
		if err != nil {
			return nil, fmt.Errorf("failed to parse close price: %w", err)
		}
		ts, err := time.Parse(time.RFC3339, bar.Time)
		if err != nil {
			return nil, fmt.Errorf("failed to parse bar time: %w", err)
		}
		point := domain.AssetPrice{
			Ticker:    ticker,
			Price:     closePrice,
			Currency:  history.Currency,
			Timestamp: ts.UTC(),
			Source:    domain.SourceYFinance,
		}
		setOptionalString(&point.Open, bar.Open)
		setOptionalString(&point.High, bar.High)
		setOptionalString(&point.Low, bar.Low)
		setOptionalString(&point.Close, bar.Close)
		setOptionalString(&point.Volume, bar.Volume)
		series = append(series, point)
	}
	return series, nil
}

// SearchAssets queries the service's symbol search and converts hits to
// canonical tickers via the exchange the service reports.
func (c *Client) SearchAssets(ctx context.Context, query domain.AssetSearchQuery) ([]domain.AssetSearchResult, error) {
	params := url.Values{}
	params.Set("q", query.Query)
	params.Set("limit", fmt.Sprintf("%d", query.Limit))
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, searchPath, params.Encode())

	var resp searchResponse
	if err := c.getJSON(ctx, reqURL, &resp); err != nil {
		return nil, err
	}

	results := make([]domain.AssetSearchResult, 0, len(resp.Results))
	for _, hit := range resp.Results {
		exchange := domain.Exchange(strings.ToUpper(hit.Exchange))
		results = append(results, domain.AssetSearchResult{
			Ticker:         c.ToInternalTicker(hit.Symbol, exchange),
			AssetType:      mapAssetType(hit.Type),
			Name:           hit.Name,
			Exchange:       exchange,
			Country:        hit.Country,
			Currency:       hit.Currency,
			RelevanceScore: hit.Score,
		})
	}
	return results, nil
}

// Financials fetches fundamental statement items for a ticker.
func (c *Client) Financials(ctx context.Context, ticker domain.Ticker) (*domain.Financials, error) {
	symbol := c.ToSourceTicker(ticker)
	reqURL := fmt.Sprintf("%s%s/%s", c.baseURL, financialsPath, url.PathEscape(symbol))

	var resp financialsResponse
	if err := c.getJSON(ctx, reqURL, &resp); err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("%w: no financials for %s", domain.ErrNoData, ticker)
	}

	return &domain.Financials{
		Ticker:    ticker,
		Source:    domain.SourceYFinance,
		Currency:  resp.Currency,
		Items:     resp.Items,
		FetchedAt: time.Now().UTC(),
	}, nil
}

// Filings is not served by Yahoo Finance.
func (c *Client) Filings(ctx context.Context, ticker domain.Ticker, query domain.FilingQuery) ([]domain.Filing, error) {
	return nil, fmt.Errorf("%w: filings", domain.ErrUnsupported)
}

// toAssetPrice converts one quote payload. An empty price string means the
// service had no data for the symbol.
func (c *Client) toAssetPrice(ticker domain.Ticker, quote quoteResponse) (*domain.AssetPrice, error) {
	if quote.Price == "" {
		return nil, fmt.Errorf("%w: no quote for %s", domain.ErrNoData, ticker)
	}

	price, err := domain.NewDecimalFromString(quote.Price)
	if err != nil {
		return nil, fmt.Errorf("failed to parse price: %w", err)
	}

	timestamp := time.Now().UTC()
	if quote.Time != "" {
		if ts, err := time.Parse(time.RFC3339, quote.Time); err == nil {
			timestamp = ts.UTC()
		}
	}

	result := &domain.AssetPrice{
		Ticker:    ticker,
		Price:     price,
		Currency:  quote.Currency,
		Timestamp: timestamp,
		Source:    domain.SourceYFinance,
	}
	setOptionalString(&result.Open, quote.Open)
	setOptionalString(&result.High, quote.High)
	setOptionalString(&result.Low, quote.Low)
	setOptionalString(&result.Close, quote.PreviousClose)
	setOptionalString(&result.Volume, quote.Volume)
	setOptionalString(&result.Change, quote.Change)
	setOptionalString(&result.ChangePercent, quote.ChangePercent)
	setOptionalString(&result.MarketCap, quote.MarketCap)
	return result, nil
}

// mapAssetType maps the service's type strings to domain asset types.
func mapAssetType(apiType string) domain.AssetType {
	switch strings.ToLower(apiType) {
	case "etf":
		return domain.AssetTypeETF
	case "index":
		return domain.AssetTypeIndex
	case "fund", "mutualfund":
		return domain.AssetTypeFund
	case "crypto", "cryptocurrency":
		return domain.AssetTypeCrypto
	default:
		return domain.AssetTypeStock
	}
}

func setOptionalString(dst **domain.Decimal, value string) {
	if value == "" {
		return
	}
	d, err := domain.NewDecimalFromString(value)
	if err != nil {
		return
	}
	*dst = &d
}
