package finnhub

import (
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
	defaultBaseURL = "https://finnhub.io/api/v1"
	quotePath      = "/quote"
	profilePath    = "/stock/profile2"
	searchPath     = "/search"
	candlePath     = "/stock/candle"
	metricPath     = "/stock/metric"
	filingsPath    = "/stock/filings"
)

// capabilities: Finnhub's free tier covers US-listed common stock. Other
// asset classes and venues route to other providers.
var capabilities = []domain.AdapterCapability{
	{
		AssetType: domain.AssetTypeStock,
		Exchanges: []domain.Exchange{
			domain.ExchangeNASDAQ,
			domain.ExchangeNYSE,
			domain.ExchangeAMEX,
		},
	},
}

// Client implements the marketdata.Provider interface using the Finnhub API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ marketdata.Provider = (*Client)(nil)

// NewClient creates a new Finnhub API client.
func NewClient(apiKey string) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// NewClientWithHTTPClient creates a new Finnhub client with a custom HTTP client (for testing).
func NewClientWithHTTPClient(apiKey string, httpClient *http.Client) *Client {
	return &Client{
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

// SetBaseURL sets the base URL for the API (useful for testing).
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

func (c *Client) Source() domain.DataSource {
	return domain.SourceFinnhub
}

func (c *Client) Capabilities() []domain.AdapterCapability {
	return capabilities
}

func (c *Client) ValidateTicker(ticker domain.Ticker) bool {
	if !marketdata.SupportsExchange(capabilities, ticker) {
		return false
	}
	// Finnhub addresses US symbols bare; a dotted symbol is a foreign
	// listing this client cannot serve.
	return !strings.Contains(ticker.Symbol(), ".")
}

// ToSourceTicker strips the exchange prefix: Finnhub addresses US symbols bare.
func (c *Client) ToSourceTicker(ticker domain.Ticker) string {
	return ticker.Symbol()
}

// ToInternalTicker prefixes a bare Finnhub symbol with the given exchange.
func (c *Client) ToInternalTicker(sourceTicker string, defaultExchange domain.Exchange) domain.Ticker {
	return domain.NewTicker(defaultExchange, sourceTicker)
}

// quoteResponse represents the Finnhub quote response.
type quoteResponse struct {
	Current       float64 `json:"c"`  // Current price
	Change        float64 `json:"d"`  // Change
	PercentChange float64 `json:"dp"` // Percent change
	High          float64 `json:"h"`  // High price of the day
	Low           float64 `json:"l"`  // Low price of the day
	Open          float64 `json:"o"`  // Open price of the day
	PreviousClose float64 `json:"pc"` // Previous close price
	Timestamp     int64   `json:"t"`  // Timestamp
}

// profileResponse represents the Finnhub company profile response.
type profileResponse struct {
	Country              string  `json:"country"`
	Currency             string  `json:"currency"`
	Exchange             string  `json:"exchange"`
	FinnhubIndustry      string  `json:"finnhubIndustry"`
	IPO                  string  `json:"ipo"`
	Logo                 string  `json:"logo"`
	MarketCapitalization float64 `json:"marketCapitalization"`
	Name                 string  `json:"name"`
	ShareOutstanding     float64 `json:"shareOutstanding"`
	Ticker               string  `json:"ticker"`
	Weburl               string  `json:"weburl"`
}

// searchResponse represents the Finnhub symbol search response.
type searchResponse struct {
	Count  int `json:"count"`
	Result []struct {
		Description   string `json:"description"`
		DisplaySymbol string `json:"displaySymbol"`
		Symbol        string `json:"symbol"`
		Type          string `json:"type"`
	} `json:"result"`
}

// candleResponse represents the Finnhub OHLCV candle response.
type candleResponse struct {
	Status     string    `json:"s"`
	Open       []float64 `json:"o"`
	High       []float64 `json:"h"`
	Low        []float64 `json:"l"`
	Close      []float64 `json:"c"`
	Volume     []float64 `json:"v"`
	Timestamps []int64   `json:"t"`
}

// metricResponse represents the Finnhub basic financials response.
type metricResponse struct {
	Metric map[string]any `json:"metric"`
}

// filingsEntry represents one SEC filing in the Finnhub filings response.
type filingsEntry struct {
	AccessNumber string `json:"accessNumber"`
	Form         string `json:"form"`
	FiledDate    string `json:"filedDate"`
	ReportURL    string `json:"reportUrl"`
}

// get executes one authenticated GET against the API and decodes the JSON
// body into out.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	params.Set("token", c.apiKey)
	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

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

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// AssetInfo fetches the company profile for a ticker.
func (c *Client) AssetInfo(ctx context.Context, ticker domain.Ticker) (*domain.Asset, error) {
	symbol := c.ToSourceTicker(ticker)

	var profile profileResponse
	params := url.Values{}
	params.Set("symbol", symbol)
	if err := c.get(ctx, profilePath, params, &profile); err != nil {
		return nil, err
	}

	// Finnhub answers an unknown symbol with an empty object.
	if profile.Currency == "" && profile.Name == "" {
		return nil, fmt.Errorf("%w: no profile for %s", domain.ErrNoData, ticker)
	}

	asset := domain.NewAsset(ticker, domain.AssetTypeStock, profile.Name, domain.MarketInfo{
		Exchange: ticker.Exchange(),
		Country:  profile.Country,
		Currency: profile.Currency,
	})
	asset.SetSourceTicker(domain.SourceFinnhub, symbol)
	if profile.FinnhubIndustry != "" {
		asset.Properties["industry"] = profile.FinnhubIndustry
	}
	if profile.IPO != "" {
		asset.Properties["ipo"] = profile.IPO
	}
	if profile.Weburl != "" {
		asset.Properties["website"] = profile.Weburl
	}
	return asset, nil
}

// RealTimePrice fetches the latest quote for a ticker.
func (c *Client) RealTimePrice(ctx context.Context, ticker domain.Ticker) (*domain.AssetPrice, error) {
	symbol := c.ToSourceTicker(ticker)

	var quote quoteResponse
	params := url.Values{}
	params.Set("symbol", symbol)
	if err := c.get(ctx, quotePath, params, &quote); err != nil {
		return nil, err
	}

	// Finnhub returns all zeroes when the symbol is unknown.
	if quote.Current == 0 && quote.PreviousClose == 0 && quote.Timestamp == 0 {
		return nil, fmt.Errorf("%w: no quote for %s", domain.ErrNoData, ticker)
	}

	price, err := domain.NewDecimalFromFloat(quote.Current)
	if err != nil {
		return nil, fmt.Errorf("failed to parse price: %w", err)
	}

	result := &domain.AssetPrice{
		Ticker:    ticker,
		Price:     price,
		Currency:  "USD", // the quote endpoint carries no currency; US listings trade in USD
		Timestamp: time.Unix(quote.Timestamp, 0).UTC(),
		Source:    domain.SourceFinnhub,
	}
	setOptional(&result.Open, quote.Open)
	setOptional(&result.High, quote.High)
	setOptional(&result.Low, quote.Low)
	setOptional(&result.Close, quote.PreviousClose)
	setOptional(&result.Change, quote.Change)
	setOptional(&result.ChangePercent, quote.PercentChange)
	return result, nil
}

// MultiplePrices fetches one quote per ticker; Finnhub has no batch endpoint.
func (c *Client) MultiplePrices(ctx context.Context, tickers []domain.Ticker) (map[domain.Ticker]*domain.AssetPrice, error) {
	return marketdata.SequentialPrices(ctx, c, tickers)
}

// HistoricalPrices fetches OHLCV candles for the given range and interval.
func (c *Client) HistoricalPrices(ctx context.Context, ticker domain.Ticker, start, end time.Time, interval domain.Interval) ([]domain.AssetPrice, error) {
	resolution, err := candleResolution(interval)
	if err != nil {
		return nil, err
	}

	var candles candleResponse
	params := url.Values{}
	params.Set("symbol", c.ToSourceTicker(ticker))
	params.Set("resolution", resolution)
	params.Set("from", fmt.Sprintf("%d", start.Unix()))
	params.Set("to", fmt.Sprintf("%d", end.Unix()))
	if err := c.get(ctx, candlePath, params, &candles); err != nil {
		return nil, err
	}

	if candles.Status != "ok" || len(candles.Close) == 0 {
		return nil, fmt.Errorf("%w: no candles for %s", domain.ErrNoData, ticker)
	}
	// Every close needs its timestamp; a truncated payload is unusable.
	if len(candles.Timestamps) != len(candles.Close) {
		return nil, fmt.Errorf("%w: malformed candles for %s", domain.ErrNoData, ticker)
	}

	series := make([]domain.AssetPrice, 0, len(candles.Close))
	for i, closePrice := range candles.Close {
		price, err := domain.NewDecimalFromFloat(closePrice)
		if err != nil {
			return nil, fmt.Errorf("failed to parse candle close: %w", err)
		}
		point := domain.AssetPrice{
			Ticker:    ticker,
			Price:     price,
			Currency:  "USD",
			Timestamp: time.Unix(candles.Timestamps[i], 0).UTC(),
			Source:    domain.SourceFinnhub,
		}
		if i < len(candles.Open) {
			setOptional(&point.Open, candles.Open[i])
		}
		if i < len(candles.High) {
			setOptional(&point.High, candles.High[i])
		}
		if i < len(candles.Low) {
			setOptional(&point.Low, candles.Low[i])
		}
		if i < len(candles.Volume) {
			setOptional(&point.Volume, candles.Volume[i])
		}
		series = append(series, point)
	}
	return series, nil
}

// SearchAssets queries symbol search and maps hits onto NASDAQ by default.
// Relevance decays with result position since Finnhub returns ranked hits
// without a score.
func (c *Client) SearchAssets(ctx context.Context, query domain.AssetSearchQuery) ([]domain.AssetSearchResult, error) {
	var resp searchResponse
	params := url.Values{}
	params.Set("q", query.Query)
	if err := c.get(ctx, searchPath, params, &resp); err != nil {
		return nil, err
	}

	results := make([]domain.AssetSearchResult, 0, len(resp.Result))
	for i, hit := range resp.Result {
		if strings.Contains(hit.Symbol, ".") {
			continue // foreign listing, not addressable through this client
		}
		results = append(results, domain.AssetSearchResult{
			Ticker:         c.ToInternalTicker(hit.Symbol, domain.ExchangeNASDAQ),
			AssetType:      mapSecurityType(hit.Type),
			Name:           hit.Description,
			Exchange:       domain.ExchangeNASDAQ,
			Country:        "US",
			Currency:       "USD",
			RelevanceScore: 1.0 / float64(i+1),
		})
		if len(results) >= query.Limit {
			break
		}
	}
	return results, nil
}

// Financials fetches the basic financials metric set for a ticker.
func (c *Client) Financials(ctx context.Context, ticker domain.Ticker) (*domain.Financials, error) {
	var resp metricResponse
	params := url.Values{}
	params.Set("symbol", c.ToSourceTicker(ticker))
	params.Set("metric", "all")
	if err := c.get(ctx, metricPath, params, &resp); err != nil {
		return nil, err
	}

	if len(resp.Metric) == 0 {
		return nil, fmt.Errorf("%w: no financial metrics for %s", domain.ErrNoData, ticker)
	}

	return &domain.Financials{
		Ticker:    ticker,
		Source:    domain.SourceFinnhub,
		Currency:  "USD",
		Items:     resp.Metric,
		FetchedAt: time.Now().UTC(),
	}, nil
}

// Filings fetches SEC filings for a ticker, filtered and truncated per the query.
func (c *Client) Filings(ctx context.Context, ticker domain.Ticker, query domain.FilingQuery) ([]domain.Filing, error) {
	params := url.Values{}
	params.Set("symbol", c.ToSourceTicker(ticker))
	if query.Start != nil {
		params.Set("from", query.Start.Format("2006-01-02"))
	}
	if query.End != nil {
		params.Set("to", query.End.Format("2006-01-02"))
	}

	var entries []filingsEntry
	if err := c.get(ctx, filingsPath, params, &entries); err != nil {
		return nil, err
	}

	filings := make([]domain.Filing, 0, len(entries))
	for _, entry := range entries {
		if !query.WantsType(entry.Form) {
			continue
		}
		filedAt, err := time.Parse("2006-01-02 15:04:05", entry.FiledDate)
		if err != nil {
			// Some entries carry date-only stamps.
			filedAt, err = time.Parse("2006-01-02", entry.FiledDate)
			if err != nil {
				slog.Warn("Skipping filing with unparseable date",
					"ticker", ticker, "filedDate", entry.FiledDate)
				continue
			}
		}
		filings = append(filings, domain.Filing{
			Ticker:  ticker,
			Type:    entry.Form,
			Title:   fmt.Sprintf("%s filing %s", entry.Form, entry.AccessNumber),
			FiledAt: filedAt.UTC(),
			URL:     entry.ReportURL,
			Source:  domain.SourceFinnhub,
		})
		if query.Limit > 0 && len(filings) >= query.Limit {
			break
		}
	}
	return filings, nil
}

// candleResolution maps a sampling interval to Finnhub's resolution codes.
func candleResolution(interval domain.Interval) (string, error) {
	switch interval {
	case domain.IntervalHour:
		return "60", nil
	case domain.IntervalDay, "":
		return "D", nil
	case domain.IntervalWeek:
		return "W", nil
	case domain.IntervalMonth:
		return "M", nil
	default:
		return "", fmt.Errorf("unsupported interval: %s", interval)
	}
}

// mapSecurityType maps Finnhub security types to domain asset types.
func mapSecurityType(finnhubType string) domain.AssetType {
	switch finnhubType {
	case "ETP", "ETF":
		return domain.AssetTypeETF
	default:
		return domain.AssetTypeStock
	}
}

func setOptional(dst **domain.Decimal, value float64) {
	if value == 0 {
		return
	}
	d, err := domain.NewDecimalFromFloat(value)
	if err != nil {
		return
	}
	*dst = &d
}
