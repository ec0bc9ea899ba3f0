package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openmarkets/market-hub/internal/domain"
)

// AssetService defines the operations the HTTP layer exposes.
type AssetService interface {
	Sources() []domain.DataSource
	GetAssetInfo(ctx context.Context, ticker domain.Ticker) (*domain.Asset, error)
	GetRealTimePrice(ctx context.Context, ticker domain.Ticker) (*domain.AssetPrice, error)
	GetMultiplePrices(ctx context.Context, tickers []domain.Ticker) map[domain.Ticker]*domain.AssetPrice
	GetHistoricalPrices(ctx context.Context, ticker domain.Ticker, start, end time.Time, interval domain.Interval) ([]domain.AssetPrice, error)
	SearchAssets(ctx context.Context, query domain.AssetSearchQuery) ([]domain.AssetSearchResult, error)
	GetFinancials(ctx context.Context, ticker domain.Ticker) (*domain.Financials, error)
	GetFilings(ctx context.Context, ticker domain.Ticker, query domain.FilingQuery) ([]domain.Filing, error)
	RefreshPrices(ctx context.Context) error
}

type Handler struct {
	assetService AssetService
}

func NewHandler(assetService AssetService) *Handler {
	return &Handler{
		assetService: assetService,
	}
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type MultiplePricesRequest struct {
	Tickers []domain.Ticker `json:"tickers" binding:"required"`
}

// pathTicker assembles the canonical ticker from the :exchange/:symbol path
// segments and validates it up front.
func pathTicker(c *gin.Context) (domain.Ticker, bool) {
	ticker, err := domain.ParseTicker(c.Param("exchange") + ":" + c.Param("symbol"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return "", false
	}
	return ticker, true
}

// writeError maps domain errors onto HTTP statuses: caller mistakes are 400,
// exhausted or absent upstreams are 502, anything else is 500.
func writeError(c *gin.Context, err error) {
	var allFailed *domain.AllProvidersError

	switch {
	case errors.Is(err, domain.ErrMalformedTicker):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.As(err, &allFailed), errors.Is(err, domain.ErrNoProviderForExchange):
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
}

func (h *Handler) SearchAssets(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
			return
		}
		limit = parsed
	}

	query := domain.AssetSearchQuery{Query: c.Query("q"), Limit: limit}
	results, err := h.assetService.SearchAssets(c.Request.Context(), query)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "Search failed", "query", query.Query, "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (h *Handler) GetAssetInfo(c *gin.Context) {
	ticker, ok := pathTicker(c)
	if !ok {
		return
	}

	asset, err := h.assetService.GetAssetInfo(c.Request.Context(), ticker)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "Failed to get asset info", "ticker", ticker, "error", err)
		writeError(c, err)
		return
	}
	if asset == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "asset not found: " + string(ticker)})
		return
	}

	c.JSON(http.StatusOK, asset)
}

func (h *Handler) GetRealTimePrice(c *gin.Context) {
	ticker, ok := pathTicker(c)
	if !ok {
		return
	}

	price, err := h.assetService.GetRealTimePrice(c.Request.Context(), ticker)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "Failed to get price", "ticker", ticker, "error", err)
		writeError(c, err)
		return
	}
	if price == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no price available for " + string(ticker)})
		return
	}

	c.JSON(http.StatusOK, price)
}

func (h *Handler) GetMultiplePrices(c *gin.Context) {
	var req MultiplePricesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.ErrorContext(c.Request.Context(), "Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	prices := h.assetService.GetMultiplePrices(c.Request.Context(), req.Tickers)

	c.JSON(http.StatusOK, gin.H{"prices": prices})
}

func (h *Handler) GetHistoricalPrices(c *gin.Context) {
	ticker, ok := pathTicker(c)
	if !ok {
		return
	}

	end := time.Now().UTC()
	start := end.AddDate(0, -1, 0)
	var err error

	if raw := c.Query("start"); raw != "" {
		if start, err = time.Parse(time.RFC3339, raw); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid start time"})
			return
		}
	}
	if raw := c.Query("end"); raw != "" {
		if end, err = time.Parse(time.RFC3339, raw); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid end time"})
			return
		}
	}
	interval := domain.Interval(c.DefaultQuery("interval", string(domain.IntervalDay)))

	series, err := h.assetService.GetHistoricalPrices(c.Request.Context(), ticker, start, end, interval)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "Failed to get history", "ticker", ticker, "error", err)
		writeError(c, err)
		return
	}
	if len(series) == 0 {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no history available for " + string(ticker)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"prices": series})
}

func (h *Handler) GetFinancials(c *gin.Context) {
	ticker, ok := pathTicker(c)
	if !ok {
		return
	}

	financials, err := h.assetService.GetFinancials(c.Request.Context(), ticker)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "Failed to get financials", "ticker", ticker, "error", err)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, financials)
}

func (h *Handler) GetFilings(c *gin.Context) {
	ticker, ok := pathTicker(c)
	if !ok {
		return
	}

	var query domain.FilingQuery
	if raw := c.Query("types"); raw != "" {
		query.Types = strings.Split(raw, ",")
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
			return
		}
		query.Limit = limit
	}
	if raw := c.Query("start"); raw != "" {
		start, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid start time"})
			return
		}
		query.Start = &start
	}
	if raw := c.Query("end"); raw != "" {
		end, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid end time"})
			return
		}
		query.End = &end
	}

	filings, err := h.assetService.GetFilings(c.Request.Context(), ticker, query)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "Failed to get filings", "ticker", ticker, "error", err)
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"filings": filings})
}

func (h *Handler) RefreshPrices(c *gin.Context) {
	if err := h.assetService.RefreshPrices(c.Request.Context()); err != nil {
		slog.ErrorContext(c.Request.Context(), "Failed to refresh prices", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "prices refreshed successfully"})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"sources": h.assetService.Sources(),
	})
}
