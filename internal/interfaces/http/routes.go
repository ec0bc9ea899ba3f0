package http

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// RequestID tags every request with a correlation id, honoring one supplied
// by the caller.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		c.Set("request_id", id)
		c.Next()
	}
}

func SetupRoutes(router *gin.Engine, handler *Handler) {
	router.Use(RequestID())

	router.GET("/health", handler.Health)

	api := router.Group("/api/v1")
	{
		api.GET("/search", handler.SearchAssets)
		api.GET("/assets/:exchange/:symbol", handler.GetAssetInfo)
		api.GET("/prices/:exchange/:symbol", handler.GetRealTimePrice)
		api.POST("/prices", handler.GetMultiplePrices)
		api.POST("/prices/refresh", handler.RefreshPrices)
		api.GET("/history/:exchange/:symbol", handler.GetHistoricalPrices)
		api.GET("/financials/:exchange/:symbol", handler.GetFinancials)
		api.GET("/filings/:exchange/:symbol", handler.GetFilings)
	}
}
