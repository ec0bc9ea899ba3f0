package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries everything the process reads from the environment. Optional
// backends (database, Redis) stay empty when unconfigured and the caller
// falls back to in-memory implementations.
type Config struct {
	ServerHost string
	ServerPort string

	// Providers lists enabled data sources in priority order: the first
	// entry is tried first when several cover the same exchange.
	Providers []string

	FinnhubAPIKey   string
	YFinanceBaseURL string

	DBDriver string
	DBDSN    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	PriceCacheTTL        time.Duration
	PriceRefreshInterval time.Duration
	BatchRetryLimit      int

	LogLevel string
}

const defaultProviders = "yfinance,finnhub"

func Load() (*Config, error) {
	providers := splitProviders(getEnvOrDefault("PROVIDERS", defaultProviders))
	if len(providers) == 0 {
		return nil, fmt.Errorf("PROVIDERS must name at least one data source")
	}

	finnhubKey := os.Getenv("FINNHUB_API_KEY")
	for _, p := range providers {
		switch p {
		case "finnhub":
			if finnhubKey == "" {
				return nil, fmt.Errorf("FINNHUB_API_KEY environment variable is required for the finnhub provider")
			}
		case "yfinance":
			// No credentials; the microservice URL has a default.
		default:
			return nil, fmt.Errorf("unknown provider %q in PROVIDERS", p)
		}
	}

	cacheTTL, err := time.ParseDuration(getEnvOrDefault("PRICE_CACHE_TTL", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid PRICE_CACHE_TTL: %w", err)
	}

	refreshInterval, err := time.ParseDuration(getEnvOrDefault("PRICE_REFRESH_INTERVAL", "60s"))
	if err != nil {
		return nil, fmt.Errorf("invalid PRICE_REFRESH_INTERVAL: %w", err)
	}

	batchRetryLimit, err := strconv.Atoi(getEnvOrDefault("BATCH_RETRY_LIMIT", "4"))
	if err != nil || batchRetryLimit < 1 {
		return nil, fmt.Errorf("invalid BATCH_RETRY_LIMIT: must be a positive integer")
	}

	redisDB := 0
	if raw := os.Getenv("REDIS_DB"); raw != "" {
		redisDB, err = strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
		}
	}

	dbDriver := getEnvOrDefault("DB_DRIVER", "")
	dbDSN := os.Getenv("DB_DSN")
	if dbDriver != "" && dbDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required when DB_DRIVER is set")
	}

	return &Config{
		ServerHost:           getEnvOrDefault("SERVER_HOST", "localhost"),
		ServerPort:           getEnvOrDefault("SERVER_PORT", "8080"),
		Providers:            providers,
		FinnhubAPIKey:        finnhubKey,
		YFinanceBaseURL:      getEnvOrDefault("YFINANCE_BASE_URL", "http://localhost:8000"),
		DBDriver:             dbDriver,
		DBDSN:                dbDSN,
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		RedisDB:              redisDB,
		PriceCacheTTL:        cacheTTL,
		PriceRefreshInterval: refreshInterval,
		BatchRetryLimit:      batchRetryLimit,
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
	}, nil
}

func splitProviders(raw string) []string {
	parts := strings.Split(raw, ",")
	providers := make([]string, 0, len(parts))
	for _, part := range parts {
		if p := strings.TrimSpace(strings.ToLower(part)); p != "" {
			providers = append(providers, p)
		}
	}
	return providers
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
