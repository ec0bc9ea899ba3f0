package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	_ "github.com/sijms/go-ora/v2"

	"github.com/openmarkets/market-hub/internal/application"
	"github.com/openmarkets/market-hub/internal/domain"
	"github.com/openmarkets/market-hub/internal/infrastructure/cache"
	"github.com/openmarkets/market-hub/internal/infrastructure/config"
	"github.com/openmarkets/market-hub/internal/infrastructure/marketdata"
	"github.com/openmarkets/market-hub/internal/infrastructure/marketdata/finnhub"
	"github.com/openmarkets/market-hub/internal/infrastructure/marketdata/yfinance"
	"github.com/openmarkets/market-hub/internal/infrastructure/persistence/memory"
	"github.com/openmarkets/market-hub/internal/infrastructure/persistence/sqldb"
	httpHandler "github.com/openmarkets/market-hub/internal/interfaces/http"
)

// setupLogger configures the default structured logger from the configured level.
func setupLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		AddSource: true,
		Level:     lvl,
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, opts))
	slog.SetDefault(logger)
	return logger
}

// buildProviders instantiates the configured market data adapters in priority order.
func buildProviders(cfg *config.Config) ([]marketdata.Provider, error) {
	providers := make([]marketdata.Provider, 0, len(cfg.Providers))
	for _, name := range cfg.Providers {
		switch name {
		case "yfinance":
			providers = append(providers, yfinance.NewClientWithBaseURL(cfg.YFinanceBaseURL))
		case "finnhub":
			providers = append(providers, finnhub.NewClient(cfg.FinnhubAPIKey))
		default:
			return nil, fmt.Errorf("unsupported market data provider: %s", name)
		}
	}
	return providers, nil
}

// initializeRepository selects the asset catalog backend. With no driver
// configured the catalog lives in memory.
func initializeRepository(cfg *config.Config) (domain.AssetRepository, error) {
	if cfg.DBDriver == "" {
		slog.Info("No database configured, using in-memory asset catalog")
		return memory.NewAssetRepository(), nil
	}

	var db *sql.DB
	var dialect sqldb.Dialect
	var err error

	switch cfg.DBDriver {
	case "postgres":
		db, err = sql.Open("pgx", cfg.DBDSN)
		dialect = &sqldb.PostgresDialect{}
	case "oracle":
		db, err = sql.Open("oracle", cfg.DBDSN)
		dialect = &sqldb.OracleDialect{}
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.DBDriver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	repo := sqldb.NewRepository(sqldb.New(db, dialect))
	if err := repo.AutoMigrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

// initializeCache selects the price cache backend. Redis when configured,
// otherwise an in-process cache with the same TTL semantics.
func initializeCache(ctx context.Context, cfg *config.Config) (application.PriceCache, error) {
	if cfg.RedisAddr == "" {
		slog.Info("No Redis configured, using in-memory price cache")
		return cache.NewMemoryPriceCache(cfg.PriceCacheTTL), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	redisCache := cache.NewRedisPriceCache(client, cfg.PriceCacheTTL)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := redisCache.Ping(pingCtx); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return redisCache, nil
}

// buildServer wires the HTTP surface over the asset service.
func buildServer(cfg *config.Config, assetService *application.AssetService) *http.Server {
	router := gin.Default()
	handler := httpHandler.NewHandler(assetService)
	httpHandler.SetupRoutes(router, handler)

	return &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// App wraps the application components for easier testing.
type App struct {
	Server        *http.Server
	PriceUpdater  *application.PriceUpdater
	CancelContext context.CancelFunc
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down application...")

	a.PriceUpdater.Stop()
	a.CancelContext()

	if err := a.Server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	return nil
}

// run contains the main application logic without os.Exit calls.
func run() error {
	if err := godotenv.Load(); err != nil {
		slog.Warn("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	setupLogger(cfg.LogLevel)

	providers, err := buildProviders(cfg)
	if err != nil {
		return fmt.Errorf("failed to build providers: %w", err)
	}

	manager := marketdata.NewManager(cfg.BatchRetryLimit)
	for _, p := range providers {
		manager.Register(p)
	}

	repo, err := initializeRepository(cfg)
	if err != nil {
		return fmt.Errorf("repository initialization failed: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	priceCache, err := initializeCache(ctx, cfg)
	if err != nil {
		return fmt.Errorf("cache initialization failed: %w", err)
	}

	assetService := application.NewAssetService(repo, manager, priceCache)

	priceUpdater := application.NewPriceUpdater(assetService, cfg.PriceRefreshInterval)
	go priceUpdater.Start(ctx)

	server := buildServer(cfg, assetService)

	app := &App{
		Server:        server,
		PriceUpdater:  priceUpdater,
		CancelContext: cancel,
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("Server starting", "host", cfg.ServerHost, "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-quit:
		slog.Info("Received shutdown signal")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := app.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	slog.Info("Server exited gracefully")
	return nil
}

func main() {
	if err := run(); err != nil {
		slog.Error("Application error", "error", err)
		os.Exit(1)
	}
}
