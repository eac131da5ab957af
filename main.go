package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"inventory_sales/api"
	"inventory_sales/internal/config"
	"inventory_sales/internal/metrics"
	"inventory_sales/internal/observability"
	"inventory_sales/internal/postgres"
	"inventory_sales/internal/sales"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(fmt.Errorf("error loading config: %v", err))
	}

	otelShutdown, err := observability.Setup(ctx, cfg)
	if err != nil {
		panic(fmt.Errorf("error setting up telemetry: %v", err))
	}

	logger, err := observability.NewLogger(cfg)
	if err != nil {
		panic(fmt.Errorf("error building logger: %v", err))
	}
	defer logger.Sync()

	storage, closeStorage, err := openStorage(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open storage", zap.Error(err))
	}
	defer closeStorage()

	registry := metrics.NewRegistry()
	salesService := sales.NewService(storage, logger, sales.WithMetrics(registry))

	r := gin.Default()
	api.InitRoutes(r, salesService, registry, logger)

	srv := &http.Server{Addr: cfg.Addr, Handler: r}
	go func() {
		logger.Info("starting server", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("error trying to start server", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	if err := otelShutdown(shutdownCtx); err != nil {
		logger.Error("telemetry shutdown failed", zap.Error(err))
	}
}

// openStorage selects PostgreSQL when a database URL is configured and the
// in-memory store otherwise.
func openStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (sales.Storage, func(), error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, using in-memory storage")
		return sales.NewLocalStorage(), func() {}, nil
	}

	store, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return store, func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close database", zap.Error(err))
		}
	}, nil
}
