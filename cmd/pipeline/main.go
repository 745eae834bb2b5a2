package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/user/image-pipeline/internal/api"
	"github.com/user/image-pipeline/internal/cache"
	"github.com/user/image-pipeline/internal/config"
	"github.com/user/image-pipeline/internal/fetcher"
	"github.com/user/image-pipeline/internal/monitoring"
	"github.com/user/image-pipeline/internal/persister"
	"github.com/user/image-pipeline/internal/pipeline"
	"github.com/user/image-pipeline/internal/processor"
	"github.com/user/image-pipeline/internal/source"
	"github.com/user/image-pipeline/internal/validator"
)

func main() {
	// Initialize structured logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("could not load config", zap.Error(err))
	}

	// Initialize Storage Layer
	store, err := persister.NewStore(cfg.PostgresURL)
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer store.Close()
	redisStore := cache.NewRedisStore(cfg.RedisAddr)
	resultCache := cache.New(redisStore, cfg.CacheTTL())

	// Source definitions are fixed configuration; a malformed one is fatal.
	registry, err := source.DefaultRegistry()
	if err != nil {
		logger.Fatal("invalid source configuration", zap.Error(err))
	}

	// Initialize Pipeline Components
	metrics := monitoring.NewMetrics(prometheus.DefaultRegisterer)
	httpClient := &http.Client{Timeout: 30 * time.Second}
	blobs := persister.NewHTTPBlobStore(httpClient, cfg.BlobUploadURL, cfg.BlobPublicURL, cfg.BlobAuthToken)

	p := pipeline.New(
		store,
		resultCache,
		registry,
		fetcher.New(cfg.NavTimeout(), logger),
		validator.New(httpClient, cfg.ImageMaxBytes, cfg.ImageMinWidth, cfg.ImageMinHeight, cfg.ImageMaxBrightness),
		processor.New(cfg.ImageBoxSize),
		persister.NewPersister(blobs, store, logger),
		metrics,
		logger,
		cfg.EntityDelay(),
	)

	// Initialize API Server
	server := api.NewServer(cfg, p, store, redisStore, logger)

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("could not start server", zap.Error(err))
		}
	}()

	logger.Info("server started", zap.String("port", cfg.ServerPort))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exiting")
}
