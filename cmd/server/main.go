package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/techcompare/specmatch/config"
	httpDelivery "github.com/techcompare/specmatch/internal/delivery/http"
	"github.com/techcompare/specmatch/internal/domain"
	"github.com/techcompare/specmatch/internal/infrastructure/cache"
	"github.com/techcompare/specmatch/internal/infrastructure/catalog"
	"github.com/techcompare/specmatch/internal/infrastructure/postgres"
	"github.com/techcompare/specmatch/internal/infrastructure/sqlite"
	"github.com/techcompare/specmatch/internal/observability"
	"github.com/techcompare/specmatch/internal/scheduler"
	"github.com/techcompare/specmatch/internal/usecase"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	logger.Info().
		Str("version", version).
		Str("environment", cfg.Server.Environment).
		Str("port", cfg.Server.Port).
		Str("cache", cfg.Cache.Type).
		Msg("starting specmatch")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				logger.Warn().Err(err).Msg("failed to release resource")
			}
		}
	}()

	// Catalog source: postgres when a DSN is configured, otherwise the YAML file
	var (
		repo domain.ProductRepository
		sink domain.PredictionSink
	)
	if cfg.Database.DSN != "" {
		pg, err := postgres.Open(ctx, postgres.Config{
			DSN:          cfg.Database.DSN,
			MaxOpenConns: cfg.Database.MaxOpenConns,
		}, logger)
		if err != nil {
			return fmt.Errorf("open product database: %w", err)
		}
		closers = append(closers, pg)
		repo, sink = pg, pg
		logger.Info().Msg("catalog source: postgres")
	} else {
		repo = catalog.NewFileRepository(cfg.Database.CatalogFile)
		logger.Info().Str("file", cfg.Database.CatalogFile).Msg("catalog source: file, prediction history disabled")
	}

	// Catalog cache
	var catalogCache domain.CacheRepository
	switch cfg.Cache.Type {
	case "redis":
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{URL: cfg.Cache.RedisURL})
		if err != nil {
			return fmt.Errorf("connect redis cache: %w", err)
		}
		closers = append(closers, rc)
		catalogCache = rc
	default:
		mc := cache.NewMemoryCache(0)
		closers = append(closers, mc)
		catalogCache = mc
	}

	// Model snapshots
	var store domain.ModelStore
	if cfg.ModelStore.Path != "" {
		ms, err := sqlite.NewModelStore(cfg.ModelStore.Path, cfg.ModelStore.Retain, logger)
		if err != nil {
			return fmt.Errorf("open model store: %w", err)
		}
		closers = append(closers, ms)
		store = ms
	}

	// Initialize usecase layer
	selector := usecase.NewModelSelector(usecase.ModelSelectorConfig{
		MinTrainingSamples: cfg.Training.MinSamples,
		MinValidSamples:    cfg.Training.MinValidSamples,
		TestSize:           cfg.Training.TestSize,
		CVFolds:            cfg.Training.CVFolds,
		SelectK:            cfg.Training.SelectK,
		Seed:               cfg.Training.Seed,
		Estimators:         cfg.Training.Estimators,
		Parallelism:        cfg.Training.Parallelism,
	}, logger)
	catalogService := usecase.NewCatalogService(repo, catalogCache, usecase.CatalogServiceConfig{
		CacheTTL: cfg.Cache.TTL,
	}, logger)
	engine := usecase.NewEngine(selector, catalogService, sink, store, usecase.EngineConfig{
		DefaultTopK: cfg.Matching.DefaultTopK,
		MaxTopK:     cfg.Matching.MaxTopK,
	}, logger)

	if cfg.Training.TrainOnStartup {
		go func() {
			trainCtx, cancel := context.WithTimeout(ctx, cfg.Training.Timeout)
			defer cancel()
			if err := engine.LoadOrTrain(trainCtx); err != nil {
				logger.Error().Err(err).Msg("initial model training failed, serving without a model")
			}
		}()
	}

	if cfg.Training.Schedule != "" {
		retrainer, err := scheduler.NewRetrainer(cfg.Training.Schedule, engine, cfg.Training.Timeout, logger)
		if err != nil {
			return err
		}
		retrainer.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
			defer cancel()
			if err := retrainer.Stop(stopCtx); err != nil {
				logger.Warn().Err(err).Msg("retraining job did not stop in time")
			}
		}()
	}

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(engine, logger)
	router := httpDelivery.SetupRouter(cfg, handler, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	}
	// cancels an in-flight startup training run
	stop()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		if err := srv.Close(); err != nil {
			logger.Error().Err(err).Msg("forced shutdown failed")
		}
	}

	logger.Info().Msg("server stopped")
	return nil
}
