// Package main provides the analysis API server entrypoint.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/imovel-limpo/engine/internal/cache"
	"github.com/imovel-limpo/engine/internal/config"
	"github.com/imovel-limpo/engine/internal/extract"
	"github.com/imovel-limpo/engine/internal/llm"
	"github.com/imovel-limpo/engine/internal/observability"
	"github.com/imovel-limpo/engine/internal/pdf"
	"github.com/imovel-limpo/engine/internal/pipeline"
	"github.com/imovel-limpo/engine/internal/registry"
	"github.com/imovel-limpo/engine/internal/report"
	"github.com/imovel-limpo/engine/internal/storage"
)

func main() {
	godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if len(os.Args) > 2 && os.Args[1] == "--config" {
		cfgPath = os.Args[2]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})

	logger.Info().
		Str("host", cfg.Server.Host).
		Int("port", cfg.Server.Port).
		Str("storage", cfg.Storage.Driver).
		Str("cache", cfg.Cache.Driver).
		Msg("Starting analysis API")

	deps, cleanup, err := buildDependencies(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer cleanup()

	router := NewRouter(logger, cfg, deps)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("HTTP server listening")
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error().Err(err).Msg("Server error")
	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
		if err := srv.Close(); err != nil {
			logger.Error().Err(err).Msg("Forced shutdown failed")
		}
	}

	logger.Info().Msg("Server stopped")
}

// buildDependencies wires the pipeline from configuration. The returned
// cleanup closes whatever holds external resources.
func buildDependencies(cfg *config.Config, logger *observability.Logger) (Dependencies, func(), error) {
	nop := func() {}

	llmClient, err := llm.NewClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, logger)
	if err != nil {
		return Dependencies{}, nop, err
	}

	store, err := buildStore(cfg, logger)
	if err != nil {
		return Dependencies{}, nop, err
	}

	lookupCache, err := buildCache(cfg)
	if err != nil {
		store.Close()
		return Dependencies{}, nop, err
	}

	gateway := extract.NewGateway(llmClient, pdf.NewConverter(), logger)
	extractor := extract.NewStructuredExtractor(llmClient, logger)
	lookupClient := registry.NewClient(cfg.Registry.BaseURL, cfg.Registry.Token,
		cfg.Registry.RequestTimeout, logger)
	fanout := registry.NewEngine(lookupClient, registry.EngineConfig{
		CallSpacing: cfg.Registry.CallSpacing,
		Cache:       lookupCache,
		CacheTTL:    cfg.Cache.TTL,
	}, logger)
	synthesizer := report.NewSynthesizer(llmClient, logger)

	analyzer := pipeline.NewAnalyzer(gateway, extractor, fanout, synthesizer, store, logger)

	cleanup := func() {
		if lookupCache != nil {
			if err := lookupCache.Close(); err != nil {
				logger.Warn().Err(err).Msg("Failed to close lookup cache")
			}
		}
		if err := store.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close analysis store")
		}
	}

	return Dependencies{
		Gateway:  gateway,
		Analyzer: analyzer,
		Chatter:  llmClient,
		Store:    store,
	}, cleanup, nil
}

func buildStore(cfg *config.Config, logger *observability.Logger) (storage.Store, error) {
	switch cfg.Storage.Driver {
	case "memory":
		return storage.NewMemoryStore(), nil
	case "postgres":
		return storage.NewSQLStore("postgres", cfg.Storage.Postgres.DSN,
			cfg.Storage.Postgres.MaxOpenConns, logger)
	default:
		return storage.NewSQLStore("sqlite3", cfg.Storage.SQLite.Path, 0, logger)
	}
}

// buildCache returns nil when lookup caching is disabled.
func buildCache(cfg *config.Config) (cache.Client, error) {
	switch cfg.Cache.Driver {
	case "memory":
		return cache.NewMemoryClient(), nil
	case "redis":
		return cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
	default:
		return nil, nil
	}
}
