// Package main is the entry point for the multichat frontend server.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"multichat/config"
	"multichat/internal/backend"
	"multichat/internal/cache"
	"multichat/internal/catalog"
	"multichat/internal/httpclient"
	"multichat/internal/logging"
	"multichat/internal/observability"
	"multichat/internal/server"
)

func main() {
	configPath := flag.String("config", "", "Path to the YAML config file (default: $MULTICHAT_CONFIG or config.yaml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(logging.New(os.Stderr, cfg.Logging.Format, cfg.Logging.Level))
	slog.Info("starting multichat", "backend", cfg.Backend.URL)

	modelCache, err := newCache(cfg)
	if err != nil {
		slog.Error("failed to initialize model cache", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := modelCache.Close(); err != nil {
			slog.Warn("failed to close model cache", "error", err)
		}
	}()

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(prometheus.DefaultRegisterer)
		slog.Info("prometheus metrics enabled", "endpoint", cfg.Metrics.Endpoint)
	} else {
		slog.Info("prometheus metrics disabled")
	}

	backendClient := backend.New(backend.Config{
		BaseURL:       cfg.Backend.URL,
		PromptTimeout: cfg.Backend.Timeout,
		ModelsTimeout: cfg.Backend.ModelsTimeout,
	}, httpclient.NewDefaultHTTPClient())

	models := catalog.New(backendClient, modelCache,
		catalog.WithTTL(cfg.Cache.TTL),
		catalog.WithSource(cfg.Backend.URL),
		catalog.WithMetrics(metrics),
	)

	srv := server.New(models, backendClient, &server.Config{
		MetricsEnabled:  cfg.Metrics.Enabled,
		MetricsEndpoint: cfg.Metrics.Endpoint,
		BodySizeLimit:   cfg.Server.BodySizeLimit,
		StaticDir:       cfg.Server.StaticDir,
		Metrics:         metrics,
	})

	// Handle graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		slog.Info("shutting down server...")

		// In-flight prompts may be waiting on slow models.
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Backend.Timeout+5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	addr := ":" + cfg.Server.Port
	slog.Info("starting server", "address", addr)

	if err := srv.Start(addr); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			slog.Info("server stopped gracefully")
		} else {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}
}

func newCache(cfg *config.Config) (cache.Cache, error) {
	switch cfg.Cache.Type {
	case "redis":
		return cache.NewRedisCache(cache.RedisConfig{
			URL: cfg.Cache.RedisURL,
			Key: cache.KeyFor(cfg.Backend.URL),
			TTL: cache.DefaultRedisTTL,
		})
	default:
		return cache.NewLocalCache(cfg.Cache.LocalPath, cfg.Backend.URL), nil
	}
}
