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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"vodgallery/internal/cache"
	"vodgallery/internal/config"
	"vodgallery/internal/database"
	"vodgallery/internal/handlers"
	"vodgallery/internal/logging"
	"vodgallery/internal/metrics"
	"vodgallery/internal/render"
	"vodgallery/internal/router"
	"vodgallery/internal/services"
	"vodgallery/internal/websocket"
	"vodgallery/internal/worker"
)

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()

	logCfg := logging.Config{Level: cfg.LogLevel, Service: "vodgallery"}
	if cfg.Env == "development" {
		logCfg.Output = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	}
	logging.Configure(logCfg)
	logger := logging.WithComponent("main")
	logger.Info().Str("env", cfg.Env).Str("api_base", cfg.APIBase).Msg("environment loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ──── Step 2: Initialize Redis (optional) ────
	var (
		redisClient  *redis.Client
		pageCache    cache.PageCache
		cacheBackend = "memory"
	)
	if cfg.RedisURL != "" {
		client, err := database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer client.Close()
		redisClient = client
		pageCache = cache.NewRedisCache(client, logging.WithComponent("cache"))
		cacheBackend = "redis"
		logger.Info().Msg("redis connected, page cache backed by redis")
	} else {
		pageCache = cache.NewMemoryCache()
		logger.Info().Msg("REDIS_URL not set, using in-memory page cache without prefetch")
	}

	metrics.RegisterCacheStats(prometheus.DefaultRegisterer, cacheBackend, func() (int64, int64, int64) {
		st := pageCache.Stats()
		return st.Hits, st.Misses, st.Sets
	})

	// ──── Step 3: Initialize Services ────
	vodClient := services.NewVODClient(cfg.APIBase, cfg.UpstreamTimeout)
	pageService := services.NewPageService(vodClient, pageCache, cfg.CacheTTL, cfg.CacheStaleTTL)

	renderer, err := render.New(render.Site{
		Title:    cfg.SiteTitle,
		AdClient: cfg.AdClient,
		AdSlot:   cfg.AdSlot,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("template parsing failed")
	}

	// ──── Step 4: Start Prefetch Worker Pool ────
	var prefetch handlers.Prefetcher
	var workerPool *worker.Pool
	if redisClient != nil {
		workerPool = worker.NewPool(redisClient, pageService, cfg.PrefetchWorkers)
		workerPool.Start()
		prefetch = workerPool
	}

	refresher := services.NewRefresher(pageService, cfg.RefreshInterval, 1)
	refresher.Start()

	// ──── Step 5: Start WebSocket Hub ────
	wsHub := websocket.NewHub(pageService, renderer)

	// ──── Step 6: Start HTTP Server ────
	r := router.New(
		handlers.NewGalleryHandler(pageService, renderer, prefetch),
		handlers.NewAPIHandler(pageService),
		wsHub,
		cfg.RateLimitPerMin,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msgf("gallery ready on http://localhost:%s", cfg.Port)
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server error")
		}
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown incomplete")
	}
	wsHub.Close()
	if workerPool != nil {
		workerPool.Stop()
	}
	refresher.Stop()
	logger.Info().Msg("stopped")
}
