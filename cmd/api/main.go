package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/hszk-dev/audiorelay/internal/api/handler"
	"github.com/hszk-dev/audiorelay/internal/api/middleware"
	"github.com/hszk-dev/audiorelay/internal/config"
	"github.com/hszk-dev/audiorelay/internal/domain/model"
	"github.com/hszk-dev/audiorelay/internal/extractor"
	"github.com/hszk-dev/audiorelay/internal/infrastructure/cache"
	"github.com/hszk-dev/audiorelay/internal/infrastructure/queue"
	"github.com/hszk-dev/audiorelay/internal/relay"
	"github.com/hszk-dev/audiorelay/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	streamCache, infoCache, err := buildCaches(ctx, cfg)
	if err != nil {
		return err
	}

	ext := extractor.NewYTDLP(extractor.Config{
		Path:          cfg.Extract.Path,
		StreamTimeout: cfg.Extract.StreamTimeout,
		InfoTimeout:   cfg.Extract.InfoTimeout,
		SearchTimeout: cfg.Extract.SearchTimeout,
	}, logger)

	var warmQueue usecase.WarmPublisher
	if cfg.Queue.Enabled {
		queueClient, err := queue.NewClient(ctx, queue.DefaultClientConfig(cfg.RabbitMQ.URL()))
		if err != nil {
			return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
		}
		defer queueClient.Close()
		warmQueue = queueClient
		logger.Info("connected to RabbitMQ, warm tasks delegated to warmer")
	}

	resolver := usecase.NewResolver(ext, streamCache, infoCache, warmQueue, usecase.DefaultResolverConfig(), logger)
	searchSvc := usecase.NewSearchService(ext)
	rl := relay.New(relay.Config{
		HeaderTimeout: cfg.Relay.HeaderTimeout,
		UserAgent:     relay.DefaultConfig().UserAgent,
	}, logger)

	r := setupRouter(logger, resolver, searchSvc, rl, cfg.Production())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		// No WriteTimeout: stream responses run for the length of a track.
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down server", slog.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// buildCaches constructs the stream and info caches for the configured
// backend. Memory caches get a background sweeper tied to ctx.
func buildCaches(ctx context.Context, cfg *config.Config) (
	cache.Cache[model.StreamResolution],
	cache.Cache[model.TrackInfo],
	error,
) {
	switch cfg.Cache.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		streamCache := cache.NewRedis[model.StreamResolution](client, "stream:", cfg.Cache.StreamTTL)
		infoCache := cache.NewRedis[model.TrackInfo](client, "info:", cfg.Cache.InfoTTL)
		return streamCache, infoCache, nil

	case "memory":
		streamCache := cache.NewMemory[model.StreamResolution](cache.MemoryConfig{
			TTL:        cfg.Cache.StreamTTL,
			MaxEntries: cfg.Cache.MaxEntries,
		})
		infoCache := cache.NewMemory[model.TrackInfo](cache.MemoryConfig{
			TTL:        cfg.Cache.InfoTTL,
			MaxEntries: cfg.Cache.MaxEntries,
		})
		streamCache.StartSweeper(ctx, cfg.Cache.SweepInterval)
		infoCache.StartSweeper(ctx, cfg.Cache.SweepInterval)
		return streamCache, infoCache, nil

	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

func setupRouter(
	logger *slog.Logger,
	resolver usecase.Resolver,
	searchSvc usecase.SearchService,
	rl *relay.Relay,
	production bool,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.CORS)

	healthHandler := handler.NewHealthHandler(resolver)
	searchHandler := handler.NewSearchHandler(searchSvc, logger)
	trackHandler := handler.NewTrackHandler(resolver, rl, production, logger)
	cacheHandler := handler.NewCacheHandler(resolver)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.Health)
		r.Get("/search", searchHandler.Search)
		r.Get("/info/{id}", trackHandler.Info)
		r.Get("/stream/{id}", trackHandler.Stream)
		r.Head("/stream/{id}", trackHandler.StreamHead)
		r.Post("/cache/clear", cacheHandler.Clear)
		r.Get("/cache/stats", cacheHandler.Stats)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
