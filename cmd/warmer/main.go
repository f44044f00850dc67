// The warmer consumes warm tasks from RabbitMQ and resolves them into the
// shared Redis cache, keeping HEAD-triggered warming out of the API process.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/hszk-dev/audiorelay/internal/config"
	"github.com/hszk-dev/audiorelay/internal/domain/model"
	"github.com/hszk-dev/audiorelay/internal/extractor"
	"github.com/hszk-dev/audiorelay/internal/infrastructure/cache"
	"github.com/hszk-dev/audiorelay/internal/infrastructure/queue"
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

	// Warming only makes sense into a cache the API can read back.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	logger.Info("connected to Redis")

	streamCache := cache.NewRedis[model.StreamResolution](redisClient, "stream:", cfg.Cache.StreamTTL)
	infoCache := cache.NewRedis[model.TrackInfo](redisClient, "info:", cfg.Cache.InfoTTL)

	queueCfg := queue.DefaultClientConfig(cfg.RabbitMQ.URL())
	queueCfg.MaxRetries = cfg.Warmer.MaxRetries
	queueClient, err := queue.NewClient(ctx, queueCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	defer queueClient.Close()
	logger.Info("connected to RabbitMQ")

	ext := extractor.NewYTDLP(extractor.Config{
		Path:          cfg.Extract.Path,
		StreamTimeout: cfg.Extract.StreamTimeout,
		InfoTimeout:   cfg.Extract.InfoTimeout,
		SearchTimeout: cfg.Extract.SearchTimeout,
	}, logger)

	resolver := usecase.NewResolver(ext, streamCache, infoCache, nil, usecase.DefaultResolverConfig(), logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var wg sync.WaitGroup

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting warmer, consuming warm tasks")
		err := queueClient.ConsumeWarmTasks(ctx, func(task queue.WarmTask) error {
			wg.Add(1)
			defer wg.Done()

			logger.Info("warming stream resolution",
				slog.String("task_id", task.TaskID.String()),
				slog.String("video_id", task.VideoID.String()),
				slog.Int("retry_count", task.RetryCount),
			)

			if _, err := resolver.ResolveStream(ctx, task.VideoID); err != nil {
				logger.Warn("warm task failed",
					slog.String("video_id", task.VideoID.String()),
					slog.String("error", err.Error()),
				)
				return err
			}
			return nil
		})
		if err != nil && ctx.Err() == nil {
			errCh <- fmt.Errorf("consumer error: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down warmer", slog.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Warmer.ShutdownTimeout)
	defer shutdownCancel()

	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("all in-flight warm tasks completed")
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timeout exceeded, some warm tasks may not have completed")
	}

	logger.Info("warmer stopped")
	return nil
}
