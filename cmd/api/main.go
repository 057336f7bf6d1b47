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

	"github.com/dunamismax/pixelsmith/internal/api"
	"github.com/dunamismax/pixelsmith/internal/app"
	"github.com/dunamismax/pixelsmith/internal/queue"
	"github.com/dunamismax/pixelsmith/internal/ratelimit"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "pixelsmith-api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := app.Open(ctx, "api")
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rt.Close(closeCtx); err != nil {
			fmt.Fprintf(os.Stderr, "pixelsmith-api: close: %v\n", err)
		}
	}()
	cfg, logger := rt.Config, rt.Logger

	queueClient := queue.NewClient(cfg.Queue.RedisClientOpt(), cfg.Queue.Name, cfg.Queue.MaxRetry)
	defer func() {
		if err := queueClient.Close(); err != nil {
			logger.Warn("queue client close", zap.Error(err))
		}
	}()

	opts := api.Options{
		Logger:         logger,
		Storage:        rt.Storage,
		Processor:      rt.Processor,
		Jobs:           rt.Jobs,
		Queue:          queueClient,
		MaxUploadBytes: cfg.API.MaxUploadBytes,
		InfoCacheSize:  cfg.API.InfoCacheSize,
	}

	if cfg.RateLimit.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Queue.RedisAddr,
			Password: cfg.Queue.RedisPassword,
			DB:       cfg.Queue.RedisDB,
		})
		defer redisClient.Close()

		limiter, err := ratelimit.NewRedisTokenBucket(redisClient, cfg.RateLimit.Capacity, cfg.RateLimit.Window, cfg.RateLimit.Prefix)
		if err != nil {
			return fmt.Errorf("build rate limiter: %w", err)
		}
		opts.RateLimiter = limiter
		logger.Info("rate limiting enabled",
			zap.Int("capacity", cfg.RateLimit.Capacity),
			zap.Duration("window", cfg.RateLimit.Window),
		)
	}

	server, err := api.NewServer(opts)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:         cfg.API.Addr,
		Handler:      server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.API.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
