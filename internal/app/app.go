// Package app assembles the components shared by the API and worker
// binaries from configuration.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/dunamismax/pixelsmith/internal/codec"
	"github.com/dunamismax/pixelsmith/internal/config"
	"github.com/dunamismax/pixelsmith/internal/logging"
	"github.com/dunamismax/pixelsmith/internal/pipeline"
	"github.com/dunamismax/pixelsmith/internal/storage"
	"github.com/dunamismax/pixelsmith/internal/store"
	"github.com/dunamismax/pixelsmith/internal/telemetry"
	"go.uber.org/zap"
)

type Runtime struct {
	Config    config.Config
	Logger    *zap.Logger
	Storage   storage.Store
	Jobs      store.JobStore
	Processor *pipeline.Processor

	closers []func(context.Context) error
}

// Open loads configuration and builds the shared runtime for service, which
// names the logger and the traced service. Callers must Close the runtime.
func Open(ctx context.Context, service string) (*Runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	logger = logger.Named(service)

	rt := &Runtime{Config: cfg, Logger: logger}
	if err := rt.open(ctx, service); err != nil {
		_ = rt.Close(context.Background())
		return nil, err
	}
	return rt, nil
}

func (rt *Runtime) open(ctx context.Context, service string) error {
	cfg := rt.Config

	shutdownTracing, err := telemetry.SetupTracing(ctx, telemetry.TraceConfig{
		ServiceName:  "pixelsmith-" + service,
		Exporter:     cfg.Tracing.Exporter,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		OTLPInsecure: cfg.Tracing.OTLPInsecure,
	}, rt.Logger)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	rt.closers = append(rt.closers, shutdownTracing)

	if err := codec.Startup(); err != nil {
		return fmt.Errorf("start codec runtime: %w", err)
	}
	rt.closers = append(rt.closers, func(context.Context) error {
		codec.Shutdown()
		return nil
	})

	rt.Storage, err = OpenStorage(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	jobs, closeJobs, err := OpenJobStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	rt.Jobs = jobs
	rt.closers = append(rt.closers, closeJobs)

	rt.Processor, err = pipeline.NewProcessor(rt.Storage, codec.NewEncoder(), cfg.Engine.MaxPixels())
	if err != nil {
		return fmt.Errorf("build processor: %w", err)
	}

	rt.Logger.Info("runtime ready",
		zap.String("storage", cfg.Storage.Backend),
		zap.Bool("postgres", cfg.Database.DSN != ""),
		zap.String("codec_backend", codec.NewEncoder().Backend()),
		zap.String("tracing", cfg.Tracing.Exporter),
	)
	return nil
}

// Close releases resources in reverse order of acquisition and flushes the
// logger.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	_ = rt.Logger.Sync()
	return errors.Join(errs...)
}

func OpenStorage(ctx context.Context, cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Backend {
	case config.StorageMinio:
		ms, err := storage.NewMinioStore(storage.MinioConfig{
			Endpoint: cfg.Endpoint,
			Access:   cfg.AccessKey,
			Secret:   cfg.SecretKey,
			Bucket:   cfg.Bucket,
			UseSSL:   cfg.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		if err := ms.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("ensure bucket %s: %w", ms.Bucket(), err)
		}
		return ms, nil
	case config.StorageLocal:
		return storage.NewLocalStore(cfg.LocalDir)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
}

// OpenJobStore returns a Postgres store when a DSN is configured and an
// in-memory store otherwise. The returned func closes the store.
func OpenJobStore(ctx context.Context, cfg config.DatabaseConfig) (store.JobStore, func(context.Context) error, error) {
	if cfg.DSN == "" {
		return store.NewMemoryJobStore(), func(context.Context) error { return nil }, nil
	}

	pg, err := store.NewPostgresJobStore(ctx, cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open job store: %w", err)
	}
	if err := pg.EnsureSchema(ctx); err != nil {
		_ = pg.Close()
		return nil, nil, fmt.Errorf("ensure job schema: %w", err)
	}
	return pg, func(context.Context) error { return pg.Close() }, nil
}
