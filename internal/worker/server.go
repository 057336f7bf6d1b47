// Package worker consumes transform jobs from the queue and records their
// outcome in the job store.
package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dunamismax/pixelsmith/internal/config"
	"github.com/dunamismax/pixelsmith/internal/domain"
	"github.com/dunamismax/pixelsmith/internal/pipeline"
	"github.com/dunamismax/pixelsmith/internal/queue"
	"github.com/dunamismax/pixelsmith/internal/store"
	"github.com/dunamismax/pixelsmith/internal/webhook"
	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Server struct {
	logger        *zap.Logger
	server        *asynq.Server
	sem           chan struct{}
	processor     *pipeline.Processor
	webhookClient webhookSender
	jobStore      store.JobStore
	metrics       *metrics
	tracer        trace.Tracer
}

type webhookSender interface {
	Send(ctx context.Context, endpoint, event string, payload any) error
}

func NewServer(
	logger *zap.Logger,
	queueCfg config.QueueConfig,
	workerCfg config.WorkerConfig,
	processor *pipeline.Processor,
	webhookClient *webhook.Client,
	jobStore store.JobStore,
) (*Server, error) {
	if processor == nil {
		return nil, errors.New("processor is required")
	}
	if jobStore == nil {
		return nil, errors.New("job store is required")
	}

	s := newServer(logger, workerCfg.MaxActiveJobs, processor, jobStore)
	if webhookClient != nil {
		s.webhookClient = webhookClient
	}
	s.server = asynq.NewServer(
		queueCfg.RedisClientOpt(),
		asynq.Config{
			Concurrency: workerCfg.Concurrency,
			Queues: map[string]int{
				queueCfg.Name: 1,
			},
			Logger:   s.logger.Sugar(),
			LogLevel: asynq.InfoLevel,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				retried, _ := asynq.GetRetryCount(ctx)
				maxRetry, _ := asynq.GetMaxRetry(ctx)
				s.logger.Warn("task failed",
					zap.String("type", task.Type()),
					zap.Int("retry", retried),
					zap.Int("max_retry", maxRetry),
					zap.Error(err),
				)
			}),
		},
	)
	return s, nil
}

func newServer(logger *zap.Logger, maxActiveJobs int, processor *pipeline.Processor, jobStore store.JobStore) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		logger:    logger,
		sem:       make(chan struct{}, max(1, maxActiveJobs)),
		processor: processor,
		jobStore:  jobStore,
		metrics:   newMetrics(),
		tracer:    otel.Tracer("pixelsmith/worker"),
	}
}

func (s *Server) Run() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TypeTransformImage, s.handleTransformImage)
	return s.server.Run(mux)
}

func (s *Server) Shutdown() {
	s.server.Shutdown()
}

func (s *Server) MetricsHandler() http.Handler {
	return s.metrics.Handler()
}

func (s *Server) handleTransformImage(ctx context.Context, task *asynq.Task) error {
	startedAt := time.Now()
	outcome := domain.JobStatusFailed

	payload, err := queue.ParseTransformImagePayload(task)
	if err != nil {
		return fmt.Errorf("parse payload: %v: %w", err, asynq.SkipRetry)
	}

	ctx, span := s.tracer.Start(ctx, "worker.transform_image", trace.WithSpanKind(trace.SpanKindConsumer))
	span.SetAttributes(
		attribute.String("job.id", payload.JobID),
		attribute.String("job.kind", payload.Kind),
		attribute.String("job.file_name", payload.FileName),
	)
	defer span.End()
	defer func() {
		s.metrics.jobDuration.WithLabelValues(payload.Kind, outcome).Observe(time.Since(startedAt).Seconds())
		s.metrics.jobsTotal.WithLabelValues(payload.Kind, outcome).Inc()
	}()

	// redelivery of a finished job is a no-op
	if job, ok, err := s.jobStore.Get(ctx, payload.JobID); err == nil && ok && job.Terminal() {
		s.logger.Info("job already finished", zap.String("job_id", job.ID), zap.String("status", job.Status))
		outcome = job.Status
		return nil
	}

	s.sem <- struct{}{}
	s.metrics.activeJobs.Inc()
	defer func() {
		<-s.sem
		s.metrics.activeJobs.Dec()
	}()

	logger := s.logger.With(zap.String("job_id", payload.JobID), zap.String("kind", payload.Kind))
	logger.Info("processing job", zap.String("file_name", payload.FileName))
	s.updateJobStatus(ctx, payload.JobID, domain.JobStatusProcessing)

	out, err := s.processor.Process(ctx, pipeline.Request{
		JobID:    payload.JobID,
		Kind:     payload.Kind,
		FileName: payload.FileName,
		Resize:   payload.Resize,
		Compress: payload.Compress,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transform failed")

		input := pipeline.IsInputError(err)
		if !input && !finalAttempt(ctx) {
			logger.Warn("transform failed, will retry", zap.Error(err))
			return fmt.Errorf("run pipeline: %w", err)
		}

		logger.Warn("job failed", zap.Bool("input_error", input), zap.Error(err))
		if _, ferr := s.jobStore.Fail(ctx, payload.JobID, err.Error()); ferr != nil {
			logger.Error("mark job failed", zap.Error(ferr))
		}
		s.dispatchWebhook(ctx, payload, webhook.EventJobFailed, webhook.JobEvent{
			JobID:       payload.JobID,
			Status:      domain.JobStatusFailed,
			Kind:        payload.Kind,
			FileName:    payload.FileName,
			RequestedAt: payload.RequestedAt,
			FinishedAt:  time.Now().UTC(),
			Error:       err.Error(),
		})
		if input {
			return fmt.Errorf("run pipeline: %v: %w", err, asynq.SkipRetry)
		}
		return fmt.Errorf("run pipeline: %w", err)
	}

	computeMS := max(1, time.Since(startedAt).Milliseconds())
	result := domain.JobResult{
		OutputKey:           out.Key,
		MimeType:            out.MimeType,
		Width:               out.Width,
		Height:              out.Height,
		OriginalSizeBytes:   out.SourceBytes,
		CompressedSizeBytes: out.Bytes,
		CompressionRatio:    out.Ratio,
		Label:               out.Label,
		Usage:               domain.NewUsage(out.Width, out.Height, out.SourceBytes, out.Bytes, computeMS),
	}
	// pixels are accounted on the source, which is what the engine walked
	result.PixelsProcessed = out.SourcePixels

	if _, err := s.jobStore.Complete(ctx, payload.JobID, result); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "job store update failed")
		return fmt.Errorf("complete job: %w", err)
	}
	s.recordUsage(payload.Kind, out, result.Usage)
	logger.Info("job completed",
		zap.String("output_key", out.Key),
		zap.String("label", out.Label),
		zap.Int64("bytes", out.Bytes),
		zap.Float64("ratio", out.Ratio),
	)

	s.dispatchWebhook(ctx, payload, webhook.EventJobCompleted, webhook.JobEvent{
		JobID:       payload.JobID,
		Status:      domain.JobStatusSucceeded,
		Kind:        payload.Kind,
		FileName:    payload.FileName,
		RequestedAt: payload.RequestedAt,
		FinishedAt:  time.Now().UTC(),
		Result:      result,
	})

	outcome = domain.JobStatusSucceeded
	span.SetStatus(codes.Ok, "processed")
	return nil
}

// finalAttempt reports whether asynq will not retry the running task.
// Outside asynq there are no retries.
func finalAttempt(ctx context.Context) bool {
	retried, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return true
	}
	maxRetry, ok := asynq.GetMaxRetry(ctx)
	if !ok {
		return true
	}
	return retried >= maxRetry
}

func (s *Server) updateJobStatus(ctx context.Context, jobID, status string) {
	if _, err := s.jobStore.UpdateStatus(ctx, jobID, status); err != nil {
		s.logger.Warn("job status update failed",
			zap.String("job_id", jobID),
			zap.String("status", status),
			zap.Error(err),
		)
	}
}

// dispatchWebhook delivers event when the job asked for one. The job outcome
// is already stored, so delivery failures are only logged and counted.
func (s *Server) dispatchWebhook(ctx context.Context, payload queue.TransformImagePayload, event string, body webhook.JobEvent) {
	if payload.WebhookURL == "" || s.webhookClient == nil {
		return
	}

	if err := s.webhookClient.Send(ctx, payload.WebhookURL, event, body); err != nil {
		s.metrics.webhookFailures.WithLabelValues(event).Inc()
		s.logger.Warn("webhook delivery failed",
			zap.String("job_id", payload.JobID),
			zap.String("event", event),
			zap.Error(err),
		)
	}
}

func (s *Server) recordUsage(kind string, out pipeline.Output, usage domain.Usage) {
	s.metrics.pixelsProcessedTotal.Add(float64(usage.PixelsProcessed))
	s.metrics.bytesSavedTotal.Add(float64(usage.BytesSaved))
	s.metrics.computeTimeMSTotal.Add(float64(usage.ComputeTimeMS))
	if kind == domain.JobKindCompress {
		s.metrics.encodeIterations.WithLabelValues(out.Format.String()).Observe(float64(out.Iterations))
	}
}
