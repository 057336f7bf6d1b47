package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/dunamismax/pixelsmith/internal/domain"
	"github.com/dunamismax/pixelsmith/internal/id"
	"github.com/dunamismax/pixelsmith/internal/queue"
	"github.com/dunamismax/pixelsmith/internal/storage"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	if s.queue == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "job queue is unavailable"})
		return
	}

	var req domain.CreateJobRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := req.Normalize(); err != nil {
		s.writeError(w, r, err)
		return
	}

	key, err := storage.SourceKey(req.FileName)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if _, err := s.storage.Stat(r.Context(), key); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "source image is missing: " + req.FileName})
			return
		}
		s.writeError(w, r, err)
		return
	}

	now := time.Now().UTC()
	job := domain.Job{
		ID:         id.New(),
		Status:     domain.JobStatusCreated,
		Kind:       req.Kind,
		FileName:   req.FileName,
		WebhookURL: req.WebhookURL,
		Resize:     req.Resize,
		Compress:   req.Compress,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.jobs.Create(r.Context(), job); err != nil {
		s.writeError(w, r, err)
		return
	}

	info, err := s.queue.EnqueueTransformImage(r.Context(), queue.PayloadForJob(job))
	if err != nil {
		s.logger.Error("enqueue failed", zap.String("job_id", job.ID), zap.Error(err))
		if _, ferr := s.jobs.Fail(r.Context(), job.ID, "enqueue failed"); ferr != nil {
			s.logger.Warn("mark job failed", zap.String("job_id", job.ID), zap.Error(ferr))
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to enqueue job"})
		return
	}
	s.metrics.queueEnqueued.WithLabelValues(info.Queue).Inc()

	if updated, err := s.jobs.UpdateStatus(r.Context(), job.ID, domain.JobStatusQueued); err != nil {
		s.logger.Warn("update job status", zap.String("job_id", job.ID), zap.Error(err))
	} else {
		job = updated
	}

	s.logger.Info("job queued",
		zap.String("job_id", job.ID),
		zap.String("kind", job.Kind),
		zap.String("file_name", job.FileName),
		zap.String("task_id", info.ID),
		zap.String("queue", info.Queue),
	)
	writeJSON(w, http.StatusAccepted, job)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, ok, err := s.jobs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
		return
	}
	writeJSON(w, http.StatusOK, job)
}
