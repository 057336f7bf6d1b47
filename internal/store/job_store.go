// Package store persists transform jobs.
package store

import (
	"context"
	"errors"

	"github.com/dunamismax/pixelsmith/internal/domain"
)

var ErrJobNotFound = errors.New("job not found")

type JobStore interface {
	Create(ctx context.Context, job domain.Job) error
	Get(ctx context.Context, id string) (domain.Job, bool, error)
	UpdateStatus(ctx context.Context, id, status string) (domain.Job, error)
	// Complete marks the job succeeded with its result.
	Complete(ctx context.Context, id string, result domain.JobResult) (domain.Job, error)
	// Fail marks the job failed with a reason.
	Fail(ctx context.Context, id, reason string) (domain.Job, error)
}
