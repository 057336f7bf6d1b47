package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dunamismax/pixelsmith/internal/domain"
	_ "github.com/lib/pq"
)

const jobSchemaSQL = `
CREATE TABLE IF NOT EXISTS transform_jobs (
	id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	kind TEXT NOT NULL,
	file_name TEXT NOT NULL,
	webhook_url TEXT NOT NULL DEFAULT '',
	request JSONB NOT NULL,
	result JSONB,
	error TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
`

// jobRequest is the JSONB shape of the transform settings column.
type jobRequest struct {
	Resize   *domain.ResizeRequest   `json:"resize,omitempty"`
	Compress *domain.CompressRequest `json:"compress,omitempty"`
}

type PostgresJobStore struct {
	db *sql.DB
}

func NewPostgresJobStore(ctx context.Context, dsn string) (*PostgresJobStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	store := &PostgresJobStore{db: db}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *PostgresJobStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, jobSchemaSQL); err != nil {
		return fmt.Errorf("ensure jobs schema: %w", err)
	}
	return nil
}

func (s *PostgresJobStore) Close() error {
	return s.db.Close()
}

func (s *PostgresJobStore) Create(ctx context.Context, job domain.Job) error {
	requestJSON, err := json.Marshal(jobRequest{Resize: job.Resize, Compress: job.Compress})
	if err != nil {
		return fmt.Errorf("marshal job request: %w", err)
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO transform_jobs (id, status, kind, file_name, webhook_url, request, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		job.ID,
		job.Status,
		job.Kind,
		job.FileName,
		job.WebhookURL,
		requestJSON,
		job.CreatedAt,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}

	return nil
}

func (s *PostgresJobStore) Get(ctx context.Context, id string) (domain.Job, bool, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, status, kind, file_name, webhook_url, request, result, error, created_at, updated_at
		 FROM transform_jobs
		 WHERE id = $1`,
		id,
	)

	var (
		job         domain.Job
		requestJSON []byte
		resultJSON  []byte
	)
	if err := row.Scan(
		&job.ID,
		&job.Status,
		&job.Kind,
		&job.FileName,
		&job.WebhookURL,
		&requestJSON,
		&resultJSON,
		&job.Error,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Job{}, false, nil
		}
		return domain.Job{}, false, fmt.Errorf("query job: %w", err)
	}

	var req jobRequest
	if err := json.Unmarshal(requestJSON, &req); err != nil {
		return domain.Job{}, false, fmt.Errorf("unmarshal job request: %w", err)
	}
	job.Resize, job.Compress = req.Resize, req.Compress

	if len(resultJSON) > 0 {
		var result domain.JobResult
		if err := json.Unmarshal(resultJSON, &result); err != nil {
			return domain.Job{}, false, fmt.Errorf("unmarshal job result: %w", err)
		}
		job.Result = &result
	}

	return job, true, nil
}

func (s *PostgresJobStore) UpdateStatus(ctx context.Context, id, status string) (domain.Job, error) {
	return s.exec(ctx, id,
		`UPDATE transform_jobs SET status = $1, updated_at = $2 WHERE id = $3`,
		status, time.Now().UTC(), id,
	)
}

func (s *PostgresJobStore) Complete(ctx context.Context, id string, result domain.JobResult) (domain.Job, error) {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return domain.Job{}, fmt.Errorf("marshal job result: %w", err)
	}
	return s.exec(ctx, id,
		`UPDATE transform_jobs SET status = $1, result = $2, error = '', updated_at = $3 WHERE id = $4`,
		domain.JobStatusSucceeded, resultJSON, time.Now().UTC(), id,
	)
}

func (s *PostgresJobStore) Fail(ctx context.Context, id, reason string) (domain.Job, error) {
	return s.exec(ctx, id,
		`UPDATE transform_jobs SET status = $1, result = NULL, error = $2, updated_at = $3 WHERE id = $4`,
		domain.JobStatusFailed, reason, time.Now().UTC(), id,
	)
}

func (s *PostgresJobStore) exec(ctx context.Context, id, query string, args ...any) (domain.Job, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return domain.Job{}, fmt.Errorf("update job: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.Job{}, ErrJobNotFound
	}

	job, ok, err := s.Get(ctx, id)
	if err != nil {
		return domain.Job{}, err
	}
	if !ok {
		return domain.Job{}, ErrJobNotFound
	}
	return job, nil
}
