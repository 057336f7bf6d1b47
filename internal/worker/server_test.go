package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/dunamismax/pixelsmith/internal/codec"
	"github.com/dunamismax/pixelsmith/internal/domain"
	"github.com/dunamismax/pixelsmith/internal/pipeline"
	"github.com/dunamismax/pixelsmith/internal/queue"
	"github.com/dunamismax/pixelsmith/internal/storage"
	"github.com/dunamismax/pixelsmith/internal/store"
	"github.com/dunamismax/pixelsmith/internal/webhook"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type sentWebhook struct {
	endpoint string
	event    string
	payload  webhook.JobEvent
}

type captureWebhook struct {
	mu   sync.Mutex
	sent []sentWebhook
	err  error
}

func (c *captureWebhook) Send(_ context.Context, endpoint, event string, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, sentWebhook{endpoint: endpoint, event: event, payload: payload.(webhook.JobEvent)})
	return c.err
}

type testEnv struct {
	server  *Server
	objects *storage.LocalStore
	jobs    *store.MemoryJobStore
	hooks   *captureWebhook
}

func intPtr(v int) *int { return &v }

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	objects, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	processor, err := pipeline.NewProcessor(objects, codec.NewEncoder(), 0)
	require.NoError(t, err)

	env := &testEnv{objects: objects, jobs: store.NewMemoryJobStore(), hooks: &captureWebhook{}}
	env.server = newServer(zaptest.NewLogger(t), 2, processor, env.jobs)
	env.server.webhookClient = env.hooks
	return env
}

func (e *testEnv) seed(t *testing.T, job domain.Job) *asynq.Task {
	t.Helper()
	now := time.Now().UTC()
	job.Status = domain.JobStatusQueued
	job.CreatedAt, job.UpdatedAt = now, now
	require.NoError(t, e.jobs.Create(context.Background(), job))

	task, err := queue.NewTransformImageTask(queue.PayloadForJob(job))
	require.NoError(t, err)
	return task
}

func (e *testEnv) putPNG(t *testing.T, name string, w, h int) int64 {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 9), G: uint8(y * 3), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	key, err := storage.SourceKey(name)
	require.NoError(t, err)
	require.NoError(t, e.objects.Put(context.Background(), key, buf.Bytes(), "image/png"))
	return int64(buf.Len())
}

func (e *testEnv) job(t *testing.T, id string) domain.Job {
	t.Helper()
	job, ok, err := e.jobs.Get(context.Background(), id)
	require.NoError(t, err)
	require.True(t, ok)
	return job
}

func TestHandleResizeJob(t *testing.T) {
	env := newTestEnv(t)
	srcBytes := env.putPNG(t, "input.png", 120, 60)

	width := 30
	resize := &domain.ResizeRequest{Width: &width}
	require.NoError(t, resize.Normalize())
	task := env.seed(t, domain.Job{
		ID:         "job-resize",
		Kind:       domain.JobKindResize,
		FileName:   "input.png",
		WebhookURL: "https://hooks.example.com/done",
		Resize:     resize,
	})

	require.NoError(t, env.server.handleTransformImage(context.Background(), task))

	job := env.job(t, "job-resize")
	assert.Equal(t, domain.JobStatusSucceeded, job.Status)
	require.NotNil(t, job.Result)
	assert.Equal(t, "outputs/job-resize/resize.png", job.Result.OutputKey)
	assert.Equal(t, 30, job.Result.Width)
	assert.Equal(t, 15, job.Result.Height)
	assert.Equal(t, "LANCZOS (Q:90)", job.Result.Label)
	assert.Equal(t, int64(120*60), job.Result.PixelsProcessed)
	assert.Equal(t, srcBytes, job.Result.OriginalSizeBytes)
	assert.Positive(t, job.Result.ComputeTimeMS)

	_, err := env.objects.Stat(context.Background(), job.Result.OutputKey)
	require.NoError(t, err)

	require.Len(t, env.hooks.sent, 1)
	assert.Equal(t, webhook.EventJobCompleted, env.hooks.sent[0].event)
	assert.Equal(t, "https://hooks.example.com/done", env.hooks.sent[0].endpoint)
	assert.Equal(t, domain.JobStatusSucceeded, env.hooks.sent[0].payload.Status)

	assert.Equal(t, 1.0, testutil.ToFloat64(env.server.metrics.jobsTotal.WithLabelValues(domain.JobKindResize, domain.JobStatusSucceeded)))
	assert.Equal(t, float64(120*60), testutil.ToFloat64(env.server.metrics.pixelsProcessedTotal))
}

func TestHandleCompressJob(t *testing.T) {
	env := newTestEnv(t)
	env.putPNG(t, "photo.png", 64, 64)

	format := "JPEG"
	compress := &domain.CompressRequest{OutputFormat: &format, Quality: intPtr(70)}
	require.NoError(t, compress.Normalize())
	task := env.seed(t, domain.Job{
		ID:       "job-compress",
		Kind:     domain.JobKindCompress,
		FileName: "photo.png",
		Compress: compress,
	})

	require.NoError(t, env.server.handleTransformImage(context.Background(), task))

	job := env.job(t, "job-compress")
	assert.Equal(t, domain.JobStatusSucceeded, job.Status)
	require.NotNil(t, job.Result)
	assert.Equal(t, "image/jpeg", job.Result.MimeType)
	assert.Equal(t, "HUFFMAN (Q:70)", job.Result.Label)
	assert.Equal(t, "outputs/job-compress/compress.jpg", job.Result.OutputKey)
	assert.Empty(t, env.hooks.sent, "no webhook was requested")
}

func TestHandleJobWithMissingSourceFailsWithoutRetry(t *testing.T) {
	env := newTestEnv(t)
	task := env.seed(t, domain.Job{
		ID:         "job-missing",
		Kind:       domain.JobKindCompress,
		FileName:   "gone.png",
		WebhookURL: "https://hooks.example.com/done",
		Compress:   &domain.CompressRequest{Quality: intPtr(80), Method: "HUFFMAN", MaxIterations: intPtr(10)},
	})

	err := env.server.handleTransformImage(context.Background(), task)
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))

	job := env.job(t, "job-missing")
	assert.Equal(t, domain.JobStatusFailed, job.Status)
	assert.Contains(t, job.Error, "not found")

	require.Len(t, env.hooks.sent, 1)
	assert.Equal(t, webhook.EventJobFailed, env.hooks.sent[0].event)
	assert.NotEmpty(t, env.hooks.sent[0].payload.Error)
}

func TestHandleJobWithBadRequestFailsWithoutRetry(t *testing.T) {
	env := newTestEnv(t)
	env.putPNG(t, "photo.png", 8, 8)
	task := env.seed(t, domain.Job{
		ID:       "job-bad",
		Kind:     domain.JobKindResize,
		FileName: "photo.png",
		Resize:   &domain.ResizeRequest{Algorithm: "LANCZOS", Quality: intPtr(90)},
	})

	err := env.server.handleTransformImage(context.Background(), task)
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
	assert.Equal(t, domain.JobStatusFailed, env.job(t, "job-bad").Status)
}

func TestHandleJobSkipsFinishedJobs(t *testing.T) {
	env := newTestEnv(t)
	task := env.seed(t, domain.Job{
		ID:       "job-done",
		Kind:     domain.JobKindCompress,
		FileName: "photo.png",
	})
	_, err := env.jobs.Complete(context.Background(), "job-done", domain.JobResult{OutputKey: "outputs/job-done/compress.png"})
	require.NoError(t, err)

	require.NoError(t, env.server.handleTransformImage(context.Background(), task))
	assert.Equal(t, "outputs/job-done/compress.png", env.job(t, "job-done").Result.OutputKey)
}

func TestHandleJobRejectsMalformedPayload(t *testing.T) {
	env := newTestEnv(t)
	body, err := json.Marshal(map[string]string{"kind": "resize"})
	require.NoError(t, err)

	err = env.server.handleTransformImage(context.Background(), asynq.NewTask(queue.TypeTransformImage, body))
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestWebhookFailureDoesNotFailJob(t *testing.T) {
	env := newTestEnv(t)
	env.putPNG(t, "photo.png", 16, 16)
	env.hooks.err = errors.New("receiver down")

	compress := &domain.CompressRequest{}
	require.NoError(t, compress.Normalize())
	task := env.seed(t, domain.Job{
		ID:         "job-hook",
		Kind:       domain.JobKindCompress,
		FileName:   "photo.png",
		WebhookURL: "https://hooks.example.com/done",
		Compress:   compress,
	})

	require.NoError(t, env.server.handleTransformImage(context.Background(), task))
	assert.Equal(t, domain.JobStatusSucceeded, env.job(t, "job-hook").Status)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.server.metrics.webhookFailures.WithLabelValues(webhook.EventJobCompleted)))
}

func TestFinalAttemptOutsideAsynq(t *testing.T) {
	assert.True(t, finalAttempt(context.Background()))
}
