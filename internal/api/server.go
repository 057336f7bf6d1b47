// Package api exposes the HTTP interface: image upload and lookup,
// synchronous resize and compress, and asynchronous transform jobs.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dunamismax/pixelsmith/internal/codec"
	"github.com/dunamismax/pixelsmith/internal/domain"
	"github.com/dunamismax/pixelsmith/internal/logging"
	"github.com/dunamismax/pixelsmith/internal/pipeline"
	"github.com/dunamismax/pixelsmith/internal/queue"
	"github.com/dunamismax/pixelsmith/internal/raster"
	"github.com/dunamismax/pixelsmith/internal/storage"
	"github.com/dunamismax/pixelsmith/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	defaultMaxUploadBytes = 32 << 20
	defaultInfoCacheSize  = 1024
	maxJSONBodyBytes      = 1 << 20
)

// Request costs charged against the rate limiter.
const (
	costUpload   = 1
	costResize   = 2
	costCompress = 3
	costJob      = 1
)

type JobEnqueuer interface {
	EnqueueTransformImage(ctx context.Context, payload queue.TransformImagePayload) (*asynq.TaskInfo, error)
}

type Options struct {
	Logger      *zap.Logger
	Storage     storage.Store
	Processor   *pipeline.Processor
	Jobs        store.JobStore
	Queue       JobEnqueuer
	RateLimiter RateLimiter
	// ClientIDHeader names the header that identifies rate-limit subjects.
	// The client IP is used when it is absent.
	ClientIDHeader string
	MaxUploadBytes int64
	InfoCacheSize  int
}

type Server struct {
	logger         *zap.Logger
	storage        storage.Store
	processor      *pipeline.Processor
	jobs           store.JobStore
	queue          JobEnqueuer
	rateLimiter    RateLimiter
	clientIDHeader string
	maxUploadBytes int64
	infoCache      *lru.Cache[string, domain.ImageInfo]
	metrics        *metrics
	tracer         trace.Tracer
	router         chi.Router
}

func NewServer(opts Options) (*Server, error) {
	if opts.Storage == nil {
		return nil, errors.New("storage is required")
	}
	if opts.Processor == nil {
		return nil, errors.New("processor is required")
	}
	if opts.Jobs == nil {
		opts.Jobs = store.NewMemoryJobStore()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	if opts.InfoCacheSize <= 0 {
		opts.InfoCacheSize = defaultInfoCacheSize
	}
	if opts.ClientIDHeader == "" {
		opts.ClientIDHeader = "X-Client-ID"
	}

	cache, err := lru.New[string, domain.ImageInfo](opts.InfoCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create image info cache: %w", err)
	}

	s := &Server{
		logger:         opts.Logger,
		storage:        opts.Storage,
		processor:      opts.Processor,
		jobs:           opts.Jobs,
		queue:          opts.Queue,
		rateLimiter:    opts.RateLimiter,
		clientIDHeader: opts.ClientIDHeader,
		maxUploadBytes: opts.MaxUploadBytes,
		infoCache:      cache,
		metrics:        newMetrics(),
		tracer:         otel.Tracer("pixelsmith/api"),
	}
	s.routes()
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		s.withTracing,
		s.metrics.withHTTPMetrics,
		logging.HTTPMiddleware(s.logger),
	)

	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", s.metrics.metricsHandler())

	r.Route("/v1", func(r chi.Router) {
		r.With(s.limit(costUpload)).Post("/images", s.handleUpload)
		r.Get("/images/{fileName}", s.handleGetImage)
		r.Get("/images/{fileName}/info", s.handleImageInfo)
		r.With(s.limit(costResize)).Post("/images/{fileName}/resize", s.handleResize)
		r.With(s.limit(costCompress)).Post("/images/{fileName}/compress", s.handleCompress)

		r.With(s.limit(costJob)).Post("/jobs", s.handleCreateJob)
		r.Get("/jobs/{id}", s.handleGetJob)
	})

	s.router = r
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeError maps err onto a status code. Unexpected errors are logged and
// reported without detail.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	msg := err.Error()
	switch {
	case errors.Is(err, raster.ErrDecode):
		msg = raster.ErrDecode.Error()
	case status == http.StatusInternalServerError:
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		msg = "internal error"
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, store.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, raster.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, codec.ErrWebPUnavailable):
		return http.StatusNotImplemented
	case pipeline.IsInputError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, into any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxJSONBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(into); err != nil {
		if errors.Is(err, io.EOF) {
			// an empty body means "all defaults"
			return nil
		}
		return fmt.Errorf("%w: invalid JSON body: %v", domain.ErrInvalidRequest, err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("%w: invalid JSON body: multiple JSON values are not allowed", domain.ErrInvalidRequest)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
