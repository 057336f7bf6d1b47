// Package config loads service configuration from defaults, an optional
// config file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/dunamismax/pixelsmith/internal/logging"
	"github.com/hibiken/asynq"
	"github.com/spf13/viper"
)

// FileEnv names an optional YAML, TOML or JSON config file.
const FileEnv = "PIXELSMITH_CONFIG"

type Config struct {
	API       APIConfig       `mapstructure:"api"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Database  DatabaseConfig  `mapstructure:"database"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Webhook   WebhookConfig   `mapstructure:"webhook"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Log       logging.Config  `mapstructure:"log"`
	Engine    EngineConfig    `mapstructure:"engine"`
}

type APIConfig struct {
	Addr           string `mapstructure:"addr"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes"`
	InfoCacheSize  int    `mapstructure:"info_cache_size"`
}

type QueueConfig struct {
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	Name          string `mapstructure:"name"`
	MaxRetry      int    `mapstructure:"max_retry"`
}

func (q QueueConfig) RedisClientOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     q.RedisAddr,
		Password: q.RedisPassword,
		DB:       q.RedisDB,
	}
}

type WorkerConfig struct {
	Concurrency   int    `mapstructure:"concurrency"`
	MaxActiveJobs int    `mapstructure:"max_active_jobs"`
	MetricsAddr   string `mapstructure:"metrics_addr"`
}

const (
	StorageLocal = "local"
	StorageMinio = "minio"
)

type StorageConfig struct {
	Backend   string `mapstructure:"backend"`
	LocalDir  string `mapstructure:"local_dir"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// DatabaseConfig selects the job store. An empty DSN keeps jobs in memory.
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Capacity int           `mapstructure:"capacity"`
	Window   time.Duration `mapstructure:"window"`
	Prefix   string        `mapstructure:"prefix"`
}

type WebhookConfig struct {
	SigningSecret  string        `mapstructure:"signing_secret"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
}

type TracingConfig struct {
	Exporter     string `mapstructure:"exporter"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool   `mapstructure:"otlp_insecure"`
}

type EngineConfig struct {
	// MaxMegapixels bounds decoded source size. Zero disables the check.
	MaxMegapixels int `mapstructure:"max_megapixels"`
}

func (e EngineConfig) MaxPixels() int {
	return e.MaxMegapixels * 1_000_000
}

type setting struct {
	key   string
	env   string
	value any
}

func settings() []setting {
	return []setting{
		{"api.addr", "PIXELSMITH_API_ADDR", ":8080"},
		{"api.max_upload_bytes", "PIXELSMITH_MAX_UPLOAD_BYTES", int64(32 << 20)},
		{"api.info_cache_size", "PIXELSMITH_INFO_CACHE_SIZE", 1024},

		{"queue.redis_addr", "REDIS_ADDR", "localhost:6379"},
		{"queue.redis_password", "REDIS_PASSWORD", ""},
		{"queue.redis_db", "REDIS_DB", 0},
		{"queue.name", "ASYNC_QUEUE", "default"},
		{"queue.max_retry", "ASYNC_MAX_RETRY", 5},

		{"worker.concurrency", "WORKER_CONCURRENCY", max(2, runtime.NumCPU())},
		{"worker.max_active_jobs", "WORKER_MAX_ACTIVE_JOBS", max(1, runtime.NumCPU()/2)},
		{"worker.metrics_addr", "WORKER_METRICS_ADDR", ":9091"},

		{"storage.backend", "PIXELSMITH_STORAGE", StorageLocal},
		{"storage.local_dir", "PIXELSMITH_STORAGE_DIR", "./.pixelsmith-data"},
		{"storage.endpoint", "MINIO_ENDPOINT", "localhost:9000"},
		{"storage.access_key", "MINIO_ACCESS_KEY", "minioadmin"},
		{"storage.secret_key", "MINIO_SECRET_KEY", "minioadmin"},
		{"storage.bucket", "MINIO_BUCKET", "pixelsmith"},
		{"storage.use_ssl", "MINIO_USE_SSL", false},

		{"database.dsn", "POSTGRES_DSN", ""},

		{"ratelimit.enabled", "PIXELSMITH_RATE_LIMIT", false},
		{"ratelimit.capacity", "PIXELSMITH_RATE_LIMIT_CAPACITY", 60},
		{"ratelimit.window", "PIXELSMITH_RATE_LIMIT_WINDOW", time.Minute},
		{"ratelimit.prefix", "PIXELSMITH_RATE_LIMIT_PREFIX", "pixelsmith:ratelimit"},

		{"webhook.signing_secret", "WEBHOOK_SIGNING_SECRET", ""},
		{"webhook.timeout", "WEBHOOK_TIMEOUT", 10 * time.Second},
		{"webhook.max_attempts", "WEBHOOK_MAX_ATTEMPTS", 3},
		{"webhook.initial_backoff", "WEBHOOK_INITIAL_BACKOFF", time.Second},
		{"webhook.max_backoff", "WEBHOOK_MAX_BACKOFF", 10 * time.Second},

		{"tracing.exporter", "OTEL_TRACES_EXPORTER", "none"},
		{"tracing.otlp_endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT", ""},
		{"tracing.otlp_insecure", "OTEL_EXPORTER_OTLP_INSECURE", true},

		{"log.level", "PIXELSMITH_LOG_LEVEL", "info"},
		{"log.format", "PIXELSMITH_LOG_FORMAT", "json"},

		{"engine.max_megapixels", "PIXELSMITH_MAX_MEGAPIXELS", 100},
	}
}

// Load reads configuration. The config file named by PIXELSMITH_CONFIG is
// optional; a named file that cannot be read is an error.
func Load() (Config, error) {
	v := viper.New()
	for _, s := range settings() {
		v.SetDefault(s.key, s.value)
		if err := v.BindEnv(s.key, s.env); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", s.env, err)
		}
	}

	if path := strings.TrimSpace(os.Getenv(FileEnv)); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	switch c.Storage.Backend {
	case StorageLocal:
		if strings.TrimSpace(c.Storage.LocalDir) == "" {
			errs = append(errs, errors.New("storage.local_dir is required for the local backend"))
		}
	case StorageMinio:
		if strings.TrimSpace(c.Storage.Bucket) == "" {
			errs = append(errs, errors.New("storage.bucket is required for the minio backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported storage backend %q", c.Storage.Backend))
	}
	if c.Worker.Concurrency < 1 {
		errs = append(errs, errors.New("worker.concurrency must be positive"))
	}
	if c.Worker.MaxActiveJobs < 1 {
		errs = append(errs, errors.New("worker.max_active_jobs must be positive"))
	}
	if c.RateLimit.Enabled && (c.RateLimit.Capacity < 1 || c.RateLimit.Window <= 0) {
		errs = append(errs, errors.New("ratelimit capacity and window must be positive"))
	}
	if c.Engine.MaxMegapixels < 0 {
		errs = append(errs, errors.New("engine.max_megapixels must not be negative"))
	}
	return errors.Join(errs...)
}
