package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/trubax/trubax-core/internal/domain"
)

type Config struct {
	Profile  string
	LogLevel string

	// Store selection. Backend is one of memory, redis, sql.
	StoreBackend   string
	RedisAddr      string
	RedisKeyPrefix string
	DatabaseDriver string
	DatabaseDSN    string

	// Sweep tuning. SweepChunkSize of 0 means "store batch limit".
	SweepInterval  time.Duration
	SweepChunkSize int

	// Bounded retry for the follow toggle's conflict loop.
	FollowRetryAttempts int

	OTELServiceName           string
	OTELEnvironment           string
	OTELMetricsEnabled        bool
	OTELTracesEnabled         bool
	OTELLogsEnabled           bool
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPInsecure  bool
	OTELMetricsExportInterval time.Duration
}

func Load(ctx context.Context) (*Config, error) {
	cfg := &Config{
		Profile:  getEnv("TRUBAX_PROFILE", "dev"),
		LogLevel: getEnv("TRUBAX_LOG_LEVEL", "info"),

		StoreBackend:   getEnv("TRUBAX_STORE_BACKEND", "memory"),
		RedisAddr:      getEnv("TRUBAX_REDIS_ADDR", "localhost:6379"),
		RedisKeyPrefix: getEnv("TRUBAX_REDIS_KEY_PREFIX", "trubax"),
		DatabaseDriver: getEnv("TRUBAX_DB_DRIVER", "sqlite"),
		DatabaseDSN:    getEnv("TRUBAX_DB_DSN", "trubax.db"),

		SweepInterval:       getEnvDuration("TRUBAX_SWEEP_INTERVAL", time.Hour),
		SweepChunkSize:      getEnvInt("TRUBAX_SWEEP_CHUNK_SIZE", 0),
		FollowRetryAttempts: getEnvInt("TRUBAX_FOLLOW_RETRY_ATTEMPTS", 3),

		OTELServiceName:           getEnv("OTEL_SERVICE_NAME", "trubax-core"),
		OTELEnvironment:           getEnv("OTEL_ENVIRONMENT", "dev"),
		OTELMetricsEnabled:        getEnvBool("OTEL_METRICS_ENABLED", false),
		OTELTracesEnabled:         getEnvBool("OTEL_TRACES_ENABLED", false),
		OTELLogsEnabled:           getEnvBool("OTEL_LOGS_ENABLED", false),
		OTELExporterOTLPEndpoint:  getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTELExporterOTLPInsecure:  getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTELMetricsExportInterval: getEnvDuration("OTEL_METRICS_EXPORT_INTERVAL", 30*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		recordConfigValidationEvent(ctx, cfg.Profile, "failure", classifyConfigLoadError(err))
		return nil, fmt.Errorf("validate config: %w", err)
	}
	recordConfigValidationEvent(ctx, cfg.Profile, "success", "none")
	return cfg, nil
}

// Validate enforces startup consistency, notably that the shared TTL
// constants still describe a sane expiry policy relative to sweep tuning.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case "memory", "redis", "sql":
	default:
		return domain.Configurationf("unknown store backend %q", c.StoreBackend)
	}
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return domain.Configurationf("unknown database driver %q", c.DatabaseDriver)
	}
	if domain.AnonymousSessionTTL <= 0 || domain.PersistentSessionTTL <= 0 {
		return domain.Configurationf("session TTLs must be positive")
	}
	if domain.AnonymousSessionTTL >= domain.PersistentSessionTTL {
		return domain.Configurationf("anonymous TTL %s must be shorter than persistent TTL %s",
			domain.AnonymousSessionTTL, domain.PersistentSessionTTL)
	}
	if c.SweepInterval <= 0 {
		return domain.Configurationf("sweep interval %s must be positive", c.SweepInterval)
	}
	if c.SweepInterval > domain.AnonymousSessionTTL {
		return domain.Configurationf("sweep interval %s exceeds anonymous TTL %s",
			c.SweepInterval, domain.AnonymousSessionTTL)
	}
	if c.SweepChunkSize < 0 {
		return domain.Configurationf("sweep chunk size %d must not be negative", c.SweepChunkSize)
	}
	if c.FollowRetryAttempts < 1 {
		return domain.Configurationf("follow retry attempts %d must be at least 1", c.FollowRetryAttempts)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
