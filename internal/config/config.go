// Package config loads service configuration from environment variables.
// All variables use the ASSESSGEN_ prefix. LLM provider settings are read
// separately by the llm package.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service configuration.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Cache       CacheConfig
	Acquire     AcquireConfig
	Generation  GenerationConfig
	Log         LogConfig
	Trace       TraceConfig
	CatalogPath string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// DatabaseConfig selects the assessment store. An empty URL keeps
// everything in the local SQLite file at Path.
type DatabaseConfig struct {
	Path     string
	URL      string
	MaxConns int
	MinConns int
}

// CacheConfig holds Redis settings for the page snippet cache. An empty URL
// disables caching.
type CacheConfig struct {
	URL    string
	Prefix string
}

// AcquireConfig controls web content acquisition.
type AcquireConfig struct {
	Enabled     bool
	SearchURL   string
	FallbackURL string
	Concurrency int
}

// GenerationConfig controls question batching and retries.
type GenerationConfig struct {
	BatchSize       int
	MaxAttempts     int
	BaseDelay       time.Duration
	MaxTopUpBatches int
}

// LogConfig holds logger settings.
type LogConfig struct {
	Mode  string
	Level string
}

// TraceConfig holds tracing settings.
type TraceConfig struct {
	Enabled     bool
	SampleRatio float64
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Addr:           envStr("ASSESSGEN_ADDR", ":8080"),
			AllowedOrigins: envList("ASSESSGEN_CORS_ORIGINS"),
			RequestTimeout: envDuration("ASSESSGEN_REQUEST_TIMEOUT", 5*time.Minute),
		},
		Database: DatabaseConfig{
			Path:     envStr("ASSESSGEN_DB", ""),
			URL:      envStr("ASSESSGEN_DATABASE_URL", ""),
			MaxConns: envInt("ASSESSGEN_DB_MAX_CONNS", 10),
			MinConns: envInt("ASSESSGEN_DB_MIN_CONNS", 1),
		},
		Cache: CacheConfig{
			URL:    envStr("ASSESSGEN_CACHE_URL", ""),
			Prefix: envStr("ASSESSGEN_CACHE_PREFIX", "assessgen:"),
		},
		Acquire: AcquireConfig{
			Enabled:     envBool("ASSESSGEN_ACQUIRE_ENABLED", true),
			SearchURL:   envStr("ASSESSGEN_SEARCH_URL", ""),
			FallbackURL: envStr("ASSESSGEN_FALLBACK_SEARCH_URL", ""),
			Concurrency: envInt("ASSESSGEN_ACQUIRE_CONCURRENCY", 4),
		},
		Generation: GenerationConfig{
			BatchSize:       envInt("ASSESSGEN_BATCH_SIZE", 5),
			MaxAttempts:     envInt("ASSESSGEN_BATCH_ATTEMPTS", 3),
			BaseDelay:       envDuration("ASSESSGEN_BATCH_BACKOFF", time.Second),
			MaxTopUpBatches: envInt("ASSESSGEN_TOPUP_BATCHES", 2),
		},
		Log: LogConfig{
			Mode:  envStr("ASSESSGEN_LOG_MODE", "prod"),
			Level: envStr("ASSESSGEN_LOG_LEVEL", "info"),
		},
		Trace: TraceConfig{
			Enabled:     envBool("ASSESSGEN_TRACE", false),
			SampleRatio: envFloat("ASSESSGEN_TRACE_SAMPLE_RATIO", 1),
		},
		CatalogPath: envStr("ASSESSGEN_CATALOG_PATH", ""),
	}
	return cfg, cfg.Validate()
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Generation.BatchSize < 1 || c.Generation.BatchSize > 20 {
		return fmt.Errorf("ASSESSGEN_BATCH_SIZE must be between 1 and 20, got %d", c.Generation.BatchSize)
	}
	if c.Generation.MaxAttempts < 1 {
		return fmt.Errorf("ASSESSGEN_BATCH_ATTEMPTS must be at least 1, got %d", c.Generation.MaxAttempts)
	}
	if c.Generation.MaxTopUpBatches < 0 {
		return fmt.Errorf("ASSESSGEN_TOPUP_BATCHES must not be negative, got %d", c.Generation.MaxTopUpBatches)
	}
	if c.Acquire.Concurrency < 1 {
		return fmt.Errorf("ASSESSGEN_ACQUIRE_CONCURRENCY must be at least 1, got %d", c.Acquire.Concurrency)
	}
	if c.Log.Mode != "dev" && c.Log.Mode != "prod" {
		return fmt.Errorf("ASSESSGEN_LOG_MODE must be 'dev' or 'prod', got %q", c.Log.Mode)
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envList(key string) []string {
	var out []string
	for _, p := range strings.Split(os.Getenv(key), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
