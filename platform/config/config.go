// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// RedisConfig provides Redis connection settings for the aggregate cache.
type RedisConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
}

// CacheConfig provides settings for the aggregate cache.
type CacheConfig interface {
	RedisConfig
	GetCacheTTL() time.Duration
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// EngineConfig provides settings for the valuation engine.
type EngineConfig interface {
	GetPageSize() int
	GetPhoneRegion() string
}

// SchedulerConfig provides settings for the asynq scheduler and worker.
type SchedulerConfig interface {
	RedisConfig
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetFunnelWarmInterval() time.Duration
	GetFunnelWarmBranches() []string
	GetFunnelWarmPeriodDays() int
}

// Config holds all application configuration loaded from the environment.
type Config struct {
	Env            string
	HTTPAddr       string
	DatabaseURL    string
	RedisURL       string
	RedisInsecure  bool
	JWTSecret      string
	CORSAllowAll   bool
	CORSOrigins    []string
	CORSAllowCreds bool

	PageSize    int
	PhoneRegion string
	CacheTTL    time.Duration

	AsynqQueue           string
	AsynqConcurrency     int
	FunnelWarmInterval   time.Duration
	FunnelWarmBranches   []string
	FunnelWarmPeriodDays int
}

// Load reads configuration from the environment, with .env support for
// local development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:            getEnv("APP_ENV", "development"),
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		RedisURL:       getEnv("REDIS_URL", ""),
		RedisInsecure:  strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		JWTSecret:      getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:   corsAllowAll,
		CORSOrigins:    corsOrigins,
		CORSAllowCreds: strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),

		PageSize:    mustInt(getEnv("FEED_PAGE_SIZE", "25")),
		PhoneRegion: getEnv("PHONE_REGION", "BR"),
		CacheTTL:    mustDuration(getEnv("AGGREGATE_CACHE_TTL", "10m")),

		AsynqQueue:           getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:     mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		FunnelWarmInterval:   mustDuration(getEnv("FUNNEL_WARM_INTERVAL", "15m")),
		FunnelWarmBranches:   splitCSV(getEnv("FUNNEL_WARM_BRANCHES", "")),
		FunnelWarmPeriodDays: mustInt(getEnv("FUNNEL_WARM_PERIOD_DAYS", "30")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.PageSize < 1 {
		return nil, fmt.Errorf("FEED_PAGE_SIZE must be positive")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return n
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(origins []string) bool {
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// =============================================================================
// Interface implementations
// =============================================================================

func (c *Config) GetDatabaseURL() string                { return c.DatabaseURL }
func (c *Config) GetRedisURL() string                   { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool             { return c.RedisInsecure }
func (c *Config) GetCacheTTL() time.Duration            { return c.CacheTTL }
func (c *Config) GetJWTAccessSecret() string            { return c.JWTSecret }
func (c *Config) GetHTTPAddr() string                   { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool                 { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string              { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool               { return c.CORSAllowCreds }
func (c *Config) GetPageSize() int                      { return c.PageSize }
func (c *Config) GetPhoneRegion() string                { return c.PhoneRegion }
func (c *Config) GetAsynqQueueName() string             { return c.AsynqQueue }
func (c *Config) GetAsynqConcurrency() int              { return c.AsynqConcurrency }
func (c *Config) GetFunnelWarmInterval() time.Duration  { return c.FunnelWarmInterval }
func (c *Config) GetFunnelWarmBranches() []string       { return c.FunnelWarmBranches }
func (c *Config) GetFunnelWarmPeriodDays() int          { return c.FunnelWarmPeriodDays }
