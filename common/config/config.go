package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backend names accepted by STORAGE_BACKEND.
const (
	StorageBackendFS       = "fs"
	StorageBackendPostgres = "postgres"
)

// Cache backend names accepted by CACHE_BACKEND.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// Config holds all service configuration
type Config struct {
	Service   ServiceConfig
	Upload    UploadConfig
	Storage   StorageConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Telemetry TelemetryConfig
}

// ServiceConfig holds service-specific settings
type ServiceConfig struct {
	Name        string
	Port        int
	Environment string
	LogLevel    string
	LogFormat   string
}

// UploadConfig holds upload acceptance settings
type UploadConfig struct {
	MaxBytes          int64    // Hard ceiling on payload size, inclusive
	AllowedExtensions []string // Accepted file extensions, dot included
	PublicBaseURL     string   // Base for share links; empty = derive from request
}

// StorageConfig selects and configures the artifact store backend
type StorageConfig struct {
	Backend string // "fs" or "postgres"
	Dir     string // Root directory for the fs backend
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	Host        string
	Port        int
	Database    string
	User        string
	Password    string
	MaxConns    int
	MinConns    int
	MaxIdleTime time.Duration
	MaxLifetime time.Duration
}

// RedisConfig holds the shared Redis connection settings
type RedisConfig struct {
	URL string
}

// CacheConfig holds record cache settings
type CacheConfig struct {
	Enabled    bool
	Backend    string // "memory" or "redis"
	DefaultTTL time.Duration
}

// RateLimitConfig holds upload rate limit settings
type RateLimitConfig struct {
	Enabled       bool
	UploadLimit   int64 // Uploads allowed per window per client
	GlobalLimit   int64 // Uploads allowed per window service-wide
	WindowSeconds int
}

// TelemetryConfig holds observability settings
type TelemetryConfig struct {
	EnablePprof bool
	PprofPort   int
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	cfg := &Config{
		Service: ServiceConfig{
			Name:        serviceName,
			Port:        getEnvInt("PORT", 8080),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFormat:   getEnv("LOG_FORMAT", "text"), // Default to text for development
		},
		Upload: UploadConfig{
			MaxBytes:          getEnvInt64("UPLOAD_MAX_BYTES", 2*1024*1024),
			AllowedExtensions: getEnvSlice("UPLOAD_ALLOWED_EXT", []string{".ics"}),
			PublicBaseURL:     getEnv("PUBLIC_BASE_URL", ""),
		},
		Storage: StorageConfig{
			Backend: getEnv("STORAGE_BACKEND", StorageBackendFS),
			Dir:     getEnv("UPLOAD_DIR", "/tmp/uploads"),
		},
		Database: DatabaseConfig{
			Host:        getEnv("POSTGRES_HOST", "localhost"),
			Port:        getEnvInt("POSTGRES_PORT", 5432),
			Database:    getEnv("POSTGRES_DB", "alturatime"),
			User:        getEnv("POSTGRES_USER", "alturatime"),
			Password:    getEnv("POSTGRES_PASSWORD", "alturatime"),
			MaxConns:    getEnvInt("POSTGRES_MAX_CONNS", 20),
			MinConns:    getEnvInt("POSTGRES_MIN_CONNS", 2),
			MaxIdleTime: getEnvDuration("POSTGRES_MAX_IDLE_TIME", 30*time.Minute),
			MaxLifetime: getEnvDuration("POSTGRES_MAX_LIFETIME", 1*time.Hour),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379/0"),
		},
		Cache: CacheConfig{
			Enabled:    getEnvBool("CACHE_ENABLED", true),
			Backend:    getEnv("CACHE_BACKEND", CacheBackendMemory),
			DefaultTTL: getEnvDuration("CACHE_DEFAULT_TTL", 1*time.Hour),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getEnvBool("RATE_LIMIT_ENABLED", false),
			UploadLimit:   getEnvInt64("RATE_LIMIT_UPLOADS", 30),
			GlobalLimit:   getEnvInt64("RATE_LIMIT_GLOBAL", 300),
			WindowSeconds: getEnvInt("RATE_LIMIT_WINDOW_SEC", 60),
		},
		Telemetry: TelemetryConfig{
			EnablePprof: getEnvBool("ENABLE_PPROF", false),
			PprofPort:   getEnvInt("PPROF_PORT", 6060),
		},
	}

	return cfg, cfg.Validate()
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Service.Port)
	}

	if c.Upload.MaxBytes < 1 {
		return fmt.Errorf("upload max bytes must be positive, got %d", c.Upload.MaxBytes)
	}

	if len(c.Upload.AllowedExtensions) == 0 {
		return fmt.Errorf("at least one allowed extension is required")
	}
	for _, ext := range c.Upload.AllowedExtensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("allowed extension must start with a dot, got %q", ext)
		}
	}

	switch c.Storage.Backend {
	case StorageBackendFS:
		if c.Storage.Dir == "" {
			return fmt.Errorf("upload dir is required for fs storage")
		}
	case StorageBackendPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required for postgres storage")
		}
		if c.Database.MaxConns < c.Database.MinConns {
			return fmt.Errorf("max_conns must be >= min_conns")
		}
	default:
		return fmt.Errorf("unknown storage backend: %q", c.Storage.Backend)
	}

	switch c.Cache.Backend {
	case CacheBackendMemory:
	case CacheBackendRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("redis url is required for the redis cache backend")
		}
	default:
		return fmt.Errorf("unknown cache backend: %q", c.Cache.Backend)
	}

	if c.RateLimit.Enabled {
		if c.Redis.URL == "" {
			return fmt.Errorf("redis url is required when rate limiting is enabled")
		}
		if c.RateLimit.WindowSeconds < 1 {
			return fmt.Errorf("rate limit window must be positive, got %d", c.RateLimit.WindowSeconds)
		}
	}

	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
