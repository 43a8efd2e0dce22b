package bootstrap

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/alturatime/backend/common/cache"
	"github.com/alturatime/backend/common/config"
	"github.com/alturatime/backend/common/db"
	"github.com/alturatime/backend/common/logger"
	"github.com/alturatime/backend/common/ratelimit"
	"github.com/alturatime/backend/common/store"
	"github.com/alturatime/backend/common/telemetry"
)

// Setup initializes all service components
// This is the main entry point for all services
func Setup(ctx context.Context, serviceName string, opts ...Option) (*Components, error) {
	// Apply options
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	components := &Components{
		cleanupFuncs: make([]func() error, 0),
	}

	// 1. Load configuration
	var err error
	if options.customConfig != nil {
		components.Config = options.customConfig
	} else {
		components.Config, err = config.Load(serviceName)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	// 2. Initialize logger
	if options.customLogger != nil {
		components.Logger = options.customLogger
	} else {
		components.Logger = logger.New(
			components.Config.Service.LogLevel,
			components.Config.Service.LogFormat,
		)
	}

	components.Logger.Info("initializing service",
		"service", serviceName,
		"environment", components.Config.Service.Environment,
	)

	// 3. Initialize the artifact store (if not skipped). The postgres
	// backend brings the database connection up with it.
	if !options.skipStore {
		switch components.Config.Storage.Backend {
		case config.StorageBackendPostgres:
			components.Logger.Info("connecting to database")
			components.DB, err = db.New(ctx, components.Config, components.Logger)
			if err != nil {
				return nil, fmt.Errorf("failed to connect to database: %w", err)
			}

			// Register cleanup
			components.addCleanup(func() error {
				components.Logger.Info("closing database connection")
				components.DB.Close()
				return nil
			})

			// Run DB init hook if provided
			if options.dbInitHook != nil {
				components.Logger.Info("running database init hook")
				if err := options.dbInitHook(components.DB); err != nil {
					components.Shutdown(ctx) // Cleanup what we've initialized
					return nil, fmt.Errorf("database init hook failed: %w", err)
				}
			}

			pgStore := store.NewPGStore(components.DB, components.Config.Upload.MaxBytes)
			if err := pgStore.InitSchema(ctx); err != nil {
				components.Shutdown(ctx)
				return nil, fmt.Errorf("failed to init storage schema: %w", err)
			}
			components.Store = pgStore

		default:
			components.Logger.Info("opening upload directory",
				"dir", components.Config.Storage.Dir,
			)
			components.Store, err = store.NewFSStore(
				components.Config.Storage.Dir,
				components.Config.Upload.MaxBytes,
			)
			if err != nil {
				return nil, fmt.Errorf("failed to open upload directory: %w", err)
			}
		}
	}

	// 4. Initialize cache (if not skipped)
	if !options.skipCache && components.Config.Cache.Enabled {
		components.Logger.Info("initializing cache",
			"backend", components.Config.Cache.Backend,
		)

		switch components.Config.Cache.Backend {
		case config.CacheBackendRedis:
			client, err := newRedisClient(components.Config.Redis.URL)
			if err != nil {
				components.Shutdown(ctx)
				return nil, fmt.Errorf("failed to connect cache redis: %w", err)
			}
			components.Cache = cache.NewRedisCache(client, "records", components.Logger)
		default:
			components.Cache = cache.NewMemoryCache(components.Logger)
		}

		// Register cleanup
		components.addCleanup(func() error {
			components.Logger.Info("closing cache")
			return components.Cache.Close()
		})
	}

	// 5. Initialize upload rate limiter (if not skipped)
	if !options.skipRateLimit && components.Config.RateLimit.Enabled {
		components.Logger.Info("initializing rate limiter",
			"limit", components.Config.RateLimit.UploadLimit,
			"window_seconds", components.Config.RateLimit.WindowSeconds,
		)

		client, err := newRedisClient(components.Config.Redis.URL)
		if err != nil {
			components.Shutdown(ctx)
			return nil, fmt.Errorf("failed to connect rate limit redis: %w", err)
		}
		components.addCleanup(client.Close)
		components.RateLimiter = ratelimit.NewRateLimiter(client, components.Logger)
	}

	// 6. Initialize telemetry (if not skipped)
	if !options.skipTelemetry && components.Config.Telemetry.EnablePprof {
		components.Logger.Info("initializing telemetry")
		components.Telemetry = telemetry.New(
			components.Config.Telemetry.PprofPort,
			components.Logger,
		)

		if err := components.Telemetry.Start(ctx); err != nil {
			components.Logger.Warn("failed to start telemetry", "error", err)
			// Don't fail startup if telemetry fails
		}
	}

	components.Logger.Info("service initialization complete",
		"service", serviceName,
		"db", components.DB != nil,
		"store", components.Store != nil,
		"cache", components.Cache != nil,
		"rate_limiter", components.RateLimiter != nil,
		"telemetry", components.Telemetry != nil,
	)

	return components, nil
}

// MustSetup is like Setup but panics on error
// Useful for services that can't recover from initialization failure
func MustSetup(ctx context.Context, serviceName string, opts ...Option) *Components {
	components, err := Setup(ctx, serviceName, opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to setup service %s: %v", serviceName, err))
	}
	return components
}

// newRedisClient parses url and returns a connected client. Each consumer
// gets its own client so closing one never tears down another.
func newRedisClient(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	return goredis.NewClient(opts), nil
}
