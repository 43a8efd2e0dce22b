package bootstrap

import (
	"github.com/alturatime/backend/common/config"
	"github.com/alturatime/backend/common/db"
	"github.com/alturatime/backend/common/logger"
)

// Option configures the bootstrap process
type Option func(*options)

type options struct {
	skipStore     bool
	skipCache     bool
	skipRateLimit bool
	skipTelemetry bool
	customLogger  *logger.Logger
	customConfig  *config.Config
	dbInitHook    func(*db.DB) error
}

// WithoutStore skips artifact store (and database) initialization
func WithoutStore() Option {
	return func(o *options) {
		o.skipStore = true
	}
}

// WithoutCache skips cache initialization
func WithoutCache() Option {
	return func(o *options) {
		o.skipCache = true
	}
}

// WithoutRateLimit skips rate limiter initialization
func WithoutRateLimit() Option {
	return func(o *options) {
		o.skipRateLimit = true
	}
}

// WithoutTelemetry skips telemetry initialization
func WithoutTelemetry() Option {
	return func(o *options) {
		o.skipTelemetry = true
	}
}

// WithCustomLogger uses a custom logger instead of creating one
func WithCustomLogger(log *logger.Logger) Option {
	return func(o *options) {
		o.customLogger = log
	}
}

// WithCustomConfig uses a custom config instead of loading from env
func WithCustomConfig(cfg *config.Config) Option {
	return func(o *options) {
		o.customConfig = cfg
	}
}

// WithDBInitHook runs a custom function after DB initialization
// Useful for running migrations, seeding data, etc.
func WithDBInitHook(hook func(*db.DB) error) Option {
	return func(o *options) {
		o.dbInitHook = hook
	}
}

func defaultOptions() *options {
	return &options{
		skipStore:     false,
		skipCache:     false,
		skipRateLimit: false,
		skipTelemetry: false,
	}
}
