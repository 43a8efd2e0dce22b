package clients

import "context"

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// InternalSecretKey is the context key for the internal service secret
	// (sent as the X-Internal-Service header, which bypasses rate limits)
	InternalSecretKey contextKey = "internal-secret"
)

// WithInternalSecret marks the context as an internal service-to-service
// call. Requests made with it skip the upload rate limiter.
func WithInternalSecret(ctx context.Context, secret string) context.Context {
	return context.WithValue(ctx, InternalSecretKey, secret)
}

// GetInternalSecret retrieves the internal service secret from context.
// Returns the secret and true if found, empty string and false otherwise.
func GetInternalSecret(ctx context.Context) (string, bool) {
	secret, ok := ctx.Value(InternalSecretKey).(string)
	return secret, ok && secret != ""
}
