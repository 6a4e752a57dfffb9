// Package requestid tags each inbound request with a correlation ID that
// travels through the context and back out on the response headers.
package requestid

import (
	"context"

	"github.com/google/uuid"
)

// Header is the wire header carrying the correlation ID.
const Header = "X-Request-ID"

// maxLen guards against abusive inbound header values.
const maxLen = 128

type ctxKey struct{}

func generate() string {
	return uuid.New().String()
}

// WithRequestID returns a context carrying id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the ID stored in ctx. If none is present a fresh ID
// is returned; callers that need the ID to stick should use New or Ensure.
func FromContext(ctx context.Context) string {
	if id, ok := ctx.Value(ctxKey{}).(string); ok && id != "" {
		return id
	}
	return generate()
}

// New stores a freshly generated ID in ctx and returns both.
func New(ctx context.Context) (context.Context, string) {
	id := generate()
	return WithRequestID(ctx, id), id
}

// Ensure adopts candidate (typically the inbound header value) when it is
// usable, otherwise generates a new ID. The resulting ID is stored in ctx.
func Ensure(ctx context.Context, candidate string) (context.Context, string) {
	if candidate == "" || len(candidate) > maxLen {
		return New(ctx)
	}
	return WithRequestID(ctx, candidate), candidate
}
