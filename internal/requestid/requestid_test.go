package requestid

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithRequestID_RoundTrip(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-123")
	assert.Equal(t, "req-123", FromContext(ctx))
}

func TestFromContext_GeneratesWhenMissing(t *testing.T) {
	id := FromContext(context.Background())
	assert.NotEmpty(t, id)

	// Without a stored ID every call generates a fresh one.
	assert.NotEqual(t, id, FromContext(context.Background()))
}

func TestNew(t *testing.T) {
	ctx, id := New(context.Background())
	assert.NotEmpty(t, id)
	assert.Equal(t, id, FromContext(ctx))
}

func TestEnsure(t *testing.T) {
	ctx, id := Ensure(context.Background(), "caller-supplied")
	assert.Equal(t, "caller-supplied", id)
	assert.Equal(t, "caller-supplied", FromContext(ctx))

	_, id = Ensure(context.Background(), "")
	assert.NotEmpty(t, id)

	// Oversized inbound values are discarded.
	_, id = Ensure(context.Background(), strings.Repeat("x", 500))
	assert.NotEqual(t, strings.Repeat("x", 500), id)
	assert.NotEmpty(t, id)
}
