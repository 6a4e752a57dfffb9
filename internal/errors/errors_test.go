package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRetryable_DeliveryErrors(t *testing.T) {
	assert.True(t, IsRetryable(NewDeliveryError("slack", 429, "rate limited")))
	assert.True(t, IsRetryable(NewDeliveryError("slack", 500, "server error")))
	assert.True(t, IsRetryable(NewDeliveryError("slack", 503, "unavailable")))
	assert.True(t, IsRetryable(NewDeliveryError("slack", 0, "connection reset")))

	assert.False(t, IsRetryable(NewDeliveryError("slack", 400, "bad payload")))
	assert.False(t, IsRetryable(NewDeliveryError("slack", 404, "channel_not_found")))
}

func TestIsRetryable_Sentinels(t *testing.T) {
	assert.True(t, IsRetryable(ErrTimeout))
	assert.True(t, IsRetryable(ErrRateLimit))
	assert.True(t, IsRetryable(ErrUnavailable))

	assert.False(t, IsRetryable(ErrNotFound))
	assert.False(t, IsRetryable(ErrInvalidInput))
	assert.False(t, IsRetryable(ErrQueueFull))
	assert.False(t, IsRetryable(errors.New("something else")))
}

func TestIsRetryable_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("sending notification: %w", NewDeliveryError("slack", 502, "bad gateway"))
	assert.True(t, IsRetryable(wrapped))

	wrapped = fmt.Errorf("ping: %w", ErrUnavailable)
	assert.True(t, IsRetryable(wrapped))
}

func TestDeliveryError_Unwrap(t *testing.T) {
	inner := errors.New("tcp reset")
	de := &DeliveryError{Channel: "slack", StatusCode: 0, Message: "transport", Err: inner}
	assert.ErrorIs(t, de, inner)
	assert.Contains(t, de.Error(), "slack")
	assert.Contains(t, de.Error(), "tcp reset")
}

func TestTemplateError_Message(t *testing.T) {
	te := &TemplateError{Template: "Hi {name}", Placeholder: "name"}
	assert.Contains(t, te.Error(), "{name}")
}
