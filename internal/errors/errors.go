// Package errors provides structured error types for the bot engine.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrTimeout      = errors.New("operation timed out")
	ErrRateLimit    = errors.New("rate limit exceeded")
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnavailable  = errors.New("service unavailable")
	ErrQueueFull    = errors.New("notification queue is full")
)

// DeliveryError represents a failure reported by an outbound delivery channel.
type DeliveryError struct {
	Channel    string
	StatusCode int
	Message    string
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s delivery error (status %d): %s: %v", e.Channel, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("%s delivery error (status %d): %s", e.Channel, e.StatusCode, e.Message)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// NewDeliveryError creates a new delivery error.
func NewDeliveryError(channel string, statusCode int, message string) *DeliveryError {
	return &DeliveryError{Channel: channel, StatusCode: statusCode, Message: message}
}

// TemplateError reports an unresolved placeholder while building a
// notification payload. Treated as a configuration defect: the task is
// dropped, the conversation continues.
type TemplateError struct {
	Template    string
	Placeholder string
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("template %q: unresolved placeholder {%s}", e.Template, e.Placeholder)
}

// IsRetryable returns true if the error is likely transient and worth retrying.
func IsRetryable(err error) bool {
	var de *DeliveryError
	if errors.As(err, &de) {
		switch de.StatusCode {
		case 429, 500, 502, 503, 504:
			return true
		}
		// Channels that cannot attach an HTTP status report transport
		// failures with a zero status; treat those as transient.
		if de.StatusCode == 0 {
			return true
		}
		return false
	}
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrRateLimit) || errors.Is(err, ErrUnavailable)
}
