// Package event defines the domain events emitted by the transition engine.
// Events are the only coupling between the conversation and the
// notification subsystem: the engine emits, the notifier consumes.
package event

import (
	"time"
)

// Type identifiers for the closed set of domain events.
const (
	TypeRegistrationComplete   = "registration.complete"
	TypeSubmissionConfirmed    = "submission.confirmed"
	TypePaymentConfirmed       = "payment.confirmed"
	TypeSupportStarted         = "support.started"
	TypeSupportMessageReceived = "support.message"
	TypeSupportEnded           = "support.ended"
)

// Known reports whether t is a member of the closed event set.
func Known(t string) bool {
	switch t {
	case TypeRegistrationComplete, TypeSubmissionConfirmed, TypePaymentConfirmed,
		TypeSupportStarted, TypeSupportMessageReceived, TypeSupportEnded:
		return true
	}
	return false
}

// Event is one domain occurrence worth notifying about. Fields holds the
// values available to notification templates.
type Event struct {
	Type      string
	UserID    string
	Fields    map[string]string
	Timestamp time.Time
}

// New constructs an Event with the current timestamp.
func New(evType, userID string, fields map[string]string) Event {
	if fields == nil {
		fields = make(map[string]string)
	}
	return Event{
		Type:      evType,
		UserID:    userID,
		Fields:    fields,
		Timestamp: time.Now().UTC(),
	}
}
