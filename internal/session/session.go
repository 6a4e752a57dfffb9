// Package session holds the per-user conversational state.
package session

import (
	"time"
)

// State is the conversational state of one user. The set is closed; the
// transition engine is the only component that moves a session between
// states.
type State string

const (
	StateInitial             State = "initial"
	StateRegisteringName     State = "registering_name"
	StateRegisteringEmail    State = "registering_email"
	StateRegisteringClass    State = "registering_class"
	StateRegistered          State = "registered"
	StateIdle                State = "idle"
	StateSubmissionSubject   State = "submission_subject"
	StateSubmissionType      State = "submission_type"
	StateSubmissionContent   State = "submission_content"
	StateSubmissionSubmitted State = "submission_submitted"
	StatePaymentPending      State = "payment_pending"
	StatePaymentConfirmed    State = "payment_confirmed"
	StateSupportActive       State = "support_active"
	StateFaqMenu             State = "faq_menu"
)

var validStates = map[State]bool{
	StateInitial:             true,
	StateRegisteringName:     true,
	StateRegisteringEmail:    true,
	StateRegisteringClass:    true,
	StateRegistered:          true,
	StateIdle:                true,
	StateSubmissionSubject:   true,
	StateSubmissionType:      true,
	StateSubmissionContent:   true,
	StateSubmissionSubmitted: true,
	StatePaymentPending:      true,
	StatePaymentConfirmed:    true,
	StateSupportActive:       true,
	StateFaqMenu:             true,
}

// IsValid reports whether s is a member of the state enum.
func (s State) IsValid() bool {
	return validStates[s]
}

// Well-known data bag keys accumulated by the multi-step flows.
const (
	KeyName        = "name"
	KeyEmail       = "email"
	KeyClass       = "class"
	KeySubject     = "subject"
	KeyKind        = "kind"
	KeyContentRef  = "content_ref"
	KeyTranscript  = "transcript"
	KeyPaymentRef  = "payment_ref"
)

// MessageRecord is one entry of a support transcript.
type MessageRecord struct {
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Session is the per-user conversation record.
type Session struct {
	UserID        string
	State         State
	Data          *Data
	LastUpdatedAt time.Time
}

// Data is an ordered string-keyed bag of heterogeneous values. Iteration
// order is insertion order, which keeps transcripts and flow summaries
// stable.
type Data struct {
	keys   []string
	values map[string]any
}

// NewData returns an empty bag.
func NewData() *Data {
	return &Data{values: make(map[string]any)}
}

// Set stores value under key, preserving first-insertion order.
func (d *Data) Set(key string, value any) {
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.values[key] = value
}

// Get returns the value for key, or nil if absent.
func (d *Data) Get(key string) any {
	return d.values[key]
}

// GetString returns the string value for key, or "" if absent or not a string.
func (d *Data) GetString(key string) string {
	if s, ok := d.values[key].(string); ok {
		return s
	}
	return ""
}

// Keys returns the keys in insertion order.
func (d *Data) Keys() []string {
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

// Len returns the number of entries.
func (d *Data) Len() int {
	return len(d.keys)
}

// AppendMessage appends a message record to the transcript list under key.
func (d *Data) AppendMessage(key string, msg MessageRecord) {
	list, _ := d.values[key].([]MessageRecord)
	d.Set(key, append(list, msg))
}

// Messages returns the transcript list under key.
func (d *Data) Messages(key string) []MessageRecord {
	list, _ := d.values[key].([]MessageRecord)
	return list
}
