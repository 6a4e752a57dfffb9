// Package notify turns domain events into notification tasks and delivers
// them asynchronously with retrying, fire-and-forget semantics.
package notify

import (
	"sync"
	"time"

	"github.com/tutordesk/tutordesk-agent/internal/delivery"
)

// Status is the lifecycle state of a notification task. Delivered and
// Failed are terminal: a task never transitions again after reaching one.
type Status string

const (
	StatusPending   Status = "pending"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
)

// Priority classifies tasks for routing and logging. It carries no
// ordering guarantee.
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Task is one unit of asynchronous outbound delivery work.
type Task struct {
	mu          sync.RWMutex
	ID          string
	Target      string
	Text        string
	Buttons     []delivery.Button
	Priority    Priority
	Channel     string // routing classification: "user" or "operator"
	Attempt     int
	MaxRetries  int
	Status      Status
	MessageID   string // channel-provided ID, set on delivery
	LastError   string
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// Lock locks the task for writing.
func (t *Task) Lock() { t.mu.Lock() }

// Unlock unlocks the task after writing.
func (t *Task) Unlock() { t.mu.Unlock() }

// RLock locks the task for reading.
func (t *Task) RLock() { t.mu.RLock() }

// RUnlock unlocks the task after reading.
func (t *Task) RUnlock() { t.mu.RUnlock() }

// Snapshot returns a copy of the task safe to read without holding locks.
func (t *Task) Snapshot() Task {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Task{
		ID:          t.ID,
		Target:      t.Target,
		Text:        t.Text,
		Buttons:     t.Buttons,
		Priority:    t.Priority,
		Channel:     t.Channel,
		Attempt:     t.Attempt,
		MaxRetries:  t.MaxRetries,
		Status:      t.Status,
		MessageID:   t.MessageID,
		LastError:   t.LastError,
		CreatedAt:   t.CreatedAt,
		CompletedAt: t.CompletedAt,
	}
}

// terminal reports whether the task reached a final status. Caller must
// hold at least a read lock.
func (t *Task) terminal() bool {
	return t.Status == StatusDelivered || t.Status == StatusFailed
}
