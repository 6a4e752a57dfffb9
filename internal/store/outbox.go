package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	berrors "github.com/tutordesk/tutordesk-agent/internal/errors"
	"github.com/tutordesk/tutordesk-agent/internal/notify"
)

// OutboxEntry is the persisted record of one notification task. It
// survives restarts so permanently failed notifications can be audited
// and replayed by hand.
type OutboxEntry struct {
	ID          string
	Target      string
	Channel     string
	Body        string
	Status      string
	Attempts    int
	MessageID   string
	LastError   string
	CreatedAt   int64
	DeliveredAt int64 // 0 = not delivered
	FailedAt    int64 // 0 = not failed
}

// RecordEnqueued writes a pending outbox row for a freshly enqueued task.
func (s *Store) RecordEnqueued(t notify.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
	INSERT OR REPLACE INTO notification_outbox (
		id, target, channel, body, status, attempts, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query,
		t.ID, t.Target, t.Channel, t.Text, string(notify.StatusPending), t.Attempt,
		t.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to record enqueued notification: %w", err)
	}
	return nil
}

// RecordDelivered marks an outbox row delivered.
func (s *Store) RecordDelivered(id, messageID string, attempts int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
	UPDATE notification_outbox
	SET status = ?, attempts = ?, message_id = ?, delivered_at = ?
	WHERE id = ?
	`
	res, err := s.db.Exec(query, string(notify.StatusDelivered), attempts, messageID, time.Now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("failed to record delivery: %w", err)
	}
	return requireRow(res, id)
}

// RecordFailed marks an outbox row permanently failed.
func (s *Store) RecordFailed(id string, attempts int, lastErr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
	UPDATE notification_outbox
	SET status = ?, attempts = ?, last_error = ?, failed_at = ?
	WHERE id = ?
	`
	res, err := s.db.Exec(query, string(notify.StatusFailed), attempts, lastErr, time.Now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("failed to record failure: %w", err)
	}
	return requireRow(res, id)
}

// GetOutboxEntry returns one outbox row by task ID.
func (s *Store) GetOutboxEntry(id string) (*OutboxEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e := &OutboxEntry{}
	var messageID, lastError sql.NullString
	var deliveredAt, failedAt sql.NullInt64

	err := s.db.QueryRow(`
	SELECT id, target, channel, body, status, attempts, message_id, last_error,
	       created_at, delivered_at, failed_at
	FROM notification_outbox WHERE id = ?`, id).Scan(
		&e.ID, &e.Target, &e.Channel, &e.Body, &e.Status, &e.Attempts,
		&messageID, &lastError, &e.CreatedAt, &deliveredAt, &failedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("outbox entry %s: %w", id, berrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get outbox entry: %w", err)
	}

	e.MessageID = messageID.String
	e.LastError = lastError.String
	if deliveredAt.Valid {
		e.DeliveredAt = deliveredAt.Int64
	}
	if failedAt.Valid {
		e.FailedAt = failedAt.Int64
	}
	return e, nil
}

// ListFailedNotifications returns permanently failed outbox rows, oldest
// first, for auditing.
func (s *Store) ListFailedNotifications(limit int) ([]*OutboxEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
	SELECT id, target, channel, body, status, attempts, message_id, last_error,
	       created_at, delivered_at, failed_at
	FROM notification_outbox
	WHERE status = ?
	ORDER BY created_at ASC
	`
	args := []interface{}{string(notify.StatusFailed)}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list failed notifications: %w", err)
	}
	defer rows.Close()

	var entries []*OutboxEntry
	for rows.Next() {
		e := &OutboxEntry{}
		var messageID, lastError sql.NullString
		var deliveredAt, failedAt sql.NullInt64
		if err := rows.Scan(
			&e.ID, &e.Target, &e.Channel, &e.Body, &e.Status, &e.Attempts,
			&messageID, &lastError, &e.CreatedAt, &deliveredAt, &failedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan outbox entry: %w", err)
		}
		e.MessageID = messageID.String
		e.LastError = lastError.String
		if deliveredAt.Valid {
			e.DeliveredAt = deliveredAt.Int64
		}
		if failedAt.Valid {
			e.FailedAt = failedAt.Int64
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outbox entries: %w", err)
	}
	return entries, nil
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("outbox entry %s: %w", id, berrors.ErrNotFound)
	}
	return nil
}
