package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	berrors "github.com/tutordesk/tutordesk-agent/internal/errors"
)

// User is a registered user record.
type User struct {
	UserID    string
	Name      string
	Email     string
	Class     string
	CreatedAt int64
	UpdatedAt int64
}

// Submission is one piece of submitted homework.
type Submission struct {
	ID         string
	UserID     string
	Subject    string
	Kind       string
	ContentRef string
	CreatedAt  int64
}

// SaveUser upserts a user record. Registration re-runs overwrite the
// previous identity fields.
func (s *Store) SaveUser(userID, name, email, class string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()
	query := `
	INSERT INTO users (user_id, name, email, class, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		name = excluded.name,
		email = excluded.email,
		class = excluded.class,
		updated_at = excluded.updated_at
	`
	if _, err := s.db.Exec(query, userID, name, email, class, now, now); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// GetUser returns a user record, or berrors.ErrNotFound.
func (s *Store) GetUser(userID string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u := &User{}
	err := s.db.QueryRow(
		`SELECT user_id, name, email, class, created_at, updated_at FROM users WHERE user_id = ?`,
		userID,
	).Scan(&u.UserID, &u.Name, &u.Email, &u.Class, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", userID, berrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// DisplayName returns the registered name for a user, or
// berrors.ErrNotFound for unregistered users.
func (s *Store) DisplayName(userID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var name string
	err := s.db.QueryRow(`SELECT name FROM users WHERE user_id = ?`, userID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("user %s: %w", userID, berrors.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up display name: %w", err)
	}
	return name, nil
}

// CreateSubmission records a finalized homework submission and returns
// its ID.
func (s *Store) CreateSubmission(userID, subject, kind, contentRef string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	query := `
	INSERT INTO submissions (id, user_id, subject, kind, content_ref, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := s.db.Exec(query, id, userID, subject, kind, contentRef, time.Now().UnixMilli()); err != nil {
		return "", fmt.Errorf("failed to create submission: %w", err)
	}
	return id, nil
}

// ListSubmissions returns a user's submissions, newest first.
func (s *Store) ListSubmissions(userID string, limit int) ([]*Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
	SELECT id, user_id, subject, kind, content_ref, created_at
	FROM submissions
	WHERE user_id = ?
	ORDER BY created_at DESC
	`
	args := []interface{}{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	var subs []*Submission
	for rows.Next() {
		sub := &Submission{}
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.Subject, &sub.Kind, &sub.ContentRef, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating submissions: %w", err)
	}
	return subs, nil
}

// PaymentStatus returns the payment status for a user. Users with no
// payment row are reported as "none".
func (s *Store) PaymentStatus(userID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var status string
	err := s.db.QueryRow(`SELECT status FROM payments WHERE user_id = ?`, userID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "none", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get payment status: %w", err)
	}
	return status, nil
}

// SetPaymentStatus upserts a user's payment status. The payment gateway
// webhook drives this; tests use it to stage confirmations.
func (s *Store) SetPaymentStatus(userID, status, reference string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ref := sql.NullString{String: reference, Valid: reference != ""}
	query := `
	INSERT INTO payments (user_id, status, reference, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		status = excluded.status,
		reference = excluded.reference,
		updated_at = excluded.updated_at
	`
	if _, err := s.db.Exec(query, userID, status, ref, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("failed to set payment status: %w", err)
	}
	return nil
}
