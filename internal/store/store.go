// Package store persists user records, submissions, payments and the
// notification outbox in SQLite. Conversation sessions are deliberately
// not stored here; they live in memory and expire on their own.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	berrors "github.com/tutordesk/tutordesk-agent/internal/errors"
	"github.com/tutordesk/tutordesk-agent/internal/retry"
)

// Store manages the SQLite database.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
	mu     sync.RWMutex
}

// New opens (or creates) the SQLite database and runs migrations. The
// initial ping is retried so a restart does not lose the race against a
// still-checkpointing WAL file.
func New(dbPath string, logger zerolog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ping := func(ctx context.Context) error {
		if err := db.Ping(); err != nil {
			return fmt.Errorf("%w: %v", berrors.ErrUnavailable, err)
		}
		return nil
	}
	pingPolicy := retry.Policy{MaxRetries: 2, Delay: retry.Linear(2, 500*time.Millisecond).Delay}
	if err := retry.Do(context.Background(), pingPolicy, ping); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger.With().Str("component", "store").Logger(),
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	s.logger.Info().Str("path", dbPath).Msg("store initialized")
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping reports whether the database answers. Used by readiness checks.
func (s *Store) Ping() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return berrors.ErrUnavailable
	}
	return s.db.Ping()
}

// DB returns the underlying database connection (for testing).
func (s *Store) DB() *sql.DB {
	return s.db
}
