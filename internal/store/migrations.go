package store

import (
	"fmt"
)

func (s *Store) migrate() error {
	if err := s.migrateV1(); err != nil {
		return err
	}
	return s.migrateV2()
}

func (s *Store) migrateV1() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		user_id    TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		email      TEXT NOT NULL,
		class      TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS submissions (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL,
		subject     TEXT NOT NULL,
		kind        TEXT NOT NULL,
		content_ref TEXT NOT NULL,
		created_at  INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_submissions_user ON submissions(user_id, created_at);

	CREATE TABLE IF NOT EXISTS payments (
		user_id    TEXT PRIMARY KEY,
		status     TEXT NOT NULL DEFAULT 'pending',
		reference  TEXT,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	INSERT OR REPLACE INTO meta(key, value) VALUES ('schema_version', '1');
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute migration v1: %w", err)
	}

	return nil
}

func (s *Store) migrateV2() error {
	var version string
	err := s.db.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&version)
	if err != nil || version >= "2" {
		return nil
	}

	schema := `
	CREATE TABLE IF NOT EXISTS notification_outbox (
		id           TEXT PRIMARY KEY,
		target       TEXT NOT NULL,
		channel      TEXT NOT NULL,
		body         TEXT NOT NULL,
		status       TEXT NOT NULL DEFAULT 'pending',
		attempts     INTEGER NOT NULL DEFAULT 0,
		message_id   TEXT,
		last_error   TEXT,
		created_at   INTEGER NOT NULL,
		delivered_at INTEGER,
		failed_at    INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_outbox_status ON notification_outbox(status, created_at);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute migration v2: %w", err)
	}

	if _, err := s.db.Exec(`INSERT OR REPLACE INTO meta(key, value) VALUES ('schema_version', '2')`); err != nil {
		return fmt.Errorf("failed to update schema version: %w", err)
	}

	return nil
}
