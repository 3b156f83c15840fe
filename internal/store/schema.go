package store

import (
	"context"
	"fmt"
)

// schemaStatements create the tables the bid lifecycle reads and writes.
// All statements are idempotent.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL DEFAULT '',
		email         TEXT NOT NULL DEFAULT '',
		phone         TEXT NOT NULL DEFAULT '',
		push_endpoint TEXT NOT NULL DEFAULT '',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS worker_profiles (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL DEFAULT '',
		name       TEXT NOT NULL DEFAULT '',
		phone      TEXT NOT NULL DEFAULT '',
		rating     DOUBLE PRECISION NOT NULL DEFAULT 0,
		services   TEXT[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_worker_profiles_user_id ON worker_profiles (user_id)`,
	`CREATE TABLE IF NOT EXISTS jobs (
		id           TEXT PRIMARY KEY,
		owner_id     TEXT NOT NULL,
		service_name TEXT NOT NULL DEFAULT '',
		description  TEXT NOT NULL DEFAULT '',
		budget       DOUBLE PRECISION NOT NULL DEFAULT 0,
		schedule     TEXT NOT NULL DEFAULT '',
		address      TEXT NOT NULL DEFAULT '',
		status       TEXT NOT NULL DEFAULT 'finding_workers',
		bids         JSONB NOT NULL DEFAULT '[]'::jsonb,
		hired_worker JSONB,
		version      BIGINT NOT NULL DEFAULT 1,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_bids ON jobs USING GIN (bids jsonb_path_ops)`,
	`CREATE TABLE IF NOT EXISTS bids (
		id                TEXT PRIMARY KEY,
		job_id            TEXT NOT NULL,
		worker_user_id    TEXT NOT NULL,
		worker_profile_id TEXT,
		amount            DOUBLE PRECISION NOT NULL CHECK (amount > 0),
		message           TEXT NOT NULL DEFAULT '',
		status            TEXT NOT NULL DEFAULT 'pending',
		created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
		hired_at          TIMESTAMPTZ,
		hired_by          TEXT,
		UNIQUE (job_id, worker_user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bids_job_id ON bids (job_id)`,
	`CREATE INDEX IF NOT EXISTS idx_bids_worker_status ON bids (worker_user_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_bids_profile_status ON bids (worker_profile_id, status)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		type       TEXT NOT NULL,
		channel    TEXT NOT NULL,
		title      TEXT NOT NULL,
		body       TEXT NOT NULL,
		status     TEXT NOT NULL,
		data       JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications (user_id, created_at DESC)`,
}

// Migrate creates any missing tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	for i, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i, err)
		}
	}
	return nil
}
