package database

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Migrate applies the schema. Every statement is idempotent so it is safe to
// run on every startup.
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	log.Info().Int("statements", len(schemaStatements)).Msg("schema migrated")
	return nil
}

var schemaStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS pgcrypto`,

	`CREATE TABLE IF NOT EXISTS users (
		id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		email       TEXT NOT NULL UNIQUE,
		name        TEXT NOT NULL DEFAULT '',
		token_hash  TEXT NOT NULL UNIQUE,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS telegram_sessions (
		id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		type          TEXT NOT NULL DEFAULT 'USER',
		label         TEXT NOT NULL,
		phone_number  TEXT,
		api_id        TEXT,
		api_hash      TEXT,
		status        TEXT NOT NULL DEFAULT 'PENDING',
		created_by_id UUID NOT NULL REFERENCES users(id),
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_telegram_sessions_created_by
		ON telegram_sessions(created_by_id, created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS dialogs (
		id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		telegram_id   BIGINT NOT NULL UNIQUE,
		type          TEXT NOT NULL,
		title         TEXT NOT NULL,
		username      TEXT,
		member_count  INT,
		last_sync_at  TIMESTAMPTZ,
		session_id    UUID NOT NULL REFERENCES telegram_sessions(id),
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_dialogs_session ON dialogs(session_id, updated_at DESC)`,

	`CREATE TABLE IF NOT EXISTS members (
		id           UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		telegram_id  BIGINT NOT NULL UNIQUE,
		username     TEXT,
		first_name   TEXT,
		last_name    TEXT,
		phone_number TEXT,
		is_contact   BOOLEAN NOT NULL DEFAULT FALSE,
		is_bot       BOOLEAN NOT NULL DEFAULT FALSE,
		is_deleted   BOOLEAN NOT NULL DEFAULT FALSE,
		dialog_id    UUID NOT NULL REFERENCES dialogs(id),
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_members_dialog ON members(dialog_id, updated_at DESC)`,

	`CREATE TABLE IF NOT EXISTS contacts (
		id           UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		telegram_id  BIGINT NOT NULL UNIQUE,
		username     TEXT,
		first_name   TEXT,
		last_name    TEXT,
		phone_number TEXT,
		session_id   UUID NOT NULL REFERENCES telegram_sessions(id),
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_contacts_session ON contacts(session_id)`,

	`CREATE TABLE IF NOT EXISTS jobs (
		id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		type          TEXT NOT NULL,
		status        TEXT NOT NULL DEFAULT 'PENDING',
		payload       JSONB,
		result        JSONB,
		error         TEXT,
		session_id    UUID REFERENCES telegram_sessions(id),
		dialog_id     UUID REFERENCES dialogs(id),
		started_at    TIMESTAMPTZ,
		finished_at   TIMESTAMPTZ,
		created_by_id UUID NOT NULL REFERENCES users(id),
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_created_by ON jobs(created_by_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_dialog ON jobs(dialog_id) WHERE dialog_id IS NOT NULL`,

	`CREATE TABLE IF NOT EXISTS exports (
		id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		name          TEXT NOT NULL,
		description   TEXT,
		filters       JSONB NOT NULL DEFAULT '{}',
		format        TEXT NOT NULL DEFAULT 'csv',
		status        TEXT NOT NULL DEFAULT 'PENDING',
		file_url      TEXT,
		file_size     BIGINT,
		expires_at    TIMESTAMPTZ NOT NULL,
		created_by_id UUID NOT NULL REFERENCES users(id),
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_exports_created_by ON exports(created_by_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_exports_expiry ON exports(expires_at) WHERE status = 'COMPLETED'`,
}
