package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the finance tables when they do not exist yet. The
// partial unique index enforces the single-primary invariant at the
// storage layer, independently of the seeder's repair pass.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id           BIGSERIAL PRIMARY KEY,
			name         TEXT NOT NULL,
			account_type TEXT NOT NULL DEFAULT 'other',
			balance      NUMERIC(18,2) NOT NULL DEFAULT 0,
			is_primary   BOOLEAN NOT NULL DEFAULT FALSE,
			is_active    BOOLEAN NOT NULL DEFAULT TRUE,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS accounts_one_primary
			ON accounts (is_primary) WHERE is_primary AND is_active`,
		`CREATE TABLE IF NOT EXISTS expenses (
			id            BIGSERIAL PRIMARY KEY,
			reference     TEXT NOT NULL UNIQUE,
			project_code  TEXT NOT NULL,
			category      TEXT NOT NULL,
			base_amount   NUMERIC(18,2) NOT NULL,
			net_amount    NUMERIC(18,2) NOT NULL,
			status        TEXT NOT NULL,
			account_id    BIGINT REFERENCES accounts(id),
			approved_by   TEXT,
			approved_at   TIMESTAMPTZ,
			reject_reason TEXT,
			payment_date  TIMESTAMPTZ,
			description   TEXT,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS expenses_project_idx ON expenses (project_code)`,
		`CREATE TABLE IF NOT EXISTS incomes (
			id           BIGSERIAL PRIMARY KEY,
			reference    TEXT NOT NULL UNIQUE,
			project_code TEXT NOT NULL,
			amount       NUMERIC(18,2) NOT NULL,
			due_date     TIMESTAMPTZ NOT NULL,
			status       TEXT NOT NULL,
			account_id   BIGINT REFERENCES accounts(id),
			created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS incomes_project_idx ON incomes (project_code)`,
		`CREATE TABLE IF NOT EXISTS income_attachments (
			id        BIGSERIAL PRIMARY KEY,
			income_id BIGINT NOT NULL REFERENCES incomes(id) ON DELETE CASCADE,
			filename  TEXT NOT NULL,
			path      TEXT NOT NULL,
			source    TEXT NOT NULL DEFAULT 'upload'
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
