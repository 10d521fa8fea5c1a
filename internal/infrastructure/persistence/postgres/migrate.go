package postgres

import (
	"context"
	"fmt"
)

// Migrate applies the schema at startup. The CHECK on balance is a
// backstop for the non-negative invariant the conditional debit already
// upholds.
func Migrate(ctx context.Context, db *DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS cards (
			id         TEXT PRIMARY KEY,
			owner_id   TEXT NOT NULL,
			kind       TEXT NOT NULL,
			number     TEXT NOT NULL UNIQUE,
			balance    BIGINT NOT NULL CHECK (balance >= 0),
			expiration TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS settlements (
			purchase_id TEXT PRIMARY KEY,
			card_id     TEXT NOT NULL,
			amount      BIGINT NOT NULL,
			status      TEXT NOT NULL,
			message     TEXT NOT NULL,
			balance     BIGINT,
			settled_at  TIMESTAMPTZ NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}

	db.logger.Info("database schema up to date")
	return nil
}
