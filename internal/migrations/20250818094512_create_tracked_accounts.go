package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateTrackedAccounts, downCreateTrackedAccounts)
}

func upCreateTrackedAccounts(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
	CREATE TABLE tracked_accounts (
		id SERIAL PRIMARY KEY,
		username VARCHAR NOT NULL UNIQUE,
		last_seen_post_id VARCHAR,
		last_seen_at TIMESTAMP WITH TIME ZONE,
		post_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT now()
	);
	`)
	return err
}

func downCreateTrackedAccounts(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `
	DROP TABLE tracked_accounts;
	`)
	return err
}
