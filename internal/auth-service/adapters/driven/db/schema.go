package db

import "context"

// InitSchema creates the account tables when they do not exist yet. The
// drivers table is shared with the safety service; both sides declare it so
// either service can start first.
func (d *DB) InitSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL UNIQUE,
			password_hash BYTEA NOT NULL,
			role TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'ACTIVE',
			attrs JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS drivers (
			driver_id UUID PRIMARY KEY,
			status TEXT NOT NULL DEFAULT 'OFFLINE',
			rating DOUBLE PRECISION NOT NULL DEFAULT 5.0,
			current_suspension_id UUID,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}

	for _, stmt := range stmts {
		if _, err := d.conn.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
