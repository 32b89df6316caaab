package db

import "context"

// InitSchema creates the enforcement tables when they do not exist yet. Every
// statement is idempotent, so running it on each startup is safe.
func (d *DB) InitSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS drivers (
			driver_id UUID PRIMARY KEY,
			status TEXT NOT NULL DEFAULT 'OFFLINE',
			rating DOUBLE PRECISION NOT NULL DEFAULT 5.0,
			current_suspension_id UUID,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS strikes (
			strike_id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			driver_id UUID NOT NULL REFERENCES drivers(driver_id),
			trip_id UUID,
			strike_type TEXT NOT NULL,
			reason TEXT NOT NULL,
			severity TEXT NOT NULL,
			violation_id UUID,
			status TEXT NOT NULL DEFAULT 'ACTIVE',
			issued_at TIMESTAMPTZ NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			removal_reason TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_strikes_driver_status ON strikes(driver_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_strikes_expires ON strikes(expires_at) WHERE status = 'ACTIVE'`,
		`CREATE TABLE IF NOT EXISTS suspensions (
			suspension_id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			driver_id UUID NOT NULL REFERENCES drivers(driver_id),
			suspension_type TEXT NOT NULL,
			reason TEXT NOT NULL,
			strike_ids JSONB NOT NULL DEFAULT '[]',
			status TEXT NOT NULL DEFAULT 'ACTIVE',
			started_at TIMESTAMPTZ NOT NULL,
			expires_at TIMESTAMPTZ,
			lifted_at TIMESTAMPTZ,
			lift_reason TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_suspensions_driver_status ON suspensions(driver_id, status)`,
		`CREATE TABLE IF NOT EXISTS appeals (
			appeal_id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			driver_id UUID NOT NULL REFERENCES drivers(driver_id),
			strike_id UUID REFERENCES strikes(strike_id),
			suspension_id UUID REFERENCES suspensions(suspension_id),
			reason TEXT NOT NULL,
			evidence JSONB NOT NULL DEFAULT '[]',
			status TEXT NOT NULL DEFAULT 'PENDING',
			submitted_at TIMESTAMPTZ NOT NULL,
			reviewed_by UUID,
			reviewed_at TIMESTAMPTZ,
			resolution TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_appeals_status ON appeals(status)`,
		`CREATE TABLE IF NOT EXISTS trips (
			trip_id UUID PRIMARY KEY,
			driver_id UUID NOT NULL,
			status TEXT NOT NULL DEFAULT 'IN_PROGRESS',
			started_at TIMESTAMPTZ,
			completed_at TIMESTAMPTZ,
			had_speed_violation BOOLEAN NOT NULL DEFAULT FALSE,
			had_route_deviation BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trips_driver_completed ON trips(driver_id, completed_at DESC) WHERE status = 'COMPLETED'`,
		`CREATE TABLE IF NOT EXISTS driver_ratings (
			rating_id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			driver_id UUID NOT NULL REFERENCES drivers(driver_id),
			trip_id UUID,
			rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
			comment TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ratings_driver ON driver_ratings(driver_id)`,
		`CREATE TABLE IF NOT EXISTS driver_safety_profiles (
			driver_id UUID PRIMARY KEY,
			safety_rating DOUBLE PRECISION NOT NULL,
			active_strikes INTEGER NOT NULL,
			suspension_status TEXT NOT NULL,
			route_adherence_score DOUBLE PRECISION NOT NULL,
			speed_compliance_score DOUBLE PRECISION NOT NULL,
			safe_trips_streak INTEGER NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := d.conn.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
