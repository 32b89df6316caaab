package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	_ "modernc.org/sqlite"

	"carpool-safety/internal/safety-service/core/domain/model"
	"carpool-safety/internal/safety-service/core/ports"
)

// SQLite keeps the violation evidence log in a local file, separate from the
// enforcement database. Rows are append-only and survive a Postgres outage.
type SQLite struct {
	db *sql.DB
}

var _ ports.IViolationAudit = (*SQLite)(nil)

func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		path = "violations.db"
	}
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}
	s := &SQLite{db: db}
	if err := s.init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS violations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			violation_id TEXT NOT NULL,
			driver_id TEXT NOT NULL,
			trip_id TEXT NOT NULL,
			severity TEXT NOT NULL,
			sample_count INTEGER NOT NULL,
			peak_excess_mph REAL NOT NULL,
			avg_speed_mph REAL NOT NULL,
			limit_mph REAL NOT NULL,
			started_at TEXT NOT NULL,
			recorded_at TEXT NOT NULL,
			readings_json TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_violations_driver ON violations(driver_id)`,
		`CREATE INDEX IF NOT EXISTS idx_violations_recorded ON violations(recorded_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLite) Append(ctx context.Context, v model.SpeedViolation) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO violations (violation_id, driver_id, trip_id, severity, sample_count, peak_excess_mph, avg_speed_mph, limit_mph, started_at, recorded_at, readings_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID,
		v.DriverId,
		v.TripId,
		v.Severity,
		v.SampleCount,
		v.PeakExcess,
		v.AvgSpeedMph,
		v.LimitMph,
		v.StartedAt.UTC(),
		v.RecordedAt.UTC(),
		encodeJSON(v.Readings),
	)
	return err
}

func (s *SQLite) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func encodeJSON(value any) string {
	data, _ := json.Marshal(value)
	return string(data)
}
