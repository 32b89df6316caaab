package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"carpool-safety/internal/safety-service/core/domain/model"
	"carpool-safety/internal/safety-service/core/myerrors"
	"carpool-safety/internal/safety-service/core/ports"

	"github.com/jackc/pgx/v5"
)

type StrikeRepo struct {
	db *DB
}

func NewStrikeRepo(db *DB) ports.IStrikeRepo {
	return &StrikeRepo{
		db: db,
	}
}

const strikeColumns = `
	s.strike_id,
	s.driver_id,
	COALESCE(s.trip_id::text, ''),
	s.strike_type,
	s.reason,
	s.severity,
	COALESCE(s.violation_id::text, ''),
	s.status,
	s.issued_at,
	s.expires_at,
	s.removal_reason`

func scanStrike(row pgx.Row) (model.Strike, error) {
	var s model.Strike
	err := row.Scan(
		&s.ID,
		&s.DriverId,
		&s.TripId,
		&s.StrikeType,
		&s.Reason,
		&s.Severity,
		&s.ViolationId,
		&s.Status,
		&s.IssuedAt,
		&s.ExpiresAt,
		&s.RemovalReason,
	)
	return s, err
}

func (sr *StrikeRepo) Create(ctx context.Context, strike model.Strike) (string, error) {
	if err := sr.db.IsAlive(); err != nil {
		return "", err
	}

	tx, err := sr.db.conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	q := `INSERT INTO strikes (
		driver_id,
		trip_id,
		strike_type,
		reason,
		severity,
		violation_id,
		status,
		issued_at,
		expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING strike_id`

	id := ""
	row := tx.QueryRow(ctx, q,
		strike.DriverId,
		nullUUID(strike.TripId),
		strike.StrikeType,
		strike.Reason,
		strike.Severity,
		nullUUID(strike.ViolationId),
		strike.Status,
		strike.IssuedAt,
		strike.ExpiresAt,
	)
	if err := row.Scan(&id); err != nil {
		return "", fmt.Errorf("failed to insert strike: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %v", err)
	}
	return id, nil
}

func (sr *StrikeRepo) GetById(ctx context.Context, strikeId string) (model.Strike, error) {
	q := `SELECT ` + strikeColumns + `
	FROM
		strikes s
	WHERE
		s.strike_id = $1`

	s, err := scanStrike(sr.db.conn.QueryRow(ctx, q, strikeId))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Strike{}, myerrors.ErrStrikeNotFound
		}
		return model.Strike{}, err
	}
	return s, nil
}

func (sr *StrikeRepo) CountActive(ctx context.Context, driverId string, now time.Time) (int, error) {
	q := `
	SELECT
		COUNT(*)
	FROM
		strikes
	WHERE
		driver_id = $1 AND status = 'ACTIVE' AND expires_at > $2`

	count := 0
	if err := sr.db.conn.QueryRow(ctx, q, driverId, now).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (sr *StrikeRepo) ListActive(ctx context.Context, driverId string, now time.Time) ([]model.Strike, error) {
	q := `SELECT ` + strikeColumns + `
	FROM
		strikes s
	WHERE
		s.driver_id = $1 AND s.status = 'ACTIVE' AND s.expires_at > $2
	ORDER BY
		s.issued_at ASC`

	rows, err := sr.db.conn.Query(ctx, q, driverId, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectStrikes(rows)
}

func (sr *StrikeRepo) ListByDriver(ctx context.Context, driverId string, status model.StrikeStatus) ([]model.Strike, error) {
	q := `SELECT ` + strikeColumns + `
	FROM
		strikes s
	WHERE
		s.driver_id = $1 AND ($2 = '' OR s.status = $2)
	ORDER BY
		s.issued_at DESC`

	rows, err := sr.db.conn.Query(ctx, q, driverId, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectStrikes(rows)
}

// UpdateStatus flips a strike between states, guarded by the expected current
// state so concurrent reviews cannot double-apply.
func (sr *StrikeRepo) UpdateStatus(ctx context.Context, strikeId string, from, to model.StrikeStatus, reason string) error {
	q := `
	UPDATE
		strikes
	SET
		status = $3,
		removal_reason = CASE WHEN $4 <> '' THEN $4 ELSE removal_reason END
	WHERE
		strike_id = $1 AND status = $2`

	tag, err := sr.db.conn.Exec(ctx, q, strikeId, from, to, reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := sr.GetById(ctx, strikeId); err != nil {
			return err
		}
		return myerrors.ErrStrikeNotActive
	}
	return nil
}

func (sr *StrikeRepo) ExpireDue(ctx context.Context, now time.Time) ([]string, error) {
	q := `
	UPDATE
		strikes
	SET
		status = 'EXPIRED'
	WHERE
		status = 'ACTIVE' AND expires_at <= $1
	RETURNING driver_id`

	rows, err := sr.db.conn.Query(ctx, q, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var driverIds []string
	for rows.Next() {
		id := ""
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		driverIds = append(driverIds, id)
	}
	return driverIds, rows.Err()
}

func (sr *StrikeRepo) CountIssuedSince(ctx context.Context, since time.Time) (int, error) {
	q := `SELECT COUNT(*) FROM strikes WHERE issued_at >= $1`

	count := 0
	if err := sr.db.conn.QueryRow(ctx, q, since).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func collectStrikes(rows pgx.Rows) ([]model.Strike, error) {
	var out []model.Strike
	for rows.Next() {
		s, err := scanStrike(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
