package db

import (
	"context"
	"errors"
	"time"

	"carpool-safety/internal/safety-service/core/domain/model"
	"carpool-safety/internal/safety-service/core/myerrors"
	"carpool-safety/internal/safety-service/core/ports"

	"github.com/jackc/pgx/v5"
)

type TripRepo struct {
	db *DB
}

func NewTripRepo(db *DB) ports.ITripRepo {
	return &TripRepo{
		db: db,
	}
}

const tripColumns = `
	t.trip_id,
	t.driver_id,
	t.status,
	t.started_at,
	t.completed_at,
	t.had_speed_violation,
	t.had_route_deviation`

func scanTrip(row pgx.Row) (model.Trip, error) {
	var t model.Trip
	err := row.Scan(
		&t.ID,
		&t.DriverId,
		&t.Status,
		&t.StartedAt,
		&t.CompletedAt,
		&t.HadSpeedViolation,
		&t.HadRouteDeviation,
	)
	return t, err
}

// UpsertStarted records a trip the moment its start event arrives. Trip ids
// come from the trip service, so a replayed event is a no-op rather than a
// conflict.
func (tr *TripRepo) UpsertStarted(ctx context.Context, tripId, driverId string, at time.Time) error {
	q := `INSERT INTO trips (
		trip_id,
		driver_id,
		status,
		started_at
		) VALUES ($1, $2, 'IN_PROGRESS', $3) ON CONFLICT (trip_id) DO NOTHING`

	_, err := tr.db.conn.Exec(ctx, q, tripId, driverId, at)
	return err
}

func (tr *TripRepo) Complete(ctx context.Context, tripId string, at time.Time) error {
	return tr.finish(ctx, tripId, model.TripCompleted, at)
}

func (tr *TripRepo) Cancel(ctx context.Context, tripId string, at time.Time) error {
	return tr.finish(ctx, tripId, model.TripCancelled, at)
}

func (tr *TripRepo) finish(ctx context.Context, tripId string, status model.TripStatus, at time.Time) error {
	q := `
	UPDATE
		trips
	SET
		status = $2,
		completed_at = $3
	WHERE
		trip_id = $1`

	tag, err := tr.db.conn.Exec(ctx, q, tripId, status, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return myerrors.ErrTripNotFound
	}
	return nil
}

func (tr *TripRepo) MarkSpeedViolation(ctx context.Context, tripId string) error {
	q := `UPDATE trips SET had_speed_violation = TRUE WHERE trip_id = $1`

	tag, err := tr.db.conn.Exec(ctx, q, tripId)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return myerrors.ErrTripNotFound
	}
	return nil
}

func (tr *TripRepo) MarkRouteDeviation(ctx context.Context, tripId string) error {
	q := `UPDATE trips SET had_route_deviation = TRUE WHERE trip_id = $1`

	tag, err := tr.db.conn.Exec(ctx, q, tripId)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return myerrors.ErrTripNotFound
	}
	return nil
}

func (tr *TripRepo) GetById(ctx context.Context, tripId string) (model.Trip, error) {
	q := `SELECT ` + tripColumns + `
	FROM
		trips t
	WHERE
		t.trip_id = $1`

	t, err := scanTrip(tr.db.conn.QueryRow(ctx, q, tripId))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Trip{}, myerrors.ErrTripNotFound
		}
		return model.Trip{}, err
	}
	return t, nil
}

func (tr *TripRepo) ListRecentCompleted(ctx context.Context, driverId string, limit int) ([]model.Trip, error) {
	q := `SELECT ` + tripColumns + `
	FROM
		trips t
	WHERE
		t.driver_id = $1 AND t.status = 'COMPLETED'
	ORDER BY
		t.completed_at DESC
	LIMIT $2`

	rows, err := tr.db.conn.Query(ctx, q, driverId, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
