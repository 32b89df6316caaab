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

type SuspensionRepo struct {
	db *DB
}

func NewSuspensionRepo(db *DB) ports.ISuspensionRepo {
	return &SuspensionRepo{
		db: db,
	}
}

const suspensionColumns = `
	s.suspension_id,
	s.driver_id,
	s.suspension_type,
	s.reason,
	s.strike_ids,
	s.status,
	s.started_at,
	s.expires_at,
	s.lifted_at,
	s.lift_reason`

func scanSuspension(row pgx.Row) (model.Suspension, error) {
	var s model.Suspension
	err := row.Scan(
		&s.ID,
		&s.DriverId,
		&s.SuspensionType,
		&s.Reason,
		&s.StrikeIds,
		&s.Status,
		&s.StartedAt,
		&s.ExpiresAt,
		&s.LiftedAt,
		&s.LiftReason,
	)
	return s, err
}

// CreateWithDriverBlock inserts the suspension and blocks the driver in the
// same transaction, so no window exists where the driver row still looks
// unsuspended.
func (sr *SuspensionRepo) CreateWithDriverBlock(ctx context.Context, s model.Suspension) (string, error) {
	if err := sr.db.IsAlive(); err != nil {
		return "", err
	}

	tx, err := sr.db.conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	strikeIds := s.StrikeIds
	if strikeIds == nil {
		strikeIds = []string{}
	}

	q1 := `INSERT INTO suspensions (
		driver_id,
		suspension_type,
		reason,
		strike_ids,
		status,
		started_at,
		expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING suspension_id`

	id := ""
	row := tx.QueryRow(ctx, q1,
		s.DriverId,
		s.SuspensionType,
		s.Reason,
		strikeIds,
		s.Status,
		s.StartedAt,
		s.ExpiresAt,
	)
	if err := row.Scan(&id); err != nil {
		return "", fmt.Errorf("failed to insert suspension: %v", err)
	}

	q2 := `
	UPDATE
		drivers
	SET
		status = 'OFFLINE',
		current_suspension_id = $1,
		updated_at = now()
	WHERE
		driver_id = $2`

	if _, err := tx.Exec(ctx, q2, id, s.DriverId); err != nil {
		return "", fmt.Errorf("failed to block driver: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %v", err)
	}
	return id, nil
}

func (sr *SuspensionRepo) GetById(ctx context.Context, suspensionId string) (model.Suspension, error) {
	q := `SELECT ` + suspensionColumns + `
	FROM
		suspensions s
	WHERE
		s.suspension_id = $1`

	s, err := scanSuspension(sr.db.conn.QueryRow(ctx, q, suspensionId))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Suspension{}, myerrors.ErrSuspensionNotFound
		}
		return model.Suspension{}, err
	}
	return s, nil
}

func (sr *SuspensionRepo) GetActiveByDriver(ctx context.Context, driverId string) (model.Suspension, error) {
	q := `SELECT ` + suspensionColumns + `
	FROM
		suspensions s
	WHERE
		s.driver_id = $1 AND s.status = 'ACTIVE'
	ORDER BY
		s.started_at DESC
	LIMIT 1`

	s, err := scanSuspension(sr.db.conn.QueryRow(ctx, q, driverId))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Suspension{}, myerrors.ErrSuspensionNotFound
		}
		return model.Suspension{}, err
	}
	return s, nil
}

// Lift ends an active suspension with the given final status and clears the
// driver's block reference in the same transaction.
func (sr *SuspensionRepo) Lift(ctx context.Context, suspensionId, reason string, status model.SuspensionStatus, at time.Time) error {
	if err := sr.db.IsAlive(); err != nil {
		return err
	}

	tx, err := sr.db.conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	q1 := `
	UPDATE
		suspensions
	SET
		status = $2,
		lift_reason = $3,
		lifted_at = $4
	WHERE
		suspension_id = $1 AND status = 'ACTIVE'`

	tag, err := tx.Exec(ctx, q1, suspensionId, status, reason, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := sr.GetById(ctx, suspensionId); err != nil {
			return err
		}
		return myerrors.ErrSuspensionNotActive
	}

	q2 := `
	UPDATE
		drivers
	SET
		current_suspension_id = NULL,
		updated_at = now()
	WHERE
		current_suspension_id = $1`

	if _, err := tx.Exec(ctx, q2, suspensionId); err != nil {
		return fmt.Errorf("failed to clear driver block: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}
	return nil
}

func (sr *SuspensionRepo) ListByDriver(ctx context.Context, driverId string) ([]model.Suspension, error) {
	q := `SELECT ` + suspensionColumns + `
	FROM
		suspensions s
	WHERE
		s.driver_id = $1
	ORDER BY
		s.started_at DESC`

	rows, err := sr.db.conn.Query(ctx, q, driverId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectSuspensions(rows)
}

func (sr *SuspensionRepo) ListExpiredActive(ctx context.Context, now time.Time) ([]model.Suspension, error) {
	q := `SELECT ` + suspensionColumns + `
	FROM
		suspensions s
	WHERE
		s.status = 'ACTIVE' AND s.expires_at IS NOT NULL AND s.expires_at <= $1`

	rows, err := sr.db.conn.Query(ctx, q, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectSuspensions(rows)
}

func (sr *SuspensionRepo) CountActive(ctx context.Context) (int, error) {
	q := `SELECT COUNT(*) FROM suspensions WHERE status = 'ACTIVE'`

	count := 0
	if err := sr.db.conn.QueryRow(ctx, q).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func collectSuspensions(rows pgx.Rows) ([]model.Suspension, error) {
	var out []model.Suspension
	for rows.Next() {
		s, err := scanSuspension(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
