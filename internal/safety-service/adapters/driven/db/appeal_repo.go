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

type AppealRepo struct {
	db *DB
}

func NewAppealRepo(db *DB) ports.IAppealRepo {
	return &AppealRepo{
		db: db,
	}
}

const appealColumns = `
	a.appeal_id,
	a.driver_id,
	COALESCE(a.strike_id::text, ''),
	COALESCE(a.suspension_id::text, ''),
	a.reason,
	a.evidence,
	a.status,
	a.submitted_at,
	COALESCE(a.reviewed_by::text, ''),
	a.reviewed_at,
	a.resolution`

func scanAppeal(row pgx.Row) (model.Appeal, error) {
	var a model.Appeal
	err := row.Scan(
		&a.ID,
		&a.DriverId,
		&a.StrikeId,
		&a.SuspensionId,
		&a.Reason,
		&a.Evidence,
		&a.Status,
		&a.SubmittedAt,
		&a.ReviewedBy,
		&a.ReviewedAt,
		&a.Resolution,
	)
	return a, err
}

func (ar *AppealRepo) Create(ctx context.Context, appeal model.Appeal) (string, error) {
	if err := ar.db.IsAlive(); err != nil {
		return "", err
	}

	tx, err := ar.db.conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	evidence := appeal.Evidence
	if evidence == nil {
		evidence = []string{}
	}

	q := `INSERT INTO appeals (
		driver_id,
		strike_id,
		suspension_id,
		reason,
		evidence,
		status,
		submitted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING appeal_id`

	id := ""
	row := tx.QueryRow(ctx, q,
		appeal.DriverId,
		nullUUID(appeal.StrikeId),
		nullUUID(appeal.SuspensionId),
		appeal.Reason,
		evidence,
		appeal.Status,
		appeal.SubmittedAt,
	)
	if err := row.Scan(&id); err != nil {
		return "", fmt.Errorf("failed to insert appeal: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %v", err)
	}
	return id, nil
}

func (ar *AppealRepo) GetById(ctx context.Context, appealId string) (model.Appeal, error) {
	q := `SELECT ` + appealColumns + `
	FROM
		appeals a
	WHERE
		a.appeal_id = $1`

	a, err := scanAppeal(ar.db.conn.QueryRow(ctx, q, appealId))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Appeal{}, myerrors.ErrAppealNotFound
		}
		return model.Appeal{}, err
	}
	return a, nil
}

func (ar *AppealRepo) HasPendingForStrike(ctx context.Context, strikeId string) (bool, error) {
	q := `SELECT EXISTS (
		SELECT 1 FROM appeals WHERE strike_id = $1 AND status = 'PENDING'
	)`

	exists := false
	if err := ar.db.conn.QueryRow(ctx, q, strikeId).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (ar *AppealRepo) HasPendingForSuspension(ctx context.Context, suspensionId string) (bool, error) {
	q := `SELECT EXISTS (
		SELECT 1 FROM appeals WHERE suspension_id = $1 AND status = 'PENDING'
	)`

	exists := false
	if err := ar.db.conn.QueryRow(ctx, q, suspensionId).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// Review resolves a pending appeal. The update is guarded on PENDING so two
// admins reviewing the same appeal cannot both win.
func (ar *AppealRepo) Review(ctx context.Context, appealId, reviewerId string, status model.AppealStatus, resolution string, at time.Time) error {
	if err := ar.db.IsAlive(); err != nil {
		return err
	}

	q := `
	UPDATE
		appeals
	SET
		status = $2,
		reviewed_by = $3,
		reviewed_at = $4,
		resolution = $5
	WHERE
		appeal_id = $1 AND status = 'PENDING'`

	tag, err := ar.db.conn.Exec(ctx, q, appealId, status, reviewerId, at, resolution)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := ar.GetById(ctx, appealId); err != nil {
			return err
		}
		return myerrors.ErrAppealNotPending
	}
	return nil
}

func (ar *AppealRepo) ListPending(ctx context.Context) ([]model.Appeal, error) {
	q := `SELECT ` + appealColumns + `
	FROM
		appeals a
	WHERE
		a.status = 'PENDING'
	ORDER BY
		a.submitted_at ASC`

	rows, err := ar.db.conn.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppeals(rows)
}

func (ar *AppealRepo) ListByDriver(ctx context.Context, driverId string) ([]model.Appeal, error) {
	q := `SELECT ` + appealColumns + `
	FROM
		appeals a
	WHERE
		a.driver_id = $1
	ORDER BY
		a.submitted_at DESC`

	rows, err := ar.db.conn.Query(ctx, q, driverId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppeals(rows)
}

func (ar *AppealRepo) CountPending(ctx context.Context) (int, error) {
	q := `SELECT COUNT(*) FROM appeals WHERE status = 'PENDING'`

	count := 0
	if err := ar.db.conn.QueryRow(ctx, q).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func collectAppeals(rows pgx.Rows) ([]model.Appeal, error) {
	var out []model.Appeal
	for rows.Next() {
		a, err := scanAppeal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
