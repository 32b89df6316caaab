package db

import (
	"context"
	"errors"

	"carpool-safety/internal/safety-service/core/domain/model"
	"carpool-safety/internal/safety-service/core/myerrors"
	"carpool-safety/internal/safety-service/core/ports"

	"github.com/jackc/pgx/v5"
)

type DriverRepo struct {
	db *DB
}

func NewDriverRepo(db *DB) ports.IDriverRepo {
	return &DriverRepo{
		db: db,
	}
}

func (dr *DriverRepo) Exists(ctx context.Context, driverId string) (bool, error) {
	q := `SELECT EXISTS (SELECT 1 FROM drivers WHERE driver_id = $1)`

	exists := false
	if err := dr.db.conn.QueryRow(ctx, q, driverId).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (dr *DriverRepo) GetById(ctx context.Context, driverId string) (model.Driver, error) {
	q := `
	SELECT
		d.driver_id,
		d.status,
		d.rating,
		COALESCE(d.current_suspension_id::text, '')
	FROM
		drivers d
	WHERE
		d.driver_id = $1`

	var d model.Driver
	err := dr.db.conn.QueryRow(ctx, q, driverId).Scan(
		&d.ID,
		&d.Status,
		&d.Rating,
		&d.CurrentSuspensionId,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Driver{}, myerrors.ErrDriverNotFound
		}
		return model.Driver{}, err
	}
	return d, nil
}

func (dr *DriverRepo) SetStatus(ctx context.Context, driverId string, status model.DriverStatus) error {
	q := `
	UPDATE
		drivers
	SET
		status = $2,
		updated_at = now()
	WHERE
		driver_id = $1`

	tag, err := dr.db.conn.Exec(ctx, q, driverId, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return myerrors.ErrDriverNotFound
	}
	return nil
}
