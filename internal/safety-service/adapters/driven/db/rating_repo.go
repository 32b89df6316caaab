package db

import (
	"context"
	"fmt"

	"carpool-safety/internal/safety-service/core/domain/model"
	"carpool-safety/internal/safety-service/core/ports"

	"github.com/jackc/pgx/v5"
)

type RatingRepo struct {
	db *DB
}

func NewRatingRepo(db *DB) ports.IRatingRepo {
	return &RatingRepo{
		db: db,
	}
}

func (rr *RatingRepo) Create(ctx context.Context, rating model.DriverRating) (string, error) {
	if err := rr.db.IsAlive(); err != nil {
		return "", err
	}

	tx, err := rr.db.conn.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	q := `INSERT INTO driver_ratings (
		driver_id,
		trip_id,
		rating,
		comment,
		created_at
		) VALUES ($1, $2, $3, $4, $5) RETURNING rating_id`

	id := ""
	row := tx.QueryRow(ctx, q,
		rating.DriverId,
		nullUUID(rating.TripId),
		rating.Rating,
		rating.Comment,
		rating.CreatedAt,
	)
	if err := row.Scan(&id); err != nil {
		return "", fmt.Errorf("failed to insert rating: %v", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %v", err)
	}
	return id, nil
}

func (rr *RatingRepo) AverageForDriver(ctx context.Context, driverId string) (float64, int, error) {
	q := `
	SELECT
		COALESCE(AVG(rating), 0),
		COUNT(*)
	FROM
		driver_ratings
	WHERE
		driver_id = $1`

	avg := 0.0
	count := 0
	if err := rr.db.conn.QueryRow(ctx, q, driverId).Scan(&avg, &count); err != nil {
		return 0, 0, err
	}
	return avg, count, nil
}
