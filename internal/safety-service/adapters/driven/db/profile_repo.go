package db

import (
	"context"
	"errors"

	"carpool-safety/internal/safety-service/core/domain/model"
	"carpool-safety/internal/safety-service/core/myerrors"
	"carpool-safety/internal/safety-service/core/ports"

	"github.com/jackc/pgx/v5"
)

type ProfileRepo struct {
	db *DB
}

func NewProfileRepo(db *DB) ports.IProfileRepo {
	return &ProfileRepo{
		db: db,
	}
}

func (pr *ProfileRepo) Upsert(ctx context.Context, profile model.DriverSafetyProfile) error {
	q := `INSERT INTO driver_safety_profiles (
		driver_id,
		safety_rating,
		active_strikes,
		suspension_status,
		route_adherence_score,
		speed_compliance_score,
		safe_trips_streak,
		updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (driver_id) DO UPDATE SET
		safety_rating = EXCLUDED.safety_rating,
		active_strikes = EXCLUDED.active_strikes,
		suspension_status = EXCLUDED.suspension_status,
		route_adherence_score = EXCLUDED.route_adherence_score,
		speed_compliance_score = EXCLUDED.speed_compliance_score,
		safe_trips_streak = EXCLUDED.safe_trips_streak,
		updated_at = EXCLUDED.updated_at`

	_, err := pr.db.conn.Exec(ctx, q,
		profile.DriverId,
		profile.SafetyRating,
		profile.ActiveStrikes,
		profile.SuspensionStatus,
		profile.RouteAdherenceScore,
		profile.SpeedComplianceScore,
		profile.SafeTripsStreak,
		profile.UpdatedAt,
	)
	return err
}

func (pr *ProfileRepo) GetByDriver(ctx context.Context, driverId string) (model.DriverSafetyProfile, error) {
	q := `
	SELECT
		p.driver_id,
		p.safety_rating,
		p.active_strikes,
		p.suspension_status,
		p.route_adherence_score,
		p.speed_compliance_score,
		p.safe_trips_streak,
		p.updated_at
	FROM
		driver_safety_profiles p
	WHERE
		p.driver_id = $1`

	var p model.DriverSafetyProfile
	err := pr.db.conn.QueryRow(ctx, q, driverId).Scan(
		&p.DriverId,
		&p.SafetyRating,
		&p.ActiveStrikes,
		&p.SuspensionStatus,
		&p.RouteAdherenceScore,
		&p.SpeedComplianceScore,
		&p.SafeTripsStreak,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.DriverSafetyProfile{}, myerrors.ErrProfileNotFound
		}
		return model.DriverSafetyProfile{}, err
	}
	return p, nil
}
