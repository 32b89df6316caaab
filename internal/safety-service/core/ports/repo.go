package ports

import (
	"context"
	"time"

	"carpool-safety/internal/safety-service/core/domain/model"

	"github.com/jackc/pgx/v5"
)

type IDB interface {
	GetConn() *pgx.Conn
	IsAlive() error
	Close() error
}

type IStrikeRepo interface {
	Create(ctx context.Context, strike model.Strike) (string, error)
	GetById(ctx context.Context, strikeId string) (model.Strike, error)
	// Active means status ACTIVE and expires_at after now. Rows the sweeper
	// has not flipped yet are excluded by the predicate, not by state.
	CountActive(ctx context.Context, driverId string, now time.Time) (int, error)
	ListActive(ctx context.Context, driverId string, now time.Time) ([]model.Strike, error)
	ListByDriver(ctx context.Context, driverId string, status model.StrikeStatus) ([]model.Strike, error)
	UpdateStatus(ctx context.Context, strikeId string, from, to model.StrikeStatus, reason string) error
	ExpireDue(ctx context.Context, now time.Time) ([]string, error)
	CountIssuedSince(ctx context.Context, since time.Time) (int, error)
}

type ISuspensionRepo interface {
	// CreateWithDriverBlock inserts the suspension, points the driver row at
	// it and forces the driver offline in a single transaction.
	CreateWithDriverBlock(ctx context.Context, s model.Suspension) (string, error)
	GetById(ctx context.Context, suspensionId string) (model.Suspension, error)
	GetActiveByDriver(ctx context.Context, driverId string) (model.Suspension, error)
	Lift(ctx context.Context, suspensionId, reason string, status model.SuspensionStatus, at time.Time) error
	ListByDriver(ctx context.Context, driverId string) ([]model.Suspension, error)
	ListExpiredActive(ctx context.Context, now time.Time) ([]model.Suspension, error)
	CountActive(ctx context.Context) (int, error)
}

type IAppealRepo interface {
	Create(ctx context.Context, appeal model.Appeal) (string, error)
	GetById(ctx context.Context, appealId string) (model.Appeal, error)
	HasPendingForStrike(ctx context.Context, strikeId string) (bool, error)
	HasPendingForSuspension(ctx context.Context, suspensionId string) (bool, error)
	Review(ctx context.Context, appealId, reviewerId string, status model.AppealStatus, resolution string, at time.Time) error
	ListPending(ctx context.Context) ([]model.Appeal, error)
	ListByDriver(ctx context.Context, driverId string) ([]model.Appeal, error)
	CountPending(ctx context.Context) (int, error)
}

type ITripRepo interface {
	UpsertStarted(ctx context.Context, tripId, driverId string, at time.Time) error
	Complete(ctx context.Context, tripId string, at time.Time) error
	Cancel(ctx context.Context, tripId string, at time.Time) error
	MarkSpeedViolation(ctx context.Context, tripId string) error
	MarkRouteDeviation(ctx context.Context, tripId string) error
	GetById(ctx context.Context, tripId string) (model.Trip, error)
	ListRecentCompleted(ctx context.Context, driverId string, limit int) ([]model.Trip, error)
}

type IRatingRepo interface {
	Create(ctx context.Context, rating model.DriverRating) (string, error)
	AverageForDriver(ctx context.Context, driverId string) (avg float64, count int, err error)
}

type IDriverRepo interface {
	Exists(ctx context.Context, driverId string) (bool, error)
	GetById(ctx context.Context, driverId string) (model.Driver, error)
	SetStatus(ctx context.Context, driverId string, status model.DriverStatus) error
}

type IProfileRepo interface {
	Upsert(ctx context.Context, profile model.DriverSafetyProfile) error
	GetByDriver(ctx context.Context, driverId string) (model.DriverSafetyProfile, error)
}
