package ports

import (
	"context"

	"carpool-safety/internal/safety-service/core/domain/dto"
	"carpool-safety/internal/safety-service/core/domain/model"
)

type IssueStrikeParams struct {
	DriverId    string
	TripId      string
	StrikeType  model.StrikeType
	Reason      string
	Severity    model.Severity
	ViolationId string
}

type IStrikeService interface {
	IssueStrike(ctx context.Context, params IssueStrikeParams) (model.Strike, error)
	ActiveStrikeCount(ctx context.Context, driverId string) (int, error)
	ListStrikes(ctx context.Context, driverId string, status model.StrikeStatus) ([]model.Strike, error)
	ExpireOldStrikes(ctx context.Context) (int, error)
	RemoveStrike(ctx context.Context, strikeId, reason string) error
	MarkAppealed(ctx context.Context, strikeId string) error
	ReinstateStrike(ctx context.Context, strikeId string) error
}

type ISuspensionService interface {
	IssueSuspension(ctx context.Context, driverId string, sType model.SuspensionType, reason string, strikeIds []string) (model.Suspension, error)
	ApplyEscalation(ctx context.Context, driverId string, activeCount int, strikeIds []string) error
	LiftSuspension(ctx context.Context, suspensionId, reason string) error
	CheckExpiredSuspensions(ctx context.Context) (int, error)
	CanDriverGoOnline(ctx context.Context, driverId string) (model.Eligibility, error)
	ListSuspensions(ctx context.Context, driverId string) ([]model.Suspension, error)
}

type SubmitAppealParams struct {
	DriverId     string
	StrikeId     string
	SuspensionId string
	Reason       string
	Evidence     []string
}

type IAppealService interface {
	SubmitAppeal(ctx context.Context, params SubmitAppealParams) (model.Appeal, error)
	ReviewAppeal(ctx context.Context, appealId, reviewerId string, decision model.AppealStatus, resolution string) (model.Appeal, error)
	ListPendingAppeals(ctx context.Context) ([]model.Appeal, error)
	ListAppeals(ctx context.Context, driverId string) ([]model.Appeal, error)
}

type ISafetyProfileService interface {
	UpdateDriverSafetyProfile(ctx context.Context, driverId string) (model.DriverSafetyProfile, error)
	GetProfile(ctx context.Context, driverId string) (model.DriverSafetyProfile, error)
	RateDriver(ctx context.Context, driverId string, req dto.RateDriverRequestDto) error
}

type IViolationService interface {
	RecordSpeedViolation(ctx context.Context, driverId, tripId string, readings []model.SpeedReading) (model.SpeedViolation, error)
	RecordRouteDeviation(ctx context.Context, driverId, tripId, details string) error
}

type ITelemetryService interface {
	StartTrip(ctx context.Context, driverId, tripId string) error
	HandleSample(ctx context.Context, driverId string, sample model.SpeedReadingInput) (model.SpeedAlert, error)
	DismissWarning(driverId string)
	EndTrip(ctx context.Context, driverId string) error
	ActiveSessions() int
}

type IDriverGate interface {
	GoOnline(ctx context.Context, driverId string) (model.Eligibility, error)
	GoOffline(ctx context.Context, driverId string) error
}
