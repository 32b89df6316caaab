package services

import (
	"context"
	"fmt"

	"carpool-safety/internal/config"
	"carpool-safety/internal/mylogger"
	"carpool-safety/internal/safety-service/core/domain/model"
	"carpool-safety/internal/safety-service/core/myerrors"
	"carpool-safety/internal/safety-service/core/ports"
	"carpool-safety/internal/safety-service/core/stats"

	"github.com/google/uuid"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/metricz"
)

type ViolationService struct {
	mylog    mylogger.Logger
	audit    ports.IViolationAudit
	trips    ports.ITripRepo
	strikeOp ports.IStrikeService
	metrics  *metricz.Registry
	cfg      *config.Safetyconfig
	clock    clockz.Clock
}

func NewViolationService(log mylogger.Logger,
	audit ports.IViolationAudit,
	trips ports.ITripRepo,
	strikeOp ports.IStrikeService,
	metrics *metricz.Registry,
	cfg *config.Safetyconfig,
) *ViolationService {
	return &ViolationService{
		mylog:    log,
		audit:    audit,
		trips:    trips,
		strikeOp: strikeOp,
		metrics:  metrics,
		cfg:      cfg,
		clock:    clockz.RealClock,
	}
}

func (vs *ViolationService) WithClock(clock clockz.Clock) *ViolationService {
	vs.clock = clock
	return vs
}

// RecordSpeedViolation turns a full batch of readings into an audit record
// and a strike. The audit append and the trip flag are best effort; the
// strike is the enforcement action and its error surfaces.
func (vs *ViolationService) RecordSpeedViolation(ctx context.Context, driverId, tripId string, readings []model.SpeedReading) (model.SpeedViolation, error) {
	log := vs.mylog.Action("RecordSpeedViolation")

	if driverId == "" || len(readings) == 0 {
		return model.SpeedViolation{}, myerrors.ErrFieldIsEmpty
	}

	peak := 0.0
	sumSpeed := 0.0
	for _, r := range readings {
		if r.ExcessMph > peak {
			peak = r.ExcessMph
		}
		sumSpeed += r.SpeedMph
	}
	avgSpeed := sumSpeed / float64(len(readings))
	limit := readings[0].LimitMph

	severity := model.SeverityLow
	switch {
	case peak >= vs.cfg.SeverityHighMph:
		severity = model.SeverityHigh
	case peak >= vs.cfg.SeverityMediumMph:
		severity = model.SeverityMedium
	}

	v := model.SpeedViolation{
		ID:          uuid.NewString(),
		DriverId:    driverId,
		TripId:      tripId,
		Severity:    severity,
		SampleCount: len(readings),
		PeakExcess:  peak,
		AvgSpeedMph: avgSpeed,
		LimitMph:    limit,
		StartedAt:   readings[0].RecordedAt,
		RecordedAt:  vs.clock.Now().UTC(),
		Readings:    readings,
	}

	if err := vs.audit.Append(ctx, v); err != nil {
		vs.metrics.Counter(stats.AuditFailures).Inc()
		log.Warn("violation audit append failed", "violation_id", v.ID, "error", err.Error())
	}

	if tripId != "" {
		if err := vs.trips.MarkSpeedViolation(ctx, tripId); err != nil {
			log.Warn("cannot flag trip", "trip_id", tripId, "error", err.Error())
		}
	}

	reason := fmt.Sprintf("speeding: avg %.0f mph in a %.0f mph zone, peak +%.0f mph over %d samples",
		avgSpeed, limit, peak, len(readings))
	if _, err := vs.strikeOp.IssueStrike(ctx, ports.IssueStrikeParams{
		DriverId:    driverId,
		TripId:      tripId,
		StrikeType:  model.StrikeSpeedViolation,
		Reason:      reason,
		Severity:    severity,
		ViolationId: v.ID,
	}); err != nil {
		log.Error("cannot issue strike for violation", err, "violation_id", v.ID)
		return model.SpeedViolation{}, err
	}

	vs.metrics.Counter(stats.ViolationsRecorded).Inc()
	log.Info("speed violation recorded",
		"violation_id", v.ID,
		"driver_id", driverId,
		"severity", string(severity),
		"peak_excess_mph", peak)
	return v, nil
}

// RecordRouteDeviation covers deviations reported by the route checker.
func (vs *ViolationService) RecordRouteDeviation(ctx context.Context, driverId, tripId, details string) error {
	log := vs.mylog.Action("RecordRouteDeviation")

	if driverId == "" || details == "" {
		return myerrors.ErrFieldIsEmpty
	}

	if tripId != "" {
		if err := vs.trips.MarkRouteDeviation(ctx, tripId); err != nil {
			log.Warn("cannot flag trip", "trip_id", tripId, "error", err.Error())
		}
	}

	_, err := vs.strikeOp.IssueStrike(ctx, ports.IssueStrikeParams{
		DriverId:   driverId,
		TripId:     tripId,
		StrikeType: model.StrikeRouteDeviation,
		Reason:     details,
		Severity:   model.SeverityMedium,
	})
	return err
}
