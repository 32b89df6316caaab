package services

import (
	"context"
	"fmt"
	"time"

	"carpool-safety/internal/config"
	"carpool-safety/internal/mylogger"
	messagebrokerdto "carpool-safety/internal/safety-service/core/domain/message_broker_dto"
	"carpool-safety/internal/safety-service/core/domain/model"
	"carpool-safety/internal/safety-service/core/myerrors"
	"carpool-safety/internal/safety-service/core/ports"
	"carpool-safety/internal/safety-service/core/stats"

	"github.com/zoobzio/clockz"
	"github.com/zoobzio/metricz"
)

type StrikeService struct {
	mylog    mylogger.Logger
	strikes  ports.IStrikeRepo
	drivers  ports.IDriverRepo
	susp     ports.ISuspensionService
	profiles ports.ISafetyProfileService
	broker   ports.ISafetyBroker
	metrics  *metricz.Registry
	cfg      *config.Safetyconfig
	clock    clockz.Clock
}

func NewStrikeService(log mylogger.Logger,
	strikes ports.IStrikeRepo,
	drivers ports.IDriverRepo,
	susp ports.ISuspensionService,
	profiles ports.ISafetyProfileService,
	broker ports.ISafetyBroker,
	metrics *metricz.Registry,
	cfg *config.Safetyconfig,
) *StrikeService {
	return &StrikeService{
		mylog:    log,
		strikes:  strikes,
		drivers:  drivers,
		susp:     susp,
		profiles: profiles,
		broker:   broker,
		metrics:  metrics,
		cfg:      cfg,
		clock:    clockz.RealClock,
	}
}

func (ss *StrikeService) WithClock(clock clockz.Clock) *StrikeService {
	ss.clock = clock
	return ss
}

// IssueStrike persists the strike, then runs escalation exactly once with the
// count as of this issuance. A persistence error surfaces to the caller; a
// notification error does not.
func (ss *StrikeService) IssueStrike(ctx context.Context, params ports.IssueStrikeParams) (model.Strike, error) {
	log := ss.mylog.Action("IssueStrike")

	if err := validateStrikeParams(params); err != nil {
		return model.Strike{}, err
	}

	exists, err := ss.drivers.Exists(ctx, params.DriverId)
	if err != nil {
		log.Error("cannot check driver", err, "driver_id", params.DriverId)
		return model.Strike{}, err
	}
	if !exists {
		return model.Strike{}, myerrors.ErrDriverNotFound
	}

	severity := params.Severity
	if severity == "" {
		severity = model.SeverityMedium
	}

	now := ss.clock.Now().UTC()
	strike := model.Strike{
		DriverId:    params.DriverId,
		TripId:      params.TripId,
		StrikeType:  params.StrikeType,
		Reason:      params.Reason,
		Severity:    severity,
		ViolationId: params.ViolationId,
		Status:      model.StrikeActive,
		IssuedAt:    now,
		ExpiresAt:   now.Add(time.Duration(ss.cfg.StrikeExpiryDays) * 24 * time.Hour),
	}

	id, err := ss.strikes.Create(ctx, strike)
	if err != nil {
		log.Error("cannot persist strike", err, "driver_id", params.DriverId)
		return model.Strike{}, err
	}
	strike.ID = id
	ss.metrics.Counter(stats.StrikesIssued).Inc()
	log.Info("strike issued",
		"strike_id", id,
		"driver_id", params.DriverId,
		"strike_type", string(params.StrikeType),
		"severity", string(severity))

	actives, err := ss.strikes.ListActive(ctx, params.DriverId, now)
	if err != nil {
		log.Error("cannot count active strikes", err, "driver_id", params.DriverId)
		return model.Strike{}, err
	}
	strikeIds := make([]string, 0, len(actives))
	for _, s := range actives {
		strikeIds = append(strikeIds, s.ID)
	}

	if err := ss.susp.ApplyEscalation(ctx, params.DriverId, len(actives), strikeIds); err != nil {
		log.Error("escalation failed", err, "driver_id", params.DriverId)
		return model.Strike{}, err
	}

	if _, err := ss.profiles.UpdateDriverSafetyProfile(ctx, params.DriverId); err != nil {
		log.Warn("profile refresh failed", "driver_id", params.DriverId, "error", err.Error())
	}

	notifyDriver(ctx, log, ss.broker, ss.metrics, messagebrokerdto.DriverNotification{
		DriverId: params.DriverId,
		Kind:     "strike_issued",
		Title:    "Safety strike issued",
		Body: fmt.Sprintf("You received a %s strike: %s. You now have %d active strike(s).",
			string(params.StrikeType), params.Reason, len(actives)),
	})

	return strike, nil
}

func (ss *StrikeService) ActiveStrikeCount(ctx context.Context, driverId string) (int, error) {
	return ss.strikes.CountActive(ctx, driverId, ss.clock.Now().UTC())
}

func (ss *StrikeService) ListStrikes(ctx context.Context, driverId string, status model.StrikeStatus) ([]model.Strike, error) {
	return ss.strikes.ListByDriver(ctx, driverId, status)
}

// ExpireOldStrikes flips ACTIVE rows past their expiry to EXPIRED and
// refreshes the profiles of the drivers touched. Safe to run repeatedly.
func (ss *StrikeService) ExpireOldStrikes(ctx context.Context) (int, error) {
	log := ss.mylog.Action("ExpireOldStrikes")

	driverIds, err := ss.strikes.ExpireDue(ctx, ss.clock.Now().UTC())
	if err != nil {
		log.Error("cannot expire strikes", err)
		return 0, err
	}
	for i := 0; i < len(driverIds); i++ {
		ss.metrics.Counter(stats.StrikesExpired).Inc()
	}

	for _, driverId := range dedupe(driverIds) {
		if _, err := ss.profiles.UpdateDriverSafetyProfile(ctx, driverId); err != nil {
			log.Warn("profile refresh failed", "driver_id", driverId, "error", err.Error())
		}
	}
	if len(driverIds) > 0 {
		log.Info("expired strikes", "count", len(driverIds))
	}
	return len(driverIds), nil
}

// RemoveStrike retires a strike permanently, normally after an approved
// appeal. The strike stays in history as REMOVED.
func (ss *StrikeService) RemoveStrike(ctx context.Context, strikeId, reason string) error {
	log := ss.mylog.Action("RemoveStrike")

	strike, err := ss.strikes.GetById(ctx, strikeId)
	if err != nil {
		return err
	}
	if strike.Status != model.StrikeActive && strike.Status != model.StrikeAppealed {
		return myerrors.ErrStrikeNotActive
	}

	if err := ss.strikes.UpdateStatus(ctx, strikeId, strike.Status, model.StrikeRemoved, reason); err != nil {
		log.Error("cannot remove strike", err, "strike_id", strikeId)
		return err
	}
	log.Info("strike removed", "strike_id", strikeId, "driver_id", strike.DriverId, "reason", reason)

	if _, err := ss.profiles.UpdateDriverSafetyProfile(ctx, strike.DriverId); err != nil {
		log.Warn("profile refresh failed", "driver_id", strike.DriverId, "error", err.Error())
	}
	return nil
}

func (ss *StrikeService) MarkAppealed(ctx context.Context, strikeId string) error {
	return ss.strikes.UpdateStatus(ctx, strikeId, model.StrikeActive, model.StrikeAppealed, "")
}

// ReinstateStrike returns a strike to ACTIVE after a denied appeal. If the
// strike has aged past its expiry in the meantime, the read-time filter keeps
// it out of the active count and the next sweep flips it to EXPIRED.
func (ss *StrikeService) ReinstateStrike(ctx context.Context, strikeId string) error {
	return ss.strikes.UpdateStatus(ctx, strikeId, model.StrikeAppealed, model.StrikeActive, "")
}

func validateStrikeParams(params ports.IssueStrikeParams) error {
	if params.DriverId == "" || params.Reason == "" {
		return myerrors.ErrFieldIsEmpty
	}
	switch params.StrikeType {
	case model.StrikeSpeedViolation, model.StrikeRouteDeviation, model.StrikeEarlyCompletion,
		model.StrikeRiderReport, model.StrikeNoResponse:
	default:
		return myerrors.ErrInvalidType
	}
	switch params.Severity {
	case "", model.SeverityLow, model.SeverityMedium, model.SeverityHigh:
	default:
		return myerrors.ErrInvalidSeverity
	}
	return nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
