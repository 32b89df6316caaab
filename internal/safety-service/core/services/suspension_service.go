package services

import (
	"context"
	"errors"
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

type SuspensionService struct {
	mylog    mylogger.Logger
	susp     ports.ISuspensionRepo
	profiles ports.ISafetyProfileService
	broker   ports.ISafetyBroker
	metrics  *metricz.Registry
	cfg      *config.Safetyconfig
	clock    clockz.Clock
}

func NewSuspensionService(log mylogger.Logger,
	susp ports.ISuspensionRepo,
	profiles ports.ISafetyProfileService,
	broker ports.ISafetyBroker,
	metrics *metricz.Registry,
	cfg *config.Safetyconfig,
) *SuspensionService {
	return &SuspensionService{
		mylog:    log,
		susp:     susp,
		profiles: profiles,
		broker:   broker,
		metrics:  metrics,
		cfg:      cfg,
		clock:    clockz.RealClock,
	}
}

func (sus *SuspensionService) WithClock(clock clockz.Clock) *SuspensionService {
	sus.clock = clock
	return sus
}

// IssueSuspension creates the suspension and blocks the driver in one
// transaction, so a driver is never left online across a fresh suspension.
// The one-active-per-driver check reads before writing; two writers racing
// the same driver can in principle both pass it.
func (sus *SuspensionService) IssueSuspension(ctx context.Context, driverId string, sType model.SuspensionType, reason string, strikeIds []string) (model.Suspension, error) {
	log := sus.mylog.Action("IssueSuspension")

	if driverId == "" || reason == "" {
		return model.Suspension{}, myerrors.ErrFieldIsEmpty
	}
	if sType != model.SuspensionTemporary && sType != model.SuspensionPermanent {
		return model.Suspension{}, myerrors.ErrInvalidType
	}

	if _, err := sus.susp.GetActiveByDriver(ctx, driverId); err == nil {
		return model.Suspension{}, myerrors.ErrDriverSuspended
	} else if !errors.Is(err, myerrors.ErrSuspensionNotFound) {
		log.Error("cannot check existing suspension", err, "driver_id", driverId)
		return model.Suspension{}, err
	}

	now := sus.clock.Now().UTC()
	s := model.Suspension{
		DriverId:       driverId,
		SuspensionType: sType,
		Reason:         reason,
		StrikeIds:      strikeIds,
		Status:         model.SuspensionActive,
		StartedAt:      now,
	}
	if sType == model.SuspensionTemporary {
		expires := now.Add(time.Duration(sus.cfg.TempSuspensionDays) * 24 * time.Hour)
		s.ExpiresAt = &expires
	}

	id, err := sus.susp.CreateWithDriverBlock(ctx, s)
	if err != nil {
		log.Error("cannot persist suspension", err, "driver_id", driverId)
		return model.Suspension{}, err
	}
	s.ID = id
	sus.metrics.Counter(stats.SuspensionsIssued).Inc()
	log.Info("suspension issued",
		"suspension_id", id,
		"driver_id", driverId,
		"suspension_type", string(sType))

	if _, err := sus.profiles.UpdateDriverSafetyProfile(ctx, driverId); err != nil {
		log.Warn("profile refresh failed", "driver_id", driverId, "error", err.Error())
	}

	body := fmt.Sprintf("Your account has been suspended: %s.", reason)
	if s.ExpiresAt != nil {
		body = fmt.Sprintf("Your account has been suspended until %s: %s.",
			s.ExpiresAt.Format(time.RFC3339), reason)
	}
	notifyDriver(ctx, log, sus.broker, sus.metrics, messagebrokerdto.DriverNotification{
		DriverId: driverId,
		Kind:     "suspension_issued",
		Title:    "Account suspended",
		Body:     body,
	})

	return s, nil
}

// ApplyEscalation runs once per strike issuance with the active count as of
// that issuance. Reaching the temporary threshold exactly earns a temporary
// suspension; at the permanent threshold and beyond the suspension is
// permanent, superseding an active temporary one.
func (sus *SuspensionService) ApplyEscalation(ctx context.Context, driverId string, activeCount int, strikeIds []string) error {
	log := sus.mylog.Action("ApplyEscalation")

	if activeCount < sus.cfg.TempStrikeCount {
		return nil
	}

	existing, err := sus.susp.GetActiveByDriver(ctx, driverId)
	hasActive := err == nil
	if err != nil && !errors.Is(err, myerrors.ErrSuspensionNotFound) {
		log.Error("cannot check existing suspension", err, "driver_id", driverId)
		return err
	}

	if activeCount >= sus.cfg.PermStrikeCount {
		if hasActive {
			if existing.SuspensionType == model.SuspensionPermanent {
				return nil
			}
			if err := sus.LiftSuspension(ctx, existing.ID, "superseded by permanent suspension"); err != nil {
				return err
			}
		}
		_, err := sus.IssueSuspension(ctx, driverId, model.SuspensionPermanent,
			fmt.Sprintf("accumulated %d active strikes", activeCount), strikeIds)
		return err
	}

	// temporary band
	if hasActive {
		return nil
	}
	_, err = sus.IssueSuspension(ctx, driverId, model.SuspensionTemporary,
		fmt.Sprintf("accumulated %d active strikes", activeCount), strikeIds)
	return err
}

// LiftSuspension ends a suspension early. The driver block is cleared but the
// driver is left offline; going online again is the driver's own action and
// passes through the eligibility gate.
func (sus *SuspensionService) LiftSuspension(ctx context.Context, suspensionId, reason string) error {
	log := sus.mylog.Action("LiftSuspension")

	s, err := sus.susp.GetById(ctx, suspensionId)
	if err != nil {
		return err
	}
	if s.Status != model.SuspensionActive {
		return myerrors.ErrSuspensionNotActive
	}

	if err := sus.susp.Lift(ctx, suspensionId, reason, model.SuspensionLifted, sus.clock.Now().UTC()); err != nil {
		log.Error("cannot lift suspension", err, "suspension_id", suspensionId)
		return err
	}
	sus.metrics.Counter(stats.SuspensionsLifted).Inc()
	log.Info("suspension lifted", "suspension_id", suspensionId, "driver_id", s.DriverId, "reason", reason)

	if _, err := sus.profiles.UpdateDriverSafetyProfile(ctx, s.DriverId); err != nil {
		log.Warn("profile refresh failed", "driver_id", s.DriverId, "error", err.Error())
	}

	notifyDriver(ctx, log, sus.broker, sus.metrics, messagebrokerdto.DriverNotification{
		DriverId: s.DriverId,
		Kind:     "suspension_lifted",
		Title:    "Suspension lifted",
		Body:     fmt.Sprintf("Your suspension has been lifted: %s.", reason),
	})
	return nil
}

// CheckExpiredSuspensions retires temporary suspensions whose period has
// passed. Idempotent; rows already flipped are not selected again.
func (sus *SuspensionService) CheckExpiredSuspensions(ctx context.Context) (int, error) {
	log := sus.mylog.Action("CheckExpiredSuspensions")

	now := sus.clock.Now().UTC()
	due, err := sus.susp.ListExpiredActive(ctx, now)
	if err != nil {
		log.Error("cannot list expired suspensions", err)
		return 0, err
	}

	for _, s := range due {
		if err := sus.susp.Lift(ctx, s.ID, "suspension period ended", model.SuspensionExpired, now); err != nil {
			log.Error("cannot expire suspension", err, "suspension_id", s.ID)
			return 0, err
		}
		sus.metrics.Counter(stats.SuspensionsExpired).Inc()

		if _, err := sus.profiles.UpdateDriverSafetyProfile(ctx, s.DriverId); err != nil {
			log.Warn("profile refresh failed", "driver_id", s.DriverId, "error", err.Error())
		}
		notifyDriver(ctx, log, sus.broker, sus.metrics, messagebrokerdto.DriverNotification{
			DriverId: s.DriverId,
			Kind:     "suspension_expired",
			Title:    "Suspension ended",
			Body:     "Your temporary suspension has ended. You may go online again.",
		})
	}
	if len(due) > 0 {
		log.Info("expired suspensions", "count", len(due))
	}
	return len(due), nil
}

// CanDriverGoOnline is the eligibility gate. A lookup failure fails open so
// that a degraded safety store never strands the whole fleet offline; the
// error is still logged loudly.
func (sus *SuspensionService) CanDriverGoOnline(ctx context.Context, driverId string) (model.Eligibility, error) {
	log := sus.mylog.Action("CanDriverGoOnline")

	s, err := sus.susp.GetActiveByDriver(ctx, driverId)
	if err != nil {
		if errors.Is(err, myerrors.ErrSuspensionNotFound) {
			return model.Eligibility{DriverId: driverId, Allowed: true}, nil
		}
		log.Error("eligibility check degraded, allowing driver", err, "driver_id", driverId)
		return model.Eligibility{DriverId: driverId, Allowed: true}, nil
	}

	// a temporary suspension past its window no longer blocks, even if the
	// sweeper has not flipped the row yet
	now := sus.clock.Now().UTC()
	if s.ExpiresAt != nil && !s.ExpiresAt.After(now) {
		return model.Eligibility{DriverId: driverId, Allowed: true}, nil
	}

	reason := fmt.Sprintf("account suspended (%s): %s", s.SuspensionType, s.Reason)
	return model.Eligibility{
		DriverId:   driverId,
		Allowed:    false,
		Reason:     reason,
		Suspension: &s,
	}, nil
}

func (sus *SuspensionService) ListSuspensions(ctx context.Context, driverId string) ([]model.Suspension, error) {
	return sus.susp.ListByDriver(ctx, driverId)
}
