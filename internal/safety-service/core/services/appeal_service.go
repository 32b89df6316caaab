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

type AppealService struct {
	mylog    mylogger.Logger
	appeals  ports.IAppealRepo
	strikes  ports.IStrikeRepo
	susp     ports.ISuspensionRepo
	strikeOp ports.IStrikeService
	suspOp   ports.ISuspensionService
	profiles ports.ISafetyProfileService
	broker   ports.ISafetyBroker
	metrics  *metricz.Registry
	cfg      *config.Safetyconfig
	clock    clockz.Clock
}

func NewAppealService(log mylogger.Logger,
	appeals ports.IAppealRepo,
	strikes ports.IStrikeRepo,
	susp ports.ISuspensionRepo,
	strikeOp ports.IStrikeService,
	suspOp ports.ISuspensionService,
	profiles ports.ISafetyProfileService,
	broker ports.ISafetyBroker,
	metrics *metricz.Registry,
	cfg *config.Safetyconfig,
) *AppealService {
	return &AppealService{
		mylog:    log,
		appeals:  appeals,
		strikes:  strikes,
		susp:     susp,
		strikeOp: strikeOp,
		suspOp:   suspOp,
		profiles: profiles,
		broker:   broker,
		metrics:  metrics,
		cfg:      cfg,
		clock:    clockz.RealClock,
	}
}

func (as *AppealService) WithClock(clock clockz.Clock) *AppealService {
	as.clock = clock
	return as
}

// SubmitAppeal validates ownership and the appeal window, records the appeal
// and parks the referenced strike in APPEALED so it stops counting while the
// review is open.
func (as *AppealService) SubmitAppeal(ctx context.Context, params ports.SubmitAppealParams) (model.Appeal, error) {
	log := as.mylog.Action("SubmitAppeal")

	if params.DriverId == "" || params.Reason == "" {
		return model.Appeal{}, myerrors.ErrFieldIsEmpty
	}
	if params.StrikeId == "" && params.SuspensionId == "" {
		return model.Appeal{}, myerrors.ErrAppealMissingRef
	}

	now := as.clock.Now().UTC()

	if params.StrikeId != "" {
		strike, err := as.strikes.GetById(ctx, params.StrikeId)
		if err != nil {
			return model.Appeal{}, err
		}
		if strike.DriverId != params.DriverId {
			return model.Appeal{}, myerrors.ErrAppealNotOwned
		}
		// the window is inclusive: an appeal on the last day still counts
		window := time.Duration(as.cfg.AppealWindowDays) * 24 * time.Hour
		if now.Sub(strike.IssuedAt) > window {
			return model.Appeal{}, myerrors.ErrAppealWindowExpired
		}
		if strike.Status != model.StrikeActive {
			if strike.Status == model.StrikeAppealed {
				return model.Appeal{}, myerrors.ErrAppealAlreadyPending
			}
			return model.Appeal{}, myerrors.ErrStrikeNotActive
		}
		pending, err := as.appeals.HasPendingForStrike(ctx, params.StrikeId)
		if err != nil {
			return model.Appeal{}, err
		}
		if pending {
			return model.Appeal{}, myerrors.ErrAppealAlreadyPending
		}
	}

	if params.SuspensionId != "" {
		s, err := as.susp.GetById(ctx, params.SuspensionId)
		if err != nil {
			return model.Appeal{}, err
		}
		if s.DriverId != params.DriverId {
			return model.Appeal{}, myerrors.ErrAppealNotOwned
		}
		if s.Status != model.SuspensionActive {
			return model.Appeal{}, myerrors.ErrSuspensionNotActive
		}
		pending, err := as.appeals.HasPendingForSuspension(ctx, params.SuspensionId)
		if err != nil {
			return model.Appeal{}, err
		}
		if pending {
			return model.Appeal{}, myerrors.ErrAppealAlreadyPending
		}
	}

	appeal := model.Appeal{
		DriverId:     params.DriverId,
		StrikeId:     params.StrikeId,
		SuspensionId: params.SuspensionId,
		Reason:       params.Reason,
		Evidence:     params.Evidence,
		Status:       model.AppealPending,
		SubmittedAt:  now,
	}

	id, err := as.appeals.Create(ctx, appeal)
	if err != nil {
		log.Error("cannot persist appeal", err, "driver_id", params.DriverId)
		return model.Appeal{}, err
	}
	appeal.ID = id
	as.metrics.Counter(stats.AppealsSubmitted).Inc()

	if params.StrikeId != "" {
		if err := as.strikeOp.MarkAppealed(ctx, params.StrikeId); err != nil {
			log.Error("cannot mark strike appealed", err, "strike_id", params.StrikeId)
			return model.Appeal{}, err
		}
		if _, err := as.profiles.UpdateDriverSafetyProfile(ctx, params.DriverId); err != nil {
			log.Warn("profile refresh failed", "driver_id", params.DriverId, "error", err.Error())
		}
	}

	log.Info("appeal submitted",
		"appeal_id", id,
		"driver_id", params.DriverId,
		"strike_id", params.StrikeId,
		"suspension_id", params.SuspensionId)
	return appeal, nil
}

// ReviewAppeal settles a pending appeal. Approval retires the referenced
// strike and lifts the referenced suspension; denial puts the strike back in
// play. The driver is told either way, best effort.
func (as *AppealService) ReviewAppeal(ctx context.Context, appealId, reviewerId string, decision model.AppealStatus, resolution string) (model.Appeal, error) {
	log := as.mylog.Action("ReviewAppeal")

	if decision != model.AppealApproved && decision != model.AppealDenied {
		return model.Appeal{}, myerrors.ErrInvalidDecision
	}

	appeal, err := as.appeals.GetById(ctx, appealId)
	if err != nil {
		return model.Appeal{}, err
	}
	if appeal.Status != model.AppealPending {
		return model.Appeal{}, myerrors.ErrAppealNotPending
	}

	now := as.clock.Now().UTC()
	if err := as.appeals.Review(ctx, appealId, reviewerId, decision, resolution, now); err != nil {
		log.Error("cannot record review", err, "appeal_id", appealId)
		return model.Appeal{}, err
	}

	if decision == model.AppealApproved {
		as.metrics.Counter(stats.AppealsApproved).Inc()
		if appeal.StrikeId != "" {
			if err := as.strikeOp.RemoveStrike(ctx, appeal.StrikeId, "appeal approved"); err != nil {
				log.Error("cannot remove appealed strike", err, "strike_id", appeal.StrikeId)
				return model.Appeal{}, err
			}
		}
		if appeal.SuspensionId != "" {
			if err := as.suspOp.LiftSuspension(ctx, appeal.SuspensionId, "appeal approved"); err != nil {
				log.Error("cannot lift appealed suspension", err, "suspension_id", appeal.SuspensionId)
				return model.Appeal{}, err
			}
		}
	} else {
		as.metrics.Counter(stats.AppealsDenied).Inc()
		if appeal.StrikeId != "" {
			if err := as.strikeOp.ReinstateStrike(ctx, appeal.StrikeId); err != nil {
				log.Error("cannot reinstate strike", err, "strike_id", appeal.StrikeId)
				return model.Appeal{}, err
			}
		}
	}

	if _, err := as.profiles.UpdateDriverSafetyProfile(ctx, appeal.DriverId); err != nil {
		log.Warn("profile refresh failed", "driver_id", appeal.DriverId, "error", err.Error())
	}

	appeal.Status = decision
	appeal.ReviewedBy = reviewerId
	appeal.ReviewedAt = &now
	appeal.Resolution = resolution

	outcome := "denied"
	if decision == model.AppealApproved {
		outcome = "approved"
	}
	notifyDriver(ctx, log, as.broker, as.metrics, messagebrokerdto.DriverNotification{
		DriverId: appeal.DriverId,
		Kind:     "appeal_resolved",
		Title:    fmt.Sprintf("Appeal %s", outcome),
		Body:     fmt.Sprintf("Your appeal has been %s. %s", outcome, resolution),
	})

	log.Info("appeal reviewed",
		"appeal_id", appealId,
		"reviewer_id", reviewerId,
		"decision", string(decision))
	return appeal, nil
}

func (as *AppealService) ListPendingAppeals(ctx context.Context) ([]model.Appeal, error) {
	return as.appeals.ListPending(ctx)
}

func (as *AppealService) ListAppeals(ctx context.Context, driverId string) ([]model.Appeal, error) {
	return as.appeals.ListByDriver(ctx, driverId)
}
