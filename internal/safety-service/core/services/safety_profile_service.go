package services

import (
	"context"
	"errors"

	"carpool-safety/internal/mylogger"
	"carpool-safety/internal/safety-service/core/domain/dto"
	"carpool-safety/internal/safety-service/core/domain/model"
	"carpool-safety/internal/safety-service/core/myerrors"
	"carpool-safety/internal/safety-service/core/ports"

	"github.com/zoobzio/clockz"
)

// profileTripWindow caps how much trip history feeds the percentage scores.
const profileTripWindow = 100

type SafetyProfileService struct {
	mylog    mylogger.Logger
	profiles ports.IProfileRepo
	strikes  ports.IStrikeRepo
	susp     ports.ISuspensionRepo
	trips    ports.ITripRepo
	ratings  ports.IRatingRepo
	drivers  ports.IDriverRepo
	clock    clockz.Clock
}

func NewSafetyProfileService(log mylogger.Logger,
	profiles ports.IProfileRepo,
	strikes ports.IStrikeRepo,
	susp ports.ISuspensionRepo,
	trips ports.ITripRepo,
	ratings ports.IRatingRepo,
	drivers ports.IDriverRepo,
) *SafetyProfileService {
	return &SafetyProfileService{
		mylog:    log,
		profiles: profiles,
		strikes:  strikes,
		susp:     susp,
		trips:    trips,
		ratings:  ratings,
		drivers:  drivers,
		clock:    clockz.RealClock,
	}
}

func (ps *SafetyProfileService) WithClock(clock clockz.Clock) *SafetyProfileService {
	ps.clock = clock
	return ps
}

// UpdateDriverSafetyProfile rebuilds the derived profile from the source
// tables and upserts it. Callers invoke it after enforcement changes; it is
// an expensive read path and must not be called in a loop per row.
func (ps *SafetyProfileService) UpdateDriverSafetyProfile(ctx context.Context, driverId string) (model.DriverSafetyProfile, error) {
	log := ps.mylog.Action("UpdateDriverSafetyProfile")
	now := ps.clock.Now().UTC()

	activeStrikes, err := ps.strikes.CountActive(ctx, driverId, now)
	if err != nil {
		log.Error("cannot count strikes", err, "driver_id", driverId)
		return model.DriverSafetyProfile{}, err
	}

	suspState := model.ProfileNotSuspended
	if s, err := ps.susp.GetActiveByDriver(ctx, driverId); err == nil {
		// mirror the gate: a lapsed temporary no longer counts
		if s.ExpiresAt == nil || s.ExpiresAt.After(now) {
			switch s.SuspensionType {
			case model.SuspensionPermanent:
				suspState = model.ProfilePermSuspended
			default:
				suspState = model.ProfileTempSuspended
			}
		}
	} else if !errors.Is(err, myerrors.ErrSuspensionNotFound) {
		log.Error("cannot read suspension", err, "driver_id", driverId)
		return model.DriverSafetyProfile{}, err
	}

	avg, count, err := ps.ratings.AverageForDriver(ctx, driverId)
	if err != nil {
		log.Error("cannot read ratings", err, "driver_id", driverId)
		return model.DriverSafetyProfile{}, err
	}
	if count == 0 {
		// an unrated driver starts from a clean slate
		avg = 5.0
	}

	trips, err := ps.trips.ListRecentCompleted(ctx, driverId, profileTripWindow)
	if err != nil {
		log.Error("cannot read trip history", err, "driver_id", driverId)
		return model.DriverSafetyProfile{}, err
	}
	adherence, compliance, streak := computeTripScores(trips)

	profile := model.DriverSafetyProfile{
		DriverId:             driverId,
		SafetyRating:         avg,
		ActiveStrikes:        activeStrikes,
		SuspensionStatus:     suspState,
		RouteAdherenceScore:  adherence,
		SpeedComplianceScore: compliance,
		SafeTripsStreak:      streak,
		UpdatedAt:            now,
	}

	if err := ps.profiles.Upsert(ctx, profile); err != nil {
		log.Error("cannot upsert profile", err, "driver_id", driverId)
		return model.DriverSafetyProfile{}, err
	}
	return profile, nil
}

// GetProfile returns the stored profile, computing it on first access.
func (ps *SafetyProfileService) GetProfile(ctx context.Context, driverId string) (model.DriverSafetyProfile, error) {
	profile, err := ps.profiles.GetByDriver(ctx, driverId)
	if err != nil {
		if errors.Is(err, myerrors.ErrProfileNotFound) {
			return ps.UpdateDriverSafetyProfile(ctx, driverId)
		}
		return model.DriverSafetyProfile{}, err
	}
	return profile, nil
}

func (ps *SafetyProfileService) RateDriver(ctx context.Context, driverId string, req dto.RateDriverRequestDto) error {
	log := ps.mylog.Action("RateDriver")

	if req.Rating < 1 || req.Rating > 5 {
		return myerrors.ErrInvalidRating
	}
	exists, err := ps.drivers.Exists(ctx, driverId)
	if err != nil {
		return err
	}
	if !exists {
		return myerrors.ErrDriverNotFound
	}

	rating := model.DriverRating{
		DriverId:  driverId,
		TripId:    req.TripId,
		Rating:    req.Rating,
		Comment:   req.Comment,
		CreatedAt: ps.clock.Now().UTC(),
	}
	if _, err := ps.ratings.Create(ctx, rating); err != nil {
		log.Error("cannot persist rating", err, "driver_id", driverId)
		return err
	}

	if _, err := ps.UpdateDriverSafetyProfile(ctx, driverId); err != nil {
		log.Warn("profile refresh failed", "driver_id", driverId, "error", err.Error())
	}
	return nil
}

// computeTripScores derives the percentage scores and the safe streak from
// recent completed trips, newest first. No history reads as a clean record.
func computeTripScores(trips []model.Trip) (adherence, compliance float64, streak int) {
	if len(trips) == 0 {
		return 100, 100, 0
	}

	cleanRoute, cleanSpeed := 0, 0
	for _, t := range trips {
		if !t.HadRouteDeviation {
			cleanRoute++
		}
		if !t.HadSpeedViolation {
			cleanSpeed++
		}
	}
	adherence = 100 * float64(cleanRoute) / float64(len(trips))
	compliance = 100 * float64(cleanSpeed) / float64(len(trips))

	for _, t := range trips {
		if t.HadRouteDeviation || t.HadSpeedViolation {
			break
		}
		streak++
	}
	return adherence, compliance, streak
}
