package services

import (
	"context"
	"sync"
	"time"

	"carpool-safety/internal/config"
	"carpool-safety/internal/mylogger"
	"carpool-safety/internal/safety-service/core/domain/model"
	"carpool-safety/internal/safety-service/core/myerrors"
	"carpool-safety/internal/safety-service/core/ports"
	"carpool-safety/internal/safety-service/core/speedmonitor"
	"carpool-safety/internal/safety-service/core/stats"

	"github.com/zoobzio/clockz"
	"github.com/zoobzio/metricz"
)

// TelemetryService owns one speed monitor per driver with an open trip. The
// websocket and the kafka pipeline both land here, so a driver is monitored
// the same way whichever path the samples take.
type TelemetryService struct {
	mylog      mylogger.Logger
	violations ports.IViolationService
	trips      ports.ITripRepo
	limits     ports.ISpeedLimitSource
	metrics    *metricz.Registry
	th         speedmonitor.Thresholds
	clock      clockz.Clock

	mu       sync.RWMutex
	sessions map[string]*speedmonitor.Monitor
}

func NewTelemetryService(log mylogger.Logger,
	violations ports.IViolationService,
	trips ports.ITripRepo,
	limits ports.ISpeedLimitSource,
	metrics *metricz.Registry,
	cfg *config.Safetyconfig,
) *TelemetryService {
	return &TelemetryService{
		mylog:      log,
		violations: violations,
		trips:      trips,
		limits:     limits,
		metrics:    metrics,
		th:         ThresholdsFromConfig(cfg),
		clock:      clockz.RealClock,
		sessions:   make(map[string]*speedmonitor.Monitor),
	}
}

func (ts *TelemetryService) WithClock(clock clockz.Clock) *TelemetryService {
	ts.clock = clock
	return ts
}

// ThresholdsFromConfig maps the policy knobs onto monitor thresholds.
func ThresholdsFromConfig(cfg *config.Safetyconfig) speedmonitor.Thresholds {
	return speedmonitor.Thresholds{
		SmoothingAlpha:  cfg.SmoothingAlpha,
		CautionMph:      cfg.CautionExcessMph,
		WarningMph:      cfg.WarningExcessMph,
		DangerMph:       cfg.DangerExcessMph,
		DismissCooldown: time.Duration(cfg.DismissCooldownSec) * time.Second,
		EpisodeClear:    time.Duration(cfg.EpisodeClearSec) * time.Second,
		BatchSize:       cfg.ViolationBatchSize,
	}
}

// StartTrip opens a monitor session. A session already open for the same
// trip is left untouched; one left over from a previous trip is replaced.
func (ts *TelemetryService) StartTrip(ctx context.Context, driverId, tripId string) error {
	log := ts.mylog.Action("StartTrip")

	if driverId == "" || tripId == "" {
		return myerrors.ErrFieldIsEmpty
	}

	ts.mu.Lock()
	if existing, ok := ts.sessions[driverId]; ok {
		if existing.TripId() == tripId {
			ts.mu.Unlock()
			return nil
		}
		log.Warn("replacing stale telemetry session",
			"driver_id", driverId,
			"old_trip_id", existing.TripId(),
			"trip_id", tripId)
	}
	ts.sessions[driverId] = speedmonitor.New(driverId, tripId, ts.limits, ts.th).WithClock(ts.clock)
	ts.mu.Unlock()

	ts.metrics.Counter(stats.SessionsStarted).Inc()
	if err := ts.trips.UpsertStarted(ctx, tripId, driverId, ts.clock.Now().UTC()); err != nil {
		log.Warn("cannot record trip start", "trip_id", tripId, "error", err.Error())
	}
	log.Info("telemetry session opened", "driver_id", driverId, "trip_id", tripId)
	return nil
}

// HandleSample routes one sample to the driver's monitor and records the
// violation when a batch completes. A recording failure is logged but the
// sample still produces an alert for the driver.
func (ts *TelemetryService) HandleSample(ctx context.Context, driverId string, sample model.SpeedReadingInput) (model.SpeedAlert, error) {
	ts.mu.RLock()
	monitor, ok := ts.sessions[driverId]
	ts.mu.RUnlock()
	if !ok {
		return model.SpeedAlert{}, myerrors.ErrNoActiveTrip
	}

	ts.metrics.Counter(stats.SamplesProcessed).Inc()
	alert, batch := monitor.Update(ctx, sample)
	if batch != nil {
		if _, err := ts.violations.RecordSpeedViolation(ctx, driverId, monitor.TripId(), batch); err != nil {
			ts.mylog.Action("HandleSample").Error("violation recording failed", err,
				"driver_id", driverId,
				"trip_id", monitor.TripId())
		}
	}
	return alert, nil
}

// DismissWarning acknowledges the active warning for the driver, if any.
func (ts *TelemetryService) DismissWarning(driverId string) {
	ts.mu.RLock()
	monitor, ok := ts.sessions[driverId]
	ts.mu.RUnlock()
	if ok {
		monitor.Dismiss()
	}
}

// EndTrip closes the session and discards monitor state. Closing a session
// that is already gone is not an error.
func (ts *TelemetryService) EndTrip(ctx context.Context, driverId string) error {
	ts.mu.Lock()
	monitor, ok := ts.sessions[driverId]
	if ok {
		monitor.Reset()
		delete(ts.sessions, driverId)
	}
	ts.mu.Unlock()

	if ok {
		ts.mylog.Action("EndTrip").Info("telemetry session closed", "driver_id", driverId)
	}
	return nil
}

func (ts *TelemetryService) ActiveSessions() int {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return len(ts.sessions)
}
