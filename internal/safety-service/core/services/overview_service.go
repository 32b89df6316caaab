package services

import (
	"context"
	"fmt"
	"time"

	"carpool-safety/internal/mylogger"
	"carpool-safety/internal/safety-service/core/domain/dto"
	"carpool-safety/internal/safety-service/core/ports"
	"carpool-safety/internal/safety-service/core/stats"

	"github.com/zoobzio/clockz"
	"github.com/zoobzio/metricz"
)

// OverviewService aggregates the counts the admin dashboard shows. Reads
// straight from the stores, no caching.
type OverviewService struct {
	mylog       mylogger.Logger
	strikes     ports.IStrikeRepo
	suspensions ports.ISuspensionRepo
	appeals     ports.IAppealRepo
	telemetry   ports.ITelemetryService
	metrics     *metricz.Registry
	clock       clockz.Clock
}

func NewOverviewService(log mylogger.Logger,
	strikes ports.IStrikeRepo,
	suspensions ports.ISuspensionRepo,
	appeals ports.IAppealRepo,
	telemetry ports.ITelemetryService,
	metrics *metricz.Registry,
) *OverviewService {
	return &OverviewService{
		mylog:       log,
		strikes:     strikes,
		suspensions: suspensions,
		appeals:     appeals,
		telemetry:   telemetry,
		metrics:     metrics,
		clock:       clockz.RealClock,
	}
}

func (ov *OverviewService) WithClock(clock clockz.Clock) *OverviewService {
	ov.clock = clock
	return ov
}

func (ov *OverviewService) GetOverview(ctx context.Context) (dto.OverviewResponseDto, error) {
	log := ov.mylog.Action("GetOverview")

	activeSuspensions, err := ov.suspensions.CountActive(ctx)
	if err != nil {
		log.Error("cannot count active suspensions", err)
		return dto.OverviewResponseDto{}, fmt.Errorf("failed to count active suspensions")
	}

	pendingAppeals, err := ov.appeals.CountPending(ctx)
	if err != nil {
		log.Error("cannot count pending appeals", err)
		return dto.OverviewResponseDto{}, fmt.Errorf("failed to count pending appeals")
	}

	midnight := ov.clock.Now().UTC().Truncate(24 * time.Hour)
	strikesToday, err := ov.strikes.CountIssuedSince(ctx, midnight)
	if err != nil {
		log.Error("cannot count strikes issued today", err)
		return dto.OverviewResponseDto{}, fmt.Errorf("failed to count strikes")
	}

	counters := make(map[string]int, len(stats.Keys))
	for _, k := range stats.Keys {
		counters[string(k)] = int(ov.metrics.Counter(k).Value())
	}

	return dto.OverviewResponseDto{
		ActiveSuspensions:  activeSuspensions,
		PendingAppeals:     pendingAppeals,
		StrikesIssuedToday: strikesToday,
		ActiveSessions:     ov.telemetry.ActiveSessions(),
		Counters:           counters,
	}, nil
}
