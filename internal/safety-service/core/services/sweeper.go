package services

import (
	"context"
	"time"

	"carpool-safety/internal/mylogger"
	"carpool-safety/internal/safety-service/core/ports"
	"carpool-safety/internal/safety-service/core/stats"

	"github.com/zoobzio/clockz"
	"github.com/zoobzio/metricz"
)

// Sweeper periodically retires strikes and temporary suspensions whose time
// has passed. Correctness never depends on it running on time: the read-time
// filters already exclude lapsed rows, the sweeper just settles the stored
// status to match.
type Sweeper struct {
	mylog    mylogger.Logger
	strikeOp ports.IStrikeService
	suspOp   ports.ISuspensionService
	metrics  *metricz.Registry
	interval time.Duration
	clock    clockz.Clock
}

func NewSweeper(log mylogger.Logger,
	strikeOp ports.IStrikeService,
	suspOp ports.ISuspensionService,
	metrics *metricz.Registry,
	interval time.Duration,
) *Sweeper {
	return &Sweeper{
		mylog:    log,
		strikeOp: strikeOp,
		suspOp:   suspOp,
		metrics:  metrics,
		interval: interval,
		clock:    clockz.RealClock,
	}
}

func (sw *Sweeper) WithClock(clock clockz.Clock) *Sweeper {
	sw.clock = clock
	return sw
}

// Run blocks until the context is cancelled.
func (sw *Sweeper) Run(ctx context.Context) error {
	log := sw.mylog.Action("Sweeper")
	log.Info("sweeper started", "interval", sw.interval.String())

	for {
		select {
		case <-ctx.Done():
			log.Info("sweeper stopped")
			return nil
		case <-sw.clock.After(sw.interval):
			sw.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sweep. Errors are logged, not returned: a failed
// sweep is retried wholesale on the next tick.
func (sw *Sweeper) RunOnce(ctx context.Context) {
	log := sw.mylog.Action("Sweep")

	expired, err := sw.strikeOp.ExpireOldStrikes(ctx)
	if err != nil {
		log.Error("strike sweep failed", err)
	}
	lapsed, err := sw.suspOp.CheckExpiredSuspensions(ctx)
	if err != nil {
		log.Error("suspension sweep failed", err)
	}

	sw.metrics.Counter(stats.SweepRuns).Inc()
	if expired > 0 || lapsed > 0 {
		log.Info("sweep finished", "strikes_expired", expired, "suspensions_lapsed", lapsed)
	}
}
