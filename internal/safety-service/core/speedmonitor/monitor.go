package speedmonitor

import (
	"context"
	"sync"
	"time"

	"carpool-safety/internal/safety-service/core/domain/model"
	"carpool-safety/internal/safety-service/core/ports"

	"github.com/zoobzio/clockz"
)

// MpsToMph converts sensor speeds (m/s) to the mph the policy is written in.
const MpsToMph = 2.236936

type Thresholds struct {
	SmoothingAlpha  float64
	CautionMph      float64
	WarningMph      float64
	DangerMph       float64
	DismissCooldown time.Duration
	EpisodeClear    time.Duration
	BatchSize       int
}

// Monitor tracks one driver for the duration of one trip. It smooths incoming
// samples, classifies excess over the posted limit and accumulates readings
// while a violation episode is open. All state is in memory; a trip boundary
// resets everything.
type Monitor struct {
	mu sync.Mutex

	driverId string
	tripId   string

	limits ports.ISpeedLimitSource
	th     Thresholds
	clock  clockz.Clock

	smoothed float64
	primed   bool

	episodeOpen    bool
	episodeStart   time.Time
	warned         bool
	underTracking  bool
	underSince     time.Time
	dismissedUntil time.Time

	buffer []model.SpeedReading
}

func New(driverId, tripId string, limits ports.ISpeedLimitSource, th Thresholds) *Monitor {
	return &Monitor{
		driverId: driverId,
		tripId:   tripId,
		limits:   limits,
		th:       th,
		clock:    clockz.RealClock,
	}
}

// WithClock sets the clock used for episode and dismissal timing.
func (m *Monitor) WithClock(clock clockz.Clock) *Monitor {
	m.clock = clock
	return m
}

func (m *Monitor) TripId() string {
	return m.tripId
}

// Update processes one raw sample. The returned batch is non-nil exactly when
// enough readings accumulated to hand a violation to the recorder; the buffer
// is already cleared by then and the episode stays open.
func (m *Monitor) Update(ctx context.Context, in model.SpeedReadingInput) (model.SpeedAlert, []model.SpeedReading) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	mph := in.SpeedMps * MpsToMph

	if !m.primed {
		m.smoothed = mph
		m.primed = true
	} else {
		a := m.th.SmoothingAlpha
		m.smoothed = a*mph + (1-a)*m.smoothed
	}

	limit, err := m.limits.LimitMph(ctx, in.Latitude, in.Longitude)
	if err != nil {
		// Limit unknown: report normal and accumulate nothing. Episode state
		// is left as is until a resolvable sample arrives.
		return model.SpeedAlert{
			Level:       model.AlertNormal,
			SpeedMph:    m.smoothed,
			EpisodeOpen: m.episodeOpen,
		}, nil
	}

	excess := m.smoothed - limit
	alert := model.SpeedAlert{
		Level:     classify(excess, m.th),
		SpeedMph:  m.smoothed,
		LimitMph:  limit,
		ExcessMph: excess,
	}

	if excess >= m.th.DangerMph {
		m.underTracking = false
		if !m.episodeOpen {
			m.episodeOpen = true
			m.episodeStart = now
			m.warned = false
		}
		if !m.warned && !now.Before(m.dismissedUntil) {
			alert.Warn = true
			m.warned = true
		}

		recordedAt := in.RecordedAt
		if recordedAt.IsZero() {
			recordedAt = now
		}
		m.buffer = append(m.buffer, model.SpeedReading{
			SpeedMph:   m.smoothed,
			LimitMph:   limit,
			ExcessMph:  excess,
			Latitude:   in.Latitude,
			Longitude:  in.Longitude,
			RecordedAt: recordedAt,
		})

		alert.EpisodeOpen = true
		if len(m.buffer) >= m.th.BatchSize {
			batch := m.buffer
			m.buffer = nil
			return alert, batch
		}
		return alert, nil
	}

	if m.episodeOpen {
		if !m.underTracking {
			m.underTracking = true
			m.underSince = now
		} else if now.Sub(m.underSince) >= m.th.EpisodeClear {
			// Episode over without reaching a full batch: the partial buffer
			// is dropped, it never became a violation.
			m.episodeOpen = false
			m.warned = false
			m.underTracking = false
			m.buffer = nil
		}
	}
	alert.EpisodeOpen = m.episodeOpen
	return alert, nil
}

// Dismiss acknowledges the current warning. No new warning is raised until
// the cooldown passes, even if a fresh episode opens.
func (m *Monitor) Dismiss() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dismissedUntil = m.clock.Now().Add(m.th.DismissCooldown)
}

// Reset clears smoothing, episode and buffered readings for a trip boundary.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.smoothed = 0
	m.primed = false
	m.episodeOpen = false
	m.warned = false
	m.underTracking = false
	m.underSince = time.Time{}
	m.dismissedUntil = time.Time{}
	m.buffer = nil
}

// Pending reports how many readings are buffered in the open episode.
func (m *Monitor) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buffer)
}

func classify(excess float64, th Thresholds) model.AlertLevel {
	switch {
	case excess >= th.DangerMph:
		return model.AlertDanger
	case excess >= th.WarningMph:
		return model.AlertWarning
	case excess >= th.CautionMph:
		return model.AlertCaution
	default:
		return model.AlertNormal
	}
}
