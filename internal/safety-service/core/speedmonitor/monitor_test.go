package speedmonitor

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"carpool-safety/internal/safety-service/core/domain/model"

	"github.com/zoobzio/clockz"
)

type fakeLimits struct {
	limit float64
	err   error
	calls int
}

func (f *fakeLimits) LimitMph(ctx context.Context, lat, lng float64) (float64, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	return f.limit, nil
}

func testThresholds() Thresholds {
	return Thresholds{
		SmoothingAlpha:  0.3,
		CautionMph:      2,
		WarningMph:      4,
		DangerMph:       6,
		DismissCooldown: 30 * time.Second,
		EpisodeClear:    5 * time.Second,
		BatchSize:       10,
	}
}

// rawThresholds disables smoothing so a sample's raw speed drives the
// classification, which keeps the episode timing tests readable.
func rawThresholds() Thresholds {
	th := testThresholds()
	th.SmoothingAlpha = 1
	return th
}

func sample(mps float64) model.SpeedReadingInput {
	return model.SpeedReadingInput{SpeedMps: mps, Latitude: 40.71, Longitude: -74.0}
}

func TestUpdateConvertsAndSmooths(t *testing.T) {
	limits := &fakeLimits{limit: 100}
	m := New("d1", "t1", limits, testThresholds()).WithClock(clockz.NewFakeClock())

	alert, _ := m.Update(context.Background(), sample(20))
	want := 20 * MpsToMph
	if math.Abs(alert.SpeedMph-want) > 1e-9 {
		t.Fatalf("first sample should prime the filter: got %v want %v", alert.SpeedMph, want)
	}

	alert, _ = m.Update(context.Background(), sample(10))
	want = 0.3*(10*MpsToMph) + 0.7*(20*MpsToMph)
	if math.Abs(alert.SpeedMph-want) > 1e-9 {
		t.Fatalf("smoothed speed wrong: got %v want %v", alert.SpeedMph, want)
	}
}

func TestUpdateWarnsOncePerEpisode(t *testing.T) {
	limits := &fakeLimits{limit: 30}
	m := New("d1", "t1", limits, testThresholds()).WithClock(clockz.NewFakeClock())

	// 17 m/s is ~38 mph, 8 over the limit
	alert, _ := m.Update(context.Background(), sample(17))
	if alert.Level != model.AlertDanger {
		t.Fatalf("expected DANGER, got %s", alert.Level)
	}
	if !alert.Warn {
		t.Fatal("first danger sample of an episode should warn")
	}

	for i := 0; i < 3; i++ {
		alert, _ = m.Update(context.Background(), sample(17))
		if alert.Warn {
			t.Fatalf("sample %d re-warned inside the same episode", i+2)
		}
	}
}

func TestDismissSuppressesWarningAcrossEpisodes(t *testing.T) {
	clock := clockz.NewFakeClock()
	limits := &fakeLimits{limit: 30}
	m := New("d1", "t1", limits, rawThresholds()).WithClock(clock)

	alert, _ := m.Update(context.Background(), sample(17))
	if !alert.Warn {
		t.Fatal("expected initial warning")
	}
	m.Dismiss()

	// drop under the limit long enough to close the episode
	for i := 0; i < 3; i++ {
		clock.Advance(3 * time.Second)
		alert, _ = m.Update(context.Background(), sample(10))
	}
	if alert.EpisodeOpen {
		t.Fatal("episode should have cleared after sustained normal speed")
	}

	// a new episode inside the dismissal window stays quiet
	clock.Advance(1 * time.Second)
	alert, _ = m.Update(context.Background(), sample(17))
	if !alert.EpisodeOpen {
		t.Fatal("expected a new episode")
	}
	if alert.Warn {
		t.Fatal("warning raised inside the dismissal window")
	}

	// once the window passes the open unwarned episode may warn
	clock.Advance(31 * time.Second)
	alert, _ = m.Update(context.Background(), sample(17))
	if !alert.Warn {
		t.Fatal("expected warning after the dismissal window passed")
	}
}

func TestEpisodeClearsOnlyAfterContinuousUnder(t *testing.T) {
	clock := clockz.NewFakeClock()
	limits := &fakeLimits{limit: 30}
	m := New("d1", "t1", limits, rawThresholds()).WithClock(clock)

	m.Update(context.Background(), sample(17))

	// brief dip under threshold does not close the episode
	clock.Advance(2 * time.Second)
	alert, _ := m.Update(context.Background(), sample(10))
	if !alert.EpisodeOpen {
		t.Fatal("episode closed after a 2s dip")
	}

	// popping back over resets the under clock
	clock.Advance(1 * time.Second)
	m.Update(context.Background(), sample(17))
	clock.Advance(3 * time.Second)
	alert, _ = m.Update(context.Background(), sample(10))
	if !alert.EpisodeOpen {
		t.Fatal("under clock should have restarted after the spike")
	}

	clock.Advance(5 * time.Second)
	alert, _ = m.Update(context.Background(), sample(10))
	if alert.EpisodeOpen {
		t.Fatal("episode should close after 5s continuously under")
	}

	// the next violation is a fresh episode and warns again
	alert, _ = m.Update(context.Background(), sample(17))
	if !alert.Warn {
		t.Fatal("fresh episode should warn")
	}
}

func TestBatchHandOffAtThreshold(t *testing.T) {
	limits := &fakeLimits{limit: 30}
	m := New("d1", "t1", limits, testThresholds()).WithClock(clockz.NewFakeClock())

	var batch []model.SpeedReading
	for i := 0; i < 12; i++ {
		_, b := m.Update(context.Background(), sample(17))
		if b != nil {
			if batch != nil {
				t.Fatal("second batch handed off before threshold")
			}
			if i != 9 {
				t.Fatalf("batch handed off at sample %d, want 10th", i+1)
			}
			batch = b
		}
	}
	if len(batch) != 10 {
		t.Fatalf("batch size = %d, want 10", len(batch))
	}
	if m.Pending() != 2 {
		t.Fatalf("pending after hand-off = %d, want 2", m.Pending())
	}
	for _, r := range batch {
		if r.LimitMph != 30 || r.ExcessMph < 6 {
			t.Fatalf("reading carries wrong context: %+v", r)
		}
	}
}

func TestLimitLookupFailureDegradesToNormal(t *testing.T) {
	limits := &fakeLimits{err: errors.New("osm timeout")}
	m := New("d1", "t1", limits, testThresholds()).WithClock(clockz.NewFakeClock())

	alert, batch := m.Update(context.Background(), sample(40))
	if alert.Level != model.AlertNormal {
		t.Fatalf("lookup failure must degrade to NORMAL, got %s", alert.Level)
	}
	if alert.Warn {
		t.Fatal("lookup failure must not warn")
	}
	if batch != nil || m.Pending() != 0 {
		t.Fatal("lookup failure must not accumulate readings")
	}
}

func TestResetClearsTripState(t *testing.T) {
	clock := clockz.NewFakeClock()
	limits := &fakeLimits{limit: 30}
	m := New("d1", "t1", limits, testThresholds()).WithClock(clock)

	m.Update(context.Background(), sample(17))
	m.Update(context.Background(), sample(17))
	m.Dismiss()
	if m.Pending() == 0 {
		t.Fatal("expected buffered readings before reset")
	}

	m.Reset()
	if m.Pending() != 0 {
		t.Fatal("reset must clear the buffer")
	}

	// the filter re-primes on the first sample after a reset
	alert, _ := m.Update(context.Background(), sample(10))
	want := 10 * MpsToMph
	if math.Abs(alert.SpeedMph-want) > 1e-9 {
		t.Fatalf("filter kept state across reset: got %v want %v", alert.SpeedMph, want)
	}

	// and the dismissal window is gone, so a new violation warns
	alert, _ = m.Update(context.Background(), sample(40))
	if alert.Level != model.AlertDanger {
		t.Fatalf("expected DANGER after reset, got %s", alert.Level)
	}
	if !alert.Warn {
		t.Fatal("dismissal window must not survive a reset")
	}
}

func TestClassifyBoundaries(t *testing.T) {
	th := testThresholds()
	cases := []struct {
		excess float64
		want   model.AlertLevel
	}{
		{-3, model.AlertNormal},
		{1.99, model.AlertNormal},
		{2, model.AlertCaution},
		{3.99, model.AlertCaution},
		{4, model.AlertWarning},
		{5.99, model.AlertWarning},
		{6, model.AlertDanger},
		{20, model.AlertDanger},
	}
	for _, c := range cases {
		if got := classify(c.excess, th); got != c.want {
			t.Errorf("classify(%v) = %s, want %s", c.excess, got, c.want)
		}
	}
}
