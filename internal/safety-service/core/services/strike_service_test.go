package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"carpool-safety/internal/safety-service/core/domain/model"
	"carpool-safety/internal/safety-service/core/myerrors"
	"carpool-safety/internal/safety-service/core/ports"
	"carpool-safety/internal/safety-service/core/stats"
)

func TestIssueStrikeSetsThirtyDayExpiry(t *testing.T) {
	e := newEnv()

	strike := e.issueStrike(t, "driver-1")

	if strike.ID == "" {
		t.Fatal("expected a strike id")
	}
	if strike.Status != model.StrikeActive {
		t.Errorf("status = %s, want ACTIVE", strike.Status)
	}
	if strike.Severity != model.SeverityMedium {
		t.Errorf("severity = %s, want default MEDIUM", strike.Severity)
	}
	if want := strike.IssuedAt.Add(30 * 24 * time.Hour); !strike.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", strike.ExpiresAt, want)
	}
	if got := e.metrics.Counter(stats.StrikesIssued).Value(); got != 1 {
		t.Errorf("strikes.issued = %f, want 1", got)
	}
	if len(e.broker.sent) != 1 || e.broker.sent[0].Kind != "strike_issued" {
		t.Errorf("notifications = %+v, want one strike_issued", e.broker.sent)
	}
}

func TestIssueStrikeRejectsBadInput(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	cases := []struct {
		name    string
		params  ports.IssueStrikeParams
		wantErr error
	}{
		{"missing driver", ports.IssueStrikeParams{Reason: "r", StrikeType: model.StrikeRiderReport}, myerrors.ErrFieldIsEmpty},
		{"missing reason", ports.IssueStrikeParams{DriverId: "driver-1", StrikeType: model.StrikeRiderReport}, myerrors.ErrFieldIsEmpty},
		{"bad type", ports.IssueStrikeParams{DriverId: "driver-1", Reason: "r", StrikeType: "JAYWALKING"}, myerrors.ErrInvalidType},
		{"bad severity", ports.IssueStrikeParams{DriverId: "driver-1", Reason: "r", StrikeType: model.StrikeRiderReport, Severity: "EXTREME"}, myerrors.ErrInvalidSeverity},
		{"unknown driver", ports.IssueStrikeParams{DriverId: "ghost", Reason: "r", StrikeType: model.StrikeRiderReport}, myerrors.ErrDriverNotFound},
	}
	for _, tc := range cases {
		if _, err := e.strikeSvc.IssueStrike(ctx, tc.params); !errors.Is(err, tc.wantErr) {
			t.Errorf("%s: err = %v, want %v", tc.name, err, tc.wantErr)
		}
	}
	if len(e.strikes.strikes) != 0 {
		t.Errorf("persisted %d strikes, want 0", len(e.strikes.strikes))
	}
}

func TestSecondStrikeTriggersTemporarySuspension(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	first := e.issueStrike(t, "driver-1")
	if n, _ := e.susp.CountActive(ctx); n != 0 {
		t.Fatalf("active suspensions after one strike = %d, want 0", n)
	}

	e.clock.Advance(24 * time.Hour)
	second := e.issueStrike(t, "driver-1")

	s, err := e.susp.GetActiveByDriver(ctx, "driver-1")
	if err != nil {
		t.Fatalf("expected an active suspension: %v", err)
	}
	if s.SuspensionType != model.SuspensionTemporary {
		t.Errorf("type = %s, want TEMPORARY", s.SuspensionType)
	}
	if s.ExpiresAt == nil {
		t.Fatal("temporary suspension must carry an expiry")
	}
	if want := second.IssuedAt.Add(7 * 24 * time.Hour); !s.ExpiresAt.Equal(want) {
		t.Errorf("suspension ExpiresAt = %v, want %v", s.ExpiresAt, want)
	}
	if len(s.StrikeIds) != 2 || s.StrikeIds[0] != first.ID || s.StrikeIds[1] != second.ID {
		t.Errorf("StrikeIds = %v, want [%s %s]", s.StrikeIds, first.ID, second.ID)
	}

	d, _ := e.drivers.GetById(ctx, "driver-1")
	if d.Status != model.DriverOffline || d.CurrentSuspensionId != s.ID {
		t.Errorf("driver = %+v, want blocked by %s", d, s.ID)
	}
	if got := e.metrics.Counter(stats.SuspensionsIssued).Value(); got != 1 {
		t.Errorf("suspensions.issued = %f, want 1", got)
	}
}

func TestThirdStrikeEscalatesToPermanent(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	e.issueStrike(t, "driver-1")
	e.issueStrike(t, "driver-1")
	temp, err := e.susp.GetActiveByDriver(ctx, "driver-1")
	if err != nil {
		t.Fatalf("expected temporary suspension: %v", err)
	}

	e.issueStrike(t, "driver-1")

	perm, err := e.susp.GetActiveByDriver(ctx, "driver-1")
	if err != nil {
		t.Fatalf("expected permanent suspension: %v", err)
	}
	if perm.SuspensionType != model.SuspensionPermanent {
		t.Errorf("type = %s, want PERMANENT", perm.SuspensionType)
	}
	if perm.ExpiresAt != nil {
		t.Errorf("permanent suspension carries expiry %v, want none", perm.ExpiresAt)
	}

	old, _ := e.susp.GetById(ctx, temp.ID)
	if old.Status != model.SuspensionLifted {
		t.Errorf("superseded suspension status = %s, want LIFTED", old.Status)
	}
	if old.LiftReason != "superseded by permanent suspension" {
		t.Errorf("lift reason = %q", old.LiftReason)
	}

	d, _ := e.drivers.GetById(ctx, "driver-1")
	if d.CurrentSuspensionId != perm.ID {
		t.Errorf("driver points at %s, want %s", d.CurrentSuspensionId, perm.ID)
	}
}

func TestFourthStrikeDoesNotStackSuspensions(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		e.issueStrike(t, "driver-1")
	}

	if n, _ := e.susp.CountActive(ctx); n != 1 {
		t.Errorf("active suspensions = %d, want 1", n)
	}
	all, _ := e.susp.ListByDriver(ctx, "driver-1")
	if len(all) != 2 {
		t.Errorf("total suspensions = %d, want 2 (one lifted temp, one permanent)", len(all))
	}
}

func TestExpiredStrikeLeavesActiveCount(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	e.issueStrike(t, "driver-1")
	e.clock.Advance(30*24*time.Hour + time.Second)

	// read-time filter excludes the strike before any sweep runs
	if n, err := e.strikeSvc.ActiveStrikeCount(ctx, "driver-1"); err != nil || n != 0 {
		t.Fatalf("ActiveStrikeCount = %d, %v, want 0", n, err)
	}

	expired, err := e.strikeSvc.ExpireOldStrikes(ctx)
	if err != nil || expired != 1 {
		t.Fatalf("ExpireOldStrikes = %d, %v, want 1", expired, err)
	}
	list, _ := e.strikeSvc.ListStrikes(ctx, "driver-1", model.StrikeExpired)
	if len(list) != 1 {
		t.Fatalf("expired strikes on record = %d, want 1", len(list))
	}

	// second sweep finds nothing
	if expired, _ = e.strikeSvc.ExpireOldStrikes(ctx); expired != 0 {
		t.Errorf("repeat sweep expired %d strikes, want 0", expired)
	}
	if got := e.metrics.Counter(stats.StrikesExpired).Value(); got != 1 {
		t.Errorf("strikes.expired = %f, want 1", got)
	}
}

func TestExpiredStrikesDoNotCountTowardEscalation(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	e.issueStrike(t, "driver-1")
	e.clock.Advance(31 * 24 * time.Hour)

	// first strike aged out, so these two reach the temporary threshold only
	e.issueStrike(t, "driver-1")
	e.issueStrike(t, "driver-1")

	s, err := e.susp.GetActiveByDriver(ctx, "driver-1")
	if err != nil {
		t.Fatalf("expected a suspension: %v", err)
	}
	if s.SuspensionType != model.SuspensionTemporary {
		t.Errorf("type = %s, want TEMPORARY (stale strike must not count)", s.SuspensionType)
	}
	if len(s.StrikeIds) != 2 {
		t.Errorf("StrikeIds = %v, want the two fresh strikes only", s.StrikeIds)
	}
}

func TestIssueStrikePersistFailureSurfaces(t *testing.T) {
	e := newEnv()
	e.strikes.createErr = errors.New("db down")

	_, err := e.strikeSvc.IssueStrike(context.Background(), ports.IssueStrikeParams{
		DriverId:   "driver-1",
		StrikeType: model.StrikeRiderReport,
		Reason:     "rider reported unsafe driving",
	})
	if err == nil || err.Error() != "db down" {
		t.Fatalf("err = %v, want db down", err)
	}
	if len(e.broker.sent) != 0 {
		t.Errorf("sent %d notifications on failed issuance, want 0", len(e.broker.sent))
	}
	if got := e.metrics.Counter(stats.StrikesIssued).Value(); got != 0 {
		t.Errorf("strikes.issued = %f, want 0", got)
	}
}

func TestIssueStrikeNotifyFailureIsSwallowed(t *testing.T) {
	e := newEnv()
	e.broker.pubErr = errors.New("broker gone")

	strike := e.issueStrike(t, "driver-1")
	if strike.ID == "" {
		t.Fatal("strike must be issued despite notification failure")
	}
	if got := e.metrics.Counter(stats.NotifyFailures).Value(); got != 1 {
		t.Errorf("notifications.failures = %f, want 1", got)
	}
}

func TestRemoveStrikeKeepsHistory(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	strike := e.issueStrike(t, "driver-1")
	if err := e.strikeSvc.RemoveStrike(ctx, strike.ID, "appeal approved"); err != nil {
		t.Fatalf("RemoveStrike: %v", err)
	}

	got, _ := e.strikes.GetById(ctx, strike.ID)
	if got.Status != model.StrikeRemoved || got.RemovalReason != "appeal approved" {
		t.Errorf("strike = %+v, want REMOVED with reason", got)
	}
	if err := e.strikeSvc.RemoveStrike(ctx, strike.ID, "again"); !errors.Is(err, myerrors.ErrStrikeNotActive) {
		t.Errorf("second removal err = %v, want ErrStrikeNotActive", err)
	}
}
