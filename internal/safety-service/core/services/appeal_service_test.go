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

func submitStrikeAppeal(t *testing.T, e *env, driverId, strikeId string) model.Appeal {
	t.Helper()
	appeal, err := e.appealSvc.SubmitAppeal(context.Background(), ports.SubmitAppealParams{
		DriverId: driverId,
		StrikeId: strikeId,
		Reason:   "the report was mistaken",
	})
	if err != nil {
		t.Fatalf("SubmitAppeal: %v", err)
	}
	return appeal
}

func TestSubmitAppealParksStrike(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	strike := e.issueStrike(t, "driver-1")
	appeal := submitStrikeAppeal(t, e, "driver-1", strike.ID)

	if appeal.Status != model.AppealPending {
		t.Errorf("appeal status = %s, want PENDING", appeal.Status)
	}
	got, _ := e.strikes.GetById(ctx, strike.ID)
	if got.Status != model.StrikeAppealed {
		t.Errorf("strike status = %s, want APPEALED", got.Status)
	}
	// an appealed strike stops counting toward escalation
	if n, _ := e.strikeSvc.ActiveStrikeCount(ctx, "driver-1"); n != 0 {
		t.Errorf("active count = %d, want 0 while under appeal", n)
	}
	if got := e.metrics.Counter(stats.AppealsSubmitted).Value(); got != 1 {
		t.Errorf("appeals.submitted = %f, want 1", got)
	}
}

func TestSubmitAppealWindowBoundary(t *testing.T) {
	t.Run("last day accepted", func(t *testing.T) {
		e := newEnv()
		strike := e.issueStrike(t, "driver-1")
		e.clock.Advance(7 * 24 * time.Hour)
		submitStrikeAppeal(t, e, "driver-1", strike.ID)
	})

	t.Run("past window rejected", func(t *testing.T) {
		e := newEnv()
		strike := e.issueStrike(t, "driver-1")
		e.clock.Advance(7*24*time.Hour + time.Second)
		_, err := e.appealSvc.SubmitAppeal(context.Background(), ports.SubmitAppealParams{
			DriverId: "driver-1",
			StrikeId: strike.ID,
			Reason:   "too late",
		})
		if !errors.Is(err, myerrors.ErrAppealWindowExpired) {
			t.Fatalf("err = %v, want ErrAppealWindowExpired", err)
		}
	})
}

func TestSubmitAppealRejectsForeignStrike(t *testing.T) {
	e := newEnv("driver-1", "driver-2")
	strike := e.issueStrike(t, "driver-1")

	_, err := e.appealSvc.SubmitAppeal(context.Background(), ports.SubmitAppealParams{
		DriverId: "driver-2",
		StrikeId: strike.ID,
		Reason:   "not even mine",
	})
	if !errors.Is(err, myerrors.ErrAppealNotOwned) {
		t.Fatalf("err = %v, want ErrAppealNotOwned", err)
	}
}

func TestSubmitAppealValidation(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	if _, err := e.appealSvc.SubmitAppeal(ctx, ports.SubmitAppealParams{DriverId: "driver-1", Reason: "r"}); !errors.Is(err, myerrors.ErrAppealMissingRef) {
		t.Errorf("no reference: err = %v, want ErrAppealMissingRef", err)
	}
	if _, err := e.appealSvc.SubmitAppeal(ctx, ports.SubmitAppealParams{DriverId: "driver-1", StrikeId: "s"}); !errors.Is(err, myerrors.ErrFieldIsEmpty) {
		t.Errorf("no reason: err = %v, want ErrFieldIsEmpty", err)
	}
}

func TestSubmitAppealRejectsSecondAppeal(t *testing.T) {
	e := newEnv()

	strike := e.issueStrike(t, "driver-1")
	submitStrikeAppeal(t, e, "driver-1", strike.ID)

	_, err := e.appealSvc.SubmitAppeal(context.Background(), ports.SubmitAppealParams{
		DriverId: "driver-1",
		StrikeId: strike.ID,
		Reason:   "asking twice",
	})
	if !errors.Is(err, myerrors.ErrAppealAlreadyPending) {
		t.Fatalf("err = %v, want ErrAppealAlreadyPending", err)
	}
}

func TestApproveAppealRetiresStrike(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	strike := e.issueStrike(t, "driver-1")
	appeal := submitStrikeAppeal(t, e, "driver-1", strike.ID)
	e.broker.sent = nil

	reviewed, err := e.appealSvc.ReviewAppeal(ctx, appeal.ID, "admin-1", model.AppealApproved, "report could not be verified")
	if err != nil {
		t.Fatalf("ReviewAppeal: %v", err)
	}
	if reviewed.Status != model.AppealApproved || reviewed.ReviewedBy != "admin-1" || reviewed.ReviewedAt == nil {
		t.Errorf("reviewed = %+v, want APPROVED by admin-1", reviewed)
	}

	got, _ := e.strikes.GetById(ctx, strike.ID)
	if got.Status != model.StrikeRemoved || got.RemovalReason != "appeal approved" {
		t.Errorf("strike = %+v, want REMOVED via appeal", got)
	}
	if n, _ := e.strikeSvc.ActiveStrikeCount(ctx, "driver-1"); n != 0 {
		t.Errorf("active count = %d, want 0 after approval", n)
	}
	if got := e.metrics.Counter(stats.AppealsApproved).Value(); got != 1 {
		t.Errorf("appeals.approved = %f, want 1", got)
	}
	if len(e.broker.sent) != 1 || e.broker.sent[0].Kind != "appeal_resolved" {
		t.Errorf("notifications = %+v, want one appeal_resolved", e.broker.sent)
	}
}

func TestDenyAppealReinstatesStrike(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	strike := e.issueStrike(t, "driver-1")
	appeal := submitStrikeAppeal(t, e, "driver-1", strike.ID)

	if _, err := e.appealSvc.ReviewAppeal(ctx, appeal.ID, "admin-1", model.AppealDenied, "dashcam confirms the report"); err != nil {
		t.Fatalf("ReviewAppeal: %v", err)
	}

	got, _ := e.strikes.GetById(ctx, strike.ID)
	if got.Status != model.StrikeActive {
		t.Errorf("strike status = %s, want ACTIVE after denial", got.Status)
	}
	if n, _ := e.strikeSvc.ActiveStrikeCount(ctx, "driver-1"); n != 1 {
		t.Errorf("active count = %d, want 1 after denial", n)
	}
	if got := e.metrics.Counter(stats.AppealsDenied).Value(); got != 1 {
		t.Errorf("appeals.denied = %f, want 1", got)
	}
}

func TestDenyAppealOnAgedStrikeStaysOutOfCount(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	strike := e.issueStrike(t, "driver-1")
	e.clock.Advance(6 * 24 * time.Hour)
	appeal := submitStrikeAppeal(t, e, "driver-1", strike.ID)

	// the review lands long after the strike would have expired
	e.clock.Advance(40 * 24 * time.Hour)
	if _, err := e.appealSvc.ReviewAppeal(ctx, appeal.ID, "admin-1", model.AppealDenied, "confirmed"); err != nil {
		t.Fatalf("ReviewAppeal: %v", err)
	}

	got, _ := e.strikes.GetById(ctx, strike.ID)
	if got.Status != model.StrikeActive {
		t.Fatalf("strike status = %s, want ACTIVE", got.Status)
	}
	if n, _ := e.strikeSvc.ActiveStrikeCount(ctx, "driver-1"); n != 0 {
		t.Errorf("active count = %d, want 0 for an aged-out strike", n)
	}
}

func TestApproveSuspensionAppealLiftsIt(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	e.issueStrike(t, "driver-1")
	e.issueStrike(t, "driver-1")
	s, err := e.susp.GetActiveByDriver(ctx, "driver-1")
	if err != nil {
		t.Fatalf("expected a suspension: %v", err)
	}

	appeal, err := e.appealSvc.SubmitAppeal(ctx, ports.SubmitAppealParams{
		DriverId:     "driver-1",
		SuspensionId: s.ID,
		Reason:       "both strikes are being disputed",
		Evidence:     []string{"https://files.example/dashcam.mp4"},
	})
	if err != nil {
		t.Fatalf("SubmitAppeal: %v", err)
	}

	if _, err := e.appealSvc.ReviewAppeal(ctx, appeal.ID, "admin-1", model.AppealApproved, "suspension premature"); err != nil {
		t.Fatalf("ReviewAppeal: %v", err)
	}

	lifted, _ := e.susp.GetById(ctx, s.ID)
	if lifted.Status != model.SuspensionLifted || lifted.LiftReason != "appeal approved" {
		t.Errorf("suspension = %+v, want LIFTED via appeal", lifted)
	}
	d, _ := e.drivers.GetById(ctx, "driver-1")
	if d.CurrentSuspensionId != "" {
		t.Errorf("driver still blocked by %s", d.CurrentSuspensionId)
	}
}

func TestReviewAppealRequiresPending(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	strike := e.issueStrike(t, "driver-1")
	appeal := submitStrikeAppeal(t, e, "driver-1", strike.ID)

	if _, err := e.appealSvc.ReviewAppeal(ctx, appeal.ID, "admin-1", "MAYBE", "?"); !errors.Is(err, myerrors.ErrInvalidDecision) {
		t.Errorf("bad decision: err = %v, want ErrInvalidDecision", err)
	}
	if _, err := e.appealSvc.ReviewAppeal(ctx, appeal.ID, "admin-1", model.AppealDenied, "confirmed"); err != nil {
		t.Fatalf("first review: %v", err)
	}
	if _, err := e.appealSvc.ReviewAppeal(ctx, appeal.ID, "admin-2", model.AppealApproved, "changed my mind"); !errors.Is(err, myerrors.ErrAppealNotPending) {
		t.Errorf("second review: err = %v, want ErrAppealNotPending", err)
	}
}
