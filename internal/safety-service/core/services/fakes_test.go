package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"carpool-safety/internal/config"
	"carpool-safety/internal/mylogger"
	messagebrokerdto "carpool-safety/internal/safety-service/core/domain/message_broker_dto"
	"carpool-safety/internal/safety-service/core/domain/model"
	"carpool-safety/internal/safety-service/core/myerrors"
	"carpool-safety/internal/safety-service/core/ports"
	"carpool-safety/internal/safety-service/core/stats"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/metricz"
)

func testLogger() mylogger.Logger {
	log, _ := mylogger.New(mylogger.LevelError)
	return log
}

func testSafetyConfig() *config.Safetyconfig {
	return &config.Safetyconfig{
		SmoothingAlpha:     0.3,
		CautionExcessMph:   2,
		WarningExcessMph:   4,
		DangerExcessMph:    6,
		SeverityMediumMph:  8,
		SeverityHighMph:    12,
		DismissCooldownSec: 30,
		EpisodeClearSec:    5,
		ViolationBatchSize: 10,
		StrikeExpiryDays:   30,
		TempSuspensionDays: 7,
		AppealWindowDays:   7,
		TempStrikeCount:    2,
		PermStrikeCount:    3,
		SweepIntervalMin:   10,
	}
}

// fakeStrikeRepo keeps strikes in memory with the same read-time semantics
// the SQL layer promises.
type fakeStrikeRepo struct {
	mu        sync.Mutex
	seq       int
	strikes   map[string]*model.Strike
	createErr error
}

func newFakeStrikeRepo() *fakeStrikeRepo {
	return &fakeStrikeRepo{strikes: make(map[string]*model.Strike)}
}

func (f *fakeStrikeRepo) Create(ctx context.Context, s model.Strike) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	f.seq++
	s.ID = fmt.Sprintf("strike-%d", f.seq)
	f.strikes[s.ID] = &s
	return s.ID, nil
}

func (f *fakeStrikeRepo) GetById(ctx context.Context, id string) (model.Strike, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.strikes[id]
	if !ok {
		return model.Strike{}, myerrors.ErrStrikeNotFound
	}
	return *s, nil
}

func (f *fakeStrikeRepo) CountActive(ctx context.Context, driverId string, now time.Time) (int, error) {
	list, err := f.ListActive(ctx, driverId, now)
	return len(list), err
}

func (f *fakeStrikeRepo) ListActive(ctx context.Context, driverId string, now time.Time) ([]model.Strike, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Strike
	for _, s := range f.strikes {
		if s.DriverId == driverId && s.Status == model.StrikeActive && s.ExpiresAt.After(now) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.Before(out[j].IssuedAt) })
	return out, nil
}

func (f *fakeStrikeRepo) ListByDriver(ctx context.Context, driverId string, status model.StrikeStatus) ([]model.Strike, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Strike
	for _, s := range f.strikes {
		if s.DriverId != driverId {
			continue
		}
		if status != "" && s.Status != status {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.After(out[j].IssuedAt) })
	return out, nil
}

func (f *fakeStrikeRepo) UpdateStatus(ctx context.Context, id string, from, to model.StrikeStatus, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.strikes[id]
	if !ok {
		return myerrors.ErrStrikeNotFound
	}
	if s.Status != from {
		return myerrors.ErrStrikeNotActive
	}
	s.Status = to
	if to == model.StrikeRemoved {
		s.RemovalReason = reason
	}
	return nil
}

func (f *fakeStrikeRepo) ExpireDue(ctx context.Context, now time.Time) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var driverIds []string
	for _, s := range f.strikes {
		if s.Status == model.StrikeActive && !s.ExpiresAt.After(now) {
			s.Status = model.StrikeExpired
			driverIds = append(driverIds, s.DriverId)
		}
	}
	return driverIds, nil
}

func (f *fakeStrikeRepo) CountIssuedSince(ctx context.Context, since time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.strikes {
		if !s.IssuedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

type fakeDriverRepo struct {
	mu      sync.Mutex
	drivers map[string]*model.Driver
}

func newFakeDriverRepo(ids ...string) *fakeDriverRepo {
	f := &fakeDriverRepo{drivers: make(map[string]*model.Driver)}
	for _, id := range ids {
		f.drivers[id] = &model.Driver{ID: id, Status: model.DriverOffline}
	}
	return f
}

func (f *fakeDriverRepo) Exists(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.drivers[id]
	return ok, nil
}

func (f *fakeDriverRepo) GetById(ctx context.Context, id string) (model.Driver, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.drivers[id]
	if !ok {
		return model.Driver{}, myerrors.ErrDriverNotFound
	}
	return *d, nil
}

func (f *fakeDriverRepo) SetStatus(ctx context.Context, id string, status model.DriverStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.drivers[id]
	if !ok {
		return myerrors.ErrDriverNotFound
	}
	d.Status = status
	return nil
}

type fakeSuspensionRepo struct {
	mu        sync.Mutex
	seq       int
	susp      map[string]*model.Suspension
	drivers   *fakeDriverRepo
	createErr error
	activeErr error
}

func newFakeSuspensionRepo(drivers *fakeDriverRepo) *fakeSuspensionRepo {
	return &fakeSuspensionRepo{susp: make(map[string]*model.Suspension), drivers: drivers}
}

func (f *fakeSuspensionRepo) CreateWithDriverBlock(ctx context.Context, s model.Suspension) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	f.seq++
	s.ID = fmt.Sprintf("susp-%d", f.seq)
	f.susp[s.ID] = &s
	if f.drivers != nil {
		f.drivers.mu.Lock()
		if d, ok := f.drivers.drivers[s.DriverId]; ok {
			d.Status = model.DriverOffline
			d.CurrentSuspensionId = s.ID
		}
		f.drivers.mu.Unlock()
	}
	return s.ID, nil
}

func (f *fakeSuspensionRepo) GetById(ctx context.Context, id string) (model.Suspension, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.susp[id]
	if !ok {
		return model.Suspension{}, myerrors.ErrSuspensionNotFound
	}
	return *s, nil
}

func (f *fakeSuspensionRepo) GetActiveByDriver(ctx context.Context, driverId string) (model.Suspension, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.activeErr != nil {
		return model.Suspension{}, f.activeErr
	}
	for _, s := range f.susp {
		if s.DriverId == driverId && s.Status == model.SuspensionActive {
			return *s, nil
		}
	}
	return model.Suspension{}, myerrors.ErrSuspensionNotFound
}

func (f *fakeSuspensionRepo) Lift(ctx context.Context, id, reason string, status model.SuspensionStatus, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.susp[id]
	if !ok {
		return myerrors.ErrSuspensionNotFound
	}
	s.Status = status
	s.LiftReason = reason
	s.LiftedAt = &at
	if f.drivers != nil {
		f.drivers.mu.Lock()
		if d, ok := f.drivers.drivers[s.DriverId]; ok && d.CurrentSuspensionId == id {
			d.CurrentSuspensionId = ""
		}
		f.drivers.mu.Unlock()
	}
	return nil
}

func (f *fakeSuspensionRepo) ListByDriver(ctx context.Context, driverId string) ([]model.Suspension, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Suspension
	for _, s := range f.susp {
		if s.DriverId == driverId {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

func (f *fakeSuspensionRepo) ListExpiredActive(ctx context.Context, now time.Time) ([]model.Suspension, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Suspension
	for _, s := range f.susp {
		if s.Status == model.SuspensionActive && s.ExpiresAt != nil && !s.ExpiresAt.After(now) {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeSuspensionRepo) CountActive(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.susp {
		if s.Status == model.SuspensionActive {
			n++
		}
	}
	return n, nil
}

type fakeAppealRepo struct {
	mu      sync.Mutex
	seq     int
	appeals map[string]*model.Appeal
}

func newFakeAppealRepo() *fakeAppealRepo {
	return &fakeAppealRepo{appeals: make(map[string]*model.Appeal)}
}

func (f *fakeAppealRepo) Create(ctx context.Context, a model.Appeal) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	a.ID = fmt.Sprintf("appeal-%d", f.seq)
	f.appeals[a.ID] = &a
	return a.ID, nil
}

func (f *fakeAppealRepo) GetById(ctx context.Context, id string) (model.Appeal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appeals[id]
	if !ok {
		return model.Appeal{}, myerrors.ErrAppealNotFound
	}
	return *a, nil
}

func (f *fakeAppealRepo) HasPendingForStrike(ctx context.Context, strikeId string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.appeals {
		if a.StrikeId == strikeId && a.Status == model.AppealPending {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAppealRepo) HasPendingForSuspension(ctx context.Context, suspensionId string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.appeals {
		if a.SuspensionId == suspensionId && a.Status == model.AppealPending {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAppealRepo) Review(ctx context.Context, id, reviewerId string, status model.AppealStatus, resolution string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appeals[id]
	if !ok {
		return myerrors.ErrAppealNotFound
	}
	if a.Status != model.AppealPending {
		return myerrors.ErrAppealNotPending
	}
	a.Status = status
	a.ReviewedBy = reviewerId
	a.ReviewedAt = &at
	a.Resolution = resolution
	return nil
}

func (f *fakeAppealRepo) ListPending(ctx context.Context) ([]model.Appeal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Appeal
	for _, a := range f.appeals {
		if a.Status == model.AppealPending {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.Before(out[j].SubmittedAt) })
	return out, nil
}

func (f *fakeAppealRepo) ListByDriver(ctx context.Context, driverId string) ([]model.Appeal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Appeal
	for _, a := range f.appeals {
		if a.DriverId == driverId {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.After(out[j].SubmittedAt) })
	return out, nil
}

func (f *fakeAppealRepo) CountPending(ctx context.Context) (int, error) {
	list, err := f.ListPending(ctx)
	return len(list), err
}

type fakeTripRepo struct {
	mu    sync.Mutex
	trips map[string]*model.Trip
}

func newFakeTripRepo() *fakeTripRepo {
	return &fakeTripRepo{trips: make(map[string]*model.Trip)}
}

func (f *fakeTripRepo) UpsertStarted(ctx context.Context, tripId, driverId string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.trips[tripId]; ok {
		return nil
	}
	started := at
	f.trips[tripId] = &model.Trip{ID: tripId, DriverId: driverId, Status: model.TripInProgress, StartedAt: &started}
	return nil
}

func (f *fakeTripRepo) Complete(ctx context.Context, tripId string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.trips[tripId]
	if !ok {
		return myerrors.ErrTripNotFound
	}
	done := at
	t.Status = model.TripCompleted
	t.CompletedAt = &done
	return nil
}

func (f *fakeTripRepo) Cancel(ctx context.Context, tripId string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.trips[tripId]
	if !ok {
		return myerrors.ErrTripNotFound
	}
	done := at
	t.Status = model.TripCancelled
	t.CompletedAt = &done
	return nil
}

func (f *fakeTripRepo) MarkSpeedViolation(ctx context.Context, tripId string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.trips[tripId]
	if !ok {
		return myerrors.ErrTripNotFound
	}
	t.HadSpeedViolation = true
	return nil
}

func (f *fakeTripRepo) MarkRouteDeviation(ctx context.Context, tripId string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.trips[tripId]
	if !ok {
		return myerrors.ErrTripNotFound
	}
	t.HadRouteDeviation = true
	return nil
}

func (f *fakeTripRepo) GetById(ctx context.Context, tripId string) (model.Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.trips[tripId]
	if !ok {
		return model.Trip{}, myerrors.ErrTripNotFound
	}
	return *t, nil
}

func (f *fakeTripRepo) ListRecentCompleted(ctx context.Context, driverId string, limit int) ([]model.Trip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Trip
	for _, t := range f.trips {
		if t.DriverId == driverId && t.Status == model.TripCompleted {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CompletedAt.After(*out[j].CompletedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeRatingRepo struct {
	mu      sync.Mutex
	seq     int
	ratings []model.DriverRating
}

func (f *fakeRatingRepo) Create(ctx context.Context, r model.DriverRating) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	r.ID = fmt.Sprintf("rating-%d", f.seq)
	f.ratings = append(f.ratings, r)
	return r.ID, nil
}

func (f *fakeRatingRepo) AverageForDriver(ctx context.Context, driverId string) (float64, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sum, n := 0, 0
	for _, r := range f.ratings {
		if r.DriverId == driverId {
			sum += r.Rating
			n++
		}
	}
	if n == 0 {
		return 0, 0, nil
	}
	return float64(sum) / float64(n), n, nil
}

type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]model.DriverSafetyProfile
	upserts  int
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: make(map[string]model.DriverSafetyProfile)}
}

func (f *fakeProfileRepo) Upsert(ctx context.Context, p model.DriverSafetyProfile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[p.DriverId] = p
	f.upserts++
	return nil
}

func (f *fakeProfileRepo) GetByDriver(ctx context.Context, driverId string) (model.DriverSafetyProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[driverId]
	if !ok {
		return model.DriverSafetyProfile{}, myerrors.ErrProfileNotFound
	}
	return p, nil
}

type fakeBroker struct {
	mu     sync.Mutex
	sent   []messagebrokerdto.DriverNotification
	pubErr error
}

func (f *fakeBroker) Close() error { return nil }

func (f *fakeBroker) PublishDriverNotification(ctx context.Context, msg messagebrokerdto.DriverNotification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pubErr != nil {
		return f.pubErr
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeBroker) ConsumeTripEvents(ctx context.Context, queue string) (<-chan amqp.Delivery, error) {
	return nil, nil
}

func (f *fakeBroker) ConsumeDriverNotifications(ctx context.Context, queue string) (<-chan amqp.Delivery, error) {
	return nil, nil
}

type fakeAudit struct {
	mu        sync.Mutex
	appended  []model.SpeedViolation
	appendErr error
}

func (f *fakeAudit) Append(ctx context.Context, v model.SpeedViolation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appended = append(f.appended, v)
	return nil
}

func (f *fakeAudit) Close() error { return nil }

type fakeLimitSource struct {
	limit float64
	err   error
}

func (f *fakeLimitSource) LimitMph(ctx context.Context, lat, lng float64) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.limit, nil
}

// fakeViolationRecorder stands in for the violation service in telemetry
// tests so batches can be observed without the strike machinery.
type fakeViolationRecorder struct {
	mu      sync.Mutex
	batches [][]model.SpeedReading
	err     error
}

func (f *fakeViolationRecorder) RecordSpeedViolation(ctx context.Context, driverId, tripId string, readings []model.SpeedReading) (model.SpeedViolation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return model.SpeedViolation{}, f.err
	}
	f.batches = append(f.batches, readings)
	return model.SpeedViolation{ID: "v-1", DriverId: driverId, TripId: tripId}, nil
}

func (f *fakeViolationRecorder) RecordRouteDeviation(ctx context.Context, driverId, tripId, details string) error {
	return f.err
}

// env wires real services over fake repos, the way start.go does in
// production.
type env struct {
	clock    *clockz.FakeClock
	cfg      *config.Safetyconfig
	metrics  *metricz.Registry
	strikes  *fakeStrikeRepo
	drivers  *fakeDriverRepo
	susp     *fakeSuspensionRepo
	appeals  *fakeAppealRepo
	trips    *fakeTripRepo
	ratings  *fakeRatingRepo
	profiles *fakeProfileRepo
	broker   *fakeBroker

	profileSvc *SafetyProfileService
	suspSvc    *SuspensionService
	strikeSvc  *StrikeService
	appealSvc  *AppealService
}

func newEnv(driverIds ...string) *env {
	if len(driverIds) == 0 {
		driverIds = []string{"driver-1"}
	}
	log := testLogger()
	e := &env{
		clock:    clockz.NewFakeClock(),
		cfg:      testSafetyConfig(),
		metrics:  stats.NewRegistry(),
		strikes:  newFakeStrikeRepo(),
		drivers:  newFakeDriverRepo(driverIds...),
		appeals:  newFakeAppealRepo(),
		trips:    newFakeTripRepo(),
		ratings:  &fakeRatingRepo{},
		profiles: newFakeProfileRepo(),
		broker:   &fakeBroker{},
	}
	e.susp = newFakeSuspensionRepo(e.drivers)

	e.profileSvc = NewSafetyProfileService(log, e.profiles, e.strikes, e.susp, e.trips, e.ratings, e.drivers).WithClock(e.clock)
	e.suspSvc = NewSuspensionService(log, e.susp, e.profileSvc, e.broker, e.metrics, e.cfg).WithClock(e.clock)
	e.strikeSvc = NewStrikeService(log, e.strikes, e.drivers, e.suspSvc, e.profileSvc, e.broker, e.metrics, e.cfg).WithClock(e.clock)
	e.appealSvc = NewAppealService(log, e.appeals, e.strikes, e.susp, e.strikeSvc, e.suspSvc, e.profileSvc, e.broker, e.metrics, e.cfg).WithClock(e.clock)
	return e
}

func (e *env) issueStrike(t *testing.T, driverId string) model.Strike {
	t.Helper()
	strike, err := e.strikeSvc.IssueStrike(context.Background(), ports.IssueStrikeParams{
		DriverId:   driverId,
		StrikeType: model.StrikeRiderReport,
		Reason:     "rider reported unsafe driving",
	})
	if err != nil {
		t.Fatalf("IssueStrike: %v", err)
	}
	return strike
}
