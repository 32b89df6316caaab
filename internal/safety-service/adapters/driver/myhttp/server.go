package myhttp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"carpool-safety/internal/config"
	"carpool-safety/internal/mylogger"
	"carpool-safety/internal/safety-service/adapters/driven/audit"
	"carpool-safety/internal/safety-service/adapters/driven/bm"
	consumer "carpool-safety/internal/safety-service/adapters/driven/consume"
	"carpool-safety/internal/safety-service/adapters/driven/db"
	"carpool-safety/internal/safety-service/adapters/driven/speedlimits"
	"carpool-safety/internal/safety-service/adapters/driven/telemetry"
	"carpool-safety/internal/safety-service/adapters/driver/myhttp/handle"
	"carpool-safety/internal/safety-service/adapters/driver/myhttp/middleware"
	"carpool-safety/internal/safety-service/adapters/driver/myhttp/ws"
	"carpool-safety/internal/safety-service/core/ports"
	"carpool-safety/internal/safety-service/core/services"
	"carpool-safety/internal/safety-service/core/stats"
)

const WaitTime = 10

type Server struct {
	mux    *http.ServeMux
	cfg    *config.Config
	srv    *http.Server
	mylog  mylogger.Logger
	db     *db.DB
	mb     ports.ISafetyBroker
	audit  ports.IViolationAudit
	ctx    context.Context
	appCtx context.Context
	mu     sync.Mutex
	wg     sync.WaitGroup

	// workers stop with workerCtx, which Stop cancels even when the signal
	// context is still live (listen failure path)
	workerCtx     context.Context
	cancelWorkers context.CancelFunc
	consumer      *consumer.TripEventsConsumer
	bridge        *consumer.NotificationBridge
	sweeper       *services.Sweeper
	kafka         *telemetry.KafkaIngest
}

func NewServer(ctx, appCtx context.Context, mylog mylogger.Logger, cfg *config.Config) *Server {
	s := &Server{
		ctx:    ctx,
		appCtx: appCtx,
		cfg:    cfg,
		mylog:  mylog,
		mux:    http.NewServeMux(),
	}

	return s
}

// Run connects the adapters, wires the service graph and starts listening.
// It returns when the server stops.
func (s *Server) Run() error {
	mylog := s.mylog.Action("server_started")

	// Initialize database connection
	database, err := db.New(s.ctx, s.cfg.DB, mylog)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	s.db = database
	if err := s.db.InitSchema(s.ctx); err != nil {
		return fmt.Errorf("failed to init schema: %w", err)
	}
	mylog.Info("Successful database connection")

	// Initialize RabbitMQ connection
	mb, err := bm.New(s.appCtx, *s.cfg.RabbitMq, s.mylog)
	if err != nil {
		return fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	s.mb = mb
	mylog.Info("Successful message broker connection")

	// Violation audit trail, local sqlite so it survives a Postgres outage
	auditLog, err := audit.NewSQLite(s.ctx, s.cfg.Audit.Path)
	if err != nil {
		return fmt.Errorf("failed to open violation audit: %w", err)
	}
	s.audit = auditLog
	mylog.Info("Violation audit opened", "path", s.cfg.Audit.Path)

	// Configure routes and handlers
	s.Configure()

	if err := s.startWorkers(); err != nil {
		return err
	}

	s.mu.Lock()
	s.srv = &http.Server{
		Addr:    fmt.Sprintf(":%v", s.cfg.Srv.SafetyServicePort),
		Handler: s.mux,
	}
	s.mu.Unlock()

	mylog = mylog.WithGroup("details").With("port", s.cfg.Srv.SafetyServicePort)

	mylog.Info("server is running")
	return s.startHTTPServer()
}

// Stop provides a programmatic shutdown. Accepts a context for timeout control.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mylog.Info("Shutting down HTTP server...")

	if s.cancelWorkers != nil {
		s.cancelWorkers()
	}
	s.wg.Wait()

	if s.consumer != nil {
		_ = s.consumer.Stop(ctx)
	}
	if s.bridge != nil {
		_ = s.bridge.Stop(ctx)
	}

	if s.srv != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, WaitTime*time.Second)
		defer cancel()

		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.mylog.Error("Failed to shut down HTTP server gracefully", err)
			return fmt.Errorf("http server shutdown: %w", err)
		}
	}

	if s.audit != nil {
		if err := s.audit.Close(); err != nil {
			s.mylog.Error("Failed to close violation audit", err)
		}
	}

	if s.mb != nil {
		if err := s.mb.Close(); err != nil {
			s.mylog.Error("Failed to close message broker", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.mylog.Error("Failed to close database", err)
			return fmt.Errorf("db close: %w", err)
		}
		s.mylog.Info("Database closed")
	}

	s.mylog.Info("HTTP server shut down gracefully")
	return nil
}

func (s *Server) startHTTPServer() error {
	errCh := make(chan error, 1)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		} else {
			errCh <- nil
		}
	}()

	select {
	case <-s.ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// startWorkers launches the broker consumers, the expiry sweeper and, when
// enabled, the kafka telemetry ingest. All of them stop with workerCtx.
func (s *Server) startWorkers() error {
	if err := s.consumer.Run(); err != nil {
		return fmt.Errorf("failed to start trip events consumer: %w", err)
	}
	if err := s.bridge.Run(); err != nil {
		return fmt.Errorf("failed to start notification bridge: %w", err)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = s.sweeper.Run(s.workerCtx)
	}()

	if s.kafka != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.kafka.Run(s.workerCtx); err != nil {
				s.mylog.Error("kafka ingest stopped", err)
			}
		}()
	}

	return nil
}

// Configure builds the repository and service graph and registers the routes.
func (s *Server) Configure() {
	// Repositories
	strikeRepo := db.NewStrikeRepo(s.db)
	suspensionRepo := db.NewSuspensionRepo(s.db)
	appealRepo := db.NewAppealRepo(s.db)
	tripRepo := db.NewTripRepo(s.db)
	ratingRepo := db.NewRatingRepo(s.db)
	driverRepo := db.NewDriverRepo(s.db)
	profileRepo := db.NewProfileRepo(s.db)

	metrics := stats.NewRegistry()
	limits := speedlimits.New(*s.cfg.SpeedLimits, s.mylog)

	// services
	profileService := services.NewSafetyProfileService(s.mylog, profileRepo, strikeRepo, suspensionRepo, tripRepo, ratingRepo, driverRepo)
	suspensionService := services.NewSuspensionService(s.mylog, suspensionRepo, profileService, s.mb, metrics, s.cfg.Safety)
	strikeService := services.NewStrikeService(s.mylog, strikeRepo, driverRepo, suspensionService, profileService, s.mb, metrics, s.cfg.Safety)
	appealService := services.NewAppealService(s.mylog, appealRepo, strikeRepo, suspensionRepo, strikeService, suspensionService, profileService, s.mb, metrics, s.cfg.Safety)
	violationService := services.NewViolationService(s.mylog, s.audit, tripRepo, strikeService, metrics, s.cfg.Safety)
	telemetryService := services.NewTelemetryService(s.mylog, violationService, tripRepo, limits, metrics, s.cfg.Safety)
	gate := services.NewDriverGate(s.mylog, driverRepo, suspensionService)
	overviewService := services.NewOverviewService(s.mylog, strikeRepo, suspensionRepo, appealRepo, telemetryService, metrics)

	// handlers
	strikeHandler := handle.NewStrikeHandler(strikeService, s.mylog)
	suspensionHandler := handle.NewSuspensionHandler(suspensionService, s.mylog)
	appealHandler := handle.NewAppealHandler(appealService, s.mylog)
	profileHandler := handle.NewProfileHandler(profileService, s.mylog)
	driverHandler := handle.NewDriverHandler(gate, suspensionService, s.mylog)
	overviewHandler := handle.NewOverviewHandler(overviewService, s.mylog)

	eventHandler := ws.NewEventHandler(s.cfg.App.PublicJwtSecret, telemetryService)
	dispatcher := ws.NewDispatcher(s.ctx, s.mylog, *eventHandler)
	dispatcher.InitHandler()

	authMiddleware := middleware.NewAuthMiddleware(s.cfg.App.PublicJwtSecret)

	// background workers, started by startWorkers
	s.workerCtx, s.cancelWorkers = context.WithCancel(s.ctx)
	s.consumer = consumer.New(s.workerCtx, s.mylog, s.mb, telemetryService, tripRepo, profileService)
	s.bridge = consumer.NewNotificationBridge(s.workerCtx, s.mylog, s.mb, dispatcher)
	s.sweeper = services.NewSweeper(s.mylog, strikeService, suspensionService, metrics,
		time.Duration(s.cfg.Safety.SweepIntervalMin)*time.Minute)
	if s.cfg.Kafka.Enabled {
		s.kafka = telemetry.NewKafkaIngest(*s.cfg.Kafka, s.mylog, telemetryService)
	}

	// driver routes
	s.mux.Handle("POST /drivers/{driver_id}/online", authMiddleware.WrapDriver(driverHandler.GoOnline()))
	s.mux.Handle("POST /drivers/{driver_id}/offline", authMiddleware.WrapDriver(driverHandler.GoOffline()))
	s.mux.Handle("GET /drivers/{driver_id}/eligibility", authMiddleware.WrapDriver(driverHandler.GetEligibility()))
	s.mux.Handle("GET /drivers/{driver_id}/strikes", authMiddleware.WrapDriver(strikeHandler.ListStrikes()))
	s.mux.Handle("GET /drivers/{driver_id}/suspensions", authMiddleware.WrapDriver(suspensionHandler.ListSuspensions()))
	s.mux.Handle("POST /drivers/{driver_id}/appeals", authMiddleware.WrapDriver(appealHandler.SubmitAppeal()))
	s.mux.Handle("GET /drivers/{driver_id}/appeals", authMiddleware.WrapDriver(appealHandler.ListAppeals()))
	s.mux.Handle("GET /drivers/{driver_id}/safety-profile", authMiddleware.WrapDriver(profileHandler.GetProfile()))

	// riders rate drivers, so any authenticated account may post here
	s.mux.Handle("POST /drivers/{driver_id}/ratings", authMiddleware.Wrap(profileHandler.RateDriver()))

	// admin routes
	s.mux.Handle("POST /admin/strikes", authMiddleware.WrapAdmin(strikeHandler.IssueStrike()))
	s.mux.Handle("POST /admin/strikes/{strike_id}/remove", authMiddleware.WrapAdmin(strikeHandler.RemoveStrike()))
	s.mux.Handle("POST /admin/suspensions/{suspension_id}/lift", authMiddleware.WrapAdmin(suspensionHandler.LiftSuspension()))
	s.mux.Handle("GET /admin/appeals/pending", authMiddleware.WrapAdmin(appealHandler.ListPendingAppeals()))
	s.mux.Handle("POST /admin/appeals/{appeal_id}/review", authMiddleware.WrapAdmin(appealHandler.ReviewAppeal()))
	s.mux.Handle("GET /admin/safety/overview", authMiddleware.WrapAdmin(overviewHandler.GetOverview()))

	// websocket routes
	s.mux.Handle("/ws/drivers/{driver_id}", dispatcher.WsHandler())
}
