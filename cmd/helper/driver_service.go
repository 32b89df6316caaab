package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"time"

	websocketdto "carpool-safety/internal/safety-service/core/domain/websocket_dto"

	"github.com/google/uuid"
)

var errSuspended = errors.New("driver is suspended")

// DriverService simulates one driver on a trip: it registers through the auth
// service, goes online, opens the telemetry socket and streams speed samples
// that cruise near the limit with a speeding burst in the middle.
type DriverService struct {
	idx        int
	creds      DriverCredentials
	driverID   string
	jwtToken   string
	tripID     string
	currentLat float64
	currentLng float64
	heading    float64
	httpClient *HTTPClient
	wsClient   *WebSocketClient
	logger     *Logger
	ctx        context.Context
}

func NewDriverService(ctx context.Context, idx int, logger *Logger) *DriverService {
	return &DriverService{
		idx:        idx,
		creds:      credentialsFor(idx),
		tripID:     uuid.NewString(),
		currentLat: 40.7128 + float64(idx)*0.02,
		currentLng: -74.0060,
		heading:    rand.Float64() * 2 * math.Pi,
		httpClient: NewHTTPClient(logger),
		wsClient:   NewWebSocketClient(ctx, logger),
		logger:     logger,
		ctx:        ctx,
	}
}

// Run walks the whole driver lifecycle once and returns when the trip is over
// or the context is cancelled. A suspended driver is not an error.
func (d *DriverService) Run(tripDuration time.Duration) error {
	if err := d.Register(); err != nil {
		return err
	}

	if err := d.SetOnline(); err != nil {
		if errors.Is(err, errSuspended) {
			return nil
		}
		return err
	}
	defer d.SetOffline()

	time.Sleep(InitialConnectDelay)

	wsURL := fmt.Sprintf(WSDriverURL, d.driverID)
	if err := d.wsClient.Connect(wsURL); err != nil {
		return err
	}
	defer d.wsClient.Close()

	if err := d.Authenticate(); err != nil {
		return err
	}

	go func() {
		if err := d.wsClient.ReadEvents(d.handleEvent); err != nil {
			d.logger.WebSocket("read pump stopped: %v", err)
		}
	}()

	d.drive(tripDuration)
	d.logger.Info("trip %s finished", d.tripID)
	return nil
}

func (d *DriverService) Register() error {
	req := DriverRegistrationRequest{
		Username:      d.creds.Username,
		Email:         d.creds.Email,
		Password:      d.creds.Password,
		LicenseNumber: d.creds.LicenseNumber,
		VehicleType:   d.creds.VehicleType,
		VehicleAttrs: Vehicle{
			Make:  "Toyota",
			Model: "Prius",
			Color: "Silver",
			Plate: fmt.Sprintf("SIM-%03d", d.idx),
			Year:  2021,
		},
	}

	status, data, err := d.httpClient.DoRequest("POST", AuthBaseURL+RegisterPath, req, map[string]string{
		"Content-Type": "application/json",
	})
	if err != nil {
		return fmt.Errorf("registering driver: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("registering driver: status %d: %s", status, data)
	}

	var resp RegistrationResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return fmt.Errorf("unmarshaling registration response: %w", err)
	}

	d.driverID = resp.UserID
	d.jwtToken = resp.JWT
	d.logger.HTTP("registered %s as driver %s", d.creds.Username, d.driverID)
	return nil
}

func (d *DriverService) SetOnline() error {
	url := fmt.Sprintf(SafetyBaseURL+DriverOnlinePath, d.driverID)
	status, data, err := d.httpClient.DoRequest("POST", url, nil, d.authHeaders())
	if err != nil {
		return fmt.Errorf("setting driver online: %w", err)
	}

	if status == http.StatusForbidden {
		var elig EligibilityResponse
		if err := json.Unmarshal(data, &elig); err == nil && elig.Reason != "" {
			d.logger.Warn("driver blocked from going online: %s", elig.Reason)
		}
		return errSuspended
	}
	if status != http.StatusAccepted {
		return fmt.Errorf("setting driver online: status %d: %s", status, data)
	}

	d.logger.HTTP("driver online")
	return nil
}

func (d *DriverService) SetOffline() {
	url := fmt.Sprintf(SafetyBaseURL+DriverOfflinePath, d.driverID)
	if _, _, err := d.httpClient.DoRequest("POST", url, nil, d.authHeaders()); err != nil {
		d.logger.Error("setting driver offline: %v", err)
		return
	}
	d.logger.HTTP("driver offline")
}

func (d *DriverService) Authenticate() error {
	msg := websocketdto.AuthMessage{
		Token:  d.jwtToken,
		TripId: d.tripID,
	}
	if err := d.wsClient.SendEvent("auth", msg); err != nil {
		return fmt.Errorf("authenticating socket: %w", err)
	}
	d.logger.WebSocket("authenticated, trip %s", d.tripID)
	return nil
}

// drive streams one speed sample per tick. The profile cruises a touch under
// an urban limit, then bursts well over it for a stretch in the middle of the
// trip, which is enough to walk the alert ladder and open an episode.
func (d *DriverService) drive(tripDuration time.Duration) {
	ticker := time.NewTicker(SampleInterval)
	defer ticker.Stop()

	start := time.Now()
	for {
		select {
		case <-d.ctx.Done():
			d.logger.WebSocket("drive loop stopped (context canceled)")
			return
		case now := <-ticker.C:
			elapsed := now.Sub(start)
			if elapsed >= tripDuration {
				return
			}

			speedMps := d.speedAt(elapsed)
			d.advance(speedMps)

			sample := websocketdto.SpeedSample{
				SpeedMps:   speedMps,
				Latitude:   d.currentLat,
				Longitude:  d.currentLng,
				RecordedAt: now.UTC().Format(time.RFC3339),
			}
			if err := d.wsClient.SendEvent("speed_sample", sample); err != nil {
				d.logger.Error("sending speed sample: %v", err)
				return
			}
		}
	}
}

// speedAt returns meters per second for the elapsed trip time. The profile
// cruises at ~22 mph with a speeding stretch of ~45 mph between 30s and 75s.
func (d *DriverService) speedAt(elapsed time.Duration) float64 {
	jitter := (rand.Float64() - 0.5) * 1.5
	switch {
	case elapsed < 30*time.Second:
		return 10 + jitter
	case elapsed < 75*time.Second:
		return 20 + jitter
	default:
		return 10 + jitter
	}
}

// advance moves the simulated position along the current heading.
func (d *DriverService) advance(speedMps float64) {
	step := speedMps * SampleInterval.Seconds()
	d.currentLat += step * math.Cos(d.heading) / 111_320
	d.currentLng += step * math.Sin(d.heading) / (111_320 * math.Cos(d.currentLat*math.Pi/180))
}

func (d *DriverService) handleEvent(event websocketdto.Event) error {
	switch event.Type {
	case "alert_update":
		var alert websocketdto.AlertUpdate
		if err := json.Unmarshal(event.Data, &alert); err != nil {
			return err
		}
		if alert.Level != "NORMAL" {
			d.logger.WebSocket("alert %s: %.1f mph in a %.0f zone", alert.Level, alert.SpeedMph, alert.LimitMph)
		}
	case "speed_warning":
		var warning websocketdto.SpeedWarning
		if err := json.Unmarshal(event.Data, &warning); err != nil {
			return err
		}
		d.logger.Warn("%s", warning.Message)
		time.AfterFunc(DismissDelay, d.dismissWarning)
	case "notification":
		var note websocketdto.Notification
		if err := json.Unmarshal(event.Data, &note); err != nil {
			return err
		}
		d.logger.Info("notice [%s] %s: %s", note.Kind, note.Title, note.Body)
	case "error":
		var errMsg websocketdto.ErrorMessage
		if err := json.Unmarshal(event.Data, &errMsg); err != nil {
			return err
		}
		d.logger.Error("server error: %s", errMsg.Message)
	default:
		d.logger.WebSocket("unhandled event type %q", event.Type)
	}
	return nil
}

func (d *DriverService) dismissWarning() {
	if err := d.wsClient.SendEvent("warning_dismissed", websocketdto.WarningDismissed{TripId: d.tripID}); err != nil {
		d.logger.Error("dismissing warning: %v", err)
		return
	}
	d.logger.WebSocket("warning dismissed")
}

func (d *DriverService) authHeaders() map[string]string {
	return map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer " + d.jwtToken,
	}
}
