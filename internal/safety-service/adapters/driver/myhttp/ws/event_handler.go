package ws

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"carpool-safety/internal/safety-service/core/domain/model"
	websocketdto "carpool-safety/internal/safety-service/core/domain/websocket_dto"
	"carpool-safety/internal/safety-service/core/ports"

	"github.com/golang-jwt/jwt"
)

const (
	// from driver
	EventAuth             = "auth"
	EventSpeedSample      = "speed_sample"
	EventWarningDismissed = "warning_dismissed"

	// to driver
	EventAlertUpdate  = "alert_update"
	EventSpeedWarning = "speed_warning"
	EventError        = "error"
)

type EventHandler struct {
	accessSecret string
	telemetry    ports.ITelemetryService
}

func NewEventHandler(accessSecret string, telemetry ports.ITelemetryService) *EventHandler {
	return &EventHandler{
		accessSecret: accessSecret,
		telemetry:    telemetry,
	}
}

func (eh *EventHandler) AuthHandler(client *Client, e websocketdto.Event) error {
	var msg websocketdto.AuthMessage
	if err := json.Unmarshal(e.Data, &msg); err != nil {
		return err
	}

	tokenString := strings.TrimPrefix(msg.Token, "Bearer ")
	tokenJWT, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return []byte(eh.accessSecret), nil
	})
	if err != nil {
		return err
	}
	if !tokenJWT.Valid {
		return fmt.Errorf("invalid token")
	}
	claims, ok := tokenJWT.Claims.(jwt.MapClaims)
	if !ok {
		return fmt.Errorf("cannot get claims")
	}
	userId, ok := claims["user_id"].(string)
	if !ok {
		return fmt.Errorf("cannot get user_id")
	}
	if client.driverId != userId {
		return fmt.Errorf("token does not match socket driver")
	}
	role, ok := claims["role"].(string)
	if !ok || role != "DRIVER" {
		return fmt.Errorf("driver token required")
	}
	exp, ok := claims["exp"].(float64)
	if !ok {
		return fmt.Errorf("no exp")
	}
	if time.Now().Unix() > int64(exp) {
		return fmt.Errorf("token expired")
	}
	client.markAuthed()

	// the app may announce its trip at connect time instead of waiting for
	// the trip.started event
	if msg.TripId != "" {
		if err := eh.telemetry.StartTrip(client.ctx, client.driverId, msg.TripId); err != nil {
			return err
		}
	}
	return nil
}

func (eh *EventHandler) SpeedSampleHandler(client *Client, e websocketdto.Event) error {
	var sample websocketdto.SpeedSample
	if err := json.Unmarshal(e.Data, &sample); err != nil {
		return err
	}

	recordedAt, err := time.Parse(time.RFC3339, sample.RecordedAt)
	if err != nil {
		recordedAt = time.Now().UTC()
	}

	alert, err := eh.telemetry.HandleSample(client.ctx, client.driverId, model.SpeedReadingInput{
		SpeedMps:   sample.SpeedMps,
		Latitude:   sample.Latitude,
		Longitude:  sample.Longitude,
		RecordedAt: recordedAt,
	})
	if err != nil {
		return err
	}

	update := websocketdto.AlertUpdate{
		Type:      EventAlertUpdate,
		Level:     string(alert.Level),
		SpeedMph:  alert.SpeedMph,
		LimitMph:  alert.LimitMph,
		ExcessMph: alert.ExcessMph,
	}
	payload, err := json.Marshal(update)
	if err != nil {
		return err
	}
	client.Send(websocketdto.Event{Type: EventAlertUpdate, Data: payload})

	if alert.Warn {
		warning := websocketdto.SpeedWarning{
			Type:      EventSpeedWarning,
			Message:   fmt.Sprintf("You are %.0f mph over the posted limit. Please slow down.", alert.ExcessMph),
			SpeedMph:  alert.SpeedMph,
			LimitMph:  alert.LimitMph,
			ExcessMph: alert.ExcessMph,
		}
		payload, err := json.Marshal(warning)
		if err != nil {
			return err
		}
		client.Send(websocketdto.Event{Type: EventSpeedWarning, Data: payload})
	}
	return nil
}

func (eh *EventHandler) WarningDismissedHandler(client *Client, e websocketdto.Event) error {
	eh.telemetry.DismissWarning(client.driverId)
	return nil
}
