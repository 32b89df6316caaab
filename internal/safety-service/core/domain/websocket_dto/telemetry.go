package websocketdto

import "encoding/json"

type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type AuthMessage struct {
	Token  string `json:"token"`
	TripId string `json:"trip_id"`
}

// From Driver - telemetry sample:
type SpeedSample struct {
	SpeedMps   float64 `json:"speed_mps"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	RecordedAt string  `json:"recorded_at"`
}

// From Driver - warning acknowledgement:
type WarningDismissed struct {
	TripId string `json:"trip_id"`
}

// To Driver - current alert state, pushed after every sample:
type AlertUpdate struct {
	Type      string  `json:"type"`
	Level     string  `json:"level"`
	SpeedMph  float64 `json:"speed_mph"`
	LimitMph  float64 `json:"limit_mph"`
	ExcessMph float64 `json:"excess_mph"`
}

// To Driver - one per violation episode:
type SpeedWarning struct {
	Type      string  `json:"type"`
	Message   string  `json:"message"`
	SpeedMph  float64 `json:"speed_mph"`
	LimitMph  float64 `json:"limit_mph"`
	ExcessMph float64 `json:"excess_mph"`
}

// To Driver - enforcement notices relayed from the broker:
type Notification struct {
	Type    string         `json:"type"`
	Kind    string         `json:"kind"`
	Title   string         `json:"title"`
	Body    string         `json:"body"`
	Payload map[string]any `json:"payload,omitempty"`
}

// To Driver - connection level errors:
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
