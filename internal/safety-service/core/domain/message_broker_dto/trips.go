package messagebrokerdto

// Trip lifecycle events ← trip_topic exchange ← trip.{started,completed,cancelled}
type TripEvent struct {
	TripId    string `json:"trip_id"`
	DriverId  string `json:"driver_id"`
	EventType string `json:"event_type"`
	Timestamp string `json:"timestamp"`
}

// Driver notifications → notification_topic exchange → notification.driver.{driver_id}
type DriverNotification struct {
	DriverId      string         `json:"driver_id"`
	Kind          string         `json:"kind"`
	Title         string         `json:"title"`
	Body          string         `json:"body"`
	CorrelationId string         `json:"correlation_id"`
	Payload       map[string]any `json:"payload,omitempty"`
}

// Telemetry samples from the location pipeline ← kafka driver.telemetry topic
type TelemetrySample struct {
	DriverId   string  `json:"driver_id"`
	TripId     string  `json:"trip_id"`
	SpeedMps   float64 `json:"speed_mps"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	RecordedAt string  `json:"recorded_at"`
}
