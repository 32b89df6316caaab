package model

import "time"

// SpeedReadingInput is a raw telemetry sample as it arrives from the driver
// app or the location pipeline. Speeds are metric at this point.
type SpeedReadingInput struct {
	TripId     string
	SpeedMps   float64
	Latitude   float64
	Longitude  float64
	RecordedAt time.Time
}

// SpeedReading is one processed telemetry sample inside a violation episode.
// Readings live in memory until the episode hands a batch to the recorder.
type SpeedReading struct {
	SpeedMph   float64
	LimitMph   float64
	ExcessMph  float64
	Latitude   float64
	Longitude  float64
	RecordedAt time.Time
}

// SpeedViolation is the audit record built from a batch of readings. It is
// append-only evidence; enforcement state lives in strikes and suspensions.
type SpeedViolation struct {
	ID          string // uuid
	DriverId    string // uuid
	TripId      string // uuid
	Severity    Severity
	SampleCount int
	PeakExcess  float64
	AvgSpeedMph float64
	LimitMph    float64
	StartedAt   time.Time
	RecordedAt  time.Time
	Readings    []SpeedReading
}
