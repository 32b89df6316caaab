package model

import "time"

type TripStatus string

const (
	TripInProgress TripStatus = "IN_PROGRESS"
	TripCompleted  TripStatus = "COMPLETED"
	TripCancelled  TripStatus = "CANCELLED"
)

// Trip rows mirror the ride lifecycle events published by the trip service.
// The violation flags are set by the safety engine as incidents are recorded.
type Trip struct {
	ID                string // uuid
	DriverId          string // uuid
	Status            TripStatus
	StartedAt         *time.Time
	CompletedAt       *time.Time
	HadSpeedViolation bool
	HadRouteDeviation bool
}

type DriverRating struct {
	ID        string // uuid
	DriverId  string // uuid
	TripId    string // uuid, optional
	Rating    int    // 1..5
	Comment   string
	CreatedAt time.Time
}
