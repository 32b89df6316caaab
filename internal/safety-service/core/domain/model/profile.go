package model

import "time"

type ProfileSuspensionState string

const (
	ProfileNotSuspended  ProfileSuspensionState = "NONE"
	ProfileTempSuspended ProfileSuspensionState = "TEMPORARY"
	ProfilePermSuspended ProfileSuspensionState = "PERMANENT"
)

// DriverSafetyProfile is derived from strikes, suspensions, ratings and trip
// history. It is recomputed after every enforcement change; the source tables
// stay authoritative.
type DriverSafetyProfile struct {
	DriverId             string // uuid
	SafetyRating         float64
	ActiveStrikes        int
	SuspensionStatus     ProfileSuspensionState
	RouteAdherenceScore  float64
	SpeedComplianceScore float64
	SafeTripsStreak      int
	UpdatedAt            time.Time
}
