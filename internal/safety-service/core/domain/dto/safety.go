package dto

import "time"

// API Transfer data

type IssueStrikeRequestDto struct {
	DriverId   string `json:"driver_id"`
	TripId     string `json:"trip_id,omitempty"`
	StrikeType string `json:"strike_type"`
	Reason     string `json:"reason"`
	Severity   string `json:"severity,omitempty"`
}

type StrikeResponseDto struct {
	StrikeId    string    `json:"strike_id"`
	DriverId    string    `json:"driver_id"`
	TripId      string    `json:"trip_id,omitempty"`
	StrikeType  string    `json:"strike_type"`
	Reason      string    `json:"reason"`
	Severity    string    `json:"severity"`
	ViolationId string    `json:"violation_id,omitempty"`
	Status      string    `json:"status"`
	IssuedAt    time.Time `json:"issued_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type SubmitAppealRequestDto struct {
	StrikeId     string   `json:"strike_id,omitempty"`
	SuspensionId string   `json:"suspension_id,omitempty"`
	Reason       string   `json:"reason"`
	Evidence     []string `json:"evidence,omitempty"`
}

type ReviewAppealRequestDto struct {
	Decision   string `json:"decision"`
	Resolution string `json:"resolution"`
}

type AppealResponseDto struct {
	AppealId     string     `json:"appeal_id"`
	DriverId     string     `json:"driver_id"`
	StrikeId     string     `json:"strike_id,omitempty"`
	SuspensionId string     `json:"suspension_id,omitempty"`
	Reason       string     `json:"reason"`
	Evidence     []string   `json:"evidence,omitempty"`
	Status       string     `json:"status"`
	SubmittedAt  time.Time  `json:"submitted_at"`
	ReviewedBy   string     `json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time `json:"reviewed_at,omitempty"`
	Resolution   string     `json:"resolution,omitempty"`
}

type SuspensionResponseDto struct {
	SuspensionId   string     `json:"suspension_id"`
	DriverId       string     `json:"driver_id"`
	SuspensionType string     `json:"suspension_type"`
	Reason         string     `json:"reason"`
	StrikeIds      []string   `json:"strike_ids"`
	Status         string     `json:"status"`
	StartedAt      time.Time  `json:"started_at"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	LiftedAt       *time.Time `json:"lifted_at,omitempty"`
	LiftReason     string     `json:"lift_reason,omitempty"`
}

type LiftSuspensionRequestDto struct {
	Reason string `json:"reason"`
}

type RemoveStrikeRequestDto struct {
	Reason string `json:"reason"`
}

type EligibilityResponseDto struct {
	DriverId   string                 `json:"driver_id"`
	Allowed    bool                   `json:"allowed"`
	Reason     string                 `json:"reason,omitempty"`
	Suspension *SuspensionResponseDto `json:"suspension,omitempty"`
}

type SafetyProfileResponseDto struct {
	DriverId             string    `json:"driver_id"`
	SafetyRating         float64   `json:"safety_rating"`
	ActiveStrikes        int       `json:"active_strikes"`
	SuspensionStatus     string    `json:"suspension_status"`
	RouteAdherenceScore  float64   `json:"route_adherence_score"`
	SpeedComplianceScore float64   `json:"speed_compliance_score"`
	SafeTripsStreak      int       `json:"safe_trips_streak"`
	UpdatedAt            time.Time `json:"updated_at"`
}

type RateDriverRequestDto struct {
	TripId  string `json:"trip_id,omitempty"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment,omitempty"`
}

type OverviewResponseDto struct {
	ActiveSuspensions  int            `json:"active_suspensions"`
	PendingAppeals     int            `json:"pending_appeals"`
	StrikesIssuedToday int            `json:"strikes_issued_today"`
	ActiveSessions     int            `json:"active_sessions"`
	Counters           map[string]int `json:"counters"`
}
