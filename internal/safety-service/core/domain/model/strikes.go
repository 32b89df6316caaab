package model

import "time"

type StrikeType string

const (
	StrikeSpeedViolation  StrikeType = "SPEED_VIOLATION"
	StrikeRouteDeviation  StrikeType = "ROUTE_DEVIATION"
	StrikeEarlyCompletion StrikeType = "EARLY_COMPLETION"
	StrikeRiderReport     StrikeType = "RIDER_REPORT"
	StrikeNoResponse      StrikeType = "NO_RESPONSE"
)

type StrikeStatus string

const (
	StrikeActive   StrikeStatus = "ACTIVE"
	StrikeExpired  StrikeStatus = "EXPIRED"
	StrikeRemoved  StrikeStatus = "REMOVED"
	StrikeAppealed StrikeStatus = "APPEALED"
)

type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// Strike rows are never deleted. Enforcement reads filter on status ACTIVE
// and expires_at in the future; everything else is history.
type Strike struct {
	ID            string // uuid
	DriverId      string // uuid
	TripId        string // uuid, empty when issued outside a trip
	StrikeType    StrikeType
	Reason        string
	Severity      Severity
	ViolationId   string // uuid, set for SPEED_VIOLATION strikes
	Status        StrikeStatus
	IssuedAt      time.Time
	ExpiresAt     time.Time
	RemovalReason string
}
