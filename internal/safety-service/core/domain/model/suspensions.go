package model

import "time"

type SuspensionType string

const (
	SuspensionTemporary SuspensionType = "TEMPORARY"
	SuspensionPermanent SuspensionType = "PERMANENT"
)

type SuspensionStatus string

const (
	SuspensionActive  SuspensionStatus = "ACTIVE"
	SuspensionLifted  SuspensionStatus = "LIFTED"
	SuspensionExpired SuspensionStatus = "EXPIRED"
)

// A driver holds at most one ACTIVE suspension. ExpiresAt is nil for
// PERMANENT suspensions.
type Suspension struct {
	ID             string // uuid
	DriverId       string // uuid
	SuspensionType SuspensionType
	Reason         string
	StrikeIds      []string
	Status         SuspensionStatus
	StartedAt      time.Time
	ExpiresAt      *time.Time
	LiftedAt       *time.Time
	LiftReason     string
}
