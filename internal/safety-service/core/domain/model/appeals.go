package model

import "time"

type AppealStatus string

const (
	AppealPending  AppealStatus = "PENDING"
	AppealApproved AppealStatus = "APPROVED"
	AppealDenied   AppealStatus = "DENIED"
)

// An appeal references a strike, a suspension, or both. Strike appeals are
// only accepted within the appeal window after issuance.
type Appeal struct {
	ID           string // uuid
	DriverId     string // uuid
	StrikeId     string // uuid, optional
	SuspensionId string // uuid, optional
	Reason       string
	Evidence     []string
	Status       AppealStatus
	SubmittedAt  time.Time
	ReviewedBy   string // uuid of the reviewing admin
	ReviewedAt   *time.Time
	Resolution   string
}
