package model

type DriverStatus string

const (
	DriverOffline   DriverStatus = "OFFLINE"
	DriverAvailable DriverStatus = "AVAILABLE"
	DriverBusy      DriverStatus = "BUSY"
)

// Driver is the enforcement view of a driver account. CurrentSuspensionId is
// set while an ACTIVE suspension exists and cleared when it is lifted.
type Driver struct {
	ID                  string // uuid, equals the user id
	Status              DriverStatus
	Rating              float64
	CurrentSuspensionId string // uuid, empty when not suspended
}

// Eligibility is the answer to "may this driver go online right now".
type Eligibility struct {
	DriverId   string
	Allowed    bool
	Reason     string
	Suspension *Suspension
}
