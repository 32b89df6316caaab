package myerrors

import "errors"

var (
	ErrDBConnClosed    = errors.New("failed to connect to db")
	ErrDBConnClosedMsg = errors.New("internal error, please try again later")

	ErrDriverNotFound     = errors.New("driver not found")
	ErrStrikeNotFound     = errors.New("strike not found")
	ErrSuspensionNotFound = errors.New("suspension not found")
	ErrAppealNotFound     = errors.New("appeal not found")
	ErrTripNotFound       = errors.New("trip not found")
	ErrProfileNotFound    = errors.New("safety profile not found")

	ErrStrikeNotActive      = errors.New("strike is not in the expected status")
	ErrSuspensionNotActive  = errors.New("suspension is not active")
	ErrAppealNotPending     = errors.New("appeal has already been reviewed")
	ErrAppealWindowExpired  = errors.New("appeal window has expired")
	ErrAppealAlreadyPending = errors.New("an appeal is already pending for this strike")
	ErrAppealMissingRef     = errors.New("appeal must reference a strike or a suspension")
	ErrAppealNotOwned       = errors.New("appeal target belongs to another driver")
	ErrDriverSuspended      = errors.New("driver is suspended")
	ErrNoActiveTrip         = errors.New("no active telemetry session for driver")
	ErrTripAlreadyActive    = errors.New("telemetry session already open for driver")

	ErrFieldIsEmpty    = errors.New("field is empty")
	ErrInvalidSeverity = errors.New("invalid severity")
	ErrInvalidType     = errors.New("invalid type")
	ErrInvalidDecision = errors.New("decision must be APPROVED or DENIED")
	ErrInvalidRating   = errors.New("rating must be between 1 and 5")
)
