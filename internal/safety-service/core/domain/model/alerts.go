package model

type AlertLevel string

const (
	AlertNormal  AlertLevel = "NORMAL"
	AlertCaution AlertLevel = "CAUTION"
	AlertWarning AlertLevel = "WARNING"
	AlertDanger  AlertLevel = "DANGER"
)

// SpeedAlert is what the monitor reports back for a processed sample. Warn is
// true only for the single sample that should surface a warning to the driver.
type SpeedAlert struct {
	Level       AlertLevel
	SpeedMph    float64
	LimitMph    float64
	ExcessMph   float64
	Warn        bool
	EpisodeOpen bool
}
