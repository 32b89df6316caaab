package stats

import "github.com/zoobzio/metricz"

// Counter keys for the safety engine. The admin overview endpoint reports
// these verbatim, so renaming a key is an API change.
const (
	SamplesProcessed   = metricz.Key("telemetry.samples.processed")
	SessionsStarted    = metricz.Key("telemetry.sessions.started")
	ViolationsRecorded = metricz.Key("violations.recorded")
	AuditFailures      = metricz.Key("violations.audit.failures")
	StrikesIssued      = metricz.Key("strikes.issued")
	StrikesExpired     = metricz.Key("strikes.expired")
	SuspensionsIssued  = metricz.Key("suspensions.issued")
	SuspensionsLifted  = metricz.Key("suspensions.lifted")
	SuspensionsExpired = metricz.Key("suspensions.expired")
	AppealsSubmitted   = metricz.Key("appeals.submitted")
	AppealsApproved    = metricz.Key("appeals.approved")
	AppealsDenied      = metricz.Key("appeals.denied")
	NotifyFailures     = metricz.Key("notifications.failures")
	SweepRuns          = metricz.Key("sweeper.runs")
)

// Keys lists every counter the engine maintains, in reporting order.
var Keys = []metricz.Key{
	SamplesProcessed,
	SessionsStarted,
	ViolationsRecorded,
	AuditFailures,
	StrikesIssued,
	StrikesExpired,
	SuspensionsIssued,
	SuspensionsLifted,
	SuspensionsExpired,
	AppealsSubmitted,
	AppealsApproved,
	AppealsDenied,
	NotifyFailures,
	SweepRuns,
}

// NewRegistry returns a registry with every engine counter pre-registered.
func NewRegistry() *metricz.Registry {
	m := metricz.New()
	for _, k := range Keys {
		m.Counter(k)
	}
	return m
}
