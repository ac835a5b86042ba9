package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Fetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "portal", Subsystem: "sync", Name: "fetches_total", Help: "Remote record fetches by result."},
		[]string{"result"},
	)
	Writes = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "portal", Subsystem: "sync", Name: "writes_total", Help: "Profile writes by result."},
		[]string{"result"},
	)
	RealtimeEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "portal", Subsystem: "sync", Name: "realtime_events_total", Help: "Realtime change events by type."},
		[]string{"type"},
	)
	Teardowns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "portal", Subsystem: "session", Name: "teardowns_total", Help: "Session teardowns by reason."},
		[]string{"reason"},
	)
	TeardownStepFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "portal", Subsystem: "session", Name: "teardown_step_failures_total", Help: "Failed teardown steps by step name."},
		[]string{"step"},
	)
)

// RegisterCollectors registers every engine collector with reg.
func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(Fetches)
	reg.MustRegister(Writes)
	reg.MustRegister(RealtimeEvents)
	reg.MustRegister(Teardowns)
	reg.MustRegister(TeardownStepFailures)
}
