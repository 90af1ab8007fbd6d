// Package metrics defines the Prometheus collectors instrumenting the
// control loop and the safety trip path.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the container's collectors. A nil *Metrics is valid and
// records nothing, so instrumentation stays optional.
type Metrics struct {
	StepDuration    prometheus.Histogram
	LoopOverruns    prometheus.Counter
	EStopTrips      *prometheus.CounterVec
	BlockedCommands prometheus.Counter
	WatchdogFeeds   prometheus.Counter
}

// New creates and registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		StepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "roc_step_duration_seconds",
			Help:    "Duration of one control loop step",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		LoopOverruns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roc_loop_overruns_total",
			Help: "Control loop iterations that exceeded the loop period",
		}),
		EStopTrips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roc_estop_trips_total",
			Help: "Emergency stop trips by source",
		}, []string{"source"}),
		BlockedCommands: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roc_blocked_commands_total",
			Help: "Actuator commands rejected by a safety condition",
		}),
		WatchdogFeeds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roc_watchdog_feeds_total",
			Help: "Successful watchdog feeds",
		}),
	}

	reg.MustRegister(m.StepDuration, m.LoopOverruns, m.EStopTrips, m.BlockedCommands, m.WatchdogFeeds)
	return m
}

// ObserveStep records a step duration in seconds.
func (m *Metrics) ObserveStep(seconds float64) {
	if m == nil {
		return
	}
	m.StepDuration.Observe(seconds)
}

// IncOverrun counts a loop overrun.
func (m *Metrics) IncOverrun() {
	if m == nil {
		return
	}
	m.LoopOverruns.Inc()
}

// IncTrip counts an emergency stop trip attributed to source.
func (m *Metrics) IncTrip(source string) {
	if m == nil {
		return
	}
	m.EStopTrips.WithLabelValues(source).Inc()
}

// IncBlocked counts a command rejected by a safety condition.
func (m *Metrics) IncBlocked() {
	if m == nil {
		return
	}
	m.BlockedCommands.Inc()
}

// IncFeed counts a successful watchdog feed.
func (m *Metrics) IncFeed() {
	if m == nil {
		return
	}
	m.WatchdogFeeds.Inc()
}
