package robot

import (
	"time"

	"github.com/robot-control/roc/internal/state"
)

// Diagnostics aggregates a read-only snapshot for operators: operational
// state, the full safety status, the last orientation sample, and loop
// timing statistics.
func (o *Orchestrator) Diagnostics() map[string]interface{} {
	st := o.safety.Status()

	o.mu.Lock()
	defer o.mu.Unlock()

	channels := make(map[int]map[string]interface{}, len(st.Channels))
	for ch, cs := range st.Channels {
		channels[ch] = map[string]interface{}{
			"class":       string(cs.Class),
			"dutyFactor":  cs.DutyFactor,
			"currentAmps": cs.CurrentAmps,
			"inFlight":    cs.InFlight,
		}
	}

	diag := map[string]interface{}{
		"state":       string(o.state),
		"operational": o.state == state.StateReady && st.Safe,
		"safety": map[string]interface{}{
			"safe":            st.Safe,
			"estop":           string(st.EStop),
			"estopSource":     st.EStopSource,
			"watchdogHealthy": st.WatchdogHealthy,
			"lastFaultSource": st.LastFaultSource,
			"channels":        channels,
		},
		"loop": map[string]interface{}{
			"periodMs":   float64(o.cfg.LoopPeriod) / float64(time.Millisecond),
			"iterations": o.iterations,
			"overruns":   o.overruns,
			"lastStepMs": float64(o.lastStep) / float64(time.Millisecond),
			"maxStepMs":  float64(o.maxStep) / float64(time.Millisecond),
		},
	}

	if !o.orientationAt.IsZero() {
		diag["orientation"] = map[string]interface{}{
			"rollDeg":  o.orientation.Roll,
			"pitchDeg": o.orientation.Pitch,
			"yawDeg":   o.orientation.Yaw,
			"sampledAt": o.orientationAt.Format(time.RFC3339Nano),
		}
	}

	return diag
}
