package safety

import (
	"time"
)

// Class is the limiter's per-channel classification.
type Class string

const (
	ClassOK               Class = "ok"
	ClassThermallyLimited Class = "thermally-limited"
	ClassStalled          Class = "stalled"
)

// Limiter classifies per-channel current draw as OK, thermally limited, or
// stalled. It is pure computation: no goroutines, no clocks of its own.
// Debounce state advances only when the owner feeds it samples, which the
// coordinator does once per control-loop tick (and once more during an
// emergency-stop reset). The limiter is not safe for concurrent use; the
// coordinator serializes access under its lock.
type Limiter struct {
	stallCurrent   float64
	stallDebounce  time.Duration
	thermalCurrent float64
	thermalTau     time.Duration
	dutyFloor      float64

	channels map[int]*channelState
}

type channelState struct {
	lastAmps         float64
	overCurrentSince time.Time // zero when not over the stall threshold
	confirmedStall   bool
	dutyFactor       float64
}

// NewLimiter creates a limiter from the configured thresholds.
func NewLimiter(stallCurrent float64, stallDebounce time.Duration, thermalCurrent float64, thermalTau time.Duration, dutyFloor float64) *Limiter {
	return &Limiter{
		stallCurrent:   stallCurrent,
		stallDebounce:  stallDebounce,
		thermalCurrent: thermalCurrent,
		thermalTau:     thermalTau,
		dutyFloor:      dutyFloor,
		channels:       make(map[int]*channelState),
	}
}

// Sample feeds one current reading for a channel. A stall becomes confirmed
// only once the over-current condition has persisted for the full debounce
// window; a confirmed stall latches until ClearStall. The thermal duty
// factor derates while draw exceeds the thermal threshold and recovers while
// it stays below.
func (l *Limiter) Sample(channel int, amps float64, now time.Time, dt time.Duration) {
	st := l.state(channel)
	st.lastAmps = amps

	// Stall detection with debounce.
	if amps >= l.stallCurrent {
		if st.overCurrentSince.IsZero() {
			st.overCurrentSince = now
		} else if now.Sub(st.overCurrentSince) >= l.stallDebounce {
			st.confirmedStall = true
		}
	} else {
		st.overCurrentSince = time.Time{}
	}

	// Thermal derating.
	if dt <= 0 {
		return
	}
	frac := float64(dt) / float64(l.thermalTau)
	if amps > l.thermalCurrent {
		st.dutyFactor -= (amps/l.thermalCurrent - 1) * frac
	} else {
		st.dutyFactor += (1 - amps/l.thermalCurrent) * frac
	}
	if st.dutyFactor < 0 {
		st.dutyFactor = 0
	}
	if st.dutyFactor > 1 {
		st.dutyFactor = 1
	}
}

// Classify returns the channel's current classification. A confirmed stall
// dominates thermal limiting.
func (l *Limiter) Classify(channel int) Class {
	st, ok := l.channels[channel]
	if !ok {
		return ClassOK
	}
	if st.confirmedStall {
		return ClassStalled
	}
	if st.dutyFactor < 1 {
		return ClassThermallyLimited
	}
	return ClassOK
}

// DutyFactor returns the channel's thermal duty factor in [0, 1].
// Unobserved channels report 1.
func (l *Limiter) DutyFactor(channel int) float64 {
	if st, ok := l.channels[channel]; ok {
		return st.dutyFactor
	}
	return 1
}

// LastCurrent returns the most recent sampled draw for a channel.
func (l *Limiter) LastCurrent(channel int) float64 {
	if st, ok := l.channels[channel]; ok {
		return st.lastAmps
	}
	return 0
}

// ConfirmedStalls returns every channel with a latched stall.
func (l *Limiter) ConfirmedStalls() []int {
	var out []int
	for ch, st := range l.channels {
		if st.confirmedStall {
			out = append(out, ch)
		}
	}
	return out
}

// BelowDutyFloor returns every channel derated under the duty cycle floor.
func (l *Limiter) BelowDutyFloor() []int {
	var out []int
	for ch, st := range l.channels {
		if st.dutyFactor < l.dutyFloor {
			out = append(out, ch)
		}
	}
	return out
}

// ThermallyLimited reports whether any channel is currently derated at all.
func (l *Limiter) ThermallyLimited() bool {
	for _, st := range l.channels {
		if !st.confirmedStall && st.dutyFactor < 1 {
			return true
		}
	}
	return false
}

// ClearStall drops a channel's latched stall and restarts its debounce.
func (l *Limiter) ClearStall(channel int) {
	if st, ok := l.channels[channel]; ok {
		st.confirmedStall = false
		st.overCurrentSince = time.Time{}
	}
}

// Observed returns every channel the limiter has seen a sample for.
func (l *Limiter) Observed() []int {
	out := make([]int, 0, len(l.channels))
	for ch := range l.channels {
		out = append(out, ch)
	}
	return out
}

func (l *Limiter) state(channel int) *channelState {
	st, ok := l.channels[channel]
	if !ok {
		st = &channelState{dutyFactor: 1}
		l.channels[channel] = st
	}
	return st
}
