// Package state implements the operational state machine for the robot
// container. The machine is a pure transition table: validation has no side
// effects and no locking, so it is callable from any goroutine. The caller
// owns the current state value and its mutual exclusion.
package state

import (
	"github.com/robot-control/roc/internal/fault"
)

// State is the operational state of the orchestrator.
type State string

const (
	StateInit     State = "init"
	StateReady    State = "ready"
	StateEStopped State = "estopped"
)

// Event drives a transition between operational states.
type Event string

const (
	EventStart Event = "start"
	EventTrip  Event = "trip"
	EventReset Event = "reset"
)

// Transitions is the complete transition table. Any (state, event) pair
// absent from the table is an invalid transition and fails validation;
// there are no silent no-ops.
var Transitions = map[State]map[Event]State{
	StateInit: {
		EventStart: StateReady,
	},
	StateReady: {
		EventTrip: StateEStopped,
	},
	StateEStopped: {
		EventReset: StateReady,
	},
}

// ValidateTransition returns the successor state for (current, event), or a
// STATE_ERROR if the pair is not in the transition table.
func ValidateTransition(current State, event Event) (State, error) {
	if next, ok := Transitions[current][event]; ok {
		return next, nil
	}
	return current, &fault.StateError{State: string(current), Event: string(event)}
}

// ValidateReset validates the reset transition out of the emergency-stopped
// state. The transition is only legal from StateEStopped; on top of that it
// requires the safety subsystem to report safe-to-resume. An illegal request
// is a STATE_ERROR; a legal request made while unsafe is a SAFETY_VIOLATION,
// preserving the distinction between "illegal" and "not yet safe".
func ValidateReset(current State, safeToResume bool) (State, error) {
	next, err := ValidateTransition(current, EventReset)
	if err != nil {
		return current, err
	}
	if !safeToResume {
		return current, &fault.SafetyViolation{Channel: -1, Reason: "safety subsystem not safe to resume"}
	}
	return next, nil
}
