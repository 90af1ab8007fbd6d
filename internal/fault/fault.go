// Package fault defines the normalized error taxonomy shared across the
// container: STATE_ERROR, SAFETY_VIOLATION, HARDWARE_FAULT.
//
// Expected failure modes (hardware not ready, reset not yet safe) are
// reported as booleans at the API surface; these kinds cover programmer
// errors and driver-boundary failures only.
package fault

import (
	"errors"
	"fmt"
)

// Normalized container error kinds.
var (
	ErrState    = errors.New("STATE_ERROR")
	ErrSafety   = errors.New("SAFETY_VIOLATION")
	ErrHardware = errors.New("HARDWARE_FAULT")
)

// StateError reports an illegal state-machine transition attempt.
type StateError struct {
	State string // current operational state
	Event string // attempted event
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%v: event %q not allowed in state %q", ErrState, e.Event, e.State)
}

func (e *StateError) Unwrap() error {
	return ErrState
}

// SafetyViolation reports a request blocked by an active safety condition.
// Channel is -1 when the violation is not attributable to a single channel.
type SafetyViolation struct {
	Channel int
	Reason  string
}

func (e *SafetyViolation) Error() string {
	if e.Channel < 0 {
		return fmt.Sprintf("%v: %s", ErrSafety, e.Reason)
	}
	return fmt.Sprintf("%v: channel %d: %s", ErrSafety, e.Channel, e.Reason)
}

func (e *SafetyViolation) Unwrap() error {
	return ErrSafety
}

// HardwareFault reports an I/O failure at the driver boundary with
// diagnostic preservation of the original driver error.
type HardwareFault struct {
	Channel  int
	Op       string // driver operation that failed, e.g. "setAngle"
	Original error  // driver error (opaque)
}

func (e *HardwareFault) Error() string {
	return fmt.Sprintf("%v: %s on channel %d: %v", ErrHardware, e.Op, e.Channel, e.Original)
}

func (e *HardwareFault) Unwrap() error {
	return ErrHardware
}
