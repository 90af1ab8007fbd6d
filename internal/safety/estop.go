package safety

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robot-control/roc/internal/actuator"
	"github.com/robot-control/roc/internal/logging"
)

// EStopState is the emergency-stop subsystem's tri-state.
type EStopState string

const (
	EStopRunning EStopState = "running"
	EStopTripped EStopState = "tripped"
	EStopFault   EStopState = "fault"
)

// Trip sources reported through the coordinator.
const (
	SourceHardwareButton  = "hardware-button"
	SourceWatchdogTimeout = "watchdog-timeout"
	SourceStallConfirmed  = "stall-confirmed"
	SourceThermalLimit    = "thermal-limit"
	SourceInputFault      = "estop-input-fault"
	SourceCallbackError   = "callback-error"
	SourceHardwareFault   = "hardware-fault"
	SourceShutdown        = "shutdown"
)

// EStopMonitor watches the physical emergency-stop input on its own
// goroutine and keeps the tri-state. It records trips; it never touches
// actuator hardware itself; disabling outputs is the coordinator's job.
type EStopMonitor struct {
	gpio         actuator.GPIOProvider
	pin          int
	pollInterval time.Duration
	onEdge       func(source string)
	logger       *slog.Logger

	mu        sync.Mutex
	state     EStopState
	source    string
	trippedAt time.Time
	line      actuator.InputLine
	running   bool

	stopC chan struct{}
	doneC chan struct{}
}

// NewEStopMonitor creates a monitor for the given input pin. onEdge is
// invoked from the monitor goroutine on an inactive-to-active edge and on an
// input read fault; it must not call back into the monitor's Stop.
func NewEStopMonitor(gpio actuator.GPIOProvider, pin int, pollInterval time.Duration, onEdge func(source string), logger *slog.Logger) *EStopMonitor {
	return &EStopMonitor{
		gpio:         gpio,
		pin:          pin,
		pollInterval: pollInterval,
		onEdge:       onEdge,
		logger:       logging.OrNop(logger),
		state:        EStopRunning,
	}
}

// Start claims the input line and launches the edge-detection goroutine.
func (m *EStopMonitor) Start() error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	line, err := m.gpio.OpenInput(m.pin)
	if err != nil {
		m.mu.Lock()
		m.state = EStopFault
		m.mu.Unlock()
		return fmt.Errorf("failed to claim estop input pin %d: %w", m.pin, err)
	}

	m.mu.Lock()
	m.line = line
	m.state = EStopRunning
	m.running = true
	m.stopC = make(chan struct{})
	m.doneC = make(chan struct{})
	stopC, doneC := m.stopC, m.doneC
	m.mu.Unlock()

	go m.watch(line, stopC, doneC)
	return nil
}

// watch polls the input line and reports edges through onEdge. A read fault
// marks the subsystem faulted and is reported once through the same path:
// an estop input that cannot be read cannot vouch for safety.
func (m *EStopMonitor) watch(line actuator.InputLine, stopC chan struct{}, doneC chan struct{}) {
	defer close(doneC)

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	prevActive := false
	faulted := false

	for {
		select {
		case <-stopC:
			return

		case <-ticker.C:
			active, err := line.Read()
			if err != nil {
				if !faulted {
					faulted = true
					m.logger.Error("estop input read failed", "pin", m.pin, "err", err)
					m.mu.Lock()
					m.state = EStopFault
					m.mu.Unlock()
					if m.onEdge != nil {
						m.onEdge(SourceInputFault)
					}
				}
				continue
			}
			faulted = false

			if active && !prevActive {
				m.logger.Warn("estop button edge detected", "pin", m.pin)
				if m.onEdge != nil {
					m.onEdge(SourceHardwareButton)
				}
			}
			prevActive = active
		}
	}
}

// Trip records the tripped state and reports whether this call performed the
// transition. Idempotent: the first source and timestamp win, later calls are
// no-ops.
func (m *EStopMonitor) Trip(source string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == EStopTripped {
		return false
	}
	m.state = EStopTripped
	m.source = source
	m.trippedAt = time.Now()
	return true
}

// Reset returns the monitor to running, but only when the physical line
// reads inactive. Returns false when the line is still active, unreadable,
// or was never claimed.
func (m *EStopMonitor) Reset() bool {
	m.mu.Lock()
	line := m.line
	m.mu.Unlock()

	if line == nil {
		return false
	}

	active, err := line.Read()
	if err != nil {
		m.logger.Error("estop input read failed during reset", "pin", m.pin, "err", err)
		return false
	}
	if active {
		return false
	}

	m.mu.Lock()
	m.state = EStopRunning
	m.source = ""
	m.trippedAt = time.Time{}
	m.mu.Unlock()
	return true
}

// State returns the current tri-state.
func (m *EStopMonitor) State() EStopState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// TripInfo returns the recorded source and time of the trip, when tripped.
func (m *EStopMonitor) TripInfo() (string, time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.source, m.trippedAt
}

// Stop terminates the edge-detection goroutine with a bounded join and
// releases the input line. Idempotent.
func (m *EStopMonitor) Stop(joinTimeout time.Duration) bool {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return true
	}
	m.running = false
	stopC := m.stopC
	doneC := m.doneC
	line := m.line
	m.line = nil
	m.mu.Unlock()

	close(stopC)

	joined := true
	select {
	case <-doneC:
	case <-time.After(joinTimeout):
		m.logger.Error("estop monitor goroutine failed to stop within timeout", "timeout", joinTimeout)
		joined = false
	}

	if line != nil {
		if err := line.Close(); err != nil {
			m.logger.Error("failed to release estop input", "pin", m.pin, "err", err)
		}
	}
	return joined
}
