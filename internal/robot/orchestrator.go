package robot

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/robot-control/roc/internal/actuator"
	"github.com/robot-control/roc/internal/actuator/sim"
	"github.com/robot-control/roc/internal/config"
	"github.com/robot-control/roc/internal/kinematics"
	"github.com/robot-control/roc/internal/logging"
	"github.com/robot-control/roc/internal/metrics"
	"github.com/robot-control/roc/internal/safety"
	"github.com/robot-control/roc/internal/state"
	"github.com/robot-control/roc/internal/telemetry"
)

// AuditSink records actuator commands and lifecycle events. The orchestrator
// treats it as optional.
type AuditSink interface {
	LogAction(ctx context.Context, action string, channel int, outcome string, latency time.Duration)
	LogActionParams(ctx context.Context, action string, channel int, outcome string, latency time.Duration, params map[string]interface{})
}

// Config carries the orchestrator's construction dependencies. Every field
// is optional: nil hardware handles are filled with simulated backends when
// Settings.HardwareEnabled is false, and nil observability sinks are
// no-ops.
type Config struct {
	Settings *config.Config

	Servo  actuator.ServoDriver
	Sensor actuator.CurrentSensor
	IMU    actuator.IMU // nil means no orientation source
	GPIO   actuator.GPIOProvider

	Hub     *telemetry.Hub
	Audit   AuditSink
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Orchestrator is the single public-facing object: it owns the state
// machine value, the safety coordinator, and the actuator handles, runs the
// control loop, and exposes the command surface. The servo driver is invoked
// only from the caller's loop goroutine; the safety monitors communicate
// exclusively through the coordinator's trip path.
type Orchestrator struct {
	cfg    *config.Config
	logger *slog.Logger
	hub    *telemetry.Hub
	aud    AuditSink
	met    *metrics.Metrics

	servo  actuator.ServoDriver
	imu    actuator.IMU
	safety *safety.Coordinator
	solver *kinematics.Solver

	// startMu serializes Start so a losing concurrent caller cannot tear
	// down the safety subsystem the winner just brought up.
	startMu sync.Mutex

	mu            sync.Mutex
	state         state.State
	stopped       bool
	orientation   actuator.Orientation
	orientationAt time.Time
	iterations    uint64
	overruns      uint64
	lastStep      time.Duration
	maxStep       time.Duration
}

// New builds an orchestrator. Construction starts nothing: no goroutines,
// no hardware claims. Start brings the safety subsystem up.
func New(rc Config) (*Orchestrator, error) {
	cfg := rc.Settings
	if cfg == nil {
		cfg = config.Default()
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	servo, sensor, gpio := rc.Servo, rc.Sensor, rc.GPIO
	if cfg.HardwareEnabled {
		// There is nothing sensible to default to when real hardware
		// is requested; the caller must supply the drivers.
		if servo == nil || sensor == nil || gpio == nil {
			return nil, errors.New("hardware mode requires servo, sensor, and gpio handles")
		}
	} else {
		if servo == nil {
			servo = sim.NewServo()
		}
		if sensor == nil {
			sensor = sim.NewSensor()
		}
		if gpio == nil {
			gpio = sim.NewGPIO()
		}
	}

	logger := logging.OrNop(rc.Logger)

	o := &Orchestrator{
		cfg:    cfg,
		logger: logger,
		hub:    rc.Hub,
		aud:    rc.Audit,
		met:    rc.Metrics,
		servo:  servo,
		imu:    rc.IMU,
		solver: kinematics.NewSolver(cfg.ArmLink1M, cfg.ArmLink2M),
		state:  state.StateInit,
	}

	o.safety = safety.NewCoordinator(cfg, safety.Deps{
		Outputs: servo,
		Sensor:  sensor,
		GPIO:    gpio,
		Hub:     rc.Hub,
		Metrics: rc.Metrics,
		Logger:  logger,
	})

	return o, nil
}

// Start brings the safety subsystem up and transitions to ready. It requires
// the initial state; on any failure the orchestrator stays in init and
// nothing is left running.
func (o *Orchestrator) Start() bool {
	o.startMu.Lock()
	defer o.startMu.Unlock()

	if o.State() != state.StateInit {
		return false
	}

	if !o.safety.Start() {
		o.logger.Error("orchestrator start aborted: safety subsystem failed to start")
		return false
	}

	if !o.transition(state.EventStart) {
		o.safety.Stop()
		return false
	}

	o.audit("start", -1, "success", 0)
	o.logger.Info("orchestrator started", "loopPeriod", o.cfg.LoopPeriod)
	return true
}

// Stop winds the container down. Safe to call in any state, idempotent, and
// never errors: the safety coordinator's ordered shutdown disables outputs
// and releases hardware regardless of what state the orchestrator was in.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.stopped {
		o.mu.Unlock()
		return
	}
	o.stopped = true
	o.mu.Unlock()

	o.safety.Stop()
	o.forceEStopped("stop")

	o.audit("stop", -1, "success", 0)
	o.logger.Info("orchestrator stopped")
}

// EmergencyStop trips the safety subsystem and forces the estopped state.
// Callable from any state and from any goroutine; returns the trip latency
// in seconds.
func (o *Orchestrator) EmergencyStop(source string) float64 {
	elapsed := o.safety.TriggerEStop(source)
	o.forceEStopped(string(state.EventTrip))
	o.audit("emergencyStop", -1, source, time.Duration(elapsed*float64(time.Second)))
	return elapsed
}

// Reset attempts to leave the estopped state. It returns true only when the
// safety subsystem re-validated every condition and agreed to resume; on
// false the state is unchanged.
func (o *Orchestrator) Reset() bool {
	cur := o.State()
	if cur != state.StateEStopped {
		o.logger.Warn("reset ignored", "state", cur)
		return false
	}

	safe := o.safety.ResetEStop()

	next, err := state.ValidateReset(cur, safe)
	if err != nil {
		o.logger.Warn("reset refused", "err", err)
		return false
	}

	o.setState(next, string(state.EventReset))
	o.audit("reset", -1, "success", 0)
	return true
}

// State returns the current operational state.
func (o *Orchestrator) State() state.State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// IsOperational reports whether commands would currently be accepted: the
// machine is ready and the safety subsystem agrees.
func (o *Orchestrator) IsOperational() bool {
	return o.State() == state.StateReady && o.safety.IsSafe()
}

// SafetyStatus returns a snapshot of the safety subsystem.
func (o *Orchestrator) SafetyStatus() safety.Status {
	return o.safety.Status()
}

// transition applies an event through the transition table. Invalid
// transitions are logged and refused.
func (o *Orchestrator) transition(event state.Event) bool {
	o.mu.Lock()
	next, err := state.ValidateTransition(o.state, event)
	if err != nil {
		o.mu.Unlock()
		o.logger.Warn("invalid transition refused", "err", err)
		return false
	}
	prev := o.state
	o.state = next
	o.mu.Unlock()

	o.publishStateChange(prev, next, string(event))
	return true
}

// forceEStopped moves to estopped unconditionally. Trips do not consult the
// transition table: any state yields to an emergency stop.
func (o *Orchestrator) forceEStopped(event string) {
	o.mu.Lock()
	if o.state == state.StateEStopped {
		o.mu.Unlock()
		return
	}
	prev := o.state
	o.state = state.StateEStopped
	o.mu.Unlock()

	o.publishStateChange(prev, state.StateEStopped, event)
}

func (o *Orchestrator) setState(next state.State, event string) {
	o.mu.Lock()
	prev := o.state
	o.state = next
	o.mu.Unlock()
	o.publishStateChange(prev, next, event)
}

func (o *Orchestrator) publishStateChange(from, to state.State, event string) {
	o.logger.Info("state changed", "from", from, "to", to, "event", event)
	if o.hub != nil {
		o.hub.Publish(telemetry.Event{Type: "stateChanged", Data: map[string]interface{}{
			"from":  string(from),
			"to":    string(to),
			"event": event,
		}})
	}
}

func (o *Orchestrator) audit(action string, channel int, outcome string, latency time.Duration) {
	if o.aud != nil {
		o.aud.LogAction(context.Background(), action, channel, outcome, latency)
	}
}
