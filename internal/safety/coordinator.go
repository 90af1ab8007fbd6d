package safety

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robot-control/roc/internal/actuator"
	"github.com/robot-control/roc/internal/config"
	"github.com/robot-control/roc/internal/logging"
	"github.com/robot-control/roc/internal/metrics"
	"github.com/robot-control/roc/internal/telemetry"
)

// Outputs is the one actuator capability the safety subsystem is allowed to
// exercise: cutting drive to everything during a trip.
type Outputs interface {
	DisableAll(ctx context.Context) error
}

// Deps are the coordinator's collaborators. Hub, Metrics, and Logger are
// optional.
type Deps struct {
	Outputs Outputs
	Sensor  actuator.CurrentSensor
	GPIO    actuator.GPIOProvider
	Hub     *telemetry.Hub
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Coordinator is the single authority on "is it safe to act right now". It
// owns the emergency-stop monitor, the watchdog, and the current limiter,
// and serializes all shared state through one lock. The lock is never held
// across collaborator I/O: state is decided under the lock, the lock is
// released, and only then is hardware touched.
type Coordinator struct {
	cfg     *config.Config
	logger  *slog.Logger
	hub     *telemetry.Hub
	met     *metrics.Metrics
	outputs Outputs
	sensor  actuator.CurrentSensor
	gpio    actuator.GPIOProvider

	estop    *EStopMonitor
	watchdog *Watchdog
	limiter  *Limiter

	mu              sync.Mutex
	started         bool
	stopped         bool
	registrations   map[int]Registration
	lastFaultSource string
	lastFaultAt     time.Time
	lastTick        time.Time
}

// NewCoordinator wires the three safety collaborators together. Nothing is
// started; Start launches the monitor goroutines.
func NewCoordinator(cfg *config.Config, deps Deps) *Coordinator {
	c := &Coordinator{
		cfg:           cfg,
		logger:        logging.OrNop(deps.Logger),
		hub:           deps.Hub,
		met:           deps.Metrics,
		outputs:       deps.Outputs,
		sensor:        deps.Sensor,
		gpio:          deps.GPIO,
		registrations: make(map[int]Registration),
	}

	c.estop = NewEStopMonitor(deps.GPIO, cfg.EStopPin, cfg.EStopPollInterval, func(source string) {
		c.TriggerEStop(source)
	}, c.logger)

	c.watchdog = NewWatchdog(cfg.WatchdogTimeout, func() {
		c.TriggerEStop(SourceWatchdogTimeout)
	}, c.logger)

	c.limiter = NewLimiter(cfg.StallCurrentAmps, cfg.StallDebounce, cfg.ThermalCurrentAmps, cfg.ThermalTimeConstant, cfg.DutyCycleFloor)

	return c
}

// Start launches the emergency-stop monitor and the watchdog. If the monitor
// fails to claim its input, nothing is left running and Start returns false.
// A coordinator that has been stopped cannot be restarted.
func (c *Coordinator) Start() bool {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return false
	}
	if c.started {
		c.mu.Unlock()
		return true
	}
	c.mu.Unlock()

	if err := c.estop.Start(); err != nil {
		c.logger.Error("safety start failed", "err", err)
		return false
	}

	c.watchdog.Start()

	c.mu.Lock()
	c.started = true
	c.lastTick = time.Now()
	c.mu.Unlock()

	c.logger.Info("safety coordinator started",
		"watchdogTimeout", c.cfg.WatchdogTimeout,
		"estopPin", c.cfg.EStopPin)
	return true
}

// Stop shuts the subsystem down in strict order: the watchdog first, so its
// timeout cannot fire spuriously mid-shutdown; then an unconditional
// emergency-stop trip, guaranteeing outputs are disabled even if the final
// step fails; then GPIO release. Every step runs regardless of earlier
// failures. Stop never returns an error and is idempotent.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	c.mu.Unlock()

	c.watchdog.Stop(c.cfg.MonitorJoinTimeout)

	c.TriggerEStop(SourceShutdown)

	c.estop.Stop(c.cfg.MonitorJoinTimeout)
	if c.gpio != nil {
		if err := c.gpio.Close(); err != nil {
			c.logger.Error("failed to release gpio provider", "err", err)
		}
	}

	c.logger.Info("safety coordinator stopped")
}

// FeedWatchdog is the single per-tick safety gate. It advances the limiter
// with fresh current readings, then checks in order: the emergency stop is
// running, no channel has a confirmed stall, and no channel is derated below
// the duty cycle floor. Any failed check trips the emergency stop, never
// merely returning false, and only a full pass feeds the watchdog. A feed
// the watchdog rejects (monitor not running) also fails the gate.
func (c *Coordinator) FeedWatchdog(ctx context.Context) bool {
	readings := c.readCurrents(ctx)

	now := time.Now()

	c.mu.Lock()
	var dt time.Duration
	if !c.lastTick.IsZero() {
		dt = now.Sub(c.lastTick)
	}
	c.lastTick = now

	for channel, amps := range readings {
		c.limiter.Sample(channel, amps, now, dt)
	}

	source := ""
	switch {
	case c.estop.State() == EStopFault:
		source = SourceInputFault
	case c.estop.State() != EStopRunning:
		source, _ = c.estop.TripInfo()
		if source == "" {
			source = SourceHardwareButton
		}
	case len(c.limiter.ConfirmedStalls()) > 0:
		source = SourceStallConfirmed
	case len(c.limiter.BelowDutyFloor()) > 0:
		source = SourceThermalLimit
	}
	c.mu.Unlock()

	if source != "" {
		c.TriggerEStop(source)
		return false
	}

	if !c.watchdog.Feed() {
		c.logger.Warn("watchdog rejected feed, monitor not running")
		return false
	}
	c.met.IncFeed()
	return true
}

// readCurrents sweeps the current sensor for every configured channel,
// outside the coordinator lock. Individual read failures are logged and the
// sample skipped; the stale limiter state then speaks for the channel.
func (c *Coordinator) readCurrents(ctx context.Context) map[int]float64 {
	readings := make(map[int]float64, len(c.cfg.Channels))
	if c.sensor == nil {
		return readings
	}
	for _, limit := range c.cfg.Channels {
		amps, err := c.sensor.ReadCurrent(ctx, limit.Index)
		if err != nil {
			c.logger.Debug("current read failed", "channel", limit.Index, "err", err)
			continue
		}
		readings[limit.Index] = amps
	}
	return readings
}

// CheckMovementAllowed reports whether a command on the channel may proceed,
// with a human-readable reason when it may not. Read-only.
func (c *Coordinator) CheckMovementAllowed(channel int) (bool, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.checkMovementLocked(channel)
}

func (c *Coordinator) checkMovementLocked(channel int) (bool, string) {
	if st := c.estop.State(); st != EStopRunning {
		return false, "emergency stop not in running state: " + string(st)
	}
	if !c.watchdog.Healthy() {
		return false, "watchdog unhealthy"
	}
	if stalls := c.limiter.ConfirmedStalls(); len(stalls) > 0 {
		for _, ch := range stalls {
			if ch == channel {
				return false, "stall confirmed on channel"
			}
		}
		return false, "stall confirmed elsewhere"
	}
	if c.limiter.DutyFactor(channel) < c.cfg.DutyCycleFloor {
		return false, "thermally limited below duty cycle floor"
	}
	return true, ""
}

// RegisterMovement re-validates safety and, only while still allowed,
// brackets the start of an in-flight command on a channel. The check and the
// registration happen under one lock acquisition, so a trip landing between
// a read-only check and the command itself can never be recorded as allowed.
func (c *Coordinator) RegisterMovement(channel int, targetDeg float64) (bool, string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if allowed, reason := c.checkMovementLocked(channel); !allowed {
		return false, reason
	}
	c.registrations[channel] = Registration{
		Channel:      channel,
		TargetDeg:    targetDeg,
		RegisteredAt: time.Now(),
		InFlight:     true,
	}
	return true, ""
}

// CompleteMovement clears the channel's registration.
func (c *Coordinator) CompleteMovement(channel int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.registrations, channel)
}

// TriggerEStop trips the emergency stop and returns the trip latency in
// seconds. It is idempotent, total, and never panics: any internal failure
// is logged and the trip is still recorded. Actuator outputs are always
// disabled (with the coordinator lock released) even when the disable call
// itself fails.
func (c *Coordinator) TriggerEStop(source string) (elapsed float64) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("panic during estop trip", "panic", r, "source", source)
			elapsed = time.Since(start).Seconds()
		}
	}()

	tripped := c.estop.Trip(source)

	c.mu.Lock()
	if tripped {
		c.lastFaultSource = source
		c.lastFaultAt = start
	}
	// Registrations are cleared on any trip: nothing is in flight once
	// outputs are cut.
	c.registrations = make(map[int]Registration)
	c.mu.Unlock()

	if c.outputs != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := c.outputs.DisableAll(ctx); err != nil {
			c.logger.Error("failed to disable actuator outputs during estop", "source", source, "err", err)
		}
	}

	if tripped {
		c.logger.Warn("emergency stop tripped", "source", source)
		c.met.IncTrip(source)
		c.publish("estopTripped", map[string]interface{}{"source": source})
	}

	return time.Since(start).Seconds()
}

// ResetEStop re-validates every safety condition and, only if the physical
// line is inactive, no confirmed stall remains, and no thermal limiting
// remains, returns the subsystem to running. On false the caller must not
// advance state.
func (c *Coordinator) ResetEStop() bool {
	readings := c.readCurrents(context.Background())

	now := time.Now()

	c.mu.Lock()
	var dt time.Duration
	if !c.lastTick.IsZero() {
		dt = now.Sub(c.lastTick)
	}
	c.lastTick = now

	for channel, amps := range readings {
		c.limiter.Sample(channel, amps, now, dt)
	}

	// A latched stall is released only by evidence: a fresh sub-threshold
	// reading on that channel.
	for _, channel := range c.limiter.ConfirmedStalls() {
		if amps, ok := readings[channel]; ok && amps < c.cfg.StallCurrentAmps {
			c.limiter.ClearStall(channel)
		}
	}

	if len(c.limiter.ConfirmedStalls()) > 0 {
		c.mu.Unlock()
		return false
	}
	if c.limiter.ThermallyLimited() || len(c.limiter.BelowDutyFloor()) > 0 {
		c.mu.Unlock()
		return false
	}
	c.mu.Unlock()

	if !c.estop.Reset() {
		return false
	}

	// Rearm liveness before the loop resumes feeding.
	c.watchdog.Feed()

	c.logger.Info("emergency stop reset")
	c.publish("estopReset", nil)
	return true
}

// IsSafe reports the derived overall-safe flag: emergency stop running,
// watchdog healthy, no confirmed stall, no input fault.
func (c *Coordinator) IsSafe() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isSafeLocked()
}

func (c *Coordinator) isSafeLocked() bool {
	return c.estop.State() == EStopRunning &&
		c.watchdog.Healthy() &&
		len(c.limiter.ConfirmedStalls()) == 0
}

// Status produces an immutable snapshot of the whole safety subsystem.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	source, _ := c.estop.TripInfo()

	channels := make(map[int]ChannelStatus, len(c.cfg.Channels))
	for _, limit := range c.cfg.Channels {
		cs := ChannelStatus{
			Class:       c.limiter.Classify(limit.Index),
			DutyFactor:  c.limiter.DutyFactor(limit.Index),
			CurrentAmps: c.limiter.LastCurrent(limit.Index),
		}
		if reg, ok := c.registrations[limit.Index]; ok {
			cs.InFlight = reg.InFlight
			cs.TargetDeg = reg.TargetDeg
		}
		channels[limit.Index] = cs
	}

	return Status{
		Safe:            c.isSafeLocked(),
		EStop:           c.estop.State(),
		EStopSource:     source,
		WatchdogHealthy: c.watchdog.Healthy(),
		Channels:        channels,
		LastFaultSource: c.lastFaultSource,
		LastFaultAt:     c.lastFaultAt,
		GeneratedAt:     time.Now(),
	}
}

func (c *Coordinator) publish(eventType string, data map[string]interface{}) {
	if c.hub == nil {
		return
	}
	if data == nil {
		data = map[string]interface{}{}
	}
	c.hub.Publish(telemetry.Event{Type: eventType, Data: data})
}
