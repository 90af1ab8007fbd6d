// Package integration exercises the container across package boundaries:
// orchestrator, safety subsystem, telemetry hub, audit trail, and metrics
// wired together the way cmd/roc wires them.
package integration

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robot-control/roc/internal/actuator/sim"
	"github.com/robot-control/roc/internal/audit"
	"github.com/robot-control/roc/internal/config"
	"github.com/robot-control/roc/internal/metrics"
	"github.com/robot-control/roc/internal/robot"
	"github.com/robot-control/roc/internal/safety"
	"github.com/robot-control/roc/internal/state"
	"github.com/robot-control/roc/internal/telemetry"
)

type container struct {
	cfg      *config.Config
	servo    *sim.Servo
	sensor   *sim.Sensor
	gpio     *sim.GPIO
	hub      *telemetry.Hub
	auditDir string
	met      *metrics.Metrics
	orch     *robot.Orchestrator
}

func newContainer(t *testing.T) *container {
	t.Helper()

	cfg := config.Default()
	cfg.LoopPeriod = time.Millisecond
	cfg.StallDebounce = 5 * time.Millisecond
	cfg.EStopPollInterval = time.Millisecond
	cfg.ThermalTimeConstant = 50 * time.Millisecond

	c := &container{
		cfg:      cfg,
		servo:    sim.NewServo(),
		sensor:   sim.NewSensor(),
		gpio:     sim.NewGPIO(),
		hub:      telemetry.NewHub(cfg.EventBufferSize),
		auditDir: t.TempDir(),
	}
	t.Cleanup(c.hub.Stop)

	auditLogger, err := audit.NewLogger(c.auditDir)
	require.NoError(t, err)
	t.Cleanup(func() { auditLogger.Close() })

	c.met = metrics.New(prometheus.NewRegistry())

	c.orch, err = robot.New(robot.Config{
		Settings: cfg,
		Servo:    c.servo,
		Sensor:   c.sensor,
		IMU:      sim.NewIMU(),
		GPIO:     c.gpio,
		Hub:      c.hub,
		Audit:    auditLogger,
		Metrics:  c.met,
	})
	require.NoError(t, err)
	t.Cleanup(c.orch.Stop)
	return c
}

func (c *container) auditEntries(t *testing.T) []audit.Entry {
	t.Helper()
	file, err := os.Open(filepath.Join(c.auditDir, "audit.jsonl"))
	require.NoError(t, err)
	defer file.Close()

	var entries []audit.Entry
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var entry audit.Entry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		entries = append(entries, entry)
	}
	require.NoError(t, scanner.Err())
	return entries
}

func drainEventTypes(sub *telemetry.Subscription) map[string]int {
	types := make(map[string]int)
	for {
		select {
		case event := <-sub.Events:
			types[event.Type]++
		default:
			return types
		}
	}
}

// TestStallTripFlow drives the whole container through a stall: the loop
// commands a servo, the channel jams, the gate confirms the stall and trips,
// the loop terminates, and every observability surface saw it.
func TestStallTripFlow(t *testing.T) {
	c := newContainer(t)

	sub := c.hub.Subscribe()
	defer sub.Cancel()

	guard, ok := c.orch.Acquire()
	require.True(t, ok)
	defer guard.Release()

	iteration := 0
	err := c.orch.RunControlLoop(context.Background(), func(o *robot.Orchestrator) error {
		iteration++
		switch iteration {
		case 1:
			return o.SetServoAngle(context.Background(), 0, 30)
		case 2:
			// The pan servo jams against an obstacle.
			c.sensor.SetCurrent(0, c.cfg.StallCurrentAmps+0.5)
		case 10:
			t.Error("loop should have terminated on the confirmed stall")
		}
		return nil
	}, 50)
	require.NoError(t, err, "loop termination by trip is normal, not an error")

	assert.Equal(t, state.StateEStopped, c.orch.State())
	assert.True(t, c.servo.Disabled())

	st := c.orch.SafetyStatus()
	assert.Equal(t, safety.SourceStallConfirmed, st.EStopSource)
	assert.Equal(t, safety.ClassStalled, st.Channels[0].Class)

	assert.Equal(t, 1.0,
		testutil.ToFloat64(c.met.EStopTrips.WithLabelValues(safety.SourceStallConfirmed)))

	types := drainEventTypes(sub)
	assert.NotZero(t, types["stateChanged"])
	assert.NotZero(t, types["servoCommand"])
	assert.NotZero(t, types["estopTripped"])

	var commands, lifecycle int
	for _, entry := range c.auditEntries(t) {
		switch entry.Action {
		case "setServoAngle":
			commands++
		case "start":
			lifecycle++
		}
	}
	assert.NotZero(t, commands, "every actuator command leaves an audit record")
	assert.NotZero(t, lifecycle, "lifecycle transitions are audited too")
}

// TestButtonTripAndResetFlow covers the operator path: a hardware button
// press tripping mid-run, a failed reset while the button is held, then a
// successful reset and a resumed loop.
func TestButtonTripAndResetFlow(t *testing.T) {
	c := newContainer(t)

	guard, ok := c.orch.Acquire()
	require.True(t, ok)
	defer guard.Release()

	// Press the button after a few iterations.
	iteration := 0
	err := c.orch.RunControlLoop(context.Background(), func(o *robot.Orchestrator) error {
		iteration++
		if iteration == 3 {
			c.gpio.SetLevel(c.cfg.EStopPin, true)
			// Give the monitor goroutine a poll cycle to see the edge.
			time.Sleep(5 * c.cfg.EStopPollInterval)
		}
		return nil
	}, 50)
	require.NoError(t, err)

	require.Equal(t, state.StateEStopped, c.orch.State())
	assert.Equal(t, safety.SourceHardwareButton, c.orch.SafetyStatus().EStopSource)

	// Button still held: the subsystem refuses to resume.
	assert.False(t, c.orch.Reset())
	assert.Equal(t, state.StateEStopped, c.orch.State())

	// Button released: reset succeeds, commands flow again.
	c.gpio.SetLevel(c.cfg.EStopPin, false)
	require.True(t, c.orch.Reset())
	require.Equal(t, state.StateReady, c.orch.State())

	c.servo.Enable()
	require.NoError(t, c.orch.SetServoAngle(context.Background(), 1, 20))
	deg, ok := c.servo.Angle(1)
	require.True(t, ok)
	assert.Equal(t, 20.0, deg)

	// And the loop runs to its bound without further incident.
	require.NoError(t, c.orch.RunControlLoop(context.Background(), nil, 5))
	assert.Equal(t, state.StateReady, c.orch.State())
}

// TestShutdownReleasesHardware verifies the guard's exit path: outputs
// disabled, GPIO released, terminal state, all idempotently.
func TestShutdownReleasesHardware(t *testing.T) {
	c := newContainer(t)

	guard, ok := c.orch.Acquire()
	require.True(t, ok)

	require.NoError(t, c.orch.RunControlLoop(context.Background(), nil, 3))

	guard.Release()
	guard.Release()

	assert.Equal(t, state.StateEStopped, c.orch.State())
	assert.True(t, c.servo.Disabled())
	assert.True(t, c.gpio.Closed())
	assert.Equal(t, safety.SourceShutdown, c.orch.SafetyStatus().EStopSource)
}
