package robot

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robot-control/roc/internal/actuator"
	"github.com/robot-control/roc/internal/fault"
	"github.com/robot-control/roc/internal/state"
)

func TestSetServoAngleSuccess(t *testing.T) {
	f := newFixture(t, nil)
	f.start(t)

	require.NoError(t, f.orch.SetServoAngle(context.Background(), 0, 30))

	deg, ok := f.servo.Angle(0)
	require.True(t, ok)
	assert.Equal(t, 30.0, deg)
	assert.Equal(t, 1, f.audit.count("setServoAngle/success"))
}

func TestSetServoAngleStateError(t *testing.T) {
	f := newFixture(t, nil)

	err := f.orch.SetServoAngle(context.Background(), 3, 45)
	require.Error(t, err)
	assert.ErrorIs(t, err, fault.ErrState)

	var se *fault.StateError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, string(state.StateInit), se.State)

	_, ok := f.servo.Angle(3)
	assert.False(t, ok, "no command may reach the driver outside ready")
}

func TestSetServoAngleSafetyViolationWhenStalled(t *testing.T) {
	f := newFixture(t, nil)
	f.start(t)

	// The trip is asynchronous: the orchestrator's own state still reads
	// ready, but the gate at the point of action must block.
	f.confirmStall(t, 3)
	require.Equal(t, state.StateReady, f.orch.State())

	err := f.orch.SetServoAngle(context.Background(), 3, 45)
	require.Error(t, err)
	assert.ErrorIs(t, err, fault.ErrSafety)

	var sv *fault.SafetyViolation
	require.ErrorAs(t, err, &sv)
	assert.Equal(t, 3, sv.Channel)

	_, ok := f.servo.Angle(3)
	assert.False(t, ok)
	assert.Equal(t, 1, f.audit.count("setServoAngle/blocked"))
}

func TestSetServoAngleRangeValidation(t *testing.T) {
	f := newFixture(t, nil)
	f.start(t)

	assert.Error(t, f.orch.SetServoAngle(context.Background(), 99, 10),
		"unknown channel")
	assert.Error(t, f.orch.SetServoAngle(context.Background(), 3, 170),
		"elbow beyond its maximum")
	assert.Error(t, f.orch.SetServoAngle(context.Background(), 1, -60),
		"tilt below its minimum")

	for _, ch := range []int{1, 3, 99} {
		_, ok := f.servo.Angle(ch)
		assert.False(t, ok)
	}
	assert.Equal(t, state.StateReady, f.orch.State(),
		"range rejection is not a safety event")
}

func TestSetServoAngleHardwareFaultTripsEStop(t *testing.T) {
	f := newFixture(t, nil)
	f.start(t)

	f.servo.FailSetAngle(errors.New("I2C_ERROR: bus timeout"))

	err := f.orch.SetServoAngle(context.Background(), 0, 15)
	require.Error(t, err)
	assert.ErrorIs(t, err, fault.ErrHardware)

	var hf *fault.HardwareFault
	require.ErrorAs(t, err, &hf)
	assert.Equal(t, 0, hf.Channel)
	assert.ErrorIs(t, hf.Original, actuator.ErrBusFault,
		"driver error normalized through the token table")

	assert.Equal(t, state.StateEStopped, f.orch.State())
	assert.True(t, f.servo.Disabled())
}

func TestSetArmPositionUnreachable(t *testing.T) {
	f := newFixture(t, nil)
	f.start(t)

	ok, err := f.orch.SetArmPosition(context.Background(), 1.0, 1.0, false)
	require.NoError(t, err)
	assert.False(t, ok)

	_, shoulderSet := f.servo.Angle(f.cfg.ArmShoulderChannel)
	_, elbowSet := f.servo.Angle(f.cfg.ArmElbowChannel)
	assert.False(t, shoulderSet, "unreachable targets cause no motion")
	assert.False(t, elbowSet)
}

func TestSetArmPositionReachable(t *testing.T) {
	f := newFixture(t, nil)
	f.start(t)

	ok, err := f.orch.SetArmPosition(context.Background(), 0.15, 0.05, false)
	require.NoError(t, err)
	require.True(t, ok)

	shoulder, shoulderSet := f.servo.Angle(f.cfg.ArmShoulderChannel)
	elbow, elbowSet := f.servo.Angle(f.cfg.ArmElbowChannel)
	require.True(t, shoulderSet)
	require.True(t, elbowSet)
	assert.InDelta(t, -13.2, shoulder, 0.5)
	assert.InDelta(t, 70.3, elbow, 0.5)
}

func TestSetArmPositionPropagatesJointFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.start(t)

	f.servo.FailSetAngle(errors.New("NOT_READY: oscillator off"))

	ok, err := f.orch.SetArmPosition(context.Background(), 0.15, 0.05, false)
	assert.False(t, ok)
	assert.ErrorIs(t, err, fault.ErrHardware)
	assert.Equal(t, state.StateEStopped, f.orch.State())
}
