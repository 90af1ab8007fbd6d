package sim

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServoRecordsAnglesAndDisable(t *testing.T) {
	servo := NewServo()
	ctx := context.Background()

	require.NoError(t, servo.SetAngle(ctx, 3, 45.0))
	deg, ok := servo.Angle(3)
	require.True(t, ok)
	assert.Equal(t, 45.0, deg)

	require.NoError(t, servo.DisableAll(ctx))
	assert.True(t, servo.Disabled())

	err := servo.SetAngle(ctx, 3, 10.0)
	assert.Error(t, err, "disabled outputs must reject commands")

	servo.Enable()
	assert.NoError(t, servo.SetAngle(ctx, 3, 10.0))
}

func TestServoErrorInjection(t *testing.T) {
	servo := NewServo()
	injected := errors.New("I2C_ERROR: bus stuck")
	servo.FailSetAngle(injected)

	err := servo.SetAngle(context.Background(), 0, 1.0)
	assert.ErrorIs(t, err, injected)

	servo.FailSetAngle(nil)
	assert.NoError(t, servo.SetAngle(context.Background(), 0, 1.0))
}

func TestSensorScriptedDraw(t *testing.T) {
	sensor := NewSensor()
	ctx := context.Background()

	amps, err := sensor.ReadCurrent(ctx, 5)
	require.NoError(t, err)
	assert.Zero(t, amps, "unscripted channels read zero draw")

	sensor.SetCurrent(5, 2.4)
	amps, err = sensor.ReadCurrent(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 2.4, amps)
}

func TestGPIOLevelsVisibleThroughLine(t *testing.T) {
	gpio := NewGPIO()
	line, err := gpio.OpenInput(17)
	require.NoError(t, err)

	active, err := line.Read()
	require.NoError(t, err)
	assert.False(t, active)

	gpio.SetLevel(17, true)
	active, err = line.Read()
	require.NoError(t, err)
	assert.True(t, active)

	require.NoError(t, gpio.Close())
	_, err = line.Read()
	assert.Error(t, err, "reads after provider close must fail")
	assert.True(t, gpio.Closed())
}

func TestGPIOOpenFailureInjection(t *testing.T) {
	gpio := NewGPIO()
	gpio.FailOpen(errors.New("pin claimed by another process"))
	_, err := gpio.OpenInput(4)
	assert.Error(t, err)
}

func TestIMUCancelledContext(t *testing.T) {
	imu := NewIMU()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := imu.ReadOrientation(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
