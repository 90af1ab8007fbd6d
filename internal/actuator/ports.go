// Package actuator defines the stable southbound hardware ports consumed by
// the container: servo driving, per-channel current sensing, IMU orientation,
// and GPIO access for the emergency-stop circuit.
//
// The container never talks to hardware except through these interfaces;
// real and simulated backends are selected at construction.
package actuator

import (
	"context"
)

// Orientation is a single IMU sample in radians.
type Orientation struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// ServoDriver is the actuator backend contract.
type ServoDriver interface {
	// SetAngle commands one servo channel to the given angle in degrees.
	SetAngle(ctx context.Context, channel int, degrees float64) error

	// DisableAll cuts drive to every output. It is the only driver call the
	// safety trip path is allowed to make.
	DisableAll(ctx context.Context) error
}

// CurrentSensor reports drawn current per actuator channel.
type CurrentSensor interface {
	// ReadCurrent returns the instantaneous draw on a channel in amps.
	ReadCurrent(ctx context.Context, channel int) (float64, error)
}

// IMU reports body orientation. Optional: a nil or inert IMU is valid.
type IMU interface {
	ReadOrientation(ctx context.Context) (Orientation, error)
}

// InputLine is a claimed digital input.
type InputLine interface {
	// Read returns the active level of the line.
	Read() (bool, error)

	// Close releases the line back to the provider.
	Close() error
}

// GPIOProvider claims digital I/O lines. Optional: an inert provider backs
// fully simulated operation.
type GPIOProvider interface {
	// OpenInput claims a pin as a digital input.
	OpenInput(pin int) (InputLine, error)

	// Close releases every line still claimed through this provider.
	Close() error
}
