// Driver error normalization.
//
// Servo driver backends report failures in vendor-specific vocabularies.
// This file provides table-driven mapping of driver error messages to the
// container's normalized driver codes without heuristics: unknown tokens map
// to INTERNAL, and the original error is preserved for diagnostics.
package actuator

import (
	"errors"
	"fmt"
	"strings"
)

// Normalized driver error codes.
var (
	ErrOverload    = errors.New("OVERLOAD")
	ErrBusFault    = errors.New("BUS_FAULT")
	ErrUnavailable = errors.New("UNAVAILABLE")
	ErrInternal    = errors.New("INTERNAL")
)

// DriverMap defines the error token mapping for a driver family.
type DriverMap struct {
	Overload    []string // Tokens that map to OVERLOAD
	Bus         []string // Tokens that map to BUS_FAULT
	Unavailable []string // Tokens that map to UNAVAILABLE
}

// DriverErrorMappings contains the deterministic error mapping tables per
// driver family. Unknown families fall back to "generic"; unknown tokens
// map to INTERNAL.
var DriverErrorMappings = map[string]DriverMap{
	"pca9685": {
		Overload: []string{
			"OVERLOAD",
			"OVER_CURRENT",
			"OVER_TEMP",
			"THERMAL_SHUTDOWN",
		},
		Bus: []string{
			"I2C_ERROR",
			"I2C_NACK",
			"BUS_ERROR",
			"NO_ACK",
			"CRC_MISMATCH",
			"TIMEOUT",
		},
		Unavailable: []string{
			"NOT_READY",
			"POWER_DOWN",
			"OSCILLATOR_OFF",
			"DEVICE_OFFLINE",
		},
	},
	"generic": {
		Overload: []string{
			"OVERLOAD",
			"OVER_CURRENT",
			"STALL",
			"THERMAL",
		},
		Bus: []string{
			"BUS",
			"TIMEOUT",
			"NO_ACK",
			"CHECKSUM",
		},
		Unavailable: []string{
			"UNAVAILABLE",
			"NOT_READY",
			"OFFLINE",
			"DISABLED",
		},
	},
}

// DriverError wraps a driver error with its normalized code and the channel
// the command targeted.
type DriverError struct {
	Code     error // Normalized driver code
	Original error // Driver error
	Channel  int
}

func (e *DriverError) Error() string {
	return fmt.Sprintf("%v on channel %d (driver: %v)", e.Code, e.Channel, e.Original)
}

func (e *DriverError) Unwrap() error {
	return e.Code
}

// NormalizeDriverError maps a driver error to a normalized code using the
// generic token table.
func NormalizeDriverError(driverErr error, channel int) error {
	return NormalizeDriverErrorWithFamily(driverErr, channel, "generic")
}

// NormalizeDriverErrorWithFamily maps a driver error using a specific driver
// family's token table.
func NormalizeDriverErrorWithFamily(driverErr error, channel int, family string) error {
	if driverErr == nil {
		return nil
	}

	return &DriverError{
		Code:     mapDriverErrorToCode(driverErr.Error(), family),
		Original: driverErr,
		Channel:  channel,
	}
}

func mapDriverErrorToCode(msg string, family string) error {
	driverMap, exists := DriverErrorMappings[family]
	if !exists {
		driverMap = DriverErrorMappings["generic"]
	}

	upperMsg := strings.ToUpper(msg)

	for _, token := range driverMap.Overload {
		if strings.Contains(upperMsg, token) {
			return ErrOverload
		}
	}

	for _, token := range driverMap.Bus {
		if strings.Contains(upperMsg, token) {
			return ErrBusFault
		}
	}

	for _, token := range driverMap.Unavailable {
		if strings.Contains(upperMsg, token) {
			return ErrUnavailable
		}
	}

	return ErrInternal
}
