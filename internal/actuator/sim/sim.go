// Package sim provides simulated hardware backends so the container can run
// with no physical I/O at all. Every backend is safe for concurrent use and
// scriptable from tests: current draw, orientation, the emergency-stop line
// level, and injected driver failures are all settable at runtime.
package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robot-control/roc/internal/actuator"
)

// Servo is an in-memory servo driver.
type Servo struct {
	mu       sync.Mutex
	angles   map[int]float64
	disabled bool

	// Error simulation
	failSetAngle   error
	failDisableAll error

	setAngleCalls   int
	disableAllCalls int
}

// NewServo creates a simulated servo driver.
func NewServo() *Servo {
	return &Servo{angles: make(map[int]float64)}
}

// SetAngle records the commanded angle for a channel.
func (s *Servo) SetAngle(ctx context.Context, channel int, degrees float64) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.setAngleCalls++
	if s.failSetAngle != nil {
		return s.failSetAngle
	}
	if s.disabled {
		return errors.New("NOT_READY: outputs disabled")
	}
	if channel < 0 {
		return fmt.Errorf("INVALID channel %d", channel)
	}
	s.angles[channel] = degrees
	return nil
}

// DisableAll cuts drive to every output.
func (s *Servo) DisableAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.disableAllCalls++
	if s.failDisableAll != nil {
		return s.failDisableAll
	}
	s.disabled = true
	return nil
}

// Enable re-arms the outputs after a disable.
func (s *Servo) Enable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disabled = false
}

// Angle returns the last commanded angle for a channel.
func (s *Servo) Angle(channel int) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deg, ok := s.angles[channel]
	return deg, ok
}

// Disabled reports whether DisableAll has cut the outputs.
func (s *Servo) Disabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disabled
}

// FailSetAngle injects an error on subsequent SetAngle calls; nil clears it.
func (s *Servo) FailSetAngle(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSetAngle = err
}

// FailDisableAll injects an error on subsequent DisableAll calls; nil clears it.
func (s *Servo) FailDisableAll(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failDisableAll = err
}

// DisableAllCalls returns how many times DisableAll was invoked.
func (s *Servo) DisableAllCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disableAllCalls
}

// Sensor is a scriptable current sensor. Channels default to zero draw.
type Sensor struct {
	mu       sync.Mutex
	currents map[int]float64
	failRead error
}

// NewSensor creates a simulated current sensor.
func NewSensor() *Sensor {
	return &Sensor{currents: make(map[int]float64)}
}

// ReadCurrent returns the scripted draw for a channel in amps.
func (s *Sensor) ReadCurrent(ctx context.Context, channel int) (float64, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failRead != nil {
		return 0, s.failRead
	}
	return s.currents[channel], nil
}

// SetCurrent scripts the draw reported for a channel.
func (s *Sensor) SetCurrent(channel int, amps float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currents[channel] = amps
}

// FailRead injects an error on subsequent reads; nil clears it.
func (s *Sensor) FailRead(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failRead = err
}

// IMU is a scriptable orientation source.
type IMU struct {
	mu          sync.Mutex
	orientation actuator.Orientation
	failRead    error
	reads       int
}

// NewIMU creates a simulated IMU reporting a level pose.
func NewIMU() *IMU {
	return &IMU{}
}

// ReadOrientation returns the scripted orientation.
func (i *IMU) ReadOrientation(ctx context.Context) (actuator.Orientation, error) {
	select {
	case <-ctx.Done():
		return actuator.Orientation{}, ctx.Err()
	default:
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	i.reads++
	if i.failRead != nil {
		return actuator.Orientation{}, i.failRead
	}
	return i.orientation, nil
}

// SetOrientation scripts the reported pose.
func (i *IMU) SetOrientation(o actuator.Orientation) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.orientation = o
}

// FailRead injects an error on subsequent reads; nil clears it.
func (i *IMU) FailRead(err error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.failRead = err
}

// Reads returns how many orientation reads were made.
func (i *IMU) Reads() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.reads
}

// GPIO is a simulated GPIO provider whose input lines are driven from tests.
type GPIO struct {
	mu     sync.Mutex
	levels map[int]bool
	lines  map[int]*gpioLine
	closed bool

	failOpen error
}

// NewGPIO creates a simulated GPIO provider. All lines read inactive.
func NewGPIO() *GPIO {
	return &GPIO{
		levels: make(map[int]bool),
		lines:  make(map[int]*gpioLine),
	}
}

// OpenInput claims a pin as an input line.
func (g *GPIO) OpenInput(pin int) (actuator.InputLine, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failOpen != nil {
		return nil, g.failOpen
	}
	if g.closed {
		return nil, errors.New("NOT_READY: gpio provider closed")
	}
	line := &gpioLine{provider: g, pin: pin}
	g.lines[pin] = line
	return line, nil
}

// Close releases every claimed line.
func (g *GPIO) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closed = true
	g.lines = make(map[int]*gpioLine)
	return nil
}

// SetLevel drives a pin's level, visible to any claimed line.
func (g *GPIO) SetLevel(pin int, active bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.levels[pin] = active
}

// FailOpen injects an error on subsequent OpenInput calls; nil clears it.
func (g *GPIO) FailOpen(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failOpen = err
}

// Closed reports whether the provider has been released.
func (g *GPIO) Closed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

type gpioLine struct {
	provider *GPIO
	pin      int
}

func (l *gpioLine) Read() (bool, error) {
	l.provider.mu.Lock()
	defer l.provider.mu.Unlock()
	if l.provider.closed {
		return false, errors.New("NOT_READY: gpio provider closed")
	}
	return l.provider.levels[l.pin], nil
}

func (l *gpioLine) Close() error {
	l.provider.mu.Lock()
	defer l.provider.mu.Unlock()
	delete(l.provider.lines, l.pin)
	return nil
}

// Interface conformance.
var (
	_ actuator.ServoDriver   = (*Servo)(nil)
	_ actuator.CurrentSensor = (*Sensor)(nil)
	_ actuator.IMU           = (*IMU)(nil)
	_ actuator.GPIOProvider  = (*GPIO)(nil)
)
