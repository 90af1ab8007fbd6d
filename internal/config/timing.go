package config

import (
	"time"
)

// Config holds the timing, threshold, and geometry parameters for the robot
// container. All fields have safe baselines; construction-time overrides and
// ROC_* environment variables refine them.
type Config struct {
	// Control loop cadence
	LoopPeriod time.Duration

	// Safety subsystem timing
	WatchdogTimeout    time.Duration
	EStopPollInterval  time.Duration
	MonitorJoinTimeout time.Duration

	// Current limiter thresholds
	StallCurrentAmps    float64
	StallDebounce       time.Duration
	ThermalCurrentAmps  float64
	ThermalTimeConstant time.Duration
	DutyCycleFloor      float64

	// Arm geometry (meters) and joint routing
	ArmLink1M          float64
	ArmLink2M          float64
	ArmShoulderChannel int
	ArmElbowChannel    int

	// Per-channel servo limits
	Channels []ChannelLimit

	// Emergency-stop input pin
	EStopPin int

	// Event buffer configuration
	EventBufferSize int

	// HardwareEnabled selects real backends; false runs fully simulated.
	HardwareEnabled bool
}

// ChannelLimit bounds the commanded angle for one servo channel.
type ChannelLimit struct {
	Index       int     `json:"index"`
	Name        string  `json:"name"`
	MinAngleDeg float64 `json:"minAngleDeg"`
	MaxAngleDeg float64 `json:"maxAngleDeg"`
}

// Default returns the baseline configuration: a 50 Hz loop, a 500 ms
// watchdog, and limiter thresholds suited to small hobby servos.
func Default() *Config {
	return &Config{
		LoopPeriod: 20 * time.Millisecond, // 50 Hz

		WatchdogTimeout:    500 * time.Millisecond,
		EStopPollInterval:  5 * time.Millisecond,
		MonitorJoinTimeout: 1 * time.Second,

		StallCurrentAmps:    1.8,
		StallDebounce:       100 * time.Millisecond, // 5 loop ticks at 50 Hz
		ThermalCurrentAmps:  1.0,
		ThermalTimeConstant: 2 * time.Second,
		DutyCycleFloor:      0.10,

		ArmLink1M:          0.105,
		ArmLink2M:          0.088,
		ArmShoulderChannel: 2,
		ArmElbowChannel:    3,

		Channels: []ChannelLimit{
			{Index: 0, Name: "pan", MinAngleDeg: -90, MaxAngleDeg: 90},
			{Index: 1, Name: "tilt", MinAngleDeg: -45, MaxAngleDeg: 90},
			{Index: 2, Name: "shoulder", MinAngleDeg: -90, MaxAngleDeg: 90},
			{Index: 3, Name: "elbow", MinAngleDeg: 0, MaxAngleDeg: 135},
			{Index: 4, Name: "wrist", MinAngleDeg: -90, MaxAngleDeg: 90},
			{Index: 5, Name: "gripper", MinAngleDeg: 0, MaxAngleDeg: 60},
		},

		EStopPin: 17,

		EventBufferSize: 50,

		HardwareEnabled: false,
	}
}

// ChannelLimitFor returns the limit entry for a channel index.
func (c *Config) ChannelLimitFor(channel int) (ChannelLimit, bool) {
	for _, limit := range c.Channels {
		if limit.Index == channel {
			return limit, true
		}
	}
	return ChannelLimit{}, false
}

// HasChannel reports whether a channel index is configured.
func (c *Config) HasChannel(channel int) bool {
	_, ok := c.ChannelLimitFor(channel)
	return ok
}
