package safety

import (
	"time"
)

// ChannelStatus is one channel's slice of a status snapshot.
type ChannelStatus struct {
	Class       Class   `json:"class"`
	DutyFactor  float64 `json:"dutyFactor"`
	CurrentAmps float64 `json:"currentAmps"`
	InFlight    bool    `json:"inFlight"`
	TargetDeg   float64 `json:"targetDeg,omitempty"`
}

// Status is an immutable snapshot of the safety subsystem, produced on
// demand and never mutated after construction.
type Status struct {
	Safe            bool                  `json:"safe"`
	EStop           EStopState            `json:"estop"`
	EStopSource     string                `json:"estopSource,omitempty"`
	WatchdogHealthy bool                  `json:"watchdogHealthy"`
	Channels        map[int]ChannelStatus `json:"channels"`
	LastFaultSource string                `json:"lastFaultSource,omitempty"`
	LastFaultAt     time.Time             `json:"lastFaultAt,omitempty"`
	GeneratedAt     time.Time             `json:"generatedAt"`
}

// Registration brackets one in-flight actuator command so mid-motion faults
// can be attributed to the right channel.
type Registration struct {
	Channel      int       `json:"channel"`
	TargetDeg    float64   `json:"targetDeg"`
	RegisteredAt time.Time `json:"registeredAt"`
	InFlight     bool      `json:"inFlight"`
}
