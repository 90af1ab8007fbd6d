// Package robot implements the orchestrator: the single public-facing
// object owning the state machine, the safety coordinator, and the actuator
// handles.
//
// The control loop is cooperative and single-goroutine: the caller drives
// Step (or RunControlLoop) and nothing inside a step blocks except the
// deliberate end-of-period sleep. The safety subsystem's two monitor
// goroutines may trip asynchronously at any time, including mid-step; the
// orchestrator observes the trip at the next watchdog gate or, for commands,
// at the atomic check-and-register inside SetServoAngle. The servo driver is
// commanded only from the loop goroutine; monitor goroutines reach hardware
// solely through the coordinator's disable-all trip path.
package robot
