// Package safety implements the fail-safe subsystem: the emergency-stop
// monitor, the watchdog, and the current/stall limiter, fused by the
// Coordinator into a single authority on whether actuation is allowed.
//
// Lock ordering. The Coordinator owns one mutex; the EStopMonitor and the
// Watchdog each own an internal mutex guarding only their own fields. The
// permitted order is coordinator lock, then collaborator lock. Both monitor
// goroutines invoke their trip callbacks with no internal lock held, so the
// reverse order never occurs. The Limiter has no lock of its own: every call
// into it happens under the coordinator lock.
//
// I/O discipline. The coordinator lock is never held across collaborator
// I/O: current-sensor sweeps, GPIO reads, and actuator disable calls all
// happen with the lock released, and only the resulting values are folded
// into state under the lock.
package safety
