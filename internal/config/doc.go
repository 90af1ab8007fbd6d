// Package config holds the timing, threshold, and geometry configuration for
// the robot container.
//
// Baseline values come from Default(); ROC_* environment variables override
// individual fields, and Validate() enforces the cross-field rules the safety
// subsystem depends on (watchdog timeout above loop period, stall debounce of
// at least one tick, duty cycle floor inside (0, 1)).
package config
