// Package telemetry implements the in-process event hub.
//
// The orchestrator and safety coordinator publish state changes, trips,
// faults, and loop overruns; subscribers receive them on buffered channels.
// Publishing never blocks: a subscriber that stops draining loses events and
// the loss is counted. A bounded ring of recent events backs diagnostics.
package telemetry
