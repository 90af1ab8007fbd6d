package robot

import (
	"context"
	"fmt"
	"time"

	"github.com/robot-control/roc/internal/safety"
	"github.com/robot-control/roc/internal/state"
	"github.com/robot-control/roc/internal/telemetry"
)

// StepFunc is the caller-supplied body of one control-loop iteration. An
// error (or panic) escaping it is converted into an emergency stop; it never
// propagates past Step.
type StepFunc func(o *Orchestrator) error

// Step runs a single control-loop iteration: the watchdog gate, an
// orientation read, the caller's callback, then a sleep holding the fixed
// cadence. It returns false when the loop should terminate: the state left
// ready, a safety check failed, or the callback failed.
func (o *Orchestrator) Step(ctx context.Context, fn StepFunc) bool {
	start := time.Now()

	if o.State() != state.StateReady {
		return false
	}

	if !o.safety.FeedWatchdog(ctx) {
		// The gate has already tripped; mirror it in the state machine.
		o.forceEStopped(string(state.EventTrip))
		return false
	}

	o.readOrientation(ctx)

	if fn != nil {
		if err := o.invokeCallback(fn); err != nil {
			o.logger.Error("loop callback failed", "err", err)
			o.EmergencyStop(safety.SourceCallbackError)
			return false
		}
	}

	compute := time.Since(start)
	o.recordStep(compute)
	o.holdCadence(ctx, compute)
	return true
}

// RunControlLoop invokes Step until it reports termination, the context is
// cancelled, or maxIterations steps have run. maxIterations <= 0 means
// unbounded. Loop termination through Step is normal, not an error.
func (o *Orchestrator) RunControlLoop(ctx context.Context, fn StepFunc, maxIterations int) error {
	for i := 0; maxIterations <= 0 || i < maxIterations; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if !o.Step(ctx, fn) {
			return nil
		}
	}
	return nil
}

// invokeCallback shields the loop from the callback: a panic is recovered
// and reported as the iteration's error.
func (o *Orchestrator) invokeCallback(fn StepFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("callback panic: %v", r)
		}
	}()
	return fn(o)
}

// readOrientation samples the IMU when one is present. Failures are absorbed:
// logged, last-known orientation kept, never fatal to the loop.
func (o *Orchestrator) readOrientation(ctx context.Context) {
	if o.imu == nil {
		return
	}
	orientation, err := o.imu.ReadOrientation(ctx)
	if err != nil {
		o.logger.Debug("imu read failed", "err", err)
		return
	}
	o.mu.Lock()
	o.orientation = orientation
	o.orientationAt = time.Now()
	o.mu.Unlock()
}

// holdCadence sleeps out the remainder of the loop period. A computation
// that already exceeded the period is an overrun: logged and counted, the
// next iteration starts immediately.
func (o *Orchestrator) holdCadence(ctx context.Context, compute time.Duration) {
	remaining := o.cfg.LoopPeriod - compute
	if remaining <= 0 {
		o.mu.Lock()
		o.overruns++
		o.mu.Unlock()

		o.logger.Warn("loop overrun", "compute", compute, "period", o.cfg.LoopPeriod)
		o.met.IncOverrun()
		if o.hub != nil {
			o.hub.Publish(telemetry.Event{Type: "loopOverrun", Data: map[string]interface{}{
				"computeMs": float64(compute) / float64(time.Millisecond),
			}})
		}
		return
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

func (o *Orchestrator) recordStep(d time.Duration) {
	o.mu.Lock()
	o.iterations++
	o.lastStep = d
	if d > o.maxStep {
		o.maxStep = d
	}
	o.mu.Unlock()

	o.met.ObserveStep(d.Seconds())
}
