package robot

import (
	"context"
	"fmt"
	"time"

	"github.com/robot-control/roc/internal/actuator"
	"github.com/robot-control/roc/internal/fault"
	"github.com/robot-control/roc/internal/safety"
	"github.com/robot-control/roc/internal/state"
	"github.com/robot-control/roc/internal/telemetry"
)

// SetServoAngle commands one channel to an absolute angle. Failure modes:
// a *fault.StateError outside the ready state, a plain validation error for
// an unknown channel or out-of-range angle, a *fault.SafetyViolation when
// the safety gate blocks the channel, and a *fault.HardwareFault when the
// driver itself fails. The last also trips the emergency stop, because an
// actuator that does not obey commands cannot be trusted to hold position.
func (o *Orchestrator) SetServoAngle(ctx context.Context, channel int, degrees float64) error {
	start := time.Now()

	if cur := o.State(); cur != state.StateReady {
		err := &fault.StateError{State: string(cur), Event: "setServoAngle"}
		o.auditCommand(ctx, channel, degrees, "rejected", start)
		return err
	}

	limit, ok := o.cfg.ChannelLimitFor(channel)
	if !ok {
		o.auditCommand(ctx, channel, degrees, "rejected", start)
		return fmt.Errorf("channel %d not configured", channel)
	}
	if degrees < limit.MinAngleDeg || degrees > limit.MaxAngleDeg {
		o.auditCommand(ctx, channel, degrees, "rejected", start)
		return fmt.Errorf("channel %d (%s): angle %.1f outside [%.1f, %.1f]",
			channel, limit.Name, degrees, limit.MinAngleDeg, limit.MaxAngleDeg)
	}

	// The gate and the in-flight registration are atomic, so a trip can
	// never slip in between a passed check and the command.
	allowed, reason := o.safety.RegisterMovement(channel, degrees)
	if !allowed {
		o.met.IncBlocked()
		o.auditCommand(ctx, channel, degrees, "blocked", start)
		return &fault.SafetyViolation{Channel: channel, Reason: reason}
	}

	err := o.servo.SetAngle(ctx, channel, degrees)
	o.safety.CompleteMovement(channel)
	if err != nil {
		normalized := actuator.NormalizeDriverError(err, channel)
		o.logger.Error("servo command failed", "channel", channel, "err", normalized)
		o.auditCommand(ctx, channel, degrees, "failed", start)
		o.EmergencyStop(safety.SourceHardwareFault)
		return &fault.HardwareFault{Channel: channel, Op: "setAngle", Original: normalized}
	}

	o.auditCommand(ctx, channel, degrees, "success", start)
	if o.hub != nil {
		o.hub.Publish(telemetry.Event{Type: "servoCommand", Data: map[string]interface{}{
			"channel": channel,
			"degrees": degrees,
		}})
	}
	return nil
}

// SetArmPosition moves the 2-link arm's end effector to a planar target.
// Unreachable targets return (false, nil) without any motion; reachable ones
// resolve to joint angles, each routed through SetServoAngle so every joint
// passes the same validation and safety gate.
func (o *Orchestrator) SetArmPosition(ctx context.Context, x, y float64, elbowUp bool) (bool, error) {
	solution, ok := o.solver.Solve(x, y, elbowUp)
	if !ok {
		o.logger.Info("arm target unreachable", "x", x, "y", y)
		return false, nil
	}

	if err := o.SetServoAngle(ctx, o.cfg.ArmShoulderChannel, solution.ShoulderDeg); err != nil {
		return false, err
	}
	if err := o.SetServoAngle(ctx, o.cfg.ArmElbowChannel, solution.ElbowDeg); err != nil {
		return false, err
	}
	return true, nil
}

func (o *Orchestrator) auditCommand(ctx context.Context, channel int, degrees float64, outcome string, start time.Time) {
	if o.aud == nil {
		return
	}
	o.aud.LogActionParams(ctx, "setServoAngle", channel, outcome, time.Since(start), map[string]interface{}{
		"degrees": degrees,
	})
}
