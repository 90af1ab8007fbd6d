package config

import (
	"fmt"
)

// Validate enforces the timing and threshold rules the safety subsystem
// depends on.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config cannot be nil")
	}

	// Validate control loop timing
	if err := validateLoop(cfg); err != nil {
		return fmt.Errorf("loop validation failed: %w", err)
	}

	// Validate limiter thresholds
	if err := validateLimiter(cfg); err != nil {
		return fmt.Errorf("limiter validation failed: %w", err)
	}

	// Validate arm geometry and channel limits
	if err := validateArm(cfg); err != nil {
		return fmt.Errorf("arm validation failed: %w", err)
	}

	// Validate event buffer configuration
	if cfg.EventBufferSize <= 0 {
		return fmt.Errorf("event buffer size must be positive, got %d", cfg.EventBufferSize)
	}

	return nil
}

// validateLoop validates control loop and monitor timing parameters.
func validateLoop(cfg *Config) error {
	// Loop period must be positive
	if cfg.LoopPeriod <= 0 {
		return fmt.Errorf("loop period must be positive, got %v", cfg.LoopPeriod)
	}

	// Watchdog timeout must be longer than the loop period, otherwise a
	// healthy loop can never feed it in time
	if cfg.WatchdogTimeout <= cfg.LoopPeriod {
		return fmt.Errorf("watchdog timeout %v must exceed loop period %v", cfg.WatchdogTimeout, cfg.LoopPeriod)
	}

	if cfg.EStopPollInterval <= 0 {
		return fmt.Errorf("estop poll interval must be positive, got %v", cfg.EStopPollInterval)
	}

	if cfg.MonitorJoinTimeout <= 0 {
		return fmt.Errorf("monitor join timeout must be positive, got %v", cfg.MonitorJoinTimeout)
	}

	return nil
}

// validateLimiter validates current limiter thresholds.
func validateLimiter(cfg *Config) error {
	if cfg.StallCurrentAmps <= 0 {
		return fmt.Errorf("stall current must be positive, got %v", cfg.StallCurrentAmps)
	}

	// Debounce must cover at least one loop tick, or a single sample could
	// confirm a stall
	if cfg.StallDebounce < cfg.LoopPeriod {
		return fmt.Errorf("stall debounce %v must be >= loop period %v", cfg.StallDebounce, cfg.LoopPeriod)
	}

	if cfg.ThermalCurrentAmps <= 0 {
		return fmt.Errorf("thermal current must be positive, got %v", cfg.ThermalCurrentAmps)
	}
	if cfg.ThermalCurrentAmps > cfg.StallCurrentAmps {
		return fmt.Errorf("thermal current %v must be <= stall current %v", cfg.ThermalCurrentAmps, cfg.StallCurrentAmps)
	}

	if cfg.ThermalTimeConstant <= 0 {
		return fmt.Errorf("thermal time constant must be positive, got %v", cfg.ThermalTimeConstant)
	}

	if cfg.DutyCycleFloor <= 0 || cfg.DutyCycleFloor >= 1 {
		return fmt.Errorf("duty cycle floor must be in (0, 1), got %v", cfg.DutyCycleFloor)
	}

	return nil
}

// validateArm validates arm geometry and per-channel limits.
func validateArm(cfg *Config) error {
	if cfg.ArmLink1M <= 0 || cfg.ArmLink2M <= 0 {
		return fmt.Errorf("arm link lengths must be positive, got %v and %v", cfg.ArmLink1M, cfg.ArmLink2M)
	}

	if !cfg.HasChannel(cfg.ArmShoulderChannel) {
		return fmt.Errorf("arm shoulder channel %d has no channel limit entry", cfg.ArmShoulderChannel)
	}
	if !cfg.HasChannel(cfg.ArmElbowChannel) {
		return fmt.Errorf("arm elbow channel %d has no channel limit entry", cfg.ArmElbowChannel)
	}

	seen := make(map[int]bool, len(cfg.Channels))
	for _, limit := range cfg.Channels {
		if limit.Index < 0 {
			return fmt.Errorf("channel index must be non-negative, got %d", limit.Index)
		}
		if seen[limit.Index] {
			return fmt.Errorf("duplicate channel index %d", limit.Index)
		}
		seen[limit.Index] = true

		if limit.MinAngleDeg >= limit.MaxAngleDeg {
			return fmt.Errorf("channel %d: min angle %v must be below max angle %v", limit.Index, limit.MinAngleDeg, limit.MaxAngleDeg)
		}
	}

	return nil
}
