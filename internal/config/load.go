package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Load merges Default() with ROC_* environment variable overrides and
// validates the result.
func Load() (*Config, error) {
	cfg := Default()

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies ROC_* environment variables to the config.
// Unparseable values are ignored in favor of the baseline.
func applyEnvOverrides(cfg *Config) error {
	// Control loop
	if val := os.Getenv("ROC_LOOP_PERIOD"); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			cfg.LoopPeriod = duration
		}
	}

	// Safety subsystem timing
	if val := os.Getenv("ROC_WATCHDOG_TIMEOUT"); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			cfg.WatchdogTimeout = duration
		}
	}

	if val := os.Getenv("ROC_ESTOP_POLL_INTERVAL"); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			cfg.EStopPollInterval = duration
		}
	}

	if val := os.Getenv("ROC_MONITOR_JOIN_TIMEOUT"); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			cfg.MonitorJoinTimeout = duration
		}
	}

	// Current limiter thresholds
	if val := os.Getenv("ROC_STALL_CURRENT_AMPS"); val != "" {
		if amps, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.StallCurrentAmps = amps
		}
	}

	if val := os.Getenv("ROC_STALL_DEBOUNCE"); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			cfg.StallDebounce = duration
		}
	}

	if val := os.Getenv("ROC_THERMAL_CURRENT_AMPS"); val != "" {
		if amps, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.ThermalCurrentAmps = amps
		}
	}

	if val := os.Getenv("ROC_THERMAL_TIME_CONSTANT"); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			cfg.ThermalTimeConstant = duration
		}
	}

	if val := os.Getenv("ROC_DUTY_CYCLE_FLOOR"); val != "" {
		if floor, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.DutyCycleFloor = floor
		}
	}

	// Arm geometry
	if val := os.Getenv("ROC_ARM_LINK1_M"); val != "" {
		if length, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.ArmLink1M = length
		}
	}

	if val := os.Getenv("ROC_ARM_LINK2_M"); val != "" {
		if length, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.ArmLink2M = length
		}
	}

	// Emergency-stop input pin
	if val := os.Getenv("ROC_ESTOP_PIN"); val != "" {
		if pin, err := strconv.Atoi(val); err == nil {
			cfg.EStopPin = pin
		}
	}

	// Event buffer configuration
	if val := os.Getenv("ROC_EVENT_BUFFER_SIZE"); val != "" {
		if size, err := strconv.Atoi(val); err == nil {
			cfg.EventBufferSize = size
		}
	}

	// Hardware enable flag
	if val := os.Getenv("ROC_HARDWARE_ENABLED"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			cfg.HardwareEnabled = enabled
		}
	}

	return nil
}
