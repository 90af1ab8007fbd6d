package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/robot-control/roc/internal/audit"
	"github.com/robot-control/roc/internal/config"
	"github.com/robot-control/roc/internal/logging"
	"github.com/robot-control/roc/internal/metrics"
	"github.com/robot-control/roc/internal/robot"
	"github.com/robot-control/roc/internal/telemetry"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the orchestrator's control loop",
	Long: `Starts the safety subsystem and runs the control loop until a
termination signal arrives. Configuration comes from defaults overridden by
ROC_* environment variables.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		levelName, _ := cmd.Flags().GetString("log-level")
		auditDir, _ := cmd.Flags().GetString("audit-dir")
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
		maxIterations, _ := cmd.Flags().GetInt("max-iterations")
		hardware, _ := cmd.Flags().GetBool("hardware")

		logger := logging.New(parseLevel(levelName))

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg.HardwareEnabled = hardware
		if hardware {
			// Real driver wiring lives outside this binary for now; the
			// container is exercised simulated.
			return fmt.Errorf("hardware mode is not wired in this build, run simulated")
		}

		hub := telemetry.NewHub(cfg.EventBufferSize)
		defer hub.Stop()

		auditLogger, err := audit.NewLogger(auditDir)
		if err != nil {
			return fmt.Errorf("failed to initialize audit logger: %w", err)
		}
		defer auditLogger.Close()

		registry := prometheus.NewRegistry()
		met := metrics.New(registry)

		orch, err := robot.New(robot.Config{
			Settings: cfg,
			Hub:      hub,
			Audit:    auditLogger,
			Metrics:  met,
			Logger:   logger,
		})
		if err != nil {
			return err
		}

		guard, ok := orch.Acquire()
		if !ok {
			return fmt.Errorf("orchestrator failed to start")
		}
		defer guard.Release()

		if metricsAddr != "" {
			startMetricsServer(metricsAddr, registry, logger)
		}

		go logEvents(hub.Subscribe(), logger)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		logger.Info("control loop running",
			"loopPeriod", cfg.LoopPeriod,
			"audit", auditLogger.Path(),
			"pid", os.Getpid())

		if err := orch.RunControlLoop(ctx, nil, maxIterations); err != nil && ctx.Err() == nil {
			return err
		}

		diag := orch.Diagnostics()
		logger.Info("control loop finished", "state", diag["state"], "loop", diag["loop"])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("audit-dir", "logs", "Directory for the JSONL audit trail")
	runCmd.Flags().String("metrics-addr", "", "Prometheus endpoint address, e.g. :2112 (disabled when empty)")
	runCmd.Flags().Int("max-iterations", 0, "Stop after N loop iterations (0 = run until signalled)")
	runCmd.Flags().Bool("hardware", false, "Use real hardware drivers instead of simulated backends")
}

// logEvents mirrors hub events into the application log so a simulated run
// is observable without a subscriber of its own.
func logEvents(sub *telemetry.Subscription, logger *slog.Logger) {
	defer sub.Cancel()
	for event := range sub.Events {
		logger.Info("event", "type", event.Type, "data", event.Data)
	}
}

func startMetricsServer(addr string, registry *prometheus.Registry, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("metrics endpoint listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics endpoint failed", "err", err)
		}
	}()
}

func parseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
