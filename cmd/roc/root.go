package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "roc",
	Short: "roc is a fail-safe robot orchestration container",
	Long: `roc runs the robot control loop with its safety subsystem: an
emergency-stop monitor, a watchdog, and a per-channel current limiter.
Without --hardware it runs fully simulated, with no physical I/O.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
}
