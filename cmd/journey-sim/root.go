package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"journey-sim/internal/logging"
)

var (
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:           "journey-sim",
	Short:         "Vehicle journey telemetry simulator",
	Long:          "journey-sim drives a simulated vehicle between two coordinates and publishes vehicle, GPS, weather and traffic-camera records to Kafka or MQTT.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", envOr("LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", envOr("LOG_FORMAT", "text"), "Log format (text, json)")
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(dashboardCmd)
}

// newLogger keeps logs off the stream the transport prints records to.
func newLogger(transport string) *slog.Logger {
	var out io.Writer = os.Stdout
	switch transport {
	case transportStdout, transportColor:
		out = os.Stderr
	case transportTUI:
		out = io.Discard
	}
	return logging.NewWithWriter(out, logLevel, logFormat)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
