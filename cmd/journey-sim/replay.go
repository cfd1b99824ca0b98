package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"journey-sim/internal/config"
	"journey-sim/internal/logging"
	"journey-sim/internal/sim"
)

var (
	replayInput      string
	replaySpeed      float64
	replayTransport  string
	replayConfigPath string
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a recorded JSONL log",
	Long:  "replay re-publishes records from a --log-file capture to their original channels, keeping the simulated time gaps divided by --speed.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayInput == "" {
			return fmt.Errorf("input file required")
		}
		log := newLogger(replayTransport)

		cfg, err := config.Load(replayConfigPath, "")
		if err != nil {
			return err
		}
		if err := cfg.ApplyEnv(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx = logging.NewContext(ctx, log)

		writer, cleanup, err := newWriter(ctx, cfg, replayTransport, "", log)
		if err != nil {
			return err
		}
		defer cleanup()

		n, err := sim.ReplayLogFile(ctx, replayInput, writer, replaySpeed)
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(cmd.OutOrStdout(), "replay ended by user")
			return nil
		}
		if err != nil {
			return fmt.Errorf("replay failed after %d records: %w", n, err)
		}
		log.Info("replay finished", "records", n)
		return nil
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to JSONL record log")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier (0 = no delay)")
	replayCmd.Flags().StringVar(&replayTransport, "transport", transportStdout, "Record transport (kafka, mqtt, stdout, color, tui)")
	replayCmd.Flags().StringVar(&replayConfigPath, "config", "", "Path to journey configuration YAML for broker settings")
	replayCmd.MarkFlagRequired("input")
}
