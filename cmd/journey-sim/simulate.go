package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"journey-sim/internal/admin"
	"journey-sim/internal/config"
	"journey-sim/internal/logging"
	"journey-sim/internal/observability"
	"journey-sim/internal/sim"
)

var (
	simConfigPath   string
	simSchemaPath   string
	simTransport    string
	simLogFile      string
	simTick         time.Duration
	simSeed         int64
	simDeviceID     string
	simMaxTicks     int
	simEmitArrival  bool
	simEnsureTopics bool
	simAdminAddr    string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Drive the vehicle to its destination, publishing telemetry",
	Long:  "simulate ticks the journey at a fixed interval and publishes one vehicle, GPS, weather and traffic-camera record per tick until the vehicle arrives.",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger(simTransport)

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx = logging.NewContext(ctx, log)

		tracingCfg := observability.TracingConfigFromEnv()
		tracingCfg.Writer = os.Stderr
		shutdownTracing, err := observability.InitTracing(ctx, tracingCfg, log)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

		metrics, err := observability.NewJourneyCollector(nil)
		if err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}

		if simEnsureTopics && simTransport == transportKafka {
			if err := sim.EnsureTopics(ctx, cfg.Kafka, cfg.Topics.All(), log); err != nil {
				return fmt.Errorf("ensure topics: %w", err)
			}
		}

		writer, cleanup, err := newWriter(ctx, cfg, simTransport, simLogFile, log)
		if err != nil {
			return err
		}
		defer cleanup()

		simulator := sim.NewSimulator(cfg, writer, sim.WithMetrics(metrics))

		if simAdminAddr != "" {
			srv := admin.NewServer(simulator, metrics.Handler())
			go func() {
				if err := srv.Start(ctx, simAdminAddr); err != nil {
					log.Error("admin server failed", "err", err)
				}
			}()
		}

		if err := finishRun(cmd.OutOrStdout(), simulator.Run(ctx), cleanup); err != nil {
			return err
		}
		st := simulator.Status()
		log.Info("simulation finished", "ticks", st.Ticks, "published", st.Published, "failed", st.Failed)
		return nil
	},
}

// finishRun closes the writers before reporting how the run ended, so the
// notice is not swallowed by the terminal dashboard.
func finishRun(out io.Writer, runErr error, cleanup func()) error {
	cleanup()
	switch {
	case errors.Is(runErr, context.Canceled):
		fmt.Fprintln(out, "simulation ended by user")
		return nil
	case runErr != nil:
		return fmt.Errorf("simulation failed: %w", runErr)
	}
	return nil
}

// loadConfig reads the config file, then applies environment variables and
// finally explicitly set flags.
func loadConfig(cmd *cobra.Command) (*config.JourneyConfig, error) {
	schema := simSchemaPath
	if _, err := os.Stat(schema); err != nil {
		schema = ""
	}
	cfg, err := config.Load(simConfigPath, schema)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("tick") {
		cfg.TickInterval = simTick
	}
	if flags.Changed("seed") {
		cfg.Seed = simSeed
	}
	if flags.Changed("device-id") {
		cfg.DeviceID = simDeviceID
	}
	if flags.Changed("max-ticks") {
		cfg.MaxTicks = simMaxTicks
	}
	if flags.Changed("emit-arrival") {
		cfg.EmitArrival = simEmitArrival
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func init() {
	simulateCmd.Flags().StringVar(&simConfigPath, "config", "", "Path to journey configuration YAML (defaults to London to Birmingham)")
	simulateCmd.Flags().StringVar(&simSchemaPath, "schema", "schemas/journey.cue", "Path to CUE schema file")
	simulateCmd.Flags().StringVar(&simTransport, "transport", transportKafka, "Record transport (kafka, mqtt, stdout, color, tui)")
	simulateCmd.Flags().StringVar(&simLogFile, "log-file", "", "Also append published records to this JSONL file")
	simulateCmd.Flags().DurationVar(&simTick, "tick", 5*time.Second, "Wall-clock pause between ticks (e.g. 500ms, 5s)")
	simulateCmd.Flags().Int64Var(&simSeed, "seed", 42, "Random seed; 0 seeds from the clock")
	simulateCmd.Flags().StringVar(&simDeviceID, "device-id", "", "Device identifier stamped on every record")
	simulateCmd.Flags().IntVar(&simMaxTicks, "max-ticks", 0, "Stop after this many ticks (0 = until arrival)")
	simulateCmd.Flags().BoolVar(&simEmitArrival, "emit-arrival", false, "Publish the tick on which the vehicle arrives")
	simulateCmd.Flags().BoolVar(&simEnsureTopics, "ensure-topics", false, "Create missing Kafka topics before starting")
	simulateCmd.Flags().StringVar(&simAdminAddr, "admin-addr", ":8080", "Admin HTTP address for /status and /metrics (empty disables)")
}
