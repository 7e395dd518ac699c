package simcmd

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/oshokin/xk6-atomics/internal/logging"
	"github.com/oshokin/xk6-atomics/internal/sim"
	"github.com/oshokin/xk6-atomics/internal/simconfig"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one simulation and print its report",
	Long: `Run starts the configured number of workers and processes every row.

The run fails as soon as one worker times out or is interrupted; the report
is printed either way.`,
	Args: cobra.NoArgs,
	RunE: runSimulation,
}

func init() {
	defaults := simconfig.Default()

	flags := runCmd.Flags()
	flags.IntP("workers", "w", defaults.Workers, "number of concurrent workers")
	flags.IntP("rows", "r", defaults.Rows, "rows processed by every worker")
	flags.Duration("check-period", defaults.CheckPeriod, "delay between polls while waiting")
	flags.Duration("timeout", defaults.Timeout, "bound on every wait, negative waits forever")
	flags.Int("shards", defaults.Shards, "store shard count, 0 selects one per CPU")
	flags.String("shard-hash", defaults.ShardHash, "shard hash: xxhash or fnv")
	flags.String("log-level", defaults.Logging.Level, "log level: debug, info, warn, error")
	flags.String("log-format", defaults.Logging.Format, "log format: text or json")

	bindings := map[string]string{
		"workers":        "workers",
		"rows":           "rows",
		"check_period":   "check-period",
		"timeout":        "timeout",
		"shards":         "shards",
		"shard_hash":     "shard-hash",
		"logging.level":  "log-level",
		"logging.format": "log-format",
	}

	for key, flag := range bindings {
		_ = viper.BindPFlag(key, flags.Lookup(flag))
	}

	rootCmd.AddCommand(runCmd)
}

func runSimulation(cmd *cobra.Command, _ []string) error {
	cfg, err := simconfig.Load(viper.GetViper())
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := logging.New(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	runner, err := sim.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create runner: %w", err)
	}

	report, runErr := runner.Run(ctx)

	if _, err := report.WriteTo(cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if runErr != nil {
		return fmt.Errorf("simulation failed: %w", runErr)
	}

	return nil
}
