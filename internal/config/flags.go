package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "fetchbench",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Workload flags
	flags.String("items", "", "Path to the workload file (JSON, CSV, or newline-delimited URLs)")
	flags.String("items-json-path", "", "JSON path of the URL array inside the items file")
	flags.IntP("synthetic", "n", 0, "Generate a synthetic workload of this many items")
	flags.String("synthetic-pattern", "", "URL pattern for synthetic items (one %d verb)")

	// Run control flags
	flags.StringP("mode", "m", "", "Unit of work: 'simulate' or 'http'")
	flags.StringP("strategy", "s", "", "Concurrency strategy: 'threads' or 'bounded'")
	flags.IntP("concurrency", "c", 10, "Worker count (threads) or in-flight cap (bounded)")
	flags.Duration("timeout", 30*time.Second, "Per-item timeout")
	flags.IntP("rate", "r", 0, "Item dispatches per second (0 means unlimited)")
	flags.Int("retries", 0, "Retry attempts per item after the first try")
	flags.Duration("retry-delay", 0, "Delay between retry attempts")

	// Comparison flags
	flags.Bool("compare", false, "Run a baseline strategy first and compare the two runs")
	flags.String("baseline-strategy", "", "Baseline strategy for --compare (defaults to the other strategy)")
	flags.Int("baseline-concurrency", 0, "Baseline concurrency for --compare (defaults to --concurrency)")

	// Simulation flags
	flags.Duration("sim-min-latency", 0, "Minimum simulated fetch latency")
	flags.Duration("sim-max-latency", 0, "Maximum simulated fetch latency")
	flags.Float64("sim-failure-rate", 0, "Simulated failure probability (0 to 1)")
	flags.Int64("sim-seed", 0, "Simulation seed for reproducible runs")

	// Monitor flags
	flags.Bool("no-monitor", false, "Disable background resource sampling")
	flags.Duration("monitor-interval", 0, "Resource sampling interval")

	// Output flags
	flags.Bool("json-output", false, "Emit JSON formatted output")
	flags.Bool("dashboard", false, "Show live terminal dashboard")
	flags.Bool("log-errors", false, "Log each failed item to stderr")
	flags.String("html-output", "", "Write an HTML comparison report to this path")
	flags.String("results-dir", "", "Directory for persisted run results")
	flags.Bool("no-color", false, "Disable colored output")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")

	// Tracing flags
	flags.Bool("tracing", false, "Export run spans over OTLP")
	flags.String("tracing-endpoint", "", "OTLP collector endpoint")
	flags.String("tracing-protocol", "", "OTLP transport: 'grpc' or 'http'")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config,
// overriding values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if fs.Changed("items") {
		val, err := fs.GetString("items")
		if err != nil {
			return err
		}
		cfg.ItemsFile = strings.TrimSpace(val)
	}
	if fs.Changed("items-json-path") {
		val, err := fs.GetString("items-json-path")
		if err != nil {
			return err
		}
		cfg.ItemsJSONPath = strings.TrimSpace(val)
	}
	if fs.Changed("synthetic") {
		val, err := fs.GetInt("synthetic")
		if err != nil {
			return err
		}
		cfg.SyntheticCount = val
	}
	if fs.Changed("synthetic-pattern") {
		val, err := fs.GetString("synthetic-pattern")
		if err != nil {
			return err
		}
		cfg.SyntheticPattern = val
	}
	if fs.Changed("mode") {
		val, err := fs.GetString("mode")
		if err != nil {
			return err
		}
		cfg.Mode = Mode(val)
	}
	if fs.Changed("strategy") {
		val, err := fs.GetString("strategy")
		if err != nil {
			return err
		}
		cfg.Strategy = val
	}
	if fs.Changed("concurrency") {
		val, err := fs.GetInt("concurrency")
		if err != nil {
			return err
		}
		cfg.Concurrency = val
	}
	if fs.Changed("timeout") {
		val, err := fs.GetDuration("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = val
	}
	if fs.Changed("rate") {
		val, err := fs.GetInt("rate")
		if err != nil {
			return err
		}
		cfg.Rate = val
	}
	if fs.Changed("retries") {
		val, err := fs.GetInt("retries")
		if err != nil {
			return err
		}
		cfg.Retries = val
	}
	if fs.Changed("retry-delay") {
		val, err := fs.GetDuration("retry-delay")
		if err != nil {
			return err
		}
		cfg.RetryDelay = val
	}
	if fs.Changed("compare") {
		val, err := fs.GetBool("compare")
		if err != nil {
			return err
		}
		cfg.Compare = val
	}
	if fs.Changed("baseline-strategy") {
		val, err := fs.GetString("baseline-strategy")
		if err != nil {
			return err
		}
		cfg.BaselineStrategy = val
	}
	if fs.Changed("baseline-concurrency") {
		val, err := fs.GetInt("baseline-concurrency")
		if err != nil {
			return err
		}
		cfg.BaselineConcurrency = val
	}
	if fs.Changed("sim-min-latency") {
		val, err := fs.GetDuration("sim-min-latency")
		if err != nil {
			return err
		}
		cfg.Sim.MinLatency = val
	}
	if fs.Changed("sim-max-latency") {
		val, err := fs.GetDuration("sim-max-latency")
		if err != nil {
			return err
		}
		cfg.Sim.MaxLatency = val
	}
	if fs.Changed("sim-failure-rate") {
		val, err := fs.GetFloat64("sim-failure-rate")
		if err != nil {
			return err
		}
		cfg.Sim.FailureRate = val
	}
	if fs.Changed("sim-seed") {
		val, err := fs.GetInt64("sim-seed")
		if err != nil {
			return err
		}
		cfg.Sim.Seed = val
	}
	if fs.Changed("no-monitor") {
		val, err := fs.GetBool("no-monitor")
		if err != nil {
			return err
		}
		cfg.Monitor.Disabled = val
	}
	if fs.Changed("monitor-interval") {
		val, err := fs.GetDuration("monitor-interval")
		if err != nil {
			return err
		}
		cfg.Monitor.Interval = val
	}
	if fs.Changed("json-output") {
		val, err := fs.GetBool("json-output")
		if err != nil {
			return err
		}
		cfg.JSONOutput = val
	}
	if fs.Changed("dashboard") {
		val, err := fs.GetBool("dashboard")
		if err != nil {
			return err
		}
		cfg.Dashboard = val
	}
	if fs.Changed("log-errors") {
		val, err := fs.GetBool("log-errors")
		if err != nil {
			return err
		}
		cfg.LogErrors = val
	}
	if fs.Changed("html-output") {
		val, err := fs.GetString("html-output")
		if err != nil {
			return err
		}
		cfg.HTMLOutput = strings.TrimSpace(val)
	}
	if fs.Changed("results-dir") {
		val, err := fs.GetString("results-dir")
		if err != nil {
			return err
		}
		cfg.ResultsDir = strings.TrimSpace(val)
	}
	if fs.Changed("no-color") {
		val, err := fs.GetBool("no-color")
		if err != nil {
			return err
		}
		cfg.NoColor = val
	}
	if fs.Changed("tracing") {
		val, err := fs.GetBool("tracing")
		if err != nil {
			return err
		}
		cfg.Tracing.Enabled = val
	}
	if fs.Changed("tracing-endpoint") {
		val, err := fs.GetString("tracing-endpoint")
		if err != nil {
			return err
		}
		cfg.Tracing.Endpoint = strings.TrimSpace(val)
	}
	if fs.Changed("tracing-protocol") {
		val, err := fs.GetString("tracing-protocol")
		if err != nil {
			return err
		}
		cfg.Tracing.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	return nil
}
