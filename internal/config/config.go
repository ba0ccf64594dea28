package config

import (
	"fmt"
	"strings"
	"time"
)

// Mode selects the unit of work for a run.
type Mode string

const (
	// ModeSimulate runs the deterministic simulated fetch.
	ModeSimulate Mode = "simulate"
	// ModeHTTP performs real GET requests against the workload URLs.
	ModeHTTP Mode = "http"
)

// Config is the full benchmark configuration, merged from a config file and
// CLI flags.
type Config struct {
	// Workload source. Exactly one of ItemsFile or Synthetic items is used.
	ItemsFile        string `mapstructure:"items"`
	ItemsJSONPath    string `mapstructure:"items_json_path"`
	SyntheticCount   int    `mapstructure:"synthetic_count"`
	SyntheticPattern string `mapstructure:"synthetic_pattern"`

	Mode        Mode          `mapstructure:"mode"`
	Strategy    string        `mapstructure:"strategy"`
	Concurrency int           `mapstructure:"concurrency"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Rate        int           `mapstructure:"rate"`
	Retries     int           `mapstructure:"retries"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`

	// Compare mode runs a baseline strategy before the configured one and
	// reports the difference.
	Compare             bool   `mapstructure:"compare"`
	BaselineStrategy    string `mapstructure:"baseline_strategy"`
	BaselineConcurrency int    `mapstructure:"baseline_concurrency"`

	Sim     SimConfig     `mapstructure:"sim"`
	Monitor MonitorConfig `mapstructure:"monitor"`
	Tiers   []TierConfig  `mapstructure:"tiers"`
	Tracing TracingConfig `mapstructure:"tracing"`

	JSONOutput bool   `mapstructure:"json_output"`
	Dashboard  bool   `mapstructure:"dashboard"`
	LogErrors  bool   `mapstructure:"log_errors"`
	HTMLOutput string `mapstructure:"html_output"`
	ResultsDir string `mapstructure:"results_dir"`
	NoColor    bool   `mapstructure:"no_color"`

	ConfigFile string `mapstructure:"-"`
}

// SimConfig shapes the simulated fetch distribution.
type SimConfig struct {
	MinLatency  time.Duration `mapstructure:"min_latency"`
	MaxLatency  time.Duration `mapstructure:"max_latency"`
	FailureRate float64       `mapstructure:"failure_rate"`
	MinBytes    int64         `mapstructure:"min_bytes"`
	MaxBytes    int64         `mapstructure:"max_bytes"`
	Seed        int64         `mapstructure:"seed"`
}

// MonitorConfig controls background resource sampling.
type MonitorConfig struct {
	Disabled    bool          `mapstructure:"disabled"`
	Interval    time.Duration `mapstructure:"interval"`
	JoinTimeout time.Duration `mapstructure:"join_timeout"`
}

// TierConfig is one recommendation band, ordered strongest first.
type TierConfig struct {
	Name       string  `mapstructure:"name"`
	MinSpeedup float64 `mapstructure:"min_speedup"`
}

// TracingConfig controls OTLP trace export.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // "grpc" or "http"
	Insecure    bool    `mapstructure:"insecure"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// ValidationError aggregates every problem found in a Config.
type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func validStrategy(s string) bool {
	switch s {
	case "threads", "bounded":
		return true
	}
	return false
}

// Validate checks the merged configuration and returns a ValidationError
// listing every issue found.
func (c Config) Validate() error {
	var issues []string

	if strings.TrimSpace(c.ItemsFile) == "" && c.SyntheticCount <= 0 {
		issues = append(issues, "a workload is required: set items or synthetic_count")
	}
	if c.SyntheticCount < 0 {
		issues = append(issues, "synthetic_count must be >= 0")
	}

	switch c.Mode {
	case ModeSimulate, ModeHTTP:
	default:
		issues = append(issues, fmt.Sprintf("mode %q is not supported", c.Mode))
	}

	if !validStrategy(c.Strategy) {
		issues = append(issues, fmt.Sprintf("strategy %q is not supported (threads or bounded)", c.Strategy))
	}
	if c.Concurrency < 1 {
		issues = append(issues, "concurrency must be >= 1")
	}
	if c.Rate < 0 {
		issues = append(issues, "rate must be >= 0")
	}
	if c.Timeout < 0 {
		issues = append(issues, "timeout must be >= 0")
	}
	if c.Retries < 0 {
		issues = append(issues, "retries must be >= 0")
	}
	if c.RetryDelay < 0 {
		issues = append(issues, "retry_delay must be >= 0")
	}

	if c.Compare {
		if !validStrategy(c.BaselineStrategy) {
			issues = append(issues, fmt.Sprintf("baseline_strategy %q is not supported (threads or bounded)", c.BaselineStrategy))
		}
		if c.BaselineConcurrency < 1 {
			issues = append(issues, "baseline_concurrency must be >= 1")
		}
	}

	if c.Sim.FailureRate < 0 || c.Sim.FailureRate > 1 {
		issues = append(issues, "sim.failure_rate must be between 0 and 1")
	}
	if c.Sim.MinLatency < 0 {
		issues = append(issues, "sim.min_latency must be >= 0")
	}
	if c.Sim.MaxLatency > 0 && c.Sim.MaxLatency < c.Sim.MinLatency {
		issues = append(issues, "sim.max_latency must be >= sim.min_latency")
	}
	if c.Sim.MinBytes < 0 {
		issues = append(issues, "sim.min_bytes must be >= 0")
	}
	if c.Sim.MaxBytes > 0 && c.Sim.MaxBytes < c.Sim.MinBytes {
		issues = append(issues, "sim.max_bytes must be >= sim.min_bytes")
	}

	if c.Monitor.Interval < 0 {
		issues = append(issues, "monitor.interval must be >= 0")
	}
	if c.Monitor.JoinTimeout < 0 {
		issues = append(issues, "monitor.join_timeout must be >= 0")
	}

	issues = append(issues, validateTiers(c.Tiers)...)

	if c.Dashboard && c.JSONOutput {
		issues = append(issues, "dashboard and json-output are mutually exclusive")
	}

	if c.Tracing.Enabled {
		switch c.Tracing.Protocol {
		case "", "grpc", "http":
		default:
			issues = append(issues, fmt.Sprintf("tracing.protocol %q is not supported (grpc or http)", c.Tracing.Protocol))
		}
		if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
			issues = append(issues, "tracing.sample_ratio must be between 0 and 1")
		}
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

func validateTiers(tiers []TierConfig) []string {
	var issues []string
	for idx, tier := range tiers {
		if strings.TrimSpace(tier.Name) == "" {
			issues = append(issues, fmt.Sprintf("tiers[%d]: name is required", idx))
		}
		if tier.MinSpeedup < 0 {
			issues = append(issues, fmt.Sprintf("tiers[%d]: min_speedup must be >= 0", idx))
		}
		if idx > 0 && tier.MinSpeedup > tiers[idx-1].MinSpeedup {
			issues = append(issues, fmt.Sprintf("tiers[%d]: tiers must be ordered strongest first", idx))
		}
	}
	if len(tiers) > 0 && tiers[len(tiers)-1].MinSpeedup != 0 {
		issues = append(issues, "the last tier must have min_speedup 0 so every speedup maps to a tier")
	}
	return issues
}
