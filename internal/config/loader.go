package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Loader handles loading configuration from files and command-line arguments.
type Loader struct{}

// ErrHelpRequested is returned when the user requests help via --help flag.
var ErrHelpRequested = errors.New("help requested")

// NewLoader creates a new configuration Loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses command-line arguments and an optional config file into a
// Config. Flag values override file values.
func (Loader) Load(args []string) (*Config, error) {
	cmd := newFlagCommand()
	if err := cmd.Flags().Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
		return nil, err
	}

	flagSet := cmd.Flags()
	if helpFlag := flagSet.Lookup("help"); helpFlag != nil {
		if wantsHelp, err := strconv.ParseBool(helpFlag.Value.String()); err == nil && wantsHelp {
			displayHelp(cmd)
			return nil, ErrHelpRequested
		}
	}

	configPath := flagSet.Lookup("config").Value.String()
	if len(args) == 0 && configPath == "" {
		displayHelp(cmd)
		return nil, ErrHelpRequested
	}

	cfgViper := viper.New()
	if configPath != "" {
		cfgViper.SetConfigFile(configPath)
		if err := cfgViper.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	settings := cfgViper.AllSettings()

	cfg := &Config{
		Mode:        ModeSimulate,
		Strategy:    "bounded",
		Concurrency: 10,
		Timeout:     30 * time.Second,
		ResultsDir:  "results",
		ConfigFile:  configPath,
	}

	if err := applyConfigSettings(cfg, settings); err != nil {
		return nil, err
	}
	if err := applyFlagOverrides(cfg, flagSet); err != nil {
		return nil, err
	}

	cfg.ItemsFile = strings.TrimSpace(cfg.ItemsFile)
	cfg.Strategy = strings.ToLower(strings.TrimSpace(cfg.Strategy))
	cfg.BaselineStrategy = strings.ToLower(strings.TrimSpace(cfg.BaselineStrategy))
	cfg.Mode = Mode(strings.ToLower(strings.TrimSpace(string(cfg.Mode))))

	if cfg.Compare && cfg.BaselineStrategy == "" {
		// Default baseline: the other strategy at the same width.
		if cfg.Strategy == "bounded" {
			cfg.BaselineStrategy = "threads"
		} else {
			cfg.BaselineStrategy = "bounded"
		}
	}
	if cfg.Compare && cfg.BaselineConcurrency == 0 {
		cfg.BaselineConcurrency = cfg.Concurrency
	}

	return cfg, nil
}

// applyConfigSettings applies settings from a config file to the Config.
func applyConfigSettings(cfg *Config, settings map[string]interface{}) error {
	if len(settings) == 0 {
		return nil
	}

	if raw, ok := lookupSetting(settings, "items"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("items: %w", err)
		}
		cfg.ItemsFile = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "items_json_path", "itemsjsonpath", "items-json-path"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("items_json_path: %w", err)
		}
		cfg.ItemsJSONPath = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "synthetic_count", "syntheticcount", "synthetic-count"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("synthetic_count: %w", err)
		}
		cfg.SyntheticCount = val
	}

	if raw, ok := lookupSetting(settings, "synthetic_pattern", "syntheticpattern", "synthetic-pattern"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("synthetic_pattern: %w", err)
		}
		cfg.SyntheticPattern = val
	}

	if raw, ok := lookupSetting(settings, "mode"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("mode: %w", err)
		}
		if val != "" {
			cfg.Mode = Mode(val)
		}
	}

	if raw, ok := lookupSetting(settings, "strategy"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("strategy: %w", err)
		}
		if val != "" {
			cfg.Strategy = val
		}
	}

	if raw, ok := lookupSetting(settings, "concurrency"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("concurrency: %w", err)
		}
		cfg.Concurrency = val
	}

	if raw, ok := lookupSetting(settings, "timeout"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		cfg.Timeout = dur
	}

	if raw, ok := lookupSetting(settings, "rate"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("rate: %w", err)
		}
		cfg.Rate = val
	}

	if raw, ok := lookupSetting(settings, "retries"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("retries: %w", err)
		}
		cfg.Retries = val
	}

	if raw, ok := lookupSetting(settings, "retry_delay", "retrydelay", "retry-delay"); ok {
		dur, err := asDuration(raw)
		if err != nil {
			return fmt.Errorf("retry_delay: %w", err)
		}
		cfg.RetryDelay = dur
	}

	if raw, ok := lookupSetting(settings, "compare"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("compare: %w", err)
		}
		cfg.Compare = val
	}

	if raw, ok := lookupSetting(settings, "baseline_strategy", "baselinestrategy", "baseline-strategy"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("baseline_strategy: %w", err)
		}
		cfg.BaselineStrategy = val
	}

	if raw, ok := lookupSetting(settings, "baseline_concurrency", "baselineconcurrency", "baseline-concurrency"); ok {
		val, err := asInt(raw)
		if err != nil {
			return fmt.Errorf("baseline_concurrency: %w", err)
		}
		cfg.BaselineConcurrency = val
	}

	if raw, ok := lookupSetting(settings, "sim"); ok {
		if err := applySimSettings(&cfg.Sim, raw); err != nil {
			return err
		}
	}

	if raw, ok := lookupSetting(settings, "monitor"); ok {
		if err := applyMonitorSettings(&cfg.Monitor, raw); err != nil {
			return err
		}
	}

	if raw, ok := lookupSetting(settings, "tiers"); ok {
		tiers, err := parseTiers(raw)
		if err != nil {
			return err
		}
		cfg.Tiers = tiers
	}

	if raw, ok := lookupSetting(settings, "tracing"); ok {
		if err := applyTracingSettings(&cfg.Tracing, raw); err != nil {
			return err
		}
	}

	if raw, ok := lookupSetting(settings, "json_output", "jsonoutput", "json-output"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("json_output: %w", err)
		}
		cfg.JSONOutput = val
	}

	if raw, ok := lookupSetting(settings, "dashboard"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("dashboard: %w", err)
		}
		cfg.Dashboard = val
	}

	if raw, ok := lookupSetting(settings, "log_errors", "logerrors", "log-errors"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("log_errors: %w", err)
		}
		cfg.LogErrors = val
	}

	if raw, ok := lookupSetting(settings, "html_output", "htmloutput", "html-output"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("html_output: %w", err)
		}
		cfg.HTMLOutput = strings.TrimSpace(val)
	}

	if raw, ok := lookupSetting(settings, "results_dir", "resultsdir", "results-dir"); ok {
		val, err := asString(raw)
		if err != nil {
			return fmt.Errorf("results_dir: %w", err)
		}
		if strings.TrimSpace(val) != "" {
			cfg.ResultsDir = strings.TrimSpace(val)
		}
	}

	if raw, ok := lookupSetting(settings, "no_color", "nocolor", "no-color"); ok {
		val, err := asBool(raw)
		if err != nil {
			return fmt.Errorf("no_color: %w", err)
		}
		cfg.NoColor = val
	}

	return nil
}

func applySimSettings(sim *SimConfig, raw interface{}) error {
	section, err := toStringKeyMap(raw)
	if err != nil {
		return fmt.Errorf("sim: %w", err)
	}

	if v, ok := lookupSetting(section, "min_latency", "minlatency", "min-latency"); ok {
		if sim.MinLatency, err = asDuration(v); err != nil {
			return fmt.Errorf("sim.min_latency: %w", err)
		}
	}
	if v, ok := lookupSetting(section, "max_latency", "maxlatency", "max-latency"); ok {
		if sim.MaxLatency, err = asDuration(v); err != nil {
			return fmt.Errorf("sim.max_latency: %w", err)
		}
	}
	if v, ok := lookupSetting(section, "failure_rate", "failurerate", "failure-rate"); ok {
		if sim.FailureRate, err = asFloat64(v); err != nil {
			return fmt.Errorf("sim.failure_rate: %w", err)
		}
	}
	if v, ok := lookupSetting(section, "min_bytes", "minbytes", "min-bytes"); ok {
		if sim.MinBytes, err = asInt64(v); err != nil {
			return fmt.Errorf("sim.min_bytes: %w", err)
		}
	}
	if v, ok := lookupSetting(section, "max_bytes", "maxbytes", "max-bytes"); ok {
		if sim.MaxBytes, err = asInt64(v); err != nil {
			return fmt.Errorf("sim.max_bytes: %w", err)
		}
	}
	if v, ok := lookupSetting(section, "seed"); ok {
		if sim.Seed, err = asInt64(v); err != nil {
			return fmt.Errorf("sim.seed: %w", err)
		}
	}
	return nil
}

func applyMonitorSettings(mon *MonitorConfig, raw interface{}) error {
	section, err := toStringKeyMap(raw)
	if err != nil {
		return fmt.Errorf("monitor: %w", err)
	}

	if v, ok := lookupSetting(section, "disabled"); ok {
		if mon.Disabled, err = asBool(v); err != nil {
			return fmt.Errorf("monitor.disabled: %w", err)
		}
	}
	if v, ok := lookupSetting(section, "interval"); ok {
		if mon.Interval, err = asDuration(v); err != nil {
			return fmt.Errorf("monitor.interval: %w", err)
		}
	}
	if v, ok := lookupSetting(section, "join_timeout", "jointimeout", "join-timeout"); ok {
		if mon.JoinTimeout, err = asDuration(v); err != nil {
			return fmt.Errorf("monitor.join_timeout: %w", err)
		}
	}
	return nil
}

func parseTiers(raw interface{}) ([]TierConfig, error) {
	items, err := toInterfaceSlice(raw)
	if err != nil {
		return nil, fmt.Errorf("tiers: %w", err)
	}

	tiers := make([]TierConfig, 0, len(items))
	for idx, item := range items {
		section, err := toStringKeyMap(item)
		if err != nil {
			return nil, fmt.Errorf("tiers[%d]: %w", idx, err)
		}
		var tier TierConfig
		if v, ok := lookupSetting(section, "name"); ok {
			if tier.Name, err = asString(v); err != nil {
				return nil, fmt.Errorf("tiers[%d].name: %w", idx, err)
			}
		}
		if v, ok := lookupSetting(section, "min_speedup", "minspeedup", "min-speedup"); ok {
			if tier.MinSpeedup, err = asFloat64(v); err != nil {
				return nil, fmt.Errorf("tiers[%d].min_speedup: %w", idx, err)
			}
		}
		tiers = append(tiers, tier)
	}
	return tiers, nil
}

func applyTracingSettings(tr *TracingConfig, raw interface{}) error {
	section, err := toStringKeyMap(raw)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}

	if v, ok := lookupSetting(section, "enabled"); ok {
		if tr.Enabled, err = asBool(v); err != nil {
			return fmt.Errorf("tracing.enabled: %w", err)
		}
	}
	if v, ok := lookupSetting(section, "endpoint"); ok {
		if tr.Endpoint, err = asString(v); err != nil {
			return fmt.Errorf("tracing.endpoint: %w", err)
		}
	}
	if v, ok := lookupSetting(section, "protocol"); ok {
		if tr.Protocol, err = asString(v); err != nil {
			return fmt.Errorf("tracing.protocol: %w", err)
		}
	}
	if v, ok := lookupSetting(section, "insecure"); ok {
		if tr.Insecure, err = asBool(v); err != nil {
			return fmt.Errorf("tracing.insecure: %w", err)
		}
	}
	if v, ok := lookupSetting(section, "sample_ratio", "sampleratio", "sample-ratio"); ok {
		if tr.SampleRatio, err = asFloat64(v); err != nil {
			return fmt.Errorf("tracing.sample_ratio: %w", err)
		}
	}
	return nil
}
