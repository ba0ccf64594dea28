package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		ItemsFile:   "urls.json",
		Mode:        ModeSimulate,
		Strategy:    "bounded",
		Concurrency: 10,
		Timeout:     30 * time.Second,
	}
}

func TestValidateAccepts(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestValidateCollectsAllIssues(t *testing.T) {
	cfg := Config{
		Mode:        Mode("fibers"),
		Strategy:    "greenlets",
		Concurrency: 0,
		Rate:        -1,
		Timeout:     -time.Second,
	}

	err := cfg.Validate()
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	issues := verr.Issues()
	if len(issues) < 5 {
		t.Fatalf("expected every problem listed, got %d: %v", len(issues), issues)
	}
	joined := strings.Join(issues, "; ")
	for _, want := range []string{"workload", "mode", "strategy", "concurrency", "rate", "timeout"} {
		if !strings.Contains(joined, want) {
			t.Errorf("issues missing %q: %v", want, issues)
		}
	}
}

func TestValidateCompareRequiresBaseline(t *testing.T) {
	cfg := validConfig()
	cfg.Compare = true
	cfg.BaselineStrategy = "fibers"
	if cfg.Validate() == nil {
		t.Fatal("expected invalid baseline strategy to be rejected")
	}

	cfg.BaselineStrategy = "threads"
	cfg.BaselineConcurrency = 8
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid compare config rejected: %v", err)
	}
}

func TestValidateSimBounds(t *testing.T) {
	cfg := validConfig()
	cfg.Sim.FailureRate = 1.5
	if cfg.Validate() == nil {
		t.Fatal("expected failure_rate > 1 to be rejected")
	}

	cfg = validConfig()
	cfg.Sim.MinLatency = 500 * time.Millisecond
	cfg.Sim.MaxLatency = 100 * time.Millisecond
	if cfg.Validate() == nil {
		t.Fatal("expected inverted latency band to be rejected")
	}
}

func TestValidateTiers(t *testing.T) {
	cfg := validConfig()
	cfg.Tiers = []TierConfig{
		{Name: "strong", MinSpeedup: 10},
		{Name: "weak", MinSpeedup: 2},
		{Name: "none", MinSpeedup: 0},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid tiers rejected: %v", err)
	}

	cfg.Tiers = []TierConfig{
		{Name: "weak", MinSpeedup: 2},
		{Name: "strong", MinSpeedup: 10},
	}
	if cfg.Validate() == nil {
		t.Fatal("expected out-of-order tiers to be rejected")
	}

	cfg.Tiers = []TierConfig{
		{Name: "strong", MinSpeedup: 10},
		{Name: "floor", MinSpeedup: 1},
	}
	if cfg.Validate() == nil {
		t.Fatal("expected missing catch-all tier to be rejected")
	}
}

func TestValidateOutputExclusivity(t *testing.T) {
	cfg := validConfig()
	cfg.Dashboard = true
	cfg.JSONOutput = true
	if cfg.Validate() == nil {
		t.Fatal("expected dashboard+json to be rejected")
	}
}

func TestValidateTracing(t *testing.T) {
	cfg := validConfig()
	cfg.Tracing = TracingConfig{Enabled: true, Protocol: "carrier-pigeon"}
	if cfg.Validate() == nil {
		t.Fatal("expected unknown tracing protocol to be rejected")
	}

	cfg.Tracing = TracingConfig{Enabled: true, Protocol: "grpc", SampleRatio: 0.5}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid tracing config rejected: %v", err)
	}
}
