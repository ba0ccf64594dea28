package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/corbalt/fetchbench/internal/compare"
	"github.com/corbalt/fetchbench/internal/config"
	"github.com/corbalt/fetchbench/internal/fetch"
)

func TestShouldRetry(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"cancelled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
		{"rate limited", &fetch.HTTPError{StatusCode: http.StatusTooManyRequests, Status: "429"}, true},
		{"server error", &fetch.HTTPError{StatusCode: http.StatusBadGateway, Status: "502"}, true},
		{"client error", &fetch.HTTPError{StatusCode: http.StatusNotFound, Status: "404"}, false},
		{"generic", errors.New("connection reset"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := shouldRetry(tc.err); got != tc.want {
				t.Errorf("shouldRetry(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestNewRetryPolicy(t *testing.T) {
	cfg := &config.Config{}
	if p := newRetryPolicy(cfg); p.MaxAttempts != 0 {
		t.Fatalf("expected no retry policy without retries, got %+v", p)
	}

	cfg = &config.Config{Retries: 2, RetryDelay: 50 * time.Millisecond}
	p := newRetryPolicy(cfg)
	if p.MaxAttempts != 3 {
		t.Fatalf("expected 3 total attempts, got %d", p.MaxAttempts)
	}
	if p.Delay != 50*time.Millisecond || p.DelayFunc != nil {
		t.Fatalf("expected fixed delay, got %+v", p)
	}

	cfg = &config.Config{Retries: 3}
	p = newRetryPolicy(cfg)
	if p.DelayFunc == nil {
		t.Fatal("expected backoff delay func without explicit delay")
	}
	first := p.DelayFunc(1, errors.New("x"))
	if first < baseRetryDelay || first > baseRetryDelay+baseRetryDelay/2 {
		t.Errorf("first backoff out of band: %v", first)
	}
	// Backoff is capped regardless of attempt count.
	if d := p.DelayFunc(30, errors.New("x")); d > maxRetryDelay+maxRetryDelay/2 {
		t.Errorf("backoff exceeds cap: %v", d)
	}
}

func TestToCompareTiers(t *testing.T) {
	if got := toCompareTiers(nil); got != nil {
		t.Fatalf("expected nil for empty tiers, got %v", got)
	}
	got := toCompareTiers([]config.TierConfig{
		{Name: "strong", MinSpeedup: 10},
		{Name: "none", MinSpeedup: 0},
	})
	want := []compare.Tier{{Name: "strong", MinSpeedup: 10}, {Name: "none", MinSpeedup: 0}}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("tiers = %v, want %v", got, want)
	}
}

func TestLoadWorkloadSynthetic(t *testing.T) {
	items, err := loadWorkload(&config.Config{SyntheticCount: 5})
	if err != nil {
		t.Fatalf("loadWorkload failed: %v", err)
	}
	if len(items) != 5 {
		t.Fatalf("expected 5 items, got %d", len(items))
	}

	if _, err := loadWorkload(&config.Config{}); err == nil {
		t.Fatal("expected error for empty workload")
	}
}

func TestLoadWorkloadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.txt")
	if err := os.WriteFile(path, []byte("https://a.example/1\nhttps://a.example/2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	items, err := loadWorkload(&config.Config{ItemsFile: path})
	if err != nil {
		t.Fatalf("loadWorkload failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
}

func TestBuildUnit(t *testing.T) {
	if _, ok := buildUnit(&config.Config{Mode: config.ModeSimulate}).(*fetch.Simulator); !ok {
		t.Fatal("expected a simulator for simulate mode")
	}
	if _, ok := buildUnit(&config.Config{Mode: config.ModeHTTP}).(*fetch.HTTPFetcher); !ok {
		t.Fatal("expected an http fetcher for http mode")
	}
}

func TestRunHelp(t *testing.T) {
	if err := run([]string{"--help"}); err != nil {
		t.Fatalf("help should not be an error: %v", err)
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	if err := run([]string{"--synthetic", "10", "--strategy", "greenlets"}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	err := run([]string{
		"--synthetic", "40",
		"--concurrency", "8",
		"--timeout", "5s",
		"--sim-min-latency", "1ms",
		"--sim-max-latency", "5ms",
		"--no-monitor",
		"--json-output",
		"--results-dir", dir,
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) == 0 {
		t.Fatal("expected persisted results")
	}
}

func TestRunCompareEndToEnd(t *testing.T) {
	dir := t.TempDir()
	htmlPath := filepath.Join(dir, "report.html")
	err := run([]string{
		"--synthetic", "30",
		"--concurrency", "6",
		"--compare",
		"--timeout", "5s",
		"--sim-min-latency", "1ms",
		"--sim-max-latency", "5ms",
		"--no-monitor",
		"--json-output",
		"--results-dir", dir,
		"--html-output", htmlPath,
	})
	if err != nil {
		t.Fatalf("compare run failed: %v", err)
	}

	if _, err := os.Stat(htmlPath); err != nil {
		t.Fatalf("expected html report: %v", err)
	}
}
