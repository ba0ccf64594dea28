package compare_test

import (
	"testing"
	"time"

	"github.com/corbalt/fetchbench/internal/compare"
	"github.com/corbalt/fetchbench/internal/metrics"
	"github.com/corbalt/fetchbench/internal/monitor"
)

func metricsWithDuration(d time.Duration) metrics.Metrics {
	return metrics.Metrics{
		Duration:      d,
		SuccessRate:   0.95,
		SuccessPerSec: 100 / d.Seconds(),
		Resources:     monitor.Stats{Samples: 2, CPUAvg: 40, MemAvg: 1 << 30},
	}
}

func TestCompareSpeedupAndDeltas(t *testing.T) {
	baseline := metricsWithDuration(60 * time.Second)
	candidate := metricsWithDuration(5 * time.Second)
	candidate.SuccessRate = 0.90
	candidate.Resources.CPUAvg = 70

	r := compare.Compare(baseline, candidate, nil)
	if r.Speedup != 12 {
		t.Fatalf("expected speedup 12, got %g", r.Speedup)
	}
	if r.TimeSaved != 55*time.Second {
		t.Fatalf("expected 55s saved, got %v", r.TimeSaved)
	}
	if r.Recommendation != "strong" {
		t.Fatalf("expected strong recommendation, got %q", r.Recommendation)
	}
	if r.SuccessRateDelta >= 0 {
		t.Fatalf("expected negative success-rate delta, got %g", r.SuccessRateDelta)
	}
	if r.CPUDelta != 30 {
		t.Fatalf("expected cpu delta 30, got %g", r.CPUDelta)
	}
	// Same item count over a 12x shorter wall clock: +1100% throughput.
	if r.ThroughputDelta < 1099.9 || r.ThroughputDelta > 1100.1 {
		t.Fatalf("expected throughput delta of 1100 percent, got %g", r.ThroughputDelta)
	}
}

// TestCompareThroughputDeltaIsPercent pins the units: the delta is the
// percent change in items/sec, not an absolute difference.
func TestCompareThroughputDeltaIsPercent(t *testing.T) {
	baseline := metrics.Metrics{Duration: 10 * time.Second, SuccessPerSec: 10}
	candidate := metrics.Metrics{Duration: 10 * time.Second, SuccessPerSec: 20}

	r := compare.Compare(baseline, candidate, nil)
	if r.ThroughputDelta != 100 {
		t.Fatalf("10/s -> 20/s must be +100 percent, got %g", r.ThroughputDelta)
	}

	candidate.SuccessPerSec = 5
	r = compare.Compare(baseline, candidate, nil)
	if r.ThroughputDelta != -50 {
		t.Fatalf("10/s -> 5/s must be -50 percent, got %g", r.ThroughputDelta)
	}

	baseline.SuccessPerSec = 0
	r = compare.Compare(baseline, candidate, nil)
	if r.ThroughputDelta != 0 {
		t.Fatalf("zero baseline throughput must yield zero delta, got %g", r.ThroughputDelta)
	}
}

func TestCompareTierBoundaries(t *testing.T) {
	tests := []struct {
		baseline time.Duration
		want     string
	}{
		{101 * time.Second, "strong"},   // speedup 10.1
		{100 * time.Second, "moderate"}, // exactly 10 is not strictly greater
		{51 * time.Second, "moderate"},  // 5.1
		{50 * time.Second, "marginal"},  // exactly 5
		{21 * time.Second, "marginal"},  // 2.1
		{20 * time.Second, "none"},      // exactly 2
		{10 * time.Second, "none"},      // 1.0, no improvement
		{5 * time.Second, "none"},       // regression
	}
	for _, tt := range tests {
		r := compare.Compare(metricsWithDuration(tt.baseline), metricsWithDuration(10*time.Second), nil)
		if r.Recommendation != tt.want {
			t.Errorf("baseline %v vs 10s: recommendation %q, want %q (speedup %g)",
				tt.baseline, r.Recommendation, tt.want, r.Speedup)
		}
	}
}

// TestCompareIdentity compares a run against itself: no speedup, no deltas,
// no recommendation.
func TestCompareIdentity(t *testing.T) {
	m := metricsWithDuration(30 * time.Second)
	r := compare.Compare(m, m, nil)
	if r.Speedup != 1 {
		t.Fatalf("expected speedup 1, got %g", r.Speedup)
	}
	if r.TimeSaved != 0 || r.SuccessRateDelta != 0 || r.CPUDelta != 0 || r.MemDelta != 0 {
		t.Fatalf("expected zero deltas, got %+v", r)
	}
	if r.Recommendation != "none" {
		t.Fatalf("expected none, got %q", r.Recommendation)
	}
}

func TestCompareZeroCandidateDuration(t *testing.T) {
	r := compare.Compare(metricsWithDuration(10*time.Second), metrics.Metrics{}, nil)
	if r.Speedup != 0 {
		t.Fatalf("zero candidate duration must yield zero speedup, got %g", r.Speedup)
	}
	if r.Recommendation != "none" {
		t.Fatalf("expected none, got %q", r.Recommendation)
	}
}

func TestCompareCustomTiers(t *testing.T) {
	tiers := []compare.Tier{
		{Name: "adopt", MinSpeedup: 3},
		{Name: "hold", MinSpeedup: 0},
	}
	r := compare.Compare(metricsWithDuration(40*time.Second), metricsWithDuration(10*time.Second), tiers)
	if r.Recommendation != "adopt" {
		t.Fatalf("expected adopt, got %q", r.Recommendation)
	}
	r = compare.Compare(metricsWithDuration(20*time.Second), metricsWithDuration(10*time.Second), tiers)
	if r.Recommendation != "hold" {
		t.Fatalf("expected hold, got %q", r.Recommendation)
	}
}
