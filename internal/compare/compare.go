// Package compare derives a verdict from two aggregated runs over the same
// workload: a baseline and a candidate.
package compare

import (
	"time"

	"github.com/corbalt/fetchbench/internal/metrics"
)

// Tier is one recommendation band. A speedup strictly greater than
// MinSpeedup lands in the tier.
type Tier struct {
	Name       string  `json:"name"`
	MinSpeedup float64 `json:"min_speedup"`
}

// DefaultTiers orders recommendation bands from strongest to weakest. The
// final catch-all tier matches any speedup, including regressions.
var DefaultTiers = []Tier{
	{Name: "strong", MinSpeedup: 10},
	{Name: "moderate", MinSpeedup: 5},
	{Name: "marginal", MinSpeedup: 2},
	{Name: "none", MinSpeedup: 0},
}

// Report is the sealed comparison between a baseline and a candidate run.
type Report struct {
	Baseline  metrics.Metrics `json:"baseline"`
	Candidate metrics.Metrics `json:"candidate"`

	// Speedup is baseline duration over candidate duration; > 1 means the
	// candidate was faster. Zero when the candidate duration is zero.
	Speedup float64 `json:"speedup"`
	// TimeSaved is baseline duration minus candidate duration; negative when
	// the candidate was slower.
	TimeSaved time.Duration `json:"time_saved"`

	// Deltas are candidate minus baseline. ThroughputDelta is the percent
	// change in successful items per second; zero when the baseline moved
	// no items.
	SuccessRateDelta float64 `json:"success_rate_delta"`
	ThroughputDelta  float64 `json:"throughput_delta_percent"`
	CPUDelta         float64 `json:"cpu_delta"`
	MemDelta         int64   `json:"mem_delta"`

	Recommendation string `json:"recommendation"`
}

// Compare builds a Report from two aggregated runs using the given tiers.
// Nil or empty tiers fall back to DefaultTiers.
func Compare(baseline, candidate metrics.Metrics, tiers []Tier) Report {
	if len(tiers) == 0 {
		tiers = DefaultTiers
	}

	r := Report{
		Baseline:  baseline,
		Candidate: candidate,
		TimeSaved: baseline.Duration - candidate.Duration,
	}
	if candidate.Duration > 0 {
		r.Speedup = float64(baseline.Duration) / float64(candidate.Duration)
	}

	r.SuccessRateDelta = candidate.SuccessRate - baseline.SuccessRate
	if baseline.SuccessPerSec > 0 {
		r.ThroughputDelta = (candidate.SuccessPerSec/baseline.SuccessPerSec - 1) * 100
	}
	r.CPUDelta = candidate.Resources.CPUAvg - baseline.Resources.CPUAvg
	r.MemDelta = int64(candidate.Resources.MemAvg) - int64(baseline.Resources.MemAvg)

	r.Recommendation = classify(r.Speedup, tiers)
	return r
}

// classify picks the first tier whose threshold the speedup strictly
// exceeds. The last tier is treated as the catch-all.
func classify(speedup float64, tiers []Tier) string {
	for i, tier := range tiers {
		if i == len(tiers)-1 {
			return tier.Name
		}
		if speedup > tier.MinSpeedup {
			return tier.Name
		}
	}
	return ""
}
