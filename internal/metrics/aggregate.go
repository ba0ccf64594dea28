package metrics

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/corbalt/fetchbench/internal/engine"
	"github.com/corbalt/fetchbench/internal/monitor"
)

// Metrics is the derived statistics record for one sealed run. Every field
// is computed from the run; aggregating the same run twice yields identical
// values.
type Metrics struct {
	Label       string              `json:"label,omitempty"`
	Strategy    engine.StrategyKind `json:"strategy"`
	Concurrency int                 `json:"concurrency"`
	Status      engine.RunStatus    `json:"status"`

	TotalItems  int     `json:"total_items"`
	Successes   int64   `json:"successes"`
	Failures    int64   `json:"failures"`
	BytesTotal  int64   `json:"bytes_total"`
	SuccessRate float64 `json:"success_rate"`

	Duration       time.Duration `json:"-"`
	DurationMs     float64       `json:"duration_ms"`
	SuccessPerSec  float64       `json:"success_per_sec"`
	AttemptsPerSec float64       `json:"attempts_per_sec"`

	// Latency statistics cover successful items only; failed items are
	// accounted for in Reasons.
	MinLatency  time.Duration `json:"-"`
	MaxLatency  time.Duration `json:"-"`
	MeanLatency time.Duration `json:"-"`
	P50Latency  time.Duration `json:"-"`
	P90Latency  time.Duration `json:"-"`
	P99Latency  time.Duration `json:"-"`

	MinLatencyMs  float64 `json:"min_latency_ms"`
	MaxLatencyMs  float64 `json:"max_latency_ms"`
	MeanLatencyMs float64 `json:"mean_latency_ms"`
	P50LatencyMs  float64 `json:"p50_latency_ms"`
	P90LatencyMs  float64 `json:"p90_latency_ms"`
	P99LatencyMs  float64 `json:"p99_latency_ms"`

	Reasons map[string]int `json:"reasons,omitempty"`

	Resources monitor.Stats `json:"resources"`

	// Efficiency normalizes throughput by consumed resources. Zero when the
	// corresponding resource data is missing.
	SuccessPerCoreSecond float64 `json:"success_per_core_second"`
	SuccessPerGBMemory   float64 `json:"success_per_gb_memory"`
}

// Aggregate reduces a sealed run to its Metrics. Pure: it never mutates the
// run and is safe to call any number of times.
func Aggregate(run *engine.BenchmarkRun) Metrics {
	m := Metrics{
		Label:       run.Config.Label,
		Strategy:    run.Config.Strategy,
		Concurrency: run.Config.Concurrency,
		Status:      run.Status,
		TotalItems:  run.TotalItems,
		Duration:    run.Duration(),
	}
	m.DurationMs = float64(m.Duration) / float64(time.Millisecond)

	hist := hdrhistogram.New(1, 60_000_000, 3)
	var sumLatency time.Duration
	for _, o := range run.Outcomes {
		if o.Failed() {
			m.Failures++
			if m.Reasons == nil {
				m.Reasons = make(map[string]int)
			}
			m.Reasons[o.Reason]++
			continue
		}
		m.Successes++
		m.BytesTotal += o.Bytes
		sumLatency += o.Elapsed

		if m.MinLatency == 0 || o.Elapsed < m.MinLatency {
			m.MinLatency = o.Elapsed
		}
		if o.Elapsed > m.MaxLatency {
			m.MaxLatency = o.Elapsed
		}
		if o.Elapsed > 0 {
			us := o.Elapsed.Microseconds()
			if us < hist.LowestTrackableValue() {
				us = hist.LowestTrackableValue()
			}
			if us > hist.HighestTrackableValue() {
				us = hist.HighestTrackableValue()
			}
			_ = hist.RecordValue(us)
		}
	}

	attempted := m.Successes + m.Failures
	if attempted > 0 {
		m.SuccessRate = float64(m.Successes) / float64(attempted)
	}
	if m.Successes > 0 {
		m.MeanLatency = time.Duration(int64(sumLatency) / m.Successes)
	}
	if hist.TotalCount() > 0 {
		m.P50Latency = time.Duration(hist.ValueAtQuantile(50)) * time.Microsecond
		m.P90Latency = time.Duration(hist.ValueAtQuantile(90)) * time.Microsecond
		m.P99Latency = time.Duration(hist.ValueAtQuantile(99)) * time.Microsecond
	}
	m.MinLatencyMs = float64(m.MinLatency) / float64(time.Millisecond)
	m.MaxLatencyMs = float64(m.MaxLatency) / float64(time.Millisecond)
	m.MeanLatencyMs = float64(m.MeanLatency) / float64(time.Millisecond)
	m.P50LatencyMs = float64(m.P50Latency) / float64(time.Millisecond)
	m.P90LatencyMs = float64(m.P90Latency) / float64(time.Millisecond)
	m.P99LatencyMs = float64(m.P99Latency) / float64(time.Millisecond)

	if secs := m.Duration.Seconds(); secs > 0 {
		m.SuccessPerSec = float64(m.Successes) / secs
		m.AttemptsPerSec = float64(attempted) / secs
	}

	m.Resources = monitor.Aggregate(run.Samples)
	m.SuccessPerCoreSecond = successPerCoreSecond(m.Successes, m.Resources, m.Duration)
	m.SuccessPerGBMemory = successPerGBMemory(m.Successes, m.Resources)

	return m
}

// successPerCoreSecond divides successful items by estimated CPU core-seconds
// consumed: avg utilization across all cores over the run's wall time.
func successPerCoreSecond(successes int64, res monitor.Stats, wall time.Duration) float64 {
	if res.Samples == 0 || res.CPUCount == 0 {
		return 0
	}
	coreSeconds := res.CPUAvg / 100 * float64(res.CPUCount) * wall.Seconds()
	if coreSeconds <= 0 {
		return 0
	}
	return float64(successes) / coreSeconds
}

// successPerGBMemory divides successful items by average memory footprint
// in gigabytes.
func successPerGBMemory(successes int64, res monitor.Stats) float64 {
	if res.Samples == 0 || res.MemAvg == 0 {
		return 0
	}
	gb := float64(res.MemAvg) / (1 << 30)
	return float64(successes) / gb
}
