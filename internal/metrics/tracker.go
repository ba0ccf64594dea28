package metrics

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/corbalt/fetchbench/internal/engine"
)

// Tracker accumulates outcomes while a run is in progress. It implements
// engine.Observer; the engine feeds it from a single goroutine, but Snapshot
// may be called concurrently by progress displays, so access is locked.
type Tracker struct {
	mu         sync.Mutex
	hist       *hdrhistogram.Histogram
	successes  int64
	failures   int64
	bytes      int64
	minLatency time.Duration
	maxLatency time.Duration
	sumLatency time.Duration
	reasons    map[string]int64
	start      time.Time
}

// Snapshot is a point-in-time view of a running workload.
type Snapshot struct {
	Total       int64          `json:"total"`
	Successes   int64          `json:"successes"`
	Failures    int64          `json:"failures"`
	Bytes       int64          `json:"bytes"`
	MinLatency  time.Duration  `json:"-"`
	MaxLatency  time.Duration  `json:"-"`
	MeanLatency time.Duration  `json:"-"`
	P50Latency  time.Duration  `json:"-"`
	P99Latency  time.Duration  `json:"-"`
	PerSec      float64        `json:"per_sec"`
	Reasons     map[string]int `json:"reasons,omitempty"`
}

// NewTracker creates a Tracker with its clock started.
func NewTracker() *Tracker {
	return &Tracker{
		// Latencies from 1µs up to 60s at 3 significant figures.
		hist:    hdrhistogram.New(1, 60_000_000, 3),
		reasons: make(map[string]int64),
		start:   time.Now(),
	}
}

// Observe records one terminal outcome.
func (t *Tracker) Observe(o engine.Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if o.Elapsed > 0 {
		us := o.Elapsed.Microseconds()
		if us < t.hist.LowestTrackableValue() {
			us = t.hist.LowestTrackableValue()
		}
		if us > t.hist.HighestTrackableValue() {
			us = t.hist.HighestTrackableValue()
		}
		_ = t.hist.RecordValue(us)
	}
	t.sumLatency += o.Elapsed

	if t.minLatency == 0 || o.Elapsed < t.minLatency {
		t.minLatency = o.Elapsed
	}
	if o.Elapsed > t.maxLatency {
		t.maxLatency = o.Elapsed
	}

	if o.Failed() {
		t.failures++
		t.reasons[o.Reason]++
	} else {
		t.successes++
		t.bytes += o.Bytes
	}
}

// Snapshot returns current counters. Safe to call while outcomes stream in.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	total := t.successes + t.failures
	snap := Snapshot{
		Total:      total,
		Successes:  t.successes,
		Failures:   t.failures,
		Bytes:      t.bytes,
		MinLatency: t.minLatency,
		MaxLatency: t.maxLatency,
	}

	if total > 0 {
		snap.MeanLatency = time.Duration(int64(t.sumLatency) / total)
	}
	if t.hist.TotalCount() > 0 {
		snap.P50Latency = time.Duration(t.hist.ValueAtQuantile(50)) * time.Microsecond
		snap.P99Latency = time.Duration(t.hist.ValueAtQuantile(99)) * time.Microsecond
	}

	elapsed := time.Since(t.start)
	if elapsed > 0 && total > 0 {
		snap.PerSec = float64(total) / elapsed.Seconds()
	}

	if len(t.reasons) > 0 {
		snap.Reasons = make(map[string]int, len(t.reasons))
		for k, v := range t.reasons {
			snap.Reasons[k] = int(v)
		}
	}
	return snap
}
