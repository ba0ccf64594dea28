package engine

import (
	"time"

	"github.com/corbalt/fetchbench/internal/monitor"
)

// WorkItem is one opaque unit of input, typically a URL. Each item is
// processed exactly once per run.
type WorkItem string

// OutcomeKind classifies a terminal per-item result.
type OutcomeKind string

const (
	OutcomeSuccess OutcomeKind = "success"
	OutcomeFailure OutcomeKind = "failure"
)

// Well-known failure reasons. Unit-of-work errors outside this set are
// recorded under a label derived from the error type.
const (
	ReasonTimeout   = "timeout"
	ReasonCancelled = "cancelled"
	ReasonPanic     = "panic"
)

// Outcome is the terminal result of processing one WorkItem. Created once by
// the engine, never mutated afterwards.
type Outcome struct {
	Item     WorkItem      `json:"item"`
	Kind     OutcomeKind   `json:"kind"`
	Elapsed  time.Duration `json:"elapsed"`
	Bytes    int64         `json:"bytes,omitempty"`
	Reason   string        `json:"reason,omitempty"`
	WorkerID int           `json:"worker_id"`
}

// Failed reports whether the outcome is a failure.
func (o Outcome) Failed() bool {
	return o.Kind == OutcomeFailure
}

// StrategyKind selects the concurrency discipline for a run.
type StrategyKind string

const (
	// StrategyThreads partitions items across worker goroutines that each
	// process their slice sequentially with true parallelism.
	StrategyThreads StrategyKind = "threads"
	// StrategyBounded dispatches items through a counting gate that caps the
	// number of simultaneously in-flight operations.
	StrategyBounded StrategyKind = "bounded"
)

// RunConfig describes one benchmark run. Immutable once the run starts.
type RunConfig struct {
	Label         string        `json:"label,omitempty"`
	Strategy      StrategyKind  `json:"strategy"`
	Concurrency   int           `json:"concurrency"`
	ItemTimeout   time.Duration `json:"item_timeout,omitempty"`
	RatePerSecond int           `json:"rate_per_second,omitempty"`
	Retry         RetryPolicy   `json:"-"`
}

// RunStatus marks how a run ended.
type RunStatus string

const (
	// StatusComplete means every input item produced exactly one outcome.
	StatusComplete RunStatus = "complete"
	// StatusIncomplete means the run was cancelled; collected outcomes are
	// kept but the accounting invariant does not hold.
	StatusIncomplete RunStatus = "incomplete"
)

// GateStats counts concurrency-gate activity during a run. Acquired and
// Released must match for a sealed run; Peak verifies the bound invariant.
type GateStats struct {
	Acquired int64 `json:"acquired"`
	Released int64 `json:"released"`
	Peak     int64 `json:"peak"`
}

// BenchmarkRun is the sealed record of one full execution under one
// RunConfig. Built incrementally by the engine; read-only once returned.
type BenchmarkRun struct {
	Config     RunConfig        `json:"config"`
	TotalItems int              `json:"total_items"`
	Outcomes   []Outcome        `json:"outcomes"`
	Samples    []monitor.Sample `json:"samples,omitempty"`
	Start      time.Time        `json:"start"`
	End        time.Time        `json:"end"`
	Status     RunStatus        `json:"status"`
	Gate       GateStats        `json:"gate"`
}

// Duration returns the wall-clock span of the run.
func (r *BenchmarkRun) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// Complete reports whether the run sealed with full outcome accounting.
func (r *BenchmarkRun) Complete() bool {
	return r.Status == StatusComplete
}
