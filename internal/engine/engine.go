package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/corbalt/fetchbench/internal/monitor"
)

// ErrInvalidConfiguration is the only unrecoverable error class: it surfaces
// from New before any run starts. Everything else degrades into run data.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// PanicError wraps a panic recovered from a unit of work so a misbehaving
// item becomes a failure outcome instead of killing its worker.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("unit of work panicked: %v", e.Value)
}

// Observer receives each outcome as it is collected. Called from the single
// collector goroutine, so implementations see outcomes one at a time.
type Observer interface {
	Observe(Outcome)
}

// Options configure an Engine.
type Options struct {
	Config         RunConfig
	Unit           UnitOfWork       // item processor (required)
	Monitor        *monitor.Monitor // optional resource sampler, lifecycle-coupled to the run
	Observer       Observer         // optional live outcome sink
	Logger         *slog.Logger
	LimiterFactory func(rps int) *rate.Limiter // optional injection for tests
}

// Engine executes one benchmark run under a configured concurrency strategy.
type Engine struct {
	cfg     RunConfig
	unit    UnitOfWork
	mon     *monitor.Monitor
	obs     Observer
	logger  *slog.Logger
	limiter *rate.Limiter
}

// New validates the configuration and builds an Engine. All configuration
// problems surface here, before any run starts.
func New(opts Options) (*Engine, error) {
	cfg := opts.Config
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyThreads
	}

	switch {
	case opts.Unit == nil:
		return nil, fmt.Errorf("%w: unit of work is required", ErrInvalidConfiguration)
	case cfg.Strategy != StrategyThreads && cfg.Strategy != StrategyBounded:
		return nil, fmt.Errorf("%w: unknown strategy %q", ErrInvalidConfiguration, cfg.Strategy)
	case cfg.Concurrency < 1:
		return nil, fmt.Errorf("%w: concurrency must be >= 1 (got %d)", ErrInvalidConfiguration, cfg.Concurrency)
	case cfg.ItemTimeout < 0:
		return nil, fmt.Errorf("%w: item timeout must be >= 0", ErrInvalidConfiguration)
	case cfg.RatePerSecond < 0:
		return nil, fmt.Errorf("%w: rate must be >= 0", ErrInvalidConfiguration)
	case cfg.Retry.MaxAttempts < 0:
		return nil, fmt.Errorf("%w: retry attempts must be >= 0", ErrInvalidConfiguration)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	factory := opts.LimiterFactory
	if factory == nil {
		factory = func(rps int) *rate.Limiter {
			// Burst equal to rps to smooth pacing under concurrency.
			return rate.NewLimiter(rate.Limit(rps), rps)
		}
	}
	var limiter *rate.Limiter
	if cfg.RatePerSecond > 0 {
		limiter = factory(cfg.RatePerSecond)
	}

	return &Engine{
		cfg:     cfg,
		unit:    WithRetry(opts.Unit, cfg.Retry),
		mon:     opts.Monitor,
		obs:     opts.Observer,
		logger:  logger,
		limiter: limiter,
	}, nil
}

// Run executes the workload and returns the sealed run. Run never fails:
// per-item errors, timeouts, and cancellation all degrade into the run
// record. Cancelling ctx stops dispatch of new items, lets in-flight items
// finish within their own timeout, and seals the run as Incomplete.
func (e *Engine) Run(ctx context.Context, items []WorkItem) *BenchmarkRun {
	run := &BenchmarkRun{
		Config:     e.cfg,
		TotalItems: len(items),
		Outcomes:   make([]Outcome, 0, len(items)),
		Start:      time.Now(),
	}

	if e.mon != nil {
		if err := e.mon.Start(); err != nil {
			e.logger.Warn("resource monitor not started", slog.String("error", err.Error()))
		}
	}

	// Single-consumer collection: workers send, one goroutine appends.
	outcomes := make(chan Outcome, e.cfg.Concurrency)
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for o := range outcomes {
			run.Outcomes = append(run.Outcomes, o)
			if e.obs != nil {
				e.obs.Observe(o)
			}
		}
	}()

	g := &gauge{}
	switch e.cfg.Strategy {
	case StrategyBounded:
		e.runBounded(ctx, items, outcomes, g)
	default:
		e.runThreads(ctx, items, outcomes, g)
	}
	close(outcomes)
	<-collected

	if e.mon != nil {
		if err := e.mon.Stop(); err != nil {
			// Join timeout degrades sample completeness; the run proceeds.
			e.logger.Warn("resource monitor stop degraded", slog.String("error", err.Error()))
		}
		run.Samples = e.mon.Samples()
	}

	run.End = time.Now()
	run.Gate = g.stats()
	if len(run.Outcomes) == run.TotalItems {
		run.Status = StatusComplete
	} else {
		run.Status = StatusIncomplete
		e.logger.Warn("run sealed incomplete",
			slog.Int("collected", len(run.Outcomes)),
			slog.Int("total", run.TotalItems),
		)
	}
	return run
}

type unitResult struct {
	bytes int64
	err   error
}

// processItem runs the unit of work for one item and converts the result
// into a terminal Outcome. The item context is detached from run
// cancellation so an already-dispatched item may finish, but it carries the
// per-item timeout.
func (e *Engine) processItem(ctx context.Context, item WorkItem, worker int) Outcome {
	itemCtx := context.WithoutCancel(ctx)
	cancel := context.CancelFunc(func() {})
	if e.cfg.ItemTimeout > 0 {
		itemCtx, cancel = context.WithTimeout(itemCtx, e.cfg.ItemTimeout)
	}
	defer cancel()

	start := time.Now()
	res := make(chan unitResult, 1)
	go func() {
		defer func() {
			if v := recover(); v != nil {
				res <- unitResult{err: &PanicError{Value: v}}
			}
		}()
		bytes, err := e.unit.Process(itemCtx, item)
		res <- unitResult{bytes: bytes, err: err}
	}()

	var result unitResult
	select {
	case result = <-res:
	case <-itemCtx.Done():
		// The unit ignored its deadline. Abandon it so one slow item cannot
		// stall the run; the buffered channel lets the goroutine exit.
		result = unitResult{err: itemCtx.Err()}
	}
	elapsed := time.Since(start)

	if result.err != nil {
		return Outcome{
			Item:     item,
			Kind:     OutcomeFailure,
			Elapsed:  elapsed,
			Reason:   reasonFor(result.err),
			WorkerID: worker,
		}
	}
	return Outcome{
		Item:     item,
		Kind:     OutcomeSuccess,
		Elapsed:  elapsed,
		Bytes:    result.bytes,
		WorkerID: worker,
	}
}

// reasonFor maps a unit-of-work error to a stable failure-reason label.
func reasonFor(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(err, context.Canceled):
		return ReasonCancelled
	}
	var panicErr *PanicError
	if errors.As(err, &panicErr) {
		return ReasonPanic
	}
	label := fmt.Sprintf("%T", err)
	if len(label) > 30 {
		label = label[len(label)-30:]
	}
	return label
}

// gauge instruments gate activity: acquire/release counts and the peak
// number of simultaneously in-flight operations.
type gauge struct {
	inflight atomic.Int64
	peak     atomic.Int64
	acquired atomic.Int64
	released atomic.Int64
}

func (g *gauge) acquire() {
	g.acquired.Add(1)
	cur := g.inflight.Add(1)
	for {
		prev := g.peak.Load()
		if cur <= prev || g.peak.CompareAndSwap(prev, cur) {
			return
		}
	}
}

func (g *gauge) release() {
	g.released.Add(1)
	g.inflight.Add(-1)
}

func (g *gauge) stats() GateStats {
	return GateStats{
		Acquired: g.acquired.Load(),
		Released: g.released.Load(),
		Peak:     g.peak.Load(),
	}
}
