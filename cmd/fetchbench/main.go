package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/corbalt/fetchbench/internal/compare"
	"github.com/corbalt/fetchbench/internal/config"
	"github.com/corbalt/fetchbench/internal/dashboard"
	"github.com/corbalt/fetchbench/internal/engine"
	"github.com/corbalt/fetchbench/internal/fetch"
	"github.com/corbalt/fetchbench/internal/metrics"
	"github.com/corbalt/fetchbench/internal/monitor"
	"github.com/corbalt/fetchbench/internal/output"
	"github.com/corbalt/fetchbench/internal/store"
	"github.com/corbalt/fetchbench/internal/tracing"
	"github.com/corbalt/fetchbench/internal/workload"
)

const (
	progressInterval = time.Second
	baseRetryDelay   = 100 * time.Millisecond
	maxRetryDelay    = 5 * time.Second
	tracingTimeout   = 5 * time.Second
)

type stderrFailureLogger struct {
	mu sync.Mutex
}

func (l *stderrFailureLogger) LogFailure(item engine.WorkItem, err error) {
	if err == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(os.Stderr, "[fetchbench] item failed: %s: %v\n", item, err)
}

type jitterSource struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func (j *jitterSource) jitter(max time.Duration) time.Duration {
	if j == nil || max <= 0 {
		return 0
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return time.Duration(j.rnd.Int63n(int64(max)))
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	items, err := loadWorkload(cfg)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, stop := context.WithTimeout(context.Background(), tracingTimeout)
		defer stop()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown", slog.String("error", err.Error()))
		}
	}()

	var st *store.Store
	if cfg.ResultsDir != "" {
		st, err = store.New(cfg.ResultsDir)
		if err != nil {
			return err
		}
	}

	unit := buildUnit(cfg)
	if cfg.LogErrors {
		unit = engine.WithLogging(unit, &stderrFailureLogger{})
	}

	if cfg.Compare {
		return runComparison(ctx, cfg, unit, items, provider.Tracer(), logger, st)
	}

	runRec, err := executeRun(ctx, cfg, runSetup{
		label:       "run",
		strategy:    engine.StrategyKind(cfg.Strategy),
		concurrency: cfg.Concurrency,
	}, unit, items, provider.Tracer(), logger)
	if err != nil {
		return err
	}

	m := metrics.Aggregate(runRec)
	if cfg.JSONOutput {
		if err := output.PrintJSON(os.Stdout, m); err != nil {
			return err
		}
	} else {
		output.PrintRunReport(os.Stdout, m)
	}

	if st != nil {
		if id, err := st.SaveRun(runRec); err != nil {
			logger.Warn("run not persisted", slog.String("error", err.Error()))
		} else if !cfg.JSONOutput {
			fmt.Fprintf(os.Stdout, "\nSaved run %s to %s\n", id, st.Dir())
		}
	}
	return nil
}

func runComparison(ctx context.Context, cfg *config.Config, unit engine.UnitOfWork, items []engine.WorkItem, tracer trace.Tracer, logger *slog.Logger, st *store.Store) error {
	baseRun, err := executeRun(ctx, cfg, runSetup{
		label:       "baseline",
		strategy:    engine.StrategyKind(cfg.BaselineStrategy),
		concurrency: cfg.BaselineConcurrency,
	}, unit, items, tracer, logger)
	if err != nil {
		return err
	}

	candRun, err := executeRun(ctx, cfg, runSetup{
		label:       "candidate",
		strategy:    engine.StrategyKind(cfg.Strategy),
		concurrency: cfg.Concurrency,
	}, unit, items, tracer, logger)
	if err != nil {
		return err
	}

	report := compare.Compare(
		metrics.Aggregate(baseRun),
		metrics.Aggregate(candRun),
		toCompareTiers(cfg.Tiers),
	)

	if cfg.JSONOutput {
		if err := output.PrintJSON(os.Stdout, report); err != nil {
			return err
		}
	} else {
		output.PrintComparison(os.Stdout, report, cfg.NoColor)
	}

	if cfg.HTMLOutput != "" {
		if err := writeHTMLReport(cfg.HTMLOutput, report); err != nil {
			return err
		}
		if !cfg.JSONOutput {
			fmt.Fprintf(os.Stdout, "\nHTML report written to %s\n", cfg.HTMLOutput)
		}
	}

	if st != nil {
		if id, err := st.SaveComparison(report); err != nil {
			logger.Warn("comparison not persisted", slog.String("error", err.Error()))
		} else if !cfg.JSONOutput {
			fmt.Fprintf(os.Stdout, "Saved comparison %s to %s\n", id, st.Dir())
		}
	}
	return nil
}

// runSetup identifies one run within an invocation; in compare mode the
// baseline and candidate differ only in these fields.
type runSetup struct {
	label       string
	strategy    engine.StrategyKind
	concurrency int
}

func executeRun(ctx context.Context, cfg *config.Config, setup runSetup, unit engine.UnitOfWork, items []engine.WorkItem, tracer trace.Tracer, logger *slog.Logger) (*engine.BenchmarkRun, error) {
	// Per-run cancellation so the dashboard quit key stops only this run.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	tracker := metrics.NewTracker()

	var mon *monitor.Monitor
	if !cfg.Monitor.Disabled {
		mon = monitor.New(monitor.Options{
			Interval:    cfg.Monitor.Interval,
			JoinTimeout: cfg.Monitor.JoinTimeout,
			Logger:      logger,
		})
	}

	eng, err := engine.New(engine.Options{
		Config: engine.RunConfig{
			Label:         setup.label,
			Strategy:      setup.strategy,
			Concurrency:   setup.concurrency,
			ItemTimeout:   cfg.Timeout,
			RatePerSecond: cfg.Rate,
			Retry:         newRetryPolicy(cfg),
		},
		Unit:     unit,
		Monitor:  mon,
		Observer: tracker,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	if cfg.Dashboard {
		dash, err := dashboard.New(tracker, mon, dashboard.RunInfo{
			Label:       setup.label,
			Strategy:    string(setup.strategy),
			Concurrency: setup.concurrency,
			Total:       len(items),
			Rate:        cfg.Rate,
			Timeout:     cfg.Timeout,
			Retries:     cfg.Retries,
			Mode:        string(cfg.Mode),
		}, cancel)
		if err != nil {
			return nil, err
		}
		dash.Start()
		defer dash.Stop()
	}

	if !cfg.JSONOutput && !cfg.Dashboard {
		progress := output.NewProgressReporter(tracker, len(items), progressInterval, os.Stdout)
		progress.Start()
		defer func() {
			progress.Stop()
			fmt.Fprintln(os.Stdout)
		}()
	}

	spanCtx, span := tracing.StartRunSpan(runCtx, tracer, setup.label, string(setup.strategy), setup.concurrency, len(items))
	runRec := eng.Run(spanCtx, items)
	if runRec.Complete() {
		tracing.EndSpan(span, nil)
	} else {
		tracing.EndSpan(span, fmt.Errorf("run sealed incomplete: %d of %d outcomes", len(runRec.Outcomes), runRec.TotalItems))
	}
	return runRec, nil
}

func loadWorkload(cfg *config.Config) ([]engine.WorkItem, error) {
	if cfg.ItemsFile != "" {
		if cfg.ItemsJSONPath != "" {
			return workload.LoadJSON(cfg.ItemsFile, cfg.ItemsJSONPath)
		}
		return workload.Load(cfg.ItemsFile)
	}
	items := workload.Synthetic(cfg.SyntheticCount, cfg.SyntheticPattern)
	if len(items) == 0 {
		return nil, workload.ErrEmpty
	}
	return items, nil
}

func buildUnit(cfg *config.Config) engine.UnitOfWork {
	if cfg.Mode == config.ModeHTTP {
		return fetch.NewHTTPFetcher(fetch.HTTPOptions{})
	}
	return fetch.NewSimulator(fetch.SimulatorConfig{
		MinLatency:  cfg.Sim.MinLatency,
		MaxLatency:  cfg.Sim.MaxLatency,
		FailureRate: cfg.Sim.FailureRate,
		MinBytes:    cfg.Sim.MinBytes,
		MaxBytes:    cfg.Sim.MaxBytes,
		Seed:        cfg.Sim.Seed,
	})
}

func newRetryPolicy(cfg *config.Config) engine.RetryPolicy {
	if cfg.Retries <= 0 {
		return engine.RetryPolicy{}
	}

	policy := engine.RetryPolicy{
		MaxAttempts: cfg.Retries + 1,
		ShouldRetry: shouldRetry,
	}

	if cfg.RetryDelay > 0 {
		policy.Delay = cfg.RetryDelay
		return policy
	}

	source := &jitterSource{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
	policy.DelayFunc = func(attempt int, err error) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		backoff := time.Duration(1<<uint(attempt-1)) * baseRetryDelay
		if backoff > maxRetryDelay {
			backoff = maxRetryDelay
		}
		return backoff + source.jitter(backoff/2)
	}
	return policy
}

func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var httpErr *fetch.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode == http.StatusTooManyRequests {
			return true
		}
		return httpErr.StatusCode >= 500
	}

	return true
}

func toCompareTiers(tiers []config.TierConfig) []compare.Tier {
	if len(tiers) == 0 {
		return nil
	}
	result := make([]compare.Tier, len(tiers))
	for i, t := range tiers {
		result[i] = compare.Tier{Name: t.Name, MinSpeedup: t.MinSpeedup}
	}
	return result
}

func writeHTMLReport(path string, report compare.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := output.GenerateHTMLReport(f, report); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
