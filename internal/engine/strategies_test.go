package engine_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/corbalt/fetchbench/internal/engine"
)

// trackingUnit records the number of simultaneously running items.
type trackingUnit struct {
	inflight atomic.Int64
	peak     atomic.Int64
	delay    time.Duration
}

func (u *trackingUnit) Process(ctx context.Context, item engine.WorkItem) (int64, error) {
	cur := u.inflight.Add(1)
	defer u.inflight.Add(-1)
	for {
		prev := u.peak.Load()
		if cur <= prev || u.peak.CompareAndSwap(prev, cur) {
			break
		}
	}
	select {
	case <-time.After(u.delay):
		return 256, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// TestConcurrencyBoundHolds verifies the core gate invariant under both
// strategies: observed in-flight work never exceeds the configured bound.
func TestConcurrencyBoundHolds(t *testing.T) {
	for _, strategy := range []engine.StrategyKind{engine.StrategyThreads, engine.StrategyBounded} {
		t.Run(string(strategy), func(t *testing.T) {
			unit := &trackingUnit{delay: time.Millisecond}
			e, err := engine.New(engine.Options{
				Unit:   unit,
				Config: engine.RunConfig{Strategy: strategy, Concurrency: 8},
			})
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}

			run := e.Run(context.Background(), synthItems(200))
			if !run.Complete() {
				t.Fatalf("expected complete run, got %s", run.Status)
			}
			if peak := unit.peak.Load(); peak > 8 {
				t.Fatalf("concurrency bound violated: observed %d in flight", peak)
			}
			if run.Gate.Peak > 8 {
				t.Fatalf("gate recorded peak %d above the bound", run.Gate.Peak)
			}
			if run.Gate.Acquired != 200 || run.Gate.Released != 200 {
				t.Fatalf("gate accounting wrong: %+v", run.Gate)
			}
		})
	}
}

// TestThreadsSliceAssignment checks that the threads strategy gives each
// worker a contiguous slice: every outcome's worker matches the span its
// item index falls into.
func TestThreadsSliceAssignment(t *testing.T) {
	e, err := engine.New(engine.Options{
		Unit:   sleepUnit(0),
		Config: engine.RunConfig{Strategy: engine.StrategyThreads, Concurrency: 4},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	// 10 items over 4 workers: spans are [0,2) [2,4) [4,6) [6,10).
	run := e.Run(context.Background(), synthItems(10))
	wantWorker := map[engine.WorkItem]int{}
	spans := [][2]int{{0, 2}, {2, 4}, {4, 6}, {6, 10}}
	for w, span := range spans {
		for i := span[0]; i < span[1]; i++ {
			wantWorker[synthItems(10)[i]] = w
		}
	}
	for _, o := range run.Outcomes {
		if o.WorkerID != wantWorker[o.Item] {
			t.Fatalf("item %s ran on worker %d, want %d", o.Item, o.WorkerID, wantWorker[o.Item])
		}
	}
}

// TestBoundedOutpacesNarrowThreadsOnWaitBoundWork compares the two
// strategies on wait-dominated items: a wide gate should beat a narrow
// worker pool by a wide margin.
func TestBoundedOutpacesNarrowThreadsOnWaitBoundWork(t *testing.T) {
	if testing.Short() {
		t.Skip("timing comparison skipped in short mode")
	}

	items := synthItems(200)
	unit := sleepUnit(10 * time.Millisecond)

	threads, err := engine.New(engine.Options{
		Unit:   unit,
		Config: engine.RunConfig{Strategy: engine.StrategyThreads, Concurrency: 5},
	})
	if err != nil {
		t.Fatalf("New(threads) failed: %v", err)
	}
	bounded, err := engine.New(engine.Options{
		Unit:   unit,
		Config: engine.RunConfig{Strategy: engine.StrategyBounded, Concurrency: 100},
	})
	if err != nil {
		t.Fatalf("New(bounded) failed: %v", err)
	}

	threadsRun := threads.Run(context.Background(), items)
	boundedRun := bounded.Run(context.Background(), items)

	if !threadsRun.Complete() || !boundedRun.Complete() {
		t.Fatalf("runs did not complete: %s / %s", threadsRun.Status, boundedRun.Status)
	}
	if boundedRun.Duration() >= threadsRun.Duration() {
		t.Fatalf("wide gate should beat narrow pool on wait-bound work: bounded=%v threads=%v",
			boundedRun.Duration(), threadsRun.Duration())
	}
}
