package engine

import (
	"context"
	"sync"

	"github.com/corbalt/fetchbench/internal/partition"
)

// runThreads executes the slice-per-worker strategy: the workload is split
// into contiguous spans and each worker goroutine drains its span
// sequentially. Concurrency is fixed at the worker count for the whole run.
func (e *Engine) runThreads(ctx context.Context, items []WorkItem, outcomes chan<- Outcome, g *gauge) {
	spans, err := partition.Plan(len(items), e.cfg.Concurrency)
	if err != nil {
		// Worker count is validated in New.
		e.logger.Error("workload partition failed", "error", err)
		return
	}

	var wg sync.WaitGroup
	for w, span := range spans {
		wg.Add(1)
		go func(worker int, span partition.Span) {
			defer wg.Done()
			for i := span.Start; i < span.End; i++ {
				if ctx.Err() != nil {
					return
				}
				if e.limiter != nil {
					if err := e.limiter.Wait(ctx); err != nil {
						return
					}
				}
				g.acquire()
				outcome := e.processItem(ctx, items[i], worker)
				g.release()
				outcomes <- outcome
			}
		}(w, span)
	}
	wg.Wait()
}
