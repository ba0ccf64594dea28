package engine

import (
	"context"
	"sync"
)

// runBounded executes the gated-dispatch strategy: a single loop walks the
// workload in order and starts a goroutine per item, holding a permit from a
// counting gate for the item's whole lifetime. At most Concurrency items are
// in flight at once; the dispatch loop itself blocks when the gate is full.
func (e *Engine) runBounded(ctx context.Context, items []WorkItem, outcomes chan<- Outcome, g *gauge) {
	permits := make(chan struct{}, e.cfg.Concurrency)
	var wg sync.WaitGroup

dispatch:
	for i, item := range items {
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				break
			}
		}
		select {
		case permits <- struct{}{}:
		case <-ctx.Done():
			break dispatch
		}
		g.acquire()

		wg.Add(1)
		go func(task int, item WorkItem) {
			defer wg.Done()
			// Release is unconditional: success, failure, and timeout all
			// return the permit.
			defer func() {
				g.release()
				<-permits
			}()
			outcomes <- e.processItem(ctx, item, task)
		}(i, item)
	}
	wg.Wait()
}
