package output

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/corbalt/fetchbench/internal/metrics"
)

// ProgressReporter displays real-time progress while a run executes. It
// reads tracker snapshots on a ticker; the workload is never blocked by
// display work.
type ProgressReporter struct {
	tracker  *metrics.Tracker
	total    int
	ticker   *time.Ticker
	done     chan struct{}
	finished chan struct{}
	writer   io.Writer
	active   int32
}

// NewProgressReporter creates a reporter updating at the given interval.
// total is the expected item count, used for the percentage display.
func NewProgressReporter(tracker *metrics.Tracker, total int, interval time.Duration, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	return &ProgressReporter{
		tracker:  tracker,
		total:    total,
		ticker:   time.NewTicker(interval),
		done:     make(chan struct{}),
		finished: make(chan struct{}),
		writer:   writer,
	}
}

// Start begins displaying progress updates in a background goroutine.
func (p *ProgressReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return // already running
	}
	go p.run()
}

// Stop halts progress updates and prints the final line.
func (p *ProgressReporter) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) {
		close(p.done)
		p.ticker.Stop()
		<-p.finished
		p.print()
		fmt.Fprintln(p.writer)
	}
}

func (p *ProgressReporter) run() {
	defer close(p.finished)
	for {
		select {
		case <-p.ticker.C:
			p.print()
		case <-p.done:
			return
		}
	}
}

func (p *ProgressReporter) print() {
	snap := p.tracker.Snapshot()
	line := fmt.Sprintf("\rItems: %d | Successes: %d | Failures: %d | Rate: %.1f/s",
		snap.Total, snap.Successes, snap.Failures, snap.PerSec)
	if p.total > 0 {
		line += fmt.Sprintf(" | %.0f%%", float64(snap.Total)/float64(p.total)*100)
	}
	if snap.P99Latency > 0 {
		line += fmt.Sprintf(" | P99 %s", snap.P99Latency.Round(time.Millisecond))
	}
	fmt.Fprint(p.writer, line)
}
