// Package partition splits a workload across a fixed number of workers.
package partition

import (
	"errors"
	"fmt"
)

// ErrInvalidWorkerCount is returned when the requested worker count is not positive.
var ErrInvalidWorkerCount = errors.New("worker count must be >= 1")

// Span is a half-open [Start, End) index range assigned to one worker.
type Span struct {
	Start int
	End   int
}

// Len returns the number of items covered by the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// Plan divides total items into workers contiguous, non-overlapping spans
// whose union covers [0, total). The last span absorbs the remainder of the
// integer division. Zero items is valid and yields workers empty spans.
func Plan(total, workers int) ([]Span, error) {
	if workers < 1 {
		return nil, fmt.Errorf("partition %d items: %w (got %d)", total, ErrInvalidWorkerCount, workers)
	}
	if total < 0 {
		return nil, fmt.Errorf("partition: item count must be >= 0 (got %d)", total)
	}

	spans := make([]Span, workers)
	per := total / workers
	for i := range spans {
		start := i * per
		end := start + per
		if i == workers-1 {
			end = total
		}
		spans[i] = Span{Start: start, End: end}
	}
	return spans, nil
}
