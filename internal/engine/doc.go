// Package engine executes a fixed workload under one of two concurrency
// strategies and seals the result into an immutable run record.
//
// The threads strategy partitions the workload across a fixed set of worker
// goroutines, each draining its contiguous slice sequentially. The bounded
// strategy dispatches items in order through a counting gate that caps the
// number of simultaneously in-flight operations. Both produce the same
// Outcome stream, so their runs are directly comparable.
//
// A run never fails as a whole: per-item errors, timeouts, and panics are
// recorded as failure outcomes, and cancelling the run context stops
// dispatch while letting in-flight items finish within their own timeout.
package engine
