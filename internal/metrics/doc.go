// Package metrics turns raw run outcomes into derived statistics.
//
// Tracker is the live path: it implements the engine's observer and keeps
// running counters and an HDR histogram for progress displays. Aggregate is
// the sealed path: a pure function over a finished run that always produces
// the same Metrics for the same input.
package metrics
