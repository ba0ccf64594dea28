// Package fetch provides the units of work a benchmark run executes: a
// deterministic simulated fetch for strategy comparison, and a real HTTP
// fetch for measuring against live endpoints.
package fetch

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/corbalt/fetchbench/internal/engine"
)

// RateLimitError marks a simulated upstream throttle.
type RateLimitError struct {
	Item engine.WorkItem
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: %s", e.Item)
}

// ServerError marks a simulated upstream failure.
type ServerError struct {
	Item       engine.WorkItem
	StatusCode int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.StatusCode, e.Item)
}

// SimulatorConfig shapes the simulated fetch distribution.
type SimulatorConfig struct {
	MinLatency  time.Duration // default 50ms
	MaxLatency  time.Duration // default 500ms
	FailureRate float64       // probability of failure per item, default 0.05
	MinBytes    int64         // default 15000
	MaxBytes    int64         // default 45000
	Seed        int64         // base seed; same seed + item = same outcome
}

func (c *SimulatorConfig) applyDefaults() {
	if c.MinLatency <= 0 {
		c.MinLatency = 50 * time.Millisecond
	}
	if c.MaxLatency < c.MinLatency {
		c.MaxLatency = 10 * c.MinLatency
	}
	if c.FailureRate < 0 {
		c.FailureRate = 0
	}
	if c.FailureRate > 1 {
		c.FailureRate = 1
	}
	if c.MinBytes <= 0 {
		c.MinBytes = 15000
	}
	if c.MaxBytes < c.MinBytes {
		c.MaxBytes = 3 * c.MinBytes
	}
}

// Simulator is a UnitOfWork that mimics a network fetch: it sleeps for a
// latency drawn from the configured band, fails with the configured
// probability, and reports a payload size on success.
//
// Every item's behavior is derived from the base seed and the item itself,
// so a given workload produces the same latencies, failures, and sizes
// under either strategy and at any concurrency.
type Simulator struct {
	cfg SimulatorConfig
}

// NewSimulator builds a Simulator with defaults applied.
func NewSimulator(cfg SimulatorConfig) *Simulator {
	cfg.applyDefaults()
	return &Simulator{cfg: cfg}
}

// Process performs one simulated fetch. The latency sleep honors ctx, so
// per-item timeouts and cancellation behave as they would for real I/O.
func (s *Simulator) Process(ctx context.Context, item engine.WorkItem) (int64, error) {
	rng := s.rngFor(item)

	latency := s.cfg.MinLatency
	if band := s.cfg.MaxLatency - s.cfg.MinLatency; band > 0 {
		latency += time.Duration(rng.Int63n(int64(band)))
	}

	select {
	case <-time.After(latency):
	case <-ctx.Done():
		return 0, ctx.Err()
	}

	if rng.Float64() < s.cfg.FailureRate {
		// Split failures between throttles and upstream errors.
		if rng.Intn(2) == 0 {
			return 0, &RateLimitError{Item: item}
		}
		return 0, &ServerError{Item: item, StatusCode: 500 + rng.Intn(4)}
	}

	bytes := s.cfg.MinBytes
	if band := s.cfg.MaxBytes - s.cfg.MinBytes; band > 0 {
		bytes += rng.Int63n(band)
	}
	return bytes, nil
}

// rngFor derives a per-item generator from the base seed and the item, so
// per-item behavior does not depend on scheduling order.
func (s *Simulator) rngFor(item engine.WorkItem) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(item))
	return rand.New(rand.NewSource(s.cfg.Seed ^ int64(h.Sum64())))
}
