package monitor_test

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/corbalt/fetchbench/internal/monitor"
)

func countingProbe(calls *int64) monitor.Probe {
	return func() (monitor.Sample, error) {
		n := atomic.AddInt64(calls, 1)
		return monitor.Sample{
			CPUPercent: float64(n * 10),
			CPUCount:   4,
			MemoryUsed: uint64(n) * 1 << 30,
			NetSent:    uint64(n) * 100,
			NetRecv:    uint64(n) * 1000,
		}, nil
	}
}

func TestMonitorLifecycle(t *testing.T) {
	var calls int64
	m := monitor.New(monitor.Options{
		Interval: 5 * time.Millisecond,
		Probe:    countingProbe(&calls),
	})

	if _, err := m.Stats(); !errors.Is(err, monitor.ErrNotStopped) {
		t.Fatalf("Stats before start: expected ErrNotStopped, got %v", err)
	}
	if err := m.Stop(); !errors.Is(err, monitor.ErrNotSampling) {
		t.Fatalf("Stop while idle: expected ErrNotSampling, got %v", err)
	}

	if err := m.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := m.Start(); !errors.Is(err, monitor.ErrAlreadyStarted) {
		t.Fatalf("double Start: expected ErrAlreadyStarted, got %v", err)
	}

	time.Sleep(60 * time.Millisecond)

	if err := m.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := m.Stop(); !errors.Is(err, monitor.ErrNotSampling) {
		t.Fatalf("double Stop: expected ErrNotSampling, got %v", err)
	}

	samples := m.Samples()
	if len(samples) == 0 {
		t.Fatal("expected samples to be collected")
	}
	for i := 1; i < len(samples); i++ {
		if samples[i].Elapsed < samples[i-1].Elapsed {
			t.Fatalf("sample timestamps not monotonic: %v then %v", samples[i-1].Elapsed, samples[i].Elapsed)
		}
	}

	stats, err := m.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Samples != len(samples) {
		t.Fatalf("stats counted %d samples, collected %d", stats.Samples, len(samples))
	}
	if stats.CPUCount != 4 {
		t.Fatalf("expected cpu count 4, got %d", stats.CPUCount)
	}
}

func TestAggregateComputesAvgMinMax(t *testing.T) {
	samples := []monitor.Sample{
		{Elapsed: time.Second, CPUPercent: 10, CPUCount: 8, MemoryUsed: 100, NetSent: 50, NetRecv: 500},
		{Elapsed: 2 * time.Second, CPUPercent: 30, CPUCount: 8, MemoryUsed: 300, NetSent: 70, NetRecv: 900},
		{Elapsed: 3 * time.Second, CPUPercent: 20, CPUCount: 8, MemoryUsed: 200, NetSent: 150, NetRecv: 1500},
	}

	stats := monitor.Aggregate(samples)
	if stats.Samples != 3 {
		t.Fatalf("expected 3 samples, got %d", stats.Samples)
	}
	if stats.CPUAvg != 20 {
		t.Fatalf("expected cpu avg 20, got %g", stats.CPUAvg)
	}
	if stats.CPUMin != 10 || stats.CPUMax != 30 {
		t.Fatalf("cpu min/max wrong: %g/%g", stats.CPUMin, stats.CPUMax)
	}
	if stats.MemAvg != 200 || stats.MemMin != 100 || stats.MemMax != 300 {
		t.Fatalf("mem stats wrong: avg=%d min=%d max=%d", stats.MemAvg, stats.MemMin, stats.MemMax)
	}
	if stats.NetSent != 100 || stats.NetRecv != 1000 {
		t.Fatalf("net deltas wrong: sent=%d recv=%d", stats.NetSent, stats.NetRecv)
	}
	if stats.Span != 3*time.Second {
		t.Fatalf("span wrong: %v", stats.Span)
	}
}

// TestAggregateNoSamples covers the explicit no-data result instead of a
// divide-by-zero.
func TestAggregateNoSamples(t *testing.T) {
	stats := monitor.Aggregate(nil)
	if stats.Samples != 0 {
		t.Fatalf("expected zero samples, got %d", stats.Samples)
	}
	if stats.CPUAvg != 0 || stats.MemAvg != 0 {
		t.Fatalf("expected zero aggregates, got %+v", stats)
	}
}

// TestStopJoinTimeoutKeepsSamples ensures a stuck probe degrades to
// ErrJoinTimeout without losing data already collected.
func TestStopJoinTimeoutKeepsSamples(t *testing.T) {
	var calls int64
	block := make(chan struct{})
	probe := func() (monitor.Sample, error) {
		n := atomic.AddInt64(&calls, 1)
		if n > 2 {
			<-block // wedge the loop
		}
		return monitor.Sample{CPUPercent: 5, CPUCount: 2, MemoryUsed: 64}, nil
	}

	m := monitor.New(monitor.Options{
		Interval:    2 * time.Millisecond,
		JoinTimeout: 30 * time.Millisecond,
		Probe:       probe,
	})
	if err := m.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	err := m.Stop()
	if !errors.Is(err, monitor.ErrJoinTimeout) {
		t.Fatalf("expected ErrJoinTimeout, got %v", err)
	}

	if len(m.Samples()) == 0 {
		t.Fatal("expected collected samples to survive a join timeout")
	}
	if _, err := m.Stats(); err != nil {
		t.Fatalf("Stats after timed-out stop should work: %v", err)
	}
	close(block)
}

func TestLatestDuringSampling(t *testing.T) {
	var calls int64
	m := monitor.New(monitor.Options{
		Interval: 2 * time.Millisecond,
		Probe:    countingProbe(&calls),
	})
	if _, ok := m.Latest(); ok {
		t.Fatal("expected no sample before start")
	}
	if err := m.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer m.Stop()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if s, ok := m.Latest(); ok {
			if s.CPUCount != 4 {
				t.Fatalf("unexpected sample: %+v", s)
			}
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("no sample observed before deadline")
}
