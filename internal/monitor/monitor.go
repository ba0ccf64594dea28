// Package monitor samples system resource usage in the background while a
// benchmark run executes. The sampler runs on its own goroutine so resource
// measurement never contends with the workload's scheduling model.
package monitor

import (
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	gnet "github.com/shirou/gopsutil/v4/net"
)

const (
	defaultInterval    = 500 * time.Millisecond
	defaultJoinTimeout = 2 * time.Second
)

var (
	// ErrAlreadyStarted is returned when Start is called outside the Idle state.
	ErrAlreadyStarted = errors.New("monitor already started")
	// ErrNotSampling is returned when Stop is called outside the Sampling state.
	ErrNotSampling = errors.New("monitor is not sampling")
	// ErrNotStopped is returned when Stats is called before the monitor stopped.
	ErrNotStopped = errors.New("monitor has not stopped")
	// ErrJoinTimeout indicates the sampling loop did not exit within the join
	// window. Collected samples remain usable; callers log and proceed.
	ErrJoinTimeout = errors.New("monitor join timed out")
)

// Sample is one timestamped resource observation, relative to the monitor's
// own start time.
type Sample struct {
	Elapsed    time.Duration `json:"elapsed"`
	CPUPercent float64       `json:"cpu_percent"`
	CPUCount   int           `json:"cpu_count"`
	MemoryUsed uint64        `json:"memory_used_bytes"`
	NetSent    uint64        `json:"net_bytes_sent,omitempty"`
	NetRecv    uint64        `json:"net_bytes_recv,omitempty"`
}

// Stats is a pure aggregation over a sample sequence. Samples == 0 means
// no data was collected; all other fields are zero in that case.
type Stats struct {
	Samples  int           `json:"samples"`
	Span     time.Duration `json:"span"`
	CPUCount int           `json:"cpu_count"`

	CPUAvg float64 `json:"cpu_avg_percent"`
	CPUMax float64 `json:"cpu_max_percent"`
	CPUMin float64 `json:"cpu_min_percent"`

	MemAvg uint64 `json:"mem_avg_bytes"`
	MemMax uint64 `json:"mem_max_bytes"`
	MemMin uint64 `json:"mem_min_bytes"`

	// Network counters are deltas between the first and last sample.
	NetSent uint64 `json:"net_sent_bytes"`
	NetRecv uint64 `json:"net_recv_bytes"`
}

// Probe captures one resource snapshot. Elapsed is filled in by the monitor.
type Probe func() (Sample, error)

const (
	stateIdle = iota
	stateSampling
	stateStopped
)

// Options configure a Monitor.
type Options struct {
	Interval    time.Duration // sampling cadence (default 500ms)
	JoinTimeout time.Duration // max wait for the loop to exit on Stop (default 2s)
	Probe       Probe         // snapshot source, injectable for tests
	Logger      *slog.Logger
}

// Monitor owns a background sampling loop with an explicit
// Idle -> Sampling -> Stopped lifecycle.
type Monitor struct {
	interval time.Duration
	joinWait time.Duration
	probe    Probe
	logger   *slog.Logger

	mu       sync.Mutex
	state    int
	start    time.Time
	samples  []Sample
	done     chan struct{}
	finished chan struct{}
}

// New creates an idle Monitor.
func New(opts Options) *Monitor {
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.JoinTimeout <= 0 {
		opts.JoinTimeout = defaultJoinTimeout
	}
	if opts.Probe == nil {
		opts.Probe = systemProbe
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Monitor{
		interval: opts.Interval,
		joinWait: opts.JoinTimeout,
		probe:    opts.Probe,
		logger:   opts.Logger,
	}
}

// Start transitions Idle -> Sampling and launches the sampling loop.
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != stateIdle {
		return ErrAlreadyStarted
	}
	m.state = stateSampling
	m.start = time.Now()
	m.done = make(chan struct{})
	m.finished = make(chan struct{})

	go m.loop()
	return nil
}

// Stop transitions Sampling -> Stopped and joins the loop with a bounded
// wait. On ErrJoinTimeout the monitor still moves to Stopped and keeps
// whatever samples were collected.
func (m *Monitor) Stop() error {
	m.mu.Lock()
	if m.state != stateSampling {
		m.mu.Unlock()
		return ErrNotSampling
	}
	m.state = stateStopped
	close(m.done)
	m.mu.Unlock()

	select {
	case <-m.finished:
		return nil
	case <-time.After(m.joinWait):
		m.logger.Warn("sampling loop did not exit in time",
			slog.Duration("join_timeout", m.joinWait),
		)
		return ErrJoinTimeout
	}
}

// Samples returns a copy of the collected samples.
func (m *Monitor) Samples() []Sample {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Sample, len(m.samples))
	copy(out, m.samples)
	return out
}

// Latest returns the most recent sample, if any. Safe to call while sampling;
// used by live progress displays.
func (m *Monitor) Latest() (Sample, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.samples) == 0 {
		return Sample{}, false
	}
	return m.samples[len(m.samples)-1], true
}

// Stats aggregates the collected samples. Only valid after Stop.
func (m *Monitor) Stats() (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != stateStopped {
		return Stats{}, ErrNotStopped
	}
	return Aggregate(m.samples), nil
}

func (m *Monitor) loop() {
	defer close(m.finished)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			sample, err := m.probe()
			if err != nil {
				m.logger.Warn("resource probe failed", slog.String("error", err.Error()))
				continue
			}
			sample.Elapsed = time.Since(m.start)

			m.mu.Lock()
			m.samples = append(m.samples, sample)
			m.mu.Unlock()
		}
	}
}

// Aggregate reduces a sample sequence to avg/min/max statistics and network
// deltas. An empty input yields the explicit no-data result (Samples == 0).
func Aggregate(samples []Sample) Stats {
	if len(samples) == 0 {
		return Stats{}
	}

	stats := Stats{
		Samples:  len(samples),
		Span:     samples[len(samples)-1].Elapsed,
		CPUCount: samples[0].CPUCount,
		CPUMin:   samples[0].CPUPercent,
		MemMin:   samples[0].MemoryUsed,
	}

	var cpuSum float64
	var memSum uint64
	for _, s := range samples {
		cpuSum += s.CPUPercent
		memSum += s.MemoryUsed

		if s.CPUPercent > stats.CPUMax {
			stats.CPUMax = s.CPUPercent
		}
		if s.CPUPercent < stats.CPUMin {
			stats.CPUMin = s.CPUPercent
		}
		if s.MemoryUsed > stats.MemMax {
			stats.MemMax = s.MemoryUsed
		}
		if s.MemoryUsed < stats.MemMin {
			stats.MemMin = s.MemoryUsed
		}
	}
	stats.CPUAvg = cpuSum / float64(len(samples))
	stats.MemAvg = memSum / uint64(len(samples))

	first, last := samples[0], samples[len(samples)-1]
	if last.NetSent >= first.NetSent {
		stats.NetSent = last.NetSent - first.NetSent
	}
	if last.NetRecv >= first.NetRecv {
		stats.NetRecv = last.NetRecv - first.NetRecv
	}

	return stats
}

// systemProbe reads host-wide counters via gopsutil.
func systemProbe() (Sample, error) {
	sample := Sample{CPUCount: runtime.NumCPU()}

	// Non-blocking read: percentage since the previous call.
	percents, err := cpu.Percent(0, false)
	if err != nil {
		return Sample{}, err
	}
	if len(percents) > 0 {
		sample.CPUPercent = percents[0]
	}

	vm, err := mem.VirtualMemory()
	if err != nil {
		return Sample{}, err
	}
	sample.MemoryUsed = vm.Used

	// Network counters are best-effort; some platforms restrict access.
	if counters, err := gnet.IOCounters(false); err == nil && len(counters) > 0 {
		sample.NetSent = counters[0].BytesSent
		sample.NetRecv = counters[0].BytesRecv
	}

	return sample, nil
}
