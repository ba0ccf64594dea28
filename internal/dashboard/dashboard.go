// Package dashboard renders a live terminal UI for a benchmark run.
package dashboard

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/corbalt/fetchbench/internal/metrics"
	"github.com/corbalt/fetchbench/internal/monitor"
)

// RunInfo holds run configuration parameters for display.
type RunInfo struct {
	Label       string        // Run label (e.g. "candidate", "baseline")
	Strategy    string        // Concurrency strategy name
	Concurrency int           // Worker count or in-flight cap
	Total       int           // Total work items in the run
	Rate        int           // Dispatches per second (0 = unlimited)
	Timeout     time.Duration // Per-item timeout
	Retries     int           // Retry attempts per item
	Mode        string        // Unit of work (simulate, http)
}

// Dashboard renders live progress, latency, and resource data while a
// benchmark run executes.
type Dashboard struct {
	tracker      *metrics.Tracker
	mon          *monitor.Monitor
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownFunc func()
	wg           sync.WaitGroup
	mu           sync.Mutex

	// Widgets
	grid           *ui.Grid
	latencySparkle *widgets.SparklineGroup
	latencyPara    *widgets.Paragraph
	progressGauge  *widgets.Gauge
	reasonList     *widgets.List
	summaryPara    *widgets.Paragraph
	countersPara   *widgets.Paragraph
	resourcesPara  *widgets.Paragraph
	latencyHistory []float64
	startTime      time.Time
	info           RunInfo
}

// New creates a Dashboard. The monitor may be nil when resource sampling is
// disabled. shutdownFunc is invoked when the user quits with q or Ctrl-C.
func New(tracker *metrics.Tracker, mon *monitor.Monitor, info RunInfo, shutdownFunc func()) (*Dashboard, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize termui: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	d := &Dashboard{
		tracker:        tracker,
		mon:            mon,
		ctx:            ctx,
		cancel:         cancel,
		shutdownFunc:   shutdownFunc,
		latencyHistory: make([]float64, 0, 100),
		startTime:      time.Now(),
		info:           info,
	}

	d.initWidgets()
	d.setupGrid()

	return d, nil
}

// initWidgets initializes all dashboard widgets.
func (d *Dashboard) initWidgets() {
	// Latency Sparkline
	sparkline := widgets.NewSparkline()
	sparkline.Title = "Latency (ms)"
	sparkline.LineColor = ui.ColorGreen
	sparkline.Data = []float64{0}

	d.latencySparkle = widgets.NewSparklineGroup(sparkline)
	d.latencySparkle.Title = "Real-time Latency"
	d.latencySparkle.BorderStyle.Fg = ui.ColorCyan

	// Latency Metrics Paragraph
	d.latencyPara = widgets.NewParagraph()
	d.latencyPara.Title = "Latency Stats"
	d.latencyPara.Text = "Min: 0ms\nMean: 0ms\nP50: 0ms\nP99: 0ms"
	d.latencyPara.BorderStyle.Fg = ui.ColorCyan

	// Progress Gauge
	d.progressGauge = widgets.NewGauge()
	d.progressGauge.Title = "Run Progress"
	d.progressGauge.Percent = 0
	d.progressGauge.BarColor = ui.ColorBlue
	d.progressGauge.BorderStyle.Fg = ui.ColorCyan
	d.progressGauge.LabelStyle = ui.NewStyle(ui.ColorWhite)

	// Failure Reason List
	d.reasonList = widgets.NewList()
	d.reasonList.Title = "Failure Reasons"
	d.reasonList.Rows = []string{"No failures"}
	d.reasonList.TextStyle = ui.NewStyle(ui.ColorYellow)
	d.reasonList.BorderStyle.Fg = ui.ColorCyan

	// Summary Paragraph
	d.summaryPara = widgets.NewParagraph()
	d.summaryPara.Title = "Benchmark Run"
	d.summaryPara.Text = "Initializing..."
	d.summaryPara.BorderStyle.Fg = ui.ColorCyan

	// Counters Paragraph
	d.countersPara = widgets.NewParagraph()
	d.countersPara.Title = "Counters"
	d.countersPara.Text = "Waiting for data..."
	d.countersPara.BorderStyle.Fg = ui.ColorCyan

	// Resources Paragraph
	d.resourcesPara = widgets.NewParagraph()
	d.resourcesPara.Title = "Resources"
	d.resourcesPara.Text = "No samples yet"
	d.resourcesPara.TextStyle = ui.NewStyle(ui.ColorGreen)
	d.resourcesPara.BorderStyle.Fg = ui.ColorCyan
}

// setupGrid configures the layout grid.
func (d *Dashboard) setupGrid() {
	termWidth, termHeight := ui.TerminalDimensions()

	d.grid = ui.NewGrid()
	d.grid.SetRect(0, 0, termWidth, termHeight)

	d.grid.Set(
		ui.NewRow(0.16,
			ui.NewCol(1.0, d.summaryPara),
		),
		ui.NewRow(0.18,
			ui.NewCol(0.5, d.progressGauge),
			ui.NewCol(0.5, d.countersPara),
		),
		ui.NewRow(0.30,
			ui.NewCol(0.65, d.latencySparkle),
			ui.NewCol(0.35, d.latencyPara),
		),
		ui.NewRow(0.36,
			ui.NewCol(0.5, d.resourcesPara),
			ui.NewCol(0.5, d.reasonList),
		),
	)
}

// Start begins the dashboard update loop.
func (d *Dashboard) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop stops the dashboard and restores the terminal.
func (d *Dashboard) Stop() {
	d.cancel()
	d.wg.Wait()
	ui.Close()
	// Give terminal time to restore
	time.Sleep(100 * time.Millisecond)
}

// run is the main dashboard update loop.
func (d *Dashboard) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	uiEvents := ui.PollEvents()

	d.render()

	for {
		select {
		case <-d.ctx.Done():
			// Drain any remaining events
			for len(uiEvents) > 0 {
				<-uiEvents
			}
			return
		case e := <-uiEvents:
			// Check if context is done to avoid blocking
			select {
			case <-d.ctx.Done():
				return
			default:
			}

			switch e.ID {
			case "q", "<C-c>":
				if d.shutdownFunc != nil {
					d.shutdownFunc()
				}
				// Do not return here; wait for Stop() to cancel context
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				d.grid.SetRect(0, 0, payload.Width, payload.Height)
				ui.Clear()
				d.render()
			}
		case <-ticker.C:
			d.update()
			d.render()
		}
	}
}

// update refreshes all widget data from the tracker and monitor.
func (d *Dashboard) update() {
	d.mu.Lock()
	defer d.mu.Unlock()

	elapsed := time.Since(d.startTime)
	snap := d.tracker.Snapshot()

	// Update latency history for sparkline
	if snap.MeanLatency > 0 {
		latencyMs := float64(snap.MeanLatency.Microseconds()) / 1000.0
		d.latencyHistory = append(d.latencyHistory, latencyMs)
		if len(d.latencyHistory) > 100 {
			d.latencyHistory = d.latencyHistory[1:]
		}
		d.latencySparkle.Sparklines[0].Data = d.latencyHistory
		d.latencySparkle.Title = fmt.Sprintf(
			"Real-time Latency | Mean: %.2fms | Min: %.2fms | Max: %.2fms",
			latencyMs,
			ms(snap.MinLatency),
			ms(snap.MaxLatency),
		)
	}

	d.progressGauge.Percent = progressPercent(snap.Total, d.info.Total)
	d.progressGauge.Label = fmt.Sprintf("%d / %d items | %.1f/s", snap.Total, d.info.Total, snap.PerSec)

	successRate := 0.0
	if snap.Total > 0 {
		successRate = (float64(snap.Successes) / float64(snap.Total)) * 100
	}

	d.summaryPara.Text = fmt.Sprintf(
		"Run: %s\n%s\nElapsed: %s | Completed: %d | Success Rate: %.1f%%",
		d.info.Label,
		formatRunParams(d.info),
		elapsed.Round(time.Second),
		snap.Total,
		successRate,
	)

	d.countersPara.Text = fmt.Sprintf(
		"Completed:      %d\nSuccessful:     %d\nFailed:         %d\nBytes Fetched:  %s\nThroughput:     %.2f items/s\nSuccess Rate:   %.1f%%",
		snap.Total,
		snap.Successes,
		snap.Failures,
		formatBytes(snap.Bytes),
		snap.PerSec,
		successRate,
	)

	d.latencyPara.Text = fmt.Sprintf(
		"Min:  %.2fms\nMean: %.2fms\nP50:  %.2fms\nP99:  %.2fms\nMax:  %.2fms",
		ms(snap.MinLatency),
		ms(snap.MeanLatency),
		ms(snap.P50Latency),
		ms(snap.P99Latency),
		ms(snap.MaxLatency),
	)

	d.reasonList.Rows = formatReasonRows(snap.Reasons)
	d.resourcesPara.Text = d.formatResources()
}

// render draws all widgets to the screen.
func (d *Dashboard) render() {
	d.mu.Lock()
	defer d.mu.Unlock()

	ui.Render(d.grid)
}

func (d *Dashboard) formatResources() string {
	if d.mon == nil {
		return "[Resource sampling disabled](fg:yellow)"
	}
	latest, ok := d.mon.Latest()
	if !ok {
		return "No samples yet"
	}
	return fmt.Sprintf(
		"CPU:     %.1f%% of %d cores\nMemory:  %s\nNet Out: %s\nNet In:  %s",
		latest.CPUPercent,
		latest.CPUCount,
		formatBytes(int64(latest.MemoryUsed)),
		formatBytes(int64(latest.NetSent)),
		formatBytes(int64(latest.NetRecv)),
	)
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}

// progressPercent clamps to [0, 100]; a zero total reads as no progress.
func progressPercent(done int64, total int) int {
	if total <= 0 {
		return 0
	}
	pct := int(done * 100 / int64(total))
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}
	return pct
}

func formatReasonRows(reasons map[string]int) []string {
	if len(reasons) == 0 {
		return []string{"[No failures](fg:green)"}
	}
	type reasonRow struct {
		label string
		count int
	}
	rows := make([]reasonRow, 0, len(reasons))
	for label, count := range reasons {
		rows = append(rows, reasonRow{label: metrics.FriendlyReason(label), count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].count == rows[j].count {
			return rows[i].label < rows[j].label
		}
		return rows[i].count > rows[j].count
	})
	maxRows := len(rows)
	if maxRows > 10 {
		maxRows = 10
	}
	formatted := make([]string, 0, maxRows)
	for i := 0; i < maxRows; i++ {
		formatted = append(formatted, fmt.Sprintf("[%s](fg:red) %d", rows[i].label, rows[i].count))
	}
	return formatted
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<30:
		return fmt.Sprintf("%.2f GiB", float64(n)/(1<<30))
	case n >= 1<<20:
		return fmt.Sprintf("%.2f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.2f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// formatRunParams formats the run configuration parameters for display.
func formatRunParams(info RunInfo) string {
	var parts []string

	if info.Mode != "" {
		parts = append(parts, fmt.Sprintf("Mode: %s", info.Mode))
	}
	if info.Strategy != "" {
		parts = append(parts, fmt.Sprintf("Strategy: %s", info.Strategy))
	}
	if info.Concurrency > 0 {
		parts = append(parts, fmt.Sprintf("Concurrency: %d", info.Concurrency))
	}
	if info.Rate > 0 {
		parts = append(parts, fmt.Sprintf("Rate: %d/s", info.Rate))
	} else {
		parts = append(parts, "Rate: unlimited")
	}
	if info.Timeout > 0 {
		parts = append(parts, fmt.Sprintf("Timeout: %s", info.Timeout))
	}
	if info.Retries > 0 {
		parts = append(parts, fmt.Sprintf("Retries: %d", info.Retries))
	}

	return strings.Join(parts, " | ")
}
