package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/corbalt/fetchbench/internal/engine"
	"github.com/corbalt/fetchbench/internal/metrics"
)

// PrintRunReport outputs a human-readable summary of one aggregated run.
func PrintRunReport(w io.Writer, m metrics.Metrics) {
	label := m.Label
	if label == "" {
		label = string(m.Strategy)
	}
	fmt.Fprintf(w, "\n--- Run Results: %s ---\n", label)
	fmt.Fprintf(w, "Strategy:          %s (concurrency %d)\n", m.Strategy, m.Concurrency)
	if m.Status != engine.StatusComplete {
		fmt.Fprintf(w, "Status:            %s\n", m.Status)
	}
	fmt.Fprintf(w, "Total Items:       %d\n", m.TotalItems)
	fmt.Fprintf(w, "Successful:        %d\n", m.Successes)
	fmt.Fprintf(w, "Failed:            %d\n", m.Failures)
	fmt.Fprintf(w, "Success Rate:      %.1f%%\n", m.SuccessRate*100)
	fmt.Fprintf(w, "Duration:          %s\n", m.Duration)
	fmt.Fprintf(w, "Items/sec:         %.2f\n", m.SuccessPerSec)
	fmt.Fprintf(w, "Bytes Fetched:     %s\n", formatBytes(m.BytesTotal))

	fmt.Fprintln(w, "\nLatency (successful items):")
	fmt.Fprintf(w, "  Min:             %s\n", m.MinLatency)
	fmt.Fprintf(w, "  Max:             %s\n", m.MaxLatency)
	fmt.Fprintf(w, "  Mean:            %s\n", m.MeanLatency)
	fmt.Fprintf(w, "  P50:             %s\n", m.P50Latency)
	fmt.Fprintf(w, "  P90:             %s\n", m.P90Latency)
	fmt.Fprintf(w, "  P99:             %s\n", m.P99Latency)

	if len(m.Reasons) > 0 {
		fmt.Fprintln(w, "\nFailure Breakdown:")
		reasons := make([]string, 0, len(m.Reasons))
		for reason := range m.Reasons {
			reasons = append(reasons, reason)
		}
		sort.Slice(reasons, func(i, j int) bool {
			if m.Reasons[reasons[i]] != m.Reasons[reasons[j]] {
				return m.Reasons[reasons[i]] > m.Reasons[reasons[j]]
			}
			return reasons[i] < reasons[j]
		})
		for _, reason := range reasons {
			fmt.Fprintf(w, "  - %s: %d\n", metrics.FriendlyReason(reason), m.Reasons[reason])
		}
	}

	if m.Resources.Samples > 0 {
		fmt.Fprintln(w, "\nResources:")
		fmt.Fprintf(w, "  CPU:             avg %.1f%%, peak %.1f%% (%d cores)\n",
			m.Resources.CPUAvg, m.Resources.CPUMax, m.Resources.CPUCount)
		fmt.Fprintf(w, "  Memory:          avg %s, peak %s\n",
			formatBytes(int64(m.Resources.MemAvg)), formatBytes(int64(m.Resources.MemMax)))
		if m.Resources.NetRecv > 0 || m.Resources.NetSent > 0 {
			fmt.Fprintf(w, "  Network:         recv %s, sent %s\n",
				formatBytes(int64(m.Resources.NetRecv)), formatBytes(int64(m.Resources.NetSent)))
		}
		fmt.Fprintln(w, "\nEfficiency:")
		fmt.Fprintf(w, "  Per core-second: %.2f\n", m.SuccessPerCoreSecond)
		fmt.Fprintf(w, "  Per GB memory:   %.2f\n", m.SuccessPerGBMemory)
	}
}

// PrintJSON writes any result as indented JSON.
func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
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
