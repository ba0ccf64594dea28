package output

import (
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/corbalt/fetchbench/internal/compare"
	"github.com/corbalt/fetchbench/internal/metrics"
)

// PrintComparison renders a side-by-side table of the two runs followed by
// the verdict.
func PrintComparison(w io.Writer, r compare.Report, noColor bool) {
	colors := NewColorScheme(w, noColor)

	fmt.Fprintln(w, "")
	fmt.Fprintln(w, colors.Header("--- Strategy Comparison ---"))

	table := newTable(w)
	headers := []string{"METRIC", runHeading(r.Baseline), runHeading(r.Candidate)}
	if colors.Disabled {
		table.SetHeader(headers)
	} else {
		colored := make([]string, len(headers))
		for i, h := range headers {
			colored[i] = colors.Header(h)
		}
		table.SetHeader(colored)
	}

	for _, row := range comparisonRows(r) {
		table.Append(row)
	}
	table.Render()

	fmt.Fprintln(w, "")
	verdict := colors.VerdictColor(r.Recommendation)
	if r.Speedup > 0 {
		fmt.Fprintf(w, "Speedup:        %s\n", verdict("%.2fx", r.Speedup))
	} else {
		fmt.Fprintln(w, "Speedup:        n/a")
	}
	fmt.Fprintf(w, "Time Saved:     %s\n", formatSaved(r.TimeSaved))
	fmt.Fprintf(w, "Recommendation: %s\n", verdict("%s", verdictText(r)))
}

func comparisonRows(r compare.Report) [][]string {
	b, c := r.Baseline, r.Candidate
	return [][]string{
		{"Strategy", fmt.Sprintf("%s x%d", b.Strategy, b.Concurrency), fmt.Sprintf("%s x%d", c.Strategy, c.Concurrency)},
		{"Duration", b.Duration.Round(time.Millisecond).String(), c.Duration.Round(time.Millisecond).String()},
		{"Items/sec", fmt.Sprintf("%.2f", b.SuccessPerSec), fmt.Sprintf("%.2f", c.SuccessPerSec)},
		{"Success Rate", fmt.Sprintf("%.1f%%", b.SuccessRate*100), fmt.Sprintf("%.1f%%", c.SuccessRate*100)},
		{"Mean Latency", b.MeanLatency.Round(time.Millisecond).String(), c.MeanLatency.Round(time.Millisecond).String()},
		{"P99 Latency", b.P99Latency.Round(time.Millisecond).String(), c.P99Latency.Round(time.Millisecond).String()},
		{"Bytes", formatBytes(b.BytesTotal), formatBytes(c.BytesTotal)},
		{"CPU Avg", fmt.Sprintf("%.1f%%", b.Resources.CPUAvg), fmt.Sprintf("%.1f%%", c.Resources.CPUAvg)},
		{"Memory Avg", formatBytes(int64(b.Resources.MemAvg)), formatBytes(int64(c.Resources.MemAvg))},
		{"Per Core-Second", fmt.Sprintf("%.2f", b.SuccessPerCoreSecond), fmt.Sprintf("%.2f", c.SuccessPerCoreSecond)},
		{"Per GB Memory", fmt.Sprintf("%.2f", b.SuccessPerGBMemory), fmt.Sprintf("%.2f", c.SuccessPerGBMemory)},
	}
}

func runHeading(m metrics.Metrics) string {
	if m.Label != "" {
		return m.Label
	}
	return string(m.Strategy)
}

func verdictText(r compare.Report) string {
	switch r.Recommendation {
	case "strong":
		return fmt.Sprintf("strong: adopt %s", runHeading(r.Candidate))
	case "moderate":
		return fmt.Sprintf("moderate: prefer %s", runHeading(r.Candidate))
	case "marginal":
		return fmt.Sprintf("marginal: %s is somewhat faster", runHeading(r.Candidate))
	default:
		return "none: no meaningful improvement"
	}
}

func formatSaved(d time.Duration) string {
	if d < 0 {
		return fmt.Sprintf("-%s (candidate slower)", (-d).Round(time.Millisecond))
	}
	return d.Round(time.Millisecond).String()
}

// newTable configures a borderless, tab-padded table.
func newTable(w io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)
	return table
}
