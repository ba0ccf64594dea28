package output

import (
	"fmt"
	"html/template"
	"io"
	"sort"
	"time"

	"github.com/corbalt/fetchbench/internal/compare"
	"github.com/corbalt/fetchbench/internal/metrics"
)

// htmlReportData feeds the standalone report template.
type htmlReportData struct {
	GeneratedAt string
	Baseline    string
	Candidate   string
	Rows        [][]string
	Speedup     string
	TimeSaved   string
	Verdict     string
	VerdictTier string
	Failures    []htmlFailureRow
}

type htmlFailureRow struct {
	Run    string
	Reason string
	Count  int
}

// GenerateHTMLReport writes a self-contained HTML page for a comparison.
func GenerateHTMLReport(w io.Writer, r compare.Report) error {
	data := htmlReportData{
		GeneratedAt: time.Now().Format(time.RFC1123),
		Baseline:    runHeading(r.Baseline),
		Candidate:   runHeading(r.Candidate),
		Rows:        comparisonRows(r),
		TimeSaved:   formatSaved(r.TimeSaved),
		Verdict:     verdictText(r),
		VerdictTier: r.Recommendation,
		Failures:    failureRows(r.Baseline, r.Candidate),
	}
	if r.Speedup > 0 {
		data.Speedup = fmt.Sprintf("%.2fx", r.Speedup)
	} else {
		data.Speedup = "n/a"
	}

	tmpl, err := template.New("report").Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("parse report template: %w", err)
	}
	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

func failureRows(runs ...metrics.Metrics) []htmlFailureRow {
	var rows []htmlFailureRow
	for _, m := range runs {
		reasons := make([]string, 0, len(m.Reasons))
		for reason := range m.Reasons {
			reasons = append(reasons, reason)
		}
		sort.Strings(reasons)
		for _, reason := range reasons {
			rows = append(rows, htmlFailureRow{
				Run:    runHeading(m),
				Reason: metrics.FriendlyReason(reason),
				Count:  m.Reasons[reason],
			})
		}
	}
	return rows
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Fetch Benchmark Comparison</title>
<style>
body { font-family: -apple-system, "Segoe UI", sans-serif; margin: 2rem auto; max-width: 60rem; color: #1f2430; }
h1 { font-size: 1.4rem; }
table { border-collapse: collapse; width: 100%; margin: 1rem 0; }
th, td { text-align: left; padding: 0.4rem 0.8rem; border-bottom: 1px solid #e2e6ee; }
th { background: #f4f6fa; }
.verdict { padding: 0.8rem 1rem; border-radius: 6px; font-weight: 600; }
.verdict.strong { background: #e2f5e7; color: #176639; }
.verdict.moderate, .verdict.marginal { background: #fdf3dc; color: #7a5a10; }
.verdict.none { background: #eef0f5; color: #47506b; }
.meta { color: #68708a; font-size: 0.85rem; }
</style>
</head>
<body>
<h1>Fetch Benchmark Comparison</h1>
<p class="meta">Generated {{.GeneratedAt}}</p>
<table>
<tr><th>Metric</th><th>{{.Baseline}}</th><th>{{.Candidate}}</th></tr>
{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}</table>
<p>Speedup: <strong>{{.Speedup}}</strong> &middot; Time saved: <strong>{{.TimeSaved}}</strong></p>
<p class="verdict {{.VerdictTier}}">{{.Verdict}}</p>
{{if .Failures}}
<h2>Failure Breakdown</h2>
<table>
<tr><th>Run</th><th>Reason</th><th>Count</th></tr>
{{range .Failures}}<tr><td>{{.Run}}</td><td>{{.Reason}}</td><td>{{.Count}}</td></tr>
{{end}}</table>
{{end}}
</body>
</html>
`
