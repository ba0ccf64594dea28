package dashboard

import (
	"strings"
	"testing"
	"time"
)

func TestProgressPercent(t *testing.T) {
	cases := []struct {
		done  int64
		total int
		want  int
	}{
		{0, 100, 0},
		{50, 100, 50},
		{100, 100, 100},
		{150, 100, 100},
		{10, 0, 0},
		{10, -5, 0},
	}
	for _, tc := range cases {
		if got := progressPercent(tc.done, tc.total); got != tc.want {
			t.Errorf("progressPercent(%d, %d) = %d, want %d", tc.done, tc.total, got, tc.want)
		}
	}
}

func TestFormatReasonRowsEmpty(t *testing.T) {
	rows := formatReasonRows(nil)
	if len(rows) != 1 || !strings.Contains(rows[0], "No failures") {
		t.Fatalf("unexpected rows: %v", rows)
	}
}

func TestFormatReasonRowsSorted(t *testing.T) {
	rows := formatReasonRows(map[string]int{
		"timeout":      3,
		"panic":        1,
		"server error": 7,
	})
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d: %v", len(rows), rows)
	}
	// Highest count first.
	if !strings.Contains(rows[0], "7") {
		t.Errorf("expected most frequent reason first, got %v", rows)
	}
	if !strings.Contains(rows[2], "1") {
		t.Errorf("expected least frequent reason last, got %v", rows)
	}
}

func TestFormatReasonRowsCapped(t *testing.T) {
	reasons := make(map[string]int)
	for i := 0; i < 25; i++ {
		reasons[strings.Repeat("x", i+1)] = i + 1
	}
	if rows := formatReasonRows(reasons); len(rows) != 10 {
		t.Fatalf("expected list capped at 10 rows, got %d", len(rows))
	}
}

func TestFormatBytes(t *testing.T) {
	cases := []struct {
		n    int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.00 KiB"},
		{3 << 20, "3.00 MiB"},
		{5 << 30, "5.00 GiB"},
	}
	for _, tc := range cases {
		if got := formatBytes(tc.n); got != tc.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tc.n, got, tc.want)
		}
	}
}

func TestFormatRunParams(t *testing.T) {
	got := formatRunParams(RunInfo{
		Mode:        "simulate",
		Strategy:    "bounded",
		Concurrency: 50,
		Timeout:     30 * time.Second,
		Retries:     2,
	})
	for _, want := range []string{"Mode: simulate", "Strategy: bounded", "Concurrency: 50", "Rate: unlimited", "Timeout: 30s", "Retries: 2"} {
		if !strings.Contains(got, want) {
			t.Errorf("params missing %q: %s", want, got)
		}
	}

	got = formatRunParams(RunInfo{Rate: 100})
	if !strings.Contains(got, "Rate: 100/s") {
		t.Errorf("expected explicit rate, got %s", got)
	}
}

func TestMillisecondConversion(t *testing.T) {
	if got := ms(1500 * time.Microsecond); got != 1.5 {
		t.Fatalf("ms(1.5ms) = %g", got)
	}
}
