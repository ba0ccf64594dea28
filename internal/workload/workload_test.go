package workload_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/corbalt/fetchbench/internal/engine"
	"github.com/corbalt/fetchbench/internal/workload"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestLoadJSONTopLevelArray(t *testing.T) {
	path := writeFile(t, "urls.json", `["https://a.test/1", "https://a.test/2", ""]`)

	items, err := workload.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want := []engine.WorkItem{"https://a.test/1", "https://a.test/2"}
	if len(items) != len(want) || items[0] != want[0] || items[1] != want[1] {
		t.Fatalf("got %v, want %v", items, want)
	}
}

func TestLoadJSONObjectWithPath(t *testing.T) {
	path := writeFile(t, "cache.json", `{
		"generated": "2026-08-20T10:00:00Z",
		"urls": ["https://b.test/x", "https://b.test/y"]
	}`)

	items, err := workload.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(items) != 2 || items[1] != "https://b.test/y" {
		t.Fatalf("unexpected items: %v", items)
	}
}

func TestLoadJSONNestedPath(t *testing.T) {
	path := writeFile(t, "nested.json", `{"data": {"targets": ["https://c.test/1"]}}`)

	items, err := workload.LoadJSON(path, "data.targets")
	if err != nil {
		t.Fatalf("LoadJSON failed: %v", err)
	}
	if len(items) != 1 || items[0] != "https://c.test/1" {
		t.Fatalf("unexpected items: %v", items)
	}
}

func TestLoadJSONMissingPath(t *testing.T) {
	path := writeFile(t, "bad.json", `{"other": 1}`)
	if _, err := workload.LoadJSON(path, "urls"); err == nil {
		t.Fatal("expected error for missing array")
	}
}

func TestLoadCSVSkipsHeader(t *testing.T) {
	path := writeFile(t, "urls.csv", "url,weight\nhttps://d.test/1,3\nhttps://d.test/2,1\n")

	items, err := workload.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(items) != 2 || items[0] != "https://d.test/1" {
		t.Fatalf("unexpected items: %v", items)
	}
}

func TestLoadLines(t *testing.T) {
	path := writeFile(t, "urls.txt", "# crawl targets\nhttps://e.test/1\n\nhttps://e.test/2\n")

	items, err := workload.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %v", items)
	}
}

func TestLoadEmptySource(t *testing.T) {
	path := writeFile(t, "empty.txt", "\n# only comments\n")
	if _, err := workload.Load(path); !errors.Is(err, workload.ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

func TestSynthetic(t *testing.T) {
	items := workload.Synthetic(3, "https://s.test/item/%d")
	if len(items) != 3 || items[2] != "https://s.test/item/2" {
		t.Fatalf("unexpected items: %v", items)
	}

	items = workload.Synthetic(2, "https://s.test/plain")
	if items[1] != "https://s.test/plain/1" {
		t.Fatalf("pattern without verb mishandled: %v", items)
	}

	if got := workload.Synthetic(0, ""); len(got) != 0 {
		t.Fatalf("expected no items, got %v", got)
	}
}

func TestLoadHAR(t *testing.T) {
	path := writeFile(t, "capture.har", `{
		"log": {
			"version": "1.2",
			"entries": [
				{"request": {"method": "GET", "url": "https://h.test/page"}},
				{"request": {"method": "POST", "url": "https://h.test/form"}},
				{"request": {"method": "get", "url": "https://h.test/asset.css"}},
				{"request": {"method": "GET", "url": "https://h.test/page"}}
			]
		}
	}`)

	items, err := workload.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want := []engine.WorkItem{"https://h.test/page", "https://h.test/asset.css", "https://h.test/page"}
	if len(items) != len(want) {
		t.Fatalf("expected %d items, got %v", len(want), items)
	}
	for i := range want {
		if items[i] != want[i] {
			t.Errorf("items[%d] = %q, want %q", i, items[i], want[i])
		}
	}
}

func TestLoadHARInvalid(t *testing.T) {
	path := writeFile(t, "bad.har", `{"log": {}}`)
	if _, err := workload.LoadHAR(path); err == nil {
		t.Fatal("expected error for HAR without entries")
	}

	path = writeFile(t, "empty.har", `{"log": {"entries": [{"request": {"method": "POST", "url": "https://h.test/x"}}]}}`)
	if _, err := workload.LoadHAR(path); !errors.Is(err, workload.ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}
