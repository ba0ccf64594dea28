// Package workload loads the list of work items a benchmark run processes.
// Items are loaded fully up front: both strategies need the total count
// before dispatch, and runs over the same file must see the same items in
// the same order.
package workload

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/corbalt/fetchbench/internal/engine"
)

// ErrEmpty is returned when a source yields no work items.
var ErrEmpty = errors.New("workload is empty")

// DefaultJSONPath is the array queried in a JSON document that is not
// itself an array of strings.
const DefaultJSONPath = "urls"

// Load reads work items from path, dispatching on the file extension:
// .json is parsed as JSON, .har as a browser HTTP archive, .csv as CSV with
// the items in the first column, anything else as newline-delimited text.
func Load(path string) ([]engine.WorkItem, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return LoadJSON(path, DefaultJSONPath)
	case ".har":
		return LoadHAR(path)
	case ".csv":
		return LoadCSV(path)
	default:
		return LoadLines(path)
	}
}

// LoadJSON reads items from a JSON file. A top-level array of strings is
// used directly; otherwise jsonPath selects the array to read.
func LoadJSON(path, jsonPath string) ([]engine.WorkItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read JSON file: %w", err)
	}

	doc := gjson.ParseBytes(data)
	arr := doc
	if !doc.IsArray() {
		arr = doc.Get(jsonPath)
		if !arr.IsArray() {
			return nil, fmt.Errorf("JSON path %q is not an array in %s", jsonPath, path)
		}
	}

	var items []engine.WorkItem
	arr.ForEach(func(_, value gjson.Result) bool {
		if s := strings.TrimSpace(value.String()); s != "" {
			items = append(items, engine.WorkItem(s))
		}
		return true
	})
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmpty, path)
	}
	return items, nil
}

// LoadHAR reads items from a HAR 1.2 capture, keeping the URL of every GET
// entry in recorded order. Duplicate URLs are kept: a page fetched twice in
// the capture is fetched twice in the benchmark.
func LoadHAR(path string) ([]engine.WorkItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read HAR file: %w", err)
	}

	entries := gjson.GetBytes(data, "log.entries")
	if !entries.IsArray() {
		return nil, fmt.Errorf("invalid HAR: missing log.entries in %s", path)
	}

	var items []engine.WorkItem
	entries.ForEach(func(_, entry gjson.Result) bool {
		method := strings.ToUpper(entry.Get("request.method").String())
		if method != "" && method != "GET" {
			return true
		}
		if url := strings.TrimSpace(entry.Get("request.url").String()); url != "" {
			items = append(items, engine.WorkItem(url))
		}
		return true
	})
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmpty, path)
	}
	return items, nil
}

// LoadCSV reads items from the first column of a CSV file. A header row is
// skipped when its first field does not look like a URL.
func LoadCSV(path string) ([]engine.WorkItem, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read CSV: %w", err)
	}

	var items []engine.WorkItem
	for i, row := range rows {
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		value := strings.TrimSpace(row[0])
		if i == 0 && !strings.Contains(value, "://") {
			continue // header row
		}
		items = append(items, engine.WorkItem(value))
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmpty, path)
	}
	return items, nil
}

// LoadLines reads items from a text file, one per line. Blank lines and
// lines starting with # are skipped.
func LoadLines(path string) ([]engine.WorkItem, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open workload file: %w", err)
	}
	defer file.Close()

	var items []engine.WorkItem
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		items = append(items, engine.WorkItem(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan workload file: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmpty, path)
	}
	return items, nil
}

// Synthetic generates n items from a printf-style pattern containing one
// %d verb. A pattern without a verb gets the index appended.
func Synthetic(n int, pattern string) []engine.WorkItem {
	if pattern == "" {
		pattern = "https://example.com/page/%d"
	}
	hasVerb := strings.Contains(pattern, "%d")

	items := make([]engine.WorkItem, n)
	for i := range items {
		if hasVerb {
			items[i] = engine.WorkItem(fmt.Sprintf(pattern, i))
		} else {
			items[i] = engine.WorkItem(fmt.Sprintf("%s/%d", pattern, i))
		}
	}
	return items
}
