// Package store persists sealed runs and comparison reports as JSON files
// under a results directory. Files are named by ULID so listings sort by
// creation time; a flock-guarded index makes concurrent writers safe.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gofrs/flock"
	"github.com/oklog/ulid/v2"

	"github.com/corbalt/fetchbench/internal/compare"
	"github.com/corbalt/fetchbench/internal/engine"
)

const (
	indexFile = "index.json"
	lockFile  = "index.lock"
)

// Entry is one line of the results index.
type Entry struct {
	ID      string    `json:"id"`
	Kind    string    `json:"kind"` // "run" or "comparison"
	Label   string    `json:"label,omitempty"`
	File    string    `json:"file"`
	Created time.Time `json:"created"`
}

// Store writes results to a directory.
type Store struct {
	dir string
}

// New creates the results directory if needed and returns a Store.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create results dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the results directory.
func (s *Store) Dir() string { return s.dir }

// SaveRun persists a sealed run and returns its assigned id.
func (s *Store) SaveRun(run *engine.BenchmarkRun) (string, error) {
	id := ulid.Make().String()
	name := fmt.Sprintf("run-%s.json", id)
	if err := s.writeJSON(name, run); err != nil {
		return "", err
	}
	if err := s.appendIndex(Entry{
		ID:      id,
		Kind:    "run",
		Label:   run.Config.Label,
		File:    name,
		Created: time.Now().UTC(),
	}); err != nil {
		return "", err
	}
	return id, nil
}

// SaveComparison persists a comparison report and returns its assigned id.
func (s *Store) SaveComparison(report compare.Report) (string, error) {
	id := ulid.Make().String()
	name := fmt.Sprintf("comparison-%s.json", id)
	if err := s.writeJSON(name, report); err != nil {
		return "", err
	}
	if err := s.appendIndex(Entry{
		ID:      id,
		Kind:    "comparison",
		File:    name,
		Created: time.Now().UTC(),
	}); err != nil {
		return "", err
	}
	return id, nil
}

// LoadRun reads a previously saved run by id.
func (s *Store) LoadRun(id string) (*engine.BenchmarkRun, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, fmt.Sprintf("run-%s.json", id)))
	if err != nil {
		return nil, fmt.Errorf("read run %s: %w", id, err)
	}
	var run engine.BenchmarkRun
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", id, err)
	}
	return &run, nil
}

// Index returns all entries, newest first.
func (s *Store) Index() ([]Entry, error) {
	lock := flock.New(filepath.Join(s.dir, lockFile))
	if err := lock.Lock(); err != nil {
		return nil, fmt.Errorf("lock index: %w", err)
	}
	defer lock.Unlock()

	entries, err := s.readIndexLocked()
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ID > entries[j].ID
	})
	return entries, nil
}

func (s *Store) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	// Write-then-rename so readers never see a partial file.
	tmp := filepath.Join(s.dir, name+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}

func (s *Store) appendIndex(entry Entry) error {
	lock := flock.New(filepath.Join(s.dir, lockFile))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock index: %w", err)
	}
	defer lock.Unlock()

	entries, err := s.readIndexLocked()
	if err != nil {
		return err
	}
	entries = append(entries, entry)

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	tmp := filepath.Join(s.dir, indexFile+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(s.dir, indexFile)); err != nil {
		return fmt.Errorf("rename index: %w", err)
	}
	return nil
}

func (s *Store) readIndexLocked() ([]Entry, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, indexFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode index: %w", err)
	}
	return entries, nil
}
