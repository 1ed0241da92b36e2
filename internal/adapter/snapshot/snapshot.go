// Package snapshot persists the intermediate products of a pipeline run as
// JSON files under the data directory, keyed by jurisdiction, table, and
// partition. Three snapshots exist per table/partition: the unfiltered rows
// as ingested, the filtered rows after normalization, and the merged
// crash-level rows.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/couchcryptid/crash-data-pipeline/internal/domain"
)

// Store reads and writes pipeline snapshots.
type Store struct {
	dataDir string
}

// NewStore creates a snapshot store rooted at dataDir.
func NewStore(dataDir string) *Store {
	return &Store{dataDir: dataDir}
}

func (s *Store) unfilteredPath(jur, table, partition string) string {
	return filepath.Join(s.dataDir, jur, fmt.Sprintf("%s-%s.json", table, partition))
}

func (s *Store) filteredPath(jur, table, partition string) string {
	return filepath.Join(s.dataDir, jur, fmt.Sprintf("%s-%s-filtered.json", table, partition))
}

func (s *Store) mergedPath(jur, partition string) string {
	return filepath.Join(s.dataDir, jur, fmt.Sprintf("data-%s.json", partition))
}

// WriteUnfiltered persists a table's rows as ingested, before filtering.
func (s *Store) WriteUnfiltered(jur, table, partition string, rows []domain.Row) error {
	return s.writeJSON(s.unfilteredPath(jur, table, partition), rows)
}

// WriteFiltered persists a table's normalized rows.
func (s *Store) WriteFiltered(jur, table, partition string, rows []domain.Row) error {
	return s.writeJSON(s.filteredPath(jur, table, partition), rows)
}

// ReadFiltered loads a table's normalized rows.
func (s *Store) ReadFiltered(jur, table, partition string) ([]domain.Row, error) {
	var rows []domain.Row
	if err := s.readJSON(s.filteredPath(jur, table, partition), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// WriteMerged persists one partition's joined crash rows.
func (s *Store) WriteMerged(jur, partition string, rows []domain.JoinedCrashRow) error {
	return s.writeJSON(s.mergedPath(jur, partition), rows)
}

// ReadMergedAll loads the joined rows of every partition present on disk,
// in partition order. Missing partitions are simply not part of the result;
// a jurisdiction with no merged snapshots at all yields an error.
func (s *Store) ReadMergedAll(jur string) ([]domain.JoinedCrashRow, error) {
	pattern := filepath.Join(s.dataDir, jur, "data-*.json")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob merged snapshots: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no merged snapshots for %q under %s", jur, s.dataDir)
	}
	sort.Strings(matches)

	var all []domain.JoinedCrashRow
	for _, path := range matches {
		var rows []domain.JoinedCrashRow
		if err := s.readJSON(path, &rows); err != nil {
			return nil, err
		}
		all = append(all, rows...)
	}
	return all, nil
}

func (s *Store) writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal snapshot %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}
	return nil
}

func (s *Store) readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read snapshot %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	return nil
}
