// Package jurisdiction defines the per-jurisdiction capability interface the
// pipeline is specialized with, plus a registry of implementations. Each
// jurisdiction contributes its table layout, four normalization hooks applied
// in a fixed order (convert types, derive columns, filter rows, then the
// generic column selection that lives in the pipeline), and a row
// classifier. Hooks default to no-ops via Base; implementations override only
// what their source data needs.
package jurisdiction

import (
	"fmt"
	"sort"
	"sync"

	"github.com/couchcryptid/crash-data-pipeline/internal/domain"
)

// Jurisdiction is the strategy interface specializing the generic pipeline
// for one data source.
type Jurisdiction interface {
	// Name is the registry identifier, e.g. "fars".
	Name() string

	// Tables declares the table set and composite key columns.
	Tables() domain.TableSet

	// Description is the export-run metadata: title, attribution,
	// record-link templates.
	Description() domain.DataDescription

	// Columns names the latitude/longitude/year columns of the joined row.
	Columns() domain.ColumnNames

	// Partitions lists the independent processing units: year labels, or
	// just "all" for sources published as one full extract.
	Partitions() []string

	// Interval is the lat/long bucketing interval for web export, degrees.
	Interval() int

	// ConvertTypes coerces raw text values in place. Best-effort: values
	// that fail to parse stay text.
	ConvertTypes(rows []domain.Row, table domain.Table)

	// DeriveColumns computes jurisdiction-specific columns in place,
	// e.g. a canonical year from several date fields.
	DeriveColumns(rows []domain.Row, table domain.Table)

	// FilterRows keeps only the rows worth exporting,
	// e.g. crashes tagged fatal or injury.
	FilterRows(rows []domain.Row, table domain.Table) []domain.Row

	// Classifier returns the jurisdiction's row classifier.
	Classifier() domain.RowClassifier
}

// Base provides the no-op defaults for the normalization hooks.
// Embed it and override only the stages the source data needs.
type Base struct{}

func (Base) ConvertTypes([]domain.Row, domain.Table) {}

func (Base) DeriveColumns([]domain.Row, domain.Table) {}

func (Base) FilterRows(rows []domain.Row, _ domain.Table) []domain.Row {
	return rows
}

var (
	mu       sync.RWMutex
	registry = make(map[string]Jurisdiction)
)

// Register adds a jurisdiction, typically from an implementation package's
// init. Duplicate names are a programming error.
func Register(j Jurisdiction) {
	mu.Lock()
	defer mu.Unlock()
	if _, dup := registry[j.Name()]; dup {
		panic(fmt.Sprintf("jurisdiction: duplicate registration of %q", j.Name()))
	}
	registry[j.Name()] = j
}

// Get looks up a registered jurisdiction by name.
func Get(name string) (Jurisdiction, error) {
	mu.RLock()
	defer mu.RUnlock()
	j, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown jurisdiction %q (registered: %v)", name, names())
	}
	return j, nil
}

// Names lists the registered jurisdictions, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	return names()
}

func names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
