package domain

import "strings"

// Collapse describes how a child table's rows are folded into the joined
// crash record.
type Collapse int

const (
	// CollapseList keeps each matching child row as a field mapping,
	// producing one list per crash (person and detail tables).
	CollapseList Collapse = iota
	// CollapseCount keeps only the number of matching rows
	// (vehicle tables where no per-vehicle columns are tracked).
	CollapseCount
)

// Format identifies the wire format of a table's source extract.
type Format int

const (
	FormatCSV Format = iota
	// FormatCrashAPI is the NHTSA CrashAPI JSON envelope:
	// {"Results": [[{...row...}, ...]]}.
	FormatCrashAPI
)

// Table declares one logical dataset of a jurisdiction: its name, the columns
// retained after filtering, and where its raw extract comes from. Immutable
// configuration; a misdeclared table is a programming error, not a runtime one.
type Table struct {
	Name    string
	Columns []string
	// Source is a URL or a file name relative to the jurisdiction's data
	// directory. A literal "{year}" is replaced with the partition label.
	Source   string
	Format   Format
	Collapse Collapse
	// Windows1252 marks extracts that are not UTF-8 encoded. Several state
	// open-data portals export Windows-1252.
	Windows1252 bool
}

// SourceFor renders the table's source for one partition.
func (t Table) SourceFor(partition string) string {
	return strings.ReplaceAll(t.Source, "{year}", partition)
}

// TableSet is a jurisdiction's full table layout: the composite key columns,
// the mandatory crash table, and zero or more child tables joined onto it.
type TableSet struct {
	KeyColumns []string
	Crash      Table
	Children   []Table
}

// All returns the crash table followed by the children.
func (ts TableSet) All() []Table {
	return append([]Table{ts.Crash}, ts.Children...)
}

// RawRecord is one row of a table as ingested, before type coercion.
// All values are text.
type RawRecord map[string]string

// Row is a normalized row: column names uppercased, values coerced to
// float64 where they parse as numbers and retained as strings otherwise.
type Row map[string]any

// JoinedCrashRow is one crash after the join: the crash table's scalar fields
// (key columns included) plus the collapsed child tables. Never mutated after
// creation; classification results are computed alongside, not written back.
type JoinedCrashRow struct {
	Key    []string // composite key values, in KeyColumns order
	Fields Row
	Lists  map[string][]Row
	Counts map[string]int
}

// List returns the collapsed rows of a list child table, or nil when the
// crash has no matching child rows. A nil list is valid data, not an error.
func (r JoinedCrashRow) List(name string) []Row {
	return r.Lists[name]
}

// Count returns the collapsed count of a count child table, zero when absent.
func (r JoinedCrashRow) Count(name string) int {
	return r.Counts[name]
}

// JoinKey renders the composite key as a single string using the given
// separator, e.g. "2016-24-240052" for a FARS case.
func (r JoinedCrashRow) JoinKey(sep string) string {
	return strings.Join(r.Key, sep)
}

// RecordLinks holds URL templates a consumer uses to deep-link from an item
// id back to the source record. IDSplitter, when set, is the separator that
// recovers the composite key parts from a rendered id.
type RecordLinks struct {
	IDSplitter    string `json:"id_splitter,omitempty"`
	CrashFormat   string `json:"crash_format,omitempty"`
	PersonFormat  string `json:"person_format,omitempty"`
	VehicleFormat string `json:"vehicle_format,omitempty"`
}

// DataDescription is the jurisdiction metadata emitted with every export run.
type DataDescription struct {
	Title string
	// Source is attribution text, HTML links allowed.
	Source string
	// Slug names the jurisdiction's output namespace, e.g. "fars".
	Slug  string
	Links RecordLinks
}

// ColumnNames maps the well-known crash columns to a jurisdiction's naming.
// FARS spells longitude "LONGITUD".
type ColumnNames struct {
	Latitude  string
	Longitude string
	Year      string
}
