package pipeline

import (
	"strings"

	"github.com/couchcryptid/crash-data-pipeline/internal/domain"
	"github.com/couchcryptid/crash-data-pipeline/internal/jurisdiction"
)

// rowsFromRaw lifts raw records into rows, uppercasing column names so every
// later stage can look fields up consistently regardless of how a source
// cases its headers.
func rowsFromRaw(records []domain.RawRecord) []domain.Row {
	rows := make([]domain.Row, len(records))
	for i, rec := range records {
		row := make(domain.Row, len(rec))
		for col, v := range rec {
			row[strings.ToUpper(col)] = v
		}
		rows[i] = row
	}
	return rows
}

// normalize applies the jurisdiction's hooks in their fixed order (type
// conversion, column derivation, row filtering), then restricts every row to
// the key columns plus the table's declared columns. The order matters:
// derived columns (e.g. DC's YEAR) must exist before the row filter sees
// them. Declared columns missing from a row come out nil, never an error.
func normalize(j jurisdiction.Jurisdiction, keyColumns []string, table domain.Table, rows []domain.Row) []domain.Row {
	j.ConvertTypes(rows, table)
	j.DeriveColumns(rows, table)
	rows = j.FilterRows(rows, table)
	return selectColumns(rows, keyColumns, table.Columns)
}

func selectColumns(rows []domain.Row, keyColumns, columns []string) []domain.Row {
	out := make([]domain.Row, len(rows))
	for i, row := range rows {
		selected := make(domain.Row, len(keyColumns)+len(columns))
		for _, col := range keyColumns {
			selected[col] = row[col]
		}
		for _, col := range columns {
			selected[col] = row[col]
		}
		out[i] = selected
	}
	return out
}
