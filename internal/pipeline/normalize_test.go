package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/crash-data-pipeline/internal/domain"
	"github.com/couchcryptid/crash-data-pipeline/internal/jurisdiction"
)

// hookRecorder is a jurisdiction whose hooks stamp the rows they see, so the
// test can verify both hook order and what each stage observed.
type hookRecorder struct {
	jurisdiction.Base
	calls []string
}

func (h *hookRecorder) Name() string { return "recorder" }

func (h *hookRecorder) Description() domain.DataDescription { return domain.DataDescription{} }

func (h *hookRecorder) Columns() domain.ColumnNames { return domain.ColumnNames{} }

func (h *hookRecorder) Partitions() []string { return []string{"all"} }

func (h *hookRecorder) Interval() int { return 1 }

func (h *hookRecorder) Classifier() domain.RowClassifier { return nil }

func (h *hookRecorder) Tables() domain.TableSet {
	return domain.TableSet{
		KeyColumns: []string{"ID"},
		Crash:      domain.Table{Name: "Crash", Columns: []string{"VALUE", "DERIVED", "MISSING"}},
	}
}

func (h *hookRecorder) ConvertTypes(rows []domain.Row, _ domain.Table) {
	h.calls = append(h.calls, "convert")
	domain.CoerceAllNumeric(rows)
}

func (h *hookRecorder) DeriveColumns(rows []domain.Row, _ domain.Table) {
	h.calls = append(h.calls, "derive")
	for _, row := range rows {
		// Derivation must see converted values.
		if v, ok := row["VALUE"].(float64); ok {
			row["DERIVED"] = v * 2
		}
	}
}

func (h *hookRecorder) FilterRows(rows []domain.Row, _ domain.Table) []domain.Row {
	h.calls = append(h.calls, "filter")
	kept := rows[:0]
	for _, row := range rows {
		// Filtering must see derived values.
		if v, ok := row["DERIVED"].(float64); ok && v > 10 {
			kept = append(kept, row)
		}
	}
	return kept
}

func TestRowsFromRaw(t *testing.T) {
	rows := rowsFromRaw([]domain.RawRecord{
		{"Report_No": "AB123", "latitude": "39.2"},
	})

	require.Len(t, rows, 1)
	assert.Equal(t, "AB123", rows[0]["REPORT_NO"])
	assert.Equal(t, "39.2", rows[0]["LATITUDE"])
}

func TestNormalize(t *testing.T) {
	t.Run("hooks run in fixed order", func(t *testing.T) {
		j := &hookRecorder{}
		normalize(j, []string{"ID"}, j.Tables().Crash, []domain.Row{{"ID": "1", "VALUE": "10"}})
		assert.Equal(t, []string{"convert", "derive", "filter"}, j.calls)
	})

	t.Run("later stages see earlier stages' output", func(t *testing.T) {
		j := &hookRecorder{}
		rows := normalize(j, []string{"ID"}, j.Tables().Crash, []domain.Row{
			{"ID": "1", "VALUE": "10"},
			{"ID": "2", "VALUE": "3"},
		})

		// Row 2's derived value (6) fails the >10 filter; row 1's (20) passes.
		require.Len(t, rows, 1)
		assert.Equal(t, "1", rows[0]["ID"])
		assert.Equal(t, 20.0, rows[0]["DERIVED"])
	})

	t.Run("rows restrict to key plus declared columns", func(t *testing.T) {
		j := &hookRecorder{}
		rows := normalize(j, []string{"ID"}, j.Tables().Crash, []domain.Row{
			{"ID": "1", "VALUE": "10", "UNWANTED": "x"},
		})

		require.Len(t, rows, 1)
		assert.NotContains(t, rows[0], "UNWANTED")
		assert.Contains(t, rows[0], "ID")
		assert.Contains(t, rows[0], "VALUE")
	})

	t.Run("declared but absent columns come out nil", func(t *testing.T) {
		j := &hookRecorder{}
		rows := normalize(j, []string{"ID"}, j.Tables().Crash, []domain.Row{
			{"ID": "1", "VALUE": "10"},
		})

		require.Len(t, rows, 1)
		assert.Contains(t, rows[0], "MISSING")
		assert.Nil(t, rows[0]["MISSING"])
	})
}
