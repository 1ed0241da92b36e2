package pipeline

import (
	"log/slog"
	"strings"

	"github.com/couchcryptid/crash-data-pipeline/internal/domain"
)

// keySeparator joins composite key parts for map identity. Unit separator:
// never appears in source key values.
const keySeparator = "\x1f"

// merge left-joins the collapsed child tables onto the crash table by
// composite key, producing one row per crash in crash-table order.
//
// Child rows group by key first: list children collapse each group into
// field mappings with the key columns stripped, count children collapse to
// the group's size. Crashes with no matching child rows keep a nil list or
// zero count, which is valid data, never an error. Crash rows sharing a composite
// key are a data-quality problem, not a fatal one: the later row wins and a
// warning is logged.
func merge(ts domain.TableSet, crash []domain.Row, children map[string][]domain.Row, logger *slog.Logger) ([]domain.JoinedCrashRow, int) {
	index := make(map[string]int, len(crash))
	joined := make([]domain.JoinedCrashRow, 0, len(crash))
	duplicates := 0

	for _, row := range crash {
		parts, ok := keyOf(row, ts.KeyColumns)
		if !ok {
			logger.Warn("crash row missing composite key, dropped", "key_columns", ts.KeyColumns)
			continue
		}
		id := strings.Join(parts, keySeparator)
		next := domain.JoinedCrashRow{
			Key:    parts,
			Fields: row,
			Lists:  make(map[string][]domain.Row),
			Counts: make(map[string]int),
		}
		if at, dup := index[id]; dup {
			logger.Warn("duplicate crash key, keeping later row", "key", strings.Join(parts, "-"))
			duplicates++
			joined[at] = next
			continue
		}
		index[id] = len(joined)
		joined = append(joined, next)
	}

	for _, child := range ts.Children {
		lists, counts := collapse(child, children[child.Name], ts.KeyColumns)
		for id, at := range index {
			switch child.Collapse {
			case domain.CollapseCount:
				joined[at].Counts[child.Name] = counts[id]
			default:
				if rows := lists[id]; rows != nil {
					joined[at].Lists[child.Name] = rows
				}
			}
		}
	}

	return joined, duplicates
}

// collapse groups one child table's rows by composite key.
func collapse(child domain.Table, rows []domain.Row, keyColumns []string) (map[string][]domain.Row, map[string]int) {
	lists := make(map[string][]domain.Row)
	counts := make(map[string]int)
	for _, row := range rows {
		parts, ok := keyOf(row, keyColumns)
		if !ok {
			continue
		}
		id := strings.Join(parts, keySeparator)
		if child.Collapse == domain.CollapseCount {
			counts[id]++
			continue
		}
		lists[id] = append(lists[id], withoutKeys(row, keyColumns))
	}
	return lists, counts
}

// keyOf renders the composite key parts canonically. A missing part
// invalidates the whole key.
func keyOf(row domain.Row, keyColumns []string) ([]string, bool) {
	parts := make([]string, len(keyColumns))
	for i, col := range keyColumns {
		v := row[col]
		if domain.IsMissing(v) {
			return nil, false
		}
		parts[i] = domain.FormatValue(v)
	}
	return parts, true
}

func withoutKeys(row domain.Row, keyColumns []string) domain.Row {
	out := make(domain.Row, len(row))
	for col, v := range row {
		out[col] = v
	}
	for _, col := range keyColumns {
		delete(out, col)
	}
	return out
}
