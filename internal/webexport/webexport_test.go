package webexport

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/crash-data-pipeline/internal/domain"
	"github.com/couchcryptid/crash-data-pipeline/internal/jurisdiction"
	"github.com/couchcryptid/crash-data-pipeline/internal/observability"
)

// exportJurisdiction is a minimal jurisdiction for export tests: rows carry
// LAT/LON/YEAR plus a precomputed ID and HARM.
type exportJurisdiction struct {
	jurisdiction.Base
	interval int
}

func (e *exportJurisdiction) Name() string { return "exportville" }

func (e *exportJurisdiction) Tables() domain.TableSet { return domain.TableSet{} }

func (e *exportJurisdiction) Description() domain.DataDescription {
	return domain.DataDescription{
		Title:  "Crashes in Exportville",
		Source: "Exportville DOT",
		Slug:   "exportville",
		Links:  domain.RecordLinks{IDSplitter: "-"},
	}
}

func (e *exportJurisdiction) Columns() domain.ColumnNames {
	return domain.ColumnNames{Latitude: "LAT", Longitude: "LON", Year: "YEAR"}
}

func (e *exportJurisdiction) Partitions() []string { return []string{"all"} }

func (e *exportJurisdiction) Interval() int { return e.interval }

func (e *exportJurisdiction) Classifier() domain.RowClassifier { return exportClassifier{} }

type exportClassifier struct{}

func (exportClassifier) ItemID(row domain.JoinedCrashRow) string {
	s, _ := row.Fields["ID"].(string)
	return s
}

func (exportClassifier) Category(row domain.JoinedCrashRow) domain.CrashCategory {
	if s, ok := row.Fields["HARM"].(string); ok {
		return domain.CrashCategory(s)
	}
	return domain.CategoryOther
}

func (exportClassifier) NumFatalities(row domain.JoinedCrashRow) int {
	n, _ := domain.AsInt(row.Fields["FATALS"])
	return n
}

func (exportClassifier) NumVehicles(domain.JoinedCrashRow) int { return 1 }

func (exportClassifier) Injuries(domain.JoinedCrashRow) domain.Injuries {
	return domain.Injuries{
		domain.InjuryCategoryFatality: {{Person: "Pedestrian", Age: domain.KnownAge(30)}},
	}
}

func row(id string, lat, lon, year any, harm string) domain.JoinedCrashRow {
	return domain.JoinedCrashRow{
		Key:    []string{id},
		Fields: domain.Row{"ID": id, "LAT": lat, "LON": lon, "YEAR": year, "HARM": harm, "FATALS": 1.0},
	}
}

func newTestExporter(t *testing.T) (*Exporter, string) {
	t.Helper()
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(dir, logger, observability.NewMetricsForTesting()), dir
}

func TestExport(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2024, 4, 26, 12, 0, 0, 0, time.UTC)))
	defer domain.SetClock(nil)

	j := &exportJurisdiction{interval: 2}
	rows := []domain.JoinedCrashRow{
		row("2016-1", 39.29, -76.61, 2016.0, "ped"),
		row("2016-2", 39.01, -76.99, 2016.0, "car"),
		row("2018-1", 40.52, -76.61, 2018.0, "bike"),
	}

	t.Run("features bucket by truncated coordinates", func(t *testing.T) {
		exporter, dir := newTestExporter(t)
		metadata, err := exporter.Export(j, rows)
		require.NoError(t, err)

		// The 2016 rows share the 38_-78 bucket at interval 2; the 2018 row
		// lands in 40_-78. Bucket keys are sorted.
		require.Len(t, metadata.Filenames, 2)
		assert.Equal(t, "data/exportville/data-38_-78.json", metadata.Filenames[0])
		assert.Equal(t, "data/exportville/data-40_-78.json", metadata.Filenames[1])

		var collection FeatureCollection
		loadJSONFile(t, filepath.Join(dir, "data", "exportville", "data-38_-78.json"), &collection)
		require.Len(t, collection.Features, 2)
		assert.Equal(t, "FeatureCollection", collection.Type)

		// Features sort by id; coordinates are (longitude, latitude).
		first := collection.Features[0]
		assert.Equal(t, "2016-1", first.Properties.ID)
		assert.Equal(t, [2]float64{-76.61, 39.29}, first.Geometry.Coordinates)
		assert.Equal(t, domain.CategoryPed, first.Properties.Harm)
		assert.Equal(t, 2016, first.Properties.Year)
		assert.Equal(t, 1, first.Properties.NumFatalities)
	})

	t.Run("detail files key by crash id", func(t *testing.T) {
		exporter, dir := newTestExporter(t)
		_, err := exporter.Export(j, rows)
		require.NoError(t, err)

		var details map[string]map[string]json.RawMessage
		loadJSONFile(t, filepath.Join(dir, "data", "exportville", "data-38_-78-full.json"), &details)

		require.Contains(t, details, "2016-1")
		entry := details["2016-1"]
		assert.Contains(t, entry, "year")
		assert.Contains(t, entry, "num_vehicles")
		assert.Contains(t, entry, "fatalities")
	})

	t.Run("metadata describes the run", func(t *testing.T) {
		exporter, dir := newTestExporter(t)
		metadata, err := exporter.Export(j, rows)
		require.NoError(t, err)

		assert.Equal(t, "Crashes in Exportville", metadata.Title)
		assert.Equal(t, 2, metadata.LatLongInterval)
		assert.Equal(t, 2016, metadata.MinYear)
		assert.Equal(t, 2018, metadata.MaxYear)
		assert.Equal(t, "-", metadata.RecordLinks.IDSplitter)
		assert.NotEmpty(t, metadata.RunID)
		assert.Equal(t, time.Date(2024, 4, 26, 12, 0, 0, 0, time.UTC), metadata.GeneratedAt)

		var onDisk Metadata
		loadJSONFile(t, filepath.Join(dir, "data", "exportville", "file-metadata.json"), &onDisk)
		assert.Equal(t, metadata.Filenames, onDisk.Filenames)
	})

	t.Run("rows without coordinates are skipped", func(t *testing.T) {
		exporter, dir := newTestExporter(t)
		metadata, err := exporter.Export(j, []domain.JoinedCrashRow{
			row("2016-1", 39.29, -76.61, 2016.0, "ped"),
			row("2016-2", nil, nil, 2016.0, "car"),
			row("2016-3", "nan", "nan", 2016.0, "car"),
		})
		require.NoError(t, err)
		require.Len(t, metadata.Filenames, 1)

		var collection FeatureCollection
		loadJSONFile(t, filepath.Join(dir, filepath.FromSlash(metadata.Filenames[0])), &collection)
		assert.Len(t, collection.Features, 1)
	})

	t.Run("re-export is deterministic", func(t *testing.T) {
		exporter, _ := newTestExporter(t)
		first, err := exporter.Export(j, rows)
		require.NoError(t, err)
		second, err := exporter.Export(j, rows)
		require.NoError(t, err)

		diff := cmp.Diff(first, second, cmpopts.IgnoreFields(Metadata{}, "RunID"))
		assert.Empty(t, diff)
	})
}

func TestFeatures(t *testing.T) {
	j := &exportJurisdiction{interval: 2}

	features := Features(j, []domain.JoinedCrashRow{
		row("2016-1", 39.29, -76.61, 2016.0, "ped"),
		row("2016-2", nil, nil, 2016.0, "car"),
	})

	require.Len(t, features, 1)
	assert.Equal(t, "2016-1", features[0].Properties.ID)
	assert.Equal(t, domain.CategoryPed, features[0].Properties.Harm)
}

func TestDetailRecordJSON(t *testing.T) {
	record := DetailRecord{
		Year:        2016,
		NumVehicles: 2,
		Injuries: domain.Injuries{
			domain.InjuryCategoryFatality: {{Person: "Pedestrian", Age: domain.KnownAge(30)}},
		},
	}
	data, err := json.Marshal(record)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"year": 2016,
		"num_vehicles": 2,
		"fatalities": [{"person": "Pedestrian", "age": 30}]
	}`, string(data))
}

func loadJSONFile(t *testing.T, path string, v any) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v))
}
