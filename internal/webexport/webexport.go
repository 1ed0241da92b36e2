// Package webexport turns joined crash rows into the spatially bucketed
// bundles the web map consumes. Each lat/long bucket yields two artifacts: a
// GeoJSON FeatureCollection of lightweight points for map rendering, and a
// detail map keyed by crash id, fetched on demand when a point is opened.
// One metadata file per run describes the full output set.
package webexport

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/crash-data-pipeline/internal/domain"
	"github.com/couchcryptid/crash-data-pipeline/internal/jurisdiction"
	"github.com/couchcryptid/crash-data-pipeline/internal/observability"
)

// Feature is one crash as a GeoJSON point feature.
type Feature struct {
	Type       string     `json:"type"`
	Geometry   Geometry   `json:"geometry"`
	Properties Properties `json:"properties"`
}

// Geometry is a GeoJSON point, coordinates in (longitude, latitude) order.
type Geometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// Properties is the map-rendering property bag. IDs are strings for stable
// cross-platform keying even where the source key is numeric.
type Properties struct {
	ID            string               `json:"id"`
	Year          int                  `json:"year"`
	Harm          domain.CrashCategory `json:"harm"`
	NumFatalities int                  `json:"num_fatalities"`
}

// FeatureCollection is a GeoJSON feature collection.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// DetailRecord is the full-detail payload for one crash. The injury groupings
// serialize as top-level keys next to year and num_vehicles.
type DetailRecord struct {
	Year        int
	NumVehicles int
	Injuries    domain.Injuries
}

func (d DetailRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 2+len(d.Injuries))
	out["year"] = d.Year
	out["num_vehicles"] = d.NumVehicles
	for cat, entries := range d.Injuries {
		out[string(cat)] = entries
	}
	return json.Marshal(out)
}

// Metadata describes one export run.
type Metadata struct {
	Title           string             `json:"title"`
	Source          string             `json:"source"`
	LatLongInterval int                `json:"latlong_interval"`
	MinYear         int                `json:"min_year"`
	MaxYear         int                `json:"max_year"`
	Filenames       []string           `json:"filenames"`
	RecordLinks     domain.RecordLinks `json:"record_links"`
	RunID           string             `json:"run_id"`
	GeneratedAt     time.Time          `json:"generated_at"`
}

// Exporter writes web bundles under the web directory.
type Exporter struct {
	webDir  string
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates an Exporter rooted at webDir.
func New(webDir string, logger *slog.Logger, metrics *observability.Metrics) *Exporter {
	return &Exporter{webDir: webDir, logger: logger, metrics: metrics}
}

// Export classifies every joined row, buckets the results by truncated
// lat/long, and writes one feature file and one detail file per bucket plus
// the run metadata. Output is deterministic for a given input: bucket keys
// and features are sorted, and files are fully overwritten, so re-exporting
// the same data produces the same file set.
func (e *Exporter) Export(j jurisdiction.Jurisdiction, rows []domain.JoinedCrashRow) (Metadata, error) {
	cls := j.Classifier()
	cols := j.Columns()
	desc := j.Description()
	interval := j.Interval()

	outDir := filepath.Join(e.webDir, "data", desc.Slug)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return Metadata{}, fmt.Errorf("create export dir: %w", err)
	}

	type bucket struct {
		features []Feature
		details  map[string]DetailRecord
	}
	buckets := make(map[string]*bucket)

	minYear, maxYear := 0, 0
	skipped := 0
	for _, row := range rows {
		lat, okLat := domain.AsFloat(row.Fields[cols.Latitude])
		lon, okLon := domain.AsFloat(row.Fields[cols.Longitude])
		if !okLat || !okLon {
			skipped++
			continue
		}

		year, _ := domain.AsInt(row.Fields[cols.Year])
		if year > 0 {
			if minYear == 0 || year < minYear {
				minYear = year
			}
			if year > maxYear {
				maxYear = year
			}
		}

		id := cls.ItemID(row)
		key := domain.BucketKey(lat, lon, interval)
		b := buckets[key]
		if b == nil {
			b = &bucket{details: make(map[string]DetailRecord)}
			buckets[key] = b
		}
		b.features = append(b.features, Feature{
			Type:     "Feature",
			Geometry: Geometry{Type: "Point", Coordinates: [2]float64{lon, lat}},
			Properties: Properties{
				ID:            id,
				Year:          year,
				Harm:          cls.Category(row),
				NumFatalities: cls.NumFatalities(row),
			},
		})
		b.details[id] = DetailRecord{
			Year:        year,
			NumVehicles: cls.NumVehicles(row),
			Injuries:    cls.Injuries(row),
		}
	}

	if skipped > 0 {
		e.logger.Warn("rows without coordinates skipped", "jurisdiction", j.Name(), "rows", skipped)
		e.metrics.RowsSkippedNoCoord.WithLabelValues(j.Name()).Add(float64(skipped))
	}

	keys := make([]string, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	filenames := make([]string, 0, len(keys))
	for _, key := range keys {
		b := buckets[key]
		sort.Slice(b.features, func(i, k int) bool {
			return b.features[i].Properties.ID < b.features[k].Properties.ID
		})

		featureFile := fmt.Sprintf("data-%s.json", key)
		collection := FeatureCollection{Type: "FeatureCollection", Features: b.features}
		if err := writeJSON(filepath.Join(outDir, featureFile), collection); err != nil {
			return Metadata{}, err
		}
		if err := writeJSON(filepath.Join(outDir, fmt.Sprintf("data-%s-full.json", key)), b.details); err != nil {
			return Metadata{}, err
		}

		filenames = append(filenames, filepath.ToSlash(filepath.Join("data", desc.Slug, featureFile)))
		e.metrics.FeaturesExported.WithLabelValues(j.Name()).Add(float64(len(b.features)))
		e.metrics.BucketFilesWritten.WithLabelValues(j.Name()).Inc()
	}

	metadata := Metadata{
		Title:           desc.Title,
		Source:          desc.Source,
		LatLongInterval: interval,
		MinYear:         minYear,
		MaxYear:         maxYear,
		Filenames:       filenames,
		RecordLinks:     desc.Links,
		RunID:           uuid.NewString(),
		GeneratedAt:     domain.Now().UTC(),
	}
	if err := writeJSON(filepath.Join(outDir, "file-metadata.json"), metadata); err != nil {
		return Metadata{}, err
	}

	e.logger.Info("export complete",
		"jurisdiction", j.Name(), "buckets", len(keys),
		"min_year", minYear, "max_year", maxYear)
	return metadata, nil
}

// Features re-runs classification over rows and returns every feature, for
// sinks that consume the stream rather than the bucket files.
func Features(j jurisdiction.Jurisdiction, rows []domain.JoinedCrashRow) []Feature {
	cls := j.Classifier()
	cols := j.Columns()

	features := make([]Feature, 0, len(rows))
	for _, row := range rows {
		lat, okLat := domain.AsFloat(row.Fields[cols.Latitude])
		lon, okLon := domain.AsFloat(row.Fields[cols.Longitude])
		if !okLat || !okLon {
			continue
		}
		year, _ := domain.AsInt(row.Fields[cols.Year])
		features = append(features, Feature{
			Type:     "Feature",
			Geometry: Geometry{Type: "Point", Coordinates: [2]float64{lon, lat}},
			Properties: Properties{
				ID:            cls.ItemID(row),
				Year:          year,
				Harm:          cls.Category(row),
				NumFatalities: cls.NumFatalities(row),
			},
		})
	}
	return features
}

func writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
