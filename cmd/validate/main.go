// Command validate performs end-to-end integrity checks on one jurisdiction's
// exported web bundles: metadata, bucket files, GeoJSON features, and the
// per-crash detail records. It verifies file presence, enum membership,
// bucket-key consistency, and cross-file agreement between features and
// details.
//
// Usage:
//
//	go run ./cmd/validate -web-dir web -slug fars
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/couchcryptid/crash-data-pipeline/internal/domain"
	"github.com/couchcryptid/crash-data-pipeline/internal/webexport"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

var validHarms = map[domain.CrashCategory]bool{
	domain.CategoryCar:   true,
	domain.CategoryBike:  true,
	domain.CategoryPed:   true,
	domain.CategoryOther: true,
}

var validInjuryKeys = map[string]bool{
	string(domain.InjuryCategoryInjury):   true,
	string(domain.InjuryCategoryFatality): true,
	string(domain.InjuryCategoryOther):    true,
}

func main() {
	webDir := flag.String("web-dir", "", "web export root directory")
	slug := flag.String("slug", "", "jurisdiction output slug, e.g. fars")
	flag.Parse()

	if *webDir == "" || *slug == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*webDir, *slug); code != 0 {
		os.Exit(code)
	}
}

func run(webDir, slug string) int {
	dir := filepath.Join(webDir, "data", slug)

	fmt.Printf("=== Export Integrity Validation: %s ===\n\n", dir)

	metadata, err := loadMetadata(filepath.Join(dir, "file-metadata.json"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load metadata: %v\n", err)
		return 1
	}

	collections, details, loadErrs := loadBuckets(webDir, metadata)

	phases := []*phase{
		validateMetadata(metadata),
		validateFilePresence(webDir, metadata, loadErrs),
		validateFeatures(metadata, collections),
		validateDetails(collections, details),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	features := 0
	for _, c := range collections {
		features += len(c.Features)
	}
	fmt.Printf("\nBuckets: %d, features: %d, years: %d-%d\n",
		len(metadata.Filenames), features, metadata.MinYear, metadata.MaxYear)

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

func loadMetadata(path string) (webexport.Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return webexport.Metadata{}, err
	}
	var m webexport.Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return webexport.Metadata{}, err
	}
	return m, nil
}

// detailEntry is one crash's detail payload, loosely typed because the injury
// groupings serialize as top-level keys next to year and num_vehicles.
type detailEntry map[string]json.RawMessage

// loadBuckets loads every bucket's feature collection and detail map, keyed by
// the feature file name relative to the web root. Load failures are collected
// rather than fatal so the presence phase can report them all.
func loadBuckets(webDir string, metadata webexport.Metadata) (map[string]webexport.FeatureCollection, map[string]map[string]detailEntry, map[string]error) {
	collections := make(map[string]webexport.FeatureCollection)
	details := make(map[string]map[string]detailEntry)
	errs := make(map[string]error)

	for _, name := range metadata.Filenames {
		path := filepath.Join(webDir, filepath.FromSlash(name))

		var collection webexport.FeatureCollection
		if err := loadJSON(path, &collection); err != nil {
			errs[name] = err
			continue
		}
		collections[name] = collection

		detailPath := strings.TrimSuffix(path, ".json") + "-full.json"
		var detail map[string]detailEntry
		if err := loadJSON(detailPath, &detail); err != nil {
			errs[name] = err
			continue
		}
		details[name] = detail
	}
	return collections, details, errs
}

func loadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// ── Phase 1: Metadata ──

func validateMetadata(m webexport.Metadata) *phase {
	p := &phase{name: "Phase 1: Metadata (file-metadata.json)"}

	if m.Title == "" {
		p.errorf("title is empty")
	}
	if m.Source == "" {
		p.errorf("source is empty")
	}
	if m.LatLongInterval <= 0 {
		p.errorf("latlong_interval %d is not positive", m.LatLongInterval)
	}
	if m.MinYear > m.MaxYear {
		p.errorf("min_year %d exceeds max_year %d", m.MinYear, m.MaxYear)
	}
	if len(m.Filenames) == 0 {
		p.errorf("filenames is empty")
	}
	if _, err := uuid.Parse(m.RunID); err != nil {
		p.errorf("run_id %q is not a UUID: %v", m.RunID, err)
	}
	if m.GeneratedAt.IsZero() {
		p.errorf("generated_at is zero")
	}
	return p
}

// ── Phase 2: File presence ──

func validateFilePresence(webDir string, m webexport.Metadata, loadErrs map[string]error) *phase {
	p := &phase{name: "Phase 2: File Presence (bucket files)"}

	for _, name := range m.Filenames {
		if err, failed := loadErrs[name]; failed {
			p.errorf("%s: %v", name, err)
			continue
		}
		base := filepath.Base(name)
		if !strings.HasPrefix(base, "data-") || !strings.HasSuffix(base, ".json") {
			p.errorf("%s: unexpected bucket file name", name)
		}
		detailPath := strings.TrimSuffix(filepath.Join(webDir, filepath.FromSlash(name)), ".json") + "-full.json"
		if _, err := os.Stat(detailPath); err != nil {
			p.errorf("%s: detail sibling missing: %v", name, err)
		}
	}
	return p
}

// ── Phase 3: Feature integrity ──

func validateFeatures(m webexport.Metadata, collections map[string]webexport.FeatureCollection) *phase {
	p := &phase{name: "Phase 3: Feature Integrity (GeoJSON)"}

	seen := map[string]string{}
	for name, collection := range collections {
		if collection.Type != "FeatureCollection" {
			p.errorf("%s: type is %q", name, collection.Type)
		}
		bucketKey := bucketKeyOf(name)

		for i, f := range collection.Features {
			id := f.Properties.ID
			if id == "" {
				p.errorf("%s feature %d: missing id", name, i)
				continue
			}
			if prev, dup := seen[id]; dup {
				p.errorf("%s: id %s already present in %s", name, id, prev)
			}
			seen[id] = name

			if f.Type != "Feature" {
				p.errorf("%s id %s: type is %q", name, id, f.Type)
			}
			if f.Geometry.Type != "Point" {
				p.errorf("%s id %s: geometry type is %q", name, id, f.Geometry.Type)
			}
			if !validHarms[f.Properties.Harm] {
				p.errorf("%s id %s: harm %q not in enum", name, id, f.Properties.Harm)
			}
			if f.Properties.NumFatalities < 0 {
				p.errorf("%s id %s: negative num_fatalities %d", name, id, f.Properties.NumFatalities)
			}
			if y := f.Properties.Year; y != 0 && (y < m.MinYear || y > m.MaxYear) {
				p.errorf("%s id %s: year %d outside metadata range %d-%d", name, id, y, m.MinYear, m.MaxYear)
			}

			// Coordinates are (longitude, latitude); the file's bucket key
			// must be the truncation of the feature's own coordinates.
			lon, lat := f.Geometry.Coordinates[0], f.Geometry.Coordinates[1]
			if key := domain.BucketKey(lat, lon, m.LatLongInterval); key != bucketKey {
				p.errorf("%s id %s: coordinates (%g, %g) bucket to %s", name, id, lat, lon, key)
			}
		}
	}
	return p
}

// bucketKeyOf recovers the bucket key from a feature file name,
// e.g. "data/fars/data-38_-78.json" yields "38_-78".
func bucketKeyOf(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(strings.TrimPrefix(base, "data-"), ".json")
}

// ── Phase 4: Detail consistency ──

func validateDetails(collections map[string]webexport.FeatureCollection, details map[string]map[string]detailEntry) *phase {
	p := &phase{name: "Phase 4: Detail Consistency (full files)"}

	for name, collection := range collections {
		detail, ok := details[name]
		if !ok {
			continue // presence phase already reported the missing file
		}

		ids := make(map[string]bool, len(collection.Features))
		for _, f := range collection.Features {
			ids[f.Properties.ID] = true
			entry, found := detail[f.Properties.ID]
			if !found {
				p.errorf("%s: feature %s has no detail entry", name, f.Properties.ID)
				continue
			}
			checkDetailEntry(p, name, f, entry)
		}

		for id := range detail {
			if !ids[id] {
				p.errorf("%s: detail entry %s has no feature", name, id)
			}
		}
	}
	return p
}

func checkDetailEntry(p *phase, name string, f webexport.Feature, entry detailEntry) {
	id := f.Properties.ID

	var year int
	if raw, ok := entry["year"]; !ok {
		p.errorf("%s id %s: detail missing year", name, id)
	} else if err := json.Unmarshal(raw, &year); err != nil {
		p.errorf("%s id %s: detail year: %v", name, id, err)
	} else if year != f.Properties.Year {
		p.errorf("%s id %s: detail year %d, feature year %d", name, id, year, f.Properties.Year)
	}

	if _, ok := entry["num_vehicles"]; !ok {
		p.errorf("%s id %s: detail missing num_vehicles", name, id)
	}

	fatalities := 0
	for key, raw := range entry {
		if key == "year" || key == "num_vehicles" {
			continue
		}
		if !validInjuryKeys[key] {
			p.errorf("%s id %s: unexpected detail key %q", name, id, key)
			continue
		}
		var people []domain.InjuryDetail
		if err := json.Unmarshal(raw, &people); err != nil {
			p.errorf("%s id %s: detail %s: %v", name, id, key, err)
			continue
		}
		for i, person := range people {
			if person.Person == "" {
				p.errorf("%s id %s: %s entry %d has no person description", name, id, key, i)
			}
		}
		if key == string(domain.InjuryCategoryFatality) {
			fatalities = len(people)
		}
	}

	// FARS trusts the crash table's fatality count over the person rows, so
	// the person-level list may undercount but never exceed it.
	if fatalities > f.Properties.NumFatalities {
		p.errorf("%s id %s: %d fatality entries exceed num_fatalities %d",
			name, id, fatalities, f.Properties.NumFatalities)
	}
}
