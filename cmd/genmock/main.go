// Command genmock generates deterministic mock extracts in the fetch cache so
// the pipeline can run end to end without hitting the DC open-data portal.
// The two CSVs mimic the portal's crash and person-detail exports, with the
// crash table's per-role injury counts derived from the generated people so
// cross-file validation holds.
//
// Usage:
//
//	go run ./cmd/genmock -cache-dir cache -crashes 120
//	go run ./cmd/etl -jurisdiction dc
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/crash-data-pipeline/internal/domain"
)

// Cache entry names match the fetch client's "<jur>-<table>-<partition>"
// naming, so a subsequent run reads these instead of downloading.
const (
	crashCacheName  = "dc-Crash-all"
	detailCacheName = "dc-Detail-all"
)

var crashHeader = []string{
	"CRIMEID", "FROMDATE", "REPORTDATE", "LATITUDE", "LONGITUDE", "TOTAL_VEHICLES",
	"MAJORINJURIES_BICYCLIST", "MAJORINJURIES_DRIVER", "MAJORINJURIES_PEDESTRIAN", "MAJORINJURIESPASSENGER",
	"MINORINJURIES_BICYCLIST", "MINORINJURIES_DRIVER", "MINORINJURIES_PEDESTRIAN", "MINORINJURIESPASSENGER",
	"UNKNOWNINJURIES_BICYCLIST", "UNKNOWNINJURIES_DRIVER", "UNKNOWNINJURIES_PEDESTRIAN", "UNKNOWNINJURIESPASSENGER",
	"FATAL_BICYCLIST", "FATAL_DRIVER", "FATAL_PEDESTRIAN", "FATALPASSENGER",
}

var detailHeader = []string{"CRIMEID", "PERSONTYPE", "AGE", "FATAL", "MAJORINJURY", "MINORINJURY"}

// personDef ties a detail-table person type to its crash-table column suffix.
type personDef struct {
	personType string
	suffix     string
}

var personDefs = []personDef{
	{personType: "Driver", suffix: "_DRIVER"},
	{personType: "Passenger", suffix: "PASSENGER"},
	{personType: "Pedestrian", suffix: "_PEDESTRIAN"},
	{personType: "Bicyclist", suffix: "_BICYCLIST"},
}

type person struct {
	def      personDef
	age      int
	fatal    bool
	major    bool
	minor    bool
	ageKnown bool
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cacheDir := flag.String("cache-dir", "cache", "fetch cache directory to write extracts into")
	crashes := flag.Int("crashes", 120, "number of crash rows to generate")
	seed := flag.Int64("seed", 20240426, "random seed, fixed for reproducible fixtures")
	flag.Parse()

	// Freeze the clock so report-date fallbacks are reproducible.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2024, time.April, 26, 12, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	rng := rand.New(rand.NewSource(*seed))

	crashRows := make([][]string, 0, *crashes)
	var detailRows [][]string
	stats := map[string]int{}

	for i := 0; i < *crashes; i++ {
		id := fmt.Sprintf("25%06d", i+1)
		people := genPeople(rng)

		crashRows = append(crashRows, crashRow(rng, id, people))
		for _, p := range people {
			detailRows = append(detailRows, detailRow(id, p))
			if p.fatal {
				stats["fatalities"]++
			} else if p.major || p.minor {
				stats["injuries"]++
			}
			stats[p.def.personType]++
		}
	}

	if err := writeCSV(filepath.Join(*cacheDir, crashCacheName), crashHeader, crashRows); err != nil {
		return fmt.Errorf("writing crash extract: %w", err)
	}
	if err := writeCSV(filepath.Join(*cacheDir, detailCacheName), detailHeader, detailRows); err != nil {
		return fmt.Errorf("writing detail extract: %w", err)
	}

	log.Printf("wrote %s: %d crashes", crashCacheName, len(crashRows))
	log.Printf("wrote %s: %d people", detailCacheName, len(detailRows))

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("People: driver=%d, passenger=%d, pedestrian=%d, bicyclist=%d\n",
		stats["Driver"], stats["Passenger"], stats["Pedestrian"], stats["Bicyclist"])
	fmt.Printf("Fatalities: %d, injuries: %d\n", stats["fatalities"], stats["injuries"])
	return nil
}

// genPeople produces one to four people. At least one person is injured so
// the crash survives the injury filter; pure property-damage crashes are not
// interesting fixtures.
func genPeople(rng *rand.Rand) []person {
	n := 1 + rng.Intn(4)
	people := make([]person, n)
	for i := range people {
		p := person{
			def:      personDefs[rng.Intn(len(personDefs))],
			age:      16 + rng.Intn(70),
			ageKnown: rng.Intn(10) > 0,
		}
		switch rng.Intn(20) {
		case 0:
			p.fatal = true
		case 1, 2, 3:
			p.major = true
		case 4, 5, 6, 7, 8:
			p.minor = true
		}
		people[i] = p
	}
	if !anyInjured(people) {
		people[0].minor = true
	}
	return people
}

func anyInjured(people []person) bool {
	for _, p := range people {
		if p.fatal || p.major || p.minor {
			return true
		}
	}
	return false
}

// crashRow renders one crash with injury counts aggregated from its people.
// A twentieth of rows carry the 1/1/1900 placeholder crash date the portal
// emits when the date was not captured.
func crashRow(rng *rand.Rand, id string, people []person) []string {
	counts := map[string]int{}
	for _, p := range people {
		switch {
		case p.fatal:
			counts["FATAL"+p.def.suffix]++
		case p.major:
			counts["MAJORINJURIES"+p.def.suffix]++
		case p.minor:
			counts["MINORINJURIES"+p.def.suffix]++
		}
	}

	reportDate := domain.Now().UTC().AddDate(0, 0, -rng.Intn(3000))
	fromDate := reportDate.AddDate(0, 0, -rng.Intn(30))
	fromDateText := fromDate.Format("2006/01/02 15:04:05+00")
	if rng.Intn(20) == 0 {
		fromDateText = "1900/01/01 00:00:00+00"
	}

	lat := 38.80 + rng.Float64()*0.20
	lon := -77.12 + rng.Float64()*0.20

	row := []string{
		id,
		fromDateText,
		reportDate.Format("2006/01/02 15:04:05+00"),
		strconv.FormatFloat(lat, 'f', 6, 64),
		strconv.FormatFloat(lon, 'f', 6, 64),
		strconv.Itoa(1 + rng.Intn(3)),
	}
	for _, col := range crashHeader[6:] {
		row = append(row, strconv.Itoa(counts[col]))
	}
	return row
}

func detailRow(id string, p person) []string {
	age := ""
	if p.ageKnown {
		age = strconv.Itoa(p.age)
	}
	return []string{id, p.def.personType, age, yn(p.fatal), yn(p.major), yn(p.minor)}
}

func yn(b bool) string {
	if b {
		return "Y"
	}
	return "N"
}

func writeCSV(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}
