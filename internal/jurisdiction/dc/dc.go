// Package dc implements the District of Columbia jurisdiction. Source data
// is two open-data CSV exports: a crash table carrying per-role injury and
// fatality counts, and a per-person detail table. DC publishes one full
// extract, so the single partition is "all".
package dc

import (
	"strings"

	"github.com/couchcryptid/crash-data-pipeline/internal/domain"
	"github.com/couchcryptid/crash-data-pipeline/internal/jurisdiction"
)

const (
	crashURL  = "https://opendata.arcgis.com/api/v3/datasets/70392a096a8e431381f1f692aaa06afd_24/downloads/data?format=csv&spatialRefId=4326"
	detailURL = "https://opendata.arcgis.com/api/v3/datasets/70248b73c20f46b0a5ee895fc91d6222_25/downloads/data?format=csv&spatialRefId=4326"

	tableCrash  = "Crash"
	tableDetail = "Detail"

	// placeholderYear marks FROMDATE values recorded as 1/1/1900,
	// i.e. the crash date was not captured.
	placeholderYear = 1900
)

// The crash table counts injuries per severity and role in one column per
// combination, e.g. MAJORINJURIES_BICYCLIST. The passenger columns have no
// underscore in the export.
var (
	injuryPrefixes     = []string{"MAJORINJURIES", "MINORINJURIES", "UNKNOWNINJURIES", "FATAL"}
	personTypeSuffixes = []string{"_BICYCLIST", "_DRIVER", "_PEDESTRIAN", "PASSENGER"}

	injuryFatalityColumns = crossJoin(injuryPrefixes, personTypeSuffixes)
	fatalityColumns       = crossJoin([]string{"FATAL"}, personTypeSuffixes)
)

func crossJoin(prefixes, suffixes []string) []string {
	out := make([]string, 0, len(prefixes)*len(suffixes))
	for _, p := range prefixes {
		for _, s := range suffixes {
			out = append(out, p+s)
		}
	}
	return out
}

// personTypes maps the detail table's PERSONTYPE text onto roles. Several
// values arrive truncated at ten characters by the export.
var personTypes = map[string]domain.PersonRole{
	"Bicyclist":  domain.RoleBicyclist,
	"Driver":     domain.RoleDriver,
	"Electric M": domain.RoleOther,
	"Occupant o": domain.RoleOccupant,
	"Passenger":  domain.RoleOccupant,
	"Pedestrian": domain.RolePedestrian,
	"Streetcar":  domain.RoleOther,
	"Unknown":    domain.RoleOther,
	"Witness":    domain.RoleOther,
	"0":          domain.RoleOther,
}

func init() {
	jurisdiction.Register(&DC{})
}

// DC is the District of Columbia jurisdiction.
type DC struct {
	jurisdiction.Base
}

func (d *DC) Name() string { return "dc" }

func (d *DC) Tables() domain.TableSet {
	return domain.TableSet{
		KeyColumns: []string{"CRIMEID"},
		Crash: domain.Table{
			Name:    tableCrash,
			Columns: append([]string{"LATITUDE", "LONGITUDE", "YEAR", "TOTAL_VEHICLES"}, injuryFatalityColumns...),
			Source:  crashURL,
		},
		Children: []domain.Table{
			{
				Name:     tableDetail,
				Columns:  []string{"PERSONTYPE", "AGE", "FATAL", "MAJORINJURY", "MINORINJURY"},
				Source:   detailURL,
				Collapse: domain.CollapseList,
			},
		},
	}
}

func (d *DC) Description() domain.DataDescription {
	return domain.DataDescription{
		Title: "Crashes with Injuries or Fatalities in the District of Columbia",
		Source: `District Department of Transportation <a ` +
			`href="https://opendata.dc.gov/datasets/DCGIS::crashes-in-dc/about">Crashes in DC</a>. Data is updated daily.`,
		Slug: "dc",
		Links: domain.RecordLinks{
			CrashFormat: "https://maps2.dcgis.dc.gov/dcgis/rest/services/DCGIS_DATA/Public_Safety_WebMercator/MapServer" +
				"/24/query?where=CRIMEID={}&outFields=*&outSR=4326&f=pjson",
		},
	}
}

func (d *DC) Columns() domain.ColumnNames {
	return domain.ColumnNames{Latitude: "LATITUDE", Longitude: "LONGITUDE", Year: "YEAR"}
}

func (d *DC) Partitions() []string { return []string{"all"} }

func (d *DC) Interval() int { return 1 }

func (d *DC) ConvertTypes(rows []domain.Row, table domain.Table) {
	switch table.Name {
	case tableCrash:
		domain.CoerceNumericColumns(rows, injuryFatalityColumns...)
		domain.CoerceNumericColumns(rows, "LATITUDE", "LONGITUDE", "TOTAL_VEHICLES")
	case tableDetail:
		domain.CoerceNumericColumns(rows, "AGE")
	}
}

// DeriveColumns computes the canonical YEAR: the crash date's year when
// recorded, otherwise the report-filing year. A 1900 crash year is the
// "not captured" placeholder and defers to the report date too.
func (d *DC) DeriveColumns(rows []domain.Row, table domain.Table) {
	if table.Name != tableCrash {
		return
	}
	for _, row := range rows {
		if year, ok := yearOf(row, "FROMDATE"); ok && year != placeholderYear {
			row["YEAR"] = float64(year)
			continue
		}
		if year, ok := yearOf(row, "REPORTDATE"); ok {
			row["YEAR"] = float64(year)
		}
	}
}

func yearOf(row domain.Row, column string) (int, bool) {
	s, ok := row[column].(string)
	if !ok {
		return 0, false
	}
	t, ok := domain.ParseDate(s)
	if !ok {
		return 0, false
	}
	return t.Year(), true
}

// FilterRows keeps crashes with at least one injury or fatality flag set and
// known coordinates and year.
func (d *DC) FilterRows(rows []domain.Row, table domain.Table) []domain.Row {
	if table.Name != tableCrash {
		return rows
	}
	kept := rows[:0]
	for _, row := range rows {
		total := 0.0
		for _, col := range injuryFatalityColumns {
			if v, ok := domain.AsFloat(row[col]); ok {
				total += v
			}
		}
		if total <= 0 {
			continue
		}
		if _, ok := domain.AsFloat(row["LATITUDE"]); !ok {
			continue
		}
		if domain.IsMissing(row["YEAR"]) {
			continue
		}
		kept = append(kept, row)
	}
	return kept
}

func (d *DC) Classifier() domain.RowClassifier { return classifier{} }

type classifier struct{}

func (classifier) ItemID(row domain.JoinedCrashRow) string {
	return row.JoinKey("")
}

// Category classifies by the most severely injured person in the detail
// table, vulnerability breaking severity ties. No detail rows means other.
func (classifier) Category(row domain.JoinedCrashRow) domain.CrashCategory {
	role, ok := domain.MostAffected(row.List(tableDetail), injuryOf, roleOf)
	if !ok {
		return domain.CategoryOther
	}
	return role.Category
}

// NumFatalities sums the crash table's per-role fatality count columns.
func (classifier) NumFatalities(row domain.JoinedCrashRow) int {
	total := 0.0
	for _, col := range fatalityColumns {
		if v, ok := domain.AsFloat(row.Fields[col]); ok {
			total += v
		}
	}
	return int(total)
}

func (classifier) NumVehicles(row domain.JoinedCrashRow) int {
	if n, ok := domain.AsInt(row.Fields["TOTAL_VEHICLES"]); ok {
		return n
	}
	return 0
}

func (classifier) Injuries(row domain.JoinedCrashRow) domain.Injuries {
	injuries := make(domain.Injuries)
	for _, p := range row.List(tableDetail) {
		detail := domain.InjuryDetail{Person: roleOf(p).Description, Age: ageOf(p)}
		cat := injuryOf(p).Category
		injuries[cat] = append(injuries[cat], detail)
	}
	return injuries
}

func injuryOf(p domain.Row) domain.InjuryClass {
	if flag(p, "FATAL") {
		return domain.InjuryFatal
	}
	if flag(p, "MAJORINJURY") || flag(p, "MINORINJURY") {
		return domain.InjuryNonFatal
	}
	return domain.InjuryNone
}

func flag(p domain.Row, column string) bool {
	s, _ := p[column].(string)
	return strings.TrimSpace(s) == "Y"
}

func roleOf(p domain.Row) domain.PersonRole {
	s, _ := p["PERSONTYPE"].(string)
	if role, ok := personTypes[strings.TrimSpace(s)]; ok {
		return role
	}
	return domain.RoleOther
}

func ageOf(p domain.Row) domain.Age {
	if age, ok := domain.AsInt(p["AGE"]); ok {
		return domain.KnownAge(age)
	}
	return domain.UnknownAge
}
