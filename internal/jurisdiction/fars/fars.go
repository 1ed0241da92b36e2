// Package fars implements the national Fatality Analysis Reporting System
// jurisdiction. Data comes from the NHTSA CrashAPI as one JSON extract per
// dataset per year; only crashes with fatalities are tracked, so no row
// filtering applies.
package fars

import (
	"strings"

	"github.com/couchcryptid/crash-data-pipeline/internal/domain"
	"github.com/couchcryptid/crash-data-pipeline/internal/jurisdiction"
)

const (
	dataURL = "https://crashviewer.nhtsa.dot.gov/CrashAPI/FARSData/GetFARSData?dataset={table}&caseYear={year}&format=json"

	tablePerson  = "Person"
	tableVehicle = "Vehicle"
)

// personType is a PER_TYP code's display name and harm category.
type personType struct {
	Name     string
	Category domain.CrashCategory
}

var personTypes = map[int]personType{
	1:  {"Driver", domain.CategoryCar},
	2:  {"Passenger", domain.CategoryCar},
	3:  {"Occupant, motor vehicle not in-transport", domain.CategoryCar},
	4:  {"Occupant, non-motor vehicle transport device", domain.CategoryCar},
	5:  {"Pedestrian", domain.CategoryPed},
	6:  {"Bicyclist", domain.CategoryBike},
	7:  {"Cyclist (other than bicyclist)", domain.CategoryBike},
	8:  {"Person on personal conveyances", domain.CategoryPed},
	9:  {"Unknown (occupant of motor vehicle in-transport)", domain.CategoryOther},
	10: {"Person in building", domain.CategoryOther},
	19: {"Unknown (non-motorist)", domain.CategoryOther},
}

var unknownPersonType = personType{"Unknown", domain.CategoryOther}

// categoryPriorities orders harm categories by increasing precedence when
// several fatally injured people compete for the crash's classification.
var categoryPriorities = []domain.CrashCategory{
	domain.CategoryCar, domain.CategoryOther, domain.CategoryBike, domain.CategoryPed,
}

const fatalInjuryCode = 4

// injuryCodes is the INJ_SEV coding table.
var injuryCodes = map[int]domain.InjuryCode{
	0: {Name: "No apparent injury", Category: domain.InjuryCategoryOther, Rank: 0},
	1: {Name: "Possible injury", Category: domain.InjuryCategoryInjury, Rank: 1},
	2: {Name: "Suspected minor injury", Category: domain.InjuryCategoryInjury, Rank: 2},
	3: {Name: "Suspected serious injury", Category: domain.InjuryCategoryInjury, Rank: 3},
	4: {Name: "Fatal injury", Category: domain.InjuryCategoryFatality, Rank: 4},
	5: {Name: "Injury, severity unknown", Category: domain.InjuryCategoryInjury, Rank: 5},
	6: {Name: "Died prior to crash", Category: domain.InjuryCategoryOther, Rank: 6},
}

var unknownInjuryCode = domain.InjuryCode{Name: "Unknown", Category: domain.InjuryCategoryOther, Rank: -1}

// severityGroups decides which categories carry per-entry severity labels:
// fatalities group exactly one code here, so only injuries and others do.
var severityGroups = domain.GroupInjuryCodes(injuryCodes)

// unknownAgeCode: FARS encodes unknown/unreported ages as values >= 900.
const unknownAgeCode = 900

func init() {
	jurisdiction.Register(&FARS{})
}

// FARS is the national jurisdiction. Type conversion coerces every column;
// derivation and row filtering are the Base no-ops.
type FARS struct {
	jurisdiction.Base
}

func (f *FARS) Name() string { return "fars" }

func (f *FARS) Tables() domain.TableSet {
	return domain.TableSet{
		KeyColumns: []string{"CASEYEAR", "STATE", "ST_CASE"},
		Crash: domain.Table{
			Name:    "Accident",
			Columns: []string{"LATITUDE", "LONGITUD", "FATALS"},
			Source:  sourceFor("Accident"),
			Format:  domain.FormatCrashAPI,
		},
		Children: []domain.Table{
			{
				Name:     tablePerson,
				Columns:  []string{"PER_TYP", "PER_TYPNAME", "INJ_SEV", "INJ_SEVNAME", "AGE"},
				Source:   sourceFor(tablePerson),
				Format:   domain.FormatCrashAPI,
				Collapse: domain.CollapseList,
			},
			{
				Name:     tableVehicle,
				Source:   sourceFor(tableVehicle),
				Format:   domain.FormatCrashAPI,
				Collapse: domain.CollapseCount,
			},
		},
	}
}

func sourceFor(table string) string {
	return strings.ReplaceAll(dataURL, "{table}", table)
}

func (f *FARS) Description() domain.DataDescription {
	return domain.DataDescription{
		Title: "Traffic fatalities in the United States",
		Source: `United States National Highway Traffic Safety Administration, ` +
			`<a href="https://www.nhtsa.gov/research-data/fatality-analysis-reporting-system-fars">Fatality Analysis ` +
			`Reporting System</a>. Tracks crashes with fatalities only.`,
		Slug: "fars",
		Links: domain.RecordLinks{
			IDSplitter: "-",
			CrashFormat: "https://crashviewer.nhtsa.dot.gov/CrashAPI/crashes/GetCaseDetails" +
				"?caseYear={}&state={}&stateCase={}&format=xml",
		},
	}
}

func (f *FARS) Columns() domain.ColumnNames {
	return domain.ColumnNames{Latitude: "LATITUDE", Longitude: "LONGITUD", Year: "CASEYEAR"}
}

func (f *FARS) Partitions() []string {
	return []string{"2010", "2011", "2012", "2013", "2014", "2015", "2016", "2017", "2018"}
}

func (f *FARS) Interval() int { return 2 }

func (f *FARS) ConvertTypes(rows []domain.Row, _ domain.Table) {
	domain.CoerceAllNumeric(rows)
}

func (f *FARS) Classifier() domain.RowClassifier { return classifier{} }

type classifier struct{}

func (classifier) ItemID(row domain.JoinedCrashRow) string {
	return row.JoinKey("-")
}

// Category scans the fatally injured people and returns the highest-priority
// harm category among them. Crashes with no fatal person records (or no
// person data at all) classify as other.
func (classifier) Category(row domain.JoinedCrashRow) domain.CrashCategory {
	best := -1
	for _, p := range row.List(tablePerson) {
		if injuryOf(p).Category != domain.InjuryCategoryFatality {
			continue
		}
		if prio := priorityOf(roleOf(p).Category); prio > best {
			best = prio
		}
	}
	if best < 0 {
		return domain.CategoryOther
	}
	return categoryPriorities[best]
}

// NumFatalities trusts the crash-level FATALS count when it is numeric and
// falls back to counting fatal person records otherwise.
func (classifier) NumFatalities(row domain.JoinedCrashRow) int {
	if n, ok := domain.AsInt(row.Fields["FATALS"]); ok {
		return n
	}
	count := 0
	for _, p := range row.List(tablePerson) {
		if code, ok := domain.AsInt(p["INJ_SEV"]); ok && code == fatalInjuryCode {
			count++
		}
	}
	return count
}

func (classifier) NumVehicles(row domain.JoinedCrashRow) int {
	return row.Count(tableVehicle)
}

func (classifier) Injuries(row domain.JoinedCrashRow) domain.Injuries {
	injuries := make(domain.Injuries)
	for _, p := range row.List(tablePerson) {
		code := injuryOf(p)
		detail := domain.InjuryDetail{Person: roleOf(p).Name, Age: ageOf(p)}
		if severityGroups.Labeled(code.Category) {
			detail.Severity = code.Name
		}
		injuries[code.Category] = append(injuries[code.Category], detail)
	}
	return injuries
}

func roleOf(p domain.Row) personType {
	if code, ok := domain.AsInt(p["PER_TYP"]); ok {
		if pt, ok := personTypes[code]; ok {
			return pt
		}
	}
	return unknownPersonType
}

func injuryOf(p domain.Row) domain.InjuryCode {
	if code, ok := domain.AsInt(p["INJ_SEV"]); ok {
		if ic, ok := injuryCodes[code]; ok {
			return ic
		}
	}
	return unknownInjuryCode
}

func ageOf(p domain.Row) domain.Age {
	if age, ok := domain.AsInt(p["AGE"]); ok && age < unknownAgeCode {
		return domain.KnownAge(age)
	}
	return domain.UnknownAge
}

func priorityOf(cat domain.CrashCategory) int {
	for i, c := range categoryPriorities {
		if c == cat {
			return i
		}
	}
	return -1
}
