// Package maryland implements the Maryland statewide jurisdiction. Source
// data is the Maryland State Police quarterly CSV extracts (crash, person,
// vehicle), downloaded manually and read from the jurisdiction's data
// directory as one full extract.
package maryland

import (
	"strings"

	"github.com/couchcryptid/crash-data-pipeline/internal/domain"
	"github.com/couchcryptid/crash-data-pipeline/internal/jurisdiction"
)

const (
	tableCrash   = "Crash"
	tablePerson  = "Person"
	tableVehicle = "Vehicle"
)

// harmEvents maps the crash table's first harm-event description onto a
// category. An explicit harm event takes precedence over the per-person
// computation; everything not listed is a motor-vehicle crash.
var harmEvents = map[string]domain.CrashCategory{
	"Pedestrian": domain.CategoryPed,
	"Bicycle":    domain.CategoryBike,
}

// injuryCodes is the INJ_SEVER_CODE coding table. Code 5 is the fatal tier.
var injuryCodes = map[int]domain.InjuryClass{
	1: domain.InjuryNone,     // No Injury
	2: domain.InjuryNonFatal, // Non-incapacitating Injury
	3: domain.InjuryNonFatal, // Possible Incapacitating Injury
	4: domain.InjuryNonFatal, // Incapacitating/Disabled Injury
	5: domain.InjuryFatal,    // Fatal Injury
}

var personTypes = map[string]domain.PersonRole{
	"D": domain.RoleDriver,
	"O": domain.RoleOccupant,
	"P": domain.RolePedestrian,
}

func init() {
	jurisdiction.Register(&Maryland{})
}

// Maryland is the statewide jurisdiction.
type Maryland struct {
	jurisdiction.Base
}

func (m *Maryland) Name() string { return "maryland" }

func (m *Maryland) Tables() domain.TableSet {
	return domain.TableSet{
		KeyColumns: []string{"REPORT_NO"},
		Crash: domain.Table{
			Name: tableCrash,
			Columns: []string{
				"REPORT_TYPE", "HARM_EVENT_DESC1", "HARM_EVENT_DESC2",
				"LATITUDE", "LONGITUDE", "YEAR", "ACC_DATE",
			},
			Source:      "Maryland_Statewide_Vehicle_Crashes.csv",
			Windows1252: true,
		},
		Children: []domain.Table{
			{
				Name:        tablePerson,
				Columns:     []string{"PERSON_TYPE", "INJ_SEVER_CODE", "DATE_OF_BIRTH"},
				Source:      "Maryland_Statewide_Vehicle_Crashes_-_Person_Details__Anonymized_.csv",
				Collapse:    domain.CollapseList,
				Windows1252: true,
			},
			{
				Name:        tableVehicle,
				Source:      "Maryland_Statewide_Vehicle_Crashes_-_Vehicle_Details.csv",
				Collapse:    domain.CollapseCount,
				Windows1252: true,
			},
		},
	}
}

func (m *Maryland) Description() domain.DataDescription {
	return domain.DataDescription{
		Title: "Crashes with Injuries or Fatalities in Maryland",
		Source: `Maryland State Police <a href="https://opendata.maryland.gov/Public-Safety/Maryland-Statewide-Vehicle` +
			`-Crashes/65du-s3qu">Maryland Statewide Vehicle Crashes</a>. Data is updated quarterly.`,
		Slug: "maryland",
	}
}

func (m *Maryland) Columns() domain.ColumnNames {
	return domain.ColumnNames{Latitude: "LATITUDE", Longitude: "LONGITUDE", Year: "YEAR"}
}

func (m *Maryland) Partitions() []string { return []string{"all"} }

func (m *Maryland) Interval() int { return 2 }

// ConvertTypes coerces coordinates, year, and injury codes. Date columns stay
// text: ACC_DATE and DATE_OF_BIRTH arrive in several formats and are parsed
// lazily during age computation.
func (m *Maryland) ConvertTypes(rows []domain.Row, table domain.Table) {
	switch table.Name {
	case tableCrash:
		domain.CoerceNumericColumns(rows, "LATITUDE", "LONGITUDE", "YEAR")
	case tablePerson:
		domain.CoerceNumericColumns(rows, "INJ_SEVER_CODE")
	}
}

// FilterRows keeps only crashes reported as fatal or injury crashes.
func (m *Maryland) FilterRows(rows []domain.Row, table domain.Table) []domain.Row {
	if table.Name != tableCrash {
		return rows
	}
	kept := rows[:0]
	for _, row := range rows {
		t, _ := row["REPORT_TYPE"].(string)
		if t == "Fatal Crash" || t == "Injury Crash" {
			kept = append(kept, row)
		}
	}
	return kept
}

func (m *Maryland) Classifier() domain.RowClassifier { return classifier{} }

type classifier struct{}

func (classifier) ItemID(row domain.JoinedCrashRow) string {
	return row.JoinKey("")
}

func (classifier) Category(row domain.JoinedCrashRow) domain.CrashCategory {
	desc, _ := row.Fields["HARM_EVENT_DESC1"].(string)
	if cat, ok := harmEvents[strings.TrimSpace(desc)]; ok {
		return cat
	}
	return domain.CategoryCar
}

func (classifier) NumFatalities(row domain.JoinedCrashRow) int {
	count := 0
	for _, p := range row.List(tablePerson) {
		if injuryOf(p) == domain.InjuryFatal {
			count++
		}
	}
	return count
}

func (classifier) NumVehicles(row domain.JoinedCrashRow) int {
	return row.Count(tableVehicle)
}

func (classifier) Injuries(row domain.JoinedCrashRow) domain.Injuries {
	crashDate, _ := row.Fields["ACC_DATE"].(string)
	injuries := make(domain.Injuries)
	for _, p := range row.List(tablePerson) {
		birthDate, _ := p["DATE_OF_BIRTH"].(string)
		detail := domain.InjuryDetail{
			Person: roleOf(p).Description,
			Age:    domain.AgeAt(birthDate, crashDate),
		}
		cat := injuryOf(p).Category
		injuries[cat] = append(injuries[cat], detail)
	}
	return injuries
}

func injuryOf(p domain.Row) domain.InjuryClass {
	if code, ok := domain.AsInt(p["INJ_SEVER_CODE"]); ok {
		if class, ok := injuryCodes[code]; ok {
			return class
		}
	}
	return domain.InjuryUnknown
}

func roleOf(p domain.Row) domain.PersonRole {
	s, _ := p["PERSON_TYPE"].(string)
	if role, ok := personTypes[strings.TrimSpace(s)]; ok {
		return role
	}
	return domain.RoleOther
}
