package dc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/crash-data-pipeline/internal/domain"
)

func person(personType, fatal, major, minor string, age any) domain.Row {
	return domain.Row{
		"PERSONTYPE": personType, "FATAL": fatal, "MAJORINJURY": major, "MINORINJURY": minor, "AGE": age,
	}
}

func joined(people ...domain.Row) domain.JoinedCrashRow {
	return domain.JoinedCrashRow{
		Key:    []string{"25123456"},
		Fields: domain.Row{"TOTAL_VEHICLES": 2.0},
		Lists:  map[string][]domain.Row{tableDetail: people},
	}
}

func TestDeriveColumns(t *testing.T) {
	d := &DC{}
	crash := d.Tables().Crash

	t.Run("crash date year wins", func(t *testing.T) {
		rows := []domain.Row{{
			"FROMDATE":   "2017/06/15 14:30:00+00",
			"REPORTDATE": "2018/01/02 09:00:00+00",
		}}
		d.DeriveColumns(rows, crash)
		assert.Equal(t, 2017.0, rows[0]["YEAR"])
	})

	t.Run("placeholder crash date defers to report date", func(t *testing.T) {
		rows := []domain.Row{{
			"FROMDATE":   "1900/01/01 00:00:00+00",
			"REPORTDATE": "2018/01/02 09:00:00+00",
		}}
		d.DeriveColumns(rows, crash)
		assert.Equal(t, 2018.0, rows[0]["YEAR"])
	})

	t.Run("neither date parseable leaves year unset", func(t *testing.T) {
		rows := []domain.Row{{"FROMDATE": "", "REPORTDATE": "nan"}}
		d.DeriveColumns(rows, crash)
		assert.True(t, domain.IsMissing(rows[0]["YEAR"]))
	})

	t.Run("detail table is untouched", func(t *testing.T) {
		rows := []domain.Row{{"FROMDATE": "2017/06/15 14:30:00+00"}}
		d.DeriveColumns(rows, d.Tables().Children[0])
		assert.Nil(t, rows[0]["YEAR"])
	})
}

func TestFilterRows(t *testing.T) {
	d := &DC{}
	crash := d.Tables().Crash

	base := func() domain.Row {
		return domain.Row{
			"MAJORINJURIES_DRIVER": 1.0,
			"LATITUDE":             38.9,
			"YEAR":                 2017.0,
		}
	}

	t.Run("injury crash with coordinates and year is kept", func(t *testing.T) {
		kept := d.FilterRows([]domain.Row{base()}, crash)
		assert.Len(t, kept, 1)
	})

	t.Run("no injuries drops the row", func(t *testing.T) {
		row := base()
		row["MAJORINJURIES_DRIVER"] = 0.0
		kept := d.FilterRows([]domain.Row{row}, crash)
		assert.Empty(t, kept)
	})

	t.Run("missing latitude drops the row", func(t *testing.T) {
		row := base()
		row["LATITUDE"] = ""
		kept := d.FilterRows([]domain.Row{row}, crash)
		assert.Empty(t, kept)
	})

	t.Run("missing year drops the row", func(t *testing.T) {
		row := base()
		delete(row, "YEAR")
		kept := d.FilterRows([]domain.Row{row}, crash)
		assert.Empty(t, kept)
	})

	t.Run("detail rows pass through unfiltered", func(t *testing.T) {
		rows := []domain.Row{{"PERSONTYPE": "Witness"}}
		kept := d.FilterRows(rows, d.Tables().Children[0])
		assert.Len(t, kept, 1)
	})
}

func TestClassifierCategory(t *testing.T) {
	t.Run("most affected person decides", func(t *testing.T) {
		row := joined(
			person("Driver", "N", "N", "Y", 40.0),
			person("Bicyclist", "N", "Y", "N", 25.0),
		)
		assert.Equal(t, domain.CategoryBike, classifier{}.Category(row))
	})

	t.Run("vulnerability breaks severity ties", func(t *testing.T) {
		row := joined(
			person("Driver", "Y", "N", "N", 40.0),
			person("Pedestrian", "Y", "N", "N", 25.0),
		)
		assert.Equal(t, domain.CategoryPed, classifier{}.Category(row))
	})

	t.Run("truncated person types map to roles", func(t *testing.T) {
		row := joined(person("Occupant o", "N", "Y", "N", 8.0))
		assert.Equal(t, domain.CategoryCar, classifier{}.Category(row))
	})

	t.Run("no detail rows classify as other", func(t *testing.T) {
		assert.Equal(t, domain.CategoryOther, classifier{}.Category(joined()))
	})
}

func TestClassifierNumFatalities(t *testing.T) {
	row := joined()
	row.Fields["FATAL_DRIVER"] = 1.0
	row.Fields["FATALPASSENGER"] = 1.0
	row.Fields["FATAL_PEDESTRIAN"] = 0.0
	assert.Equal(t, 2, classifier{}.NumFatalities(row))
}

func TestClassifierNumVehicles(t *testing.T) {
	t.Run("vehicle count from the crash table", func(t *testing.T) {
		assert.Equal(t, 2, classifier{}.NumVehicles(joined()))
	})

	t.Run("missing count is zero", func(t *testing.T) {
		row := joined()
		row.Fields["TOTAL_VEHICLES"] = nil
		assert.Equal(t, 0, classifier{}.NumVehicles(row))
	})
}

func TestClassifierInjuries(t *testing.T) {
	row := joined(
		person("Pedestrian", "Y", "N", "N", 30.0),
		person("Driver", "N", "Y", "N", 45.0),
		person("Passenger", "N", "N", "N", ""),
	)
	injuries := classifier{}.Injuries(row)

	require.Len(t, injuries[domain.InjuryCategoryFatality], 1)
	require.Len(t, injuries[domain.InjuryCategoryInjury], 1)
	require.Len(t, injuries[domain.InjuryCategoryOther], 1)

	fatality := injuries[domain.InjuryCategoryFatality][0]
	assert.Equal(t, "Pedestrian", fatality.Person)
	assert.Equal(t, domain.KnownAge(30), fatality.Age)
	assert.Empty(t, fatality.Severity)

	assert.Equal(t, domain.UnknownAge, injuries[domain.InjuryCategoryOther][0].Age)
}

func TestTables(t *testing.T) {
	d := &DC{}
	ts := d.Tables()

	assert.Equal(t, []string{"CRIMEID"}, ts.KeyColumns)
	assert.Contains(t, ts.Crash.Columns, "MAJORINJURIES_BICYCLIST")
	assert.Contains(t, ts.Crash.Columns, "FATALPASSENGER")
	require.Len(t, ts.Children, 1)
	assert.Equal(t, domain.CollapseList, ts.Children[0].Collapse)
}
