package domain

// RowClassifier derives web-facing annotations from a joined crash row.
// One implementation exists per jurisdiction; all of them are pure functions
// of the row and tolerate missing child data by falling back to documented
// defaults (CategoryOther, zero counts, empty groupings).
type RowClassifier interface {
	// ItemID renders the crash's stable identifier, e.g. "2016-24-240052".
	ItemID(row JoinedCrashRow) string

	// Category classifies the crash by its most affected party.
	// Always one of the four CrashCategory values, never empty.
	Category(row JoinedCrashRow) CrashCategory

	// NumFatalities counts people whose injury code maps to the fatality
	// tier, or trusts a precomputed crash-level count where one exists.
	NumFatalities(row JoinedCrashRow) int

	// NumVehicles returns the collapsed vehicle count, zero when absent.
	NumVehicles(row JoinedCrashRow) int

	// Injuries groups every person record by injury category.
	Injuries(row JoinedCrashRow) Injuries
}

// MostAffected finds the person ranking highest by (injury severity,
// vulnerability): fatality outranks injury outranks none, and among people
// tied at the maximum severity the more vulnerable role wins, so a crash
// killing a pedestrian and a driver classifies as a pedestrian crash.
// Returns false when people is empty.
func MostAffected(people []Row, injury func(Row) InjuryClass, role func(Row) PersonRole) (PersonRole, bool) {
	if len(people) == 0 {
		return PersonRole{}, false
	}

	best := RoleOther
	bestInjury := InjuryClass{Severity: -1}
	for _, p := range people {
		inj, r := injury(p), role(p)
		if inj.Severity > bestInjury.Severity ||
			(inj.Severity == bestInjury.Severity && r.Vulnerability > best.Vulnerability) {
			best, bestInjury = r, inj
		}
	}
	return best, true
}
