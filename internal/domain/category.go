package domain

import (
	"encoding/json"
	"fmt"
)

// CrashCategory is the coarse harm classification of a crash, named after the
// most vulnerable severely affected party.
type CrashCategory string

const (
	CategoryCar   CrashCategory = "car"
	CategoryBike  CrashCategory = "bike"
	CategoryPed   CrashCategory = "ped"
	CategoryOther CrashCategory = "other"
)

// InjuryCategory is the severity tier a person's outcome is grouped under in
// the exported detail records.
type InjuryCategory string

const (
	InjuryCategoryInjury   InjuryCategory = "injuries"
	InjuryCategoryFatality InjuryCategory = "fatalities"
	InjuryCategoryOther    InjuryCategory = "others"
)

// PersonRole is a closed variant describing a person's role in a crash:
// its vulnerability rank (used to break severity ties), display description,
// and the harm category a crash is assigned when this role is the most
// affected party.
type PersonRole struct {
	Vulnerability int
	Description   string
	Category      CrashCategory
}

var (
	RolePedestrian = PersonRole{Vulnerability: 100, Description: "Pedestrian", Category: CategoryPed}
	RoleBicyclist  = PersonRole{Vulnerability: 75, Description: "Bicyclist", Category: CategoryBike}
	RoleOccupant   = PersonRole{Vulnerability: 50, Description: "Occupant", Category: CategoryCar}
	RoleDriver     = PersonRole{Vulnerability: 0, Description: "Driver", Category: CategoryCar}
	RoleOther      = PersonRole{Vulnerability: -5, Description: "Other", Category: CategoryOther}
)

// InjuryClass is a closed variant describing an injury outcome: its severity
// rank (fatality outranks injury outranks none) and the category its detail
// entries are grouped under.
type InjuryClass struct {
	Severity    int
	Category    InjuryCategory
	Description string
}

var (
	InjuryNone     = InjuryClass{Severity: 0, Category: InjuryCategoryOther, Description: "No injury"}
	InjuryNonFatal = InjuryClass{Severity: 50, Category: InjuryCategoryInjury, Description: "Injury"}
	InjuryFatal    = InjuryClass{Severity: 100, Category: InjuryCategoryFatality, Description: "Fatality"}
	InjuryUnknown  = InjuryClass{Severity: 0, Category: InjuryCategoryOther, Description: "Other"}
)

// InjuryCode describes one raw injury code of a jurisdiction's coding table:
// the source's own name for it, the category it groups under, and its rank
// within the source's scale.
type InjuryCode struct {
	Name     string
	Category InjuryCategory
	Rank     int
}

// SeverityGroups records, per category, how many distinct injury codes a
// jurisdiction's coding table maps onto it. Built once at load time; detail
// entries carry a "severity" label only for categories that group more than
// one code, because a single-code category's label would be redundant.
type SeverityGroups map[InjuryCategory]int

// GroupInjuryCodes inverts a jurisdiction's injury-code table by category.
func GroupInjuryCodes[K comparable](codes map[K]InjuryCode) SeverityGroups {
	groups := make(SeverityGroups)
	for _, c := range codes {
		groups[c.Category]++
	}
	return groups
}

// Labeled reports whether detail entries in the given category carry a
// severity label for this coding table.
func (g SeverityGroups) Labeled(cat InjuryCategory) bool {
	return g[cat] > 1
}

// Age is a person's age in years, or the "unknown" sentinel when a birth or
// crash date was missing or unparseable. Serializes as an integer or the
// string "unknown".
type Age struct {
	Known bool
	Years int
}

// UnknownAge is the sentinel emitted when age cannot be computed.
var UnknownAge = Age{}

// KnownAge wraps an age in years.
func KnownAge(years int) Age {
	return Age{Known: true, Years: years}
}

func (a Age) MarshalJSON() ([]byte, error) {
	if !a.Known {
		return []byte(`"unknown"`), nil
	}
	return json.Marshal(a.Years)
}

func (a *Age) UnmarshalJSON(data []byte) error {
	var years int
	if err := json.Unmarshal(data, &years); err == nil {
		*a = KnownAge(years)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil || s != "unknown" {
		return fmt.Errorf("invalid age %q", data)
	}
	*a = UnknownAge
	return nil
}

// InjuryDetail is one person's entry in the exported injury groupings.
// Severity is present only when the jurisdiction's coding table groups more
// than one distinct code under the entry's category; see SeverityGroups.
type InjuryDetail struct {
	Person   string `json:"person"`
	Age      Age    `json:"age"`
	Severity string `json:"severity,omitempty"`
}

// Injuries groups every person of a crash by injury category.
type Injuries map[InjuryCategory][]InjuryDetail
