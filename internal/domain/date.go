package domain

import (
	"strings"
	"time"
)

// placeholderDate is the "date not recorded" sentinel found in several state
// extracts, in whatever format it was exported.
var placeholderDate = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

// dateLayouts covers the formats observed across jurisdiction extracts:
// compact numeric (20160815), abbreviated-month (15-Aug-16), US slashed
// (8/15/2016), and the ISO timestamps of the DC open-data portal.
var dateLayouts = []string{
	"20060102",
	"2-Jan-06",
	"1/2/2006",
	"2006/01/02 15:04:05+00",
	"2006-01-02T15:04:05Z",
	"2006-01-02",
}

// ParseDate parses heterogeneous date text best-effort. The second return is
// false for missing values, known placeholders, and anything unparseable;
// callers fall back to the unknown sentinel, never an error.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "nan") || s == "1/1/1900" {
		return time.Time{}, false
	}
	// Stringified floats and exported timestamps carry junk suffixes.
	s = strings.TrimSuffix(s, ".0")
	s = strings.TrimSuffix(s, " 00:00:00")

	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if t.Month() == placeholderDate.Month() && t.Day() == placeholderDate.Day() && t.Year() == placeholderDate.Year() {
			return time.Time{}, false
		}
		return t, true
	}
	return time.Time{}, false
}

// AgeAt computes a person's age in years at the crash date from two date
// strings. Either date failing to parse yields the unknown sentinel. The year
// difference is decremented when the crash's (month, day) falls before the
// birthday's (month, day).
func AgeAt(birthDate, crashDate string) Age {
	birth, ok := ParseDate(birthDate)
	if !ok {
		return UnknownAge
	}
	crash, ok := ParseDate(crashDate)
	if !ok {
		return UnknownAge
	}

	years := crash.Year() - birth.Year()
	if crash.Month() < birth.Month() || (crash.Month() == birth.Month() && crash.Day() < birth.Day()) {
		years--
	}
	return KnownAge(years)
}
