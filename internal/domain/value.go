package domain

import (
	"math"
	"strconv"
	"strings"
)

// CoerceNumeric converts a raw text value to float64 when it parses as a
// number and returns it unchanged otherwise. Unparseable values are retained
// as text rather than dropped: downstream consumers must tolerate mixed types
// in nominally numeric columns.
func CoerceNumeric(s string) any {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return s
	}
	if v, err := strconv.ParseFloat(trimmed, 64); err == nil && isFinite(v) {
		return v
	}
	return s
}

// isFinite excludes NaN and the infinities: "nan" cells stay text so every
// coerced value survives a JSON snapshot round-trip.
func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// CoerceNumericColumns applies CoerceNumeric to the named columns in place.
func CoerceNumericColumns(rows []Row, columns ...string) {
	for _, row := range rows {
		for _, col := range columns {
			if s, ok := row[col].(string); ok {
				row[col] = CoerceNumeric(s)
			}
		}
	}
}

// CoerceAllNumeric applies CoerceNumeric to every column in place.
func CoerceAllNumeric(rows []Row) {
	for _, row := range rows {
		for col, v := range row {
			if s, ok := v.(string); ok {
				row[col] = CoerceNumeric(s)
			}
		}
	}
}

// AsFloat extracts a finite numeric value, parsing text as a fallback.
func AsFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, isFinite(x)
	case int:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil && isFinite(f)
	default:
		return 0, false
	}
}

// AsInt extracts an integral value. Fractional floats do not qualify.
func AsInt(v any) (int, bool) {
	f, ok := AsFloat(v)
	if !ok || math.IsNaN(f) || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

// IsMissing reports whether a field value carries no data: absent, nil, or
// blank/"nan" text. Mirrors how missing cells surface in CSV extracts.
func IsMissing(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		t := strings.TrimSpace(s)
		return t == "" || strings.EqualFold(t, "nan")
	}
	if f, ok := v.(float64); ok {
		return math.IsNaN(f)
	}
	return false
}

// FormatValue renders a field value canonically for ids and JSON map keys:
// whole-number floats print without a decimal point so a key of 2016.0
// renders as "2016" on every platform.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	default:
		return ""
	}
}
