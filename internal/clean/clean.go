// Package clean normalizes messy spreadsheet cell values into typed values.
// Both query strategies (tabular and SQL) feed columns through the same rules,
// so an aggregation over a cleaned column is identical in either mode.
package clean

import (
	"strconv"
	"strings"
	"time"
)

// Kind classifies the result of cleaning a single cell value.
type Kind string

const (
	KindNull   Kind = "null"
	KindNumber Kind = "number"
	KindDate   Kind = "date"
	KindBool   Kind = "bool"
	KindText   Kind = "text"
)

// Value is a cleaned cell value. Exactly one of the typed fields is
// meaningful, selected by Kind.
type Value struct {
	Kind   Kind
	Number float64
	Date   time.Time
	Bool   bool
	Text   string
}

// nullMarkers are the textual placeholders that mean "no value" in the kinds
// of business spreadsheets this tool targets. Matched after trimming,
// case-insensitively.
var nullMarkers = map[string]struct{}{
	"":     {},
	"-":    {},
	"n/a":  {},
	"na":   {},
	"null": {},
	"nan":  {},
	"none": {},
}

// dateLayouts are the recognized date formats, most specific first.
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"2006-01-02 15:04:05",
}

// Cell applies the cleaning rules, in order, to a raw cell value:
// trim, null markers, thousands-separated numerics, dates, booleans, text.
// It is a pure function: the same input always cleans to the same Value.
func Cell(raw string) Value {
	s := strings.TrimSpace(raw)

	if _, ok := nullMarkers[strings.ToLower(s)]; ok {
		return Value{Kind: KindNull}
	}

	if n, ok := Number(s); ok {
		return Value{Kind: KindNumber, Number: n}
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Value{Kind: KindDate, Date: t}
		}
	}

	switch strings.ToLower(s) {
	case "true", "yes":
		return Value{Kind: KindBool, Bool: true}
	case "false", "no":
		return Value{Kind: KindBool, Bool: false}
	}

	return Value{Kind: KindText, Text: s}
}

// Number parses s as a number, stripping comma thousands separators.
// Returns false if s is not numeric. Separator placement is validated:
// "1,234" parses, "1,23" does not.
func Number(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	if strings.Contains(s, ",") {
		if !validGrouping(s) {
			return 0, false
		}
		s = strings.ReplaceAll(s, ",", "")
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// validGrouping reports whether the comma-separated integer part of s uses
// proper 3-digit grouping (e.g. "4,665" or "1,234,567.89").
func validGrouping(s string) bool {
	body := strings.TrimLeft(s, "+-")
	intPart := body
	if i := strings.IndexByte(body, '.'); i >= 0 {
		intPart = body[:i]
		if strings.Contains(body[i:], ",") {
			return false
		}
	}
	groups := strings.Split(intPart, ",")
	if len(groups) < 2 {
		return false
	}
	if len(groups[0]) == 0 || len(groups[0]) > 3 {
		return false
	}
	for _, g := range groups {
		for _, r := range g {
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return false
		}
	}
	return true
}

// IsNull reports whether a raw value cleans to null.
func IsNull(raw string) bool {
	return Cell(raw).Kind == KindNull
}

// String renders a cleaned value back to a stable string form, used when a
// result row is serialized for the oracle.
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return ""
	case KindNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case KindDate:
		return v.Date.Format("2006-01-02")
	case KindBool:
		return strconv.FormatBool(v.Bool)
	default:
		return v.Text
	}
}
