package workbook

import (
	"github.com/ChamsBouzaiene/tally/internal/clean"
)

// ColumnType is the inferred semantic type of a column.
type ColumnType string

const (
	TypeNumber ColumnType = "number"
	TypeText   ColumnType = "text"
	TypeDate   ColumnType = "date"
	TypeBool   ColumnType = "bool"
)

// inferSampleSize caps how many non-null cells are examined per column.
const inferSampleSize = 32

// InferColumnType samples cell values and picks number/date/bool only when
// every sampled non-null cell cleans to that type; mixed or empty columns
// are text.
func InferColumnType(values []string) ColumnType {
	var seen ColumnType
	sampled := 0

	for _, raw := range values {
		if sampled >= inferSampleSize {
			break
		}
		v := clean.Cell(raw)
		if v.Kind == clean.KindNull {
			continue
		}
		sampled++

		var t ColumnType
		switch v.Kind {
		case clean.KindNumber:
			t = TypeNumber
		case clean.KindDate:
			t = TypeDate
		case clean.KindBool:
			t = TypeBool
		default:
			return TypeText
		}

		if seen == "" {
			seen = t
		} else if seen != t {
			return TypeText
		}
	}

	if seen == "" {
		return TypeText
	}
	return seen
}
