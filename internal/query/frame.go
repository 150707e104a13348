package query

import (
	"strings"

	"github.com/ChamsBouzaiene/tally/internal/clean"
	"github.com/ChamsBouzaiene/tally/internal/workbook"
)

// Frame is one sheet materialized in memory with every cell cleaned.
type Frame struct {
	Columns []string
	Cells   [][]clean.Value
}

// NewFrame cleans a sheet into a Frame. Cleaning here and in SQL
// registration goes through the same clean.Cell rules, which is what keeps
// the two execution strategies consistent.
func NewFrame(s workbook.Sheet) *Frame {
	f := &Frame{Columns: s.Columns}
	f.Cells = make([][]clean.Value, len(s.Rows))
	for ri, row := range s.Rows {
		cleaned := make([]clean.Value, len(row))
		for ci, raw := range row {
			cleaned[ci] = clean.Cell(raw)
		}
		f.Cells[ri] = cleaned
	}
	return f
}

// columnIndex resolves a column name, case-sensitively first, then
// case-insensitively as a convenience for oracle-generated queries.
func (f *Frame) columnIndex(name string) (int, bool) {
	for i, c := range f.Columns {
		if c == name {
			return i, true
		}
	}
	for i, c := range f.Columns {
		if strings.EqualFold(c, name) {
			return i, true
		}
	}
	return 0, false
}
