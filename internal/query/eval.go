package query

import (
	"sort"
	"strings"

	"github.com/ChamsBouzaiene/tally/internal/clean"
	"github.com/ChamsBouzaiene/tally/internal/engine"
)

// RunPipeline parses a pipeline expression and evaluates it against a frame.
// An aggregate stage ends the pipeline: any later stage is rejected at
// evaluation time so the oracle gets a precise diagnostic.
func RunPipeline(f *Frame, expr string) (*Result, error) {
	stages, err := parsePipeline(expr)
	if err != nil {
		return nil, err
	}

	rows := make([]int, len(f.Cells))
	for i := range rows {
		rows[i] = i
	}
	cols := make([]int, len(f.Columns))
	for i := range cols {
		cols[i] = i
	}

	for si, s := range stages {
		switch st := s.(type) {
		case filterStage:
			idx, ok := f.columnIndex(st.Column)
			if !ok {
				return nil, engine.Errorf(engine.KindInvalidExpression, "unknown column %q in filter", st.Column)
			}
			var kept []int
			for _, ri := range rows {
				if matchFilter(f.Cells[ri][idx], st.Op, st.Value) {
					kept = append(kept, ri)
				}
			}
			rows = kept

		case selectStage:
			projected := make([]int, 0, len(st.Columns))
			for _, name := range st.Columns {
				idx, ok := f.columnIndex(name)
				if !ok {
					return nil, engine.Errorf(engine.KindInvalidExpression, "unknown column %q in select", name)
				}
				projected = append(projected, idx)
			}
			cols = projected

		case sortStage:
			idx, ok := f.columnIndex(st.Column)
			if !ok {
				return nil, engine.Errorf(engine.KindInvalidExpression, "unknown column %q in sort", st.Column)
			}
			sortRows(f, rows, idx, st.Desc)

		case aggStage:
			if si != len(stages)-1 {
				return nil, engine.Errorf(engine.KindInvalidExpression,
					"%s must be the final pipeline stage in %s", st.Fn, describeStages(stages))
			}
			return aggregate(f, rows, st)

		case limitStage:
			if st.N < len(rows) {
				rows = rows[:st.N]
			}
		}
	}

	return materialize(f, rows, cols), nil
}

// matchFilter applies one comparison to a cleaned cell. Null cells never
// match any comparison, not even != against a non-matching value.
func matchFilter(v clean.Value, op, operand string) bool {
	if v.Kind == clean.KindNull {
		return false
	}

	if op == "contains" {
		return strings.Contains(strings.ToLower(v.String()), strings.ToLower(operand))
	}

	// Numeric comparison when both sides are numbers, lexical otherwise.
	if v.Kind == clean.KindNumber {
		if n, ok := clean.Number(operand); ok {
			return compareNumbers(v.Number, n, op)
		}
	}
	return compareStrings(v.String(), operand, op)
}

func compareNumbers(a, b float64, op string) bool {
	switch op {
	case "==":
		return a == b
	case "!=":
		return a != b
	case ">":
		return a > b
	case ">=":
		return a >= b
	case "<":
		return a < b
	case "<=":
		return a <= b
	}
	return false
}

func compareStrings(a, b, op string) bool {
	switch op {
	case "==":
		return a == b
	case "!=":
		return a != b
	case ">":
		return a > b
	case ">=":
		return a >= b
	case "<":
		return a < b
	case "<=":
		return a <= b
	}
	return false
}

// sortRows orders row indexes by one column. Numbers order numerically,
// dates chronologically, everything else lexically; nulls always sort last
// regardless of direction. The sort is stable so ties keep sheet order.
func sortRows(f *Frame, rows []int, col int, desc bool) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := f.Cells[rows[i]][col], f.Cells[rows[j]][col]
		if a.Kind == clean.KindNull || b.Kind == clean.KindNull {
			return b.Kind == clean.KindNull && a.Kind != clean.KindNull
		}
		var less bool
		switch {
		case a.Kind == clean.KindNumber && b.Kind == clean.KindNumber:
			less = a.Number < b.Number
		case a.Kind == clean.KindDate && b.Kind == clean.KindDate:
			less = a.Date.Before(b.Date)
		default:
			less = a.String() < b.String()
		}
		if desc {
			return !less && !equalValue(a, b)
		}
		return less
	})
}

func equalValue(a, b clean.Value) bool {
	switch {
	case a.Kind == clean.KindNumber && b.Kind == clean.KindNumber:
		return a.Number == b.Number
	case a.Kind == clean.KindDate && b.Kind == clean.KindDate:
		return a.Date.Equal(b.Date)
	default:
		return a.String() == b.String()
	}
}

// aggregate folds the surviving rows into a single-row result. sum, avg,
// min and max skip null cells; count counts rows, null cells included.
func aggregate(f *Frame, rows []int, st aggStage) (*Result, error) {
	if st.Fn == "count" {
		r := &Result{Columns: []string{"count"}, Rows: [][]string{{clean.Value{Kind: clean.KindNumber, Number: float64(len(rows))}.String()}}}
		r.truncate()
		return r, nil
	}

	idx, ok := f.columnIndex(st.Column)
	if !ok {
		return nil, engine.Errorf(engine.KindInvalidExpression, "unknown column %q in %s", st.Column, st.Fn)
	}

	var (
		sum     float64
		n       int
		minimum clean.Value
		maximum clean.Value
	)
	for _, ri := range rows {
		v := f.Cells[ri][idx]
		if v.Kind == clean.KindNull {
			continue
		}
		if v.Kind != clean.KindNumber && (st.Fn == "sum" || st.Fn == "avg") {
			return nil, engine.Errorf(engine.KindInvalidExpression,
				"%s requires a numeric column, %q holds %s values", st.Fn, st.Column, v.Kind)
		}
		if n == 0 {
			minimum, maximum = v, v
		} else {
			if lessValue(v, minimum) {
				minimum = v
			}
			if lessValue(maximum, v) {
				maximum = v
			}
		}
		sum += v.Number
		n++
	}

	name := st.Fn + "(" + st.Column + ")"
	var out string
	switch st.Fn {
	case "sum":
		out = clean.Value{Kind: clean.KindNumber, Number: sum}.String()
	case "avg":
		if n == 0 {
			out = ""
		} else {
			out = clean.Value{Kind: clean.KindNumber, Number: sum / float64(n)}.String()
		}
	case "min":
		if n == 0 {
			out = ""
		} else {
			out = minimum.String()
		}
	case "max":
		if n == 0 {
			out = ""
		} else {
			out = maximum.String()
		}
	}

	r := &Result{Columns: []string{name}, Rows: [][]string{{out}}}
	r.truncate()
	return r, nil
}

func lessValue(a, b clean.Value) bool {
	switch {
	case a.Kind == clean.KindNumber && b.Kind == clean.KindNumber:
		return a.Number < b.Number
	case a.Kind == clean.KindDate && b.Kind == clean.KindDate:
		return a.Date.Before(b.Date)
	default:
		return a.String() < b.String()
	}
}

func materialize(f *Frame, rows, cols []int) *Result {
	r := &Result{Columns: make([]string, len(cols))}
	for i, ci := range cols {
		r.Columns[i] = f.Columns[ci]
	}
	r.Rows = make([][]string, 0, len(rows))
	for _, ri := range rows {
		out := make([]string, len(cols))
		for i, ci := range cols {
			out[i] = f.Cells[ri][ci].String()
		}
		r.Rows = append(r.Rows, out)
	}
	r.truncate()
	return r
}
