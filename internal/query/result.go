// Package query executes generated queries against spreadsheet-derived
// tables. Two interchangeable strategies share one contract: an in-memory
// tabular pipeline for single-sheet questions and SQL against an embedded
// engine for multi-sheet joins.
package query

// maxResultRows bounds the tabular payload returned to the oracle and the
// caller. Larger results are truncated with the flag set.
const maxResultRows = 50

// Result is the tabular payload of one query execution: ordered rows of
// named columns, the pre-truncation row count, and a truncation flag.
type Result struct {
	Columns   []string   `json:"columns"`
	Rows      [][]string `json:"rows"`
	RowCount  int        `json:"row_count"`
	Truncated bool       `json:"truncated,omitempty"`
}

// truncate applies the preview bound to a fully-materialized result.
func (r *Result) truncate() {
	r.RowCount = len(r.Rows)
	if len(r.Rows) > maxResultRows {
		r.Rows = r.Rows[:maxResultRows]
		r.Truncated = true
	}
}
