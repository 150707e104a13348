package query

import (
	"github.com/ChamsBouzaiene/tally/internal/engine"
	"github.com/ChamsBouzaiene/tally/internal/workbook"
)

// Executor runs generated queries against spreadsheet files, loading each
// file at most once per on-disk version through its cache.
type Executor struct {
	cache *Cache
}

// NewExecutor returns an executor backed by a fresh cache.
func NewExecutor() *Executor {
	return &Executor{cache: NewCache()}
}

// Cache exposes the underlying workbook cache.
func (e *Executor) Cache() *Cache {
	return e.cache
}

// Preview returns the structural snapshot of a file, or of one sheet when
// sheet is non-empty.
func (e *Executor) Preview(path, sheet string) (*workbook.PreviewInfo, error) {
	entry, err := e.cache.acquire(path)
	if err != nil {
		return nil, err
	}
	sheets := entry.sheets
	if sheet != "" {
		s, err := pickSheet(path, sheets, sheet)
		if err != nil {
			return nil, err
		}
		sheets = []workbook.Sheet{*s}
	}
	return workbook.Snapshot(path, sheets), nil
}

// Tabular evaluates a pipeline expression against one sheet. An empty sheet
// name selects the first sheet of the workbook.
func (e *Executor) Tabular(path, expr, sheet string) (*Result, error) {
	entry, err := e.cache.acquire(path)
	if err != nil {
		return nil, err
	}
	var s *workbook.Sheet
	if sheet == "" {
		s = &entry.sheets[0]
	} else {
		if s, err = pickSheet(path, entry.sheets, sheet); err != nil {
			return nil, err
		}
	}
	return RunPipeline(NewFrame(*s), expr)
}

// SQL runs a query against the file's registered database, where every
// sheet is a table under its sanitized name.
func (e *Executor) SQL(path, query string) (*Result, error) {
	entry, err := e.cache.acquire(path)
	if err != nil {
		return nil, err
	}
	return RunSQL(entry.db, query)
}

// Clear evicts cached state for one file, or for all files when path is
// empty.
func (e *Executor) Clear(path string) {
	e.cache.Clear(path)
}

func pickSheet(path string, sheets []workbook.Sheet, name string) (*workbook.Sheet, error) {
	for i := range sheets {
		if sheets[i].Name == name {
			return &sheets[i], nil
		}
	}
	return nil, engine.Errorf(engine.KindUnreadableFormat, "sheet %q not found in %s", name, path)
}
