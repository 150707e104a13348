// Package workbook opens spreadsheet files and emits lightweight structural
// previews used to ground oracle prompts.
package workbook

import (
	"fmt"
	"log"
	"os"

	units "github.com/docker/go-units"
	"github.com/xuri/excelize/v2"

	"github.com/ChamsBouzaiene/tally/internal/engine"
)

// sampleRowCount is how many data rows a preview captures per sheet.
const sampleRowCount = 3

// ColumnInfo describes one column of a sheet.
type ColumnInfo struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// SheetInfo is the structural snapshot of one sheet. TableName is the
// sanitized identifier the sheet is registered under for SQL; Name keeps the
// display name for human-facing text.
type SheetInfo struct {
	Name       string              `json:"name"`
	TableName  string              `json:"table_name_sanitized"`
	Columns    []ColumnInfo        `json:"columns"`
	SampleRows []map[string]string `json:"sample_rows"`
	RowCount   int                 `json:"row_count"`
}

// PreviewInfo is the per-file structural snapshot.
type PreviewInfo struct {
	FileName string      `json:"file_name"`
	Sheets   []SheetInfo `json:"sheets"`
}

// FileKey identifies a file by path plus modification signature. A changed
// mtime yields a different key, so stale cache entries simply miss.
type FileKey struct {
	Path  string
	MTime int64
	Size  int64
}

// KeyFor stats the file and builds its identity key.
func KeyFor(path string) (FileKey, error) {
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileKey{}, engine.Errorf(engine.KindFileNotFound, "file %s not found", path)
		}
		return FileKey{}, engine.NewError(engine.KindFileNotFound, err)
	}
	return FileKey{Path: path, MTime: fi.ModTime().UnixNano(), Size: fi.Size()}, nil
}

// Sheet holds the full contents of one sheet: header plus raw data rows.
type Sheet struct {
	Name      string
	TableName string
	Columns   []string
	Rows      [][]string
}

// Load opens the workbook and reads every sheet (or a single one when sheet
// is non-empty). Sanitized table names must be unique within the file;
// collisions are rejected at load time so SQL registration can never alias
// two sheets to one table.
func Load(path string, sheet string) ([]Sheet, error) {
	if _, err := KeyFor(path); err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, engine.Errorf(engine.KindUnreadableFormat, "not a readable spreadsheet: %v", err)
	}
	defer f.Close()

	names := f.GetSheetList()
	if len(names) == 0 {
		return nil, engine.Errorf(engine.KindUnreadableFormat, "no sheets found in %s", path)
	}
	if sheet != "" {
		found := false
		for _, n := range names {
			if n == sheet {
				found = true
				break
			}
		}
		if !found {
			return nil, engine.Errorf(engine.KindUnreadableFormat, "sheet %q not found in %s", sheet, path)
		}
		names = []string{sheet}
	}

	seen := make(map[string]string, len(names))
	sheets := make([]Sheet, 0, len(names))
	for _, name := range names {
		table := SanitizeTableName(name)
		if prev, dup := seen[table]; dup {
			return nil, engine.Errorf(engine.KindUnreadableFormat,
				"sheets %q and %q both sanitize to table name %q", prev, name, table)
		}
		seen[table] = name

		rows, err := f.GetRows(name)
		if err != nil {
			return nil, engine.Errorf(engine.KindUnreadableFormat, "reading sheet %q: %v", name, err)
		}

		s := Sheet{Name: name, TableName: table}
		if len(rows) > 0 {
			header := padRow(rows[0], widest(rows))
			s.Columns = make([]string, len(header))
			for ci, h := range header {
				s.Columns[ci] = headerName(h, ci)
			}
			for _, r := range rows[1:] {
				s.Rows = append(s.Rows, padRow(r, len(s.Columns)))
			}
		}
		sheets = append(sheets, s)
	}

	if fi, err := os.Stat(path); err == nil {
		log.Printf("📖 loaded %s (%s, %d sheets)", path, units.HumanSize(float64(fi.Size())), len(sheets))
	}
	return sheets, nil
}

// Preview builds the structural snapshot: column names with inferred types
// and a handful of sample rows per sheet.
func Preview(path string, sheet string) (*PreviewInfo, error) {
	sheets, err := Load(path, sheet)
	if err != nil {
		return nil, err
	}
	return Snapshot(path, sheets), nil
}

// Snapshot builds the structural preview from already-loaded sheets.
func Snapshot(path string, sheets []Sheet) *PreviewInfo {
	info := &PreviewInfo{FileName: path}
	for _, s := range sheets {
		si := SheetInfo{
			Name:      s.Name,
			TableName: s.TableName,
			RowCount:  len(s.Rows),
		}
		for ci, col := range s.Columns {
			si.Columns = append(si.Columns, ColumnInfo{
				Name: col,
				Type: InferColumnType(column(s.Rows, ci)),
			})
		}
		for ri := 0; ri < len(s.Rows) && ri < sampleRowCount; ri++ {
			sample := make(map[string]string, len(s.Columns))
			for ci, col := range s.Columns {
				sample[col] = s.Rows[ri][ci]
			}
			si.SampleRows = append(si.SampleRows, sample)
		}
		info.Sheets = append(info.Sheets, si)
	}
	return info
}

// widest returns the widest row length, so ragged sheets get a rectangular
// shape.
func widest(rows [][]string) int {
	w := 0
	for _, r := range rows {
		if len(r) > w {
			w = len(r)
		}
	}
	return w
}

func padRow(row []string, width int) []string {
	if len(row) >= width {
		return row[:width]
	}
	out := make([]string, width)
	copy(out, row)
	return out
}

func column(rows [][]string, idx int) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		if idx < len(r) {
			out = append(out, r[idx])
		}
	}
	return out
}

// headerName returns a stable column name for unnamed header cells.
func headerName(raw string, idx int) string {
	if raw == "" {
		return fmt.Sprintf("column_%d", idx+1)
	}
	return raw
}
