package workbook

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/ChamsBouzaiene/tally/internal/engine"
)

func writeFixture(t *testing.T, sheets map[string][][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	first := true
	for name, rows := range sheets {
		if first {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				t.Fatalf("SetSheetName failed: %v", err)
			}
			first = false
		} else {
			if _, err := f.NewSheet(name); err != nil {
				t.Fatalf("NewSheet failed: %v", err)
			}
		}
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			if err != nil {
				t.Fatalf("CoordinatesToCellName failed: %v", err)
			}
			if err := f.SetSheetRow(name, cell, &row); err != nil {
				t.Fatalf("SetSheetRow failed: %v", err)
			}
		}
	}

	path := filepath.Join(t.TempDir(), "fixture.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs failed: %v", err)
	}
	return path
}

func TestLoadReadsSheets(t *testing.T) {
	path := writeFixture(t, map[string][][]any{
		"Sales Data": {
			{"Region", "Sales"},
			{"West", "4,665"},
			{"East", "1,200"},
		},
	})

	sheets, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(sheets) != 1 {
		t.Fatalf("got %d sheets, want 1", len(sheets))
	}
	s := sheets[0]
	if s.Name != "Sales Data" || s.TableName != "sales_data" {
		t.Errorf("sheet = %q/%q, want Sales Data/sales_data", s.Name, s.TableName)
	}
	if len(s.Columns) != 2 || s.Columns[0] != "Region" {
		t.Errorf("columns = %v", s.Columns)
	}
	if len(s.Rows) != 2 {
		t.Errorf("got %d data rows, want 2", len(s.Rows))
	}
}

func TestLoadSheetFilter(t *testing.T) {
	path := writeFixture(t, map[string][][]any{
		"First":  {{"A"}, {"1"}},
		"Second": {{"B"}, {"2"}},
	})

	sheets, err := Load(path, "Second")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(sheets) != 1 || sheets[0].Name != "Second" {
		t.Fatalf("sheets = %+v, want only Second", sheets)
	}

	if _, err := Load(path, "Missing"); err == nil {
		t.Error("expected error for unknown sheet")
	}
}

func TestLoadRejectsCollidingSheetNames(t *testing.T) {
	path := writeFixture(t, map[string][][]any{
		"Sales Data": {{"A"}, {"1"}},
		"Sales-Data": {{"B"}, {"2"}},
	})

	_, err := Load(path, "")
	if err == nil {
		t.Fatal("expected error for sheets that collide after sanitizing")
	}
	if engine.KindOf(err) != engine.KindUnreadableFormat {
		t.Errorf("error kind = %s, want %s", engine.KindOf(err), engine.KindUnreadableFormat)
	}
	if !strings.Contains(err.Error(), `table name "sales_data"`) {
		t.Errorf("diagnostic = %q", err.Error())
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.xlsx"), "")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if engine.KindOf(err) != engine.KindFileNotFound {
		t.Errorf("error kind = %s, want %s", engine.KindOf(err), engine.KindFileNotFound)
	}
}

func TestLoadRaggedRowsPadded(t *testing.T) {
	path := writeFixture(t, map[string][][]any{
		"Data": {
			{"A", "B", "C"},
			{"1"},
			{"2", "3"},
		},
	})

	sheets, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	for i, row := range sheets[0].Rows {
		if len(row) != 3 {
			t.Errorf("row %d has %d cells, want 3", i, len(row))
		}
	}
}

func TestPreviewSnapshot(t *testing.T) {
	path := writeFixture(t, map[string][][]any{
		"Sales": {
			{"Region", "Sales", "Date"},
			{"West", "4,665", "2025-01-05"},
			{"East", "1,200", "2025-01-07"},
			{"West", "300", "2025-02-01"},
			{"East", "-", "2025-02-03"},
		},
	})

	info, err := Preview(path, "")
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	if len(info.Sheets) != 1 {
		t.Fatalf("got %d sheets, want 1", len(info.Sheets))
	}
	s := info.Sheets[0]
	if s.RowCount != 4 {
		t.Errorf("row count = %d, want 4", s.RowCount)
	}
	if len(s.SampleRows) != sampleRowCount {
		t.Errorf("sample rows = %d, want %d", len(s.SampleRows), sampleRowCount)
	}

	types := map[string]ColumnType{}
	for _, c := range s.Columns {
		types[c.Name] = c.Type
	}
	if types["Region"] != TypeText || types["Sales"] != TypeNumber || types["Date"] != TypeDate {
		t.Errorf("inferred types = %v", types)
	}
}

func TestKeyForChangesWithContent(t *testing.T) {
	path := writeFixture(t, map[string][][]any{
		"Data": {{"A"}, {"1"}},
	})

	k1, err := KeyFor(path)
	if err != nil {
		t.Fatalf("KeyFor failed: %v", err)
	}
	if k1.Path != path || k1.Size == 0 {
		t.Errorf("key = %+v", k1)
	}
}
