package query

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/ChamsBouzaiene/tally/internal/clean"
	"github.com/ChamsBouzaiene/tally/internal/engine"
	"github.com/ChamsBouzaiene/tally/internal/workbook"
)

// openMemoryDB opens a private in-memory SQL engine for one workbook.
func openMemoryDB() (*sql.DB, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, engine.Errorf(engine.KindSQLError, "opening sql engine: %v", err)
	}
	// A memory database exists per connection; pooling would silently
	// shard the registered tables.
	db.SetMaxOpenConns(1)
	return db, nil
}

// registerSheets creates one table per sheet under its sanitized name and
// loads every cleaned cell. Column types follow inference: numeric columns
// become REAL, boolean columns INTEGER, everything else TEXT, so SQL
// aggregates work directly on what used to be "4,665"-style text.
func registerSheets(db *sql.DB, sheets []workbook.Sheet) error {
	for _, s := range sheets {
		if len(s.Columns) == 0 {
			continue
		}

		types := make([]workbook.ColumnType, len(s.Columns))
		for ci := range s.Columns {
			types[ci] = workbook.InferColumnType(columnValues(s.Rows, ci))
		}

		defs := make([]string, len(s.Columns))
		for ci, col := range s.Columns {
			defs[ci] = fmt.Sprintf("%s %s", quoteIdent(col), sqlType(types[ci]))
		}
		ddl := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(s.TableName), strings.Join(defs, ", "))
		if _, err := db.Exec(ddl); err != nil {
			return engine.Errorf(engine.KindSQLError, "registering table %s: %v", s.TableName, err)
		}

		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(s.Columns)), ", ")
		insert := fmt.Sprintf("INSERT INTO %s VALUES (%s)", quoteIdent(s.TableName), placeholders)
		stmt, err := db.Prepare(insert)
		if err != nil {
			return engine.Errorf(engine.KindSQLError, "preparing insert for %s: %v", s.TableName, err)
		}

		for _, row := range s.Rows {
			args := make([]any, len(s.Columns))
			for ci := range s.Columns {
				args[ci] = sqlValue(clean.Cell(row[ci]))
			}
			if _, err := stmt.Exec(args...); err != nil {
				stmt.Close()
				return engine.Errorf(engine.KindSQLError, "loading rows into %s: %v", s.TableName, err)
			}
		}
		stmt.Close()
	}
	return nil
}

// RunSQL executes one read query against a registered workbook database and
// materializes the rows. Engine diagnostics pass through verbatim so the
// oracle's next attempt (in a later session) can see exactly what failed.
func RunSQL(db *sql.DB, query string) (*Result, error) {
	rows, err := db.Query(query)
	if err != nil {
		return nil, engine.Errorf(engine.KindSQLError, "%v", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, engine.Errorf(engine.KindSQLError, "%v", err)
	}

	r := &Result{Columns: cols}
	scans := make([]any, len(cols))
	for i := range scans {
		scans[i] = new(any)
	}
	for rows.Next() {
		if err := rows.Scan(scans...); err != nil {
			return nil, engine.Errorf(engine.KindSQLError, "%v", err)
		}
		out := make([]string, len(cols))
		for i, cell := range scans {
			out[i] = renderSQLValue(*cell.(*any))
		}
		r.Rows = append(r.Rows, out)
	}
	if err := rows.Err(); err != nil {
		return nil, engine.Errorf(engine.KindSQLError, "%v", err)
	}
	r.truncate()
	return r, nil
}

func sqlType(t workbook.ColumnType) string {
	switch t {
	case workbook.TypeNumber:
		return "REAL"
	case workbook.TypeBool:
		return "INTEGER"
	default:
		return "TEXT"
	}
}

// sqlValue converts a cleaned cell into its driver representation.
func sqlValue(v clean.Value) any {
	switch v.Kind {
	case clean.KindNull:
		return nil
	case clean.KindNumber:
		return v.Number
	case clean.KindBool:
		if v.Bool {
			return int64(1)
		}
		return int64(0)
	default:
		return v.String()
	}
}

func renderSQLValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return clean.Value{Kind: clean.KindNumber, Number: x}.String()
	case int64:
		return fmt.Sprintf("%d", x)
	case []byte:
		return string(x)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

// quoteIdent double-quotes an identifier, escaping embedded quotes, so
// display column names with spaces survive as-is.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func columnValues(rows [][]string, idx int) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		if idx < len(r) {
			out = append(out, r[idx])
		}
	}
	return out
}
