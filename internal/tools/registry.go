// Package tools defines the oracle-callable functions and binds them to the
// query executor.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ChamsBouzaiene/tally/internal/engine"
	"github.com/ChamsBouzaiene/tally/internal/query"
)

const previewSchema = `{
	"type": "object",
	"properties": {
		"file_name": {
			"type": "string",
			"description": "Path of the spreadsheet file to preview"
		},
		"sheet_name": {
			"type": "string",
			"description": "Restrict the preview to one sheet (optional)"
		}
	},
	"required": ["file_name"],
	"additionalProperties": false
}`

const tabularSchema = `{
	"type": "object",
	"properties": {
		"file_name": {
			"type": "string",
			"description": "Path of the spreadsheet file to query"
		},
		"query": {
			"type": "string",
			"description": "Pipeline expression, e.g. filter Region == \"West\" | sum Sales"
		},
		"sheet_name": {
			"type": "string",
			"description": "Sheet to query; defaults to the first sheet (optional)"
		}
	},
	"required": ["file_name", "query"],
	"additionalProperties": false
}`

const sqlSchema = `{
	"type": "object",
	"properties": {
		"file_name": {
			"type": "string",
			"description": "Path of the spreadsheet file to query"
		},
		"query": {
			"type": "string",
			"description": "SQL SELECT over the file's sheets, registered as tables under their sanitized names"
		}
	},
	"required": ["file_name", "query"],
	"additionalProperties": false
}`

// NewRegistry builds the function-calling contract over one executor.
func NewRegistry(exec *query.Executor) engine.ToolRegistry {
	reg := engine.ToolRegistry{}
	for _, t := range []engine.Tool{
		newPreviewTool(exec),
		newTabularTool(exec),
		newSQLTool(exec),
	} {
		reg[t.Name] = t
	}
	return reg
}

func newPreviewTool(exec *query.Executor) engine.Tool {
	return engine.Tool{
		Name:        engine.FnLoadPreview,
		Description: "Load the structure of a spreadsheet file: sheet names, sanitized table names, columns with inferred types, and a few sample rows.",
		SchemaJSON:  previewSchema,
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			file, _ := args["file_name"].(string)
			sheet, _ := args["sheet_name"].(string)
			info, err := exec.Preview(file, sheet)
			if err != nil {
				return "", err
			}
			return marshalResult(info)
		},
	}
}

func newTabularTool(exec *query.Executor) engine.Tool {
	return engine.Tool{
		Name:        engine.FnTabularQuery,
		Description: "Run a single-sheet pipeline query (filter, select, sort, sum/avg/min/max/count, limit) against a spreadsheet file.",
		SchemaJSON:  tabularSchema,
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			file, _ := args["file_name"].(string)
			expr, _ := args["query"].(string)
			sheet, _ := args["sheet_name"].(string)
			res, err := exec.Tabular(file, expr, sheet)
			if err != nil {
				return "", err
			}
			return marshalResult(res)
		},
	}
}

func newSQLTool(exec *query.Executor) engine.Tool {
	return engine.Tool{
		Name:        engine.FnSQLQuery,
		Description: "Run a SQL query against a spreadsheet file. Every sheet is a table under its sanitized name; use this for joins and grouped aggregations.",
		SchemaJSON:  sqlSchema,
		Fn: func(ctx context.Context, args map[string]any) (string, error) {
			file, _ := args["file_name"].(string)
			q, _ := args["query"].(string)
			res, err := exec.SQL(file, q)
			if err != nil {
				return "", err
			}
			return marshalResult(res)
		},
	}
}

func marshalResult(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshaling tool result: %w", err)
	}
	return string(b), nil
}
