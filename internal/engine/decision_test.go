package engine

import (
	"context"
	"testing"
)

func testRegistry() ToolRegistry {
	schema := `{
		"type": "object",
		"properties": {
			"file_name": {"type": "string"},
			"query": {"type": "string"},
			"sheet_name": {"type": "string"}
		},
		"required": ["file_name", "query"],
		"additionalProperties": false
	}`
	previewSchema := `{
		"type": "object",
		"properties": {
			"file_name": {"type": "string"},
			"sheet_name": {"type": "string"}
		},
		"required": ["file_name"],
		"additionalProperties": false
	}`

	noop := func(ctx context.Context, args map[string]any) (string, error) { return "{}", nil }
	return ToolRegistry{
		FnLoadPreview:  {Name: FnLoadPreview, SchemaJSON: previewSchema, Fn: noop},
		FnTabularQuery: {Name: FnTabularQuery, SchemaJSON: schema, Fn: noop},
		FnSQLQuery:     {Name: FnSQLQuery, SchemaJSON: schema, Fn: noop},
	}
}

func TestParseDecisionTerminalText(t *testing.T) {
	dec, aerr := ParseDecision(LLMResponse{Text: "There is nothing to compute."}, testRegistry())
	if aerr != nil {
		t.Fatalf("ParseDecision failed: %v", aerr)
	}
	if dec.Kind != DecisionTerminal || dec.Text == "" {
		t.Errorf("decision = %+v, want terminal with text", dec)
	}
}

func TestParseDecisionDispatch(t *testing.T) {
	tests := []struct {
		name string
		call FunctionCall
		want DecisionKind
	}{
		{
			"preview",
			FunctionCall{Name: FnLoadPreview, Args: map[string]any{"file_name": "a.xlsx"}},
			DecisionPreview,
		},
		{
			"tabular",
			FunctionCall{Name: FnTabularQuery, Args: map[string]any{"file_name": "a.xlsx", "query": "count"}},
			DecisionTabular,
		},
		{
			"sql",
			FunctionCall{Name: FnSQLQuery, Args: map[string]any{"file_name": "a.xlsx", "query": "SELECT 1"}},
			DecisionSQL,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec, aerr := ParseDecision(LLMResponse{Calls: []FunctionCall{tt.call}}, testRegistry())
			if aerr != nil {
				t.Fatalf("ParseDecision failed: %v", aerr)
			}
			if dec.Kind != tt.want {
				t.Errorf("kind = %s, want %s", dec.Kind, tt.want)
			}
			if dec.FileName != "a.xlsx" {
				t.Errorf("file = %q, want a.xlsx", dec.FileName)
			}
		})
	}
}

func TestParseDecisionRejectsUnknownFunction(t *testing.T) {
	_, aerr := ParseDecision(LLMResponse{Calls: []FunctionCall{
		{Name: "drop_all_tables", Args: map[string]any{}},
	}}, testRegistry())
	if aerr == nil {
		t.Fatal("expected error for unknown function")
	}
	if aerr.Kind != KindInvalidFunctionCall {
		t.Errorf("kind = %s, want %s", aerr.Kind, KindInvalidFunctionCall)
	}
}

func TestParseDecisionRejectsSchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		call FunctionCall
	}{
		{"missing required", FunctionCall{Name: FnTabularQuery, Args: map[string]any{"file_name": "a.xlsx"}}},
		{"wrong type", FunctionCall{Name: FnTabularQuery, Args: map[string]any{"file_name": 42, "query": "count"}}},
		{"extra property", FunctionCall{Name: FnLoadPreview, Args: map[string]any{"file_name": "a.xlsx", "mode": "fast"}}},
		{"nil args", FunctionCall{Name: FnSQLQuery}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, aerr := ParseDecision(LLMResponse{Calls: []FunctionCall{tt.call}}, testRegistry())
			if aerr == nil {
				t.Fatal("expected validation error")
			}
			if aerr.Kind != KindInvalidFunctionCall {
				t.Errorf("kind = %s, want %s", aerr.Kind, KindInvalidFunctionCall)
			}
		})
	}
}

func TestParseDecisionRejectsMultipleCalls(t *testing.T) {
	_, aerr := ParseDecision(LLMResponse{Calls: []FunctionCall{
		{Name: FnLoadPreview, Args: map[string]any{"file_name": "a.xlsx"}},
		{Name: FnSQLQuery, Args: map[string]any{"file_name": "a.xlsx", "query": "SELECT 1"}},
	}}, testRegistry())
	if aerr == nil {
		t.Fatal("expected error for multiple calls")
	}
	if aerr.Kind != KindInvalidFunctionCall {
		t.Errorf("kind = %s, want %s", aerr.Kind, KindInvalidFunctionCall)
	}
}
