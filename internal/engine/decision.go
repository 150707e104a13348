package engine

// Function names in the oracle-callable contract.
const (
	FnLoadPreview  = "load_preview_data"
	FnTabularQuery = "simple_dataframe_query"
	FnSQLQuery     = "complex_duckdb_query"
)

// DecisionKind tags the closed variant set of oracle outcomes.
type DecisionKind string

const (
	DecisionPreview  DecisionKind = "preview"
	DecisionTabular  DecisionKind = "tabular"
	DecisionSQL      DecisionKind = "sql"
	DecisionTerminal DecisionKind = "terminal"
)

// Decision is the validated outcome of one oracle generation round: exactly
// one function call, or a terminal answer with no call.
type Decision struct {
	Kind      DecisionKind
	FileName  string
	SheetName string
	Query     string
	Text      string // terminal answer
	Call      FunctionCall
}

// ParseDecision validates an oracle response against the registry and decodes
// it into the tagged union. Unknown function names or schema-invalid
// arguments are an invalid-function-call error, never a crash.
func ParseDecision(resp LLMResponse, reg ToolRegistry) (Decision, *AnalysisError) {
	if len(resp.Calls) == 0 {
		// Terminal text with no call: treated as a stage skip by the caller.
		return Decision{Kind: DecisionTerminal, Text: resp.Text}, nil
	}

	// Exactly one decision per round; extra calls are a contract violation.
	if len(resp.Calls) > 1 {
		return Decision{}, Errorf(KindInvalidFunctionCall,
			"oracle returned %d function calls, expected exactly one", len(resp.Calls))
	}

	call := resp.Calls[0]
	tool, ok := reg[call.Name]
	if !ok {
		return Decision{}, NewError(KindInvalidFunctionCall, &FunctionCallError{
			FunctionName: call.Name,
			Errors:       []string{"unknown function"},
		})
	}

	if call.Args == nil {
		call.Args = map[string]any{}
	}
	if err := tool.ValidateArgs(call.Args); err != nil {
		if ae, ok := err.(*AnalysisError); ok {
			return Decision{}, ae
		}
		return Decision{}, NewError(KindInvalidFunctionCall, err)
	}

	d := Decision{Call: call}
	d.FileName, _ = call.Args["file_name"].(string)
	d.SheetName, _ = call.Args["sheet_name"].(string)
	d.Query, _ = call.Args["query"].(string)

	switch call.Name {
	case FnLoadPreview:
		d.Kind = DecisionPreview
	case FnTabularQuery:
		d.Kind = DecisionTabular
	case FnSQLQuery:
		d.Kind = DecisionSQL
	default:
		// Registered but not part of the workflow contract.
		return Decision{}, NewError(KindInvalidFunctionCall, &FunctionCallError{
			FunctionName: call.Name,
			Errors:       []string{"function not dispatchable by this workflow"},
		})
	}

	return d, nil
}
