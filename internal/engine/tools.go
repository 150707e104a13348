package engine

import (
	"context"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// ToolFunc executes a registered function and returns its JSON result.
type ToolFunc func(ctx context.Context, args map[string]any) (string, error)

// Tool is one oracle-callable function: the schema the oracle is shown and
// the implementation dispatched after validation.
type Tool struct {
	Name        string
	Description string
	SchemaJSON  string
	Fn          ToolFunc
}

// ValidateArgs validates the provided arguments against the tool's JSON
// schema. Oracle output is untrusted; nothing is dispatched until this passes.
func (t Tool) ValidateArgs(args map[string]any) error {
	schemaLoader := gojsonschema.NewStringLoader(t.SchemaJSON)
	documentLoader := gojsonschema.NewGoLoader(args)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		var msgs []string
		for _, verr := range result.Errors() {
			msgs = append(msgs, verr.String())
		}
		return NewError(KindInvalidFunctionCall, &FunctionCallError{
			FunctionName: t.Name,
			Errors:       msgs,
		})
	}

	return nil
}

type ToolRegistry map[string]Tool

// Schemas returns the function-calling contract advertised to the oracle.
func (r ToolRegistry) Schemas() []ToolSchema {
	s := make([]ToolSchema, 0, len(r))
	for _, t := range r {
		s = append(s, ToolSchema{
			Name:        t.Name,
			Description: t.Description,
			JSONSchema:  t.SchemaJSON,
		})
	}
	return s
}
