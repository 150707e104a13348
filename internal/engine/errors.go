// Package engine provides the query-orchestration workflow.
package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind identifies the failure class of a workflow error. Every failure
// ends the workflow immediately; there is no retry and no alternate-strategy
// fallback, so the kind plus the verbatim diagnostic is all a caller gets.
type ErrorKind string

const (
	KindFileNotFound        ErrorKind = "file_not_found"
	KindUnreadableFormat    ErrorKind = "unreadable_format"
	KindInvalidExpression   ErrorKind = "invalid_expression"
	KindSQLError            ErrorKind = "sql_error"
	KindInvalidFunctionCall ErrorKind = "invalid_function_call"
	KindOracleUnavailable   ErrorKind = "oracle_unavailable"
	KindInternal            ErrorKind = "internal"
)

// AnalysisError wraps a failure with its kind. The underlying message is the
// engine's or parser's diagnostic, passed through verbatim.
type AnalysisError struct {
	Kind ErrorKind
	Err  error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// NewError creates an AnalysisError with the given kind.
func NewError(kind ErrorKind, err error) *AnalysisError {
	return &AnalysisError{Kind: kind, Err: err}
}

// Errorf creates an AnalysisError from a format string.
func Errorf(kind ErrorKind, format string, args ...any) *AnalysisError {
	return &AnalysisError{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the error kind, defaulting to internal for unclassified
// errors.
func KindOf(err error) ErrorKind {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// FunctionCallError indicates the oracle returned a call that failed schema
// validation or named an unregistered function.
type FunctionCallError struct {
	FunctionName string
	Errors       []string
}

func (e *FunctionCallError) Error() string {
	return fmt.Sprintf("function %s validation failed: %s", e.FunctionName, strings.Join(e.Errors, "; "))
}
