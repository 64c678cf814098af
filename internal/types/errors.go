package types

import (
	"errors"
	"fmt"
)

// ErrorKind discriminates pipeline failures at the analysis boundary.
type ErrorKind string

const (
	ErrKindAIInvocation     ErrorKind = "ai_invocation"
	ErrKindParse            ErrorKind = "parse"
	ErrKindSchemaValidation ErrorKind = "schema_validation"
	ErrKindNutrientProvider ErrorKind = "nutrient_provider"
	ErrKindPersistence      ErrorKind = "persistence"
)

// AnalysisError is a typed pipeline error. Every failure the pipeline can
// produce is one of these; nothing escapes as an untyped fault.
type AnalysisError struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *AnalysisError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// NewAnalysisError creates a typed error without an underlying cause.
func NewAnalysisError(kind ErrorKind, format string, args ...interface{}) *AnalysisError {
	return &AnalysisError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// WrapAnalysisError attaches a kind and message to an underlying error.
func WrapAnalysisError(kind ErrorKind, err error, format string, args ...interface{}) *AnalysisError {
	return &AnalysisError{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the ErrorKind carried by err, or "" if err is not an
// AnalysisError.
func KindOf(err error) ErrorKind {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}
