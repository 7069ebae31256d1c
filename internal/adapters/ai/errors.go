package ai

import (
	"errors"
	"fmt"
)

// ErrorKind classifies analysis failures
type ErrorKind string

const (
	// KindRequest: transport error, timeout, provider error
	KindRequest ErrorKind = "request"
	// KindParse: reply is not valid JSON (after cleanup)
	KindParse ErrorKind = "parse"
	// KindSchema: JSON is valid but required fields are missing or invalid
	KindSchema ErrorKind = "schema"
)

// AnalysisError is returned by every Engine operation
type AnalysisError struct {
	Err  error
	Op   string
	Kind ErrorKind
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

func newError(op string, kind ErrorKind, err error) *AnalysisError {
	return &AnalysisError{Op: op, Kind: kind, Err: err}
}

func schemaError(op, format string, args ...any) *AnalysisError {
	return newError(op, KindSchema, fmt.Errorf(format, args...))
}

// KindOf returns the kind of an AnalysisError in err's chain ("" if none)
func KindOf(err error) ErrorKind {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// IsRequestError reports whether err is a request failure
func IsRequestError(err error) bool { return KindOf(err) == KindRequest }

// IsParseError reports whether err is a parse failure
func IsParseError(err error) bool { return KindOf(err) == KindParse }

// IsSchemaError reports whether err is a schema failure
func IsSchemaError(err error) bool { return KindOf(err) == KindSchema }
