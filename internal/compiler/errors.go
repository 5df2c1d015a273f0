package compiler

import (
	"errors"
	"fmt"
)

// CompileError is a caller input error detected during compilation.
//
// Compile errors are deterministic: the same request always fails the same
// way, so callers should surface them verbatim and never retry.
type CompileError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// ColumnID is the column the error refers to, if any.
	ColumnID string

	// Param is the parameter the error refers to, if any.
	Param string
}

// ErrorCode categorizes compile errors.
type ErrorCode string

const (
	// ErrCodeInvalidColumn indicates an unknown or unusable column_id.
	ErrCodeInvalidColumn ErrorCode = "INVALID_COLUMN"

	// ErrCodeInvalidParameter indicates a missing or mistyped parameter.
	ErrCodeInvalidParameter ErrorCode = "INVALID_PARAMETER"

	// ErrCodeInvalidFilter indicates a bad operator/value/type combination.
	ErrCodeInvalidFilter ErrorCode = "INVALID_FILTER"

	// ErrCodeUnsupportedSplit indicates a split incompatible with a column.
	ErrCodeUnsupportedSplit ErrorCode = "UNSUPPORTED_SPLIT"
)

// Error implements the error interface.
func (e *CompileError) Error() string {
	switch {
	case e.ColumnID != "" && e.Param != "":
		return fmt.Sprintf("%s: %s (column=%s, param=%s)", e.Code, e.Message, e.ColumnID, e.Param)
	case e.ColumnID != "":
		return fmt.Sprintf("%s: %s (column=%s)", e.Code, e.Message, e.ColumnID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// CodeOf returns the code of a CompileError anywhere in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Code, true
	}
	return "", false
}

// IsInvalidColumn reports whether err is an INVALID_COLUMN error.
func IsInvalidColumn(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == ErrCodeInvalidColumn
}

// IsInvalidParameter reports whether err is an INVALID_PARAMETER error.
func IsInvalidParameter(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == ErrCodeInvalidParameter
}

// IsInvalidFilter reports whether err is an INVALID_FILTER error.
func IsInvalidFilter(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == ErrCodeInvalidFilter
}

// IsUnsupportedSplit reports whether err is an UNSUPPORTED_SPLIT error.
func IsUnsupportedSplit(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == ErrCodeUnsupportedSplit
}

func invalidColumn(columnID string, format string, args ...any) *CompileError {
	return &CompileError{
		Code:     ErrCodeInvalidColumn,
		Message:  fmt.Sprintf(format, args...),
		ColumnID: columnID,
	}
}

func invalidParam(columnID, param string, format string, args ...any) *CompileError {
	return &CompileError{
		Code:     ErrCodeInvalidParameter,
		Message:  fmt.Sprintf(format, args...),
		ColumnID: columnID,
		Param:    param,
	}
}

func invalidFilter(columnID string, format string, args ...any) *CompileError {
	return &CompileError{
		Code:     ErrCodeInvalidFilter,
		Message:  fmt.Sprintf(format, args...),
		ColumnID: columnID,
	}
}

func unsupportedSplit(columnID string, format string, args ...any) *CompileError {
	return &CompileError{
		Code:     ErrCodeUnsupportedSplit,
		Message:  fmt.Sprintf(format, args...),
		ColumnID: columnID,
	}
}
