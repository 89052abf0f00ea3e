package mapper

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes mapping errors.
type ErrorCode string

const (
	// ErrCodePropertyMissing indicates a declared field absent from the record.
	ErrCodePropertyMissing ErrorCode = "PROPERTY_MISSING"

	// ErrCodeCoercionFailure indicates a value not representable in its declared kind.
	ErrCodeCoercionFailure ErrorCode = "COERCION_FAILURE"
)

// Error is a per-operation mapping error.
type Error struct {
	Code  ErrorCode
	Kind  string // Record kind
	Field string // Field name, empty for predicate arguments
	Err   error
}

func (e *Error) Error() string {
	target := e.Kind
	if e.Field != "" {
		target += "." + e.Field
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Code, target)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, target, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func propertyMissing(kind, field string, err error) *Error {
	return &Error{Code: ErrCodePropertyMissing, Kind: kind, Field: field, Err: err}
}

func coercionFailure(kind, field string, err error) *Error {
	return &Error{Code: ErrCodeCoercionFailure, Kind: kind, Field: field, Err: err}
}

// NewCoercionError creates a COERCION_FAILURE error.
func NewCoercionError(kind, field string, err error) *Error {
	return coercionFailure(kind, field, err)
}

// IsPropertyMissing returns true if err is a PROPERTY_MISSING error.
func IsPropertyMissing(err error) bool {
	var me *Error
	if errors.As(err, &me) {
		return me.Code == ErrCodePropertyMissing
	}
	return false
}

// IsCoercionFailure returns true if err is a COERCION_FAILURE error.
func IsCoercionFailure(err error) bool {
	var me *Error
	if errors.As(err, &me) {
		return me.Code == ErrCodeCoercionFailure
	}
	return false
}
