package schema

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes schema errors.
type ErrorCode string

const (
	// ErrCodeUnknownKind indicates a record kind that was never declared.
	ErrCodeUnknownKind ErrorCode = "UNKNOWN_KIND"

	// ErrCodeInvalidSchema indicates a schema that violates its invariants.
	ErrCodeInvalidSchema ErrorCode = "INVALID_SCHEMA"
)

// Error is a schema authoring error.
type Error struct {
	Code    ErrorCode
	Kind    string // Record kind
	Version int    // Schema version, -1 when not applicable
	Err     error  // Underlying problems (a *multierror.Error for INVALID_SCHEMA)
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Version >= 0:
		return fmt.Sprintf("%s: %s v%d: %v", e.Code, e.Kind, e.Version, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewUnknownKindError creates an Error for an undeclared record kind.
func NewUnknownKindError(kind string) *Error {
	return &Error{Code: ErrCodeUnknownKind, Kind: kind, Version: -1}
}

// IsUnknownKind returns true if err is an UNKNOWN_KIND schema error.
// Uses errors.As to handle wrapped errors.
func IsUnknownKind(err error) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == ErrCodeUnknownKind
	}
	return false
}

// IsInvalidSchema returns true if err is an INVALID_SCHEMA schema error.
func IsInvalidSchema(err error) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == ErrCodeInvalidSchema
	}
	return false
}
