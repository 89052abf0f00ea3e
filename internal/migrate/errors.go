package migrate

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes migration errors.
type ErrorCode string

const (
	// ErrCodeNoCompatibleVersion indicates a store that matches no declared version.
	ErrCodeNoCompatibleVersion ErrorCode = "NO_COMPATIBLE_VERSION"

	// ErrCodeMigrationStepFailed indicates a step that could not be inferred or applied.
	ErrCodeMigrationStepFailed ErrorCode = "MIGRATION_STEP_FAILED"
)

// Error is a fatal store-opening error. A store that produced one must not be used.
type Error struct {
	Code    ErrorCode
	Locator string
	From    int // Source version of the failed step, or the highest version tried
	To      int // Target version of the failed step, -1 when not applicable
	Err     error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNoCompatibleVersion:
		return fmt.Sprintf("%s: %s matches no schema version in [0, %d]", e.Code, e.Locator, e.From)
	default:
		return fmt.Sprintf("%s: %s v%d -> v%d: %v", e.Code, e.Locator, e.From, e.To, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsNoCompatibleVersion returns true if err is a NO_COMPATIBLE_VERSION error.
func IsNoCompatibleVersion(err error) bool {
	var me *Error
	if errors.As(err, &me) {
		return me.Code == ErrCodeNoCompatibleVersion
	}
	return false
}

// IsMigrationStepFailed returns true if err is a MIGRATION_STEP_FAILED error.
func IsMigrationStepFailed(err error) bool {
	var me *Error
	if errors.As(err, &me) {
		return me.Code == ErrCodeMigrationStepFailed
	}
	return false
}
