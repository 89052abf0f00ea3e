package rowstore

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by operations on a closed handle.
var ErrClosed = errors.New("store is closed")

// Error wraps an opaque failure of the row engine.
type Error struct {
	Op  string // Engine operation, e.g. "open", "fetch", "migrate"
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("STORAGE: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap returns err wrapped as a storage error, or nil.
// Errors that are already storage errors are returned unchanged.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{Op: op, Err: err}
}

// IsStorageError returns true if err is a storage error.
func IsStorageError(err error) bool {
	var se *Error
	return errors.As(err, &se)
}
