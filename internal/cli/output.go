package cli

import (
	"errors"
	"fmt"
	"io"

	json "github.com/goccy/go-json"

	"github.com/roach88/recstore"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // The store rejected the operation (incompatible, failed migration, bad record)
	ExitCommandError = 2 // Command error (bad flags, unreadable schema file, missing store)
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// Error codes reported in CLI responses.
const (
	ErrCodeGeneric             = "ERROR"
	ErrCodeUsage               = "USAGE"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeSchemaFile          = "SCHEMA_FILE"
	ErrCodeUnknownKind         = "UNKNOWN_KIND"
	ErrCodeInvalidSchema       = "INVALID_SCHEMA"
	ErrCodeNoCompatibleVersion = "NO_COMPATIBLE_VERSION"
	ErrCodeMigrationStepFailed = "MIGRATION_STEP_FAILED"
	ErrCodePropertyMissing     = "PROPERTY_MISSING"
	ErrCodeCoercionFailure     = "COERCION_FAILURE"
	ErrCodeStorage             = "STORAGE"
)

// errorCode classifies a store error.
func errorCode(err error) string {
	switch {
	case recstore.IsUnknownKind(err):
		return ErrCodeUnknownKind
	case recstore.IsInvalidSchema(err):
		return ErrCodeInvalidSchema
	case recstore.IsNoCompatibleVersion(err):
		return ErrCodeNoCompatibleVersion
	case recstore.IsMigrationStepFailed(err):
		return ErrCodeMigrationStepFailed
	case recstore.IsPropertyMissing(err):
		return ErrCodePropertyMissing
	case recstore.IsCoercionFailure(err):
		return ErrCodeCoercionFailure
	case recstore.IsStorageError(err):
		return ErrCodeStorage
	default:
		return ErrCodeGeneric
	}
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "UNKNOWN_KIND", "STORAGE", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
// text is what text mode prints; data is the JSON payload.
func (f *OutputFormatter) Success(data any, text string) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}
	_, err := fmt.Fprintln(f.Writer, text)
	return err
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

func (f *OutputFormatter) encode(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetEscapeHTML(false)
	return enc.Encode(resp)
}

// Fail reports err in the configured format and returns the ExitError for it.
func (f *OutputFormatter) Fail(exitCode int, code, message string, err error) error {
	_ = f.Error(code, fmt.Sprintf("%s: %v", message, err), nil)
	return WrapExitError(exitCode, message, err)
}

// FailStore reports a store error, classifying it by its code.
func (f *OutputFormatter) FailStore(message string, err error) error {
	return f.Fail(ExitFailure, errorCode(err), message, err)
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}
