package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recstore/internal/mapper"
	"github.com/roach88/recstore/internal/migrate"
	"github.com/roach88/recstore/internal/rowstore"
	"github.com/roach88/recstore/internal/schema"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	err := formatter.Success(map[string]string{"result": "success"}, "ignored")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, map[string]any{"result": "success"}, resp.Data)
	assert.NotContains(t, buf.String(), "ignored")
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Error(ErrCodeStorage, "commit failed", map[string]string{"db": "x.sqlite"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeStorage, resp.Error.Code)
	assert.Equal(t, "commit failed", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_Text(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Success(struct{}{}, "store already at version 2"))
	assert.Equal(t, "store already at version 2\n", buf.String())

	buf.Reset()
	require.NoError(t, formatter.Error(ErrCodeUnknownKind, "cannot dump", map[string]string{"kind": "Ghost"}))
	assert.Contains(t, buf.String(), "Error [UNKNOWN_KIND]: cannot dump")
	assert.NotContains(t, buf.String(), "Details:")

	buf.Reset()
	formatter.Verbose = true
	require.NoError(t, formatter.Error(ErrCodeUnknownKind, "cannot dump", map[string]string{"kind": "Ghost"}))
	assert.Contains(t, buf.String(), "Details:")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut, Verbose: tt.verbose}

			formatter.VerboseLog("Loaded %s", "people.yaml")

			assert.Empty(t, out.String(), "diagnostics never reach stdout")
			if tt.wantLog {
				assert.Contains(t, errOut.String(), "Loaded people.yaml")
			} else {
				assert.Empty(t, errOut.String())
			}
		})
	}
}

func TestExitCodes(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad flag")))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))

	cause := errors.New("disk full")
	wrapped := WrapExitError(ExitFailure, "commit failed", cause)
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, "commit failed: disk full", wrapped.Error())
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{schema.NewUnknownKindError("Ghost"), ErrCodeUnknownKind},
		{&schema.Error{Code: schema.ErrCodeInvalidSchema, Kind: "A"}, ErrCodeInvalidSchema},
		{&migrate.Error{Code: migrate.ErrCodeNoCompatibleVersion}, ErrCodeNoCompatibleVersion},
		{&migrate.Error{Code: migrate.ErrCodeMigrationStepFailed}, ErrCodeMigrationStepFailed},
		{mapper.NewCoercionError("A", "n", errors.New("bad")), ErrCodeCoercionFailure},
		{rowstore.Wrap("commit", errors.New("disk full")), ErrCodeStorage},
		{errors.New("other"), ErrCodeGeneric},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, errorCode(tt.err), "%v", tt.err)
	}
}
