package recstore

import (
	"github.com/roach88/recstore/internal/mapper"
	"github.com/roach88/recstore/internal/migrate"
	"github.com/roach88/recstore/internal/rowstore"
	"github.com/roach88/recstore/internal/schema"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = rowstore.ErrClosed

// IsUnknownKind reports a kind that is not part of the store's model.
func IsUnknownKind(err error) bool { return schema.IsUnknownKind(err) }

// IsInvalidSchema reports a schema declaration that violates its invariants.
func IsInvalidSchema(err error) bool { return schema.IsInvalidSchema(err) }

// IsPropertyMissing reports a declared field absent from a record.
func IsPropertyMissing(err error) bool { return mapper.IsPropertyMissing(err) }

// IsCoercionFailure reports a value not representable in its declared kind.
func IsCoercionFailure(err error) bool { return mapper.IsCoercionFailure(err) }

// IsNoCompatibleVersion reports a store matching no declared schema version.
func IsNoCompatibleVersion(err error) bool { return migrate.IsNoCompatibleVersion(err) }

// IsMigrationStepFailed reports a migration step that could not be applied.
func IsMigrationStepFailed(err error) bool { return migrate.IsMigrationStepFailed(err) }

// IsStorageError reports a failure of the underlying row engine.
func IsStorageError(err error) bool { return rowstore.IsStorageError(err) }
