package rowstore

import (
	"context"

	"github.com/roach88/recstore/internal/value"
)

// Engine is a durable row engine addressed by locator.
type Engine interface {
	// Open opens or creates the store at locator with the given schema.
	// An existing store must already be compatible with desc.
	Open(ctx context.Context, desc Descriptor, locator string) (Handle, error)

	// Metadata returns the persisted metadata, or ok=false when no store exists.
	Metadata(ctx context.Context, locator string) (md Metadata, ok bool, err error)

	// IsCompatible reports whether desc structurally matches md.
	IsCompatible(desc Descriptor, md Metadata) bool

	// MigrateOneStep rewrites the store in place from one schema to the next.
	// The step is atomic: on error the store is left at from.
	MigrateOneStep(ctx context.Context, locator string, from, to Descriptor, mapping Mapping) error

	// Destroy irreversibly removes the store and its side files.
	Destroy(ctx context.Context, locator string) error
}

// Tx is the view of the mutation context available inside Handle.Mutate.
type Tx interface {
	Fetch(ctx context.Context, kind string, pred *Predicate) ([]Row, error)
	Insert(ctx context.Context, kind string, values map[string]value.Value) (Row, error)
	Update(ctx context.Context, row Row) error
	Delete(ctx context.Context, rows []Row) error
}

// Handle is an open store.
//
// A handle is not safe for concurrent use; callers serialize access.
// Subscribe and unsubscribe may be called from any goroutine.
type Handle interface {
	// Fetch returns the rows of kind matching pred (nil = all), in insertion order.
	Fetch(ctx context.Context, kind string, pred *Predicate) ([]Row, error)

	// Mutate runs fn against the mutation context. If fn returns an error every
	// write it made is discarded before Mutate returns the error.
	Mutate(ctx context.Context, fn func(Tx) error) error

	// Commit flushes pending mutations to durable storage.
	Commit(ctx context.Context) error

	// HasChanges reports whether there are uncommitted mutations.
	HasChanges() bool

	// Subscribe registers fn for every ChangeBatch. The returned function
	// removes the registration and is safe to call more than once.
	Subscribe(fn func(ChangeBatch)) (unsubscribe func())

	// Close releases the handle. Uncommitted mutations are discarded.
	Close() error
}
