// Package rowstore defines the boundary between record mapping and the
// durable row engine.
//
// The engine owns the on-disk format, predicate evaluation and transactions.
// Callers hand it a Descriptor (the storage schema for one version), rows as
// field-name to value maps, and predicates as an engine-dialect format string
// with positional arguments that have already been coerced to value.Value.
//
// Mutations run inside Handle.Mutate: either every write of the callback is
// kept, or none is. Each successful mutation emits one ChangeBatch to the
// handle's subscribers before Mutate returns.
package rowstore
