// Package value provides the typed value union shared by schemas, records and
// the row engine.
//
// Every field value, default value and predicate argument funnels through
// Value. Only the variants declared here implement it:
//   - Null: an absent optional value
//   - Int, Double, String, Bool: plain scalars
//   - Date, Binary, UUID, URL: scalars with a dedicated storage projection
//   - Opaque: an application payload already encoded by internal/codec
//
// This package imports nothing internal so every other layer can depend on it.
package value
