// Package schema describes the fields of one record kind at one schema version.
//
// A Record is produced by a Builder and validated once at construction:
//   - exactly one field is the primary key
//   - the primary key is not an opaque field
//   - field names are non-empty and unique
//   - default values are representable in their field's kind
//
// Validation failures are authoring defects. They are reported as *Error with
// code INVALID_SCHEMA, aggregating every problem found in one pass.
package schema
