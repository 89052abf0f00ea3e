package recstore

import (
	"github.com/roach88/recstore/internal/schema"
	"github.com/roach88/recstore/internal/value"
)

// ScalarKind is the storage kind of a field.
type ScalarKind = value.Kind

const (
	Integer = value.KindInteger
	Double  = value.KindDouble
	String  = value.KindString
	Boolean = value.KindBoolean
	Date    = value.KindDate
	Binary  = value.KindBinary
	UUID    = value.KindUUID
	URL     = value.KindURL
	// Opaque fields hold any value the codec can encode. They cannot be
	// primary keys or predicate arguments.
	Opaque = value.KindOpaque
)

// SchemaBuilder accumulates the fields of one kind at one version.
type SchemaBuilder = schema.Builder

// SchemaRecord is a validated schema of one kind at one version.
type SchemaRecord = schema.Record

// FieldOption configures a declared field.
type FieldOption = schema.Option

// PrimaryKey marks the field identifying a record.
func PrimaryKey() FieldOption { return schema.PrimaryKey() }

// Optional marks a field that may be absent.
func Optional() FieldOption { return schema.Optional() }

// Default declares the value a migration writes into the field for rows
// created before it existed, or for stored nulls when it stops being optional.
func Default(v any) FieldOption { return schema.Default(v) }

// RenamedFrom declares the field's name in the previous version.
func RenamedFrom(name string) FieldOption { return schema.RenamedFrom(name) }

// IntRawValuer is implemented by integer-backed enumerations.
type IntRawValuer = value.IntRawValuer

// StringRawValuer is implemented by string-backed enumerations.
type StringRawValuer = value.StringRawValuer
