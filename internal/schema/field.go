package schema

import (
	"github.com/roach88/recstore/internal/value"
)

// Field describes one field of a record kind.
type Field struct {
	Name       string
	Kind       value.Kind
	PrimaryKey bool
	Optional   bool
	Hint       MigrationHint
}

// MigrationHint carries the information used to infer a migration step.
//   - Default fills the field for rows migrated from a version without it,
//     and is required when an optional field becomes non-optional.
//   - RenamedFrom names the field in the previous version this one replaces.
type MigrationHint struct {
	Default     value.Value // nil when no default is declared
	RenamedFrom string
}

// HasDefault reports whether the hint declares a default value.
func (h MigrationHint) HasDefault() bool {
	return h.Default != nil
}

// Option configures a field declared on a Builder.
type Option func(*fieldDecl)

// fieldDecl is a field under construction. The raw default is coerced to the
// field's kind at Build time.
type fieldDecl struct {
	Field
	rawDefault any
	hasDefault bool
}

// PrimaryKey marks the field as the record's primary key.
func PrimaryKey() Option {
	return func(f *fieldDecl) { f.PrimaryKey = true }
}

// Optional marks the field as optional.
func Optional() Option {
	return func(f *fieldDecl) { f.Optional = true }
}

// Default declares the value used to fill the field during migration.
// v may be a value.Value or any native value coercible to the field's kind.
// For opaque fields v is encoded with internal/codec.
func Default(v any) Option {
	return func(f *fieldDecl) {
		f.rawDefault = v
		f.hasDefault = true
	}
}

// RenamedFrom declares the name the field had in the previous version.
func RenamedFrom(name string) Option {
	return func(f *fieldDecl) { f.Hint.RenamedFrom = name }
}
