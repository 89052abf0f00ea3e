package schema

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/roach88/recstore/internal/codec"
	"github.com/roach88/recstore/internal/value"
)

// Builder accumulates field declarations in order.
//
//	rec, err := schema.New().
//		Field("id", value.KindString, schema.PrimaryKey()).
//		Field("name", value.KindString).
//		Build("Person", 0)
type Builder struct {
	fields []fieldDecl
}

// New returns an empty Builder.
func New() *Builder {
	return &Builder{}
}

// Field appends a field declaration.
func (b *Builder) Field(name string, kind value.Kind, opts ...Option) *Builder {
	f := fieldDecl{Field: Field{Name: name, Kind: kind}}
	for _, opt := range opts {
		opt(&f)
	}
	b.fields = append(b.fields, f)
	return b
}

// Len returns the number of declared fields.
func (b *Builder) Len() int {
	return len(b.fields)
}

// Build validates the declarations and returns an immutable Record.
func (b *Builder) Build(kind string, version int) (*Record, error) {
	var result *multierror.Error

	rec := &Record{
		kind:    kind,
		version: version,
		fields:  make([]Field, 0, len(b.fields)),
		index:   make(map[string]int, len(b.fields)),
		pk:      -1,
	}

	primaryKeys := 0
	seen := make(map[string]bool, len(b.fields))
	for _, decl := range b.fields {
		f := decl.Field

		if f.Name == "" {
			result = multierror.Append(result, fmt.Errorf("field #%d has an empty name", len(rec.fields)))
		}
		if !f.Kind.Valid() {
			result = multierror.Append(result, fmt.Errorf("field %q has invalid kind %d", f.Name, uint8(f.Kind)))
		}
		// Column names are case-insensitive in storage.
		lower := strings.ToLower(f.Name)
		if seen[lower] {
			result = multierror.Append(result, fmt.Errorf("duplicate field name %q", f.Name))
			continue
		}
		seen[lower] = true
		if f.PrimaryKey {
			primaryKeys++
			if f.Kind == value.KindOpaque {
				result = multierror.Append(result, fmt.Errorf("primary key %q cannot be opaque", f.Name))
			}
			if f.Optional {
				result = multierror.Append(result, fmt.Errorf("primary key %q cannot be optional", f.Name))
			}
			rec.pk = len(rec.fields)
		}
		if decl.hasDefault {
			def, err := coerceDefault(f.Kind, decl.rawDefault)
			if err != nil {
				result = multierror.Append(result, fmt.Errorf("default for %q: %w", f.Name, err))
			}
			f.Hint.Default = def
		}

		rec.index[f.Name] = len(rec.fields)
		rec.fields = append(rec.fields, f)
	}

	switch {
	case primaryKeys == 0:
		result = multierror.Append(result, fmt.Errorf("no primary key field"))
	case primaryKeys > 1:
		result = multierror.Append(result, fmt.Errorf("%d primary key fields, want exactly 1", primaryKeys))
	}

	if err := result.ErrorOrNil(); err != nil {
		return nil, &Error{Code: ErrCodeInvalidSchema, Kind: kind, Version: version, Err: err}
	}
	return rec, nil
}

// MustBuild is like Build but panics on error.
// Use only for static declarations known to be valid.
func (b *Builder) MustBuild(kind string, version int) *Record {
	rec, err := b.Build(kind, version)
	if err != nil {
		panic(err)
	}
	return rec
}

// coerceDefault converts a declared default into a Value of kind.
// A nil default means "fill with null".
func coerceDefault(kind value.Kind, raw any) (value.Value, error) {
	if kind != value.KindOpaque {
		return value.Coerce(kind, raw)
	}
	switch x := raw.(type) {
	case nil:
		return value.Null{}, nil
	case value.Opaque:
		return x, nil
	case codec.Payload:
		return value.Opaque(x), nil
	}
	p, err := codec.Encode(raw)
	if err != nil {
		return nil, err
	}
	return value.Opaque(p), nil
}

// Record is the validated, ordered field list of one record kind at one version.
type Record struct {
	kind    string
	version int
	fields  []Field
	index   map[string]int
	pk      int
}

// Kind returns the record kind name.
func (r *Record) Kind() string { return r.kind }

// Version returns the schema version.
func (r *Record) Version() int { return r.version }

// Fields returns a copy of the fields in declaration order.
func (r *Record) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// Len returns the number of fields.
func (r *Record) Len() int { return len(r.fields) }

// Field looks up a field by name.
func (r *Record) Field(name string) (Field, bool) {
	i, ok := r.index[name]
	if !ok {
		return Field{}, false
	}
	return r.fields[i], true
}

// PrimaryKey returns the primary key field.
func (r *Record) PrimaryKey() Field {
	return r.fields[r.pk]
}

// HasOpaqueFields reports whether any field uses the opaque kind.
func (r *Record) HasOpaqueFields() bool {
	for _, f := range r.fields {
		if f.Kind == value.KindOpaque {
			return true
		}
	}
	return false
}
