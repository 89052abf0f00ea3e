package recstore

import (
	"fmt"

	"github.com/roach88/recstore/internal/mapper"
	"github.com/roach88/recstore/internal/registry"
	"github.com/roach88/recstore/internal/schema"
)

// Accessor reads and writes one field of T.
type Accessor[T any] = mapper.Accessor[T]

// Record is a schema-less record keyed by field name.
type Record = mapper.Record

// KindDecl is a record kind that can be part of a Model.
type KindDecl interface {
	Name() string
	declaration() registry.Declaration
}

// Kind is a record kind whose instances are values of T.
type Kind[T any] struct {
	name      string
	build     func(version int) (*schema.Record, error)
	accessors mapper.Accessors[T]
	dynamic   bool
}

// NewKind declares a record kind. declare adds the kind's fields at version v
// to s; it is called once for every version of the model.
func NewKind[T any](name string, declare func(v int, s *SchemaBuilder)) *Kind[T] {
	return &Kind[T]{
		name: name,
		build: func(version int) (*schema.Record, error) {
			b := schema.New()
			declare(version, b)
			return b.Build(name, version)
		},
		accessors: make(mapper.Accessors[T]),
	}
}

// NewDynamicKind declares a kind whose records are Record maps. Accessors
// are derived from the schema, so none need registering.
func NewDynamicKind(name string, build func(version int) (*SchemaRecord, error)) *Kind[Record] {
	return &Kind[Record]{name: name, build: build, dynamic: true}
}

// Accessor registers the accessor for field and returns k.
func (k *Kind[T]) Accessor(field string, acc Accessor[T]) *Kind[T] {
	if k.accessors == nil {
		k.accessors = make(mapper.Accessors[T])
	}
	k.accessors[field] = acc
	return k
}

// Name returns the kind name.
func (k *Kind[T]) Name() string {
	return k.name
}

func (k *Kind[T]) declaration() registry.Declaration {
	return registry.Declaration{Kind: k.name, Schema: k.build}
}

// accessorsFor returns the accessor table for rec.
func (k *Kind[T]) accessorsFor(rec *schema.Record) mapper.Accessors[T] {
	if k.dynamic {
		if acc, ok := any(mapper.Dynamic(rec)).(mapper.Accessors[T]); ok {
			return acc
		}
	}
	return k.accessors
}

// Field accesses a required field of type V.
func Field[T, V any](get func(*T) V, set func(*T, V)) Accessor[T] {
	return mapper.Scalar(get, set)
}

// OptionalField accesses an optional field held as *V.
func OptionalField[T, V any](get func(*T) *V, set func(*T, *V)) Accessor[T] {
	return mapper.Optional(get, set)
}

// StringEnumField accesses a string-backed enumeration. valid may be nil.
func StringEnumField[T any, E ~string](get func(*T) E, set func(*T, E), valid func(E) bool) Accessor[T] {
	return mapper.StringEnum(get, set, valid)
}

// IntEnumField accesses an integer-backed enumeration. valid may be nil.
func IntEnumField[T any, E mapper.Integer](get func(*T) E, set func(*T, E), valid func(E) bool) Accessor[T] {
	return mapper.IntEnum(get, set, valid)
}

// OpaqueField accesses a required field stored as an encoded payload.
func OpaqueField[T, V any](get func(*T) V, set func(*T, V)) Accessor[T] {
	return mapper.Opaque(get, set)
}

// OptionalOpaqueField accesses an optional field stored as an encoded payload.
func OptionalOpaqueField[T, V any](get func(*T) *V, set func(*T, *V)) Accessor[T] {
	return mapper.OptionalOpaque(get, set)
}

// AccessorFunc builds an accessor from raw get and set functions.
// See mapper.Accessor for the values they exchange.
func AccessorFunc[T any](get func(*T) any, set func(*T, any) error) Accessor[T] {
	return Accessor[T]{Get: get, Set: set}
}

// Model is the full schema history an application expects.
type Model struct {
	Version int // Highest schema version; stores are migrated up to it
	Kinds   []KindDecl
}

func (m Model) registry() (*registry.Registry, error) {
	decls := make([]registry.Declaration, len(m.Kinds))
	for i, k := range m.Kinds {
		if k == nil {
			return nil, fmt.Errorf("model: kind #%d is nil", i)
		}
		decls[i] = k.declaration()
	}
	return registry.New(m.Version, decls...)
}
