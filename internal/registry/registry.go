// Package registry holds the schema history of every declared record kind.
//
// A Registry is built once from static declarations, validating every
// (kind, version) pair up front, and is read-only afterwards.
package registry

import (
	"fmt"

	"github.com/roach88/recstore/internal/rowstore"
	"github.com/roach88/recstore/internal/schema"
)

// Declaration declares one record kind. Schema is called once for every
// version from 0 to the registry's target version.
type Declaration struct {
	Kind   string
	Schema func(version int) (*schema.Record, error)
}

// Registry maps record kinds to their schema at each version.
type Registry struct {
	version int
	kinds   []string
	history map[string][]*schema.Record // kind -> schema per version
}

// New builds a registry whose highest version is version.
// Every declared kind must produce a valid schema at every version in [0, version].
func New(version int, decls ...Declaration) (*Registry, error) {
	if version < 0 {
		return nil, fmt.Errorf("registry: negative version %d", version)
	}

	r := &Registry{
		version: version,
		history: make(map[string][]*schema.Record, len(decls)),
	}

	for _, d := range decls {
		if d.Kind == "" {
			return nil, &schema.Error{Code: schema.ErrCodeInvalidSchema, Version: -1, Err: fmt.Errorf("empty kind name")}
		}
		if _, dup := r.history[d.Kind]; dup {
			return nil, &schema.Error{Code: schema.ErrCodeInvalidSchema, Kind: d.Kind, Version: -1, Err: fmt.Errorf("kind declared twice")}
		}
		if d.Schema == nil {
			return nil, &schema.Error{Code: schema.ErrCodeInvalidSchema, Kind: d.Kind, Version: -1, Err: fmt.Errorf("no schema function")}
		}

		versions := make([]*schema.Record, version+1)
		for v := 0; v <= version; v++ {
			rec, err := d.Schema(v)
			if err != nil {
				return nil, err
			}
			if rec == nil {
				return nil, &schema.Error{Code: schema.ErrCodeInvalidSchema, Kind: d.Kind, Version: v, Err: fmt.Errorf("schema function returned nil")}
			}
			if rec.Kind() != d.Kind || rec.Version() != v {
				return nil, &schema.Error{
					Code: schema.ErrCodeInvalidSchema, Kind: d.Kind, Version: v,
					Err: fmt.Errorf("schema function built %s v%d", rec.Kind(), rec.Version()),
				}
			}
			versions[v] = rec
		}

		r.kinds = append(r.kinds, d.Kind)
		r.history[d.Kind] = versions
	}

	return r, nil
}

// Version returns the highest declared version.
func (r *Registry) Version() int {
	return r.version
}

// Kinds returns the declared kinds in declaration order.
func (r *Registry) Kinds() []string {
	out := make([]string, len(r.kinds))
	copy(out, r.kinds)
	return out
}

// Schema returns the schema kind exposes at version.
func (r *Registry) Schema(kind string, version int) (*schema.Record, error) {
	versions, ok := r.history[kind]
	if !ok {
		return nil, schema.NewUnknownKindError(kind)
	}
	if version < 0 || version > r.version {
		return nil, &schema.Error{
			Code: schema.ErrCodeUnknownKind, Kind: kind, Version: version,
			Err: fmt.Errorf("version out of range [0, %d]", r.version),
		}
	}
	return versions[version], nil
}

// StorageSchema builds the engine descriptor for every kind at version.
func (r *Registry) StorageSchema(version int) (rowstore.Descriptor, error) {
	desc := rowstore.Descriptor{
		Version:  version,
		Entities: make([]rowstore.Entity, 0, len(r.kinds)),
	}
	for _, kind := range r.kinds {
		rec, err := r.Schema(kind, version)
		if err != nil {
			return rowstore.Descriptor{}, err
		}
		desc.Entities = append(desc.Entities, Entity(rec))
	}
	return desc, nil
}

// Entity converts a record schema to its engine representation.
func Entity(rec *schema.Record) rowstore.Entity {
	fields := rec.Fields()
	e := rowstore.Entity{
		Name:       rec.Kind(),
		PrimaryKey: rec.PrimaryKey().Name,
		Attributes: make([]rowstore.Attribute, len(fields)),
	}
	for i, f := range fields {
		e.Attributes[i] = rowstore.Attribute{
			Name:       f.Name,
			Kind:       f.Kind,
			Optional:   f.Optional,
			Default:    f.Hint.Default,
			RenamingID: f.Hint.RenamedFrom,
		}
	}
	return e
}
