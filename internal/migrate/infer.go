package migrate

import (
	"fmt"

	"github.com/roach88/recstore/internal/registry"
	"github.com/roach88/recstore/internal/rowstore"
	"github.com/roach88/recstore/internal/schema"
)

// InferMapping derives how every field of to is filled from from.
//
// For each target field, in order of precedence:
//  1. RenamedFrom names a field of from: copy that field
//  2. from has a field of the same name: copy it
//  3. a default is declared: fill with the default
//  4. otherwise fill with null
//
// A copied field must keep its kind. A field that was optional and becomes
// required also carries its default, which replaces stored nulls.
func InferMapping(from, to *schema.Record) (rowstore.EntityMapping, error) {
	em := rowstore.EntityMapping{Kind: to.Kind()}

	for _, f := range to.Fields() {
		fm := rowstore.FieldMapping{Target: f.Name}

		src, ok := sourceField(from, f)
		switch {
		case ok:
			if src.Kind != f.Kind {
				return rowstore.EntityMapping{}, fmt.Errorf("%s.%s: cannot convert %s to %s", to.Kind(), f.Name, src.Kind, f.Kind)
			}
			fm.Source = src.Name
			if src.Optional && !f.Optional && f.Hint.HasDefault() {
				fm.Default = f.Hint.Default
			}
		case f.Hint.HasDefault():
			fm.Default = f.Hint.Default
		}

		em.Fields = append(em.Fields, fm)
	}
	return em, nil
}

func sourceField(from *schema.Record, f schema.Field) (schema.Field, bool) {
	if f.Hint.RenamedFrom != "" {
		if src, ok := from.Field(f.Hint.RenamedFrom); ok {
			return src, true
		}
	}
	return from.Field(f.Name)
}

// InferStep builds the mapping for every kind of reg from version to version+1.
// Kinds are declared at every version, so each kind maps from itself.
func InferStep(reg *registry.Registry, version int) (rowstore.Mapping, error) {
	var m rowstore.Mapping
	for _, kind := range reg.Kinds() {
		from, err := reg.Schema(kind, version)
		if err != nil {
			return rowstore.Mapping{}, err
		}
		to, err := reg.Schema(kind, version+1)
		if err != nil {
			return rowstore.Mapping{}, err
		}
		em, err := InferMapping(from, to)
		if err != nil {
			return rowstore.Mapping{}, err
		}
		m.Entities = append(m.Entities, em)
	}
	return m, nil
}
