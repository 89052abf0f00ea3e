package rowstore

import (
	"github.com/roach88/recstore/internal/value"
)

// Row is one persisted record instance.
type Row struct {
	Kind   string                 // Record kind (table)
	ID     int64                  // Engine row identity
	Values map[string]value.Value // Field name -> stored value
}

// Get returns the stored value for field, or Null when absent.
func (r Row) Get(field string) value.Value {
	if v, ok := r.Values[field]; ok && v != nil {
		return v
	}
	return value.Null{}
}

// Descriptor is the storage schema for every declared kind at one version.
type Descriptor struct {
	Version  int      `json:"version"`
	Entities []Entity `json:"entities"`
}

// Entity returns the entity named kind.
func (d Descriptor) Entity(kind string) (Entity, bool) {
	for _, e := range d.Entities {
		if e.Name == kind {
			return e, true
		}
	}
	return Entity{}, false
}

// Entity is the storage schema of one record kind.
type Entity struct {
	Name       string      `json:"name"`
	PrimaryKey string      `json:"primary_key"`
	Attributes []Attribute `json:"attributes"`
}

// Attribute returns the attribute named field.
func (e Entity) Attribute(field string) (Attribute, bool) {
	for _, a := range e.Attributes {
		if a.Name == field {
			return a, true
		}
	}
	return Attribute{}, false
}

// Attribute is the storage schema of one field.
type Attribute struct {
	Name       string      `json:"name"`
	Kind       value.Kind  `json:"kind"`
	Optional   bool        `json:"optional"`
	Default    value.Value `json:"-"`
	RenamingID string      `json:"renaming_id,omitempty"`
}

// Metadata is the engine-specific blob recording which schema a store satisfies.
// Only the engine that produced it can interpret it.
type Metadata []byte

// Mapping describes how one migration step fills every entity of the target version.
type Mapping struct {
	Entities []EntityMapping
}

// Entity returns the mapping for kind.
func (m Mapping) Entity(kind string) (EntityMapping, bool) {
	for _, e := range m.Entities {
		if e.Kind == kind {
			return e, true
		}
	}
	return EntityMapping{}, false
}

// EntityMapping fills one target entity from its source entity.
type EntityMapping struct {
	Kind   string
	Fields []FieldMapping
}

// FieldMapping fills one target field.
//   - Source != "": copy the source field's value, substituting Default
//     for nulls when Default != nil
//   - Source == "" and Default != nil: fill with Default
//   - otherwise: fill with null
type FieldMapping struct {
	Target  string
	Source  string
	Default value.Value
}

// Predicate is an engine-dialect filter with positional arguments.
// The format is passed to the engine verbatim.
type Predicate struct {
	Format string
	Args   []value.Value
}

// ChangeBatch groups the rows changed by one mutation, across every kind.
type ChangeBatch struct {
	Inserted []Row
	Updated  []Row
	Deleted  []Row
}

// Empty reports whether the batch holds no rows.
func (b ChangeBatch) Empty() bool {
	return len(b.Inserted) == 0 && len(b.Updated) == 0 && len(b.Deleted) == 0
}

// Filter returns the part of the batch belonging to kind.
func (b ChangeBatch) Filter(kind string) ChangeBatch {
	return ChangeBatch{
		Inserted: filterRows(b.Inserted, kind),
		Updated:  filterRows(b.Updated, kind),
		Deleted:  filterRows(b.Deleted, kind),
	}
}

func filterRows(rows []Row, kind string) []Row {
	var out []Row
	for _, r := range rows {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}
