// Package mapper converts between typed records and storage rows.
//
// Field access goes through an explicit accessor table per record type;
// nothing is discovered by reflection.
package mapper

import (
	"fmt"

	"github.com/roach88/recstore/internal/codec"
	"github.com/roach88/recstore/internal/rowstore"
	"github.com/roach88/recstore/internal/schema"
	"github.com/roach88/recstore/internal/value"
)

// Marshal reads every field of rec from r and returns the row values.
//
// Opaque fields are encoded with the codec. Enumerations implementing
// value.IntRawValuer or value.StringRawValuer are projected to their raw
// value before coercion. An absent optional field becomes null; an absent
// required field is a PROPERTY_MISSING error.
func Marshal[T any](rec *schema.Record, acc Accessors[T], r *T) (map[string]value.Value, error) {
	out := make(map[string]value.Value, rec.Len())
	for _, f := range rec.Fields() {
		v, err := marshalField(rec.Kind(), f, acc, r)
		if err != nil {
			return nil, err
		}
		out[f.Name] = v
	}
	return out, nil
}

func marshalField[T any](kind string, f schema.Field, acc Accessors[T], r *T) (value.Value, error) {
	a, ok := acc[f.Name]
	if !ok || a.Get == nil {
		return nil, propertyMissing(kind, f.Name, fmt.Errorf("no accessor"))
	}

	raw := a.Get(r)
	if raw == nil {
		if f.Optional {
			return value.Null{}, nil
		}
		return nil, propertyMissing(kind, f.Name, nil)
	}

	var (
		v   value.Value
		err error
	)
	if f.Kind == value.KindOpaque {
		v, err = encodeOpaque(raw)
	} else {
		v, err = value.Coerce(f.Kind, raw)
	}
	if err != nil {
		return nil, coercionFailure(kind, f.Name, err)
	}

	if value.IsNull(v) && !f.Optional {
		return nil, propertyMissing(kind, f.Name, nil)
	}
	return v, nil
}

func encodeOpaque(raw any) (value.Value, error) {
	switch x := raw.(type) {
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

// Unmarshal writes every field of rec from row into r.
// Opaque fields are handed to their accessor as a codec.Payload.
func Unmarshal[T any](rec *schema.Record, acc Accessors[T], row rowstore.Row, r *T) error {
	for _, f := range rec.Fields() {
		a, ok := acc[f.Name]
		if !ok || a.Set == nil {
			return propertyMissing(rec.Kind(), f.Name, fmt.Errorf("no accessor"))
		}

		native, err := nativeOf(f, row.Get(f.Name))
		if err != nil {
			return coercionFailure(rec.Kind(), f.Name, err)
		}
		if native == nil && !f.Optional {
			return coercionFailure(rec.Kind(), f.Name, fmt.Errorf("stored null for a required field"))
		}
		if err := a.Set(r, native); err != nil {
			return coercionFailure(rec.Kind(), f.Name, err)
		}
	}
	return nil
}

func nativeOf(f schema.Field, v value.Value) (any, error) {
	if value.IsNull(v) {
		return nil, nil
	}
	if k, _ := value.KindOf(v); k != f.Kind {
		return nil, fmt.Errorf("stored %s for a %s field", k, f.Kind)
	}
	if o, ok := v.(value.Opaque); ok {
		return codec.Payload(o), nil
	}
	return value.Native(v)
}

// PrimaryKeyOf returns the coerced primary-key value of r.
func PrimaryKeyOf[T any](rec *schema.Record, acc Accessors[T], r *T) (value.Value, error) {
	return marshalField(rec.Kind(), rec.PrimaryKey(), acc, r)
}

// Arg coerces a predicate argument. Opaque values and unsupported runtime
// types are coercion failures.
func Arg(kind string, v any) (value.Value, error) {
	tv, err := value.FromGo(v)
	if err != nil {
		return nil, coercionFailure(kind, "", err)
	}
	if _, ok := tv.(value.Opaque); ok {
		return nil, coercionFailure(kind, "", fmt.Errorf("opaque values cannot be predicate arguments"))
	}
	return tv, nil
}
