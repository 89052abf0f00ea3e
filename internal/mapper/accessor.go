package mapper

import (
	"fmt"
	"math"
	"net/url"

	"github.com/google/uuid"

	"github.com/roach88/recstore/internal/codec"
)

// Accessor reads and writes one field of a record of type T.
//
// Get returns the field's native value, or nil when an optional field is
// absent. Set receives the native projection of the stored value (see
// value.Native), a codec.Payload for opaque fields, or nil for null.
type Accessor[T any] struct {
	Get func(*T) any
	Set func(*T, any) error
}

// Accessors maps field names to accessors.
type Accessors[T any] map[string]Accessor[T]

// Scalar accesses a required field of type V.
func Scalar[T, V any](get func(*T) V, set func(*T, V)) Accessor[T] {
	return Accessor[T]{
		Get: func(r *T) any { return get(r) },
		Set: func(r *T, native any) error {
			if native == nil {
				return fmt.Errorf("null for a required field")
			}
			var v V
			if err := assign(&v, native); err != nil {
				return err
			}
			set(r, v)
			return nil
		},
	}
}

// Optional accesses an optional field stored as *V; nil means absent.
func Optional[T, V any](get func(*T) *V, set func(*T, *V)) Accessor[T] {
	return Accessor[T]{
		Get: func(r *T) any {
			p := get(r)
			if p == nil {
				return nil
			}
			return *p
		},
		Set: func(r *T, native any) error {
			if native == nil {
				set(r, nil)
				return nil
			}
			var v V
			if err := assign(&v, native); err != nil {
				return err
			}
			set(r, &v)
			return nil
		},
	}
}

// StringEnum accesses an enumeration whose raw value is a string.
// valid, when non-nil, rejects unknown raw values on read.
func StringEnum[T any, E ~string](get func(*T) E, set func(*T, E), valid func(E) bool) Accessor[T] {
	return Accessor[T]{
		Get: func(r *T) any { return string(get(r)) },
		Set: func(r *T, native any) error {
			s, ok := native.(string)
			if !ok {
				return fmt.Errorf("cannot assign %T to string enum", native)
			}
			e := E(s)
			if valid != nil && !valid(e) {
				return fmt.Errorf("unknown raw value %q", s)
			}
			set(r, e)
			return nil
		},
	}
}

// Integer is the set of integer types usable as enum raw values.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32
}

// IntEnum accesses an enumeration whose raw value is an integer.
// valid, when non-nil, rejects unknown raw values on read.
func IntEnum[T any, E Integer](get func(*T) E, set func(*T, E), valid func(E) bool) Accessor[T] {
	return Accessor[T]{
		Get: func(r *T) any { return int64(get(r)) },
		Set: func(r *T, native any) error {
			n, ok := native.(int64)
			if !ok {
				return fmt.Errorf("cannot assign %T to integer enum", native)
			}
			e := E(n)
			if int64(e) != n {
				return fmt.Errorf("raw value %d overflows %T", n, e)
			}
			if valid != nil && !valid(e) {
				return fmt.Errorf("unknown raw value %d", n)
			}
			set(r, e)
			return nil
		},
	}
}

// Opaque accesses a required field of arbitrary structure, stored encoded.
func Opaque[T, V any](get func(*T) V, set func(*T, V)) Accessor[T] {
	return Accessor[T]{
		Get: func(r *T) any { return get(r) },
		Set: func(r *T, native any) error {
			p, ok := native.(codec.Payload)
			if !ok {
				return fmt.Errorf("cannot decode %T as opaque payload", native)
			}
			var v V
			if err := codec.Decode(p, &v); err != nil {
				return err
			}
			set(r, v)
			return nil
		},
	}
}

// OptionalOpaque accesses an optional field of arbitrary structure; nil means absent.
func OptionalOpaque[T, V any](get func(*T) *V, set func(*T, *V)) Accessor[T] {
	return Accessor[T]{
		Get: func(r *T) any {
			p := get(r)
			if p == nil {
				return nil
			}
			return *p
		},
		Set: func(r *T, native any) error {
			if native == nil {
				set(r, nil)
				return nil
			}
			p, ok := native.(codec.Payload)
			if !ok {
				return fmt.Errorf("cannot decode %T as opaque payload", native)
			}
			v := new(V)
			if err := codec.Decode(p, v); err != nil {
				return err
			}
			set(r, v)
			return nil
		},
	}
}

// assign stores a native value in *dst, converting between Go types of the
// same family. Integer narrowing is range checked.
func assign[V any](dst *V, native any) error {
	if v, ok := native.(V); ok {
		*dst = v
		return nil
	}

	switch d := any(dst).(type) {
	case *int:
		return assignInt(d, native, math.MinInt, math.MaxInt)
	case *int8:
		return assignInt(d, native, math.MinInt8, math.MaxInt8)
	case *int16:
		return assignInt(d, native, math.MinInt16, math.MaxInt16)
	case *int32:
		return assignInt(d, native, math.MinInt32, math.MaxInt32)
	case *uint:
		return assignInt(d, native, 0, math.MaxInt64)
	case *uint8:
		return assignInt(d, native, 0, math.MaxUint8)
	case *uint16:
		return assignInt(d, native, 0, math.MaxUint16)
	case *uint32:
		return assignInt(d, native, 0, math.MaxUint32)
	case *uint64:
		return assignInt(d, native, 0, math.MaxInt64)
	case *float32:
		if f, ok := native.(float64); ok {
			*d = float32(f)
			return nil
		}
	case *url.URL:
		if u, ok := native.(*url.URL); ok && u != nil {
			*d = *u
			return nil
		}
	case *[16]byte:
		if u, ok := native.(uuid.UUID); ok {
			*d = u
			return nil
		}
	}
	return fmt.Errorf("cannot assign %T to %T", native, *dst)
}

func assignInt[I Integer | ~uint | ~uint64](dst *I, native any, lo, hi int64) error {
	n, ok := native.(int64)
	if !ok {
		return fmt.Errorf("cannot assign %T to %T", native, *dst)
	}
	if n < lo || n > hi {
		return fmt.Errorf("value %d overflows %T", n, *dst)
	}
	*dst = I(n)
	return nil
}
