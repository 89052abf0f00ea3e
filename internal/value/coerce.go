package value

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// IntRawValuer is implemented by enumerations backed by an integer raw value.
type IntRawValuer interface {
	IntRawValue() int64
}

// StringRawValuer is implemented by enumerations backed by a string raw value.
type StringRawValuer interface {
	StringRawValue() string
}

// CoercionError reports a native value that cannot be represented in a kind.
type CoercionError struct {
	Kind     Kind   // Target kind, unset when Inferred
	Inferred bool   // The kind was inferred from the value (predicate arguments)
	GoType   string // Dynamic type of the rejected value
	Reason   string // Optional detail
}

func (e *CoercionError) Error() string {
	msg := fmt.Sprintf("cannot coerce %s to %s", e.GoType, e.Kind)
	if e.Inferred {
		msg = fmt.Sprintf("unsupported argument type %s", e.GoType)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

// Project applies raw-value projection to enumerations. Other values are
// returned unchanged. Projection takes precedence over every other coercion.
func Project(v any) any {
	switch e := v.(type) {
	case IntRawValuer:
		return e.IntRawValue()
	case StringRawValuer:
		return e.StringRawValue()
	default:
		return v
	}
}

// Coerce converts a native Go value into the variant for kind.
// nil (and nil pointers of supported types) become Null.
func Coerce(kind Kind, v any) (Value, error) {
	v = Project(v)
	if v == nil {
		return Null{}, nil
	}
	if tv, ok := v.(Value); ok {
		if IsNull(tv) {
			return Null{}, nil
		}
		if k, _ := KindOf(tv); k != kind {
			return nil, &CoercionError{Kind: kind, GoType: fmt.Sprintf("%T", v)}
		}
		if d, ok := tv.(Date); ok {
			if err := checkDate(d.Time()); err != nil {
				return nil, &CoercionError{Kind: kind, GoType: fmt.Sprintf("%T", v), Reason: err.Error()}
			}
		}
		return tv, nil
	}

	fail := func(reason string) (Value, error) {
		return nil, &CoercionError{Kind: kind, GoType: fmt.Sprintf("%T", v), Reason: reason}
	}
	date := func(t time.Time) (Value, error) {
		if err := checkDate(t); err != nil {
			return fail(err.Error())
		}
		return Date(t), nil
	}

	switch kind {
	case KindInteger:
		n, ok, err := toInt64(v)
		if err != nil {
			return fail(err.Error())
		}
		if ok {
			return Int(n), nil
		}
	case KindDouble:
		switch x := v.(type) {
		case float64:
			return Double(x), nil
		case float32:
			return Double(x), nil
		}
		if n, ok, _ := toInt64(v); ok {
			return Double(float64(n)), nil
		}
	case KindString:
		if s, ok := v.(string); ok {
			return String(s), nil
		}
	case KindBoolean:
		if b, ok := v.(bool); ok {
			return Bool(b), nil
		}
	case KindDate:
		switch x := v.(type) {
		case time.Time:
			return date(x)
		case *time.Time:
			if x == nil {
				return Null{}, nil
			}
			return date(*x)
		}
	case KindBinary:
		if b, ok := v.([]byte); ok {
			return Binary(b), nil
		}
	case KindUUID:
		switch x := v.(type) {
		case uuid.UUID:
			return UUID(x), nil
		case *uuid.UUID:
			if x == nil {
				return Null{}, nil
			}
			return UUID(*x), nil
		case [16]byte:
			return UUID(x), nil
		}
	case KindURL:
		switch x := v.(type) {
		case *url.URL:
			if x == nil {
				return Null{}, nil
			}
			return URL(x.String()), nil
		case url.URL:
			return URL(x.String()), nil
		}
	case KindOpaque:
		if b, ok := v.([]byte); ok {
			return Opaque(b), nil
		}
		return fail("opaque values must be encoded before coercion")
	default:
		return fail("invalid kind")
	}
	return fail("")
}

// FromGo infers the variant for a predicate argument. Any runtime type outside
// the coercion table is rejected.
func FromGo(v any) (Value, error) {
	v = Project(v)
	switch x := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		if d, ok := x.(Date); ok {
			if err := checkDate(d.Time()); err != nil {
				return nil, &CoercionError{Inferred: true, GoType: fmt.Sprintf("%T", v), Reason: err.Error()}
			}
		}
		return x, nil
	case string:
		return String(x), nil
	case bool:
		return Bool(x), nil
	case float64:
		return Double(x), nil
	case float32:
		return Double(x), nil
	case time.Time:
		if err := checkDate(x); err != nil {
			return nil, &CoercionError{Inferred: true, GoType: fmt.Sprintf("%T", v), Reason: err.Error()}
		}
		return Date(x), nil
	case []byte:
		return Binary(x), nil
	case uuid.UUID:
		return UUID(x), nil
	case *url.URL:
		if x == nil {
			return Null{}, nil
		}
		return URL(x.String()), nil
	case url.URL:
		return URL(x.String()), nil
	}
	n, ok, err := toInt64(v)
	if err != nil {
		return nil, &CoercionError{Inferred: true, GoType: fmt.Sprintf("%T", v), Reason: err.Error()}
	}
	if ok {
		return Int(n), nil
	}
	return nil, &CoercionError{Inferred: true, GoType: fmt.Sprintf("%T", v)}
}

// CoerceJSON converts a loosely typed value, as decoded from JSON, YAML or
// CUE, into the variant for kind. Dates are RFC 3339 strings, binary values
// are base64 strings, UUIDs and URLs are their string forms.
func CoerceJSON(kind Kind, v any) (Value, error) {
	if v == nil {
		return Null{}, nil
	}
	fail := func(reason string) (Value, error) {
		return nil, &CoercionError{Kind: kind, GoType: fmt.Sprintf("%T", v), Reason: reason}
	}

	switch kind {
	case KindInteger:
		switch x := v.(type) {
		case json.Number:
			n, err := x.Int64()
			if err != nil {
				return fail(err.Error())
			}
			return Int(n), nil
		case float64:
			if x != math.Trunc(x) {
				return fail("not an integer")
			}
			return Int(int64(x)), nil
		}
	case KindDouble:
		if x, ok := v.(json.Number); ok {
			f, err := x.Float64()
			if err != nil {
				return fail(err.Error())
			}
			return Double(f), nil
		}
	case KindDate:
		if s, ok := v.(string); ok {
			t, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				return fail(err.Error())
			}
			return Coerce(kind, t)
		}
	case KindBinary:
		if s, ok := v.(string); ok {
			b, err := base64.StdEncoding.DecodeString(s)
			if err != nil {
				return fail(err.Error())
			}
			return Binary(b), nil
		}
	case KindUUID:
		if s, ok := v.(string); ok {
			id, err := uuid.Parse(s)
			if err != nil {
				return fail(err.Error())
			}
			return UUID(id), nil
		}
	case KindURL:
		if s, ok := v.(string); ok {
			u, err := url.Parse(s)
			if err != nil {
				return fail(err.Error())
			}
			return URL(u.String()), nil
		}
	}
	return Coerce(kind, v)
}

// toInt64 converts the integer family. ok is false for non-integers.
func toInt64(v any) (n int64, ok bool, err error) {
	switch x := v.(type) {
	case int:
		return int64(x), true, nil
	case int8:
		return int64(x), true, nil
	case int16:
		return int64(x), true, nil
	case int32:
		return int64(x), true, nil
	case int64:
		return x, true, nil
	case uint8:
		return int64(x), true, nil
	case uint16:
		return int64(x), true, nil
	case uint32:
		return int64(x), true, nil
	case uint:
		if uint64(x) > math.MaxInt64 {
			return 0, false, fmt.Errorf("%d overflows int64", x)
		}
		return int64(x), true, nil
	case uint64:
		if x > math.MaxInt64 {
			return 0, false, fmt.Errorf("%d overflows int64", x)
		}
		return int64(x), true, nil
	default:
		return 0, false, nil
	}
}
