package sqlite

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/recstore/internal/value"
)

// dateLayout is fixed width in UTC, so stored dates sort chronologically as text.
const dateLayout = "2006-01-02T15:04:05.000000000Z"

// toDriver converts a value to the driver argument stored in its column.
func toDriver(v value.Value) any {
	switch x := v.(type) {
	case nil, value.Null:
		return nil
	case value.Int:
		return int64(x)
	case value.Double:
		return float64(x)
	case value.String:
		return string(x)
	case value.Bool:
		if x {
			return int64(1)
		}
		return int64(0)
	case value.Date:
		return time.Time(x).UTC().Format(dateLayout)
	case value.Binary:
		return blob(x)
	case value.UUID:
		return uuid.UUID(x).String()
	case value.URL:
		return string(x)
	case value.Opaque:
		return blob(x)
	default:
		panic(fmt.Sprintf("sqlite: unhandled value type %T", v))
	}
}

// blob keeps empty byte slices distinct from NULL.
func blob(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

// fromDriver converts a scanned column to a value of kind.
func fromDriver(kind value.Kind, raw any) (value.Value, error) {
	if raw == nil {
		return value.Null{}, nil
	}

	switch kind {
	case value.KindInteger:
		switch x := raw.(type) {
		case int64:
			return value.Int(x), nil
		case bool:
			if x {
				return value.Int(1), nil
			}
			return value.Int(0), nil
		}
	case value.KindDouble:
		switch x := raw.(type) {
		case float64:
			return value.Double(x), nil
		case int64:
			return value.Double(float64(x)), nil
		}
	case value.KindString:
		if s, ok := textOf(raw); ok {
			return value.String(s), nil
		}
	case value.KindBoolean:
		switch x := raw.(type) {
		case int64:
			return value.Bool(x != 0), nil
		case bool:
			return value.Bool(x), nil
		}
	case value.KindDate:
		if x, ok := raw.(time.Time); ok {
			return value.Date(x.UTC()), nil
		}
		if s, ok := textOf(raw); ok {
			t, err := time.Parse(dateLayout, s)
			if err != nil {
				return nil, fmt.Errorf("stored date: %w", err)
			}
			return value.Date(t), nil
		}
	case value.KindBinary, value.KindOpaque:
		var b []byte
		switch x := raw.(type) {
		case []byte:
			b = append([]byte{}, x...)
		case string:
			b = []byte(x)
		default:
			return nil, fmt.Errorf("cannot read %s from %T", kind, raw)
		}
		if kind == value.KindOpaque {
			return value.Opaque(b), nil
		}
		return value.Binary(b), nil
	case value.KindUUID:
		if s, ok := textOf(raw); ok {
			id, err := uuid.Parse(s)
			if err != nil {
				return nil, fmt.Errorf("stored uuid: %w", err)
			}
			return value.UUID(id), nil
		}
	case value.KindURL:
		if s, ok := textOf(raw); ok {
			return value.URL(s), nil
		}
	}
	return nil, fmt.Errorf("cannot read %s from %T", kind, raw)
}

func textOf(raw any) (string, bool) {
	switch x := raw.(type) {
	case string:
		return x, true
	case []byte:
		return string(x), true
	}
	return "", false
}
