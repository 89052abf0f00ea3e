package value

import (
	"bytes"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// Value is a sealed interface over the scalar kinds.
// Only the types in this file implement it.
type Value interface {
	typedValue() // Sealed
}

// Null is an absent value. Only optional fields may hold it.
type Null struct{}

func (Null) typedValue() {}

// Int is an integer value.
type Int int64

func (Int) typedValue() {}

// Double is a floating point value.
type Double float64

func (Double) typedValue() {}

// String is a string value.
type String string

func (String) typedValue() {}

// Bool is a boolean value.
type Bool bool

func (Bool) typedValue() {}

// Date is a point in time.
type Date time.Time

func (Date) typedValue() {}

// Time returns d as a time.Time.
func (d Date) Time() time.Time { return time.Time(d) }

// Dates must fall within years MinYear to MaxYear in UTC.
const (
	MinYear = 0
	MaxYear = 9999
)

// checkDate rejects times outside the storable year range.
func checkDate(t time.Time) error {
	if y := t.UTC().Year(); y < MinYear || y > MaxYear {
		return fmt.Errorf("year %d outside %d..%d", y, MinYear, MaxYear)
	}
	return nil
}

// Binary is a raw byte payload.
type Binary []byte

func (Binary) typedValue() {}

// UUID is a 128-bit identifier.
type UUID uuid.UUID

func (UUID) typedValue() {}

// URL holds the string form of a parsed URL.
type URL string

func (URL) typedValue() {}

// Opaque holds an encoded application payload (see internal/codec).
type Opaque []byte

func (Opaque) typedValue() {}

// KindOf returns the scalar kind of v. Null has no kind and returns false.
func KindOf(v Value) (Kind, bool) {
	switch v.(type) {
	case Int:
		return KindInteger, true
	case Double:
		return KindDouble, true
	case String:
		return KindString, true
	case Bool:
		return KindBoolean, true
	case Date:
		return KindDate, true
	case Binary:
		return KindBinary, true
	case UUID:
		return KindUUID, true
	case URL:
		return KindURL, true
	case Opaque:
		return KindOpaque, true
	default:
		return 0, false
	}
}

// IsNull reports whether v is nil or Null.
func IsNull(v Value) bool {
	if v == nil {
		return true
	}
	_, ok := v.(Null)
	return ok
}

// Equal reports whether a and b hold the same variant and value.
// Dates compare with time.Time.Equal.
func Equal(a, b Value) bool {
	if IsNull(a) || IsNull(b) {
		return IsNull(a) && IsNull(b)
	}
	switch x := a.(type) {
	case Int:
		y, ok := b.(Int)
		return ok && x == y
	case Double:
		y, ok := b.(Double)
		return ok && x == y
	case String:
		y, ok := b.(String)
		return ok && x == y
	case Bool:
		y, ok := b.(Bool)
		return ok && x == y
	case Date:
		y, ok := b.(Date)
		return ok && x.Time().Equal(y.Time())
	case Binary:
		y, ok := b.(Binary)
		return ok && bytes.Equal(x, y)
	case UUID:
		y, ok := b.(UUID)
		return ok && x == y
	case URL:
		y, ok := b.(URL)
		return ok && x == y
	case Opaque:
		y, ok := b.(Opaque)
		return ok && bytes.Equal(x, y)
	default:
		return false
	}
}

// Native projects v into its native Go representation:
//
//	Int -> int64, Double -> float64, String -> string, Bool -> bool,
//	Date -> time.Time, Binary -> []byte, UUID -> uuid.UUID, URL -> *url.URL,
//	Opaque -> []byte, Null -> nil.
func Native(v Value) (any, error) {
	switch x := v.(type) {
	case nil, Null:
		return nil, nil
	case Int:
		return int64(x), nil
	case Double:
		return float64(x), nil
	case String:
		return string(x), nil
	case Bool:
		return bool(x), nil
	case Date:
		return x.Time(), nil
	case Binary:
		return []byte(x), nil
	case UUID:
		return uuid.UUID(x), nil
	case URL:
		u, err := url.Parse(string(x))
		if err != nil {
			return nil, fmt.Errorf("stored url %q: %w", string(x), err)
		}
		return u, nil
	case Opaque:
		return []byte(x), nil
	default:
		return nil, fmt.Errorf("unknown value type: %T", v)
	}
}

// Format renders v for logs and CLI output.
func Format(v Value) string {
	switch x := v.(type) {
	case nil, Null:
		return "null"
	case String:
		return fmt.Sprintf("%q", string(x))
	case Date:
		return x.Time().Format(time.RFC3339Nano)
	case UUID:
		return uuid.UUID(x).String()
	case URL:
		return string(x)
	case Binary:
		return fmt.Sprintf("binary(%d)", len(x))
	case Opaque:
		return fmt.Sprintf("opaque(%d)", len(x))
	default:
		return fmt.Sprintf("%v", x)
	}
}
