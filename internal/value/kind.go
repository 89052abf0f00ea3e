package value

import "fmt"

// Kind is the scalar kind declared for a field.
type Kind uint8

const (
	KindInteger Kind = iota
	KindDouble
	KindString
	KindBoolean
	KindDate
	KindBinary
	KindUUID
	KindURL
	// KindOpaque fields carry an encoded application payload. They cannot be
	// primary keys and cannot be used in predicates.
	KindOpaque
)

var kindNames = [...]string{
	KindInteger: "integer",
	KindDouble:  "double",
	KindString:  "string",
	KindBoolean: "boolean",
	KindDate:    "date",
	KindBinary:  "binary",
	KindUUID:    "uuid",
	KindURL:     "url",
	KindOpaque:  "opaque",
}

// Kinds lists every scalar kind in declaration order.
func Kinds() []Kind {
	return []Kind{KindInteger, KindDouble, KindString, KindBoolean, KindDate, KindBinary, KindUUID, KindURL, KindOpaque}
}

// String returns the lower-case kind name used in schema files and metadata.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	return int(k) < len(kindNames)
}

// ParseKind parses a kind name. "transformable" is accepted as an alias of
// "opaque" and "binary_data" as an alias of "binary".
func ParseKind(s string) (Kind, error) {
	switch s {
	case "transformable":
		return KindOpaque, nil
	case "binary_data":
		return KindBinary, nil
	}
	for k, name := range kindNames {
		if name == s {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("unknown scalar kind %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid scalar kind %d", uint8(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
