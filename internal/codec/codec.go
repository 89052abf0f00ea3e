// Package codec encodes opaque field payloads.
//
// Opaque fields hold arbitrary structured application values. They are stored
// as JSON produced by goccy/go-json, which keeps nested structures intact at
// the cost of making the field unusable in predicates.
package codec

import (
	"bytes"
	"fmt"

	json "github.com/goccy/go-json"
)

// Payload is an encoded opaque value.
type Payload []byte

// Encode serializes v into a payload.
func Encode(v any) (Payload, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return Payload(data), nil
}

// Decode deserializes p into the value pointed to by into.
func Decode(p Payload, into any) error {
	if err := json.Unmarshal(p, into); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

// DecodeAny deserializes p into generic maps, slices and scalars.
// Numbers are kept as json.Number to avoid float64 precision loss.
func DecodeAny(p Payload) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(p))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return v, nil
}
