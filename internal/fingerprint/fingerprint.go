// Package fingerprint computes a structural hash of a storage schema.
//
// Two descriptors share a fingerprint exactly when a store created for one
// can be opened with the other: same kinds, same field names, same storage
// kinds, same optionality and same primary keys. Field order, defaults,
// renaming identifiers and the version number are not part of the hash.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/roach88/recstore/internal/rowstore"
)

// Domain separates schema fingerprints from any other hash.
// The version suffix allows the algorithm to change later.
const Domain = "recstore/schema/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Of returns the hex fingerprint of desc.
func Of(desc rowstore.Descriptor) (string, error) {
	entities := make(map[string]any, len(desc.Entities))
	for _, e := range desc.Entities {
		if _, dup := entities[e.Name]; dup {
			return "", fmt.Errorf("fingerprint: duplicate entity %q", e.Name)
		}
		attrs := make(map[string]any, len(e.Attributes))
		for _, a := range e.Attributes {
			attrs[a.Name] = map[string]any{
				"kind":     a.Kind.String(),
				"optional": a.Optional,
			}
		}
		entities[e.Name] = map[string]any{
			"primary_key": e.PrimaryKey,
			"attributes":  attrs,
		}
	}

	canonical, err := marshalCanonical(map[string]any{"entities": entities})
	if err != nil {
		return "", fmt.Errorf("fingerprint: failed to marshal: %w", err)
	}
	return hashWithDomain(Domain, canonical), nil
}

// MustOf is like Of but panics on error.
// Use only in tests or when desc is known to be valid.
func MustOf(desc rowstore.Descriptor) string {
	fp, err := Of(desc)
	if err != nil {
		panic(err)
	}
	return fp
}
