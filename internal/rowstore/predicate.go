package rowstore

import (
	"strings"

	"github.com/roach88/recstore/internal/value"
)

// The predicate dialect is a SQL boolean expression over field names with
// "?" placeholders. Values are always parameterized, never interpolated.

// QuoteIdent quotes a field or kind name as a SQL identifier.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Equals builds "field = ?".
func Equals(field string, v value.Value) *Predicate {
	return &Predicate{
		Format: QuoteIdent(field) + " = ?",
		Args:   []value.Value{v},
	}
}

// In builds "field IN (?, ?, ...)". An empty set matches nothing.
func In(field string, vs []value.Value) *Predicate {
	if len(vs) == 0 {
		return &Predicate{Format: "0"}
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(vs)), ", ")
	args := make([]value.Value, len(vs))
	copy(args, vs)
	return &Predicate{
		Format: QuoteIdent(field) + " IN (" + placeholders + ")",
		Args:   args,
	}
}
