package sqlite

import (
	"fmt"
	"strings"

	"github.com/roach88/recstore/internal/rowstore"
	"github.com/roach88/recstore/internal/value"
)

const (
	metadataTable = "recstore_metadata"
	rowIDColumn   = "z_pk"
	// reservedPrefix is refused for kind names so user tables never collide
	// with engine tables.
	reservedPrefix = "recstore_"
	nextSuffix     = "__next"
)

var q = rowstore.QuoteIdent

// columnType returns the declared SQLite column type for kind.
// Declared types avoid DATE/TIMESTAMP/BOOLEAN, which the driver would
// convert on scan.
func columnType(kind value.Kind) string {
	switch kind {
	case value.KindInteger, value.KindBoolean:
		return "INTEGER"
	case value.KindDouble:
		return "REAL"
	case value.KindString, value.KindDate, value.KindUUID, value.KindURL:
		return "TEXT"
	default:
		return "BLOB"
	}
}

// createTableSQL renders the CREATE TABLE statement for e under table name.
func createTableSQL(table string, e rowstore.Entity) string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE %s (\n", q(table))
	fmt.Fprintf(&b, "    %s INTEGER PRIMARY KEY AUTOINCREMENT", rowIDColumn)
	for _, a := range e.Attributes {
		fmt.Fprintf(&b, ",\n    %s %s", q(a.Name), columnType(a.Kind))
		if !a.Optional {
			b.WriteString(" NOT NULL")
		}
		if a.Name == e.PrimaryKey {
			b.WriteString(" UNIQUE")
		}
	}
	b.WriteString("\n)")
	return b.String()
}

// validateDescriptor rejects descriptors the engine cannot lay out.
func validateDescriptor(desc rowstore.Descriptor) error {
	seen := make(map[string]bool, len(desc.Entities))
	for _, e := range desc.Entities {
		lower := strings.ToLower(e.Name)
		switch {
		case e.Name == "":
			return fmt.Errorf("empty entity name")
		case strings.HasPrefix(lower, reservedPrefix):
			return fmt.Errorf("entity %q uses reserved prefix %q", e.Name, reservedPrefix)
		case strings.HasSuffix(lower, nextSuffix):
			return fmt.Errorf("entity %q uses reserved suffix %q", e.Name, nextSuffix)
		case seen[lower]:
			return fmt.Errorf("entity %q declared twice (names are case-insensitive)", e.Name)
		}
		seen[lower] = true

		if _, ok := e.Attribute(e.PrimaryKey); !ok {
			return fmt.Errorf("entity %q: primary key %q is not an attribute", e.Name, e.PrimaryKey)
		}
		for _, a := range e.Attributes {
			if strings.EqualFold(a.Name, rowIDColumn) {
				return fmt.Errorf("entity %q: attribute name %q is reserved", e.Name, a.Name)
			}
		}
	}
	return nil
}

// columnList renders the quoted attribute names of e, comma separated.
func columnList(e rowstore.Entity) string {
	cols := make([]string, len(e.Attributes))
	for i, a := range e.Attributes {
		cols[i] = q(a.Name)
	}
	return strings.Join(cols, ", ")
}

func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
