package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/recstore/internal/rowstore"
	"github.com/roach88/recstore/internal/value"
)

// personEntity covers every storage kind.
func personEntity() rowstore.Entity {
	return rowstore.Entity{
		Name:       "Person",
		PrimaryKey: "id",
		Attributes: []rowstore.Attribute{
			{Name: "id", Kind: value.KindString},
			{Name: "name", Kind: value.KindString},
			{Name: "age", Kind: value.KindInteger, Optional: true},
			{Name: "score", Kind: value.KindDouble},
			{Name: "active", Kind: value.KindBoolean},
			{Name: "joined", Kind: value.KindDate},
			{Name: "avatar", Kind: value.KindBinary, Optional: true},
			{Name: "token", Kind: value.KindUUID},
			{Name: "homepage", Kind: value.KindURL, Optional: true},
			{Name: "prefs", Kind: value.KindOpaque, Optional: true},
		},
	}
}

func simpleV0() rowstore.Descriptor {
	return rowstore.Descriptor{
		Version: 0,
		Entities: []rowstore.Entity{{
			Name:       "Contact",
			PrimaryKey: "id",
			Attributes: []rowstore.Attribute{
				{Name: "id", Kind: value.KindString},
				{Name: "name", Kind: value.KindString},
			},
		}},
	}
}

// createTestStore opens a fresh file store for desc.
func createTestStore(t *testing.T, desc rowstore.Descriptor) (*Engine, rowstore.Handle, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.sqlite")
	e := New()
	h, err := e.Open(context.Background(), desc, path)
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return e, h, path
}

func insert(t *testing.T, h rowstore.Handle, kind string, values map[string]value.Value) rowstore.Row {
	t.Helper()
	var row rowstore.Row
	err := h.Mutate(context.Background(), func(tx rowstore.Tx) error {
		var err error
		row, err = tx.Insert(context.Background(), kind, values)
		return err
	})
	require.NoError(t, err)
	return row
}

func contact(id, name string) map[string]value.Value {
	return map[string]value.Value{"id": value.String(id), "name": value.String(name)}
}
