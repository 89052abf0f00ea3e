package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recstore/internal/rowstore"
	"github.com/roach88/recstore/internal/value"
)

func simpleV1() rowstore.Descriptor {
	return rowstore.Descriptor{
		Version: 1,
		Entities: []rowstore.Entity{
			{
				Name:       "Contact",
				PrimaryKey: "id",
				Attributes: []rowstore.Attribute{
					{Name: "id", Kind: value.KindString},
					{Name: "fullName", Kind: value.KindString, RenamingID: "name"},
					{Name: "age", Kind: value.KindInteger, Default: value.Int(0)},
				},
			},
			{
				Name:       "Tag",
				PrimaryKey: "label",
				Attributes: []rowstore.Attribute{{Name: "label", Kind: value.KindString}},
			},
		},
	}
}

func simpleV1Mapping() rowstore.Mapping {
	return rowstore.Mapping{Entities: []rowstore.EntityMapping{{
		Kind: "Contact",
		Fields: []rowstore.FieldMapping{
			{Target: "id", Source: "id"},
			{Target: "fullName", Source: "name"},
			{Target: "age", Default: value.Int(0)},
		},
	}}}
}

func TestCopyRowsSQL(t *testing.T) {
	v0, _ := simpleV0().Entity("Contact")
	v1, _ := simpleV1().Entity("Contact")
	em, _ := simpleV1Mapping().Entity("Contact")

	sql, args, err := copyRowsSQL(v0, v1, em)
	require.NoError(t, err)
	assert.Equal(t,
		`INSERT INTO "Contact__next" (z_pk, "id", "fullName", "age") SELECT z_pk, "id", "name", ? FROM "Contact"`,
		sql)
	assert.Equal(t, []any{int64(0)}, args)

	em.Fields[1].Default = value.String("anon")
	sql, args, err = copyRowsSQL(v0, v1, em)
	require.NoError(t, err)
	assert.Contains(t, sql, `COALESCE("name", ?)`)
	assert.Equal(t, []any{"anon", int64(0)}, args)

	em.Fields[1].Source = "nickname"
	_, _, err = copyRowsSQL(v0, v1, em)
	assert.Error(t, err, "unknown source field")
}

func TestMigrateOneStep(t *testing.T) {
	ctx := context.Background()
	e, h, path := createTestStore(t, simpleV0())
	first := insert(t, h, "Contact", contact("a", "Ann"))
	insert(t, h, "Contact", contact("b", "Bob"))
	require.NoError(t, h.Commit(ctx))
	require.NoError(t, h.Close())

	require.NoError(t, e.MigrateOneStep(ctx, path, simpleV0(), simpleV1(), simpleV1Mapping()))

	md, ok, err := e.Metadata(ctx, path)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, e.IsCompatible(simpleV1(), md))
	assert.False(t, e.IsCompatible(simpleV0(), md))

	h1, err := e.Open(ctx, simpleV1(), path)
	require.NoError(t, err)
	defer h1.Close()

	rows, err := h1.Fetch(ctx, "Contact", nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, first.ID, rows[0].ID, "row identity is preserved")
	assert.Equal(t, value.String("a"), rows[0].Get("id"))
	assert.Equal(t, value.String("Ann"), rows[0].Get("fullName"))
	assert.Equal(t, value.Int(0), rows[0].Get("age"))
	assert.Equal(t, value.String("Bob"), rows[1].Get("fullName"))

	tags, err := h1.Fetch(ctx, "Tag", nil)
	require.NoError(t, err)
	assert.Empty(t, tags)

	// New rows continue after the preserved identities.
	next := insert(t, h1, "Contact", map[string]value.Value{
		"id": value.String("c"), "fullName": value.String("Cy"), "age": value.Int(3),
	})
	assert.Greater(t, next.ID, rows[1].ID)
}

func TestMigrateOneStep_FailureLeavesStoreAtSource(t *testing.T) {
	ctx := context.Background()
	e, h, path := createTestStore(t, simpleV0())
	insert(t, h, "Contact", contact("a", "Ann"))
	require.NoError(t, h.Commit(ctx))
	require.NoError(t, h.Close())

	// age is NOT NULL but the mapping provides no value.
	mapping := simpleV1Mapping()
	mapping.Entities[0].Fields = mapping.Entities[0].Fields[:2]

	err := e.MigrateOneStep(ctx, path, simpleV0(), simpleV1(), mapping)
	require.Error(t, err)
	assert.True(t, rowstore.IsStorageError(err))

	md, ok, err := e.Metadata(ctx, path)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, e.IsCompatible(simpleV0(), md))

	h0, err := e.Open(ctx, simpleV0(), path)
	require.NoError(t, err)
	defer h0.Close()
	rows, err := h0.Fetch(ctx, "Contact", nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, value.String("Ann"), rows[0].Get("name"))
}

func TestMigrateOneStep_WrongSource(t *testing.T) {
	ctx := context.Background()
	e, h, path := createTestStore(t, simpleV0())
	require.NoError(t, h.Close())

	err := e.MigrateOneStep(ctx, path, simpleV1(), simpleV1(), rowstore.Mapping{})
	assert.Error(t, err)
}

func TestMigrateOneStep_DropsRemovedEntities(t *testing.T) {
	ctx := context.Background()
	e, h, path := createTestStore(t, simpleV0())
	require.NoError(t, h.Close())

	to := rowstore.Descriptor{
		Version: 1,
		Entities: []rowstore.Entity{{
			Name:       "Tag",
			PrimaryKey: "label",
			Attributes: []rowstore.Attribute{{Name: "label", Kind: value.KindString}},
		}},
	}
	require.NoError(t, e.MigrateOneStep(ctx, path, simpleV0(), to, rowstore.Mapping{}))

	db, err := e.openDB(ctx, path)
	require.NoError(t, err)
	defer db.Close()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'Contact'`).Scan(&n))
	assert.Zero(t, n)

	var version int
	require.NoError(t, db.QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, 1, version)
}
