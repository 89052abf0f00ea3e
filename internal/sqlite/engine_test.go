package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recstore/internal/rowstore"
	"github.com/roach88/recstore/internal/value"
)

func TestCreateTableSQL_Golden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "create_table_person", []byte(createTableSQL("Person", personEntity())))
}

func TestOpen_CreatesNewStore(t *testing.T) {
	ctx := context.Background()
	desc := simpleV0()
	e, _, path := createTestStore(t, desc)

	_, err := os.Stat(path)
	require.NoError(t, err, "database file was not created")

	md, ok, err := e.Metadata(ctx, path)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, e.IsCompatible(desc, md))

	info, err := Inspect(md)
	require.NoError(t, err)
	assert.Equal(t, 0, info.Version)
	assert.Len(t, info.Fingerprint, 64)
	require.Len(t, info.Descriptor.Entities, 1)
	assert.Equal(t, "Contact", info.Descriptor.Entities[0].Name)
}

func TestOpen_ReopensCompatibleStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.sqlite")
	e := New()

	for i := 0; i < 3; i++ {
		h, err := e.Open(ctx, simpleV0(), path)
		require.NoError(t, err, "iteration %d", i)
		require.NoError(t, h.Close())
	}
}

func TestOpen_RejectsIncompatibleStore(t *testing.T) {
	ctx := context.Background()
	e, h, path := createTestStore(t, simpleV0())
	require.NoError(t, h.Close())

	other := simpleV0()
	other.Entities[0].Attributes = append(other.Entities[0].Attributes,
		rowstore.Attribute{Name: "age", Kind: value.KindInteger})

	_, err := e.Open(ctx, other, path)
	require.Error(t, err)
	assert.True(t, rowstore.IsStorageError(err))
}

func TestOpen_RejectsReservedNames(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.sqlite")

	tests := []struct {
		name string
		desc rowstore.Descriptor
	}{
		{"metadata prefix", rowstore.Descriptor{Entities: []rowstore.Entity{{
			Name: "recstore_metadata", PrimaryKey: "id",
			Attributes: []rowstore.Attribute{{Name: "id", Kind: value.KindInteger}},
		}}}},
		{"next suffix", rowstore.Descriptor{Entities: []rowstore.Entity{{
			Name: "Contact__next", PrimaryKey: "id",
			Attributes: []rowstore.Attribute{{Name: "id", Kind: value.KindInteger}},
		}}}},
		{"row id column", rowstore.Descriptor{Entities: []rowstore.Entity{{
			Name: "Contact", PrimaryKey: "id",
			Attributes: []rowstore.Attribute{{Name: "id", Kind: value.KindInteger}, {Name: "Z_PK", Kind: value.KindInteger}},
		}}}},
		{"missing primary key", rowstore.Descriptor{Entities: []rowstore.Entity{{
			Name: "Contact", PrimaryKey: "uid",
			Attributes: []rowstore.Attribute{{Name: "id", Kind: value.KindInteger}},
		}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().Open(ctx, tt.desc, path)
			assert.Error(t, err)
		})
	}
}

func TestMetadata_NoStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.sqlite")

	md, ok, err := New().Metadata(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, md)

	_, statErr := os.Stat(path)
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "Metadata must not create the store")
}

func TestIsCompatible_GarbageMetadata(t *testing.T) {
	assert.False(t, New().IsCompatible(simpleV0(), rowstore.Metadata("not json")))
	assert.False(t, New().IsCompatible(simpleV0(), rowstore.Metadata(`{"version":0}`)))
}

func TestRoundTripAllKinds(t *testing.T) {
	ctx := context.Background()
	desc := rowstore.Descriptor{Entities: []rowstore.Entity{personEntity()}}
	_, h, _ := createTestStore(t, desc)

	joined := time.Date(2024, 3, 1, 12, 30, 0, 42, time.UTC)
	token := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	values := map[string]value.Value{
		"id":       value.String("p1"),
		"name":     value.String("Ann"),
		"age":      value.Int(41),
		"score":    value.Double(9.5),
		"active":   value.Bool(true),
		"joined":   value.Date(joined),
		"avatar":   value.Binary{0x01, 0x02},
		"token":    value.UUID(token),
		"homepage": value.URL("https://example.com/ann"),
		"prefs":    value.Opaque(`{"theme":"dark"}`),
	}
	inserted := insert(t, h, "Person", values)
	assert.Positive(t, inserted.ID)

	rows, err := h.Fetch(ctx, "Person", nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	for name, want := range values {
		assert.True(t, value.Equal(want, rows[0].Get(name)), "%s: got %v", name, rows[0].Get(name))
	}
}

func TestRoundTripDates(t *testing.T) {
	ctx := context.Background()
	desc := rowstore.Descriptor{Entities: []rowstore.Entity{personEntity()}}
	_, h, _ := createTestStore(t, desc)

	dates := []time.Time{
		{},
		time.Date(1600, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2300, 1, 1, 0, 0, 0, 1, time.UTC),
		time.Date(9999, 12, 31, 23, 59, 59, 999999999, time.UTC),
	}
	for i, d := range dates {
		insert(t, h, "Person", map[string]value.Value{
			"id":     value.String(fmt.Sprintf("p%d", i)),
			"name":   value.String("x"),
			"score":  value.Double(0),
			"active": value.Bool(false),
			"joined": value.Date(d),
			"token":  value.UUID(uuid.Nil),
		})
	}

	rows, err := h.Fetch(ctx, "Person", nil)
	require.NoError(t, err)
	require.Len(t, rows, len(dates))
	for i, d := range dates {
		assert.True(t, value.Equal(value.Date(d), rows[i].Get("joined")), "%v: got %v", d, rows[i].Get("joined"))
	}

	rows, err = h.Fetch(ctx, "Person", &rowstore.Predicate{
		Format: `"joined" > ?`,
		Args:   []value.Value{value.Date(time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC))},
	})
	require.NoError(t, err)
	assert.Len(t, rows, 2, "text form orders chronologically")
}

func TestRoundTripNulls(t *testing.T) {
	ctx := context.Background()
	desc := rowstore.Descriptor{Entities: []rowstore.Entity{personEntity()}}
	_, h, _ := createTestStore(t, desc)

	insert(t, h, "Person", map[string]value.Value{
		"id":     value.String("p2"),
		"name":   value.String("Bo"),
		"score":  value.Double(0),
		"active": value.Bool(false),
		"joined": value.Date(time.Unix(0, 0).UTC()),
		"token":  value.UUID(uuid.Nil),
		"avatar": value.Binary{},
	})

	rows, err := h.Fetch(ctx, "Person", nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, value.IsNull(rows[0].Get("age")))
	assert.True(t, value.IsNull(rows[0].Get("homepage")))
	assert.True(t, value.IsNull(rows[0].Get("prefs")))
	assert.Equal(t, value.Binary{}, rows[0].Get("avatar"), "empty blob stays distinct from null")
	assert.Equal(t, value.Bool(false), rows[0].Get("active"))
}

func TestInsert_NotNullViolation(t *testing.T) {
	_, h, _ := createTestStore(t, simpleV0())

	err := h.Mutate(context.Background(), func(tx rowstore.Tx) error {
		_, err := tx.Insert(context.Background(), "Contact", map[string]value.Value{"id": value.String("a")})
		return err
	})
	require.Error(t, err)
	assert.True(t, rowstore.IsStorageError(err))
	assert.False(t, h.HasChanges())
}

func TestFetch_Predicate(t *testing.T) {
	ctx := context.Background()
	_, h, _ := createTestStore(t, simpleV0())
	insert(t, h, "Contact", contact("a", "Ann"))
	insert(t, h, "Contact", contact("b", "Bob"))
	insert(t, h, "Contact", contact("c", "Cy"))

	rows, err := h.Fetch(ctx, "Contact", rowstore.Equals("name", value.String("Bob")))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, value.String("b"), rows[0].Get("id"))

	rows, err = h.Fetch(ctx, "Contact", rowstore.In("id", []value.Value{value.String("a"), value.String("c")}))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, value.String("a"), rows[0].Get("id"), "insertion order")
	assert.Equal(t, value.String("c"), rows[1].Get("id"))

	rows, err = h.Fetch(ctx, "Contact", &rowstore.Predicate{Format: `"name" LIKE ?`, Args: []value.Value{value.String("%y")}})
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	rows, err = h.Fetch(ctx, "Contact", rowstore.In("id", nil))
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.NotNil(t, rows)

	_, err = h.Fetch(ctx, "Contact", &rowstore.Predicate{Format: "name ==="})
	assert.Error(t, err)

	_, err = h.Fetch(ctx, "Ghost", nil)
	assert.Error(t, err)
}

func TestMutate_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	_, h, _ := createTestStore(t, simpleV0())
	row := insert(t, h, "Contact", contact("a", "Ann"))

	row.Values["name"] = value.String("Anna")
	require.NoError(t, h.Mutate(ctx, func(tx rowstore.Tx) error {
		return tx.Update(ctx, row)
	}))

	rows, err := h.Fetch(ctx, "Contact", nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, value.String("Anna"), rows[0].Get("name"))
	assert.Equal(t, row.ID, rows[0].ID)

	require.NoError(t, h.Mutate(ctx, func(tx rowstore.Tx) error {
		return tx.Delete(ctx, rows)
	}))
	rows, err = h.Fetch(ctx, "Contact", nil)
	require.NoError(t, err)
	assert.Empty(t, rows)

	err = h.Mutate(ctx, func(tx rowstore.Tx) error {
		return tx.Update(ctx, row)
	})
	assert.Error(t, err, "updating a deleted row fails")
}

func TestMutate_ErrorDiscardsOnlyThatMutation(t *testing.T) {
	ctx := context.Background()
	_, h, _ := createTestStore(t, simpleV0())
	insert(t, h, "Contact", contact("a", "Ann"))

	boom := errors.New("boom")
	err := h.Mutate(ctx, func(tx rowstore.Tx) error {
		if _, err := tx.Insert(ctx, "Contact", contact("b", "Bob")); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	rows, err := h.Fetch(ctx, "Contact", nil)
	require.NoError(t, err)
	require.Len(t, rows, 1, "earlier uncommitted work survives")
	assert.Equal(t, value.String("a"), rows[0].Get("id"))
	assert.True(t, h.HasChanges())
}

func TestCommit_Persists(t *testing.T) {
	ctx := context.Background()
	e, h, path := createTestStore(t, simpleV0())

	assert.False(t, h.HasChanges())
	insert(t, h, "Contact", contact("a", "Ann"))
	assert.True(t, h.HasChanges())
	require.NoError(t, h.Commit(ctx))
	assert.False(t, h.HasChanges())

	insert(t, h, "Contact", contact("b", "Bob"))
	require.NoError(t, h.Close(), "close discards uncommitted work")

	h2, err := e.Open(ctx, simpleV0(), path)
	require.NoError(t, err)
	defer h2.Close()

	rows, err := h2.Fetch(ctx, "Contact", nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, value.String("a"), rows[0].Get("id"))

	require.NoError(t, h2.Commit(ctx), "commit without changes is a no-op")
}

func TestClosedHandle(t *testing.T) {
	ctx := context.Background()
	_, h, _ := createTestStore(t, simpleV0())
	require.NoError(t, h.Close())
	require.NoError(t, h.Close(), "close is idempotent")

	_, err := h.Fetch(ctx, "Contact", nil)
	assert.ErrorIs(t, err, rowstore.ErrClosed)
	assert.ErrorIs(t, h.Mutate(ctx, func(rowstore.Tx) error { return nil }), rowstore.ErrClosed)
	assert.ErrorIs(t, h.Commit(ctx), rowstore.ErrClosed)
}

func TestSubscribe_ChangeBatches(t *testing.T) {
	ctx := context.Background()
	_, h, _ := createTestStore(t, simpleV0())

	var order []string
	var batches []rowstore.ChangeBatch
	unsubA := h.Subscribe(func(b rowstore.ChangeBatch) {
		order = append(order, "a")
		batches = append(batches, b)
	})
	unsubB := h.Subscribe(func(rowstore.ChangeBatch) { order = append(order, "b") })

	row := insert(t, h, "Contact", contact("a", "Ann"))
	require.Len(t, batches, 1)
	assert.Len(t, batches[0].Inserted, 1)
	assert.Empty(t, batches[0].Updated)
	assert.Equal(t, []string{"a", "b"}, order, "registration order")

	row.Values["name"] = value.String("Anna")
	require.NoError(t, h.Mutate(ctx, func(tx rowstore.Tx) error { return tx.Update(ctx, row) }))
	require.Len(t, batches, 2)
	require.Len(t, batches[1].Updated, 1)
	assert.Equal(t, value.String("Anna"), batches[1].Updated[0].Get("name"))

	require.NoError(t, h.Mutate(ctx, func(tx rowstore.Tx) error { return tx.Delete(ctx, []rowstore.Row{row}) }))
	require.Len(t, batches, 3)
	assert.Len(t, batches[2].Deleted, 1)

	// Deleting an already deleted row changes nothing and emits nothing.
	require.NoError(t, h.Mutate(ctx, func(tx rowstore.Tx) error { return tx.Delete(ctx, []rowstore.Row{row}) }))
	assert.Len(t, batches, 3)

	// Failed mutations emit nothing.
	_ = h.Mutate(ctx, func(tx rowstore.Tx) error {
		_, _ = tx.Insert(ctx, "Contact", contact("z", "Zed"))
		return errors.New("abort")
	})
	assert.Len(t, batches, 3)

	unsubA()
	unsubA()
	unsubB()
	insert(t, h, "Contact", contact("b", "Bob"))
	assert.Len(t, batches, 3)
}

func TestDestroy(t *testing.T) {
	ctx := context.Background()
	e, h, path := createTestStore(t, simpleV0())
	insert(t, h, "Contact", contact("a", "Ann"))
	require.NoError(t, h.Commit(ctx))
	require.NoError(t, h.Close())

	require.NoError(t, e.Destroy(ctx, path))
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		_, err := os.Stat(p)
		assert.True(t, errors.Is(err, os.ErrNotExist), p)
	}

	require.NoError(t, e.Destroy(ctx, path), "destroying a missing store is not an error")
}

func TestMemoryMode(t *testing.T) {
	ctx := context.Background()
	e := New(WithMemory())
	name := t.Name()

	h, err := e.Open(ctx, simpleV0(), name)
	require.NoError(t, err)
	insert(t, h, "Contact", contact("a", "Ann"))
	require.NoError(t, h.Commit(ctx))

	rows, err := h.Fetch(ctx, "Contact", nil)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	require.NoError(t, h.Close())

	_, err = os.Stat(name)
	assert.True(t, errors.Is(err, os.ErrNotExist), "memory stores leave no file")

	h2, err := e.Open(ctx, simpleV0(), name)
	require.NoError(t, err)
	defer h2.Close()
	rows, err = h2.Fetch(ctx, "Contact", nil)
	require.NoError(t, err)
	assert.Empty(t, rows, "memory store vanishes with its last handle")
}
