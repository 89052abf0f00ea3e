package schema

import (
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recstore/internal/value"
)

func TestBuild_Valid(t *testing.T) {
	rec, err := New().
		Field("id", value.KindString, PrimaryKey()).
		Field("name", value.KindString).
		Field("age", value.KindInteger, Default(0)).
		Field("nick", value.KindString, Optional(), RenamedFrom("nickname")).
		Build("Person", 1)
	require.NoError(t, err)

	assert.Equal(t, "Person", rec.Kind())
	assert.Equal(t, 1, rec.Version())
	assert.Equal(t, 4, rec.Len())
	assert.Equal(t, "id", rec.PrimaryKey().Name)
	assert.False(t, rec.HasOpaqueFields())

	age, ok := rec.Field("age")
	require.True(t, ok)
	assert.True(t, age.Hint.HasDefault())
	assert.Equal(t, value.Int(0), age.Hint.Default)

	nick, ok := rec.Field("nick")
	require.True(t, ok)
	assert.True(t, nick.Optional)
	assert.Equal(t, "nickname", nick.Hint.RenamedFrom)

	_, ok = rec.Field("missing")
	assert.False(t, ok)
}

func TestBuild_FieldOrderPreserved(t *testing.T) {
	rec := New().
		Field("z", value.KindString, PrimaryKey()).
		Field("a", value.KindInteger).
		Field("m", value.KindBoolean).
		MustBuild("Order", 0)

	var names []string
	for _, f := range rec.Fields() {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"z", "a", "m"}, names)
}

func TestBuild_FieldsIsCopy(t *testing.T) {
	rec := New().Field("id", value.KindInteger, PrimaryKey()).MustBuild("T", 0)
	fields := rec.Fields()
	fields[0].Name = "changed"
	assert.Equal(t, "id", rec.PrimaryKey().Name)
}

func TestBuild_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		builder *Builder
		problem string
	}{
		{
			name:    "no primary key",
			builder: New().Field("name", value.KindString),
			problem: "no primary key",
		},
		{
			name: "two primary keys",
			builder: New().
				Field("a", value.KindString, PrimaryKey()).
				Field("b", value.KindString, PrimaryKey()),
			problem: "2 primary key fields",
		},
		{
			name:    "opaque primary key",
			builder: New().Field("blob", value.KindOpaque, PrimaryKey()),
			problem: "cannot be opaque",
		},
		{
			name: "duplicate names",
			builder: New().
				Field("id", value.KindString, PrimaryKey()).
				Field("name", value.KindString).
				Field("name", value.KindInteger),
			problem: `duplicate field name "name"`,
		},
		{
			name: "names differing only in case",
			builder: New().
				Field("id", value.KindString, PrimaryKey()).
				Field("name", value.KindString).
				Field("Name", value.KindString),
			problem: `duplicate field name "Name"`,
		},
		{
			name: "empty name",
			builder: New().
				Field("id", value.KindString, PrimaryKey()).
				Field("", value.KindString),
			problem: "empty name",
		},
		{
			name: "default of wrong kind",
			builder: New().
				Field("id", value.KindString, PrimaryKey()).
				Field("age", value.KindInteger, Default("zero")),
			problem: `default for "age"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.builder.Build("Bad", 0)
			require.Error(t, err)
			assert.True(t, IsInvalidSchema(err))
			assert.Contains(t, err.Error(), tt.problem)
		})
	}
}

func TestBuild_AggregatesProblems(t *testing.T) {
	_, err := New().
		Field("blob", value.KindOpaque, PrimaryKey()).
		Field("x", value.KindString).
		Field("x", value.KindString).
		Build("Bad", 2)
	require.Error(t, err)

	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 2)
	assert.Contains(t, err.Error(), "Bad v2")
}

func TestBuild_OpaqueDefaultEncoded(t *testing.T) {
	rec, err := New().
		Field("id", value.KindString, PrimaryKey()).
		Field("prefs", value.KindOpaque, Default(map[string]int{"volume": 3})).
		Build("Settings", 0)
	require.NoError(t, err)
	assert.True(t, rec.HasOpaqueFields())

	prefs, _ := rec.Field("prefs")
	assert.Equal(t, value.Opaque(`{"volume":3}`), prefs.Hint.Default)
}

func TestMustBuild_Panics(t *testing.T) {
	assert.Panics(t, func() {
		New().Field("a", value.KindString).MustBuild("Bad", 0)
	})
}

func TestUnknownKindError(t *testing.T) {
	err := NewUnknownKindError("Ghost")
	assert.True(t, IsUnknownKind(err))
	assert.False(t, IsInvalidSchema(err))
	assert.Equal(t, "UNKNOWN_KIND: Ghost", err.Error())
}
