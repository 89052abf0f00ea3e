package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/recstore/internal/rowstore"
	"github.com/roach88/recstore/internal/value"
)

func personV0() rowstore.Descriptor {
	return rowstore.Descriptor{
		Version: 0,
		Entities: []rowstore.Entity{{
			Name:       "Person",
			PrimaryKey: "id",
			Attributes: []rowstore.Attribute{
				{Name: "id", Kind: value.KindString},
				{Name: "name", Kind: value.KindString},
			},
		}},
	}
}

func TestFingerprintDeterminism(t *testing.T) {
	fp1, err := Of(personV0())
	require.NoError(t, err)
	fp2, err := Of(personV0())
	require.NoError(t, err)

	assert.Equal(t, fp1, fp2)
	assert.Len(t, fp1, 64, "SHA-256 hex is 64 characters")
}

func TestFingerprintIgnoresNonStructuralInfo(t *testing.T) {
	base := MustOf(personV0())

	d := personV0()
	d.Version = 7
	d.Entities[0].Attributes[1].Default = value.String("anon")
	d.Entities[0].Attributes[1].RenamingID = "fullName"
	assert.Equal(t, base, MustOf(d), "version, defaults and renaming ids are excluded")

	reordered := personV0()
	attrs := reordered.Entities[0].Attributes
	attrs[0], attrs[1] = attrs[1], attrs[0]
	assert.Equal(t, base, MustOf(reordered), "attribute order is excluded")
}

func TestFingerprintChangesWithStructure(t *testing.T) {
	base := MustOf(personV0())

	added := personV0()
	added.Entities[0].Attributes = append(added.Entities[0].Attributes,
		rowstore.Attribute{Name: "age", Kind: value.KindInteger})

	retyped := personV0()
	retyped.Entities[0].Attributes[1].Kind = value.KindBinary

	optional := personV0()
	optional.Entities[0].Attributes[1].Optional = true

	renamed := personV0()
	renamed.Entities[0].Name = "Human"

	newKey := personV0()
	newKey.Entities[0].PrimaryKey = "name"

	for name, d := range map[string]rowstore.Descriptor{
		"added field":   added,
		"retyped field": retyped,
		"optionality":   optional,
		"renamed kind":  renamed,
		"primary key":   newKey,
	} {
		assert.NotEqual(t, base, MustOf(d), name)
	}
}

func TestFingerprintDuplicateEntity(t *testing.T) {
	d := personV0()
	d.Entities = append(d.Entities, d.Entities[0])
	_, err := Of(d)
	assert.Error(t, err)
}

func TestMarshalCanonical(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"sorted keys", map[string]any{"b": 1, "a": true}, `{"a":true,"b":1}`},
		{"no html escape", "<a&b>", `"<a&b>"`},
		{"nfc", "e\u0301", "\"\u00e9\""},
		{"nested", []any{map[string]any{"k": "v"}, int64(-3)}, `[{"k":"v"},-3]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := marshalCanonical(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}

	for _, bad := range []any{nil, 1.5, struct{}{}} {
		_, err := marshalCanonical(bad)
		assert.Error(t, err, "%T", bad)
	}
}

func TestCompareUTF16(t *testing.T) {
	// U+FF61 sorts before U+1F600 in UTF-8 byte order but after it in UTF-16.
	assert.Equal(t, 1, compareUTF16("｡", "\U0001F600"))
	assert.Equal(t, 0, compareUTF16("a", "a"))
	assert.Equal(t, -1, compareUTF16("a", "ab"))
}
