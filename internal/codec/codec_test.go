package codec

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type address struct {
	Street string   `json:"street"`
	Tags   []string `json:"tags"`
}

func TestEncodeDecode(t *testing.T) {
	in := address{Street: "Main", Tags: []string{"home", "billing"}}

	p, err := Encode(in)
	require.NoError(t, err)

	var out address
	require.NoError(t, Decode(p, &out))
	assert.Equal(t, in, out)
}

func TestDecodeAnyKeepsNumbers(t *testing.T) {
	p, err := Encode(map[string]any{"big": int64(9007199254740993)})
	require.NoError(t, err)

	v, err := DecodeAny(p)
	require.NoError(t, err)

	m, ok := v.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, json.Number("9007199254740993"), m["big"])
}

func TestDecodeInvalid(t *testing.T) {
	var out address
	assert.Error(t, Decode(Payload("{"), &out))

	_, err := DecodeAny(Payload("nope"))
	assert.Error(t, err)
}
