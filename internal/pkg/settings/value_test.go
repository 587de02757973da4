package settings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEncode(t *testing.T) {
	tests := []struct {
		typ    Type
		raw    string
		native any
		enc    string
	}{
		{TypeString, "BizFox", "BizFox", "BizFox"},
		{TypeBoolean, "true", true, "true"},
		{TypeBoolean, " 0 ", false, "false"},
		{TypeNumber, "2.50", 2.5, "2.5"},
		{TypeNumber, "10", 10.0, "10"},
	}
	for _, tt := range tests {
		v, err := Decode(tt.typ, tt.raw)
		require.NoError(t, err, "Decode(%s, %q)", tt.typ, tt.raw)
		assert.Equal(t, tt.typ, v.Type())
		assert.Equal(t, tt.native, v.Native())
		assert.Equal(t, tt.enc, v.Encode())
	}
}

func TestDecode_JSON(t *testing.T) {
	v, err := Decode(TypeJSON, `{"a":[1,2]}`)
	require.NoError(t, err)
	assert.Equal(t, `{"a":[1,2]}`, v.Encode())

	_, err = Decode(TypeJSON, `{"a":`)
	assert.Error(t, err)
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode(TypeBoolean, "maybe")
	assert.Error(t, err)
	_, err = Decode(TypeNumber, "ten")
	assert.Error(t, err)
	_, err = Decode(Type("date"), "2024-01-01")
	assert.Error(t, err)
}

func TestFromInput(t *testing.T) {
	v, err := FromInput(TypeBoolean, true)
	require.NoError(t, err)
	assert.Equal(t, BoolValue(true), v)

	v, err = FromInput(TypeNumber, float64(3))
	require.NoError(t, err)
	assert.Equal(t, NumberValue(3), v)

	v, err = FromInput(TypeBoolean, "false")
	require.NoError(t, err)
	assert.Equal(t, BoolValue(false), v)

	v, err = FromInput(TypeJSON, map[string]any{"k": "v"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"k":"v"}`, v.Encode())

	_, err = FromInput(TypeBoolean, 1.0)
	assert.Error(t, err)
	_, err = FromInput(TypeString, 12.0)
	assert.Error(t, err)
}
