package atom

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromGo_Scalars(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want Value
	}{
		{"nil", nil, Null{}},
		{"bool", true, Bool(true)},
		{"string", "hello", String("hello")},
		{"int", 42, Int(42)},
		{"int64", int64(-7), Int(-7)},
		{"uint32", uint32(9), Int(9)},
		{"float64", 1.5, Float(1.5)},
		{"json number int", json.Number("123"), Int(123)},
		{"json number float", json.Number("1.25"), Float(1.25)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromGo(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFromGo_Nested(t *testing.T) {
	got, err := FromGo(map[string]any{
		"items": []any{"a", 1, true},
		"meta":  map[string]any{"count": int64(2)},
	})
	require.NoError(t, err)

	want := Object{
		"items": Array{String("a"), Int(1), Bool(true)},
		"meta":  Object{"count": Int(2)},
	}
	assert.True(t, Equal(want, got))
}

func TestFromGo_Unsupported(t *testing.T) {
	_, err := FromGo(struct{}{})
	assert.Error(t, err)

	_, err = FromGo([]any{make(chan int)})
	assert.Error(t, err)
}

func TestDecode_IntegerVsFloat(t *testing.T) {
	v, err := Decode([]byte(`9007199254740993`)) // 2^53+1, loses precision as float64
	require.NoError(t, err)
	assert.Equal(t, Int(9007199254740993), v)

	v, err = Decode([]byte(`1.0`))
	require.NoError(t, err)
	assert.Equal(t, Float(1), v)

	v, err = Decode([]byte(`null`))
	require.NoError(t, err)
	assert.Equal(t, Null{}, v)
}

func TestMarshal_RoundTrip(t *testing.T) {
	orig := Object{
		"name":    String("cart"),
		"count":   Int(5),
		"ratio":   Float(0.25),
		"active":  Bool(true),
		"tags":    Array{String("a"), String("b")},
		"nothing": Null{},
	}

	data, err := Marshal(orig)
	require.NoError(t, err)

	back, err := Decode(data)
	require.NoError(t, err)
	assert.True(t, Equal(orig, back), "round trip should preserve value")
}

func TestEqual_TypeDistinction(t *testing.T) {
	assert.False(t, Equal(Int(1), Float(1)), "Int and Float never compare equal")
	assert.False(t, Equal(String("1"), Int(1)))
	assert.True(t, Equal(Null{}, Null{}))
	assert.False(t, Equal(Null{}, Bool(false)))
}

func TestEqual_NestedMismatch(t *testing.T) {
	a := Object{"x": Array{Int(1), Int(2)}}
	b := Object{"x": Array{Int(1), Int(3)}}
	c := Object{"x": Array{Int(1), Int(2)}, "y": Int(0)}

	assert.False(t, Equal(a, b))
	assert.False(t, Equal(a, c))
	assert.True(t, Equal(a, Object{"x": Array{Int(1), Int(2)}}))
}

func TestObject_SortedKeys_UTF16Order(t *testing.T) {
	// U+FF21 (FULLWIDTH A) sorts before U+1D400 (MATHEMATICAL BOLD A) in
	// UTF-16 code units because the latter is a surrogate pair starting at
	// 0xD835, but AFTER it in UTF-8 byte order.
	obj := Object{
		"\U0001D400": Int(1),
		"Ａ":     Int(2),
		"a":          Int(3),
	}
	keys := obj.SortedKeys()
	assert.Equal(t, []string{"a", "Ａ", "\U0001D400"}, keys)
}

func TestObject_UnmarshalJSON(t *testing.T) {
	var obj Object
	require.NoError(t, json.Unmarshal([]byte(`{"a":1,"b":[true,null],"c":{"d":"x"}}`), &obj))

	want := Object{
		"a": Int(1),
		"b": Array{Bool(true), Null{}},
		"c": Object{"d": String("x")},
	}
	assert.True(t, Equal(want, obj))
}

func TestToGo_RoundTrip(t *testing.T) {
	orig := Object{"n": Int(3), "f": Float(1.5), "s": String("x"), "z": Null{}}
	plain := ToGo(orig)

	back, err := FromGo(plain)
	require.NoError(t, err)
	assert.True(t, Equal(orig, back))
}
