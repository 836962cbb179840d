package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_ZeroIsNull(t *testing.T) {
	var v Value
	assert.True(t, v.IsNull())
	assert.Equal(t, KindNull, v.Kind())
	assert.Equal(t, "null", v.String())
	assert.Nil(t, v.Interface())
}

func TestValue_AccessorsAreVariantChecked(t *testing.T) {
	v := Integer(5)

	i, ok := v.AsInteger()
	assert.True(t, ok)
	assert.Equal(t, int32(5), i)

	_, ok = v.AsLong()
	assert.False(t, ok)
	_, ok = v.AsString()
	assert.False(t, ok)
	_, ok = v.AsList()
	assert.False(t, ok)
}

func TestValue_String(t *testing.T) {
	tests := []struct {
		value    Value
		expected string
	}{
		{String("abc"), "abc"},
		{Character('q'), "q"},
		{Integer(-3), "-3"},
		{Long(10000000000), "10000000000"},
		{Float(2.5), "2.5"},
		{Double(100), "100"},
		{Boolean(true), "true"},
		{List(Integer(1), Integer(2)), "[1, 2]"},
		{Map(map[string]Value{"b": String("2"), "a": Integer(1)}), "{a=1, b=2}"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.value.String())
	}
}

func TestValue_ListIsCopied(t *testing.T) {
	items := []Value{Integer(1), Integer(2)}
	v := List(items...)
	items[0] = Integer(99)

	got, ok := v.AsList()
	require.True(t, ok)
	assert.True(t, Integer(1).Equal(got[0]))

	got[1] = Integer(42)
	again, _ := v.AsList()
	assert.True(t, Integer(2).Equal(again[1]))
}

func TestValue_MapIsCopied(t *testing.T) {
	entries := map[string]Value{"k": String("v")}
	v := Map(entries)
	entries["k"] = String("changed")

	got, ok := v.AsMap()
	require.True(t, ok)
	assert.Equal(t, "v", got["k"].String())
}

func TestValue_Equal(t *testing.T) {
	assert.True(t, Integer(1).Equal(Integer(1)))
	assert.False(t, Integer(1).Equal(Long(1)))
	assert.False(t, String("1").Equal(Integer(1)))
	assert.True(t, List(String("a")).Equal(List(String("a"))))
	assert.False(t, List(String("a")).Equal(List(String("a"), String("b"))))
	assert.True(t, Null().Equal(Value{}))
}

func TestValue_Interface(t *testing.T) {
	v := List(Integer(1), String("x"), Boolean(false), Null())
	assert.Equal(t, []any{int32(1), "x", false, nil}, v.Interface())

	m := Map(map[string]Value{"n": Double(1.5)})
	assert.Equal(t, map[string]any{"n": 1.5}, m.Interface())
}
