package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexBorrowed(t *testing.T) {
	v := FromJSON([]byte(`{"user":{"name":"Ada","tags":["a","b"]}}`))

	name, ok := v.Index("user.name")
	require.True(t, ok)
	assert.Equal(t, "Ada", name.As())

	tag, ok := v.Index("user.tags[1]")
	require.True(t, ok)
	assert.Equal(t, "b", tag.As())

	_, ok = v.Index("user.missing")
	assert.False(t, ok)
}

func TestIndexOwnedMap(t *testing.T) {
	m := NewMap()
	m.Set("id", String("7"))
	inner := NewMap()
	inner.Set("city", String("NYC"))
	m.Set("address", FromMap(inner))
	v := FromMap(m)

	city, ok := v.Index("address.city")
	require.True(t, ok)
	assert.Equal(t, "NYC", city.As())
}

func TestFromAnyRoundtrip(t *testing.T) {
	v := FromAny(map[string]any{"a": 1, "b": []any{1, 2, 3}})
	m := v.As().(map[string]any)
	assert.EqualValues(t, 1, m["a"])
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, m["b"])
}

func TestMapDuplicateKeyOverwritesPreservesOrder(t *testing.T) {
	m := NewMap()
	m.Set("a", Int(1))
	m.Set("b", Int(2))
	m.Set("a", Int(3))
	assert.Equal(t, []string{"a", "b"}, m.Keys())
	v, _ := m.Get("a")
	assert.Equal(t, int64(3), v.As())
}
