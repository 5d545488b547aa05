package binder

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satishbabariya/dbal/query/types"
)

func TestPlaceholdersAreUniqueAndIncreasing(t *testing.T) {
	b := New()
	seen := make(map[string]bool)
	last := -1

	for i := 0; i < 250; i++ {
		var name string
		if i%3 == 0 {
			name = b.Placeholder()
		} else {
			name = b.Bind(i, types.Integer)
		}

		require.True(t, strings.HasPrefix(name, Prefix))
		require.False(t, seen[name], "duplicate placeholder %s", name)
		seen[name] = true

		n, err := strconv.Atoi(strings.TrimPrefix(name, Prefix))
		require.NoError(t, err)
		require.Greater(t, n, last)
		last = n
	}
}

func TestBindRecordsInsertionOrder(t *testing.T) {
	b := New()
	assert.Equal(t, ":c0", b.Bind("foo", types.String))
	assert.Equal(t, ":c1", b.Placeholder())
	assert.Equal(t, ":c2", b.Bind(2, types.Integer))

	bindings := b.Bindings()
	require.Len(t, bindings, 2)
	assert.Equal(t, Binding{Placeholder: ":c0", Value: "foo", Type: types.String}, bindings[0])
	assert.Equal(t, Binding{Placeholder: ":c2", Value: 2, Type: types.Integer}, bindings[1])

	got, ok := b.Lookup(":c2")
	require.True(t, ok)
	assert.Equal(t, 2, got.Value)

	_, ok = b.Lookup(":c1")
	assert.False(t, ok)
	assert.Equal(t, 2, b.Len())
}

func TestBindMany(t *testing.T) {
	b := New()
	names := b.BindMany([]any{1, 2, 3}, types.Integer)
	assert.Equal(t, []string{":c0", ":c1", ":c2"}, names)
	assert.Equal(t, 3, b.Len())
}

func TestFreshBinderRestartsNumbering(t *testing.T) {
	first := New()
	first.Bind("a", types.String)
	first.Bind("b", types.String)

	second := New()
	assert.Equal(t, ":c0", second.Bind("c", types.String))
}

func TestBindingsReturnsCopy(t *testing.T) {
	b := New()
	b.Bind("a", types.String)
	out := b.Bindings()
	out[0].Value = "mutated"

	got, _ := b.Lookup(":c0")
	assert.Equal(t, "a", got.Value)

	idx := Index(b.Bindings())
	assert.Equal(t, "a", idx[":c0"].Value)
}
