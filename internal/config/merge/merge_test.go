package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailcall-gateway/engine/internal/config"
)

func TestMergeIdentity(t *testing.T) {
	a := config.NewConfig()
	q := config.NewType("Query", config.KindObject)
	q.Fields["foo"] = &config.Field{Name: "foo", Type: config.Named("Int")}
	a.Types["Query"] = q

	b := config.NewConfig()

	merged, err := Config(a, b)
	require.NoError(t, err)
	assert.Contains(t, merged.Types, "Query")
	assert.Contains(t, merged.Types["Query"].Fields, "foo")

	merged2, err := Config(b, a)
	require.NoError(t, err)
	assert.Contains(t, merged2.Types, "Query")
}

func TestMergeRightBiasOnScalars(t *testing.T) {
	a := config.NewConfig()
	ta := config.NewType("Query", config.KindObject)
	ta.Fields["x"] = &config.Field{Name: "x", Type: config.Named("Int"), Description: "a"}
	a.Types["Query"] = ta

	b := config.NewConfig()
	tb := config.NewType("Query", config.KindObject)
	tb.Fields["x"] = &config.Field{Name: "x", Type: config.Named("Int"), Description: "b"}
	b.Types["Query"] = tb

	merged, err := Config(a, b)
	require.NoError(t, err)
	assert.Equal(t, "b", merged.Types["Query"].Fields["x"].Description)
}

func TestMergeAssociativity(t *testing.T) {
	mk := func(desc string) *config.Config {
		c := config.NewConfig()
		ty := config.NewType("Query", config.KindObject)
		ty.Fields["x"] = &config.Field{Name: "x", Type: config.Named("Int"), Description: desc}
		c.Types["Query"] = ty
		return c
	}
	a, b, c := mk("a"), mk("b"), mk("c")

	ab, err := Config(a, b)
	require.NoError(t, err)
	abc1, err := Config(ab, c)
	require.NoError(t, err)

	bc, err := Config(b, c)
	require.NoError(t, err)
	abc2, err := Config(a, bc)
	require.NoError(t, err)

	assert.Equal(t, abc1.Types["Query"].Fields["x"].Description, abc2.Types["Query"].Fields["x"].Description)
}

func TestTypeRefInvariantMismatchFails(t *testing.T) {
	_, err := TypeRefInvariant(config.Named("User"), config.Named("Post"))
	assert.Error(t, err)

	_, err = TypeRefInvariant(config.Named("User"), config.ListOf(config.Named("User")))
	assert.Error(t, err)
}

func TestTypeRefWideAndNarrowNonNull(t *testing.T) {
	a := config.NonNull(config.Named("User"))
	b := config.Named("User")

	wide, err := TypeRefWide(a, b)
	require.NoError(t, err)
	assert.False(t, wide.NonNull) // a ∧ b = false

	narrow, err := TypeRefNarrow(a, b)
	require.NoError(t, err)
	assert.True(t, narrow.NonNull) // a ∨ b = true
}
