package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailcall-gateway/engine/internal/value"
)

func TestParseConstant(t *testing.T) {
	tpl, err := Parse("http://up/u")
	require.NoError(t, err)
	assert.True(t, tpl.Constant())
	s, err := tpl.Render(Scope{})
	require.NoError(t, err)
	assert.Equal(t, "http://up/u", s)
}

func TestRenderArgsExpr(t *testing.T) {
	tpl, err := Parse("http://up/u/{{.args.id}}")
	require.NoError(t, err)
	assert.False(t, tpl.Constant())

	args := value.NewMap()
	args.Set("id", value.String("7"))
	s, err := tpl.Render(Scope{Args: value.FromMap(args)})
	require.NoError(t, err)
	assert.Equal(t, "http://up/u/7", s)
}

func TestRenderValueJQ(t *testing.T) {
	tpl, err := Parse("{{.value | jq: .roles[0]}}")
	require.NoError(t, err)

	m := value.NewMap()
	roles := value.List([]value.Value{value.String("admin"), value.String("user")})
	m.Set("roles", roles)
	v, err := tpl.RenderValue(Scope{Value: value.FromMap(m)})
	require.NoError(t, err)
	assert.Equal(t, "admin", v.As())
}

func TestRenderValueMissingPathIsNull(t *testing.T) {
	tpl, err := Parse("{{.value.missing}}")
	require.NoError(t, err)
	v, err := tpl.RenderValue(Scope{Value: value.FromMap(value.NewMap())})
	require.NoError(t, err)
	assert.True(t, v.IsNull())
}
