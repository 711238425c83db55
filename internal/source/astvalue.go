package source

import (
	language "github.com/tailcall-gateway/engine/internal/language"
	"github.com/tailcall-gateway/engine/internal/value"
)

// toValue lowers a parsed ast.Value literal into the engine's uniform value
// model (grounded on internal/ir/buildvalueutil.go's getStringValue family,
// generalized from string-only extraction to the full value.Kind set since
// config.Field.DefaultValue and config.DirectiveUse.Args are value.Value).
func toValue(node *language.Value) value.Value {
	if node == nil {
		return value.Null
	}
	switch node.Kind {
	case language.Variable:
		return value.String(node.Raw) // resolved later against request variables
	case language.IntValue:
		return value.FromAny(parseIntLiteral(node.Raw))
	case language.FloatValue:
		return value.FromAny(parseFloatLiteral(node.Raw))
	case language.StringValue, language.BlockValue, language.EnumValue:
		return value.String(node.Raw)
	case language.BooleanValue:
		return value.Bool(node.Raw == "true")
	case language.NullValue:
		return value.Null
	case language.ListValue:
		items := make([]value.Value, 0, len(node.Children))
		for _, c := range node.Children {
			items = append(items, toValue(c.Value))
		}
		return value.List(items)
	case language.ObjectValue:
		m := value.NewMap()
		for _, c := range node.Children {
			m.Set(c.Name, toValue(c.Value))
		}
		return value.FromMap(m)
	}
	return value.Null
}

func parseIntLiteral(raw string) int64 {
	var n int64
	var neg bool
	for i, r := range raw {
		if i == 0 && r == '-' {
			neg = true
			continue
		}
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int64(r-'0')
	}
	if neg {
		n = -n
	}
	return n
}

func parseFloatLiteral(raw string) float64 {
	var whole, frac, fracDiv float64 = 0, 0, 1
	fracPart := false
	neg := false
	for i, r := range raw {
		if i == 0 && r == '-' {
			neg = true
			continue
		}
		if r == '.' {
			fracPart = true
			continue
		}
		if r < '0' || r > '9' {
			break
		}
		d := float64(r - '0')
		if fracPart {
			fracDiv *= 10
			frac += d / fracDiv
		} else {
			whole = whole*10 + d
		}
	}
	v := whole + frac
	if neg {
		v = -v
	}
	return v
}

// toString expects a string-kinded literal, appending a violation otherwise.
func (r *sdlReader) toString(node *language.Value) string {
	if node == nil || node.Kind != language.StringValue {
		r.addViolation("expected string value", posOf(node))
		return ""
	}
	return node.Raw
}

func (r *sdlReader) toBool(node *language.Value) bool {
	if node == nil || node.Kind != language.BooleanValue {
		r.addViolation("expected boolean value", posOf(node))
		return false
	}
	return node.Raw == "true"
}

func (r *sdlReader) toInt(node *language.Value) int64 {
	if node == nil || node.Kind != language.IntValue {
		r.addViolation("expected integer value", posOf(node))
		return 0
	}
	return parseIntLiteral(node.Raw)
}

func (r *sdlReader) toStringList(node *language.Value) []string {
	if node == nil || node.Kind != language.ListValue {
		r.addViolation("expected list value", posOf(node))
		return nil
	}
	out := make([]string, 0, len(node.Children))
	for _, c := range node.Children {
		out = append(out, r.toString(c.Value))
	}
	return out
}

func (r *sdlReader) toStringMap(node *language.Value) map[string]string {
	if node == nil || node.Kind != language.ObjectValue {
		r.addViolation("expected object value", posOf(node))
		return nil
	}
	out := make(map[string]string, len(node.Children))
	for _, c := range node.Children {
		out[c.Name] = r.toString(c.Value)
	}
	return out
}

// toQueryParams reads `query: [{key: String, value: String}]`.
func (r *sdlReader) toQueryParams(node *language.Value) []QueryParamLiteral {
	if node == nil {
		return nil
	}
	if node.Kind != language.ListValue {
		r.addViolation("expected list value for query", posOf(node))
		return nil
	}
	out := make([]QueryParamLiteral, 0, len(node.Children))
	for _, c := range node.Children {
		if c.Value.Kind != language.ObjectValue {
			r.addViolation("expected object value in query list", posOf(c.Value))
			continue
		}
		var key, val string
		for _, f := range c.Value.Children {
			switch f.Name {
			case "key":
				key = r.toString(f.Value)
			case "value":
				val = r.toString(f.Value)
			}
		}
		out = append(out, QueryParamLiteral{Key: key, Value: val})
	}
	return out
}

// QueryParamLiteral is the intermediate shape read from @http(query: [...]).
type QueryParamLiteral struct {
	Key   string
	Value string
}

func posOf(node *language.Value) *language.Position {
	if node == nil {
		return nil
	}
	return node.Position
}
