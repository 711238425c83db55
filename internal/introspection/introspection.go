// Package introspection renders GraphQL's standard `__schema`/`__type`
// meta-fields directly as value.Value trees over a compiled config.Config
// (SPEC_FULL.md's introspection module, grounded on the teacher's
// internal/introspection/schema.go type definitions — kept as a direct
// name-for-name mapping of __Schema/__Type/__Field/__InputValue/
// __EnumValue/__Directive's shape — reworked from the teacher's own
// schema.Schema model onto internal/config.Config).
//
// internal/blueprint registers the same __Schema/__Type/... types as
// ordinary config.Type entries with no resolver (see
// blueprint/introspection.go), so once this package produces the root
// `__schema`/`__type` value, the ordinary no-resolver field projection
// walks the rest of the selection exactly like any other object — this
// package only needs to build the full value once per request, not drive
// selection-aware recursion itself.
package introspection

import (
	"sort"

	"github.com/tailcall-gateway/engine/internal/config"
	"github.com/tailcall-gateway/engine/internal/value"
)

var builtinScalars = map[string]bool{
	"String": true, "Int": true, "Float": true, "Boolean": true, "ID": true,
}

// Schema builds the `__schema` field's value.
func Schema(cfg *config.Config) value.Value {
	m := value.NewMap()
	m.Set("description", value.Null)
	m.Set("types", value.List(allTypesValue(cfg)))
	m.Set("queryType", namedTypeValue(cfg, cfg.Schema.Query))
	if cfg.Schema.Mutation != "" {
		m.Set("mutationType", namedTypeValue(cfg, cfg.Schema.Mutation))
	} else {
		m.Set("mutationType", value.Null)
	}
	if cfg.Schema.Subscription != "" {
		m.Set("subscriptionType", namedTypeValue(cfg, cfg.Schema.Subscription))
	} else {
		m.Set("subscriptionType", value.Null)
	}
	m.Set("directives", value.List(directivesValue(cfg)))
	return value.FromMap(m)
}

// TypeByName builds the `__type(name: ...)` field's value, or Null if the
// name resolves to neither a declared type, union, nor enum.
func TypeByName(cfg *config.Config, name string) value.Value {
	return namedTypeValue(cfg, name)
}

func allTypesValue(cfg *config.Config) []value.Value {
	names := make([]string, 0, len(cfg.Types)+len(cfg.Unions)+len(cfg.Enums))
	for n := range cfg.Types {
		names = append(names, n)
	}
	for n := range cfg.Unions {
		names = append(names, n)
	}
	for n := range cfg.Enums {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]value.Value, len(names))
	for i, n := range names {
		out[i] = namedTypeValue(cfg, n)
	}
	return out
}

func directivesValue(cfg *config.Config) []value.Value {
	names := make([]string, 0, len(cfg.Directives))
	for n := range cfg.Directives {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]value.Value, len(names))
	for i, n := range names {
		d := cfg.Directives[n]
		m := value.NewMap()
		m.Set("name", value.String(d.Name))
		m.Set("description", value.Null)
		m.Set("isRepeatable", value.Bool(d.Repeatable))
		locs := make([]value.Value, len(d.Locations))
		for j, l := range d.Locations {
			locs[j] = value.String(l)
		}
		m.Set("locations", value.List(locs))
		m.Set("args", value.List(argsValue(cfg, d.Args)))
		out[i] = value.FromMap(m)
	}
	return out
}

// namedTypeValue builds a full __Type object for a named type, looking it
// up across all three of cfg's type namespaces (object/interface/union/
// input/scalar types in cfg.Types, cfg.Unions, cfg.Enums), or a bare
// SCALAR entry for one of the five built-in scalars. Returns value.Null if
// the name resolves to nothing.
func namedTypeValue(cfg *config.Config, name string) value.Value {
	if name == "" {
		return value.Null
	}
	m := value.NewMap()
	m.Set("name", value.String(name))
	m.Set("ofType", value.Null)

	switch {
	case builtinScalars[name]:
		setLeafFields(m, "SCALAR", "")
		return value.FromMap(m)

	case cfg.Enums[name] != nil:
		e := cfg.Enums[name]
		setLeafFields(m, "ENUM", e.Description)
		m.Set("enumValues", value.List(enumValueDefsValue(e.Values)))
		return value.FromMap(m)

	case cfg.Unions[name] != nil:
		u := cfg.Unions[name]
		setLeafFields(m, "UNION", u.Description)
		m.Set("possibleTypes", value.List(possibleTypesValue(cfg, u.Members)))
		return value.FromMap(m)
	}

	t, ok := cfg.Types[name]
	if !ok {
		return value.Null
	}
	setLeafFields(m, string(t.Kind), t.Description)
	switch t.Kind {
	case config.KindObject, config.KindInterface:
		m.Set("fields", value.List(fieldsValue(cfg, t)))
		m.Set("interfaces", value.List(interfacesValue(cfg, t)))
		m.Set("possibleTypes", value.List(implementersValue(cfg, name)))
	case config.KindInputObject:
		m.Set("inputFields", value.List(inputFieldsValue(cfg, t)))
	}
	return value.FromMap(m)
}

// setLeafFields seeds every __Type field that namedTypeValue's caller does
// not itself override, so every branch produces a uniform object shape
// regardless of kind.
func setLeafFields(m *value.Map, kind, description string) {
	m.Set("kind", value.String(kind))
	if description != "" {
		m.Set("description", value.String(description))
	} else {
		m.Set("description", value.Null)
	}
	m.Set("fields", value.Null)
	m.Set("interfaces", value.Null)
	m.Set("possibleTypes", value.Null)
	m.Set("enumValues", value.Null)
	m.Set("inputFields", value.Null)
}

func fieldsValue(cfg *config.Config, t *config.Type) []value.Value {
	fields := t.OrderedFields()
	out := make([]value.Value, len(fields))
	for i, f := range fields {
		m := value.NewMap()
		m.Set("name", value.String(f.Name))
		if f.Description != "" {
			m.Set("description", value.String(f.Description))
		} else {
			m.Set("description", value.Null)
		}
		m.Set("args", value.List(argDefsValue(cfg, f.OrderedArgs())))
		m.Set("type", typeRefValue(cfg, f.Type))
		m.Set("isDeprecated", value.Bool(false))
		m.Set("deprecationReason", value.Null)
		out[i] = value.FromMap(m)
	}
	return out
}

func inputFieldsValue(cfg *config.Config, t *config.Type) []value.Value {
	fields := t.OrderedFields()
	out := make([]value.Value, len(fields))
	for i, f := range fields {
		out[i] = inputValueValue(cfg, f.Name, f.Description, f.Type, f.DefaultValue)
	}
	return out
}

func argDefsValue(cfg *config.Config, args []*config.Arg) []value.Value {
	out := make([]value.Value, len(args))
	for i, a := range args {
		out[i] = inputValueValue(cfg, a.Name, "", a.Type, a.DefaultValue)
	}
	return out
}

func argsValue(cfg *config.Config, args map[string]*config.Arg) []value.Value {
	list := make([]*config.Arg, 0, len(args))
	for _, a := range args {
		list = append(list, a)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Index < list[j].Index })
	return argDefsValue(cfg, list)
}

func inputValueValue(cfg *config.Config, name, description string, t *config.TypeRef, def value.Value) value.Value {
	m := value.NewMap()
	m.Set("name", value.String(name))
	if description != "" {
		m.Set("description", value.String(description))
	} else {
		m.Set("description", value.Null)
	}
	m.Set("type", typeRefValue(cfg, t))
	if def.IsNull() {
		m.Set("defaultValue", value.Null)
	} else {
		m.Set("defaultValue", value.String(stringifyDefault(def)))
	}
	return value.FromMap(m)
}

func stringifyDefault(v value.Value) string {
	if s, ok := v.As().(string); ok {
		return s
	}
	return ""
}

func enumValueDefsValue(values map[string]*config.EnumValueDef) []value.Value {
	list := make([]*config.EnumValueDef, 0, len(values))
	for _, v := range values {
		list = append(list, v)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Index < list[j].Index })
	out := make([]value.Value, len(list))
	for i, v := range list {
		m := value.NewMap()
		m.Set("name", value.String(v.Name))
		m.Set("description", value.Null)
		m.Set("isDeprecated", value.Bool(false))
		m.Set("deprecationReason", value.Null)
		out[i] = value.FromMap(m)
	}
	return out
}

func interfacesValue(cfg *config.Config, t *config.Type) []value.Value {
	names := make([]string, 0, len(t.Interfaces))
	for n := range t.Interfaces {
		names = append(names, n)
	}
	sort.Strings(names)
	return possibleTypesValue(cfg, names)
}

func possibleTypesValue(cfg *config.Config, names []string) []value.Value {
	out := make([]value.Value, len(names))
	for i, n := range names {
		out[i] = namedTypeValue(cfg, n)
	}
	return out
}

// implementersValue returns every object type in cfg declaring
// `implements <ifaceName>`, for an interface's `possibleTypes`.
func implementersValue(cfg *config.Config, ifaceName string) []value.Value {
	var names []string
	for n, t := range cfg.Types {
		if t.Kind == config.KindObject && t.Interfaces[ifaceName] {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return possibleTypesValue(cfg, names)
}

// typeRefValue wraps namedTypeValue with NON_NULL/LIST layers per t's
// structure, matching GraphQL introspection's nested __Type encoding of
// wrapper types.
func typeRefValue(cfg *config.Config, t *config.TypeRef) value.Value {
	if t == nil {
		return value.Null
	}
	if t.NonNull {
		inner := *t
		inner.NonNull = false
		m := value.NewMap()
		m.Set("kind", value.String("NON_NULL"))
		m.Set("name", value.Null)
		setLeafFields(m, "NON_NULL", "")
		m.Set("ofType", typeRefValue(cfg, &inner))
		return value.FromMap(m)
	}
	if t.List != nil {
		m := value.NewMap()
		m.Set("name", value.Null)
		setLeafFields(m, "LIST", "")
		m.Set("ofType", typeRefValue(cfg, t.List))
		return value.FromMap(m)
	}
	return namedTypeValue(cfg, t.Named)
}
