package blueprint

import (
	"github.com/tailcall-gateway/engine/internal/config"
)

// synthesizeIntrospectionSurface adds the standard `__schema`/`__type`
// meta-fields to the Query type and registers the `__Schema`/`__Type`/
// `__Field`/`__InputValue`/`__EnumValue`/`__Directive` introspection types
// (SPEC_FULL.md's introspection module), mirroring
// synthesizeFederationSurface's "register synthetic types, then attach
// fields to Query" shape. Unlike federation, introspection is unconditional:
// every compiled blueprint exposes it, the same way every GraphQL server
// does.
func (b *builder) synthesizeIntrospectionSurface() {
	queryName := b.cfg.Schema.Query
	if queryName == "" {
		return
	}
	q, ok := b.cfg.Types[queryName]
	if !ok {
		return
	}

	addIntrospectionTypes(b.cfg)

	if _, exists := q.Fields["__schema"]; !exists {
		q.Fields["__schema"] = &config.Field{
			Name:     "__schema",
			Index:    nextSyntheticIndex(q),
			Type:     config.NonNull(config.Named("__Schema")),
			Args:     map[string]*config.Arg{},
			Resolver: &config.Resolver{Kind: config.ResolverIntrospectionSchema},
		}
	}
	if _, exists := q.Fields["__type"]; !exists {
		q.Fields["__type"] = &config.Field{
			Name:  "__type",
			Index: nextSyntheticIndex(q),
			Type:  config.Named("__Type"),
			Args: map[string]*config.Arg{
				"name": {Name: "name", Index: 0, Type: config.NonNull(config.Named("String"))},
			},
			Resolver: &config.Resolver{Kind: config.ResolverIntrospectionType},
		}
	}
}

// addIntrospectionTypes registers the introspection type set into cfg if
// not already present, as plain config.Type/config.Enum values whose fields
// carry no resolver: internal/introspection builds their values directly,
// and the ordinary no-resolver field projection (ir.PathWrap(ir.Value(),
// name)) then walks the result exactly like any other object, so the
// selection-aware completeObject machinery needs no introspection-specific
// cases beyond dispatching __schema/__type themselves.
func addIntrospectionTypes(cfg *config.Config) {
	obj := func(name string, fields ...*config.Field) *config.Type {
		t := config.NewType(name, config.KindObject)
		for i, f := range fields {
			f.Index = i
			t.Fields[f.Name] = f
		}
		return t
	}
	field := func(name string, t *config.TypeRef) *config.Field {
		return &config.Field{Name: name, Type: t}
	}
	str := config.Named("String")
	boolean := config.Named("Boolean")

	if _, ok := cfg.Types["__TypeKind"]; !ok {
		e := &config.Enum{Name: "__TypeKind", Values: map[string]*config.EnumValueDef{}}
		for i, v := range []string{"SCALAR", "OBJECT", "INTERFACE", "UNION", "ENUM", "INPUT_OBJECT", "LIST", "NON_NULL"} {
			e.Values[v] = &config.EnumValueDef{Name: v, Index: i}
		}
		cfg.Enums["__TypeKind"] = e
	}

	if _, ok := cfg.Types["__InputValue"]; !ok {
		cfg.Types["__InputValue"] = obj("__InputValue",
			field("name", config.NonNull(str)),
			field("description", str),
			field("type", config.NonNull(config.Named("__Type"))),
			field("defaultValue", str),
		)
	}
	if _, ok := cfg.Types["__EnumValue"]; !ok {
		cfg.Types["__EnumValue"] = obj("__EnumValue",
			field("name", config.NonNull(str)),
			field("description", str),
			field("isDeprecated", config.NonNull(boolean)),
			field("deprecationReason", str),
		)
	}
	if _, ok := cfg.Types["__Field"]; !ok {
		cfg.Types["__Field"] = obj("__Field",
			field("name", config.NonNull(str)),
			field("description", str),
			field("args", config.NonNull(config.ListOf(config.NonNull(config.Named("__InputValue"))))),
			field("type", config.NonNull(config.Named("__Type"))),
			field("isDeprecated", config.NonNull(boolean)),
			field("deprecationReason", str),
		)
	}
	if _, ok := cfg.Types["__Directive"]; !ok {
		cfg.Types["__Directive"] = obj("__Directive",
			field("name", config.NonNull(str)),
			field("description", str),
			field("locations", config.NonNull(config.ListOf(config.NonNull(str)))),
			field("args", config.NonNull(config.ListOf(config.NonNull(config.Named("__InputValue"))))),
		)
	}
	if _, ok := cfg.Types["__Type"]; !ok {
		cfg.Types["__Type"] = obj("__Type",
			field("kind", config.NonNull(config.Named("__TypeKind"))),
			field("name", str),
			field("description", str),
			field("fields", config.ListOf(config.NonNull(config.Named("__Field")))),
			field("interfaces", config.ListOf(config.NonNull(config.Named("__Type")))),
			field("possibleTypes", config.ListOf(config.NonNull(config.Named("__Type")))),
			field("enumValues", config.ListOf(config.NonNull(config.Named("__EnumValue")))),
			field("inputFields", config.ListOf(config.NonNull(config.Named("__InputValue")))),
			field("ofType", config.Named("__Type")),
		)
	}
	if _, ok := cfg.Types["__Schema"]; !ok {
		cfg.Types["__Schema"] = obj("__Schema",
			field("description", str),
			field("types", config.NonNull(config.ListOf(config.NonNull(config.Named("__Type"))))),
			field("queryType", config.NonNull(config.Named("__Type"))),
			field("mutationType", config.Named("__Type")),
			field("subscriptionType", config.Named("__Type")),
			field("directives", config.NonNull(config.ListOf(config.NonNull(config.Named("__Directive"))))),
		)
	}
}
