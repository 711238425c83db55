// Package federation resolves the Apollo Federation subgraph surface that
// internal/blueprint synthesizes onto the Query type whenever the config
// declares one or more @key types: `_service { sdl }` and
// `_entities(representations: [_Any!]!)` (spec.md §3 "Type": "optional
// resolver attached to the type (federation entity resolver)";
// config/resolver.go's FederationEntityResolver/FederationServiceResolver
// doc comments name these two fields exactly).
//
// Entity resolution needs no network call of its own: a representation is
// already a JSON object keyed by the entity's @key fields (plus
// __typename), and the type's own fields already resolve against `.value`
// through the ordinary compiled IR (spec.md §4.4's Context(value) node) —
// so the entity's "resolved value" is just the representation, validated
// against the type's declared key fields. internal/evaluator's request
// executor then completes the rest of the selection set exactly as it
// would for any other object, since the `_Entity` union's members are
// ordinary compiled types.
package federation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tailcall-gateway/engine/internal/config"
	"github.com/tailcall-gateway/engine/internal/value"
)

// EntityTypes returns the names of every type in cfg carrying a @key
// resolver, sorted for deterministic iteration.
func EntityTypes(cfg *config.Config) []string {
	var names []string
	for name, t := range cfg.Types {
		if t.Resolver != nil && t.Resolver.Kind == config.ResolverFederationEntity {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// ResolveRepresentation validates one _entities representation (a map
// carrying __typename plus the entity's declared key fields) and returns
// the base entity value for further selection-set completion.
func ResolveRepresentation(cfg *config.Config, rep value.Value) (value.Value, error) {
	if rep.Kind() != value.KindMap {
		return value.Null, fmt.Errorf("federation: representation must be an object")
	}
	tn, ok := rep.Index("__typename")
	typeName, _ := tn.As().(string)
	if !ok || typeName == "" {
		return value.Null, fmt.Errorf("federation: representation missing __typename")
	}
	t, ok := cfg.Types[typeName]
	if !ok || t.Resolver == nil || t.Resolver.Kind != config.ResolverFederationEntity {
		return value.Null, fmt.Errorf("federation: %q is not a federated entity type", typeName)
	}
	for _, key := range t.Resolver.FedEntity.KeyFields {
		if _, ok := rep.Index(key); !ok {
			return value.Null, fmt.Errorf("federation: representation for %q missing key field %q", typeName, key)
		}
	}
	return rep, nil
}

// PrintSDL renders cfg back to SDL text for the `_service { sdl }` field,
// the subgraph's advertised schema (spec.md §6 "SDL").
func PrintSDL(cfg *config.Config) string {
	var sb strings.Builder
	printSchemaBlock(&sb, cfg)

	names := make([]string, 0, len(cfg.Types))
	for name := range cfg.Types {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		printType(&sb, cfg.Types[name])
	}

	unionNames := make([]string, 0, len(cfg.Unions))
	for name := range cfg.Unions {
		unionNames = append(unionNames, name)
	}
	sort.Strings(unionNames)
	for _, name := range unionNames {
		u := cfg.Unions[name]
		fmt.Fprintf(&sb, "union %s = %s\n\n", u.Name, strings.Join(u.Members, " | "))
	}

	enumNames := make([]string, 0, len(cfg.Enums))
	for name := range cfg.Enums {
		enumNames = append(enumNames, name)
	}
	sort.Strings(enumNames)
	for _, name := range enumNames {
		printEnum(&sb, cfg.Enums[name])
	}

	return sb.String()
}

func printSchemaBlock(sb *strings.Builder, cfg *config.Config) {
	if cfg.Schema.Query == "" && cfg.Schema.Mutation == "" && cfg.Schema.Subscription == "" {
		return
	}
	sb.WriteString("schema {\n")
	if cfg.Schema.Query != "" {
		fmt.Fprintf(sb, "  query: %s\n", cfg.Schema.Query)
	}
	if cfg.Schema.Mutation != "" {
		fmt.Fprintf(sb, "  mutation: %s\n", cfg.Schema.Mutation)
	}
	if cfg.Schema.Subscription != "" {
		fmt.Fprintf(sb, "  subscription: %s\n", cfg.Schema.Subscription)
	}
	sb.WriteString("}\n\n")
}

func printType(sb *strings.Builder, t *config.Type) {
	switch t.Kind {
	case config.KindScalar:
		fmt.Fprintf(sb, "scalar %s\n\n", t.Name)
		return
	case config.KindEnum:
		return // emitted alongside cfg.Enums
	}

	keyword := "type"
	if t.Kind == config.KindInterface {
		keyword = "interface"
	} else if t.Kind == config.KindInputObject {
		keyword = "input"
	}

	fmt.Fprintf(sb, "%s %s", keyword, t.Name)
	if len(t.Interfaces) > 0 {
		names := make([]string, 0, len(t.Interfaces))
		for i := range t.Interfaces {
			names = append(names, i)
		}
		sort.Strings(names)
		fmt.Fprintf(sb, " implements %s", strings.Join(names, " & "))
	}
	sb.WriteString(" {\n")
	for _, f := range t.OrderedFields() {
		printField(sb, f)
	}
	sb.WriteString("}\n\n")
}

func printField(sb *strings.Builder, f *config.Field) {
	fmt.Fprintf(sb, "  %s", f.Name)
	if len(f.Args) > 0 {
		args := f.OrderedArgs()
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = fmt.Sprintf("%s: %s", a.Name, typeRefString(a.Type))
		}
		fmt.Fprintf(sb, "(%s)", strings.Join(parts, ", "))
	}
	fmt.Fprintf(sb, ": %s\n", typeRefString(f.Type))
}

func printEnum(sb *strings.Builder, e *config.Enum) {
	fmt.Fprintf(sb, "enum %s {\n", e.Name)
	values := make([]*config.EnumValueDef, 0, len(e.Values))
	for _, v := range e.Values {
		values = append(values, v)
	}
	sort.Slice(values, func(i, j int) bool { return values[i].Index < values[j].Index })
	for _, v := range values {
		fmt.Fprintf(sb, "  %s\n", v.Name)
	}
	sb.WriteString("}\n\n")
}

func typeRefString(t *config.TypeRef) string {
	if t == nil {
		return "String"
	}
	var s string
	if t.List != nil {
		s = "[" + typeRefString(t.List) + "]"
	} else {
		s = t.Named
	}
	if t.NonNull {
		s += "!"
	}
	return s
}
