// Package merge implements the configuration merge algebra (spec.md §4.2):
// right-biased invariant merge_right for most leaves, covariant expand for
// widening unions, and contravariant shrink for narrowing intersections.
// Container rules follow spec.md §4.2: ordered mappings merge by key
// (right wins, recurse into shared keys), sets union, vectors concatenate,
// optionals prefer Some and recurse when both are Some.
package merge

import (
	"fmt"

	"github.com/tailcall-gateway/engine/internal/config"
	"github.com/tailcall-gateway/engine/internal/value"
)

// Config right-biased merges two configs: b's scalars win, containers merge
// structurally. Associative and commutative on disjoint keys by construction
// (each key is merged independently; see spec.md §8 "Merge associativity").
func Config(a, b *config.Config) (*config.Config, error) {
	if a == nil {
		return b, nil
	}
	if b == nil {
		return a, nil
	}
	out := config.NewConfig()
	out.Schema = config.RootSchema{
		Query:        pickRightNonEmpty(a.Schema.Query, b.Schema.Query),
		Mutation:     pickRightNonEmpty(a.Schema.Mutation, b.Schema.Mutation),
		Subscription: pickRightNonEmpty(a.Schema.Subscription, b.Schema.Subscription),
	}
	out.Server = mergeServerPolicy(a.Server, b.Server)
	out.Upstream = mergeUpstreamPolicy(a.Upstream, b.Upstream)
	out.Telemetry = mergeTelemetry(a.Telemetry, b.Telemetry)
	out.Links = append(append([]*config.Link{}, a.Links...), b.Links...)

	for name, t := range a.Types {
		out.Types[name] = t
	}
	for name, t := range b.Types {
		if existing, ok := out.Types[name]; ok {
			merged, err := Type(existing, t)
			if err != nil {
				return nil, fmt.Errorf("merge type %q: %w", name, err)
			}
			out.Types[name] = merged
		} else {
			out.Types[name] = t
		}
	}

	for name, u := range a.Unions {
		out.Unions[name] = u
	}
	for name, u := range b.Unions {
		if existing, ok := out.Unions[name]; ok {
			out.Unions[name] = mergeUnion(existing, u)
		} else {
			out.Unions[name] = u
		}
	}

	for name, e := range a.Enums {
		out.Enums[name] = e
	}
	for name, e := range b.Enums {
		if existing, ok := out.Enums[name]; ok {
			merged, err := mergeEnum(existing, e)
			if err != nil {
				return nil, fmt.Errorf("merge enum %q: %w", name, err)
			}
			out.Enums[name] = merged
		} else {
			out.Enums[name] = e
		}
	}

	for name, d := range a.Directives {
		out.Directives[name] = d
	}
	for name, d := range b.Directives {
		out.Directives[name] = d // invariant: right wins on directive defs
	}

	return out, nil
}

func pickRightNonEmpty(a, b string) string {
	if b != "" {
		return b
	}
	return a
}

func mergeServerPolicy(a, b config.ServerPolicy) config.ServerPolicy {
	out := a
	if b.Port != 0 {
		out.Port = b.Port
	}
	out.EnableBatchRequests = a.EnableBatchRequests || b.EnableBatchRequests
	out.EnableGraphiQL = a.EnableGraphiQL || b.EnableGraphiQL
	if b.ResponseTimeoutMS != 0 {
		out.ResponseTimeoutMS = b.ResponseTimeoutMS
	}
	out.CORS = unionStrings(a.CORS, b.CORS)
	return out
}

func mergeUpstreamPolicy(a, b config.UpstreamPolicy) config.UpstreamPolicy {
	out := a
	out.EnableBatching = a.EnableBatching || b.EnableBatching
	if b.ConnectTimeoutMS != 0 {
		out.ConnectTimeoutMS = b.ConnectTimeoutMS
	}
	if b.ReadTimeoutMS != 0 {
		out.ReadTimeoutMS = b.ReadTimeoutMS
	}
	if b.TotalTimeoutMS != 0 {
		out.TotalTimeoutMS = b.TotalTimeoutMS
	}
	if b.MaxIdlePerHost != 0 {
		out.MaxIdlePerHost = b.MaxIdlePerHost
	}
	if b.PoolIdleTimeoutMS != 0 {
		out.PoolIdleTimeoutMS = b.PoolIdleTimeoutMS
	}
	out.BatchHeaderAllowlist = unionStrings(a.BatchHeaderAllowlist, b.BatchHeaderAllowlist)
	return out
}

func mergeTelemetry(a, b *config.Telemetry) *config.Telemetry {
	if b != nil {
		return b
	}
	return a
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, s := range append(append([]string{}, a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// Type merges two definitions of the same named type using invariant
// merge_right for scalars, structural recursion for the Fields map.
func Type(a, b *config.Type) (*config.Type, error) {
	if a.Kind != b.Kind {
		return nil, fmt.Errorf("kind mismatch for %q: %s vs %s", a.Name, a.Kind, b.Kind)
	}
	out := &config.Type{
		Name:        a.Name,
		Kind:        a.Kind,
		Fields:      make(map[string]*config.Field, len(a.Fields)+len(b.Fields)),
		Interfaces:  make(map[string]bool, len(a.Interfaces)+len(b.Interfaces)),
		Description: pickRightNonEmpty(a.Description, b.Description),
		CachePolicy: pickRightCache(a.CachePolicy, b.CachePolicy),
		Protected:   a.Protected || b.Protected,
		Resolver:    pickRightResolver(a.Resolver, b.Resolver),
		Directives:  append(append([]*config.DirectiveUse{}, a.Directives...), b.Directives...),
	}
	for k, f := range a.Fields {
		out.Fields[k] = f
	}
	for k, f := range b.Fields {
		if existing, ok := out.Fields[k]; ok {
			merged, err := mergeField(existing, f)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", k, err)
			}
			out.Fields[k] = merged
		} else {
			out.Fields[k] = f
		}
	}
	for k := range a.Interfaces {
		out.Interfaces[k] = true
	}
	for k := range b.Interfaces {
		out.Interfaces[k] = true // set union
	}
	if a.EnumValues != nil || b.EnumValues != nil {
		out.EnumValues = make(map[string]*config.EnumValueDef)
		for k, v := range a.EnumValues {
			out.EnumValues[k] = v
		}
		for k, v := range b.EnumValues {
			out.EnumValues[k] = v
		}
	}
	return out, nil
}

func pickRightCache(a, b *config.CachePolicy) *config.CachePolicy {
	if b != nil {
		return b
	}
	return a
}

func pickRightResolver(a, b *config.Resolver) *config.Resolver {
	if b != nil {
		return b
	}
	return a
}

func mergeField(a, b *config.Field) (*config.Field, error) {
	mergedType, err := TypeRefInvariant(a.Type, b.Type)
	if err != nil {
		return nil, err
	}
	out := &config.Field{
		Name:         a.Name,
		Index:        a.Index,
		Type:         mergedType,
		Args:         make(map[string]*config.Arg, len(a.Args)+len(b.Args)),
		Resolver:     pickRightResolver(a.Resolver, b.Resolver),
		CachePolicy:  pickRightCache(a.CachePolicy, b.CachePolicy),
		Protected:    a.Protected || b.Protected,
		Modifier:     pickRightModifier(a.Modifier, b.Modifier),
		DefaultValue: pickRightValue(a.DefaultValue, b.DefaultValue),
		Directives:   append(append([]*config.DirectiveUse{}, a.Directives...), b.Directives...),
		Description:  pickRightNonEmpty(a.Description, b.Description),
	}
	for k, v := range a.Args {
		out.Args[k] = v
	}
	for k, v := range b.Args {
		out.Args[k] = v // invariant: right wins for shared arg
	}
	return out, nil
}

func pickRightModifier(a, b *config.FieldModifier) *config.FieldModifier {
	if b != nil {
		return b
	}
	return a
}

func pickRightValue(a, b value.Value) value.Value {
	if !b.IsNull() {
		return b
	}
	return a
}

func mergeUnion(a, b *config.Union) *config.Union {
	return &config.Union{
		Name:        a.Name,
		Members:     unionStrings(a.Members, b.Members),
		Description: pickRightNonEmpty(a.Description, b.Description),
	}
}

func mergeEnum(a, b *config.Enum) (*config.Enum, error) {
	if len(a.Values) != len(b.Values) {
		return nil, fmt.Errorf("enum %q: variant sets differ", a.Name)
	}
	for k := range a.Values {
		if _, ok := b.Values[k]; !ok {
			return nil, fmt.Errorf("enum %q: variant sets differ", a.Name)
		}
	}
	out := &config.Enum{Name: a.Name, Values: make(map[string]*config.EnumValueDef, len(a.Values)), Description: pickRightNonEmpty(a.Description, b.Description)}
	for k, v := range a.Values {
		out.Values[k] = v
	}
	return out, nil
}

// TypeRefInvariant merges two type references with merge_right semantics:
// mismatched named types or list/named kind differences fail (spec.md §4.2
// "Wrapping-type merge": "Type mismatch ... fails with an explanatory
// error").
func TypeRefInvariant(a, b *config.TypeRef) (*config.TypeRef, error) {
	if a == nil {
		return b, nil
	}
	if b == nil {
		return a, nil
	}
	if a.IsList() != b.IsList() {
		return nil, fmt.Errorf("type mismatch: list vs named")
	}
	if a.IsList() {
		inner, err := TypeRefInvariant(a.List, b.List)
		if err != nil {
			return nil, err
		}
		return &config.TypeRef{List: inner, NonNull: b.NonNull}, nil
	}
	if a.NamedType() != b.NamedType() {
		return nil, fmt.Errorf("type mismatch: %s vs %s", a.NamedType(), b.NamedType())
	}
	return &config.TypeRef{Named: b.NamedType(), NonNull: b.NonNull}, nil
}

// TypeRefWide is the covariant (widening) merge: non_null := a ∧ b, used
// when unifying union-like possibilities (spec.md §4.2).
func TypeRefWide(a, b *config.TypeRef) (*config.TypeRef, error) {
	return mergeWrapping(a, b, func(x, y bool) bool { return x && y })
}

// TypeRefNarrow is the contravariant (narrowing) merge: non_null := a ∨ b,
// used for input-field intersections (spec.md §4.2).
func TypeRefNarrow(a, b *config.TypeRef) (*config.TypeRef, error) {
	return mergeWrapping(a, b, func(x, y bool) bool { return x || y })
}

func mergeWrapping(a, b *config.TypeRef, nonNull func(x, y bool) bool) (*config.TypeRef, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("cannot merge nil type reference")
	}
	if a.IsList() != b.IsList() {
		return nil, fmt.Errorf("type mismatch: list vs named")
	}
	if a.IsList() {
		inner, err := mergeWrapping(a.List, b.List, nonNull)
		if err != nil {
			return nil, err
		}
		return &config.TypeRef{List: inner, NonNull: nonNull(a.NonNull, b.NonNull)}, nil
	}
	if a.NamedType() != b.NamedType() {
		return nil, fmt.Errorf("type mismatch: %s vs %s", a.NamedType(), b.NamedType())
	}
	return &config.TypeRef{Named: a.NamedType(), NonNull: nonNull(a.NonNull, b.NonNull)}, nil
}
