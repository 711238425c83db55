// Package config implements the canonical, source-independent
// representation of types, fields, resolvers, and operational policy
// (spec.md §3), together with the merge algebra in the merge subpackage.
package config

import (
	"sort"

	"github.com/tailcall-gateway/engine/internal/value"
)

// Config is the top-level document: root-schema entry points, the type
// map, unions, enums, server/upstream policy, links, and telemetry config.
type Config struct {
	Schema     RootSchema
	Types      map[string]*Type
	Unions     map[string]*Union
	Enums      map[string]*Enum
	Server     ServerPolicy
	Upstream   UpstreamPolicy
	Links      []*Link
	Telemetry  *Telemetry
	Directives map[string]*DirectiveDef
}

// NewConfig returns an empty Config with initialized maps.
func NewConfig() *Config {
	return &Config{
		Types:      make(map[string]*Type),
		Unions:     make(map[string]*Union),
		Enums:      make(map[string]*Enum),
		Directives: make(map[string]*DirectiveDef),
	}
}

// RootSchema names the root operation types.
type RootSchema struct {
	Query        string
	Mutation     string
	Subscription string
}

// ServerPolicy is operational policy for the exposed GraphQL server.
type ServerPolicy struct {
	Port                int
	EnableBatchRequests bool
	EnableGraphiQL      bool
	ResponseTimeoutMS   int // 0 = disabled
	CORS                []string
}

// UpstreamPolicy is default policy applied to upstream calls unless
// overridden per-resolver.
type UpstreamPolicy struct {
	EnableBatching      bool
	ConnectTimeoutMS    int
	ReadTimeoutMS       int
	TotalTimeoutMS      int
	MaxIdlePerHost      int
	PoolIdleTimeoutMS   int
	BatchHeaderAllowlist []string
}

// Telemetry configures the OTLP/stdout exporters (consumed only; the
// exporters themselves are external collaborators per spec.md §1).
type Telemetry struct {
	Export   string // "otlp" | "stdout" | "prometheus" | ""
	Endpoint string
}

// Kind is the GraphQL type category.
type Kind string

const (
	KindObject      Kind = "OBJECT"
	KindInterface   Kind = "INTERFACE"
	KindUnion       Kind = "UNION"
	KindEnum        Kind = "ENUM"
	KindScalar      Kind = "SCALAR"
	KindInputObject Kind = "INPUT_OBJECT"
)

// Type is a named GraphQL type (spec.md §3 "Type").
type Type struct {
	Name         string
	Kind         Kind
	Fields       map[string]*Field
	Interfaces   map[string]bool
	Description  string
	CachePolicy  *CachePolicy
	Protected    bool
	Resolver     *Resolver // federation entity resolver, object/interface only
	Directives   []*DirectiveUse
	EnumValues   map[string]*EnumValueDef // ENUM only
}

// NewType returns an empty Type of the given kind.
func NewType(name string, kind Kind) *Type {
	return &Type{Name: name, Kind: kind, Fields: make(map[string]*Field), Interfaces: make(map[string]bool)}
}

// OrderedFields returns fields sorted by declaration index.
func (t *Type) OrderedFields() []*Field {
	out := make([]*Field, 0, len(t.Fields))
	for _, f := range t.Fields {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// EnumValueDef is one variant of an enum type.
type EnumValueDef struct {
	Name  string
	Index int
}

// Union is a union type; membership order is preserved for deterministic
// SDL emission.
type Union struct {
	Name        string
	Members     []string
	Description string
}

// Enum is an enum type declared at the top level (kept distinct from
// Type.EnumValues so enum-only merge rules in the merge algebra can apply
// without special-casing Type).
type Enum struct {
	Name        string
	Values      map[string]*EnumValueDef
	Description string
}

// TypeRef is a (possibly wrapped) reference to a named type.
type TypeRef struct {
	Named    string
	List     *TypeRef
	NonNull  bool
}

func Named(name string) *TypeRef      { return &TypeRef{Named: name} }
func NonNull(of *TypeRef) *TypeRef    { return &TypeRef{List: of.List, Named: of.Named, NonNull: true} }
func ListOf(of *TypeRef) *TypeRef     { return &TypeRef{List: of} }

// IsList reports whether this ref (looking through NonNull) is a list.
func (t *TypeRef) IsList() bool { return t != nil && t.List != nil }

// NamedType returns the innermost named type.
func (t *TypeRef) NamedType() string {
	for cur := t; cur != nil; {
		if cur.Named != "" {
			return cur.Named
		}
		cur = cur.List
	}
	return ""
}

// Field is a field on an object, interface, or input-object (spec.md §3
// "Field").
type Field struct {
	Name         string
	Index        int
	Type         *TypeRef
	Args         map[string]*Arg
	Resolver     *Resolver
	CachePolicy  *CachePolicy
	Protected    bool
	Modifier     *FieldModifier
	DefaultValue value.Value
	Directives   []*DirectiveUse
	Description  string
}

// OrderedArgs returns Args sorted by declaration index.
func (f *Field) OrderedArgs() []*Arg {
	out := make([]*Arg, 0, len(f.Args))
	for _, a := range f.Args {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// FieldModifier implements @modify/@omit/@alias.
type FieldModifier struct {
	Rename string
	Omit   bool
}

// Arg is a field or directive argument.
type Arg struct {
	Name         string
	Index        int
	Type         *TypeRef
	DefaultValue value.Value
}

// CachePolicy is the @cache directive's parameters.
type CachePolicy struct {
	MaxAgeMS int64
}

// DirectiveDef and DirectiveUse model extra directive annotations
// (spec.md §3 "Type"/"Field": "additional directive annotations").
type DirectiveDef struct {
	Name       string
	Args       map[string]*Arg
	Repeatable bool
	Locations  []string
}

type DirectiveUse struct {
	Name string
	Args map[string]value.Value
}

// Link references an external resource (spec.md §3 "Link").
type Link struct {
	Kind   LinkKind
	Source string
	ID     string // link-specific identifier, e.g. a federation subgraph name
}

type LinkKind string

const (
	LinkConfig    LinkKind = "Config"
	LinkProtobuf  LinkKind = "Protobuf"
	LinkScript    LinkKind = "Script"
	LinkCert      LinkKind = "Cert"
	LinkKey       LinkKind = "Key"
	LinkOperation LinkKind = "Operation"
	LinkHtpasswd  LinkKind = "Htpasswd"
	LinkJwks      LinkKind = "Jwks"
	LinkGrpc      LinkKind = "Grpc"
)
