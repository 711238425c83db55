// Package ir implements the compiled intermediate representation: a pure
// tagged tree evaluated per-field against a request's EvalContext (spec.md
// §3 "IR (tagged variant)", §4.4 "IR evaluator"). It is produced once per
// field by the blueprint compiler and never mutated afterward; the same
// instance is shared and evaluated concurrently across every request.
//
// The tagged-variant shape follows internal/irlegacy/types.go's pattern of
// one discriminant field plus a set of pointer sub-structs (Definition's
// Object/Interface/Union/Input/Enum/Scalar), generalized from a type
// definition union to an evaluation-expression union.
package ir

import "github.com/tailcall-gateway/engine/internal/template"

// Kind discriminates the IR node variant.
type Kind string

const (
	KindContext  Kind = "Context"
	KindDynamic  Kind = "Dynamic"
	KindIO       Kind = "IO"
	KindCache    Kind = "Cache"
	KindPath     Kind = "Path"
	KindProtect  Kind = "Protect"
	KindMap      Kind = "Map"
	KindDeferred Kind = "Deferred"
	KindObject   Kind = "Object"
)

// Node is one IR expression; exactly one Kind-matching field is populated.
type Node struct {
	Kind Kind

	Context  *ContextNode
	Dynamic  *DynamicNode
	IO       *IONode
	Cache    *CacheNode
	Path     *PathNode
	Protect  *ProtectNode
	Map      *MapNode
	Deferred *DeferredNode
	Object   *ObjectNode
}

// ContextKind discriminates the Context node's sub-variant.
type ContextKind string

const (
	ContextValue     ContextKind = "value"
	ContextArgs      ContextKind = "args"
	ContextPath      ContextKind = "path"
	ContextPushArgs  ContextKind = "push-args"
	ContextPushValue ContextKind = "push-value"
)

// ContextNode reads from or rebinds the current evaluation scope.
type ContextNode struct {
	Kind ContextKind
	Path string // populated for ContextPath

	Sub  *Node // populated for push-args/push-value: evaluated to produce the pushed value
	Then *Node // continuation evaluated against the rebound scope
}

// Value returns `Context(value)`.
func Value() *Node { return &Node{Kind: KindContext, Context: &ContextNode{Kind: ContextValue}} }

// Args returns `Context(args)`.
func Args() *Node { return &Node{Kind: KindContext, Context: &ContextNode{Kind: ContextArgs}} }

// PathOf returns `Context(path(p))`.
func PathOf(p string) *Node {
	return &Node{Kind: KindContext, Context: &ContextNode{Kind: ContextPath, Path: p}}
}

// PushArgs returns `Context(push-args(sub, then))`: evaluates sub, binds its
// result as the new args scope, then evaluates then.
func PushArgs(sub, then *Node) *Node {
	return &Node{Kind: KindContext, Context: &ContextNode{Kind: ContextPushArgs, Sub: sub, Then: then}}
}

// PushValue returns `Context(push-value(sub, then))`: analogous for the
// parent-value scope (used by @call step chaining).
func PushValue(sub, then *Node) *Node {
	return &Node{Kind: KindContext, Context: &ContextNode{Kind: ContextPushValue, Sub: sub, Then: then}}
}

// DynamicNode renders a Template over the current scope, JSON-parsing the
// rendered string when it parses cleanly (spec.md §4.4 "Dynamic(t) renders
// t against the scope; the result is JSON-parsed if...").
type DynamicNode struct {
	Template *template.Template
}

func DynamicOf(t *template.Template) *Node { return &Node{Kind: KindDynamic, Dynamic: &DynamicNode{Template: t}} }

// IOKind discriminates the upstream protocol an IO node speaks.
type IOKind string

const (
	IOHTTP    IOKind = "http"
	IOGraphQL IOKind = "graphql"
	IOGRPC    IOKind = "grpc"
	IOJS      IOKind = "js"
)

// IONode performs one upstream call (or worker invocation, for js). Only the
// Kind-matching template sub-struct is populated.
type IONode struct {
	Kind IOKind

	HTTP    *HTTPTemplate
	GraphQL *GraphQLTemplate
	GRPC    *GRPCTemplate
	JS      *JSTemplate

	GroupBy      []string // path into the response identifying the matched element
	DataLoaderID DataLoaderID
	OnRequest    string // script reference, optional
	OnResponse   string // script reference, optional
	Dedupe       bool
}

// DataLoaderID identifies a data-loader batch registered at blueprint-compile
// time: (resolver kind, canonical URL template head, batch-key path), per
// spec.md §4.3 step 7. Nodes sharing an id share one batch within a request.
type DataLoaderID string

// HTTPTemplate is the rendering recipe for @http.
type HTTPTemplate struct {
	Method  string
	URL     *template.Template
	Headers map[string]*template.Template
	Body    *template.Template
	Query   []QueryParamTemplate
}

// QueryParamTemplate is one templated query-string parameter.
type QueryParamTemplate struct {
	Key   string
	Value *template.Template
}

// GraphQLTemplate is the rendering recipe for @graphQL.
type GraphQLTemplate struct {
	Name    string
	Args    map[string]*template.Template
	Headers map[string]*template.Template
	BaseURL string
	Batch   bool
}

// GRPCTemplate is the rendering recipe for @grpc.
type GRPCTemplate struct {
	Method     string
	Body       *template.Template
	Metadata   map[string]*template.Template
	ConnectRPC bool
}

// JSTemplate is the rendering recipe for @js.
type JSTemplate struct {
	Script    string
	Export    string
	TimeoutMS int64
}

func IOOf(node IONode) *Node { return &Node{Kind: KindIO, IO: &node} }

// CacheNode wraps Inner with per-fingerprint TTL caching (spec.md §4.4
// "Cache(ir, ttl) fingerprints the rendered request").
type CacheNode struct {
	Inner    *Node
	MaxAgeMS int64
}

func CacheOf(inner *Node, maxAgeMS int64) *Node {
	return &Node{Kind: KindCache, Cache: &CacheNode{Inner: inner, MaxAgeMS: maxAgeMS}}
}

// PathNode evaluates Inner then indexes the result by Path.
type PathNode struct {
	Inner *Node
	Path  string
}

func PathWrap(inner *Node, path string) *Node {
	return &Node{Kind: KindPath, Path: &PathNode{Inner: inner, Path: path}}
}

// ProtectNode requires a successful auth verification before Inner evaluates.
type ProtectNode struct {
	Inner *Node
}

func ProtectOf(inner *Node) *Node { return &Node{Kind: KindProtect, Protect: &ProtectNode{Inner: inner}} }

// MapNode evaluates Inner then reshapes the result via Mapping. It backs two
// SDL operators: @discriminate (tag a union/interface result by the field
// naming its concrete type) and generic field rename/omit composition.
type MapNode struct {
	Inner   *Node
	Mapping *Mapping
}

// Mapping is a value-shape transform applied after Inner evaluates.
type Mapping struct {
	// DiscriminateField, if non-empty, is the source field whose value names
	// the concrete GraphQL type the result should be tagged as.
	DiscriminateField string
	// DiscriminateValues maps a source field value to the GraphQL type name
	// it discriminates to, for source values that don't already match a
	// type name verbatim.
	DiscriminateValues map[string]string

	// Renames/Omits apply @alias/@omit at the shape level, in field order.
	Renames []Rename
	Omits   []string
}

type Rename struct {
	From string
	To   string
}

func MapOf(inner *Node, mapping *Mapping) *Node { return &Node{Kind: KindMap, Map: &MapNode{Inner: inner, Mapping: mapping}} }

// DeferredNode marks Inner for post-response streaming under Path (the
// @stream/defer execution model referenced by spec.md §3).
type DeferredNode struct {
	Inner *Node
	Path  string
}

func DeferredOf(inner *Node, path string) *Node {
	return &Node{Kind: KindDeferred, Deferred: &DeferredNode{Inner: inner, Path: path}}
}

// ObjectNode assembles a value.Map out of named sub-nodes, each evaluated
// against the current scope. It backs @call step argument construction,
// where a step's args are a set of independently templated values rather
// than a single renderable expression.
type ObjectNode struct {
	Fields map[string]*Node
}

func ObjectOf(fields map[string]*Node) *Node { return &Node{Kind: KindObject, Object: &ObjectNode{Fields: fields}} }
