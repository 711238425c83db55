package config

// ResolverKind discriminates the tagged Resolver variant (spec.md §3
// "Resolver (tagged variant)").
type ResolverKind string

const (
	ResolverHTTP                  ResolverKind = "http"
	ResolverGraphQL               ResolverKind = "graphql"
	ResolverGRPC                  ResolverKind = "grpc"
	ResolverCall                  ResolverKind = "call"
	ResolverExpr                  ResolverKind = "expr"
	ResolverJS                    ResolverKind = "js"
	ResolverFederationEntity      ResolverKind = "federation-entity"
	ResolverFederationService     ResolverKind = "federation-service"
	ResolverIntrospectionSchema   ResolverKind = "introspection-schema"
	ResolverIntrospectionType     ResolverKind = "introspection-type"
)

// Resolver is the tagged variant of field/type resolvers. Exactly one of
// the Kind-matching sub-structs is populated.
type Resolver struct {
	Kind ResolverKind

	HTTP    *HTTPResolver
	GraphQL *GraphQLResolver
	GRPC    *GRPCResolver
	Call    *CallResolver
	Expr    *ExprResolver
	JS      *JSResolver
	FedEntity  *FederationEntityResolver
	FedService *FederationServiceResolver
}

// QueryParam is one templated query-string parameter.
type QueryParam struct {
	Key   string
	Value string // template source
}

// HTTPResolver is @http.
type HTTPResolver struct {
	Method   string // defaults to GET
	URL      string // template source
	Headers  map[string]string // template sources
	Body     string            // template source, only for methods that carry a body
	Query    []QueryParam
	BatchKey []string // path into the response identifying the matched element
	GroupBy  []string // alias for BatchKey in list-splitting contexts
	Dedupe   bool
	OnRequest  string // script reference, optional
	OnResponse string // script reference, optional
}

// GraphQLResolver is @graphQL.
type GraphQLResolver struct {
	Name      string // upstream field/operation name
	Args      map[string]string // template sources keyed by upstream arg name
	BatchKey  []string
	Batch     bool
	Headers   map[string]string
	BaseURL   string
}

// GRPCResolver is @grpc.
type GRPCResolver struct {
	Method     string // "package.service.method"
	Body       string // template source for the request body
	BatchKey   []string
	Metadata   map[string]string
	ConnectRPC bool // carried into ir.GRPCTemplate; the gRPC adapter does not read it and always calls over gRPC
}

// CallResolver is @call: delegate to another field via a step list.
type CallResolver struct {
	Steps []CallStep
}

type CallStep struct {
	Field string
	Args  map[string]string // template sources
}

// ExprResolver is @expr: a constant/template expression, admissible on any field.
type ExprResolver struct {
	Body string // template source; JSON-parsed if possible per spec.md §4.4
}

// JSResolver is @js: a user script hook.
type JSResolver struct {
	Script     string // link id of the linked Script resource
	Export     string // exported function name
	TimeoutMS  int64  // default 1000ms per spec.md §4.4
}

// FederationEntityResolver resolves `_entities(representations: [_Any!]!)`.
type FederationEntityResolver struct {
	KeyFields []string
}

// FederationServiceResolver resolves `_service { sdl }`.
type FederationServiceResolver struct{}
