package source

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tailcall-gateway/engine/internal/config"
	"github.com/tailcall-gateway/engine/internal/value"
)

// doc is the isomorphic JSON/YAML mirror of the SDL shape (spec.md §6
// "JSON/YAML ... Isomorphic to the SDL representation, sharing the
// in-memory Config tree"). Field names match the SDL directive argument
// names used throughout sdl.go so the two readers stay in lockstep.
type doc struct {
	Schema struct {
		Query        string `json:"query" yaml:"query"`
		Mutation     string `json:"mutation" yaml:"mutation"`
		Subscription string `json:"subscription" yaml:"subscription"`
	} `json:"schema" yaml:"schema"`
	Server     *docServer     `json:"server" yaml:"server"`
	Upstream   *docUpstream   `json:"upstream" yaml:"upstream"`
	Telemetry  *docTelemetry  `json:"telemetry" yaml:"telemetry"`
	Links      []docLink      `json:"links" yaml:"links"`
	Types      []docType      `json:"types" yaml:"types"`
	Unions     []docUnion     `json:"unions" yaml:"unions"`
	Enums      []docEnum      `json:"enums" yaml:"enums"`
}

type docServer struct {
	Port                int      `json:"port" yaml:"port"`
	EnableBatchRequests bool     `json:"enableBatchRequests" yaml:"enableBatchRequests"`
	EnableGraphiQL      bool     `json:"enableGraphiQL" yaml:"enableGraphiQL"`
	ResponseTimeoutMS   int      `json:"responseTimeoutMS" yaml:"responseTimeoutMS"`
	CORS                []string `json:"cors" yaml:"cors"`
}

type docUpstream struct {
	EnableBatching       bool     `json:"enableBatching" yaml:"enableBatching"`
	ConnectTimeoutMS     int      `json:"connectTimeoutMS" yaml:"connectTimeoutMS"`
	ReadTimeoutMS        int      `json:"readTimeoutMS" yaml:"readTimeoutMS"`
	TotalTimeoutMS       int      `json:"totalTimeoutMS" yaml:"totalTimeoutMS"`
	MaxIdlePerHost       int      `json:"maxIdlePerHost" yaml:"maxIdlePerHost"`
	PoolIdleTimeoutMS    int      `json:"poolIdleTimeoutMS" yaml:"poolIdleTimeoutMS"`
	BatchHeaderAllowlist []string `json:"batchHeaderAllowlist" yaml:"batchHeaderAllowlist"`
}

type docTelemetry struct {
	Export   string `json:"export" yaml:"export"`
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

type docLink struct {
	Kind   string `json:"kind" yaml:"kind"`
	Source string `json:"source" yaml:"source"`
	ID     string `json:"id" yaml:"id"`
}

type docType struct {
	Name        string              `json:"name" yaml:"name"`
	Kind        string              `json:"kind" yaml:"kind"`
	Description string              `json:"description" yaml:"description"`
	Interfaces  []string            `json:"interfaces" yaml:"interfaces"`
	Fields      []docField          `json:"fields" yaml:"fields"`
	Cache       *docCache           `json:"cache" yaml:"cache"`
	Protected   bool                `json:"protected" yaml:"protected"`
	Key         *docKeyResolver     `json:"key" yaml:"key"`
}

type docKeyResolver struct {
	Fields []string `json:"fields" yaml:"fields"`
}

type docCache struct {
	MaxAge int64 `json:"maxAge" yaml:"maxAge"`
}

type docField struct {
	Name         string            `json:"name" yaml:"name"`
	Type         string            `json:"type" yaml:"type"`
	Description  string            `json:"description" yaml:"description"`
	Args         []docArg          `json:"args" yaml:"args"`
	Cache        *docCache         `json:"cache" yaml:"cache"`
	Protected    bool              `json:"protected" yaml:"protected"`
	Omit         bool              `json:"omit" yaml:"omit"`
	Alias        string            `json:"alias" yaml:"alias"`
	HTTP         *docHTTP          `json:"http" yaml:"http"`
	GRPC         *docGRPC          `json:"grpc" yaml:"grpc"`
	GraphQL      *docGraphQL       `json:"graphQL" yaml:"graphQL"`
	Call         *docCall          `json:"call" yaml:"call"`
	Expr         *docExpr          `json:"expr" yaml:"expr"`
	JS           *docJS            `json:"js" yaml:"js"`
}

type docArg struct {
	Name    string `json:"name" yaml:"name"`
	Type    string `json:"type" yaml:"type"`
	Default any    `json:"default" yaml:"default"`
}

type docHTTP struct {
	Method     string            `json:"method" yaml:"method"`
	URL        string            `json:"url" yaml:"url"`
	Headers    map[string]string `json:"headers" yaml:"headers"`
	Body       string            `json:"body" yaml:"body"`
	Query      []docQueryParam   `json:"query" yaml:"query"`
	BatchKey   []string          `json:"batchKey" yaml:"batchKey"`
	GroupBy    []string          `json:"groupBy" yaml:"groupBy"`
	Dedupe     bool              `json:"dedupe" yaml:"dedupe"`
	OnRequest  string            `json:"onRequest" yaml:"onRequest"`
	OnResponse string            `json:"onResponse" yaml:"onResponse"`
}

type docQueryParam struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

type docGRPC struct {
	Method     string            `json:"method" yaml:"method"`
	Body       string            `json:"body" yaml:"body"`
	BatchKey   []string          `json:"batchKey" yaml:"batchKey"`
	Metadata   map[string]string `json:"metadata" yaml:"metadata"`
	ConnectRPC bool              `json:"connectRPC" yaml:"connectRPC"`
}

type docGraphQL struct {
	Name     string            `json:"name" yaml:"name"`
	Args     map[string]string `json:"args" yaml:"args"`
	BatchKey []string          `json:"batchKey" yaml:"batchKey"`
	Batch    bool              `json:"batch" yaml:"batch"`
	Headers  map[string]string `json:"headers" yaml:"headers"`
	BaseURL  string            `json:"baseURL" yaml:"baseURL"`
}

type docCall struct {
	Steps []docCallStep `json:"steps" yaml:"steps"`
}

type docCallStep struct {
	Field string            `json:"field" yaml:"field"`
	Args  map[string]string `json:"args" yaml:"args"`
}

type docExpr struct {
	Body string `json:"body" yaml:"body"`
}

type docJS struct {
	Script    string `json:"script" yaml:"script"`
	Export    string `json:"export" yaml:"export"`
	TimeoutMS int64  `json:"timeoutMS" yaml:"timeoutMS"`
}

type docUnion struct {
	Name        string   `json:"name" yaml:"name"`
	Members     []string `json:"members" yaml:"members"`
	Description string   `json:"description" yaml:"description"`
}

type docEnum struct {
	Name        string   `json:"name" yaml:"name"`
	Values      []string `json:"values" yaml:"values"`
	Description string   `json:"description" yaml:"description"`
}

// ParseJSON decodes a JSON configuration document using the isomorphic doc
// shape, sharing config conversion logic with ParseYAML.
func ParseJSON(filename string, content []byte) (*config.Config, error) {
	var d doc
	if err := json.Unmarshal(content, &d); err != nil {
		return nil, fmt.Errorf("parse JSON %q: %w", filename, err)
	}
	return toConfig(&d)
}

// ParseYAML decodes a YAML configuration document, using go-yaml/v3 as the
// teacher's ecosystem neighbors do (other_examples manifests consistently
// reach for gopkg.in/yaml.v3 over sigs.k8s.io/yaml for plain config decode).
func ParseYAML(filename string, content []byte) (*config.Config, error) {
	var d doc
	if err := yaml.Unmarshal(content, &d); err != nil {
		return nil, fmt.Errorf("parse YAML %q: %w", filename, err)
	}
	return toConfig(&d)
}

func toConfig(d *doc) (*config.Config, error) {
	out := config.NewConfig()
	out.Schema = config.RootSchema{Query: d.Schema.Query, Mutation: d.Schema.Mutation, Subscription: d.Schema.Subscription}
	if d.Server != nil {
		out.Server = config.ServerPolicy{
			Port: d.Server.Port, EnableBatchRequests: d.Server.EnableBatchRequests,
			EnableGraphiQL: d.Server.EnableGraphiQL, ResponseTimeoutMS: d.Server.ResponseTimeoutMS, CORS: d.Server.CORS,
		}
	}
	if d.Upstream != nil {
		out.Upstream = config.UpstreamPolicy{
			EnableBatching: d.Upstream.EnableBatching, ConnectTimeoutMS: d.Upstream.ConnectTimeoutMS,
			ReadTimeoutMS: d.Upstream.ReadTimeoutMS, TotalTimeoutMS: d.Upstream.TotalTimeoutMS,
			MaxIdlePerHost: d.Upstream.MaxIdlePerHost, PoolIdleTimeoutMS: d.Upstream.PoolIdleTimeoutMS,
			BatchHeaderAllowlist: d.Upstream.BatchHeaderAllowlist,
		}
	}
	if d.Telemetry != nil {
		out.Telemetry = &config.Telemetry{Export: d.Telemetry.Export, Endpoint: d.Telemetry.Endpoint}
	}
	for _, l := range d.Links {
		if l.Source == "" {
			return nil, fmt.Errorf("@link requires a non-empty source")
		}
		out.Links = append(out.Links, &config.Link{Kind: config.LinkKind(l.Kind), Source: l.Source, ID: l.ID})
	}
	for _, t := range d.Types {
		ct, err := toConfigType(t)
		if err != nil {
			return nil, err
		}
		out.Types[t.Name] = ct
	}
	for _, u := range d.Unions {
		out.Unions[u.Name] = &config.Union{Name: u.Name, Members: u.Members, Description: u.Description}
	}
	for _, e := range d.Enums {
		ce := &config.Enum{Name: e.Name, Values: make(map[string]*config.EnumValueDef, len(e.Values)), Description: e.Description}
		for i, v := range e.Values {
			ce.Values[v] = &config.EnumValueDef{Name: v, Index: i}
		}
		out.Enums[e.Name] = ce
	}
	return out, nil
}

func toConfigType(t docType) (*config.Type, error) {
	ct := config.NewType(t.Name, config.Kind(t.Kind))
	ct.Description = t.Description
	for _, i := range t.Interfaces {
		ct.Interfaces[i] = true
	}
	if t.Cache != nil {
		ct.CachePolicy = &config.CachePolicy{MaxAgeMS: t.Cache.MaxAge}
	}
	ct.Protected = t.Protected
	if t.Key != nil {
		ct.Resolver = &config.Resolver{Kind: config.ResolverFederationEntity, FedEntity: &config.FederationEntityResolver{KeyFields: t.Key.Fields}}
	}
	for i, f := range t.Fields {
		cf, err := toConfigField(i, f)
		if err != nil {
			return nil, fmt.Errorf("type %q field %q: %w", t.Name, f.Name, err)
		}
		ct.Fields[f.Name] = cf
	}
	return ct, nil
}

func toConfigField(index int, f docField) (*config.Field, error) {
	ref, err := ParseTypeRef(f.Type)
	if err != nil {
		return nil, err
	}
	cf := &config.Field{Name: f.Name, Index: index, Type: ref, Args: make(map[string]*config.Arg, len(f.Args)), Description: f.Description}
	for i, a := range f.Args {
		aref, err := ParseTypeRef(a.Type)
		if err != nil {
			return nil, fmt.Errorf("arg %q: %w", a.Name, err)
		}
		arg := &config.Arg{Name: a.Name, Index: i, Type: aref}
		if a.Default != nil {
			arg.DefaultValue = value.FromAny(a.Default)
		}
		cf.Args[a.Name] = arg
	}
	if f.Cache != nil {
		cf.CachePolicy = &config.CachePolicy{MaxAgeMS: f.Cache.MaxAge}
	}
	cf.Protected = f.Protected
	if f.Omit || f.Alias != "" {
		cf.Modifier = &config.FieldModifier{Omit: f.Omit, Rename: f.Alias}
	}
	if n := countResolvers(f); n > 1 {
		return nil, fmt.Errorf("declares more than one resolver operator")
	}
	switch {
	case f.HTTP != nil:
		h := f.HTTP
		method := h.Method
		if method == "" {
			method = "GET"
		}
		qp := make([]config.QueryParam, 0, len(h.Query))
		for _, q := range h.Query {
			qp = append(qp, config.QueryParam{Key: q.Key, Value: q.Value})
		}
		cf.Resolver = &config.Resolver{Kind: config.ResolverHTTP, HTTP: &config.HTTPResolver{
			Method: method, URL: h.URL, Headers: h.Headers, Body: h.Body, Query: qp,
			BatchKey: h.BatchKey, GroupBy: h.GroupBy, Dedupe: h.Dedupe, OnRequest: h.OnRequest, OnResponse: h.OnResponse,
		}}
	case f.GRPC != nil:
		g := f.GRPC
		if !isValidGRPCMethod(g.Method) {
			return nil, fmt.Errorf("grpc method %q must parse as package.service.method", g.Method)
		}
		cf.Resolver = &config.Resolver{Kind: config.ResolverGRPC, GRPC: &config.GRPCResolver{
			Method: g.Method, Body: g.Body, BatchKey: g.BatchKey, Metadata: g.Metadata, ConnectRPC: g.ConnectRPC,
		}}
	case f.GraphQL != nil:
		g := f.GraphQL
		cf.Resolver = &config.Resolver{Kind: config.ResolverGraphQL, GraphQL: &config.GraphQLResolver{
			Name: g.Name, Args: g.Args, BatchKey: g.BatchKey, Batch: g.Batch, Headers: g.Headers, BaseURL: g.BaseURL,
		}}
	case f.Call != nil:
		if len(f.Call.Steps) == 0 {
			return nil, fmt.Errorf("call requires a non-empty step list")
		}
		steps := make([]config.CallStep, 0, len(f.Call.Steps))
		for _, s := range f.Call.Steps {
			steps = append(steps, config.CallStep{Field: s.Field, Args: s.Args})
		}
		cf.Resolver = &config.Resolver{Kind: config.ResolverCall, Call: &config.CallResolver{Steps: steps}}
	case f.Expr != nil:
		cf.Resolver = &config.Resolver{Kind: config.ResolverExpr, Expr: &config.ExprResolver{Body: f.Expr.Body}}
	case f.JS != nil:
		timeout := f.JS.TimeoutMS
		if timeout == 0 {
			timeout = 1000
		}
		cf.Resolver = &config.Resolver{Kind: config.ResolverJS, JS: &config.JSResolver{Script: f.JS.Script, Export: f.JS.Export, TimeoutMS: timeout}}
	}
	return cf, nil
}

func countResolvers(f docField) int {
	n := 0
	for _, set := range []bool{f.HTTP != nil, f.GRPC != nil, f.GraphQL != nil, f.Call != nil, f.Expr != nil, f.JS != nil} {
		if set {
			n++
		}
	}
	return n
}

// ParseTypeRef parses the SDL-style type-reference syntax ("User", "User!",
// "[User!]!") shared between SDL, JSON, and YAML sources.
func ParseTypeRef(s string) (*config.TypeRef, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty type reference")
	}
	if strings.HasPrefix(s, "[") {
		end := strings.LastIndex(s, "]")
		if end < 0 {
			return nil, fmt.Errorf("malformed list type %q", s)
		}
		inner, err := ParseTypeRef(s[1:end])
		if err != nil {
			return nil, err
		}
		rest := s[end+1:]
		return &config.TypeRef{List: inner, NonNull: rest == "!"}, nil
	}
	nonNull := strings.HasSuffix(s, "!")
	name := strings.TrimSuffix(s, "!")
	if name == "" {
		return nil, fmt.Errorf("malformed type reference %q", s)
	}
	return &config.TypeRef{Named: name, NonNull: nonNull}, nil
}
