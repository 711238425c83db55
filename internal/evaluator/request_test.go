package evaluator

import (
	"context"
	"testing"

	"github.com/tailcall-gateway/engine/internal/blueprint"
	"github.com/tailcall-gateway/engine/internal/cache"
	"github.com/tailcall-gateway/engine/internal/dataloader"
	"github.com/tailcall-gateway/engine/internal/ir"
	"github.com/tailcall-gateway/engine/internal/source"
	"github.com/tailcall-gateway/engine/internal/template"
	"github.com/tailcall-gateway/engine/internal/value"
)

type stubHTTP struct {
	resp value.Value
	err  error
}

func (s *stubHTTP) Call(ctx context.Context, tmpl *ir.HTTPTemplate, scope template.Scope) (value.Value, error) {
	if s.err != nil {
		return value.Null, s.err
	}
	return s.resp, nil
}

func compileTest(t *testing.T, src string) *blueprint.Blueprint {
	t.Helper()
	cfg, err := source.ParseSDL("test.graphql", src)
	if err != nil {
		t.Fatalf("ParseSDL: %v", err)
	}
	bp, err := blueprint.Compile(cfg)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return bp
}

func newEvalContext(bp *blueprint.Blueprint, http *stubHTTP) *EvalContext {
	return &EvalContext{
		Blueprint: bp,
		Adapters:  Adapters{HTTP: http},
		Cache:     cache.New(16),
		Loaders:   dataloader.NewManager(),
		Env:       value.Null,
		Headers:   value.Null,
	}
}

func TestExecuteRequestResolvesFieldWithoutResolverFromParentValue(t *testing.T) {
	bp := compileTest(t, `
schema { query: Query }
type Query {
  user: User @expr(body: "{\"id\": 1, \"name\": \"ada\"}")
}
type User {
  id: ID!
  name: String
}
`)
	ec := newEvalContext(bp, &stubHTTP{})
	res := ExecuteRequest(context.Background(), ec, `{ user { id name } }`, "", nil)
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %+v", res.Errors)
	}
	name, ok := res.Data.Index("user")
	if !ok {
		t.Fatal("expected user in response data")
	}
	got, _ := name.Index("name")
	if s, _ := got.As().(string); s != "ada" {
		t.Fatalf("expected name=ada, got %+v", got.As())
	}
}

func TestExecuteRequestDispatchesHTTPResolver(t *testing.T) {
	bp := compileTest(t, `
schema { query: Query }
type Query {
  user(id: ID!): User @http(url: "http://up/u/{{.args.id}}")
}
type User {
  id: ID!
  name: String
}
`)
	m := value.NewMap()
	m.Set("id", value.String("7"))
	m.Set("name", value.String("grace"))
	stub := &stubHTTP{resp: value.FromMap(m)}
	ec := newEvalContext(bp, stub)

	res := ExecuteRequest(context.Background(), ec, `{ user(id: "7") { id name } }`, "", nil)
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %+v", res.Errors)
	}
	user, _ := res.Data.Index("user")
	name, _ := user.Index("name")
	if s, _ := name.As().(string); s != "grace" {
		t.Fatalf("expected name=grace, got %+v", name.As())
	}
}

func TestExecuteRequestNonNullViolationNullsOnlyTheParentField(t *testing.T) {
	bp := compileTest(t, `
schema { query: Query }
type Query {
  a: Wrapper @expr(body: "{}")
  b: String @expr(body: "\"ok\"")
}
type Wrapper {
  inner: String!
}
`)
	ec := newEvalContext(bp, &stubHTTP{})
	res := ExecuteRequest(context.Background(), ec, `{ a { inner } b }`, "", nil)
	if len(res.Errors) == 0 {
		t.Fatal("expected a non-null violation error")
	}
	a, ok := res.Data.Index("a")
	if !ok || a.Kind() != value.KindNull {
		t.Fatalf("expected a to be null after its non-null child failed, got %+v", a.As())
	}
	b, ok := res.Data.Index("b")
	if !ok {
		t.Fatal("expected sibling field b to still be present")
	}
	if s, _ := b.As().(string); s != "ok" {
		t.Fatalf("expected sibling field b to still resolve, got %+v", b.As())
	}
}

func TestExecuteRequestServesFederationService(t *testing.T) {
	bp := compileTest(t, `
schema { query: Query }
type Query { x: Int }
type Product @key(fields: "id") {
  id: ID!
  name: String
}
`)
	ec := newEvalContext(bp, &stubHTTP{})
	res := ExecuteRequest(context.Background(), ec, `{ _service { sdl } }`, "", nil)
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %+v", res.Errors)
	}
	svc, ok := res.Data.Index("_service")
	if !ok {
		t.Fatal("expected _service in response data")
	}
	sdl, _ := svc.Index("sdl")
	s, _ := sdl.As().(string)
	if s == "" {
		t.Fatal("expected non-empty sdl text")
	}
}

func TestExecuteRequestServesSchemaIntrospection(t *testing.T) {
	bp := compileTest(t, `
schema { query: Query }
type Query {
  user: User @expr(body: "{\"id\": 1}")
}
type User {
  id: ID!
  name: String
}
`)
	ec := newEvalContext(bp, &stubHTTP{})
	res := ExecuteRequest(context.Background(), ec, `{ __schema { queryType { name } types { name } } }`, "", nil)
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %+v", res.Errors)
	}
	schema, ok := res.Data.Index("__schema")
	if !ok {
		t.Fatal("expected __schema in response data")
	}
	qt, _ := schema.Index("queryType")
	name, _ := qt.Index("name")
	if s, _ := name.As().(string); s != "Query" {
		t.Fatalf("expected queryType.name=Query, got %+v", name.As())
	}
	types, _ := schema.Index("types")
	list, _ := types.As().([]any)
	found := false
	for _, tv := range list {
		tm, _ := tv.(map[string]any)
		if tm["name"] == "User" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected User among __schema.types, got %+v", list)
	}
}

func TestExecuteRequestServesTypeIntrospectionByName(t *testing.T) {
	bp := compileTest(t, `
schema { query: Query }
type Query {
  user: User @expr(body: "{\"id\": 1}")
}
type User {
  id: ID!
  name: String
}
`)
	ec := newEvalContext(bp, &stubHTTP{})
	res := ExecuteRequest(context.Background(), ec, `{ __type(name: "User") { name kind fields { name } } }`, "", nil)
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %+v", res.Errors)
	}
	typ, ok := res.Data.Index("__type")
	if !ok {
		t.Fatal("expected __type in response data")
	}
	kind, _ := typ.Index("kind")
	if s, _ := kind.As().(string); s != "OBJECT" {
		t.Fatalf("expected kind=OBJECT, got %+v", kind.As())
	}
	fields, _ := typ.Index("fields")
	list, _ := fields.As().([]any)
	names := map[string]bool{}
	for _, fv := range list {
		fm, _ := fv.(map[string]any)
		if n, ok := fm["name"].(string); ok {
			names[n] = true
		}
	}
	if !names["id"] || !names["name"] {
		t.Fatalf("expected id and name fields, got %+v", list)
	}
}

func TestExecuteRequestTypeIntrospectionUnknownNameIsNull(t *testing.T) {
	bp := compileTest(t, `
schema { query: Query }
type Query { x: Int }
`)
	ec := newEvalContext(bp, &stubHTTP{})
	res := ExecuteRequest(context.Background(), ec, `{ __type(name: "Nope") { name } }`, "", nil)
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %+v", res.Errors)
	}
	typ, ok := res.Data.Index("__type")
	if !ok || typ.Kind() != value.KindNull {
		t.Fatalf("expected __type to be null for an unknown name, got %+v", typ.As())
	}
}

func TestExecuteRequestResolvesEntitiesFromRepresentations(t *testing.T) {
	bp := compileTest(t, `
schema { query: Query }
type Query { x: Int }
type Product @key(fields: "id") {
  id: ID!
  name: String
}
`)
	ec := newEvalContext(bp, &stubHTTP{})
	query := `query($reps: [_Any!]!) { _entities(representations: $reps) { ... on Product { id name } } }`
	vars := map[string]any{
		"reps": []any{
			map[string]any{"__typename": "Product", "id": "1", "name": "widget"},
		},
	}
	res := ExecuteRequest(context.Background(), ec, query, "", vars)
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %+v", res.Errors)
	}
	entities, ok := res.Data.Index("_entities")
	if !ok || entities.Kind() != value.KindList {
		t.Fatalf("expected a list of entities, got %+v", entities.As())
	}
	list, _ := entities.As().([]any)
	if len(list) != 1 {
		t.Fatalf("expected 1 entity, got %d", len(list))
	}
	first, _ := list[0].(map[string]any)
	if first["name"] != "widget" {
		t.Fatalf("expected entity name=widget, got %+v", first)
	}
}
