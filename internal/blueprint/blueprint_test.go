package blueprint

import (
	"testing"

	"github.com/tailcall-gateway/engine/internal/config"
	"github.com/tailcall-gateway/engine/internal/ir"
	"github.com/tailcall-gateway/engine/internal/source"
)

func mustParse(t *testing.T, src string) *config.Config {
	t.Helper()
	cfg, err := source.ParseSDL("test.graphql", src)
	if err != nil {
		t.Fatalf("ParseSDL: %v", err)
	}
	return cfg
}

func TestCompileFieldWithoutResolverProjectsParentValue(t *testing.T) {
	cfg := mustParse(t, `
schema { query: Query }
type Query { x: Int }
type User {
  id: ID!
  name: String
}
`)
	bp, err := Compile(cfg)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	node, ok := bp.Field("User", "name")
	if !ok {
		t.Fatal("expected compiled node for User.name")
	}
	if node.Kind != ir.KindPath || node.Path.Path != "name" {
		t.Fatalf("expected Path(value, \"name\"), got %+v", node)
	}
}

func TestCompileHTTPResolverWithoutBatchKeyHasNoDataLoader(t *testing.T) {
	cfg := mustParse(t, `
schema { query: Query }
type Query {
  user(id: ID!): User @http(url: "http://up/u/{{.args.id}}")
}
type User { id: ID! }
`)
	bp, err := Compile(cfg)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	node, ok := bp.Field("Query", "user")
	if !ok {
		t.Fatal("expected compiled node for Query.user")
	}
	if node.Kind != ir.KindIO || node.IO.Kind != ir.IOHTTP {
		t.Fatalf("expected IO(http) node, got %+v", node)
	}
	if node.IO.DataLoaderID != "" {
		t.Fatalf("expected no loader without a batch key, got %q", node.IO.DataLoaderID)
	}
}

func TestCompileRejectsUndeclaredTemplateArgument(t *testing.T) {
	cfg := mustParse(t, `
schema { query: Query }
type Query {
  user(id: ID!): User @http(url: "http://up/u/{{.args.missing}}")
}
type User { id: ID! }
`)
	_, err := Compile(cfg)
	if err == nil {
		t.Fatal("expected violation for undeclared template argument")
	}
	ve, ok := err.(ValidationError)
	if !ok {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	found := false
	for _, v := range ve {
		if v.Trace.Argument == "url" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a violation traced to the url argument, got %+v", ve)
	}
}

func TestCompileRejectsUnresolvedTypeReference(t *testing.T) {
	cfg := mustParse(t, `
schema { query: Query }
type Query {
  x: Int
}
`)
	cfg.Types["Query"].Fields["broken"] = &config.Field{
		Name:  "broken",
		Index: 1,
		Type:  config.Named("Nonexistent"),
	}
	_, err := Compile(cfg)
	if err == nil {
		t.Fatal("expected violation for reference to unknown type")
	}
}

func TestCompileProtectedWithoutAuthProviderIsAViolation(t *testing.T) {
	cfg := mustParse(t, `
schema { query: Query }
type Query {
  secret: String @protected
}
`)
	_, err := Compile(cfg)
	if err == nil {
		t.Fatal("expected violation for @protected with no linked auth provider")
	}
}

func TestCompileCacheWrapsResolver(t *testing.T) {
	cfg := mustParse(t, `
schema { query: Query }
type Query {
  x: Int @expr(body: "1") @cache(maxAge: 5000)
}
`)
	bp, err := Compile(cfg)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	node, _ := bp.Field("Query", "x")
	if node.Kind != ir.KindCache || node.Cache.MaxAgeMS != 5000 {
		t.Fatalf("expected Cache(Dynamic, 5000), got %+v", node)
	}
	if node.Cache.Inner.Kind != ir.KindDynamic {
		t.Fatalf("expected inner Dynamic node, got %+v", node.Cache.Inner)
	}
}

func TestCompileSynthesizesFederationSurfaceForKeyedType(t *testing.T) {
	cfg := mustParse(t, `
schema { query: Query }
type Query {
  x: Int
}
type Product @key(fields: "id") {
  id: ID!
  name: String
}
`)
	bp, err := Compile(cfg)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	if _, ok := cfg.Types["_Service"]; !ok {
		t.Fatal("expected synthesized _Service type")
	}
	if _, ok := cfg.Types["_Any"]; !ok {
		t.Fatal("expected synthesized _Any scalar")
	}
	u, ok := cfg.Unions["_Entity"]
	if !ok || len(u.Members) != 1 || u.Members[0] != "Product" {
		t.Fatalf("expected _Entity union with [Product], got %+v", u)
	}

	if _, ok := bp.Field("Query", "_service"); !ok {
		t.Fatal("expected a compiled Query._service field")
	}
	if _, ok := bp.Field("Query", "_entities"); !ok {
		t.Fatal("expected a compiled Query._entities field")
	}
}

func TestCompileLeavesQueryUntouchedWithoutKeyedTypes(t *testing.T) {
	cfg := mustParse(t, `
schema { query: Query }
type Query { x: Int }
`)
	if _, err := Compile(cfg); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if _, ok := cfg.Types["Query"].Fields["_service"]; ok {
		t.Fatal("did not expect _service to be synthesized with no @key types")
	}
	if _, ok := cfg.Types["_Any"]; ok {
		t.Fatal("did not expect _Any to be synthesized with no @key types")
	}
}

func TestCompileSynthesizesIntrospectionSurfaceUnconditionally(t *testing.T) {
	cfg := mustParse(t, `
schema { query: Query }
type Query { x: Int }
`)
	bp, err := Compile(cfg)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	if _, ok := cfg.Types["__Schema"]; !ok {
		t.Fatal("expected synthesized __Schema type")
	}
	if _, ok := cfg.Types["__Type"]; !ok {
		t.Fatal("expected synthesized __Type type")
	}
	if _, ok := cfg.Enums["__TypeKind"]; !ok {
		t.Fatal("expected synthesized __TypeKind enum")
	}
	if _, ok := bp.Field("Query", "__schema"); !ok {
		t.Fatal("expected a compiled Query.__schema field")
	}
	if _, ok := bp.Field("Query", "__type"); !ok {
		t.Fatal("expected a compiled Query.__type field")
	}
}
