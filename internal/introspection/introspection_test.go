package introspection

import (
	"testing"

	"github.com/tailcall-gateway/engine/internal/blueprint"
	"github.com/tailcall-gateway/engine/internal/config"
	"github.com/tailcall-gateway/engine/internal/source"
)

func mustCompile(t *testing.T, src string) *config.Config {
	t.Helper()
	cfg, err := source.ParseSDL("test.graphql", src)
	if err != nil {
		t.Fatalf("ParseSDL: %v", err)
	}
	if _, err := blueprint.Compile(cfg); err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return cfg
}

func TestSchemaReportsRootTypes(t *testing.T) {
	cfg := mustCompile(t, `
schema { query: Query mutation: Mutation }
type Query { hello: String }
type Mutation { ping: Boolean }
`)
	sv := Schema(cfg)
	qt, ok := sv.Index("queryType")
	if !ok {
		t.Fatal("expected queryType")
	}
	name, _ := qt.Index("name")
	if s, _ := name.As().(string); s != "Query" {
		t.Fatalf("expected queryType.name=Query, got %+v", name.As())
	}
	mt, _ := sv.Index("mutationType")
	mname, _ := mt.Index("name")
	if s, _ := mname.As().(string); s != "Mutation" {
		t.Fatalf("expected mutationType.name=Mutation, got %+v", mname.As())
	}
	st, ok := sv.Index("subscriptionType")
	if !ok || st.As() != nil {
		t.Fatalf("expected subscriptionType to be null, got %+v", st.As())
	}
}

func TestTypeByNameDescribesObjectFieldsAndArgs(t *testing.T) {
	cfg := mustCompile(t, `
schema { query: Query }
type Query {
  user(id: ID!): User
}
type User {
  id: ID!
  name: String
  tags: [String!]
}
`)
	tv := TypeByName(cfg, "User")
	kind, _ := tv.Index("kind")
	if s, _ := kind.As().(string); s != "OBJECT" {
		t.Fatalf("expected kind=OBJECT, got %+v", kind.As())
	}
	fields, _ := tv.Index("fields")
	list, _ := fields.As().([]any)
	byName := map[string]map[string]any{}
	for _, fv := range list {
		fm, _ := fv.(map[string]any)
		byName[fm["name"].(string)] = fm
	}
	if _, ok := byName["id"]; !ok {
		t.Fatalf("expected an id field, got %+v", byName)
	}
	idType, _ := byName["id"]["type"].(map[string]any)
	if idType["kind"] != "NON_NULL" {
		t.Fatalf("expected id: ID! to report NON_NULL, got %+v", idType)
	}
	tagsType, _ := byName["tags"]["type"].(map[string]any)
	if tagsType["kind"] != "LIST" {
		t.Fatalf("expected tags: [String!] to report LIST, got %+v", tagsType)
	}

	queryType := TypeByName(cfg, "Query")
	qfields, _ := queryType.Index("fields")
	qlist, _ := qfields.As().([]any)
	var userField map[string]any
	for _, fv := range qlist {
		fm, _ := fv.(map[string]any)
		if fm["name"] == "user" {
			userField = fm
		}
	}
	if userField == nil {
		t.Fatal("expected a user field on Query")
	}
	args, _ := userField["args"].([]any)
	if len(args) != 1 {
		t.Fatalf("expected exactly 1 arg on Query.user, got %+v", args)
	}
	arg0, _ := args[0].(map[string]any)
	if arg0["name"] != "id" {
		t.Fatalf("expected arg name=id, got %+v", arg0)
	}
}

func TestTypeByNameDescribesEnum(t *testing.T) {
	cfg := mustCompile(t, `
schema { query: Query }
type Query { status: Status }
enum Status { UP DOWN }
`)
	tv := TypeByName(cfg, "Status")
	kind, _ := tv.Index("kind")
	if s, _ := kind.As().(string); s != "ENUM" {
		t.Fatalf("expected kind=ENUM, got %+v", kind.As())
	}
	values, _ := tv.Index("enumValues")
	list, _ := values.As().([]any)
	names := map[string]bool{}
	for _, v := range list {
		vm, _ := v.(map[string]any)
		names[vm["name"].(string)] = true
	}
	if !names["UP"] || !names["DOWN"] {
		t.Fatalf("expected UP and DOWN enum values, got %+v", list)
	}
}

func TestTypeByNameDescribesInterfaceAndImplementers(t *testing.T) {
	cfg := mustCompile(t, `
schema { query: Query }
type Query { node: Node }
interface Node { id: ID! }
type User implements Node {
  id: ID!
  name: String
}
`)
	tv := TypeByName(cfg, "Node")
	kind, _ := tv.Index("kind")
	if s, _ := kind.As().(string); s != "INTERFACE" {
		t.Fatalf("expected kind=INTERFACE, got %+v", kind.As())
	}
	possible, _ := tv.Index("possibleTypes")
	list, _ := possible.As().([]any)
	if len(list) != 1 {
		t.Fatalf("expected 1 possible type, got %+v", list)
	}
	pm, _ := list[0].(map[string]any)
	if pm["name"] != "User" {
		t.Fatalf("expected possibleTypes=[User], got %+v", list)
	}
}

func TestTypeByNameUnknownNameIsNull(t *testing.T) {
	cfg := mustCompile(t, `
schema { query: Query }
type Query { x: Int }
`)
	tv := TypeByName(cfg, "DoesNotExist")
	if tv.As() != nil {
		t.Fatalf("expected null for an unknown type name, got %+v", tv.As())
	}
}

func TestTypeByNameBuiltinScalarIsLeaf(t *testing.T) {
	cfg := mustCompile(t, `
schema { query: Query }
type Query { x: Int }
`)
	tv := TypeByName(cfg, "String")
	kind, _ := tv.Index("kind")
	if s, _ := kind.As().(string); s != "SCALAR" {
		t.Fatalf("expected kind=SCALAR, got %+v", kind.As())
	}
}
