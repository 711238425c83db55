package nplusone

import (
	"testing"

	"github.com/tailcall-gateway/engine/internal/config"
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

func TestDetectFlagsUnbatchedResolverUnderList(t *testing.T) {
	cfg := mustParse(t, `
schema { query: Query }
type Query {
  users: [User] @http(url: "http://up/users")
}
type User {
  id: ID!
  profile: Profile @http(url: "http://up/profile/{{.value.id}}")
}
type Profile { bio: String }
`)
	findings := Detect(cfg)
	if len(findings) != 1 {
		t.Fatalf("Detect() = %+v, want exactly 1 finding", findings)
	}
	if got := findings[0].Path; len(got) != 2 || got[0] != "users" || got[1] != "profile" {
		t.Fatalf("finding path = %v, want [users profile]", got)
	}
}

func TestDetectIgnoresBatchedResolverUnderList(t *testing.T) {
	cfg := mustParse(t, `
schema { query: Query }
type Query {
  users: [User] @http(url: "http://up/users")
}
type User {
  id: ID!
  profile: Profile @http(url: "http://up/profile", query: [{key: "id", value: "{{.value.id}}"}], batchKey: ["id"])
}
type Profile { bio: String }
`)
	if findings := Detect(cfg); len(findings) != 0 {
		t.Fatalf("Detect() = %+v, want none (resolver declares a batch key)", findings)
	}
}

func TestDetectIgnoresResolverOutsideList(t *testing.T) {
	cfg := mustParse(t, `
schema { query: Query }
type Query {
  user(id: ID!): User @http(url: "http://up/u/{{.args.id}}")
}
type User {
  id: ID!
  profile: Profile @http(url: "http://up/profile/{{.value.id}}")
}
type Profile { bio: String }
`)
	if findings := Detect(cfg); len(findings) != 0 {
		t.Fatalf("Detect() = %+v, want none (no list ancestor)", findings)
	}
}

func TestDetectIgnoresExprResolver(t *testing.T) {
	cfg := mustParse(t, `
schema { query: Query }
type Query {
  users: [User] @http(url: "http://up/users")
}
type User {
  id: ID!
  label: String @expr(body: "{{.value.id}}")
}
`)
	if findings := Detect(cfg); len(findings) != 0 {
		t.Fatalf("Detect() = %+v, want none (@expr issues no upstream call)", findings)
	}
}
