package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadResolvesConfigLinkTransitively(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "child.graphql"), `
type User {
  id: ID!
  name: String
}
`)
	mustWrite(t, filepath.Join(dir, "root.graphql"), `
schema { query: Query }
extend schema @link(kind: Config, source: "child.graphql")
type Query {
  user(id: ID!): User @http(url: "http://up/u/{{.args.id}}")
}
`)

	fetcher := NewFetcher(dir)
	g, err := Load(context.Background(), fetcher, filepath.Join(dir, "root.graphql"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := g.Config.Types["User"]; !ok {
		t.Fatalf("expected User type merged in from linked config, types: %+v", g.Config.Types)
	}
	if g.Config.Schema.Query != "Query" {
		t.Fatalf("schema.query = %q", g.Config.Schema.Query)
	}
}

func TestLoadDetectsLinkCycle(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "a.graphql"), `
schema { query: Query }
extend schema @link(kind: Config, source: "b.graphql")
type Query { x: Int }
`)
	mustWrite(t, filepath.Join(dir, "b.graphql"), `
extend schema @link(kind: Config, source: "a.graphql")
type Foo { y: Int }
`)

	fetcher := NewFetcher(dir)
	_, err := Load(context.Background(), fetcher, filepath.Join(dir, "a.graphql"))
	if err == nil {
		t.Fatal("expected cycle detection error")
	}
}

func TestLoadCollectsNonConfigLinks(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "creds.htpasswd"), "admin:$2y$10$abcdefghijklmnopqrstuv\n")
	mustWrite(t, filepath.Join(dir, "root.graphql"), `
schema { query: Query }
extend schema @link(kind: Htpasswd, source: "creds.htpasswd", id: "basic-auth")
type Query { x: Int @protected }
`)

	fetcher := NewFetcher(dir)
	g, err := Load(context.Background(), fetcher, filepath.Join(dir, "root.graphql"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	htpasswdID, err := fetcher.Canonicalize("creds.htpasswd")
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	res, ok := g.Resources[htpasswdID]
	if !ok {
		t.Fatalf("expected htpasswd resource collected, got %+v", g.Resources)
	}
	if res.Link.ID != "basic-auth" {
		t.Fatalf("unexpected link id: %q", res.Link.ID)
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %q: %v", path, err)
	}
}
