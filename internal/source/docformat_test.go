package source

import (
	"testing"

	"github.com/tailcall-gateway/engine/internal/config"
)

func TestParseTypeRefVariants(t *testing.T) {
	cases := map[string]struct {
		wantList    bool
		wantNonNull bool
		wantNamed   string
	}{
		"User":   {wantNamed: "User"},
		"User!":  {wantNonNull: true, wantNamed: "User"},
		"[User]": {wantList: true, wantNamed: "User"},
		"[User!]!": {wantList: true, wantNonNull: true, wantNamed: "User"},
	}
	for s, want := range cases {
		ref, err := ParseTypeRef(s)
		if err != nil {
			t.Fatalf("ParseTypeRef(%q): %v", s, err)
		}
		if ref.IsList() != want.wantList {
			t.Errorf("%q: IsList() = %v, want %v", s, ref.IsList(), want.wantList)
		}
		if ref.NonNull != want.wantNonNull {
			t.Errorf("%q: NonNull = %v, want %v", s, ref.NonNull, want.wantNonNull)
		}
		if ref.NamedType() != want.wantNamed {
			t.Errorf("%q: NamedType() = %q, want %q", s, ref.NamedType(), want.wantNamed)
		}
	}
}

func TestParseJSONIsomorphicToSDL(t *testing.T) {
	jsonSrc := `{
	  "schema": {"query": "Query"},
	  "types": [
	    {"name": "Query", "kind": "OBJECT", "fields": [
	      {"name": "user", "type": "User!", "http": {"url": "http://up/u"}}
	    ]},
	    {"name": "User", "kind": "OBJECT", "fields": [
	      {"name": "id", "type": "ID!"}
	    ]}
	  ]
	}`
	cfg, err := ParseJSON("config.json", []byte(jsonSrc))
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if cfg.Schema.Query != "Query" {
		t.Fatalf("schema.query = %q", cfg.Schema.Query)
	}
	userField := cfg.Types["Query"].Fields["user"]
	if userField.Resolver == nil || userField.Resolver.Kind != config.ResolverHTTP {
		t.Fatalf("expected http resolver from JSON source, got %+v", userField.Resolver)
	}
	if userField.Resolver.HTTP.Method != "GET" {
		t.Fatalf("expected default GET method, got %q", userField.Resolver.HTTP.Method)
	}
}

func TestParseYAMLIsomorphicToSDL(t *testing.T) {
	yamlSrc := `
schema:
  query: Query
types:
  - name: Query
    kind: OBJECT
    fields:
      - name: user
        type: "User!"
        http:
          url: "http://up/u"
  - name: User
    kind: OBJECT
    fields:
      - name: id
        type: "ID!"
`
	cfg, err := ParseYAML("config.yaml", []byte(yamlSrc))
	if err != nil {
		t.Fatalf("ParseYAML: %v", err)
	}
	if cfg.Types["Query"].Fields["user"].Resolver.HTTP.URL != "http://up/u" {
		t.Fatalf("unexpected parsed config: %+v", cfg.Types["Query"])
	}
}
