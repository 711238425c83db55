package graphqlup

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tailcall-gateway/engine/internal/ir"
	"github.com/tailcall-gateway/engine/internal/template"
	"github.com/tailcall-gateway/engine/internal/value"
)

func mustParse(t *testing.T, src string) *template.Template {
	t.Helper()
	tpl, err := template.Parse(src)
	if err != nil {
		t.Fatalf("template.Parse(%q): %v", src, err)
	}
	return tpl
}

func TestAdapterCall(t *testing.T) {
	var gotReq upstreamRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &gotReq); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		_, _ = w.Write([]byte(`{"data":{"userById":{"id":"7","name":"Arthur"}}}`))
	}))
	defer srv.Close()

	tmpl := &ir.GraphQLTemplate{
		Name:    "userById",
		Args:    map[string]*template.Template{"id": mustParse(t, "{{args.id}}")},
		BaseURL: srv.URL,
	}
	scope := template.Scope{Args: value.FromJSON([]byte(`{"id":"7"}`))}

	a := NewAdapter()
	got, err := a.Call(context.Background(), tmpl, scope)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	name, ok := got.Index("name")
	if !ok || name.As() != "Arthur" {
		t.Fatalf("unexpected result: %#v", got.As())
	}
	if gotReq.Variables["id"] != "7" {
		t.Fatalf("unexpected variables: %#v", gotReq.Variables)
	}
}

func TestAdapterCallUpstreamErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"errors":[{"message":"not found"}]}`))
	}))
	defer srv.Close()

	tmpl := &ir.GraphQLTemplate{Name: "userById", BaseURL: srv.URL}
	a := NewAdapter()
	if _, err := a.Call(context.Background(), tmpl, template.Scope{}); err == nil {
		t.Fatal("expected error from upstream errors array")
	}
}

func TestAdapterCallNoBaseURL(t *testing.T) {
	tmpl := &ir.GraphQLTemplate{Name: "userById"}
	a := NewAdapter()
	if _, err := a.Call(context.Background(), tmpl, template.Scope{}); err == nil {
		t.Fatal("expected error for missing base url")
	}
}

func TestBuildQuery(t *testing.T) {
	if got := buildQuery("ping", nil); got != "query { ping }" {
		t.Fatalf("buildQuery() = %q", got)
	}
	got := buildQuery("userById", []string{"id"})
	if got != "query($id: Any) { userById(id: $id) }" {
		t.Fatalf("buildQuery() = %q", got)
	}
}
