package httpup

import (
	"context"
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

func TestAdapterCallGET(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("id"); got != "42" {
			t.Errorf("query id = %q, want 42", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"gopher"}`))
	}))
	defer srv.Close()

	tmpl := &ir.HTTPTemplate{
		Method: http.MethodGet,
		URL:    mustParse(t, srv.URL+"/users"),
		Query: []ir.QueryParamTemplate{
			{Key: "id", Value: mustParse(t, "{{args.id}}")},
		},
	}
	scope := template.Scope{Args: value.FromJSON([]byte(`{"id":42}`))}

	a := NewAdapter()
	got, err := a.Call(context.Background(), tmpl, scope)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	name, ok := got.Index("name")
	if !ok || name.As() != "gopher" {
		t.Fatalf("unexpected response value: %#v", got.As())
	}
}

func TestAdapterCallPOSTBody(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tmpl := &ir.HTTPTemplate{
		Method: http.MethodPost,
		URL:    mustParse(t, srv.URL+"/users"),
		Body:   mustParse(t, `{{args}}`),
	}
	scope := template.Scope{Args: value.FromJSON([]byte(`{"name":"ford"}`))}

	a := NewAdapter()
	got, err := a.Call(context.Background(), tmpl, scope)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if string(gotBody) != `{"name":"ford"}` {
		t.Fatalf("unexpected request body: %s", gotBody)
	}
	ok, _ := got.Index("ok")
	if ok.As() != true {
		t.Fatalf("unexpected response: %#v", got.As())
	}
}

func TestAdapterCallUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	tmpl := &ir.HTTPTemplate{Method: http.MethodGet, URL: mustParse(t, srv.URL)}
	a := NewAdapter()
	if _, err := a.Call(context.Background(), tmpl, template.Scope{}); err == nil {
		t.Fatal("expected error for 404 response")
	}
}
