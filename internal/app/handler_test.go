package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/tailcall-gateway/engine/internal/blueprint"
	"github.com/tailcall-gateway/engine/internal/evaluator"
	"github.com/tailcall-gateway/engine/internal/ir"
	"github.com/tailcall-gateway/engine/internal/source"
	"github.com/tailcall-gateway/engine/internal/template"
	"github.com/tailcall-gateway/engine/internal/value"
)

type stubHTTP struct{}

func (stubHTTP) Call(ctx context.Context, tmpl *ir.HTTPTemplate, scope template.Scope) (value.Value, error) {
	return value.String("world"), nil
}

func newTestHandler(t *testing.T, opts ...Option) *Handler {
	t.Helper()
	cfg, err := source.ParseSDL("test.graphql", `
schema { query: Query }
type Query {
  hello: String @expr(body: "\"world\"")
}
`)
	if err != nil {
		t.Fatalf("ParseSDL: %v", err)
	}
	bp, err := blueprint.Compile(cfg)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return New(bp, evaluator.Adapters{HTTP: stubHTTP{}}, opts...)
}

func TestServeHTTPPostExecutesQuery(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewBufferString(`{"query":"{ hello }"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"world"`) {
		t.Fatalf("expected response data, got %s", w.Body.String())
	}
}

func TestServeHTTPGetWithQueryParam(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/graphql?query="+url.QueryEscape("{ hello }"), nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"world"`) {
		t.Fatalf("expected response data, got %s", w.Body.String())
	}
}

func TestServeHTTPGraphiQLServedWhenNoQueryParam(t *testing.T) {
	h := newTestHandler(t, WithGraphiQL(true))
	req := httptest.NewRequest(http.MethodGet, "/graphql", nil)
	req.Header.Set("Accept", "text/html")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("expected text/html, got %q", ct)
	}
	if !strings.Contains(w.Body.String(), "GraphiQL") {
		t.Fatal("expected GraphiQL page body")
	}
}

func TestServeHTTPBatchRequests(t *testing.T) {
	h := newTestHandler(t, WithBatchRequests(true))
	body := `[{"query":"{ hello }"},{"query":"{ hello }"}]`
	req := httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", w.Code, w.Body.String())
	}
	if strings.Count(w.Body.String(), `"world"`) != 2 {
		t.Fatalf("expected two results, got %s", w.Body.String())
	}
}

func TestServeHTTPBatchRequestsDisabled(t *testing.T) {
	h := newTestHandler(t, WithBatchRequests(false))
	body := `[{"query":"{ hello }"}]`
	req := httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestServeHTTPMaxBodyBytes(t *testing.T) {
	h := newTestHandler(t, WithMaxBodyBytes(10))
	body := `{"query":"{ hello hello hello }"}`
	req := httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", w.Code)
	}
}

func TestServeHTTPCORSAndPreflight(t *testing.T) {
	h := newTestHandler(t, WithCORS("*"))

	req := httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewBufferString(`{"query":"{ hello }"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "http://example.com")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("missing CORS header on simple request")
	}

	pre := httptest.NewRequest(http.MethodOptions, "/graphql", nil)
	pre.Header.Set("Origin", "http://example.com")
	pre.Header.Set("Access-Control-Request-Headers", "X-Test")
	pw := httptest.NewRecorder()
	h.ServeHTTP(pw, pre)
	if pw.Code != http.StatusNoContent {
		t.Fatalf("preflight status %d", pw.Code)
	}
	if pw.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("preflight missing CORS header")
	}
	if pw.Header().Get("Access-Control-Allow-Headers") != "X-Test" {
		t.Fatal("preflight missing allow headers")
	}
}

func TestServeHTTPMethodNotAllowed(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodDelete, "/graphql", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}

func TestServeHTTPMissingQueryIsBadRequest(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
