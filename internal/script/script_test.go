package script

import (
	"context"
	"testing"

	"github.com/tailcall-gateway/engine/internal/ir"
	"github.com/tailcall-gateway/engine/internal/template"
	"github.com/tailcall-gateway/engine/internal/value"
)

func TestCallExportsResult(t *testing.T) {
	w := NewWorker(map[string]string{
		"greet.js": `function greet(value, args) { return { hello: args.name, from: value.id }; }`,
	})
	tmpl := &ir.JSTemplate{Script: "greet.js", Export: "greet", TimeoutMS: 1000}
	scope := template.Scope{
		Value: value.FromJSON([]byte(`{"id":"42"}`)),
		Args:  value.FromJSON([]byte(`{"name":"ford"}`)),
	}

	got, err := w.Call(context.Background(), tmpl, scope)
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	hello, _ := got.Index("hello")
	if hello.As() != "ford" {
		t.Fatalf("hello = %#v, want ford", hello.As())
	}
	from, _ := got.Index("from")
	if from.As() != "42" {
		t.Fatalf("from = %#v, want 42", from.As())
	}
}

func TestCallCachesCompiledProgram(t *testing.T) {
	w := NewWorker(map[string]string{
		"count.js": `function run() { return 1; }`,
	})
	tmpl := &ir.JSTemplate{Script: "count.js", Export: "run", TimeoutMS: 1000}
	for i := 0; i < 3; i++ {
		if _, err := w.Call(context.Background(), tmpl, template.Scope{}); err != nil {
			t.Fatalf("Call() #%d error = %v", i, err)
		}
	}
	if len(w.programs) != 1 {
		t.Fatalf("programs cache size = %d, want 1", len(w.programs))
	}
}

func TestCallUnknownScript(t *testing.T) {
	w := NewWorker(nil)
	tmpl := &ir.JSTemplate{Script: "missing.js", Export: "run", TimeoutMS: 1000}
	if _, err := w.Call(context.Background(), tmpl, template.Scope{}); err == nil {
		t.Fatal("expected error for unlinked script")
	}
}

func TestCallExportNotFunction(t *testing.T) {
	w := NewWorker(map[string]string{
		"bad.js": `var run = 5;`,
	})
	tmpl := &ir.JSTemplate{Script: "bad.js", Export: "run", TimeoutMS: 1000}
	if _, err := w.Call(context.Background(), tmpl, template.Scope{}); err == nil {
		t.Fatal("expected error when export is not a function")
	}
}
