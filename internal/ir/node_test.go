package ir

import (
	"testing"

	"github.com/tailcall-gateway/engine/internal/template"
)

func TestConstructorsSetDiscriminant(t *testing.T) {
	n := Value()
	if n.Kind != KindContext || n.Context.Kind != ContextValue {
		t.Fatalf("Value() = %+v", n)
	}

	n = Args()
	if n.Kind != KindContext || n.Context.Kind != ContextArgs {
		t.Fatalf("Args() = %+v", n)
	}

	n = PathOf("user.id")
	if n.Context.Kind != ContextPath || n.Context.Path != "user.id" {
		t.Fatalf("PathOf() = %+v", n.Context)
	}
}

func TestCacheProtectPathWrapping(t *testing.T) {
	tmpl, err := template.Parse("{{.args.id}}")
	if err != nil {
		t.Fatalf("template.Parse: %v", err)
	}
	io := IOOf(IONode{Kind: IOHTTP, HTTP: &HTTPTemplate{Method: "GET", URL: tmpl}})
	cached := CacheOf(io, 60000)
	protected := ProtectOf(cached)
	wrapped := PathWrap(protected, "data.user")

	if wrapped.Kind != KindPath || wrapped.Path.Path != "data.user" {
		t.Fatalf("unexpected wrapped node: %+v", wrapped)
	}
	if wrapped.Path.Inner.Kind != KindProtect {
		t.Fatalf("expected Protect inner, got %v", wrapped.Path.Inner.Kind)
	}
	inner := wrapped.Path.Inner.Protect.Inner
	if inner.Kind != KindCache || inner.Cache.MaxAgeMS != 60000 {
		t.Fatalf("expected Cache(60000) inner, got %+v", inner)
	}
	if inner.Cache.Inner.Kind != KindIO || inner.Cache.Inner.IO.Kind != IOHTTP {
		t.Fatalf("expected IO(http) leaf, got %+v", inner.Cache.Inner)
	}
}

func TestPushArgsPushValue(t *testing.T) {
	sub := PathOf("id")
	then := Args()
	n := PushArgs(sub, then)
	if n.Context.Kind != ContextPushArgs || n.Context.Sub != sub || n.Context.Then != then {
		t.Fatalf("PushArgs() = %+v", n.Context)
	}

	n2 := PushValue(sub, then)
	if n2.Context.Kind != ContextPushValue {
		t.Fatalf("PushValue() = %+v", n2.Context)
	}
}

func TestMapDiscriminate(t *testing.T) {
	inner := Value()
	mapping := &Mapping{DiscriminateField: "__typename", DiscriminateValues: map[string]string{"cat": "Cat"}}
	n := MapOf(inner, mapping)
	if n.Kind != KindMap || n.Map.Mapping.DiscriminateValues["cat"] != "Cat" {
		t.Fatalf("MapOf() = %+v", n.Map)
	}
}

func TestObjectOfHoldsNamedFields(t *testing.T) {
	n := ObjectOf(map[string]*Node{"id": PathOf("id"), "name": PathOf("name")})
	if n.Kind != KindObject {
		t.Fatalf("ObjectOf() kind = %v", n.Kind)
	}
	if len(n.Object.Fields) != 2 || n.Object.Fields["id"].Context.Path != "id" {
		t.Fatalf("ObjectOf() fields = %+v", n.Object.Fields)
	}
}
