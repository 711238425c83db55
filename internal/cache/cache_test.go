package cache

import (
	"testing"
	"time"

	"github.com/tailcall-gateway/engine/internal/value"
)

func TestGetSetRoundTrip(t *testing.T) {
	c := New(10)
	c.Set("k", value.String("v"), time.Minute)
	got, ok := c.Get("k")
	if !ok || got.As() != "v" {
		t.Fatalf("Get() = %#v, %v", got.As(), ok)
	}
}

func TestGetExpired(t *testing.T) {
	c := New(10)
	c.Set("k", value.String("v"), -time.Second)
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected expired entry to miss")
	}
}

func TestGetMissing(t *testing.T) {
	c := New(10)
	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss for absent key")
	}
}
