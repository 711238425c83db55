package auth

import (
	"context"
	"testing"

	"github.com/tailcall-gateway/engine/internal/value"
)

func TestVerifyMissingCredentials(t *testing.T) {
	v := NewVerifier(nil)
	_, err := v.Verify(context.Background(), value.Null)
	if err != ErrMissingCredentials {
		t.Fatalf("Verify() error = %v, want ErrMissingCredentials", err)
	}
}

func TestVerifyUnsupportedScheme(t *testing.T) {
	v := NewVerifier(nil)
	headers := value.FromJSON([]byte(`{"Authorization":"Digest abc"}`))
	_, err := v.Verify(context.Background(), headers)
	if err != ErrUnsupportedScheme {
		t.Fatalf("Verify() error = %v, want ErrUnsupportedScheme", err)
	}
}

func TestVerifyBasicNoProviders(t *testing.T) {
	v := NewVerifier(nil)
	// base64("user:pass")
	headers := value.FromJSON([]byte(`{"Authorization":"Basic dXNlcjpwYXNz"}`))
	_, err := v.Verify(context.Background(), headers)
	if err != ErrInvalidCredentials {
		t.Fatalf("Verify() error = %v, want ErrInvalidCredentials", err)
	}
}

func TestVerifyBearerNoProviders(t *testing.T) {
	v := NewVerifier(nil)
	headers := value.FromJSON([]byte(`{"Authorization":"Bearer not-a-real-token"}`))
	if _, err := v.Verify(context.Background(), headers); err == nil {
		t.Fatal("expected error with no jwks providers configured")
	}
}
