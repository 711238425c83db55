// Package auth verifies inbound request credentials against the linked
// Htpasswd/Jwks providers collected at blueprint-compile time, backing
// ir.ProtectNode/@protected (spec.md §4.1 "Protected fields", §4.3 step 5
// "auth feasibility").
//
// Grounded on github.com/tg123/go-htpasswd for Basic auth and
// github.com/lestrrat-go/jwx/v2 for JWT/JWKS bearer auth, both already
// part of the teacher's stack (go.mod); no prior teacher package covers
// this concern so the verifier itself is new. Each htpasswd file and JWKS
// set is loaded on first use and then cached for the Verifier's lifetime.
package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/tg123/go-htpasswd"

	"github.com/tailcall-gateway/engine/internal/blueprint"
	"github.com/tailcall-gateway/engine/internal/config"
	"github.com/tailcall-gateway/engine/internal/value"
)

var (
	ErrMissingCredentials  = errors.New("auth: no Authorization header")
	ErrUnsupportedScheme   = errors.New("auth: unsupported Authorization scheme")
	ErrInvalidCredentials  = errors.New("auth: invalid credentials")
)

// Principal is the verified identity behind a request.
type Principal struct {
	Subject  string
	Provider string
	Claims   map[string]any
}

// Verifier checks inbound credentials against the blueprint's linked auth
// providers.
type Verifier struct {
	providers []blueprint.AuthProvider

	mu       sync.Mutex
	htpasswd map[string]*htpasswd.File
	jwks     map[string]jwk.Set
}

func NewVerifier(providers []blueprint.AuthProvider) *Verifier {
	return &Verifier{
		providers: providers,
		htpasswd:  make(map[string]*htpasswd.File),
		jwks:      make(map[string]jwk.Set),
	}
}

// Verify inspects the "Authorization" entry of headers and checks it
// against every provider of the matching kind, returning the first
// successful match.
func (v *Verifier) Verify(ctx context.Context, headers value.Value) (*Principal, error) {
	h, _ := headers.Index("Authorization")
	raw, _ := h.As().(string)
	if raw == "" {
		h, _ = headers.Index("authorization")
		raw, _ = h.As().(string)
	}
	if raw == "" {
		return nil, ErrMissingCredentials
	}
	switch {
	case strings.HasPrefix(raw, "Basic "):
		return v.verifyBasic(strings.TrimPrefix(raw, "Basic "))
	case strings.HasPrefix(raw, "Bearer "):
		return v.verifyBearer(ctx, strings.TrimPrefix(raw, "Bearer "))
	default:
		return nil, ErrUnsupportedScheme
	}
}

func (v *Verifier) verifyBasic(encoded string) (*Principal, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("auth: decoding basic credentials: %w", err)
	}
	user, pass, ok := strings.Cut(string(raw), ":")
	if !ok {
		return nil, ErrInvalidCredentials
	}
	for _, p := range v.providers {
		if p.Kind != config.LinkHtpasswd {
			continue
		}
		f, err := v.htpasswdFile(p)
		if err != nil {
			continue
		}
		if f.Match(user, pass) {
			return &Principal{Subject: user, Provider: p.ID}, nil
		}
	}
	return nil, ErrInvalidCredentials
}

func (v *Verifier) htpasswdFile(p blueprint.AuthProvider) (*htpasswd.File, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if f, ok := v.htpasswd[p.Source]; ok {
		return f, nil
	}
	f, err := htpasswd.New(p.Source, htpasswd.DefaultSystems, nil)
	if err != nil {
		return nil, fmt.Errorf("auth: loading htpasswd %q: %w", p.Source, err)
	}
	v.htpasswd[p.Source] = f
	return f, nil
}

func (v *Verifier) verifyBearer(ctx context.Context, tokenStr string) (*Principal, error) {
	var lastErr error
	for _, p := range v.providers {
		if p.Kind != config.LinkJwks {
			continue
		}
		set, err := v.jwksSet(ctx, p)
		if err != nil {
			lastErr = err
			continue
		}
		tok, err := jwt.Parse([]byte(tokenStr), jwt.WithKeySet(set))
		if err != nil {
			lastErr = err
			continue
		}
		return &Principal{Subject: tok.Subject(), Provider: p.ID, Claims: tok.PrivateClaims()}, nil
	}
	if lastErr == nil {
		lastErr = ErrInvalidCredentials
	}
	return nil, lastErr
}

func (v *Verifier) jwksSet(ctx context.Context, p blueprint.AuthProvider) (jwk.Set, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if s, ok := v.jwks[p.Source]; ok {
		return s, nil
	}
	set, err := jwk.Fetch(ctx, p.Source)
	if err != nil {
		return nil, fmt.Errorf("auth: fetching jwks %q: %w", p.Source, err)
	}
	v.jwks[p.Source] = set
	return set, nil
}
