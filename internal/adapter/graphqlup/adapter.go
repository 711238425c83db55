// Package graphqlup adapts @graphQL resolvers into live upstream calls:
// synthesizing a single-field query selecting the resolver's named upstream
// operation, POSTing it as a standard GraphQL request, and lifting the
// named field's result into a value.Value (spec.md §4.4 "IO(graphql)", §6
// "Upstream request shape").
//
// Grounded on internal/source/fetch.go's net/http client idiom and
// internal/adapter/httpup's per-host circuit breaker, generalized from a
// raw passthrough body to a synthesized GraphQL operation envelope.
package graphqlup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/tailcall-gateway/engine/internal/ir"
	"github.com/tailcall-gateway/engine/internal/template"
	"github.com/tailcall-gateway/engine/internal/value"

	eventbus "github.com/tailcall-gateway/engine/internal/eventbus"
	events "github.com/tailcall-gateway/engine/internal/events"

	"github.com/sony/gobreaker/v2"
)

// Options configures the adapter's HTTP client, default endpoint, and
// per-host breaker.
type Options struct {
	Client     *http.Client
	Timeout    time.Duration
	DefaultURL string // used when an ir.GraphQLTemplate.BaseURL is empty
}

func defaultOptions() *Options {
	return &Options{Timeout: 10 * time.Second}
}

// Adapter performs @graphQL IO nodes.
type Adapter struct {
	opts *Options

	mu       sync.RWMutex
	breakers map[string]*gobreaker.CircuitBreaker[upstreamResponse]
}

func NewAdapter(opts ...func(*Options)) *Adapter {
	o := defaultOptions()
	for _, f := range opts {
		f(o)
	}
	if o.Client == nil {
		o.Client = &http.Client{Timeout: o.Timeout}
	}
	return &Adapter{opts: o, breakers: make(map[string]*gobreaker.CircuitBreaker[upstreamResponse])}
}

func WithClient(c *http.Client) func(*Options) { return func(o *Options) { o.Client = c } }
func WithDefaultURL(u string) func(*Options)    { return func(o *Options) { o.DefaultURL = u } }

type upstreamRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

type upstreamResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Call renders tmpl against scope, synthesizes a query selecting the
// resolver's named field, and performs the upstream POST.
func (a *Adapter) Call(ctx context.Context, tmpl *ir.GraphQLTemplate, scope template.Scope) (value.Value, error) {
	if tmpl.Name == "" {
		return value.Null, fmt.Errorf("graphqlup: resolver has no upstream field name")
	}
	baseURL := tmpl.BaseURL
	if baseURL == "" {
		baseURL = a.opts.DefaultURL
	}
	if baseURL == "" {
		return value.Null, fmt.Errorf("graphqlup: no base url configured for %q", tmpl.Name)
	}

	variables := make(map[string]any, len(tmpl.Args))
	argNames := make([]string, 0, len(tmpl.Args))
	for name, t := range tmpl.Args {
		v, err := t.RenderValue(scope)
		if err != nil {
			return value.Null, fmt.Errorf("graphqlup: rendering arg %q: %w", name, err)
		}
		variables[name] = v.As()
		argNames = append(argNames, name)
	}

	query := buildQuery(tmpl.Name, argNames)
	reqBody, err := json.Marshal(upstreamRequest{Query: query, Variables: variables})
	if err != nil {
		return value.Null, fmt.Errorf("graphqlup: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL, bytes.NewReader(reqBody))
	if err != nil {
		return value.Null, fmt.Errorf("graphqlup: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, t := range tmpl.Headers {
		v, rerr := t.Render(scope)
		if rerr != nil {
			return value.Null, fmt.Errorf("graphqlup: rendering header %q: %w", k, rerr)
		}
		req.Header.Set(k, v)
	}

	breaker := a.breakerFor(req.URL.Host)
	start := time.Now()
	eventbus.Publish(ctx, events.GraphQLStart{Query: query, OperationName: tmpl.Name, OperationType: "query"})
	upstream, err := breaker.Execute(func() (upstreamResponse, error) {
		resp, derr := a.opts.Client.Do(req)
		if derr != nil {
			return upstreamResponse{}, derr
		}
		defer resp.Body.Close()
		raw, rerr := io.ReadAll(resp.Body)
		if rerr != nil {
			return upstreamResponse{}, fmt.Errorf("graphqlup: reading response: %w", rerr)
		}
		if resp.StatusCode >= 500 {
			return upstreamResponse{}, fmt.Errorf("graphqlup: upstream %s returned status %d", baseURL, resp.StatusCode)
		}
		var ur upstreamResponse
		if uerr := json.Unmarshal(raw, &ur); uerr != nil {
			return upstreamResponse{}, fmt.Errorf("graphqlup: decoding response: %w", uerr)
		}
		return ur, nil
	})
	var errs []error
	if err != nil {
		errs = []error{err}
	}
	eventbus.Publish(ctx, events.GraphQLFinish{
		Query: query, OperationName: tmpl.Name, OperationType: "query",
		Errors: errs, Duration: time.Since(start),
	})
	if err != nil {
		return value.Null, err
	}
	if len(upstream.Errors) > 0 {
		return value.Null, fmt.Errorf("graphqlup: upstream %s: %s", tmpl.Name, upstream.Errors[0].Message)
	}
	if len(upstream.Data) == 0 {
		return value.Null, nil
	}
	data := value.FromJSON(upstream.Data)
	field, ok := data.Index(tmpl.Name)
	if !ok {
		return value.Null, nil
	}
	return field, nil
}

func (a *Adapter) breakerFor(host string) *gobreaker.CircuitBreaker[upstreamResponse] {
	a.mu.RLock()
	b := a.breakers[host]
	a.mu.RUnlock()
	if b != nil {
		return b
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if b = a.breakers[host]; b != nil {
		return b
	}
	b = gobreaker.NewCircuitBreaker[upstreamResponse](gobreaker.Settings{
		Name:        host,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 5 },
	})
	a.breakers[host] = b
	return b
}

// buildQuery synthesizes `query($a: Any, ...) { name(a: $a, ...) }` selecting
// a scalar/object field with no sub-selection: upstream resolvers this
// gateway calls are expected to return a JSON-scalar-compatible shape
// forwarded verbatim, mirroring spec.md §4.4's "the result is JSON-parsed"
// treatment of rendered upstream bodies.
func buildQuery(name string, argNames []string) string {
	if len(argNames) == 0 {
		return fmt.Sprintf("query { %s }", name)
	}
	var params, call strings.Builder
	for i, n := range argNames {
		if i > 0 {
			params.WriteString(", ")
			call.WriteString(", ")
		}
		fmt.Fprintf(&params, "$%s: Any", n)
		fmt.Fprintf(&call, "%s: $%s", n, n)
	}
	return fmt.Sprintf("query(%s) { %s(%s) }", params.String(), name, call.String())
}
