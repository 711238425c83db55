// Package httpup adapts @http resolvers into live upstream calls: rendering
// an ir.HTTPTemplate against the request scope, issuing the request with a
// shared, circuit-broken *http.Client per upstream host, and lifting the
// response body into a value.Value (spec.md §4.4 "IO(http)", §6 "Upstream
// request shape").
//
// Grounded on internal/source/fetch.go's Fetcher (net/http client with a
// conservative default timeout) and internal/adapter/grpcup's per-endpoint
// circuit breaker, generalized from gRPC targets to HTTP hosts.
package httpup

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/tailcall-gateway/engine/internal/ir"
	"github.com/tailcall-gateway/engine/internal/template"
	"github.com/tailcall-gateway/engine/internal/value"

	eventbus "github.com/tailcall-gateway/engine/internal/eventbus"
	events "github.com/tailcall-gateway/engine/internal/events"

	"github.com/sony/gobreaker/v2"
)

// Options configures the adapter's HTTP client and per-host breaker.
type Options struct {
	Client  *http.Client
	Timeout time.Duration
}

func defaultOptions() *Options {
	return &Options{Timeout: 10 * time.Second}
}

// Adapter performs @http IO nodes.
type Adapter struct {
	opts *Options

	mu       sync.RWMutex
	breakers map[string]*gobreaker.CircuitBreaker[*http.Response]
}

func NewAdapter(opts ...func(*Options)) *Adapter {
	o := defaultOptions()
	for _, f := range opts {
		f(o)
	}
	if o.Client == nil {
		o.Client = &http.Client{Timeout: o.Timeout}
	}
	return &Adapter{opts: o, breakers: make(map[string]*gobreaker.CircuitBreaker[*http.Response])}
}

func WithClient(c *http.Client) func(*Options) { return func(o *Options) { o.Client = c } }
func WithTimeout(d time.Duration) func(*Options) {
	return func(o *Options) { o.Timeout = d }
}

// Call renders tmpl against scope and performs the resulting HTTP request.
func (a *Adapter) Call(ctx context.Context, tmpl *ir.HTTPTemplate, scope template.Scope) (value.Value, error) {
	rawURL, err := tmpl.URL.Render(scope)
	if err != nil {
		return value.Null, fmt.Errorf("httpup: rendering url: %w", err)
	}
	if len(tmpl.Query) > 0 {
		u, perr := url.Parse(rawURL)
		if perr != nil {
			return value.Null, fmt.Errorf("httpup: parsing url %q: %w", rawURL, perr)
		}
		q := u.Query()
		for _, qp := range tmpl.Query {
			v, rerr := qp.Value.Render(scope)
			if rerr != nil {
				return value.Null, fmt.Errorf("httpup: rendering query %q: %w", qp.Key, rerr)
			}
			q.Set(qp.Key, v)
		}
		u.RawQuery = q.Encode()
		rawURL = u.String()
	}

	method := tmpl.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if tmpl.Body != nil {
		rendered, berr := tmpl.Body.Render(scope)
		if berr != nil {
			return value.Null, fmt.Errorf("httpup: rendering body: %w", berr)
		}
		body = bytes.NewReader([]byte(rendered))
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return value.Null, fmt.Errorf("httpup: building request: %w", err)
	}
	for k, ht := range tmpl.Headers {
		v, rerr := ht.Render(scope)
		if rerr != nil {
			return value.Null, fmt.Errorf("httpup: rendering header %q: %w", k, rerr)
		}
		req.Header.Set(k, v)
	}
	if req.Header.Get("Content-Type") == "" && body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	host := req.URL.Host
	breaker := a.breakerFor(host)

	start := time.Now()
	eventbus.Publish(ctx, events.HTTPClientStart{Method: method, URL: rawURL})
	resp, err := breaker.Execute(func() (*http.Response, error) {
		r, derr := a.opts.Client.Do(req)
		if derr != nil {
			return nil, derr
		}
		if r.StatusCode >= 500 {
			r.Body.Close()
			return nil, fmt.Errorf("httpup: upstream %s returned status %d", rawURL, r.StatusCode)
		}
		return r, nil
	})
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	eventbus.Publish(ctx, events.HTTPClientFinish{
		Method: method, URL: rawURL, Status: status, Err: err, Duration: time.Since(start),
	})
	if err != nil {
		return value.Null, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return value.Null, fmt.Errorf("httpup: reading response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return value.Null, fmt.Errorf("httpup: upstream %s returned status %d: %s", rawURL, resp.StatusCode, raw)
	}
	if len(raw) == 0 {
		return value.Null, nil
	}
	return value.FromJSON(raw), nil
}

func (a *Adapter) breakerFor(host string) *gobreaker.CircuitBreaker[*http.Response] {
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
	b = gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        host,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 5 },
	})
	a.breakers[host] = b
	return b
}
