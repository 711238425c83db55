package grpcup

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	eventbus "github.com/tailcall-gateway/engine/internal/eventbus"
	events "github.com/tailcall-gateway/engine/internal/events"

	"github.com/sony/gobreaker/v2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/backoff"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// Options configures the gRPC transport's pooling, timeout, and dial
// behavior (spec.md §3 "UpstreamPolicy").
type Options struct {
	Provider EndpointProvider

	MaxConnsPerEndpoint int
	RPCTimeout          time.Duration

	DialOptions []grpc.DialOption
}

func defaultOptions() *Options {
	return &Options{MaxConnsPerEndpoint: 2, RPCTimeout: 3 * time.Second}
}

// Transport is a connection-pooled gRPC client that invokes a dynamic
// request message against a resolved MethodDescriptor, with a per-endpoint
// circuit breaker guarding against a failing upstream.
type Transport struct {
	opts *Options

	mu       sync.RWMutex
	pools    map[string]*connPool
	breakers map[string]*gobreaker.CircuitBreaker[protoreflect.Message]
	closed   atomic.Bool
}

func NewTransport(provider EndpointProvider, opts ...func(*Options)) *Transport {
	o := defaultOptions()
	o.Provider = provider
	for _, f := range opts {
		f(o)
	}
	if len(o.DialOptions) == 0 {
		o.DialOptions = []grpc.DialOption{
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithConnectParams(grpc.ConnectParams{Backoff: backoff.DefaultConfig}),
		}
	}
	return &Transport{
		opts:     o,
		pools:    make(map[string]*connPool),
		breakers: make(map[string]*gobreaker.CircuitBreaker[protoreflect.Message]),
	}
}

func WithMaxConnsPerEndpoint(n int) func(*Options) { return func(o *Options) { o.MaxConnsPerEndpoint = n } }
func WithRPCTimeout(d time.Duration) func(*Options) { return func(o *Options) { o.RPCTimeout = d } }
func WithDialOptions(opts ...grpc.DialOption) func(*Options) {
	return func(o *Options) { o.DialOptions = opts }
}

// Call invokes method against request, returning the dynamic response
// message. Deadlines, connection pooling, and circuit breaking are handled
// per target endpoint.
func (t *Transport) Call(ctx context.Context, method protoreflect.MethodDescriptor, request protoreflect.Message) (protoreflect.Message, error) {
	if t.closed.Load() {
		return nil, fmt.Errorf("grpcup: transport closed")
	}
	if t.opts.Provider == nil {
		return nil, fmt.Errorf("grpcup: no endpoint provider configured")
	}
	service := string(method.Parent().FullName())
	fullMethod := fmt.Sprintf("/%s/%s", service, method.Name())

	if _, ok := ctx.Deadline(); !ok && t.opts.RPCTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.opts.RPCTimeout)
		defer cancel()
	}

	endpoint, err := t.opts.Provider.Endpoint(ctx, service)
	if err != nil {
		return nil, err
	}
	ctx = metadata.AppendToOutgoingContext(ctx, "x-tailcall-service", service)

	cc, err := t.getConn(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer t.returnConn(endpoint, cc)

	breaker := t.breakerFor(endpoint)
	start := time.Now()
	eventbus.Publish(ctx, events.GRPCClientStart{Service: service, Method: string(method.Name()), Target: endpoint})
	resp, err := breaker.Execute(func() (protoreflect.Message, error) {
		out := dynamicpb.NewMessage(method.Output())
		if ierr := cc.Invoke(ctx, fullMethod, request, out); ierr != nil {
			return nil, ierr
		}
		return out, nil
	})
	eventbus.Publish(ctx, events.GRPCClientFinish{
		Service: service, Method: string(method.Name()), Target: endpoint,
		Code: status.Code(err), Err: err, Duration: time.Since(start),
	})
	return resp, err
}

func (t *Transport) breakerFor(endpoint string) *gobreaker.CircuitBreaker[protoreflect.Message] {
	t.mu.RLock()
	b := t.breakers[endpoint]
	t.mu.RUnlock()
	if b != nil {
		return b
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if b = t.breakers[endpoint]; b != nil {
		return b
	}
	b = gobreaker.NewCircuitBreaker[protoreflect.Message](gobreaker.Settings{
		Name:        endpoint,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 5 },
	})
	t.breakers[endpoint] = b
	return b
}

func (t *Transport) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range t.pools {
		p.close()
	}
	t.pools = map[string]*connPool{}
	return nil
}

type connPool struct {
	endpoint string
	opts     *Options
	conns    chan *grpc.ClientConn
	closed   atomic.Bool
}

func newConnPool(endpoint string, opts *Options) *connPool {
	n := opts.MaxConnsPerEndpoint
	if n <= 0 {
		n = 2
	}
	return &connPool{endpoint: endpoint, opts: opts, conns: make(chan *grpc.ClientConn, n)}
}

func (p *connPool) get(ctx context.Context) (*grpc.ClientConn, error) {
	if p.closed.Load() {
		return nil, fmt.Errorf("grpcup: pool closed")
	}
	select {
	case cc := <-p.conns:
		return cc, nil
	default:
		return grpc.NewClient(p.endpoint, p.opts.DialOptions...)
	}
}

func (p *connPool) put(cc *grpc.ClientConn) {
	if cc == nil || p.closed.Load() {
		if cc != nil {
			_ = cc.Close()
		}
		return
	}
	select {
	case p.conns <- cc:
	default:
		_ = cc.Close()
	}
}

func (p *connPool) close() {
	if p.closed.Swap(true) {
		return
	}
	close(p.conns)
	for cc := range p.conns {
		_ = cc.Close()
	}
}

func (t *Transport) getConn(ctx context.Context, endpoint string) (*grpc.ClientConn, error) {
	t.mu.RLock()
	pool := t.pools[endpoint]
	t.mu.RUnlock()
	if pool == nil {
		t.mu.Lock()
		if pool = t.pools[endpoint]; pool == nil {
			pool = newConnPool(endpoint, t.opts)
			t.pools[endpoint] = pool
		}
		t.mu.Unlock()
	}
	return pool.get(ctx)
}

func (t *Transport) returnConn(endpoint string, cc *grpc.ClientConn) {
	t.mu.RLock()
	pool := t.pools[endpoint]
	t.mu.RUnlock()
	if pool != nil {
		pool.put(cc)
		return
	}
	_ = cc.Close()
}
