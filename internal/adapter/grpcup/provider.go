// Package grpcup adapts @grpc resolvers into live upstream calls: a
// connection-pooled transport invoking dynamically-described protobuf
// methods, resolved against file descriptor sets supplied via linked
// Protobuf resources, with targets taken from linked Grpc resources
// (spec.md §3 "Link", §4.4 "IO(grpc)", §6 "Upstream request shape").
// Descriptors are not fetched over the gRPC reflection protocol.
//
// Grounded on internal/grpctp/{transport,provider,options,errors}.go (kept
// as the connection-pool/EndpointProvider idiom), generalized from the
// teacher's service-discovery-oriented EndpointProvider (looking up
// endpoints by GraphQL-schema-derived service name) to one resolved from
// config.Link entries declared in the gateway's own configuration.
package grpcup

import (
	"context"
	"errors"
	"sync"
)

// ErrNoEndpoints indicates no target is configured for a service.
var ErrNoEndpoints = errors.New("grpcup: no endpoint configured for service")

// EndpointProvider resolves a fully-qualified gRPC service name (e.g.
// "blog.v1.PostService") to a dialable target (host:port).
type EndpointProvider interface {
	Endpoint(ctx context.Context, service string) (string, error)
}

// StaticEndpoints is an EndpointProvider backed by an in-memory map, built
// from the Config's linked Grpc resources (config.Link{Kind: LinkGrpc}).
type StaticEndpoints struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewStaticEndpoints builds a provider from a service-name -> target map.
func NewStaticEndpoints(m map[string]string) *StaticEndpoints {
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return &StaticEndpoints{data: cp}
}

func (s *StaticEndpoints) Endpoint(ctx context.Context, service string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.data[service]; ok {
		return t, nil
	}
	if len(s.data) == 1 {
		for _, t := range s.data {
			return t, nil
		}
	}
	return "", ErrNoEndpoints
}
