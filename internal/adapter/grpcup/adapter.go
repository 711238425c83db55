package grpcup

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tailcall-gateway/engine/internal/ir"
	"github.com/tailcall-gateway/engine/internal/template"
	"github.com/tailcall-gateway/engine/internal/value"

	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/dynamicpb"
)

// Adapter performs @grpc IO nodes: it renders the node's templates against
// the request scope, resolves the protobuf method, marshals the rendered
// body into a dynamic request message, invokes it, and lifts the response
// back into a value.Value (spec.md §4.4 "IO(grpc)").
type Adapter struct {
	Registry  *Registry
	Transport *Transport
}

func NewAdapter(reg *Registry, tr *Transport) *Adapter {
	return &Adapter{Registry: reg, Transport: tr}
}

// Call executes tmpl against scope.
func (a *Adapter) Call(ctx context.Context, tmpl *ir.GRPCTemplate, scope template.Scope) (value.Value, error) {
	method, err := a.Registry.FindMethod(tmpl.Method)
	if err != nil {
		return value.Null, err
	}

	bodyValue := value.Null
	if tmpl.Body != nil {
		bodyValue, err = tmpl.Body.RenderValue(scope)
		if err != nil {
			return value.Null, fmt.Errorf("grpcup: rendering body: %w", err)
		}
	}

	req := dynamicpb.NewMessage(method.Input())
	if !bodyValue.IsNull() {
		raw, merr := json.Marshal(bodyValue.As())
		if merr != nil {
			return value.Null, fmt.Errorf("grpcup: encoding body: %w", merr)
		}
		if uerr := protojson.Unmarshal(raw, req); uerr != nil {
			return value.Null, fmt.Errorf("grpcup: unmarshaling request for %s: %w", tmpl.Method, uerr)
		}
	}

	if len(tmpl.Metadata) > 0 {
		md := metadata.MD{}
		for k, mt := range tmpl.Metadata {
			v, rerr := mt.Render(scope)
			if rerr != nil {
				return value.Null, fmt.Errorf("grpcup: rendering metadata %q: %w", k, rerr)
			}
			md.Append(k, v)
		}
		ctx = metadata.NewOutgoingContext(ctx, md)
	}

	resp, err := a.Transport.Call(ctx, method, req)
	if err != nil {
		return value.Null, err
	}
	raw, err := protojson.Marshal(resp)
	if err != nil {
		return value.Null, fmt.Errorf("grpcup: marshaling response: %w", err)
	}
	return value.FromJSON(raw), nil
}
