// Package evaluator walks a compiled ir.Node against a request's scope,
// dispatching IO nodes to the upstream adapters, data-loader fabric, cache,
// and auth verifier (spec.md §4.4 "IR evaluator").
//
// The dispatch itself has no direct teacher analogue (the teacher resolves
// fields through schema.Runtime callbacks, not a compiled expression tree);
// it is grounded on ir.Node's own doc comments, which describe exactly what
// each Kind must do, and on the request executor below it, which follows
// internal/executor/executor.go's recursive completeValue/completeListValue
// shape (spec.md quoting that file's non-null propagation rules verbatim).
package evaluator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tailcall-gateway/engine/internal/auth"
	"github.com/tailcall-gateway/engine/internal/blueprint"
	"github.com/tailcall-gateway/engine/internal/cache"
	"github.com/tailcall-gateway/engine/internal/dataloader"
	"github.com/tailcall-gateway/engine/internal/ir"
	"github.com/tailcall-gateway/engine/internal/template"
	"github.com/tailcall-gateway/engine/internal/value"
)

// ErrUnauthorized is returned by Evaluate when an ir.ProtectNode is reached
// with no verified Principal on the EvalContext.
var ErrUnauthorized = errors.New("evaluator: unauthorized")

// Caller is the common shape of every upstream adapter (internal/adapter/
// httpup, grpcup, graphqlup, internal/script).
type Caller[T any] interface {
	Call(ctx context.Context, tmpl *T, scope template.Scope) (value.Value, error)
}

// Adapters collects the per-protocol callers an EvalContext dispatches
// ir.IONode to.
type Adapters struct {
	HTTP    Caller[ir.HTTPTemplate]
	GraphQL Caller[ir.GraphQLTemplate]
	GRPC    Caller[ir.GRPCTemplate]
	JS      Caller[ir.JSTemplate]
}

// EvalContext is the per-request state threaded through every Evaluate call:
// the compiled blueprint, upstream adapters, and the request's cache,
// data-loader, and auth state.
type EvalContext struct {
	Blueprint *blueprint.Blueprint
	Adapters  Adapters
	Cache     *cache.Cache
	Loaders   *dataloader.Manager
	Principal *auth.Principal

	Env     value.Value
	Headers value.Value
}

// Evaluate dispatches node against scope, recursing per ir.Kind.
func Evaluate(ctx context.Context, ec *EvalContext, node *ir.Node, scope template.Scope) (value.Value, error) {
	if node == nil {
		return value.Null, nil
	}
	switch node.Kind {
	case ir.KindContext:
		return evalContext(ctx, ec, node.Context, scope)
	case ir.KindDynamic:
		return node.Dynamic.Template.RenderValue(scope)
	case ir.KindIO:
		return evalIO(ctx, ec, node.IO, scope)
	case ir.KindCache:
		return evalCache(ctx, ec, node.Cache, scope)
	case ir.KindPath:
		inner, err := Evaluate(ctx, ec, node.Path.Inner, scope)
		if err != nil {
			return value.Null, err
		}
		v, ok := inner.Index(node.Path.Path)
		if !ok {
			return value.Null, nil
		}
		return v, nil
	case ir.KindProtect:
		if ec.Principal == nil {
			return value.Null, ErrUnauthorized
		}
		return Evaluate(ctx, ec, node.Protect.Inner, scope)
	case ir.KindMap:
		inner, err := Evaluate(ctx, ec, node.Map.Inner, scope)
		if err != nil {
			return value.Null, err
		}
		return applyMapping(inner, node.Map.Mapping), nil
	case ir.KindDeferred:
		// @stream/@defer post-response streaming is not implemented; the
		// deferred payload is evaluated eagerly and inlined, so a deferred
		// client still gets a correct (if non-incremental) response.
		return Evaluate(ctx, ec, node.Deferred.Inner, scope)
	case ir.KindObject:
		m := value.NewMap()
		keys := make([]string, 0, len(node.Object.Fields))
		for k := range node.Object.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			v, err := Evaluate(ctx, ec, node.Object.Fields[k], scope)
			if err != nil {
				return value.Null, err
			}
			m.Set(k, v)
		}
		return value.FromMap(m), nil
	default:
		return value.Null, fmt.Errorf("evaluator: unknown node kind %q", node.Kind)
	}
}

func evalContext(ctx context.Context, ec *EvalContext, c *ir.ContextNode, scope template.Scope) (value.Value, error) {
	switch c.Kind {
	case ir.ContextValue:
		return scope.Value, nil
	case ir.ContextArgs:
		return scope.Args, nil
	case ir.ContextPath:
		v, ok := scope.Value.Index(c.Path)
		if !ok {
			return value.Null, nil
		}
		return v, nil
	case ir.ContextPushArgs:
		pushed, err := Evaluate(ctx, ec, c.Sub, scope)
		if err != nil {
			return value.Null, err
		}
		next := scope
		next.Args = pushed
		return Evaluate(ctx, ec, c.Then, next)
	case ir.ContextPushValue:
		pushed, err := Evaluate(ctx, ec, c.Sub, scope)
		if err != nil {
			return value.Null, err
		}
		next := scope
		next.Value = pushed
		return Evaluate(ctx, ec, c.Then, next)
	default:
		return value.Null, fmt.Errorf("evaluator: unknown context kind %q", c.Kind)
	}
}

func evalCache(ctx context.Context, ec *EvalContext, c *ir.CacheNode, scope template.Scope) (value.Value, error) {
	if ec.Cache == nil {
		return Evaluate(ctx, ec, c.Inner, scope)
	}
	key := fingerprint(c, scope)
	if v, ok := ec.Cache.Get(key); ok {
		return v, nil
	}
	v, err := Evaluate(ctx, ec, c.Inner, scope)
	if err != nil {
		return value.Null, err
	}
	ec.Cache.Set(key, v, time.Duration(c.MaxAgeMS)*time.Millisecond)
	return v, nil
}

// fingerprint identifies a cache entry by the site (the CacheNode's own
// identity, since the same compiled node is evaluated across every request)
// plus the rendered request: the value/args/vars that feed the wrapped IO
// call (spec.md §4.4 "Cache(ir, ttl) fingerprints the rendered request").
func fingerprint(c *ir.CacheNode, scope template.Scope) string {
	h := sha256.New()
	fmt.Fprintf(h, "%p|%v|%v|%v", c, scope.Value.As(), scope.Args.As(), scope.Vars.As())
	return hex.EncodeToString(h.Sum(nil))
}

func evalIO(ctx context.Context, ec *EvalContext, io *ir.IONode, scope template.Scope) (value.Value, error) {
	call := func(ctx context.Context, s template.Scope) (value.Value, error) {
		switch io.Kind {
		case ir.IOHTTP:
			return ec.Adapters.HTTP.Call(ctx, io.HTTP, s)
		case ir.IOGraphQL:
			return ec.Adapters.GraphQL.Call(ctx, io.GraphQL, s)
		case ir.IOGRPC:
			return ec.Adapters.GRPC.Call(ctx, io.GRPC, s)
		case ir.IOJS:
			return ec.Adapters.JS.Call(ctx, io.JS, s)
		default:
			return value.Null, fmt.Errorf("evaluator: unknown IO kind %q", io.Kind)
		}
	}

	if io.DataLoaderID == "" || ec.Loaders == nil || len(io.GroupBy) == 0 {
		return call(ctx, scope)
	}

	spec, ok := ec.Blueprint.DataLoaders[io.DataLoaderID]
	if !ok {
		return call(ctx, scope)
	}

	keyPath := strings.Join(io.GroupBy, ".")
	keyVal, _ := scope.Args.Index(keyPath)
	key := stringifyKey(keyVal)

	fn := func(batchCtx context.Context, k string) (value.Value, error) {
		raw, err := value.SetPath([]byte("{}"), keyPath, parseKey(k))
		if err != nil {
			return value.Null, fmt.Errorf("evaluator: building batch key for %q: %w", io.DataLoaderID, err)
		}
		batchScope := scope
		batchScope.Args = value.FromJSON(raw)
		return call(batchCtx, batchScope)
	}

	return ec.Loaders.Load(ctx, io.DataLoaderID, key, time.Duration(spec.DelayMS)*time.Millisecond, spec.MaxBatchSize, fn)
}

func stringifyKey(v value.Value) string {
	switch v.Kind() {
	case value.KindString:
		s, _ := v.As().(string)
		return s
	default:
		return fmt.Sprintf("%v", v.As())
	}
}

// parseKey recovers a typed key value from its string form so it round-trips
// through JSON the way the original argument would have (numeric ids stay
// numbers, everything else stays a string).
func parseKey(k string) any {
	if n, err := strconv.ParseInt(k, 10, 64); err == nil {
		return n
	}
	return k
}

// applyMapping implements @discriminate/@alias/@omit shape transforms
// (ir.MapNode's doc comment). Non-map values pass through unchanged.
func applyMapping(v value.Value, m *ir.Mapping) value.Value {
	if m == nil || v.Kind() != value.KindMap {
		return v
	}
	obj, _ := v.As().(map[string]any)

	omit := make(map[string]bool, len(m.Omits))
	for _, o := range m.Omits {
		omit[o] = true
	}
	rename := make(map[string]string, len(m.Renames))
	for _, r := range m.Renames {
		rename[r.From] = r.To
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := value.NewMap()
	for _, k := range keys {
		if omit[k] {
			continue
		}
		name := k
		if to, ok := rename[k]; ok {
			name = to
		}
		fv, _ := v.Index(k)
		out.Set(name, fv)
	}

	if m.DiscriminateField != "" {
		if fv, ok := v.Index(m.DiscriminateField); ok {
			raw, _ := fv.As().(string)
			typeName := raw
			if mapped, ok := m.DiscriminateValues[raw]; ok {
				typeName = mapped
			}
			if typeName != "" {
				out.Set("__typename", value.String(typeName))
			}
		}
	}
	return value.FromMap(out)
}
