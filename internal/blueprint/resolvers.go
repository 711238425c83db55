package blueprint

import (
	"fmt"
	"strings"

	"github.com/tailcall-gateway/engine/internal/config"
	"github.com/tailcall-gateway/engine/internal/ir"
	"github.com/tailcall-gateway/engine/internal/template"
)

// compileHTTP lowers @http into an ir.IONode wrapped with its DataLoaderID
// (spec.md §4.3 steps 3/7, §4.4 "IO(http)").
func (b *builder) compileHTTP(t *config.Type, f *config.Field, trace Trace, r *config.HTTPResolver) *ir.Node {
	if r == nil {
		b.addViolation(trace, "@http missing resolver body")
		return nil
	}
	if r.URL == "" {
		b.addViolation(trace, "@http requires a url")
		return nil
	}
	url, ok := b.parseTemplateArg(trace, "url", r.URL)
	if !ok {
		return nil
	}
	headers, ok := b.parseTemplateMap(trace, "headers", r.Headers)
	if !ok {
		return nil
	}
	body, ok := b.parseTemplateArg(trace, "body", r.Body)
	if !ok {
		return nil
	}
	query := make([]ir.QueryParamTemplate, 0, len(r.Query))
	for _, qp := range r.Query {
		v, ok := b.parseTemplateArg(trace, "query."+qp.Key, qp.Value)
		if !ok {
			return nil
		}
		query = append(query, ir.QueryParamTemplate{Key: qp.Key, Value: v})
	}
	method := r.Method
	if method == "" {
		method = "GET"
	}

	loaderID := b.allocateDataLoader(string(config.ResolverHTTP)+":"+urlHead(r.URL), r.BatchKey)

	node := ir.IOOf(ir.IONode{
		Kind: ir.IOHTTP,
		HTTP: &ir.HTTPTemplate{
			Method:  method,
			URL:     url,
			Headers: headers,
			Body:    body,
			Query:   query,
		},
		GroupBy:      firstNonEmpty(r.GroupBy, r.BatchKey),
		DataLoaderID: loaderID,
		OnRequest:    r.OnRequest,
		OnResponse:   r.OnResponse,
		Dedupe:       r.Dedupe,
	})
	return node
}

// compileGraphQL lowers @graphQL.
func (b *builder) compileGraphQL(t *config.Type, f *config.Field, trace Trace, r *config.GraphQLResolver) *ir.Node {
	if r == nil {
		b.addViolation(trace, "@graphQL missing resolver body")
		return nil
	}
	if r.Name == "" {
		b.addViolation(trace, "@graphQL requires a name")
		return nil
	}
	args, ok := b.parseTemplateMap(trace, "args", r.Args)
	if !ok {
		return nil
	}
	headers, ok := b.parseTemplateMap(trace, "headers", r.Headers)
	if !ok {
		return nil
	}

	loaderID := b.allocateDataLoader(string(config.ResolverGraphQL)+":"+r.Name, r.BatchKey)

	return ir.IOOf(ir.IONode{
		Kind: ir.IOGraphQL,
		GraphQL: &ir.GraphQLTemplate{
			Name:    r.Name,
			Args:    args,
			Headers: headers,
			BaseURL: r.BaseURL,
			Batch:   r.Batch,
		},
		GroupBy:      r.BatchKey,
		DataLoaderID: loaderID,
	})
}

// isValidGRPCMethod reports whether m has the "package.service.method"
// shape: at least two dots and no empty component.
func isValidGRPCMethod(m string) bool {
	parts := strings.Split(m, ".")
	if len(parts) < 3 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
	}
	return true
}

// compileGRPC lowers @grpc.
func (b *builder) compileGRPC(t *config.Type, f *config.Field, trace Trace, r *config.GRPCResolver) *ir.Node {
	if r == nil {
		b.addViolation(trace, "@grpc missing resolver body")
		return nil
	}
	if r.Method == "" || !isValidGRPCMethod(r.Method) {
		t2 := trace
		t2.Argument = "method"
		b.addViolation(t2, "must be fully-qualified as package.service.method, got %q", r.Method)
		return nil
	}
	body, ok := b.parseTemplateArg(trace, "body", r.Body)
	if !ok {
		return nil
	}
	metadata, ok := b.parseTemplateMap(trace, "metadata", r.Metadata)
	if !ok {
		return nil
	}

	loaderID := b.allocateDataLoader(string(config.ResolverGRPC)+":"+r.Method, r.BatchKey)

	return ir.IOOf(ir.IONode{
		Kind: ir.IOGRPC,
		GRPC: &ir.GRPCTemplate{
			Method:     r.Method,
			Body:       body,
			Metadata:   metadata,
			ConnectRPC: r.ConnectRPC,
		},
		GroupBy:      r.BatchKey,
		DataLoaderID: loaderID,
	})
}

// compileCall lowers @call: a chain of field-delegation steps, each step's
// args templated against the *previous* step's result pushed as the new
// value scope (spec.md §4.4 "Call chains Context(push-value) per step").
func (b *builder) compileCall(t *config.Type, f *config.Field, trace Trace, r *config.CallResolver) *ir.Node {
	if r == nil || len(r.Steps) == 0 {
		b.addViolation(trace, "@call requires at least one step")
		return nil
	}
	var chain *ir.Node
	for i := len(r.Steps) - 1; i >= 0; i-- {
		step := r.Steps[i]
		if step.Field == "" {
			t2 := trace
			t2.Argument = fmt.Sprintf("steps[%d].field", i)
			b.addViolation(t2, "step requires a field")
			return nil
		}
		args, ok := b.parseTemplateMap(trace, fmt.Sprintf("steps[%d].args", i), step.Args)
		if !ok {
			return nil
		}
		argsValues := make(map[string]*ir.Node, len(args))
		for k, tmpl := range args {
			argsValues[k] = ir.DynamicOf(tmpl)
		}
		stepNode := ir.PathOf(step.Field)
		then := stepNode
		if chain != nil {
			then = ir.PushValue(stepNode, chain)
		}
		if len(argsValues) > 0 {
			then = ir.PushArgs(ir.ObjectOf(argsValues), then)
		}
		chain = then
	}
	return chain
}

// compileExpr lowers @expr: always admissible (spec.md §4.4 "Expr ...
// admissible on any field").
func (b *builder) compileExpr(t *config.Type, f *config.Field, trace Trace, r *config.ExprResolver) *ir.Node {
	if r == nil || r.Body == "" {
		b.addViolation(trace, "@expr requires a body")
		return nil
	}
	tmpl, ok := b.parseTemplateArg(trace, "body", r.Body)
	if !ok {
		return nil
	}
	return ir.DynamicOf(tmpl)
}

// compileJS lowers @js.
func (b *builder) compileJS(t *config.Type, f *config.Field, trace Trace, r *config.JSResolver) *ir.Node {
	if r == nil || r.Script == "" || r.Export == "" {
		b.addViolation(trace, "@js requires both script and export")
		return nil
	}
	if !b.linkExists(config.LinkScript, r.Script) {
		t2 := trace
		t2.Argument = "script"
		b.addViolation(t2, "references unlinked script %q", r.Script)
		return nil
	}
	timeout := r.TimeoutMS
	if timeout == 0 {
		timeout = 1000
	}
	return ir.IOOf(ir.IONode{
		Kind: ir.IOJS,
		JS:   &ir.JSTemplate{Script: r.Script, Export: r.Export, TimeoutMS: timeout},
	})
}

func (b *builder) linkExists(kind config.LinkKind, id string) bool {
	for _, l := range b.cfg.Links {
		if l.Kind == kind && l.ID == id {
			return true
		}
	}
	return false
}

// parseTemplateMap parses every value in src as a Template, prefixing
// violations with argPrefix.key.
func (b *builder) parseTemplateMap(trace Trace, argPrefix string, src map[string]string) (map[string]*template.Template, bool) {
	if len(src) == 0 {
		return nil, true
	}
	out := make(map[string]*template.Template, len(src))
	for k, v := range src {
		tmpl, ok := b.parseTemplateArg(trace, argPrefix+"."+k, v)
		if !ok {
			return nil, false
		}
		out[k] = tmpl
	}
	return out, true
}

// allocateDataLoader assigns (or reuses) a DataLoaderSpec keyed by the
// resolver's identity plus its batch-key path (spec.md §4.3 step 7:
// "(resolver kind, canonical URL template head, batch-key path)").
// Resolvers with no batch key are not batched and get no loader.
func (b *builder) allocateDataLoader(head string, batchKey []string) ir.DataLoaderID {
	if len(batchKey) == 0 {
		return ""
	}
	id := ir.DataLoaderID(fmt.Sprintf("%s#%s", head, strings.Join(batchKey, ".")))
	if _, exists := b.loaders[id]; !exists {
		b.loaders[id] = &DataLoaderSpec{
			ID:           id,
			BatchKeyPath: batchKey,
			DelayMS:      16,
			MaxBatchSize: 1000,
		}
	}
	return id
}

func urlHead(url string) string {
	if idx := strings.Index(url, "{{"); idx >= 0 {
		return url[:idx]
	}
	return url
}

func firstNonEmpty(a, b []string) []string {
	if len(a) > 0 {
		return a
	}
	return b
}
