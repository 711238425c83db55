package blueprint

import (
	"github.com/tailcall-gateway/engine/internal/config"
	"github.com/tailcall-gateway/engine/internal/ir"
	"github.com/tailcall-gateway/engine/internal/template"
)

// compileField runs steps 2-7 of spec.md §4.3 for one field: resolver
// admissibility, operator-specific argument validation, template scope
// checking, auth feasibility, IR construction, and data-loader allocation.
// Violations are accumulated onto b.violations; the field is simply absent
// from b.fields if compilation fails, matching the aggregate (non-
// short-circuiting) failure semantics for per-field defects.
func (b *builder) compileField(t *config.Type, f *config.Field) {
	ref := FieldRef{Type: t.Name, Field: f.Name}
	trace := Trace{Type: t.Name, Field: f.Name}

	b.currentFieldArgs = make(map[string]bool, len(f.Args))
	for name := range f.Args {
		b.currentFieldArgs[name] = true
	}

	node := b.compileResolver(t, f, trace)
	if node == nil {
		return
	}

	if f.Protected {
		if t.Kind == config.KindInputObject {
			b.addViolation(trace, "@protected is not permitted on input types")
			return
		}
		if len(b.auth) == 0 {
			b.addViolation(trace, "@protected requires at least one linked htpasswd or jwks auth provider")
			return
		}
		node = ir.ProtectOf(node)
	}

	if f.CachePolicy != nil {
		node = ir.CacheOf(node, f.CachePolicy.MaxAgeMS)
	}

	if f.Modifier != nil && (f.Modifier.Omit || f.Modifier.Rename != "") {
		m := &ir.Mapping{}
		if f.Modifier.Omit {
			m.Omits = []string{f.Name}
		}
		if f.Modifier.Rename != "" {
			m.Renames = []ir.Rename{{From: f.Name, To: f.Modifier.Rename}}
		}
		node = ir.MapOf(node, m)
	}

	b.fields[ref] = node
}

// compileResolver dispatches on the field's resolver kind (spec.md §4.3
// steps 2-3: "resolver admissibility" + "operator validation"), returning
// the compiled ir.Node or nil (with a violation recorded) on failure.
func (b *builder) compileResolver(t *config.Type, f *config.Field, trace Trace) *ir.Node {
	r := f.Resolver
	if r == nil {
		// No resolver: field resolves from the parent value by name
		// (spec.md §4.4 "fields without a resolver project the matching
		// key out of the parent value").
		return ir.PathWrap(ir.Value(), f.Name)
	}

	opTrace := trace
	opTrace.Operator = string(r.Kind)

	switch r.Kind {
	case config.ResolverHTTP:
		return b.compileHTTP(t, f, opTrace, r.HTTP)
	case config.ResolverGraphQL:
		return b.compileGraphQL(t, f, opTrace, r.GraphQL)
	case config.ResolverGRPC:
		return b.compileGRPC(t, f, opTrace, r.GRPC)
	case config.ResolverCall:
		return b.compileCall(t, f, opTrace, r.Call)
	case config.ResolverExpr:
		return b.compileExpr(t, f, opTrace, r.Expr)
	case config.ResolverJS:
		return b.compileJS(t, f, opTrace, r.JS)
	case config.ResolverFederationEntity, config.ResolverFederationService:
		// Federation resolvers are synthesized directly by
		// internal/federation at request time; the blueprint compiler
		// only validates their declaration (spec.md §4.6).
		return ir.Value()
	case config.ResolverIntrospectionSchema, config.ResolverIntrospectionType:
		// Introspection resolvers are synthesized directly by
		// internal/introspection at request time, mirroring the
		// federation resolver kinds above.
		return ir.Value()
	default:
		b.addViolation(opTrace, "unrecognized resolver kind %q", r.Kind)
		return nil
	}
}

// parseTemplateArg parses src as a Template, recording a violation against
// argName on failure and returning (nil, false).
func (b *builder) parseTemplateArg(trace Trace, argName, src string) (*template.Template, bool) {
	if src == "" {
		return &template.Template{}, true
	}
	tmpl, err := template.Parse(src)
	if err != nil {
		t := trace
		t.Argument = argName
		b.addViolation(t, "%v", err)
		return nil, false
	}
	if !b.checkTemplateScope(trace, argName, tmpl) {
		return nil, false
	}
	return tmpl, true
}

// checkTemplateScope validates that every .args.X path in tmpl names a
// declared argument of the current field (spec.md §4.3 step 4: "template
// scope check"). .value paths cannot be statically verified against the
// parent type in general (the parent may be a union/interface) and are
// left to runtime; vars/env/headers are always in scope.
func (b *builder) checkTemplateScope(trace Trace, argName string, tmpl *template.Template) bool {
	declaredArgs := b.currentFieldArgs
	ok := true
	for _, seg := range tmpl.Segments {
		if !seg.IsExpr || seg.Scope != "args" {
			continue
		}
		name := firstPathComponent(seg.Path)
		if name == "" {
			continue
		}
		if declaredArgs != nil && !declaredArgs[name] {
			t := trace
			t.Argument = argName
			b.addViolation(t, "template references undeclared argument %q", name)
			ok = false
		}
	}
	return ok
}

func firstPathComponent(path string) string {
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			return path[:i]
		}
	}
	return path
}
