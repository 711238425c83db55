// Request execution: parses a client GraphQL operation and walks its
// selection set, invoking the blueprint's compiled IR per field and
// recursively completing the result.
//
// Grounded directly on _examples/hanpama-protograph/internal/executor/
// executor.go's executeSelectionSet/completeValue/completeListValue, carrying
// over its exact non-null-bubbling rule verbatim: a non-null violation
// nested under a parent field discards that parent's whole subtree (the
// function returns ok=false and the caller writes null upward), but a
// violation at the ROOT selection set does not null out the entire
// response — only that one root field is written nil and execution
// continues, matching the teacher's explicit "Root level: keep going but
// write nil" comment.
//
// The teacher resolves fields by calling into a Runtime per field and
// queues independent fields onto an async batch loop that flushes depth by
// depth; here every field is a self-contained compiled ir.Node and batching
// happens inside internal/dataloader (each IO node with a DataLoaderID
// blocks on its own batch window), so list elements are instead walked
// concurrently with one goroutine per element, which converges on the same
// "same-level calls share a batch" property without a manual depth-wise
// flush loop.
package evaluator

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/tailcall-gateway/engine/internal/config"
	"github.com/tailcall-gateway/engine/internal/federation"
	"github.com/tailcall-gateway/engine/internal/introspection"
	"github.com/tailcall-gateway/engine/internal/ir"
	"github.com/tailcall-gateway/engine/internal/template"
	"github.com/tailcall-gateway/engine/internal/value"
)

// GraphQLError is one error entry in a Result, with its response path.
type GraphQLError struct {
	Message string
	Path    []any
}

func (e *GraphQLError) Error() string { return e.Message }

// Result is a complete GraphQL execution outcome.
type Result struct {
	Data   value.Value
	Errors []*GraphQLError
}

type requestExec struct {
	ec        *EvalContext
	doc       *ast.QueryDocument
	vars      map[string]any
	varsValue value.Value

	mu     sync.Mutex
	errors []*GraphQLError
}

// ExecuteRequest parses query, selects operationName (or the sole operation
// if query declares exactly one and operationName is empty), coerces
// variables against its declarations, and executes its selection set
// against the blueprint.
func ExecuteRequest(ctx context.Context, ec *EvalContext, query, operationName string, variables map[string]any) *Result {
	doc, gqlErr := parser.ParseQuery(&ast.Source{Input: query})
	if gqlErr != nil {
		return &Result{Errors: []*GraphQLError{{Message: gqlErr.Error()}}}
	}

	op := selectOperation(doc, operationName)
	if op == nil {
		return &Result{Errors: []*GraphQLError{{Message: "operation not found"}}}
	}

	vars, err := coerceVariables(op.VariableDefinitions, variables)
	if err != nil {
		return &Result{Errors: []*GraphQLError{{Message: err.Error()}}}
	}

	rootType, err := rootTypeName(ec.Blueprint.Config, op.Operation)
	if err != nil {
		return &Result{Errors: []*GraphQLError{{Message: err.Error()}}}
	}

	ex := &requestExec{ec: ec, doc: doc, vars: vars, varsValue: value.FromAny(vars)}
	data, _ := ex.executeSelectionSet(ctx, rootType, op.SelectionSet, value.Null, nil)
	return &Result{Data: data, Errors: ex.errors}
}

func rootTypeName(cfg *config.Config, op ast.Operation) (string, error) {
	var name string
	switch op {
	case ast.Query:
		name = cfg.Schema.Query
	case ast.Mutation:
		name = cfg.Schema.Mutation
	case ast.Subscription:
		name = cfg.Schema.Subscription
	default:
		return "", fmt.Errorf("evaluator: unsupported operation %q", op)
	}
	if name == "" {
		return "", fmt.Errorf("evaluator: no root type configured for %q operations", op)
	}
	return name, nil
}

func selectOperation(doc *ast.QueryDocument, name string) *ast.OperationDefinition {
	if name == "" && len(doc.Operations) == 1 {
		return doc.Operations[0]
	}
	for _, op := range doc.Operations {
		if op.Name == name {
			return op
		}
	}
	return nil
}

func coerceVariables(defs ast.VariableDefinitionList, provided map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(defs)+len(provided))
	for k, v := range provided {
		out[k] = v
	}
	for _, d := range defs {
		if _, ok := out[d.Variable]; ok {
			continue
		}
		if d.DefaultValue == nil {
			continue
		}
		v, err := d.DefaultValue.Value(nil)
		if err != nil {
			return nil, fmt.Errorf("variable %q default value: %w", d.Variable, err)
		}
		out[d.Variable] = v
	}
	return out, nil
}

func (ex *requestExec) addError(msg string, path []any) {
	ex.mu.Lock()
	defer ex.mu.Unlock()
	ex.errors = append(ex.errors, &GraphQLError{Message: msg, Path: append([]any{}, path...)})
}

// executeSelectionSet evaluates every field of sel against objectValue,
// returning (result, true) normally, or (Null, false) when a non-root
// non-null field violation must bubble this whole object to nil.
func (ex *requestExec) executeSelectionSet(ctx context.Context, typeName string, sel ast.SelectionSet, objectValue value.Value, path []any) (value.Value, bool) {
	fields := collectFields(ex.doc, ex.ec.Blueprint.Config, typeName, sel, ex.vars)
	groups := groupFields(fields)
	m := value.NewMap()

	for _, g := range groups {
		name := g.name
		first := g.fields[0]
		fieldPath := appendPath(path, name)

		if first.Name == "__typename" {
			m.Set(name, value.String(typeName))
			continue
		}

		cfgType := ex.ec.Blueprint.Config.Types[typeName]
		var fdef *config.Field
		if cfgType != nil {
			fdef = cfgType.Fields[first.Name]
		}
		if fdef == nil {
			ex.addError(fmt.Sprintf("cannot query field %q on type %q", first.Name, typeName), fieldPath)
			continue
		}

		var result value.Value
		switch {
		case fdef.Resolver != nil && (fdef.Resolver.Kind == config.ResolverFederationEntity || fdef.Resolver.Kind == config.ResolverFederationService):
			result = ex.resolveFederation(ctx, fdef, first, fieldPath)
		case fdef.Resolver != nil && (fdef.Resolver.Kind == config.ResolverIntrospectionSchema || fdef.Resolver.Kind == config.ResolverIntrospectionType):
			result = ex.resolveIntrospection(fdef, first, fieldPath)
		default:
			node, ok := ex.ec.Blueprint.Field(typeName, first.Name)
			if !ok {
				ex.addError(fmt.Sprintf("no compiled resolver for %s.%s", typeName, first.Name), fieldPath)
				continue
			}
			result = ex.resolveField(ctx, node, first, fieldPath, objectValue)
		}

		completed, ok := ex.completeValue(ctx, fdef.Type, g.fields, result, fieldPath)
		if !ok {
			if len(path) > 0 {
				return value.Null, false
			}
			m.Set(name, value.Null)
			continue
		}
		m.Set(name, completed)
	}

	return value.FromMap(m), true
}

func (ex *requestExec) resolveField(ctx context.Context, node *ir.Node, astField *ast.Field, fieldPath []any, objectValue value.Value) value.Value {
	args, err := coerceArgs(astField.Arguments, ex.vars)
	if err != nil {
		ex.addError(err.Error(), fieldPath)
		return value.Null
	}
	scope := template.Scope{
		Value:   objectValue,
		Args:    value.FromAny(args),
		Vars:    ex.varsValue,
		Env:     ex.ec.Env,
		Headers: ex.ec.Headers,
	}
	result, err := Evaluate(ctx, ex.ec, node, scope)
	if err != nil {
		ex.addError(err.Error(), fieldPath)
		return value.Null
	}
	return result
}

// resolveFederation serves the `_service`/`_entities` fields that
// internal/blueprint synthesizes onto the Query type (spec.md §4.6's
// federation-entity/federation-service resolver kinds) by delegating to
// internal/federation instead of walking a compiled ir.Node, since these
// fields have no IO template of their own.
func (ex *requestExec) resolveFederation(ctx context.Context, fdef *config.Field, astField *ast.Field, fieldPath []any) value.Value {
	switch fdef.Resolver.Kind {
	case config.ResolverFederationService:
		m := value.NewMap()
		m.Set("sdl", value.String(federation.PrintSDL(ex.ec.Blueprint.Config)))
		return value.FromMap(m)

	case config.ResolverFederationEntity:
		args, err := coerceArgs(astField.Arguments, ex.vars)
		if err != nil {
			ex.addError(err.Error(), fieldPath)
			return value.Null
		}
		repsVal := value.FromAny(args["representations"])
		reps, _ := repsVal.As().([]any)
		out := make([]value.Value, len(reps))
		for i := range reps {
			rv, _ := repsVal.Index(strconv.Itoa(i))
			entity, err := federation.ResolveRepresentation(ex.ec.Blueprint.Config, rv)
			if err != nil {
				ex.addError(err.Error(), appendPath(fieldPath, i))
				entity = value.Null
			}
			out[i] = entity
		}
		return value.List(out)

	default:
		return value.Null
	}
}

// resolveIntrospection serves the `__schema`/`__type` fields that
// internal/blueprint synthesizes onto the Query type, delegating the actual
// value construction to internal/introspection — mirroring resolveFederation
// above, since neither field has a compiled ir.Node of its own.
func (ex *requestExec) resolveIntrospection(fdef *config.Field, astField *ast.Field, fieldPath []any) value.Value {
	switch fdef.Resolver.Kind {
	case config.ResolverIntrospectionSchema:
		return introspection.Schema(ex.ec.Blueprint.Config)

	case config.ResolverIntrospectionType:
		args, err := coerceArgs(astField.Arguments, ex.vars)
		if err != nil {
			ex.addError(err.Error(), fieldPath)
			return value.Null
		}
		name, _ := args["name"].(string)
		return introspection.TypeByName(ex.ec.Blueprint.Config, name)

	default:
		return value.Null
	}
}

// coerceArgs resolves a field's argument list to plain Go values, replacing
// variable references with their coerced value (ast.Value.Value does this
// lookup internally given the request's variable map).
func coerceArgs(args ast.ArgumentList, vars map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(args))
	for _, a := range args {
		v, err := a.Value.Value(vars)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", a.Name, err)
		}
		out[a.Name] = v
	}
	return out, nil
}

// completeValue mirrors the teacher's completeValue: non-null unwraps
// recursively first (a nullish result or a nullish completion at any unwrap
// level fails the whole field), then lists/objects/abstract types dispatch,
// then leaves (scalars, enums, and any named type absent from the compiled
// type map) pass through unchanged.
func (ex *requestExec) completeValue(ctx context.Context, t *config.TypeRef, fields []*ast.Field, result value.Value, path []any) (value.Value, bool) {
	if t == nil {
		return result, true
	}
	if t.NonNull {
		if result.IsNull() {
			ex.addError(fmt.Sprintf("cannot return null for non-nullable field %s", pathString(path)), path)
			return value.Null, false
		}
		inner := *t
		inner.NonNull = false
		v, ok := ex.completeValue(ctx, &inner, fields, result, path)
		if !ok {
			return value.Null, false
		}
		return v, true
	}
	if result.IsNull() {
		return value.Null, true
	}
	if t.IsList() {
		return ex.completeList(ctx, t.List, fields, result, path)
	}

	named := t.NamedType()
	typeObj := ex.ec.Blueprint.Config.Types[named]
	if typeObj == nil {
		return result, true
	}
	switch typeObj.Kind {
	case config.KindObject:
		return ex.completeObject(ctx, named, fields, result, path)
	case config.KindInterface, config.KindUnion:
		tn, ok := result.Index("__typename")
		name, _ := tn.As().(string)
		if !ok || name == "" {
			ex.addError(fmt.Sprintf("abstract type %q requires a __typename discriminator", named), path)
			return value.Null, false
		}
		return ex.completeObject(ctx, name, fields, result, path)
	default:
		return result, true
	}
}

func (ex *requestExec) completeList(ctx context.Context, elemType *config.TypeRef, fields []*ast.Field, result value.Value, path []any) (value.Value, bool) {
	items, ok := result.As().([]any)
	if !ok {
		ex.addError(fmt.Sprintf("expected list value at %s", pathString(path)), path)
		return value.Null, false
	}

	out := make([]value.Value, len(items))
	failed := make([]bool, len(items))
	var wg sync.WaitGroup
	wg.Add(len(items))
	for i := range items {
		i := i
		go func() {
			defer wg.Done()
			elem, _ := result.Index(strconv.Itoa(i))
			elemPath := appendPath(path, i)
			completed, ok := ex.completeValue(ctx, elemType, fields, elem, elemPath)
			out[i] = completed
			failed[i] = !ok
		}()
	}
	wg.Wait()

	for _, f := range failed {
		if f {
			return value.Null, false
		}
	}
	return value.List(out), true
}

func (ex *requestExec) completeObject(ctx context.Context, typeName string, fields []*ast.Field, result value.Value, path []any) (value.Value, bool) {
	return ex.executeSelectionSet(ctx, typeName, mergeSelectionSets(fields), result, path)
}

func mergeSelectionSets(fields []*ast.Field) ast.SelectionSet {
	var merged ast.SelectionSet
	for _, f := range fields {
		merged = append(merged, f.SelectionSet...)
	}
	return merged
}

type fieldGroup struct {
	name   string
	fields []*ast.Field
}

func groupFields(fields []*ast.Field) []fieldGroup {
	order := make([]string, 0, len(fields))
	groups := make(map[string][]*ast.Field, len(fields))
	for _, f := range fields {
		name := f.Alias
		if name == "" {
			name = f.Name
		}
		if _, ok := groups[name]; !ok {
			order = append(order, name)
		}
		groups[name] = append(groups[name], f)
	}
	out := make([]fieldGroup, len(order))
	for i, name := range order {
		out[i] = fieldGroup{name: name, fields: groups[name]}
	}
	return out
}

// collectFields flattens inline fragments and fragment spreads into a flat
// field list, applying @skip/@include and filtering by type condition
// (spec.md §4.4's selection execution; the doc has no schema-validated
// ast.FragmentSpread.Definition to rely on since queries are parsed without
// one, so fragments are looked up directly from the document).
func collectFields(doc *ast.QueryDocument, cfg *config.Config, typeName string, sel ast.SelectionSet, vars map[string]any) []*ast.Field {
	return collectFieldsRec(doc, cfg, typeName, sel, vars, make(map[string]bool))
}

func collectFieldsRec(doc *ast.QueryDocument, cfg *config.Config, typeName string, sel ast.SelectionSet, vars map[string]any, visited map[string]bool) []*ast.Field {
	var out []*ast.Field
	for _, s := range sel {
		switch node := s.(type) {
		case *ast.Field:
			if !shouldInclude(node.Directives, vars) {
				continue
			}
			out = append(out, node)
		case *ast.InlineFragment:
			if !shouldInclude(node.Directives, vars) {
				continue
			}
			if !typeConditionMatches(cfg, typeName, node.TypeCondition) {
				continue
			}
			out = append(out, collectFieldsRec(doc, cfg, typeName, node.SelectionSet, vars, visited)...)
		case *ast.FragmentSpread:
			if !shouldInclude(node.Directives, vars) {
				continue
			}
			if visited[node.Name] {
				continue
			}
			visited[node.Name] = true
			frag := lookupFragment(doc, node.Name)
			if frag == nil {
				continue
			}
			if !typeConditionMatches(cfg, typeName, frag.TypeCondition) {
				continue
			}
			out = append(out, collectFieldsRec(doc, cfg, typeName, frag.SelectionSet, vars, visited)...)
		}
	}
	return out
}

func lookupFragment(doc *ast.QueryDocument, name string) *ast.FragmentDefinition {
	for _, f := range doc.Fragments {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func typeConditionMatches(cfg *config.Config, typeName, cond string) bool {
	if cond == "" || cond == typeName {
		return true
	}
	if t, ok := cfg.Types[typeName]; ok && t.Interfaces[cond] {
		return true
	}
	if u, ok := cfg.Unions[cond]; ok {
		for _, m := range u.Members {
			if m == typeName {
				return true
			}
		}
	}
	return false
}

// shouldInclude evaluates @skip/@include; a directive argument that fails
// to resolve (e.g. a malformed variable reference) is treated as absent
// rather than aborting the whole selection.
func shouldInclude(directives ast.DirectiveList, vars map[string]any) bool {
	include := true
	if d := directives.ForName("include"); d != nil {
		if arg := d.Arguments.ForName("if"); arg != nil {
			if v, err := arg.Value.Value(vars); err == nil {
				b, _ := v.(bool)
				include = b
			}
		}
	}
	if d := directives.ForName("skip"); d != nil {
		if arg := d.Arguments.ForName("if"); arg != nil {
			if v, err := arg.Value.Value(vars); err == nil {
				if b, _ := v.(bool); b {
					include = false
				}
			}
		}
	}
	return include
}

func appendPath(path []any, elem any) []any {
	out := make([]any, len(path)+1)
	copy(out, path)
	out[len(path)] = elem
	return out
}

func pathString(path []any) string {
	var sb strings.Builder
	for i, e := range path {
		if i > 0 {
			sb.WriteString(".")
		}
		switch v := e.(type) {
		case string:
			sb.WriteString(v)
		case int:
			fmt.Fprintf(&sb, "[%d]", v)
		}
	}
	return sb.String()
}
