package source

import (
	"fmt"
	"strings"

	language "github.com/tailcall-gateway/engine/internal/language"

	"github.com/tailcall-gateway/engine/internal/config"
	"github.com/tailcall-gateway/engine/internal/value"
)

// sdlReader lowers one parsed gqlparser SchemaDocument into a config.Config,
// accumulating Violations instead of failing on the first defect (grounded
// on internal/ir's builder/addViolation discipline, internal/ir/build.go).
type sdlReader struct {
	filename   string
	out        *config.Config
	violations []*Violation
	fieldIndex map[string]int // per-type running index, keyed by type name
	argIndex   map[string]int // per-field running index, keyed by "Type.field"
}

func (r *sdlReader) addViolation(msg string, pos *language.Position) {
	v := &Violation{Message: msg}
	if pos != nil {
		v.File = pos.Src.Name
		v.Line = pos.Line
		v.Column = pos.Column
	}
	r.violations = append(r.violations, v)
}

// ParseSDL lowers SDL source text into a Config, following the directive
// vocabulary in spec.md §6: @server, @upstream, @http, @grpc, @graphQL,
// @call, @expr, @js, @link, @cache, @protected, @modify, @omit, @addField,
// @alias, @discriminate, @telemetry.
func ParseSDL(filename, src string) (*config.Config, error) {
	doc, err := language.ParseSchema(filename, src)
	if err != nil {
		return nil, fmt.Errorf("parse SDL %q: %w", filename, err)
	}
	r := &sdlReader{
		filename:   filename,
		out:        config.NewConfig(),
		fieldIndex: make(map[string]int),
		argIndex:   make(map[string]int),
	}
	r.readSchemaDefinitions(doc)
	r.readLinks(doc)
	for _, dirDef := range doc.Directives {
		r.readDirectiveDef(dirDef)
	}
	for _, def := range doc.Definitions {
		r.readDefinition(def)
	}
	if len(r.violations) > 0 {
		out := make(ParseError, len(r.violations))
		copy(out, r.violations)
		return nil, out
	}
	return r.out, nil
}

func (r *sdlReader) readSchemaDefinitions(doc *language.SchemaDocument) {
	for _, schemaDef := range doc.Schema {
		for _, opType := range schemaDef.OperationTypes {
			switch opType.Operation {
			case language.Query:
				r.out.Schema.Query = opType.Type
			case language.Mutation:
				r.out.Schema.Mutation = opType.Type
			case language.Subscription:
				r.out.Schema.Subscription = opType.Type
			}
		}
		for _, dir := range schemaDef.Directives {
			r.readSchemaDirective(dir)
		}
	}
}

func (r *sdlReader) readSchemaDirective(dir *language.Directive) {
	switch dir.Name {
	case "server":
		r.readServerDirective(dir)
	case "upstream":
		r.readUpstreamDirective(dir)
	case "telemetry":
		r.readTelemetryDirective(dir)
	case "link":
		// handled by readLinks
	default:
		r.addViolation(fmt.Sprintf("unknown schema directive @%s", dir.Name), dir.Position)
	}
}

func (r *sdlReader) readServerDirective(dir *language.Directive) {
	for _, arg := range dir.Arguments {
		switch arg.Name {
		case "port":
			r.out.Server.Port = int(r.toInt(arg.Value))
		case "enableBatchRequests":
			r.out.Server.EnableBatchRequests = r.toBool(arg.Value)
		case "enableGraphiQL":
			r.out.Server.EnableGraphiQL = r.toBool(arg.Value)
		case "responseTimeoutMS":
			r.out.Server.ResponseTimeoutMS = int(r.toInt(arg.Value))
		case "cors":
			r.out.Server.CORS = r.toStringList(arg.Value)
		default:
			r.addViolation(fmt.Sprintf("unknown @server argument %q", arg.Name), arg.Position)
		}
	}
}

func (r *sdlReader) readUpstreamDirective(dir *language.Directive) {
	for _, arg := range dir.Arguments {
		switch arg.Name {
		case "enableBatching":
			r.out.Upstream.EnableBatching = r.toBool(arg.Value)
		case "connectTimeoutMS":
			r.out.Upstream.ConnectTimeoutMS = int(r.toInt(arg.Value))
		case "readTimeoutMS":
			r.out.Upstream.ReadTimeoutMS = int(r.toInt(arg.Value))
		case "totalTimeoutMS":
			r.out.Upstream.TotalTimeoutMS = int(r.toInt(arg.Value))
		case "maxIdlePerHost":
			r.out.Upstream.MaxIdlePerHost = int(r.toInt(arg.Value))
		case "poolIdleTimeoutMS":
			r.out.Upstream.PoolIdleTimeoutMS = int(r.toInt(arg.Value))
		case "batchHeaderAllowlist":
			r.out.Upstream.BatchHeaderAllowlist = r.toStringList(arg.Value)
		default:
			r.addViolation(fmt.Sprintf("unknown @upstream argument %q", arg.Name), arg.Position)
		}
	}
}

func (r *sdlReader) readTelemetryDirective(dir *language.Directive) {
	t := &config.Telemetry{}
	for _, arg := range dir.Arguments {
		switch arg.Name {
		case "export":
			t.Export = r.toString(arg.Value)
		case "endpoint":
			t.Endpoint = r.toString(arg.Value)
		default:
			r.addViolation(fmt.Sprintf("unknown @telemetry argument %q", arg.Name), arg.Position)
		}
	}
	r.out.Telemetry = t
}

// readLinks collects every @link directive attached to a schema definition
// or to a schema extension (`extend schema`, where SDL authors commonly put
// it); @link on any other definition is not read here.
func (r *sdlReader) readLinks(doc *language.SchemaDocument) {
	for _, schemaDef := range doc.Schema {
		r.collectLinks(schemaDef.Directives)
	}
	for _, schemaDef := range doc.SchemaExtension {
		r.collectLinks(schemaDef.Directives)
	}
}

func (r *sdlReader) collectLinks(dirs language.DirectiveList) {
	for _, dir := range dirs {
		if dir.Name != "link" {
			continue
		}
		link := &config.Link{}
		for _, arg := range dir.Arguments {
			switch arg.Name {
			case "kind":
				link.Kind = config.LinkKind(r.toString(arg.Value))
			case "source":
				link.Source = r.toString(arg.Value)
			case "id":
				link.ID = r.toString(arg.Value)
			default:
				r.addViolation(fmt.Sprintf("unknown @link argument %q", arg.Name), arg.Position)
			}
		}
		if link.Source == "" {
			r.addViolation("@link requires a non-empty source", dir.Position)
			continue
		}
		r.out.Links = append(r.out.Links, link)
	}
}

// readDirectiveDef registers a user-declared `directive @foo(...) on ...`
// definition, used for directives beyond the fixed built-in vocabulary
// (e.g. project-specific annotations carried through merge unchanged).
func (r *sdlReader) readDirectiveDef(dirDef *language.DirectiveDefinition) {
	d := &config.DirectiveDef{
		Name:       dirDef.Name,
		Args:       make(map[string]*config.Arg, len(dirDef.Arguments)),
		Repeatable: dirDef.IsRepeatable,
	}
	for _, loc := range dirDef.Locations {
		d.Locations = append(d.Locations, string(loc))
	}
	argKey := "@" + dirDef.Name
	for _, argDef := range dirDef.Arguments {
		a := &config.Arg{Name: argDef.Name, Index: r.nextArgIndex(argKey), Type: toTypeRef(argDef.Type)}
		if argDef.DefaultValue != nil {
			a.DefaultValue = toValue(argDef.DefaultValue)
		}
		d.Args[argDef.Name] = a
	}
	r.out.Directives[dirDef.Name] = d
}

func (r *sdlReader) readDefinition(def *language.Definition) {
	switch def.Kind {
	case language.Object:
		r.readObjectOrInterface(def, config.KindObject)
	case language.Interface:
		r.readObjectOrInterface(def, config.KindInterface)
	case language.InputObject:
		r.readObjectOrInterface(def, config.KindInputObject)
	case language.Union:
		r.readUnion(def)
	case language.Enum:
		r.readEnum(def)
	case language.Scalar:
		r.out.Types[def.Name] = &config.Type{Name: def.Name, Kind: config.KindScalar, Description: def.Description}
	}
}

func (r *sdlReader) readObjectOrInterface(def *language.Definition, kind config.Kind) {
	t := config.NewType(def.Name, kind)
	t.Description = def.Description
	for _, i := range def.Interfaces {
		t.Interfaces[i] = true
	}
	for _, fieldDef := range def.Fields {
		t.Fields[fieldDef.Name] = r.readField(def.Name, fieldDef)
	}
	for _, dir := range def.Directives {
		r.readTypeDirective(t, dir)
	}
	r.out.Types[def.Name] = t
}

func (r *sdlReader) nextFieldIndex(typeName string) int {
	i := r.fieldIndex[typeName]
	r.fieldIndex[typeName] = i + 1
	return i
}

func (r *sdlReader) nextArgIndex(key string) int {
	i := r.argIndex[key]
	r.argIndex[key] = i + 1
	return i
}

func (r *sdlReader) readField(typeName string, fieldDef *language.FieldDefinition) *config.Field {
	f := &config.Field{
		Name:        fieldDef.Name,
		Index:       r.nextFieldIndex(typeName),
		Type:        toTypeRef(fieldDef.Type),
		Args:        make(map[string]*config.Arg, len(fieldDef.Arguments)),
		Description: fieldDef.Description,
	}
	if fieldDef.DefaultValue != nil {
		f.DefaultValue = toValue(fieldDef.DefaultValue)
	}
	argKey := typeName + "." + fieldDef.Name
	for _, argDef := range fieldDef.Arguments {
		a := &config.Arg{
			Name:  argDef.Name,
			Index: r.nextArgIndex(argKey),
			Type:  toTypeRef(argDef.Type),
		}
		if argDef.DefaultValue != nil {
			a.DefaultValue = toValue(argDef.DefaultValue)
		}
		f.Args[argDef.Name] = a
	}
	for _, dir := range fieldDef.Directives {
		r.readFieldDirective(f, dir)
	}
	return f
}

func toTypeRef(t *language.Type) *config.TypeRef {
	if t == nil {
		return nil
	}
	if t.Elem != nil {
		return &config.TypeRef{List: toTypeRef(t.Elem), NonNull: t.NonNull}
	}
	return &config.TypeRef{Named: t.NamedType, NonNull: t.NonNull}
}

func (r *sdlReader) readUnion(def *language.Definition) {
	r.out.Unions[def.Name] = &config.Union{
		Name:        def.Name,
		Members:     append([]string{}, def.Types...),
		Description: def.Description,
	}
}

func (r *sdlReader) readEnum(def *language.Definition) {
	e := &config.Enum{Name: def.Name, Values: make(map[string]*config.EnumValueDef, len(def.EnumValues)), Description: def.Description}
	for i, v := range def.EnumValues {
		e.Values[v.Name] = &config.EnumValueDef{Name: v.Name, Index: i}
	}
	r.out.Enums[def.Name] = e
}

// readTypeDirective handles directives attached to an Object/Interface type
// itself rather than a field: @cache, @protected, and federation-entity
// resolution via @key (modeled as a type-level Resolver,
// spec.md §3 "Type": "federation entity resolver, object/interface only").
func (r *sdlReader) readTypeDirective(t *config.Type, dir *language.Directive) {
	switch dir.Name {
	case "cache":
		t.CachePolicy = r.readCacheDirective(dir)
	case "protected":
		if t.Kind == config.KindInputObject {
			r.addViolation("@protected is forbidden on input types", dir.Position)
			return
		}
		t.Protected = true
	case "key":
		var keys []string
		for _, arg := range dir.Arguments {
			if arg.Name == "fields" {
				if arg.Value != nil && arg.Value.Kind == language.StringValue {
					keys = strings.Fields(arg.Value.Raw)
				} else {
					keys = r.toStringList(arg.Value)
				}
			}
		}
		t.Resolver = &config.Resolver{Kind: config.ResolverFederationEntity, FedEntity: &config.FederationEntityResolver{KeyFields: keys}}
	default:
		t.Directives = append(t.Directives, r.readGenericDirectiveUse(dir))
	}
}

func (r *sdlReader) readCacheDirective(dir *language.Directive) *config.CachePolicy {
	cp := &config.CachePolicy{}
	for _, arg := range dir.Arguments {
		switch arg.Name {
		case "maxAge":
			cp.MaxAgeMS = r.toInt(arg.Value)
		default:
			r.addViolation(fmt.Sprintf("unknown @cache argument %q", arg.Name), arg.Position)
		}
	}
	return cp
}

// readFieldDirective dispatches on directive name to populate exactly one
// of Field.Resolver, CachePolicy, Protected, Modifier, or a generic
// DirectiveUse for operators the blueprint stage interprets contextually
// (@addField, @discriminate — spec.md §4.3 step "@addField produces a
// Path(...)", "@discriminate produces a Map(...)").
func (r *sdlReader) readFieldDirective(f *config.Field, dir *language.Directive) {
	switch dir.Name {
	case "http":
		r.setResolver(f, dir, &config.Resolver{Kind: config.ResolverHTTP, HTTP: r.readHTTPDirective(dir)})
	case "grpc":
		r.setResolver(f, dir, &config.Resolver{Kind: config.ResolverGRPC, GRPC: r.readGRPCDirective(dir)})
	case "graphQL":
		r.setResolver(f, dir, &config.Resolver{Kind: config.ResolverGraphQL, GraphQL: r.readGraphQLDirective(dir)})
	case "call":
		r.setResolver(f, dir, &config.Resolver{Kind: config.ResolverCall, Call: r.readCallDirective(dir)})
	case "expr":
		r.setResolver(f, dir, &config.Resolver{Kind: config.ResolverExpr, Expr: r.readExprDirective(dir)})
	case "js":
		r.setResolver(f, dir, &config.Resolver{Kind: config.ResolverJS, JS: r.readJSDirective(dir)})
	case "cache":
		f.CachePolicy = r.readCacheDirective(dir)
	case "protected":
		f.Protected = true
	case "modify":
		f.Modifier = r.mergeModifier(f.Modifier, func(m *config.FieldModifier) {
			for _, arg := range dir.Arguments {
				if arg.Name == "omit" {
					m.Omit = r.toBool(arg.Value)
				}
			}
		})
	case "omit":
		f.Modifier = r.mergeModifier(f.Modifier, func(m *config.FieldModifier) { m.Omit = true })
	case "alias":
		f.Modifier = r.mergeModifier(f.Modifier, func(m *config.FieldModifier) {
			for _, arg := range dir.Arguments {
				if arg.Name == "name" {
					m.Rename = r.toString(arg.Value)
				}
			}
		})
	case "addField", "discriminate":
		f.Directives = append(f.Directives, r.readGenericDirectiveUse(dir))
	default:
		r.addViolation(fmt.Sprintf("unknown directive @%s on field %q", dir.Name, f.Name), dir.Position)
	}
}

// setResolver installs resolver on f, flagging a violation if a field
// already carries one (spec.md §4.3 step 2: "at most one of the mutually
// exclusive resolver operators per field").
func (r *sdlReader) setResolver(f *config.Field, dir *language.Directive, resolver *config.Resolver) {
	if f.Resolver != nil {
		r.addViolation(fmt.Sprintf("field %q declares more than one resolver operator (@%s conflicts with @%s)", f.Name, dir.Name, f.Resolver.Kind), dir.Position)
		return
	}
	f.Resolver = resolver
}

func (r *sdlReader) mergeModifier(existing *config.FieldModifier, apply func(*config.FieldModifier)) *config.FieldModifier {
	m := existing
	if m == nil {
		m = &config.FieldModifier{}
	}
	apply(m)
	return m
}

func (r *sdlReader) readGenericDirectiveUse(dir *language.Directive) *config.DirectiveUse {
	use := &config.DirectiveUse{Name: dir.Name, Args: make(map[string]value.Value, len(dir.Arguments))}
	for _, arg := range dir.Arguments {
		use.Args[arg.Name] = toValue(arg.Value)
	}
	return use
}

func (r *sdlReader) readHTTPDirective(dir *language.Directive) *config.HTTPResolver {
	h := &config.HTTPResolver{Method: "GET"}
	for _, arg := range dir.Arguments {
		switch arg.Name {
		case "method":
			h.Method = r.toString(arg.Value)
		case "url":
			h.URL = r.toString(arg.Value)
		case "headers":
			h.Headers = r.toStringMap(arg.Value)
		case "body":
			h.Body = r.toString(arg.Value)
		case "query":
			for _, qp := range r.toQueryParams(arg.Value) {
				h.Query = append(h.Query, config.QueryParam{Key: qp.Key, Value: qp.Value})
			}
		case "batchKey":
			h.BatchKey = r.toStringList(arg.Value)
		case "groupBy":
			h.GroupBy = r.toStringList(arg.Value)
		case "dedupe":
			h.Dedupe = r.toBool(arg.Value)
		case "onRequest":
			h.OnRequest = r.toString(arg.Value)
		case "onResponse":
			h.OnResponse = r.toString(arg.Value)
		default:
			r.addViolation(fmt.Sprintf("unknown @http argument %q", arg.Name), arg.Position)
		}
	}
	return h
}

func (r *sdlReader) readGRPCDirective(dir *language.Directive) *config.GRPCResolver {
	g := &config.GRPCResolver{}
	for _, arg := range dir.Arguments {
		switch arg.Name {
		case "method":
			g.Method = r.toString(arg.Value)
		case "body":
			g.Body = r.toString(arg.Value)
		case "batchKey":
			g.BatchKey = r.toStringList(arg.Value)
		case "metadata":
			g.Metadata = r.toStringMap(arg.Value)
		case "connectRPC":
			g.ConnectRPC = r.toBool(arg.Value)
		default:
			r.addViolation(fmt.Sprintf("unknown @grpc argument %q", arg.Name), arg.Position)
		}
	}
	if !isValidGRPCMethod(g.Method) {
		r.addViolation(fmt.Sprintf("@grpc method %q must parse as package.service.method", g.Method), dir.Position)
	}
	return g
}

func isValidGRPCMethod(method string) bool {
	dots := 0
	for _, r := range method {
		if r == '.' {
			dots++
		}
	}
	return dots >= 2 && method != ""
}

func (r *sdlReader) readGraphQLDirective(dir *language.Directive) *config.GraphQLResolver {
	g := &config.GraphQLResolver{Args: make(map[string]string)}
	for _, arg := range dir.Arguments {
		switch arg.Name {
		case "name":
			g.Name = r.toString(arg.Value)
		case "args":
			g.Args = r.toStringMap(arg.Value)
		case "batchKey":
			g.BatchKey = r.toStringList(arg.Value)
		case "batch":
			g.Batch = r.toBool(arg.Value)
		case "headers":
			g.Headers = r.toStringMap(arg.Value)
		case "baseURL":
			g.BaseURL = r.toString(arg.Value)
		default:
			r.addViolation(fmt.Sprintf("unknown @graphQL argument %q", arg.Name), arg.Position)
		}
	}
	return g
}

func (r *sdlReader) readCallDirective(dir *language.Directive) *config.CallResolver {
	c := &config.CallResolver{}
	for _, arg := range dir.Arguments {
		switch arg.Name {
		case "steps":
			if arg.Value.Kind != language.ListValue {
				r.addViolation("@call steps must be a list", arg.Position)
				continue
			}
			for _, item := range arg.Value.Children {
				c.Steps = append(c.Steps, r.readCallStep(item.Value))
			}
		default:
			r.addViolation(fmt.Sprintf("unknown @call argument %q", arg.Name), arg.Position)
		}
	}
	if len(c.Steps) == 0 {
		r.addViolation("@call requires a non-empty step list", dir.Position)
	}
	return c
}

func (r *sdlReader) readCallStep(node *language.Value) config.CallStep {
	step := config.CallStep{Args: make(map[string]string)}
	if node.Kind != language.ObjectValue {
		r.addViolation("expected object value for @call step", posOf(node))
		return step
	}
	for _, f := range node.Children {
		switch f.Name {
		case "field":
			step.Field = r.toString(f.Value)
		case "args":
			step.Args = r.toStringMap(f.Value)
		}
	}
	return step
}

func (r *sdlReader) readExprDirective(dir *language.Directive) *config.ExprResolver {
	e := &config.ExprResolver{}
	for _, arg := range dir.Arguments {
		switch arg.Name {
		case "body":
			e.Body = r.toString(arg.Value)
		default:
			r.addViolation(fmt.Sprintf("unknown @expr argument %q", arg.Name), arg.Position)
		}
	}
	return e
}

func (r *sdlReader) readJSDirective(dir *language.Directive) *config.JSResolver {
	j := &config.JSResolver{TimeoutMS: 1000}
	for _, arg := range dir.Arguments {
		switch arg.Name {
		case "script":
			j.Script = r.toString(arg.Value)
		case "export":
			j.Export = r.toString(arg.Value)
		case "timeoutMS":
			j.TimeoutMS = r.toInt(arg.Value)
		default:
			r.addViolation(fmt.Sprintf("unknown @js argument %q", arg.Name), arg.Position)
		}
	}
	return j
}
