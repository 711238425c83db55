// Package template parses and renders the embedded expressions that appear
// in resolver URLs, headers, and bodies: literal text interleaved with
// {{scope.path}} expressions, with an optional "| jq: <filter>" pipeline
// stage for the JQ half of the spec's "Mustache/JQ templating" component.
package template

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/itchyny/gojq"

	"github.com/tailcall-gateway/engine/internal/value"
)

// Scope is the set of named contexts an expression's leading identifier may
// select: value (parent object), args (field arguments), vars (GraphQL
// variables), env (process environment), headers (request headers).
type Scope struct {
	Value   value.Value
	Args    value.Value
	Vars    value.Value
	Env     value.Value
	Headers value.Value
}

func (s Scope) resolve(name string) (value.Value, bool) {
	switch name {
	case "value":
		return s.Value, true
	case "args":
		return s.Args, true
	case "vars":
		return s.Vars, true
	case "env":
		return s.Env, true
	case "headers":
		return s.Headers, true
	default:
		return value.Null, false
	}
}

// Segment is one literal or expression piece of a parsed Template.
type Segment struct {
	Literal string
	IsExpr  bool
	Scope   string // leading scope identifier, e.g. "args"
	Path    string // remaining dotted path within the scope, may be empty
	JQ      string // optional JQ filter piped after the path, empty if none
}

// Template is a sequence of literal and expression segments.
type Template struct {
	Segments []Segment
	raw      string
}

// Parse lexes src into a Template. Expression segments are delimited by
// "{{" and "}}"; everything else is literal text.
func Parse(src string) (*Template, error) {
	t := &Template{raw: src}
	i := 0
	for i < len(src) {
		open := strings.Index(src[i:], "{{")
		if open < 0 {
			t.Segments = append(t.Segments, Segment{Literal: src[i:]})
			break
		}
		if open > 0 {
			t.Segments = append(t.Segments, Segment{Literal: src[i : i+open]})
		}
		start := i + open + 2
		close := strings.Index(src[start:], "}}")
		if close < 0 {
			return nil, fmt.Errorf("template: unterminated expression in %q", src)
		}
		exprSrc := strings.TrimSpace(src[start : start+close])
		seg, err := parseExpr(exprSrc)
		if err != nil {
			return nil, fmt.Errorf("template: %w (in %q)", err, src)
		}
		t.Segments = append(t.Segments, seg)
		i = start + close + 2
	}
	return t, nil
}

func parseExpr(src string) (Segment, error) {
	if src == "" {
		return Segment{}, fmt.Errorf("empty expression")
	}
	body := src
	jq := ""
	if idx := strings.Index(src, "|"); idx >= 0 {
		body = strings.TrimSpace(src[:idx])
		rest := strings.TrimSpace(src[idx+1:])
		rest = strings.TrimPrefix(rest, "jq:")
		jq = strings.TrimSpace(rest)
	}
	body = strings.TrimPrefix(body, ".")
	parts := strings.SplitN(body, ".", 2)
	scope := parts[0]
	path := ""
	if len(parts) == 2 {
		path = parts[1]
	}
	switch scope {
	case "value", "args", "vars", "env", "headers":
	default:
		return Segment{}, fmt.Errorf("unrecognized scope %q", scope)
	}
	return Segment{IsExpr: true, Scope: scope, Path: path, JQ: jq}, nil
}

// Constant reports whether the template has no expression segments.
func (t *Template) Constant() bool {
	for _, s := range t.Segments {
		if s.IsExpr {
			return false
		}
	}
	return true
}

// String returns the original template source.
func (t *Template) String() string { return t.raw }

// Render renders the template to a string against scope. Non-scalar
// expression results are JSON-encoded.
func (t *Template) Render(scope Scope) (string, error) {
	var sb strings.Builder
	for _, seg := range t.Segments {
		if !seg.IsExpr {
			sb.WriteString(seg.Literal)
			continue
		}
		v, err := evalSegment(seg, scope)
		if err != nil {
			return "", err
		}
		sb.WriteString(stringify(v))
	}
	return sb.String(), nil
}

// RenderValue renders a template that is expected to produce a typed value
// rather than a string: if the template is a single expression segment
// (no surrounding literal text), the rendered Value is returned directly;
// otherwise the string form is parsed as JSON if possible, else kept as a
// string Value, per spec.md §4.4 "Dynamic(t) ... JSON-parsed if possible".
func (t *Template) RenderValue(scope Scope) (value.Value, error) {
	if len(t.Segments) == 1 && t.Segments[0].IsExpr {
		return evalSegment(t.Segments[0], scope)
	}
	s, err := t.Render(scope)
	if err != nil {
		return value.Null, err
	}
	var any any
	if err := json.Unmarshal([]byte(s), &any); err == nil {
		return value.FromAny(any), nil
	}
	return value.String(s), nil
}

func evalSegment(seg Segment, scope Scope) (value.Value, error) {
	root, ok := scope.resolve(seg.Scope)
	if !ok {
		return value.Null, fmt.Errorf("unknown scope %q", seg.Scope)
	}
	v := root
	if seg.Path != "" {
		found, ok := root.Index(seg.Path)
		if !ok {
			v = value.Null
		} else {
			v = found
		}
	}
	if seg.JQ == "" {
		return v, nil
	}
	return applyJQ(seg.JQ, v)
}

func applyJQ(filter string, in value.Value) (value.Value, error) {
	q, err := gojq.Parse(filter)
	if err != nil {
		return value.Null, fmt.Errorf("jq parse %q: %w", filter, err)
	}
	iter := q.Run(in.As())
	out, ok := iter.Next()
	if !ok {
		return value.Null, nil
	}
	if err, ok := out.(error); ok {
		return value.Null, fmt.Errorf("jq eval %q: %w", filter, err)
	}
	return value.FromAny(out), nil
}

func stringify(v value.Value) string {
	switch v.Kind() {
	case value.KindNull:
		return ""
	case value.KindString:
		s, _ := v.As().(string)
		return s
	case value.KindInt:
		return strconv.FormatInt(v.As().(int64), 10)
	case value.KindFloat:
		return strconv.FormatFloat(v.As().(float64), 'g', -1, 64)
	case value.KindBool:
		return strconv.FormatBool(v.As().(bool))
	default:
		b, _ := json.Marshal(v.As())
		return string(b)
	}
}
