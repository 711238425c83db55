// Package value implements the uniform borrowed/owned JSON-like value model
// used throughout the gateway: configuration defaults, resolver arguments,
// upstream response bodies, and rendered templates all flow through Value.
package value

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Kind discriminates the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindBytes
	KindList
	KindMap
)

// Map is an ordered string-keyed mapping. Setting an existing key replaces
// its value and keeps its original position.
type Map struct {
	keys   []string
	values map[string]Value
}

// NewMap returns an empty ordered map.
func NewMap() *Map {
	return &Map{values: make(map[string]Value)}
}

// Set inserts or overwrites key, preserving original insertion order.
func (m *Map) Set(key string, v Value) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = v
}

// Get returns the value at key and whether it was present.
func (m *Map) Get(key string) (Value, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Keys returns keys in insertion order.
func (m *Map) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of entries.
func (m *Map) Len() int { return len(m.keys) }

// SortedKeys returns keys in lexical order, used for canonical fingerprints.
func (m *Map) SortedKeys() []string {
	out := m.Keys()
	sort.Strings(out)
	return out
}

// Value is a JSON-superset value: null, bool, int64, float64, string,
// []byte, a list of Value, or an ordered Map.
//
// A Value constructed from raw upstream bytes via FromJSON stays borrowed
// (backed by gjson) until a mutation or a full materialization (As) forces
// it into an owned tree; indexing a borrowed Value never materializes
// ancestors, only the path queried.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	by   []byte
	list []Value
	m    *Map

	borrowedRaw []byte // non-nil => this node is still raw JSON bytes
}

// Null is the null Value.
var Null = Value{kind: KindNull}

func Bool(b bool) Value     { return Value{kind: KindBool, b: b} }
func Int(i int64) Value     { return Value{kind: KindInt, i: i} }
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }
func String(s string) Value { return Value{kind: KindString, s: s} }
func Bytes(b []byte) Value  { return Value{kind: KindBytes, by: b} }
func List(vs []Value) Value { return Value{kind: KindList, list: vs} }
func FromMap(m *Map) Value  { return Value{kind: KindMap, m: m} }

// FromJSON wraps raw JSON bytes as a borrowed Value; no parsing happens
// until the value is indexed, iterated, or materialized.
func FromJSON(raw []byte) Value {
	if !gjson.ValidBytes(raw) {
		return Null
	}
	return Value{kind: KindMap, borrowedRaw: raw}
}

// Kind reports the value's variant, materializing a borrowed root if needed
// only to the extent required to answer (gjson types are read without a
// full unmarshal).
func (v Value) Kind() Kind {
	if v.borrowedRaw != nil {
		return kindFromGJSON(gjson.ParseBytes(v.borrowedRaw))
	}
	return v.kind
}

func kindFromGJSON(r gjson.Result) Kind {
	switch r.Type {
	case gjson.Null:
		return KindNull
	case gjson.False, gjson.True:
		return KindBool
	case gjson.Number:
		if r.Num == float64(int64(r.Num)) && !strings.ContainsAny(r.Raw, ".eE") {
			return KindInt
		}
		return KindFloat
	case gjson.String:
		return KindString
	case gjson.JSON:
		if r.IsArray() {
			return KindList
		}
		return KindMap
	default:
		return KindNull
	}
}

// IsNull reports whether the value is JSON null.
func (v Value) IsNull() bool { return v.Kind() == KindNull }

// Index resolves a dot/bracket path (e.g. "user.addresses[0].city") against
// the value, returning the borrowed or owned sub-value and whether the path
// resolved to anything (a present JSON null still returns ok=true).
func (v Value) Index(path string) (Value, bool) {
	if path == "" {
		return v, true
	}
	if v.borrowedRaw != nil {
		r := gjson.GetBytes(v.borrowedRaw, gjsonPath(path))
		if !r.Exists() {
			return Null, false
		}
		return fromGJSONResult(r), true
	}
	segs := SplitPath(path)
	cur := v
	for _, seg := range segs {
		var ok bool
		cur, ok = cur.indexOne(seg)
		if !ok {
			return Null, false
		}
	}
	return cur, true
}

func (v Value) indexOne(seg PathSegment) (Value, bool) {
	switch v.Kind() {
	case KindMap:
		if seg.IsIndex {
			return Null, false
		}
		if v.m == nil {
			return Null, false
		}
		return v.m.Get(seg.Key)
	case KindList:
		if !seg.IsIndex {
			return Null, false
		}
		if seg.Index < 0 || seg.Index >= len(v.list) {
			return Null, false
		}
		return v.list[seg.Index], true
	default:
		return Null, false
	}
}

// PathSegment is one element of a parsed path: either a map key or a list index.
type PathSegment struct {
	Key     string
	Index   int
	IsIndex bool
}

// SplitPath parses "a.b[2].c" into segments [a, b, 2, c].
func SplitPath(path string) []PathSegment {
	var segs []PathSegment
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			segs = append(segs, PathSegment{Key: cur.String()})
			cur.Reset()
		}
	}
	i := 0
	for i < len(path) {
		c := path[i]
		switch c {
		case '.':
			flush()
			i++
		case '[':
			flush()
			j := strings.IndexByte(path[i:], ']')
			if j < 0 {
				cur.WriteString(path[i:])
				i = len(path)
				break
			}
			idxStr := path[i+1 : i+j]
			if n, err := strconv.Atoi(idxStr); err == nil {
				segs = append(segs, PathSegment{Index: n, IsIndex: true})
			}
			i += j + 1
		default:
			cur.WriteByte(c)
			i++
		}
	}
	flush()
	return segs
}

func gjsonPath(path string) string {
	// gjson already understands "a.b.2.c" for both maps and arrays; convert
	// "b[2]" bracket notation to "b.2" dot notation.
	var out strings.Builder
	for i := 0; i < len(path); i++ {
		c := path[i]
		if c == '[' {
			out.WriteByte('.')
			continue
		}
		if c == ']' {
			continue
		}
		out.WriteByte(c)
	}
	return out.String()
}

func fromGJSONResult(r gjson.Result) Value {
	switch r.Type {
	case gjson.Null:
		return Null
	case gjson.False:
		return Bool(false)
	case gjson.True:
		return Bool(true)
	case gjson.Number:
		if kindFromGJSON(r) == KindInt {
			return Int(int64(r.Num))
		}
		return Float(r.Num)
	case gjson.String:
		return String(r.Str)
	case gjson.JSON:
		return Value{kind: kindFromGJSON(r), borrowedRaw: []byte(r.Raw)}
	default:
		return Null
	}
}

// As materializes the value into a plain Go value tree: nil, bool, int64,
// float64, string, []byte, []any, or map[string]any (order lost — used at
// the evaluator boundary where GraphQL response assembly takes over).
func (v Value) As() any {
	if v.borrowedRaw != nil {
		return gjson.ParseBytes(v.borrowedRaw).Value()
	}
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindBytes:
		return v.by
	case KindList:
		out := make([]any, len(v.list))
		for i, e := range v.list {
			out[i] = e.As()
		}
		return out
	case KindMap:
		out := make(map[string]any, v.m.Len())
		for _, k := range v.m.Keys() {
			sub, _ := v.m.Get(k)
			out[k] = sub.As()
		}
		return out
	}
	return nil
}

// FromAny lifts a plain Go value (as produced by encoding/json.Unmarshal,
// or a literal from a parsed GraphQL argument) into a Value tree.
func FromAny(a any) Value {
	switch t := a.(type) {
	case nil:
		return Null
	case Value:
		return t
	case bool:
		return Bool(t)
	case string:
		return String(t)
	case []byte:
		return Bytes(t)
	case int:
		return Int(int64(t))
	case int32:
		return Int(int64(t))
	case int64:
		return Int(t)
	case float32:
		return Float(float64(t))
	case float64:
		if t == float64(int64(t)) {
			return Int(int64(t))
		}
		return Float(t)
	case []any:
		list := make([]Value, len(t))
		for i, e := range t {
			list[i] = FromAny(e)
		}
		return List(list)
	case map[string]any:
		m := NewMap()
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			m.Set(k, FromAny(t[k]))
		}
		return FromMap(m)
	default:
		return String(fmt.Sprintf("%v", t))
	}
}

// SetPath returns a new JSON document with path set to val, using sjson for
// the write half of the read/write pair (gjson reads, sjson writes).
func SetPath(raw []byte, path string, val any) ([]byte, error) {
	return sjson.SetBytes(raw, gjsonPath(path), val)
}
