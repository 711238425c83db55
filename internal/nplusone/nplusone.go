// Package nplusone implements the static N+1 detector: a depth-first walk
// of a compiled Config that enumerates query paths which, under naive
// evaluation, would issue an upstream call inside a list without a
// declared batch key (spec.md §4.6).
package nplusone

import (
	"fmt"

	"github.com/tailcall-gateway/engine/internal/config"
)

// Finding is one flagged path: a vector of field names rooted at a query
// operation, plus the resolver kind responsible.
type Finding struct {
	Path         []string
	ResolverKind config.ResolverKind
}

// Detect walks cfg from its Query root, tracking whether the current
// position is nested under a list ancestor. A field whose resolver issues
// an upstream call (http/graphql/grpc) and declares no batch key is
// flagged whenever it is reached while already inside a list — that call
// would fire once per list element with no opportunity to batch.
//
// call/expr/js/federation resolvers are excluded: they don't themselves
// dispatch an upstream network call per spec.md §4.6's "issue upstream
// calls" framing (js delegates to a worker process, not a batchable
// upstream; call/expr/federation never touch the network directly).
//
// A (type, field, output type, fan-out) visited set guards re-exploration
// of cyclic type graphs (spec.md §9 "Cyclic type graphs"), at the cost of
// only ever recording the first path that reaches a given field under a
// given fan-out state.
func Detect(cfg *config.Config) []Finding {
	if cfg.Schema.Query == "" {
		return nil
	}
	d := &detector{cfg: cfg, visited: make(map[string]bool)}
	d.walk(cfg.Schema.Query, false, nil)
	return d.findings
}

type detector struct {
	cfg      *config.Config
	visited  map[string]bool
	findings []Finding
}

func (d *detector) walk(typeName string, isInList bool, path []string) {
	t, ok := d.cfg.Types[typeName]
	if !ok {
		return
	}
	for _, f := range t.OrderedFields() {
		outputType := f.Type.NamedType()
		key := fmt.Sprintf("%s.%s>%s#%v", typeName, f.Name, outputType, isInList)
		if d.visited[key] {
			continue
		}
		d.visited[key] = true

		fieldPath := append(append([]string{}, path...), f.Name)

		if isInList && issuesUpstreamCall(f.Resolver) && !isBatched(f.Resolver) {
			d.findings = append(d.findings, Finding{Path: fieldPath, ResolverKind: f.Resolver.Kind})
		}

		d.walk(outputType, isInList || f.Type.IsList(), fieldPath)
	}
}

func issuesUpstreamCall(r *config.Resolver) bool {
	if r == nil {
		return false
	}
	switch r.Kind {
	case config.ResolverHTTP, config.ResolverGraphQL, config.ResolverGRPC:
		return true
	default:
		return false
	}
}

func isBatched(r *config.Resolver) bool {
	switch r.Kind {
	case config.ResolverHTTP:
		return len(r.HTTP.BatchKey) > 0 || len(r.HTTP.GroupBy) > 0
	case config.ResolverGraphQL:
		return r.GraphQL.Batch || len(r.GraphQL.BatchKey) > 0
	case config.ResolverGRPC:
		return len(r.GRPC.BatchKey) > 0
	default:
		return true
	}
}
