package blueprint

import (
	"sort"

	"github.com/tailcall-gateway/engine/internal/config"
)

// synthesizeFederationSurface adds the federation subgraph surface —
// `_service`, `_entities`, and their supporting `_Any`/`_Service`/`_Entity`
// types — to the Query type whenever any type in the config declares a
// @key resolver (config/resolver.go's FederationEntityResolver/
// FederationServiceResolver doc comments name the exact fields this
// produces: `_entities(representations: [_Any!]!)` and `_service { sdl }`).
// A config with no @key types is left untouched. This runs before the
// reference check so the synthesized fields validate like any other.
func (b *builder) synthesizeFederationSurface() {
	var entityTypes []string
	for name, t := range b.cfg.Types {
		if t.Resolver != nil && t.Resolver.Kind == config.ResolverFederationEntity {
			entityTypes = append(entityTypes, name)
		}
	}
	if len(entityTypes) == 0 {
		return
	}
	sort.Strings(entityTypes)

	if _, ok := b.cfg.Types["_Any"]; !ok {
		b.cfg.Types["_Any"] = &config.Type{Name: "_Any", Kind: config.KindScalar}
	}
	if _, ok := b.cfg.Types["_Service"]; !ok {
		svc := config.NewType("_Service", config.KindObject)
		svc.Fields["sdl"] = &config.Field{Name: "sdl", Index: 0, Type: config.NonNull(config.Named("String"))}
		b.cfg.Types["_Service"] = svc
	}
	if _, ok := b.cfg.Unions["_Entity"]; !ok {
		b.cfg.Unions["_Entity"] = &config.Union{Name: "_Entity", Members: entityTypes}
	}

	queryName := b.cfg.Schema.Query
	if queryName == "" {
		return
	}
	q, ok := b.cfg.Types[queryName]
	if !ok {
		return
	}
	if _, exists := q.Fields["_service"]; !exists {
		q.Fields["_service"] = &config.Field{
			Name:     "_service",
			Index:    nextSyntheticIndex(q),
			Type:     config.NonNull(config.Named("_Service")),
			Args:     map[string]*config.Arg{},
			Resolver: &config.Resolver{Kind: config.ResolverFederationService, FedService: &config.FederationServiceResolver{}},
		}
	}
	if _, exists := q.Fields["_entities"]; !exists {
		q.Fields["_entities"] = &config.Field{
			Name:  "_entities",
			Index: nextSyntheticIndex(q),
			Type:  config.ListOf(config.Named("_Entity")),
			Args: map[string]*config.Arg{
				"representations": {
					Name:  "representations",
					Index: 0,
					Type:  config.NonNull(config.ListOf(config.NonNull(config.Named("_Any")))),
				},
			},
			Resolver: &config.Resolver{Kind: config.ResolverFederationEntity, FedEntity: &config.FederationEntityResolver{}},
		}
	}
}

func nextSyntheticIndex(t *config.Type) int {
	max := -1
	for _, f := range t.Fields {
		if f.Index > max {
			max = f.Index
		}
	}
	return max + 1
}
