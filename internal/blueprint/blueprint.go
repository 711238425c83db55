// Package blueprint implements the validator/lowerer that compiles a merged
// config.Config into a Blueprint: resolved type definitions plus, per
// field, a compiled ir.Node (spec.md §4.3 "Blueprint compiler").
//
// The builder follows internal/irlegacy/build.go's staged-pass idiom
// (Build → build → populateX in a fixed order, each pass either returning
// early on a short-circuiting failure or accumulating into b.violations),
// generalized from "build a Project from Discovery" to "lower a Config into
// IR", and from a flat Violation record to a type→field→operator→argument
// Trace (spec.md §4.3 "Failure semantics").
package blueprint

import (
	"fmt"

	"github.com/tailcall-gateway/engine/internal/config"
	"github.com/tailcall-gateway/engine/internal/ir"
)

// FieldRef identifies one compiled field by its declaring type and name.
type FieldRef struct {
	Type  string
	Field string
}

// DataLoaderSpec is the blueprint-compile-time allocation for one batch
// fabric instance (spec.md §4.3 step 7, §3 "DataLoader handle").
type DataLoaderSpec struct {
	ID           ir.DataLoaderID
	BatchKeyPath []string
	DelayMS      int64
	MaxBatchSize int
}

// AuthProvider is one linked authentication source available to satisfy
// @protected (spec.md §4.3 step 5).
type AuthProvider struct {
	Kind   config.LinkKind // LinkHtpasswd | LinkJwks
	Source string
	ID     string
}

// Blueprint is the compiled artifact: the validated Config (object/
// interface/union/input/enum/scalar definitions, root operation types,
// server/upstream/telemetry policy) plus the per-field IR and data-loader
// allocation table (spec.md §3 "Blueprint").
type Blueprint struct {
	Config        *config.Config
	Fields        map[FieldRef]*ir.Node
	DataLoaders   map[ir.DataLoaderID]*DataLoaderSpec
	AuthProviders []AuthProvider
}

// Field looks up the compiled IR for (typeName, fieldName).
func (bp *Blueprint) Field(typeName, fieldName string) (*ir.Node, bool) {
	n, ok := bp.Fields[FieldRef{Type: typeName, Field: fieldName}]
	return n, ok
}

var predefinedScalars = map[string]bool{
	"String": true, "Int": true, "Float": true, "Boolean": true, "ID": true,
}

type builder struct {
	cfg        *config.Config
	violations []*Violation
	fields     map[FieldRef]*ir.Node
	loaders    map[ir.DataLoaderID]*DataLoaderSpec
	auth       []AuthProvider

	// currentFieldArgs holds the declared argument names of the field
	// currently being compiled, consulted by checkTemplateScope.
	currentFieldArgs map[string]bool
}

func (b *builder) addViolation(trace Trace, format string, args ...any) {
	b.violations = append(b.violations, &Violation{Trace: trace, Description: fmt.Sprintf(format, args...)})
}

// Compile runs the full validate+lower pipeline over cfg, in the order
// spec.md §4.3 lists its seven steps.
func Compile(cfg *config.Config) (*Blueprint, error) {
	b := &builder{
		cfg:     cfg,
		fields:  make(map[FieldRef]*ir.Node),
		loaders: make(map[ir.DataLoaderID]*DataLoaderSpec),
	}

	b.collectAuthProviders()
	b.synthesizeFederationSurface()
	b.synthesizeIntrospectionSurface()

	// Step 1: reference check. Short-circuits per type on failure (spec.md
	// §4.3 "Failure semantics": "except for unresolved references which
	// short-circuit per type").
	validTypes := b.checkReferences()

	for _, t := range cfg.Types {
		if !validTypes[t.Name] {
			continue
		}
		for _, f := range t.OrderedFields() {
			b.compileField(t, f)
		}
	}

	if len(b.violations) > 0 {
		return nil, ValidationError(b.violations)
	}
	return &Blueprint{Config: cfg, Fields: b.fields, DataLoaders: b.loaders, AuthProviders: b.auth}, nil
}

func (b *builder) typeExists(name string) bool {
	if predefinedScalars[name] {
		return true
	}
	if _, ok := b.cfg.Types[name]; ok {
		return true
	}
	if _, ok := b.cfg.Unions[name]; ok {
		return true
	}
	if _, ok := b.cfg.Enums[name]; ok {
		return true
	}
	return false
}

func (b *builder) collectAuthProviders() {
	for _, link := range b.cfg.Links {
		switch link.Kind {
		case config.LinkHtpasswd, config.LinkJwks:
			b.auth = append(b.auth, AuthProvider{Kind: link.Kind, Source: link.Source, ID: link.ID})
		}
	}
}
