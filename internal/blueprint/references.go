package blueprint

import "github.com/tailcall-gateway/engine/internal/config"

// checkReferences validates that every field type, arg type, interface
// implementation, and union member names a type that exists in the config
// (spec.md §4.3 step 1: "reference check"). A type with any unresolved
// reference is excluded from the returned set and no further steps run
// over its fields, matching the "short-circuits per type" failure
// semantics (see ValidationError's doc comment).
//
// Grounded on internal/irlegacy/discovery.go's resolve-then-validate
// pattern, generalized from a Project-wide pass to a per-Type short-circuit.
func (b *builder) checkReferences() map[string]bool {
	valid := make(map[string]bool, len(b.cfg.Types))

	for _, t := range b.cfg.Types {
		ok := true
		for iface := range t.Interfaces {
			if _, exists := b.cfg.Types[iface]; !exists {
				b.addViolation(Trace{Type: t.Name}, "implements unknown interface %q", iface)
				ok = false
			}
		}
		for _, f := range t.OrderedFields() {
			if !b.checkTypeRefExists(t.Name, f.Name, f.Type) {
				ok = false
			}
			for _, a := range f.OrderedArgs() {
				if !b.checkTypeRefExists(t.Name, f.Name, a.Type) {
					ok = false
				}
			}
		}
		valid[t.Name] = ok
	}

	for name, u := range b.cfg.Unions {
		for _, m := range u.Members {
			if _, exists := b.cfg.Types[m]; !exists {
				b.addViolation(Trace{Type: name}, "union member %q is not a known type", m)
			}
		}
	}

	if b.cfg.Schema.Query != "" && !b.typeExists(b.cfg.Schema.Query) {
		b.addViolation(Trace{}, "schema.query references unknown type %q", b.cfg.Schema.Query)
	}
	if b.cfg.Schema.Mutation != "" && !b.typeExists(b.cfg.Schema.Mutation) {
		b.addViolation(Trace{}, "schema.mutation references unknown type %q", b.cfg.Schema.Mutation)
	}
	if b.cfg.Schema.Subscription != "" && !b.typeExists(b.cfg.Schema.Subscription) {
		b.addViolation(Trace{}, "schema.subscription references unknown type %q", b.cfg.Schema.Subscription)
	}

	return valid
}

func (b *builder) checkTypeRefExists(typeName, fieldName string, ref *config.TypeRef) bool {
	if ref == nil {
		return true
	}
	name := ref.NamedType()
	if name == "" || b.typeExists(name) {
		return true
	}
	b.addViolation(Trace{Type: typeName, Field: fieldName}, "references unknown type %q", name)
	return false
}
