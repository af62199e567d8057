package search

import (
	"github.com/deicod/ermsearch/orm/dsl"
	"github.com/deicod/ermsearch/orm/runtime"
)

type nameFilter struct {
	allow map[string]bool
	deny  map[string]bool
}

func (f nameFilter) permits(name string) bool {
	if f.allow != nil {
		return f.allow[name]
	}
	return !f.deny[name]
}

type entityPolicy struct {
	attributes   nameFilter
	associations nameFilter
	methods      map[string]bool
}

// policySet holds searchability decisions for every entity, evaluated once against the
// caller context.
type policySet map[string]entityPolicy

func newPolicySet(reg runtime.Registry, ctx dsl.Context) policySet {
	set := make(policySet, len(reg.Entities))
	for name, spec := range reg.Entities {
		var p entityPolicy
		for _, rule := range spec.Rules {
			if !rule.Applies(ctx) {
				continue
			}
			target := &p.attributes
			if rule.Association() {
				target = &p.associations
			}
			bucket := &target.deny
			if rule.Allow() {
				bucket = &target.allow
			}
			if *bucket == nil {
				*bucket = map[string]bool{}
			}
			for _, n := range rule.Names {
				(*bucket)[n] = true
			}
		}
		p.methods = map[string]bool{}
		for _, m := range spec.Methods {
			p.methods[m.Name] = m.Condition == nil || m.Condition(ctx)
		}
		set[name] = p
	}
	return set
}

func (s policySet) attribute(entity, name string) bool {
	return s[entity].attributes.permits(name)
}

func (s policySet) association(entity, name string) bool {
	return s[entity].associations.permits(name)
}

func (s policySet) method(entity, name string) bool {
	return s[entity].methods[name]
}
