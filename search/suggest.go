package search

import (
	"slices"
	"sort"

	"github.com/agnivade/levenshtein"
)

const (
	maxSuggestionDistance = 2
	maxSuggestions        = 3
)

// suggest proposes attribute keys close to an unknown key. Candidates are built from the base
// entity's own searchable fields combined with the canonical predicates that apply to them,
// plus visible search methods and the sort key.
func (b *Builder) suggest(key string) []string {
	var candidates []string
	for _, field := range b.entity.Fields {
		if !b.policy.attribute(b.entity.Name, field.Name) {
			continue
		}
		tag, ok := TagFor(field.Type)
		if !ok {
			continue
		}
		for _, w := range b.opts.wheres.Wheres() {
			if w.Compound == CompoundNone && w.Allows(tag) {
				candidates = append(candidates, field.Name+"_"+w.Name)
			}
		}
	}
	for _, m := range b.entity.Methods {
		if b.policy.method(b.entity.Name, m.Name) {
			candidates = append(candidates, m.Name)
		}
	}
	candidates = append(candidates, b.opts.sortKey)
	return closest(key, candidates)
}

func (b *Builder) sortables() []string {
	var out []string
	for _, s := range b.entity.Sorts {
		out = append(out, s.Name)
	}
	for _, field := range b.entity.Fields {
		if b.policy.attribute(b.entity.Name, field.Name) {
			out = append(out, field.Name)
		}
	}
	return out
}

func closest(key string, candidates []string) []string {
	type scored struct {
		name string
		dist int
	}
	var hits []scored
	for _, c := range candidates {
		if d := levenshtein.ComputeDistance(key, c); d <= maxSuggestionDistance && c != key {
			hits = append(hits, scored{c, d})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].dist != hits[j].dist {
			return hits[i].dist < hits[j].dist
		}
		return hits[i].name < hits[j].name
	})
	var out []string
	for _, h := range hits {
		if !slices.Contains(out, h.name) {
			out = append(out, h.name)
		}
		if len(out) == maxSuggestions {
			break
		}
	}
	return out
}
