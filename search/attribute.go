package search

import (
	"strings"

	"github.com/deicod/ermsearch/orm/runtime"
)

// Step is one traversed association. Target is the concrete entity reached, which for
// polymorphic edges comes from the key rather than the schema. Through edges carry the via
// and source hops they are joined over.
type Step struct {
	Owner   string
	Edge    runtime.EdgeSpec
	Target  string
	Through []Step
}

// Column is a resolved search column together with the associations leading to it.
type Column struct {
	Path   []Step
	Entity string
	Field  runtime.FieldSpec
	Type   TypeTag
}

// PathString renders the association path, e.g. "developers.company".
func (c Column) PathString() string { return pathString(c.Path) }

func pathString(path []Step) string {
	names := make([]string, len(path))
	for i, step := range path {
		names[i] = step.Edge.Name
	}
	return strings.Join(names, ".")
}

// Attribute is a parsed attribute key.
type Attribute struct {
	Key     string
	Where   Where
	Columns []Column
}

type resolution struct {
	attr Attribute
	err  error
}

type resolver struct {
	registry runtime.Registry
	wheres   *Registry
	policy   policySet
	base     string
	memo     map[string]resolution
}

func newResolver(reg runtime.Registry, wheres *Registry, policy policySet, base string) *resolver {
	return &resolver{
		registry: reg,
		wheres:   wheres,
		policy:   policy,
		base:     base,
		memo:     map[string]resolution{},
	}
}

// resolve parses key into predicate and columns. Longer predicate suffixes are tried first; a
// shorter one is used only when the longer leaves an unresolvable attribute expression.
func (r *resolver) resolve(key string) (Attribute, error) {
	key = strings.TrimSuffix(key, "=")
	if cached, ok := r.memo[key]; ok {
		return cached.attr, cached.err
	}
	attr, err := r.parse(key)
	r.memo[key] = resolution{attr: attr, err: err}
	return attr, err
}

func (r *resolver) parse(key string) (Attribute, error) {
	var firstErr error
	for _, match := range r.wheres.Candidates(key) {
		cols, ok, err := r.columns(r.base, match.Attribute, match.Where.Types)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if ok {
			return Attribute{Key: key, Where: match.Where, Columns: cols}, nil
		}
	}
	if firstErr != nil {
		return Attribute{}, firstErr
	}
	return Attribute{}, &UnknownAttributeError{Entity: r.base, Key: key}
}

// columns resolves an attribute expression, allowing "_or_" compounds.
func (r *resolver) columns(entity, expr string, types TypeSet) ([]Column, bool, error) {
	if col, ok := r.direct(entity, expr, types, nil); ok {
		return []Column{col}, true, nil
	}
	parts := strings.Split(expr, "_or_")
	cols := make([]Column, 0, len(parts))
	for _, part := range parts {
		col, ok, err := r.column(entity, part, types, nil)
		if err != nil || !ok {
			return nil, false, err
		}
		cols = append(cols, col)
	}
	return cols, true, nil
}

func (r *resolver) direct(entity, name string, types TypeSet, path []Step) (Column, bool) {
	spec, ok := r.registry.Entity(entity)
	if !ok || !r.policy.attribute(entity, name) {
		return Column{}, false
	}
	field, ok := spec.Field(name)
	if !ok {
		return Column{}, false
	}
	tag, ok := TagFor(field.Type)
	if !ok || !types.Has(tag) {
		return Column{}, false
	}
	return Column{Path: path, Entity: entity, Field: field, Type: tag}, true
}

// column resolves a single expression, peeling association names off the front. Longer
// association names are tried first.
func (r *resolver) column(entity, expr string, types TypeSet, path []Step) (Column, bool, error) {
	if col, ok := r.direct(entity, expr, types, path); ok {
		return col, true, nil
	}
	spec, ok := r.registry.Entity(entity)
	if !ok {
		return Column{}, false, nil
	}
	segments := strings.Split(expr, "_")
	for i := len(segments) - 1; i > 0; i-- {
		name := strings.Join(segments[:i], "_")
		rest := strings.Join(segments[i:], "_")
		edge, ok := spec.Edge(name)
		if !ok || !r.policy.association(entity, name) {
			continue
		}
		if edge.Polymorphic {
			col, ok, err := r.polymorphic(spec, edge, rest, types, path)
			if err != nil || ok {
				return col, ok, err
			}
			continue
		}
		step, target, ok := r.expand(spec, edge)
		if !ok {
			continue
		}
		col, ok, err := r.column(target, rest, types, appendPath(path, step))
		if err != nil || ok {
			return col, ok, err
		}
	}
	return Column{}, false, nil
}

func (r *resolver) polymorphic(owner runtime.EntitySpec, edge runtime.EdgeSpec, rest string, types TypeSet, path []Step) (Column, bool, error) {
	const marker = "_type_"
	if !strings.Contains(rest, marker) {
		return Column{}, false, &PolymorphicTypeRequiredError{Entity: owner.Name, Association: edge.Name, Key: rest}
	}
	for offset := 0; ; {
		idx := strings.Index(rest[offset:], marker)
		if idx < 0 {
			return Column{}, false, nil
		}
		idx += offset
		typeName, remainder := rest[:idx], rest[idx+len(marker):]
		offset = idx + 1
		target, ok := r.entityBySnakeName(typeName)
		if !ok || remainder == "" {
			continue
		}
		step := Step{Owner: owner.Name, Edge: edge, Target: target}
		col, ok, err := r.column(target, remainder, types, appendPath(path, step))
		if err != nil || ok {
			return col, ok, err
		}
	}
}

// expand turns an edge into the step the join graph walks. A through edge stays one step;
// its via and source edges become the step's hops.
func (r *resolver) expand(owner runtime.EntitySpec, edge runtime.EdgeSpec) (Step, string, bool) {
	step := Step{Owner: owner.Name, Edge: edge, Target: edge.Target}
	if !edge.IsThrough() {
		return step, edge.Target, true
	}
	via, ok := owner.Edge(edge.Via)
	if !ok || via.IsThrough() || via.Polymorphic {
		return Step{}, "", false
	}
	middle, ok := r.registry.Entity(via.Target)
	if !ok {
		return Step{}, "", false
	}
	source, ok := middle.Edge(edge.Source)
	if !ok || source.IsThrough() || source.Polymorphic {
		return Step{}, "", false
	}
	step.Target = source.Target
	step.Through = []Step{
		{Owner: owner.Name, Edge: via, Target: via.Target},
		{Owner: middle.Name, Edge: source, Target: source.Target},
	}
	return step, source.Target, true
}

func (r *resolver) entityBySnakeName(name string) (string, bool) {
	for _, entity := range r.registry.Names() {
		if runtime.SnakeCase(entity) == name {
			return entity, true
		}
	}
	return "", false
}

// associationPath resolves a dotted association path such as "developers.projects".
func (r *resolver) associationPath(path string) ([]Step, error) {
	entity := r.base
	var steps []Step
	for _, name := range strings.Split(path, ".") {
		spec, ok := r.registry.Entity(entity)
		if !ok {
			return nil, &UnknownAttributeError{Entity: r.base, Key: path}
		}
		edge, ok := spec.Edge(name)
		if !ok || !r.policy.association(entity, name) {
			return nil, &UnknownAttributeError{Entity: r.base, Key: path}
		}
		if edge.Polymorphic {
			return nil, &PolymorphicTypeRequiredError{Entity: entity, Association: name, Key: path}
		}
		step, target, ok := r.expand(spec, edge)
		if !ok {
			return nil, &UnknownAttributeError{Entity: r.base, Key: path}
		}
		steps = append(steps, step)
		entity = target
	}
	return steps, nil
}

func appendPath(path []Step, steps ...Step) []Step {
	out := make([]Step, 0, len(path)+len(steps))
	out = append(out, path...)
	return append(out, steps...)
}
