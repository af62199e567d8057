package runtime

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/deicod/ermsearch/orm/dsl"
)

type FieldSpec struct {
	Name        string
	Column      string
	Type        dsl.FieldType
	Primary     bool
	Nullable    bool
	Annotations map[string]any
}

// EdgeSpec describes an association with every join key resolved.
type EdgeSpec struct {
	Name        string
	Kind        dsl.EdgeKind
	Target      string
	Column      string
	TypeColumn  string
	Through     string
	JoinColumn  string
	TargetJoin  string
	Polymorphic bool
	As          string
	Via         string
	Source      string
	Scope       map[string]any
	Annotations map[string]any
}

// IsThrough reports whether the edge is reached through an intermediate edge.
func (e EdgeSpec) IsThrough() bool { return e.Via != "" }

// SearchMethod is a named filter that is not tied to a column. Func must return a Relation;
// any other return value is rejected by the search builder.
type SearchMethod struct {
	Name      string
	Types     []dsl.FieldType
	Splat     bool
	Condition func(dsl.Context) bool
	Func      func(rel Relation, args ...any) (any, error)
}

// SortMethod orders a relation by more than one column under a single sort name.
type SortMethod struct {
	Name string
	Func func(rel Relation, dir SortDirection) Relation
}

type EntitySpec struct {
	Name       string
	Table      string
	PrimaryKey string
	Fields     []FieldSpec
	Edges      []EdgeSpec
	Rules      []dsl.Rule
	Methods    []SearchMethod
	Sorts      []SortMethod
}

func (e EntitySpec) Field(name string) (FieldSpec, bool) {
	for _, field := range e.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return FieldSpec{}, false
}

func (e EntitySpec) Edge(name string) (EdgeSpec, bool) {
	for _, edge := range e.Edges {
		if edge.Name == name {
			return edge, true
		}
	}
	return EdgeSpec{}, false
}

func (e EntitySpec) Method(name string) (SearchMethod, bool) {
	for _, method := range e.Methods {
		if method.Name == name {
			return method, true
		}
	}
	return SearchMethod{}, false
}

func (e EntitySpec) Sort(name string) (SortMethod, bool) {
	for _, s := range e.Sorts {
		if s.Name == name {
			return s, true
		}
	}
	return SortMethod{}, false
}

type Registry struct {
	Entities map[string]EntitySpec
}

func (r Registry) Entity(name string) (EntitySpec, bool) {
	if r.Entities == nil {
		return EntitySpec{}, false
	}
	spec, ok := r.Entities[name]
	return spec, ok
}

// Names lists the registered entity names in lexical order.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r.Entities))
	for name := range r.Entities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type searchMethodProvider interface {
	SearchMethods() []SearchMethod
}

type sortMethodProvider interface {
	SortMethods() []SortMethod
}

type tableProvider interface {
	Table() string
}

type primaryKeyProvider interface {
	PrimaryKey() string
}

// NewRegistry builds a registry from schema definitions. Entity names are taken from the Go type
// name of each definition.
func NewRegistry(defs ...dsl.Definition) (Registry, error) {
	specs := make([]EntitySpec, 0, len(defs))
	for _, def := range defs {
		spec, err := entityFromDefinition(def)
		if err != nil {
			return Registry{}, err
		}
		specs = append(specs, spec)
	}
	return RegistryFromSpecs(specs...)
}

func entityFromDefinition(def dsl.Definition) (EntitySpec, error) {
	if def == nil {
		return EntitySpec{}, fmt.Errorf("runtime: nil schema definition")
	}
	t := reflect.TypeOf(def)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	spec := EntitySpec{Name: t.Name(), Rules: def.Policies()}
	if spec.Name == "" {
		return EntitySpec{}, fmt.Errorf("runtime: schema definition %T has no type name", def)
	}
	if p, ok := def.(tableProvider); ok {
		spec.Table = p.Table()
	}
	if p, ok := def.(primaryKeyProvider); ok {
		spec.PrimaryKey = p.PrimaryKey()
	}
	for _, f := range def.Fields() {
		spec.Fields = append(spec.Fields, FieldSpec{
			Name:        f.Name,
			Column:      f.Column,
			Type:        f.Type,
			Primary:     f.IsPrimary,
			Nullable:    f.Nullable,
			Annotations: f.Annotations,
		})
	}
	for _, e := range def.Edges() {
		spec.Edges = append(spec.Edges, EdgeSpec{
			Name:        e.Name,
			Kind:        e.Kind,
			Target:      e.Target,
			Column:      e.Column,
			Through:     e.Through,
			JoinColumn:  e.JoinColumn,
			TargetJoin:  e.TargetJoin,
			Polymorphic: e.Polymorphic,
			As:          e.AsName,
			Via:         e.ViaEdge,
			Source:      e.SourceEdge,
			Scope:       e.Scope,
			Annotations: e.Annotations,
		})
	}
	if p, ok := def.(searchMethodProvider); ok {
		spec.Methods = p.SearchMethods()
	}
	if p, ok := def.(sortMethodProvider); ok {
		spec.Sorts = p.SortMethods()
	}
	return spec, nil
}

// RegistryFromSpecs fills conventional defaults (tables, keys, join columns) and validates that
// every edge points at a registered entity.
func RegistryFromSpecs(specs ...EntitySpec) (Registry, error) {
	reg := Registry{Entities: make(map[string]EntitySpec, len(specs))}
	for _, spec := range specs {
		if spec.Name == "" {
			return Registry{}, fmt.Errorf("runtime: entity without name")
		}
		if _, exists := reg.Entities[spec.Name]; exists {
			return Registry{}, fmt.Errorf("runtime: entity %s registered twice", spec.Name)
		}
		if spec.Table == "" {
			spec.Table = TableName(spec.Name)
		}
		if spec.PrimaryKey == "" {
			spec.PrimaryKey = "id"
		}
		fields := make([]FieldSpec, len(spec.Fields))
		for i, field := range spec.Fields {
			if field.Column == "" {
				field.Column = field.Name
			}
			fields[i] = field
		}
		spec.Fields = fields
		reg.Entities[spec.Name] = spec
	}

	for name, spec := range reg.Entities {
		edges := make([]EdgeSpec, len(spec.Edges))
		for i, edge := range spec.Edges {
			resolved, err := reg.resolveEdge(spec, edge)
			if err != nil {
				return Registry{}, err
			}
			edges[i] = resolved
		}
		spec.Edges = edges
		reg.Entities[name] = spec
	}

	for name, spec := range reg.Entities {
		for i, edge := range spec.Edges {
			if !edge.IsThrough() {
				continue
			}
			target, err := reg.throughTarget(spec, edge)
			if err != nil {
				return Registry{}, err
			}
			spec.Edges[i].Target = target
		}
		reg.Entities[name] = spec
	}
	return reg, nil
}

func (r Registry) resolveEdge(owner EntitySpec, edge EdgeSpec) (EdgeSpec, error) {
	if edge.Name == "" {
		return edge, fmt.Errorf("runtime: %s declares an edge without name", owner.Name)
	}
	if edge.IsThrough() {
		if edge.Source == "" {
			edge.Source = edge.Name
		}
		return edge, nil
	}
	if edge.Polymorphic {
		if edge.Kind != dsl.EdgeToOne {
			return edge, fmt.Errorf("runtime: %s.%s: polymorphic edges must be to-one", owner.Name, edge.Name)
		}
		if edge.Column == "" {
			edge.Column = edge.Name + "_id"
		}
		if edge.TypeColumn == "" {
			edge.TypeColumn = edge.Name + "_type"
		}
		return edge, nil
	}
	target, ok := r.Entities[edge.Target]
	if !ok {
		return edge, fmt.Errorf("runtime: %s.%s references unknown entity %q", owner.Name, edge.Name, edge.Target)
	}
	switch edge.Kind {
	case dsl.EdgeToOne:
		if edge.Column == "" {
			edge.Column = edge.Name + "_id"
		}
	case dsl.EdgeToMany:
		if edge.As != "" {
			if edge.Column == "" {
				edge.Column = edge.As + "_id"
			}
			if edge.TypeColumn == "" {
				edge.TypeColumn = edge.As + "_type"
			}
			break
		}
		if edge.Column == "" {
			edge.Column = ForeignKey(owner.Name)
		}
	case dsl.EdgeManyToMany:
		if edge.Through == "" {
			edge.Through = JoinTableName(owner.Table, target.Table)
		}
		if edge.JoinColumn == "" {
			edge.JoinColumn = ForeignKey(owner.Name)
		}
		if edge.TargetJoin == "" {
			edge.TargetJoin = ForeignKey(target.Name)
		}
	default:
		return edge, fmt.Errorf("runtime: %s.%s has unsupported kind %q", owner.Name, edge.Name, edge.Kind)
	}
	return edge, nil
}

func (r Registry) throughTarget(owner EntitySpec, edge EdgeSpec) (string, error) {
	via, ok := owner.Edge(edge.Via)
	if !ok {
		return "", fmt.Errorf("runtime: %s.%s goes through unknown edge %q", owner.Name, edge.Name, edge.Via)
	}
	if via.Polymorphic || via.IsThrough() {
		return "", fmt.Errorf("runtime: %s.%s cannot go through %q", owner.Name, edge.Name, edge.Via)
	}
	middle, ok := r.Entities[via.Target]
	if !ok {
		return "", fmt.Errorf("runtime: %s.%s: unknown entity %q", owner.Name, edge.Name, via.Target)
	}
	source, ok := middle.Edge(edge.Source)
	if !ok {
		return "", fmt.Errorf("runtime: %s.%s: %s has no edge %q", owner.Name, edge.Name, middle.Name, edge.Source)
	}
	if source.IsThrough() || source.Polymorphic {
		return "", fmt.Errorf("runtime: %s.%s: source %q must be a plain edge", owner.Name, edge.Name, edge.Source)
	}
	return source.Target, nil
}
