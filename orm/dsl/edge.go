package dsl

type EdgeKind string

const (
	// EdgeToOne stores the foreign key on the declaring entity.
	EdgeToOne EdgeKind = "o2o"
	// EdgeToMany stores the foreign key on the target entity.
	EdgeToMany EdgeKind = "o2m"
	// EdgeManyToMany links both sides through a join table.
	EdgeManyToMany EdgeKind = "m2m"
)

type Edge struct {
	Name        string
	Column      string
	Through     string
	JoinColumn  string
	TargetJoin  string
	Target      string
	Kind        EdgeKind
	Polymorphic bool
	AsName      string
	ViaEdge     string
	SourceEdge  string
	Scope       map[string]any
	Annotations map[string]any
}

func (e Edge) Field(name string) Edge        { e.Column = name; return e }
func (e Edge) ThroughTable(name string) Edge { e.Through = name; return e }
func (e Edge) As(name string) Edge           { e.AsName = name; return e }

// JoinColumns names the join table columns referencing the declaring and the target entity.
func (e Edge) JoinColumns(source, target string) Edge {
	e.JoinColumn = source
	e.TargetJoin = target
	return e
}

// Where restricts the edge to target rows whose column equals value.
func (e Edge) Where(column string, value any) Edge {
	scope := make(map[string]any, len(e.Scope)+1)
	for k, v := range e.Scope {
		scope[k] = v
	}
	scope[column] = value
	e.Scope = scope
	return e
}

func (e Edge) annotate(key string, val any) Edge {
	if e.Annotations == nil {
		e.Annotations = map[string]any{}
	}
	e.Annotations[key] = val
	return e
}

// Label attaches a human readable name used by tooling output.
func (e Edge) Label(label string) Edge { return e.annotate("label", label) }

func ToOne(name, target string) Edge  { return Edge{Name: name, Target: target, Kind: EdgeToOne} }
func ToMany(name, target string) Edge { return Edge{Name: name, Target: target, Kind: EdgeToMany} }
func ManyToMany(name, target string) Edge {
	return Edge{Name: name, Target: target, Kind: EdgeManyToMany}
}

// Polymorphic declares a to-one edge whose target entity is stored in a discriminator column
// next to the foreign key.
func Polymorphic(name string) Edge {
	return Edge{Name: name, Kind: EdgeToOne, Polymorphic: true}
}

// Through declares an edge reached by following via on the declaring entity and then source on
// the intermediate entity.
func Through(name, via, source string) Edge {
	return Edge{Name: name, Kind: EdgeToMany, ViaEdge: via, SourceEdge: source}
}
