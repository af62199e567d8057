package search

import (
	"fmt"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/deicod/ermsearch/orm/dsl"
	"github.com/deicod/ermsearch/orm/runtime"
)

// MaxJoinDepth bounds how many associations a single path may traverse.
const MaxJoinDepth = 5

// JoinNode is one traversed association in the join graph. Nodes are never modified once
// created. A through association is a single node whose clauses also join the intermediate
// table.
type JoinNode struct {
	ID          int
	Association string
	Parent      *JoinNode
	Owner       runtime.EntitySpec
	Target      runtime.EntitySpec
	Edge        runtime.EdgeSpec
	Kind        runtime.JoinKind
	Alias       string
	Depth       int

	// PolymorphicTarget is set when the edge is polymorphic and names the concrete entity the
	// discriminator is constrained to.
	PolymorphicTarget string

	clauses []runtime.Join
}

// Clauses returns the SQL joins the node contributed.
func (n *JoinNode) Clauses() []runtime.Join { return append([]runtime.Join(nil), n.clauses...) }

// Path renders the association names from the root, e.g. "developers.company".
func (n *JoinNode) Path() string {
	var names []string
	for cur := n; cur != nil && cur.Parent != nil; cur = cur.Parent {
		names = append(names, cur.Association)
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return strings.Join(names, ".")
}

type nodeKey struct {
	association string
	parent      int
	target      string
}

// JoinGraph deduplicates association joins for one builder.
type JoinGraph struct {
	root    *JoinNode
	nodes   []*JoinNode
	index   map[nodeKey]*JoinNode
	aliases map[string]bool
	kind    runtime.JoinKind
	onNode  func(*JoinNode)
}

func newJoinGraph(base runtime.EntitySpec, rel runtime.Relation, kind runtime.JoinKind) *JoinGraph {
	if kind == "" {
		kind = runtime.JoinLeftOuter
	}
	g := &JoinGraph{
		root:    &JoinNode{ID: 0, Target: base, Owner: base, Alias: base.Table},
		index:   map[nodeKey]*JoinNode{},
		aliases: map[string]bool{base.Table: true},
		kind:    kind,
	}
	for _, j := range rel.Joins() {
		g.aliases[j.Name()] = true
	}
	return g
}

func (g *JoinGraph) Root() *JoinNode { return g.root }

// Nodes lists the created nodes in creation order.
func (g *JoinGraph) Nodes() []*JoinNode { return append([]*JoinNode(nil), g.nodes...) }

// Join walks path from the root, creating missing nodes and folding their joins into rel. When
// a step fails, the nodes created by this call are discarded along with their aliases.
func (g *JoinGraph) Join(rel runtime.Relation, reg runtime.Registry, path []Step) (runtime.Relation, *JoinNode, error) {
	node := g.root
	created := len(g.nodes)
	for _, step := range path {
		target, ok := reg.Entity(step.Target)
		if !ok {
			g.rollback(created)
			return rel, nil, fmt.Errorf("search: unknown entity %q", step.Target)
		}
		key := nodeKey{association: step.Edge.Name, parent: node.ID, target: target.Name}
		if existing, ok := g.index[key]; ok {
			node = existing
			continue
		}
		child, err := g.newNode(rel, reg, node, step, target)
		if err != nil {
			g.rollback(created)
			return rel, nil, err
		}
		for _, clause := range child.clauses {
			rel = rel.Join(clause)
		}
		g.index[key] = child
		g.nodes = append(g.nodes, child)
		node = child
	}
	if g.onNode != nil {
		for _, n := range g.nodes[created:] {
			g.onNode(n)
		}
	}
	return rel, node, nil
}

func (g *JoinGraph) rollback(keep int) {
	for _, n := range g.nodes[keep:] {
		delete(g.index, nodeKey{association: n.Association, parent: n.Parent.ID, target: n.Target.Name})
		g.release(n.clauses)
	}
	g.nodes = g.nodes[:keep]
}

func (g *JoinGraph) release(clauses []runtime.Join) {
	for _, c := range clauses {
		delete(g.aliases, c.Name())
	}
}

// Check reports the deepest node exceeding max.
func (g *JoinGraph) Check(max int) error {
	var worst *JoinNode
	for _, node := range g.nodes {
		if node.Depth > max && (worst == nil || node.Depth > worst.Depth) {
			worst = node
		}
	}
	if worst != nil {
		return &JoinDepthExceededError{Path: worst.Path(), Depth: worst.Depth, Max: max}
	}
	return nil
}

// alias reserves the first free name among table, preferred and numbered variants of
// preferred. Names already joined on rel, such as joins added by search methods, are taken.
func (g *JoinGraph) alias(rel runtime.Relation, table, preferred string) string {
	free := func(c string) bool { return c != "" && !g.aliases[c] && !rel.HasJoin(c) }
	for _, c := range []string{table, preferred} {
		if free(c) {
			g.aliases[c] = true
			return c
		}
	}
	for i := 2; ; i++ {
		c := fmt.Sprintf("%s_%d", preferred, i)
		if free(c) {
			g.aliases[c] = true
			return c
		}
	}
}

func (g *JoinGraph) newNode(rel runtime.Relation, reg runtime.Registry, parent *JoinNode, step Step, target runtime.EntitySpec) (*JoinNode, error) {
	edge := step.Edge
	node := &JoinNode{
		ID:          len(g.nodes) + 1,
		Association: edge.Name,
		Parent:      parent,
		Owner:       parent.Target,
		Target:      target,
		Edge:        edge,
		Kind:        g.kind,
		Depth:       parent.Depth + 1,
	}
	if edge.Polymorphic {
		node.PolymorphicTarget = target.Name
	}
	if len(step.Through) == 0 {
		alias, clauses, err := g.edgeJoins(rel, parent.Alias, parent.Target, edge, target)
		if err != nil {
			return nil, err
		}
		node.Alias, node.clauses = alias, clauses
		return node, nil
	}

	// The intermediate table gets its own alias; the node is the far end of the hops.
	alias, owner := parent.Alias, parent.Target
	for _, hop := range step.Through {
		hopTarget, ok := reg.Entity(hop.Target)
		if !ok {
			g.release(node.clauses)
			return nil, fmt.Errorf("search: unknown entity %q", hop.Target)
		}
		hopAlias, clauses, err := g.edgeJoins(rel, alias, owner, hop.Edge, hopTarget)
		if err != nil {
			g.release(node.clauses)
			return nil, err
		}
		node.clauses = append(node.clauses, clauses...)
		alias, owner = hopAlias, hopTarget
	}
	node.Alias = alias
	return node, nil
}

// edgeJoins renders the joins that reach target from the owner aliased as p.
func (g *JoinGraph) edgeJoins(rel runtime.Relation, p string, owner runtime.EntitySpec, edge runtime.EdgeSpec, target runtime.EntitySpec) (string, []runtime.Join, error) {
	var (
		alias   string
		clauses []runtime.Join
		on      []sq.Sqlizer
	)
	switch edge.Kind {
	case dsl.EdgeToOne:
		alias = g.alias(rel, target.Table, edge.Name+"_"+p)
		on = append(on, runtime.ColumnsEqual(
			runtime.Column(alias, target.PrimaryKey),
			runtime.Column(p, edge.Column),
		))
		if edge.Polymorphic {
			on = append(on, sq.Eq{runtime.Column(p, edge.TypeColumn): target.Name})
		}
	case dsl.EdgeToMany:
		alias = g.alias(rel, target.Table, edge.Name+"_"+p)
		on = append(on, runtime.ColumnsEqual(
			runtime.Column(alias, edge.Column),
			runtime.Column(p, owner.PrimaryKey),
		))
		if edge.As != "" {
			on = append(on, sq.Eq{runtime.Column(alias, edge.TypeColumn): owner.Name})
		}
	case dsl.EdgeManyToMany:
		through := g.alias(rel, edge.Through, p+"_"+edge.Name+"_join")
		clauses = append(clauses, runtime.Join{
			Kind:  g.kind,
			Table: edge.Through,
			Alias: through,
			On: []sq.Sqlizer{runtime.ColumnsEqual(
				runtime.Column(through, edge.JoinColumn),
				runtime.Column(p, owner.PrimaryKey),
			)},
		})
		alias = g.alias(rel, target.Table, edge.Name+"_"+p)
		on = append(on, runtime.ColumnsEqual(
			runtime.Column(alias, target.PrimaryKey),
			runtime.Column(through, edge.TargetJoin),
		))
	default:
		return "", nil, fmt.Errorf("search: cannot join %s.%s of kind %q", owner.Name, edge.Name, edge.Kind)
	}
	on = append(on, scopeConditions(alias, edge.Scope)...)
	clauses = append(clauses, runtime.Join{Kind: g.kind, Table: target.Table, Alias: alias, On: on})
	return alias, clauses, nil
}

func scopeConditions(alias string, scope map[string]any) []sq.Sqlizer {
	if len(scope) == 0 {
		return nil
	}
	columns := make([]string, 0, len(scope))
	for column := range scope {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	out := make([]sq.Sqlizer, len(columns))
	for i, column := range columns {
		out[i] = sq.Eq{runtime.Column(alias, column): scope[column]}
	}
	return out
}
