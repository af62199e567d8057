package search

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/deicod/ermsearch/observability/tracing"
	"github.com/deicod/ermsearch/orm/runtime"
)

// Builder accumulates a filtered, joined and ordered relation for one entity from attribute
// keys such as "name_contains" or "developers_salary_gt". A Builder must not be shared between
// goroutines.
type Builder struct {
	id       string
	registry runtime.Registry
	entity   runtime.EntitySpec
	opts     options
	policy   policySet
	resolver *resolver
	caster   Caster
	prejoins [][]Step

	base     runtime.Relation
	relation runtime.Relation
	graph    *JoinGraph
	values   map[string]any
	filters  int
}

// New returns a builder over entity holding the unrestricted base relation.
func New(reg runtime.Registry, entity string, opts ...Option) (*Builder, error) {
	spec, ok := reg.Entity(entity)
	if !ok {
		return nil, fmt.Errorf("search: unknown entity %q", entity)
	}
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("search: generate id: %w", err)
	}
	b := &Builder{
		id:       id.String(),
		registry: reg,
		entity:   spec,
		opts:     o,
		caster:   Caster{Location: o.location},
		base:     runtime.For(spec),
	}
	if o.relation != nil {
		b.base = *o.relation
	}
	b.policy = newPolicySet(reg, o.context)
	b.resolver = newResolver(reg, o.wheres, b.policy, spec.Name)
	for _, path := range o.joins {
		steps, err := b.resolver.associationPath(path)
		if err != nil {
			return nil, err
		}
		b.prejoins = append(b.prejoins, steps)
	}
	if err := b.reset(); err != nil {
		return nil, err
	}
	return b, nil
}

// For is New followed by Build.
func For(reg runtime.Registry, entity string, params map[string]any, opts ...Option) (*Builder, error) {
	b, err := New(reg, entity, opts...)
	if err != nil {
		return nil, err
	}
	if err := b.Build(params); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Builder) ID() string                 { return b.id }
func (b *Builder) Entity() runtime.EntitySpec { return b.entity }
func (b *Builder) Graph() *JoinGraph          { return b.graph }

func (b *Builder) reset() error {
	b.relation = b.base
	b.values = map[string]any{}
	b.filters = 0
	b.graph = newJoinGraph(b.entity, b.base, b.opts.joinKind)
	b.graph.onNode = func(n *JoinNode) {
		b.opts.logger.Debug("search join",
			"search_id", b.id,
			"path", n.Path(),
			"alias", n.Alias,
			"depth", n.Depth,
		)
	}
	for _, steps := range b.prejoins {
		rel, _, err := b.graph.Join(b.relation, b.registry, steps)
		if err != nil {
			return err
		}
		b.relation = rel
	}
	return nil
}

// Build resets the builder to its base relation and assigns every parameter. Multiparameter
// fragments are collapsed first and keys are assigned in lexical order. Assignment stops at the
// first error; earlier keys stay applied.
func (b *Builder) Build(params map[string]any) (err error) {
	_, span := b.opts.tracer.Start(context.Background(), "search.build",
		tracing.String("search.entity", b.entity.Name),
		tracing.String("search.id", b.id),
		tracing.Int("search.params", len(params)),
	)
	defer func() {
		span.End(err)
		b.opts.collector.RecordSearch(b.entity.Name, b.filters, len(b.graph.nodes), err)
	}()

	if err := b.reset(); err != nil {
		return err
	}
	params = CollapseMultiparameters(params)
	for _, key := range slices.Sorted(maps.Keys(params)) {
		if err := b.Set(key, params[key]); err != nil {
			return err
		}
	}
	return nil
}

// Set assigns one attribute. The sort key, named search methods and attribute keys are tried
// in that order.
func (b *Builder) Set(key string, value any) error {
	key = strings.TrimSuffix(key, "=")
	if key == b.opts.sortKey {
		return b.applySort(value)
	}
	if method, ok := b.entity.Method(key); ok && b.policy.method(b.entity.Name, key) {
		return b.applyMethod(method, value)
	}
	attr, err := b.resolver.resolve(key)
	if err != nil {
		return b.decorate(err)
	}
	return b.applyAttribute(attr, value)
}

// Get returns the last value assigned to key after casting.
func (b *Builder) Get(key string) (any, bool) {
	v, ok := b.values[strings.TrimSuffix(key, "=")]
	return v, ok
}

// Values returns a copy of every assigned value keyed by attribute key.
func (b *Builder) Values() map[string]any { return maps.Clone(b.values) }

// Attribute resolves key without assigning it.
func (b *Builder) Attribute(key string) (Attribute, error) {
	attr, err := b.resolver.resolve(key)
	if err != nil {
		return Attribute{}, b.decorate(err)
	}
	return attr, nil
}

func (b *Builder) applyAttribute(attr Attribute, value any) error {
	var conds []sq.Sqlizer
	stored := false
	for _, col := range attr.Columns {
		tag := attr.Where.Cast
		if tag == "" {
			tag = col.Type
		}
		v, err := b.caster.Cast(tag, value)
		if err != nil {
			return err
		}
		if !stored {
			b.values[attr.Key] = v
			stored = true
		}
		if !attr.Where.Validate(v) {
			continue
		}
		rel, node, err := b.graph.Join(b.relation, b.registry, col.Path)
		if err != nil {
			return err
		}
		b.relation = rel
		cond, err := attr.Where.Apply(runtime.Column(node.Alias, col.Field.Column), col.Type, v)
		if err != nil {
			return err
		}
		conds = append(conds, cond)
	}
	switch len(conds) {
	case 0:
		b.opts.logger.Debug("search filter ignored", "search_id", b.id, "key", attr.Key)
		return nil
	case 1:
		b.relation = b.relation.Where(conds[0])
	default:
		b.relation = b.relation.Where(sq.Or(conds))
	}
	b.filters++
	return nil
}

// Relation returns the accumulated relation after verifying the join depth limit.
func (b *Builder) Relation() (runtime.Relation, error) {
	if err := b.graph.Check(MaxJoinDepth); err != nil {
		return runtime.Relation{}, err
	}
	return b.relation, nil
}

func (b *Builder) ToSQL() (string, []any, error) {
	rel, err := b.Relation()
	if err != nil {
		return "", nil, err
	}
	return rel.ToSQL()
}

// Page returns the relation limited to one page of results.
func (b *Builder) Page(page, perPage uint64) (runtime.Relation, error) {
	rel, err := b.Relation()
	if err != nil {
		return runtime.Relation{}, err
	}
	return rel.Page(page, perPage), nil
}

// Executor runs relations against a database. *pg.DB implements it.
type Executor interface {
	Select(ctx context.Context, rel runtime.Relation) (pgx.Rows, error)
	Count(ctx context.Context, rel runtime.Relation) (int64, error)
	First(ctx context.Context, rel runtime.Relation) pgx.Row
}

// Context tags ctx with the builder ID so query logs can be correlated with the search.
func (b *Builder) Context(ctx context.Context) context.Context {
	return runtime.WithCorrelationID(ctx, b.id)
}

func (b *Builder) All(ctx context.Context, exec Executor) (pgx.Rows, error) {
	rel, err := b.Relation()
	if err != nil {
		return nil, err
	}
	return exec.Select(b.Context(ctx), rel)
}

func (b *Builder) Count(ctx context.Context, exec Executor) (int64, error) {
	rel, err := b.Relation()
	if err != nil {
		return 0, err
	}
	return exec.Count(b.Context(ctx), rel)
}

// First fetches the first row of the relation. Depth errors are reported by Scan.
func (b *Builder) First(ctx context.Context, exec Executor) pgx.Row {
	rel, err := b.Relation()
	if err != nil {
		return errRow{err: err}
	}
	return exec.First(b.Context(ctx), rel)
}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

func (b *Builder) decorate(err error) error {
	var uerr *UnknownAttributeError
	if errors.As(err, &uerr) && uerr.Suggestions == nil {
		out := *uerr
		out.Suggestions = b.suggest(uerr.Key)
		return &out
	}
	return err
}
