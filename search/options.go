package search

import (
	"log/slog"
	"time"

	"github.com/deicod/ermsearch/observability/logging"
	"github.com/deicod/ermsearch/observability/metrics"
	"github.com/deicod/ermsearch/observability/tracing"
	"github.com/deicod/ermsearch/orm/dsl"
	"github.com/deicod/ermsearch/orm/runtime"
)

// DefaultSortKey is the pseudo attribute that orders results.
const DefaultSortKey = "sort"

type options struct {
	joinKind  runtime.JoinKind
	context   dsl.Context
	relation  *runtime.Relation
	joins     []string
	wheres    *Registry
	logger    *slog.Logger
	tracer    tracing.Tracer
	collector metrics.Collector
	location  *time.Location
	sortKey   string
}

func defaultOptions() options {
	return options{
		joinKind:  runtime.JoinLeftOuter,
		wheres:    DefaultRegistry(),
		logger:    logging.Discard(),
		tracer:    tracing.NoopTracer{},
		collector: metrics.NoopCollector{},
		location:  time.UTC,
		sortKey:   DefaultSortKey,
	}
}

// Option configures a Builder.
type Option func(*options)

// WithJoinKind selects inner or left outer joins for associations. Left outer is the default.
func WithJoinKind(kind runtime.JoinKind) Option {
	return func(o *options) {
		if kind != "" {
			o.joinKind = kind
		}
	}
}

// WithContext supplies caller values, such as the current user, to searchability policies.
func WithContext(ctx dsl.Context) Option {
	return func(o *options) { o.context = ctx }
}

// WithRelation starts every build from rel instead of the unrestricted entity relation.
func WithRelation(rel runtime.Relation) Option {
	return func(o *options) { o.relation = &rel }
}

// WithJoins pre-joins dotted association paths such as "developers.projects". Pre-joined
// associations survive Build and are reused by matching attributes.
func WithJoins(paths ...string) Option {
	return func(o *options) { o.joins = append(o.joins, paths...) }
}

// WithPredicates replaces the default predicate registry.
func WithPredicates(reg *Registry) Option {
	return func(o *options) {
		if reg != nil {
			o.wheres = reg
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func WithTracer(tracer tracing.Tracer) Option {
	return func(o *options) { o.tracer = tracing.WithTracer(tracer) }
}

func WithCollector(collector metrics.Collector) Option {
	return func(o *options) { o.collector = metrics.WithCollector(collector) }
}

// WithTimeZone sets the location used to interpret dates and times without zone information.
// UTC is used when unset.
func WithTimeZone(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.location = loc
		}
	}
}

// WithSortKey renames the sort pseudo attribute.
func WithSortKey(key string) Option {
	return func(o *options) {
		if key != "" {
			o.sortKey = key
		}
	}
}
