package runtime

import (
	"context"
	"slices"
	"time"

	"github.com/deicod/ermsearch/observability/metrics"
	"github.com/deicod/ermsearch/observability/tracing"
)

// QueryOperation identifies the runtime operation being executed.
type QueryOperation string

const (
	// OperationSelect captures row fetching statements rendered by Relation.ToSQL.
	OperationSelect QueryOperation = "select"
	// OperationCount captures statements rendered by Relation.CountSQL.
	OperationCount QueryOperation = "count"
	// OperationFirst captures single row lookups.
	OperationFirst QueryOperation = "first"
)

// QueryLog describes the structured payload emitted for each query.
type QueryLog struct {
	Operation     QueryOperation
	Table         string
	SQL           string
	Args          []any
	Duration      time.Duration
	Err           error
	CorrelationID string
}

// QueryLogger receives structured query events.
type QueryLogger interface {
	LogQuery(ctx context.Context, entry QueryLog)
}

// QueryLoggerFunc adapts plain functions to QueryLogger.
type QueryLoggerFunc func(context.Context, QueryLog)

// LogQuery implements QueryLogger.
func (fn QueryLoggerFunc) LogQuery(ctx context.Context, entry QueryLog) {
	if fn == nil {
		return
	}
	fn(ctx, entry)
}

// CorrelationProvider extracts correlation IDs from the request context.
type CorrelationProvider interface {
	CorrelationID(context.Context) string
}

// CorrelationProviderFunc adapts functions into CorrelationProvider implementations.
type CorrelationProviderFunc func(context.Context) string

// CorrelationID implements CorrelationProvider.
func (fn CorrelationProviderFunc) CorrelationID(ctx context.Context) string {
	if fn == nil {
		return ""
	}
	return fn(ctx)
}

type correlationKey struct{}

// WithCorrelationID stores id on ctx so ContextCorrelation can report it.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, correlationKey{}, id)
}

// ContextCorrelation reads IDs stored by WithCorrelationID.
var ContextCorrelation = CorrelationProviderFunc(func(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
})

// ObservationOption customises a single observation.
type ObservationOption func(*observationConfig)

type observationConfig struct {
	attrs []tracing.Attribute
}

// WithObservationAttributes adds span attributes to the observation.
func WithObservationAttributes(attrs ...tracing.Attribute) ObservationOption {
	return func(cfg *observationConfig) {
		cfg.attrs = append(cfg.attrs, attrs...)
	}
}

// QueryObserver coordinates logging, metrics, and tracing for relation queries.
// The zero value observes nothing.
type QueryObserver struct {
	Logger     QueryLogger
	Tracer     tracing.Tracer
	Collector  metrics.Collector
	Correlator CorrelationProvider
}

// Observe starts a span for the statement and returns the handle the driver
// ends once the call completes.
func (o QueryObserver) Observe(ctx context.Context, op QueryOperation, table, sql string, args []any, opts ...ObservationOption) QueryObservation {
	if ctx == nil {
		ctx = context.Background()
	}
	obs := QueryObservation{
		ctx:      ctx,
		start:    time.Now(),
		observer: o,
		entry: QueryLog{
			Operation: op,
			Table:     table,
			SQL:       sql,
			Args:      slices.Clone(args),
		},
	}
	if o.Correlator != nil {
		obs.entry.CorrelationID = o.Correlator.CorrelationID(ctx)
	}
	if o.Tracer == nil {
		return obs
	}

	var cfg observationConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	obs.ctx, obs.span = o.Tracer.Start(ctx, "query."+table+"."+string(op), obs.entry.spanAttributes(cfg.attrs)...)
	return obs
}

func (entry QueryLog) spanAttributes(extra []tracing.Attribute) []tracing.Attribute {
	attrs := make([]tracing.Attribute, 0, 4+len(extra))
	attrs = append(attrs,
		tracing.String("ermsearch.table", entry.Table),
		tracing.String("ermsearch.operation", string(entry.Operation)),
		tracing.Int("ermsearch.arg_count", len(entry.Args)),
	)
	if entry.CorrelationID != "" {
		attrs = append(attrs, tracing.String("ermsearch.correlation_id", entry.CorrelationID))
	}
	return append(attrs, extra...)
}

// QueryObservation is a single in-flight query.
type QueryObservation struct {
	ctx      context.Context
	start    time.Time
	span     tracing.Span
	observer QueryObserver
	entry    QueryLog
}

// Context is the context the driver call should run under.
func (obs QueryObservation) Context() context.Context {
	if obs.ctx == nil {
		return context.Background()
	}
	return obs.ctx
}

// End closes the span, then records the duration and outcome.
func (obs QueryObservation) End(err error) {
	if obs.span != nil {
		obs.span.End(err)
	}
	entry := obs.entry
	entry.Duration = time.Since(obs.start)
	entry.Err = err

	if c := obs.observer.Collector; c != nil {
		c.RecordQuery(entry.Table, string(entry.Operation), entry.Duration, err)
	}
	if l := obs.observer.Logger; l != nil {
		l.LogQuery(obs.Context(), entry)
	}
}
