package pg

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/deicod/ermsearch/observability/tracing"
)

// pgxTracer opens a span per statement at the driver level. Relation spans from the observer
// wrap these.
type pgxTracer struct {
	tracer tracing.Tracer
}

func newPGXTracer(tracer tracing.Tracer) pgx.QueryTracer {
	if tracer == nil {
		return nil
	}
	if _, noop := tracer.(tracing.NoopTracer); noop {
		return nil
	}
	return pgxTracer{tracer: tracer}
}

type pgxSpanKey struct{}

func (t pgxTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	ctx, span := t.tracer.Start(ctx, "pgx.query",
		tracing.String("db.system", "postgresql"),
		tracing.String("db.operation", statementVerb(data.SQL)),
		tracing.String("db.statement", data.SQL),
		tracing.Int("db.arg_count", len(data.Args)),
	)
	return context.WithValue(ctx, pgxSpanKey{}, span)
}

func (t pgxTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	if span, ok := ctx.Value(pgxSpanKey{}).(tracing.Span); ok {
		span.End(data.Err)
	}
}

// statementVerb returns the leading SQL keyword in upper case.
func statementVerb(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}
