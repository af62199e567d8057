package pg

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"

	"github.com/deicod/ermsearch/observability/tracing"
)

type endedSpan struct {
	name  string
	attrs map[string]any
	err   error
}

type captureTracer struct{ spans []*endedSpan }

func (c *captureTracer) Start(ctx context.Context, name string, attrs ...tracing.Attribute) (context.Context, tracing.Span) {
	span := &endedSpan{name: name, attrs: map[string]any{}}
	for _, attr := range attrs {
		span.attrs[attr.Key] = attr.Value
	}
	c.spans = append(c.spans, span)
	return ctx, spanFunc(func(err error) { span.err = err })
}

type spanFunc func(error)

func (f spanFunc) End(err error) { f(err) }

func TestPGXTracer(t *testing.T) {
	capture := &captureTracer{}
	qt := newPGXTracer(capture)
	boom := errors.New("boom")

	ctx := qt.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{
		SQL:  `  select "companies".* FROM "companies" WHERE "companies"."id" = $1`,
		Args: []any{1},
	})
	qt.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{Err: boom})

	if len(capture.spans) != 1 {
		t.Fatalf("expected one span, got %d", len(capture.spans))
	}
	span := capture.spans[0]
	if span.name != "pgx.query" || span.attrs["db.operation"] != "SELECT" || span.attrs["db.arg_count"] != 1 {
		t.Fatalf("unexpected span: %+v", span)
	}
	if !errors.Is(span.err, boom) {
		t.Fatalf("expected error recorded, got %v", span.err)
	}
}

func TestPGXTracerDisabled(t *testing.T) {
	if newPGXTracer(nil) != nil || newPGXTracer(tracing.NoopTracer{}) != nil {
		t.Fatalf("expected no pgx tracer for nil or noop tracers")
	}
	if statementVerb("   ") != "" {
		t.Fatalf("expected empty verb for blank sql")
	}
}
