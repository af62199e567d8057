package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultInstrumentation = "github.com/deicod/ermsearch"

// NewOTelTracer adapts an OpenTelemetry provider. A nil provider falls back to the global one.
func NewOTelTracer(provider trace.TracerProvider, instrumentationName string) Tracer {
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	if instrumentationName == "" {
		instrumentationName = defaultInstrumentation
	}
	return otelTracer{tracer: provider.Tracer(instrumentationName)}
}

type otelTracer struct {
	tracer trace.Tracer
}

func (t otelTracer) Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span) {
	if t.tracer == nil {
		return ctx, noopSpan{}
	}
	kvs := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if kv, ok := attr.keyValue(); ok {
			kvs = append(kvs, kv)
		}
	}
	ctx, span := t.tracer.Start(ctx, name, trace.WithAttributes(kvs...))
	return ctx, otelSpan{span}
}

type otelSpan struct {
	trace.Span
}

func (s otelSpan) End(err error) {
	if err != nil {
		s.Span.RecordError(err)
		s.Span.SetStatus(codes.Error, err.Error())
	}
	s.Span.End()
}

func (a Attribute) keyValue() (attribute.KeyValue, bool) {
	if a.Key == "" {
		return attribute.KeyValue{}, false
	}
	switch v := a.Value.(type) {
	case string:
		return attribute.String(a.Key, v), true
	case bool:
		return attribute.Bool(a.Key, v), true
	case int:
		return attribute.Int(a.Key, v), true
	case int64:
		return attribute.Int64(a.Key, v), true
	case float64:
		return attribute.Float64(a.Key, v), true
	case []string:
		return attribute.StringSlice(a.Key, v), true
	case fmt.Stringer:
		return attribute.String(a.Key, v.String()), true
	}
	return attribute.String(a.Key, fmt.Sprint(a.Value)), true
}
