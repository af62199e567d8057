// Package tracing is the span abstraction shared by the search builder and the pg executor.
package tracing

import "context"

// Attribute is a key/value pair attached to a span.
type Attribute struct {
	Key   string
	Value any
}

// Span is an in-flight span. End records err when non-nil.
type Span interface {
	End(err error)
}

// Tracer starts spans.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// NoopTracer discards all spans.
type NoopTracer struct{}

func (NoopTracer) Start(ctx context.Context, _ string, _ ...Attribute) (context.Context, Span) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

// fanout starts the same span on every tracer. Only the first tracer's context propagates.
type fanout []Tracer

func (f fanout) Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span) {
	out := ctx
	spans := make(spanGroup, 0, len(f))
	for i, tracer := range f {
		next, span := tracer.Start(ctx, name, attrs...)
		if i == 0 {
			out = next
		}
		if span != nil {
			spans = append(spans, span)
		}
	}
	return out, spans
}

type spanGroup []Span

func (g spanGroup) End(err error) {
	for _, span := range g {
		span.End(err)
	}
}

// WithTracer combines tracers, dropping nil and no-op entries. It returns NoopTracer when
// nothing is left and the tracer itself when only one is.
func WithTracer(primary Tracer, others ...Tracer) Tracer {
	var set fanout
	for _, t := range append([]Tracer{primary}, others...) {
		switch v := t.(type) {
		case nil, NoopTracer:
		case fanout:
			set = append(set, v...)
		default:
			set = append(set, v)
		}
	}
	switch len(set) {
	case 0:
		return NoopTracer{}
	case 1:
		return set[0]
	}
	return set
}

func String(key, value string) Attribute { return Attribute{Key: key, Value: value} }

func Int(key string, value int) Attribute { return Attribute{Key: key, Value: value} }

func Bool(key string, value bool) Attribute { return Attribute{Key: key, Value: value} }
