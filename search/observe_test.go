package search

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/deicod/ermsearch/observability/tracing"
	testkit "github.com/deicod/ermsearch/testing"
)

type searchEvent struct {
	entity         string
	filters, joins int
	err            error
}

type recordingCollector struct{ searches []searchEvent }

func (c *recordingCollector) RecordQuery(string, string, time.Duration, error) {}

func (c *recordingCollector) RecordSearch(entity string, filters, joins int, err error) {
	c.searches = append(c.searches, searchEvent{entity, filters, joins, err})
}

type recordingTracer struct{ names []string }

func (r *recordingTracer) Start(ctx context.Context, name string, _ ...tracing.Attribute) (context.Context, tracing.Span) {
	r.names = append(r.names, name)
	return ctx, recordedSpan{}
}

type recordedSpan struct{}

func (recordedSpan) End(error) {}

func TestBuilderInstrumentation(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	collector := &recordingCollector{}
	tracer := &recordingTracer{}

	b := build(t, "Company", map[string]any{"developers_name_eq": "Ernie", "name_eq": ""},
		WithLogger(logger), WithCollector(collector), WithTracer(tracer))

	if len(collector.searches) != 1 {
		t.Fatalf("expected one search event, got %d", len(collector.searches))
	}
	got := collector.searches[0]
	if got.entity != "Company" || got.filters != 1 || got.joins != 1 || got.err != nil {
		t.Fatalf("unexpected search event: %+v", got)
	}
	if len(tracer.names) != 1 || tracer.names[0] != "search.build" {
		t.Fatalf("unexpected spans: %v", tracer.names)
	}
	out := buf.String()
	if !strings.Contains(out, "search join") || !strings.Contains(out, "path=developers") {
		t.Fatalf("expected join log, got %s", out)
	}
	if !strings.Contains(out, "search filter ignored") || !strings.Contains(out, "key=name_eq") {
		t.Fatalf("expected ignored filter log, got %s", out)
	}
	if !strings.Contains(out, "search_id="+b.ID()) {
		t.Fatalf("expected search id in logs")
	}

	if err := b.Build(map[string]any{"bogus": 1}); err == nil {
		t.Fatalf("expected error")
	}
	if last := collector.searches[len(collector.searches)-1]; !errors.Is(last.err, ErrUnknownAttribute) {
		t.Fatalf("expected error recorded, got %+v", last)
	}
}

func TestBuilderContextCarriesID(t *testing.T) {
	b, err := New(testkit.Registry(t), "Company")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if b.ID() == "" {
		t.Fatalf("expected id")
	}
	other, _ := New(testkit.Registry(t), "Company")
	if other.ID() == b.ID() {
		t.Fatalf("expected unique ids")
	}
	if _, err := New(testkit.Registry(t), "Nope"); err == nil {
		t.Fatalf("expected unknown entity error")
	}
}
