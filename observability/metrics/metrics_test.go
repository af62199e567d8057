package metrics

import (
	"errors"
	"testing"
	"time"
)

type countingCollector struct {
	queries  int
	searches int
	lastErr  error
}

func (c *countingCollector) RecordQuery(_, _ string, _ time.Duration, err error) {
	c.queries++
	c.lastErr = err
}

func (c *countingCollector) RecordSearch(_ string, _, _ int, err error) {
	c.searches++
	c.lastErr = err
}

func TestWithCollectorFanout(t *testing.T) {
	first := &countingCollector{}
	second := &countingCollector{}
	collector := WithCollector(first, nil, second)

	boom := errors.New("boom")
	collector.RecordQuery("companies", "select", time.Millisecond, nil)
	collector.RecordSearch("Company", 2, 1, boom)

	for i, c := range []*countingCollector{first, second} {
		if c.queries != 1 || c.searches != 1 {
			t.Fatalf("collector %d: expected one event of each kind, got %d/%d", i, c.queries, c.searches)
		}
		if !errors.Is(c.lastErr, boom) {
			t.Fatalf("collector %d: expected error to propagate, got %v", i, c.lastErr)
		}
	}
}

func TestWithCollectorDefaults(t *testing.T) {
	if _, ok := WithCollector(nil).(NoopCollector); !ok {
		t.Fatalf("expected noop collector when none supplied")
	}
	single := &countingCollector{}
	if got := WithCollector(nil, single); got != Collector(single) {
		t.Fatalf("expected single collector to be returned as-is")
	}
}
