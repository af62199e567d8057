package metrics

import "time"

// Collector captures lightweight instrumentation for relation queries and search assembly.
type Collector interface {
	RecordQuery(table, operation string, duration time.Duration, err error)
	RecordSearch(entity string, filters, joins int, err error)
}

// NoopCollector discards all metrics.
type NoopCollector struct{}

// RecordQuery implements Collector.
func (NoopCollector) RecordQuery(string, string, time.Duration, error) {}

// RecordSearch implements Collector.
func (NoopCollector) RecordSearch(string, int, int, error) {}

// MultiCollector fan-outs events to multiple collectors.
type MultiCollector []Collector

// RecordQuery implements Collector.
func (mc MultiCollector) RecordQuery(table, operation string, duration time.Duration, err error) {
	for _, c := range mc {
		if c == nil {
			continue
		}
		c.RecordQuery(table, operation, duration, err)
	}
}

// RecordSearch implements Collector.
func (mc MultiCollector) RecordSearch(entity string, filters, joins int, err error) {
	for _, c := range mc {
		if c == nil {
			continue
		}
		c.RecordSearch(entity, filters, joins, err)
	}
}

// WithCollector returns a collector that fans out to all provided collectors.
func WithCollector(primary Collector, others ...Collector) Collector {
	collectors := make([]Collector, 0, 1+len(others))
	if primary != nil {
		collectors = append(collectors, primary)
	}
	for _, c := range others {
		if c != nil {
			collectors = append(collectors, c)
		}
	}
	switch len(collectors) {
	case 0:
		return NoopCollector{}
	case 1:
		return collectors[0]
	default:
		return MultiCollector(collectors)
	}
}
