package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricMappingsTotal   = "treematch.mappings.total"
	metricCandidatesTotal = "treematch.candidates.total"
	metricEarlyExitsTotal = "treematch.early_exits.total"
	metricMatchDuration   = "treematch.match.duration.seconds"

	attrStage = "stage"
)

// durationBucketBoundaries covers 100µs to 60s, from toy trees to whole
// repositories.
var durationBucketBoundaries = []float64{0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 60}

// MatchStats is what one matcher stage reports after a pass.
type MatchStats struct {
	Stage      string
	Mappings   int64
	Candidates int64
	EarlyExit  bool
	Duration   time.Duration
}

// MatchMetrics holds the OTel instruments matchers report to.
// A nil *MatchMetrics records nothing.
type MatchMetrics struct {
	mappings   metric.Int64Counter
	candidates metric.Int64Counter
	earlyExits metric.Int64Counter
	duration   metric.Float64Histogram
}

// NewMatchMetrics creates the matcher instruments from mt.
func NewMatchMetrics(mt metric.Meter) (*MatchMetrics, error) {
	b := &metricBuilder{meter: mt}

	mm := &MatchMetrics{
		mappings:   b.counter(metricMappingsTotal, "Mappings added by matchers", "{mapping}"),
		candidates: b.counter(metricCandidatesTotal, "Candidate pairs scored by matchers", "{candidate}"),
		earlyExits: b.counter(metricEarlyExitsTotal, "Matcher passes stopped by a depth tie", "{pass}"),
		duration: b.histogram(metricMatchDuration, "Matcher pass duration in seconds", "s",
			durationBucketBoundaries...),
	}

	if b.err != nil {
		return nil, b.err
	}

	return mm, nil
}

// RecordMatch records one matcher pass.
func (mm *MatchMetrics) RecordMatch(ctx context.Context, stats MatchStats) {
	if mm == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String(attrStage, stats.Stage))

	mm.mappings.Add(ctx, stats.Mappings, attrs)
	mm.candidates.Add(ctx, stats.Candidates, attrs)
	mm.duration.Record(ctx, stats.Duration.Seconds(), attrs)

	if stats.EarlyExit {
		mm.earlyExits.Add(ctx, 1, attrs)
	}
}

// metricBuilder keeps the first instrument creation error so a group of
// instruments needs a single check.
type metricBuilder struct {
	meter metric.Meter
	err   error
}

func (b *metricBuilder) counter(name, desc, unit string) metric.Int64Counter {
	c, err := b.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	b.setErr(name, err)

	return c
}

func (b *metricBuilder) histogram(name, desc, unit string, bounds ...float64) metric.Float64Histogram {
	h, err := b.meter.Float64Histogram(name,
		metric.WithDescription(desc),
		metric.WithUnit(unit),
		metric.WithExplicitBucketBoundaries(bounds...),
	)
	b.setErr(name, err)

	return h
}

func (b *metricBuilder) setErr(name string, err error) {
	if err != nil && b.err == nil {
		b.err = fmt.Errorf("create %s: %w", name, err)
	}
}
