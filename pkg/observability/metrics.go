package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricRequestsTotal   = "depcheck.requests.total"
	metricRequestDuration = "depcheck.request.duration.seconds"
	metricErrorsTotal     = "depcheck.errors.total"

	metricViolationsTotal = "depcheck.violations.total"
	metricFilesScanned    = "depcheck.files.scanned.total"
	metricFilesSkipped    = "depcheck.files.skipped.total"
	metricScopesChecked   = "depcheck.scopes.checked.total"
	metricRunDuration     = "depcheck.run.duration.seconds"

	attrOp        = "op"
	attrStatus    = "status"
	attrRule      = "rule"
	attrScopeKind = "scope_kind"

	// StatusOK marks a successful request or a clean run.
	StatusOK = "ok"
	// StatusError marks a failed request or a run aborted by an error.
	StatusError = "error"
	// StatusViolations marks a run that completed with violations.
	StatusViolations = "violations"
)

// durationBucketBoundaries covers 10ms to 300s, from a single manifest to a
// large monorepo.
var durationBucketBoundaries = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300}

// REDMetrics holds the OTel instruments for Rate, Error, Duration metrics.
type REDMetrics struct {
	requestsTotal   metric.Int64Counter
	requestDuration metric.Float64Histogram
	errorsTotal     metric.Int64Counter
}

// NewREDMetrics creates RED metric instruments from the given meter.
func NewREDMetrics(mt metric.Meter) (*REDMetrics, error) {
	reqTotal, err := mt.Int64Counter(metricRequestsTotal,
		metric.WithDescription("Total number of requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRequestsTotal, err)
	}

	reqDuration, err := mt.Float64Histogram(metricRequestDuration,
		metric.WithDescription("Request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRequestDuration, err)
	}

	errTotal, err := mt.Int64Counter(metricErrorsTotal,
		metric.WithDescription("Total number of errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricErrorsTotal, err)
	}

	return &REDMetrics{
		requestsTotal:   reqTotal,
		requestDuration: reqDuration,
		errorsTotal:     errTotal,
	}, nil
}

// RecordRequest records a completed request with its operation, status, and duration.
func (rm *REDMetrics) RecordRequest(ctx context.Context, op, status string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(attrOp, op),
		attribute.String(attrStatus, status),
	)

	rm.requestsTotal.Add(ctx, 1, attrs)
	rm.requestDuration.Record(ctx, duration.Seconds(), attrs)

	if status == StatusError {
		rm.errorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOp, op)))
	}
}

// CheckMetrics holds the instruments describing reconciliation runs.
type CheckMetrics struct {
	violations    metric.Int64Counter
	filesScanned  metric.Int64Counter
	filesSkipped  metric.Int64Counter
	scopesChecked metric.Int64Counter
	runDuration   metric.Float64Histogram
}

// NewCheckMetrics creates the reconciliation instruments from the given meter.
func NewCheckMetrics(mt metric.Meter) (*CheckMetrics, error) {
	b := newInstrumentBuilder(mt)

	cm := &CheckMetrics{
		violations:    b.counter(metricViolationsTotal, "Non-exempted violations by rule and scope kind", "{violation}"),
		filesScanned:  b.counter(metricFilesScanned, "Python files parsed for imports", "{file}"),
		filesSkipped:  b.counter(metricFilesSkipped, "Python files skipped for size or parse errors", "{file}"),
		scopesChecked: b.counter(metricScopesChecked, "Scopes reconciled", "{scope}"),
		runDuration:   b.histogram(metricRunDuration, "Wall time of a full run in seconds", "s"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return cm, nil
}

// ScopeStats summarizes one reconciled scope.
type ScopeStats struct {
	// Kind is "main" or "handler".
	Kind    string
	Files   int
	Skipped int
	// Violations counts violations per rule identifier.
	Violations map[string]int
}

// RecordScope records one reconciled scope.
func (cm *CheckMetrics) RecordScope(ctx context.Context, stats ScopeStats) {
	kind := metric.WithAttributes(attribute.String(attrScopeKind, stats.Kind))

	cm.scopesChecked.Add(ctx, 1, kind)
	cm.filesScanned.Add(ctx, int64(stats.Files), kind)
	cm.filesSkipped.Add(ctx, int64(stats.Skipped), kind)

	for r, n := range stats.Violations {
		cm.violations.Add(ctx, int64(n), metric.WithAttributes(
			attribute.String(attrRule, r),
			attribute.String(attrScopeKind, stats.Kind),
		))
	}
}

// RecordRun records the duration and outcome of a full run.
func (cm *CheckMetrics) RecordRun(ctx context.Context, status string, duration time.Duration) {
	cm.runDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String(attrStatus, status)))
}

// instrumentBuilder creates instruments and keeps the first error.
type instrumentBuilder struct {
	meter metric.Meter
	err   error
}

func newInstrumentBuilder(mt metric.Meter) *instrumentBuilder {
	return &instrumentBuilder{meter: mt}
}

func (b *instrumentBuilder) counter(name, desc, unit string) metric.Int64Counter {
	c, err := b.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	if err != nil && b.err == nil {
		b.err = fmt.Errorf("create %s: %w", name, err)
	}

	return c
}

func (b *instrumentBuilder) histogram(name, desc, unit string) metric.Float64Histogram {
	h, err := b.meter.Float64Histogram(name,
		metric.WithDescription(desc),
		metric.WithUnit(unit),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil && b.err == nil {
		b.err = fmt.Errorf("create %s: %w", name, err)
	}

	return h
}
