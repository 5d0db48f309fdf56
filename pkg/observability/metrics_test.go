package observability_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/depcheck/pkg/observability"
)

func newManualMeter(t *testing.T) (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	t.Cleanup(func() { require.NoError(t, mp.Shutdown(context.Background())) })

	return mp, reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))

	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for idx := range rm.ScopeMetrics {
		for midx := range rm.ScopeMetrics[idx].Metrics {
			if rm.ScopeMetrics[idx].Metrics[midx].Name == name {
				return &rm.ScopeMetrics[idx].Metrics[midx]
			}
		}
	}

	return nil
}

func sumInt(t *testing.T, m *metricdata.Metrics) int64 {
	t.Helper()
	require.NotNil(t, m)

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}

	return total
}

func TestREDMetrics_RecordRequest(t *testing.T) {
	t.Parallel()

	mp, reader := newManualMeter(t)

	red, err := observability.NewREDMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	red.RecordRequest(ctx, "mcp.depcheck_check", observability.StatusOK, 100*time.Millisecond)
	red.RecordRequest(ctx, "mcp.depcheck_check", observability.StatusError, time.Second)

	rm := collectMetrics(t, reader)

	assert.Equal(t, int64(2), sumInt(t, findMetric(rm, "depcheck.requests.total")))
	assert.Equal(t, int64(1), sumInt(t, findMetric(rm, "depcheck.errors.total")))
	assert.NotNil(t, findMetric(rm, "depcheck.request.duration.seconds"))
}

func TestCheckMetrics_RecordScopeAndRun(t *testing.T) {
	t.Parallel()

	mp, reader := newManualMeter(t)

	cm, err := observability.NewCheckMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	cm.RecordScope(ctx, observability.ScopeStats{
		Kind:       "main",
		Files:      12,
		Skipped:    1,
		Violations: map[string]int{"DEP001": 2, "DEP002": 1},
	})
	cm.RecordScope(ctx, observability.ScopeStats{Kind: "handler", Files: 3})
	cm.RecordRun(ctx, observability.StatusViolations, 2*time.Second)

	rm := collectMetrics(t, reader)

	assert.Equal(t, int64(3), sumInt(t, findMetric(rm, "depcheck.violations.total")))
	assert.Equal(t, int64(15), sumInt(t, findMetric(rm, "depcheck.files.scanned.total")))
	assert.Equal(t, int64(1), sumInt(t, findMetric(rm, "depcheck.files.skipped.total")))
	assert.Equal(t, int64(2), sumInt(t, findMetric(rm, "depcheck.scopes.checked.total")))

	hist := findMetric(rm, "depcheck.run.duration.seconds")
	require.NotNil(t, hist)

	data, ok := hist.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, data.DataPoints, 1)
	assert.Equal(t, uint64(1), data.DataPoints[0].Count)
}
