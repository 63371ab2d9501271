package metrics_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/thenielthevis/capstone-project-sub006/internal/domain/model"
	"github.com/thenielthevis/capstone-project-sub006/internal/infrastructure/metrics"
)

func setup(t *testing.T) (*metrics.Recorder, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	rec, err := metrics.NewRecorder(provider.Meter("test"))
	require.NoError(t, err)
	return rec, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func sumFor(t *testing.T, data metricdata.Aggregation, key, value string) int64 {
	t.Helper()
	sum, ok := data.(metricdata.Sum[int64])
	require.True(t, ok)
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
			return dp.Value
		}
	}
	return 0
}

func TestRecorder(t *testing.T) {
	rec, reader := setup(t)
	ctx := context.Background()

	rec.RequestServed(ctx, "cached")
	rec.RequestServed(ctx, "cached")
	rec.RequestServed(ctx, "computed")
	rec.PersistenceFailed(ctx, "replace_predictions")
	rec.EnrichmentFinished(ctx, "dropped")
	rec.InferenceObserved(ctx, 1500*time.Millisecond, nil)
	rec.InferenceObserved(ctx, 60*time.Second, errors.Join(model.ErrInferenceTimeout))

	depth := 3
	require.NoError(t, rec.RegisterQueueDepth(func() int { return depth }))

	data := collect(t, reader)

	assert.Equal(t, int64(2), sumFor(t, data[metrics.RequestsName], "outcome", "cached"))
	assert.Equal(t, int64(1), sumFor(t, data[metrics.RequestsName], "outcome", "computed"))
	assert.Equal(t, int64(1), sumFor(t, data[metrics.PersistenceFailuresName], "operation", "replace_predictions"))
	assert.Equal(t, int64(1), sumFor(t, data[metrics.EnrichmentsName], "outcome", "dropped"))

	hist, ok := data[metrics.InferenceDurationName].(metricdata.Histogram[float64])
	require.True(t, ok)
	results := map[string]uint64{}
	for _, dp := range hist.DataPoints {
		v, _ := dp.Attributes.Value("result")
		results[v.AsString()] = dp.Count
	}
	assert.Equal(t, map[string]uint64{"ok": 1, "timeout": 1}, results)

	gauge, ok := data[metrics.EnrichmentQueueName].(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, int64(3), gauge.DataPoints[0].Value)
}
