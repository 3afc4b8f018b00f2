package telemetry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/companiondir/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zaptest"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumOf(m metricdata.Metrics) int64 {
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		return 0
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestDirectoryMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := telemetry.NewMeterProviderWithReader(reader, zaptest.NewLogger(t))
	metrics, err := telemetry.NewDirectoryMetrics(mp)
	require.NoError(t, err)

	ctx := context.Background()
	metrics.RecordCreated(ctx, telemetry.OutcomeSuccess)
	metrics.RecordCreated(ctx, telemetry.OutcomePartial)
	metrics.RecordUpdated(ctx, telemetry.OutcomeRejected)
	metrics.RecordSearch(ctx, telemetry.OutcomeSuccess)
	metrics.RecordCatalogRequest(ctx, "list_records", 120*time.Millisecond, nil)
	metrics.RecordCatalogRequest(ctx, "set_attributes", time.Second, errors.New("boom"))
	metrics.RecordAttributeErrors(ctx, 3)
	metrics.RecordAttributeErrors(ctx, 0)

	got := collect(t, reader)
	assert.Equal(t, int64(2), sumOf(got["companion_created_total"]))
	assert.Equal(t, int64(1), sumOf(got["companion_updated_total"]))
	assert.Equal(t, int64(1), sumOf(got["companion_search_total"]))
	assert.Equal(t, int64(2), sumOf(got["catalog_request_total"]))
	assert.Equal(t, int64(3), sumOf(got["catalog_attribute_errors_total"]))
	assert.Contains(t, got, "catalog_request_duration_seconds")
}

func TestDirectoryMetrics_NilIsNoop(t *testing.T) {
	var metrics *telemetry.DirectoryMetrics
	assert.NotPanics(t, func() {
		metrics.RecordCreated(context.Background(), telemetry.OutcomeSuccess)
		metrics.RecordCatalogRequest(context.Background(), "get_record", time.Millisecond, nil)
	})
}

func TestProviders_Disabled(t *testing.T) {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)
	cfg := telemetry.Config{Enabled: false, ServiceName: "test-service"}

	tp, err := telemetry.NewTracerProvider(ctx, cfg, logger)
	require.NoError(t, err)
	assert.False(t, tp.IsEnabled())
	assert.NoError(t, tp.Shutdown(ctx))

	mp, err := telemetry.NewMeterProvider(ctx, cfg, logger)
	require.NoError(t, err)
	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("test"))

	lp, err := telemetry.NewLoggerProvider(ctx, cfg, logger)
	require.NoError(t, err)
	assert.False(t, lp.IsEnabled())
	assert.Same(t, logger, lp.Bridge(logger, "test-service", 0))
}
