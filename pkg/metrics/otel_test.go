package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func promCounter(t *testing.T, name string) float64 {
	t.Helper()
	families, err := Registry.Gather()
	require.NoError(t, err)
	ret := 0.0
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			ret += m.GetCounter().GetValue()
		}
	}
	return ret
}

func TestRecordersFeedPrometheusAndOtel(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	ctx := context.Background()

	recordedBefore := promCounter(t, "ltl_laptime_recorded_total")
	LapTimeRecorded(ctx)
	LapTimeModerated(ctx, "verified")
	CarModelResolved(ctx, "created")
	CarModelResolved(ctx, "raced")
	CatalogRequest(ctx, "makes", "ok", 20*time.Millisecond)

	assert.Equal(t, recordedBefore+1, promCounter(t, "ltl_laptime_recorded_total"))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	sums := map[string]int64{}
	histograms := map[string]uint64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					sums[m.Name] += dp.Value
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					histograms[m.Name] += dp.Count
				}
			}
		}
	}
	assert.Equal(t, int64(1), sums["ltl.laptime.recorded"])
	assert.Equal(t, int64(1), sums["ltl.laptime.moderated"])
	assert.Equal(t, int64(2), sums["ltl.carmodel.resolutions"])
	assert.Equal(t, int64(1), sums["ltl.catalog.upstream.requests"])
	assert.Equal(t, uint64(1), histograms["ltl.catalog.upstream.duration"])
}
