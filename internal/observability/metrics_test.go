package observability

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"snapscreen/internal/analyzer"
	"snapscreen/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T, toggles config.CustomMetricsConfig) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewMetrics(mp.Meter("test"), toggles)
	require.NoError(t, err)
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func counterTotal(t *testing.T, data map[string]metricdata.Aggregation, name string) int64 {
	t.Helper()
	agg, ok := data[name]
	if !ok {
		return 0
	}
	sum, ok := agg.(metricdata.Sum[int64])
	require.True(t, ok, "%s is not an int64 sum", name)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestTrackAnalysis(t *testing.T) {
	m, reader := newTestMetrics(t, defaultToggles())

	err := m.TrackAnalysis(context.Background(), "gemini", func(context.Context) *AnalysisResult {
		return &AnalysisResult{Score: 82, TokenUsage: &analyzer.TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}}
	})
	require.NoError(t, err)

	failure := fmt.Errorf("model unavailable")
	err = m.TrackAnalysis(context.Background(), "gemini", func(context.Context) *AnalysisResult {
		return &AnalysisResult{Error: failure}
	})
	assert.ErrorIs(t, err, failure)

	data := collect(t, reader)
	assert.Equal(t, int64(2), counterTotal(t, data, "snapscreen_analyzer_requests_total"))
	assert.Equal(t, int64(1), counterTotal(t, data, "snapscreen_analyzer_errors_total"))

	tokens, ok := data["snapscreen_analyzer_token_usage"].(metricdata.Histogram[int64])
	require.True(t, ok)
	assert.Len(t, tokens.DataPoints, 3)
	for _, dp := range tokens.DataPoints {
		kind, _ := dp.Attributes.Value(attribute.Key("token_type"))
		switch kind.AsString() {
		case "input":
			assert.Equal(t, int64(10), dp.Sum)
		case "total":
			assert.Equal(t, int64(15), dp.Sum)
		}
	}
}

func TestTrackAnalysisWithoutMetrics(t *testing.T) {
	var m *Metrics
	calls := 0
	err := m.TrackAnalysis(context.Background(), "rules", func(context.Context) *AnalysisResult {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	(&Metrics{}).RecordBusinessMetric(context.Background(), MetricScanCreated, true)
}

func TestRecordBusinessMetric(t *testing.T) {
	m, reader := newTestMetrics(t, defaultToggles())
	ctx := context.Background()

	m.RecordBusinessMetric(ctx, MetricScanCreated, true)
	m.RecordBusinessMetric(ctx, MetricScanCreated, true)
	m.RecordBusinessMetric(ctx, MetricScanNotFound, false, attribute.String("scan_id", "missing"))
	m.RecordBusinessMetric(ctx, MetricRateLimitHit, false)
	m.RecordBusinessMetric(ctx, "unknown", true)

	data := collect(t, reader)
	assert.Equal(t, int64(2), counterTotal(t, data, "snapscreen_scans_created_total"))
	assert.Equal(t, int64(1), counterTotal(t, data, "snapscreen_scan_lookups_not_found_total"))
	assert.Equal(t, int64(1), counterTotal(t, data, "snapscreen_rate_limit_hits_total"))
}

func TestBusinessMetricsToggle(t *testing.T) {
	toggles := defaultToggles()
	toggles.BusinessMetrics.Enabled = false
	toggles.Infrastructure.TrackRateLimits = false
	m, reader := newTestMetrics(t, toggles)

	m.RecordBusinessMetric(context.Background(), MetricScanCreated, true)
	m.RecordBusinessMetric(context.Background(), MetricRateLimitHit, false)

	data := collect(t, reader)
	assert.Zero(t, counterTotal(t, data, "snapscreen_scans_created_total"))
	assert.Zero(t, counterTotal(t, data, "snapscreen_rate_limit_hits_total"))
}

func TestDisabledManager(t *testing.T) {
	om, err := NewObservabilityManager(ObservabilityConfig{ServiceName: "snapscreen"}, nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, om.GetMetrics())
	assert.NoError(t, om.Shutdown(context.Background()))

	next := http.NotFoundHandler()
	wrapped := om.HTTPMiddleware()(next)
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
