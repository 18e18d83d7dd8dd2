package instrumentation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *metric.ManualReader) {
	t.Helper()
	reader := metric.NewManualReader()
	provider := metric.NewMeterProvider(metric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := NewMetrics(provider.Meter("test"), false)
	require.NoError(t, err)
	return m, reader
}

func collectMetricNames(t *testing.T, reader *metric.ManualReader) map[string]bool {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	names := make(map[string]bool)
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			names[m.Name] = true
		}
	}
	return names
}

func TestMetricsRecording(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordHTTPRequest(ctx, "POST", "/mcp", 200, 5*time.Millisecond)
	m.RecordRequest(ctx, "tools/call", 0)
	m.RecordRequest(ctx, "tools/call", -32602)
	m.RecordToolCall(ctx, "calendar.list_events", "free", "example.com", "ok", 3*time.Millisecond)
	m.RecordTierDenial(ctx, "calendar.create_event", "free")

	names := collectMetricNames(t, reader)
	for _, want := range []string{
		"http_requests_total",
		"http_request_duration_seconds",
		"rpc_requests_total",
		"tool_invocations_total",
		"tool_duration_seconds",
		"tier_denials_total",
	} {
		assert.True(t, names[want], "missing metric %s", want)
	}
}

func TestZeroValueMetricsAreNoop(t *testing.T) {
	var m Metrics
	ctx := context.Background()

	// Must not panic on uninitialized instruments.
	m.RecordHTTPRequest(ctx, "GET", "/health", 200, time.Millisecond)
	m.RecordRequest(ctx, "tools/list", 0)
	m.RecordToolCall(ctx, "calendar.list_events", "free", "example.com", "ok", time.Millisecond)
	m.RecordTierDenial(ctx, "calendar.create_event", "free")
}

func toolInvocationAttrs(t *testing.T, reader *metric.ManualReader) attribute.Set {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, scope := range rm.ScopeMetrics {
		for _, met := range scope.Metrics {
			if met.Name != "tool_invocations_total" {
				continue
			}
			sum, ok := met.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			require.Len(t, sum.DataPoints, 1)
			return sum.DataPoints[0].Attributes
		}
	}
	t.Fatal("tool_invocations_total not collected")
	return attribute.Set{}
}

func TestDetailedLabelsAddUserDomain(t *testing.T) {
	reader := metric.NewManualReader()
	provider := metric.NewMeterProvider(metric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := NewMetrics(provider.Meter("test"), true)
	require.NoError(t, err)
	m.RecordToolCall(context.Background(), "calendar.list_events", "free", "example.com", "ok", time.Millisecond)

	attrs := toolInvocationAttrs(t, reader)
	v, ok := attrs.Value(attribute.Key("user_domain"))
	require.True(t, ok, "user_domain label missing: %v", attrs)
	assert.Equal(t, "example.com", v.AsString())
}

func TestDefaultLabelsOmitUserDomain(t *testing.T) {
	m, reader := newTestMetrics(t)
	m.RecordToolCall(context.Background(), "calendar.list_events", "free", "example.com", "ok", time.Millisecond)

	attrs := toolInvocationAttrs(t, reader)
	_, ok := attrs.Value(attribute.Key("user_domain"))
	assert.False(t, ok, "user_domain must stay out without detailed labels")
}
