package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	appfulfillment "github.com/erp/fulfillment/internal/application/fulfillment"
	appinventory "github.com/erp/fulfillment/internal/application/inventory"
	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
)

// useRecorder installs a recording tracer provider globally for one test
func useRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return rec
}

func TestProviders_Disabled(t *testing.T) {
	ctx := context.Background()
	cfg := config.TelemetryConfig{Enabled: false, ServiceName: "fulfillment"}

	tp, err := NewTracerProvider(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, tp.IsEnabled())
	assert.NotNil(t, tp.Tracer("x"))
	assert.NoError(t, tp.ForceFlush(ctx))
	assert.NoError(t, tp.Shutdown(ctx))

	mp, err := NewMeterProvider(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("x"))
	assert.NoError(t, mp.Shutdown(ctx))

	lp, err := NewLoggerProvider(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, lp.IsEnabled())
	assert.NoError(t, lp.ForceFlush(ctx))
	assert.NoError(t, lp.Shutdown(ctx))

	prof, err := NewProfiler(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, prof.IsEnabled())
	assert.NoError(t, prof.Stop(ctx))
	assert.NoError(t, prof.Stop(ctx))

	tp.EnableSpanProfiles()
	assert.False(t, tp.SpanProfilesEnabled())
}

func TestSampler(t *testing.T) {
	assert.Contains(t, sampler(1.0).Description(), "AlwaysOnSampler")
	assert.Equal(t, "AlwaysOffSampler", sampler(0).Description())
	assert.Contains(t, sampler(0.25).Description(), "TraceIDRatioBased")
}

func TestStartServiceSpan(t *testing.T) {
	rec := useRecorder(t)

	ctx, span := StartServiceSpan(context.Background(), "batch", "run", WithAttribute(SpanAttrRunID, "r-1"))
	assert.NotEmpty(t, TraceID(ctx))
	SetAttributes(span, "orders", 3, 42, "skipped", "ok", true)
	RecordError(span, nil)
	RecordError(span, errors.New("boom"))
	span.End()

	ended := rec.Ended()
	require.Len(t, ended, 1)
	s := ended[0]
	assert.Equal(t, "batch.run", s.Name())
	assert.Equal(t, codes.Error, s.Status().Code)
	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range s.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, "r-1", attrs[SpanAttrRunID].AsString())
	assert.Equal(t, int64(3), attrs["orders"].AsInt64())
	assert.True(t, attrs["ok"].AsBool())
	assert.Empty(t, TraceID(context.Background()))
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumWhere(t *testing.T, m metricdata.Metrics, key attribute.Key, value string) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "%s is not an int64 sum", m.Name)
	var total int64
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(key); ok && v.AsString() == value {
			total += dp.Value
		}
	}
	return total
}

func newTestMetrics(t *testing.T) (*FulfillmentMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	m, err := NewFulfillmentMetrics(provider.Meter(MeterName))
	require.NoError(t, err)
	return m, reader
}

func TestFulfillmentMetrics(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordGroup(ctx, appfulfillment.GroupSaved)
	m.RecordGroup(ctx, appfulfillment.GroupSaved)
	m.RecordGroup(ctx, appfulfillment.GroupFailed)
	m.RecordDiagnostic(ctx, "WARN", "bad-date")
	m.RecordBatch(ctx, 7, 2*time.Second)

	got := collect(t, reader)
	assert.Equal(t, int64(2), sumWhere(t, got["fulfillment.groups"], AttrGroupStatus, "SAVED"))
	assert.Equal(t, int64(1), sumWhere(t, got["fulfillment.groups"], AttrGroupStatus, "FAILED"))
	assert.Equal(t, int64(1), sumWhere(t, got["fulfillment.diagnostics"], AttrDiagCode, "bad-date"))

	orders, ok := got["fulfillment.batch.orders"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, orders.DataPoints, 1)
	assert.Equal(t, int64(7), orders.DataPoints[0].Value)

	hist, ok := got["fulfillment.batch.duration"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
	assert.InDelta(t, 2.0, hist.DataPoints[0].Sum, 1e-9)
}

type stubReverser struct {
	outcome *appinventory.ReversalOutcome
	err     error
	calls   int
}

func (s *stubReverser) Reverse(context.Context, fulfillment.GroupResult) (*appinventory.ReversalOutcome, error) {
	s.calls++
	return s.outcome, s.err
}

func TestTracedReverser(t *testing.T) {
	rec := useRecorder(t)
	m, reader := newTestMetrics(t)
	ctx := context.Background()
	result := fulfillment.GroupResult{TenantID: uuid.New(), FulfillmentID: uuid.New(), LocationID: "L1"}

	ok := &stubReverser{outcome: &appinventory.ReversalOutcome{Status: appinventory.ReversalApplied}}
	out, err := NewTracedReverser(ok, m).Reverse(ctx, result)
	require.NoError(t, err)
	assert.Equal(t, appinventory.ReversalApplied, out.Status)

	failing := &stubReverser{err: errors.New("deadlock")}
	_, err = NewTracedReverser(failing, m).Reverse(ctx, result)
	assert.EqualError(t, err, "deadlock")

	_, err = NewTracedReverser(ok, nil).Reverse(ctx, result)
	require.NoError(t, err)
	assert.Equal(t, 2, ok.calls)

	ended := rec.Ended()
	require.Len(t, ended, 3)
	assert.Equal(t, "inventory.reverse", ended[0].Name())
	assert.Equal(t, codes.Error, ended[1].Status().Code)

	got := collect(t, reader)
	assert.Equal(t, int64(1), sumWhere(t, got["inventory.reversals"], AttrOutcome, "APPLIED"))
	assert.Equal(t, int64(1), sumWhere(t, got["inventory.reversals"], AttrOutcome, "error"))
}
