package xmetrics

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/omeyang/xseckill/pkg/context/xctx"
)

func collectTotals(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != metricOperationTotal {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				op, _ := dp.Attributes.Value(attribute.Key("operation"))
				st, _ := dp.Attributes.Value(attribute.Key("status"))
				out[op.AsString()+"/"+st.AsString()] += dp.Value
			}
		}
	}
	return out
}

func TestOTelObserver_RecordsStatus(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	obs, err := NewOTelObserver(WithMeterProvider(provider))
	require.NoError(t, err)

	ctx := context.Background()
	_, span := obs.Start(ctx, SpanOptions{Component: "seckill", Operation: "admit"})
	span.End(Result{})
	span.End(Result{Err: errors.New("ignored")}) // 幂等

	_, span = obs.Start(ctx, SpanOptions{Component: "seckill", Operation: "admit"})
	span.End(Result{Status: "sold_out"})

	_, span = obs.Start(ctx, SpanOptions{Component: "seckill"})
	span.End(Result{Err: errors.New("boom")})

	totals := collectTotals(t, reader)
	assert.Equal(t, int64(1), totals["admit/ok"])
	assert.Equal(t, int64(1), totals["admit/sold_out"])
	assert.Equal(t, int64(1), totals["unknown/error"])
}

func newTracedObserver(t *testing.T) (Observer, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})

	obs, err := NewOTelObserver(WithTracerProvider(tp), WithMeterProvider(mp))
	require.NoError(t, err)
	return obs, recorder
}

func spanAttrs(s sdktrace.ReadOnlySpan) map[string]attribute.Value {
	out := make(map[string]attribute.Value)
	for _, kv := range s.Attributes() {
		out[string(kv.Key)] = kv.Value
	}
	return out
}

func TestOTelObserver_CreatesSpans(t *testing.T) {
	obs, recorder := newTracedObserver(t)

	// Given: ctx 中带用户与请求 ID
	ctx, err := xctx.WithUserID(context.Background(), 42)
	require.NoError(t, err)
	ctx, err = xctx.WithRequestID(ctx, "req-1")
	require.NoError(t, err)

	// When: admit 内嵌一次 cache.get
	admitCtx, admit := obs.Start(ctx, SpanOptions{Component: "xseckill", Operation: "admit"})
	_, get := obs.Start(admitCtx, SpanOptions{Component: "xcache", Operation: "get"})
	get.End(Result{})
	admit.End(Result{Status: "sold_out", Err: errors.New("sold out")})
	admit.End(Result{Err: errors.New("ignored")})

	// Then
	ended := recorder.Ended()
	require.Len(t, ended, 2)
	child, parent := ended[0], ended[1]

	assert.Equal(t, "xcache.get", child.Name())
	assert.Equal(t, "xseckill.admit", parent.Name())
	assert.Equal(t, parent.SpanContext().SpanID(), child.Parent().SpanID())
	assert.Equal(t, parent.SpanContext().TraceID(), child.SpanContext().TraceID())

	attrs := spanAttrs(parent)
	assert.Equal(t, "xseckill", attrs["component"].AsString())
	assert.Equal(t, "sold_out", attrs["status"].AsString())
	assert.Equal(t, int64(42), attrs["user_id"].AsInt64())
	assert.Equal(t, "req-1", attrs["request_id"].AsString())

	// 业务拒绝不标记为 span 失败，但保留错误事件
	assert.Equal(t, codes.Ok, parent.Status().Code)
	require.Len(t, parent.Events(), 1)
	assert.Equal(t, "exception", parent.Events()[0].Name)
	assert.Equal(t, codes.Ok, child.Status().Code)
}

func TestOTelObserver_ErrorSpanStatus(t *testing.T) {
	obs, recorder := newTracedObserver(t)

	_, span := obs.Start(context.Background(), SpanOptions{Component: "xseckill", Operation: "persist"})
	span.End(Result{Err: errors.New("mongo down")})
	_, span = obs.Start(context.Background(), SpanOptions{Component: "xseckill", Operation: "persist"})
	span.End(Result{Status: StatusError})

	ended := recorder.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "mongo down", ended[0].Status().Description)
	assert.Equal(t, codes.Error, ended[1].Status().Code)
	assert.Equal(t, "operation failed", ended[1].Status().Description)
	assert.Empty(t, ended[1].Events())
}

func TestStart_NilObserver(t *testing.T) {
	//nolint:staticcheck // 验证 nil ctx 兜底
	ctx, span := Start(nil, nil, SpanOptions{})
	assert.NotNil(t, ctx)
	assert.IsType(t, NoopSpan{}, span)
	span.End(Result{})
}
