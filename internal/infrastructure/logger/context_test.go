package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func spanContext(t *testing.T) context.Context {
	t.Helper()
	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	return trace.ContextWithSpanContext(context.Background(), sc)
}

func TestFromContext(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	l := zap.NewExample()
	ctx := WithContext(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))

	wrong := context.WithValue(context.Background(), LoggerKey, "not a logger")
	assert.NotNil(t, FromContext(wrong))
}

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetRequestID(ctx))
	assert.Zero(t, GetUserID(ctx))
	assert.Empty(t, GetIdempotencyKey(ctx))
	assert.Empty(t, GetTraceID(ctx))

	ctx, _ = WithRequestID(ctx, zap.NewNop(), "req-1")
	ctx = WithUserID(ctx, 42)
	ctx = WithIdempotencyKey(ctx, "idem-abc")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, int64(42), GetUserID(ctx))
	assert.Equal(t, "idem-abc", GetIdempotencyKey(ctx))
}

func TestGetTraceID_WithSpan(t *testing.T) {
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", GetTraceID(spanContext(t)))
}

func TestContextLogger_EnrichesEntries(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	base := zap.New(core)

	ctx := spanContext(t)
	ctx = WithUserID(ctx, 7)
	ctx = WithIdempotencyKey(ctx, "k-1")
	ctx = context.WithValue(ctx, RequestIDKey, "req-9")

	WithLogger(ctx, base).Info("checkout", zap.Int64("pago_id", 5))

	logs := recorded.All()
	require.Len(t, logs, 1)
	fields := logs[0].ContextMap()
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", fields["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", fields["span_id"])
	assert.Equal(t, "req-9", fields["request_id"])
	assert.Equal(t, int64(7), fields["user_id"])
	assert.Equal(t, "k-1", fields["idempotency_key"])
	assert.Equal(t, int64(5), fields["pago_id"])
}

func TestContextLogger_DoesNotDuplicateRequestID(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	ctx, _ := WithRequestID(context.Background(), zap.New(core), "req-2")

	L(ctx).Warn("agreement quote")

	logs := recorded.All()
	require.Len(t, logs, 1)
	count := 0
	for _, f := range logs[0].Context {
		if f.Key == "request_id" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestContextLogger_WithAndLevels(t *testing.T) {
	core, recorded := observer.New(zapcore.DebugLevel)
	cl := WithLogger(context.Background(), zap.New(core)).With(zap.String("component", "statement"))

	cl.Debug("d")
	cl.Info("i")
	cl.Warn("w")
	cl.Error("e")
	cl.Zap().Info("z")

	logs := recorded.All()
	require.Len(t, logs, 5)
	for _, entry := range logs {
		assert.Equal(t, "statement", entry.ContextMap()["component"])
	}
}

func TestContextLogger_NilLogger(t *testing.T) {
	cl := &ContextLogger{ctx: context.Background()}
	assert.NotPanics(t, func() {
		cl.Info("nothing")
		cl.With(zap.String("a", "b")).Info("still nothing")
	})
}
