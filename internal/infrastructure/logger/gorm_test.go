package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/condoportal/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

var errPeriodTaken = errors.New(`duplicate key value violates unique constraint "uq_mantenimiento_periodo"`)

func newObservedGormLogger(level gormlogger.LogLevel, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs) {
	core, recorded := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), level, opts...), recorded
}

func statement(sql string, rows int64) func() (string, int64) {
	return func() (string, int64) { return sql, rows }
}

// checkoutContext is the context a checkout request carries into its
// transaction: request id, resident, idempotency key and an active span
func checkoutContext(t *testing.T) (context.Context, trace.SpanContext) {
	t.Helper()
	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled})

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-checkout-1")
	ctx = WithUserID(ctx, 5)
	ctx = WithIdempotencyKey(ctx, "idem-2850")
	return trace.ContextWithSpanContext(ctx, sc), sc
}

func fieldsOf(entry observer.LoggedEntry) map[string]any {
	return entry.ContextMap()
}

func TestGormLogger_LedgerWriteCarriesRequestContext(t *testing.T) {
	gl, recorded := newObservedGormLogger(gormlogger.Info)
	ctx, sc := checkoutContext(t)

	gl.Trace(ctx, time.Now(), statement(`INSERT INTO "pagos_mantenimiento" ("propiedad_id","periodo_anio","periodo_mes") VALUES (7,2025,3) RETURNING "id"`, 1), nil)

	entries := recorded.FilterMessage("ledger write").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "sql", entries[0].LoggerName)

	fields := fieldsOf(entries[0])
	assert.Equal(t, "INSERT", fields["op"])
	assert.Equal(t, "pagos_mantenimiento", fields["table"])
	assert.Equal(t, "req-checkout-1", fields["request_id"])
	assert.Equal(t, sc.TraceID().String(), fields["trace_id"])
	assert.Equal(t, int64(5), fields["user_id"])
	assert.Equal(t, "idem-2850", fields["idempotency_key"])
}

func TestGormLogger_RequestIDWithRequestScopedLogger(t *testing.T) {
	gl, recorded := newObservedGormLogger(gormlogger.Info)
	// GinMiddleware stores a request logger on the context; the sql logger is
	// a different logger and still needs the request_id field
	ctx, _ := WithRequestID(context.Background(), zap.NewNop(), "req-review-9")

	gl.Trace(ctx, time.Now(), statement(`UPDATE "pagos" SET "estado"='completado' WHERE id = 40`, 1), nil)

	entries := recorded.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "req-review-9", fieldsOf(entries[0])["request_id"])
	assert.Equal(t, "pagos", fieldsOf(entries[0])["table"])
}

func TestGormLogger_ReadsStayAtDebug(t *testing.T) {
	gl, recorded := newObservedGormLogger(gormlogger.Info)

	gl.Trace(context.Background(), time.Now(), statement(`SELECT * FROM "multas" WHERE usuario_id = 5`, 3), nil)
	gl.Trace(context.Background(), time.Now(), statement(`INSERT INTO "condominios" ("nombre") VALUES ('Torres del Valle')`, 1), nil)

	entries := recorded.All()
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, zapcore.DebugLevel, e.Level, "only ledger writes are promoted")
		assert.Equal(t, "SQL query", e.Message)
	}
}

func TestGormLogger_ConflictIsAWarning(t *testing.T) {
	isTaken := func(err error) bool { return errors.Is(err, errPeriodTaken) }
	gl, recorded := newObservedGormLogger(gormlogger.Warn, WithConflictClassifier(isTaken))
	ctx, _ := checkoutContext(t)
	insert := statement(`INSERT INTO "pagos_mantenimiento" ("propiedad_id") VALUES (7)`, 0)

	gl.Trace(ctx, time.Now(), insert, errPeriodTaken)

	entries := recorded.All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "SQL conflict", entries[0].Message)
	assert.Equal(t, "idem-2850", fieldsOf(entries[0])["idempotency_key"])

	t.Run("other failures are errors", func(t *testing.T) {
		gl.Trace(ctx, time.Now(), insert, errors.New("connection reset"))

		errs := recorded.FilterMessage("SQL error").All()
		require.Len(t, errs, 1)
		assert.Equal(t, zapcore.ErrorLevel, errs[0].Level)
	})
}

func TestGormLogger_RecordNotFound(t *testing.T) {
	lookup := statement(`SELECT * FROM "convenios" WHERE id = 9 LIMIT 1`, 0)

	gl, recorded := newObservedGormLogger(gormlogger.Error)
	gl.Trace(context.Background(), time.Now(), lookup, gormlogger.ErrRecordNotFound)
	assert.Empty(t, recorded.All(), "an unknown agreement id is answered with 404, not logged")

	gl, recorded = newObservedGormLogger(gormlogger.Error, WithIgnoreRecordNotFoundError(false))
	gl.Trace(context.Background(), time.Now(), lookup, gormlogger.ErrRecordNotFound)
	assert.Len(t, recorded.FilterMessage("SQL error").All(), 1)
}

func TestGormLogger_SlowThresholdFromConfig(t *testing.T) {
	t.Setenv("CONDO_TELEMETRY_DB_SLOW_QUERY_THRESHOLD", "50ms")
	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, 50*time.Millisecond, cfg.Telemetry.DBSlowQueryThresh)

	gl, recorded := newObservedGormLogger(gormlogger.Warn, WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	aggregate := statement(`SELECT EXTRACT(MONTH FROM (pm.fecha_pago AT TIME ZONE 'America/Mexico_City'))::int AS month, SUM(pm.monto) FROM pagos_mantenimiento pm GROUP BY month`, 12)

	gl.Trace(context.Background(), time.Now().Add(-80*time.Millisecond), aggregate, nil)
	gl.Trace(context.Background(), time.Now().Add(-20*time.Millisecond), aggregate, nil)

	entries := recorded.All()
	require.Len(t, entries, 1, "only the statement above the configured threshold is reported")
	assert.Equal(t, "slow SQL", entries[0].Message)
	fields := fieldsOf(entries[0])
	assert.Equal(t, 50*time.Millisecond, fields["threshold"])
	assert.Equal(t, "pagos_mantenimiento", fields["table"])
}

func TestGormLogger_ZeroThresholdKeepsDefault(t *testing.T) {
	gl, _ := newObservedGormLogger(gormlogger.Warn, WithSlowThreshold(0))
	assert.Equal(t, 200*time.Millisecond, gl.slowThreshold)
}

func TestGormLogger_SilentAndLogMode(t *testing.T) {
	gl, recorded := newObservedGormLogger(gormlogger.Silent)
	gl.Trace(context.Background(), time.Now(), statement(`INSERT INTO "pagos" ("monto") VALUES (950)`, 1), errors.New("boom"))
	gl.Info(context.Background(), "migrating %s", "pagos")
	assert.Empty(t, recorded.All())

	loud, ok := gl.LogMode(gormlogger.Info).(*GormLogger)
	require.True(t, ok)
	assert.Equal(t, gormlogger.Silent, gl.level, "LogMode returns a copy")
	loud.Info(context.Background(), "migrating %s", "pagos")

	entries := recorded.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "migrating pagos", entries[0].Message)
}

func TestDescribeStatement(t *testing.T) {
	tests := []struct {
		sql   string
		op    string
		table string
	}{
		{`INSERT INTO "pagos" ("usuario_id") VALUES ($1) RETURNING "id"`, "INSERT", "pagos"},
		{"INSERT INTO `pagos_convenio` (`convenio_id`) VALUES (?)", "INSERT", "pagos_convenio"},
		{`UPDATE "multas" SET "estado"=$1 WHERE id IN ($2,$3)`, "UPDATE", "multas"},
		{`select * from convenios where id = $1`, "SELECT", "convenios"},
		{`SELECT EXTRACT(MONTH FROM m.fecha_pago)::int AS month FROM multas m`, "SELECT", "multas"},
		{`SELECT EXTRACT(YEAR FROM COALESCE(m.fecha_pago, m.fecha_emision)) FROM multas m`, "SELECT", "multas"},
		{"DELETE FROM \"pagos_mantenimiento\"\nWHERE pago_id = $1", "DELETE", "pagos_mantenimiento"},
		{`SELECT 1`, "SELECT", ""},
	}
	for _, tt := range tests {
		t.Run(tt.sql, func(t *testing.T) {
			op, table := describeStatement(tt.sql)
			assert.Equal(t, tt.op, op)
			assert.Equal(t, tt.table, table)
		})
	}
}

func TestMapGormLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected gormlogger.LogLevel
	}{
		{"silent", gormlogger.Silent},
		{"error", gormlogger.Error},
		{"warn", gormlogger.Warn},
		{"info", gormlogger.Info},
		{"debug", gormlogger.Info},
		{"", gormlogger.Warn},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expected, MapGormLogLevel(tt.level))
		})
	}
}

var _ gormlogger.Interface = (*GormLogger)(nil)
