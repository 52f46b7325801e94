package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type tracedRow struct {
	ID    int64 `gorm:"primaryKey"`
	Monto string
}

func (tracedRow) TableName() string { return "pagos" }

func setupTracedDB(t *testing.T, cfg DBTracingConfig, l *zap.Logger) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&tracedRow{}))
	require.NoError(t, NewDBTracing(cfg, l).Register(db))
	return db
}

func TestDBTracing_Disabled(t *testing.T) {
	sr := setupTestTracer(t)
	db := setupTracedDB(t, DBTracingConfig{}, zap.NewNop())

	require.NoError(t, db.WithContext(context.Background()).Create(&tracedRow{Monto: "950.00"}).Error)
	assert.Empty(t, sr.Ended())
}

func TestDBTracing_Defaults(t *testing.T) {
	tr := NewDBTracing(DBTracingConfig{Enabled: true}, zap.NewNop())
	assert.Equal(t, 200*time.Millisecond, tr.config.SlowQueryThresh)
	assert.Equal(t, "postgresql", tr.config.DBName)
}

func TestDBTracing_RecordsQuerySpans(t *testing.T) {
	sr := setupTestTracer(t)
	db := setupTracedDB(t, DBTracingConfig{Enabled: true, SlowQueryThresh: time.Hour}, zap.NewNop())

	ctx, span := StartSpan(context.Background(), "test.parent")
	require.NoError(t, db.WithContext(ctx).Create(&tracedRow{Monto: "950.00"}).Error)
	var rows []tracedRow
	require.NoError(t, db.WithContext(ctx).Find(&rows).Error)
	span.End()

	var dbSpans int
	for _, s := range sr.Ended() {
		if s.Parent().SpanID() == span.SpanContext().SpanID() {
			dbSpans++
		}
	}
	assert.GreaterOrEqual(t, dbSpans, 2)
}

func TestDBTracing_MarksErrorsAndSlowQueries(t *testing.T) {
	sr := setupTestTracer(t)
	core, logs := observer.New(zap.WarnLevel)
	db := setupTracedDB(t, DBTracingConfig{Enabled: true, SlowQueryThresh: time.Nanosecond}, zap.New(core))

	err := db.WithContext(context.Background()).Exec("SELECT * FROM multas_inexistentes").Error
	require.Error(t, err)

	var failed bool
	for _, s := range sr.Ended() {
		if s.Status().Code == codes.Error {
			failed = true
		}
	}
	assert.True(t, failed)
	assert.GreaterOrEqual(t, logs.FilterMessage("slow query").Len(), 1)
}
