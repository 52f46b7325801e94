//go:build integration

package persistence

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	ledgerapp "github.com/condoportal/backend/internal/application/ledger"
	"github.com/condoportal/backend/internal/domain/ledger"
	"github.com/condoportal/backend/internal/infrastructure/migration"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func migrationsDir(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "migrations")
}

// newPostgres starts a migrated PostgreSQL container and returns the schema
// capabilities the server would resolve against it.
func newPostgres(t *testing.T) (*gorm.DB, migration.Capabilities) {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("condo_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("condo123"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "failed to start PostgreSQL container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	m, err := migration.NewFromURL(dsn, migrationsDir(t), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up())
	caps, err := migration.ResolveCapabilities(m, migration.FineDatesAuto)
	require.NoError(t, err)
	require.NoError(t, m.Close())

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return db, caps
}

func seedResident(t *testing.T, db *gorm.DB, userID int64) {
	t.Helper()
	require.NoError(t, db.Exec(
		`INSERT INTO condominios (id, nombre, cuota_mantenimiento, dia_vencimiento) VALUES (1, 'Torres del Valle', 950, 10)`).Error)
	require.NoError(t, db.Exec(
		`INSERT INTO propiedades (id, condominio_id, numero) VALUES (7, 1, '101')`).Error)
	require.NoError(t, db.Exec(
		`INSERT INTO usuario_propiedad (usuario_id, propiedad_id, fecha_inicio) VALUES (?, 7, '2020-01-01')`, userID).Error)
}

func TestIntegration_CheckoutAndStatement(t *testing.T) {
	db, caps := newPostgres(t)
	assert.True(t, caps.FineDates.PaidAt)
	assert.True(t, caps.FineDates.IssuedAt)

	const userID = int64(5)
	seedResident(t, db, userID)

	ctx := context.Background()
	svc := ledgerapp.NewIntakeService(
		NewGormUnitOfWork(db, caps.FineDates),
		NewRepositories(db, caps.FineDates),
		nil,
		ledgerapp.IntakeConfig{DefaultMaintenanceFee: decimal.NewFromInt(950), Location: time.UTC},
	)

	req := ledgerapp.CheckoutRequest{
		UserID: userID,
		Method: "tarjeta",
		Amount: decimal.NewFromInt(2850),
		Categories: ledgerapp.CheckoutCategories{
			Maintenance:   true,
			AdvanceMonths: 2,
		},
	}
	result, err := svc.Checkout(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "completado", result.Payment.Status)
	require.Len(t, result.Periods, 3)

	var paidRows int64
	require.NoError(t, db.Table("pagos_mantenimiento").
		Where("propiedad_id = ? AND estado = ? AND pago_id = ?", 7, "pagado", result.Payment.ID).
		Count(&paidRows).Error)
	assert.Equal(t, int64(3), paidRows)

	t.Run("same periods cannot be settled twice", func(t *testing.T) {
		_, err := svc.Checkout(ctx, req)
		assert.ErrorIs(t, err, ledger.ErrPeriodAlreadySettled)

		var payments int64
		require.NoError(t, db.Table("pagos").Count(&payments).Error)
		assert.Equal(t, int64(1), payments)
	})

	t.Run("statement includes the payment", func(t *testing.T) {
		statements := ledgerapp.NewStatementService(NewGormStatementReader(db, "UTC", caps.FineDates), nil, true)
		condo := int64(1)

		st, err := statements.Build(ctx, time.Now().UTC().Year(), &condo)
		require.NoError(t, err)
		assert.Empty(t, st.Degraded)
		assert.True(t, st.GrandTotal().IsPositive())
	})
}
