package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/condoportal/backend/internal/domain/ledger"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockDB opens a GORM postgres connection backed by sqlmock
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

var paymentColumns = []string{
	"id", "usuario_id", "referencia_id", "tipo", "monto", "metodo_pago", "estado",
	"notas", "fecha_pago", "fecha_revision", "created_at", "updated_at",
}

func TestGormPaymentRepository_FindByID(t *testing.T) {
	t.Run("finds existing payment", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormPaymentRepository(db)

		now := time.Now()
		rows := sqlmock.NewRows(paymentColumns).
			AddRow(int64(7), int64(3), "101-M-ABC", "mantenimiento", "2850.00", "tarjeta", "completado", "", now, nil, now, now)

		mock.ExpectQuery(`SELECT \* FROM "pagos" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(int64(7), 1).
			WillReturnRows(rows)

		payment, err := repo.FindByID(context.Background(), 7)

		require.NoError(t, err)
		assert.Equal(t, int64(7), payment.ID)
		assert.Equal(t, ledger.PaymentStatusCompleted, payment.Status)
		assert.True(t, decimal.NewFromInt(2850).Equal(payment.Amount))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps missing row to domain error", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormPaymentRepository(db)

		mock.ExpectQuery(`SELECT \* FROM "pagos" WHERE id = \$1`).
			WithArgs(int64(99), 1).
			WillReturnError(gorm.ErrRecordNotFound)

		payment, err := repo.FindByID(context.Background(), 99)

		assert.Nil(t, payment)
		assert.ErrorIs(t, err, ledger.ErrPaymentNotFound)
	})
}

func TestGormPaymentRepository_FindByIDForUpdate(t *testing.T) {
	db, mock, mockDB := newMockDB(t)
	defer mockDB.Close()
	repo := NewGormPaymentRepository(db)

	now := time.Now()
	mock.ExpectQuery(`SELECT \* FROM "pagos" WHERE id = \$1 ORDER BY .* LIMIT \$2 FOR UPDATE`).
		WithArgs(int64(5), 1).
		WillReturnRows(sqlmock.NewRows(paymentColumns).
			AddRow(int64(5), int64(3), "", "mantenimiento", "950", "transferencia", "procesando", "", now, nil, now, now))

	payment, err := repo.FindByIDForUpdate(context.Background(), 5)

	require.NoError(t, err)
	assert.Equal(t, ledger.PaymentStatusProcessing, payment.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormPaymentRepository_Save(t *testing.T) {
	t.Run("inserts new payment and assigns ID", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormPaymentRepository(db)

		payment, err := ledger.NewPayment(3, ledger.PaymentTypeMaintenance, decimal.NewFromInt(950), ledger.PaymentMethodCard, "101-M-X", "")
		require.NoError(t, err)

		mock.ExpectQuery(`INSERT INTO "pagos"`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

		require.NoError(t, repo.Save(context.Background(), payment))
		assert.Equal(t, int64(42), payment.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("updates reviewed payment", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormPaymentRepository(db)

		payment := &ledger.Payment{Status: ledger.PaymentStatusRejected}
		payment.ID = 8

		mock.ExpectExec(`UPDATE "pagos" SET "estado"=\$1,"fecha_revision"=\$2,"notas"=\$3,"referencia_id"=\$4,"updated_at"=\$5 WHERE id = \$6`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Save(context.Background(), payment))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports missing payment on update", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormPaymentRepository(db)

		payment := &ledger.Payment{Status: ledger.PaymentStatusCompleted}
		payment.ID = 404

		mock.ExpectExec(`UPDATE "pagos"`).WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.Save(context.Background(), payment), ledger.ErrPaymentNotFound)
	})
}

func TestGormMaintenanceRepository_FindByPeriods(t *testing.T) {
	db, mock, mockDB := newMockDB(t)
	defer mockDB.Close()
	repo := NewGormMaintenanceRepository(db)

	paid := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "propiedad_id", "periodo_anio", "periodo_mes", "fecha_pago", "monto", "estado", "pago_id"}).
		AddRow(int64(1), int64(10), 2025, 3, paid, "950", "pagado", int64(4))

	mock.ExpectQuery(`SELECT \* FROM "pagos_mantenimiento" WHERE propiedad_id = \$1 AND \(periodo_anio, periodo_mes\) IN \(\(\$2,\$3\),\(\$4,\$5\)\) ORDER BY periodo_anio ASC, periodo_mes ASC`).
		WithArgs(int64(10), 2025, 3, 2025, 4).
		WillReturnRows(rows)

	found, err := repo.FindByPeriods(context.Background(), 10, []ledger.Period{{Year: 2025, Month: 3}, {Year: 2025, Month: 4}})

	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, ledger.Period{Year: 2025, Month: 3}, found[0].Period)
	class, ok := found[0].Classification()
	assert.True(t, ok)
	assert.Equal(t, ledger.ClassificationOnTime, class)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormMaintenanceRepository_FindByPeriodsEmpty(t *testing.T) {
	db, mock, mockDB := newMockDB(t)
	defer mockDB.Close()
	repo := NewGormMaintenanceRepository(db)

	found, err := repo.FindByPeriods(context.Background(), 10, nil)

	require.NoError(t, err)
	assert.Empty(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormMaintenanceRepository_SaveConcurrentPeriod(t *testing.T) {
	t.Run("duplicate period is already settled", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormMaintenanceRepository(db)

		row, err := ledger.NewMaintenancePayment(10, ledger.Period{Year: 2025, Month: 3}, decimal.NewFromInt(950))
		require.NoError(t, err)

		mock.ExpectQuery(`INSERT INTO "pagos_mantenimiento"`).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "uq_mantenimiento_periodo"})

		err = repo.Save(context.Background(), row)

		assert.ErrorIs(t, err, ledger.ErrPeriodAlreadySettled)
		assert.True(t, row.IsNew())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("other insert errors pass through", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormMaintenanceRepository(db)

		row, err := ledger.NewMaintenancePayment(10, ledger.Period{Year: 2025, Month: 3}, decimal.NewFromInt(950))
		require.NoError(t, err)

		mock.ExpectQuery(`INSERT INTO "pagos_mantenimiento"`).
			WillReturnError(&pgconn.PgError{Code: "23503"})

		err = repo.Save(context.Background(), row)

		require.Error(t, err)
		assert.NotErrorIs(t, err, ledger.ErrPeriodAlreadySettled)
	})
}

func TestGormMaintenanceRepository_ExistingPeriods(t *testing.T) {
	db, mock, mockDB := newMockDB(t)
	defer mockDB.Close()
	repo := NewGormMaintenanceRepository(db)

	mock.ExpectQuery(`SELECT periodo_anio, periodo_mes FROM "pagos_mantenimiento" WHERE propiedad_id = \$1`).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"periodo_anio", "periodo_mes"}).
			AddRow(2024, 12).
			AddRow(2025, 1))

	existing, err := repo.ExistingPeriods(context.Background(), 10)

	require.NoError(t, err)
	assert.Len(t, existing, 2)
	assert.True(t, existing[ledger.Period{Year: 2024, Month: 12}])
	assert.False(t, existing[ledger.Period{Year: 2025, Month: 2}])
}

func TestGormFineRepository_SelectsCapabilityColumns(t *testing.T) {
	now := time.Now()

	t.Run("legacy schema reads base columns only", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormFineRepository(db, ledger.FineDateColumns{})

		mock.ExpectQuery(`SELECT .*"pago_id","created_at","updated_at" FROM "multas" WHERE id IN \(\$1,\$2\)`).
			WithArgs(int64(1), int64(2)).
			WillReturnRows(sqlmock.NewRows(fineBaseColumns).
				AddRow(int64(1), int64(3), nil, "200", "ruido", "pendiente", now, nil, now, now))

		fines, err := repo.FindByIDs(context.Background(), []int64{1, 2})

		require.NoError(t, err)
		require.Len(t, fines, 1)
		assert.Nil(t, fines[0].PaidAt)
		assert.Equal(t, fines[0].DueDate.Unix(), fines[0].ClassificationDate(time.UTC).Unix())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("full schema reads issue and payment dates", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormFineRepository(db, ledger.FineDateColumns{PaidAt: true, IssuedAt: true})

		paid := now.Add(-time.Hour)
		cols := append(append([]string(nil), fineBaseColumns...), "fecha_emision", "fecha_pago")
		mock.ExpectQuery(`SELECT .*"updated_at","fecha_emision","fecha_pago" FROM "multas" WHERE pago_id = \$1`).
			WithArgs(int64(9)).
			WillReturnRows(sqlmock.NewRows(cols).
				AddRow(int64(1), int64(3), int64(10), "200", "ruido", "pagada", now, int64(9), now, now, now, paid))

		fines, err := repo.FindByPaymentID(context.Background(), 9)

		require.NoError(t, err)
		require.Len(t, fines, 1)
		require.NotNil(t, fines[0].PaidAt)
		assert.Equal(t, paid.Unix(), fines[0].ClassificationDate(time.UTC).Unix())
	})
}

func TestGormFineRepository_Save(t *testing.T) {
	fine := &ledger.Fine{Status: ledger.FineStatusPaid}
	fine.ID = 4
	require.NoError(t, fine.ApplyPayment(9, ledger.FineStatusPaid, time.Now()))

	t.Run("legacy schema omits fecha_pago", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormFineRepository(db, ledger.FineDateColumns{})

		mock.ExpectExec(`UPDATE "multas" SET "estado"=\$1,"pago_id"=\$2,"updated_at"=\$3 WHERE id = \$4`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Save(context.Background(), fine))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("full schema writes fecha_pago", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormFineRepository(db, ledger.FineDateColumns{PaidAt: true, IssuedAt: true})

		mock.ExpectExec(`UPDATE "multas" SET "estado"=\$1,"fecha_pago"=\$2,"pago_id"=\$3,"updated_at"=\$4 WHERE id = \$5`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Save(context.Background(), fine))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing fine", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormFineRepository(db, ledger.FineDateColumns{})

		mock.ExpectExec(`UPDATE "multas"`).WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.Save(context.Background(), fine), ledger.ErrFineNotFound)
	})
}

func TestGormAgreementRepository_FindInstallmentNotFound(t *testing.T) {
	db, mock, mockDB := newMockDB(t)
	defer mockDB.Close()
	repo := NewGormAgreementRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "pagos_convenio" WHERE id = \$1`).
		WithArgs(int64(3), 1).
		WillReturnError(gorm.ErrRecordNotFound)

	inst, err := repo.FindInstallment(context.Background(), 3)

	assert.Nil(t, inst)
	assert.ErrorIs(t, err, ledger.ErrInstallmentNotFound)
}

func TestGormAgreementRepository_SaveInstallment(t *testing.T) {
	db, mock, mockDB := newMockDB(t)
	defer mockDB.Close()
	repo := NewGormAgreementRepository(db)

	inst := &ledger.Installment{ID: 3, Status: ledger.InstallmentStatusPending}
	require.NoError(t, inst.ApplyPayment(12, ledger.InstallmentStatusProcessing, nil))

	mock.ExpectExec(`UPDATE "pagos_convenio" SET "estado"=\$1,"fecha_pago"=\$2,"pago_id"=\$3 WHERE id = \$4`).
		WithArgs(ledger.InstallmentStatusProcessing, sqlmock.AnyArg(), int64(12), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SaveInstallment(context.Background(), inst))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormPropertyRepository_FindCurrentForUser(t *testing.T) {
	t.Run("resolves the assignment valid at the date", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormPropertyRepository(db)

		jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		jun := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
		jul := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

		mock.ExpectQuery(`SELECT \* FROM "usuario_propiedad" WHERE usuario_id = \$1 ORDER BY fecha_inicio ASC, id ASC`).
			WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "usuario_id", "propiedad_id", "fecha_inicio", "fecha_fin"}).
				AddRow(int64(1), int64(3), int64(10), jan, jun).
				AddRow(int64(2), int64(3), int64(20), jul, nil))

		mock.ExpectQuery(`SELECT \* FROM "propiedades" WHERE id = \$1`).
			WithArgs(int64(10), 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "condominio_id", "numero"}).
				AddRow(int64(10), int64(1), "101"))

		property, err := repo.FindCurrentForUser(context.Background(), 3, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))

		require.NoError(t, err)
		require.NotNil(t, property)
		assert.Equal(t, "101", property.Number)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("last day of the window in the ledger zone", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormPropertyRepository(db)

		mexico, err := time.LoadLocation("America/Mexico_City")
		require.NoError(t, err)
		jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		jun := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

		mock.ExpectQuery(`SELECT \* FROM "usuario_propiedad" WHERE usuario_id = \$1`).
			WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "usuario_id", "propiedad_id", "fecha_inicio", "fecha_fin"}).
				AddRow(int64(1), int64(3), int64(10), jan, jun))
		mock.ExpectQuery(`SELECT \* FROM "propiedades" WHERE id = \$1`).
			WithArgs(int64(10), 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "condominio_id", "numero"}).
				AddRow(int64(10), int64(1), "101"))

		property, err := repo.FindCurrentForUser(context.Background(), 3, time.Date(2024, 6, 30, 19, 0, 0, 0, mexico))

		require.NoError(t, err)
		require.NotNil(t, property)
		assert.Equal(t, int64(10), property.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns nil when the user has no property", func(t *testing.T) {
		db, mock, mockDB := newMockDB(t)
		defer mockDB.Close()
		repo := NewGormPropertyRepository(db)

		mock.ExpectQuery(`SELECT \* FROM "usuario_propiedad"`).
			WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "usuario_id", "propiedad_id", "fecha_inicio", "fecha_fin"}))

		property, err := repo.FindCurrentForUser(context.Background(), 3, time.Now())

		require.NoError(t, err)
		assert.Nil(t, property)
	})
}
