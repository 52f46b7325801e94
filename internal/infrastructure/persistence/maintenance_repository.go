package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/condoportal/backend/internal/domain/ledger"
	"github.com/condoportal/backend/internal/infrastructure/persistence/models"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// GormMaintenanceRepository implements ledger.MaintenanceRepository using GORM
type GormMaintenanceRepository struct {
	db *gorm.DB
}

// NewGormMaintenanceRepository creates a new GormMaintenanceRepository
func NewGormMaintenanceRepository(db *gorm.DB) *GormMaintenanceRepository {
	return &GormMaintenanceRepository{db: db}
}

const periodOrder = "periodo_anio ASC, periodo_mes ASC"

// FindByProperty lists a property's rows, optionally for one period year
func (r *GormMaintenanceRepository) FindByProperty(ctx context.Context, propertyID int64, year *int) ([]ledger.MaintenancePayment, error) {
	query := r.db.WithContext(ctx).Where("propiedad_id = ?", propertyID)
	if year != nil {
		query = query.Where("periodo_anio = ?", *year)
	}
	return r.list(query.Order(periodOrder))
}

// FindByPeriods returns the existing rows for the given periods
func (r *GormMaintenanceRepository) FindByPeriods(ctx context.Context, propertyID int64, periods []ledger.Period) ([]ledger.MaintenancePayment, error) {
	if len(periods) == 0 {
		return nil, nil
	}
	pairs := make([][]any, len(periods))
	for i, p := range periods {
		pairs[i] = []any{p.Year, p.Month}
	}
	query := r.db.WithContext(ctx).
		Where("propiedad_id = ?", propertyID).
		Where("(periodo_anio, periodo_mes) IN ?", pairs).
		Order(periodOrder)
	return r.list(query)
}

// FindPending returns pending rows oldest period first
func (r *GormMaintenanceRepository) FindPending(ctx context.Context, propertyID int64) ([]ledger.MaintenancePayment, error) {
	query := r.db.WithContext(ctx).
		Where("propiedad_id = ? AND estado = ?", propertyID, ledger.MaintenanceStatusPending).
		Order(periodOrder)
	return r.list(query)
}

// ExistingPeriods returns every period that already has a row
func (r *GormMaintenanceRepository) ExistingPeriods(ctx context.Context, propertyID int64) (map[ledger.Period]bool, error) {
	var rows []struct {
		PeriodoAnio int
		PeriodoMes  int
	}
	if err := r.db.WithContext(ctx).Model(&models.MaintenancePaymentModel{}).
		Select("periodo_anio, periodo_mes").
		Where("propiedad_id = ?", propertyID).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	existing := make(map[ledger.Period]bool, len(rows))
	for _, row := range rows {
		existing[ledger.Period{Year: row.PeriodoAnio, Month: row.PeriodoMes}] = true
	}
	return existing, nil
}

// FindByPaymentID returns rows settled by a general-ledger payment
func (r *GormMaintenanceRepository) FindByPaymentID(ctx context.Context, paymentID int64) ([]ledger.MaintenancePayment, error) {
	return r.list(r.db.WithContext(ctx).Where("pago_id = ?", paymentID).Order(periodOrder))
}

// Save inserts a new row or updates the settlement columns of an existing one.
// Inserting a period another transaction already wrote for the property
// returns ledger.ErrPeriodAlreadySettled.
func (r *GormMaintenanceRepository) Save(ctx context.Context, row *ledger.MaintenancePayment) error {
	model := models.MaintenancePaymentModelFromDomain(row)
	if row.IsNew() {
		if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
			if IsUniqueViolation(err) {
				return ledger.ErrPeriodAlreadySettled
			}
			return err
		}
		row.ID = model.ID
		return nil
	}

	return r.db.WithContext(ctx).Model(&models.MaintenancePaymentModel{}).
		Where("id = ?", row.ID).
		Updates(map[string]any{
			"estado":       row.Status,
			"monto":        row.Amount,
			"pago_id":      row.PaymentID,
			"fecha_pago":   row.PaidAt,
			"fecha_limite": row.DueDate,
			"updated_at":   time.Now(),
		}).Error
}

func (r *GormMaintenanceRepository) list(query *gorm.DB) ([]ledger.MaintenancePayment, error) {
	var rows []models.MaintenancePaymentModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]ledger.MaintenancePayment, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation
const uniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique constraint violation,
// whether or not the dialector translated it
func IsUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
