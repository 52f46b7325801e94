package persistence

import (
	"context"
	"time"

	"github.com/condoportal/backend/internal/domain/ledger"
	"github.com/condoportal/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// fineBaseColumns exist on every schema version
var fineBaseColumns = []string{
	"id", "usuario_id", "propiedad_id", "monto", "motivo", "estado",
	"fecha_vencimiento", "pago_id", "created_at", "updated_at",
}

// GormFineRepository implements ledger.FineRepository using GORM.
// Reads and writes touch fecha_emision / fecha_pago only when the schema has them.
type GormFineRepository struct {
	db      *gorm.DB
	columns ledger.FineDateColumns
}

// NewGormFineRepository creates a new GormFineRepository for the given schema capabilities
func NewGormFineRepository(db *gorm.DB, columns ledger.FineDateColumns) *GormFineRepository {
	return &GormFineRepository{db: db, columns: columns}
}

func (r *GormFineRepository) selectColumns() []string {
	cols := append([]string(nil), fineBaseColumns...)
	if r.columns.IssuedAt {
		cols = append(cols, "fecha_emision")
	}
	if r.columns.PaidAt {
		cols = append(cols, "fecha_pago")
	}
	return cols
}

// FindByIDs returns the fines with the given IDs
func (r *GormFineRepository) FindByIDs(ctx context.Context, ids []int64) ([]ledger.Fine, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.list(r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC"))
}

// FindAll lists fines matching the filter, newest due date first
func (r *GormFineRepository) FindAll(ctx context.Context, filter ledger.FineFilter) ([]ledger.Fine, error) {
	query := r.db.WithContext(ctx).Scopes(UserScope(filter.UserID))
	if filter.Status != nil {
		query = query.Where("estado = ?", *filter.Status)
	}
	return r.list(query.Order("fecha_vencimiento DESC, id DESC"))
}

// FindByPaymentID returns fines settled by a general-ledger payment
func (r *GormFineRepository) FindByPaymentID(ctx context.Context, paymentID int64) ([]ledger.Fine, error) {
	return r.list(r.db.WithContext(ctx).Where("pago_id = ?", paymentID).Order("id ASC"))
}

// Save updates the settlement columns of a fine
func (r *GormFineRepository) Save(ctx context.Context, fine *ledger.Fine) error {
	updates := map[string]any{
		"estado":     fine.Status,
		"pago_id":    fine.PaymentID,
		"updated_at": time.Now(),
	}
	if r.columns.PaidAt {
		updates["fecha_pago"] = fine.PaidAt
	}

	result := r.db.WithContext(ctx).Model(&models.FineModel{}).Where("id = ?", fine.ID).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ledger.ErrFineNotFound
	}
	return nil
}

func (r *GormFineRepository) list(query *gorm.DB) ([]ledger.Fine, error) {
	var rows []models.FineModel
	if err := query.Select(r.selectColumns()).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]ledger.Fine, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}
