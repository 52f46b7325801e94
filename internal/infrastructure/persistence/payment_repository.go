package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/condoportal/backend/internal/domain/ledger"
	"github.com/condoportal/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPaymentRepository implements ledger.PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByID finds a payment by ID
func (r *GormPaymentRepository) FindByID(ctx context.Context, id int64) (*ledger.Payment, error) {
	return r.find(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate loads a payment with SELECT ... FOR UPDATE
func (r *GormPaymentRepository) FindByIDForUpdate(ctx context.Context, id int64) (*ledger.Payment, error) {
	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormPaymentRepository) find(db *gorm.DB, id int64) (*ledger.Payment, error) {
	var model models.PaymentModel
	if err := db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.ErrPaymentNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns a page of payments plus the total number of matches
func (r *GormPaymentRepository) FindAll(ctx context.Context, filter ledger.PaymentFilter) ([]ledger.Payment, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.PaymentModel{}).Scopes(UserScope(filter.UserID))
	if filter.Status != nil {
		query = query.Where("estado = ?", *filter.Status)
	}
	if filter.Method != nil {
		query = query.Where("metodo_pago = ?", *filter.Method)
	}
	if filter.Type != nil {
		query = query.Where("tipo = ?", *filter.Type)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.PaymentModel
	if err := query.Scopes(PageScope(filter.Filter, PaymentSortFields)).Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	payments := make([]ledger.Payment, len(rows))
	for i := range rows {
		payments[i] = *rows[i].ToDomain()
	}
	return payments, total, nil
}

// Save inserts a new payment or updates the mutable columns of an existing one
func (r *GormPaymentRepository) Save(ctx context.Context, payment *ledger.Payment) error {
	model := models.PaymentModelFromDomain(payment)
	if payment.IsNew() {
		if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
			return err
		}
		payment.ID = model.ID
		payment.CreatedAt = model.CreatedAt
		payment.UpdatedAt = model.UpdatedAt
		return nil
	}

	result := r.db.WithContext(ctx).Model(&models.PaymentModel{}).
		Where("id = ?", payment.ID).
		Updates(map[string]any{
			"referencia_id":  payment.ReferenceID,
			"estado":         payment.Status,
			"notas":          payment.Notes,
			"fecha_revision": payment.ReviewedAt,
			"updated_at":     time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ledger.ErrPaymentNotFound
	}
	return nil
}
