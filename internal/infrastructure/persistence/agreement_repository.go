package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/condoportal/backend/internal/domain/ledger"
	"github.com/condoportal/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormAgreementRepository implements ledger.AgreementRepository using GORM
type GormAgreementRepository struct {
	db *gorm.DB
}

// NewGormAgreementRepository creates a new GormAgreementRepository
func NewGormAgreementRepository(db *gorm.DB) *GormAgreementRepository {
	return &GormAgreementRepository{db: db}
}

// FindByID loads an agreement with its installments ordered by number
func (r *GormAgreementRepository) FindByID(ctx context.Context, id int64) (*ledger.Agreement, error) {
	var model models.AgreementModel
	err := r.db.WithContext(ctx).
		Preload("Installments", func(db *gorm.DB) *gorm.DB {
			return db.Order("numero_pago ASC")
		}).
		First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.ErrAgreementNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindInstallment loads a single installment
func (r *GormAgreementRepository) FindInstallment(ctx context.Context, id int64) (*ledger.Installment, error) {
	var model models.InstallmentModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.ErrInstallmentNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindInstallmentsByIDs loads several installments ordered by ID
func (r *GormAgreementRepository) FindInstallmentsByIDs(ctx context.Context, ids []int64) ([]ledger.Installment, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.listInstallments(r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC"))
}

// FindInstallmentsByPaymentID returns installments settled by a general-ledger payment
func (r *GormAgreementRepository) FindInstallmentsByPaymentID(ctx context.Context, paymentID int64) ([]ledger.Installment, error) {
	return r.listInstallments(r.db.WithContext(ctx).Where("pago_id = ?", paymentID).Order("id ASC"))
}

// Create inserts the agreement header and its installments and copies the
// generated IDs back onto the aggregate
func (r *GormAgreementRepository) Create(ctx context.Context, agreement *ledger.Agreement) error {
	model := models.AgreementModelFromDomain(agreement)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}

	agreement.ID = model.ID
	agreement.CreatedAt = model.CreatedAt
	agreement.UpdatedAt = model.UpdatedAt
	for i := range agreement.Installments {
		agreement.Installments[i].ID = model.Installments[i].ID
		agreement.Installments[i].AgreementID = model.ID
	}
	return nil
}

// UpdateStatus persists the agreement header status
func (r *GormAgreementRepository) UpdateStatus(ctx context.Context, agreement *ledger.Agreement) error {
	result := r.db.WithContext(ctx).Model(&models.AgreementModel{}).
		Where("id = ?", agreement.ID).
		Updates(map[string]any{
			"estado":     agreement.Status,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ledger.ErrAgreementNotFound
	}
	return nil
}

// SaveInstallment updates the settlement columns of an installment
func (r *GormAgreementRepository) SaveInstallment(ctx context.Context, installment *ledger.Installment) error {
	result := r.db.WithContext(ctx).Model(&models.InstallmentModel{}).
		Where("id = ?", installment.ID).
		Updates(map[string]any{
			"estado":     installment.Status,
			"pago_id":    installment.PaymentID,
			"fecha_pago": installment.PaidAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ledger.ErrInstallmentNotFound
	}
	return nil
}

func (r *GormAgreementRepository) listInstallments(query *gorm.DB) ([]ledger.Installment, error) {
	var rows []models.InstallmentModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]ledger.Installment, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}
