package persistence

import (
	"context"

	"github.com/condoportal/backend/internal/domain/ledger"
	"gorm.io/gorm"
)

// NewRepositories binds every ledger repository to db, which may be a
// transaction handle
func NewRepositories(db *gorm.DB, fines ledger.FineDateColumns) ledger.Repositories {
	return ledger.Repositories{
		Payments:    NewGormPaymentRepository(db),
		Maintenance: NewGormMaintenanceRepository(db),
		Fines:       NewGormFineRepository(db, fines),
		Agreements:  NewGormAgreementRepository(db),
		Properties:  NewGormPropertyRepository(db),
	}
}

// GormUnitOfWork implements ledger.UnitOfWork using GORM transactions.
// If fn returns an error the transaction is rolled back, otherwise committed.
type GormUnitOfWork struct {
	db    *gorm.DB
	fines ledger.FineDateColumns
}

// NewGormUnitOfWork creates a new GormUnitOfWork
func NewGormUnitOfWork(db *gorm.DB, fines ledger.FineDateColumns) *GormUnitOfWork {
	return &GormUnitOfWork{db: db, fines: fines}
}

// Execute runs fn within a database transaction
func (u *GormUnitOfWork) Execute(ctx context.Context, fn func(ctx context.Context, repos ledger.Repositories) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, NewRepositories(tx, u.fines))
	})
}

// Ensure GormUnitOfWork implements UnitOfWork
var _ ledger.UnitOfWork = (*GormUnitOfWork)(nil)

// Compile-time interface checks for the repositories
var (
	_ ledger.PaymentRepository     = (*GormPaymentRepository)(nil)
	_ ledger.MaintenanceRepository = (*GormMaintenanceRepository)(nil)
	_ ledger.FineRepository        = (*GormFineRepository)(nil)
	_ ledger.AgreementRepository   = (*GormAgreementRepository)(nil)
	_ ledger.StatementReader       = (*GormStatementReader)(nil)
)
