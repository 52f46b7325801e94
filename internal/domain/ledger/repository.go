package ledger

import (
	"context"

	"github.com/condoportal/backend/internal/domain/community"
	"github.com/condoportal/backend/internal/domain/shared"
)

// PaymentFilter defines filtering options for general-ledger queries
type PaymentFilter struct {
	shared.Filter
	UserID *int64
	Status *PaymentStatus
	Method *PaymentMethod
	Type   *PaymentType
}

// FineFilter defines filtering options for fine queries
type FineFilter struct {
	UserID *int64
	Status *FineStatus
}

// PaymentRepository persists general-ledger payments
type PaymentRepository interface {
	// FindByID finds a payment by ID; returns ErrPaymentNotFound when missing
	FindByID(ctx context.Context, id int64) (*Payment, error)

	// FindByIDForUpdate loads a payment and locks its row for the current transaction
	FindByIDForUpdate(ctx context.Context, id int64) (*Payment, error)

	// FindAll returns a page of payments and the total matching count
	FindAll(ctx context.Context, filter PaymentFilter) ([]Payment, int64, error)

	// Save inserts a new payment (assigning its ID) or updates an existing one
	Save(ctx context.Context, payment *Payment) error
}

// MaintenanceRepository persists per-period maintenance rows
type MaintenanceRepository interface {
	// FindByProperty lists a property's rows, optionally restricted to one period year
	FindByProperty(ctx context.Context, propertyID int64, year *int) ([]MaintenancePayment, error)

	// FindByPeriods returns the existing rows for the given periods
	FindByPeriods(ctx context.Context, propertyID int64, periods []Period) ([]MaintenancePayment, error)

	// FindPending returns the property's pending rows, oldest period first
	FindPending(ctx context.Context, propertyID int64) ([]MaintenancePayment, error)

	// ExistingPeriods returns every period that has a row, whatever its status
	ExistingPeriods(ctx context.Context, propertyID int64) (map[Period]bool, error)

	// FindByPaymentID returns rows settled by a general-ledger payment
	FindByPaymentID(ctx context.Context, paymentID int64) ([]MaintenancePayment, error)

	// Save inserts or updates a row
	Save(ctx context.Context, row *MaintenancePayment) error
}

// FineRepository persists fines
type FineRepository interface {
	// FindByIDs returns the fines with the given IDs
	FindByIDs(ctx context.Context, ids []int64) ([]Fine, error)

	// FindAll lists fines matching the filter
	FindAll(ctx context.Context, filter FineFilter) ([]Fine, error)

	// FindByPaymentID returns fines settled by a general-ledger payment
	FindByPaymentID(ctx context.Context, paymentID int64) ([]Fine, error)

	// Save updates a fine
	Save(ctx context.Context, fine *Fine) error
}

// AgreementRepository persists agreements and their installments
type AgreementRepository interface {
	// FindByID loads an agreement with its installments
	FindByID(ctx context.Context, id int64) (*Agreement, error)

	// FindInstallment loads a single installment
	FindInstallment(ctx context.Context, id int64) (*Installment, error)

	// FindInstallmentsByIDs loads several installments
	FindInstallmentsByIDs(ctx context.Context, ids []int64) ([]Installment, error)

	// FindInstallmentsByPaymentID returns installments settled by a general-ledger payment
	FindInstallmentsByPaymentID(ctx context.Context, paymentID int64) ([]Installment, error)

	// Create inserts the agreement and all its installments, assigning IDs
	Create(ctx context.Context, agreement *Agreement) error

	// UpdateStatus persists the agreement header status
	UpdateStatus(ctx context.Context, agreement *Agreement) error

	// SaveInstallment updates an installment
	SaveInstallment(ctx context.Context, installment *Installment) error
}

// StatementReader runs the per-category aggregation queries of the income
// statement. Each method is one independent SQL statement.
type StatementReader interface {
	// MaintenanceByClassification sums paid maintenance of the given class,
	// grouped by the month of fecha_pago within the year
	MaintenanceByClassification(ctx context.Context, year int, condominiumID *int64, class Classification) ([]MonthlyTotal, error)

	// Annualities sums periods of the year paid in an earlier period, grouped by periodo_mes
	Annualities(ctx context.Context, year int, condominiumID *int64) ([]MonthlyTotal, error)

	// Fines sums paid fines grouped by the month of their classification date
	Fines(ctx context.Context, year int, condominiumID *int64) ([]MonthlyTotal, error)

	// AgreementInstallments sums paid agreement installments by month of payment
	AgreementInstallments(ctx context.Context, year int, condominiumID *int64) ([]MonthlyTotal, error)

	// CommonAreas sums completed reservation payments by month of payment
	CommonAreas(ctx context.Context, year int, condominiumID *int64) ([]MonthlyTotal, error)

	// OtherIncome sums other income records by month
	OtherIncome(ctx context.Context, year int, condominiumID *int64) ([]MonthlyTotal, error)
}

// Repositories groups the repositories bound to one unit of work
type Repositories struct {
	Payments    PaymentRepository
	Maintenance MaintenanceRepository
	Fines       FineRepository
	Agreements  AgreementRepository
	Properties  community.PropertyRepository
}

// UnitOfWork runs fn inside a single database transaction. Every repository
// handed to fn writes through that transaction; returning an error rolls
// back all of them.
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
