package ledger

import (
	"time"

	"github.com/condoportal/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// MaintenancePayment is one billed period of one property (pagos_mantenimiento)
type MaintenancePayment struct {
	shared.BaseEntity
	PropertyID int64             `json:"propiedad_id"`
	Period     Period            `json:"periodo"`
	PaidAt     *time.Time        `json:"fecha_pago,omitempty"`
	DueDate    *time.Time        `json:"fecha_limite,omitempty"`
	Amount     decimal.Decimal   `json:"monto"`
	Status     MaintenanceStatus `json:"estado"`
	PaymentID  *int64            `json:"pago_id,omitempty"`
}

// NewMaintenancePayment creates a pending row for a period
func NewMaintenancePayment(propertyID int64, period Period, amount decimal.Decimal) (*MaintenancePayment, error) {
	if period.Month < 1 || period.Month > 12 {
		return nil, ErrInvalidPeriod
	}
	if amount.IsNegative() {
		return nil, ErrInvalidAmount
	}
	return &MaintenancePayment{
		BaseEntity: shared.NewBaseEntity(),
		PropertyID: propertyID,
		Period:     period,
		Amount:     amount.Round(2),
		Status:     MaintenanceStatusPending,
	}, nil
}

// Classification derives on_time / recovered / advance. Unpaid rows have none.
func (m *MaintenancePayment) Classification() (Classification, bool) {
	if m.PaidAt == nil {
		return "", false
	}
	return Classify(m.Period, *m.PaidAt), true
}

// ApplyPayment links the row to a general-ledger payment with the given status
func (m *MaintenancePayment) ApplyPayment(paymentID int64, status MaintenanceStatus, at time.Time) error {
	if !status.IsValid() {
		return ErrInvalidStatus
	}
	m.Status = status
	if paymentID > 0 {
		id := paymentID
		m.PaymentID = &id
	}
	if status == MaintenanceStatusPaid || status == MaintenanceStatusProcessing {
		paid := at
		m.PaidAt = &paid
	}
	m.Touch()
	return nil
}

// Supersede marks the period as consolidated into an agreement
func (m *MaintenancePayment) Supersede() {
	m.Status = MaintenanceStatusCancelled
	m.Touch()
}

// Reopen returns the period to pending after a rejected transfer
func (m *MaintenancePayment) Reopen() {
	m.Status = MaintenanceStatusPending
	m.PaymentID = nil
	m.PaidAt = nil
	m.Touch()
}

// MaintenanceCharge is an outstanding period with its amount, used when
// consolidating debt into an agreement. Estimated charges have no backing row.
type MaintenanceCharge struct {
	RowID     int64           `json:"id,omitempty"`
	Period    Period          `json:"periodo"`
	Amount    decimal.Decimal `json:"monto"`
	Estimated bool            `json:"estimado"`
}
