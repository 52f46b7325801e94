package ledger

import (
	"time"

	"github.com/condoportal/backend/internal/domain/community"
	"github.com/condoportal/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Fine is a penalty charged to a resident (multas). PropertyID is optional;
// when absent the property is resolved from the assignment history.
type Fine struct {
	shared.BaseEntity
	UserID     int64           `json:"usuario_id"`
	PropertyID *int64          `json:"propiedad_id,omitempty"`
	Amount     decimal.Decimal `json:"monto"`
	Reason     string          `json:"motivo"`
	Status     FineStatus      `json:"estado"`
	DueDate    time.Time       `json:"fecha_vencimiento"`
	IssuedAt   *time.Time      `json:"fecha_emision,omitempty"`
	PaidAt     *time.Time      `json:"fecha_pago,omitempty"`
	PaymentID  *int64          `json:"pago_id,omitempty"`
}

// ClassificationDate is the date the fine is bucketed by, expressed in loc:
// the payment date, then the issue date, then the due date. The fallback
// degrades accuracy instead of failing on deployments whose schema lacks the
// newer columns. The due date is a DATE and keeps its calendar day.
func (f *Fine) ClassificationDate(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	if f.PaidAt != nil {
		return f.PaidAt.In(loc)
	}
	if f.IssuedAt != nil {
		return f.IssuedAt.In(loc)
	}
	y, m, d := f.DueDate.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// AttributedProperty returns the property the fine belongs to, evaluating the
// assignment history on the calendar day of the fine's classification date in
// loc rather than today.
func (f *Fine) AttributedProperty(assignments []community.Assignment, loc *time.Location) (int64, bool) {
	if f.PropertyID != nil {
		return *f.PropertyID, true
	}
	a, ok := community.ResolveAssignmentAt(assignments, f.ClassificationDate(loc))
	if !ok {
		return 0, false
	}
	return a.PropertyID, true
}

// IsPayable reports whether the fine can be included in a new payment
func (f *Fine) IsPayable() bool {
	return f.Status == FineStatusPending
}

// ApplyPayment links the fine to a general-ledger payment
func (f *Fine) ApplyPayment(paymentID int64, status FineStatus, at time.Time) error {
	if !status.IsValid() {
		return ErrInvalidStatus
	}
	f.Status = status
	if paymentID > 0 {
		id := paymentID
		f.PaymentID = &id
	}
	if status == FineStatusPaid || status == FineStatusProcessing {
		paid := at
		f.PaidAt = &paid
	}
	f.Touch()
	return nil
}

// Reopen returns the fine to pending after a rejected transfer
func (f *Fine) Reopen() {
	f.Status = FineStatusPending
	f.PaymentID = nil
	f.PaidAt = nil
	f.Touch()
}

// FineDateColumns describes which optional date columns the multas table has.
// Resolved once at startup from the schema version.
type FineDateColumns struct {
	PaidAt   bool
	IssuedAt bool
}

// Columns returns the date columns to coalesce, most accurate first.
// fecha_vencimiento is always present and always last.
func (c FineDateColumns) Columns() []string {
	cols := make([]string, 0, 3)
	if c.PaidAt {
		cols = append(cols, "fecha_pago")
	}
	if c.IssuedAt {
		cols = append(cols, "fecha_emision")
	}
	return append(cols, "fecha_vencimiento")
}
