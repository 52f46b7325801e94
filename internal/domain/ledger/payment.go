package ledger

import (
	"strings"
	"time"

	"github.com/condoportal/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Payment is a general-ledger row (pagos). One payment can settle several
// maintenance periods, fines and installments, linked back through pago_id.
type Payment struct {
	shared.BaseAggregateRoot
	UserID      int64           `json:"usuario_id"`
	ReferenceID string          `json:"referencia_id"`
	Type        PaymentType     `json:"tipo"`
	Amount      decimal.Decimal `json:"monto"`
	Method      PaymentMethod   `json:"metodo_pago"`
	Status      PaymentStatus   `json:"estado"`
	Notes       string          `json:"notas"`
	PaidAt      time.Time       `json:"fecha_pago"`
	ReviewedAt  *time.Time      `json:"fecha_revision,omitempty"`
}

// NewPayment creates a payment in the initial status implied by its method
func NewPayment(userID int64, paymentType PaymentType, amount decimal.Decimal, method PaymentMethod, referenceID, notes string) (*Payment, error) {
	if userID <= 0 {
		return nil, shared.NewDomainError("INVALID_USER", "El usuario es obligatorio")
	}
	if !paymentType.IsValid() {
		return nil, ErrInvalidPaymentType
	}
	if !method.IsValid() {
		return nil, ErrInvalidMethod
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	p := &Payment{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		UserID:            userID,
		ReferenceID:       strings.TrimSpace(referenceID),
		Type:              paymentType,
		Amount:            amount.Round(2),
		Method:            method,
		Status:            method.InitialPaymentStatus(),
		Notes:             strings.TrimSpace(notes),
		PaidAt:            time.Now(),
	}
	return p, nil
}

// WithStatus overrides the initial status with an explicit one sent by the client
func (p *Payment) WithStatus(status PaymentStatus) error {
	if !status.IsValid() {
		return ErrInvalidStatus
	}
	p.Status = status
	return nil
}

// Recorded raises PaymentRecorded once the payment has its ID
func (p *Payment) Recorded(settled Settlement) {
	p.AddDomainEvent(NewPaymentRecordedEvent(p, settled))
}

// Approve confirms a transfer after manual verification
func (p *Payment) Approve() error {
	if !p.Status.CanReview() {
		return ErrNotReviewable
	}
	now := time.Now()
	p.Status = PaymentStatusCompleted
	p.ReviewedAt = &now
	p.Touch()
	p.AddDomainEvent(NewPaymentApprovedEvent(p))
	return nil
}

// Reject refuses a transfer; the obligations it covered become payable again
func (p *Payment) Reject(reason string) error {
	if !p.Status.CanReview() {
		return ErrNotReviewable
	}
	now := time.Now()
	p.Status = PaymentStatusRejected
	p.ReviewedAt = &now
	if reason = strings.TrimSpace(reason); reason != "" {
		if p.Notes != "" {
			p.Notes += " | "
		}
		p.Notes += "Rechazo: " + reason
	}
	p.Touch()
	p.AddDomainEvent(NewPaymentRejectedEvent(p, reason))
	return nil
}

// Settlement lists what a single payment settles
type Settlement struct {
	Periods        []Period `json:"periodos,omitempty"`
	FineIDs        []int64  `json:"multas_ids,omitempty"`
	InstallmentIDs []int64  `json:"cuotas_ids,omitempty"`
}

// IsEmpty reports whether nothing was selected
func (s Settlement) IsEmpty() bool {
	return len(s.Periods) == 0 && len(s.FineIDs) == 0 && len(s.InstallmentIDs) == 0
}

// PaymentType derives the ledger type from the selected categories
func (s Settlement) PaymentType() PaymentType {
	kinds := 0
	var only PaymentType
	if len(s.Periods) > 0 {
		kinds++
		only = PaymentTypeMaintenance
	}
	if len(s.FineIDs) > 0 {
		kinds++
		only = PaymentTypeFines
	}
	if len(s.InstallmentIDs) > 0 {
		kinds++
		only = PaymentTypeAgreement
	}
	if kinds == 1 {
		return only
	}
	return PaymentTypeMixed
}

// Categories returns the payment types present in the settlement, in display order
func (s Settlement) Categories() []PaymentType {
	var out []PaymentType
	if len(s.Periods) > 0 {
		out = append(out, PaymentTypeMaintenance)
	}
	if len(s.FineIDs) > 0 {
		out = append(out, PaymentTypeFines)
	}
	if len(s.InstallmentIDs) > 0 {
		out = append(out, PaymentTypeAgreement)
	}
	return out
}
