package ledger

import (
	"time"

	"github.com/condoportal/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Installment is one scheduled payment of an agreement (pagos_convenio)
type Installment struct {
	ID          int64             `json:"id"`
	AgreementID int64             `json:"convenio_id"`
	Number      int               `json:"numero_pago"`
	Amount      decimal.Decimal   `json:"monto"`
	DueDate     time.Time         `json:"fecha_vencimiento"`
	Status      InstallmentStatus `json:"estado"`
	PaymentID   *int64            `json:"pago_id,omitempty"`
	PaidAt      *time.Time        `json:"fecha_pago,omitempty"`
}

// IsPayable reports whether the installment can be included in a new payment
func (i *Installment) IsPayable() bool {
	return i.Status == InstallmentStatusPending
}

// ApplyPayment links the installment to a general-ledger payment.
// A nil at keeps the current payment date, falling back to now.
func (i *Installment) ApplyPayment(paymentID int64, status InstallmentStatus, at *time.Time) error {
	if !status.IsValid() {
		return ErrInvalidStatus
	}
	i.Status = status
	if paymentID > 0 {
		id := paymentID
		i.PaymentID = &id
	}
	if status == InstallmentStatusPaid || status == InstallmentStatusProcessing {
		paid := time.Now()
		if at != nil {
			paid = *at
		}
		i.PaidAt = &paid
	}
	return nil
}

// Reopen returns the installment to pending after a rejected transfer
func (i *Installment) Reopen() {
	i.Status = InstallmentStatusPending
	i.PaymentID = nil
	i.PaidAt = nil
}

// AgreementSnapshot records the obligations an agreement superseded
type AgreementSnapshot struct {
	Charges []MaintenanceCharge `json:"periodos"`
	Fines   []FineCharge        `json:"multas,omitempty"`
}

// Agreement consolidates overdue obligations into installments (convenios)
type Agreement struct {
	shared.BaseAggregateRoot
	UserID           int64             `json:"usuario_id"`
	PropertyID       int64             `json:"propiedad_id"`
	MonthsIncluded   int               `json:"meses_incluidos"`
	NumInstallments  int               `json:"num_pagos"`
	SurchargePercent decimal.Decimal   `json:"recargo_percent"`
	BaseAmount       decimal.Decimal   `json:"monto_base"`
	SurchargeAmount  decimal.Decimal   `json:"monto_recargo"`
	TotalAmount      decimal.Decimal   `json:"monto_total"`
	Status           AgreementStatus   `json:"estado"`
	FirstDueDate     time.Time         `json:"fecha_inicio_cuotas"`
	Snapshot         AgreementSnapshot `json:"detalle"`
	Installments     []Installment     `json:"cuotas"`
}

// NewAgreement builds an active agreement from a quote
func NewAgreement(userID, propertyID int64, surchargePercent decimal.Decimal, q *Quote) (*Agreement, error) {
	if q == nil || len(q.Installments) == 0 {
		return nil, ErrInvalidInstallments
	}
	a := &Agreement{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		UserID:            userID,
		PropertyID:        propertyID,
		MonthsIncluded:    len(q.Charges),
		NumInstallments:   len(q.Installments),
		SurchargePercent:  surchargePercent,
		BaseAmount:        q.Base,
		SurchargeAmount:   q.Surcharge,
		TotalAmount:       q.Total,
		Status:            AgreementStatusActive,
		FirstDueDate:      q.Installments[0].DueDate,
		Snapshot:          AgreementSnapshot{Charges: q.Charges, Fines: q.Fines},
	}
	a.Installments = make([]Installment, len(q.Installments))
	for i, plan := range q.Installments {
		a.Installments[i] = Installment{
			Number:  plan.Number,
			Amount:  plan.Amount,
			DueDate: plan.DueDate,
			Status:  InstallmentStatusPending,
		}
	}
	return a, nil
}

// Created raises AgreementCreated once the agreement has its ID
func (a *Agreement) Created() {
	a.AddDomainEvent(NewAgreementCreatedEvent(a))
}

// IsSettled reports whether every installment is paid
func (a *Agreement) IsSettled() bool {
	if len(a.Installments) == 0 {
		return false
	}
	for _, inst := range a.Installments {
		if inst.Status != InstallmentStatusPaid {
			return false
		}
	}
	return true
}

// InstallmentsSum returns the sum of all installment amounts
func (a *Agreement) InstallmentsSum() decimal.Decimal {
	sum := decimal.Zero
	for _, inst := range a.Installments {
		sum = sum.Add(inst.Amount)
	}
	return sum
}

// CompleteIfSettled moves an active agreement to completado once fully paid.
// Returns true when the transition happened.
func (a *Agreement) CompleteIfSettled() bool {
	if a.Status != AgreementStatusActive || !a.IsSettled() {
		return false
	}
	a.Status = AgreementStatusCompleted
	a.Touch()
	a.AddDomainEvent(NewAgreementCompletedEvent(a))
	return true
}
