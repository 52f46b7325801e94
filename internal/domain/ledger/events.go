package ledger

import (
	"github.com/condoportal/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Event type names
const (
	EventTypePaymentRecorded    = "PaymentRecorded"
	EventTypePaymentApproved    = "PaymentApproved"
	EventTypePaymentRejected    = "PaymentRejected"
	EventTypeAgreementCreated   = "AgreementCreated"
	EventTypeAgreementCompleted = "AgreementCompleted"
)

const (
	aggregateTypePayment   = "Payment"
	aggregateTypeAgreement = "Agreement"
)

// PaymentRecordedEvent is raised when a payment and its settlements are booked
type PaymentRecordedEvent struct {
	shared.BaseDomainEvent
	PaymentID   int64           `json:"pago_id"`
	UserID      int64           `json:"usuario_id"`
	Amount      decimal.Decimal `json:"monto"`
	Method      PaymentMethod   `json:"metodo_pago"`
	Status      PaymentStatus   `json:"estado"`
	ReferenceID string          `json:"referencia_id"`
	Settlement  Settlement      `json:"settlement"`
}

// EventType returns the event type name
func (e *PaymentRecordedEvent) EventType() string {
	return EventTypePaymentRecorded
}

// NewPaymentRecordedEvent creates a new PaymentRecordedEvent
func NewPaymentRecordedEvent(p *Payment, settled Settlement) *PaymentRecordedEvent {
	return &PaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRecorded, aggregateTypePayment, p.ID),
		PaymentID:       p.ID,
		UserID:          p.UserID,
		Amount:          p.Amount,
		Method:          p.Method,
		Status:          p.Status,
		ReferenceID:     p.ReferenceID,
		Settlement:      settled,
	}
}

// PaymentApprovedEvent is raised when an administrator confirms a transfer
type PaymentApprovedEvent struct {
	shared.BaseDomainEvent
	PaymentID int64           `json:"pago_id"`
	UserID    int64           `json:"usuario_id"`
	Amount    decimal.Decimal `json:"monto"`
}

// EventType returns the event type name
func (e *PaymentApprovedEvent) EventType() string {
	return EventTypePaymentApproved
}

// NewPaymentApprovedEvent creates a new PaymentApprovedEvent
func NewPaymentApprovedEvent(p *Payment) *PaymentApprovedEvent {
	return &PaymentApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentApproved, aggregateTypePayment, p.ID),
		PaymentID:       p.ID,
		UserID:          p.UserID,
		Amount:          p.Amount,
	}
}

// PaymentRejectedEvent is raised when an administrator refuses a transfer
type PaymentRejectedEvent struct {
	shared.BaseDomainEvent
	PaymentID int64  `json:"pago_id"`
	UserID    int64  `json:"usuario_id"`
	Reason    string `json:"motivo"`
}

// EventType returns the event type name
func (e *PaymentRejectedEvent) EventType() string {
	return EventTypePaymentRejected
}

// NewPaymentRejectedEvent creates a new PaymentRejectedEvent
func NewPaymentRejectedEvent(p *Payment, reason string) *PaymentRejectedEvent {
	return &PaymentRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRejected, aggregateTypePayment, p.ID),
		PaymentID:       p.ID,
		UserID:          p.UserID,
		Reason:          reason,
	}
}

// AgreementCreatedEvent is raised when overdue obligations are consolidated
type AgreementCreatedEvent struct {
	shared.BaseDomainEvent
	AgreementID     int64           `json:"convenio_id"`
	UserID          int64           `json:"usuario_id"`
	PropertyID      int64           `json:"propiedad_id"`
	Total           decimal.Decimal `json:"total"`
	NumInstallments int             `json:"num_pagos"`
}

// EventType returns the event type name
func (e *AgreementCreatedEvent) EventType() string {
	return EventTypeAgreementCreated
}

// NewAgreementCreatedEvent creates a new AgreementCreatedEvent
func NewAgreementCreatedEvent(a *Agreement) *AgreementCreatedEvent {
	return &AgreementCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAgreementCreated, aggregateTypeAgreement, a.ID),
		AgreementID:     a.ID,
		UserID:          a.UserID,
		PropertyID:      a.PropertyID,
		Total:           a.TotalAmount,
		NumInstallments: a.NumInstallments,
	}
}

// AgreementCompletedEvent is raised when the last installment is paid
type AgreementCompletedEvent struct {
	shared.BaseDomainEvent
	AgreementID int64 `json:"convenio_id"`
	UserID      int64 `json:"usuario_id"`
}

// EventType returns the event type name
func (e *AgreementCompletedEvent) EventType() string {
	return EventTypeAgreementCompleted
}

// NewAgreementCompletedEvent creates a new AgreementCompletedEvent
func NewAgreementCompletedEvent(a *Agreement) *AgreementCompletedEvent {
	return &AgreementCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAgreementCompleted, aggregateTypeAgreement, a.ID),
		AgreementID:     a.ID,
		UserID:          a.UserID,
	}
}
