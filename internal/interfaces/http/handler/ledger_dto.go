package handler

import (
	ledgerapp "github.com/condoportal/backend/internal/application/ledger"
	"github.com/condoportal/backend/internal/interfaces/http/dto"
)

// The portal's clients read named top-level keys ("pago", "multas",
// "resumen") rather than the data envelope, so ledger endpoints answer with
// these shapes. Errors still use dto.Response.

// PaymentEnvelope wraps one general-ledger payment
type PaymentEnvelope struct {
	Success bool                      `json:"success"`
	Message string                    `json:"message,omitempty"`
	Payment ledgerapp.PaymentResponse `json:"pago"`
}

// PaymentDetailEnvelope wraps a payment with its linked rows
type PaymentDetailEnvelope struct {
	Success bool                             `json:"success"`
	Payment *ledgerapp.PaymentDetailResponse `json:"pago"`
}

// PaymentListEnvelope wraps a page of payments
type PaymentListEnvelope struct {
	Success  bool                        `json:"success"`
	Payments []ledgerapp.PaymentResponse `json:"pagos"`
	Meta     dto.Meta                    `json:"meta"`
}

// CheckoutEnvelope wraps a checkout outcome
type CheckoutEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	*ledgerapp.CheckoutResult
}

// ReviewEnvelope wraps a review outcome
type ReviewEnvelope struct {
	Success bool `json:"success"`
	*ledgerapp.ReviewResult
}

// MaintenanceEnvelope wraps the rows written by a maintenance record
type MaintenanceEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	*ledgerapp.RecordMaintenanceResult
}

// MaintenanceListEnvelope wraps maintenance rows
type MaintenanceListEnvelope struct {
	Success bool                            `json:"success"`
	Rows    []ledgerapp.MaintenanceResponse `json:"mantenimiento"`
}

// FinesEnvelope wraps a list of fines
type FinesEnvelope struct {
	Success bool                     `json:"success"`
	Fines   []ledgerapp.FineResponse `json:"multas"`
}

// InstallmentEnvelope wraps an updated installment and its agreement status
type InstallmentEnvelope struct {
	Success bool `json:"success"`
	*ledgerapp.InstallmentUpdateResult
}

// AgreementCreatedEnvelope wraps a created agreement and its summary
type AgreementCreatedEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	*ledgerapp.AgreementResult
}

// AgreementQuoteEnvelope wraps an agreement preview
type AgreementQuoteEnvelope struct {
	Success bool `json:"success"`
	*ledgerapp.AgreementQuoteResponse
}

// AgreementEnvelope wraps one agreement
type AgreementEnvelope struct {
	Success   bool                         `json:"success"`
	Agreement *ledgerapp.AgreementResponse `json:"convenio"`
}

// StatementEnvelope is the income statement body: year, income and meta at
// the top level next to success
type StatementEnvelope struct {
	Success bool `json:"success"`
	ledgerapp.StatementResponse
}
