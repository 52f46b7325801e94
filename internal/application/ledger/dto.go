package ledger

import (
	"time"

	"github.com/condoportal/backend/internal/domain/community"
	"github.com/condoportal/backend/internal/domain/ledger"
	"github.com/shopspring/decimal"
)

// ==================== Intake DTOs ====================

// CreatePaymentRequest records a general-ledger payment (POST /api/pagos)
type CreatePaymentRequest struct {
	UserID      int64           `json:"usuario_id" binding:"required,gt=0"`
	ReferenceID string          `json:"referencia_id" binding:"max=100"`
	Type        string          `json:"tipo" binding:"required,oneof=mantenimiento multas convenio reserva mixto"`
	Amount      decimal.Decimal `json:"monto"`
	Method      string          `json:"metodo_pago" binding:"required,oneof=tarjeta transferencia"`
	Status      string          `json:"estado" binding:"omitempty,oneof=pendiente procesando completado rechazado cancelada"`
	Notes       string          `json:"notas" binding:"max=500"`
}

// MaintenanceItem is one period sent to POST /api/pagos/mantenimiento
type MaintenanceItem struct {
	Month  int             `json:"month" binding:"required,min=1,max=12"`
	Year   int             `json:"year" binding:"required,min=2000,max=2100"`
	Amount decimal.Decimal `json:"amount"`
}

// RecordMaintenanceRequest writes per-period maintenance rows for the
// property the user is assigned to
type RecordMaintenanceRequest struct {
	UserID      int64             `json:"userId" binding:"required,gt=0"`
	Items       []MaintenanceItem `json:"items" binding:"required,min=1,dive"`
	PaymentID   *int64            `json:"pago_id"`
	ReferenceID string            `json:"referencia_id"`
	Status      string            `json:"estado" binding:"omitempty,oneof=pendiente procesando pagado"`
	DueDay      int               `json:"due_day" binding:"omitempty,min=1,max=31"`
}

// RecordMaintenanceResult reports the rows written
type RecordMaintenanceResult struct {
	PropertyID int64                 `json:"propiedad_id"`
	Rows       []MaintenanceResponse `json:"registros"`
}

// UpdateFinesRequest changes the status of several fines (PATCH /api/multas)
type UpdateFinesRequest struct {
	IDs       []int64 `json:"ids" binding:"required,min=1"`
	Status    string  `json:"estado" binding:"required,oneof=pendiente procesando pagada cancelada"`
	PaymentID *int64  `json:"pago_id"`
}

// UpdateInstallmentRequest changes the status of one agreement installment
// (PATCH /api/convenios/pagos/:id). PaidAt accepts a date or an RFC 3339 timestamp.
type UpdateInstallmentRequest struct {
	Status    string  `json:"estado" binding:"required,oneof=pendiente procesando pagado"`
	PaymentID *int64  `json:"pago_id"`
	PaidAt    *string `json:"fecha_pago"`
}

// CheckoutCategories selects what a checkout settles
type CheckoutCategories struct {
	Maintenance    bool    `json:"mantenimiento"`
	AdvanceMonths  int     `json:"meses_adelantados" binding:"min=0,max=24"`
	FineIDs        []int64 `json:"multas_ids"`
	InstallmentIDs []int64 `json:"cuotas_ids"`
}

// CheckoutRequest settles several obligations with one payment (POST /api/pagos/checkout)
type CheckoutRequest struct {
	UserID     int64              `json:"usuario_id" binding:"required,gt=0"`
	Method     string             `json:"metodo_pago" binding:"required,oneof=tarjeta transferencia"`
	Amount     decimal.Decimal    `json:"monto"`
	Categories CheckoutCategories `json:"categorias"`
	Notes      string             `json:"notas" binding:"max=500"`
}

// CheckoutResult is the outcome of a checkout
type CheckoutResult struct {
	Payment             PaymentResponse `json:"pago"`
	ReferenceID         string          `json:"referencia"`
	Total               decimal.Decimal `json:"total"`
	Periods             []string        `json:"periodos"`
	FineIDs             []int64         `json:"multas_ids"`
	InstallmentIDs      []int64         `json:"cuotas_ids"`
	CompletedAgreements []int64         `json:"convenios_completados,omitempty"`
}

// ReviewRequest approves or rejects a payment (PATCH /api/pagos/:id/estado)
type ReviewRequest struct {
	Status string `json:"estado" binding:"required,oneof=completado rechazado"`
	Reason string `json:"motivo" binding:"max=500"`
}

// ReviewResult reports the payment and how many linked rows followed it
type ReviewResult struct {
	Payment             PaymentResponse `json:"pago"`
	Maintenance         int             `json:"mantenimiento_actualizados"`
	Fines               int             `json:"multas_actualizadas"`
	Installments        int             `json:"cuotas_actualizadas"`
	CompletedAgreements []int64         `json:"convenios_completados,omitempty"`
}

// PaymentListQuery filters GET /api/pagos
type PaymentListQuery struct {
	UserID   *int64 `form:"usuario_id"`
	Status   string `form:"estado" binding:"omitempty,oneof=pendiente procesando completado rechazado cancelada"`
	Method   string `form:"metodo_pago" binding:"omitempty,oneof=tarjeta transferencia"`
	Type     string `form:"tipo" binding:"omitempty,oneof=mantenimiento multas convenio reserva mixto"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// MaintenanceListQuery filters GET /api/pagos/mantenimiento
type MaintenanceListQuery struct {
	UserID int64 `form:"usuario_id" binding:"required,gt=0"`
	Year   *int  `form:"anio" binding:"omitempty,min=2000,max=2100"`
}

// FineListQuery filters GET /api/multas
type FineListQuery struct {
	UserID *int64 `form:"usuario_id"`
	Status string `form:"estado" binding:"omitempty,oneof=pendiente procesando pagada cancelada"`
}

// ==================== Agreement DTOs ====================

// ClientInstallment is an installment line sent by the client. Only the
// count and the due dates are honored; amounts are always recomputed.
type ClientInstallment struct {
	Number  int             `json:"numero_pago" binding:"required,min=1"`
	Amount  decimal.Decimal `json:"monto"`
	DueDate string          `json:"fecha_vencimiento" binding:"required"`
}

// AgreementRequest prices or creates an agreement
// (POST /api/convenios/cotizar, POST /api/convenios/full)
type AgreementRequest struct {
	UserID           int64               `json:"usuario_id" binding:"required,gt=0"`
	MonthsToInclude  int                 `json:"meses_incluir" binding:"min=0,max=120"`
	NumInstallments  int                 `json:"num_pagos" binding:"required,min=1,max=60"`
	FirstDueDate     string              `json:"fecha_inicio_cuotas"`
	SurchargePercent decimal.Decimal     `json:"recargo_percent"`
	FineIDs          []int64             `json:"multas_ids"`
	Installments     []ClientInstallment `json:"cuotas" binding:"omitempty,dive"`
}

// AgreementQuoteResponse previews an agreement without writing it
type AgreementQuoteResponse struct {
	PropertyID   int64                      `json:"propiedad_id"`
	Base         decimal.Decimal            `json:"base"`
	Surcharge    decimal.Decimal            `json:"recargo"`
	Total        decimal.Decimal            `json:"total"`
	Periods      []ledger.MaintenanceCharge `json:"periodos"`
	Fines        []ledger.FineCharge        `json:"multas"`
	Installments []ledger.InstallmentPlan   `json:"cuotas"`
	Estimated    int                        `json:"periodos_estimados"`
}

// AgreementSummary is the resumen block of POST /api/convenios/full
type AgreementSummary struct {
	Total             decimal.Decimal `json:"total"`
	Base              decimal.Decimal `json:"base"`
	Surcharge         decimal.Decimal `json:"recargo"`
	CancelledExisting int             `json:"cancelados_existentes"`
	CreatedCancelled  int             `json:"creados_cancelado"`
	CancelledFines    int             `json:"multas_canceladas"`
}

// AgreementResult is the outcome of creating an agreement
type AgreementResult struct {
	Agreement AgreementResponse `json:"convenio"`
	Summary   AgreementSummary  `json:"resumen"`
}

// ==================== Response DTOs ====================

// PaymentResponse is a general-ledger payment
type PaymentResponse struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"usuario_id"`
	ReferenceID string          `json:"referencia_id"`
	Type        string          `json:"tipo"`
	Amount      decimal.Decimal `json:"monto"`
	Method      string          `json:"metodo_pago"`
	Status      string          `json:"estado"`
	Notes       string          `json:"notas"`
	PaidAt      time.Time       `json:"fecha_pago"`
	ReviewedAt  *time.Time      `json:"fecha_revision,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// PaymentDetailResponse is a payment with the rows it settled
type PaymentDetailResponse struct {
	PaymentResponse
	Maintenance  []MaintenanceResponse `json:"mantenimiento"`
	Fines        []FineResponse        `json:"multas"`
	Installments []InstallmentResponse `json:"cuotas"`
}

// MaintenanceResponse is one maintenance period row
type MaintenanceResponse struct {
	ID             int64           `json:"id"`
	PropertyID     int64           `json:"propiedad_id"`
	Year           int             `json:"periodo_anio"`
	Month          int             `json:"periodo_mes"`
	Period         string          `json:"periodo"`
	Amount         decimal.Decimal `json:"monto"`
	Status         string          `json:"estado"`
	PaidAt         *time.Time      `json:"fecha_pago,omitempty"`
	DueDate        *time.Time      `json:"fecha_limite,omitempty"`
	PaymentID      *int64          `json:"pago_id,omitempty"`
	Classification string          `json:"clasificacion,omitempty"`
}

// FineResponse is a fine with the property it is attributed to
type FineResponse struct {
	ID         int64           `json:"id"`
	UserID     int64           `json:"usuario_id"`
	PropertyID *int64          `json:"propiedad_id"`
	Amount     decimal.Decimal `json:"monto"`
	Reason     string          `json:"motivo"`
	Status     string          `json:"estado"`
	DueDate    time.Time       `json:"fecha_vencimiento"`
	IssuedAt   *time.Time      `json:"fecha_emision,omitempty"`
	PaidAt     *time.Time      `json:"fecha_pago,omitempty"`
	PaymentID  *int64          `json:"pago_id,omitempty"`
}

// InstallmentResponse is one agreement installment
type InstallmentResponse struct {
	ID          int64           `json:"id"`
	AgreementID int64           `json:"convenio_id"`
	Number      int             `json:"numero_pago"`
	Amount      decimal.Decimal `json:"monto"`
	DueDate     time.Time       `json:"fecha_vencimiento"`
	Status      string          `json:"estado"`
	PaymentID   *int64          `json:"pago_id,omitempty"`
	PaidAt      *time.Time      `json:"fecha_pago,omitempty"`
}

// AgreementResponse is an agreement with its installments
type AgreementResponse struct {
	ID               int64                    `json:"id"`
	UserID           int64                    `json:"usuario_id"`
	PropertyID       int64                    `json:"propiedad_id"`
	MonthsIncluded   int                      `json:"meses_incluidos"`
	NumInstallments  int                      `json:"num_pagos"`
	SurchargePercent decimal.Decimal          `json:"recargo_percent"`
	BaseAmount       decimal.Decimal          `json:"monto_base"`
	SurchargeAmount  decimal.Decimal          `json:"monto_recargo"`
	TotalAmount      decimal.Decimal          `json:"monto_total"`
	Status           string                   `json:"estado"`
	FirstDueDate     time.Time                `json:"fecha_inicio_cuotas"`
	Detail           ledger.AgreementSnapshot `json:"detalle"`
	Installments     []InstallmentResponse    `json:"cuotas"`
	CreatedAt        time.Time                `json:"created_at"`
}

// ==================== Statement DTOs ====================

// IncomeSeries holds the twelve monthly amounts of every category
type IncomeSeries struct {
	Maintenance []float64 `json:"maintenance"`
	Recovered   []float64 `json:"recovered"`
	Advance     []float64 `json:"advance"`
	Fines       []float64 `json:"fines"`
	Agreements  []float64 `json:"agreements"`
	CommonAreas []float64 `json:"commonAreas"`
	Others      []float64 `json:"others"`
	Annualities []float64 `json:"annualities"`
}

// StatementMeta carries the advance payment counts and degraded categories
type StatementMeta struct {
	AdvanceCount []int    `json:"advanceCount"`
	Degraded     []string `json:"degraded,omitempty"`
}

// StatementResponse is the body of GET /api/estado-resultados
type StatementResponse struct {
	Year   int           `json:"year"`
	Income IncomeSeries  `json:"income"`
	Meta   StatementMeta `json:"meta"`
}

// ==================== Mappers ====================

// ToPaymentResponse converts a domain payment
func ToPaymentResponse(p *ledger.Payment) PaymentResponse {
	return PaymentResponse{
		ID:          p.ID,
		UserID:      p.UserID,
		ReferenceID: p.ReferenceID,
		Type:        p.Type.String(),
		Amount:      p.Amount,
		Method:      p.Method.String(),
		Status:      p.Status.String(),
		Notes:       p.Notes,
		PaidAt:      p.PaidAt,
		ReviewedAt:  p.ReviewedAt,
		CreatedAt:   p.CreatedAt,
	}
}

// ToPaymentResponses converts a page of payments
func ToPaymentResponses(payments []ledger.Payment) []PaymentResponse {
	out := make([]PaymentResponse, len(payments))
	for i := range payments {
		out[i] = ToPaymentResponse(&payments[i])
	}
	return out
}

// ToMaintenanceResponse converts a maintenance row and derives its classification
func ToMaintenanceResponse(m *ledger.MaintenancePayment) MaintenanceResponse {
	resp := MaintenanceResponse{
		ID:         m.ID,
		PropertyID: m.PropertyID,
		Year:       m.Period.Year,
		Month:      m.Period.Month,
		Period:     m.Period.String(),
		Amount:     m.Amount,
		Status:     m.Status.String(),
		PaidAt:     m.PaidAt,
		DueDate:    m.DueDate,
		PaymentID:  m.PaymentID,
	}
	if class, ok := m.Classification(); ok {
		resp.Classification = class.String()
	}
	return resp
}

// ToMaintenanceResponses converts maintenance rows
func ToMaintenanceResponses(rows []ledger.MaintenancePayment) []MaintenanceResponse {
	out := make([]MaintenanceResponse, len(rows))
	for i := range rows {
		out[i] = ToMaintenanceResponse(&rows[i])
	}
	return out
}

// ToFineResponse converts a fine. The property is resolved from the
// assignment history, read in loc, when the fine has none of its own.
func ToFineResponse(f *ledger.Fine, assignments []community.Assignment, loc *time.Location) FineResponse {
	resp := FineResponse{
		ID:        f.ID,
		UserID:    f.UserID,
		Amount:    f.Amount,
		Reason:    f.Reason,
		Status:    f.Status.String(),
		DueDate:   f.DueDate,
		IssuedAt:  f.IssuedAt,
		PaidAt:    f.PaidAt,
		PaymentID: f.PaymentID,
	}
	if prop, ok := f.AttributedProperty(assignments, loc); ok {
		resp.PropertyID = &prop
	}
	return resp
}

// ToInstallmentResponse converts an installment
func ToInstallmentResponse(i *ledger.Installment) InstallmentResponse {
	return InstallmentResponse{
		ID:          i.ID,
		AgreementID: i.AgreementID,
		Number:      i.Number,
		Amount:      i.Amount,
		DueDate:     i.DueDate,
		Status:      i.Status.String(),
		PaymentID:   i.PaymentID,
		PaidAt:      i.PaidAt,
	}
}

// ToInstallmentResponses converts installments
func ToInstallmentResponses(items []ledger.Installment) []InstallmentResponse {
	out := make([]InstallmentResponse, len(items))
	for i := range items {
		out[i] = ToInstallmentResponse(&items[i])
	}
	return out
}

// ToAgreementResponse converts an agreement with its installments
func ToAgreementResponse(a *ledger.Agreement) AgreementResponse {
	return AgreementResponse{
		ID:               a.ID,
		UserID:           a.UserID,
		PropertyID:       a.PropertyID,
		MonthsIncluded:   a.MonthsIncluded,
		NumInstallments:  a.NumInstallments,
		SurchargePercent: a.SurchargePercent,
		BaseAmount:       a.BaseAmount,
		SurchargeAmount:  a.SurchargeAmount,
		TotalAmount:      a.TotalAmount,
		Status:           a.Status.String(),
		FirstDueDate:     a.FirstDueDate,
		Detail:           a.Snapshot,
		Installments:     ToInstallmentResponses(a.Installments),
		CreatedAt:        a.CreatedAt,
	}
}

// ToStatementResponse flattens an income statement into the response arrays
func ToStatementResponse(st *ledger.IncomeStatement) StatementResponse {
	resp := StatementResponse{
		Year: st.Year,
		Income: IncomeSeries{
			Maintenance: st.Get(ledger.CategoryMaintenance).Floats(),
			Recovered:   st.Get(ledger.CategoryRecovered).Floats(),
			Advance:     st.Get(ledger.CategoryAdvance).Floats(),
			Fines:       st.Get(ledger.CategoryFines).Floats(),
			Agreements:  st.Get(ledger.CategoryAgreements).Floats(),
			CommonAreas: st.Get(ledger.CategoryCommonAreas).Floats(),
			Others:      st.Get(ledger.CategoryOthers).Floats(),
			Annualities: st.Get(ledger.CategoryAnnualities).Floats(),
		},
		Meta: StatementMeta{AdvanceCount: st.AdvanceCount[:]},
	}
	for _, c := range st.Degraded {
		resp.Meta.Degraded = append(resp.Meta.Degraded, string(c))
	}
	return resp
}
