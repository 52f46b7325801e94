package handler

import (
	"context"
	"net/http"

	ledgerapp "github.com/condoportal/backend/internal/application/ledger"
	"github.com/condoportal/backend/internal/domain/shared"
	"github.com/condoportal/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// PaymentService is the intake API the payment endpoints call
type PaymentService interface {
	CreatePayment(ctx context.Context, req ledgerapp.CreatePaymentRequest) (*ledgerapp.PaymentResponse, error)
	RecordMaintenance(ctx context.Context, req ledgerapp.RecordMaintenanceRequest) (*ledgerapp.RecordMaintenanceResult, error)
	UpdateFines(ctx context.Context, req ledgerapp.UpdateFinesRequest) ([]ledgerapp.FineResponse, error)
	UpdateInstallment(ctx context.Context, id int64, req ledgerapp.UpdateInstallmentRequest) (*ledgerapp.InstallmentUpdateResult, error)
	Checkout(ctx context.Context, req ledgerapp.CheckoutRequest) (*ledgerapp.CheckoutResult, error)
	Review(ctx context.Context, id int64, req ledgerapp.ReviewRequest) (*ledgerapp.ReviewResult, error)
	ListPayments(ctx context.Context, q ledgerapp.PaymentListQuery) (shared.Paginated[ledgerapp.PaymentResponse], error)
	GetPayment(ctx context.Context, id int64) (*ledgerapp.PaymentDetailResponse, error)
	ListMaintenance(ctx context.Context, q ledgerapp.MaintenanceListQuery) ([]ledgerapp.MaintenanceResponse, error)
	ListFines(ctx context.Context, q ledgerapp.FineListQuery) ([]ledgerapp.FineResponse, error)
}

// PaymentHandler handles the payment, fine and installment endpoints
type PaymentHandler struct {
	BaseHandler
	service PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(service PaymentService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

// ListPayments handles GET /pagos
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	var q ledgerapp.PaymentListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	page, err := h.service.ListPayments(c.Request.Context(), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, PaymentListEnvelope{
		Success:  true,
		Payments: page.Items,
		Meta: dto.Meta{
			Total:      page.Total,
			Page:       page.Page,
			PageSize:   page.PageSize,
			TotalPages: page.TotalPages,
		},
	})
}

// CreatePayment handles POST /pagos
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	var req ledgerapp.CreatePaymentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	payment, err := h.service.CreatePayment(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, PaymentEnvelope{Success: true, Message: "Pago registrado", Payment: *payment})
}

// GetPayment handles GET /pagos/:id
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "ID de pago inválido")
		return
	}

	detail, err := h.service.GetPayment(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, PaymentDetailEnvelope{Success: true, Payment: detail})
}

// Checkout handles POST /pagos/checkout
func (h *PaymentHandler) Checkout(c *gin.Context) {
	var req ledgerapp.CheckoutRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.Checkout(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	message := "Pago procesado correctamente"
	if result.Payment.Status == "procesando" {
		message = "Pago registrado, pendiente de verificación"
	}
	c.JSON(http.StatusCreated, CheckoutEnvelope{Success: true, Message: message, CheckoutResult: result})
}

// ReviewPayment handles PATCH /pagos/:id/estado
func (h *PaymentHandler) ReviewPayment(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "ID de pago inválido")
		return
	}

	var req ledgerapp.ReviewRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.Review(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, ReviewEnvelope{Success: true, ReviewResult: result})
}

// RecordMaintenance handles POST /pagos/mantenimiento
func (h *PaymentHandler) RecordMaintenance(c *gin.Context) {
	var req ledgerapp.RecordMaintenanceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.RecordMaintenance(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, MaintenanceEnvelope{
		Success:                 true,
		Message:                 "Pagos de mantenimiento registrados",
		RecordMaintenanceResult: result,
	})
}

// ListMaintenance handles GET /pagos/mantenimiento
func (h *PaymentHandler) ListMaintenance(c *gin.Context) {
	var q ledgerapp.MaintenanceListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	rows, err := h.service.ListMaintenance(c.Request.Context(), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, MaintenanceListEnvelope{Success: true, Rows: rows})
}

// ListFines handles GET /multas
func (h *PaymentHandler) ListFines(c *gin.Context) {
	var q ledgerapp.FineListQuery
	if !h.BindQuery(c, &q) {
		return
	}

	fines, err := h.service.ListFines(c.Request.Context(), q)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, FinesEnvelope{Success: true, Fines: fines})
}

// UpdateFines handles PATCH /multas
func (h *PaymentHandler) UpdateFines(c *gin.Context) {
	var req ledgerapp.UpdateFinesRequest
	if !h.BindJSON(c, &req) {
		return
	}

	fines, err := h.service.UpdateFines(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, FinesEnvelope{Success: true, Fines: fines})
}

// UpdateInstallment handles PATCH /convenios/pagos/:id
func (h *PaymentHandler) UpdateInstallment(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "ID de cuota inválido")
		return
	}

	var req ledgerapp.UpdateInstallmentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.UpdateInstallment(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, InstallmentEnvelope{Success: true, InstallmentUpdateResult: result})
}
