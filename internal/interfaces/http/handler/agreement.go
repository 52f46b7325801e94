package handler

import (
	"context"
	"net/http"

	ledgerapp "github.com/condoportal/backend/internal/application/ledger"
	"github.com/gin-gonic/gin"
)

// AgreementService is the agreement API the convenio endpoints call
type AgreementService interface {
	Quote(ctx context.Context, req ledgerapp.AgreementRequest) (*ledgerapp.AgreementQuoteResponse, error)
	Create(ctx context.Context, req ledgerapp.AgreementRequest) (*ledgerapp.AgreementResult, error)
	GetAgreement(ctx context.Context, id int64) (*ledgerapp.AgreementResponse, error)
}

// AgreementHandler handles payment agreement endpoints
type AgreementHandler struct {
	BaseHandler
	service AgreementService
}

// NewAgreementHandler creates a new AgreementHandler
func NewAgreementHandler(service AgreementService) *AgreementHandler {
	return &AgreementHandler{service: service}
}

// Quote handles POST /convenios/cotizar
func (h *AgreementHandler) Quote(c *gin.Context) {
	var req ledgerapp.AgreementRequest
	if !h.BindJSON(c, &req) {
		return
	}

	quote, err := h.service.Quote(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, AgreementQuoteEnvelope{Success: true, AgreementQuoteResponse: quote})
}

// Create handles POST /convenios/full
func (h *AgreementHandler) Create(c *gin.Context) {
	var req ledgerapp.AgreementRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, AgreementCreatedEnvelope{
		Success:         true,
		Message:         "Convenio creado",
		AgreementResult: result,
	})
}

// Get handles GET /convenios/:id
func (h *AgreementHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "ID de convenio inválido")
		return
	}

	agreement, err := h.service.GetAgreement(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, AgreementEnvelope{Success: true, Agreement: agreement})
}
