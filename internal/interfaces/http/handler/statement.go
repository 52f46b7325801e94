package handler

import (
	"context"
	"net/http"
	"time"

	ledgerapp "github.com/condoportal/backend/internal/application/ledger"
	"github.com/condoportal/backend/internal/domain/ledger"
	"github.com/gin-gonic/gin"
)

// StatementBuilder builds the yearly income statement
type StatementBuilder interface {
	Build(ctx context.Context, year int, condominiumID *int64) (*ledger.IncomeStatement, error)
}

// StatementQuery is the query string of GET /estado-resultados.
// Year defaults to the current year in the ledger timezone.
type StatementQuery struct {
	Year          int    `form:"year" binding:"omitempty,min=2000,max=2100"`
	CondominiumID *int64 `form:"condominioId" binding:"omitempty,gt=0"`
}

// StatementHandler serves the income statement
type StatementHandler struct {
	BaseHandler
	builder StatementBuilder
	loc     *time.Location
	now     func() time.Time
}

// NewStatementHandler creates a new StatementHandler
func NewStatementHandler(builder StatementBuilder, loc *time.Location) *StatementHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &StatementHandler{builder: builder, loc: loc, now: time.Now}
}

// Get handles GET /estado-resultados
func (h *StatementHandler) Get(c *gin.Context) {
	var q StatementQuery
	if !h.BindQuery(c, &q) {
		return
	}
	if q.Year == 0 {
		q.Year = h.now().In(h.loc).Year()
	}

	st, err := h.builder.Build(c.Request.Context(), q.Year, q.CondominiumID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, StatementEnvelope{
		Success:           true,
		StatementResponse: ledgerapp.ToStatementResponse(st),
	})
}
