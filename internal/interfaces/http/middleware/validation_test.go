package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/condoportal/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type checkoutLike struct {
	UserID int64           `json:"usuario_id" binding:"required,gt=0"`
	Method string          `json:"metodo_pago" binding:"required,oneof=tarjeta transferencia"`
	Amount decimal.Decimal `json:"monto" binding:"gt=0"`
}

func validationRouter() *gin.Engine {
	SetupValidator()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/test", func(c *gin.Context) {
		var req checkoutLike
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})
	return router
}

func TestHandleValidationError(t *testing.T) {
	t.Run("reports JSON field names", func(t *testing.T) {
		body := strings.NewReader(`{"metodo_pago":"efectivo","monto":"0"}`)
		req := httptest.NewRequest("POST", "/test", body)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(RequestIDKey, "req-1")
		w := httptest.NewRecorder()
		validationRouter().ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.Equal(t, "Datos de entrada inválidos", resp.Message)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.Equal(t, "req-1", resp.Error.RequestID)

		fields := map[string]string{}
		for _, d := range resp.Error.Details {
			fields[d.Field] = d.Message
		}
		assert.Equal(t, "Este campo es obligatorio", fields["usuario_id"])
		assert.Equal(t, "Debe ser uno de: tarjeta transferencia", fields["metodo_pago"])
		assert.Equal(t, "Debe ser mayor a 0", fields["monto"])
	})

	t.Run("accepts a valid body", func(t *testing.T) {
		body := strings.NewReader(`{"usuario_id":5,"metodo_pago":"tarjeta","monto":"950.00"}`)
		req := httptest.NewRequest("POST", "/test", body)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		validationRouter().ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("malformed JSON has no details", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/test", strings.NewReader(`{`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		validationRouter().ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Empty(t, resp.Error.Details)
	})
}
