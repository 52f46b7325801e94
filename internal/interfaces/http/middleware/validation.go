package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/condoportal/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// SetupValidator makes gin's validator report JSON (or form) field names
// and validate decimal amounts as numbers
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// FormatValidationErrors formats validation errors into a standard response
func FormatValidationErrors(err error, requestID string) dto.Response {
	var details []dto.ValidationDetail

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			details = append(details, dto.ValidationDetail{
				Field:   e.Field(),
				Message: getValidationMessage(e),
			})
		}
	}

	return dto.NewValidationErrorResponse("Datos de entrada inválidos", requestID, details)
}

// HandleValidationError writes a 400 validation error response. A body cut
// by BodyLimit's reader is answered with 413 instead.
func HandleValidationError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponseWithRequestID(dto.ErrCodeTooLarge,
			"El cuerpo de la solicitud excede el tamaño permitido", getRequestID(c)))
		return
	}
	c.JSON(http.StatusBadRequest, FormatValidationErrors(err, getRequestID(c)))
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "Este campo es obligatorio"
	case "min":
		if e.Type().Kind() == reflect.String {
			return "Debe tener al menos " + e.Param() + " caracteres"
		}
		if e.Type().Kind() == reflect.Slice {
			return "Debe tener al menos " + e.Param() + " elementos"
		}
		return "Debe ser al menos " + e.Param()
	case "max":
		if e.Type().Kind() == reflect.String {
			return "Debe tener como máximo " + e.Param() + " caracteres"
		}
		return "Debe ser como máximo " + e.Param()
	case "oneof":
		return "Debe ser uno de: " + e.Param()
	case "gt":
		return "Debe ser mayor a " + e.Param()
	case "gte":
		return "Debe ser mayor o igual a " + e.Param()
	case "datetime":
		return "Formato de fecha inválido, use " + e.Param()
	default:
		return "Valor inválido"
	}
}
