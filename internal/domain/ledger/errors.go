package ledger

import "github.com/condoportal/backend/internal/domain/shared"

var (
	ErrInvalidAmount        = shared.NewDomainError("INVALID_AMOUNT", "El monto debe ser mayor a cero")
	ErrInvalidPeriod        = shared.NewDomainError("INVALID_PERIOD", "Periodo inválido")
	ErrInvalidStatus        = shared.NewDomainError("INVALID_STATUS", "Estado inválido")
	ErrInvalidMethod        = shared.NewDomainError("INVALID_PAYMENT_METHOD", "Método de pago inválido")
	ErrInvalidPaymentType   = shared.NewDomainError("INVALID_PAYMENT_TYPE", "Tipo de pago inválido")
	ErrInvalidInstallments  = shared.NewDomainError("INVALID_INSTALLMENTS", "El número de pagos debe ser mayor a cero")
	ErrInvalidSurcharge     = shared.NewDomainError("INVALID_SURCHARGE", "El recargo no puede ser negativo")
	ErrNothingToSettle      = shared.NewDomainError("NOTHING_SELECTED", "Seleccione al menos un concepto a pagar")
	ErrAmountMismatch       = shared.NewDomainError("AMOUNT_MISMATCH", "El monto no coincide con los conceptos seleccionados")
	ErrPeriodAlreadySettled = shared.NewDomainError("PERIOD_ALREADY_SETTLED", "El periodo ya fue pagado o está en proceso")
	ErrAlreadySettled       = shared.NewDomainError("ALREADY_SETTLED", "La multa o cuota ya fue pagada o está en proceso")
	ErrReferenceMismatch    = shared.NewDomainError("REFERENCE_MISMATCH", "La referencia no corresponde al pago indicado")
	ErrPropertyNotFound     = shared.NewDomainError("PROPERTY_NOT_FOUND", "No se encontró una propiedad asignada a su usuario, contacte a la administración")
	ErrPaymentNotFound      = shared.NewDomainError("PAYMENT_NOT_FOUND", "Pago no encontrado")
	ErrFineNotFound         = shared.NewDomainError("FINE_NOT_FOUND", "Multa no encontrada")
	ErrInstallmentNotFound  = shared.NewDomainError("INSTALLMENT_NOT_FOUND", "Cuota de convenio no encontrada")
	ErrAgreementNotFound    = shared.NewDomainError("AGREEMENT_NOT_FOUND", "Convenio no encontrado")
	ErrNotReviewable        = shared.NewDomainError("INVALID_STATE", "El pago ya fue revisado")
)
