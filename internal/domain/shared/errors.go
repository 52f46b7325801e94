package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target carries the same code, so sentinel errors
// match regardless of the message they were raised with.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Recurso no encontrado")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "El recurso ya existe")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Datos de entrada inválidos")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "El recurso fue modificado por otro proceso")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operación no permitida en el estado actual")
	ErrDuplicateRequest    = NewDomainError("DUPLICATE_REQUEST", "La solicitud ya fue procesada")
)
