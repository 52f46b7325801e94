// Package ledger models the community's money flows: the general payment
// ledger, the per-period maintenance ledger, fines and payment agreements.
package ledger

// PaymentStatus is the status of a general-ledger payment (pagos.estado)
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pendiente"
	PaymentStatusProcessing PaymentStatus = "procesando" // transfer awaiting verification
	PaymentStatusCompleted  PaymentStatus = "completado"
	PaymentStatusRejected   PaymentStatus = "rechazado"
	PaymentStatusCancelled  PaymentStatus = "cancelada"
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusProcessing, PaymentStatusCompleted,
		PaymentStatusRejected, PaymentStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// CanReview returns true if an administrator can approve or reject the payment
func (s PaymentStatus) CanReview() bool {
	return s == PaymentStatusProcessing || s == PaymentStatusPending
}

// IsTerminal returns true if the payment can no longer change
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusRejected || s == PaymentStatusCancelled
}

// MaintenanceStatus is the status of a maintenance period row
type MaintenanceStatus string

const (
	MaintenanceStatusPending    MaintenanceStatus = "pendiente"
	MaintenanceStatusProcessing MaintenanceStatus = "procesando"
	MaintenanceStatusPaid       MaintenanceStatus = "pagado"
	MaintenanceStatusCancelled  MaintenanceStatus = "cancelada" // superseded by an agreement
)

// IsValid checks if the status is a valid MaintenanceStatus
func (s MaintenanceStatus) IsValid() bool {
	switch s {
	case MaintenanceStatusPending, MaintenanceStatusProcessing, MaintenanceStatusPaid, MaintenanceStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of MaintenanceStatus
func (s MaintenanceStatus) String() string {
	return string(s)
}

// IsSettled returns true when the period can no longer be paid again
func (s MaintenanceStatus) IsSettled() bool {
	return s == MaintenanceStatusPaid || s == MaintenanceStatusProcessing || s == MaintenanceStatusCancelled
}

// FineStatus is the status of a fine (multas.estado)
type FineStatus string

const (
	FineStatusPending    FineStatus = "pendiente"
	FineStatusProcessing FineStatus = "procesando"
	FineStatusPaid       FineStatus = "pagada"
	FineStatusCancelled  FineStatus = "cancelada"
)

// IsValid checks if the status is a valid FineStatus
func (s FineStatus) IsValid() bool {
	switch s {
	case FineStatusPending, FineStatusProcessing, FineStatusPaid, FineStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of FineStatus
func (s FineStatus) String() string {
	return string(s)
}

// InstallmentStatus is the status of an agreement installment
type InstallmentStatus string

const (
	InstallmentStatusPending    InstallmentStatus = "pendiente"
	InstallmentStatusProcessing InstallmentStatus = "procesando"
	InstallmentStatusPaid       InstallmentStatus = "pagado"
)

// IsValid checks if the status is a valid InstallmentStatus
func (s InstallmentStatus) IsValid() bool {
	switch s {
	case InstallmentStatusPending, InstallmentStatusProcessing, InstallmentStatusPaid:
		return true
	}
	return false
}

// String returns the string representation of InstallmentStatus
func (s InstallmentStatus) String() string {
	return string(s)
}

// AgreementStatus is the status of a payment agreement (convenio)
type AgreementStatus string

const (
	AgreementStatusActive    AgreementStatus = "activo"
	AgreementStatusCompleted AgreementStatus = "completado"
	AgreementStatusCancelled AgreementStatus = "cancelado"
)

// IsValid checks if the status is a valid AgreementStatus
func (s AgreementStatus) IsValid() bool {
	switch s {
	case AgreementStatusActive, AgreementStatusCompleted, AgreementStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of AgreementStatus
func (s AgreementStatus) String() string {
	return string(s)
}

// PaymentMethod is how the resident paid
type PaymentMethod string

const (
	PaymentMethodCard     PaymentMethod = "tarjeta"
	PaymentMethodTransfer PaymentMethod = "transferencia"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	return m == PaymentMethodCard || m == PaymentMethodTransfer
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// InitialPaymentStatus is the general-ledger status a new payment starts in.
// Card payments are confirmed by the provider, transfers wait for an administrator.
func (m PaymentMethod) InitialPaymentStatus() PaymentStatus {
	if m == PaymentMethodCard {
		return PaymentStatusCompleted
	}
	return PaymentStatusProcessing
}

// MaintenanceStatus is the status settled maintenance periods take for this method
func (m PaymentMethod) MaintenanceStatus() MaintenanceStatus {
	if m == PaymentMethodCard {
		return MaintenanceStatusPaid
	}
	return MaintenanceStatusProcessing
}

// FineStatus is the status settled fines take for this method
func (m PaymentMethod) FineStatus() FineStatus {
	if m == PaymentMethodCard {
		return FineStatusPaid
	}
	return FineStatusProcessing
}

// InstallmentStatus is the status settled installments take for this method
func (m PaymentMethod) InstallmentStatus() InstallmentStatus {
	if m == PaymentMethodCard {
		return InstallmentStatusPaid
	}
	return InstallmentStatusProcessing
}

// PaymentType is the category of a general-ledger payment (pagos.tipo)
type PaymentType string

const (
	PaymentTypeMaintenance PaymentType = "mantenimiento"
	PaymentTypeFines       PaymentType = "multas"
	PaymentTypeAgreement   PaymentType = "convenio"
	PaymentTypeReservation PaymentType = "reserva"
	PaymentTypeMixed       PaymentType = "mixto"
)

// IsValid checks if the payment type is valid
func (t PaymentType) IsValid() bool {
	switch t {
	case PaymentTypeMaintenance, PaymentTypeFines, PaymentTypeAgreement, PaymentTypeReservation, PaymentTypeMixed:
		return true
	}
	return false
}

// String returns the string representation of PaymentType
func (t PaymentType) String() string {
	return string(t)
}

// Code returns the two-letter code used in transfer reference codes
func (t PaymentType) Code() string {
	switch t {
	case PaymentTypeMaintenance:
		return "MA"
	case PaymentTypeFines:
		return "MU"
	case PaymentTypeAgreement:
		return "CV"
	case PaymentTypeReservation:
		return "RE"
	}
	return "MX"
}
