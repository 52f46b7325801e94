package models

import (
	"time"

	"github.com/condoportal/backend/internal/domain/ledger"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// PaymentModel maps pagos, the general ledger
type PaymentModel struct {
	BaseModel
	UserID      int64                `gorm:"column:usuario_id;not null;index"`
	ReferenceID string               `gorm:"column:referencia_id;type:varchar(100)"`
	Type        ledger.PaymentType   `gorm:"column:tipo;type:varchar(20);not null"`
	Amount      decimal.Decimal      `gorm:"column:monto;type:numeric(12,2);not null"`
	Method      ledger.PaymentMethod `gorm:"column:metodo_pago;type:varchar(20);not null"`
	Status      ledger.PaymentStatus `gorm:"column:estado;type:varchar(20);not null;index"`
	Notes       string               `gorm:"column:notas;type:text"`
	PaidAt      time.Time            `gorm:"column:fecha_pago;not null"`
	ReviewedAt  *time.Time           `gorm:"column:fecha_revision"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "pagos"
}

// ToDomain converts the persistence model to a domain Payment
func (m *PaymentModel) ToDomain() *ledger.Payment {
	return &ledger.Payment{
		BaseAggregateRoot: m.aggregateRoot(),
		UserID:            m.UserID,
		ReferenceID:       m.ReferenceID,
		Type:              m.Type,
		Amount:            m.Amount,
		Method:            m.Method,
		Status:            m.Status,
		Notes:             m.Notes,
		PaidAt:            m.PaidAt,
		ReviewedAt:        m.ReviewedAt,
	}
}

// PaymentModelFromDomain creates a persistence model from a domain Payment
func PaymentModelFromDomain(p *ledger.Payment) *PaymentModel {
	m := &PaymentModel{
		UserID:      p.UserID,
		ReferenceID: p.ReferenceID,
		Type:        p.Type,
		Amount:      p.Amount,
		Method:      p.Method,
		Status:      p.Status,
		Notes:       p.Notes,
		PaidAt:      p.PaidAt,
		ReviewedAt:  p.ReviewedAt,
	}
	m.FromDomainBaseEntity(p.BaseEntity)
	return m
}

// MaintenancePaymentModel maps pagos_mantenimiento
type MaintenancePaymentModel struct {
	BaseModel
	PropertyID  int64                    `gorm:"column:propiedad_id;not null;uniqueIndex:uq_mantenimiento_periodo,priority:1"`
	PeriodYear  int                      `gorm:"column:periodo_anio;not null;uniqueIndex:uq_mantenimiento_periodo,priority:2"`
	PeriodMonth int                      `gorm:"column:periodo_mes;not null;uniqueIndex:uq_mantenimiento_periodo,priority:3"`
	PaidAt      *time.Time               `gorm:"column:fecha_pago"`
	DueDate     *time.Time               `gorm:"column:fecha_limite;type:date"`
	Amount      decimal.Decimal          `gorm:"column:monto;type:numeric(12,2);not null"`
	Status      ledger.MaintenanceStatus `gorm:"column:estado;type:varchar(20);not null"`
	PaymentID   *int64                   `gorm:"column:pago_id;index"`
}

// TableName returns the table name for GORM
func (MaintenancePaymentModel) TableName() string {
	return "pagos_mantenimiento"
}

// ToDomain converts the persistence model to a domain MaintenancePayment
func (m *MaintenancePaymentModel) ToDomain() *ledger.MaintenancePayment {
	return &ledger.MaintenancePayment{
		BaseEntity: m.BaseModel.ToDomain(),
		PropertyID: m.PropertyID,
		Period:     ledger.Period{Year: m.PeriodYear, Month: m.PeriodMonth},
		PaidAt:     m.PaidAt,
		DueDate:    m.DueDate,
		Amount:     m.Amount,
		Status:     m.Status,
		PaymentID:  m.PaymentID,
	}
}

// MaintenancePaymentModelFromDomain creates a persistence model from a domain row
func MaintenancePaymentModelFromDomain(row *ledger.MaintenancePayment) *MaintenancePaymentModel {
	m := &MaintenancePaymentModel{
		PropertyID:  row.PropertyID,
		PeriodYear:  row.Period.Year,
		PeriodMonth: row.Period.Month,
		PaidAt:      row.PaidAt,
		DueDate:     row.DueDate,
		Amount:      row.Amount,
		Status:      row.Status,
		PaymentID:   row.PaymentID,
	}
	m.FromDomainBaseEntity(row.BaseEntity)
	return m
}

// FineModel maps multas. IssuedAt and PaidAt only exist on schemas at
// migration 2 or later; repositories select and write them conditionally.
type FineModel struct {
	BaseModel
	UserID     int64             `gorm:"column:usuario_id;not null;index"`
	PropertyID *int64            `gorm:"column:propiedad_id;index"`
	Amount     decimal.Decimal   `gorm:"column:monto;type:numeric(12,2);not null"`
	Reason     string            `gorm:"column:motivo;type:text"`
	Status     ledger.FineStatus `gorm:"column:estado;type:varchar(20);not null"`
	DueDate    time.Time         `gorm:"column:fecha_vencimiento;type:date;not null"`
	IssuedAt   *time.Time        `gorm:"column:fecha_emision"`
	PaidAt     *time.Time        `gorm:"column:fecha_pago"`
	PaymentID  *int64            `gorm:"column:pago_id;index"`
}

// TableName returns the table name for GORM
func (FineModel) TableName() string {
	return "multas"
}

// ToDomain converts the persistence model to a domain Fine
func (m *FineModel) ToDomain() *ledger.Fine {
	return &ledger.Fine{
		BaseEntity: m.BaseModel.ToDomain(),
		UserID:     m.UserID,
		PropertyID: m.PropertyID,
		Amount:     m.Amount,
		Reason:     m.Reason,
		Status:     m.Status,
		DueDate:    m.DueDate,
		IssuedAt:   m.IssuedAt,
		PaidAt:     m.PaidAt,
		PaymentID:  m.PaymentID,
	}
}

// FineModelFromDomain creates a persistence model from a domain Fine
func FineModelFromDomain(f *ledger.Fine) *FineModel {
	m := &FineModel{
		UserID:     f.UserID,
		PropertyID: f.PropertyID,
		Amount:     f.Amount,
		Reason:     f.Reason,
		Status:     f.Status,
		DueDate:    f.DueDate,
		IssuedAt:   f.IssuedAt,
		PaidAt:     f.PaidAt,
		PaymentID:  f.PaymentID,
	}
	m.FromDomainBaseEntity(f.BaseEntity)
	return m
}

// AgreementModel maps convenios
type AgreementModel struct {
	BaseModel
	UserID           int64                                        `gorm:"column:usuario_id;not null;index"`
	PropertyID       int64                                        `gorm:"column:propiedad_id;not null;index"`
	MonthsIncluded   int                                          `gorm:"column:meses_incluidos;not null"`
	NumInstallments  int                                          `gorm:"column:num_pagos;not null"`
	SurchargePercent decimal.Decimal                              `gorm:"column:recargo_percent;type:numeric(5,2);not null"`
	BaseAmount       decimal.Decimal                              `gorm:"column:monto_base;type:numeric(12,2);not null"`
	SurchargeAmount  decimal.Decimal                              `gorm:"column:monto_recargo;type:numeric(12,2);not null"`
	TotalAmount      decimal.Decimal                              `gorm:"column:monto_total;type:numeric(12,2);not null"`
	Status           ledger.AgreementStatus                       `gorm:"column:estado;type:varchar(20);not null"`
	FirstDueDate     time.Time                                    `gorm:"column:fecha_inicio_cuotas;type:date;not null"`
	Snapshot         datatypes.JSONType[ledger.AgreementSnapshot] `gorm:"column:detalle"`
	Installments     []InstallmentModel                           `gorm:"foreignKey:AgreementID;references:ID"`
}

// TableName returns the table name for GORM
func (AgreementModel) TableName() string {
	return "convenios"
}

// ToDomain converts the persistence model to a domain Agreement
func (m *AgreementModel) ToDomain() *ledger.Agreement {
	a := &ledger.Agreement{
		BaseAggregateRoot: m.aggregateRoot(),
		UserID:            m.UserID,
		PropertyID:        m.PropertyID,
		MonthsIncluded:    m.MonthsIncluded,
		NumInstallments:   m.NumInstallments,
		SurchargePercent:  m.SurchargePercent,
		BaseAmount:        m.BaseAmount,
		SurchargeAmount:   m.SurchargeAmount,
		TotalAmount:       m.TotalAmount,
		Status:            m.Status,
		FirstDueDate:      m.FirstDueDate,
		Snapshot:          m.Snapshot.Data(),
		Installments:      make([]ledger.Installment, len(m.Installments)),
	}
	for i := range m.Installments {
		a.Installments[i] = *m.Installments[i].ToDomain()
	}
	return a
}

// AgreementModelFromDomain creates a persistence model, installments included
func AgreementModelFromDomain(a *ledger.Agreement) *AgreementModel {
	m := &AgreementModel{
		UserID:           a.UserID,
		PropertyID:       a.PropertyID,
		MonthsIncluded:   a.MonthsIncluded,
		NumInstallments:  a.NumInstallments,
		SurchargePercent: a.SurchargePercent,
		BaseAmount:       a.BaseAmount,
		SurchargeAmount:  a.SurchargeAmount,
		TotalAmount:      a.TotalAmount,
		Status:           a.Status,
		FirstDueDate:     a.FirstDueDate,
		Snapshot:         datatypes.NewJSONType(a.Snapshot),
		Installments:     make([]InstallmentModel, len(a.Installments)),
	}
	m.FromDomainBaseEntity(a.BaseEntity)
	for i := range a.Installments {
		m.Installments[i] = *InstallmentModelFromDomain(&a.Installments[i])
	}
	return m
}

// InstallmentModel maps pagos_convenio
type InstallmentModel struct {
	ID          int64                    `gorm:"primaryKey;autoIncrement"`
	AgreementID int64                    `gorm:"column:convenio_id;not null;index"`
	Number      int                      `gorm:"column:numero_pago;not null"`
	Amount      decimal.Decimal          `gorm:"column:monto;type:numeric(12,2);not null"`
	DueDate     time.Time                `gorm:"column:fecha_vencimiento;type:date;not null"`
	Status      ledger.InstallmentStatus `gorm:"column:estado;type:varchar(20);not null"`
	PaymentID   *int64                   `gorm:"column:pago_id;index"`
	PaidAt      *time.Time               `gorm:"column:fecha_pago"`
}

// TableName returns the table name for GORM
func (InstallmentModel) TableName() string {
	return "pagos_convenio"
}

// ToDomain converts the persistence model to a domain Installment
func (m *InstallmentModel) ToDomain() *ledger.Installment {
	return &ledger.Installment{
		ID:          m.ID,
		AgreementID: m.AgreementID,
		Number:      m.Number,
		Amount:      m.Amount,
		DueDate:     m.DueDate,
		Status:      m.Status,
		PaymentID:   m.PaymentID,
		PaidAt:      m.PaidAt,
	}
}

// InstallmentModelFromDomain creates a persistence model from a domain Installment
func InstallmentModelFromDomain(i *ledger.Installment) *InstallmentModel {
	return &InstallmentModel{
		ID:          i.ID,
		AgreementID: i.AgreementID,
		Number:      i.Number,
		Amount:      i.Amount,
		DueDate:     i.DueDate,
		Status:      i.Status,
		PaymentID:   i.PaymentID,
		PaidAt:      i.PaidAt,
	}
}

// OtherIncomeModel maps otros_ingresos
type OtherIncomeModel struct {
	ID            int64           `gorm:"primaryKey;autoIncrement"`
	CondominiumID int64           `gorm:"column:condominio_id;not null;index"`
	Concept       string          `gorm:"column:concepto;type:varchar(200);not null"`
	Amount        decimal.Decimal `gorm:"column:monto;type:numeric(12,2);not null"`
	Date          time.Time       `gorm:"column:fecha;type:date;not null"`
	CreatedAt     time.Time       `gorm:"column:created_at;not null"`
}

// TableName returns the table name for GORM
func (OtherIncomeModel) TableName() string {
	return "otros_ingresos"
}
