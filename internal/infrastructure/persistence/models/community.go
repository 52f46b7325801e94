package models

import (
	"time"

	"github.com/condoportal/backend/internal/domain/community"
	"github.com/shopspring/decimal"
)

// CondominiumModel maps condominios
type CondominiumModel struct {
	BaseModel
	Name           string          `gorm:"column:nombre;type:varchar(200);not null"`
	MaintenanceFee decimal.Decimal `gorm:"column:cuota_mantenimiento;type:numeric(12,2);not null"`
	DueDay         *int            `gorm:"column:dia_vencimiento"`
}

// TableName returns the table name for GORM
func (CondominiumModel) TableName() string {
	return "condominios"
}

// ToDomain converts the persistence model to a domain Condominium
func (m *CondominiumModel) ToDomain() *community.Condominium {
	c := &community.Condominium{
		BaseEntity:     m.BaseModel.ToDomain(),
		Name:           m.Name,
		MaintenanceFee: m.MaintenanceFee,
	}
	if m.DueDay != nil {
		c.DueDay = *m.DueDay
	}
	return c
}

// PropertyModel maps propiedades
type PropertyModel struct {
	BaseModel
	CondominiumID int64  `gorm:"column:condominio_id;not null;index"`
	Number        string `gorm:"column:numero;type:varchar(20);not null"`
}

// TableName returns the table name for GORM
func (PropertyModel) TableName() string {
	return "propiedades"
}

// ToDomain converts the persistence model to a domain Property
func (m *PropertyModel) ToDomain() *community.Property {
	return &community.Property{
		BaseEntity:    m.BaseModel.ToDomain(),
		CondominiumID: m.CondominiumID,
		Number:        m.Number,
	}
}

// AssignmentModel maps usuario_propiedad
type AssignmentModel struct {
	ID         int64      `gorm:"primaryKey;autoIncrement"`
	UserID     int64      `gorm:"column:usuario_id;not null;index"`
	PropertyID int64      `gorm:"column:propiedad_id;not null;index"`
	StartDate  time.Time  `gorm:"column:fecha_inicio;type:date;not null"`
	EndDate    *time.Time `gorm:"column:fecha_fin;type:date"`
}

// TableName returns the table name for GORM
func (AssignmentModel) TableName() string {
	return "usuario_propiedad"
}

// ToDomain converts the persistence model to a domain Assignment
func (m *AssignmentModel) ToDomain() community.Assignment {
	return community.Assignment{
		ID:         m.ID,
		UserID:     m.UserID,
		PropertyID: m.PropertyID,
		StartDate:  m.StartDate,
		EndDate:    m.EndDate,
	}
}
