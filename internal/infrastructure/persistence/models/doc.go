// Package models contains GORM persistence models for the condominium ledger
// tables. They are kept apart from domain entities so the domain stays free of
// ORM tags; every model offers ToDomain and a FromDomain constructor.
//
// Tables:
//   - community.go: condominios, propiedades, usuario_propiedad
//   - ledger.go: pagos, pagos_mantenimiento, multas, convenios, pagos_convenio, otros_ingresos
//
// Column names are the Spanish names of the existing schema.
package models
