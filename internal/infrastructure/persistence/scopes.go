package persistence

import (
	"fmt"

	"github.com/condoportal/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// CondominiumScope restricts a query joined to propiedades (aliased alias)
// to one condominium. A nil id leaves the query unscoped.
func CondominiumScope(condominiumID *int64, alias string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if condominiumID == nil {
			return db
		}
		return db.Where(fmt.Sprintf("%s.condominio_id = ?", alias), *condominiumID)
	}
}

// UserScope restricts a query to one resident when userID is set
func UserScope(userID *int64) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if userID == nil {
			return db
		}
		return db.Where("usuario_id = ?", *userID)
	}
}

// PageScope applies a whitelisted ORDER BY plus LIMIT/OFFSET from a filter
func PageScope(filter shared.Filter, allowed map[string]bool) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		field := ValidateSortField(filter.OrderBy, allowed, "id")
		db = db.Order(fmt.Sprintf("%s %s", field, ValidateSortOrder(filter.OrderDir)))
		if filter.PageSize > 0 {
			db = db.Limit(filter.PageSize).Offset(filter.Offset())
		}
		return db
	}
}
