// Package community holds the residential structure the ledger hangs off:
// condominiums, their properties and the history of who lived where.
package community

import (
	"sort"
	"time"

	"github.com/condoportal/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Condominium is a residential community with its billing settings
type Condominium struct {
	shared.BaseEntity
	Name           string          `json:"nombre"`
	MaintenanceFee decimal.Decimal `json:"cuota_mantenimiento"`
	DueDay         int             `json:"dia_vencimiento"` // 0 when not configured
}

// HasDueDay reports whether the condominium configured a billing due day
func (c *Condominium) HasDueDay() bool {
	return c.DueDay >= 1 && c.DueDay <= 31
}

// Property is a unit inside a condominium (house, apartment)
type Property struct {
	shared.BaseEntity
	CondominiumID int64  `json:"condominio_id"`
	Number        string `json:"numero"`
}

// Assignment links a user to a property for a validity window.
// EndDate nil means the assignment is still current.
type Assignment struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"usuario_id"`
	PropertyID int64      `json:"propiedad_id"`
	StartDate  time.Time  `json:"fecha_inicio"`
	EndDate    *time.Time `json:"fecha_fin,omitempty"`
}

// ActiveAt reports whether the assignment window contains the calendar day
// of at, read in at's own location. Callers pass moments in the ledger zone.
// The bounds are DATE values, so their calendar day is taken as stored and
// never shifted. Both bounds are inclusive.
func (a Assignment) ActiveAt(at time.Time) bool {
	day := CalendarDay(at)
	if CalendarDay(a.StartDate).After(day) {
		return false
	}
	if a.EndDate != nil && CalendarDay(*a.EndDate).Before(day) {
		return false
	}
	return true
}

// ResolveAssignmentAt returns the assignment valid at the given moment.
// When windows overlap the one that started last wins.
func ResolveAssignmentAt(assignments []Assignment, at time.Time) (Assignment, bool) {
	candidates := make([]Assignment, 0, len(assignments))
	for _, a := range assignments {
		if a.ActiveAt(at) {
			candidates = append(candidates, a)
		}
	}
	if len(candidates) == 0 {
		return Assignment{}, false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].StartDate.After(candidates[j].StartDate)
	})
	return candidates[0], true
}

// CalendarDay maps t to UTC midnight of the date t shows in its own
// location, so days from different zones compare by calendar only.
func CalendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
