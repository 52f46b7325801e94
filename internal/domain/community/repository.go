package community

import (
	"context"
	"time"
)

// PropertyRepository reads properties, their condominium and assignment history
type PropertyRepository interface {
	// FindByID finds a property by ID
	FindByID(ctx context.Context, id int64) (*Property, error)

	// FindCurrentForUser returns the property the user is assigned to at the given moment.
	// Returns nil, nil when the user has no property.
	FindCurrentForUser(ctx context.Context, userID int64, at time.Time) (*Property, error)

	// FindAssignments returns the full assignment history of a user, oldest first
	FindAssignments(ctx context.Context, userID int64) ([]Assignment, error)

	// FindCondominium returns the condominium a property belongs to
	FindCondominium(ctx context.Context, condominiumID int64) (*Condominium, error)
}
