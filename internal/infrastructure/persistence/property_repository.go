package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/condoportal/backend/internal/domain/community"
	"github.com/condoportal/backend/internal/domain/ledger"
	"github.com/condoportal/backend/internal/domain/shared"
	"github.com/condoportal/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormPropertyRepository implements community.PropertyRepository using GORM
type GormPropertyRepository struct {
	db *gorm.DB
}

// NewGormPropertyRepository creates a new GormPropertyRepository
func NewGormPropertyRepository(db *gorm.DB) *GormPropertyRepository {
	return &GormPropertyRepository{db: db}
}

// FindByID finds a property by ID
func (r *GormPropertyRepository) FindByID(ctx context.Context, id int64) (*community.Property, error) {
	var model models.PropertyModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.ErrPropertyNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindCurrentForUser resolves the user's assignment valid at the given moment.
// The window check runs on the loaded history so it shares the calendar-day
// rule of community.ResolveAssignmentAt.
func (r *GormPropertyRepository) FindCurrentForUser(ctx context.Context, userID int64, at time.Time) (*community.Property, error) {
	assignments, err := r.FindAssignments(ctx, userID)
	if err != nil {
		return nil, err
	}
	current, ok := community.ResolveAssignmentAt(assignments, at)
	if !ok {
		return nil, nil
	}
	return r.FindByID(ctx, current.PropertyID)
}

// FindAssignments returns the user's assignment history, oldest first
func (r *GormPropertyRepository) FindAssignments(ctx context.Context, userID int64) ([]community.Assignment, error) {
	var rows []models.AssignmentModel
	if err := r.db.WithContext(ctx).
		Where("usuario_id = ?", userID).
		Order("fecha_inicio ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]community.Assignment, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// FindCondominium returns a condominium with its billing settings
func (r *GormPropertyRepository) FindCondominium(ctx context.Context, condominiumID int64) (*community.Condominium, error) {
	var model models.CondominiumModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", condominiumID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}
