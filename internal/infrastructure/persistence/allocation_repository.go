package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/cellar/backend/internal/domain/allocation"
	"github.com/cellar/backend/internal/domain/shared"
	"github.com/cellar/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAllocationRepository implements AllocationRepository using GORM
type GormAllocationRepository struct {
	db *gorm.DB
}

// NewGormAllocationRepository creates a new GormAllocationRepository
func NewGormAllocationRepository(db *gorm.DB) *GormAllocationRepository {
	return &GormAllocationRepository{db: db}
}

// WithTx returns a new repository instance with the given transaction
func (r *GormAllocationRepository) WithTx(tx *gorm.DB) *GormAllocationRepository {
	return &GormAllocationRepository{db: tx}
}

// FindByID finds an allocation by its ID
func (r *GormAllocationRepository) FindByID(ctx context.Context, id uuid.UUID) (*allocation.Allocation, error) {
	var model models.AllocationModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or updates an allocation
func (r *GormAllocationRepository) Save(ctx context.Context, a *allocation.Allocation) error {
	var model models.AllocationModel
	model.FromDomain(a)
	return r.db.WithContext(ctx).Save(&model).Error
}

// IncrementSold atomically adds qty to sold_quantity. The guard clause
// keeps sold_quantity within total_quantity regardless of how many
// confirmations race; losers see zero rows affected.
func (r *GormAllocationRepository) IncrementSold(ctx context.Context, id uuid.UUID, qty int64) error {
	result := r.db.WithContext(ctx).
		Model(&models.AllocationModel{}).
		Where("id = ? AND sold_quantity + ? <= total_quantity", id, qty).
		Updates(map[string]interface{}{
			"sold_quantity": gorm.Expr("sold_quantity + ?", qty),
			"updated_at":    time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// Distinguish a missing allocation from a rejected guard.
		var count int64
		if err := r.db.WithContext(ctx).
			Model(&models.AllocationModel{}).
			Where("id = ?", id).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return shared.ErrNotFound
		}
		return shared.ErrInsufficientCapacity
	}
	return nil
}

// ActiveReservedQuantity returns the summed quantity of active reservations
// against the allocation.
func (r *GormAllocationRepository) ActiveReservedQuantity(ctx context.Context, id uuid.UUID) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.TemporaryReservationModel{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("allocation_id = ? AND status = ?", id, allocation.ReservationStatusActive).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

// Ensure GormAllocationRepository implements AllocationRepository
var _ allocation.AllocationRepository = (*GormAllocationRepository)(nil)
