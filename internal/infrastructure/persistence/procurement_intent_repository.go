package persistence

import (
	"context"
	"errors"

	"github.com/cellar/backend/internal/domain/procurement"
	"github.com/cellar/backend/internal/domain/shared"
	"github.com/cellar/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormIntentRepository implements IntentRepository using GORM
type GormIntentRepository struct {
	db *gorm.DB
}

// NewGormIntentRepository creates a new GormIntentRepository
func NewGormIntentRepository(db *gorm.DB) *GormIntentRepository {
	return &GormIntentRepository{db: db}
}

// WithTx returns a new repository instance with the given transaction
func (r *GormIntentRepository) WithTx(tx *gorm.DB) *GormIntentRepository {
	return &GormIntentRepository{db: tx}
}

// FindByID finds an intent by its ID
func (r *GormIntentRepository) FindByID(ctx context.Context, id uuid.UUID) (*procurement.ProcurementIntent, error) {
	var model models.ProcurementIntentModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindBySource finds the intent created for a given issuance batch
func (r *GormIntentRepository) FindBySource(ctx context.Context, allocationID, voucherID uuid.UUID) (*procurement.ProcurementIntent, error) {
	var model models.ProcurementIntentModel
	if err := r.db.WithContext(ctx).
		Where("source_allocation_id = ? AND source_voucher_id = ?", allocationID, voucherID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates an intent. The unique index over the source columns turns a
// retried trigger for the same issuance batch into a conflict; ON CONFLICT
// DO NOTHING surfaces it as zero rows affected.
func (r *GormIntentRepository) Save(ctx context.Context, intent *procurement.ProcurementIntent) error {
	var model models.ProcurementIntentModel
	model.FromDomain(intent)

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrAlreadyExists
	}
	return nil
}

// Ensure GormIntentRepository implements IntentRepository
var _ procurement.IntentRepository = (*GormIntentRepository)(nil)
