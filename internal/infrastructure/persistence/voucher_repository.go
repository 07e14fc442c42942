package persistence

import (
	"context"
	"errors"

	"github.com/cellar/backend/internal/domain/shared"
	"github.com/cellar/backend/internal/domain/voucher"
	"github.com/cellar/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormVoucherRepository implements VoucherRepository using GORM
type GormVoucherRepository struct {
	db *gorm.DB
}

// NewGormVoucherRepository creates a new GormVoucherRepository
func NewGormVoucherRepository(db *gorm.DB) *GormVoucherRepository {
	return &GormVoucherRepository{db: db}
}

// WithTx returns a new repository instance with the given transaction
func (r *GormVoucherRepository) WithTx(tx *gorm.DB) *GormVoucherRepository {
	return &GormVoucherRepository{db: tx}
}

// FindByID finds a voucher by its ID
func (r *GormVoucherRepository) FindByID(ctx context.Context, id uuid.UUID) (*voucher.Voucher, error) {
	var model models.VoucherModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByTradingReference finds a voucher carrying the given external
// trading reference
func (r *GormVoucherRepository) FindByTradingReference(ctx context.Context, reference string) (*voucher.Voucher, error) {
	var model models.VoucherModel
	if err := r.db.WithContext(ctx).
		Where("external_trading_reference = ?", reference).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates a voucher
func (r *GormVoucherRepository) Save(ctx context.Context, v *voucher.Voucher) error {
	var model models.VoucherModel
	model.FromDomain(v)
	return r.db.WithContext(ctx).Create(&model).Error
}

// SaveAll creates a batch of vouchers in one statement
func (r *GormVoucherRepository) SaveAll(ctx context.Context, vouchers []*voucher.Voucher) error {
	if len(vouchers) == 0 {
		return nil
	}

	batch := make([]models.VoucherModel, len(vouchers))
	for i, v := range vouchers {
		batch[i].FromDomain(v)
	}
	return r.db.WithContext(ctx).Create(&batch).Error
}

// SaveWithLock updates a voucher with optimistic locking (checks version).
// The caller's aggregate has already incremented its version, so the row
// must still carry version-1 for the update to apply.
func (r *GormVoucherRepository) SaveWithLock(ctx context.Context, v *voucher.Voucher) error {
	var currentVersion int
	query := r.db.WithContext(ctx).
		Model(&models.VoucherModel{}).
		Select("version").
		Where("id = ?", v.ID).
		Scan(&currentVersion)
	if query.Error != nil {
		return query.Error
	}
	if query.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	if currentVersion != v.Version-1 {
		return shared.ErrConcurrencyConflict
	}

	result := r.db.WithContext(ctx).
		Model(&models.VoucherModel{}).
		Where("id = ? AND version = ?", v.ID, v.Version-1).
		Updates(map[string]interface{}{
			"customer_id":                v.CustomerID,
			"lifecycle_state":            v.LifecycleState,
			"suspended":                  v.Suspended,
			"tradable":                   v.Tradable,
			"giftable":                   v.Giftable,
			"external_trading_reference": v.ExternalTradingReference,
			"version":                    v.Version,
			"updated_at":                 v.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// Ensure GormVoucherRepository implements VoucherRepository
var _ voucher.VoucherRepository = (*GormVoucherRepository)(nil)
