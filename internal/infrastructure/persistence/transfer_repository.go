package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/cellar/backend/internal/domain/shared"
	"github.com/cellar/backend/internal/domain/voucher"
	"github.com/cellar/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTransferRepository implements TransferRepository using GORM
type GormTransferRepository struct {
	db *gorm.DB
}

// NewGormTransferRepository creates a new GormTransferRepository
func NewGormTransferRepository(db *gorm.DB) *GormTransferRepository {
	return &GormTransferRepository{db: db}
}

// WithTx returns a new repository instance with the given transaction
func (r *GormTransferRepository) WithTx(tx *gorm.DB) *GormTransferRepository {
	return &GormTransferRepository{db: tx}
}

// FindByID finds a transfer by its ID
func (r *GormTransferRepository) FindByID(ctx context.Context, id uuid.UUID) (*voucher.VoucherTransfer, error) {
	var model models.VoucherTransferModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindPendingByVoucher returns the pending transfer for a voucher
func (r *GormTransferRepository) FindPendingByVoucher(ctx context.Context, voucherID uuid.UUID) (*voucher.VoucherTransfer, error) {
	var model models.VoucherTransferModel
	if err := r.db.WithContext(ctx).
		Where("voucher_id = ? AND status = ?", voucherID, voucher.TransferStatusPending).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates a transfer. The partial unique index on pending rows makes
// a second open offer for the same voucher conflict instead of inserting;
// ON CONFLICT DO NOTHING turns that into zero rows affected.
func (r *GormTransferRepository) Save(ctx context.Context, t *voucher.VoucherTransfer) error {
	var model models.VoucherTransferModel
	model.FromDomain(t)

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

// FindExpired returns pending transfers whose acceptance window has
// elapsed, oldest deadline first.
func (r *GormTransferRepository) FindExpired(ctx context.Context, now time.Time) ([]voucher.VoucherTransfer, error) {
	var rows []models.VoucherTransferModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at <= ?", voucher.TransferStatusPending, now).
		Order("expires_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	transfers := make([]voucher.VoucherTransfer, 0, len(rows))
	for i := range rows {
		transfers = append(transfers, *rows[i].ToDomain())
	}
	return transfers, nil
}

// TransitionStatus conditionally moves a transfer from one status to
// another. Only one of several racing callers observes rows affected.
func (r *GormTransferRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to voucher.TransferStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.VoucherTransferModel{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":     to,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Ensure GormTransferRepository implements TransferRepository
var _ voucher.TransferRepository = (*GormTransferRepository)(nil)
