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

// GormReservationRepository implements ReservationRepository using GORM
type GormReservationRepository struct {
	db *gorm.DB
}

// NewGormReservationRepository creates a new GormReservationRepository
func NewGormReservationRepository(db *gorm.DB) *GormReservationRepository {
	return &GormReservationRepository{db: db}
}

// WithTx returns a new repository instance with the given transaction
func (r *GormReservationRepository) WithTx(tx *gorm.DB) *GormReservationRepository {
	return &GormReservationRepository{db: tx}
}

// FindByID finds a reservation by its ID
func (r *GormReservationRepository) FindByID(ctx context.Context, id uuid.UUID) (*allocation.TemporaryReservation, error) {
	var model models.TemporaryReservationModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// lockAllocationSQL takes the allocation row lock as its own statement.
// Under READ COMMITTED a reserve that blocked here resumes with a fresh
// statement snapshot for the capacity check that follows, so it sees
// reservations committed by the transaction it waited on. The lock inside
// the INSERT..SELECT alone is not enough: the insert never modifies the
// allocation row, so a waiter gets no recheck against its stale snapshot.
const lockAllocationSQL = `SELECT id FROM allocations WHERE id = ? FOR UPDATE`

// insertIfCapacitySQL inserts the reservation only when the allocation is
// open and has room for it next to sold and already-reserved quantities.
// Callers must hold the allocation row lock (lockAllocationSQL) in the same
// transaction.
const insertIfCapacitySQL = `
INSERT INTO temporary_reservations
	(id, created_at, updated_at, allocation_id, customer_id, quantity, sale_reference, expires_at, status)
SELECT ?, ?, ?, a.id, ?, ?, ?, ?, ?
FROM allocations a
WHERE a.id = ?
  AND a.status = ?
  AND a.sold_quantity + ? + COALESCE((
		SELECT SUM(tr.quantity)
		FROM temporary_reservations tr
		WHERE tr.allocation_id = a.id AND tr.status = ?
	), 0) <= a.total_quantity`

// InsertIfCapacity atomically inserts the reservation only if it fits
// within the allocation's remaining capacity. The allocation row is locked
// first so concurrent reserves serialize and each capacity check runs
// against the state the previous one committed.
func (r *GormReservationRepository) InsertIfCapacity(ctx context.Context, res *allocation.TemporaryReservation) error {
	var lockedID uuid.UUID
	lock := r.db.WithContext(ctx).Raw(lockAllocationSQL, res.AllocationID).Scan(&lockedID)
	if lock.Error != nil {
		return lock.Error
	}
	if lock.RowsAffected == 0 {
		return shared.ErrNotFound
	}

	result := r.db.WithContext(ctx).Exec(insertIfCapacitySQL,
		res.ID, res.CreatedAt, res.UpdatedAt,
		res.CustomerID, res.Quantity, res.SaleReference, res.ExpiresAt, res.Status,
		res.AllocationID,
		allocation.StatusOpen,
		res.Quantity,
		allocation.ReservationStatusActive,
	)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		// Nothing inserted: either the allocation is missing or closed, or
		// the capacity guard rejected the hold.
		var count int64
		if err := r.db.WithContext(ctx).
			Model(&models.AllocationModel{}).
			Where("id = ? AND status = ?", res.AllocationID, allocation.StatusOpen).
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

// FindExpired returns active reservations whose deadline has passed,
// oldest deadline first.
func (r *GormReservationRepository) FindExpired(ctx context.Context, now time.Time) ([]allocation.TemporaryReservation, error) {
	var rows []models.TemporaryReservationModel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at <= ?", allocation.ReservationStatusActive, now).
		Order("expires_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	reservations := make([]allocation.TemporaryReservation, 0, len(rows))
	for i := range rows {
		reservations = append(reservations, *rows[i].ToDomain())
	}
	return reservations, nil
}

// TransitionStatus conditionally moves a reservation from one status to
// another. Only one of several racing callers observes rows affected.
func (r *GormReservationRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to allocation.ReservationStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.TemporaryReservationModel{}).
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

// Ensure GormReservationRepository implements ReservationRepository
var _ allocation.ReservationRepository = (*GormReservationRepository)(nil)
