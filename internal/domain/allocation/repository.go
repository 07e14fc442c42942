package allocation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AllocationRepository persists Allocation aggregates.
type AllocationRepository interface {
	// FindByID finds an allocation by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Allocation, error)
	// Save creates or updates an allocation
	Save(ctx context.Context, a *Allocation) error
	// IncrementSold atomically adds qty to sold_quantity, guarded by
	// sold_quantity + qty <= total_quantity. Returns
	// shared.ErrInsufficientCapacity when the guard rejects the update.
	IncrementSold(ctx context.Context, id uuid.UUID, qty int64) error
	// ActiveReservedQuantity returns the summed quantity of active
	// reservations against the allocation.
	ActiveReservedQuantity(ctx context.Context, id uuid.UUID) (int64, error)
}

// ReservationRepository persists TemporaryReservation rows.
type ReservationRepository interface {
	// FindByID finds a reservation by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*TemporaryReservation, error)
	// InsertIfCapacity atomically inserts the reservation only if
	// sold_quantity + active reserved quantity + r.Quantity stays within
	// the allocation's total_quantity. This is the linearization point for
	// concurrent Reserve calls: a single conditional INSERT..SELECT, not a
	// read followed by a write. Returns shared.ErrInsufficientCapacity when
	// the capacity guard rejects the insert, shared.ErrNotFound when the
	// allocation does not exist or is not open.
	InsertIfCapacity(ctx context.Context, r *TemporaryReservation) error
	// FindExpired returns reservations with status=active and
	// expires_at <= now, oldest deadline first.
	FindExpired(ctx context.Context, now time.Time) ([]TemporaryReservation, error)
	// TransitionStatus conditionally moves a reservation from one status to
	// another. Returns (true, nil) when this call performed the transition,
	// (false, nil) when the row was not in the expected status (somebody
	// else won the race), and (false, err) on storage failure.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to ReservationStatus) (bool, error)
}
