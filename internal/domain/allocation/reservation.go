package allocation

import (
	"time"

	"github.com/cellar/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ReservationStatus represents the lifecycle of a temporary reservation.
// A reservation is either confirmed (capacity permanently consumed) or
// expired (capacity returned), never both. The status column acts as the
// single-writer gate for racing confirm/release operations.
type ReservationStatus string

const (
	ReservationStatusActive    ReservationStatus = "active"
	ReservationStatusConfirmed ReservationStatus = "confirmed"
	ReservationStatusExpired   ReservationStatus = "expired"
)

// TemporaryReservation is a time-boxed, provisional hold on allocation
// capacity during an in-progress sale.
type TemporaryReservation struct {
	shared.BaseEntity
	AllocationID  uuid.UUID
	CustomerID    uuid.UUID
	Quantity      int64
	SaleReference string
	ExpiresAt     time.Time
	Status        ReservationStatus
}

// NewTemporaryReservation creates an active reservation holding qty units
// until expiresAt.
func NewTemporaryReservation(allocationID, customerID uuid.UUID, qty int64, saleReference string, expiresAt time.Time) (*TemporaryReservation, error) {
	if qty <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Reservation quantity must be positive")
	}
	if saleReference == "" {
		return nil, shared.NewDomainError("INVALID_SALE_REFERENCE", "Sale reference cannot be empty")
	}

	return &TemporaryReservation{
		BaseEntity:    shared.NewBaseEntity(),
		AllocationID:  allocationID,
		CustomerID:    customerID,
		Quantity:      qty,
		SaleReference: saleReference,
		ExpiresAt:     expiresAt,
		Status:        ReservationStatusActive,
	}, nil
}

// IsActive returns true while the hold is neither confirmed nor expired.
func (r *TemporaryReservation) IsActive() bool {
	return r.Status == ReservationStatusActive
}

// IsExpiredAt returns true when the hold deadline has passed at the given
// reference time. Expiry is a soft deadline enforced only by the sweep; a
// reservation stays valid until a sweep actually transitions it.
func (r *TemporaryReservation) IsExpiredAt(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// Confirm transitions the reservation to confirmed.
func (r *TemporaryReservation) Confirm() error {
	if r.Status != ReservationStatusActive {
		return shared.ErrReservationNotActive
	}
	r.Status = ReservationStatusConfirmed
	r.UpdatedAt = time.Now()
	return nil
}

// Expire transitions the reservation to expired, returning its capacity.
func (r *TemporaryReservation) Expire() error {
	if r.Status != ReservationStatusActive {
		return shared.ErrReservationNotActive
	}
	r.Status = ReservationStatusExpired
	r.UpdatedAt = time.Now()
	return nil
}
