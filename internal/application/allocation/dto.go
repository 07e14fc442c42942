package allocation

import (
	"time"

	"github.com/cellar/backend/internal/domain/allocation"
	"github.com/google/uuid"
)

// ReserveRequest carries the input for placing a temporary hold on
// allocation capacity.
type ReserveRequest struct {
	AllocationID  uuid.UUID  `json:"allocation_id"`
	CustomerID    uuid.UUID  `json:"customer_id"`
	Quantity      int64      `json:"quantity"`
	SaleReference string     `json:"sale_reference"`
	ActorID       *uuid.UUID `json:"actor_id,omitempty"`
}

// ReservationResult describes a reservation after a ledger operation.
type ReservationResult struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	AllocationID  uuid.UUID `json:"allocation_id"`
	CustomerID    uuid.UUID `json:"customer_id"`
	Quantity      int64     `json:"quantity"`
	SaleReference string    `json:"sale_reference"`
	Status        string    `json:"status"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// ToReservationResult maps a domain reservation to its response shape.
func ToReservationResult(r *allocation.TemporaryReservation) ReservationResult {
	return ReservationResult{
		ReservationID: r.ID,
		AllocationID:  r.AllocationID,
		CustomerID:    r.CustomerID,
		Quantity:      r.Quantity,
		SaleReference: r.SaleReference,
		Status:        string(r.Status),
		ExpiresAt:     r.ExpiresAt,
	}
}

// ConfirmResult describes a confirmed reservation and the vouchers minted
// for it.
type ConfirmResult struct {
	ReservationID uuid.UUID   `json:"reservation_id"`
	AllocationID  uuid.UUID   `json:"allocation_id"`
	CustomerID    uuid.UUID   `json:"customer_id"`
	VoucherIDs    []uuid.UUID `json:"voucher_ids"`
}

// AllocationResponse describes an allocation for read endpoints.
type AllocationResponse struct {
	ID            uuid.UUID `json:"id"`
	WineName      string    `json:"wine_name"`
	Vintage       int       `json:"vintage"`
	BottleFormat  string    `json:"bottle_format"`
	TotalQuantity int64     `json:"total_quantity"`
	SoldQuantity  int64     `json:"sold_quantity"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ToAllocationResponse maps a domain allocation to its response shape.
func ToAllocationResponse(a *allocation.Allocation) AllocationResponse {
	return AllocationResponse{
		ID:            a.ID,
		WineName:      a.WineName,
		Vintage:       a.Vintage,
		BottleFormat:  a.BottleFormat,
		TotalQuantity: a.TotalQuantity,
		SoldQuantity:  a.SoldQuantity,
		Status:        string(a.Status),
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

// CapacityResponse reports the live capacity picture of an allocation.
// Available is what a new reservation could still hold: total minus sold
// minus active holds.
type CapacityResponse struct {
	AllocationID   uuid.UUID `json:"allocation_id"`
	TotalQuantity  int64     `json:"total_quantity"`
	SoldQuantity   int64     `json:"sold_quantity"`
	ActiveReserved int64     `json:"active_reserved"`
	Available      int64     `json:"available"`
}
