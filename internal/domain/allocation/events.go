package allocation

import (
	"github.com/cellar/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Event types emitted by the allocation ledger.
const (
	EventTypeReservationCreated = "allocation.reservation_created"
	EventTypeReservationExpired = "allocation.reservation_expired"
	EventTypeVouchersIssued     = "allocation.vouchers_issued"
)

// AggregateTypeAllocation is the aggregate type recorded on ledger events.
const AggregateTypeAllocation = "Allocation"

// ReservationCreatedEvent is emitted when capacity is provisionally held.
type ReservationCreatedEvent struct {
	shared.BaseDomainEvent
	ReservationID uuid.UUID `json:"reservation_id"`
	CustomerID    uuid.UUID `json:"customer_id"`
	Quantity      int64     `json:"quantity"`
	SaleReference string    `json:"sale_reference"`
}

// NewReservationCreatedEvent creates a ReservationCreatedEvent.
func NewReservationCreatedEvent(allocationID uuid.UUID, r *TemporaryReservation) *ReservationCreatedEvent {
	return &ReservationCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReservationCreated, AggregateTypeAllocation, allocationID),
		ReservationID:   r.ID,
		CustomerID:      r.CustomerID,
		Quantity:        r.Quantity,
		SaleReference:   r.SaleReference,
	}
}

// ReservationExpiredEvent is emitted when an expiry sweep releases a hold.
type ReservationExpiredEvent struct {
	shared.BaseDomainEvent
	ReservationID uuid.UUID `json:"reservation_id"`
	Quantity      int64     `json:"quantity"`
	SaleReference string    `json:"sale_reference"`
}

// NewReservationExpiredEvent creates a ReservationExpiredEvent.
func NewReservationExpiredEvent(allocationID uuid.UUID, r *TemporaryReservation) *ReservationExpiredEvent {
	return &ReservationExpiredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReservationExpired, AggregateTypeAllocation, allocationID),
		ReservationID:   r.ID,
		Quantity:        r.Quantity,
		SaleReference:   r.SaleReference,
	}
}

// VouchersIssuedEvent is emitted after a reservation is confirmed and its
// vouchers are minted. Consumed asynchronously by the procurement intent
// trigger; delivery is at-least-once, so consumers must be duplicate-safe.
type VouchersIssuedEvent struct {
	shared.BaseDomainEvent
	ReservationID uuid.UUID   `json:"reservation_id"`
	CustomerID    uuid.UUID   `json:"customer_id"`
	VoucherIDs    []uuid.UUID `json:"voucher_ids"`
	SaleReference string      `json:"sale_reference"`
}

// NewVouchersIssuedEvent creates a VouchersIssuedEvent.
func NewVouchersIssuedEvent(allocationID, reservationID, customerID uuid.UUID, voucherIDs []uuid.UUID, saleReference string) *VouchersIssuedEvent {
	return &VouchersIssuedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeVouchersIssued, AggregateTypeAllocation, allocationID),
		ReservationID:   reservationID,
		CustomerID:      customerID,
		VoucherIDs:      voucherIDs,
		SaleReference:   saleReference,
	}
}

// Quantity returns the number of vouchers minted in this issuance batch.
func (e *VouchersIssuedEvent) Quantity() int {
	return len(e.VoucherIDs)
}
