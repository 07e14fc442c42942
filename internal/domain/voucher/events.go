package voucher

import (
	"github.com/cellar/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Event types emitted by the voucher lifecycle machine.
const (
	EventTypeVoucherLocked      = "voucher.locked"
	EventTypeVoucherRedeemed    = "voucher.redeemed"
	EventTypeVoucherSuspended   = "voucher.suspended"
	EventTypeVoucherUnsuspended = "voucher.unsuspended"
	EventTypeTransferInitiated  = "voucher.transfer_initiated"
	EventTypeTransferAccepted   = "voucher.transfer_accepted"
	EventTypeTransferExpired    = "voucher.transfer_expired"
	EventTypeTradingCompleted   = "voucher.trading_completed"
)

// AggregateTypeVoucher is the aggregate type recorded on voucher events.
const AggregateTypeVoucher = "Voucher"

// LifecycleChangedEvent is emitted for lock/redeem/suspend/unsuspend.
type LifecycleChangedEvent struct {
	shared.BaseDomainEvent
	OldState  LifecycleState `json:"old_state"`
	NewState  LifecycleState `json:"new_state"`
	Suspended bool           `json:"suspended"`
}

// NewLifecycleChangedEvent creates a LifecycleChangedEvent of the given type.
func NewLifecycleChangedEvent(eventType string, voucherID uuid.UUID, oldState, newState LifecycleState, suspended bool) *LifecycleChangedEvent {
	return &LifecycleChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeVoucher, voucherID),
		OldState:        oldState,
		NewState:        newState,
		Suspended:       suspended,
	}
}

// TransferEvent is emitted when a transfer offer changes status.
type TransferEvent struct {
	shared.BaseDomainEvent
	TransferID     uuid.UUID      `json:"transfer_id"`
	FromCustomerID uuid.UUID      `json:"from_customer_id"`
	ToCustomerID   uuid.UUID      `json:"to_customer_id"`
	Status         TransferStatus `json:"status"`
}

// NewTransferEvent creates a TransferEvent of the given type.
func NewTransferEvent(eventType string, t *VoucherTransfer) *TransferEvent {
	return &TransferEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeVoucher, t.VoucherID),
		TransferID:      t.ID,
		FromCustomerID:  t.FromCustomerID,
		ToCustomerID:    t.ToCustomerID,
		Status:          t.Status,
	}
}

// TradingCompletedEvent is emitted after an external trade reassigns
// ownership via the trading completion gateway.
type TradingCompletedEvent struct {
	shared.BaseDomainEvent
	OldCustomerID    uuid.UUID `json:"old_customer_id"`
	NewCustomerID    uuid.UUID `json:"new_customer_id"`
	TradingReference string    `json:"trading_reference"`
}

// NewTradingCompletedEvent creates a TradingCompletedEvent.
func NewTradingCompletedEvent(voucherID, oldCustomerID, newCustomerID uuid.UUID, tradingReference string) *TradingCompletedEvent {
	return &TradingCompletedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeTradingCompleted, AggregateTypeVoucher, voucherID),
		OldCustomerID:    oldCustomerID,
		NewCustomerID:    newCustomerID,
		TradingReference: tradingReference,
	}
}
