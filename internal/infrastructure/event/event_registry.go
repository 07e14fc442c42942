package event

import (
	"github.com/cellar/backend/internal/domain/allocation"
	"github.com/cellar/backend/internal/domain/voucher"
)

// RegisterAllEvents registers all domain event types with the serializer
// This is required for the OutboxProcessor to deserialize events from the outbox table
func RegisterAllEvents(serializer *EventSerializer) {
	// Allocation domain events
	serializer.Register(allocation.EventTypeReservationCreated, &allocation.ReservationCreatedEvent{})
	serializer.Register(allocation.EventTypeReservationExpired, &allocation.ReservationExpiredEvent{})
	serializer.Register(allocation.EventTypeVouchersIssued, &allocation.VouchersIssuedEvent{})

	// Voucher domain - lifecycle events
	serializer.Register(voucher.EventTypeVoucherLocked, &voucher.LifecycleChangedEvent{})
	serializer.Register(voucher.EventTypeVoucherRedeemed, &voucher.LifecycleChangedEvent{})
	serializer.Register(voucher.EventTypeVoucherSuspended, &voucher.LifecycleChangedEvent{})
	serializer.Register(voucher.EventTypeVoucherUnsuspended, &voucher.LifecycleChangedEvent{})

	// Voucher domain - transfer events
	serializer.Register(voucher.EventTypeTransferInitiated, &voucher.TransferEvent{})
	serializer.Register(voucher.EventTypeTransferAccepted, &voucher.TransferEvent{})
	serializer.Register(voucher.EventTypeTransferExpired, &voucher.TransferEvent{})

	// Voucher domain - trading gateway events
	serializer.Register(voucher.EventTypeTradingCompleted, &voucher.TradingCompletedEvent{})
}
