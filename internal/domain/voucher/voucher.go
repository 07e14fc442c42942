package voucher

import (
	"time"

	"github.com/cellar/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Voucher is a customer-owned claim on one unit of allocated inventory.
// One voucher always traces to exactly one allocation.
type Voucher struct {
	shared.BaseAggregateRoot
	AllocationID             uuid.UUID
	CustomerID               uuid.UUID
	LifecycleState           LifecycleState
	Suspended                bool
	Tradable                 bool
	Giftable                 bool
	ExternalTradingReference *string
}

// NewVoucher mints a voucher in state issued for one unit of the allocation.
func NewVoucher(allocationID, customerID uuid.UUID) *Voucher {
	return &Voucher{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		AllocationID:      allocationID,
		CustomerID:        customerID,
		LifecycleState:    StateIssued,
		Suspended:         false,
		Tradable:          true,
		Giftable:          true,
	}
}

// Apply performs a lifecycle transition by consulting the transition table.
// Suspension blocks every lifecycle event; the flag must be cleared first.
func (v *Voucher) Apply(event LifecycleEvent) error {
	if v.Suspended {
		return shared.NewDomainError("INVALID_TRANSITION", "Voucher is suspended")
	}
	next, ok := NextState(v.LifecycleState, event)
	if !ok {
		return shared.ErrInvalidTransition
	}
	v.LifecycleState = next
	v.UpdatedAt = time.Now()
	return nil
}

// Lock transitions issued -> locked ahead of fulfillment planning.
func (v *Voucher) Lock() error {
	return v.Apply(EventLock)
}

// Redeem transitions locked -> redeemed. Redemption is terminal.
func (v *Voucher) Redeem() error {
	return v.Apply(EventRedeem)
}

// Suspend sets the orthogonal hold flag. Allowed in any non-terminal state;
// a suspended voucher stays readable but cannot be locked, redeemed, traded
// or have a transfer accepted until unsuspended.
func (v *Voucher) Suspend() error {
	if v.LifecycleState.IsTerminal() {
		return shared.ErrInvalidTransition
	}
	v.Suspended = true
	v.UpdatedAt = time.Now()
	return nil
}

// Unsuspend clears the hold flag.
func (v *Voucher) Unsuspend() error {
	if v.LifecycleState.IsTerminal() {
		return shared.ErrInvalidTransition
	}
	v.Suspended = false
	v.UpdatedAt = time.Now()
	return nil
}

// CanTransfer reports whether a transfer offer may be initiated.
func (v *Voucher) CanTransfer() bool {
	return !v.LifecycleState.IsTerminal() && !v.Suspended && v.Giftable
}

// CompleteTrading reassigns ownership following an off-platform trade and
// records the external trading reference. The caller is responsible for
// idempotency by trading reference and for the audit write.
func (v *Voucher) CompleteTrading(newCustomerID uuid.UUID, tradingReference string) error {
	if v.LifecycleState.IsTerminal() {
		return shared.NewDomainError("VALIDATION_ERROR", "Voucher is already redeemed")
	}
	if !v.Tradable {
		return shared.NewDomainError("VALIDATION_ERROR", "Voucher is not tradable")
	}
	if v.Suspended {
		return shared.NewDomainError("VALIDATION_ERROR", "Voucher is suspended")
	}
	if tradingReference == "" {
		return shared.NewDomainError("VALIDATION_ERROR", "Trading reference cannot be empty")
	}
	v.CustomerID = newCustomerID
	v.ExternalTradingReference = &tradingReference
	v.UpdatedAt = time.Now()
	return nil
}

// TradingAlreadyApplied returns true when the voucher already carries the
// given trading reference, meaning a duplicate completion call should be a
// no-op rather than re-applied.
func (v *Voucher) TradingAlreadyApplied(tradingReference string) bool {
	return v.ExternalTradingReference != nil && *v.ExternalTradingReference == tradingReference
}
