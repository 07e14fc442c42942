package allocation

import (
	"github.com/cellar/backend/internal/domain/shared"
)

// Status represents the sale status of an allocation.
type Status string

const (
	StatusDraft  Status = "draft"
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// IsValid returns true for a known status value.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusOpen, StatusClosed:
		return true
	}
	return false
}

// Allocation is a pool of bottle-SKU inventory made available for sale.
// The allocation already resolves wine, vintage and format before any
// voucher exists, so quantities are integral bottles.
//
// Invariant: 0 <= SoldQuantity and
// SoldQuantity + sum(active reservation quantities) <= TotalQuantity,
// under all concurrent reservation and release operations. The invariant is
// enforced by conditional SQL updates in the repository, never by
// read-then-write in application code.
type Allocation struct {
	shared.BaseAggregateRoot
	WineName      string
	Vintage       int
	BottleFormat  string
	TotalQuantity int64
	SoldQuantity  int64
	Status        Status
}

// NewAllocation creates a new open allocation.
func NewAllocation(wineName string, vintage int, bottleFormat string, totalQuantity int64) (*Allocation, error) {
	if wineName == "" {
		return nil, shared.NewDomainError("INVALID_WINE_NAME", "Wine name cannot be empty")
	}
	if totalQuantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Total quantity must be positive")
	}

	return &Allocation{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		WineName:          wineName,
		Vintage:           vintage,
		BottleFormat:      bottleFormat,
		TotalQuantity:     totalQuantity,
		SoldQuantity:      0,
		Status:            StatusOpen,
	}, nil
}

// RemainingQuantity returns total minus sold. Active reservations are not
// subtracted here; capacity checks that include them happen in the
// repository's conditional insert.
func (a *Allocation) RemainingQuantity() int64 {
	return a.TotalQuantity - a.SoldQuantity
}

// IsOpen returns true if the allocation accepts new reservations.
func (a *Allocation) IsOpen() bool {
	return a.Status == StatusOpen
}

// Close marks the allocation as closed for new reservations.
func (a *Allocation) Close() {
	a.Status = StatusClosed
}

// CanConfirm reports whether confirming qty more units would keep the
// sold-quantity invariant. The authoritative check is the repository's
// conditional update; this guard exists for early validation and tests.
func (a *Allocation) CanConfirm(qty int64) bool {
	return qty > 0 && a.SoldQuantity+qty <= a.TotalQuantity
}
