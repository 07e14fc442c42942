package procurement

import (
	"context"
	"fmt"

	"github.com/cellar/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// IntentStatus represents the Ops workflow status of a procurement intent.
type IntentStatus string

const (
	IntentStatusDraft     IntentStatus = "draft"
	IntentStatusOrdered   IntentStatus = "ordered"
	IntentStatusReceived  IntentStatus = "received"
	IntentStatusCancelled IntentStatus = "cancelled"
)

// ProcurementIntent is a draft request for Ops to source replacement
// inventory, auto-created when vouchers are issued. Creation is keyed by
// (SourceAllocationID, SourceVoucherID) with a uniqueness constraint so a
// retried trigger either no-ops or fails with ErrAlreadyExists instead of
// duplicating the intent.
type ProcurementIntent struct {
	shared.BaseEntity
	Quantity           int
	SourceAllocationID uuid.UUID
	SourceVoucherID    uuid.UUID
	Rationale          string
	NeedsOpsReview     bool
	Status             IntentStatus
	EstimatedUnitCost  decimal.Decimal
}

// NewProcurementIntent creates a draft intent flagged for Ops review.
// The rationale embeds the sale reference and allocation id so the intent
// carries full provenance for audit.
func NewProcurementIntent(quantity int, sourceAllocationID, sourceVoucherID uuid.UUID, saleReference string, estimatedUnitCost decimal.Decimal) (*ProcurementIntent, error) {
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Intent quantity must be positive")
	}
	if estimatedUnitCost.IsNegative() {
		return nil, shared.NewDomainError("INVALID_UNIT_COST", "Estimated unit cost cannot be negative")
	}

	rationale := fmt.Sprintf(
		"Replenish %d bottle(s) sold from allocation %s (sale %s)",
		quantity, sourceAllocationID, saleReference,
	)

	return &ProcurementIntent{
		BaseEntity:         shared.NewBaseEntity(),
		Quantity:           quantity,
		SourceAllocationID: sourceAllocationID,
		SourceVoucherID:    sourceVoucherID,
		Rationale:          rationale,
		NeedsOpsReview:     true,
		Status:             IntentStatusDraft,
		EstimatedUnitCost:  estimatedUnitCost,
	}, nil
}

// EstimatedTotalCost returns quantity times estimated unit cost.
func (i *ProcurementIntent) EstimatedTotalCost() decimal.Decimal {
	return i.EstimatedUnitCost.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// IntentRepository persists ProcurementIntent rows.
type IntentRepository interface {
	// FindByID finds an intent by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*ProcurementIntent, error)
	// FindBySource finds the intent created for a given issuance batch,
	// or shared.ErrNotFound.
	FindBySource(ctx context.Context, allocationID, voucherID uuid.UUID) (*ProcurementIntent, error)
	// Save creates an intent. The (source_allocation_id, source_voucher_id)
	// uniqueness constraint maps a duplicate insert to
	// shared.ErrAlreadyExists.
	Save(ctx context.Context, intent *ProcurementIntent) error
}
