package procurement

import (
	"context"
	"errors"
	"fmt"

	"github.com/cellar/backend/internal/domain/allocation"
	"github.com/cellar/backend/internal/domain/audit"
	"github.com/cellar/backend/internal/domain/procurement"
	"github.com/cellar/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// VoucherIssuedHandler reacts to voucher issuance by drafting a procurement
// intent to replenish the sold bottles. The outbox delivers events
// at-least-once, so the handler is duplicate-safe: the intent's
// (allocation, voucher) uniqueness key makes a redelivered event a no-op.
//
// Returning an error makes the outbox processor retry; after the retry
// budget the entry goes dead and is logged as requiring operator attention.
// The sale itself is never rolled back for a failed trigger.
type VoucherIssuedHandler struct {
	intentRepo procurement.IntentRepository
	auditSink  audit.Sink
	logger     *zap.Logger
	unitCost   decimal.Decimal
}

// NewVoucherIssuedHandler creates a new VoucherIssuedHandler.
func NewVoucherIssuedHandler(
	intentRepo procurement.IntentRepository,
	auditSink audit.Sink,
	logger *zap.Logger,
) *VoucherIssuedHandler {
	return &VoucherIssuedHandler{
		intentRepo: intentRepo,
		auditSink:  auditSink,
		logger:     logger,
		unitCost:   decimal.Zero,
	}
}

// SetEstimatedUnitCost sets the default unit cost placed on drafted intents
// (from config). Ops refines the figure during review.
func (h *VoucherIssuedHandler) SetEstimatedUnitCost(cost decimal.Decimal) {
	if !cost.IsNegative() {
		h.unitCost = cost
	}
}

// EventTypes returns the event types this handler is interested in
func (h *VoucherIssuedHandler) EventTypes() []string {
	return []string{allocation.EventTypeVouchersIssued}
}

// Handle drafts one procurement intent per issuance batch.
func (h *VoucherIssuedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	issued, ok := event.(*allocation.VouchersIssuedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", allocation.EventTypeVouchersIssued),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			allocation.EventTypeVouchersIssued, event.EventType())
	}

	if len(issued.VoucherIDs) == 0 {
		h.logger.Warn("vouchers issued event carried no voucher ids",
			zap.String("event_id", issued.EventID().String()),
			zap.String("reservation_id", issued.ReservationID.String()),
		)
		return nil
	}

	allocationID := issued.AggregateID()
	firstVoucherID := issued.VoucherIDs[0]

	intent, err := procurement.NewProcurementIntent(
		issued.Quantity(),
		allocationID,
		firstVoucherID,
		issued.SaleReference,
		h.unitCost,
	)
	if err != nil {
		return err
	}

	if err := h.intentRepo.Save(ctx, intent); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			// Redelivered event; the intent is already drafted.
			h.logger.Info("procurement intent already exists for issuance batch",
				zap.String("allocation_id", allocationID.String()),
				zap.String("voucher_id", firstVoucherID.String()),
			)
			return nil
		}
		h.logger.Error("failed to draft procurement intent",
			zap.String("allocation_id", allocationID.String()),
			zap.String("sale_reference", issued.SaleReference),
			zap.Error(err),
		)
		return err
	}

	entry, err := audit.NewEntry(
		audit.AuditableProcurementIntent,
		intent.ID,
		"procurement.intent_drafted",
		nil,
		map[string]any{
			"quantity":             intent.Quantity,
			"source_allocation_id": intent.SourceAllocationID.String(),
			"source_voucher_id":    intent.SourceVoucherID.String(),
			"reservation_id":       issued.ReservationID.String(),
			"sale_reference":       issued.SaleReference,
			"rationale":            intent.Rationale,
			"needs_ops_review":     intent.NeedsOpsReview,
		},
		nil,
	)
	if err != nil {
		return err
	}
	if err := h.auditSink.Append(ctx, entry); err != nil {
		h.logger.Error("failed to audit procurement intent",
			zap.String("intent_id", intent.ID.String()),
			zap.Error(err),
		)
		return err
	}

	h.logger.Info("Procurement intent drafted",
		zap.String("intent_id", intent.ID.String()),
		zap.String("allocation_id", allocationID.String()),
		zap.Int("quantity", intent.Quantity),
		zap.String("sale_reference", issued.SaleReference),
	)
	return nil
}

// Ensure VoucherIssuedHandler implements shared.EventHandler
var _ shared.EventHandler = (*VoucherIssuedHandler)(nil)
