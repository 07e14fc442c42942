package voucher

import (
	"context"
	"errors"

	"github.com/cellar/backend/internal/domain/audit"
	"github.com/cellar/backend/internal/domain/shared"
	"github.com/cellar/backend/internal/domain/voucher"
	"github.com/cellar/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// TradingService applies trading completions reported by the external
// trading platform. The platform retries callbacks, so completion is
// idempotent per trading reference: a duplicate call for the reference
// already stored on the voucher succeeds without changing anything.
type TradingService struct {
	voucherRepo voucher.VoucherRepository
	txScope     TransactionScope
	logger      *zap.Logger
}

// NewTradingService creates a new TradingService.
func NewTradingService(
	voucherRepo voucher.VoucherRepository,
	txScope TransactionScope,
	logger *zap.Logger,
) *TradingService {
	return &TradingService{
		voucherRepo: voucherRepo,
		txScope:     txScope,
		logger:      logger,
	}
}

// CompleteTrading reassigns voucher ownership following an off-platform
// trade. Owner reassignment, the audit entry recording old and new owner and
// the TradingCompleted outbox event commit in one transaction.
func (s *TradingService) CompleteTrading(ctx context.Context, req CompleteTradingRequest) (*TradingResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "trading", "complete")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrVoucherID, req.VoucherID.String(),
		telemetry.SpanAttrTradingReference, req.TradingReference,
	)

	if req.TradingReference == "" {
		err := shared.NewDomainError("VALIDATION_ERROR", "Trading reference cannot be empty")
		telemetry.RecordError(span, err)
		return nil, err
	}

	// A reference can settle exactly one trade. If another voucher already
	// carries it, the platform sent a conflicting callback.
	existing, err := s.voucherRepo.FindByTradingReference(ctx, req.TradingReference)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if existing != nil && existing.ID != req.VoucherID {
		err := shared.NewDomainError("ALREADY_EXISTS", "Trading reference already applied to another voucher")
		telemetry.RecordError(span, err)
		return nil, err
	}

	var result *TradingResult

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		v, err := repos.Vouchers().FindByID(ctx, req.VoucherID)
		if err != nil {
			return err
		}

		if v.TradingAlreadyApplied(req.TradingReference) {
			s.logger.Info("Trading completion already applied",
				zap.String("voucher_id", v.ID.String()),
				zap.String("trading_reference", req.TradingReference),
			)
			result = &TradingResult{
				VoucherID:        v.ID,
				CustomerID:       v.CustomerID,
				TradingReference: req.TradingReference,
				AlreadyApplied:   true,
			}
			return nil
		}

		oldOwner := v.CustomerID
		if err := v.CompleteTrading(req.NewCustomerID, req.TradingReference); err != nil {
			return err
		}
		v.IncrementVersion()
		if err := repos.Vouchers().SaveWithLock(ctx, v); err != nil {
			return err
		}

		entry, err := audit.NewEntry(
			audit.AuditableVoucher,
			v.ID,
			voucher.EventTypeTradingCompleted,
			map[string]any{"customer_id": oldOwner.String()},
			map[string]any{
				"customer_id":       v.CustomerID.String(),
				"trading_reference": req.TradingReference,
			},
			nil,
		)
		if err != nil {
			return err
		}
		if err := repos.Audit().Append(ctx, entry); err != nil {
			return err
		}

		event := voucher.NewTradingCompletedEvent(v.ID, oldOwner, v.CustomerID, req.TradingReference)
		if err := repos.Events().Publish(ctx, event); err != nil {
			return err
		}

		result = &TradingResult{
			VoucherID:        v.ID,
			CustomerID:       v.CustomerID,
			TradingReference: req.TradingReference,
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if !result.AlreadyApplied {
		telemetry.AddEvent(span, "ownership_reassigned",
			"voucher_id", result.VoucherID.String(),
			"new_owner_id", result.CustomerID.String(),
		)
		s.logger.Info("Trading completion applied",
			zap.String("voucher_id", result.VoucherID.String()),
			zap.String("new_customer_id", result.CustomerID.String()),
			zap.String("trading_reference", result.TradingReference),
		)
	}
	return result, nil
}
