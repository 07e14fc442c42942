package voucher

import (
	"context"
	"time"

	"github.com/cellar/backend/internal/domain/audit"
	"github.com/cellar/backend/internal/domain/shared"
	"github.com/cellar/backend/internal/domain/voucher"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultTransferWindow is the default acceptance window for a transfer
	// offer (72 hours)
	DefaultTransferWindow = 72 * time.Hour
)

// TransferService manages gifting transfers: time-boxed offers to move a
// voucher to another customer. At most one pending offer exists per voucher;
// the storage layer's uniqueness constraint is the authority.
type TransferService struct {
	voucherRepo    voucher.VoucherRepository
	transferRepo   voucher.TransferRepository
	txScope        TransactionScope
	logger         *zap.Logger
	transferWindow time.Duration
}

// NewTransferService creates a new TransferService.
func NewTransferService(
	voucherRepo voucher.VoucherRepository,
	transferRepo voucher.TransferRepository,
	txScope TransactionScope,
	logger *zap.Logger,
) *TransferService {
	return &TransferService{
		voucherRepo:    voucherRepo,
		transferRepo:   transferRepo,
		txScope:        txScope,
		logger:         logger,
		transferWindow: DefaultTransferWindow,
	}
}

// SetTransferWindow overrides the acceptance window (from config).
func (s *TransferService) SetTransferWindow(d time.Duration) {
	if d > 0 {
		s.transferWindow = d
	}
}

// GetTransfer retrieves a transfer by ID.
func (s *TransferService) GetTransfer(ctx context.Context, id uuid.UUID) (*TransferResponse, error) {
	t, err := s.transferRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToTransferResponse(t)
	return &response, nil
}

// Initiate opens a transfer offer for a voucher. The voucher must be
// non-terminal, not suspended and giftable, and must have no pending offer.
func (s *TransferService) Initiate(ctx context.Context, voucherID, toCustomerID uuid.UUID, actorID *uuid.UUID) (*TransferResponse, error) {
	var response TransferResponse

	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		v, err := repos.Vouchers().FindByID(ctx, voucherID)
		if err != nil {
			return err
		}
		if !v.CanTransfer() {
			return shared.NewDomainError("VALIDATION_ERROR", "Voucher cannot be transferred in its current state")
		}

		t, err := voucher.NewVoucherTransfer(voucherID, v.CustomerID, toCustomerID, time.Now().Add(s.transferWindow))
		if err != nil {
			return err
		}
		if err := repos.Transfers().Save(ctx, t); err != nil {
			return err
		}

		entry, err := audit.NewEntry(
			audit.AuditableVoucherTransfer,
			t.ID,
			voucher.EventTypeTransferInitiated,
			nil,
			map[string]any{
				"voucher_id":       t.VoucherID.String(),
				"from_customer_id": t.FromCustomerID.String(),
				"to_customer_id":   t.ToCustomerID.String(),
				"expires_at":       t.ExpiresAt,
			},
			actorID,
		)
		if err != nil {
			return err
		}
		if err := repos.Audit().Append(ctx, entry); err != nil {
			return err
		}

		if err := repos.Events().Publish(ctx, voucher.NewTransferEvent(voucher.EventTypeTransferInitiated, t)); err != nil {
			return err
		}

		response = ToTransferResponse(t)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Transfer initiated",
		zap.String("transfer_id", response.ID.String()),
		zap.String("voucher_id", voucherID.String()),
		zap.String("to_customer_id", toCustomerID.String()),
	)
	return &response, nil
}

// Accept closes a pending offer and reassigns the voucher to the recipient.
// The pending->accepted transition is conditional, so an accept racing the
// expiry sweep resolves to exactly one winner; the loser gets
// TRANSFER_NOT_PENDING. Acceptance is blocked while the voucher is suspended.
func (s *TransferService) Accept(ctx context.Context, transferID uuid.UUID, actorID *uuid.UUID) (*TransferResponse, error) {
	var response TransferResponse

	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		t, err := repos.Transfers().FindByID(ctx, transferID)
		if err != nil {
			return err
		}
		v, err := repos.Vouchers().FindByID(ctx, t.VoucherID)
		if err != nil {
			return err
		}
		if v.Suspended {
			return shared.NewDomainError("VALIDATION_ERROR", "Voucher is suspended")
		}
		if v.LifecycleState.IsTerminal() {
			return shared.NewDomainError("VALIDATION_ERROR", "Voucher is already redeemed")
		}

		moved, err := repos.Transfers().TransitionStatus(ctx, transferID,
			voucher.TransferStatusPending, voucher.TransferStatusAccepted)
		if err != nil {
			return err
		}
		if !moved {
			return shared.ErrTransferNotPending
		}
		t.Status = voucher.TransferStatusAccepted

		oldOwner := v.CustomerID
		v.CustomerID = t.ToCustomerID
		v.UpdatedAt = time.Now()
		v.IncrementVersion()
		if err := repos.Vouchers().SaveWithLock(ctx, v); err != nil {
			return err
		}

		entry, err := audit.NewEntry(
			audit.AuditableVoucher,
			v.ID,
			voucher.EventTypeTransferAccepted,
			map[string]any{"customer_id": oldOwner.String()},
			map[string]any{
				"customer_id": v.CustomerID.String(),
				"transfer_id": t.ID.String(),
			},
			actorID,
		)
		if err != nil {
			return err
		}
		if err := repos.Audit().Append(ctx, entry); err != nil {
			return err
		}

		if err := repos.Events().Publish(ctx, voucher.NewTransferEvent(voucher.EventTypeTransferAccepted, t)); err != nil {
			return err
		}

		response = ToTransferResponse(t)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Transfer accepted",
		zap.String("transfer_id", transferID.String()),
		zap.String("voucher_id", response.VoucherID.String()),
		zap.String("new_owner_id", response.ToCustomerID.String()),
	)
	return &response, nil
}

// Cancel closes a pending offer as cancelled. Cancelling an offer that is no
// longer pending is a no-op success.
func (s *TransferService) Cancel(ctx context.Context, transferID uuid.UUID, actorID *uuid.UUID) error {
	return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		t, err := repos.Transfers().FindByID(ctx, transferID)
		if err != nil {
			return err
		}

		moved, err := repos.Transfers().TransitionStatus(ctx, transferID,
			voucher.TransferStatusPending, voucher.TransferStatusCancelled)
		if err != nil {
			return err
		}
		if !moved {
			s.logger.Debug("Cancel skipped, transfer not pending",
				zap.String("transfer_id", transferID.String()),
				zap.String("status", string(t.Status)),
			)
			return nil
		}
		t.Status = voucher.TransferStatusCancelled

		entry, err := audit.NewEntry(
			audit.AuditableVoucherTransfer,
			t.ID,
			"voucher.transfer_cancelled",
			map[string]any{"status": string(voucher.TransferStatusPending)},
			map[string]any{"status": string(voucher.TransferStatusCancelled)},
			actorID,
		)
		if err != nil {
			return err
		}
		if err := repos.Audit().Append(ctx, entry); err != nil {
			return err
		}

		s.logger.Info("Transfer cancelled",
			zap.String("transfer_id", transferID.String()),
			zap.String("voucher_id", t.VoucherID.String()),
		)
		return nil
	})
}
