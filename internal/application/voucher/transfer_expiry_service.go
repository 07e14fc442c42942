package voucher

import (
	"context"
	"time"

	"github.com/cellar/backend/internal/domain/audit"
	"github.com/cellar/backend/internal/domain/voucher"
	"go.uber.org/zap"
)

// TransferExpiryService closes transfer offers whose acceptance window has
// elapsed. Expiring an offer never touches the voucher's lifecycle state or
// owner; the voucher simply stays with the sender.
type TransferExpiryService struct {
	transferRepo voucher.TransferRepository
	txScope      TransactionScope
	logger       *zap.Logger
}

// NewTransferExpiryService creates a new TransferExpiryService.
func NewTransferExpiryService(
	transferRepo voucher.TransferRepository,
	txScope TransactionScope,
	logger *zap.Logger,
) *TransferExpiryService {
	return &TransferExpiryService{
		transferRepo: transferRepo,
		txScope:      txScope,
		logger:       logger,
	}
}

// SweepStats contains statistics about one transfer expiry sweep.
type SweepStats struct {
	Found       int       `json:"found"`
	Expired     int       `json:"expired"`
	Failed      int       `json:"failed"`
	ProcessedAt time.Time `json:"processed_at"`
}

// ExpireOverdue finds and expires all overdue pending transfers. Each row is
// closed with a conditional status transition, so overlapping sweeps and a
// sweep racing an accept resolve to one winner per transfer.
func (s *TransferExpiryService) ExpireOverdue(ctx context.Context) (*SweepStats, error) {
	stats := &SweepStats{
		ProcessedAt: time.Now(),
	}

	overdue, err := s.transferRepo.FindExpired(ctx, time.Now())
	if err != nil {
		s.logger.Error("Failed to find expired transfers", zap.Error(err))
		return nil, err
	}

	stats.Found = len(overdue)
	if stats.Found == 0 {
		s.logger.Debug("No expired transfers found")
		return stats, nil
	}

	s.logger.Info("Found expired transfers",
		zap.Int("count", stats.Found),
	)

	for _, t := range overdue {
		expired, err := s.expireOne(ctx, &t)
		if err != nil {
			s.logger.Error("Failed to expire transfer",
				zap.String("transfer_id", t.ID.String()),
				zap.String("voucher_id", t.VoucherID.String()),
				zap.Error(err),
			)
			stats.Failed++
			continue
		}
		if expired {
			stats.Expired++
		}
	}

	s.logger.Info("Completed transfer expiry sweep",
		zap.Int("found", stats.Found),
		zap.Int("expired", stats.Expired),
		zap.Int("failed", stats.Failed),
	)

	return stats, nil
}

// expireOne closes a single overdue transfer with its audit entry in one
// transaction. Returns false when another writer already moved the row.
func (s *TransferExpiryService) expireOne(ctx context.Context, t *voucher.VoucherTransfer) (bool, error) {
	var expired bool

	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		moved, err := repos.Transfers().TransitionStatus(ctx, t.ID,
			voucher.TransferStatusPending, voucher.TransferStatusExpired)
		if err != nil {
			return err
		}
		if !moved {
			// Accepted or cancelled since the candidate query ran.
			return nil
		}
		expired = true
		t.Status = voucher.TransferStatusExpired

		entry, err := audit.NewEntry(
			audit.AuditableVoucherTransfer,
			t.ID,
			voucher.EventTypeTransferExpired,
			map[string]any{"status": string(voucher.TransferStatusPending)},
			map[string]any{
				"status":     string(voucher.TransferStatusExpired),
				"voucher_id": t.VoucherID.String(),
				"expired_at": t.ExpiresAt,
			},
			nil,
		)
		if err != nil {
			return err
		}
		if err := repos.Audit().Append(ctx, entry); err != nil {
			return err
		}

		return repos.Events().Publish(ctx, voucher.NewTransferEvent(voucher.EventTypeTransferExpired, t))
	})
	if err != nil {
		return false, err
	}

	if expired {
		s.logger.Debug("Expired transfer offer",
			zap.String("transfer_id", t.ID.String()),
			zap.String("voucher_id", t.VoucherID.String()),
		)
	}
	return expired, nil
}
