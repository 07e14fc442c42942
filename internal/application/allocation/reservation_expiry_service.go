package allocation

import (
	"context"
	"time"

	"github.com/cellar/backend/internal/domain/allocation"
	"github.com/cellar/backend/internal/domain/audit"
	"go.uber.org/zap"
)

// ReservationExpiryService releases reservations whose hold deadline has
// passed. Expiry is a soft deadline: a reservation stays valid until a sweep
// actually transitions it, and sold quantity is never touched by expiry.
type ReservationExpiryService struct {
	reservationRepo allocation.ReservationRepository
	txScope         TransactionScope
	logger          *zap.Logger
}

// NewReservationExpiryService creates a new ReservationExpiryService.
func NewReservationExpiryService(
	reservationRepo allocation.ReservationRepository,
	txScope TransactionScope,
	logger *zap.Logger,
) *ReservationExpiryService {
	return &ReservationExpiryService{
		reservationRepo: reservationRepo,
		txScope:         txScope,
		logger:          logger,
	}
}

// SweepStats contains statistics about one expiry sweep.
type SweepStats struct {
	Found       int       `json:"found"`
	Released    int       `json:"released"`
	Failed      int       `json:"failed"`
	ProcessedAt time.Time `json:"processed_at"`
}

// ReleaseExpired finds and releases all overdue active reservations. Each
// row is released with a conditional status transition, so two overlapping
// sweeps (or a sweep racing a confirm) resolve to exactly one winner per
// reservation. Failures are logged and left for the next sweep.
func (s *ReservationExpiryService) ReleaseExpired(ctx context.Context) (*SweepStats, error) {
	stats := &SweepStats{
		ProcessedAt: time.Now(),
	}

	expired, err := s.reservationRepo.FindExpired(ctx, time.Now())
	if err != nil {
		s.logger.Error("Failed to find expired reservations", zap.Error(err))
		return nil, err
	}

	stats.Found = len(expired)
	if stats.Found == 0 {
		s.logger.Debug("No expired reservations found")
		return stats, nil
	}

	s.logger.Info("Found expired reservations",
		zap.Int("count", stats.Found),
	)

	for _, r := range expired {
		released, err := s.releaseOne(ctx, &r)
		if err != nil {
			s.logger.Error("Failed to release expired reservation",
				zap.String("reservation_id", r.ID.String()),
				zap.String("allocation_id", r.AllocationID.String()),
				zap.Error(err),
			)
			stats.Failed++
			continue
		}
		if released {
			stats.Released++
		}
	}

	s.logger.Info("Completed reservation expiry sweep",
		zap.Int("found", stats.Found),
		zap.Int("released", stats.Released),
		zap.Int("failed", stats.Failed),
	)

	return stats, nil
}

// releaseOne releases a single expired reservation with its audit entry in
// one transaction. Returns false when another writer already moved the row.
func (s *ReservationExpiryService) releaseOne(ctx context.Context, r *allocation.TemporaryReservation) (bool, error) {
	var released bool

	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		moved, err := repos.Reservations().TransitionStatus(ctx, r.ID,
			allocation.ReservationStatusActive, allocation.ReservationStatusExpired)
		if err != nil {
			return err
		}
		if !moved {
			// Confirmed or already expired since the candidate query ran.
			return nil
		}
		released = true

		entry, err := audit.NewEntry(
			audit.AuditableReservation,
			r.ID,
			"reservation.expired",
			map[string]any{"status": string(allocation.ReservationStatusActive)},
			map[string]any{
				"status":         string(allocation.ReservationStatusExpired),
				"quantity":       r.Quantity,
				"sale_reference": r.SaleReference,
				"expired_at":     r.ExpiresAt,
			},
			nil,
		)
		if err != nil {
			return err
		}
		if err := repos.Audit().Append(ctx, entry); err != nil {
			return err
		}

		return repos.Events().Publish(ctx, allocation.NewReservationExpiredEvent(r.AllocationID, r))
	})
	if err != nil {
		return false, err
	}

	if released {
		s.logger.Debug("Released expired reservation",
			zap.String("reservation_id", r.ID.String()),
			zap.String("allocation_id", r.AllocationID.String()),
			zap.Int64("quantity", r.Quantity),
		)
	}
	return released, nil
}
