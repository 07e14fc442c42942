package allocation

import (
	"context"
	"time"

	"github.com/cellar/backend/internal/domain/allocation"
	"github.com/cellar/backend/internal/domain/audit"
	"github.com/cellar/backend/internal/domain/shared"
	"github.com/cellar/backend/internal/domain/voucher"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultReservationHold is the default hold duration for a temporary
	// reservation (30 minutes)
	DefaultReservationHold = 30 * time.Minute
)

// LedgerService coordinates the allocation quantity ledger: placing
// temporary holds, confirming them into sold quantity plus minted vouchers,
// and releasing them back to the pool.
//
// Capacity is never checked with a read followed by a write. Reserve relies
// on the repository's conditional insert and Confirm on conditional updates,
// so the sold/reserved invariant holds under arbitrary concurrency.
type LedgerService struct {
	allocationRepo  allocation.AllocationRepository
	reservationRepo allocation.ReservationRepository
	txScope         TransactionScope
	logger          *zap.Logger
	holdDuration    time.Duration
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(
	allocationRepo allocation.AllocationRepository,
	reservationRepo allocation.ReservationRepository,
	txScope TransactionScope,
	logger *zap.Logger,
) *LedgerService {
	return &LedgerService{
		allocationRepo:  allocationRepo,
		reservationRepo: reservationRepo,
		txScope:         txScope,
		logger:          logger,
		holdDuration:    DefaultReservationHold,
	}
}

// SetHoldDuration overrides the reservation hold duration (from config).
func (s *LedgerService) SetHoldDuration(d time.Duration) {
	if d > 0 {
		s.holdDuration = d
	}
}

// GetAllocation retrieves an allocation by ID.
func (s *LedgerService) GetAllocation(ctx context.Context, id uuid.UUID) (*AllocationResponse, error) {
	a, err := s.allocationRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToAllocationResponse(a)
	return &response, nil
}

// GetCapacity reports the allocation's live capacity picture, including the
// quantity currently held by active reservations.
func (s *LedgerService) GetCapacity(ctx context.Context, id uuid.UUID) (*CapacityResponse, error) {
	a, err := s.allocationRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	reserved, err := s.allocationRepo.ActiveReservedQuantity(ctx, id)
	if err != nil {
		return nil, err
	}
	return &CapacityResponse{
		AllocationID:   a.ID,
		TotalQuantity:  a.TotalQuantity,
		SoldQuantity:   a.SoldQuantity,
		ActiveReserved: reserved,
		Available:      a.TotalQuantity - a.SoldQuantity - reserved,
	}, nil
}

// GetReservation retrieves a reservation by ID.
func (s *LedgerService) GetReservation(ctx context.Context, id uuid.UUID) (*ReservationResult, error) {
	r, err := s.reservationRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	result := ToReservationResult(r)
	return &result, nil
}

// Reserve places a temporary hold on allocation capacity. The repository's
// conditional insert is the linearization point: under N concurrent calls
// against remaining capacity C, exactly C single-unit holds succeed and the
// rest fail with INSUFFICIENT_CAPACITY.
func (s *LedgerService) Reserve(ctx context.Context, req ReserveRequest) (*ReservationResult, error) {
	r, err := allocation.NewTemporaryReservation(
		req.AllocationID,
		req.CustomerID,
		req.Quantity,
		req.SaleReference,
		time.Now().Add(s.holdDuration),
	)
	if err != nil {
		return nil, err
	}

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if err := repos.Reservations().InsertIfCapacity(ctx, r); err != nil {
			return err
		}

		entry, err := audit.NewEntry(
			audit.AuditableReservation,
			r.ID,
			"reservation.created",
			nil,
			map[string]any{
				"allocation_id":  r.AllocationID.String(),
				"customer_id":    r.CustomerID.String(),
				"quantity":       r.Quantity,
				"sale_reference": r.SaleReference,
				"expires_at":     r.ExpiresAt,
			},
			req.ActorID,
		)
		if err != nil {
			return err
		}
		if err := repos.Audit().Append(ctx, entry); err != nil {
			return err
		}

		return repos.Events().Publish(ctx, allocation.NewReservationCreatedEvent(r.AllocationID, r))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Reservation created",
		zap.String("reservation_id", r.ID.String()),
		zap.String("allocation_id", r.AllocationID.String()),
		zap.Int64("quantity", r.Quantity),
		zap.String("sale_reference", r.SaleReference),
	)

	result := ToReservationResult(r)
	return &result, nil
}

// Confirm converts an active reservation into permanently sold quantity and
// mints one issued voucher per reserved unit. The whole operation runs in one
// transaction; the VouchersIssued event goes to the outbox and is dispatched
// only after commit.
//
// The active->confirmed transition is conditional: of two racing confirms
// (or a confirm racing an expiry sweep) exactly one wins, the loser gets
// RESERVATION_NOT_ACTIVE.
func (s *LedgerService) Confirm(ctx context.Context, reservationID uuid.UUID, actorID *uuid.UUID) (*ConfirmResult, error) {
	var result *ConfirmResult

	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		r, err := repos.Reservations().FindByID(ctx, reservationID)
		if err != nil {
			return err
		}

		moved, err := repos.Reservations().TransitionStatus(ctx, reservationID,
			allocation.ReservationStatusActive, allocation.ReservationStatusConfirmed)
		if err != nil {
			return err
		}
		if !moved {
			return shared.ErrReservationNotActive
		}

		if err := repos.Allocations().IncrementSold(ctx, r.AllocationID, r.Quantity); err != nil {
			return err
		}

		vouchers := make([]*voucher.Voucher, 0, r.Quantity)
		voucherIDs := make([]uuid.UUID, 0, r.Quantity)
		for i := int64(0); i < r.Quantity; i++ {
			v := voucher.NewVoucher(r.AllocationID, r.CustomerID)
			vouchers = append(vouchers, v)
			voucherIDs = append(voucherIDs, v.ID)
		}
		if err := repos.Vouchers().SaveAll(ctx, vouchers); err != nil {
			return err
		}

		entries := make([]*audit.Entry, 0, len(vouchers)+1)
		confirmEntry, err := audit.NewEntry(
			audit.AuditableReservation,
			r.ID,
			"reservation.confirmed",
			map[string]any{"status": string(allocation.ReservationStatusActive)},
			map[string]any{
				"status":         string(allocation.ReservationStatusConfirmed),
				"sale_reference": r.SaleReference,
				"voucher_count":  len(vouchers),
			},
			actorID,
		)
		if err != nil {
			return err
		}
		entries = append(entries, confirmEntry)
		for _, v := range vouchers {
			issueEntry, err := audit.NewEntry(
				audit.AuditableVoucher,
				v.ID,
				"voucher.issued",
				nil,
				map[string]any{
					"allocation_id":  v.AllocationID.String(),
					"customer_id":    v.CustomerID.String(),
					"state":          string(v.LifecycleState),
					"sale_reference": r.SaleReference,
				},
				actorID,
			)
			if err != nil {
				return err
			}
			entries = append(entries, issueEntry)
		}
		if err := repos.Audit().Append(ctx, entries...); err != nil {
			return err
		}

		event := allocation.NewVouchersIssuedEvent(r.AllocationID, r.ID, r.CustomerID, voucherIDs, r.SaleReference)
		if err := repos.Events().Publish(ctx, event); err != nil {
			return err
		}

		result = &ConfirmResult{
			ReservationID: r.ID,
			AllocationID:  r.AllocationID,
			CustomerID:    r.CustomerID,
			VoucherIDs:    voucherIDs,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Reservation confirmed",
		zap.String("reservation_id", result.ReservationID.String()),
		zap.String("allocation_id", result.AllocationID.String()),
		zap.Int("vouchers_issued", len(result.VoucherIDs)),
	)

	return result, nil
}

// Release returns an active reservation's held capacity to the pool. The
// operation is idempotent: releasing an already released or confirmed
// reservation is a no-op success, and the audit entry is written only when
// this call actually performed the transition.
func (s *LedgerService) Release(ctx context.Context, reservationID uuid.UUID, actorID *uuid.UUID) error {
	return s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		r, err := repos.Reservations().FindByID(ctx, reservationID)
		if err != nil {
			return err
		}

		moved, err := repos.Reservations().TransitionStatus(ctx, reservationID,
			allocation.ReservationStatusActive, allocation.ReservationStatusExpired)
		if err != nil {
			return err
		}
		if !moved {
			s.logger.Debug("Release skipped, reservation not active",
				zap.String("reservation_id", reservationID.String()),
				zap.String("status", string(r.Status)),
			)
			return nil
		}

		entry, err := audit.NewEntry(
			audit.AuditableReservation,
			r.ID,
			"reservation.released",
			map[string]any{"status": string(allocation.ReservationStatusActive)},
			map[string]any{
				"status":         string(allocation.ReservationStatusExpired),
				"quantity":       r.Quantity,
				"sale_reference": r.SaleReference,
			},
			actorID,
		)
		if err != nil {
			return err
		}
		if err := repos.Audit().Append(ctx, entry); err != nil {
			return err
		}

		s.logger.Info("Reservation released",
			zap.String("reservation_id", r.ID.String()),
			zap.String("allocation_id", r.AllocationID.String()),
			zap.Int64("quantity", r.Quantity),
		)
		return repos.Events().Publish(ctx, allocation.NewReservationExpiredEvent(r.AllocationID, r))
	})
}
