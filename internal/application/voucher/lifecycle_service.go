package voucher

import (
	"context"

	"github.com/cellar/backend/internal/domain/audit"
	"github.com/cellar/backend/internal/domain/voucher"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LifecycleService drives voucher lifecycle transitions. Every transition is
// guarded by the domain transition table, saved with optimistic locking and
// audited in the same transaction.
type LifecycleService struct {
	voucherRepo voucher.VoucherRepository
	txScope     TransactionScope
	logger      *zap.Logger
}

// NewLifecycleService creates a new LifecycleService.
func NewLifecycleService(
	voucherRepo voucher.VoucherRepository,
	txScope TransactionScope,
	logger *zap.Logger,
) *LifecycleService {
	return &LifecycleService{
		voucherRepo: voucherRepo,
		txScope:     txScope,
		logger:      logger,
	}
}

// GetVoucher retrieves a voucher by ID.
func (s *LifecycleService) GetVoucher(ctx context.Context, id uuid.UUID) (*VoucherResponse, error) {
	v, err := s.voucherRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToVoucherResponse(v)
	return &response, nil
}

// Lock transitions a voucher from issued to locked ahead of fulfillment.
func (s *LifecycleService) Lock(ctx context.Context, voucherID uuid.UUID, actorID *uuid.UUID) (*VoucherResponse, error) {
	return s.apply(ctx, voucherID, actorID, voucher.EventLock, voucher.EventTypeVoucherLocked)
}

// Redeem transitions a voucher from locked to redeemed. Terminal.
func (s *LifecycleService) Redeem(ctx context.Context, voucherID uuid.UUID, actorID *uuid.UUID) (*VoucherResponse, error) {
	return s.apply(ctx, voucherID, actorID, voucher.EventRedeem, voucher.EventTypeVoucherRedeemed)
}

// apply performs one table-driven lifecycle transition transactionally.
func (s *LifecycleService) apply(ctx context.Context, voucherID uuid.UUID, actorID *uuid.UUID, event voucher.LifecycleEvent, eventType string) (*VoucherResponse, error) {
	var response VoucherResponse

	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		v, err := repos.Vouchers().FindByID(ctx, voucherID)
		if err != nil {
			return err
		}
		oldState := v.LifecycleState

		if err := v.Apply(event); err != nil {
			return err
		}
		v.IncrementVersion()
		if err := repos.Vouchers().SaveWithLock(ctx, v); err != nil {
			return err
		}

		entry, err := audit.NewEntry(
			audit.AuditableVoucher,
			v.ID,
			eventType,
			map[string]any{"lifecycle_state": string(oldState)},
			map[string]any{"lifecycle_state": string(v.LifecycleState)},
			actorID,
		)
		if err != nil {
			return err
		}
		if err := repos.Audit().Append(ctx, entry); err != nil {
			return err
		}

		domainEvent := voucher.NewLifecycleChangedEvent(eventType, v.ID, oldState, v.LifecycleState, v.Suspended)
		if err := repos.Events().Publish(ctx, domainEvent); err != nil {
			return err
		}

		response = ToVoucherResponse(v)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Voucher lifecycle transition applied",
		zap.String("voucher_id", voucherID.String()),
		zap.String("event", string(event)),
		zap.String("new_state", response.LifecycleState),
	)
	return &response, nil
}

// Suspend sets the orthogonal hold flag, blocking lifecycle transitions,
// transfer acceptance and trading until cleared.
func (s *LifecycleService) Suspend(ctx context.Context, voucherID uuid.UUID, actorID *uuid.UUID) (*VoucherResponse, error) {
	return s.setSuspension(ctx, voucherID, actorID, true)
}

// Unsuspend clears the hold flag.
func (s *LifecycleService) Unsuspend(ctx context.Context, voucherID uuid.UUID, actorID *uuid.UUID) (*VoucherResponse, error) {
	return s.setSuspension(ctx, voucherID, actorID, false)
}

func (s *LifecycleService) setSuspension(ctx context.Context, voucherID uuid.UUID, actorID *uuid.UUID, suspend bool) (*VoucherResponse, error) {
	var response VoucherResponse

	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		v, err := repos.Vouchers().FindByID(ctx, voucherID)
		if err != nil {
			return err
		}
		wasSuspended := v.Suspended

		if suspend {
			err = v.Suspend()
		} else {
			err = v.Unsuspend()
		}
		if err != nil {
			return err
		}
		v.IncrementVersion()
		if err := repos.Vouchers().SaveWithLock(ctx, v); err != nil {
			return err
		}

		eventType := voucher.EventTypeVoucherUnsuspended
		if suspend {
			eventType = voucher.EventTypeVoucherSuspended
		}
		entry, err := audit.NewEntry(
			audit.AuditableVoucher,
			v.ID,
			eventType,
			map[string]any{"suspended": wasSuspended},
			map[string]any{"suspended": v.Suspended},
			actorID,
		)
		if err != nil {
			return err
		}
		if err := repos.Audit().Append(ctx, entry); err != nil {
			return err
		}

		domainEvent := voucher.NewLifecycleChangedEvent(eventType, v.ID, v.LifecycleState, v.LifecycleState, v.Suspended)
		if err := repos.Events().Publish(ctx, domainEvent); err != nil {
			return err
		}

		response = ToVoucherResponse(v)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Voucher suspension changed",
		zap.String("voucher_id", voucherID.String()),
		zap.Bool("suspended", response.Suspended),
	)
	return &response, nil
}
