package voucher

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// VoucherRepository persists Voucher aggregates.
type VoucherRepository interface {
	// FindByID finds a voucher by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Voucher, error)
	// FindByTradingReference finds a voucher carrying the given external
	// trading reference, or shared.ErrNotFound.
	FindByTradingReference(ctx context.Context, reference string) (*Voucher, error)
	// Save creates a voucher
	Save(ctx context.Context, v *Voucher) error
	// SaveAll creates a batch of vouchers in one statement
	SaveAll(ctx context.Context, vouchers []*Voucher) error
	// SaveWithLock updates a voucher with optimistic locking (checks
	// version); returns shared.ErrConcurrencyConflict on a stale version.
	SaveWithLock(ctx context.Context, v *Voucher) error
}

// TransferRepository persists VoucherTransfer rows.
type TransferRepository interface {
	// FindByID finds a transfer by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*VoucherTransfer, error)
	// FindPendingByVoucher returns the pending transfer for a voucher, or
	// shared.ErrNotFound when the voucher has no open offer.
	FindPendingByVoucher(ctx context.Context, voucherID uuid.UUID) (*VoucherTransfer, error)
	// Save creates a transfer. The storage layer enforces at most one
	// pending transfer per voucher; a second insert returns
	// shared.ErrAlreadyExists.
	Save(ctx context.Context, t *VoucherTransfer) error
	// FindExpired returns transfers with status=pending and
	// expires_at <= now, oldest deadline first.
	FindExpired(ctx context.Context, now time.Time) ([]VoucherTransfer, error)
	// TransitionStatus conditionally moves a transfer from one status to
	// another. Returns (true, nil) when this call performed the transition
	// and (false, nil) when the row was not in the expected status.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to TransferStatus) (bool, error)
}
