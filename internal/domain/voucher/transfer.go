package voucher

import (
	"time"

	"github.com/cellar/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// TransferStatus represents the lifecycle of a transfer offer.
type TransferStatus string

const (
	TransferStatusPending   TransferStatus = "pending"
	TransferStatusAccepted  TransferStatus = "accepted"
	TransferStatusExpired   TransferStatus = "expired"
	TransferStatusCancelled TransferStatus = "cancelled"
)

// VoucherTransfer is a time-boxed offer to move a voucher to another
// customer. At most one pending transfer may exist per voucher. Expiring a
// transfer only closes the offer; the owning voucher's lifecycle state is
// never touched by expiry.
type VoucherTransfer struct {
	shared.BaseEntity
	VoucherID      uuid.UUID
	FromCustomerID uuid.UUID
	ToCustomerID   uuid.UUID
	Status         TransferStatus
	ExpiresAt      time.Time
}

// NewVoucherTransfer creates a pending transfer offer.
func NewVoucherTransfer(voucherID, fromCustomerID, toCustomerID uuid.UUID, expiresAt time.Time) (*VoucherTransfer, error) {
	if fromCustomerID == toCustomerID {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Cannot transfer a voucher to its current owner")
	}

	return &VoucherTransfer{
		BaseEntity:     shared.NewBaseEntity(),
		VoucherID:      voucherID,
		FromCustomerID: fromCustomerID,
		ToCustomerID:   toCustomerID,
		Status:         TransferStatusPending,
		ExpiresAt:      expiresAt,
	}, nil
}

// IsPending returns true while the offer is open.
func (t *VoucherTransfer) IsPending() bool {
	return t.Status == TransferStatusPending
}

// IsExpiredAt returns true when the acceptance window has elapsed at the
// given reference time.
func (t *VoucherTransfer) IsExpiredAt(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// Accept closes the offer as accepted.
func (t *VoucherTransfer) Accept() error {
	if t.Status != TransferStatusPending {
		return shared.ErrTransferNotPending
	}
	t.Status = TransferStatusAccepted
	t.UpdatedAt = time.Now()
	return nil
}

// Cancel closes the offer as cancelled.
func (t *VoucherTransfer) Cancel() error {
	if t.Status != TransferStatusPending {
		return shared.ErrTransferNotPending
	}
	t.Status = TransferStatusCancelled
	t.UpdatedAt = time.Now()
	return nil
}

// Expire closes the offer as expired.
func (t *VoucherTransfer) Expire() error {
	if t.Status != TransferStatusPending {
		return shared.ErrTransferNotPending
	}
	t.Status = TransferStatusExpired
	t.UpdatedAt = time.Now()
	return nil
}
