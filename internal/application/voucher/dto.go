package voucher

import (
	"time"

	"github.com/cellar/backend/internal/domain/voucher"
	"github.com/google/uuid"
)

// VoucherResponse describes a voucher for read endpoints.
type VoucherResponse struct {
	ID                       uuid.UUID `json:"id"`
	AllocationID             uuid.UUID `json:"allocation_id"`
	CustomerID               uuid.UUID `json:"customer_id"`
	LifecycleState           string    `json:"lifecycle_state"`
	Suspended                bool      `json:"suspended"`
	Tradable                 bool      `json:"tradable"`
	Giftable                 bool      `json:"giftable"`
	ExternalTradingReference *string   `json:"external_trading_reference,omitempty"`
	CreatedAt                time.Time `json:"created_at"`
	UpdatedAt                time.Time `json:"updated_at"`
}

// ToVoucherResponse maps a domain voucher to its response shape.
func ToVoucherResponse(v *voucher.Voucher) VoucherResponse {
	return VoucherResponse{
		ID:                       v.ID,
		AllocationID:             v.AllocationID,
		CustomerID:               v.CustomerID,
		LifecycleState:           string(v.LifecycleState),
		Suspended:                v.Suspended,
		Tradable:                 v.Tradable,
		Giftable:                 v.Giftable,
		ExternalTradingReference: v.ExternalTradingReference,
		CreatedAt:                v.CreatedAt,
		UpdatedAt:                v.UpdatedAt,
	}
}

// TransferResponse describes a transfer offer.
type TransferResponse struct {
	ID             uuid.UUID `json:"id"`
	VoucherID      uuid.UUID `json:"voucher_id"`
	FromCustomerID uuid.UUID `json:"from_customer_id"`
	ToCustomerID   uuid.UUID `json:"to_customer_id"`
	Status         string    `json:"status"`
	ExpiresAt      time.Time `json:"expires_at"`
	CreatedAt      time.Time `json:"created_at"`
}

// ToTransferResponse maps a domain transfer to its response shape.
func ToTransferResponse(t *voucher.VoucherTransfer) TransferResponse {
	return TransferResponse{
		ID:             t.ID,
		VoucherID:      t.VoucherID,
		FromCustomerID: t.FromCustomerID,
		ToCustomerID:   t.ToCustomerID,
		Status:         string(t.Status),
		ExpiresAt:      t.ExpiresAt,
		CreatedAt:      t.CreatedAt,
	}
}

// CompleteTradingRequest carries the input of the trading completion
// gateway after signature verification.
type CompleteTradingRequest struct {
	VoucherID        uuid.UUID `json:"voucher_id"`
	NewCustomerID    uuid.UUID `json:"new_customer_id"`
	TradingReference string    `json:"trading_reference"`
}

// TradingResult describes the outcome of a trading completion call.
// AlreadyApplied is true when the voucher already carried the trading
// reference and the call changed nothing.
type TradingResult struct {
	VoucherID        uuid.UUID `json:"voucher_id"`
	CustomerID       uuid.UUID `json:"customer_id"`
	TradingReference string    `json:"trading_reference"`
	AlreadyApplied   bool      `json:"already_applied"`
}
