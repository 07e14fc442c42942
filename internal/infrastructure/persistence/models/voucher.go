package models

import (
	"time"

	"github.com/cellar/backend/internal/domain/shared"
	"github.com/cellar/backend/internal/domain/voucher"
	"github.com/google/uuid"
)

// VoucherModel is the persistence model for the Voucher aggregate root.
// The unique index on external_trading_reference backs the trading
// gateway's idempotency lookup.
type VoucherModel struct {
	AggregateModel
	AllocationID             uuid.UUID              `gorm:"type:uuid;not null;index"`
	CustomerID               uuid.UUID              `gorm:"type:uuid;not null;index"`
	LifecycleState           voucher.LifecycleState `gorm:"type:varchar(20);not null;index"`
	Suspended                bool                   `gorm:"not null;default:false"`
	Tradable                 bool                   `gorm:"not null;default:true"`
	Giftable                 bool                   `gorm:"not null;default:true"`
	ExternalTradingReference *string                `gorm:"type:varchar(255);uniqueIndex"`
}

// TableName returns the table name for GORM
func (VoucherModel) TableName() string {
	return "vouchers"
}

// ToDomain converts the persistence model to a domain Voucher.
func (m *VoucherModel) ToDomain() *voucher.Voucher {
	return &voucher.Voucher{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		AllocationID:             m.AllocationID,
		CustomerID:               m.CustomerID,
		LifecycleState:           m.LifecycleState,
		Suspended:                m.Suspended,
		Tradable:                 m.Tradable,
		Giftable:                 m.Giftable,
		ExternalTradingReference: m.ExternalTradingReference,
	}
}

// FromDomain populates the model from a domain Voucher.
func (m *VoucherModel) FromDomain(v *voucher.Voucher) {
	m.FromDomainAggregateRoot(v.BaseAggregateRoot)
	m.AllocationID = v.AllocationID
	m.CustomerID = v.CustomerID
	m.LifecycleState = v.LifecycleState
	m.Suspended = v.Suspended
	m.Tradable = v.Tradable
	m.Giftable = v.Giftable
	m.ExternalTradingReference = v.ExternalTradingReference
}

// VoucherTransferModel is the persistence model for transfer offers.
// A partial unique index (one pending row per voucher, created in the
// migrations) enforces the at-most-one-open-offer rule at the storage level.
type VoucherTransferModel struct {
	BaseModel
	VoucherID      uuid.UUID              `gorm:"type:uuid;not null;index"`
	FromCustomerID uuid.UUID              `gorm:"type:uuid;not null"`
	ToCustomerID   uuid.UUID              `gorm:"type:uuid;not null;index"`
	Status         voucher.TransferStatus `gorm:"type:varchar(20);not null;index"`
	ExpiresAt      time.Time              `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (VoucherTransferModel) TableName() string {
	return "voucher_transfers"
}

// ToDomain converts the persistence model to a domain VoucherTransfer.
func (m *VoucherTransferModel) ToDomain() *voucher.VoucherTransfer {
	return &voucher.VoucherTransfer{
		BaseEntity:     m.BaseModel.ToDomain(),
		VoucherID:      m.VoucherID,
		FromCustomerID: m.FromCustomerID,
		ToCustomerID:   m.ToCustomerID,
		Status:         m.Status,
		ExpiresAt:      m.ExpiresAt,
	}
}

// FromDomain populates the model from a domain VoucherTransfer.
func (m *VoucherTransferModel) FromDomain(t *voucher.VoucherTransfer) {
	m.FromDomainBaseEntity(t.BaseEntity)
	m.VoucherID = t.VoucherID
	m.FromCustomerID = t.FromCustomerID
	m.ToCustomerID = t.ToCustomerID
	m.Status = t.Status
	m.ExpiresAt = t.ExpiresAt
}
