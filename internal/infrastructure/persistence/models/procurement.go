package models

import (
	"github.com/cellar/backend/internal/domain/procurement"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProcurementIntentModel is the persistence model for procurement intents.
// The composite unique index on the source columns makes the issuance
// trigger idempotent: a retried insert for the same batch collides instead
// of duplicating the intent.
type ProcurementIntentModel struct {
	BaseModel
	Quantity           int                      `gorm:"not null"`
	SourceAllocationID uuid.UUID                `gorm:"type:uuid;not null;uniqueIndex:idx_procurement_intents_source"`
	SourceVoucherID    uuid.UUID                `gorm:"type:uuid;not null;uniqueIndex:idx_procurement_intents_source"`
	Rationale          string                   `gorm:"type:text;not null"`
	NeedsOpsReview     bool                     `gorm:"not null;default:true"`
	Status             procurement.IntentStatus `gorm:"type:varchar(20);not null;index"`
	EstimatedUnitCost  decimal.Decimal          `gorm:"type:decimal(12,2);not null"`
}

// TableName returns the table name for GORM
func (ProcurementIntentModel) TableName() string {
	return "procurement_intents"
}

// ToDomain converts the persistence model to a domain ProcurementIntent.
func (m *ProcurementIntentModel) ToDomain() *procurement.ProcurementIntent {
	return &procurement.ProcurementIntent{
		BaseEntity:         m.BaseModel.ToDomain(),
		Quantity:           m.Quantity,
		SourceAllocationID: m.SourceAllocationID,
		SourceVoucherID:    m.SourceVoucherID,
		Rationale:          m.Rationale,
		NeedsOpsReview:     m.NeedsOpsReview,
		Status:             m.Status,
		EstimatedUnitCost:  m.EstimatedUnitCost,
	}
}

// FromDomain populates the model from a domain ProcurementIntent.
func (m *ProcurementIntentModel) FromDomain(i *procurement.ProcurementIntent) {
	m.FromDomainBaseEntity(i.BaseEntity)
	m.Quantity = i.Quantity
	m.SourceAllocationID = i.SourceAllocationID
	m.SourceVoucherID = i.SourceVoucherID
	m.Rationale = i.Rationale
	m.NeedsOpsReview = i.NeedsOpsReview
	m.Status = i.Status
	m.EstimatedUnitCost = i.EstimatedUnitCost
}
