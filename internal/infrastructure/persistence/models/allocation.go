package models

import (
	"time"

	"github.com/cellar/backend/internal/domain/allocation"
	"github.com/cellar/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// AllocationModel is the persistence model for the Allocation aggregate root.
// The capacity invariant over sold_quantity and active reservations is
// enforced by conditional SQL in the repositories, so the model carries no
// extra bookkeeping columns.
type AllocationModel struct {
	AggregateModel
	WineName      string            `gorm:"type:varchar(200);not null"`
	Vintage       int               `gorm:"not null"`
	BottleFormat  string            `gorm:"type:varchar(50);not null"`
	TotalQuantity int64             `gorm:"not null"`
	SoldQuantity  int64             `gorm:"not null;default:0"`
	Status        allocation.Status `gorm:"type:varchar(20);not null;index"`
}

// TableName returns the table name for GORM
func (AllocationModel) TableName() string {
	return "allocations"
}

// ToDomain converts the persistence model to a domain Allocation.
func (m *AllocationModel) ToDomain() *allocation.Allocation {
	return &allocation.Allocation{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		WineName:      m.WineName,
		Vintage:       m.Vintage,
		BottleFormat:  m.BottleFormat,
		TotalQuantity: m.TotalQuantity,
		SoldQuantity:  m.SoldQuantity,
		Status:        m.Status,
	}
}

// FromDomain populates the model from a domain Allocation.
func (m *AllocationModel) FromDomain(a *allocation.Allocation) {
	m.FromDomainAggregateRoot(a.BaseAggregateRoot)
	m.WineName = a.WineName
	m.Vintage = a.Vintage
	m.BottleFormat = a.BottleFormat
	m.TotalQuantity = a.TotalQuantity
	m.SoldQuantity = a.SoldQuantity
	m.Status = a.Status
}

// TemporaryReservationModel is the persistence model for temporary
// reservations. The expires_at index serves the expiry sweep's scan.
type TemporaryReservationModel struct {
	BaseModel
	AllocationID  uuid.UUID                    `gorm:"type:uuid;not null;index"`
	CustomerID    uuid.UUID                    `gorm:"type:uuid;not null;index"`
	Quantity      int64                        `gorm:"not null"`
	SaleReference string                       `gorm:"type:varchar(100);not null"`
	ExpiresAt     time.Time                    `gorm:"not null;index"`
	Status        allocation.ReservationStatus `gorm:"type:varchar(20);not null;index"`
}

// TableName returns the table name for GORM
func (TemporaryReservationModel) TableName() string {
	return "temporary_reservations"
}

// ToDomain converts the persistence model to a domain TemporaryReservation.
func (m *TemporaryReservationModel) ToDomain() *allocation.TemporaryReservation {
	return &allocation.TemporaryReservation{
		BaseEntity:    m.BaseModel.ToDomain(),
		AllocationID:  m.AllocationID,
		CustomerID:    m.CustomerID,
		Quantity:      m.Quantity,
		SaleReference: m.SaleReference,
		ExpiresAt:     m.ExpiresAt,
		Status:        m.Status,
	}
}

// FromDomain populates the model from a domain TemporaryReservation.
func (m *TemporaryReservationModel) FromDomain(r *allocation.TemporaryReservation) {
	m.FromDomainBaseEntity(r.BaseEntity)
	m.AllocationID = r.AllocationID
	m.CustomerID = r.CustomerID
	m.Quantity = r.Quantity
	m.SaleReference = r.SaleReference
	m.ExpiresAt = r.ExpiresAt
	m.Status = r.Status
}
