package audit

import (
	"context"
	"maps"
	"time"

	"github.com/cellar/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Auditable type names used across the core.
const (
	AuditableAllocation        = "Allocation"
	AuditableReservation       = "TemporaryReservation"
	AuditableVoucher           = "Voucher"
	AuditableVoucherTransfer   = "VoucherTransfer"
	AuditableProcurementIntent = "ProcurementIntent"
)

// Entry is one immutable audit record for a state transition.
// Entries are append-only: the sink exposes no update or delete operation,
// and there is no UpdatedAt. Attempting to mutate a stored entry is a
// programming error, not a runtime condition to recover from.
type Entry struct {
	ID            uuid.UUID
	AuditableType string
	AuditableID   uuid.UUID
	Event         string
	OldValues     map[string]any
	NewValues     map[string]any
	UserID        *uuid.UUID
	CreatedAt     time.Time
}

// NewEntry creates a new audit entry for a state transition.
func NewEntry(auditableType string, auditableID uuid.UUID, event string, oldValues, newValues map[string]any, userID *uuid.UUID) (*Entry, error) {
	if auditableType == "" {
		return nil, shared.NewDomainError("INVALID_AUDITABLE_TYPE", "Auditable type cannot be empty")
	}
	if event == "" {
		return nil, shared.NewDomainError("INVALID_AUDIT_EVENT", "Audit event cannot be empty")
	}

	return &Entry{
		ID:            uuid.New(),
		AuditableType: auditableType,
		AuditableID:   auditableID,
		Event:         event,
		OldValues:     oldValues,
		NewValues:     newValues,
		UserID:        userID,
		CreatedAt:     time.Now(),
	}, nil
}

// GetOldValues returns a copy of the old values to preserve immutability.
func (e *Entry) GetOldValues() map[string]any {
	result := make(map[string]any, len(e.OldValues))
	maps.Copy(result, e.OldValues)
	return result
}

// GetNewValues returns a copy of the new values to preserve immutability.
func (e *Entry) GetNewValues() map[string]any {
	result := make(map[string]any, len(e.NewValues))
	maps.Copy(result, e.NewValues)
	return result
}

// Sink is the append-only write target for audit entries.
// Implementations scoped to a transaction make the audit write atomic with
// the state change it records; a transition whose audit write fails must
// not commit.
type Sink interface {
	// Append persists one or more audit entries.
	Append(ctx context.Context, entries ...*Entry) error
}

// Reader provides read access for operator tooling.
type Reader interface {
	// FindByAuditable returns entries for one audited record, newest first.
	FindByAuditable(ctx context.Context, auditableType string, auditableID uuid.UUID, limit int) ([]Entry, error)
}
