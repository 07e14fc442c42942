package models

import (
	"encoding/json"
	"time"

	"github.com/cellar/backend/internal/domain/audit"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// logger for model conversion errors (silent failures are logged for debugging)
var modelLogger = zap.L().Named("persistence.models")

// AuditLogModel is the persistence model for audit entries. The table is
// append-only: there is no UpdatedAt and the repository exposes no update
// or delete path. Old and new values are stored as jsonb documents.
type AuditLogModel struct {
	ID            uuid.UUID  `gorm:"type:uuid;primary_key"`
	AuditableType string     `gorm:"type:varchar(50);not null;index:idx_audit_log_entries_auditable"`
	AuditableID   uuid.UUID  `gorm:"type:uuid;not null;index:idx_audit_log_entries_auditable"`
	Event         string     `gorm:"type:varchar(100);not null"`
	OldValuesJSON string     `gorm:"column:old_values;type:jsonb;default:'{}'"`
	NewValuesJSON string     `gorm:"column:new_values;type:jsonb;default:'{}'"`
	UserID        *uuid.UUID `gorm:"type:uuid;index"`
	CreatedAt     time.Time  `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (AuditLogModel) TableName() string {
	return "audit_log_entries"
}

// ToDomain converts the persistence model to a domain audit Entry.
func (m *AuditLogModel) ToDomain() *audit.Entry {
	entry := &audit.Entry{
		ID:            m.ID,
		AuditableType: m.AuditableType,
		AuditableID:   m.AuditableID,
		Event:         m.Event,
		UserID:        m.UserID,
		CreatedAt:     m.CreatedAt,
	}

	if m.OldValuesJSON != "" {
		var oldValues map[string]any
		if err := json.Unmarshal([]byte(m.OldValuesJSON), &oldValues); err != nil {
			modelLogger.Warn("failed to parse old_values JSON",
				zap.String("audit_entry_id", m.ID.String()),
				zap.Error(err))
		} else {
			entry.OldValues = oldValues
		}
	}

	if m.NewValuesJSON != "" {
		var newValues map[string]any
		if err := json.Unmarshal([]byte(m.NewValuesJSON), &newValues); err != nil {
			modelLogger.Warn("failed to parse new_values JSON",
				zap.String("audit_entry_id", m.ID.String()),
				zap.Error(err))
		} else {
			entry.NewValues = newValues
		}
	}

	return entry
}

// FromDomain populates the model from a domain audit Entry.
func (m *AuditLogModel) FromDomain(e *audit.Entry) error {
	m.ID = e.ID
	m.AuditableType = e.AuditableType
	m.AuditableID = e.AuditableID
	m.Event = e.Event
	m.UserID = e.UserID
	m.CreatedAt = e.CreatedAt

	oldValues, err := marshalValues(e.OldValues)
	if err != nil {
		return err
	}
	m.OldValuesJSON = oldValues

	newValues, err := marshalValues(e.NewValues)
	if err != nil {
		return err
	}
	m.NewValuesJSON = newValues

	return nil
}

// marshalValues serializes a value map, normalizing nil to an empty object
// so the jsonb column never holds SQL NULL.
func marshalValues(values map[string]any) (string, error) {
	if values == nil {
		return "{}", nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
