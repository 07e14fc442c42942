package persistence

import (
	"context"

	"github.com/cellar/backend/internal/domain/audit"
	"github.com/cellar/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAuditRepository implements the audit Sink and Reader using GORM.
// Entries are append-only; the repository deliberately exposes no update
// or delete operation.
type GormAuditRepository struct {
	db *gorm.DB
}

// NewGormAuditRepository creates a new GormAuditRepository
func NewGormAuditRepository(db *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: db}
}

// WithTx returns a new repository instance with the given transaction.
// Appending through a transaction-scoped sink makes the audit write atomic
// with the state change it records.
func (r *GormAuditRepository) WithTx(tx *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: tx}
}

// Append persists one or more audit entries
func (r *GormAuditRepository) Append(ctx context.Context, entries ...*audit.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	batch := make([]models.AuditLogModel, len(entries))
	for i, entry := range entries {
		if err := batch[i].FromDomain(entry); err != nil {
			return err
		}
	}
	return r.db.WithContext(ctx).Create(&batch).Error
}

// FindByAuditable returns entries for one audited record, newest first
func (r *GormAuditRepository) FindByAuditable(ctx context.Context, auditableType string, auditableID uuid.UUID, limit int) ([]audit.Entry, error) {
	query := r.db.WithContext(ctx).
		Where("auditable_type = ? AND auditable_id = ?", auditableType, auditableID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []models.AuditLogModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	entries := make([]audit.Entry, 0, len(rows))
	for i := range rows {
		entries = append(entries, *rows[i].ToDomain())
	}
	return entries, nil
}

// Ensure GormAuditRepository implements both audit interfaces
var _ audit.Sink = (*GormAuditRepository)(nil)
var _ audit.Reader = (*GormAuditRepository)(nil)
