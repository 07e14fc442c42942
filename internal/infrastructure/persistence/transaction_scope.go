package persistence

import (
	"context"

	appallocation "github.com/cellar/backend/internal/application/allocation"
	appvoucher "github.com/cellar/backend/internal/application/voucher"
	"github.com/cellar/backend/internal/domain/allocation"
	"github.com/cellar/backend/internal/domain/audit"
	"github.com/cellar/backend/internal/domain/shared"
	"github.com/cellar/backend/internal/domain/voucher"
	"gorm.io/gorm"
)

// GormAllocationTransactionScope implements the ledger's TransactionScope
// using GORM transactions. Repository operations inside Execute share one
// database transaction, including the outbox writes behind Events().
type GormAllocationTransactionScope struct {
	db     *gorm.DB
	outbox shared.OutboxEventSaver
}

// NewGormAllocationTransactionScope creates a new GormAllocationTransactionScope.
func NewGormAllocationTransactionScope(db *gorm.DB, outbox shared.OutboxEventSaver) *GormAllocationTransactionScope {
	return &GormAllocationTransactionScope{db: db, outbox: outbox}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormAllocationTransactionScope) Execute(ctx context.Context, fn func(repos appallocation.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx, outbox: s.outbox})
	})
}

// GormVoucherTransactionScope implements the voucher side's
// TransactionScope using GORM transactions.
type GormVoucherTransactionScope struct {
	db     *gorm.DB
	outbox shared.OutboxEventSaver
}

// NewGormVoucherTransactionScope creates a new GormVoucherTransactionScope.
func NewGormVoucherTransactionScope(db *gorm.DB, outbox shared.OutboxEventSaver) *GormVoucherTransactionScope {
	return &GormVoucherTransactionScope{db: db, outbox: outbox}
}

// Execute runs the given function within a database transaction.
func (s *GormVoucherTransactionScope) Execute(ctx context.Context, fn func(repos appvoucher.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx, outbox: s.outbox})
	})
}

// gormTransactionalRepositories provides access to all repositories within
// a transaction. One struct serves both scopes; each interface sees the
// subset of accessors it declares.
type gormTransactionalRepositories struct {
	tx     *gorm.DB
	outbox shared.OutboxEventSaver
}

// Allocations returns the allocation repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Allocations() allocation.AllocationRepository {
	return NewGormAllocationRepository(r.tx)
}

// Reservations returns the reservation repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Reservations() allocation.ReservationRepository {
	return NewGormReservationRepository(r.tx)
}

// Vouchers returns the voucher repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Vouchers() voucher.VoucherRepository {
	return NewGormVoucherRepository(r.tx)
}

// Transfers returns the transfer repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Transfers() voucher.TransferRepository {
	return NewGormTransferRepository(r.tx)
}

// Audit returns the audit sink scoped to the current transaction.
func (r *gormTransactionalRepositories) Audit() audit.Sink {
	return NewGormAuditRepository(r.tx)
}

// Events returns the outbox-backed event publisher scoped to the current
// transaction. Events published through it commit or roll back with the
// state change that produced them.
func (r *gormTransactionalRepositories) Events() shared.EventPublisher {
	return &txOutboxPublisher{tx: r.tx, outbox: r.outbox}
}

// txOutboxPublisher writes published events to the outbox table through the
// enclosing transaction.
type txOutboxPublisher struct {
	tx     *gorm.DB
	outbox shared.OutboxEventSaver
}

// Publish saves the events to the outbox within the current transaction.
func (p *txOutboxPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	return p.outbox.SaveEvents(ctx, p.tx, events...)
}

// Ensure the scopes implement their application interfaces
var _ appallocation.TransactionScope = (*GormAllocationTransactionScope)(nil)
var _ appvoucher.TransactionScope = (*GormVoucherTransactionScope)(nil)
var _ appallocation.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
var _ appvoucher.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
var _ shared.EventPublisher = (*txOutboxPublisher)(nil)
