package allocation

import (
	"context"

	"github.com/cellar/backend/internal/domain/allocation"
	"github.com/cellar/backend/internal/domain/audit"
	"github.com/cellar/backend/internal/domain/shared"
	"github.com/cellar/backend/internal/domain/voucher"
)

// TransactionScope provides transactional access to the repositories the
// ledger needs. When a function is executed within a transaction scope, all
// repository operations are part of the same database transaction and are
// committed or rolled back atomically.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the ledger repositories within
// a transaction. All repositories returned share the same underlying database
// transaction.
//
// Events() returns a publisher writing to the transactional outbox: events
// published through it commit or roll back with the state change that
// produced them, and are dispatched to subscribers only after commit.
type TransactionalRepositories interface {
	// Allocations returns the allocation repository scoped to the current transaction
	Allocations() allocation.AllocationRepository
	// Reservations returns the reservation repository scoped to the current transaction
	Reservations() allocation.ReservationRepository
	// Vouchers returns the voucher repository scoped to the current transaction
	Vouchers() voucher.VoucherRepository
	// Audit returns the audit sink scoped to the current transaction
	Audit() audit.Sink
	// Events returns the outbox-backed event publisher scoped to the current transaction
	Events() shared.EventPublisher
}

// NoOpTransactionScope is a transaction scope that doesn't actually use
// transactions. This is useful for testing or when transaction support is not
// required.
type NoOpTransactionScope struct {
	allocationRepo  allocation.AllocationRepository
	reservationRepo allocation.ReservationRepository
	voucherRepo     voucher.VoucherRepository
	auditSink       audit.Sink
	events          shared.EventPublisher
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	allocationRepo allocation.AllocationRepository,
	reservationRepo allocation.ReservationRepository,
	voucherRepo voucher.VoucherRepository,
	auditSink audit.Sink,
	events shared.EventPublisher,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		allocationRepo:  allocationRepo,
		reservationRepo: reservationRepo,
		voucherRepo:     voucherRepo,
		auditSink:       auditSink,
		events:          events,
	}
}

// Execute runs the function without a real transaction (for testing/compatibility).
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// Allocations returns the allocation repository.
func (s *NoOpTransactionScope) Allocations() allocation.AllocationRepository {
	return s.allocationRepo
}

// Reservations returns the reservation repository.
func (s *NoOpTransactionScope) Reservations() allocation.ReservationRepository {
	return s.reservationRepo
}

// Vouchers returns the voucher repository.
func (s *NoOpTransactionScope) Vouchers() voucher.VoucherRepository {
	return s.voucherRepo
}

// Audit returns the audit sink.
func (s *NoOpTransactionScope) Audit() audit.Sink {
	return s.auditSink
}

// Events returns the event publisher.
func (s *NoOpTransactionScope) Events() shared.EventPublisher {
	return s.events
}

// Ensure NoOpTransactionScope implements both interfaces
var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
