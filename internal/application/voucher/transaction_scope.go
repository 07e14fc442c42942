package voucher

import (
	"context"

	"github.com/cellar/backend/internal/domain/audit"
	"github.com/cellar/backend/internal/domain/shared"
	"github.com/cellar/backend/internal/domain/voucher"
)

// TransactionScope provides transactional access to the voucher repositories.
// All repository operations inside Execute share one database transaction.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the voucher repositories
// within a transaction. Events() writes to the transactional outbox, so
// events commit or roll back with the state change that produced them.
type TransactionalRepositories interface {
	// Vouchers returns the voucher repository scoped to the current transaction
	Vouchers() voucher.VoucherRepository
	// Transfers returns the transfer repository scoped to the current transaction
	Transfers() voucher.TransferRepository
	// Audit returns the audit sink scoped to the current transaction
	Audit() audit.Sink
	// Events returns the outbox-backed event publisher scoped to the current transaction
	Events() shared.EventPublisher
}

// NoOpTransactionScope runs functions without a real transaction. Useful for
// testing or when transaction support is not required.
type NoOpTransactionScope struct {
	voucherRepo  voucher.VoucherRepository
	transferRepo voucher.TransferRepository
	auditSink    audit.Sink
	events       shared.EventPublisher
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories.
func NewNoOpTransactionScope(
	voucherRepo voucher.VoucherRepository,
	transferRepo voucher.TransferRepository,
	auditSink audit.Sink,
	events shared.EventPublisher,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		voucherRepo:  voucherRepo,
		transferRepo: transferRepo,
		auditSink:    auditSink,
		events:       events,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// Vouchers returns the voucher repository.
func (s *NoOpTransactionScope) Vouchers() voucher.VoucherRepository {
	return s.voucherRepo
}

// Transfers returns the transfer repository.
func (s *NoOpTransactionScope) Transfers() voucher.TransferRepository {
	return s.transferRepo
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
