package voucher

import (
	"context"
	"time"

	"github.com/cellar/backend/internal/domain/audit"
	"github.com/cellar/backend/internal/domain/shared"
	"github.com/cellar/backend/internal/domain/voucher"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockVoucherRepository is a mock implementation of voucher.VoucherRepository
type MockVoucherRepository struct {
	mock.Mock
}

func (m *MockVoucherRepository) FindByID(ctx context.Context, id uuid.UUID) (*voucher.Voucher, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*voucher.Voucher), args.Error(1)
}

func (m *MockVoucherRepository) FindByTradingReference(ctx context.Context, reference string) (*voucher.Voucher, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*voucher.Voucher), args.Error(1)
}

func (m *MockVoucherRepository) Save(ctx context.Context, v *voucher.Voucher) error {
	args := m.Called(ctx, v)
	return args.Error(0)
}

func (m *MockVoucherRepository) SaveAll(ctx context.Context, vouchers []*voucher.Voucher) error {
	args := m.Called(ctx, vouchers)
	return args.Error(0)
}

func (m *MockVoucherRepository) SaveWithLock(ctx context.Context, v *voucher.Voucher) error {
	args := m.Called(ctx, v)
	return args.Error(0)
}

// MockTransferRepository is a mock implementation of voucher.TransferRepository
type MockTransferRepository struct {
	mock.Mock
}

func (m *MockTransferRepository) FindByID(ctx context.Context, id uuid.UUID) (*voucher.VoucherTransfer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*voucher.VoucherTransfer), args.Error(1)
}

func (m *MockTransferRepository) FindPendingByVoucher(ctx context.Context, voucherID uuid.UUID) (*voucher.VoucherTransfer, error) {
	args := m.Called(ctx, voucherID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*voucher.VoucherTransfer), args.Error(1)
}

func (m *MockTransferRepository) Save(ctx context.Context, t *voucher.VoucherTransfer) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockTransferRepository) FindExpired(ctx context.Context, now time.Time) ([]voucher.VoucherTransfer, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]voucher.VoucherTransfer), args.Error(1)
}

func (m *MockTransferRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to voucher.TransferStatus) (bool, error) {
	args := m.Called(ctx, id, from, to)
	return args.Bool(0), args.Error(1)
}

// MockAuditSink is a mock implementation of audit.Sink
type MockAuditSink struct {
	mock.Mock
}

func (m *MockAuditSink) Append(ctx context.Context, entries ...*audit.Entry) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

// MockEventPublisher is a mock implementation of shared.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// serviceFixture bundles the mocks behind a NoOpTransactionScope.
type serviceFixture struct {
	voucherRepo  *MockVoucherRepository
	transferRepo *MockTransferRepository
	auditSink    *MockAuditSink
	events       *MockEventPublisher
	scope        *NoOpTransactionScope
}

func newServiceFixture() *serviceFixture {
	f := &serviceFixture{
		voucherRepo:  new(MockVoucherRepository),
		transferRepo: new(MockTransferRepository),
		auditSink:    new(MockAuditSink),
		events:       new(MockEventPublisher),
	}
	f.scope = NewNoOpTransactionScope(f.voucherRepo, f.transferRepo, f.auditSink, f.events)
	return f
}
