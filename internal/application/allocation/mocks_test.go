package allocation

import (
	"context"
	"time"

	"github.com/cellar/backend/internal/domain/allocation"
	"github.com/cellar/backend/internal/domain/audit"
	"github.com/cellar/backend/internal/domain/shared"
	"github.com/cellar/backend/internal/domain/voucher"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockAllocationRepository is a mock implementation of AllocationRepository
type MockAllocationRepository struct {
	mock.Mock
}

func (m *MockAllocationRepository) FindByID(ctx context.Context, id uuid.UUID) (*allocation.Allocation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*allocation.Allocation), args.Error(1)
}

func (m *MockAllocationRepository) Save(ctx context.Context, a *allocation.Allocation) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockAllocationRepository) IncrementSold(ctx context.Context, id uuid.UUID, qty int64) error {
	args := m.Called(ctx, id, qty)
	return args.Error(0)
}

func (m *MockAllocationRepository) ActiveReservedQuantity(ctx context.Context, id uuid.UUID) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

// MockReservationRepository is a mock implementation of ReservationRepository
type MockReservationRepository struct {
	mock.Mock
}

func (m *MockReservationRepository) FindByID(ctx context.Context, id uuid.UUID) (*allocation.TemporaryReservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*allocation.TemporaryReservation), args.Error(1)
}

func (m *MockReservationRepository) InsertIfCapacity(ctx context.Context, r *allocation.TemporaryReservation) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockReservationRepository) FindExpired(ctx context.Context, now time.Time) ([]allocation.TemporaryReservation, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]allocation.TemporaryReservation), args.Error(1)
}

func (m *MockReservationRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to allocation.ReservationStatus) (bool, error) {
	args := m.Called(ctx, id, from, to)
	return args.Bool(0), args.Error(1)
}

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

// newTestScope wires the mocks into a NoOpTransactionScope.
func newTestScope(
	allocationRepo *MockAllocationRepository,
	reservationRepo *MockReservationRepository,
	voucherRepo *MockVoucherRepository,
	auditSink *MockAuditSink,
	events *MockEventPublisher,
) *NoOpTransactionScope {
	return NewNoOpTransactionScope(allocationRepo, reservationRepo, voucherRepo, auditSink, events)
}
