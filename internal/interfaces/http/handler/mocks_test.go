package handler

import (
	"context"
	"sync"
	"time"

	allocationapp "github.com/cellar/backend/internal/application/allocation"
	voucherapp "github.com/cellar/backend/internal/application/voucher"
	"github.com/cellar/backend/internal/domain/allocation"
	"github.com/cellar/backend/internal/domain/audit"
	"github.com/cellar/backend/internal/domain/shared"
	"github.com/cellar/backend/internal/domain/voucher"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// memoryStore is a shared in-memory backing store for the fake repositories.
// It mirrors the conditional-write semantics of the real persistence layer
// closely enough for handler tests.
type memoryStore struct {
	mu           sync.Mutex
	allocations  map[uuid.UUID]*allocation.Allocation
	reservations map[uuid.UUID]*allocation.TemporaryReservation
	vouchers     map[uuid.UUID]*voucher.Voucher
	transfers    map[uuid.UUID]*voucher.VoucherTransfer
	auditEntries []*audit.Entry
	events       []shared.DomainEvent
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		allocations:  make(map[uuid.UUID]*allocation.Allocation),
		reservations: make(map[uuid.UUID]*allocation.TemporaryReservation),
		vouchers:     make(map[uuid.UUID]*voucher.Voucher),
		transfers:    make(map[uuid.UUID]*voucher.VoucherTransfer),
	}
}

func (s *memoryStore) activeReserved(allocationID uuid.UUID) int64 {
	var total int64
	for _, r := range s.reservations {
		if r.AllocationID == allocationID && r.Status == allocation.ReservationStatusActive {
			total += r.Quantity
		}
	}
	return total
}

type memAllocationRepo struct{ s *memoryStore }

func (m *memAllocationRepo) FindByID(_ context.Context, id uuid.UUID) (*allocation.Allocation, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	a, ok := m.s.allocations[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return a, nil
}

func (m *memAllocationRepo) Save(_ context.Context, a *allocation.Allocation) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.allocations[a.ID] = a
	return nil
}

func (m *memAllocationRepo) IncrementSold(_ context.Context, id uuid.UUID, qty int64) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	a, ok := m.s.allocations[id]
	if !ok {
		return shared.ErrNotFound
	}
	if a.SoldQuantity+qty > a.TotalQuantity {
		return shared.ErrInsufficientCapacity
	}
	a.SoldQuantity += qty
	return nil
}

func (m *memAllocationRepo) ActiveReservedQuantity(_ context.Context, id uuid.UUID) (int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	return m.s.activeReserved(id), nil
}

type memReservationRepo struct{ s *memoryStore }

func (m *memReservationRepo) FindByID(_ context.Context, id uuid.UUID) (*allocation.TemporaryReservation, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	r, ok := m.s.reservations[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return r, nil
}

func (m *memReservationRepo) InsertIfCapacity(_ context.Context, r *allocation.TemporaryReservation) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	a, ok := m.s.allocations[r.AllocationID]
	if !ok || !a.IsOpen() {
		return shared.ErrNotFound
	}
	if a.SoldQuantity+m.s.activeReserved(r.AllocationID)+r.Quantity > a.TotalQuantity {
		return shared.ErrInsufficientCapacity
	}
	m.s.reservations[r.ID] = r
	return nil
}

func (m *memReservationRepo) FindExpired(_ context.Context, now time.Time) ([]allocation.TemporaryReservation, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var expired []allocation.TemporaryReservation
	for _, r := range m.s.reservations {
		if r.Status == allocation.ReservationStatusActive && r.IsExpiredAt(now) {
			expired = append(expired, *r)
		}
	}
	return expired, nil
}

func (m *memReservationRepo) TransitionStatus(_ context.Context, id uuid.UUID, from, to allocation.ReservationStatus) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	r, ok := m.s.reservations[id]
	if !ok || r.Status != from {
		return false, nil
	}
	r.Status = to
	return true, nil
}

type memVoucherRepo struct{ s *memoryStore }

func (m *memVoucherRepo) FindByID(_ context.Context, id uuid.UUID) (*voucher.Voucher, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	v, ok := m.s.vouchers[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return v, nil
}

func (m *memVoucherRepo) FindByTradingReference(_ context.Context, reference string) (*voucher.Voucher, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, v := range m.s.vouchers {
		if v.ExternalTradingReference != nil && *v.ExternalTradingReference == reference {
			return v, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memVoucherRepo) Save(_ context.Context, v *voucher.Voucher) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.vouchers[v.ID] = v
	return nil
}

func (m *memVoucherRepo) SaveAll(_ context.Context, vouchers []*voucher.Voucher) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, v := range vouchers {
		m.s.vouchers[v.ID] = v
	}
	return nil
}

func (m *memVoucherRepo) SaveWithLock(_ context.Context, v *voucher.Voucher) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.vouchers[v.ID]; !ok {
		return shared.ErrNotFound
	}
	m.s.vouchers[v.ID] = v
	return nil
}

type memTransferRepo struct{ s *memoryStore }

func (m *memTransferRepo) FindByID(_ context.Context, id uuid.UUID) (*voucher.VoucherTransfer, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	t, ok := m.s.transfers[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return t, nil
}

func (m *memTransferRepo) FindPendingByVoucher(_ context.Context, voucherID uuid.UUID) (*voucher.VoucherTransfer, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, t := range m.s.transfers {
		if t.VoucherID == voucherID && t.Status == voucher.TransferStatusPending {
			return t, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memTransferRepo) Save(_ context.Context, t *voucher.VoucherTransfer) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, existing := range m.s.transfers {
		if existing.VoucherID == t.VoucherID && existing.Status == voucher.TransferStatusPending {
			return shared.ErrAlreadyExists
		}
	}
	m.s.transfers[t.ID] = t
	return nil
}

func (m *memTransferRepo) FindExpired(_ context.Context, now time.Time) ([]voucher.VoucherTransfer, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	var expired []voucher.VoucherTransfer
	for _, t := range m.s.transfers {
		if t.Status == voucher.TransferStatusPending && t.IsExpiredAt(now) {
			expired = append(expired, *t)
		}
	}
	return expired, nil
}

func (m *memTransferRepo) TransitionStatus(_ context.Context, id uuid.UUID, from, to voucher.TransferStatus) (bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	t, ok := m.s.transfers[id]
	if !ok || t.Status != from {
		return false, nil
	}
	t.Status = to
	return true, nil
}

type memAuditSink struct{ s *memoryStore }

func (m *memAuditSink) Append(_ context.Context, entries ...*audit.Entry) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.auditEntries = append(m.s.auditEntries, entries...)
	return nil
}

type memEventPublisher struct{ s *memoryStore }

func (m *memEventPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.events = append(m.s.events, events...)
	return nil
}

// testEnv wires the application services over the in-memory store, the same
// way main wires them over GORM.
type testEnv struct {
	store            *memoryStore
	ledgerService    *allocationapp.LedgerService
	lifecycleService *voucherapp.LifecycleService
	tradingService   *voucherapp.TradingService
	transferService  *voucherapp.TransferService
}

func newTestEnv() *testEnv {
	store := newMemoryStore()
	allocRepo := &memAllocationRepo{s: store}
	resRepo := &memReservationRepo{s: store}
	vouchRepo := &memVoucherRepo{s: store}
	transRepo := &memTransferRepo{s: store}
	auditSink := &memAuditSink{s: store}
	events := &memEventPublisher{s: store}

	allocScope := allocationapp.NewNoOpTransactionScope(allocRepo, resRepo, vouchRepo, auditSink, events)
	vouchScope := voucherapp.NewNoOpTransactionScope(vouchRepo, transRepo, auditSink, events)

	logger := zap.NewNop()

	return &testEnv{
		store:            store,
		ledgerService:    allocationapp.NewLedgerService(allocRepo, resRepo, allocScope, logger),
		lifecycleService: voucherapp.NewLifecycleService(vouchRepo, vouchScope, logger),
		tradingService:   voucherapp.NewTradingService(vouchRepo, vouchScope, logger),
		transferService:  voucherapp.NewTransferService(vouchRepo, transRepo, vouchScope, logger),
	}
}

func (e *testEnv) addAllocation(totalQuantity int64) *allocation.Allocation {
	a, err := allocation.NewAllocation("Domaine Test Grand Cru", 2019, "750ml", totalQuantity)
	if err != nil {
		panic(err)
	}
	e.store.allocations[a.ID] = a
	return a
}

func (e *testEnv) addVoucher(allocationID, customerID uuid.UUID) *voucher.Voucher {
	v := voucher.NewVoucher(allocationID, customerID)
	e.store.vouchers[v.ID] = v
	return v
}
