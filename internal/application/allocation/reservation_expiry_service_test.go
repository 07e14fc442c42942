package allocation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cellar/backend/internal/domain/allocation"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type expiryFixture struct {
	reservationRepo *MockReservationRepository
	auditSink       *MockAuditSink
	events          *MockEventPublisher
	service         *ReservationExpiryService
}

func newExpiryFixture() *expiryFixture {
	f := &expiryFixture{
		reservationRepo: new(MockReservationRepository),
		auditSink:       new(MockAuditSink),
		events:          new(MockEventPublisher),
	}
	scope := newTestScope(new(MockAllocationRepository), f.reservationRepo, new(MockVoucherRepository), f.auditSink, f.events)
	f.service = NewReservationExpiryService(f.reservationRepo, scope, zap.NewNop())
	return f
}

func createOverdueReservation() allocation.TemporaryReservation {
	r, _ := allocation.NewTemporaryReservation(
		uuid.New(), uuid.New(), 2, "SALE-200", time.Now().Add(-time.Hour),
	)
	return *r
}

func TestReservationExpiryService_ReleaseExpired(t *testing.T) {
	t.Run("nothing to do on empty candidate set", func(t *testing.T) {
		f := newExpiryFixture()

		f.reservationRepo.On("FindExpired", mock.Anything, mock.Anything).Return([]allocation.TemporaryReservation{}, nil)

		stats, err := f.service.ReleaseExpired(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 0, stats.Found)
		assert.Equal(t, 0, stats.Released)
		assert.Equal(t, 0, stats.Failed)
	})

	t.Run("releases overdue reservations with audit entries", func(t *testing.T) {
		f := newExpiryFixture()
		first := createOverdueReservation()
		second := createOverdueReservation()

		f.reservationRepo.On("FindExpired", mock.Anything, mock.Anything).
			Return([]allocation.TemporaryReservation{first, second}, nil)
		f.reservationRepo.On("TransitionStatus", mock.Anything, first.ID,
			allocation.ReservationStatusActive, allocation.ReservationStatusExpired).Return(true, nil)
		f.reservationRepo.On("TransitionStatus", mock.Anything, second.ID,
			allocation.ReservationStatusActive, allocation.ReservationStatusExpired).Return(true, nil)
		f.auditSink.On("Append", mock.Anything, mock.Anything).Return(nil)
		f.events.On("Publish", mock.Anything, mock.Anything).Return(nil)

		stats, err := f.service.ReleaseExpired(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 2, stats.Found)
		assert.Equal(t, 2, stats.Released)
		assert.Equal(t, 0, stats.Failed)
		f.auditSink.AssertNumberOfCalls(t, "Append", 2)
	})

	t.Run("row claimed by another writer is skipped silently", func(t *testing.T) {
		f := newExpiryFixture()
		r := createOverdueReservation()

		f.reservationRepo.On("FindExpired", mock.Anything, mock.Anything).
			Return([]allocation.TemporaryReservation{r}, nil)
		f.reservationRepo.On("TransitionStatus", mock.Anything, r.ID,
			allocation.ReservationStatusActive, allocation.ReservationStatusExpired).Return(false, nil)

		stats, err := f.service.ReleaseExpired(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 1, stats.Found)
		assert.Equal(t, 0, stats.Released)
		assert.Equal(t, 0, stats.Failed)
		f.auditSink.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
		f.events.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})

	t.Run("per-row failure is counted and does not stop the sweep", func(t *testing.T) {
		f := newExpiryFixture()
		failing := createOverdueReservation()
		healthy := createOverdueReservation()

		f.reservationRepo.On("FindExpired", mock.Anything, mock.Anything).
			Return([]allocation.TemporaryReservation{failing, healthy}, nil)
		f.reservationRepo.On("TransitionStatus", mock.Anything, failing.ID,
			allocation.ReservationStatusActive, allocation.ReservationStatusExpired).
			Return(false, errors.New("deadlock detected"))
		f.reservationRepo.On("TransitionStatus", mock.Anything, healthy.ID,
			allocation.ReservationStatusActive, allocation.ReservationStatusExpired).Return(true, nil)
		f.auditSink.On("Append", mock.Anything, mock.Anything).Return(nil)
		f.events.On("Publish", mock.Anything, mock.Anything).Return(nil)

		stats, err := f.service.ReleaseExpired(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 2, stats.Found)
		assert.Equal(t, 1, stats.Released)
		assert.Equal(t, 1, stats.Failed)
	})

	t.Run("candidate query failure aborts the sweep", func(t *testing.T) {
		f := newExpiryFixture()

		f.reservationRepo.On("FindExpired", mock.Anything, mock.Anything).
			Return(nil, errors.New("connection refused"))

		stats, err := f.service.ReleaseExpired(context.Background())

		assert.Nil(t, stats)
		assert.Error(t, err)
	})
}
