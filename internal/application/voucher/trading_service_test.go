package voucher

import (
	"context"
	"testing"

	"github.com/cellar/backend/internal/domain/shared"
	"github.com/cellar/backend/internal/domain/voucher"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTradingService(f *serviceFixture) *TradingService {
	return NewTradingService(f.voucherRepo, f.scope, zap.NewNop())
}

func TestTradingService_CompleteTrading(t *testing.T) {
	t.Run("reassigns ownership and records the reference", func(t *testing.T) {
		f := newServiceFixture()
		service := newTradingService(f)
		v := voucher.NewVoucher(uuid.New(), uuid.New())
		newOwner := uuid.New()

		f.voucherRepo.On("FindByTradingReference", mock.Anything, "TRD-001").Return(nil, shared.ErrNotFound)
		f.voucherRepo.On("FindByID", mock.Anything, v.ID).Return(v, nil)
		f.voucherRepo.On("SaveWithLock", mock.Anything, v).Return(nil)
		f.auditSink.On("Append", mock.Anything, mock.Anything).Return(nil)
		f.events.On("Publish", mock.Anything, mock.Anything).Return(nil)

		result, err := service.CompleteTrading(context.Background(), CompleteTradingRequest{
			VoucherID:        v.ID,
			NewCustomerID:    newOwner,
			TradingReference: "TRD-001",
		})

		require.NoError(t, err)
		assert.False(t, result.AlreadyApplied)
		assert.Equal(t, newOwner, result.CustomerID)
		assert.Equal(t, newOwner, v.CustomerID)
		require.NotNil(t, v.ExternalTradingReference)
		assert.Equal(t, "TRD-001", *v.ExternalTradingReference)
	})

	t.Run("duplicate callback for the same reference is idempotent", func(t *testing.T) {
		f := newServiceFixture()
		service := newTradingService(f)
		v := voucher.NewVoucher(uuid.New(), uuid.New())
		owner := uuid.New()
		require.NoError(t, v.CompleteTrading(owner, "TRD-002"))

		f.voucherRepo.On("FindByTradingReference", mock.Anything, "TRD-002").Return(v, nil)
		f.voucherRepo.On("FindByID", mock.Anything, v.ID).Return(v, nil)

		result, err := service.CompleteTrading(context.Background(), CompleteTradingRequest{
			VoucherID:        v.ID,
			NewCustomerID:    uuid.New(),
			TradingReference: "TRD-002",
		})

		require.NoError(t, err)
		assert.True(t, result.AlreadyApplied)
		assert.Equal(t, owner, result.CustomerID)
		f.voucherRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
		f.auditSink.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	})

	t.Run("reference already settled against another voucher is rejected", func(t *testing.T) {
		f := newServiceFixture()
		service := newTradingService(f)
		other := voucher.NewVoucher(uuid.New(), uuid.New())
		require.NoError(t, other.CompleteTrading(uuid.New(), "TRD-003"))

		f.voucherRepo.On("FindByTradingReference", mock.Anything, "TRD-003").Return(other, nil)

		result, err := service.CompleteTrading(context.Background(), CompleteTradingRequest{
			VoucherID:        uuid.New(),
			NewCustomerID:    uuid.New(),
			TradingReference: "TRD-003",
		})

		assert.Nil(t, result)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "ALREADY_EXISTS", domainErr.Code)
	})

	t.Run("redeemed voucher cannot be traded", func(t *testing.T) {
		f := newServiceFixture()
		service := newTradingService(f)
		v := voucher.NewVoucher(uuid.New(), uuid.New())
		require.NoError(t, v.Lock())
		require.NoError(t, v.Redeem())

		f.voucherRepo.On("FindByTradingReference", mock.Anything, "TRD-004").Return(nil, shared.ErrNotFound)
		f.voucherRepo.On("FindByID", mock.Anything, v.ID).Return(v, nil)

		result, err := service.CompleteTrading(context.Background(), CompleteTradingRequest{
			VoucherID:        v.ID,
			NewCustomerID:    uuid.New(),
			TradingReference: "TRD-004",
		})

		assert.Nil(t, result)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "VALIDATION_ERROR", domainErr.Code)
	})

	t.Run("suspended voucher cannot be traded", func(t *testing.T) {
		f := newServiceFixture()
		service := newTradingService(f)
		v := voucher.NewVoucher(uuid.New(), uuid.New())
		require.NoError(t, v.Suspend())

		f.voucherRepo.On("FindByTradingReference", mock.Anything, "TRD-005").Return(nil, shared.ErrNotFound)
		f.voucherRepo.On("FindByID", mock.Anything, v.ID).Return(v, nil)

		result, err := service.CompleteTrading(context.Background(), CompleteTradingRequest{
			VoucherID:        v.ID,
			NewCustomerID:    uuid.New(),
			TradingReference: "TRD-005",
		})

		assert.Nil(t, result)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "VALIDATION_ERROR", domainErr.Code)
	})

	t.Run("unknown voucher returns NOT_FOUND", func(t *testing.T) {
		f := newServiceFixture()
		service := newTradingService(f)
		id := uuid.New()

		f.voucherRepo.On("FindByTradingReference", mock.Anything, "TRD-006").Return(nil, shared.ErrNotFound)
		f.voucherRepo.On("FindByID", mock.Anything, id).Return(nil, shared.ErrNotFound)

		result, err := service.CompleteTrading(context.Background(), CompleteTradingRequest{
			VoucherID:        id,
			NewCustomerID:    uuid.New(),
			TradingReference: "TRD-006",
		})

		assert.Nil(t, result)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("empty trading reference is rejected before any lookup", func(t *testing.T) {
		f := newServiceFixture()
		service := newTradingService(f)

		result, err := service.CompleteTrading(context.Background(), CompleteTradingRequest{
			VoucherID:     uuid.New(),
			NewCustomerID: uuid.New(),
		})

		assert.Nil(t, result)
		require.Error(t, err)
		f.voucherRepo.AssertNotCalled(t, "FindByTradingReference", mock.Anything, mock.Anything)
	})
}
