package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	allocationapp "github.com/cellar/backend/internal/application/allocation"
	"github.com/cellar/backend/internal/domain/allocation"
	"github.com/cellar/backend/internal/interfaces/http/dto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReservationCreate(t *testing.T) {
	t.Run("creates an active reservation", func(t *testing.T) {
		env := newTestEnv()
		engine := newAPIRouter(env, testSigningSecret)
		alloc := env.addAllocation(12)
		customerID := uuid.New()

		rec := doRequest(t, engine, http.MethodPost, "/api/v1/reservations", CreateReservationRequest{
			AllocationID:  alloc.ID.String(),
			CustomerID:    customerID.String(),
			Quantity:      6,
			SaleReference: "SALE-2026-0001",
		})

		require.Equal(t, http.StatusCreated, rec.Code)
		result := decodeData[allocationapp.ReservationResult](t, rec)
		assert.Equal(t, alloc.ID, result.AllocationID)
		assert.Equal(t, customerID, result.CustomerID)
		assert.Equal(t, int64(6), result.Quantity)
		assert.Equal(t, string(allocation.ReservationStatusActive), result.Status)
		assert.False(t, result.ExpiresAt.IsZero())

		stored, ok := env.store.reservations[result.ReservationID]
		require.True(t, ok)
		assert.Equal(t, "SALE-2026-0001", stored.SaleReference)
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		env := newTestEnv()
		engine := newAPIRouter(env, testSigningSecret)

		rec := doRequest(t, engine, http.MethodPost, "/api/v1/reservations", map[string]any{
			"allocation_id": "not-a-uuid",
			"quantity":      0,
		})

		requireErrorCode(t, rec, http.StatusBadRequest, dto.ErrCodeBadRequest)
	})

	t.Run("unknown allocation returns 404", func(t *testing.T) {
		env := newTestEnv()
		engine := newAPIRouter(env, testSigningSecret)

		rec := doRequest(t, engine, http.MethodPost, "/api/v1/reservations", CreateReservationRequest{
			AllocationID:  uuid.New().String(),
			CustomerID:    uuid.New().String(),
			Quantity:      1,
			SaleReference: "SALE-2026-0002",
		})

		requireErrorCode(t, rec, http.StatusNotFound, dto.ErrCodeNotFound)
	})

	t.Run("quantity beyond remaining capacity returns 422", func(t *testing.T) {
		env := newTestEnv()
		engine := newAPIRouter(env, testSigningSecret)
		alloc := env.addAllocation(2)

		rec := doRequest(t, engine, http.MethodPost, "/api/v1/reservations", CreateReservationRequest{
			AllocationID:  alloc.ID.String(),
			CustomerID:    uuid.New().String(),
			Quantity:      5,
			SaleReference: "SALE-2026-0003",
		})

		requireErrorCode(t, rec, http.StatusUnprocessableEntity, dto.ErrCodeInsufficientCapacity)
	})

	t.Run("active holds count against capacity", func(t *testing.T) {
		env := newTestEnv()
		engine := newAPIRouter(env, testSigningSecret)
		alloc := env.addAllocation(10)

		first := doRequest(t, engine, http.MethodPost, "/api/v1/reservations", CreateReservationRequest{
			AllocationID:  alloc.ID.String(),
			CustomerID:    uuid.New().String(),
			Quantity:      8,
			SaleReference: "SALE-2026-0004",
		})
		require.Equal(t, http.StatusCreated, first.Code)

		second := doRequest(t, engine, http.MethodPost, "/api/v1/reservations", CreateReservationRequest{
			AllocationID:  alloc.ID.String(),
			CustomerID:    uuid.New().String(),
			Quantity:      3,
			SaleReference: "SALE-2026-0005",
		})
		requireErrorCode(t, second, http.StatusUnprocessableEntity, dto.ErrCodeInsufficientCapacity)
	})
}

func TestReservationCapacityUnderContention(t *testing.T) {
	// Many racing single-bottle reserves against a small allocation: exactly
	// capacity-many succeed, the rest are rejected, and the held total never
	// exceeds the allocation.
	env := newTestEnv()
	engine := newAPIRouter(env, testSigningSecret)

	const capacity = 10
	const workers = 30
	alloc := env.addAllocation(capacity)

	codes := make(chan int, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			body, err := json.Marshal(CreateReservationRequest{
				AllocationID:  alloc.ID.String(),
				CustomerID:    uuid.New().String(),
				Quantity:      1,
				SaleReference: fmt.Sprintf("SALE-2026-1%03d", n),
			})
			if err != nil {
				codes <- -1
				return
			}
			req := httptest.NewRequest(http.MethodPost, "/api/v1/reservations", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			engine.ServeHTTP(rec, req)
			codes <- rec.Code
		}(i)
	}
	wg.Wait()
	close(codes)

	created, rejected := 0, 0
	for code := range codes {
		switch code {
		case http.StatusCreated:
			created++
		case http.StatusUnprocessableEntity:
			rejected++
		default:
			t.Fatalf("unexpected status %d", code)
		}
	}

	assert.Equal(t, capacity, created)
	assert.Equal(t, workers-capacity, rejected)
	assert.Equal(t, int64(capacity), env.store.activeReserved(alloc.ID))

	// The pool is exhausted for any follow-up reserve.
	rec := doRequest(t, engine, http.MethodPost, "/api/v1/reservations", CreateReservationRequest{
		AllocationID:  alloc.ID.String(),
		CustomerID:    uuid.New().String(),
		Quantity:      1,
		SaleReference: "SALE-2026-1999",
	})
	requireErrorCode(t, rec, http.StatusUnprocessableEntity, dto.ErrCodeInsufficientCapacity)
}

func TestReservationGetByID(t *testing.T) {
	env := newTestEnv()
	engine := newAPIRouter(env, testSigningSecret)
	alloc := env.addAllocation(4)

	created := doRequest(t, engine, http.MethodPost, "/api/v1/reservations", CreateReservationRequest{
		AllocationID:  alloc.ID.String(),
		CustomerID:    uuid.New().String(),
		Quantity:      2,
		SaleReference: "SALE-2026-0010",
	})
	require.Equal(t, http.StatusCreated, created.Code)
	reservation := decodeData[allocationapp.ReservationResult](t, created)

	t.Run("found", func(t *testing.T) {
		rec := doRequest(t, engine, http.MethodGet, "/api/v1/reservations/"+reservation.ReservationID.String(), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		result := decodeData[allocationapp.ReservationResult](t, rec)
		assert.Equal(t, reservation.ReservationID, result.ReservationID)
	})

	t.Run("unknown id", func(t *testing.T) {
		rec := doRequest(t, engine, http.MethodGet, "/api/v1/reservations/"+uuid.New().String(), nil)
		requireErrorCode(t, rec, http.StatusNotFound, dto.ErrCodeNotFound)
	})

	t.Run("malformed id", func(t *testing.T) {
		rec := doRequest(t, engine, http.MethodGet, "/api/v1/reservations/nope", nil)
		requireErrorCode(t, rec, http.StatusBadRequest, dto.ErrCodeBadRequest)
	})
}

func TestReservationConfirm(t *testing.T) {
	t.Run("mints one voucher per reserved bottle", func(t *testing.T) {
		env := newTestEnv()
		engine := newAPIRouter(env, testSigningSecret)
		alloc := env.addAllocation(10)
		customerID := uuid.New()

		created := doRequest(t, engine, http.MethodPost, "/api/v1/reservations", CreateReservationRequest{
			AllocationID:  alloc.ID.String(),
			CustomerID:    customerID.String(),
			Quantity:      3,
			SaleReference: "SALE-2026-0020",
		})
		require.Equal(t, http.StatusCreated, created.Code)
		reservation := decodeData[allocationapp.ReservationResult](t, created)

		rec := doRequest(t, engine, http.MethodPost, "/api/v1/reservations/"+reservation.ReservationID.String()+"/confirm", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		result := decodeData[allocationapp.ConfirmResult](t, rec)

		assert.Equal(t, reservation.ReservationID, result.ReservationID)
		assert.Len(t, result.VoucherIDs, 3)
		for _, voucherID := range result.VoucherIDs {
			v, ok := env.store.vouchers[voucherID]
			require.True(t, ok)
			assert.Equal(t, customerID, v.CustomerID)
			assert.Equal(t, alloc.ID, v.AllocationID)
		}

		assert.Equal(t, int64(3), env.store.allocations[alloc.ID].SoldQuantity)
		assert.Equal(t, allocation.ReservationStatusConfirmed, env.store.reservations[reservation.ReservationID].Status)
	})

	t.Run("confirming a released reservation returns 422", func(t *testing.T) {
		env := newTestEnv()
		engine := newAPIRouter(env, testSigningSecret)
		alloc := env.addAllocation(5)

		created := doRequest(t, engine, http.MethodPost, "/api/v1/reservations", CreateReservationRequest{
			AllocationID:  alloc.ID.String(),
			CustomerID:    uuid.New().String(),
			Quantity:      2,
			SaleReference: "SALE-2026-0021",
		})
		require.Equal(t, http.StatusCreated, created.Code)
		reservation := decodeData[allocationapp.ReservationResult](t, created)

		released := doRequest(t, engine, http.MethodPost, "/api/v1/reservations/"+reservation.ReservationID.String()+"/release", nil)
		require.Equal(t, http.StatusNoContent, released.Code)

		rec := doRequest(t, engine, http.MethodPost, "/api/v1/reservations/"+reservation.ReservationID.String()+"/confirm", nil)
		requireErrorCode(t, rec, http.StatusUnprocessableEntity, dto.ErrCodeInvalidState)
	})

	t.Run("unknown reservation returns 404", func(t *testing.T) {
		env := newTestEnv()
		engine := newAPIRouter(env, testSigningSecret)

		rec := doRequest(t, engine, http.MethodPost, "/api/v1/reservations/"+uuid.New().String()+"/confirm", nil)
		requireErrorCode(t, rec, http.StatusNotFound, dto.ErrCodeNotFound)
	})
}

func TestReservationRelease(t *testing.T) {
	env := newTestEnv()
	engine := newAPIRouter(env, testSigningSecret)
	alloc := env.addAllocation(6)

	created := doRequest(t, engine, http.MethodPost, "/api/v1/reservations", CreateReservationRequest{
		AllocationID:  alloc.ID.String(),
		CustomerID:    uuid.New().String(),
		Quantity:      4,
		SaleReference: "SALE-2026-0030",
	})
	require.Equal(t, http.StatusCreated, created.Code)
	reservation := decodeData[allocationapp.ReservationResult](t, created)

	t.Run("returns held capacity to the pool", func(t *testing.T) {
		rec := doRequest(t, engine, http.MethodPost, "/api/v1/reservations/"+reservation.ReservationID.String()+"/release", nil)
		require.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, allocation.ReservationStatusExpired, env.store.reservations[reservation.ReservationID].Status)

		capacity := doRequest(t, engine, http.MethodGet, "/api/v1/allocations/"+alloc.ID.String()+"/capacity", nil)
		require.Equal(t, http.StatusOK, capacity.Code)
		result := decodeData[allocationapp.CapacityResponse](t, capacity)
		assert.Equal(t, int64(0), result.ActiveReserved)
		assert.Equal(t, int64(6), result.Available)
	})

	t.Run("releasing again is a no-op success", func(t *testing.T) {
		rec := doRequest(t, engine, http.MethodPost, "/api/v1/reservations/"+reservation.ReservationID.String()+"/release", nil)
		require.Equal(t, http.StatusNoContent, rec.Code)
	})
}
