package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/cellar/backend/internal/domain/procurement"
	"github.com/cellar/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockIntentRepo creates a repository with a mocked DB
func newMockIntentRepo(t *testing.T) (*GormIntentRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormIntentRepository(gormDB), mock, mockDB
}

func newTestIntent(t *testing.T) *procurement.ProcurementIntent {
	t.Helper()
	intent, err := procurement.NewProcurementIntent(
		6, uuid.New(), uuid.New(), "SALE-1001", decimal.NewFromFloat(45.00),
	)
	require.NoError(t, err)
	return intent
}

func TestGormIntentRepository_Save(t *testing.T) {
	t.Run("creates a draft intent", func(t *testing.T) {
		repo, mock, mockDB := newMockIntentRepo(t)
		defer mockDB.Close()

		mock.ExpectExec(`INSERT INTO "procurement_intents" .* ON CONFLICT DO NOTHING`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Save(context.Background(), newTestIntent(t))

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrAlreadyExists for a retried issuance batch", func(t *testing.T) {
		repo, mock, mockDB := newMockIntentRepo(t)
		defer mockDB.Close()

		// The unique source index rejects the duplicate; ON CONFLICT DO
		// NOTHING surfaces it as zero rows affected.
		mock.ExpectExec(`INSERT INTO "procurement_intents" .* ON CONFLICT DO NOTHING`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Save(context.Background(), newTestIntent(t))

		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormIntentRepository_FindBySource(t *testing.T) {
	t.Run("returns the intent for an issuance batch", func(t *testing.T) {
		repo, mock, mockDB := newMockIntentRepo(t)
		defer mockDB.Close()

		allocationID := uuid.New()
		voucherID := uuid.New()
		rows := sqlmock.NewRows([]string{
			"id", "quantity", "source_allocation_id", "source_voucher_id",
			"rationale", "needs_ops_review", "status", "estimated_unit_cost",
		}).AddRow(uuid.New(), 6, allocationID, voucherID,
			"Replenish 6 bottle(s)", true, "draft", "45.00")

		mock.ExpectQuery(`SELECT \* FROM "procurement_intents" WHERE source_allocation_id = \$1 AND source_voucher_id = \$2`).
			WillReturnRows(rows)

		intent, err := repo.FindBySource(context.Background(), allocationID, voucherID)

		require.NoError(t, err)
		assert.Equal(t, allocationID, intent.SourceAllocationID)
		assert.Equal(t, voucherID, intent.SourceVoucherID)
		assert.Equal(t, procurement.IntentStatusDraft, intent.Status)
		assert.True(t, intent.NeedsOpsReview)
		assert.True(t, intent.EstimatedUnitCost.Equal(decimal.NewFromFloat(45.00)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrNotFound when no intent exists for the batch", func(t *testing.T) {
		repo, mock, mockDB := newMockIntentRepo(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "procurement_intents"`).
			WillReturnError(gorm.ErrRecordNotFound)

		_, err := repo.FindBySource(context.Background(), uuid.New(), uuid.New())

		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormIntentRepository_FindByID(t *testing.T) {
	t.Run("returns ErrNotFound when missing", func(t *testing.T) {
		repo, mock, mockDB := newMockIntentRepo(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "procurement_intents" WHERE id = \$1`).
			WillReturnError(gorm.ErrRecordNotFound)

		_, err := repo.FindByID(context.Background(), uuid.New())

		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
