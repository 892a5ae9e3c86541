package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/innovatehubph/payverse-backend/internal/models"
)

func newExchangeStoreTest(t *testing.T) (*ExchangeStore, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	return NewExchangeStore(db), mock, func() { db.Close() }
}

func TestExchangeStoreCreate(t *testing.T) {
	store, mock, cleanup := newExchangeStoreTest(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery(`INSERT INTO exchange_transactions`).
		WithArgs(7, models.DirectionBuy, int64(500), "nonce-1", models.StatusInitiated).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(42, now, now))

	tx := &models.ExchangeTransaction{
		UserID:    7,
		Direction: models.DirectionBuy,
		Amount:    500,
		Nonce:     "nonce-1",
	}
	assert.NoError(t, store.Create(context.Background(), tx))
	assert.Equal(t, 42, tx.ID)
	assert.Equal(t, models.StatusInitiated, tx.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExchangeStoreTransition(t *testing.T) {
	t.Run("legal move persists and advances", func(t *testing.T) {
		store, mock, cleanup := newExchangeStoreTest(t)
		defer cleanup()

		tx := &models.ExchangeTransaction{
			ID:         42,
			Nonce:      "nonce-1",
			Status:     models.StatusInitiated,
			EscrowTxID: "PG-1",
		}
		mock.ExpectExec(`UPDATE exchange_transactions`).
			WithArgs(models.StatusEscrowDebited, "PG-1", "", "", "", "", 0, nil, 42, models.StatusInitiated).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, store.Transition(context.Background(), tx, models.StatusEscrowDebited))
		assert.Equal(t, models.StatusEscrowDebited, tx.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("illegal move rejected before the database", func(t *testing.T) {
		store, mock, cleanup := newExchangeStoreTest(t)
		defer cleanup()

		tx := &models.ExchangeTransaction{ID: 42, Status: models.StatusCompleted}
		err := store.Transition(context.Background(), tx, models.StatusInitiated)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "illegal exchange transition")
		assert.Equal(t, models.StatusCompleted, tx.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stale record rejected", func(t *testing.T) {
		store, mock, cleanup := newExchangeStoreTest(t)
		defer cleanup()

		tx := &models.ExchangeTransaction{ID: 42, Status: models.StatusInitiated}
		mock.ExpectExec(`UPDATE exchange_transactions`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := store.Transition(context.Background(), tx, models.StatusEscrowDebited)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "stale exchange record")
		assert.Equal(t, models.StatusInitiated, tx.Status)
	})
}

func TestExchangeStoreResolve(t *testing.T) {
	t.Run("resolves a manual_required record once", func(t *testing.T) {
		store, mock, cleanup := newExchangeStoreTest(t)
		defer cleanup()

		mock.ExpectExec(`UPDATE exchange_transactions`).
			WithArgs("refunded_manually", 3, 42, models.StatusManualRequired).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, store.Resolve(context.Background(), 42, 3, "refunded_manually"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects records not awaiting resolution", func(t *testing.T) {
		store, mock, cleanup := newExchangeStoreTest(t)
		defer cleanup()

		mock.ExpectExec(`UPDATE exchange_transactions`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := store.Resolve(context.Background(), 42, 3, "written_off")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "not awaiting manual resolution")
	})
}

func exchangeRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "user_id", "direction", "amount", "nonce", "status", "escrow_tx_id", "casino_tx_id",
		"compensation_tx_id", "failed_leg", "failure_reason", "compensation_attempts",
		"last_compensation_at", "resolution", "resolved_by", "created_at", "updated_at",
	}).AddRow(42, 7, "buy", 500, "nonce-1", "manual_required", "PG-1", "", "", "casino_credit",
		"timeout", 1, now, "", nil, now, now)
}

func TestExchangeStoreFindByNonce(t *testing.T) {
	store, mock, cleanup := newExchangeStoreTest(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT .+ FROM exchange_transactions WHERE nonce`).
		WithArgs("nonce-1").
		WillReturnRows(exchangeRows())

	tx, err := store.FindByNonce(context.Background(), "nonce-1")
	assert.NoError(t, err)
	assert.Equal(t, 42, tx.ID)
	assert.Equal(t, models.StatusManualRequired, tx.Status)
	assert.Equal(t, "casino_credit", tx.FailedLeg)
	assert.NotNil(t, tx.LastCompensationAt)
	assert.Zero(t, tx.ResolvedBy)
}

func TestExchangeStoreListByStatus(t *testing.T) {
	store, mock, cleanup := newExchangeStoreTest(t)
	defer cleanup()

	mock.ExpectQuery(`SELECT .+ FROM exchange_transactions WHERE status`).
		WithArgs(models.StatusManualRequired, 100).
		WillReturnRows(exchangeRows())

	list, err := store.ListByStatus(context.Background(), models.StatusManualRequired, 100)
	assert.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, "nonce-1", list[0].Nonce)
}
