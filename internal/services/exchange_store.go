package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/innovatehubph/payverse-backend/internal/models"
)

// ExchangeStore persists chip exchange saga records. Records are append and
// update only; every status move goes through Transition so an illegal jump
// is rejected before it reaches the database.
type ExchangeStore struct {
	db *sql.DB
}

func NewExchangeStore(db *sql.DB) *ExchangeStore {
	return &ExchangeStore{db: db}
}

const exchangeColumns = `id, user_id, direction, amount, nonce, status, escrow_tx_id, casino_tx_id,
	compensation_tx_id, failed_leg, failure_reason, compensation_attempts, last_compensation_at,
	resolution, resolved_by, created_at, updated_at`

// Create inserts a fresh saga record in the initiated state.
func (s *ExchangeStore) Create(ctx context.Context, tx *models.ExchangeTransaction) error {
	tx.Status = models.StatusInitiated
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO exchange_transactions (user_id, direction, amount, nonce, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		tx.UserID, tx.Direction, tx.Amount, tx.Nonce, tx.Status).
		Scan(&tx.ID, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create exchange record: %w", err)
	}
	return nil
}

// Transition persists the record's mutable fields and moves it to the target
// status. The move must be legal per the transition table, and the row must
// still be in the status the caller saw, otherwise the update is rejected.
func (s *ExchangeStore) Transition(ctx context.Context, tx *models.ExchangeTransaction, to models.ExchangeStatus) error {
	if !models.CanTransition(tx.Status, to) {
		return fmt.Errorf("illegal exchange transition %s -> %s (nonce %s)", tx.Status, to, tx.Nonce)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE exchange_transactions
		SET status = $1, escrow_tx_id = $2, casino_tx_id = $3, compensation_tx_id = $4,
		    failed_leg = $5, failure_reason = $6, compensation_attempts = $7,
		    last_compensation_at = $8, updated_at = NOW()
		WHERE id = $9 AND status = $10`,
		to, tx.EscrowTxID, tx.CasinoTxID, tx.CompensationTxID,
		tx.FailedLeg, tx.FailureReason, tx.CompensationAttempts,
		tx.LastCompensationAt, tx.ID, tx.Status)
	if err != nil {
		return fmt.Errorf("persist exchange transition: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("stale exchange record %d: no longer in status %s", tx.ID, tx.Status)
	}

	tx.Status = to
	return nil
}

// Resolve freezes a manual_required record with the operator's outcome.
// Nothing touches the record afterwards.
func (s *ExchangeStore) Resolve(ctx context.Context, id, operatorID int, outcome string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE exchange_transactions
		SET resolution = $1, resolved_by = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4 AND resolution = ''`,
		outcome, operatorID, id, models.StatusManualRequired)
	if err != nil {
		return fmt.Errorf("resolve exchange record: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("exchange record %d is not awaiting manual resolution", id)
	}
	return nil
}

// FindByID loads a saga record.
func (s *ExchangeStore) FindByID(ctx context.Context, id int) (*models.ExchangeTransaction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+exchangeColumns+` FROM exchange_transactions WHERE id = $1`, id)
	return scanExchange(row)
}

// FindByNonce loads the unique saga record owning an idempotency nonce.
func (s *ExchangeStore) FindByNonce(ctx context.Context, nonce string) (*models.ExchangeTransaction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+exchangeColumns+` FROM exchange_transactions WHERE nonce = $1`, nonce)
	return scanExchange(row)
}

// ListByStatus returns records in one status, oldest first, for operator
// escalation and retry tooling.
func (s *ExchangeStore) ListByStatus(ctx context.Context, status models.ExchangeStatus, limit int) ([]models.ExchangeTransaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+exchangeColumns+` FROM exchange_transactions WHERE status = $1 ORDER BY created_at ASC LIMIT $2`,
		status, limit)
	if err != nil {
		return nil, fmt.Errorf("list exchange records: %w", err)
	}
	defer rows.Close()
	return collectExchanges(rows)
}

// ListByUser returns a user's exchange history, newest first.
func (s *ExchangeStore) ListByUser(ctx context.Context, userID, limit int) ([]models.ExchangeTransaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+exchangeColumns+` FROM exchange_transactions WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list exchange records: %w", err)
	}
	defer rows.Close()
	return collectExchanges(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExchange(row rowScanner) (*models.ExchangeTransaction, error) {
	var tx models.ExchangeTransaction
	var lastCompensation sql.NullTime
	var resolvedBy sql.NullInt64
	err := row.Scan(
		&tx.ID, &tx.UserID, &tx.Direction, &tx.Amount, &tx.Nonce, &tx.Status,
		&tx.EscrowTxID, &tx.CasinoTxID, &tx.CompensationTxID,
		&tx.FailedLeg, &tx.FailureReason, &tx.CompensationAttempts, &lastCompensation,
		&tx.Resolution, &resolvedBy, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if lastCompensation.Valid {
		t := lastCompensation.Time
		tx.LastCompensationAt = &t
	}
	if resolvedBy.Valid {
		tx.ResolvedBy = int(resolvedBy.Int64)
	}
	return &tx, nil
}

func collectExchanges(rows *sql.Rows) ([]models.ExchangeTransaction, error) {
	transactions := []models.ExchangeTransaction{}
	for rows.Next() {
		tx, err := scanExchange(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *tx)
	}
	return transactions, rows.Err()
}

// StuckSince returns non-terminal records untouched for longer than the
// given age. These are the records an operator should look at after a crash.
func (s *ExchangeStore) StuckSince(ctx context.Context, age time.Duration, limit int) ([]models.ExchangeTransaction, error) {
	cutoff := time.Now().Add(-age)
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+exchangeColumns+` FROM exchange_transactions
		 WHERE status NOT IN ($1, $2, $3) AND updated_at < $4
		 ORDER BY updated_at ASC LIMIT $5`,
		models.StatusCompleted, models.StatusFailed, models.StatusManualRequired, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list stuck exchange records: %w", err)
	}
	defer rows.Close()
	return collectExchanges(rows)
}
