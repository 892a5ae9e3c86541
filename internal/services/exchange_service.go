package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/innovatehubph/payverse-backend/internal/audit"
	"github.com/innovatehubph/payverse-backend/internal/casino"
	"github.com/innovatehubph/payverse-backend/internal/config"
	"github.com/innovatehubph/payverse-backend/internal/models"
	"github.com/innovatehubph/payverse-backend/internal/paygram"
	"github.com/innovatehubph/payverse-backend/internal/remote"
)

// EscrowLedger is the PHPT escrow side of the exchange.
type EscrowLedger interface {
	Debit(ctx context.Context, userHandle string, amount int64, reference string) paygram.Result
	Credit(ctx context.Context, userHandle string, amount int64, reference string) paygram.Result
	BalanceOf(ctx context.Context, userHandle string) paygram.Result
	EscrowBalance(ctx context.Context) paygram.Result
}

// ChipLedger is the casino side of the exchange.
type ChipLedger interface {
	Transfer(ctx context.Context, pool, username string, clientID int64, amount int64, asAgent bool, nonce, comment string) casino.TransferResult
}

// LinkReader loads the user's verified casino link.
type LinkReader interface {
	GetLink(ctx context.Context, userID int) (*models.CasinoLink, error)
}

// PinAuthorizer is the gate in front of every money movement.
type PinAuthorizer interface {
	Authorize(ctx context.Context, userID int, pin string) error
}

// SagaStore persists saga records and enforces the transition table.
type SagaStore interface {
	Create(ctx context.Context, tx *models.ExchangeTransaction) error
	Transition(ctx context.Context, tx *models.ExchangeTransaction, to models.ExchangeStatus) error
}

// ExchangeService drives the chip exchange saga. The escrow ledger and the
// casino ledger share no transaction boundary, so each direction runs as two
// ordered legs with an explicit compensation path: every transition is
// persisted before the next remote call, a failed second leg triggers an
// automatic reversal of the first, and only a failed reversal escalates to a
// human.
type ExchangeService struct {
	store    SagaStore
	links    LinkReader
	escrow   EscrowLedger
	chips    ChipLedger
	pin      PinAuthorizer
	notifier *NotificationService
	audit    *audit.Logger
	cfg      *config.ExchangeConfig
}

func NewExchangeService(store SagaStore, links LinkReader, escrow EscrowLedger, chips ChipLedger,
	pin PinAuthorizer, notifier *NotificationService, cfg *config.ExchangeConfig) *ExchangeService {
	return &ExchangeService{
		store:    store,
		links:    links,
		escrow:   escrow,
		chips:    chips,
		pin:      pin,
		notifier: notifier,
		audit:    audit.NewLogger(),
		cfg:      cfg,
	}
}

// Deposit buys casino chips with PHPT: debit escrow, then credit chips.
// A failed chip credit is compensated by refunding the escrow debit.
func (s *ExchangeService) Deposit(ctx context.Context, userID int, amount int64, pin string) (*models.ExchangeTransaction, error) {
	link, err := s.preflight(ctx, userID, amount, pin)
	if err != nil {
		return nil, err
	}

	handle := escrowHandle(userID)
	balance := s.escrow.BalanceOf(ctx, handle)
	if !balance.OK {
		return nil, remoteKindError(balance.Kind, balance.Message)
	}
	if balance.Balance < float64(amount) {
		return nil, ErrInsufficientBalance
	}

	tx := &models.ExchangeTransaction{
		UserID:    userID,
		Direction: models.DirectionBuy,
		Amount:    amount,
		Nonce:     uuid.NewString(),
	}
	if err := s.store.Create(ctx, tx); err != nil {
		return nil, err
	}
	log.Printf("[EXCHANGE] Deposit %d initiated for user %d, nonce %s", amount, userID, tx.Nonce)

	return s.runDeposit(ctx, tx, link)
}

// runDeposit drives a buy saga from its current status to a terminal one.
// Each block is keyed on the status it expects, so a record that stalled
// mid-saga resumes at its first outstanding leg.
func (s *ExchangeService) runDeposit(ctx context.Context, tx *models.ExchangeTransaction, link *models.CasinoLink) (*models.ExchangeTransaction, error) {
	handle := escrowHandle(tx.UserID)

	if tx.Status == models.StatusInitiated {
		// Leg 1: escrow debit. Nothing has moved yet, so a failure here ends
		// the saga without compensation.
		debit := s.escrow.Debit(ctx, handle, tx.Amount, tx.Nonce)
		if !debit.OK {
			tx.FailedLeg = "escrow_debit"
			tx.FailureReason = legFailure(debit.Kind, debit.Message)
			if err := s.transition(ctx, tx, models.StatusFailed); err != nil {
				return tx, err
			}
			s.finish(tx)
			return tx, nil
		}
		tx.EscrowTxID = debit.TxID
		if err := s.transition(ctx, tx, models.StatusEscrowDebited); err != nil {
			return tx, err
		}
	}

	if tx.Status == models.StatusEscrowDebited {
		// Leg 2: chip credit, reusing the saga nonce so a retried call cannot
		// double-apply on the casino side.
		credit := s.chips.Transfer(ctx, link.AgentUsername, link.CasinoUsername, link.CasinoClientID,
			tx.Amount, link.AccountKind == models.AccountKindAgent, tx.Nonce, "PayVerse chip purchase")
		if credit.OK {
			tx.CasinoTxID = credit.RemoteTxID
			if err := s.transition(ctx, tx, models.StatusCompleted); err != nil {
				return tx, err
			}
			s.finish(tx)
			return tx, nil
		}

		tx.FailedLeg = "casino_credit"
		tx.FailureReason = legFailure(credit.Kind, credit.Message)
		s.audit.LogLegFailure(tx.Nonce, tx.UserID, tx.FailedLeg, tx.FailureReason)
		s.markCompensationAttempt(tx)
		if err := s.transition(ctx, tx, models.StatusRefundPending); err != nil {
			return tx, err
		}
	}

	if tx.Status == models.StatusRefundPending {
		// Compensation: refund the escrow debit.
		refund := s.escrow.Credit(ctx, handle, tx.Amount, tx.Nonce)
		if refund.OK {
			tx.CompensationTxID = refund.TxID
			if err := s.transition(ctx, tx, models.StatusFailed); err != nil {
				return tx, err
			}
			log.Printf("[EXCHANGE] Deposit %s reverted cleanly, refund tx %s", tx.Nonce, refund.TxID)
			s.finish(tx)
			return tx, nil
		}

		tx.FailureReason = fmt.Sprintf("%s; refund: %s", tx.FailureReason, legFailure(refund.Kind, refund.Message))
		if err := s.transition(ctx, tx, models.StatusManualRequired); err != nil {
			return tx, err
		}
		log.Printf("[EXCHANGE] Deposit %s escalated to manual resolution", tx.Nonce)
		s.finish(tx)
	}
	return tx, nil
}

// Withdraw sells casino chips for PHPT: debit chips, then pay out from
// escrow. A failed payout is compensated by re-crediting the chips under a
// derived nonce, so the redeposit is distinguishable from the original debit.
func (s *ExchangeService) Withdraw(ctx context.Context, userID int, amount int64, pin string) (*models.ExchangeTransaction, error) {
	link, err := s.preflight(ctx, userID, amount, pin)
	if err != nil {
		return nil, err
	}

	// The escrow pool itself must hold enough PHPT to cover the payout.
	pool := s.escrow.EscrowBalance(ctx)
	if !pool.OK {
		return nil, remoteKindError(pool.Kind, pool.Message)
	}
	if pool.Balance < float64(amount) {
		return nil, ErrInsufficientBalance
	}

	tx := &models.ExchangeTransaction{
		UserID:    userID,
		Direction: models.DirectionSell,
		Amount:    amount,
		Nonce:     uuid.NewString(),
	}
	if err := s.store.Create(ctx, tx); err != nil {
		return nil, err
	}
	log.Printf("[EXCHANGE] Withdrawal %d initiated for user %d, nonce %s", amount, userID, tx.Nonce)

	return s.runWithdraw(ctx, tx, link)
}

// runWithdraw drives a sell saga from its current status to a terminal one,
// mirroring runDeposit's resume-at-outstanding-leg layout.
func (s *ExchangeService) runWithdraw(ctx context.Context, tx *models.ExchangeTransaction, link *models.CasinoLink) (*models.ExchangeTransaction, error) {
	if tx.Status == models.StatusInitiated {
		// Leg 1: chip debit (negative signed amount).
		debit := s.chips.Transfer(ctx, link.AgentUsername, link.CasinoUsername, link.CasinoClientID,
			-tx.Amount, link.AccountKind == models.AccountKindAgent, tx.Nonce, "PayVerse chip sale")
		if !debit.OK {
			tx.FailedLeg = "casino_debit"
			tx.FailureReason = legFailure(debit.Kind, debit.Message)
			if err := s.transition(ctx, tx, models.StatusFailed); err != nil {
				return tx, err
			}
			s.finish(tx)
			return tx, nil
		}
		tx.CasinoTxID = debit.RemoteTxID
		if err := s.transition(ctx, tx, models.StatusCasinoDebited); err != nil {
			return tx, err
		}
	}

	if tx.Status == models.StatusCasinoDebited {
		// The pending state is persisted before the payout call so a crash
		// mid-payout leaves a findable record.
		if err := s.transition(ctx, tx, models.StatusPayoutPending); err != nil {
			return tx, err
		}
	}

	if tx.Status == models.StatusPayoutPending {
		// Leg 2: escrow payout.
		payout := s.escrow.Credit(ctx, escrowHandle(tx.UserID), tx.Amount, tx.Nonce)
		if payout.OK {
			tx.EscrowTxID = payout.TxID
			if err := s.transition(ctx, tx, models.StatusCompleted); err != nil {
				return tx, err
			}
			s.finish(tx)
			return tx, nil
		}

		tx.FailedLeg = "escrow_payout"
		tx.FailureReason = legFailure(payout.Kind, payout.Message)
		s.audit.LogLegFailure(tx.Nonce, tx.UserID, tx.FailedLeg, tx.FailureReason)
		s.markCompensationAttempt(tx)
		if err := s.transition(ctx, tx, models.StatusRedepositPending); err != nil {
			return tx, err
		}
	}

	if tx.Status == models.StatusRedepositPending {
		// Compensation: put the chips back under a derived nonce.
		redeposit := s.chips.Transfer(ctx, link.AgentUsername, link.CasinoUsername, link.CasinoClientID,
			tx.Amount, link.AccountKind == models.AccountKindAgent, tx.Nonce+s.cfg.RedepositNonceSuffix, "PayVerse chip sale reversal")
		if redeposit.OK {
			tx.CompensationTxID = redeposit.RemoteTxID
			if err := s.transition(ctx, tx, models.StatusFailed); err != nil {
				return tx, err
			}
			log.Printf("[EXCHANGE] Withdrawal %s reverted cleanly, redeposit tx %s", tx.Nonce, redeposit.RemoteTxID)
			s.finish(tx)
			return tx, nil
		}

		tx.FailureReason = fmt.Sprintf("%s; redeposit: %s", tx.FailureReason, legFailure(redeposit.Kind, redeposit.Message))
		if err := s.transition(ctx, tx, models.StatusManualRequired); err != nil {
			return tx, err
		}
		log.Printf("[EXCHANGE] Withdrawal %s escalated to manual resolution", tx.Nonce)
		s.finish(tx)
	}
	return tx, nil
}

// Retry re-drives a saga record stalled in a non-terminal state, resuming at
// its first outstanding leg. Remote calls reuse the recorded nonce, so a leg
// that did land before the stall is deduplicated on the remote side.
func (s *ExchangeService) Retry(ctx context.Context, tx *models.ExchangeTransaction) (*models.ExchangeTransaction, error) {
	if tx.Status.IsTerminal() {
		return nil, &ValidationError{Msg: fmt.Sprintf("transaction %d is already %s", tx.ID, tx.Status)}
	}

	link, err := s.links.GetLink(ctx, tx.UserID)
	if err != nil {
		return nil, err
	}
	if !link.Usable() {
		return nil, ErrLinkNotVerified
	}

	// Resuming inside a compensation state is a fresh compensation attempt.
	if tx.Status == models.StatusRefundPending || tx.Status == models.StatusRedepositPending {
		s.markCompensationAttempt(tx)
	}

	log.Printf("[EXCHANGE] Retrying %s saga %s from status %s", tx.Direction, tx.Nonce, tx.Status)
	if tx.Direction == models.DirectionBuy {
		return s.runDeposit(ctx, tx, link)
	}
	return s.runWithdraw(ctx, tx, link)
}

// preflight runs every check that may reject the request before a saga
// record exists: amount band, PIN gate, link status.
func (s *ExchangeService) preflight(ctx context.Context, userID int, amount int64, pin string) (*models.CasinoLink, error) {
	if amount < s.cfg.MinAmount || amount > s.cfg.MaxAmount {
		return nil, &ValidationError{Msg: fmt.Sprintf("amount must be between %d and %d", s.cfg.MinAmount, s.cfg.MaxAmount)}
	}

	if err := s.pin.Authorize(ctx, userID, pin); err != nil {
		return nil, err
	}

	link, err := s.links.GetLink(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !link.Usable() {
		return nil, ErrLinkNotVerified
	}
	return link, nil
}

func (s *ExchangeService) transition(ctx context.Context, tx *models.ExchangeTransaction, to models.ExchangeStatus) error {
	from := tx.Status
	if err := s.store.Transition(ctx, tx, to); err != nil {
		log.Printf("[EXCHANGE] Failed to persist transition %s -> %s for nonce %s: %v", from, to, tx.Nonce, err)
		return err
	}
	s.audit.LogTransition(tx.Nonce, tx.UserID, tx.Amount, string(from), string(to))
	return nil
}

func (s *ExchangeService) markCompensationAttempt(tx *models.ExchangeTransaction) {
	tx.CompensationAttempts++
	now := time.Now()
	tx.LastCompensationAt = &now
}

func (s *ExchangeService) finish(tx *models.ExchangeTransaction) {
	go s.notifier.NotifyExchangeOutcome(tx)
}

// escrowHandle is the PayGram account handle for a wallet user.
func escrowHandle(userID int) string {
	return fmt.Sprintf("PV-%d", userID)
}

// legFailure records the failure taxonomy kind alongside the remote message.
func legFailure(kind remote.FailureKind, message string) string {
	if message == "" {
		return string(kind)
	}
	return fmt.Sprintf("%s: %s", kind, message)
}
