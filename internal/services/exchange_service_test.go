package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/innovatehubph/payverse-backend/internal/casino"
	"github.com/innovatehubph/payverse-backend/internal/config"
	"github.com/innovatehubph/payverse-backend/internal/models"
	"github.com/innovatehubph/payverse-backend/internal/paygram"
	"github.com/innovatehubph/payverse-backend/internal/remote"
)

type mockEscrow struct {
	mock.Mock
}

func (m *mockEscrow) Debit(ctx context.Context, userHandle string, amount int64, reference string) paygram.Result {
	args := m.Called(ctx, userHandle, amount, reference)
	return args.Get(0).(paygram.Result)
}

func (m *mockEscrow) Credit(ctx context.Context, userHandle string, amount int64, reference string) paygram.Result {
	args := m.Called(ctx, userHandle, amount, reference)
	return args.Get(0).(paygram.Result)
}

func (m *mockEscrow) BalanceOf(ctx context.Context, userHandle string) paygram.Result {
	args := m.Called(ctx, userHandle)
	return args.Get(0).(paygram.Result)
}

func (m *mockEscrow) EscrowBalance(ctx context.Context) paygram.Result {
	args := m.Called(ctx)
	return args.Get(0).(paygram.Result)
}

type mockChips struct {
	mock.Mock
}

func (m *mockChips) Transfer(ctx context.Context, pool, username string, clientID int64, amount int64, asAgent bool, nonce, comment string) casino.TransferResult {
	args := m.Called(ctx, pool, username, clientID, amount, asAgent, nonce, comment)
	return args.Get(0).(casino.TransferResult)
}

type mockLinks struct {
	mock.Mock
}

func (m *mockLinks) GetLink(ctx context.Context, userID int) (*models.CasinoLink, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CasinoLink), args.Error(1)
}

type mockPin struct {
	mock.Mock
}

func (m *mockPin) Authorize(ctx context.Context, userID int, pin string) error {
	args := m.Called(ctx, userID, pin)
	return args.Error(0)
}

// fakeSagaStore applies the transition table in memory and records every move.
type fakeSagaStore struct {
	nextID  int
	history []models.ExchangeStatus
}

func (s *fakeSagaStore) Create(_ context.Context, tx *models.ExchangeTransaction) error {
	s.nextID++
	tx.ID = s.nextID
	tx.Status = models.StatusInitiated
	tx.CreatedAt = time.Now()
	tx.UpdatedAt = tx.CreatedAt
	s.history = append(s.history, tx.Status)
	return nil
}

func (s *fakeSagaStore) Transition(_ context.Context, tx *models.ExchangeTransaction, to models.ExchangeStatus) error {
	if !models.CanTransition(tx.Status, to) {
		panic("illegal transition " + string(tx.Status) + " -> " + string(to))
	}
	tx.Status = to
	s.history = append(s.history, to)
	return nil
}

func testExchangeConfig() *config.ExchangeConfig {
	return &config.ExchangeConfig{
		MinAmount:            100,
		MaxAmount:            500000,
		RemoteTimeout:        time.Second,
		ChallengeTTL:         10 * time.Minute,
		TokenCacheTTL:        30 * time.Second,
		PinMaxAttempts:       5,
		PinLockoutDuration:   30 * time.Minute,
		RedepositNonceSuffix: "-RD",
		CasinoAgents:         []string{"marcthepogi", "teammarc", "bossmarc747"},
	}
}

func verifiedLink() *models.CasinoLink {
	return &models.CasinoLink{
		UserID:         7,
		CasinoUsername: "player123",
		CasinoClientID: 99001,
		AgentUsername:  "marcthepogi",
		AccountKind:    models.AccountKindPlayer,
		Status:         models.LinkStatusVerified,
	}
}

func newTestExchangeService(store *fakeSagaStore, links *mockLinks, escrow *mockEscrow, chips *mockChips, pin *mockPin) *ExchangeService {
	return NewExchangeService(store, links, escrow, chips, pin,
		NewNotificationService(nil), testExchangeConfig())
}

func TestDeposit_Success(t *testing.T) {
	store := &fakeSagaStore{}
	links := &mockLinks{}
	escrow := &mockEscrow{}
	chips := &mockChips{}
	pin := &mockPin{}

	pin.On("Authorize", mock.Anything, 7, "1234").Return(nil)
	links.On("GetLink", mock.Anything, 7).Return(verifiedLink(), nil)
	escrow.On("BalanceOf", mock.Anything, "PV-7").Return(paygram.Result{OK: true, Balance: 10000})
	escrow.On("Debit", mock.Anything, "PV-7", int64(500), mock.Anything).
		Return(paygram.Result{OK: true, TxID: "PG-1"})
	chips.On("Transfer", mock.Anything, "marcthepogi", "player123", int64(99001), int64(500), false, mock.Anything, mock.Anything).
		Return(casino.TransferResult{OK: true, RemoteTxID: "CAS-1"})

	svc := newTestExchangeService(store, links, escrow, chips, pin)
	tx, err := svc.Deposit(context.Background(), 7, 500, "1234")

	assert.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, tx.Status)
	assert.Equal(t, "PG-1", tx.EscrowTxID)
	assert.Equal(t, "CAS-1", tx.CasinoTxID)
	assert.NotEmpty(t, tx.Nonce)
	assert.Equal(t, []models.ExchangeStatus{
		models.StatusInitiated, models.StatusEscrowDebited, models.StatusCompleted,
	}, store.history)
}

func TestDeposit_EscrowDebitFails_NoCompensation(t *testing.T) {
	store := &fakeSagaStore{}
	links := &mockLinks{}
	escrow := &mockEscrow{}
	chips := &mockChips{}
	pin := &mockPin{}

	pin.On("Authorize", mock.Anything, 7, "1234").Return(nil)
	links.On("GetLink", mock.Anything, 7).Return(verifiedLink(), nil)
	escrow.On("BalanceOf", mock.Anything, "PV-7").Return(paygram.Result{OK: true, Balance: 10000})
	escrow.On("Debit", mock.Anything, "PV-7", int64(500), mock.Anything).
		Return(paygram.Result{Kind: remote.KindBusinessRejected, Message: "wallet frozen"})

	svc := newTestExchangeService(store, links, escrow, chips, pin)
	tx, err := svc.Deposit(context.Background(), 7, 500, "1234")

	assert.NoError(t, err)
	assert.Equal(t, models.StatusFailed, tx.Status)
	assert.Equal(t, "escrow_debit", tx.FailedLeg)
	assert.Zero(t, tx.CompensationAttempts)
	chips.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything, mock.Anything,
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDeposit_ChipCreditFails_RefundSucceeds(t *testing.T) {
	store := &fakeSagaStore{}
	links := &mockLinks{}
	escrow := &mockEscrow{}
	chips := &mockChips{}
	pin := &mockPin{}

	pin.On("Authorize", mock.Anything, 7, "1234").Return(nil)
	links.On("GetLink", mock.Anything, 7).Return(verifiedLink(), nil)
	escrow.On("BalanceOf", mock.Anything, "PV-7").Return(paygram.Result{OK: true, Balance: 10000})
	escrow.On("Debit", mock.Anything, "PV-7", int64(500), mock.Anything).
		Return(paygram.Result{OK: true, TxID: "PG-1"})
	chips.On("Transfer", mock.Anything, "marcthepogi", "player123", int64(99001), int64(500), false, mock.Anything, mock.Anything).
		Return(casino.TransferResult{Kind: remote.KindTimeout, Message: "deadline exceeded"})
	escrow.On("Credit", mock.Anything, "PV-7", int64(500), mock.Anything).
		Return(paygram.Result{OK: true, TxID: "PG-2"})

	svc := newTestExchangeService(store, links, escrow, chips, pin)
	tx, err := svc.Deposit(context.Background(), 7, 500, "1234")

	assert.NoError(t, err)
	assert.Equal(t, models.StatusFailed, tx.Status)
	assert.Equal(t, "casino_credit", tx.FailedLeg)
	assert.Equal(t, "PG-2", tx.CompensationTxID)
	assert.Equal(t, 1, tx.CompensationAttempts)
	assert.NotNil(t, tx.LastCompensationAt)
	assert.Equal(t, []models.ExchangeStatus{
		models.StatusInitiated, models.StatusEscrowDebited,
		models.StatusRefundPending, models.StatusFailed,
	}, store.history)
}

func TestDeposit_RefundFails_ManualRequired(t *testing.T) {
	store := &fakeSagaStore{}
	links := &mockLinks{}
	escrow := &mockEscrow{}
	chips := &mockChips{}
	pin := &mockPin{}

	pin.On("Authorize", mock.Anything, 7, "1234").Return(nil)
	links.On("GetLink", mock.Anything, 7).Return(verifiedLink(), nil)
	escrow.On("BalanceOf", mock.Anything, "PV-7").Return(paygram.Result{OK: true, Balance: 10000})
	escrow.On("Debit", mock.Anything, "PV-7", int64(500), mock.Anything).
		Return(paygram.Result{OK: true, TxID: "PG-1"})
	chips.On("Transfer", mock.Anything, "marcthepogi", "player123", int64(99001), int64(500), false, mock.Anything, mock.Anything).
		Return(casino.TransferResult{Kind: remote.KindBusinessRejected, Message: "account closed"})
	escrow.On("Credit", mock.Anything, "PV-7", int64(500), mock.Anything).
		Return(paygram.Result{Kind: remote.KindTimeout, Message: "deadline exceeded"})

	svc := newTestExchangeService(store, links, escrow, chips, pin)
	tx, err := svc.Deposit(context.Background(), 7, 500, "1234")

	assert.NoError(t, err)
	assert.Equal(t, models.StatusManualRequired, tx.Status)
	assert.Contains(t, tx.FailureReason, "account closed")
	assert.Contains(t, tx.FailureReason, "refund")
}

func TestWithdraw_Success(t *testing.T) {
	store := &fakeSagaStore{}
	links := &mockLinks{}
	escrow := &mockEscrow{}
	chips := &mockChips{}
	pin := &mockPin{}

	pin.On("Authorize", mock.Anything, 7, "1234").Return(nil)
	links.On("GetLink", mock.Anything, 7).Return(verifiedLink(), nil)
	escrow.On("EscrowBalance", mock.Anything).Return(paygram.Result{OK: true, Balance: 1000000})
	chips.On("Transfer", mock.Anything, "marcthepogi", "player123", int64(99001), int64(-800), false, mock.Anything, mock.Anything).
		Return(casino.TransferResult{OK: true, RemoteTxID: "CAS-9"})
	escrow.On("Credit", mock.Anything, "PV-7", int64(800), mock.Anything).
		Return(paygram.Result{OK: true, TxID: "PG-9"})

	svc := newTestExchangeService(store, links, escrow, chips, pin)
	tx, err := svc.Withdraw(context.Background(), 7, 800, "1234")

	assert.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, tx.Status)
	assert.Equal(t, "CAS-9", tx.CasinoTxID)
	assert.Equal(t, "PG-9", tx.EscrowTxID)
	assert.Equal(t, []models.ExchangeStatus{
		models.StatusInitiated, models.StatusCasinoDebited,
		models.StatusPayoutPending, models.StatusCompleted,
	}, store.history)
}

func TestWithdraw_PayoutFails_RedepositUsesDerivedNonce(t *testing.T) {
	store := &fakeSagaStore{}
	links := &mockLinks{}
	escrow := &mockEscrow{}
	chips := &mockChips{}
	pin := &mockPin{}

	pin.On("Authorize", mock.Anything, 7, "1234").Return(nil)
	links.On("GetLink", mock.Anything, 7).Return(verifiedLink(), nil)
	escrow.On("EscrowBalance", mock.Anything).Return(paygram.Result{OK: true, Balance: 1000000})

	var debitNonce, redepositNonce string
	chips.On("Transfer", mock.Anything, "marcthepogi", "player123", int64(99001), int64(-800), false, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { debitNonce = args.String(6) }).
		Return(casino.TransferResult{OK: true, RemoteTxID: "CAS-9"})
	escrow.On("Credit", mock.Anything, "PV-7", int64(800), mock.Anything).
		Return(paygram.Result{Kind: remote.KindTimeout, Message: "deadline exceeded"})
	chips.On("Transfer", mock.Anything, "marcthepogi", "player123", int64(99001), int64(800), false, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { redepositNonce = args.String(6) }).
		Return(casino.TransferResult{OK: true, RemoteTxID: "CAS-10"})

	svc := newTestExchangeService(store, links, escrow, chips, pin)
	tx, err := svc.Withdraw(context.Background(), 7, 800, "1234")

	assert.NoError(t, err)
	assert.Equal(t, models.StatusFailed, tx.Status)
	assert.Equal(t, "escrow_payout", tx.FailedLeg)
	assert.Equal(t, "CAS-10", tx.CompensationTxID)
	assert.Equal(t, debitNonce+"-RD", redepositNonce)
	assert.Equal(t, []models.ExchangeStatus{
		models.StatusInitiated, models.StatusCasinoDebited, models.StatusPayoutPending,
		models.StatusRedepositPending, models.StatusFailed,
	}, store.history)
}

func TestWithdraw_RedepositFails_ManualRequired(t *testing.T) {
	store := &fakeSagaStore{}
	links := &mockLinks{}
	escrow := &mockEscrow{}
	chips := &mockChips{}
	pin := &mockPin{}

	pin.On("Authorize", mock.Anything, 7, "1234").Return(nil)
	links.On("GetLink", mock.Anything, 7).Return(verifiedLink(), nil)
	escrow.On("EscrowBalance", mock.Anything).Return(paygram.Result{OK: true, Balance: 1000000})
	chips.On("Transfer", mock.Anything, "marcthepogi", "player123", int64(99001), int64(-800), false, mock.Anything, mock.Anything).
		Return(casino.TransferResult{OK: true, RemoteTxID: "CAS-9"})
	escrow.On("Credit", mock.Anything, "PV-7", int64(800), mock.Anything).
		Return(paygram.Result{Kind: remote.KindTimeout, Message: "deadline exceeded"})
	chips.On("Transfer", mock.Anything, "marcthepogi", "player123", int64(99001), int64(800), false, mock.Anything, mock.Anything).
		Return(casino.TransferResult{Kind: remote.KindAuthRejected, Message: "token expired"})

	svc := newTestExchangeService(store, links, escrow, chips, pin)
	tx, err := svc.Withdraw(context.Background(), 7, 800, "1234")

	assert.NoError(t, err)
	assert.Equal(t, models.StatusManualRequired, tx.Status)
	assert.Contains(t, tx.FailureReason, "redeposit")
}

func TestWithdraw_ChipDebitFails_NoCompensation(t *testing.T) {
	store := &fakeSagaStore{}
	links := &mockLinks{}
	escrow := &mockEscrow{}
	chips := &mockChips{}
	pin := &mockPin{}

	pin.On("Authorize", mock.Anything, 7, "1234").Return(nil)
	links.On("GetLink", mock.Anything, 7).Return(verifiedLink(), nil)
	escrow.On("EscrowBalance", mock.Anything).Return(paygram.Result{OK: true, Balance: 1000000})
	chips.On("Transfer", mock.Anything, "marcthepogi", "player123", int64(99001), int64(-800), false, mock.Anything, mock.Anything).
		Return(casino.TransferResult{Kind: remote.KindBusinessRejected, Message: "insufficient chips"})

	svc := newTestExchangeService(store, links, escrow, chips, pin)
	tx, err := svc.Withdraw(context.Background(), 7, 800, "1234")

	assert.NoError(t, err)
	assert.Equal(t, models.StatusFailed, tx.Status)
	assert.Equal(t, "casino_debit", tx.FailedLeg)
	assert.Zero(t, tx.CompensationAttempts)
	escrow.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestExchange_PreflightRejections(t *testing.T) {
	t.Run("amount below minimum", func(t *testing.T) {
		svc := newTestExchangeService(&fakeSagaStore{}, &mockLinks{}, &mockEscrow{}, &mockChips{}, &mockPin{})
		_, err := svc.Deposit(context.Background(), 7, 50, "1234")
		var vErr *ValidationError
		assert.ErrorAs(t, err, &vErr)
	})

	t.Run("amount above maximum", func(t *testing.T) {
		svc := newTestExchangeService(&fakeSagaStore{}, &mockLinks{}, &mockEscrow{}, &mockChips{}, &mockPin{})
		_, err := svc.Withdraw(context.Background(), 7, 600000, "1234")
		var vErr *ValidationError
		assert.ErrorAs(t, err, &vErr)
	})

	t.Run("pin rejected", func(t *testing.T) {
		pin := &mockPin{}
		pin.On("Authorize", mock.Anything, 7, "0000").Return(&PinInvalidError{AttemptsRemaining: 2})
		svc := newTestExchangeService(&fakeSagaStore{}, &mockLinks{}, &mockEscrow{}, &mockChips{}, pin)
		_, err := svc.Deposit(context.Background(), 7, 500, "0000")
		var pinErr *PinInvalidError
		assert.ErrorAs(t, err, &pinErr)
	})

	t.Run("link not verified", func(t *testing.T) {
		pin := &mockPin{}
		pin.On("Authorize", mock.Anything, 7, "1234").Return(nil)
		links := &mockLinks{}
		link := verifiedLink()
		link.Status = models.LinkStatusUnverified
		links.On("GetLink", mock.Anything, 7).Return(link, nil)
		svc := newTestExchangeService(&fakeSagaStore{}, links, &mockEscrow{}, &mockChips{}, pin)
		_, err := svc.Deposit(context.Background(), 7, 500, "1234")
		assert.ErrorIs(t, err, ErrLinkNotVerified)
	})

	t.Run("insufficient wallet balance", func(t *testing.T) {
		pin := &mockPin{}
		pin.On("Authorize", mock.Anything, 7, "1234").Return(nil)
		links := &mockLinks{}
		links.On("GetLink", mock.Anything, 7).Return(verifiedLink(), nil)
		escrow := &mockEscrow{}
		escrow.On("BalanceOf", mock.Anything, "PV-7").Return(paygram.Result{OK: true, Balance: 100})
		store := &fakeSagaStore{}
		svc := newTestExchangeService(store, links, escrow, &mockChips{}, pin)
		_, err := svc.Deposit(context.Background(), 7, 500, "1234")
		assert.ErrorIs(t, err, ErrInsufficientBalance)
		assert.Empty(t, store.history, "no saga record before the first leg")
	})

	t.Run("balance preflight timeout fails closed", func(t *testing.T) {
		pin := &mockPin{}
		pin.On("Authorize", mock.Anything, 7, "1234").Return(nil)
		links := &mockLinks{}
		links.On("GetLink", mock.Anything, 7).Return(verifiedLink(), nil)
		escrow := &mockEscrow{}
		escrow.On("BalanceOf", mock.Anything, "PV-7").
			Return(paygram.Result{Kind: remote.KindTimeout, Message: "deadline exceeded"})
		svc := newTestExchangeService(&fakeSagaStore{}, links, escrow, &mockChips{}, pin)
		_, err := svc.Deposit(context.Background(), 7, 500, "1234")
		assert.ErrorIs(t, err, ErrRemoteTimeout)
	})
}

func TestRetry_ResumesStalledPayout(t *testing.T) {
	store := &fakeSagaStore{}
	links := &mockLinks{}
	escrow := &mockEscrow{}
	chips := &mockChips{}

	links.On("GetLink", mock.Anything, 7).Return(verifiedLink(), nil)
	escrow.On("Credit", mock.Anything, "PV-7", int64(800), "sell-nonce").
		Return(paygram.Result{OK: true, TxID: "PG-9"})

	svc := newTestExchangeService(store, links, escrow, chips, &mockPin{})
	stalled := &models.ExchangeTransaction{
		ID:         3,
		UserID:     7,
		Direction:  models.DirectionSell,
		Amount:     800,
		Nonce:      "sell-nonce",
		Status:     models.StatusPayoutPending,
		CasinoTxID: "CAS-9",
	}

	tx, err := svc.Retry(context.Background(), stalled)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, tx.Status)
	assert.Equal(t, "PG-9", tx.EscrowTxID)
	assert.Equal(t, []models.ExchangeStatus{models.StatusCompleted}, store.history)
	chips.AssertNotCalled(t, "Transfer", mock.Anything, mock.Anything, mock.Anything,
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRetry_ResumesStalledChipCredit(t *testing.T) {
	store := &fakeSagaStore{}
	links := &mockLinks{}
	escrow := &mockEscrow{}
	chips := &mockChips{}

	links.On("GetLink", mock.Anything, 7).Return(verifiedLink(), nil)
	chips.On("Transfer", mock.Anything, "marcthepogi", "player123", int64(99001), int64(500), false, "buy-nonce", mock.Anything).
		Return(casino.TransferResult{OK: true, RemoteTxID: "CAS-1"})

	svc := newTestExchangeService(store, links, escrow, chips, &mockPin{})
	stalled := &models.ExchangeTransaction{
		ID:         4,
		UserID:     7,
		Direction:  models.DirectionBuy,
		Amount:     500,
		Nonce:      "buy-nonce",
		Status:     models.StatusEscrowDebited,
		EscrowTxID: "PG-1",
	}

	tx, err := svc.Retry(context.Background(), stalled)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, tx.Status)
	assert.Equal(t, "CAS-1", tx.CasinoTxID)
	escrow.AssertNotCalled(t, "Debit", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRetry_RefundPendingCountsFreshAttempt(t *testing.T) {
	store := &fakeSagaStore{}
	links := &mockLinks{}
	escrow := &mockEscrow{}

	links.On("GetLink", mock.Anything, 7).Return(verifiedLink(), nil)
	escrow.On("Credit", mock.Anything, "PV-7", int64(500), "buy-nonce").
		Return(paygram.Result{OK: true, TxID: "PG-2"})

	svc := newTestExchangeService(store, links, escrow, &mockChips{}, &mockPin{})
	stalled := &models.ExchangeTransaction{
		ID:                   5,
		UserID:               7,
		Direction:            models.DirectionBuy,
		Amount:               500,
		Nonce:                "buy-nonce",
		Status:               models.StatusRefundPending,
		FailedLeg:            "casino_credit",
		CompensationAttempts: 1,
	}

	tx, err := svc.Retry(context.Background(), stalled)
	assert.NoError(t, err)
	assert.Equal(t, models.StatusFailed, tx.Status)
	assert.Equal(t, "PG-2", tx.CompensationTxID)
	assert.Equal(t, 2, tx.CompensationAttempts)
}

func TestRetry_TerminalRecordRejected(t *testing.T) {
	svc := newTestExchangeService(&fakeSagaStore{}, &mockLinks{}, &mockEscrow{}, &mockChips{}, &mockPin{})

	_, err := svc.Retry(context.Background(), &models.ExchangeTransaction{
		ID:        6,
		UserID:    7,
		Direction: models.DirectionBuy,
		Amount:    500,
		Status:    models.StatusCompleted,
	})
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestDeposit_AgentLinkTransfersAsAgent(t *testing.T) {
	store := &fakeSagaStore{}
	links := &mockLinks{}
	escrow := &mockEscrow{}
	chips := &mockChips{}
	pin := &mockPin{}

	link := verifiedLink()
	link.AccountKind = models.AccountKindAgent

	pin.On("Authorize", mock.Anything, 7, "1234").Return(nil)
	links.On("GetLink", mock.Anything, 7).Return(link, nil)
	escrow.On("BalanceOf", mock.Anything, "PV-7").Return(paygram.Result{OK: true, Balance: 10000})
	escrow.On("Debit", mock.Anything, "PV-7", int64(500), mock.Anything).
		Return(paygram.Result{OK: true, TxID: "PG-1"})
	chips.On("Transfer", mock.Anything, "marcthepogi", "player123", int64(99001), int64(500), true, mock.Anything, mock.Anything).
		Return(casino.TransferResult{OK: true, RemoteTxID: "CAS-1"})

	svc := newTestExchangeService(store, links, escrow, chips, pin)
	tx, err := svc.Deposit(context.Background(), 7, 500, "1234")

	assert.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, tx.Status)
	chips.AssertExpectations(t)
}
