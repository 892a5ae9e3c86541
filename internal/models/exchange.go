package models

import "time"

// ExchangeDirection identifies which way value moves in a chip exchange.
type ExchangeDirection string

const (
	DirectionBuy  ExchangeDirection = "buy"  // PHPT -> casino chips
	DirectionSell ExchangeDirection = "sell" // casino chips -> PHPT
)

// ExchangeStatus is the saga state of a chip exchange transaction.
type ExchangeStatus string

const (
	StatusInitiated        ExchangeStatus = "initiated"
	StatusEscrowDebited    ExchangeStatus = "escrow_debited"
	StatusCasinoDebited    ExchangeStatus = "casino_debited"
	StatusPayoutPending    ExchangeStatus = "payout_pending"
	StatusRefundPending    ExchangeStatus = "refund_pending"
	StatusRedepositPending ExchangeStatus = "redeposit_pending"
	StatusCompleted        ExchangeStatus = "completed"
	StatusFailed           ExchangeStatus = "failed"
	StatusManualRequired   ExchangeStatus = "manual_required"
)

// exchangeTransitions is the only legal set of status moves. Anything not
// listed here is rejected by the store, so a bug in the orchestrator cannot
// silently rewind or skip a saga step.
var exchangeTransitions = map[ExchangeStatus][]ExchangeStatus{
	StatusInitiated:        {StatusEscrowDebited, StatusCasinoDebited, StatusFailed},
	StatusEscrowDebited:    {StatusCompleted, StatusRefundPending},
	StatusCasinoDebited:    {StatusPayoutPending},
	StatusPayoutPending:    {StatusCompleted, StatusRedepositPending},
	StatusRefundPending:    {StatusFailed, StatusManualRequired},
	StatusRedepositPending: {StatusFailed, StatusManualRequired},
}

// CanTransition reports whether moving from one saga status to another is legal.
func CanTransition(from, to ExchangeStatus) bool {
	for _, next := range exchangeTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a status ends the saga. manual_required is
// terminal for the state machine; only an operator resolution touches the
// record afterwards.
func (s ExchangeStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusManualRequired
}

// Succeeded reports whether the saga ended with value delivered.
func (s ExchangeStatus) Succeeded() bool {
	return s == StatusCompleted
}

// ExchangeTransaction is the persisted saga record, one per buy or sell attempt.
type ExchangeTransaction struct {
	ID                   int               `json:"id" db:"id"`
	UserID               int               `json:"user_id" db:"user_id"`
	Direction            ExchangeDirection `json:"direction" db:"direction"`
	Amount               int64             `json:"amount" db:"amount"`
	Nonce                string            `json:"nonce" db:"nonce"`
	Status               ExchangeStatus    `json:"status" db:"status"`
	EscrowTxID           string            `json:"escrow_tx_id,omitempty" db:"escrow_tx_id"`
	CasinoTxID           string            `json:"casino_tx_id,omitempty" db:"casino_tx_id"`
	CompensationTxID     string            `json:"compensation_tx_id,omitempty" db:"compensation_tx_id"`
	FailedLeg            string            `json:"failed_leg,omitempty" db:"failed_leg"`
	FailureReason        string            `json:"failure_reason,omitempty" db:"failure_reason"`
	CompensationAttempts int               `json:"compensation_attempts" db:"compensation_attempts"`
	LastCompensationAt   *time.Time        `json:"last_compensation_at,omitempty" db:"last_compensation_at"`
	Resolution           string            `json:"resolution,omitempty" db:"resolution"`
	ResolvedBy           int               `json:"resolved_by,omitempty" db:"resolved_by"`
	CreatedAt            time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at" db:"updated_at"`
}
