package services

import (
	"errors"
	"fmt"
	"time"
)

// Errors reported synchronously to the caller. None of these leave a saga
// record behind; they all fire before or instead of the first ledger leg.
var (
	ErrAccountNotFound     = errors.New("casino account not found under any configured agent")
	ErrPoolUnavailable     = errors.New("agent credential pool unavailable")
	ErrChallengeInvalid    = errors.New("verification challenge invalid")
	ErrChallengeExpired    = errors.New("verification challenge expired")
	ErrLinkNotFound        = errors.New("no casino account linked")
	ErrLinkNotVerified     = errors.New("casino link is not verified")
	ErrPinNotSet           = errors.New("transaction PIN is not set")
	ErrPinRequired         = errors.New("transaction PIN is required")
	ErrPinAlreadySet       = errors.New("transaction PIN is already set")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrRemoteTimeout       = errors.New("remote ledger timed out")
	ErrRemoteAuthRejected  = errors.New("remote ledger rejected credentials")
	ErrRemoteRejected      = errors.New("remote ledger rejected the request")
)

// ValidationError rejects malformed input before any remote call.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// PinLockedError is returned while the PIN gate lockout is active.
type PinLockedError struct {
	Until time.Time
}

func (e *PinLockedError) Error() string {
	return fmt.Sprintf("PIN locked until %s", e.Until.Format(time.RFC3339))
}

// PinInvalidError is returned on a PIN mismatch below the lockout threshold.
type PinInvalidError struct {
	AttemptsRemaining int
}

func (e *PinInvalidError) Error() string {
	return fmt.Sprintf("invalid PIN, %d attempts remaining", e.AttemptsRemaining)
}
