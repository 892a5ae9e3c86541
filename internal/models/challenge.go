package models

import "time"

// ChallengeKind selects the verification mechanism for a casino link.
type ChallengeKind string

const (
	// ChallengeCode is a 6-digit code pushed through the casino's own
	// messaging channel. Used for agent accounts, which have a reliable inbox.
	ChallengeCode ChallengeKind = "code"
	// ChallengeBalance captures the account's live chip balance at issuance;
	// the caller must reproduce it. Used for player accounts.
	ChallengeBalance ChallengeKind = "balance"
)

// VerificationChallenge is the ephemeral possession proof issued during
// casino account linking. Keyed by (user id, casino username); one live
// challenge per key, consumed on success or expiry.
type VerificationChallenge struct {
	UserID          int               `json:"user_id"`
	CasinoUsername  string            `json:"casino_username"`
	Kind            ChallengeKind     `json:"kind"`
	Code            string            `json:"code,omitempty"`
	CapturedBalance float64           `json:"captured_balance,omitempty"`
	AgentUsername   string            `json:"agent_username"`
	CasinoClientID  int64             `json:"casino_client_id"`
	AccountKind     CasinoAccountKind `json:"account_kind"`
	Ancestors       []string          `json:"ancestors,omitempty"`
	ExpiresAt       time.Time         `json:"expires_at"`
}

// Expired reports whether the challenge deadline has passed.
func (c *VerificationChallenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
