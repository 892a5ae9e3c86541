package models

import "time"

// CasinoAccountKind distinguishes the two account types the casino hierarchy
// endpoint understands.
type CasinoAccountKind string

const (
	AccountKindPlayer CasinoAccountKind = "player"
	AccountKindAgent  CasinoAccountKind = "agent"
)

// Casino link statuses. A simulated link behaves like a verified one but is
// flagged so demo accounts never reach the real casino bridge.
const (
	LinkStatusUnverified = "unverified"
	LinkStatusVerified   = "verified"
	LinkStatusSimulated  = "simulated"
)

// CasinoLink ties a wallet user to exactly one external casino account.
// A new link attempt always supersedes the previous one.
type CasinoLink struct {
	ID             int               `json:"id" db:"id"`
	UserID         int               `json:"user_id" db:"user_id"`
	CasinoUsername string            `json:"casino_username" db:"casino_username"`
	CasinoClientID int64             `json:"casino_client_id" db:"casino_client_id"`
	AgentUsername  string            `json:"agent_username" db:"agent_username"`
	AccountKind    CasinoAccountKind `json:"account_kind" db:"account_kind"`
	Status         string            `json:"status" db:"status"`
	TopManagers    string            `json:"top_managers,omitempty" db:"top_managers"` // ancestor chain snapshot, JSON array
	CreatedAt      time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at" db:"updated_at"`
}

// Usable reports whether the link may be used for chip exchange.
func (l *CasinoLink) Usable() bool {
	return l.Status == LinkStatusVerified || l.Status == LinkStatusSimulated
}
