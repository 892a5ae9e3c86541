package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/innovatehubph/payverse-backend/internal/models"
)

// CasinoLinkService manages the one casino account a wallet user may link.
// Connecting issues a verification challenge; verifying consumes it and
// writes the link, superseding any previous link the user held.
type CasinoLinkService struct {
	db           *sql.DB
	verification *VerificationService
	bridge       CasinoMessenger
}

func NewCasinoLinkService(db *sql.DB, verification *VerificationService, bridge CasinoMessenger) *CasinoLinkService {
	return &CasinoLinkService{db: db, verification: verification, bridge: bridge}
}

// GetLink returns the user's current casino link or ErrLinkNotFound.
func (s *CasinoLinkService) GetLink(ctx context.Context, userID int) (*models.CasinoLink, error) {
	var link models.CasinoLink
	var topManagers sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, casino_username, casino_client_id, agent_username,
		       account_kind, status, top_managers, created_at, updated_at
		FROM casino_links WHERE user_id = $1`, userID).
		Scan(&link.ID, &link.UserID, &link.CasinoUsername, &link.CasinoClientID,
			&link.AgentUsername, &link.AccountKind, &link.Status, &topManagers,
			&link.CreatedAt, &link.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrLinkNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load casino link: %w", err)
	}
	link.TopManagers = topManagers.String
	return &link, nil
}

// Connect starts the linking flow: resolve the account, issue a challenge,
// and return it so the handler can tell the caller how to respond. No link
// row is written until the challenge passes.
func (s *CasinoLinkService) Connect(ctx context.Context, userID int, casinoUsername string, preferred models.CasinoAccountKind) (*models.VerificationChallenge, error) {
	casinoUsername = strings.TrimSpace(casinoUsername)
	if casinoUsername == "" {
		return nil, &ValidationError{Msg: "casino username is required"}
	}

	ch, err := s.verification.IssueChallenge(ctx, userID, casinoUsername, preferred)
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// VerifyLink checks the submitted challenge answer and, on success, writes
// the link inside one transaction. Any previous link the user held is
// replaced; the ancestor chain from resolution is snapshotted onto the row.
func (s *CasinoLinkService) VerifyLink(ctx context.Context, userID int, casinoUsername, submitted string) (*models.CasinoLink, error) {
	ch, err := s.verification.CheckChallenge(ctx, userID, strings.TrimSpace(casinoUsername), submitted)
	if err != nil {
		return nil, err
	}

	topManagers := ""
	if len(ch.Ancestors) > 0 {
		data, err := json.Marshal(ch.Ancestors)
		if err == nil {
			topManagers = string(data)
		}
	}

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin link transaction: %w", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.ExecContext(ctx, `DELETE FROM casino_links WHERE user_id = $1`, userID); err != nil {
		return nil, fmt.Errorf("supersede previous link: %w", err)
	}

	link := &models.CasinoLink{
		UserID:         userID,
		CasinoUsername: ch.CasinoUsername,
		CasinoClientID: ch.CasinoClientID,
		AgentUsername:  ch.AgentUsername,
		AccountKind:    ch.AccountKind,
		Status:         models.LinkStatusVerified,
		TopManagers:    topManagers,
	}
	err = dbTx.QueryRowContext(ctx, `
		INSERT INTO casino_links (user_id, casino_username, casino_client_id, agent_username,
		                          account_kind, status, top_managers, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		link.UserID, link.CasinoUsername, link.CasinoClientID, link.AgentUsername,
		link.AccountKind, link.Status, link.TopManagers).
		Scan(&link.ID, &link.CreatedAt, &link.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("store casino link: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("commit casino link: %w", err)
	}

	log.Printf("[LINK] User %d linked casino account %s (pool %s, %s)",
		userID, link.CasinoUsername, link.AgentUsername, link.AccountKind)
	return link, nil
}

// Balance returns the live chip balance of the user's linked casino account.
func (s *CasinoLinkService) Balance(ctx context.Context, userID int) (float64, error) {
	link, err := s.GetLink(ctx, userID)
	if err != nil {
		return 0, err
	}
	if !link.Usable() {
		return 0, ErrLinkNotVerified
	}

	stats := s.bridge.Statistics(ctx, link.AgentUsername, link.CasinoUsername)
	if !stats.OK {
		return 0, remoteKindError(stats.Kind, stats.Message)
	}
	return stats.CurrentBalance, nil
}

// Disconnect removes the user's casino link. Removing a link that does not
// exist is not an error.
func (s *CasinoLinkService) Disconnect(ctx context.Context, userID int) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM casino_links WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("remove casino link: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows > 0 {
		log.Printf("[LINK] User %d disconnected casino account", userID)
	}
	return nil
}
