package services

import (
	"context"
	cryptorand "crypto/rand"
	"fmt"
	"log"
	"math"
	"strconv"
	"time"

	"github.com/innovatehubph/payverse-backend/internal/casino"
	"github.com/innovatehubph/payverse-backend/internal/config"
	"github.com/innovatehubph/payverse-backend/internal/models"
	"github.com/innovatehubph/payverse-backend/internal/remote"
)

// CasinoMessenger covers the bridge calls the verification flow needs.
type CasinoMessenger interface {
	SendMessage(ctx context.Context, pool, username string, clientID int64, subject, body string) casino.MessageResult
	Statistics(ctx context.Context, pool, username string) casino.StatisticsResult
}

// VerificationService proves that the caller controls a casino account before
// a link is created. Agents get a 6-digit code through the casino's own inbox;
// players must reproduce their live chip balance captured at issuance.
type VerificationService struct {
	store    ChallengeStore
	bridge   CasinoMessenger
	resolver *AgentResolverService
	ttl      time.Duration
	now      func() time.Time
}

func NewVerificationService(store ChallengeStore, bridge CasinoMessenger, resolver *AgentResolverService, cfg *config.ExchangeConfig) *VerificationService {
	return &VerificationService{
		store:    store,
		bridge:   bridge,
		resolver: resolver,
		ttl:      cfg.ChallengeTTL,
		now:      time.Now,
	}
}

// IssueChallenge resolves the account's owning pool and creates a fresh
// challenge, replacing any live one for the same key.
func (s *VerificationService) IssueChallenge(ctx context.Context, userID int, casinoUsername string, preferred models.CasinoAccountKind) (*models.VerificationChallenge, error) {
	resolved, err := s.resolver.Resolve(ctx, casinoUsername, preferred)
	if err != nil {
		return nil, err
	}

	ch := &models.VerificationChallenge{
		UserID:         userID,
		CasinoUsername: resolved.Username,
		AgentUsername:  resolved.Pool,
		CasinoClientID: resolved.ClientID,
		AccountKind:    resolved.Kind,
		Ancestors:      resolved.Ancestors,
		ExpiresAt:      s.now().Add(s.ttl),
	}

	switch resolved.Kind {
	case models.AccountKindAgent:
		ch.Kind = models.ChallengeCode
		ch.Code = generateVerificationCode()
		body := fmt.Sprintf("Your PayVerse verification code is %s. It expires in %d minutes.", ch.Code, int(s.ttl.Minutes()))
		msg := s.bridge.SendMessage(ctx, resolved.Pool, resolved.Username, resolved.ClientID, "PayVerse account verification", body)
		if !msg.OK {
			log.Printf("[VERIFY] Code delivery failed for %s via pool %s: %s", resolved.Username, resolved.Pool, msg.Message)
			return nil, remoteKindError(msg.Kind, msg.Message)
		}
	default:
		ch.Kind = models.ChallengeBalance
		stats := s.bridge.Statistics(ctx, resolved.Pool, resolved.Username)
		if !stats.OK {
			log.Printf("[VERIFY] Balance capture failed for %s via pool %s: %s", resolved.Username, resolved.Pool, stats.Message)
			return nil, remoteKindError(stats.Kind, stats.Message)
		}
		ch.CapturedBalance = stats.CurrentBalance
	}

	key := challengeKey(userID, resolved.Username)
	if err := s.store.Put(ctx, key, ch, s.ttl); err != nil {
		return nil, fmt.Errorf("store challenge: %w", err)
	}

	log.Printf("[VERIFY] Issued %s challenge for user %d, casino account %s", ch.Kind, userID, resolved.Username)
	return ch, nil
}

// CheckChallenge verifies the submitted value against the live challenge and
// consumes it on success. Expiry is decided against the stored deadline, not
// by a background sweep.
func (s *VerificationService) CheckChallenge(ctx context.Context, userID int, casinoUsername, submitted string) (*models.VerificationChallenge, error) {
	key := challengeKey(userID, casinoUsername)
	ch, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load challenge: %w", err)
	}
	if ch == nil {
		return nil, ErrChallengeInvalid
	}

	if ch.Expired(s.now()) {
		s.store.Delete(ctx, key)
		log.Printf("[VERIFY] Challenge expired for user %d, casino account %s", userID, casinoUsername)
		return nil, ErrChallengeExpired
	}

	switch ch.Kind {
	case models.ChallengeCode:
		if submitted != ch.Code {
			log.Printf("[VERIFY] Code mismatch for user %d, casino account %s", userID, casinoUsername)
			return nil, ErrChallengeInvalid
		}
	case models.ChallengeBalance:
		value, err := strconv.ParseFloat(submitted, 64)
		if err != nil || roundCentavos(value) != roundCentavos(ch.CapturedBalance) {
			log.Printf("[VERIFY] Balance mismatch for user %d, casino account %s", userID, casinoUsername)
			return nil, ErrChallengeInvalid
		}
	default:
		return nil, ErrChallengeInvalid
	}

	if err := s.store.Delete(ctx, key); err != nil {
		log.Printf("[VERIFY] Failed to consume challenge for user %d: %v", userID, err)
	}
	log.Printf("[VERIFY] Challenge passed for user %d, casino account %s", userID, casinoUsername)
	return ch, nil
}

// roundCentavos rounds to 2 decimal places. The balance proof requires exact
// equality at centavo precision.
func roundCentavos(v float64) float64 {
	return math.Round(v*100) / 100
}

func generateVerificationCode() string {
	b := make([]byte, 4)
	cryptorand.Read(b)
	n := int(b[0])<<24 | int(b[1])<<16 | int(b[2])<<8 | int(b[3])
	return fmt.Sprintf("%06d", n%1000000)
}

// remoteKindError maps a client failure kind to the service error taxonomy.
func remoteKindError(kind remote.FailureKind, message string) error {
	switch kind {
	case remote.KindTimeout:
		return fmt.Errorf("%w: %s", ErrRemoteTimeout, message)
	case remote.KindAuthRejected:
		return fmt.Errorf("%w: %s", ErrRemoteAuthRejected, message)
	case remote.KindPoolUnavailable:
		return fmt.Errorf("%w: %s", ErrPoolUnavailable, message)
	default:
		return fmt.Errorf("%w: %s", ErrRemoteRejected, message)
	}
}
