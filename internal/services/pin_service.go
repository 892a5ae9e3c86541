package services

import (
	"context"
	cryptorand "crypto/rand"
	"crypto/subtle"
	"database/sql"
	"encoding/base64"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/innovatehubph/payverse-backend/internal/config"
	"github.com/spf13/viper"
	"golang.org/x/crypto/argon2"
)

var pinFormat = regexp.MustCompile(`^[0-9]{4,6}$`)

// PinService is the authorization gate in front of every money-movement path.
// It verifies the hashed transaction PIN, counts consecutive failures, and
// enforces a timed lockout. The only persistent state is the failure counter
// and lockout deadline on the user record.
type PinService struct {
	db  *sql.DB
	cfg *config.ExchangeConfig
	now func() time.Time
}

func NewPinService(db *sql.DB, cfg *config.ExchangeConfig) *PinService {
	return &PinService{db: db, cfg: cfg, now: time.Now}
}

// Authorize validates the supplied PIN for the user. It returns nil on
// success, ErrPinNotSet / ErrPinRequired, *PinLockedError while a lockout is
// active, or *PinInvalidError with the attempts remaining. An attempt made
// during an active lockout does not consume an attempt slot.
func (s *PinService) Authorize(ctx context.Context, userID int, pin string) error {
	if pin == "" {
		return ErrPinRequired
	}

	var pinHash sql.NullString
	var failedAttempts int
	var lockedUntil sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT pin_hash, pin_failed_attempts, pin_locked_until FROM users WHERE id = $1`,
		userID).Scan(&pinHash, &failedAttempts, &lockedUntil)
	if err != nil {
		return fmt.Errorf("load PIN state: %w", err)
	}

	if !pinHash.Valid || pinHash.String == "" {
		return ErrPinNotSet
	}

	now := s.now()
	if lockedUntil.Valid && lockedUntil.Time.After(now) {
		log.Printf("[PIN] User %d attempted PIN while locked until %s", userID, lockedUntil.Time.Format(time.RFC3339))
		return &PinLockedError{Until: lockedUntil.Time}
	}

	if verifyPinHash(pin, pinHash.String) {
		_, err := s.db.ExecContext(ctx,
			`UPDATE users SET pin_failed_attempts = 0, pin_locked_until = NULL, updated_at = NOW() WHERE id = $1`,
			userID)
		if err != nil {
			return fmt.Errorf("reset PIN counter: %w", err)
		}
		return nil
	}

	failedAttempts++
	if failedAttempts >= s.cfg.PinMaxAttempts {
		until := now.Add(s.cfg.PinLockoutDuration)
		_, err := s.db.ExecContext(ctx,
			`UPDATE users SET pin_failed_attempts = $1, pin_locked_until = $2, updated_at = NOW() WHERE id = $3`,
			failedAttempts, until, userID)
		if err != nil {
			return fmt.Errorf("record PIN lockout: %w", err)
		}
		log.Printf("[PIN] User %d locked out after %d failed attempts", userID, failedAttempts)
		return &PinLockedError{Until: until}
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE users SET pin_failed_attempts = $1, updated_at = NOW() WHERE id = $2`,
		failedAttempts, userID)
	if err != nil {
		return fmt.Errorf("record PIN failure: %w", err)
	}
	return &PinInvalidError{AttemptsRemaining: s.cfg.PinMaxAttempts - failedAttempts}
}

// SetupPin creates the transaction PIN for a user that has none.
func (s *PinService) SetupPin(ctx context.Context, userID int, pin string) error {
	if !pinFormat.MatchString(pin) {
		return &ValidationError{Msg: "PIN must be 4 to 6 digits"}
	}

	var existing sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT pin_hash FROM users WHERE id = $1`, userID).Scan(&existing)
	if err != nil {
		return fmt.Errorf("load PIN state: %w", err)
	}
	if existing.Valid && existing.String != "" {
		return ErrPinAlreadySet
	}

	hash, err := hashPin(pin)
	if err != nil {
		return fmt.Errorf("hash PIN: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`UPDATE users SET pin_hash = $1, pin_failed_attempts = 0, pin_locked_until = NULL, updated_at = NOW() WHERE id = $2`,
		hash, userID)
	if err != nil {
		return fmt.Errorf("store PIN: %w", err)
	}
	log.Printf("[PIN] User %d set up a transaction PIN", userID)
	return nil
}

// ChangePin replaces the PIN after the current one passes the gate.
func (s *PinService) ChangePin(ctx context.Context, userID int, currentPin, newPin string) error {
	if !pinFormat.MatchString(newPin) {
		return &ValidationError{Msg: "PIN must be 4 to 6 digits"}
	}
	if err := s.Authorize(ctx, userID, currentPin); err != nil {
		return err
	}

	hash, err := hashPin(newPin)
	if err != nil {
		return fmt.Errorf("hash PIN: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE users SET pin_hash = $1, updated_at = NOW() WHERE id = $2`, hash, userID)
	if err != nil {
		return fmt.Errorf("store PIN: %w", err)
	}
	log.Printf("[PIN] User %d changed transaction PIN", userID)
	return nil
}

// Status reports whether a PIN exists and whether a lockout is active.
func (s *PinService) Status(ctx context.Context, userID int) (pinSet bool, lockedUntil *time.Time, err error) {
	var pinHash sql.NullString
	var locked sql.NullTime
	err = s.db.QueryRowContext(ctx,
		`SELECT pin_hash, pin_locked_until FROM users WHERE id = $1`, userID).Scan(&pinHash, &locked)
	if err != nil {
		return false, nil, fmt.Errorf("load PIN state: %w", err)
	}
	pinSet = pinHash.Valid && pinHash.String != ""
	if locked.Valid && locked.Time.After(s.now()) {
		until := locked.Time
		lockedUntil = &until
	}
	return pinSet, lockedUntil, nil
}

func hashPin(pin string) (string, error) {
	saltLen := viper.GetInt("argon2.salt_length")
	if saltLen <= 0 {
		saltLen = 16
	}
	salt := make([]byte, saltLen)
	if _, err := cryptorand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(pin), salt, argonTime(), argonMemory(), argonThreads(), argonKeyLength())
	return fmt.Sprintf("%s$%s", base64.StdEncoding.EncodeToString(salt), base64.StdEncoding.EncodeToString(hash)), nil
}

func verifyPinHash(pin, hashed string) bool {
	parts := strings.Split(hashed, "$")
	if len(parts) != 2 {
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}
	hash, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return false
	}

	computed := argon2.IDKey([]byte(pin), salt, argonTime(), argonMemory(), argonThreads(), argonKeyLength())
	return subtle.ConstantTimeCompare(hash, computed) == 1
}

func argonTime() uint32 {
	if v := viper.GetInt("argon2.time"); v > 0 {
		return uint32(v)
	}
	return 1
}

func argonMemory() uint32 {
	if v := viper.GetInt("argon2.memory"); v > 0 {
		return uint32(v)
	}
	return 64 * 1024
}

func argonThreads() uint8 {
	if v := viper.GetInt("argon2.threads"); v > 0 {
		return uint8(v)
	}
	return 4
}

func argonKeyLength() uint32 {
	if v := viper.GetInt("argon2.key_length"); v > 0 {
		return uint32(v)
	}
	return 32
}
