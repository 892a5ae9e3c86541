package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/innovatehubph/payverse-backend/internal/models"
)

// ChallengeStore keeps at most one live verification challenge per
// (user, casino username) key. The redis implementation is used when redis is
// configured; a process-local map otherwise. The contract is identical.
type ChallengeStore interface {
	Put(ctx context.Context, key string, ch *models.VerificationChallenge, ttl time.Duration) error
	Get(ctx context.Context, key string) (*models.VerificationChallenge, error)
	Delete(ctx context.Context, key string) error
}

// challengeKey is case-insensitive on the username: issuance stores under the
// canonical form the bridge returns, while checks receive whatever form the
// caller typed, and the two may differ only in casing.
func challengeKey(userID int, casinoUsername string) string {
	return fmt.Sprintf("casino_verify:%d:%s", userID, strings.ToLower(casinoUsername))
}

type redisChallengeStore struct {
	client *redis.Client
}

func NewRedisChallengeStore(client *redis.Client) ChallengeStore {
	return &redisChallengeStore{client: client}
}

func (s *redisChallengeStore) Put(ctx context.Context, key string, ch *models.VerificationChallenge, ttl time.Duration) error {
	data, err := json.Marshal(ch)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, ttl).Err()
}

func (s *redisChallengeStore) Get(ctx context.Context, key string) (*models.VerificationChallenge, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ch models.VerificationChallenge
	if err := json.Unmarshal(data, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

func (s *redisChallengeStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

type memoryChallengeStore struct {
	mu         sync.Mutex
	challenges map[string]*models.VerificationChallenge
}

func NewMemoryChallengeStore() ChallengeStore {
	return &memoryChallengeStore{challenges: make(map[string]*models.VerificationChallenge)}
}

func (s *memoryChallengeStore) Put(_ context.Context, key string, ch *models.VerificationChallenge, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenges[key] = ch
	return nil
}

func (s *memoryChallengeStore) Get(_ context.Context, key string) (*models.VerificationChallenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.challenges[key]
	if !ok {
		return nil, nil
	}
	return ch, nil
}

func (s *memoryChallengeStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.challenges, key)
	return nil
}
