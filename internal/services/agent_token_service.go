package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/innovatehubph/payverse-backend/internal/config"
	"github.com/spf13/viper"
)

// AgentTokenService resolves the bearer secret for each casino agent
// credential pool. Lookups go database first, then the static CASINO_TOKEN_*
// configuration, with a short read-through cache in between so hot saga paths
// do not hammer the configuration store.
type AgentTokenService struct {
	db       *sql.DB
	redis    *redis.Client
	cfg      *config.ExchangeConfig
	cacheTTL time.Duration
}

func NewAgentTokenService(db *sql.DB, redisClient *redis.Client, cfg *config.ExchangeConfig) *AgentTokenService {
	return &AgentTokenService{
		db:       db,
		redis:    redisClient,
		cfg:      cfg,
		cacheTTL: cfg.TokenCacheTTL,
	}
}

// ResolveToken returns the secret for a pool, or empty with a nil error when
// no secret is configured anywhere. Absence is not an error; it marks the
// pool unusable and callers surface it as PoolUnavailable.
func (s *AgentTokenService) ResolveToken(ctx context.Context, pool string) (string, error) {
	pool = strings.ToLower(strings.TrimSpace(pool))
	if pool == "" {
		return "", nil
	}

	if s.redis != nil {
		cached, err := s.redis.Get(ctx, tokenCacheKey(pool)).Result()
		if err == nil {
			return cached, nil
		}
		if err != redis.Nil {
			log.Printf("[TOKEN] Cache read failed for pool %s: %v", pool, err)
		}
	}

	token, err := s.lookupToken(ctx, pool)
	if err != nil {
		return "", err
	}

	if token != "" && s.redis != nil {
		if err := s.redis.Set(ctx, tokenCacheKey(pool), token, s.cacheTTL).Err(); err != nil {
			log.Printf("[TOKEN] Cache write failed for pool %s: %v", pool, err)
		}
	}
	return token, nil
}

// InvalidateCache drops every cached pool token. Must be called after any
// out-of-band token update so the new secret is picked up within one lookup.
func (s *AgentTokenService) InvalidateCache(ctx context.Context) {
	if s.redis == nil {
		return
	}
	for _, pool := range s.cfg.CasinoAgents {
		if err := s.redis.Del(ctx, tokenCacheKey(strings.ToLower(pool))).Err(); err != nil {
			log.Printf("[TOKEN] Cache invalidation failed for pool %s: %v", pool, err)
		}
	}
}

func (s *AgentTokenService) lookupToken(ctx context.Context, pool string) (string, error) {
	var token string
	err := s.db.QueryRowContext(ctx,
		`SELECT token FROM agent_tokens WHERE LOWER(agent_username) = $1`, pool).Scan(&token)
	if err == nil && token != "" {
		return token, nil
	}
	if err != nil && err != sql.ErrNoRows {
		return "", fmt.Errorf("agent token lookup: %w", err)
	}

	// Static configuration fallback, e.g. CASINO_TOKEN_MARCTHEPOGI.
	return viper.GetString("casino.token_" + pool), nil
}

func tokenCacheKey(pool string) string {
	return "agent_token:" + pool
}
