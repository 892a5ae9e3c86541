package services

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/innovatehubph/payverse-backend/internal/casino"
	"github.com/innovatehubph/payverse-backend/internal/config"
	"github.com/innovatehubph/payverse-backend/internal/models"
)

// HierarchyLookup is the one casino bridge call the resolver needs.
type HierarchyLookup interface {
	Hierarchy(ctx context.Context, pool, username string, kind models.CasinoAccountKind) casino.HierarchyResult
}

// ResolvedAccount describes which agent pool owns a casino account.
type ResolvedAccount struct {
	Pool      string
	ClientID  int64
	Username  string
	Kind      models.CasinoAccountKind
	Ancestors []string
}

// AgentResolverService discovers which configured agent credential pool owns
// a casino account. Read-only and side-effect-free; safe to call concurrently.
type AgentResolverService struct {
	bridge HierarchyLookup
	cfg    *config.ExchangeConfig
}

func NewAgentResolverService(bridge HierarchyLookup, cfg *config.ExchangeConfig) *AgentResolverService {
	return &AgentResolverService{bridge: bridge, cfg: cfg}
}

// Resolve tries account kind player then agent (or the preferred kind first),
// querying every configured pool in parallel for each kind. A pool claims the
// account when the third ancestor level matches the pool's own identity.
// Ties go to pool iteration order.
func (s *AgentResolverService) Resolve(ctx context.Context, username string, preferred models.CasinoAccountKind) (*ResolvedAccount, error) {
	kinds := []models.CasinoAccountKind{models.AccountKindPlayer, models.AccountKindAgent}
	if preferred == models.AccountKindAgent {
		kinds = []models.CasinoAccountKind{models.AccountKindAgent, models.AccountKindPlayer}
	}

	for _, kind := range kinds {
		if resolved := s.resolveKind(ctx, username, kind); resolved != nil {
			log.Printf("[RESOLVER] %s resolved as %s under pool %s", username, kind, resolved.Pool)
			return resolved, nil
		}
	}

	log.Printf("[RESOLVER] %s not found under any configured pool", username)
	return nil, ErrAccountNotFound
}

func (s *AgentResolverService) resolveKind(ctx context.Context, username string, kind models.CasinoAccountKind) *ResolvedAccount {
	pools := s.cfg.CasinoAgents
	results := make([]casino.HierarchyResult, len(pools))

	var wg sync.WaitGroup
	for i, pool := range pools {
		wg.Add(1)
		go func(i int, pool string) {
			defer wg.Done()
			results[i] = s.bridge.Hierarchy(ctx, pool, username, kind)
		}(i, pool)
	}
	wg.Wait()

	// Decide in pool order so the outcome is deterministic regardless of
	// which query returned first.
	for i, pool := range pools {
		res := results[i]
		if !res.OK {
			continue
		}
		if poolClaims(res.Ancestors, pool) {
			return &ResolvedAccount{
				Pool:      pool,
				ClientID:  res.ClientID,
				Username:  res.Username,
				Kind:      kind,
				Ancestors: res.Ancestors,
			}
		}
	}
	return nil
}

// poolClaims checks whether the third ancestor level of the returned
// hierarchy is the pool itself.
func poolClaims(ancestors []string, pool string) bool {
	if len(ancestors) < 3 {
		return false
	}
	return strings.EqualFold(ancestors[2], pool)
}
