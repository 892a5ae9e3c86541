package casino

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/innovatehubph/payverse-backend/internal/models"
	"github.com/innovatehubph/payverse-backend/internal/remote"
	"github.com/spf13/viper"
)

// TokenSource resolves the bearer secret for one agent credential pool.
// An empty token with a nil error means the pool is unusable right now.
type TokenSource interface {
	ResolveToken(ctx context.Context, pool string) (string, error)
}

// Client talks to the 747Live casino bridge. Every call acts on behalf of one
// agent credential pool; the secret is resolved per call so token rotation
// takes effect without a restart.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	tokens     TokenSource
}

type TransferResult struct {
	OK         bool
	Kind       remote.FailureKind
	RemoteTxID string
	Message    string
}

type HierarchyResult struct {
	OK        bool
	Kind      remote.FailureKind
	Message   string
	ClientID  int64
	Username  string
	Ancestors []string // root first
}

type StatisticsResult struct {
	OK             bool
	Kind           remote.FailureKind
	Message        string
	CurrentBalance float64
	SevenDayWager  float64
	SevenDayTopUps float64
}

type MessageResult struct {
	OK      bool
	Kind    remote.FailureKind
	Message string
}

// NewClient builds the bridge client. The shared remote timeout is the
// default; CASINO_TIMEOUT overrides it for this client alone.
func NewClient(tokens TokenSource, remoteTimeout time.Duration) *Client {
	viper.SetDefault("casino.base_url", "https://bridge.747lc.com")
	viper.SetDefault("casino.timeout", remoteTimeout)

	return &Client{
		baseURL:    strings.TrimRight(viper.GetString("casino.base_url"), "/"),
		httpClient: &http.Client{},
		timeout:    viper.GetDuration("casino.timeout"),
		tokens:     tokens,
	}
}

// Transfer moves chips for the named account. A positive amount credits
// chips, a negative amount debits them. The nonce is passed through untouched
// so the bridge can deduplicate retried calls.
func (c *Client) Transfer(ctx context.Context, pool, username string, clientID int64, amount int64, asAgent bool, nonce, comment string) TransferResult {
	env, kind, msg := c.post(ctx, pool, "/api/Default/Transfer", map[string]any{
		"username": username,
		"clientId": clientID,
		"amount":   amount,
		"asAgent":  asAgent,
		"nonce":    nonce,
		"comment":  comment,
		"currency": "PHP",
	})
	if kind != remote.KindNone {
		return TransferResult{Kind: kind, Message: msg}
	}
	return TransferResult{OK: true, RemoteTxID: env.TransactionID, Message: env.Message}
}

// Hierarchy returns the account's ancestor chain and numeric client id.
func (c *Client) Hierarchy(ctx context.Context, pool, username string, kind models.CasinoAccountKind) HierarchyResult {
	env, fk, msg := c.post(ctx, pool, "/api/Default/GetHierarchy", map[string]any{
		"username": username,
		"isAgent":  kind == models.AccountKindAgent,
	})
	if fk != remote.KindNone {
		return HierarchyResult{Kind: fk, Message: msg}
	}

	res := HierarchyResult{OK: true, Message: env.Message, Username: username}
	if env.Data != nil {
		res.ClientID = env.Data.ClientID
		if env.Data.Username != "" {
			res.Username = env.Data.Username
		}
		for _, node := range env.Data.Hierarchy {
			res.Ancestors = append(res.Ancestors, node.Username)
		}
	}
	return res
}

// Statistics returns the account's live balance and 7-day activity summary.
func (c *Client) Statistics(ctx context.Context, pool, username string) StatisticsResult {
	env, fk, msg := c.post(ctx, pool, "/api/Default/GetStatistics", map[string]any{
		"username": username,
	})
	if fk != remote.KindNone {
		return StatisticsResult{Kind: fk, Message: msg}
	}

	res := StatisticsResult{OK: true, Message: env.Message}
	if env.Data != nil {
		res.CurrentBalance = env.Data.Balance
		res.SevenDayWager = env.Data.WagerLast7Days
		res.SevenDayTopUps = env.Data.TopUpsLast7Days
	}
	return res
}

// SendMessage pushes a message into the casino account's own inbox. This is
// the out-of-band channel used to deliver verification codes.
func (c *Client) SendMessage(ctx context.Context, pool, username string, clientID int64, subject, body string) MessageResult {
	env, fk, msg := c.post(ctx, pool, "/api/Default/SendMessage", map[string]any{
		"username": username,
		"clientId": clientID,
		"subject":  subject,
		"message":  body,
	})
	if fk != remote.KindNone {
		return MessageResult{Kind: fk, Message: msg}
	}
	return MessageResult{OK: true, Message: env.Message}
}

// envelope is the single translation point for the bridge's response shape.
type envelope struct {
	Success       *bool  `json:"success"`
	Status        string `json:"status"`
	Code          string `json:"code"`
	Message       string `json:"message"`
	TransactionID string `json:"transactionId"`
	Data          *struct {
		ClientID        int64   `json:"clientId"`
		Username        string  `json:"username"`
		Balance         float64 `json:"balance"`
		WagerLast7Days  float64 `json:"wagerLast7Days"`
		TopUpsLast7Days float64 `json:"topUpsLast7Days"`
		Hierarchy       []struct {
			ClientID int64  `json:"clientId"`
			Username string `json:"username"`
		} `json:"hierarchy"`
	} `json:"data"`
}

func (c *Client) post(ctx context.Context, pool, path string, payload map[string]any) (*envelope, remote.FailureKind, string) {
	token, err := c.tokens.ResolveToken(ctx, pool)
	if err != nil {
		log.Printf("[CASINO] Token lookup failed for pool %s: %v", pool, err)
		return nil, remote.KindPoolUnavailable, err.Error()
	}
	if token == "" {
		log.Printf("[CASINO] No token configured for pool %s", pool)
		return nil, remote.KindPoolUnavailable, "no credential for pool " + pool
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, remote.KindBusinessRejected, err.Error()
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, remote.KindBusinessRejected, err.Error()
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		kind := remote.ClassifyTransportError(err)
		log.Printf("[CASINO] Request to %s via pool %s failed (%s): %v", path, pool, kind, err)
		return nil, kind, err.Error()
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		log.Printf("[CASINO] Failed to decode response from %s: %v", path, err)
		return nil, remote.KindBusinessRejected, "unreadable response"
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden ||
		strings.EqualFold(env.Code, "AUTH_REJECTED") || strings.EqualFold(env.Code, "TOKEN_EXPIRED") {
		log.Printf("[CASINO] Authentication rejected on %s for pool %s: %s", path, pool, env.Message)
		return nil, remote.KindAuthRejected, env.Message
	}

	declared := (env.Success != nil && *env.Success) || strings.EqualFold(env.Status, "success")
	if resp.StatusCode < 200 || resp.StatusCode > 299 || !declared {
		log.Printf("[CASINO] Remote rejection on %s (HTTP %d): %s", path, resp.StatusCode, env.Message)
		return nil, remote.KindBusinessRejected, env.Message
	}

	return &env, remote.KindNone, ""
}
