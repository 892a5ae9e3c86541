package paygram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/innovatehubph/payverse-backend/internal/remote"
	"github.com/spf13/viper"
)

// Client talks to the PayGram token escrow ledger. All operations are bounded
// by the configured timeout and report expected remote failures through the
// Result kind rather than a Go error.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// Result is the uniform outcome shape of every escrow ledger call.
type Result struct {
	OK      bool
	Kind    remote.FailureKind
	TxID    string
	Balance float64
	Message string
}

// NewClient builds the escrow client. The shared remote timeout is the
// default; PAYGRAM_TIMEOUT overrides it for this client alone.
func NewClient(remoteTimeout time.Duration) *Client {
	viper.SetDefault("paygram.base_url", "https://api.pay-gram.org")
	viper.SetDefault("paygram.timeout", remoteTimeout)

	return &Client{
		baseURL:    strings.TrimRight(viper.GetString("paygram.base_url"), "/"),
		httpClient: &http.Client{},
		timeout:    viper.GetDuration("paygram.timeout"),
	}
}

// Debit removes PHPT from the user's wallet into escrow.
func (c *Client) Debit(ctx context.Context, userHandle string, amount int64, reference string) Result {
	return c.post(ctx, "/api/v1/wallet/debit", map[string]any{
		"userHandle": userHandle,
		"amount":     amount,
		"reference":  reference,
	})
}

// Credit returns PHPT from escrow to the user's wallet.
func (c *Client) Credit(ctx context.Context, userHandle string, amount int64, reference string) Result {
	return c.post(ctx, "/api/v1/wallet/credit", map[string]any{
		"userHandle": userHandle,
		"amount":     amount,
		"reference":  reference,
	})
}

// BalanceOf queries the user's current PHPT balance.
func (c *Client) BalanceOf(ctx context.Context, userHandle string) Result {
	return c.get(ctx, fmt.Sprintf("/api/v1/wallet/%s/balance", userHandle))
}

// EscrowBalance queries the pooled escrow float itself, used as the
// withdrawal pre-flight check.
func (c *Client) EscrowBalance(ctx context.Context) Result {
	return c.get(ctx, "/api/v1/escrow/balance")
}

// envelope is the one translation point for PayGram's response field variants.
type envelope struct {
	Success       *bool           `json:"success"`
	Status        string          `json:"status"`
	Code          string          `json:"code"`
	Message       string          `json:"message"`
	TransactionID string          `json:"transactionId"`
	TxID          string          `json:"txId"`
	Balance       json.RawMessage `json:"balance"`
}

func (c *Client) post(ctx context.Context, path string, payload map[string]any) Result {
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{Kind: remote.KindBusinessRejected, Message: err.Error()}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return Result{Kind: remote.KindBusinessRejected, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+viper.GetString("paygram.api_token"))

	return c.do(req, path)
}

func (c *Client) get(ctx context.Context, path string) Result {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return Result{Kind: remote.KindBusinessRejected, Message: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+viper.GetString("paygram.api_token"))

	return c.do(req, path)
}

func (c *Client) do(req *http.Request, path string) Result {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		kind := remote.ClassifyTransportError(err)
		log.Printf("[PAYGRAM] Request to %s failed (%s): %v", path, kind, err)
		return Result{Kind: kind, Message: err.Error()}
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		log.Printf("[PAYGRAM] Failed to decode response from %s: %v", path, err)
		return Result{Kind: remote.KindBusinessRejected, Message: "unreadable response"}
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden ||
		strings.EqualFold(env.Code, "AUTH_REJECTED") || strings.EqualFold(env.Code, "INVALID_TOKEN") {
		log.Printf("[PAYGRAM] Authentication rejected on %s: %s", path, env.Message)
		return Result{Kind: remote.KindAuthRejected, Message: env.Message}
	}

	declared := env.Success != nil && *env.Success || strings.EqualFold(env.Status, "success")
	if resp.StatusCode < 200 || resp.StatusCode > 299 || !declared {
		log.Printf("[PAYGRAM] Remote rejection on %s (HTTP %d): %s", path, resp.StatusCode, env.Message)
		return Result{Kind: remote.KindBusinessRejected, Message: env.Message}
	}

	res := Result{OK: true, Message: env.Message}
	if env.TransactionID != "" {
		res.TxID = env.TransactionID
	} else {
		res.TxID = env.TxID
	}
	if len(env.Balance) > 0 {
		json.Unmarshal(env.Balance, &res.Balance)
	}
	return res
}
