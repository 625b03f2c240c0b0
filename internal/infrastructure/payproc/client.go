// Package payproc talks to the external payment processor: idempotent
// intent creation, intent lookup for the polling fallback, batched
// refunds, and webhook signature verification. A mock mode backs dev
// and test environments without processor credentials.
package payproc

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Intent statuses as the processor reports them.
const (
	IntentRequiresPayment = "requires_payment"
	IntentSettled         = "settled"
	IntentFailed          = "failed"
	IntentRefunded        = "refunded"
)

type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"clientSecret"`
	Status       string `json:"status"`
	AmountCents  int    `json:"amountCents"`
	Currency     string `json:"currency"`
}

type Client struct {
	BaseURL       string
	APIKey        string
	WebhookSecret string
	Mock          bool
	HTTP          *http.Client
}

func (c *Client) http() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: 8 * time.Second}
}

// CreateIntent sends the idempotency key with the request; the
// processor guarantees that replays with the same key return the
// original intent rather than creating (and charging) a second one.
func (c *Client) CreateIntent(ctx context.Context, idemKey string, amountCents int, currency string) (*Intent, error) {
	if c.Mock {
		return mockIntent(idemKey, amountCents, currency, IntentRequiresPayment), nil
	}
	body, _ := json.Marshal(map[string]any{
		"amountCents": amountCents,
		"currency":    currency,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/intents", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Idempotency-Key", idemKey)
	return c.doIntent(req)
}

func (c *Client) GetIntent(ctx context.Context, id string) (*Intent, error) {
	if c.Mock {
		// Mock intents settle the moment anyone asks, which lets the
		// polling fallback complete in dev without a real processor.
		return &Intent{ID: id, Status: IntentSettled}, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/v1/intents/"+id, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	return c.doIntent(req)
}

// RefundBatch asks the processor to refund every listed intent in one
// call. Callers batch per sweep to avoid a refund storm downstream.
func (c *Client) RefundBatch(ctx context.Context, intentRefs []string) error {
	if len(intentRefs) == 0 {
		return nil
	}
	if c.Mock {
		return nil
	}
	body, _ := json.Marshal(map[string]any{"intents": intentRefs})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/refunds", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	resp, err := c.http().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("processor refund: status %d", resp.StatusCode)
	}
	return nil
}

// VerifySignature checks the webhook HMAC: hex(hmac-sha256(secret,
// timestamp + "." + body)). Constant-time compare; adversarial input
// must not leak match progress.
func (c *Client) VerifySignature(timestamp string, body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(c.WebhookSecret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Sign produces the signature a webhook sender would attach; used by
// tests and the mock processor.
func (c *Client) Sign(timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(c.WebhookSecret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *Client) doIntent(req *http.Request) (*Intent, error) {
	resp, err := c.http().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("processor: status %d: %s", resp.StatusCode, raw)
	}
	var out Intent
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// mockIntent is deterministic per idempotency key so replayed creates
// return the same intent, matching the real processor's contract.
func mockIntent(idemKey string, amountCents int, currency, status string) *Intent {
	sum := sha256.Sum256([]byte(idemKey))
	ref := hex.EncodeToString(sum[:8])
	return &Intent{
		ID:           "mock_pi_" + ref,
		ClientSecret: "mock_secret_" + ref,
		Status:       status,
		AmountCents:  amountCents,
		Currency:     currency,
	}
}
