package payproc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMockIntentDeterministic(t *testing.T) {
	c := &Client{Mock: true}
	ctx := context.Background()

	first, err := c.CreateIntent(ctx, "order-1", 900, "USD")
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	replay, err := c.CreateIntent(ctx, "order-1", 900, "USD")
	if err != nil {
		t.Fatalf("replayed CreateIntent: %v", err)
	}
	if first.ID != replay.ID || first.ClientSecret != replay.ClientSecret {
		t.Errorf("replay with same key produced a different intent: %+v vs %+v", first, replay)
	}

	other, err := c.CreateIntent(ctx, "order-2", 900, "USD")
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	if other.ID == first.ID {
		t.Error("distinct keys produced the same intent")
	}

	got, err := c.GetIntent(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetIntent: %v", err)
	}
	if got.Status != IntentSettled {
		t.Errorf("mock GetIntent status = %s, want %s", got.Status, IntentSettled)
	}
}

func TestCreateIntentSendsIdempotencyKey(t *testing.T) {
	var gotKey, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Idempotency-Key")
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(Intent{ID: "pi_1", Status: IntentRequiresPayment})
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, APIKey: "sk_test"}
	intent, err := c.CreateIntent(context.Background(), "order-1", 900, "USD")
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	if intent.ID != "pi_1" {
		t.Errorf("intent id = %s", intent.ID)
	}
	if gotKey != "order-1" {
		t.Errorf("Idempotency-Key = %q, want order-1", gotKey)
	}
	if gotAuth != "Bearer sk_test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}

func TestRefundBatch(t *testing.T) {
	var gotBody struct {
		Intents []string `json:"intents"`
	}
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode: %v", err)
		}
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, APIKey: "sk_test"}
	if err := c.RefundBatch(context.Background(), []string{"pi_1", "pi_2"}); err != nil {
		t.Fatalf("RefundBatch: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if len(gotBody.Intents) != 2 {
		t.Errorf("intents = %v, want two refs", gotBody.Intents)
	}

	// an empty batch never hits the wire
	if err := c.RefundBatch(context.Background(), nil); err != nil {
		t.Fatalf("empty RefundBatch: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls after empty batch = %d, want still 1", calls)
	}
}

func TestRefundBatchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL}
	if err := c.RefundBatch(context.Background(), []string{"pi_1"}); err == nil {
		t.Fatal("want error on 502")
	}
}

func TestSignatureRoundTrip(t *testing.T) {
	c := &Client{WebhookSecret: "whsec_test"}
	body := []byte(`{"id":"evt_1"}`)
	sig := c.Sign("1756700000", body)

	if !c.VerifySignature("1756700000", body, sig) {
		t.Error("valid signature rejected")
	}
	if c.VerifySignature("1756700001", body, sig) {
		t.Error("signature accepted with wrong timestamp")
	}
	if c.VerifySignature("1756700000", []byte(`{"id":"evt_2"}`), sig) {
		t.Error("signature accepted with altered body")
	}
	other := &Client{WebhookSecret: "whsec_other"}
	if other.VerifySignature("1756700000", body, sig) {
		t.Error("signature accepted under a different secret")
	}
}
