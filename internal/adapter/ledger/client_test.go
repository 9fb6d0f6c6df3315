package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"clutch/internal/infra/config"
)

func testClient(baseURL string) *Client {
	return NewClient(config.LedgerConfig{
		BaseURL:     baseURL,
		APIToken:    "test-token",
		ConnTimeout: "2s",
		RespTimeout: "2s",
	})
}

func TestTransferCredits(t *testing.T) {
	var gotReq transferRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/transfers" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(transferResponse{Status: "completed", AmountCents: 1500})
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	receipt, err := c.TransferCredits(context.Background(), "addr-1", 1500, "child agent funding advance")
	if err != nil {
		t.Fatalf("TransferCredits: %v", err)
	}
	if receipt.Status != "completed" || receipt.AmountCents != 1500 {
		t.Errorf("receipt = %+v", receipt)
	}
	if gotReq.Destination != "addr-1" || gotReq.AmountCents != 1500 || gotReq.Memo == "" {
		t.Errorf("request body = %+v", gotReq)
	}
}

func TestCreditsBalance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/v1/balance" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode(balanceResponse{Balance: 250.7})
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	balance, err := c.CreditsBalance(context.Background())
	if err != nil {
		t.Fatalf("CreditsBalance: %v", err)
	}
	if balance != 250.7 {
		t.Errorf("balance = %v, want 250.7", balance)
	}
}

func TestTransferCreditsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "insufficient funds", http.StatusPaymentRequired)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	if _, err := c.TransferCredits(context.Background(), "addr-1", 100, "memo"); err == nil {
		t.Fatal("expected error on HTTP 402")
	}
}

func TestClientUnreachableLedger(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // immediately unreachable

	c := testClient(srv.URL)
	_, err := c.CreditsBalance(context.Background())
	if err == nil {
		t.Fatal("expected error for unreachable ledger")
	}
}

func TestClientThrottleHonorsContext(t *testing.T) {
	c := NewClient(config.LedgerConfig{
		BaseURL:        "http://127.0.0.1:0",
		ConnTimeout:    "1s",
		RespTimeout:    "1s",
		RequestsPerSec: 0.001, // practically blocks the second call
		Burst:          1,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// First call consumes the burst; it fails on connect, which is fine.
	_, _ = c.CreditsBalance(ctx)
	_, err := c.CreditsBalance(ctx)
	if err == nil {
		t.Fatal("expected throttle wait to fail on expired context")
	}
}
