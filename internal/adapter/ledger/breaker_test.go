package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/sony/gobreaker/v2"

	"clutch/internal/domain"
	"clutch/internal/infra/config"
)

// flakyClient fails until healed.
type flakyClient struct {
	failing bool
	calls   int
}

func (f *flakyClient) TransferCredits(context.Context, string, int64, string) (domain.TransferReceipt, error) {
	f.calls++
	if f.failing {
		return domain.TransferReceipt{}, fmt.Errorf("ledger down")
	}
	return domain.TransferReceipt{Status: "completed"}, nil
}

func (f *flakyClient) CreditsBalance(context.Context) (float64, error) {
	f.calls++
	if f.failing {
		return 0, fmt.Errorf("ledger down")
	}
	return 42, nil
}

func testBreaker(inner domain.TransferClient) *BreakerClient {
	return NewBreakerClient(inner, config.BreakerConfig{
		MaxFailures: 3,
		Timeout:     "1m",
	}, slog.Default())
}

func TestBreakerPassesThroughSuccess(t *testing.T) {
	inner := &flakyClient{}
	b := testBreaker(inner)

	receipt, err := b.TransferCredits(context.Background(), "addr-1", 100, "memo")
	if err != nil {
		t.Fatalf("TransferCredits: %v", err)
	}
	if receipt.Status != "completed" {
		t.Errorf("receipt = %+v", receipt)
	}

	balance, err := b.CreditsBalance(context.Background())
	if err != nil {
		t.Fatalf("CreditsBalance: %v", err)
	}
	if balance != 42 {
		t.Errorf("balance = %v, want 42", balance)
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	inner := &flakyClient{failing: true}
	b := testBreaker(inner)

	for i := 0; i < 3; i++ {
		if _, err := b.CreditsBalance(context.Background()); err == nil {
			t.Fatalf("call %d: expected failure", i)
		}
	}
	if b.State() != gobreaker.StateOpen {
		t.Fatalf("breaker state = %v, want open", b.State())
	}

	callsBefore := inner.calls
	_, err := b.TransferCredits(context.Background(), "addr-1", 100, "memo")
	if !errors.Is(err, domain.ErrLedgerUnavailable) {
		t.Errorf("expected ErrLedgerUnavailable while open, got %v", err)
	}
	if inner.calls != callsBefore {
		t.Error("open breaker must fail fast without calling the ledger")
	}
}
