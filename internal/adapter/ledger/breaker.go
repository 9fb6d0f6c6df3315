package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"clutch/internal/domain"
	"clutch/internal/infra/config"
)

// Default circuit breaker settings.
const (
	defaultMaxFailures uint32        = 5
	defaultTimeout     time.Duration = 30 * time.Second
	defaultInterval    time.Duration = 60 * time.Second
)

// BreakerClient wraps a domain.TransferClient with a circuit breaker.
// When the ledger fails repeatedly the circuit opens and calls fail
// fast without reaching the network, preventing retry storms during a
// ledger outage.
type BreakerClient struct {
	inner   domain.TransferClient
	breaker *gobreaker.CircuitBreaker[any]
	logger  *slog.Logger
}

// NewBreakerClient wraps inner with a circuit breaker. Zero-valued cfg
// fields fall back to defaults.
func NewBreakerClient(inner domain.TransferClient, cfg config.BreakerConfig, logger *slog.Logger) *BreakerClient {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultMaxFailures
	}
	timeout := cfg.TimeoutDuration()
	if timeout == 0 {
		timeout = defaultTimeout
	}
	interval := cfg.IntervalDuration()
	if interval == 0 {
		interval = defaultInterval
	}

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "ledger",
		MaxRequests: 1, // allow 1 probe in half-open state
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	return &BreakerClient{inner: inner, breaker: cb, logger: logger}
}

// TransferCredits implements domain.TransferClient through the breaker.
func (b *BreakerClient) TransferCredits(ctx context.Context, destination string, amountCents int64, memo string) (domain.TransferReceipt, error) {
	v, err := b.breaker.Execute(func() (any, error) {
		return b.inner.TransferCredits(ctx, destination, amountCents, memo)
	})
	if err != nil {
		return domain.TransferReceipt{}, b.wrap(err)
	}
	return v.(domain.TransferReceipt), nil
}

// CreditsBalance implements domain.TransferClient through the breaker.
func (b *BreakerClient) CreditsBalance(ctx context.Context) (float64, error) {
	v, err := b.breaker.Execute(func() (any, error) {
		return b.inner.CreditsBalance(ctx)
	})
	if err != nil {
		return 0, b.wrap(err)
	}
	return v.(float64), nil
}

func (b *BreakerClient) wrap(err error) error {
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return fmt.Errorf("%w: circuit open: %v", domain.ErrLedgerUnavailable, err)
	}
	return err
}

// State returns the current breaker state for monitoring.
func (b *BreakerClient) State() gobreaker.State {
	return b.breaker.State()
}

// Compile-time interface check.
var _ domain.TransferClient = (*BreakerClient)(nil)
