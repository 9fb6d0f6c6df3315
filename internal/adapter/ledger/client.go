package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"clutch/internal/domain"
	"clutch/internal/infra/config"
	"clutch/internal/infra/tracer"
)

// Connection pool settings for ledger API usage: one host, moderate
// concurrency, long-lived connections.
const (
	maxIdleConns    = 10
	idleConnTimeout = 90 * time.Second
)

// Client talks JSON over HTTP to the remote credits/transfer service.
// It reports remote failures as Go errors; collapsing outcomes into
// success flags is the funding layer's job, not the client's.
type Client struct {
	baseURL  string
	apiToken string
	http     *http.Client
	limiter  *rate.Limiter // nil when throttling is disabled
}

// NewClient builds a ledger client from configuration.
func NewClient(cfg config.LedgerConfig) *Client {
	connTimeout := cfg.ConnTimeoutDuration()
	respTimeout := cfg.RespTimeoutDuration()
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   connTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: respTimeout,
		MaxIdleConns:          maxIdleConns,
		MaxIdleConnsPerHost:   maxIdleConns,
		IdleConnTimeout:       idleConnTimeout,
		ForceAttemptHTTP2:     true,
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), cfg.Burst)
	}

	return &Client{
		baseURL:  cfg.BaseURL,
		apiToken: cfg.APIToken,
		http: &http.Client{
			Transport: transport,
			Timeout:   connTimeout + respTimeout,
		},
		limiter: limiter,
	}
}

type transferRequest struct {
	Destination string `json:"destination"`
	AmountCents int64  `json:"amount_cents"`
	Memo        string `json:"memo,omitempty"`
}

type transferResponse struct {
	Status      string `json:"status"`
	AmountCents int64  `json:"amount_cents,omitempty"`
}

type balanceResponse struct {
	Balance float64 `json:"balance"`
}

// TransferCredits implements domain.TransferClient.
func (c *Client) TransferCredits(ctx context.Context, destination string, amountCents int64, memo string) (domain.TransferReceipt, error) {
	ctx, span := tracer.StartSpan(ctx, "ledger.TransferCredits")
	defer span.End()
	span.SetAttributes(
		attribute.String("ledger.destination", destination),
		attribute.Int64("ledger.amount_cents", amountCents),
	)

	var resp transferResponse
	err := c.call(ctx, http.MethodPost, "/v1/transfers", transferRequest{
		Destination: destination,
		AmountCents: amountCents,
		Memo:        memo,
	}, &resp)
	if err != nil {
		tracer.RecordError(span, err)
		return domain.TransferReceipt{}, err
	}
	return domain.TransferReceipt{Status: resp.Status, AmountCents: resp.AmountCents}, nil
}

// CreditsBalance implements domain.TransferClient. The endpoint is
// account-scoped: it reports the balance of the authenticated account.
func (c *Client) CreditsBalance(ctx context.Context) (float64, error) {
	ctx, span := tracer.StartSpan(ctx, "ledger.CreditsBalance")
	defer span.End()

	var resp balanceResponse
	if err := c.call(ctx, http.MethodGet, "/v1/balance", nil, &resp); err != nil {
		tracer.RecordError(span, err)
		return 0, err
	}
	return resp.Balance, nil
}

// call issues a single JSON request, honoring the rate limiter.
func (c *Client) call(ctx context.Context, method, path string, payload, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("ledger throttle: %w", err)
		}
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode ledger request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build ledger request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrLedgerUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("ledger %s %s: http %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(snippet))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode ledger response: %w", err)
		}
	}
	return nil
}

// Compile-time interface check.
var _ domain.TransferClient = (*Client)(nil)
