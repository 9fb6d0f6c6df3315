package usecase

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"clutch/internal/domain"
)

// Transfer memos recorded on the remote ledger.
const (
	fundingMemo = "child agent funding advance"
	recallMemo  = "child agent credit recall"
)

// FundingProtocol advances credits to child agents and recalls unspent
// balances back to the orchestrator's own address. Remote failures
// never escape as errors: every outcome collapses into a result struct
// the caller can branch on.
type FundingProtocol struct {
	client   domain.TransferClient
	identity domain.Identity
	store    domain.AgentStore
	logger   *slog.Logger
}

// NewFundingProtocol creates a FundingProtocol. The store maintains the
// funded-amount accumulator on successful advances and may be nil when
// no accounting is wanted.
func NewFundingProtocol(client domain.TransferClient, identity domain.Identity, store domain.AgentStore, logger *slog.Logger) *FundingProtocol {
	return &FundingProtocol{client: client, identity: identity, store: store, logger: logger}
}

// FundChild advances amountCents of spendable credits to the child at
// address. The amount is clamped to a non-negative whole number of
// cents; a clamped amount of zero succeeds without contacting the
// ledger. Remote errors and failure statuses both yield Success=false.
func (p *FundingProtocol) FundChild(ctx context.Context, address string, amountCents float64) domain.FundResult {
	cents := clampCents(amountCents)
	if cents == 0 {
		return domain.FundResult{Success: true}
	}

	receipt, err := p.client.TransferCredits(ctx, address, cents, fundingMemo)
	if err != nil {
		p.logger.Warn("funding transfer failed", "address", address, "amount_cents", cents, "error", err)
		return domain.FundResult{Success: false}
	}
	if transferFailed(receipt.Status) {
		p.logger.Warn("funding transfer rejected", "address", address, "amount_cents", cents, "status", receipt.Status)
		return domain.FundResult{Success: false}
	}

	if p.store != nil {
		// Accounting only; a failed accumulator write does not undo a
		// settled transfer.
		if err := p.store.AddFundedAmount(ctx, address, cents); err != nil {
			p.logger.Warn("funded-amount accounting failed", "address", address, "amount_cents", cents, "error", err)
		}
	}
	p.logger.Info("child funded", "address", address, "amount_cents", cents, "status", receipt.Status)
	return domain.FundResult{Success: true}
}

// RecallCredits moves the child's remaining balance back to the
// orchestrator's address. A zero balance is a trivial success with
// nothing moved. The balance read and the transfer are two independent
// remote calls; a balance change between them is not detected — the
// ledger, not this core, settles final balances.
func (p *FundingProtocol) RecallCredits(ctx context.Context, address string) domain.RecallResult {
	balance, err := p.client.CreditsBalance(ctx)
	if err != nil {
		p.logger.Warn("balance query failed", "address", address, "error", err)
		return domain.RecallResult{Success: false}
	}
	cents := clampCents(balance)
	if cents == 0 {
		return domain.RecallResult{Success: true, AmountCents: 0}
	}

	receipt, err := p.client.TransferCredits(ctx, p.identity.Address, cents, recallMemo)
	if err != nil {
		p.logger.Warn("recall transfer failed", "address", address, "amount_cents", cents, "error", err)
		return domain.RecallResult{Success: false}
	}
	if transferFailed(receipt.Status) {
		p.logger.Warn("recall transfer rejected", "address", address, "amount_cents", cents, "status", receipt.Status)
		return domain.RecallResult{Success: false}
	}

	moved := cents
	if receipt.AmountCents > 0 {
		moved = receipt.AmountCents
	}
	p.logger.Info("credits recalled", "address", address, "amount_cents", moved, "status", receipt.Status)
	return domain.RecallResult{Success: true, AmountCents: moved}
}

// GetBalance reports the remote spendable balance. The address
// parameter is accepted for interface symmetry but ignored: the remote
// balance query is account-scoped, not per-address (see
// domain.TransferClient.CreditsBalance). Do not assume per-child
// balance isolation.
func (p *FundingProtocol) GetBalance(ctx context.Context, address string) (float64, error) {
	_ = address
	return p.client.CreditsBalance(ctx)
}

// clampCents floors a requested amount to a non-negative whole number
// of cents. Negative, NaN, and infinite inputs clamp to zero.
func clampCents(f float64) int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0
	}
	return int64(math.Floor(f))
}

// transferFailed classifies a free-text ledger status. The remote
// vocabulary varies, so classification is by substring: anything
// containing "fail", "error", or "reject" after trimming and
// lowercasing is a failure, as is an empty status (no confirmable
// outcome).
func transferFailed(status string) bool {
	s := strings.ToLower(strings.TrimSpace(status))
	if s == "" {
		return true
	}
	for _, marker := range []string{"fail", "error", "reject"} {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}
