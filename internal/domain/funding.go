package domain

import "context"

// TransferReceipt is the remote ledger's answer to a transfer request.
// Status is free text; the funding layer classifies it. AmountCents is
// the remote-reported transferred amount, zero when not reported.
type TransferReceipt struct {
	Status      string
	AmountCents int64
}

// TransferClient is the remote credits/ledger service this core
// delegates to. Both calls may block on network I/O and may fail with
// an error; neither is retried at this layer.
type TransferClient interface {
	// TransferCredits moves amountCents to the destination address
	// with a human-readable memo.
	TransferCredits(ctx context.Context, destination string, amountCents int64, memo string) (TransferReceipt, error)

	// CreditsBalance reports the current spendable balance. The remote
	// API is account-scoped: it reports the balance of whichever
	// account the client is authenticated as, not of an arbitrary
	// address.
	CreditsBalance(ctx context.Context) (float64, error)
}

// FundResult is the outcome of advancing credits to a child.
type FundResult struct {
	Success bool
}

// RecallResult is the outcome of recalling a child's remaining balance.
// AmountCents is the number of cents actually moved, zero on failure or
// when there was nothing to recall.
type RecallResult struct {
	Success     bool
	AmountCents int64
}
