package domain

import "fmt"

// Sentinel errors for the domain layer. Wrap with %w at call sites so
// callers can branch with errors.Is.
var (
	ErrNotFound          = fmt.Errorf("not found")
	ErrDuplicate         = fmt.Errorf("duplicate")
	ErrInvalidInput      = fmt.Errorf("invalid input")
	ErrInvalidStatus     = fmt.Errorf("invalid status")
	ErrLedgerUnavailable = fmt.Errorf("ledger unavailable")
)
