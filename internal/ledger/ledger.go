package ledger

import (
	"context"
	"errors"
)

// ErrInsufficientFunds indicates a debit larger than the user's balance.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Ledger is the point balance store raids settle against. Debit must be
// atomic: it either removes the full amount or fails without changing the
// balance.
type Ledger interface {
	Balance(ctx context.Context, userID string) (int, error)
	Debit(ctx context.Context, userID string, amount int, reason string) error
	Credit(ctx context.Context, userID string, amount int, reason string) error
}
