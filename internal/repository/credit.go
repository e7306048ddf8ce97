package repository

import "context"

// CreditTransactionType classifies ledger entries.
type CreditTransactionType string

const (
	CreditTransactionConsume CreditTransactionType = "consume"
	CreditTransactionGrant   CreditTransactionType = "grant"
)

// CreditLedger tracks per-user credit balances.
type CreditLedger interface {
	Balance(ctx context.Context, userID string) (int, error)
	HasEnoughCredits(ctx context.Context, userID string, amount int) (bool, error)
	// ConsumeCredits debits amount and records a transaction. It returns
	// ErrInsufficientCredits from the entity package when the balance is too low.
	ConsumeCredits(ctx context.Context, userID string, amount int, description string) error
	Grant(ctx context.Context, userID string, amount int, description string) error
}

// CreditGrantResult reports a bulk grant.
type CreditGrantResult struct {
	Processed int
	Failed    int
}

// BulkCreditGranter grants the same amount to many users at once.
type BulkCreditGranter interface {
	GrantMany(ctx context.Context, userIDs []string, amount int, description string) (CreditGrantResult, error)
}

// UserRepository stores the minimal user rows the pipeline needs.
type UserRepository interface {
	EnsureGuest(ctx context.Context, guestID string) error
	Exists(ctx context.Context, id string) (bool, error)
	// ListRegisteredIDs pages through non-guest user ids ordered by id.
	ListRegisteredIDs(ctx context.Context, afterID string, limit int) ([]string, error)
}
