package account

import (
	"errors"
	"time"

	"github.com/amirasaad/securebank/pkg/domain/money"
)

var (
	// ErrInvalidAmount is returned when a transfer amount is non-positive,
	// has more than two decimal places or exceeds the configured limit.
	ErrInvalidAmount = money.ErrInvalidAmount

	// ErrSelfTransfer is returned when sender and receiver are the same account.
	ErrSelfTransfer = errors.New("cannot transfer to same account")

	// ErrAccountNotFound is returned when an account cannot be found.
	ErrAccountNotFound = errors.New("account not found")

	// ErrInsufficientFunds is returned when the sender balance is below the amount
	// at the time of the atomic debit.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidDescription is returned when a description is too long after sanitizing.
	ErrInvalidDescription = errors.New("invalid description")

	// ErrInvalidIdempotencyKey is returned when the Idempotency-Key value is malformed.
	ErrInvalidIdempotencyKey = errors.New("invalid idempotency key")

	// ErrIdempotencyKeyReused is returned when a key already used by the sender
	// is presented with a different receiver or amount.
	ErrIdempotencyKeyReused = errors.New("idempotency key reused with different parameters")

	// ErrTransactionNotFound is returned when a transaction does not exist or
	// the caller is not a party to it.
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrInvalidFilter is returned when list parameters are out of range.
	ErrInvalidFilter = errors.New("invalid transaction filter")

	// ErrStatementTooLarge is returned when an export would exceed the row
	// cap; a narrower filter fits.
	ErrStatementTooLarge = errors.New("statement too large, narrow the filter")
)

// Account is the balance-holding side of a registered user.
//
// Invariants:
//   - Balance is never negative in committed state (enforced by storage).
//   - Balance only changes through a completed transfer.
//   - Accounts are never deleted.
type Account struct {
	ID            int64        `json:"id"`
	UserID        int64        `json:"user_id"`
	OwnerUsername string       `json:"owner_username"`
	Balance       money.Amount `json:"balance"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// New returns a zero-balance account for a freshly registered user.
func New(userID int64, ownerUsername string) *Account {
	now := time.Now().UTC()
	return &Account{
		UserID:        userID,
		OwnerUsername: ownerUsername,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// LockOrder returns the ids in the order row locks must be taken.
// Every transfer locks ascending so two transfers over the same pair in
// opposite directions cannot deadlock.
func LockOrder(a, b int64) []int64 {
	if a < b {
		return []int64{a, b}
	}
	return []int64{b, a}
}
