package repository

import (
	"context"
	"time"

	"github.com/amirasaad/securebank/pkg/domain/account"
	"github.com/amirasaad/securebank/pkg/domain/audit"
	"github.com/amirasaad/securebank/pkg/domain/money"
	"github.com/amirasaad/securebank/pkg/domain/user"
)

// AccountRepository defines the interface for account data access operations.
// Balances are only ever changed through Debit and Credit, which must run
// inside a UnitOfWork after LockForUpdate.
type AccountRepository interface {
	Get(ctx context.Context, id int64) (*account.Account, error)
	GetByUserID(ctx context.Context, userID int64) (*account.Account, error)
	Create(ctx context.Context, a *account.Account) error
	// LockForUpdate loads and row-locks the given accounts in ascending id
	// order. Missing ids are simply absent from the result.
	LockForUpdate(ctx context.Context, ids ...int64) ([]*account.Account, error)
	// Debit subtracts amount only if the balance covers it; otherwise it
	// returns account.ErrInsufficientFunds and changes nothing.
	Debit(ctx context.Context, id int64, amount money.Amount) error
	Credit(ctx context.Context, id int64, amount money.Amount) error
	// SumBalances returns the total of all balances.
	SumBalances(ctx context.Context) (money.Amount, error)
}

// TransactionRepository defines the interface for transaction data access operations.
type TransactionRepository interface {
	Create(ctx context.Context, tx *account.Transaction) error
	Get(ctx context.Context, id int64) (*account.Transaction, error)
	GetByIdempotencyKey(ctx context.Context, senderID int64, key string) (*account.Transaction, error)
	// List returns transactions where accountID is sender or receiver, newest first.
	List(ctx context.Context, accountID int64, filter account.TransactionFilter) ([]*account.Transaction, error)
	Count(ctx context.Context) (int64, error)
}

// UserRepository defines the interface for user data access operations.
type UserRepository interface {
	Get(ctx context.Context, id int64) (*user.User, error)
	GetByUsername(ctx context.Context, username string) (*user.User, error)
	Create(ctx context.Context, u *user.User) error
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
	UpdateProfile(ctx context.Context, id int64, p user.Profile) error
	UpdatePassword(ctx context.Context, id int64, hash string) error
}

// AuditRepository stores the append-only audit trail.
type AuditRepository interface {
	Create(ctx context.Context, entry *audit.Entry) error
	ListByUser(ctx context.Context, userID int64, limit int) ([]*audit.Entry, error)
}
