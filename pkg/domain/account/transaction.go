package account

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/amirasaad/securebank/pkg/domain/money"
)

// MaxDescriptionLength bounds a transaction description, in runes.
const MaxDescriptionLength = 200

// Status is the lifecycle state of a transaction.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

var idempotencyKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Transaction is one attempted movement of funds. Once completed or failed
// it is never updated.
type Transaction struct {
	ID             int64        `json:"id"`
	SenderID       int64        `json:"sender_id"`
	ReceiverID     int64        `json:"receiver_id"`
	Amount         money.Amount `json:"amount"`
	Description    string       `json:"description"`
	Status         Status       `json:"status"`
	FailureReason  string       `json:"failure_reason,omitempty"`
	IdempotencyKey string       `json:"-"`
	CreatedAt      time.Time    `json:"created_at"`
	CompletedAt    *time.Time   `json:"completed_at,omitempty"`
}

// VisibleTo reports whether accountID may read t. The sender sees every
// attempt; the receiver only sees transfers that did not fail, since a failed
// row reveals the sender's funds.
func (t *Transaction) VisibleTo(accountID int64) bool {
	if t.SenderID == accountID {
		return true
	}
	return t.ReceiverID == accountID && t.Status != StatusFailed
}

// TransferCommand is the raw, unvalidated transfer input.
type TransferCommand struct {
	SenderID       int64
	ReceiverID     int64
	Amount         string
	Description    string
	IdempotencyKey string
}

// Transfer is a validated TransferCommand.
type Transfer struct {
	SenderID       int64
	ReceiverID     int64
	Amount         money.Amount
	Description    string
	IdempotencyKey string
}

// NewTransfer validates cmd against the per-transfer limit.
// Checks run in a fixed order: self transfer, amount, description, key.
func NewTransfer(cmd TransferCommand, maxAmount money.Amount) (Transfer, error) {
	if cmd.SenderID == cmd.ReceiverID {
		return Transfer{}, ErrSelfTransfer
	}
	amount, err := money.Parse(cmd.Amount)
	if err != nil {
		return Transfer{}, err
	}
	if maxAmount > 0 && amount > maxAmount {
		return Transfer{}, fmt.Errorf("%w: exceeds limit of %s", ErrInvalidAmount, maxAmount)
	}
	description, err := SanitizeDescription(cmd.Description)
	if err != nil {
		return Transfer{}, err
	}
	key := strings.TrimSpace(cmd.IdempotencyKey)
	if key != "" && !idempotencyKeyPattern.MatchString(key) {
		return Transfer{}, ErrInvalidIdempotencyKey
	}
	return Transfer{
		SenderID:       cmd.SenderID,
		ReceiverID:     cmd.ReceiverID,
		Amount:         amount,
		Description:    description,
		IdempotencyKey: key,
	}, nil
}

// Matches reports whether tx was produced by an identical request.
func (t Transfer) Matches(tx *Transaction) bool {
	return tx.SenderID == t.SenderID &&
		tx.ReceiverID == t.ReceiverID &&
		tx.Amount == t.Amount
}

// Completed builds the completed transaction record for t.
func (t Transfer) Completed(now time.Time) *Transaction {
	return &Transaction{
		SenderID:       t.SenderID,
		ReceiverID:     t.ReceiverID,
		Amount:         t.Amount,
		Description:    t.Description,
		Status:         StatusCompleted,
		IdempotencyKey: t.IdempotencyKey,
		CreatedAt:      now,
		CompletedAt:    &now,
	}
}

// Failed builds the failed transaction record for t. The idempotency key is
// not stored so a later retry can still succeed.
func (t Transfer) Failed(now time.Time, reason string) *Transaction {
	return &Transaction{
		SenderID:      t.SenderID,
		ReceiverID:    t.ReceiverID,
		Amount:        t.Amount,
		Description:   t.Description,
		Status:        StatusFailed,
		FailureReason: reason,
		CreatedAt:     now,
		CompletedAt:   &now,
	}
}

// SanitizeDescription strips control characters, collapses whitespace and
// enforces MaxDescriptionLength.
func SanitizeDescription(s string) (string, error) {
	if !utf8.ValidString(s) {
		return "", fmt.Errorf("%w: not valid UTF-8", ErrInvalidDescription)
	}
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		if unicode.IsControl(r) || r == unicode.ReplacementChar {
			return -1
		}
		return r
	}, s)
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if utf8.RuneCountInString(cleaned) > MaxDescriptionLength {
		return "", fmt.Errorf("%w: longer than %d characters", ErrInvalidDescription, MaxDescriptionLength)
	}
	return cleaned, nil
}

// TransactionFilter narrows a history listing.
type TransactionFilter struct {
	Query  string
	Limit  int
	Offset int
}

// Normalize trims the query and clamps pagination to [1, maxLimit].
func (f TransactionFilter) Normalize(defaultLimit, maxLimit int) (TransactionFilter, error) {
	query, err := SanitizeDescription(f.Query)
	if err != nil {
		return TransactionFilter{}, fmt.Errorf("%w: query too long", ErrInvalidFilter)
	}
	if f.Offset < 0 {
		return TransactionFilter{}, fmt.Errorf("%w: negative offset", ErrInvalidFilter)
	}
	limit := f.Limit
	switch {
	case limit <= 0:
		limit = defaultLimit
	case limit > maxLimit:
		limit = maxLimit
	}
	return TransactionFilter{Query: query, Limit: limit, Offset: f.Offset}, nil
}
