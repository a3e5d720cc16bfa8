package ledger

import (
	"time"

	"github.com/amirasaad/securebank/pkg/domain/account"
	"github.com/amirasaad/securebank/pkg/domain/money"
)

//revive:disable

// TransferRequest is the body of POST /transfer. The sender is always the
// caller, so it is not part of the body.
type TransferRequest struct {
	ReceiverID  int64  `json:"receiver_id" validate:"required,gt=0"`
	Amount      string `json:"amount" validate:"required,max=32"`
	Description string `json:"description,omitempty" validate:"max=1000"`
}

// ListQuery holds the query parameters of the transaction listings.
type ListQuery struct {
	Filter string `query:"filter" json:"filter" validate:"max=200"`
	Limit  int    `query:"limit" json:"limit" validate:"gte=0"`
	Offset int    `query:"offset" json:"offset" validate:"gte=0"`
}

// BalanceDTO is the response of GET /balance.
type BalanceDTO struct {
	AccountID int64        `json:"account_id"`
	Balance   money.Amount `json:"balance" swaggertype:"string" example:"60.00"`
	Currency  string       `json:"currency"`
}

// TransactionDTO is the API view of a transaction relative to the caller.
type TransactionDTO struct {
	ID            int64          `json:"id"`
	SenderID      int64          `json:"sender_id"`
	ReceiverID    int64          `json:"receiver_id"`
	Direction     string         `json:"direction" enums:"debit,credit"`
	Amount        money.Amount   `json:"amount" swaggertype:"string" example:"40.00"`
	Currency      string         `json:"currency"`
	Description   string         `json:"description"`
	Status        account.Status `json:"status" swaggertype:"string" enums:"pending,completed,failed"`
	FailureReason string         `json:"failure_reason,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
}

// TransactionListDTO is a page of transactions.
type TransactionListDTO struct {
	Transactions []*TransactionDTO `json:"transactions"`
	Limit        int               `json:"limit"`
	Offset       int               `json:"offset"`
}

// ToTransactionDTO maps tx as seen by accountID.
func ToTransactionDTO(tx *account.Transaction, accountID int64, currency string) *TransactionDTO {
	if tx == nil {
		return nil
	}
	direction, reason := "credit", ""
	if tx.SenderID == accountID {
		direction, reason = "debit", tx.FailureReason
	}
	return &TransactionDTO{
		ID:            tx.ID,
		SenderID:      tx.SenderID,
		ReceiverID:    tx.ReceiverID,
		Direction:     direction,
		Amount:        tx.Amount,
		Currency:      currency,
		Description:   tx.Description,
		Status:        tx.Status,
		FailureReason: reason,
		CreatedAt:     tx.CreatedAt,
		CompletedAt:   tx.CompletedAt,
	}
}
