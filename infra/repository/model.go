package repository

import (
	"time"
)

// User represents a user record in the database.
type User struct {
	ID        int64   `gorm:"primaryKey;autoIncrement"`
	Username  string  `gorm:"uniqueIndex;not null;size:32"`
	Email     *string `gorm:"size:255"`
	FullName  *string `gorm:"size:128"`
	Phone     *string `gorm:"size:32"`
	Address   *string `gorm:"size:255"`
	Password  string  `gorm:"not null;size:72"`
	Role      string  `gorm:"not null;size:16;default:user"`
	CreatedAt time.Time
	LastLogin *time.Time
}

// Account represents an account record in the database. The balance is
// held in cents and a CHECK constraint keeps it non-negative.
type Account struct {
	ID            int64  `gorm:"primaryKey;autoIncrement"`
	UserID        int64  `gorm:"uniqueIndex;not null"`
	OwnerUsername string `gorm:"uniqueIndex;not null;size:32"`
	Balance       int64  `gorm:"not null;default:0;check:chk_accounts_balance_non_negative,balance >= 0"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Transaction represents a persisted transfer attempt.
type Transaction struct {
	ID             int64      `gorm:"primaryKey;autoIncrement"`
	SenderID       int64      `gorm:"not null;index:idx_transactions_sender_created,priority:1;uniqueIndex:idx_transactions_sender_idempotency,priority:1"`
	ReceiverID     int64      `gorm:"not null;index:idx_transactions_receiver_created,priority:1;check:chk_transactions_distinct_parties,sender_id <> receiver_id"`
	Amount         int64      `gorm:"not null;check:chk_transactions_amount_positive,amount > 0"`
	Description    string     `gorm:"not null;size:200;default:''"`
	Status         string     `gorm:"not null;size:16;check:chk_transactions_status,status IN ('pending','completed','failed')"`
	FailureReason  *string    `gorm:"size:255"`
	IdempotencyKey *string    `gorm:"size:64;uniqueIndex:idx_transactions_sender_idempotency,priority:2"`
	CreatedAt      time.Time  `gorm:"not null;index:idx_transactions_sender_created,priority:2;index:idx_transactions_receiver_created,priority:2"`
	CompletedAt    *time.Time
}

// AuditLog is one row of the append-only audit trail. Details is a JSON document.
type AuditLog struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	UserID    *int64 `gorm:"index"`
	Action    string `gorm:"not null;size:64;index"`
	Details   string `gorm:"type:text"`
	IPAddress string `gorm:"size:64"`
	UserAgent string `gorm:"size:255"`
	CreatedAt time.Time
}

// Models lists every persisted model, in dependency order.
func Models() []any {
	return []any{&User{}, &Account{}, &Transaction{}, &AuditLog{}}
}
