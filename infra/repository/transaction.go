package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/amirasaad/securebank/pkg/domain"
	"github.com/amirasaad/securebank/pkg/domain/account"
	"github.com/amirasaad/securebank/pkg/domain/money"
	"github.com/amirasaad/securebank/pkg/repository"
	"gorm.io/gorm"
)

// likeEscaper neutralises LIKE wildcards in user-supplied filter text.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type transactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) repository.TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) Create(ctx context.Context, tx *account.Transaction) error {
	dbModel := Transaction{
		SenderID:       tx.SenderID,
		ReceiverID:     tx.ReceiverID,
		Amount:         tx.Amount.Cents(),
		Description:    tx.Description,
		Status:         string(tx.Status),
		FailureReason:  nullableString(tx.FailureReason),
		IdempotencyKey: nullableString(tx.IdempotencyKey),
		CreatedAt:      tx.CreatedAt,
		CompletedAt:    tx.CompletedAt,
	}
	if err := WrapError(func() error {
		return r.db.WithContext(ctx).Create(&dbModel).Error
	}); err != nil {
		return err
	}
	tx.ID = dbModel.ID
	tx.CreatedAt = dbModel.CreatedAt
	return nil
}

func (r *transactionRepository) Get(ctx context.Context, id int64) (*account.Transaction, error) {
	var t Transaction
	if err := r.db.WithContext(ctx).First(&t, id).Error; err != nil {
		return nil, transactionError(err)
	}
	return toDomainTransaction(&t), nil
}

func (r *transactionRepository) GetByIdempotencyKey(
	ctx context.Context,
	senderID int64,
	key string,
) (*account.Transaction, error) {
	var t Transaction
	err := r.db.WithContext(ctx).
		Where("sender_id = ? AND idempotency_key = ?", senderID, key).
		First(&t).Error
	if err != nil {
		return nil, transactionError(err)
	}
	return toDomainTransaction(&t), nil
}

// List never interpolates filter text into SQL; it is always a bound
// parameter with LIKE wildcards escaped.
func (r *transactionRepository) List(
	ctx context.Context,
	accountID int64,
	filter account.TransactionFilter,
) ([]*account.Transaction, error) {
	q := r.db.WithContext(ctx).
		Model(&Transaction{}).
		Where("(sender_id = ? OR (receiver_id = ? AND status <> ?))", accountID, accountID, account.StatusFailed)
	if filter.Query != "" {
		pattern := "%" + likeEscaper.Replace(filter.Query) + "%"
		q = q.Where(`LOWER(description) LIKE LOWER(?) ESCAPE '\'`, pattern)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var rows []Transaction
	if err := q.Order("created_at DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	out := make([]*account.Transaction, 0, len(rows))
	for i := range rows {
		out = append(out, toDomainTransaction(&rows[i]))
	}
	return out, nil
}

func (r *transactionRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&Transaction{}).Count(&n).Error; err != nil {
		return 0, MapGormErrorToDomain(err)
	}
	return n, nil
}

func transactionError(err error) error {
	mapped := MapGormErrorToDomain(err)
	if errors.Is(mapped, domain.ErrNotFound) {
		return account.ErrTransactionNotFound
	}
	return mapped
}

func toDomainTransaction(t *Transaction) *account.Transaction {
	tx := &account.Transaction{
		ID:          t.ID,
		SenderID:    t.SenderID,
		ReceiverID:  t.ReceiverID,
		Amount:      money.FromCents(t.Amount),
		Description: t.Description,
		Status:      account.Status(t.Status),
		CreatedAt:   t.CreatedAt,
		CompletedAt: t.CompletedAt,
	}
	if t.FailureReason != nil {
		tx.FailureReason = *t.FailureReason
	}
	if t.IdempotencyKey != nil {
		tx.IdempotencyKey = *t.IdempotencyKey
	}
	return tx
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
