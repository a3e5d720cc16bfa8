package repository

import (
	"context"
	"errors"
	"time"

	"github.com/amirasaad/securebank/pkg/domain"
	"github.com/amirasaad/securebank/pkg/domain/account"
	"github.com/amirasaad/securebank/pkg/domain/money"
	"github.com/amirasaad/securebank/pkg/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type accountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) repository.AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Get(ctx context.Context, id int64) (*account.Account, error) {
	var a Account
	if err := r.db.WithContext(ctx).First(&a, id).Error; err != nil {
		return nil, accountError(err)
	}
	return toDomainAccount(&a), nil
}

func (r *accountRepository) GetByUserID(ctx context.Context, userID int64) (*account.Account, error) {
	var a Account
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&a).Error; err != nil {
		return nil, accountError(err)
	}
	return toDomainAccount(&a), nil
}

func (r *accountRepository) Create(ctx context.Context, a *account.Account) error {
	dbModel := Account{
		UserID:        a.UserID,
		OwnerUsername: a.OwnerUsername,
		Balance:       a.Balance.Cents(),
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
	if err := WrapError(func() error {
		return r.db.WithContext(ctx).Create(&dbModel).Error
	}); err != nil {
		return err
	}
	a.ID = dbModel.ID
	a.CreatedAt = dbModel.CreatedAt
	a.UpdatedAt = dbModel.UpdatedAt
	return nil
}

func (r *accountRepository) LockForUpdate(ctx context.Context, ids ...int64) ([]*account.Account, error) {
	var rows []Account
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, MapGormErrorToDomain(err)
	}
	out := make([]*account.Account, 0, len(rows))
	for i := range rows {
		out = append(out, toDomainAccount(&rows[i]))
	}
	return out, nil
}

func (r *accountRepository) Debit(ctx context.Context, id int64, amount money.Amount) error {
	result := r.db.WithContext(ctx).
		Model(&Account{}).
		Where("id = ? AND balance >= ?", id, amount.Cents()).
		Updates(map[string]any{
			"balance":    gorm.Expr("balance - ?", amount.Cents()),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return MapGormErrorToDomain(result.Error)
	}
	if result.RowsAffected == 0 {
		return account.ErrInsufficientFunds
	}
	return nil
}

func (r *accountRepository) Credit(ctx context.Context, id int64, amount money.Amount) error {
	result := r.db.WithContext(ctx).
		Model(&Account{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"balance":    gorm.Expr("balance + ?", amount.Cents()),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return MapGormErrorToDomain(result.Error)
	}
	if result.RowsAffected == 0 {
		return account.ErrAccountNotFound
	}
	return nil
}

func (r *accountRepository) SumBalances(ctx context.Context) (money.Amount, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&Account{}).
		Select("COALESCE(SUM(balance), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, MapGormErrorToDomain(err)
	}
	return money.FromCents(total), nil
}

func accountError(err error) error {
	mapped := MapGormErrorToDomain(err)
	if errors.Is(mapped, domain.ErrNotFound) {
		return account.ErrAccountNotFound
	}
	return mapped
}

func toDomainAccount(a *Account) *account.Account {
	return &account.Account{
		ID:            a.ID,
		UserID:        a.UserID,
		OwnerUsername: a.OwnerUsername,
		Balance:       money.FromCents(a.Balance),
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}
