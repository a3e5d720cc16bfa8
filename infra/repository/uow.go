package repository

import (
	"context"
	"fmt"
	"reflect"

	"github.com/amirasaad/securebank/pkg/repository"
	"gorm.io/gorm"
)

// UoW provides transaction boundary and repository access in one abstraction.
// Repositories handed out inside Do share the transaction's session.
type UoW struct {
	db           *gorm.DB
	tx           *gorm.DB
	repoRegistry map[reflect.Type]func(*gorm.DB) any
}

// NewUoW creates a new UoW for the given *gorm.DB.
func NewUoW(db *gorm.DB) *UoW {
	return &UoW{
		db: db,
		repoRegistry: map[reflect.Type]func(*gorm.DB) any{
			reflect.TypeOf((*repository.AccountRepository)(nil)).Elem():     func(db *gorm.DB) any { return NewAccountRepository(db) },
			reflect.TypeOf((*repository.TransactionRepository)(nil)).Elem(): func(db *gorm.DB) any { return NewTransactionRepository(db) },
			reflect.TypeOf((*repository.UserRepository)(nil)).Elem():        func(db *gorm.DB) any { return NewUserRepository(db) },
			reflect.TypeOf((*repository.AuditRepository)(nil)).Elem():       func(db *gorm.DB) any { return NewAuditRepository(db) },
		},
	}
}

// Do runs the given function in a transaction boundary, providing a UoW with repository access.
// Begin and commit failures are mapped to domain errors like any other query.
func (u *UoW) Do(ctx context.Context, fn func(uow repository.UnitOfWork) error) error {
	return MapGormErrorToDomain(u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txnUow := &UoW{db: u.db, tx: tx, repoRegistry: u.repoRegistry}
		return fn(txnUow)
	}))
}

// GetRepository provides generic, type-safe access to repositories using the transaction session.
// Outside Do the repository runs on the plain connection pool.
func (u *UoW) GetRepository(repoType reflect.Type) (any, error) {
	constructor, ok := u.repoRegistry[repoType]
	if !ok {
		return nil, fmt.Errorf("unsupported repository type: %v", repoType)
	}
	return constructor(u.session()), nil
}

func (u *UoW) AccountRepository() (repository.AccountRepository, error) {
	return getTyped[repository.AccountRepository](u)
}

func (u *UoW) TransactionRepository() (repository.TransactionRepository, error) {
	return getTyped[repository.TransactionRepository](u)
}

func (u *UoW) UserRepository() (repository.UserRepository, error) {
	return getTyped[repository.UserRepository](u)
}

func (u *UoW) AuditRepository() (repository.AuditRepository, error) {
	return getTyped[repository.AuditRepository](u)
}

func (u *UoW) session() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.db
}

func getTyped[T any](u *UoW) (T, error) {
	var zero T
	repoType := reflect.TypeOf((*T)(nil)).Elem()
	repoAny, err := u.GetRepository(repoType)
	if err != nil {
		return zero, err
	}
	repo, ok := repoAny.(T)
	if !ok {
		return zero, fmt.Errorf("invalid repository type: %v", repoType)
	}
	return repo, nil
}

var _ repository.UnitOfWork = (*UoW)(nil)
