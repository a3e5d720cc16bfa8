package fixtures

import (
	"context"
	"reflect"
	"time"

	"github.com/amirasaad/securebank/pkg/domain/account"
	"github.com/amirasaad/securebank/pkg/domain/audit"
	"github.com/amirasaad/securebank/pkg/domain/events"
	"github.com/amirasaad/securebank/pkg/domain/money"
	"github.com/amirasaad/securebank/pkg/domain/user"
	"github.com/amirasaad/securebank/pkg/eventbus"
	"github.com/amirasaad/securebank/pkg/repository"
	"github.com/stretchr/testify/mock"
)

type cleanupT interface {
	mock.TestingT
	Cleanup(func())
}

// MockUnitOfWork runs Do inline against itself, so repositories returned
// inside and outside a transaction are the same mocks.
type MockUnitOfWork struct {
	mock.Mock
	Accounts     *MockAccountRepository
	Transactions *MockTransactionRepository
	Users        *MockUserRepository
	Audits       *MockAuditRepository
}

// NewMockUnitOfWork returns a unit of work wired to fresh repository mocks.
// Expectations of every mock are asserted when the test ends.
func NewMockUnitOfWork(t cleanupT) *MockUnitOfWork {
	uow := &MockUnitOfWork{
		Accounts:     NewMockAccountRepository(t),
		Transactions: NewMockTransactionRepository(t),
		Users:        NewMockUserRepository(t),
		Audits:       NewMockAuditRepository(t),
	}
	uow.Test(t)
	t.Cleanup(func() { uow.AssertExpectations(t) })
	return uow
}

func (m *MockUnitOfWork) Do(ctx context.Context, fn func(uow repository.UnitOfWork) error) error {
	return fn(m)
}

func (m *MockUnitOfWork) GetRepository(repoType reflect.Type) (any, error) {
	switch repoType {
	case reflect.TypeOf((*repository.AccountRepository)(nil)).Elem():
		return m.Accounts, nil
	case reflect.TypeOf((*repository.TransactionRepository)(nil)).Elem():
		return m.Transactions, nil
	case reflect.TypeOf((*repository.UserRepository)(nil)).Elem():
		return m.Users, nil
	case reflect.TypeOf((*repository.AuditRepository)(nil)).Elem():
		return m.Audits, nil
	}
	args := m.Called(repoType)
	return args.Get(0), args.Error(1)
}

func (m *MockUnitOfWork) AccountRepository() (repository.AccountRepository, error) {
	return m.Accounts, nil
}

func (m *MockUnitOfWork) TransactionRepository() (repository.TransactionRepository, error) {
	return m.Transactions, nil
}

func (m *MockUnitOfWork) UserRepository() (repository.UserRepository, error) {
	return m.Users, nil
}

func (m *MockUnitOfWork) AuditRepository() (repository.AuditRepository, error) {
	return m.Audits, nil
}

type MockAccountRepository struct{ mock.Mock }

func NewMockAccountRepository(t cleanupT) *MockAccountRepository {
	m := &MockAccountRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockAccountRepository) Get(ctx context.Context, id int64) (*account.Account, error) {
	args := m.Called(ctx, id)
	a, _ := args.Get(0).(*account.Account)
	return a, args.Error(1)
}

func (m *MockAccountRepository) GetByUserID(ctx context.Context, userID int64) (*account.Account, error) {
	args := m.Called(ctx, userID)
	a, _ := args.Get(0).(*account.Account)
	return a, args.Error(1)
}

func (m *MockAccountRepository) Create(ctx context.Context, a *account.Account) error {
	return m.Called(ctx, a).Error(0)
}

func (m *MockAccountRepository) LockForUpdate(ctx context.Context, ids ...int64) ([]*account.Account, error) {
	args := m.Called(ctx, ids)
	accounts, _ := args.Get(0).([]*account.Account)
	return accounts, args.Error(1)
}

func (m *MockAccountRepository) Debit(ctx context.Context, id int64, amount money.Amount) error {
	return m.Called(ctx, id, amount).Error(0)
}

func (m *MockAccountRepository) Credit(ctx context.Context, id int64, amount money.Amount) error {
	return m.Called(ctx, id, amount).Error(0)
}

func (m *MockAccountRepository) SumBalances(ctx context.Context) (money.Amount, error) {
	args := m.Called(ctx)
	return args.Get(0).(money.Amount), args.Error(1)
}

type MockTransactionRepository struct{ mock.Mock }

func NewMockTransactionRepository(t cleanupT) *MockTransactionRepository {
	m := &MockTransactionRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx *account.Transaction) error {
	return m.Called(ctx, tx).Error(0)
}

func (m *MockTransactionRepository) Get(ctx context.Context, id int64) (*account.Transaction, error) {
	args := m.Called(ctx, id)
	tx, _ := args.Get(0).(*account.Transaction)
	return tx, args.Error(1)
}

func (m *MockTransactionRepository) GetByIdempotencyKey(
	ctx context.Context,
	senderID int64,
	key string,
) (*account.Transaction, error) {
	args := m.Called(ctx, senderID, key)
	tx, _ := args.Get(0).(*account.Transaction)
	return tx, args.Error(1)
}

func (m *MockTransactionRepository) List(
	ctx context.Context,
	accountID int64,
	filter account.TransactionFilter,
) ([]*account.Transaction, error) {
	args := m.Called(ctx, accountID, filter)
	txs, _ := args.Get(0).([]*account.Transaction)
	return txs, args.Error(1)
}

func (m *MockTransactionRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockUserRepository struct{ mock.Mock }

func NewMockUserRepository(t cleanupT) *MockUserRepository {
	m := &MockUserRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockUserRepository) Get(ctx context.Context, id int64) (*user.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*user.User)
	return u, args.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	args := m.Called(ctx, username)
	u, _ := args.Get(0).(*user.User)
	return u, args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, u *user.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *MockUserRepository) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, id int64, p user.Profile) error {
	return m.Called(ctx, id, p).Error(0)
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	return m.Called(ctx, id, hash).Error(0)
}

type MockAuditRepository struct{ mock.Mock }

func NewMockAuditRepository(t cleanupT) *MockAuditRepository {
	m := &MockAuditRepository{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockAuditRepository) Create(ctx context.Context, entry *audit.Entry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockAuditRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]*audit.Entry, error) {
	args := m.Called(ctx, userID, limit)
	entries, _ := args.Get(0).([]*audit.Entry)
	return entries, args.Error(1)
}

// MockBus records emitted events and lets tests inject Emit failures.
type MockBus struct {
	mock.Mock
	Handlers map[events.EventType][]eventbus.HandlerFunc
}

func NewMockBus(t cleanupT) *MockBus {
	m := &MockBus{Handlers: make(map[events.EventType][]eventbus.HandlerFunc)}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockBus) Emit(ctx context.Context, event events.Event) error {
	return m.Called(ctx, event).Error(0)
}

func (m *MockBus) Register(eventType events.EventType, handler eventbus.HandlerFunc) {
	m.Handlers[eventType] = append(m.Handlers[eventType], handler)
}

var (
	_ repository.UnitOfWork            = (*MockUnitOfWork)(nil)
	_ repository.AccountRepository     = (*MockAccountRepository)(nil)
	_ repository.TransactionRepository = (*MockTransactionRepository)(nil)
	_ repository.UserRepository        = (*MockUserRepository)(nil)
	_ repository.AuditRepository       = (*MockAuditRepository)(nil)
	_ eventbus.Bus                     = (*MockBus)(nil)
)
