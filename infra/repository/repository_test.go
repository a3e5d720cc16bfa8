package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/amirasaad/securebank/pkg/domain/account"
	"github.com/amirasaad/securebank/pkg/domain/money"
	"github.com/amirasaad/securebank/pkg/domain/user"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDb, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDb.Close() })
	dialector := postgres.New(postgres.Config{
		Conn:       mockDb,
		DriverName: "postgres",
	})
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestAccountRepository_LockForUpdate(t *testing.T) {
	require := require.New(t)
	db, mock := newMockDB(t)
	repo := accountRepository{db: db}

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "user_id", "owner_username", "balance", "created_at", "updated_at"}).
		AddRow(1, 10, "alice", 10000, now, now).
		AddRow(2, 20, "bob", 0, now, now)
	mock.ExpectQuery(`SELECT \* FROM "accounts" WHERE id IN \(\$1,\$2\) ORDER BY id ASC FOR UPDATE`).
		WithArgs(1, 2).
		WillReturnRows(rows)

	accounts, err := repo.LockForUpdate(context.Background(), 1, 2)
	require.NoError(err)
	require.Len(accounts, 2)
	require.Equal(int64(1), accounts[0].ID)
	require.Equal(money.FromCents(10000), accounts[0].Balance)
	require.Equal("bob", accounts[1].OwnerUsername)
	require.NoError(mock.ExpectationsWereMet())
}

func TestAccountRepository_Debit(t *testing.T) {
	require := require.New(t)
	db, mock := newMockDB(t)
	repo := accountRepository{db: db}
	debit := `UPDATE "accounts" SET "balance"=balance - \$1,"updated_at"=\$2 WHERE id = \$3 AND balance >= \$4`

	mock.ExpectBegin()
	mock.ExpectExec(debit).
		WithArgs(int64(4000), sqlmock.AnyArg(), int64(1), int64(4000)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	require.NoError(repo.Debit(context.Background(), 1, money.FromCents(4000)))

	mock.ExpectBegin()
	mock.ExpectExec(debit).
		WithArgs(int64(5000), sqlmock.AnyArg(), int64(1), int64(5000)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	err := repo.Debit(context.Background(), 1, money.FromCents(5000))
	require.ErrorIs(err, account.ErrInsufficientFunds)
	require.NoError(mock.ExpectationsWereMet())
}

func TestAccountRepository_Credit_UnknownAccount(t *testing.T) {
	db, mock := newMockDB(t)
	repo := accountRepository{db: db}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "accounts" SET "balance"=balance \+ \$1,"updated_at"=\$2 WHERE id = \$3`).
		WithArgs(int64(100), sqlmock.AnyArg(), int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.Credit(context.Background(), 99, money.FromCents(100))
	assert.ErrorIs(t, err, account.ErrAccountNotFound)
}

func TestAccountRepository_Get_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := accountRepository{db: db}

	mock.ExpectQuery(`SELECT \* FROM "accounts" WHERE "accounts"\."id" = \$1 ORDER BY "accounts"\."id" LIMIT \$2`).
		WithArgs(42, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	a, err := repo.Get(context.Background(), 42)
	assert.Nil(t, a)
	assert.ErrorIs(t, err, account.ErrAccountNotFound)
}

func TestAccountRepository_Get_Unavailable(t *testing.T) {
	db, mock := newMockDB(t)
	repo := accountRepository{db: db}

	mock.ExpectQuery(`SELECT \* FROM "accounts"`).
		WillReturnError(driver.ErrBadConn)

	_, err := repo.Get(context.Background(), 1)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, account.ErrAccountNotFound)
}

func TestTransactionRepository_List_BindsFilter(t *testing.T) {
	require := require.New(t)
	db, mock := newMockDB(t)
	repo := transactionRepository{db: db}

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "sender_id", "receiver_id", "amount", "description", "status", "created_at"}).
		AddRow(3, 7, 8, 5000, "50% deposit", "completed", now)
	mock.ExpectQuery(`SELECT \* FROM "transactions" WHERE .*sender_id = \$1 OR \(receiver_id = \$2 AND status <> \$3\).* AND LOWER\(description\) LIKE LOWER\(\$4\) ESCAPE '\\' ORDER BY created_at DESC,id DESC LIMIT \$5`).
		WithArgs(7, 7, "failed", `%50\%' OR 1=1--%`, 20).
		WillReturnRows(rows)

	txs, err := repo.List(context.Background(), 7, account.TransactionFilter{Query: "50%' OR 1=1--", Limit: 20})
	require.NoError(err)
	require.Len(txs, 1)
	require.Equal(account.StatusCompleted, txs[0].Status)
	require.Equal(money.FromCents(5000), txs[0].Amount)
	require.NoError(mock.ExpectationsWereMet())
}

func TestTransactionRepository_List_NoFilter(t *testing.T) {
	require := require.New(t)
	db, mock := newMockDB(t)
	repo := transactionRepository{db: db}

	mock.ExpectQuery(`SELECT \* FROM "transactions" WHERE \(sender_id = \$1 OR \(receiver_id = \$2 AND status <> \$3\)\) ORDER BY created_at DESC,id DESC LIMIT \$4 OFFSET \$5`).
		WithArgs(7, 7, "failed", 10, 30).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	txs, err := repo.List(context.Background(), 7, account.TransactionFilter{Limit: 10, Offset: 30})
	require.NoError(err)
	require.Empty(txs)
	require.NoError(mock.ExpectationsWereMet())
}

func TestTransactionRepository_Create(t *testing.T) {
	require := require.New(t)
	db, mock := newMockDB(t)
	repo := transactionRepository{db: db}

	now := time.Now().UTC()
	tx := account.Transfer{SenderID: 1, ReceiverID: 2, Amount: 4000, Description: "rent", IdempotencyKey: "k-1"}.Completed(now)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "transactions" (.+) VALUES (.+) RETURNING "id"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
	mock.ExpectCommit()

	require.NoError(repo.Create(context.Background(), tx))
	require.Equal(int64(11), tx.ID)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "transactions" (.+) VALUES (.+) RETURNING "id"`).
		WillReturnError(errors.New("create error"))
	mock.ExpectRollback()

	require.Error(repo.Create(context.Background(), tx))
}

func TestTransactionRepository_GetByIdempotencyKey_Missing(t *testing.T) {
	db, mock := newMockDB(t)
	repo := transactionRepository{db: db}

	mock.ExpectQuery(`SELECT \* FROM "transactions" WHERE sender_id = \$1 AND idempotency_key = \$2`).
		WithArgs(1, "k-1", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByIdempotencyKey(context.Background(), 1, "k-1")
	assert.ErrorIs(t, err, account.ErrTransactionNotFound)
}

func TestUserRepository_Create_Duplicate(t *testing.T) {
	require := require.New(t)
	db, mock := newMockDB(t)
	repo := userRepository{db: db}

	u := &user.User{Username: "alice", Password: "hash", Role: "user", CreatedAt: time.Now().UTC()}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "users" (.+) VALUES (.+)`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
	mock.ExpectCommit()
	require.NoError(repo.Create(context.Background(), u))
	require.Equal(int64(5), u.ID)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "users" (.+) VALUES (.+)`).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()
	err := repo.Create(context.Background(), u)
	require.ErrorIs(err, user.ErrUsernameTaken)
}

func TestUserRepository_GetByUsername_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := userRepository{db: db}

	mock.ExpectQuery(`SELECT \* FROM "users" WHERE username = \$1`).
		WithArgs("mallory", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByUsername(context.Background(), "mallory")
	assert.ErrorIs(t, err, user.ErrUserNotFound)
}

func TestUserRepository_UpdatePassword(t *testing.T) {
	require := require.New(t)
	db, mock := newMockDB(t)
	repo := userRepository{db: db}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "users" SET "password"=\$1 WHERE id = \$2`).
		WithArgs("new-hash", 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	require.NoError(repo.UpdatePassword(context.Background(), 5, "new-hash"))

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "users" SET "password"=\$1 WHERE id = \$2`).
		WithArgs("new-hash", 99).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	require.ErrorIs(repo.UpdatePassword(context.Background(), 99, "new-hash"), user.ErrUserNotFound)
	require.NoError(mock.ExpectationsWereMet())
}

func TestUserRepository_UpdateProfile(t *testing.T) {
	db, mock := newMockDB(t)
	repo := userRepository{db: db}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "users" SET "address"=\$1,"email"=\$2,"full_name"=\$3,"phone"=\$4 WHERE id = \$5`).
		WithArgs(sqlmock.AnyArg(), "alice@example.com", "Alice Liddell", sqlmock.AnyArg(), 5).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.UpdateProfile(context.Background(), 5, user.Profile{
		Email:    "alice@example.com",
		FullName: "Alice Liddell",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
