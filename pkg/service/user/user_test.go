package user_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/amirasaad/securebank/internal/fixtures"
	"github.com/amirasaad/securebank/pkg/domain/account"
	"github.com/amirasaad/securebank/pkg/domain/events"
	"github.com/amirasaad/securebank/pkg/domain/user"
	usersvc "github.com/amirasaad/securebank/pkg/service/user"
	"github.com/amirasaad/securebank/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newService(t *testing.T) (*usersvc.Service, *fixtures.MockUnitOfWork, *fixtures.MockBus) {
	t.Helper()
	uow := fixtures.NewMockUnitOfWork(t)
	bus := fixtures.NewMockBus(t)
	return usersvc.New(uow, bus, bcrypt.MinCost, slog.New(slog.NewTextHandler(io.Discard, nil))), uow, bus
}

func TestRegister_CreatesUserAndAccount(t *testing.T) {
	require := require.New(t)
	svc, uow, bus := newService(t)

	uow.Users.On("Create", mock.Anything, mock.MatchedBy(func(u *user.User) bool {
		return u.Username == "alice" && u.Password != "password123" && utils.CheckPasswordHash("password123", u.Password)
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*user.User).ID = 4
	}).Return(nil).Once()
	uow.Accounts.On("Create", mock.Anything, mock.MatchedBy(func(a *account.Account) bool {
		return a.UserID == 4 && a.OwnerUsername == "alice" && a.Balance == 0
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*account.Account).ID = 9
	}).Return(nil).Once()
	bus.On("Emit", mock.Anything, mock.MatchedBy(func(e events.UserRegistered) bool {
		return e.UserID == 4 && e.AccountID == 9
	})).Return(nil).Once()

	u, acc, err := svc.Register(context.Background(), "alice", "alice@example.com", "password123")
	require.NoError(err)
	assert.Equal(t, int64(4), u.ID)
	assert.Equal(t, int64(9), acc.ID)
}

func TestRegister_UsernameTaken(t *testing.T) {
	svc, uow, _ := newService(t)
	uow.Users.On("Create", mock.Anything, mock.Anything).Return(user.ErrUsernameTaken).Once()

	_, _, err := svc.Register(context.Background(), "alice", "", "password123")
	assert.ErrorIs(t, err, user.ErrUsernameTaken)
	uow.Accounts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRegister_InvalidInput(t *testing.T) {
	tests := []struct {
		name, username, email, password string
	}{
		{"short username", "al", "", "password123"},
		{"sql in username", "a' OR '1'='1", "", "password123"},
		{"bad email", "alice", "not-an-email", "password123"},
		{"short password", "alice", "", "short"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newService(t)
			_, _, err := svc.Register(context.Background(), tt.username, tt.email, tt.password)
			assert.ErrorIs(t, err, user.ErrInvalidUser)
		})
	}
}

func TestUpdateProfile(t *testing.T) {
	require := require.New(t)
	svc, uow, _ := newService(t)

	want := user.Profile{Email: "alice@example.com", FullName: "Alice Liddell", Phone: "+1 555 0100"}
	uow.Users.On("UpdateProfile", mock.Anything, int64(4), want).Return(nil).Once()
	uow.Users.On("Get", mock.Anything, int64(4)).Return(&user.User{
		ID: 4, Username: "alice", Email: want.Email, FullName: want.FullName, Phone: want.Phone,
	}, nil).Once()

	u, err := svc.UpdateProfile(context.Background(), 4, user.Profile{
		Email: " alice@example.com", FullName: "Alice Liddell ", Phone: "+1 555 0100",
	})
	require.NoError(err)
	assert.Equal(t, want, u.Profile())
}

func TestUpdateProfile_Invalid(t *testing.T) {
	svc, uow, _ := newService(t)

	_, err := svc.UpdateProfile(context.Background(), 4, user.Profile{Email: "not-an-email"})
	assert.ErrorIs(t, err, user.ErrInvalidUser)
	uow.Users.AssertNotCalled(t, "UpdateProfile", mock.Anything, mock.Anything, mock.Anything)
}

func TestChangePassword(t *testing.T) {
	require := require.New(t)
	svc, uow, bus := newService(t)

	hash, err := utils.HashPassword("password123", bcrypt.MinCost)
	require.NoError(err)
	uow.Users.On("Get", mock.Anything, int64(4)).Return(&user.User{ID: 4, Password: hash}, nil).Once()
	uow.Users.On("UpdatePassword", mock.Anything, int64(4), mock.MatchedBy(func(h string) bool {
		return utils.CheckPasswordHash("new-password", h)
	})).Return(nil).Once()
	bus.On("Emit", mock.Anything, mock.MatchedBy(func(e events.PasswordChanged) bool {
		return e.UserID == 4 && e.IP == "203.0.113.9"
	})).Return(nil).Once()

	err = svc.ChangePassword(context.Background(), 4, "password123", "new-password", usersvc.ClientInfo{IP: "203.0.113.9"})
	require.NoError(err)
}

func TestChangePassword_WrongCurrent(t *testing.T) {
	svc, uow, _ := newService(t)

	hash, err := utils.HashPassword("password123", bcrypt.MinCost)
	require.NoError(t, err)
	uow.Users.On("Get", mock.Anything, int64(4)).Return(&user.User{ID: 4, Password: hash}, nil).Once()

	err = svc.ChangePassword(context.Background(), 4, "guess", "new-password", usersvc.ClientInfo{})
	assert.ErrorIs(t, err, user.ErrWrongPassword)
	uow.Users.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything)
}

func TestChangePassword_WeakNewPassword(t *testing.T) {
	svc, uow, _ := newService(t)

	err := svc.ChangePassword(context.Background(), 4, "password123", "short", usersvc.ClientInfo{})
	assert.ErrorIs(t, err, user.ErrInvalidUser)
	uow.Users.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}
