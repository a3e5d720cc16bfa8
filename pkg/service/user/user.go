// Package user provides registration and lookup of users. Every user owns
// exactly one account, created with it in the same unit of work.
package user

import (
	"context"
	"log/slog"
	"time"

	"github.com/amirasaad/securebank/pkg/domain/account"
	"github.com/amirasaad/securebank/pkg/domain/events"
	"github.com/amirasaad/securebank/pkg/domain/user"
	"github.com/amirasaad/securebank/pkg/eventbus"
	"github.com/amirasaad/securebank/pkg/repository"
	"github.com/amirasaad/securebank/pkg/utils"
)

// ClientInfo describes where a credential change came from.
type ClientInfo struct {
	IP        string
	UserAgent string
}

// Service provides business logic for user operations.
type Service struct {
	uow        repository.UnitOfWork
	bus        eventbus.Bus
	bcryptCost int
	logger     *slog.Logger
}

// New creates a new Service with a UnitOfWork and logger.
func New(
	uow repository.UnitOfWork,
	bus eventbus.Bus,
	bcryptCost int,
	logger *slog.Logger,
) *Service {
	return &Service{
		uow:        uow,
		bus:        bus,
		bcryptCost: bcryptCost,
		logger:     logger.With("service", "user"),
	}
}

// Register creates a user and its zero-balance account in a transaction.
func (s *Service) Register(
	ctx context.Context,
	username, email, password string,
) (u *user.User, acc *account.Account, err error) {
	log := s.logger.With("context", "Register", "username", username)

	u, err = user.NewUser(username, email, password, s.bcryptCost)
	if err != nil {
		log.Warn("Register rejected", "error", err)
		return nil, nil, err
	}

	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		users, err := uow.UserRepository()
		if err != nil {
			return err
		}
		if err := users.Create(ctx, u); err != nil {
			return err
		}
		accounts, err := uow.AccountRepository()
		if err != nil {
			return err
		}
		acc = account.New(u.ID, u.Username)
		return accounts.Create(ctx, acc)
	})
	if err != nil {
		log.Warn("Register failed", "error", err)
		return nil, nil, err
	}

	if s.bus != nil {
		if err := s.bus.Emit(ctx, events.UserRegistered{
			UserID:     u.ID,
			AccountID:  acc.ID,
			Username:   u.Username,
			OccurredAt: time.Now().UTC(),
		}); err != nil {
			log.Error("Failed to emit event", "error", err)
		}
	}
	log.Info("User registered", "userID", u.ID, "accountID", acc.ID)
	return u, acc, nil
}

// GetUser returns the user with the given id.
func (s *Service) GetUser(ctx context.Context, id int64) (*user.User, error) {
	users, err := s.uow.UserRepository()
	if err != nil {
		return nil, err
	}
	return users.Get(ctx, id)
}

// GetByUsername returns the user with the given username.
func (s *Service) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	users, err := s.uow.UserRepository()
	if err != nil {
		return nil, err
	}
	return users.GetByUsername(ctx, username)
}

// UpdateProfile replaces the contact details of the user with the given id
// and returns the updated user.
func (s *Service) UpdateProfile(ctx context.Context, id int64, p user.Profile) (*user.User, error) {
	log := s.logger.With("context", "UpdateProfile", "userID", id)

	p, err := p.Normalize()
	if err != nil {
		log.Warn("UpdateProfile rejected", "error", err)
		return nil, err
	}

	var u *user.User
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		users, err := uow.UserRepository()
		if err != nil {
			return err
		}
		if err := users.UpdateProfile(ctx, id, p); err != nil {
			return err
		}
		u, err = users.Get(ctx, id)
		return err
	})
	if err != nil {
		log.Warn("UpdateProfile failed", "error", err)
		return nil, err
	}
	log.Info("Profile updated")
	return u, nil
}

// ChangePassword replaces the password of the user with the given id after
// checking the current one. A wrong current password yields
// user.ErrWrongPassword.
func (s *Service) ChangePassword(
	ctx context.Context,
	id int64,
	current, next string,
	client ClientInfo,
) error {
	log := s.logger.With("context", "ChangePassword", "userID", id)

	if err := user.ValidatePassword(next); err != nil {
		log.Warn("ChangePassword rejected", "error", err)
		return err
	}

	users, err := s.uow.UserRepository()
	if err != nil {
		return err
	}
	u, err := users.Get(ctx, id)
	if err != nil {
		log.Warn("ChangePassword failed", "error", err)
		return err
	}
	if !utils.CheckPasswordHash(current, u.Password) {
		log.Warn("ChangePassword denied")
		return user.ErrWrongPassword
	}

	hash, err := utils.HashPassword(next, s.bcryptCost)
	if err != nil {
		return err
	}
	if err := users.UpdatePassword(ctx, id, hash); err != nil {
		log.Error("ChangePassword failed", "error", err)
		return err
	}

	if s.bus != nil {
		if err := s.bus.Emit(ctx, events.PasswordChanged{
			UserID:     id,
			IP:         client.IP,
			UserAgent:  client.UserAgent,
			OccurredAt: time.Now().UTC(),
		}); err != nil {
			log.Error("Failed to emit event", "error", err)
		}
	}
	log.Info("Password changed")
	return nil
}
