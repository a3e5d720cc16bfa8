// Package seed loads the treasury and the demo users with their sample
// transfers. Every step is safe to repeat.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/amirasaad/securebank/pkg/config"
	"github.com/amirasaad/securebank/pkg/domain/account"
	"github.com/amirasaad/securebank/pkg/domain/money"
	"github.com/amirasaad/securebank/pkg/domain/user"
	"github.com/amirasaad/securebank/pkg/repository"
	ledgersvc "github.com/amirasaad/securebank/pkg/service/ledger"
	usersvc "github.com/amirasaad/securebank/pkg/service/user"
	"github.com/google/uuid"
)

// DemoUser is a user created by the seed together with its starting balance.
type DemoUser struct {
	Username string
	Balance  string
}

// SampleTransfer is one transfer between demo users.
type SampleTransfer struct {
	From        string
	To          string
	Amount      string
	Description string
}

var DemoUsers = []DemoUser{
	{"alice", "5000.00"},
	{"bob", "3000.00"},
	{"charlie", "2500.00"},
	{"dave", "4000.00"},
	{"eve", "1500.00"},
	{"frank", "3500.00"},
}

var SampleTransfers = []SampleTransfer{
	{"alice", "bob", "100.00", "Rent payment"},
	{"bob", "charlie", "50.00", "Dinner split"},
	{"charlie", "dave", "75.00", "Movie tickets"},
	{"dave", "eve", "25.00", "Coffee money"},
	{"eve", "frank", "150.00", "Grocery share"},
	{"frank", "alice", "200.00", "Car repair"},
	{"alice", "charlie", "80.00", "Birthday gift"},
	{"bob", "dave", "120.00", "Concert tickets"},
	{"charlie", "eve", "90.00", "Utility bill"},
	{"dave", "frank", "175.00", "Sports equipment"},
	{"eve", "alice", "60.00", "Book club dues"},
	{"frank", "bob", "95.00", "Gaming subscription"},
	{"alice", "eve", "110.00", "Yoga class"},
	{"bob", "frank", "85.00", "Pizza night"},
	{"charlie", "alice", "145.00", "Festival tickets"},
}

// Seeder creates seed data through the regular services, so balances only
// move through ledger transfers. The treasury opening balance is the one
// exception.
type Seeder struct {
	uow          repository.UnitOfWork
	users        *usersvc.Service
	ledger       *ledgersvc.Service
	cfg          *config.Ledger
	demoPassword string
	logger       *slog.Logger
}

func New(
	uow repository.UnitOfWork,
	users *usersvc.Service,
	ledger *ledgersvc.Service,
	cfg *config.Ledger,
	demoPassword string,
	logger *slog.Logger,
) *Seeder {
	return &Seeder{
		uow:          uow,
		users:        users,
		ledger:       ledger,
		cfg:          cfg,
		demoPassword: demoPassword,
		logger:       logger.With("component", "seed"),
	}
}

// Run seeds the treasury, the demo users and the sample transfers.
func (s *Seeder) Run(ctx context.Context) error {
	treasury, err := s.ensureTreasury(ctx)
	if err != nil {
		return fmt.Errorf("treasury: %w", err)
	}

	accounts := make(map[string]int64, len(DemoUsers))
	for _, d := range DemoUsers {
		id, err := s.ensureUser(ctx, d.Username, s.demoPassword)
		if err != nil {
			return fmt.Errorf("user %s: %w", d.Username, err)
		}
		accounts[d.Username] = id
		if _, err := s.ledger.Transfer(ctx, account.TransferCommand{
			SenderID:       treasury,
			ReceiverID:     id,
			Amount:         d.Balance,
			Description:    "Opening deposit",
			IdempotencyKey: "seed-fund-" + d.Username,
		}); err != nil {
			return fmt.Errorf("fund %s: %w", d.Username, err)
		}
	}

	for i, t := range SampleTransfers {
		if _, err := s.ledger.Transfer(ctx, account.TransferCommand{
			SenderID:       accounts[t.From],
			ReceiverID:     accounts[t.To],
			Amount:         t.Amount,
			Description:    t.Description,
			IdempotencyKey: fmt.Sprintf("seed-sample-%d", i+1),
		}); err != nil {
			return fmt.Errorf("sample transfer %d: %w", i+1, err)
		}
	}
	s.logger.Info("Seed complete", "users", len(DemoUsers), "transfers", len(SampleTransfers))
	return nil
}

// ensureTreasury creates the treasury account once and credits its opening
// balance in the same unit of work. Its password is random, so nobody can
// log in as the treasury.
func (s *Seeder) ensureTreasury(ctx context.Context) (int64, error) {
	existing, err := s.accountOf(ctx, s.cfg.TreasuryUsername)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, user.ErrUserNotFound) {
		return 0, err
	}

	opening, err := money.Parse(s.cfg.TreasuryOpening)
	if err != nil {
		return 0, err
	}
	_, acc, err := s.users.Register(ctx, s.cfg.TreasuryUsername, "", uuid.NewString())
	if err != nil {
		return 0, err
	}
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.AccountRepository()
		if err != nil {
			return err
		}
		if _, err := repo.LockForUpdate(ctx, acc.ID); err != nil {
			return err
		}
		return repo.Credit(ctx, acc.ID, opening)
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("Treasury created", "account_id", acc.ID, "opening_balance", opening.String())
	return acc.ID, nil
}

func (s *Seeder) ensureUser(ctx context.Context, username, password string) (int64, error) {
	id, err := s.accountOf(ctx, username)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, user.ErrUserNotFound) {
		return 0, err
	}
	_, acc, err := s.users.Register(ctx, username, username+"@example.com", password)
	if err != nil {
		return 0, err
	}
	return acc.ID, nil
}

func (s *Seeder) accountOf(ctx context.Context, username string) (int64, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return 0, err
	}
	repo, err := s.uow.AccountRepository()
	if err != nil {
		return 0, err
	}
	acc, err := repo.GetByUserID(ctx, u.ID)
	if err != nil {
		return 0, err
	}
	return acc.ID, nil
}
