// Package ledger owns account balances and the transaction record.
// It is the only code path that changes a balance: every movement of funds
// runs as one unit of work that locks both accounts in ascending id order,
// debits conditionally, credits and appends a completed transaction.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/amirasaad/securebank/pkg/config"
	"github.com/amirasaad/securebank/pkg/domain"
	"github.com/amirasaad/securebank/pkg/domain/account"
	"github.com/amirasaad/securebank/pkg/domain/events"
	"github.com/amirasaad/securebank/pkg/domain/money"
	"github.com/amirasaad/securebank/pkg/eventbus"
	"github.com/amirasaad/securebank/pkg/repository"
	"golang.org/x/sync/singleflight"
)

// defaultStatementRows caps a statement export when the config leaves it unset.
const defaultStatementRows = 10000

// Service provides transfers, balance reads and transaction history.
type Service struct {
	uow       repository.UnitOfWork
	bus       eventbus.Bus
	cfg       *config.Ledger
	maxAmount money.Amount
	logger    *slog.Logger
	inflight  singleflight.Group
	now       func() time.Time
}

// New creates a ledger Service. cfg.MaxTransferAmount must be a valid amount.
func New(
	uow repository.UnitOfWork,
	bus eventbus.Bus,
	cfg *config.Ledger,
	logger *slog.Logger,
) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("ledger: config is required")
	}
	maxAmount, err := money.Parse(cfg.MaxTransferAmount)
	if err != nil {
		return nil, fmt.Errorf("ledger: max transfer amount: %w", err)
	}
	return &Service{
		uow:       uow,
		bus:       bus,
		cfg:       cfg,
		maxAmount: maxAmount,
		logger:    logger.With("service", "ledger"),
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// TransferResult is the outcome of a transfer. Replayed is true when an
// earlier transaction with the same idempotency key was returned instead of
// moving funds again.
type TransferResult struct {
	Transaction *account.Transaction
	Replayed    bool

	leader *struct{}
}

// Transfer moves funds from cmd.SenderID to cmd.ReceiverID.
func (s *Service) Transfer(ctx context.Context, cmd account.TransferCommand) (*account.Transaction, error) {
	res, err := s.Execute(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return res.Transaction, nil
}

// Execute is Transfer that also reports idempotent replays.
func (s *Service) Execute(ctx context.Context, cmd account.TransferCommand) (*TransferResult, error) {
	log := s.logger.With(
		"operation", "transfer",
		"sender_id", cmd.SenderID,
		"receiver_id", cmd.ReceiverID,
	)

	t, err := account.NewTransfer(cmd, s.maxAmount)
	if err != nil {
		log.Warn("Transfer rejected", "error", err)
		return nil, err
	}

	if t.IdempotencyKey == "" {
		return s.transfer(ctx, t, log)
	}

	// Identical keyed requests arriving together share one execution.
	self := &struct{}{}
	key := strconv.FormatInt(t.SenderID, 10) + ":" + t.IdempotencyKey
	v, err, _ := s.inflight.Do(key, func() (any, error) {
		res, err := s.transfer(ctx, t, log)
		if res != nil {
			res.leader = self
		}
		return res, err
	})
	if err != nil {
		return nil, err
	}
	res := v.(*TransferResult)
	if res.leader != self {
		if !t.Matches(res.Transaction) {
			return nil, account.ErrIdempotencyKeyReused
		}
		return &TransferResult{Transaction: res.Transaction, Replayed: true}, nil
	}
	return res, nil
}

func (s *Service) transfer(ctx context.Context, t account.Transfer, log *slog.Logger) (*TransferResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()

	var (
		res *TransferResult
		err error
	)
	for attempt := 0; ; attempt++ {
		res, err = s.transferOnce(ctx, t)
		if err == nil || !errors.Is(err, domain.ErrConflict) || attempt >= s.cfg.ConflictRetries {
			break
		}
		log.Warn("Transfer conflicted, retrying", "attempt", attempt+1, "error", err)
		select {
		case <-ctx.Done():
		case <-time.After(time.Duration(attempt+1) * 10 * time.Millisecond):
		}
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %w", domain.ErrTimeout, ctx.Err())
			break
		}
	}

	if err != nil && ctx.Err() != nil && !errors.Is(err, domain.ErrTimeout) && !isBusinessError(err) {
		err = fmt.Errorf("%w: %w", domain.ErrTimeout, err)
	}

	// Post-commit work must not be cut short by the operation deadline.
	after := context.WithoutCancel(ctx)
	switch {
	case err == nil:
		tx := res.Transaction
		log.Info("Transfer completed",
			"transaction_id", tx.ID,
			"amount", tx.Amount.String(),
			"replayed", res.Replayed,
		)
		s.emit(after, events.TransferCompleted{
			TransactionID: tx.ID,
			SenderID:      tx.SenderID,
			ReceiverID:    tx.ReceiverID,
			AmountCents:   tx.Amount.Cents(),
			Replayed:      res.Replayed,
			OccurredAt:    s.now(),
		})
		return res, nil
	case errors.Is(err, account.ErrInsufficientFunds):
		log.Warn("Transfer failed", "reason", err)
		s.recordFailure(after, t, err, log)
		return nil, err
	case isBusinessError(err):
		log.Warn("Transfer rejected", "error", err)
		return nil, err
	default:
		log.Error("Transfer aborted", "error", err)
		return nil, err
	}
}

// transferOnce runs a single attempt inside one unit of work.
func (s *Service) transferOnce(ctx context.Context, t account.Transfer) (*TransferResult, error) {
	var res *TransferResult
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		accounts, err := uow.AccountRepository()
		if err != nil {
			return err
		}
		txs, err := uow.TransactionRepository()
		if err != nil {
			return err
		}

		locked, err := accounts.LockForUpdate(ctx, account.LockOrder(t.SenderID, t.ReceiverID)...)
		if err != nil {
			return err
		}
		if len(locked) != 2 {
			return account.ErrAccountNotFound
		}

		if t.IdempotencyKey != "" {
			existing, err := txs.GetByIdempotencyKey(ctx, t.SenderID, t.IdempotencyKey)
			switch {
			case err == nil:
				if !t.Matches(existing) {
					return account.ErrIdempotencyKeyReused
				}
				res = &TransferResult{Transaction: existing, Replayed: true}
				return nil
			case !errors.Is(err, account.ErrTransactionNotFound):
				return err
			}
		}

		if err := accounts.Debit(ctx, t.SenderID, t.Amount); err != nil {
			return err
		}
		if err := accounts.Credit(ctx, t.ReceiverID, t.Amount); err != nil {
			return err
		}

		tx := t.Completed(s.now())
		if err := txs.Create(ctx, tx); err != nil {
			if errors.Is(err, domain.ErrAlreadyExists) {
				// Another process committed the same key first; retrying
				// finds its transaction.
				return fmt.Errorf("%w: %w", domain.ErrConflict, err)
			}
			return err
		}
		res = &TransferResult{Transaction: tx}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// recordFailure appends a failed transaction for an attempt that reached
// storage but moved nothing.
func (s *Service) recordFailure(ctx context.Context, t account.Transfer, cause error, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()

	failed := t.Failed(s.now(), cause.Error())
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		txs, err := uow.TransactionRepository()
		if err != nil {
			return err
		}
		return txs.Create(ctx, failed)
	})
	if err != nil {
		log.Error("Failed to record failed transfer", "error", err)
		failed.ID = 0
	}

	s.emit(ctx, events.TransferFailed{
		TransactionID: failed.ID,
		SenderID:      t.SenderID,
		ReceiverID:    t.ReceiverID,
		AmountCents:   t.Amount.Cents(),
		Reason:        cause.Error(),
		OccurredAt:    s.now(),
	})
}

func (s *Service) emit(ctx context.Context, event events.Event) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Emit(ctx, event); err != nil {
		s.logger.Error("Failed to emit event", "type", event.Type(), "error", err)
	}
}

// GetBalance returns the latest committed balance of accountID.
func (s *Service) GetBalance(ctx context.Context, accountID int64) (money.Amount, error) {
	acc, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return acc.Balance, nil
}

// GetAccount reads accountID straight from storage.
func (s *Service) GetAccount(ctx context.Context, accountID int64) (*account.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()

	repo, err := s.uow.AccountRepository()
	if err != nil {
		return nil, err
	}
	acc, err := repo.Get(ctx, accountID)
	if err != nil {
		s.logger.Warn("GetAccount failed", "account_id", accountID, "error", err)
		return nil, err
	}
	return acc, nil
}

// ListTransactions returns the transactions accountID took part in, newest first.
func (s *Service) ListTransactions(
	ctx context.Context,
	accountID int64,
	filter account.TransactionFilter,
) ([]*account.Transaction, error) {
	filter, err := filter.Normalize(s.cfg.DefaultPageSize, s.cfg.MaxPageSize)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()

	accounts, err := s.uow.AccountRepository()
	if err != nil {
		return nil, err
	}
	if _, err := accounts.Get(ctx, accountID); err != nil {
		return nil, err
	}
	txs, err := s.uow.TransactionRepository()
	if err != nil {
		return nil, err
	}
	list, err := txs.List(ctx, accountID, filter)
	if err != nil {
		s.logger.Error("ListTransactions failed", "account_id", accountID, "error", err)
		return nil, err
	}
	return list, nil
}

// PageSize returns the page size a listing with the requested limit uses.
func (s *Service) PageSize(limit int) int {
	switch {
	case limit <= 0:
		return s.cfg.DefaultPageSize
	case limit > s.cfg.MaxPageSize:
		return s.cfg.MaxPageSize
	}
	return limit
}

// GetTransaction returns transaction txID if accountID is a party to it.
// Transactions of other accounts are reported as not found.
func (s *Service) GetTransaction(ctx context.Context, accountID, txID int64) (*account.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.OperationTimeout)
	defer cancel()

	repo, err := s.uow.TransactionRepository()
	if err != nil {
		return nil, err
	}
	tx, err := repo.Get(ctx, txID)
	if err != nil {
		return nil, err
	}
	if !tx.VisibleTo(accountID) {
		return nil, account.ErrTransactionNotFound
	}
	return tx, nil
}

// Statement collects an account and every matching transaction for export.
// More than the configured row cap yields ErrStatementTooLarge rather than a
// partial statement.
func (s *Service) Statement(
	ctx context.Context,
	accountID int64,
	query string,
) (*account.Account, []*account.Transaction, error) {
	acc, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return nil, nil, err
	}

	maxRows := s.cfg.MaxStatementRows
	if maxRows <= 0 {
		maxRows = defaultStatementRows
	}

	// Read one row past the cap to tell a full statement from a cut one.
	var all []*account.Transaction
	for len(all) <= maxRows {
		limit := min(s.cfg.MaxPageSize, maxRows+1-len(all))
		batch, err := s.ListTransactions(ctx, accountID, account.TransactionFilter{
			Query:  query,
			Limit:  limit,
			Offset: len(all),
		})
		if err != nil {
			return nil, nil, err
		}
		all = append(all, batch...)
		if len(batch) < limit {
			break
		}
	}
	if len(all) > maxRows {
		s.logger.Warn("Statement too large", "accountID", accountID, "maxRows", maxRows)
		return nil, nil, fmt.Errorf("%w: more than %d transactions", account.ErrStatementTooLarge, maxRows)
	}
	return acc, all, nil
}

func isBusinessError(err error) bool {
	return errors.Is(err, account.ErrAccountNotFound) ||
		errors.Is(err, account.ErrInsufficientFunds) ||
		errors.Is(err, account.ErrIdempotencyKeyReused) ||
		errors.Is(err, account.ErrInvalidAmount) ||
		errors.Is(err, account.ErrSelfTransfer)
}
