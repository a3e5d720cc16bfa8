// Package audit persists the audit trail from domain events.
package audit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amirasaad/securebank/pkg/domain/audit"
	"github.com/amirasaad/securebank/pkg/domain/events"
	"github.com/amirasaad/securebank/pkg/eventbus"
	"github.com/amirasaad/securebank/pkg/repository"
)

// Bounds of Recent.
const (
	DefaultRecentLimit = 20
	MaxRecentLimit     = 100
)

type Service struct {
	uow    repository.UnitOfWork
	logger *slog.Logger
}

func New(uow repository.UnitOfWork, logger *slog.Logger) *Service {
	return &Service{uow: uow, logger: logger.With("service", "audit")}
}

// Subscribe registers the audit handler for every audited event type.
func (s *Service) Subscribe(bus eventbus.Bus) {
	for _, t := range []events.EventType{
		events.EventTypeTransferCompleted,
		events.EventTypeTransferFailed,
		events.EventTypeLoginSucceeded,
		events.EventTypeLoginFailed,
		events.EventTypeUserRegistered,
		events.EventTypePasswordChanged,
	} {
		bus.Register(t, s.Handle)
	}
}

// Handle writes one audit entry for e. Events arrive as values from the
// in-memory bus and as pointers from brokers.
func (s *Service) Handle(ctx context.Context, e events.Event) error {
	entry, err := entryFor(e)
	if err != nil {
		return err
	}
	repo, err := s.uow.AuditRepository()
	if err != nil {
		return err
	}
	if err := repo.Create(ctx, entry); err != nil {
		s.logger.Error("Failed to write audit entry", "action", entry.Action, "error", err)
		return err
	}
	return nil
}

// Recent returns the latest audit entries of a user, newest first. A
// non-positive limit selects DefaultRecentLimit.
func (s *Service) Recent(ctx context.Context, userID int64, limit int) ([]*audit.Entry, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	limit = min(limit, MaxRecentLimit)
	repo, err := s.uow.AuditRepository()
	if err != nil {
		return nil, err
	}
	return repo.ListByUser(ctx, userID, limit)
}

func entryFor(e events.Event) (*audit.Entry, error) {
	switch ev := e.(type) {
	case *events.TransferCompleted:
		return entryFor(*ev)
	case *events.TransferFailed:
		return entryFor(*ev)
	case *events.LoginSucceeded:
		return entryFor(*ev)
	case *events.LoginFailed:
		return entryFor(*ev)
	case *events.UserRegistered:
		return entryFor(*ev)
	case *events.PasswordChanged:
		return entryFor(*ev)

	case events.TransferCompleted:
		return &audit.Entry{
			Action: audit.ActionTransferCompleted,
			Details: map[string]any{
				"transaction_id": ev.TransactionID,
				"sender_id":      ev.SenderID,
				"receiver_id":    ev.ReceiverID,
				"amount_cents":   ev.AmountCents,
				"replayed":       ev.Replayed,
			},
			CreatedAt: ev.OccurredAt,
		}, nil
	case events.TransferFailed:
		return &audit.Entry{
			Action: audit.ActionTransferFailed,
			Details: map[string]any{
				"transaction_id": ev.TransactionID,
				"sender_id":      ev.SenderID,
				"receiver_id":    ev.ReceiverID,
				"amount_cents":   ev.AmountCents,
				"reason":         ev.Reason,
			},
			CreatedAt: ev.OccurredAt,
		}, nil
	case events.LoginSucceeded:
		userID := ev.UserID
		return &audit.Entry{
			UserID:    &userID,
			Action:    audit.ActionLoginSucceeded,
			Details:   map[string]any{"username": ev.Username},
			IPAddress: ev.IP,
			UserAgent: ev.UserAgent,
			CreatedAt: ev.OccurredAt,
		}, nil
	case events.LoginFailed:
		return &audit.Entry{
			Action:    audit.ActionLoginFailed,
			Details:   map[string]any{"username": ev.Username},
			IPAddress: ev.IP,
			UserAgent: ev.UserAgent,
			CreatedAt: ev.OccurredAt,
		}, nil
	case events.UserRegistered:
		userID := ev.UserID
		return &audit.Entry{
			UserID:    &userID,
			Action:    audit.ActionUserRegistered,
			Details:   map[string]any{"username": ev.Username, "account_id": ev.AccountID},
			CreatedAt: ev.OccurredAt,
		}, nil
	case events.PasswordChanged:
		userID := ev.UserID
		return &audit.Entry{
			UserID:    &userID,
			Action:    audit.ActionPasswordChanged,
			IPAddress: ev.IP,
			UserAgent: ev.UserAgent,
			CreatedAt: ev.OccurredAt,
		}, nil
	}
	return nil, fmt.Errorf("audit: unsupported event %T", e)
}
