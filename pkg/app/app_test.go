package app_test

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/amirasaad/securebank/internal/fixtures"
	"github.com/amirasaad/securebank/pkg/app"
	"github.com/amirasaad/securebank/pkg/config"
	"github.com/amirasaad/securebank/pkg/domain/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.App {
	return &config.App{
		Auth: &config.Auth{
			Jwt:        &config.Jwt{Secret: "secret"},
			BcryptCost: 4,
		},
		Ledger: &config.Ledger{
			MaxTransferAmount: "10000.00",
			Currency:          "USD",
			DefaultPageSize:   50,
			MaxPageSize:       100,
		},
	}
}

func TestNew_SubscribesAuditTrail(t *testing.T) {
	bus := fixtures.NewMockBus(t)
	deps := &app.Deps{
		Uow:      fixtures.NewMockUnitOfWork(t),
		EventBus: bus,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	a, err := app.New(deps, testConfig())
	require.NoError(t, err)
	require.NotNil(t, a.LedgerService)
	require.NotNil(t, a.AuthService)
	require.NotNil(t, a.UserService)
	require.NotNil(t, a.AuditService)

	for _, et := range []events.EventType{
		events.EventTypeTransferCompleted,
		events.EventTypeTransferFailed,
		events.EventTypeLoginSucceeded,
		events.EventTypeLoginFailed,
		events.EventTypeUserRegistered,
		events.EventTypePasswordChanged,
	} {
		assert.Len(t, bus.Handlers[et], 1, et.String())
	}
}

func TestNew_WithoutBus(t *testing.T) {
	deps := &app.Deps{
		Uow:    fixtures.NewMockUnitOfWork(t),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	a, err := app.New(deps, testConfig())
	require.NoError(t, err)
	assert.NotNil(t, a.LedgerService)
}

func TestNew_InvalidLedgerConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Ledger.MaxTransferAmount = "lots"
	deps := &app.Deps{
		Uow:    fixtures.NewMockUnitOfWork(t),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	_, err := app.New(deps, cfg)
	assert.Error(t, err)
}

func TestDeps_CloseRunsInReverse(t *testing.T) {
	var order []string
	errBus := errors.New("bus")
	deps := &app.Deps{Closers: []func() error{
		func() error { order = append(order, "db"); return nil },
		func() error { order = append(order, "bus"); return errBus },
	}}

	err := deps.Close()
	require.ErrorIs(t, err, errBus)
	assert.Equal(t, []string{"bus", "db"}, order)

	// Closers are dropped after the first call.
	require.NoError(t, deps.Close())
	assert.Len(t, order, 2)
}
