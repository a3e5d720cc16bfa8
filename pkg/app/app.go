package app

import (
	"errors"
	"log/slog"

	"github.com/amirasaad/securebank/pkg/config"
	"github.com/amirasaad/securebank/pkg/eventbus"
	"github.com/amirasaad/securebank/pkg/repository"
	"github.com/amirasaad/securebank/pkg/service/audit"
	"github.com/amirasaad/securebank/pkg/service/auth"
	"github.com/amirasaad/securebank/pkg/service/ledger"
	"github.com/amirasaad/securebank/pkg/service/user"
	"gorm.io/gorm"
)

// Deps contains all the dependencies needed to build the services.
type Deps struct {
	DB       *gorm.DB
	Uow      repository.UnitOfWork
	EventBus eventbus.Bus
	Logger   *slog.Logger
	// Closers run in reverse order on Close.
	Closers []func() error
}

// Close releases the event bus and the database pool.
func (d *Deps) Close() error {
	var errs []error
	for i := len(d.Closers) - 1; i >= 0; i-- {
		if err := d.Closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.Closers = nil
	return errors.Join(errs...)
}

type App struct {
	Deps          *Deps
	Config        *config.App
	LedgerService *ledger.Service
	AuthService   *auth.Service
	UserService   *user.Service
	AuditService  *audit.Service
}

func New(deps *Deps, cfg *config.App) (*App, error) {
	ledgerSvc, err := ledger.New(deps.Uow, deps.EventBus, cfg.Ledger, deps.Logger)
	if err != nil {
		return nil, err
	}
	app := &App{
		Deps:          deps,
		Config:        cfg,
		LedgerService: ledgerSvc,
		AuthService:   auth.NewWithJWT(deps.Uow, deps.EventBus, cfg.Auth.Jwt, deps.Logger),
		UserService:   user.New(deps.Uow, deps.EventBus, cfg.Auth.BcryptCost, deps.Logger),
		AuditService:  audit.New(deps.Uow, deps.Logger),
	}
	app.setupEventBus()
	return app, nil
}
