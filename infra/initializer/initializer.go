package initializer

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/amirasaad/securebank/infra"
	infra_eventbus "github.com/amirasaad/securebank/infra/eventbus"
	infra_repository "github.com/amirasaad/securebank/infra/repository"
	"github.com/amirasaad/securebank/pkg/app"
	"github.com/amirasaad/securebank/pkg/config"
	"github.com/amirasaad/securebank/pkg/eventbus"
)

// InitializeDependencies initializes all the application dependencies
func InitializeDependencies(cfg *config.App) (
	deps *app.Deps,
	err error,
) {
	logger := SetupLogger(cfg.Log)
	return InitializeWithLogger(cfg, logger)
}

// InitializeWithLogger is InitializeDependencies with a caller-supplied logger.
func InitializeWithLogger(cfg *config.App, logger *slog.Logger) (*app.Deps, error) {
	db, err := infra.NewDBConnection(cfg.DB, cfg.Env)
	if err != nil {
		logger.Error("Failed to initialize database", "error", err)
		return nil, err
	}

	// In-memory SQLite starts empty, so it is always migrated.
	if cfg.DB.AutoMigrate || cfg.DB.Driver == "sqlite" {
		if err := infra.RunMigrations(db, cfg.DB.Driver, logger); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	bus, err := NewEventBus(cfg, logger)
	if err != nil {
		return nil, err
	}

	closers := []func() error{}
	if c, ok := bus.(io.Closer); ok {
		closers = append(closers, c.Close)
	}
	closers = append(closers, func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})

	return &app.Deps{
		DB:       db,
		Uow:      infra_repository.NewUoW(db),
		EventBus: bus,
		Logger:   logger,
		Closers:  closers,
	}, nil
}

// NewEventBus builds the bus selected by EVENT_BUS_DRIVER.
func NewEventBus(cfg *config.App, logger *slog.Logger) (eventbus.Bus, error) {
	driver := "memory"
	if cfg.EventBus != nil && cfg.EventBus.Driver != "" {
		driver = cfg.EventBus.Driver
	}

	switch driver {
	case "memory":
		return infra_eventbus.NewWithMemory(logger), nil
	case "redis":
		bus, err := infra_eventbus.NewWithRedis(cfg.Redis, cfg.EventBus.Stream, cfg.EventBus.Group, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis event bus: %w", err)
		}
		return bus, nil
	case "kafka":
		bus, err := infra_eventbus.NewWithKafka(cfg.Kafka, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka event bus: %w", err)
		}
		return bus, nil
	default:
		return nil, fmt.Errorf("unsupported event bus driver %q", driver)
	}
}
