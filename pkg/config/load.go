package config

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/amirasaad/securebank/pkg/domain/money"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var (
	dbDrivers       = []string{"postgres", "sqlite"}
	eventBusDrivers = []string{"memory", "redis", "kafka"}
)

func Load(envFilePath ...string) (*App, error) {
	logger := slog.Default()
	logger.Info("Loading environment variables")

	if len(envFilePath) == 0 {
		logger.Debug("No environment file specified, trying default .env")
		if err := godotenv.Load(); err != nil {
			logger.Warn("No .env file found in current directory")
		}
		return loadFromEnv()
	}

	// Try each provided path until we find a valid one
	for _, path := range envFilePath {
		logger.Debug("Looking for environment file", "path", path)
		foundPath, err := FindEnvTest(path)
		if err != nil {
			logger.Debug("Environment file not found", "path", path, "error", err)
			continue
		}

		logger.Info("Loading environment from file", "path", foundPath)
		if err := godotenv.Load(foundPath); err != nil {
			logger.Error("Failed to load environment file", "path", foundPath, "error", err)
			continue
		}
		return loadFromEnv()
	}

	logger.Info("No valid environment files found, using default .env")
	if err := godotenv.Load(); err != nil {
		logger.Warn("No .env file found in current directory")
	}
	return loadFromEnv()
}

func loadFromEnv() (*App, error) {
	var cfg App
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := slog.Default()
	logger.Info("App config loaded",
		"env", cfg.Env,
		"db_driver", cfg.DB.Driver,
		"db", maskValue(cfg.DB.Url),
		"auth_jwt_expiry", cfg.Auth.Jwt.Expiry,
		"event_bus", cfg.EventBus.Driver,
		"rate_limit_max_requests", cfg.RateLimit.MaxRequests,
		"rate_limit_window", cfg.RateLimit.Window,
		"trusted_proxies", cfg.Server.TrustedProxies,
		"ledger_max_transfer", cfg.Ledger.MaxTransferAmount,
		"ledger_timeout", cfg.Ledger.OperationTimeout,
	)
	return &cfg, nil
}

// Validate checks enumerated settings and ledger bounds.
func (c *App) Validate() error {
	if !slices.Contains(dbDrivers, c.DB.Driver) {
		return fmt.Errorf("config: DATABASE_DRIVER must be one of %v, got %q", dbDrivers, c.DB.Driver)
	}
	if !slices.Contains(eventBusDrivers, c.EventBus.Driver) {
		return fmt.Errorf("config: EVENT_BUS_DRIVER must be one of %v, got %q", eventBusDrivers, c.EventBus.Driver)
	}
	if _, err := money.Parse(c.Ledger.MaxTransferAmount); err != nil {
		return fmt.Errorf("config: LEDGER_MAX_TRANSFER_AMOUNT: %w", err)
	}
	if _, err := money.Parse(c.Ledger.TreasuryOpening); err != nil {
		return fmt.Errorf("config: LEDGER_TREASURY_OPENING_BALANCE: %w", err)
	}
	if c.Ledger.OperationTimeout <= 0 {
		return fmt.Errorf("config: LEDGER_OPERATION_TIMEOUT must be positive")
	}
	if c.Ledger.ConflictRetries < 0 {
		return fmt.Errorf("config: LEDGER_CONFLICT_RETRIES must not be negative")
	}
	if c.Ledger.DefaultPageSize <= 0 || c.Ledger.MaxPageSize < c.Ledger.DefaultPageSize {
		return fmt.Errorf("config: ledger page sizes must satisfy 0 < default <= max")
	}
	return nil
}

func maskValue(key string) string {
	if len(key) <= 6 {
		return "****"
	}
	return key[:2] + "****" + key[len(key)-4:]
}
