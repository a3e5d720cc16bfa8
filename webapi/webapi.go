// Package webapi provides the HTTP API of the ledger service.
// It is organized into sub-packages:
// - ledger: transfer, balance and transaction history endpoints
// - auth: registration, login and current user endpoints
// - common: response envelopes, problem details and request binding
package webapi

import (
	"errors"

	"github.com/amirasaad/securebank/pkg/app"
	authweb "github.com/amirasaad/securebank/webapi/auth"
	"github.com/amirasaad/securebank/webapi/common"
	ledgerweb "github.com/amirasaad/securebank/webapi/ledger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/google/uuid"
)

// bodyLimit bounds request bodies; every endpoint takes a small JSON object.
const bodyLimit = 64 * 1024

// SetupApp Initialize Fiber with custom configuration
func SetupApp(a *app.App) *fiber.App {
	cfg := a.Config

	fiberApp := fiber.New(fiber.Config{
		BodyLimit:               bodyLimit,
		DisableStartupMessage:   cfg.Env == "test",
		ProxyHeader:             cfg.Server.ProxyHeader,
		EnableTrustedProxyCheck: true,
		TrustedProxies:          cfg.Server.TrustedProxies,
		EnableIPValidation:      true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return common.ProblemDetailsJSON(c, fe.Message, err, fe.Code)
			}
			return common.ProblemDetailsJSON(c, "Internal Server Error", err)
		},
	})

	fiberApp.Use(requestid.New(requestid.Config{
		Generator:  uuid.NewString,
		ContextKey: common.RequestIDKey,
	}))
	fiberApp.Use(recover.New())
	fiberApp.Use(logger.New(logger.Config{
		Format: "${time} ${locals:" + common.RequestIDKey + "} ${status} - ${latency} ${method} ${path}\n",
	}))
	fiberApp.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Cors.AllowOrigins,
		AllowCredentials: cfg.Cors.AllowCredentials,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Idempotency-Key",
		AllowMethods:     "GET,POST,PUT,OPTIONS",
	}))

	// Requests are keyed by c.IP(), which only reads ProxyHeader when the
	// peer is a trusted proxy. Client supplied forwarding headers are ignored
	// otherwise.
	fiberApp.Use(limiter.New(limiter.Config{
		Max:        cfg.RateLimit.MaxRequests,
		Expiration: cfg.RateLimit.Window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return common.ProblemDetailsJSON(
				c,
				"Too Many Requests",
				errors.New("rate limit exceeded"),
				fiber.StatusTooManyRequests,
			)
		},
	}))

	fiberApp.Get("/swagger/*", swagger.New(swagger.Config{
		TryItOutEnabled:      true,
		PersistAuthorization: true,
	}))

	// Health check endpoint
	fiberApp.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("SecureBank ledger is running")
	})
	fiberApp.Get("/health", func(c *fiber.Ctx) error {
		sqlDB, err := a.Deps.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(c.UserContext())
		}
		if err != nil {
			return common.ProblemDetailsJSON(c, "Database unavailable", err, fiber.StatusServiceUnavailable)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "ok", nil)
	})

	authweb.Routes(fiberApp, a.AuthService, a.UserService, a.LedgerService, a.AuditService, cfg)
	ledgerweb.Routes(fiberApp, a.LedgerService, a.AuthService, cfg)
	return fiberApp
}
