// Package auth exposes registration, login and the endpoints a signed-in
// user manages their own identity with.
package auth

import (
	"errors"

	"github.com/amirasaad/securebank/pkg/config"
	"github.com/amirasaad/securebank/pkg/domain/user"
	"github.com/amirasaad/securebank/pkg/middleware"
	auditsvc "github.com/amirasaad/securebank/pkg/service/audit"
	authsvc "github.com/amirasaad/securebank/pkg/service/auth"
	ledgersvc "github.com/amirasaad/securebank/pkg/service/ledger"
	usersvc "github.com/amirasaad/securebank/pkg/service/user"
	"github.com/amirasaad/securebank/webapi/common"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/golang-jwt/jwt/v5"
)

func Routes(
	app *fiber.App,
	authSvc *authsvc.Service,
	userSvc *usersvc.Service,
	ledgerSvc *ledgersvc.Service,
	auditSvc *auditsvc.Service,
	cfg *config.App,
) {
	app.Post("/auth/register", Register(userSvc))
	app.Post("/auth/login", Login(authSvc, cfg.Auth.Jwt))

	protected := middleware.JwtProtected(cfg.Auth.Jwt)
	app.Get("/auth/me", protected, Me(authSvc, ledgerSvc, cfg.Ledger.Currency))
	app.Get("/auth/profile", protected, GetProfile(authSvc, userSvc))
	app.Put("/auth/profile", protected, UpdateProfile(authSvc, userSvc))
	app.Post("/auth/password", protected, ChangePassword(authSvc, userSvc))
	app.Post("/auth/logout", protected, Logout(authSvc))
	app.Get("/auth/activity", protected, Activity(authSvc, auditSvc))
}

// Register creates a user together with an empty account.
// @Summary Register
// @Description Creates a user and a zero-balance account in one step.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterInput true "Registration data"
// @Success 201 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 409 {object} common.ProblemDetails
// @Failure 429 {object} common.ProblemDetails
// @Failure 500 {object} common.ProblemDetails
// @Router /auth/register [post]
func Register(userSvc *usersvc.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[RegisterInput](c)
		if input == nil {
			return err // Error already written by BindAndValidate
		}
		u, acc, err := userSvc.Register(c.UserContext(), input.Username, input.Email, input.Password)
		if err != nil {
			if errors.Is(err, user.ErrUsernameTaken) {
				return common.ProblemDetailsJSON(c, "Couldn't create user", err, "Username is not available")
			}
			return common.ProblemDetailsJSON(c, "Couldn't create user", err)
		}
		log.Infof("Registered user %d with account %d", u.ID, acc.ID)
		return common.SuccessResponseJSON(c, fiber.StatusCreated, "User created", RegisterResponse{
			UserID:    u.ID,
			AccountID: acc.ID,
			Username:  u.Username,
		})
	}
}

// Login handles user authentication and returns a JWT token.
// @Summary User login
// @Description Authenticate with username and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginInput true "Login credentials"
// @Success 200 {object} common.Response
// @Failure 400 {object} common.ProblemDetails
// @Failure 401 {object} common.ProblemDetails
// @Failure 429 {object} common.ProblemDetails
// @Failure 500 {object} common.ProblemDetails
// @Router /auth/login [post]
func Login(authSvc *authsvc.Service, cfg *config.Jwt) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, err := common.BindAndValidate[LoginInput](c)
		if input == nil {
			return err // Error already written by BindAndValidate
		}
		u, err := authSvc.Login(c.UserContext(), input.Username, input.Password, authsvc.ClientInfo{
			IP:        c.IP(),
			UserAgent: c.Get(fiber.HeaderUserAgent),
		})
		if err != nil {
			if errors.Is(err, user.ErrUserUnauthorized) {
				return common.ProblemDetailsJSON(c, "Invalid username or password", nil, "Username or password is incorrect", fiber.StatusUnauthorized)
			}
			return common.ProblemDetailsJSON(c, "Internal Server Error", err)
		}
		token, err := authSvc.GenerateToken(c.UserContext(), u)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Internal Server Error", err, fiber.StatusInternalServerError)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "Success login", TokenResponse{
			Token:     token,
			TokenType: "Bearer",
			ExpiresIn: int64(cfg.Expiry.Seconds()),
		})
	}
}

// Me returns the caller's profile and balance.
// @Summary Current user
// @Description Returns the authenticated user's username, account and balance.
// @Tags auth
// @Produce json
// @Success 200 {object} common.Response
// @Failure 401 {object} common.ProblemDetails
// @Failure 429 {object} common.ProblemDetails
// @Router /auth/me [get]
// @Security Bearer
func Me(authSvc *authsvc.Service, ledgerSvc *ledgersvc.Service, currency string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := c.Locals(middleware.UserContextKey).(*jwt.Token)
		if !ok {
			return common.ProblemDetailsJSON(c, "Unauthorized", nil, "missing user context", fiber.StatusUnauthorized)
		}
		u, id, err := authSvc.CurrentUser(c.UserContext(), token)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Unauthorized", err)
		}
		balance, err := ledgerSvc.GetBalance(c.UserContext(), id.AccountID)
		if err != nil {
			return common.ProblemDetailsJSON(c, "Failed to fetch balance", err)
		}
		return common.SuccessResponseJSON(c, fiber.StatusOK, "User found", MeResponse{
			UserID:    u.ID,
			Username:  u.Username,
			Email:     u.Email,
			AccountID: id.AccountID,
			Balance:   balance,
			Currency:  currency,
			LastLogin: u.LastLogin,
		})
	}
}
