package common

import (
	"github.com/amirasaad/securebank/pkg/middleware"
	"github.com/amirasaad/securebank/pkg/service/auth"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// CallerIdentity reads the identity from the token verified by
// middleware.JwtProtected. It writes a 401 and returns nil when the token is
// missing or lacks the expected claims.
func CallerIdentity(c *fiber.Ctx, authSvc *auth.Service) (*auth.Identity, error) {
	token, ok := c.Locals(middleware.UserContextKey).(*jwt.Token)
	if !ok {
		return nil, ProblemDetailsJSON(c, "Unauthorized", nil, "missing user context", fiber.StatusUnauthorized)
	}
	id, err := authSvc.Identity(token)
	if err != nil {
		return nil, ProblemDetailsJSON(c, "Unauthorized", err, fiber.StatusUnauthorized)
	}
	return id, nil
}
