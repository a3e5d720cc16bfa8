package middleware

import (
	"errors"

	"github.com/amirasaad/securebank/pkg/config"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// UserContextKey is the fiber.Ctx Locals key holding the verified *jwt.Token.
const UserContextKey = "user"

// JwtProtected only lets through requests carrying a valid HS256 bearer token.
func JwtProtected(cfg *config.Jwt) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{
			JWTAlg: jwtware.HS256,
			Key:    []byte(cfg.Secret),
		},
		ContextKey:   UserContextKey,
		ErrorHandler: jwtError,
	})
}

// jwtError never echoes the parser error; missing and invalid tokens only
// differ in the title.
func jwtError(c *fiber.Ctx, err error) error {
	title := "Invalid or expired token"
	if errors.Is(err, jwtware.ErrJWTMissingOrMalformed) {
		title = "Missing or malformed token"
	}
	c.Set(fiber.HeaderWWWAuthenticate, `Bearer realm="securebank"`)
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"type":           "about:blank",
		"title":          title,
		"status":         fiber.StatusUnauthorized,
		"instance":       c.OriginalURL(),
		"correlation_id": uuid.NewString(),
	}, "application/problem+json")
}
