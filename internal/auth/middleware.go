package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/geethasandesh/articket/internal/domain"
	"github.com/geethasandesh/articket/pkg/util"
)

const callerLocalsKey = "caller"

// Middleware verifies the bearer token and stores the caller identity on the
// request context. Identity is expressed entirely by the token claim; there
// is no account lookup here.
func Middleware(tm *TokenManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return unauthorized(c, "missing authorization header")
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return unauthorized(c, "malformed authorization header")
		}

		claims, err := tm.ParseToken(strings.TrimSpace(parts[1]))
		if err != nil {
			return unauthorized(c, "invalid or expired token")
		}

		c.Locals(callerLocalsKey, claims.Caller())
		return c.Next()
	}
}

// CallerFromCtx returns the authenticated caller stored by Middleware.
func CallerFromCtx(c *fiber.Ctx) (domain.Caller, bool) {
	caller, ok := c.Locals(callerLocalsKey).(domain.Caller)
	return caller, ok
}

func unauthorized(c *fiber.Ctx, msg string) error {
	derr := util.ToDomainError(util.NewUnauthorized(msg))
	return c.Status(derr.HTTPStatus).JSON(fiber.Map{
		"error": fiber.Map{"code": derr.Code, "message": derr.Message},
	})
}
