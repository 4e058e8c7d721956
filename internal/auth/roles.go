package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/geethasandesh/articket/internal/domain"
	"github.com/geethasandesh/articket/pkg/util"
)

// RequireRole restricts a route to the listed roles. It must run after
// Middleware so the caller identity is present.
func RequireRole(roles ...domain.Role) fiber.Handler {
	allowed := make(map[domain.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		caller, ok := CallerFromCtx(c)
		if !ok {
			return unauthorized(c, "missing caller identity")
		}
		if _, ok := allowed[caller.Role]; !ok {
			derr := util.ToDomainError(util.NewForbidden("insufficient role"))
			return c.Status(derr.HTTPStatus).JSON(fiber.Map{
				"error": fiber.Map{"code": derr.Code, "message": derr.Message},
			})
		}
		return c.Next()
	}
}
