package exts

import (
	"strings"

	"git.solsynth.dev/hypernet/converse/pkg/internal/services"
	"github.com/gofiber/fiber/v2"
)

// TokenOf reads the bearer credential from the header, falling back to the
// tk query parameter for clients that cannot set headers.
func TokenOf(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if tk, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(tk)
	}
	return c.Query("tk")
}

// Authenticator resolves the credential of every request it guards and
// stores the user id as the "user" local.
func Authenticator(identity services.Identity) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if userId, err := identity.Resolve(TokenOf(c)); err == nil {
			c.Locals("user", userId)
		}
		return c.Next()
	}
}

func EnsureAuthenticated(c *fiber.Ctx) error {
	if _, ok := c.Locals("user").(uint); !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}
	return nil
}

func CurrentUser(c *fiber.Ctx) uint {
	userId, _ := c.Locals("user").(uint)
	return userId
}
