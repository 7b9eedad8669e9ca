package exts

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/idempotency"
	"github.com/google/uuid"
)

const IdempotencyKeyHeader = "X-Idempotency-Key"

// Idempotency replays a cached response only to the user who caused it.
// The client key is prefixed with the user id before it reaches the cache,
// so it has to run after Authenticator.
func Idempotency() fiber.Handler {
	cache := idempotency.New(idempotency.Config{
		KeyHeader: IdempotencyKeyHeader,
		KeyHeaderValidate: func(key string) error {
			_, raw, ok := strings.Cut(key, ":")
			if !ok {
				return fiber.NewError(fiber.StatusBadRequest, "idempotency key is not scoped to a user")
			}
			if _, err := uuid.Parse(raw); err != nil {
				return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("invalid idempotency key: %v", err))
			}
			return nil
		},
	})

	return func(c *fiber.Ctx) error {
		key := c.Get(IdempotencyKeyHeader)
		if len(key) == 0 {
			return c.Next()
		}
		userId, ok := c.Locals("user").(uint)
		if !ok {
			return c.Next()
		}
		c.Request().Header.Set(IdempotencyKeyHeader, fmt.Sprintf("%d:%s", userId, key))
		return cache(c)
	}
}
