package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/socialhook/internal/security"
)

// SecurityHeaders sets the hardening headers on every response.
func SecurityHeaders() fiber.Handler {
	return func(c *fiber.Ctx) error {
		for k, v := range security.Headers {
			c.Set(k, v)
		}
		return c.Next()
	}
}
