package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// CORS builds per-request CORS headers from the allow-list. Unknown origins
// are not rejected: they fall back to the primary production origin, which
// keeps browser errors readable while still pinning the header. OPTIONS
// preflights are answered with an empty 200.
func CORS(allowedOrigins []string, primaryOrigin string) fiber.Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}

	return func(c *fiber.Ctx) error {
		origin := c.Get(fiber.HeaderOrigin)
		allowOrigin := primaryOrigin
		if allowed[origin] {
			allowOrigin = origin
		}

		c.Set(fiber.HeaderAccessControlAllowOrigin, allowOrigin)
		c.Set(fiber.HeaderAccessControlAllowHeaders,
			"Origin, Content-Type, Accept, Authorization, apikey, X-Internal-Secret")
		c.Set(fiber.HeaderAccessControlAllowMethods, "GET, POST, OPTIONS")

		if c.Method() == fiber.MethodOptions {
			return c.SendStatus(fiber.StatusOK)
		}
		return c.Next()
	}
}
