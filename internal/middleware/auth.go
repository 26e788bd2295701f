package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// InternalCallerKey marks requests that presented the internal shared
// secret (trusted automation callers).
const InternalCallerKey = "internal_caller"

// RequireWebhookSecret rejects any request whose "apikey" header does not
// equal the configured webhook secret. Auth failure is the only hard 401 on
// the webhook path; every business failure after this point must still be
// acknowledged with 200 so the gateway does not retry.
func RequireWebhookSecret(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret == "" || c.Get("apikey") != secret {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"ok":    false,
				"error": "Unauthorized",
			})
		}
		return c.Next()
	}
}

// MarkInternalCaller flags requests carrying the X-Internal-Secret header
// with the correct value. It never rejects: the flag only unlocks
// trusted-caller behavior (automation triggers) downstream.
func MarkInternalCaller(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret != "" && c.Get("X-Internal-Secret") == secret {
			c.Locals(InternalCallerKey, true)
		}
		return c.Next()
	}
}
