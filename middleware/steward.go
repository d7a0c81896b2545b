package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// StewardContextMiddleware extracts the acting user identity set by the
// Gateway. Every mutating steward action (penalties, position changes,
// resets) is attributed to this user in the audit log, so write routes
// refuse to run without it.
func StewardContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Get("X-User-ID")
		rolesStr := c.Get("X-User-Roles")

		if userID == "" && c.Method() != fiber.MethodGet {
			log.Printf("❌ [STEWARD_CTX] X-User-ID required but missing on %s %s", c.Method(), c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-ID — request must come through gateway with auth context",
			})
		}

		var roles []string
		if rolesStr != "" {
			for _, r := range strings.Split(rolesStr, ",") {
				r = strings.TrimSpace(r)
				if r != "" {
					roles = append(roles, r)
				}
			}
		}

		c.Locals("user_id", userID)
		c.Locals("user_roles", roles)

		return c.Next()
	}
}

// Author returns the acting user id attached by StewardContextMiddleware.
func Author(c *fiber.Ctx) string {
	if v, ok := c.Locals("user_id").(string); ok {
		return v
	}
	return ""
}
