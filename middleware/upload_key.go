package middleware

import (
	"crypto/subtle"
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
)

// UploadKeyMiddleware authenticates the telemetry collaborator. The
// listener that decodes simulator packets posts finished sessions with a
// shared key rather than a user token, since it runs headless next to the
// game servers.
//
// Usage:
//   telemetry := app.Group("/telemetry", middleware.UploadKeyMiddleware())
func UploadKeyMiddleware() fiber.Handler {
	expectedKey := os.Getenv("TELEMETRY_UPLOAD_KEY")
	if expectedKey == "" {
		log.Fatal("❌ TELEMETRY_UPLOAD_KEY is not set — service cannot authenticate telemetry uploads")
	}

	return func(c *fiber.Ctx) error {
		key := c.Get("X-Upload-Key")
		if key == "" {
			log.Printf("🚫 [UPLOAD_AUTH] Missing X-Upload-Key for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-Upload-Key",
			})
		}
		if subtle.ConstantTimeCompare([]byte(key), []byte(expectedKey)) != 1 {
			log.Printf("❌ [UPLOAD_AUTH] Invalid upload key for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid upload key",
			})
		}
		return c.Next()
	}
}
