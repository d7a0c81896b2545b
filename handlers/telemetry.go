package handlers

import (
	"race-league-system/middleware"
	"race-league-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupTelemetryRoutes wires the ingestion surface used by the telemetry
// listener that decodes simulator packets next to the game servers.
func SetupTelemetryRoutes(app *fiber.App, ingestService *services.IngestService) {
	telemetry := app.Group("/telemetry", middleware.UploadKeyMiddleware())

	telemetry.Post("/sessions", ingestService.IngestSessionEndpoint)
	telemetry.Post("/sessions/archive", ingestService.IngestArchiveEndpoint)
}
