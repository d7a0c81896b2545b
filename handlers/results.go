package handlers

import (
	"race-league-system/middleware"
	"race-league-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupResultRoutes wires the result read API and the steward write API
// (penalties, overrides, resets, reverts, orphan resolution).
func SetupResultRoutes(
	app *fiber.App,
	resultsService *services.ResultsService,
	penaltyService *services.PenaltyService,
	stewardService *services.StewardService,
	auditService *services.AuditService,
	orphanService *services.OrphanService,
) {
	// 🔓 Read side
	app.Get("/sessions/:id/results", resultsService.GetSessionResultsEndpoint)
	app.Get("/sessions/:id/history", auditService.SessionHistoryEndpoint)
	app.Get("/competitors/:id/history", auditService.CompetitorHistoryEndpoint)
	app.Get("/events/:id/sessions", resultsService.GetEventSessionsEndpoint)

	// 🔐 Steward actions need an authenticated author for the audit log
	secured := app.Group("/", middleware.StewardContextMiddleware())

	secured.Post("/results/:id/penalties", penaltyService.AddPenaltyEndpoint)
	secured.Delete("/results/:id/penalties/:entry_id", penaltyService.RemovePenaltyEndpoint)

	secured.Patch("/sessions/:id/results/:ref/position", stewardService.ChangePositionEndpoint)
	secured.Post("/sessions/:id/results/:ref/disqualify", stewardService.DisqualifyEndpoint)
	secured.Post("/sessions/:id/results/:ref/reset", stewardService.ResetResultEndpoint)
	secured.Post("/sessions/:id/reset", stewardService.ResetSessionEndpoint)
	secured.Post("/sessions/:id/recompute", stewardService.RecomputeEndpoint)

	secured.Post("/edits/:id/revert", auditService.RevertEditEndpoint)

	secured.Get("/orphans", orphanService.ListOrphansEndpoint)
	secured.Post("/orphans/:id/process", orphanService.ProcessOrphanEndpoint)
	secured.Post("/orphans/:id/ignore", orphanService.IgnoreOrphanEndpoint)
}
