package handlers

import (
	"race-league-system/middleware"
	"race-league-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupLeagueRoutes wires calendar/roster CRUD, driver mapping and the
// championship standings read side.
func SetupLeagueRoutes(
	app *fiber.App,
	leagueService *services.LeagueService,
	identityService *services.IdentityService,
	standingsService *services.StandingsService,
) {
	// 🔓 Read side
	app.Get("/seasons", leagueService.GetSeasons)
	app.Get("/seasons/:id/standings", standingsService.GetStandingsEndpoint)
	app.Get("/tracks", leagueService.GetTracks)
	app.Get("/events", leagueService.GetEvents)
	app.Get("/events/:id", leagueService.GetEventByID)
	app.Get("/competitors", leagueService.GetCompetitors)

	// 🔐 Calendar and roster management
	secured := app.Group("/", middleware.StewardContextMiddleware())

	secured.Post("/seasons", leagueService.CreateSeason)
	secured.Post("/tracks", leagueService.CreateTrack)
	secured.Post("/tracks/:id/synonyms", leagueService.AddTrackSynonym)
	secured.Post("/events", leagueService.CreateEvent)
	secured.Post("/events/:id/cancel", leagueService.CancelEvent)
	secured.Post("/competitors", leagueService.CreateCompetitor)
	secured.Post("/driver-mappings", leagueService.CreateDriverMapping)
	secured.Post("/events/:id/drivers/:sim_driver_id/map", identityService.MapDriverEndpoint)
}
