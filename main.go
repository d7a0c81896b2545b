package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"race-league-system/handlers"
	"race-league-system/middleware"
	"race-league-system/models"
	"race-league-system/services"
	"race-league-system/utils"
	"race-league-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 64 * 1024 * 1024, // result archives stay small, 64MB is plenty
	})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-User-ID, X-User-Roles, X-Upload-Key",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Printf("⚠️  Payload archive disabled: %v", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Season{},
		&models.Track{},
		&models.TrackSynonym{},
		&models.Event{},
		&models.Competitor{},
		&models.DriverMapping{},
		&models.Session{},
		&models.BaseResult{},
		&models.OriginalSnapshot{},
		&models.PenaltyEntry{},
		&models.AuditEntry{},
		&models.OrphanedSession{},
		&models.StandingsEntry{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	identityService := services.NewIdentityService(db)
	ingestService := services.NewIngestService(db, identityService)
	orphanService := services.NewOrphanService(db, ingestService)
	penaltyService := services.NewPenaltyService(db)
	stewardService := services.NewStewardService(db)
	auditService := services.NewAuditService(db)
	resultsService := services.NewResultsService(db)
	leagueService := services.NewLeagueService(db)
	standingsService := services.NewStandingsService(db)

	profileServiceURL := os.Getenv("PROFILE_SERVICE_URL")
	serviceToken := os.Getenv("LEAGUE_SERVICE_TOKEN")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if profileServiceURL != "" {
		rosterWorker := workers.NewRosterSyncWorker(db, profileServiceURL, "/api/v1/public/members", serviceToken)
		rosterWorker.Start(ctx)
	} else {
		log.Println("⚠️  PROFILE_SERVICE_URL not set — roster sync worker disabled, competitors managed locally")
	}

	standingsService.StartStandingsScheduler()

	handlers.SetupTelemetryRoutes(app, ingestService)
	handlers.SetupResultRoutes(app, resultsService, penaltyService, stewardService, auditService, orphanService)
	handlers.SetupLeagueRoutes(app, leagueService, identityService, standingsService)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Standings scheduler running (every 5m)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}
