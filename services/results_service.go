package services

import (
	"errors"
	"log"

	"race-league-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ResultsService struct {
	DB *gorm.DB
}

func NewResultsService(db *gorm.DB) *ResultsService {
	return &ResultsService{DB: db}
}

// GetSessionResultsEndpoint — GET /sessions/:id/results
// Returns the session with results in current finishing order, each
// carrying its resolved competitor (or an unmapped flag) and the full
// penalty detail with reasons.
func (s *ResultsService) GetSessionResultsEndpoint(c *fiber.Ctx) error {
	id := c.Params("id")
	var session models.Session
	err := s.DB.
		Preload("Results", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Preload("Results.Competitor").
		Preload("Results.Penalties", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		First(&session, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "session not found"})
		}
		log.Printf("ERROR fetching session %s: %v", id, err)
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}

	type ResultView struct {
		models.BaseResult
		Unmapped bool `json:"unmapped"`
	}
	results := make([]ResultView, 0, len(session.Results))
	for _, r := range session.Results {
		results = append(results, ResultView{BaseResult: r, Unmapped: r.CompetitorID == nil})
	}

	return c.JSON(fiber.Map{
		"session": session,
		"results": results,
	})
}

// GetEventSessionsEndpoint — GET /events/:id/sessions
func (s *ResultsService) GetEventSessionsEndpoint(c *fiber.Ctx) error {
	var sessions []models.Session
	if err := s.DB.Where("event_id = ?", c.Params("id")).
		Order("created_at ASC").Find(&sessions).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch sessions"})
	}
	return c.JSON(sessions)
}
