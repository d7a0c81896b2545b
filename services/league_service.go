package services

import (
	"errors"
	"time"

	"race-league-system/models"
	"race-league-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LeagueService is the thin calendar/roster plumbing around the result
// engine: seasons, tracks, events and competitors. No invariants beyond
// uniqueness live here.
type LeagueService struct {
	DB *gorm.DB
}

func NewLeagueService(db *gorm.DB) *LeagueService {
	return &LeagueService{DB: db}
}

func (s *LeagueService) CreateSeason(c *fiber.Ctx) error {
	type Req struct {
		Name      string `json:"name"`
		StartDate string `json:"start_date"` // RFC3339
		EndDate   string `json:"end_date"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.Name == "" {
		return c.Status(400).JSON(fiber.Map{"error": "name is required"})
	}
	season := models.Season{ID: uuid.NewString(), Name: req.Name, IsActive: true}
	if req.StartDate != "" {
		t, err := time.Parse(time.RFC3339, req.StartDate)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid start_date (use RFC3339)"})
		}
		season.StartDate = t
	}
	if req.EndDate != "" {
		t, err := time.Parse(time.RFC3339, req.EndDate)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid end_date (use RFC3339)"})
		}
		season.EndDate = t
	}
	if err := s.DB.Create(&season).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to create season"})
	}
	return c.Status(201).JSON(season)
}

func (s *LeagueService) GetSeasons(c *fiber.Ctx) error {
	var seasons []models.Season
	if err := s.DB.Order("start_date DESC").Find(&seasons).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch seasons"})
	}
	return c.JSON(seasons)
}

func (s *LeagueService) CreateTrack(c *fiber.Ctx) error {
	type Req struct {
		Name     string   `json:"name"`
		Country  string   `json:"country"`
		LengthKm float64  `json:"length_km"`
		Synonyms []string `json:"synonyms,omitempty"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.Name == "" {
		return c.Status(400).JSON(fiber.Map{"error": "name is required"})
	}
	track := models.Track{
		ID:       uuid.NewString(),
		Name:     req.Name,
		Slug:     utils.TrackSlug(req.Name),
		Country:  req.Country,
		LengthKm: req.LengthKm,
	}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&track).Error; err != nil {
			return err
		}
		for _, syn := range req.Synonyms {
			row := models.TrackSynonym{
				ID:      uuid.NewString(),
				TrackID: track.ID,
				Slug:    utils.TrackSlug(syn),
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
			track.Synonyms = append(track.Synonyms, row)
		}
		return nil
	})
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to create track"})
	}
	return c.Status(201).JSON(track)
}

func (s *LeagueService) GetTracks(c *fiber.Ctx) error {
	var tracks []models.Track
	if err := s.DB.Preload("Synonyms").Order("name ASC").Find(&tracks).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch tracks"})
	}
	return c.JSON(tracks)
}

func (s *LeagueService) AddTrackSynonym(c *fiber.Ctx) error {
	type Req struct {
		Name string `json:"name"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.Name == "" {
		return c.Status(400).JSON(fiber.Map{"error": "name is required"})
	}
	trackID := c.Params("id")
	if err := s.DB.First(&models.Track{}, "id = ?", trackID).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "track not found"})
	}
	row := models.TrackSynonym{
		ID:      uuid.NewString(),
		TrackID: trackID,
		Slug:    utils.TrackSlug(req.Name),
	}
	if err := s.DB.Create(&row).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to create synonym"})
	}
	return c.Status(201).JSON(row)
}

func (s *LeagueService) CreateEvent(c *fiber.Ctx) error {
	type Req struct {
		SeasonID    string `json:"season_id"`
		TrackID     string `json:"track_id"`
		Name        string `json:"name"`
		Round       int    `json:"round"`
		ScheduledAt string `json:"scheduled_at"` // RFC3339
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.SeasonID == "" || req.TrackID == "" || req.Name == "" {
		return c.Status(400).JSON(fiber.Map{"error": "season_id, track_id and name are required"})
	}
	if err := s.DB.First(&models.Season{}, "id = ?", req.SeasonID).Error; err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "season_id not found"})
	}
	if err := s.DB.First(&models.Track{}, "id = ?", req.TrackID).Error; err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "track_id not found"})
	}
	event := models.Event{
		ID:       uuid.NewString(),
		SeasonID: req.SeasonID,
		TrackID:  req.TrackID,
		Name:     req.Name,
		Round:    req.Round,
		Status:   models.EventScheduled,
	}
	if req.ScheduledAt != "" {
		t, err := time.Parse(time.RFC3339, req.ScheduledAt)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid scheduled_at (use RFC3339)"})
		}
		event.ScheduledAt = t
	}
	if err := s.DB.Create(&event).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to create event"})
	}
	return c.Status(201).JSON(event)
}

func (s *LeagueService) GetEvents(c *fiber.Ctx) error {
	query := s.DB.Preload("Track").Order("scheduled_at ASC")
	if seasonID := c.Query("season_id"); seasonID != "" {
		query = query.Where("season_id = ?", seasonID)
	}
	var events []models.Event
	if err := query.Find(&events).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch events"})
	}
	return c.JSON(events)
}

func (s *LeagueService) GetEventByID(c *fiber.Ctx) error {
	var event models.Event
	err := s.DB.Preload("Track").Preload("Sessions").
		First(&event, "id = ?", c.Params("id")).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(404).JSON(fiber.Map{"error": "event not found"})
		}
		return c.Status(500).JSON(fiber.Map{"error": "DB error"})
	}
	return c.JSON(event)
}

func (s *LeagueService) CancelEvent(c *fiber.Ctx) error {
	result := s.DB.Model(&models.Event{}).
		Where("id = ? AND status = ?", c.Params("id"), models.EventScheduled).
		Update("status", models.EventCancelled)
	if result.Error != nil {
		return c.Status(500).JSON(fiber.Map{"error": "DB update failed"})
	}
	if result.RowsAffected == 0 {
		return c.Status(404).JSON(fiber.Map{"error": "no scheduled event with that id"})
	}
	return c.JSON(fiber.Map{"message": "event cancelled"})
}

func (s *LeagueService) CreateCompetitor(c *fiber.Ctx) error {
	type Req struct {
		ID         string `json:"id,omitempty"` // external member id, generated if absent
		Name       string `json:"name"`
		Team       string `json:"team"`
		CarNumber  int    `json:"car_number"`
		PlatformID string `json:"platform_id,omitempty"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.Name == "" {
		return c.Status(400).JSON(fiber.Map{"error": "name is required"})
	}
	competitor := models.Competitor{
		ID:        req.ID,
		Name:      req.Name,
		Team:      req.Team,
		CarNumber: req.CarNumber,
		IsActive:  true,
	}
	if competitor.ID == "" {
		competitor.ID = uuid.NewString()
	}
	if req.PlatformID != "" {
		competitor.PlatformID = &req.PlatformID
	}
	if err := s.DB.Create(&competitor).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to create competitor"})
	}
	return c.Status(201).JSON(competitor)
}

func (s *LeagueService) GetCompetitors(c *fiber.Ctx) error {
	var competitors []models.Competitor
	if err := s.DB.Order("name ASC").Find(&competitors).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch competitors"})
	}
	return c.JSON(competitors)
}

// CreateDriverMapping pre-binds a platform id to a competitor for a
// season, so ingestion resolves the driver without steward intervention.
func (s *LeagueService) CreateDriverMapping(c *fiber.Ctx) error {
	type Req struct {
		SeasonID     string `json:"season_id"`
		PlatformID   string `json:"platform_id"`
		CompetitorID string `json:"competitor_id"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.SeasonID == "" || req.PlatformID == "" || req.CompetitorID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "season_id, platform_id and competitor_id are required"})
	}
	if err := s.DB.First(&models.Competitor{}, "id = ?", req.CompetitorID).Error; err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "competitor_id not found"})
	}
	mapping := models.DriverMapping{
		ID:           uuid.NewString(),
		SeasonID:     req.SeasonID,
		PlatformID:   req.PlatformID,
		CompetitorID: req.CompetitorID,
	}
	if err := s.DB.Create(&mapping).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to create mapping"})
	}
	return c.Status(201).JSON(mapping)
}
