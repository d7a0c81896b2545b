package services

import (
	"fmt"
	"log"

	"race-league-system/models"
	"race-league-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type IdentityService struct {
	DB *gorm.DB
}

func NewIdentityService(db *gorm.DB) *IdentityService {
	return &IdentityService{DB: db}
}

// Resolver caches one season's identity tables for the duration of a
// single ingestion, so resolution is not re-derived per result row.
// Resolution order: exact platform-id match against the season's driver
// mappings, then case-folded display-name match against the roster.
// No match leaves the result unmapped — a valid, degraded state.
type Resolver struct {
	byPlatform map[string]string
	byName     map[string]string
}

// NewResolver loads the season's driver mappings and the active roster.
func (s *IdentityService) NewResolver(seasonID string) (*Resolver, error) {
	var mappings []models.DriverMapping
	if err := s.DB.Where("season_id = ?", seasonID).Find(&mappings).Error; err != nil {
		return nil, fmt.Errorf("failed to load driver mappings: %w", err)
	}

	var competitors []models.Competitor
	if err := s.DB.Where("is_active = ?", true).Find(&competitors).Error; err != nil {
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}

	r := &Resolver{
		byPlatform: make(map[string]string, len(mappings)),
		byName:     make(map[string]string, len(competitors)),
	}
	for _, m := range mappings {
		r.byPlatform[m.PlatformID] = m.CompetitorID
	}
	for _, comp := range competitors {
		// roster-level platform ids count as mappings too, season mappings win
		if comp.PlatformID != nil && *comp.PlatformID != "" {
			if _, taken := r.byPlatform[*comp.PlatformID]; !taken {
				r.byPlatform[*comp.PlatformID] = comp.ID
			}
		}
		r.byName[utils.FoldName(comp.Name)] = comp.ID
	}
	return r, nil
}

// Resolve maps one simulator-reported competitor to a league member id,
// or nil when unmapped.
func (r *Resolver) Resolve(p *models.ResultPayload) *string {
	if p.PlatformID != "" {
		if id, ok := r.byPlatform[p.PlatformID]; ok {
			return &id
		}
	}
	if id, ok := r.byName[utils.FoldName(p.Name)]; ok {
		return &id
	}
	return nil
}

// MapDriver retroactively binds a simulator driver id to a competitor for
// every base result in the event. The same physical driver appears once
// per session, and the mapping is keyed by simulator identity — so one
// admin action fixes the whole weekend, not just the row clicked. If the
// driver's results carry a platform id, the season mapping table is
// updated too so future ingestions resolve automatically.
func (s *IdentityService) MapDriver(eventID, simDriverID, competitorID string) (int64, error) {
	var updated int64
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var event models.Event
		if err := tx.First(&event, "id = ?", eventID).Error; err != nil {
			return fmt.Errorf("event %s: %w", eventID, err)
		}
		var competitor models.Competitor
		if err := tx.First(&competitor, "id = ?", competitorID).Error; err != nil {
			return fmt.Errorf("competitor %s: %w", competitorID, err)
		}

		var sessionIDs []string
		if err := tx.Model(&models.Session{}).Where("event_id = ?", eventID).
			Pluck("id", &sessionIDs).Error; err != nil {
			return err
		}
		if len(sessionIDs) == 0 {
			return validationErr("event %s has no ingested sessions", eventID)
		}

		res := tx.Model(&models.BaseResult{}).
			Where("session_id IN ? AND sim_driver_id = ?", sessionIDs, simDriverID).
			Update("competitor_id", competitorID)
		if res.Error != nil {
			return res.Error
		}
		updated = res.RowsAffected
		if updated == 0 {
			return fmt.Errorf("no results for driver %s in event %s: %w",
				simDriverID, eventID, gorm.ErrRecordNotFound)
		}

		// Learn the platform id for next time, if the simulator reported one
		var withPlatform models.BaseResult
		err := tx.Where("session_id IN ? AND sim_driver_id = ? AND platform_id IS NOT NULL",
			sessionIDs, simDriverID).First(&withPlatform).Error
		if err == nil && withPlatform.PlatformID != nil && *withPlatform.PlatformID != "" {
			mapping := models.DriverMapping{
				ID:           uuid.NewString(),
				SeasonID:     event.SeasonID,
				PlatformID:   *withPlatform.PlatformID,
				CompetitorID: competitorID,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "season_id"}, {Name: "platform_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"competitor_id"}),
			}).Create(&mapping).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	log.Printf("[IDENTITY] ✅ Mapped sim driver %s → competitor %s (%d result(s) updated)",
		simDriverID, competitorID, updated)
	return updated, nil
}

// MapDriverEndpoint — POST /events/:id/drivers/:sim_driver_id/map
func (s *IdentityService) MapDriverEndpoint(c *fiber.Ctx) error {
	type Req struct {
		CompetitorID string `json:"competitor_id"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	if req.CompetitorID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "competitor_id is required"})
	}
	updated, err := s.MapDriver(c.Params("id"), c.Params("sim_driver_id"), req.CompetitorID)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(fiber.Map{"message": "driver mapped", "results_updated": updated})
}
