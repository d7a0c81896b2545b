package services

import (
	"log"
	"time"

	"race-league-system/models"

	"github.com/go-co-op/gocron/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// pointsByPosition is the league's scoring table (top 10 score).
var pointsByPosition = map[int]int{
	1: 25, 2: 18, 3: 15, 4: 12, 5: 10,
	6: 8, 7: 6, 8: 4, 9: 2, 10: 1,
}

const fastestLapBonus = 1 // only awarded inside the points positions

type StandingsService struct {
	DB *gorm.DB
}

func NewStandingsService(db *gorm.DB) *StandingsService {
	return &StandingsService{DB: db}
}

// RecomputeSeason rebuilds the cached standings table for one season from
// the race results of its completed events. The cache exists only for
// read efficiency; this derivation is the source of truth.
func (s *StandingsService) RecomputeSeason(seasonID string) error {
	var eventIDs []string
	err := s.DB.Model(&models.Event{}).
		Where("season_id = ? AND status = ?", seasonID, models.EventCompleted).
		Pluck("id", &eventIDs).Error
	if err != nil {
		return err
	}

	type agg struct {
		points      int
		wins        int
		podiums     int
		bestFinish  int
		racesScored int
	}
	totals := make(map[string]*agg)

	if len(eventIDs) > 0 {
		var raceSessionIDs []string
		err = s.DB.Model(&models.Session{}).
			Where("event_id IN ? AND kind = ?", eventIDs, models.SessionRace).
			Pluck("id", &raceSessionIDs).Error
		if err != nil {
			return err
		}

		var results []models.BaseResult
		if len(raceSessionIDs) > 0 {
			err = s.DB.Where("session_id IN ? AND competitor_id IS NOT NULL", raceSessionIDs).
				Find(&results).Error
			if err != nil {
				return err
			}
		}

		for _, r := range results {
			if r.Status == models.StatusDisqualified {
				continue
			}
			t := totals[*r.CompetitorID]
			if t == nil {
				t = &agg{}
				totals[*r.CompetitorID] = t
			}
			t.racesScored++
			if r.Status == models.StatusFinished {
				t.points += pointsByPosition[r.Position]
				if r.FastestLap && r.Position <= 10 {
					t.points += fastestLapBonus
				}
				if r.Position == 1 {
					t.wins++
				}
				if r.Position <= 3 {
					t.podiums++
				}
				if t.bestFinish == 0 || r.Position < t.bestFinish {
					t.bestFinish = r.Position
				}
			}
		}
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("season_id = ?", seasonID).Delete(&models.StandingsEntry{}).Error; err != nil {
			return err
		}
		for competitorID, t := range totals {
			entry := models.StandingsEntry{
				ID:           uuid.NewString(),
				SeasonID:     seasonID,
				CompetitorID: competitorID,
				Points:       t.points,
				Wins:         t.wins,
				Podiums:      t.podiums,
				BestFinish:   t.bestFinish,
				RacesScored:  t.racesScored,
			}
			if err := tx.Create(&entry).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// StartStandingsScheduler refreshes the cached standings of every active
// season in the background.
func (s *StandingsService) StartStandingsScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(5*time.Minute),
		gocron.NewTask(func() {
			var seasonIDs []string
			err := s.DB.Model(&models.Season{}).Where("is_active = ?", true).
				Pluck("id", &seasonIDs).Error
			if err != nil {
				log.Printf("[Standings] DB error: %v", err)
				return
			}
			for _, id := range seasonIDs {
				if err := s.RecomputeSeason(id); err != nil {
					log.Printf("[Standings] Failed to recompute season %s: %v", id, err)
				}
			}
		}),
	)
}

// GetStandingsEndpoint — GET /seasons/:id/standings
func (s *StandingsService) GetStandingsEndpoint(c *fiber.Ctx) error {
	seasonID := c.Params("id")
	if c.Query("refresh") == "true" {
		if err := s.RecomputeSeason(seasonID); err != nil {
			return respondErr(c, err)
		}
	}
	var entries []models.StandingsEntry
	err := s.DB.Preload("Competitor").
		Where("season_id = ?", seasonID).
		Order("points DESC, wins DESC, best_finish ASC").
		Find(&entries).Error
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "failed to fetch standings"})
	}
	return c.JSON(entries)
}
