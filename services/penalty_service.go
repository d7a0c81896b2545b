package services

import (
	"encoding/json"
	"fmt"
	"log"
	"math"

	"race-league-system/middleware"
	"race-league-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PenaltyService struct {
	DB *gorm.DB
}

func NewPenaltyService(db *gorm.DB) *PenaltyService {
	return &PenaltyService{DB: db}
}

// applyPenaltyTotals re-derives one result's post-penalty figures from
// the ledger: total time = base time + sum of live entries × 1000. The
// simulator's own in-session penalty is already part of the base time and
// is tracked separately so a reset can discard only the steward part.
func applyPenaltyTotals(tx *gorm.DB, result *models.BaseResult) error {
	var sum int64
	err := tx.Model(&models.PenaltyEntry{}).Where("result_id = ?", result.ID).
		Select("COALESCE(SUM(seconds), 0)").Scan(&sum).Error
	if err != nil {
		return err
	}

	result.PostRacePenaltySeconds = int(sum)
	if result.BaseTimeMs != nil {
		total := *result.BaseTimeMs + sum*1000
		result.TotalTimeMs = &total
	}
	return tx.Model(&models.BaseResult{}).Where("id = ?", result.ID).
		Updates(map[string]interface{}{
			"post_race_penalty_seconds": result.PostRacePenaltySeconds,
			"total_time_ms":             result.TotalTimeMs,
		}).Error
}

// AddPenalty appends a post-session time penalty to a result, re-derives
// its total, repositions the whole session and writes the audit entry —
// all in one transaction.
func (s *PenaltyService) AddPenalty(resultID string, seconds int, reason, author string) (*models.AuditEntry, error) {
	if seconds <= 0 {
		return nil, validationErr("penalty seconds must be positive")
	}
	if reason == "" {
		return nil, validationErr("penalty reason is required")
	}
	if author == "" {
		return nil, validationErr("penalty author is required")
	}

	var audit *models.AuditEntry
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var result models.BaseResult
		if err := tx.First(&result, "id = ?", resultID).Error; err != nil {
			return fmt.Errorf("result %s: %w", resultID, err)
		}
		oldState := models.StateOf(&result)

		entry := models.PenaltyEntry{
			ID:        uuid.NewString(),
			ResultID:  result.ID,
			SessionID: result.SessionID,
			Seconds:   seconds,
			Reason:    reason,
			Author:    author,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		if err := applyPenaltyTotals(tx, &result); err != nil {
			return err
		}
		if _, err := RecalculatePositions(tx, result.SessionID); err != nil {
			return err
		}

		// Re-read so new_value matches the live row after repositioning
		if err := tx.First(&result, "id = ?", result.ID).Error; err != nil {
			return err
		}

		entryJSON, _ := json.Marshal(entry)
		audit = &models.AuditEntry{
			ID:            uuid.NewString(),
			SessionID:     result.SessionID,
			ResultID:      result.ID,
			CompetitorID:  result.CompetitorID,
			EditKind:      models.EditPenaltyAdd,
			OldValue:      oldState.MustJSON(),
			NewValue:      models.StateOf(&result).MustJSON(),
			Reason:        reason,
			Author:        author,
			EntrySnapshot: string(entryJSON),
		}
		return tx.Create(audit).Error
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[PENALTY] ✅ +%ds on result %s by %s (%s)", seconds, resultID, author, reason)
	return audit, nil
}

// RemovePenalty deletes one ledger entry from a result, re-derives the
// total, repositions the session and audits. Fails if the entry does not
// exist or belongs to a different result.
func (s *PenaltyService) RemovePenalty(resultID, entryID, author string) (*models.AuditEntry, error) {
	if author == "" {
		return nil, validationErr("author is required")
	}

	var audit *models.AuditEntry
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var entry models.PenaltyEntry
		if err := tx.First(&entry, "id = ?", entryID).Error; err != nil {
			return fmt.Errorf("penalty entry %s: %w", entryID, err)
		}
		if entry.ResultID != resultID {
			return conflictErr("penalty entry %s does not belong to result %s", entryID, resultID)
		}

		var result models.BaseResult
		if err := tx.First(&result, "id = ?", resultID).Error; err != nil {
			return fmt.Errorf("result %s: %w", resultID, err)
		}
		oldState := models.StateOf(&result)

		if err := tx.Delete(&models.PenaltyEntry{}, "id = ?", entry.ID).Error; err != nil {
			return err
		}

		if err := applyPenaltyTotals(tx, &result); err != nil {
			return err
		}
		if _, err := RecalculatePositions(tx, result.SessionID); err != nil {
			return err
		}
		if err := tx.First(&result, "id = ?", result.ID).Error; err != nil {
			return err
		}

		entryJSON, _ := json.Marshal(entry)
		audit = &models.AuditEntry{
			ID:            uuid.NewString(),
			SessionID:     result.SessionID,
			ResultID:      result.ID,
			CompetitorID:  result.CompetitorID,
			EditKind:      models.EditPenaltyRemove,
			OldValue:      oldState.MustJSON(),
			NewValue:      models.StateOf(&result).MustJSON(),
			Reason:        fmt.Sprintf("removed %ds penalty (%s)", entry.Seconds, entry.Reason),
			Author:        author,
			EntrySnapshot: string(entryJSON),
		}
		return tx.Create(audit).Error
	})
	if err != nil {
		return nil, err
	}
	log.Printf("[PENALTY] ✅ Removed entry %s from result %s by %s", entryID, resultID, author)
	return audit, nil
}

// AddPenaltyEndpoint — POST /results/:id/penalties
func (s *PenaltyService) AddPenaltyEndpoint(c *fiber.Ctx) error {
	type Req struct {
		Seconds float64 `json:"seconds"`
		Reason  string  `json:"reason"`
		Author  string  `json:"author"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid JSON"})
	}
	// Reject non-finite and fractional values before they reach the ledger
	if math.IsNaN(req.Seconds) || math.IsInf(req.Seconds, 0) || req.Seconds != math.Trunc(req.Seconds) {
		return c.Status(400).JSON(fiber.Map{"error": "seconds must be a positive whole number"})
	}
	author := req.Author
	if author == "" {
		author = middleware.Author(c)
	}
	audit, err := s.AddPenalty(c.Params("id"), int(req.Seconds), req.Reason, author)
	if err != nil {
		return respondErr(c, err)
	}
	return c.Status(201).JSON(audit)
}

// RemovePenaltyEndpoint — DELETE /results/:id/penalties/:entry_id
func (s *PenaltyService) RemovePenaltyEndpoint(c *fiber.Ctx) error {
	author := middleware.Author(c)
	audit, err := s.RemovePenalty(c.Params("id"), c.Params("entry_id"), author)
	if err != nil {
		return respondErr(c, err)
	}
	return c.JSON(audit)
}
